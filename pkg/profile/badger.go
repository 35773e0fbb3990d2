package profile

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/vmihailenco/msgpack/v5"
)

// Key layout:
//
//	p/{id}    → msgpack-encoded record; id is 8-byte big-endian
//	n/{name}  → 8-byte big-endian id (active-name uniqueness index)
//	seq       → 8-byte big-endian last assigned id
//
// The name index row exists iff the profile is active, so a point read
// on n/{name} is the uniqueness check, and deactivation frees the name
// by deleting the row. Big-endian ids make iteration over p/ ascend in
// id order.

var seqKey = []byte("seq")

func profileKey(id int64) []byte {
	k := make([]byte, 2+8)
	copy(k, "p/")
	binary.BigEndian.PutUint64(k[2:], uint64(id))
	return k
}

func nameKey(name string) []byte {
	return append([]byte("n/"), name...)
}

// record is the persisted profile row.
type record struct {
	ID               int64      `json:"id" msgpack:"id"`
	Name             string     `json:"name" msgpack:"name"`
	VoicePrint       []byte     `json:"voice_print" msgpack:"voice_print"`
	EnrollmentDate   time.Time  `json:"enrollment_date" msgpack:"enrollment_date"`
	LastRecognized   *time.Time `json:"last_recognized,omitempty" msgpack:"last_recognized,omitempty"`
	RecognitionCount int64      `json:"recognition_count" msgpack:"recognition_count"`
	IsActive         bool       `json:"is_active" msgpack:"is_active"`
	CreatedAt        time.Time  `json:"created_at" msgpack:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at" msgpack:"updated_at"`
}

func (r *record) profile() *Profile {
	p := &Profile{
		ID:               r.ID,
		Name:             r.Name,
		VoicePrint:       append([]byte(nil), r.VoicePrint...),
		EnrollmentDate:   r.EnrollmentDate,
		RecognitionCount: r.RecognitionCount,
		IsActive:         r.IsActive,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
	if r.LastRecognized != nil {
		t := *r.LastRecognized
		p.LastRecognized = &t
	}
	return p
}

// BadgerStore is a Store implementation backed by BadgerDB v4.
//
// Writers are serialized by a store-level mutex; without it badger's
// optimistic transactions would surface ErrConflict on concurrent stat
// updates. At identification cadence (tens of profiles, conversational
// call rates) single-writer throughput is not a constraint.
type BadgerStore struct {
	db *badger.DB
	mu sync.Mutex
}

var _ Store = (*BadgerStore)(nil)

// BadgerOptions configures the BadgerDB store.
type BadgerOptions struct {
	// Dir is the directory for BadgerDB data files.
	// Required unless InMemory is set.
	Dir string

	// InMemory runs BadgerDB in memory-only mode (no disk
	// persistence). Useful for testing with a real badger engine.
	InMemory bool

	// Logger sets the badger logger. If nil, a quiet logger is used
	// that suppresses info and debug output.
	Logger badger.Logger
}

// NewBadger creates a BadgerDB-backed Store.
func NewBadger(opts BadgerOptions) (*BadgerStore, error) {
	if !opts.InMemory && opts.Dir == "" {
		return nil, errors.New("profile: BadgerOptions.Dir is required for on-disk mode")
	}
	dbOpts := badger.DefaultOptions(opts.Dir)
	if opts.InMemory {
		dbOpts = dbOpts.WithInMemory(true)
	}
	if opts.Logger != nil {
		dbOpts = dbOpts.WithLogger(opts.Logger)
	} else {
		dbOpts = dbOpts.WithLogger(quietLogger{})
	}
	db, err := badger.Open(dbOpts)
	if err != nil {
		return nil, fmt.Errorf("profile: open badger: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

func (s *BadgerStore) Create(_ context.Context, name string, voicePrint []byte, enrolledAt time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var id int64
	err := s.db.Update(func(txn *badger.Txn) error {
		// Uniqueness check and write share this transaction.
		_, err := txn.Get(nameKey(name))
		switch {
		case err == nil:
			return ErrDuplicateName
		case !errors.Is(err, badger.ErrKeyNotFound):
			return err
		}

		last, err := readSeq(txn)
		if err != nil {
			return err
		}
		id = last + 1

		now := time.Now().UTC()
		rec := record{
			ID:             id,
			Name:           name,
			VoicePrint:     append([]byte(nil), voicePrint...),
			EnrollmentDate: enrolledAt,
			IsActive:       true,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		data, err := msgpack.Marshal(&rec)
		if err != nil {
			return err
		}

		idBuf := make([]byte, 8)
		binary.BigEndian.PutUint64(idBuf, uint64(id))
		if err := txn.Set(seqKey, idBuf); err != nil {
			return err
		}
		if err := txn.Set(profileKey(id), data); err != nil {
			return err
		}
		return txn.Set(nameKey(name), idBuf)
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateName) {
			return 0, fmt.Errorf("profile: create %q: %w", name, ErrDuplicateName)
		}
		return 0, fmt.Errorf("profile: create %q: %w", name, err)
	}
	return id, nil
}

func (s *BadgerStore) ListActive(_ context.Context) ([]*Profile, error) {
	var out []*Profile
	err := s.db.View(func(txn *badger.Txn) error {
		prefix := []byte("p/")
		iterOpts := badger.DefaultIteratorOptions
		iterOpts.Prefix = prefix
		it := txn.NewIterator(iterOpts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			val, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			var rec record
			if err := msgpack.Unmarshal(val, &rec); err != nil {
				return fmt.Errorf("decode record %x: %w", it.Item().Key(), err)
			}
			if !rec.IsActive {
				continue
			}
			out = append(out, rec.profile())
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("profile: list active: %w", err)
	}
	return out, nil
}

func (s *BadgerStore) Get(_ context.Context, id int64) (*Profile, error) {
	var p *Profile
	err := s.db.View(func(txn *badger.Txn) error {
		rec, err := readRecord(txn, id)
		if err != nil {
			return err
		}
		p = rec.profile()
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("profile: get %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("profile: get %d: %w", id, err)
	}
	return p, nil
}

func (s *BadgerStore) IncrementRecognition(_ context.Context, id int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.Update(func(txn *badger.Txn) error {
		rec, err := readRecord(txn, id)
		if err != nil {
			return err
		}
		rec.RecognitionCount++
		rec.LastRecognized = &at
		rec.UpdatedAt = time.Now().UTC()
		return writeRecord(txn, rec)
	})
	if err != nil {
		return fmt.Errorf("profile: increment recognition %d: %w", id, err)
	}
	return nil
}

func (s *BadgerStore) Deactivate(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.Update(func(txn *badger.Txn) error {
		rec, err := readRecord(txn, id)
		if err != nil {
			return err
		}
		if !rec.IsActive {
			return nil
		}
		rec.IsActive = false
		rec.UpdatedAt = time.Now().UTC()
		if err := writeRecord(txn, rec); err != nil {
			return err
		}
		return txn.Delete(nameKey(rec.Name))
	})
	if err != nil {
		return fmt.Errorf("profile: deactivate %d: %w", id, err)
	}
	return nil
}

func (s *BadgerStore) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.Update(func(txn *badger.Txn) error {
		rec, err := readRecord(txn, id)
		if err != nil {
			return err
		}
		if rec.IsActive {
			if err := txn.Delete(nameKey(rec.Name)); err != nil {
				return err
			}
		}
		return txn.Delete(profileKey(id))
	})
	if err != nil {
		return fmt.Errorf("profile: delete %d: %w", id, err)
	}
	return nil
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}

func readRecord(txn *badger.Txn, id int64) (*record, error) {
	item, err := txn.Get(profileKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	val, err := item.ValueCopy(nil)
	if err != nil {
		return nil, err
	}
	var rec record
	if err := msgpack.Unmarshal(val, &rec); err != nil {
		return nil, fmt.Errorf("decode record %d: %w", id, err)
	}
	return &rec, nil
}

func writeRecord(txn *badger.Txn, rec *record) error {
	data, err := msgpack.Marshal(rec)
	if err != nil {
		return err
	}
	return txn.Set(profileKey(rec.ID), data)
}

func readSeq(txn *badger.Txn) (int64, error) {
	item, err := txn.Get(seqKey)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	val, err := item.ValueCopy(nil)
	if err != nil {
		return 0, err
	}
	if len(val) != 8 {
		return 0, fmt.Errorf("malformed seq value: %d bytes", len(val))
	}
	return int64(binary.BigEndian.Uint64(val)), nil
}

// quietLogger wraps the standard log package for badger, suppressing
// debug and info level messages.
type quietLogger struct{}

func (quietLogger) Errorf(f string, v ...interface{}) { log.Printf("[badger] ERROR: "+f, v...) }
func (quietLogger) Warningf(f string, v ...interface{}) {
	log.Printf("[badger] WARN: "+f, v...)
}
func (quietLogger) Infof(string, ...interface{})  {}
func (quietLogger) Debugf(string, ...interface{}) {}
