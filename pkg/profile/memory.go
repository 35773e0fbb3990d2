package profile

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store implementation. Data is lost on
// restart. Suitable for tests and ephemeral runs.
type MemoryStore struct {
	mu   sync.Mutex
	seq  int64
	rows map[int64]*Profile
}

var _ Store = (*MemoryStore)(nil)

// NewMemory creates an in-memory store.
func NewMemory() *MemoryStore {
	return &MemoryStore{rows: make(map[int64]*Profile)}
}

func (s *MemoryStore) Create(_ context.Context, name string, voicePrint []byte, enrolledAt time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.rows {
		if p.IsActive && p.Name == name {
			return 0, fmt.Errorf("profile: create %q: %w", name, ErrDuplicateName)
		}
	}

	s.seq++
	now := time.Now().UTC()
	s.rows[s.seq] = &Profile{
		ID:             s.seq,
		Name:           name,
		VoicePrint:     append([]byte(nil), voicePrint...),
		EnrollmentDate: enrolledAt,
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	return s.seq, nil
}

func (s *MemoryStore) ListActive(_ context.Context) ([]*Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*Profile
	for _, p := range s.rows {
		if p.IsActive {
			out = append(out, copyProfile(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) Get(_ context.Context, id int64) (*Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.rows[id]
	if !ok {
		return nil, fmt.Errorf("profile: get %d: %w", id, ErrNotFound)
	}
	return copyProfile(p), nil
}

func (s *MemoryStore) IncrementRecognition(_ context.Context, id int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.rows[id]
	if !ok {
		return fmt.Errorf("profile: increment recognition %d: %w", id, ErrNotFound)
	}
	p.RecognitionCount++
	p.LastRecognized = &at
	p.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryStore) Deactivate(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.rows[id]
	if !ok {
		return fmt.Errorf("profile: deactivate %d: %w", id, ErrNotFound)
	}
	if p.IsActive {
		p.IsActive = false
		p.UpdatedAt = time.Now().UTC()
	}
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rows[id]; !ok {
		return fmt.Errorf("profile: delete %d: %w", id, ErrNotFound)
	}
	delete(s.rows, id)
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}

func copyProfile(p *Profile) *Profile {
	cp := *p
	cp.VoicePrint = append([]byte(nil), p.VoicePrint...)
	if p.LastRecognized != nil {
		t := *p.LastRecognized
		cp.LastRecognized = &t
	}
	return &cp
}
