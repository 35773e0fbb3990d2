// Package profile persists enrolled-user voice-print profiles and the
// recognition statistics attached to them.
//
// A [Profile] is the only durable entity in the system: the user's
// name, their voice print (the codec-encoded unit embedding), the
// enrollment timestamp, and counters updated on every identification
// hit. Profiles are soft-deleted by deactivation, which keeps the row
// for audit but frees the name and excludes the profile from
// identification; hard deletion is a separate operation.
//
// [Store] is the persistence contract the engine consumes. Two
// implementations ship with the package: [BadgerStore], the durable
// store backed by BadgerDB, and [MemoryStore] for tests and ephemeral
// runs.
package profile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// Name length bounds, in runes.
const (
	MinNameLen = 2
	MaxNameLen = 50
)

// Common errors.
var (
	// ErrNotFound is returned when no profile has the requested id.
	ErrNotFound = errors.New("profile: not found")

	// ErrDuplicateName is returned when an active profile already
	// holds the requested name.
	ErrDuplicateName = errors.New("profile: duplicate name")

	// ErrInvalidName is returned when a name fails validation.
	ErrInvalidName = errors.New("profile: invalid name")
)

// Profile is one enrolled user.
type Profile struct {
	// ID is the surrogate key, assigned on creation. Immutable.
	ID int64

	// Name is the user-supplied display name, unique among active
	// profiles.
	Name string

	// VoicePrint is the stored embedding: 4*dim bytes of little-endian
	// float32, L2-normalized to unit length.
	VoicePrint []byte

	// EnrollmentDate is when the profile was enrolled. Set once.
	EnrollmentDate time.Time

	// LastRecognized is the time of the most recent identification
	// hit, nil until the first one.
	LastRecognized *time.Time

	// RecognitionCount is the number of identification hits.
	RecognitionCount int64

	// IsActive is false for soft-deleted profiles, which are excluded
	// from identification but retained for audit.
	IsActive bool

	// CreatedAt and UpdatedAt are store bookkeeping; UpdatedAt is
	// bumped on every write to the row.
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Store is the persistence contract for profiles.
//
// Implementations must be safe for concurrent use and must apply every
// write atomically per profile: two concurrent recognition hits on one
// profile must both land.
type Store interface {
	// Create persists a new active profile with zeroed recognition
	// stats and returns the assigned id. It fails with
	// ErrDuplicateName if an active profile already holds the name;
	// the check happens inside the same transaction as the write, so
	// a race past a caller's pre-check is still caught here.
	Create(ctx context.Context, name string, voicePrint []byte, enrolledAt time.Time) (int64, error)

	// ListActive returns all active profiles in ascending id order.
	ListActive(ctx context.Context) ([]*Profile, error)

	// Get returns the profile with the given id, active or not.
	// It fails with ErrNotFound if the id is absent.
	Get(ctx context.Context, id int64) (*Profile, error)

	// IncrementRecognition applies one recognition hit:
	// recognition_count += 1 and last_recognized = at, as a single
	// atomic update.
	IncrementRecognition(ctx context.Context, id int64, at time.Time) error

	// Deactivate soft-deletes the profile: it no longer appears in
	// ListActive and its name becomes reusable, but the row remains.
	Deactivate(ctx context.Context, id int64) error

	// Delete hard-deletes the profile.
	Delete(ctx context.Context, id int64) error

	// Close releases store resources.
	Close() error
}

// ValidateName checks a user-supplied profile name: 2 to 50 runes with
// no surrounding whitespace.
func ValidateName(name string) error {
	if name != strings.TrimSpace(name) {
		return fmt.Errorf("profile: name %q has surrounding whitespace: %w", name, ErrInvalidName)
	}
	if n := utf8.RuneCountInString(name); n < MinNameLen || n > MaxNameLen {
		return fmt.Errorf("profile: name %q is %d runes, want %d-%d: %w", name, n, MinNameLen, MaxNameLen, ErrInvalidName)
	}
	return nil
}
