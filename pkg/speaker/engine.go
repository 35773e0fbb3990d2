// Package speaker implements voice-based speaker enrollment and
// identification.
//
// An [Engine] turns short voice recordings into voice prints and matches
// later utterances against every enrolled speaker. Enrollment takes
// several samples from one person, averages their embeddings into a
// single print, and refuses the result when the samples disagree too
// much. Identification extracts one embedding and picks the closest
// active profile by cosine similarity, if it is close enough.
//
// The engine owns no global state. Construct one with [New], share it
// between callers (all methods are safe for concurrent use), and close
// it when done.
package speaker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/haivivi/speakerid/pkg/profile"
	"github.com/haivivi/speakerid/pkg/voiceprint"
)

const (
	// DefaultThreshold is the minimum cosine similarity between a query
	// embedding and a stored voice print for identification to report a
	// match. The comparison is inclusive: a score exactly at the
	// threshold matches.
	DefaultThreshold float32 = 0.70

	// DefaultVarianceThreshold is the maximum sample variance (root mean
	// square L2 distance from each sample embedding to their mean) an
	// enrollment may have. Calibrated for unit-normalized embeddings.
	DefaultVarianceThreshold = 0.15

	// DefaultMinSamples is the minimum number of audio samples required
	// to enroll a speaker.
	DefaultMinSamples = 3
)

// SampleArchiver persists the raw audio samples of a successful
// enrollment for audit and re-enrollment. Failures are logged by the
// engine and never fail the enrollment itself.
type SampleArchiver interface {
	SaveSamples(ctx context.Context, profileID int64, samples [][]float32) error
}

// Config configures an [Engine]. Store and Extractor are required;
// everything else has a working default.
type Config struct {
	// Store persists user profiles. The engine takes ownership and
	// closes it on [Engine.Close].
	Store profile.Store

	// Extractor produces one embedding per audio sample.
	Extractor voiceprint.Extractor

	// Threshold is the minimum similarity for an identification match.
	// Zero means DefaultThreshold.
	Threshold float32

	// VarianceThreshold is the enrollment quality gate. Zero means
	// DefaultVarianceThreshold.
	VarianceThreshold float64

	// MinSamples is the minimum enrollment sample count. Zero means
	// DefaultMinSamples.
	MinSamples int

	// Archive, if set, receives the raw samples of every successful
	// enrollment.
	Archive SampleArchiver

	// Logger for engine decisions. Nil means slog.Default().
	Logger *slog.Logger
}

// Engine enrolls and identifies speakers against a profile store.
type Engine struct {
	store     profile.Store
	extractor voiceprint.Extractor
	archive   SampleArchiver
	log       *slog.Logger

	threshold         float32
	varianceThreshold float64
	minSamples        int
}

// New creates an Engine from cfg.
func New(cfg Config) (*Engine, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("speaker: config: store is required")
	}
	if cfg.Extractor == nil {
		return nil, fmt.Errorf("speaker: config: extractor is required")
	}
	if cfg.Threshold == 0 {
		cfg.Threshold = DefaultThreshold
	}
	if cfg.VarianceThreshold == 0 {
		cfg.VarianceThreshold = DefaultVarianceThreshold
	}
	if cfg.MinSamples == 0 {
		cfg.MinSamples = DefaultMinSamples
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Engine{
		store:             cfg.Store,
		extractor:         cfg.Extractor,
		archive:           cfg.Archive,
		log:               cfg.Logger,
		threshold:         cfg.Threshold,
		varianceThreshold: cfg.VarianceThreshold,
		minSamples:        cfg.MinSamples,
	}, nil
}

// Enroll registers a new speaker from several audio samples and returns
// the new profile id.
//
// Each sample is 16 kHz mono PCM. At least MinSamples are required, the
// name must not belong to an active profile, and the per-sample
// embeddings must agree within the variance threshold. Either a fully
// valid profile is committed or nothing is written.
func (e *Engine) Enroll(ctx context.Context, name string, samples [][]float32) (int64, error) {
	if got := len(samples); got < e.minSamples {
		return 0, &InsufficientSamplesError{Got: got, Min: e.minSamples}
	}
	if err := profile.ValidateName(name); err != nil {
		return 0, err
	}

	// Pre-check the name so the caller fails fast, before any extraction
	// work. The store re-checks inside the create transaction, which is
	// what actually catches a concurrent enrollment of the same name.
	active, err := e.store.ListActive(ctx)
	if err != nil {
		return 0, fmt.Errorf("speaker: list active profiles: %w", err)
	}
	for _, p := range active {
		if p.Name == name {
			return 0, fmt.Errorf("speaker: enroll %q: %w", name, profile.ErrDuplicateName)
		}
	}

	dim := e.extractor.Dimension()
	embeddings := make([][]float32, len(samples))
	for i, pcm := range samples {
		emb, err := e.extractor.Extract(ctx, pcm)
		if err != nil {
			return 0, fmt.Errorf("%w: sample %d: %w", ErrAudioProcessing, i, err)
		}
		if len(emb) != dim {
			return 0, &voiceprint.DimensionError{Want: dim, Got: len(emb)}
		}
		embeddings[i] = emb
	}

	mean := voiceprint.Mean(embeddings)
	variance := voiceprint.SampleVariance(embeddings, mean)
	if variance > e.varianceThreshold {
		return 0, &InconsistentSamplesError{Variance: variance, Threshold: e.varianceThreshold}
	}
	voiceprint.Normalize(mean)

	if err := ctx.Err(); err != nil {
		return 0, err
	}
	id, err := e.store.Create(ctx, name, voiceprint.Print(mean).Marshal(), time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("speaker: enroll %q: %w", name, err)
	}
	e.log.Info("speaker enrolled",
		"id", id, "name", name, "samples", len(samples), "variance", variance)

	if e.archive != nil {
		if err := e.archive.SaveSamples(ctx, id, samples); err != nil {
			e.log.Warn("archive enrollment samples", "id", id, "err", err)
		}
	}
	return id, nil
}

// Identify matches one audio sample against every active profile.
//
// It returns the best-matching profile when its similarity reaches the
// threshold, with recognition stats already updated, or (nil, nil) when
// nobody matches. An empty store is not an error. Ties resolve to the
// lowest profile id.
func (e *Engine) Identify(ctx context.Context, audio []float32) (*profile.Profile, error) {
	emb, err := e.extractor.Extract(ctx, audio)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAudioProcessing, err)
	}
	dim := e.extractor.Dimension()
	if len(emb) != dim {
		return nil, &voiceprint.DimensionError{Want: dim, Got: len(emb)}
	}

	active, err := e.store.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("speaker: list active profiles: %w", err)
	}
	if len(active) == 0 {
		e.log.Debug("identify: no active profiles")
		return nil, nil
	}

	// ListActive yields ascending ids, so keeping the first best score
	// gives the lowest-id tie-break.
	var best *profile.Profile
	var bestScore float32
	for _, p := range active {
		print, err := voiceprint.Unmarshal(p.VoicePrint, dim)
		if err != nil {
			return nil, fmt.Errorf("speaker: profile %d: %w", p.ID, err)
		}
		score := voiceprint.CosineSimilarity(emb, print)
		if best == nil || score > bestScore {
			best, bestScore = p, score
		}
	}
	if bestScore < e.threshold {
		e.log.Debug("identify: no match",
			"best_id", best.ID, "score", bestScore, "threshold", e.threshold)
		return nil, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := e.store.IncrementRecognition(ctx, best.ID, time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("speaker: update stats for profile %d: %w", best.ID, err)
	}
	matched, err := e.store.Get(ctx, best.ID)
	if err != nil {
		return nil, fmt.Errorf("speaker: reload profile %d: %w", best.ID, err)
	}
	e.log.Info("speaker identified",
		"id", matched.ID, "name", matched.Name, "score", bestScore)
	return matched, nil
}

// ListProfiles returns every active profile in ascending id order.
func (e *Engine) ListProfiles(ctx context.Context) ([]*profile.Profile, error) {
	return e.store.ListActive(ctx)
}

// GetProfile returns one profile by id, active or not.
func (e *Engine) GetProfile(ctx context.Context, id int64) (*profile.Profile, error) {
	return e.store.Get(ctx, id)
}

// Deactivate soft-deletes a profile: it stops matching and its name
// becomes reusable, but the row is kept for audit.
func (e *Engine) Deactivate(ctx context.Context, id int64) error {
	return e.store.Deactivate(ctx, id)
}

// Delete removes a profile permanently.
func (e *Engine) Delete(ctx context.Context, id int64) error {
	return e.store.Delete(ctx, id)
}

// Close releases the underlying store.
func (e *Engine) Close() error {
	return e.store.Close()
}
