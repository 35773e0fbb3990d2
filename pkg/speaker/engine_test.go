package speaker_test

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"testing"

	"github.com/haivivi/speakerid/pkg/profile"
	"github.com/haivivi/speakerid/pkg/speaker"
	"github.com/haivivi/speakerid/pkg/voiceprint"
)

const testDim = 4

func newTestEngine(t *testing.T, mut ...func(*speaker.Config)) (*speaker.Engine, *profile.MemoryStore, *voiceprint.Static) {
	t.Helper()
	store := profile.NewMemory()
	ext := voiceprint.NewStatic(testDim)
	cfg := speaker.Config{
		Store:     store,
		Extractor: ext,
		Logger:    slog.New(slog.DiscardHandler),
	}
	for _, m := range mut {
		m(&cfg)
	}
	eng, err := speaker.New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { eng.Close() })
	return eng, store, ext
}

// enrollPinned enrolls name from three distinct audio clips all pinned to
// the same embedding, so the stored print equals the normalized embedding.
func enrollPinned(t *testing.T, eng *speaker.Engine, ext *voiceprint.Static, name string, emb []float32, seed float32) int64 {
	t.Helper()
	samples := make([][]float32, 3)
	for i := range samples {
		clip := []float32{seed, float32(i), 0.5}
		ext.Put(clip, emb)
		samples[i] = clip
	}
	id, err := eng.Enroll(context.Background(), name, samples)
	if err != nil {
		t.Fatalf("Enroll %s: %v", name, err)
	}
	return id
}

func TestNewRequiresStoreAndExtractor(t *testing.T) {
	if _, err := speaker.New(speaker.Config{Extractor: voiceprint.Unavailable{}}); err == nil {
		t.Error("New without store succeeded")
	}
	if _, err := speaker.New(speaker.Config{Store: profile.NewMemory()}); err == nil {
		t.Error("New without extractor succeeded")
	}
}

func TestEnrollInsufficientSamples(t *testing.T) {
	eng, _, ext := newTestEngine(t)
	s1, s2 := []float32{1}, []float32{2}
	ext.Put(s1, []float32{1, 0, 0, 0})
	ext.Put(s2, []float32{1, 0, 0, 0})

	_, err := eng.Enroll(context.Background(), "Alice", [][]float32{s1, s2})
	var ise *speaker.InsufficientSamplesError
	if !errors.As(err, &ise) {
		t.Fatalf("Enroll with 2 samples = %v, want InsufficientSamplesError", err)
	}
	if ise.Got != 2 || ise.Min != speaker.DefaultMinSamples {
		t.Errorf("error = got %d min %d, want got 2 min %d", ise.Got, ise.Min, speaker.DefaultMinSamples)
	}
}

func TestEnrollRejectsInvalidName(t *testing.T) {
	eng, store, _ := newTestEngine(t)
	samples := [][]float32{{1}, {2}, {3}}

	for _, name := range []string{"", "A", " Alice"} {
		if _, err := eng.Enroll(context.Background(), name, samples); !errors.Is(err, profile.ErrInvalidName) {
			t.Errorf("Enroll(%q) = %v, want ErrInvalidName", name, err)
		}
	}
	if list, _ := store.ListActive(context.Background()); len(list) != 0 {
		t.Errorf("store has %d profiles after rejected enrollments", len(list))
	}
}

func TestEnrollDuplicateName(t *testing.T) {
	eng, _, ext := newTestEngine(t)
	enrollPinned(t, eng, ext, "Alice", []float32{1, 0, 0, 0}, 10)

	_, err := eng.Enroll(context.Background(), "Alice", [][]float32{{20}, {21}, {22}})
	if !errors.Is(err, profile.ErrDuplicateName) {
		t.Fatalf("re-enroll = %v, want ErrDuplicateName", err)
	}
}

func TestEnrollQualityGate(t *testing.T) {
	eng, store, ext := newTestEngine(t)

	// Three mutually orthogonal embeddings: RMS distance to the mean is
	// sqrt(2/3) ~ 0.816, far above the default gate.
	clips := [][]float32{{1}, {2}, {3}}
	ext.Put(clips[0], []float32{1, 0, 0, 0})
	ext.Put(clips[1], []float32{0, 1, 0, 0})
	ext.Put(clips[2], []float32{0, 0, 1, 0})

	_, err := eng.Enroll(context.Background(), "Alice", clips)
	var inc *speaker.InconsistentSamplesError
	if !errors.As(err, &inc) {
		t.Fatalf("Enroll = %v, want InconsistentSamplesError", err)
	}
	if inc.Threshold != speaker.DefaultVarianceThreshold {
		t.Errorf("Threshold = %v, want %v", inc.Threshold, speaker.DefaultVarianceThreshold)
	}
	if inc.Variance < 0.8 || inc.Variance > 0.83 {
		t.Errorf("Variance = %v, want ~0.816", inc.Variance)
	}

	// Nothing was persisted, and no id was burned.
	if list, _ := store.ListActive(context.Background()); len(list) != 0 {
		t.Fatalf("store has %d profiles after rejected enrollment", len(list))
	}
	if id := enrollPinned(t, eng, ext, "Alice", []float32{1, 0, 0, 0}, 30); id != 1 {
		t.Errorf("first successful enrollment got id %d, want 1", id)
	}
}

func TestEnrollCancelledBeforeStoreWrite(t *testing.T) {
	eng, store, ext := newTestEngine(t)
	clips := [][]float32{{1}, {2}, {3}}
	for _, c := range clips {
		ext.Put(c, []float32{1, 0, 0, 0})
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := eng.Enroll(ctx, "Alice", clips)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Enroll with cancelled ctx = %v, want context.Canceled", err)
	}
	if list, _ := store.ListActive(context.Background()); len(list) != 0 {
		t.Errorf("store has %d profiles after cancelled enrollment", len(list))
	}
}

func TestEnrollExtractorUnavailable(t *testing.T) {
	eng, _, _ := newTestEngine(t, func(cfg *speaker.Config) {
		cfg.Extractor = voiceprint.Unavailable{}
	})

	_, err := eng.Enroll(context.Background(), "Alice", [][]float32{{1}, {2}, {3}})
	if !errors.Is(err, speaker.ErrAudioProcessing) {
		t.Errorf("Enroll = %v, want ErrAudioProcessing", err)
	}
	if !errors.Is(err, voiceprint.ErrUnavailable) {
		t.Errorf("Enroll = %v, want ErrUnavailable in chain", err)
	}

	if _, err := eng.Identify(context.Background(), []float32{1}); !errors.Is(err, speaker.ErrAudioProcessing) {
		t.Errorf("Identify = %v, want ErrAudioProcessing", err)
	}
}

type shortExtractor struct{}

func (shortExtractor) Extract(ctx context.Context, pcm []float32) ([]float32, error) {
	return []float32{1, 0}, nil
}

func (shortExtractor) Dimension() int { return testDim }

func TestEnrollRejectsWrongExtractorOutput(t *testing.T) {
	eng, _, _ := newTestEngine(t, func(cfg *speaker.Config) {
		cfg.Extractor = shortExtractor{}
	})

	_, err := eng.Enroll(context.Background(), "Alice", [][]float32{{1}, {2}, {3}})
	var de *voiceprint.DimensionError
	if !errors.As(err, &de) {
		t.Fatalf("Enroll = %v, want DimensionError", err)
	}
	if de.Want != testDim || de.Got != 2 {
		t.Errorf("DimensionError = want %d got %d, expected want %d got 2", de.Want, de.Got, testDim)
	}
}

func TestIdentifyEmptyStore(t *testing.T) {
	eng, _, _ := newTestEngine(t)

	p, err := eng.Identify(context.Background(), []float32{1, 2, 3})
	if err != nil {
		t.Fatalf("Identify on empty store: %v", err)
	}
	if p != nil {
		t.Errorf("Identify on empty store = %+v, want nil", p)
	}
}

func TestIdentifyThresholdBoundary(t *testing.T) {
	store := profile.NewMemory()
	ext := voiceprint.NewStatic(testDim)

	stored := []float32{1, 0, 0, 0}
	query := []float32{0.7, 0.71414284, 0, 0}
	sim := voiceprint.CosineSimilarity(stored, query)

	queryClip := []float32{99}
	ext.Put(queryClip, query)

	// An engine whose threshold is exactly the query's similarity must
	// match: the comparison is inclusive.
	eng, err := speaker.New(speaker.Config{
		Store: store, Extractor: ext, Threshold: sim,
		Logger: slog.New(slog.DiscardHandler),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { eng.Close() })
	enrollPinned(t, eng, ext, "Alice", stored, 10)

	p, err := eng.Identify(context.Background(), queryClip)
	if err != nil {
		t.Fatalf("Identify: %v", err)
	}
	if p == nil || p.Name != "Alice" {
		t.Fatalf("Identify at exact threshold = %+v, want Alice", p)
	}

	// One ulp above the score must not match.
	strict, err := speaker.New(speaker.Config{
		Store: store, Extractor: ext, Threshold: math.Nextafter32(sim, 2),
		Logger: slog.New(slog.DiscardHandler),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	p, err = strict.Identify(context.Background(), queryClip)
	if err != nil {
		t.Fatalf("Identify: %v", err)
	}
	if p != nil {
		t.Errorf("Identify above threshold = %+v, want nil", p)
	}
}

func TestIdentifyUpdatesStats(t *testing.T) {
	eng, _, ext := newTestEngine(t)
	emb := []float32{1, 0, 0, 0}
	id := enrollPinned(t, eng, ext, "Alice", emb, 10)

	clip := []float32{50}
	ext.Put(clip, emb)

	before, err := eng.GetProfile(context.Background(), id)
	if err != nil {
		t.Fatalf("GetProfile: %v", err)
	}
	if before.RecognitionCount != 0 || before.LastRecognized != nil {
		t.Fatalf("fresh profile stats: count=%d last=%v", before.RecognitionCount, before.LastRecognized)
	}

	p, err := eng.Identify(context.Background(), clip)
	if err != nil {
		t.Fatalf("Identify: %v", err)
	}
	if p == nil || p.ID != id {
		t.Fatalf("Identify = %+v, want profile %d", p, id)
	}
	if p.RecognitionCount != 1 || p.LastRecognized == nil {
		t.Errorf("returned stats: count=%d last=%v, want count 1 and last set", p.RecognitionCount, p.LastRecognized)
	}

	after, err := eng.GetProfile(context.Background(), id)
	if err != nil {
		t.Fatalf("GetProfile: %v", err)
	}
	if after.RecognitionCount != 1 {
		t.Errorf("stored count = %d, want 1", after.RecognitionCount)
	}

	if _, err := eng.Identify(context.Background(), clip); err != nil {
		t.Fatalf("second Identify: %v", err)
	}
	after, _ = eng.GetProfile(context.Background(), id)
	if after.RecognitionCount != 2 {
		t.Errorf("count after second hit = %d, want 2", after.RecognitionCount)
	}
}

func TestIdentifyTieBreaksToLowestID(t *testing.T) {
	eng, _, ext := newTestEngine(t)
	emb := []float32{0, 1, 0, 0}
	idAlice := enrollPinned(t, eng, ext, "Alice", emb, 10)
	idBob := enrollPinned(t, eng, ext, "Bob", emb, 20)
	if idBob <= idAlice {
		t.Fatalf("ids not ascending: alice=%d bob=%d", idAlice, idBob)
	}

	clip := []float32{50}
	ext.Put(clip, emb)
	p, err := eng.Identify(context.Background(), clip)
	if err != nil {
		t.Fatalf("Identify: %v", err)
	}
	if p == nil || p.ID != idAlice {
		t.Fatalf("tied Identify = %+v, want lowest id %d", p, idAlice)
	}

	bob, err := eng.GetProfile(context.Background(), idBob)
	if err != nil {
		t.Fatalf("GetProfile: %v", err)
	}
	if bob.RecognitionCount != 0 {
		t.Errorf("losing profile count = %d, want 0", bob.RecognitionCount)
	}
}

func TestEndToEnd(t *testing.T) {
	eng, _, ext := newTestEngine(t)

	// Three near-identical sample embeddings: well inside the gate.
	clips := [][]float32{{1}, {2}, {3}}
	ext.Put(clips[0], []float32{0.99, 0.01, 0, 0})
	ext.Put(clips[1], []float32{0.98, 0.02, 0, 0})
	ext.Put(clips[2], []float32{1, 0, 0, 0})

	id, err := eng.Enroll(context.Background(), "Bob", clips)
	if err != nil {
		t.Fatalf("Enroll: %v", err)
	}

	fourth := []float32{4}
	ext.Put(fourth, []float32{0.97, 0.03, 0, 0})
	p, err := eng.Identify(context.Background(), fourth)
	if err != nil {
		t.Fatalf("Identify: %v", err)
	}
	if p == nil || p.Name != "Bob" || p.ID != id {
		t.Fatalf("Identify = %+v, want Bob (%d)", p, id)
	}

	stranger := []float32{5}
	ext.Put(stranger, []float32{0, 0, 1, 0})
	p, err = eng.Identify(context.Background(), stranger)
	if err != nil {
		t.Fatalf("Identify stranger: %v", err)
	}
	if p != nil {
		t.Errorf("orthogonal Identify = %+v, want nil", p)
	}
}

func TestDeactivatedProfileNeverMatches(t *testing.T) {
	eng, _, ext := newTestEngine(t)
	emb := []float32{1, 0, 0, 0}
	id := enrollPinned(t, eng, ext, "Alice", emb, 10)

	clip := []float32{50}
	ext.Put(clip, emb)
	if p, err := eng.Identify(context.Background(), clip); err != nil || p == nil {
		t.Fatalf("Identify before deactivate = %+v, %v", p, err)
	}

	if err := eng.Deactivate(context.Background(), id); err != nil {
		t.Fatalf("Deactivate: %v", err)
	}
	p, err := eng.Identify(context.Background(), clip)
	if err != nil {
		t.Fatalf("Identify after deactivate: %v", err)
	}
	if p != nil {
		t.Fatalf("deactivated profile matched: %+v", p)
	}

	// The name is free again; the audit row is still fetchable.
	id2 := enrollPinned(t, eng, ext, "Alice", emb, 20)
	if id2 == id {
		t.Errorf("re-enrollment reused id %d", id)
	}
	old, err := eng.GetProfile(context.Background(), id)
	if err != nil {
		t.Fatalf("GetProfile deactivated: %v", err)
	}
	if old.IsActive {
		t.Error("deactivated profile reports active")
	}

	if err := eng.Delete(context.Background(), id2); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := eng.GetProfile(context.Background(), id2); !errors.Is(err, profile.ErrNotFound) {
		t.Errorf("GetProfile after delete = %v, want ErrNotFound", err)
	}
}

type archiveRecorder struct {
	id      int64
	samples [][]float32
	err     error
}

func (a *archiveRecorder) SaveSamples(ctx context.Context, profileID int64, samples [][]float32) error {
	a.id = profileID
	a.samples = samples
	return a.err
}

func TestEnrollArchivesSamples(t *testing.T) {
	rec := &archiveRecorder{}
	eng, _, ext := newTestEngine(t, func(cfg *speaker.Config) {
		cfg.Archive = rec
	})
	id := enrollPinned(t, eng, ext, "Alice", []float32{1, 0, 0, 0}, 10)

	if rec.id != id {
		t.Errorf("archived profile id = %d, want %d", rec.id, id)
	}
	if len(rec.samples) != 3 {
		t.Errorf("archived %d samples, want 3", len(rec.samples))
	}
}

func TestEnrollSurvivesArchiveFailure(t *testing.T) {
	rec := &archiveRecorder{err: errors.New("bucket gone")}
	eng, _, ext := newTestEngine(t, func(cfg *speaker.Config) {
		cfg.Archive = rec
	})

	id := enrollPinned(t, eng, ext, "Alice", []float32{1, 0, 0, 0}, 10)
	p, err := eng.GetProfile(context.Background(), id)
	if err != nil {
		t.Fatalf("GetProfile: %v", err)
	}
	if p.Name != "Alice" {
		t.Errorf("profile = %q, want Alice", p.Name)
	}
}
