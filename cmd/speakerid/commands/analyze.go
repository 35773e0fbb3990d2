package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/haivivi/speakerid/pkg/voiceprint"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <dir>",
	Short: "Pairwise similarity report for a directory of samples",
	Long: `Compare every WAV sample in a directory against every other.

Files are named <speaker>_<take>.wav; the speaker is the field before
the last underscore, so alice_001.wav and alice_002.wav group
together. Files without an underscore are skipped.

The report shows the full similarity matrix plus same-speaker and
cross-speaker statistics. The match threshold has to cut between those
two ranges, so this is the report to look at when tuning it.

Examples:
  speakerid analyze ./samples
  speakerid analyze --remote wss://embed.example.com/v1 ./samples`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	addExtractorFlags(analyzeCmd)
}

// analyzeSample is one embedded file in the report.
type analyzeSample struct {
	path    string
	speaker string
	emb     []float32
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	dir := args[0]
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	var paths []string
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".wav") {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	if len(paths) == 0 {
		return fmt.Errorf("no WAV files found in %s", dir)
	}

	ctx, err := getContext()
	if err != nil {
		return err
	}
	ext := newExtractor(ctx)

	var samples []analyzeSample
	for _, path := range paths {
		speaker := parseSpeaker(filepath.Base(path))
		if speaker == "" {
			fmt.Fprintf(os.Stderr, "  skip %s: no speaker in filename\n", filepath.Base(path))
			continue
		}
		pcm, _, err := loadWAV(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "  skip %s: %v\n", filepath.Base(path), err)
			continue
		}
		emb, err := ext.Extract(cmd.Context(), pcm)
		if err != nil {
			return fmt.Errorf("extract %s: %w", filepath.Base(path), err)
		}
		samples = append(samples, analyzeSample{
			path:    filepath.Base(path),
			speaker: speaker,
			emb:     emb,
		})
		fmt.Printf("  [%s] %s\n", speaker, filepath.Base(path))
	}
	if len(samples) < 2 {
		return fmt.Errorf("need at least 2 usable samples, have %d", len(samples))
	}

	sort.Slice(samples, func(i, j int) bool {
		if samples[i].speaker != samples[j].speaker {
			return samples[i].speaker < samples[j].speaker
		}
		return samples[i].path < samples[j].path
	})

	printMatrix(samples)
	printSpeakerStats(samples)
	return nil
}

// parseSpeaker extracts the speaker from a filename like
// "alice_001.wav": the field before the last underscore.
func parseSpeaker(name string) string {
	name = strings.TrimSuffix(name, filepath.Ext(name))
	parts := strings.Split(name, "_")
	if len(parts) < 2 {
		return ""
	}
	return parts[len(parts)-2]
}

func printMatrix(samples []analyzeSample) {
	fmt.Printf("\n=== Similarity Matrix (%d samples) ===\n\n", len(samples))

	fmt.Printf("%20s", "")
	for i := range samples {
		fmt.Printf(" %4d", i)
	}
	fmt.Println()

	for i, si := range samples {
		label := fmt.Sprintf("[%d] %s", i, si.speaker)
		if len(label) > 20 {
			label = label[:20]
		}
		fmt.Printf("%20s", label)
		for j, sj := range samples {
			if i == j {
				fmt.Printf(" %4s", "----")
				continue
			}
			fmt.Printf(" %4.2f", voiceprint.CosineSimilarity(si.emb, sj.emb))
		}
		fmt.Println()
	}
}

func printSpeakerStats(samples []analyzeSample) {
	speakers := map[string][]int{}
	for i, s := range samples {
		speakers[s.speaker] = append(speakers[s.speaker], i)
	}
	names := make([]string, 0, len(speakers))
	for sp := range speakers {
		names = append(names, sp)
	}
	sort.Strings(names)

	fmt.Println()
	var intra []float64
	for _, sp := range names {
		idxs := speakers[sp]
		for i := 0; i < len(idxs); i++ {
			for j := i + 1; j < len(idxs); j++ {
				sim := float64(voiceprint.CosineSimilarity(samples[idxs[i]].emb, samples[idxs[j]].emb))
				intra = append(intra, sim)
				fmt.Printf("  same [%s]: %.4f  (%s vs %s)\n", sp, sim,
					samples[idxs[i]].path, samples[idxs[j]].path)
			}
		}
	}

	var inter []float64
	for i := 0; i < len(names); i++ {
		for j := i + 1; j < len(names); j++ {
			for _, ii := range speakers[names[i]] {
				for _, jj := range speakers[names[j]] {
					inter = append(inter, float64(voiceprint.CosineSimilarity(samples[ii].emb, samples[jj].emb)))
				}
			}
		}
	}

	fmt.Println()
	if len(intra) > 0 {
		avg, lo, hi := simStats(intra)
		fmt.Printf("SAME speaker:   avg=%.4f  min=%.4f  max=%.4f  (n=%d)\n", avg, lo, hi, len(intra))
	}
	if len(inter) > 0 {
		avg, lo, hi := simStats(inter)
		fmt.Printf("CROSS speaker:  avg=%.4f  min=%.4f  max=%.4f  (n=%d)\n", avg, lo, hi, len(inter))
	}
	if len(intra) > 0 && len(inter) > 0 {
		intraAvg, intraMin, _ := simStats(intra)
		interAvg, _, interMax := simStats(inter)
		fmt.Printf("GAP (same-cross): %.4f\n", intraAvg-interAvg)
		if intraMin > interMax {
			fmt.Printf("Any threshold in (%.2f, %.2f] separates every pair here.\n", interMax, intraMin)
		} else {
			fmt.Println("Same-speaker and cross-speaker ranges overlap; no threshold separates every pair.")
		}
	}
}

func simStats(vals []float64) (avg, min, max float64) {
	if len(vals) == 0 {
		return
	}
	min, max = vals[0], vals[0]
	sum := 0.0
	for _, v := range vals {
		sum += v
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	avg = sum / float64(len(vals))
	return
}
