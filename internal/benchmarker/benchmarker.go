// Package benchmarker searches for the worker count W that maximizes
// encode throughput without diminishing returns, by running the Parallel
// Encoder over a handful of probe scenes at increasing W until the
// marginal FPS gain drops below a configured threshold.
package benchmarker

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/five82/reencode/internal/parallelencoder"
	"github.com/five82/reencode/internal/project"
	"github.com/five82/reencode/internal/stage"
)

// ID is the stage identifier.
const ID = "benchmark"

const (
	minProbeScenes       = 8
	preferredProbeFrames = 24
)

// ThresholdNotMetError is a benign signal (not a real failure) emitted when
// bumping W to W+1 would not clear the configured marginal-gain threshold.
// The Benchmarker stage reports it via a Failed{W+1, ThresholdNotMet}
// progress event rather than returning it as a stage error.
type ThresholdNotMetError struct {
	Workers int
}

func (e *ThresholdNotMetError) Error() string {
	return fmt.Sprintf("worker count %d does not clear the marginal FPS gain threshold", e.Workers)
}

// SelectProbeScenes picks up to minProbeScenes scenes to measure FPS
// against, preferring scenes with at least preferredProbeFrames frames.
// If the project has fewer usable scenes than minProbeScenes, it
// synthesizes additional probe scenes by subdividing the longest existing
// scene, since the spec requires a minimum sample size regardless of how
// few real scenes exist.
func SelectProbeScenes(scenes project.Scenes) project.Scenes {
	var preferred, rest project.Scenes
	for _, sc := range scenes {
		if sc.Len() >= preferredProbeFrames {
			preferred = append(preferred, sc)
		} else {
			rest = append(rest, sc)
		}
	}

	picked := append(project.Scenes{}, preferred...)
	for _, sc := range rest {
		if len(picked) >= minProbeScenes {
			break
		}
		picked = append(picked, sc)
	}

	for len(picked) < minProbeScenes && len(scenes) > 0 {
		longest := longestScene(scenes)
		half := longest.StartFrame + longest.Len()/2
		if half <= longest.StartFrame || half >= longest.EndFrame {
			break
		}
		picked = append(picked,
			project.Scene{StartFrame: longest.StartFrame, EndFrame: half},
			project.Scene{StartFrame: half, EndFrame: longest.EndFrame},
		)
	}

	if len(picked) > minProbeScenes {
		picked = picked[:minProbeScenes]
	}
	return picked
}

func longestScene(scenes project.Scenes) project.Scene {
	longest := scenes[0]
	for _, sc := range scenes[1:] {
		if sc.Len() > longest.Len() {
			longest = sc
		}
	}
	return longest
}

// measureFPS runs the parallel encoder over probeScenes at the given
// worker count and returns frames encoded per second.
func measureFPS(ctx context.Context, p *project.Project, dec parallelencoder.Decoder, probeScenes project.Scenes, scratchDir string, workers int) (float64, error) {
	runID, err := uuid.NewRandom()
	if err != nil {
		return 0, fmt.Errorf("benchmark: generate scratch id: %w", err)
	}
	probeDir := filepath.Join(scratchDir, "bench-"+runID.String())
	if err := os.MkdirAll(probeDir, 0o755); err != nil {
		return 0, fmt.Errorf("benchmark: create scratch dir: %w", err)
	}
	defer os.RemoveAll(probeDir)

	var totalFrames uint64
	tasks := make([]project.ParallelEncoderTask, 0, len(probeScenes))
	for i, sc := range probeScenes {
		totalFrames += sc.Len()
		tasks = append(tasks, project.ParallelEncoderTask{
			Index:              i,
			OriginalSceneIndex: i,
			StartFrame:         sc.StartFrame,
			EndFrame:           sc.EndFrame,
			Encoder:            p.Encoder,
			OutputPath:         parallelencoder.OutputPathFor(probeDir, i, p.Encoder.Family),
		})
	}

	probeProject := *p
	probeProject.Scenes = probeScenes
	probeProject.SetSaveFunc(nil)

	cancel := &stage.CancelFlag{}
	start := time.Now()
	if _, err := parallelencoder.Run(ctx, &probeProject, dec, tasks, workers, nil, cancel); err != nil {
		return 0, err
	}
	elapsed := time.Since(start).Seconds()
	if elapsed <= 0 {
		elapsed = 0.001
	}
	return float64(totalFrames) / elapsed, nil
}

// Search runs the W=1,2,3... loop, stopping when the marginal FPS gain
// from W to W+1 is below thresholdPercent, and returns the chosen W (the
// last one that cleared the threshold, or 1 if even W=1->2 did not).
func Search(ctx context.Context, p *project.Project, dec parallelencoder.Decoder, probeScenes project.Scenes, scratchDir string, thresholdPercent float64, sink chan<- stage.Event, maxWorkers int) (int, error) {
	if len(probeScenes) == 0 {
		return 1, nil
	}

	chosen := 1
	prevFPS, err := measureFPS(ctx, p, dec, probeScenes, scratchDir, chosen)
	if err != nil {
		return 0, fmt.Errorf("benchmark: execute: %w", err)
	}
	emit(sink, stage.ProcessingStatus(ID, stage.Completion{Kind: stage.CustomCompletion, Name: "fps", Done: uint64(prevFPS), Total: 0}))

	for w := 2; maxWorkers <= 0 || w <= maxWorkers; w++ {
		fps, err := measureFPS(ctx, p, dec, probeScenes, scratchDir, w)
		if err != nil {
			return 0, fmt.Errorf("benchmark: execute: %w", err)
		}
		gain := (fps - prevFPS) / prevFPS * 100
		if gain < thresholdPercent {
			emit(sink, stage.FailedStatus(ID, &ThresholdNotMetError{Workers: w}))
			break
		}
		chosen = w
		prevFPS = fps
		emit(sink, stage.ProcessingStatus(ID, stage.Completion{Kind: stage.CustomCompletion, Name: "fps", Done: uint64(fps), Total: 0}))
	}

	emit(sink, stage.CompletedStatus(ID))
	return chosen, nil
}

func emit(sink chan<- stage.Event, status stage.Status) {
	if sink == nil {
		return
	}
	sink <- stage.Whole(ID, status)
}
