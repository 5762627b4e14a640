package benchmarker

import (
	"context"
	"fmt"

	"github.com/five82/reencode/internal/framesource"
	"github.com/five82/reencode/internal/parallelencoder"
	"github.com/five82/reencode/internal/project"
	"github.com/five82/reencode/internal/stage"
)

// Stage implements stage.Stage for worker-count benchmarking. It runs
// before the Parallel Encoder stage and writes its result into both
// Project.Data.Benchmark.ChosenWorkers and
// Project.Config.ParallelEncode.Workers.
type Stage struct {
	dec    parallelencoder.Decoder
	probes project.Scenes
}

func New() *Stage { return &Stage{} }

func (s *Stage) ID() string { return ID }

func (s *Stage) Validate(p *project.Project) ([]stage.Warning, error) {
	if p.Config.Benchmark.ScratchDir == "" {
		return nil, fmt.Errorf("benchmark: precondition: scratch_dir not configured")
	}
	return nil, nil
}

func (s *Stage) Initialize(ctx context.Context, p *project.Project, sink chan<- stage.Event) ([]stage.Warning, error) {
	if p.Data.Benchmark.ChosenWorkers > 0 {
		return nil, nil // already benchmarked, nothing to probe
	}
	dec, err := framesource.NewFFmpegSource(p.Input.Path)
	if err != nil {
		return nil, fmt.Errorf("benchmark: indexing: %w", err)
	}
	s.dec = dec
	s.probes = SelectProbeScenes(p.Scenes)
	return nil, nil
}

func (s *Stage) Execute(ctx context.Context, p *project.Project, sink chan<- stage.Event, cancel *stage.CancelFlag) ([]stage.Warning, error) {
	if p.Data.Benchmark.ChosenWorkers > 0 {
		emit(sink, stage.CompletedStatus(ID))
		return nil, nil
	}

	maxWorkers := p.Config.ParallelEncode.Workers
	chosen, err := Search(ctx, p, s.dec, s.probes, p.Config.Benchmark.ScratchDir, p.Config.Benchmark.ThresholdPercent, sink, maxWorkers)
	if err != nil {
		return nil, fmt.Errorf("benchmark: %w", err)
	}

	p.Data.Benchmark.ChosenWorkers = chosen
	p.Config.ParallelEncode.Workers = chosen
	if err := p.Save(); err != nil {
		return nil, fmt.Errorf("benchmark: checkpoint: %w", err)
	}
	return nil, nil
}
