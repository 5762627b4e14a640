package parallelencoder

import (
	"context"
	"fmt"
	"os"

	"github.com/five82/reencode/internal/framesource"
	"github.com/five82/reencode/internal/project"
	"github.com/five82/reencode/internal/stage"
)

// Stage implements stage.Stage for parallel scene encoding.
type Stage struct {
	tasks []project.ParallelEncoderTask
	dec   Decoder
}

func New() *Stage { return &Stage{} }

func (s *Stage) ID() string { return ID }

func (s *Stage) Validate(p *project.Project) ([]stage.Warning, error) {
	if len(p.Scenes) == 0 {
		return nil, fmt.Errorf("parallel_encode: precondition: no scenes detected")
	}
	if err := p.Scenes.Validate(p.Input.Clip.FrameCount); err != nil {
		return nil, fmt.Errorf("parallel_encode: precondition: %w", err)
	}
	if p.Config.ParallelEncode.ScenesDir == "" {
		return nil, fmt.Errorf("parallel_encode: precondition: scenes_dir not configured")
	}
	return nil, nil
}

func (s *Stage) Initialize(ctx context.Context, p *project.Project, sink chan<- stage.Event) ([]stage.Warning, error) {
	dec, err := framesource.NewFFmpegSource(p.Input.Path)
	if err != nil {
		return nil, fmt.Errorf("parallel_encode: indexing: %w", err)
	}
	s.dec = dec

	scenesDir := p.Config.ParallelEncode.ScenesDir
	if err := os.MkdirAll(scenesDir, 0o755); err != nil {
		return nil, fmt.Errorf("parallel_encode: create scenes dir: %w", err)
	}
	s.tasks = project.BuildTasks(p, func(i int) string {
		return OutputPathFor(scenesDir, i, p.EncoderFor(i).Family)
	}, SceneArtifactExists)

	return nil, nil
}

func (s *Stage) Execute(ctx context.Context, p *project.Project, sink chan<- stage.Event, cancel *stage.CancelFlag) ([]stage.Warning, error) {
	workers := p.Config.ParallelEncode.Workers
	if workers < 1 {
		workers = 1
	}
	return Run(ctx, p, s.dec, s.tasks, workers, sink, cancel)
}
