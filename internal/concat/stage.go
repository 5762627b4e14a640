package concat

import (
	"context"
	"fmt"

	"github.com/five82/reencode/internal/parallelencoder"
	"github.com/five82/reencode/internal/project"
	"github.com/five82/reencode/internal/stage"
)

// Stage implements stage.Stage for the final scene-concatenation step.
type Stage struct {
	scenePaths []string
}

func New() *Stage { return &Stage{} }

func (s *Stage) ID() string { return ID }

func (s *Stage) Validate(p *project.Project) ([]stage.Warning, error) {
	if !p.Scenes.Covers(p.Input.Clip.FrameCount) {
		return nil, fmt.Errorf("concat: precondition: scenes do not cover the full clip yet")
	}
	switch p.Config.Concat.Method {
	case MethodMKVMerge, MethodFFmpeg:
	default:
		return nil, fmt.Errorf("concat: precondition: unknown concat method %q", p.Config.Concat.Method)
	}
	return nil, nil
}

func (s *Stage) Initialize(ctx context.Context, p *project.Project, sink chan<- stage.Event) ([]stage.Warning, error) {
	scenesDir := p.Config.ParallelEncode.ScenesDir
	var missing []stage.Warning
	for i := range p.Scenes {
		path := parallelencoder.OutputPathFor(scenesDir, i, p.EncoderFor(i).Family)
		if !parallelencoder.SceneArtifactExists(path) {
			missing = append(missing, stage.Warning{Stage: ID, Message: fmt.Sprintf("scene %d artifact missing at %s", i, path)})
			continue
		}
		s.scenePaths = append(s.scenePaths, path)
	}
	if len(missing) > 0 {
		return missing, fmt.Errorf("concat: indexing: %d scene artifact(s) missing", len(missing))
	}
	return nil, nil
}

func (s *Stage) Execute(ctx context.Context, p *project.Project, sink chan<- stage.Event, cancel *stage.CancelFlag) ([]stage.Warning, error) {
	emit(sink, stage.ProcessingStatus(ID, stage.Completion{Kind: stage.CustomCompletion, Name: "scenes", Done: 0, Total: uint64(len(s.scenePaths))}))

	var err error
	switch p.Config.Concat.Method {
	case MethodMKVMerge:
		err = MergeMKVMerge(s.scenePaths, p.Output.Path, p.Config.Concat.SourceFile, p.Input.Clip.FrameRate, p.Config.Concat.MaxChunkFiles)
	case MethodFFmpeg:
		err = MergeFFmpeg(s.scenePaths, p.Output.Path, p.Input.Clip.FrameRate)
	}
	if err != nil {
		emit(sink, stage.FailedStatus(ID, err))
		return nil, fmt.Errorf("concat: execute: %w", err)
	}

	emit(sink, stage.CompletedStatus(ID))
	return nil, nil
}

func emit(sink chan<- stage.Event, status stage.Status) {
	if sink == nil {
		return
	}
	sink <- stage.Whole(ID, status)
}
