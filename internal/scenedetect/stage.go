package scenedetect

import (
	"context"
	"fmt"

	"github.com/five82/reencode/internal/project"
	"github.com/five82/reencode/internal/stage"
)

// ID is the stage identifier used in progress events and error messages.
const ID = "scene_detect"

// Stage implements stage.Stage for scene boundary detection.
type Stage struct{}

func New() *Stage { return &Stage{} }

func (s *Stage) ID() string { return ID }

func (s *Stage) Validate(p *project.Project) ([]stage.Warning, error) {
	if p.Input.Clip.FrameCount == 0 {
		return nil, fmt.Errorf("scene_detect: precondition: input clip has no frames")
	}
	if p.Config.SceneDetect.Algorithm == MethodAVSceneChange && !IsAVSceneChangeAvailable() {
		return nil, fmt.Errorf("scene_detect: precondition: %s not found in PATH", avSceneChangeBinary)
	}
	var warnings []stage.Warning
	if err := p.Scenes.Validate(p.Input.Clip.FrameCount); err != nil {
		warnings = append(warnings, stage.Warning{Stage: ID, Message: "prior scene list is incomplete or inconsistent: " + err.Error()})
	}
	return warnings, nil
}

func (s *Stage) Initialize(ctx context.Context, p *project.Project, sink chan<- stage.Event) ([]stage.Warning, error) {
	return nil, nil
}

func (s *Stage) Execute(ctx context.Context, p *project.Project, sink chan<- stage.Event, cancel *stage.CancelFlag) ([]stage.Warning, error) {
	frameCount := p.Input.Clip.FrameCount

	if p.Scenes.Covers(frameCount) {
		emit(sink, stage.CompletedStatus(ID))
		return nil, nil
	}

	cfg := p.Config.SceneDetect

	if cfg.Algorithm == MethodNone {
		scenes := DetectNone(p.Input.Clip, cfg.MaxLen)
		p.Scenes = scenes
		if err := p.Save(); err != nil {
			return nil, fmt.Errorf("scene_detect: indexing: %w", err)
		}
		emit(sink, stage.CompletedStatus(ID))
		return nil, nil
	}

	resumeFrom := p.Scenes.LastEnd()

	onScene := func(sc project.Scene) error {
		if cancel.Cancelled() {
			return fmt.Errorf("scene_detect: cancelled")
		}
		return p.AppendScene(sc)
	}

	progress := func(analyzed, keyframes uint64) {
		emit(sink, stage.ProcessingStatus(ID, stage.Completion{
			Kind:  stage.FramesCompletion,
			Done:  analyzed,
			Total: frameCount,
		}))
	}

	if err := DetectAVSceneChange(ctx, p.Input.Path, resumeFrom, frameCount, cfg.MinLen, cfg.MaxLen, onScene, progress); err != nil {
		emit(sink, stage.FailedStatus(ID, err))
		return nil, fmt.Errorf("scene_detect: execute: %w", err)
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
