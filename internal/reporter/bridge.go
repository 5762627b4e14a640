package reporter

import (
	"fmt"

	"github.com/five82/reencode/internal/stage"
)

// StageEventAdapter bridges the pipeline's tagged stage.Event stream onto a
// Reporter's higher-level StageProgress/Warning/Error calls, so the
// orchestrator's stages stay ignorant of how progress is ultimately
// displayed.
type StageEventAdapter struct {
	reporter Reporter
}

// NewStageEventAdapter wraps a Reporter to consume stage.Events.
func NewStageEventAdapter(r Reporter) *StageEventAdapter {
	return &StageEventAdapter{reporter: r}
}

// Handle translates a single stage.Event into the matching Reporter call.
func (a *StageEventAdapter) Handle(ev stage.Event) {
	switch ev.EventKind {
	case stage.SubprocessEvent:
		a.handleStatus(ev.Parent.ID, ev.Child)
	default:
		a.handleStatus(ev.StageID, ev.Status)
	}
}

// Run drains events from ch until it closes, forwarding each to Handle.
// Intended to run in its own goroutine reading an orchestrator's sink.
func (a *StageEventAdapter) Run(ch <-chan stage.Event) {
	for ev := range ch {
		a.Handle(ev)
	}
}

func (a *StageEventAdapter) handleStatus(stageID string, status stage.Status) {
	switch status.Kind {
	case stage.Completed:
		a.reporter.StageProgress(StageProgress{Stage: stageID, Percent: 100, Message: "done"})
	case stage.Failed:
		a.reporter.Error(ReporterError{Title: stageID, Message: status.Err.Error()})
	default:
		a.reporter.StageProgress(StageProgress{
			Stage:   stageID,
			Percent: completionPercent(status.Completion),
			Message: completionMessage(status.Completion),
		})
	}
}

func completionPercent(c stage.Completion) float32 {
	switch c.Kind {
	case stage.FramesCompletion, stage.PassFramesCompletion:
		if c.Total == 0 {
			return 0
		}
		return float32(c.Done) / float32(c.Total) * 100
	case stage.PassesCompletion:
		if c.PassTotal == 0 {
			return 0
		}
		return float32(c.PassCur) / float32(c.PassTotal) * 100
	default:
		return 0
	}
}

func completionMessage(c stage.Completion) string {
	switch c.Kind {
	case stage.FramesCompletion:
		return fmt.Sprintf("%d/%d frames", c.Done, c.Total)
	case stage.PassFramesCompletion:
		return fmt.Sprintf("pass %d/%d: %d/%d frames", c.PassCur, c.PassTotal, c.Done, c.Total)
	case stage.PassesCompletion:
		return fmt.Sprintf("pass %d/%d", c.PassCur, c.PassTotal)
	case stage.CustomCompletion:
		if c.Name != "" {
			return fmt.Sprintf("%s: %d", c.Name, c.Done)
		}
		return fmt.Sprintf("%d", c.Done)
	default:
		return ""
	}
}
