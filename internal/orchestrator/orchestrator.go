// Package orchestrator runs the pipeline's stages in order over a shared
// Project, applying the uniform validate/initialize/execute lifecycle to
// each and forwarding their progress events to a caller-supplied sink.
// Any stage failure aborts the whole run; there is no partial success.
package orchestrator

import (
	"context"
	"fmt"

	"github.com/five82/reencode/internal/project"
	"github.com/five82/reencode/internal/stage"
	"golang.org/x/sync/errgroup"
)

// Orchestrator sequences a fixed list of stages over a Project.
type Orchestrator struct {
	stages []stage.Stage
	cancel *stage.CancelFlag
}

// New constructs an Orchestrator running stages in the given order.
func New(stages ...stage.Stage) *Orchestrator {
	return &Orchestrator{stages: stages, cancel: &stage.CancelFlag{}}
}

// Cancel requests cooperative cancellation. In-flight stages observe it at
// their own polling points; Run returns once the current stage unwinds.
func (o *Orchestrator) Cancel() {
	o.cancel.Cancel()
}

// Run executes every stage against p in order, forwarding progress events
// to sink (which may be nil). It returns the accumulated warnings from
// every stage and the first fatal error encountered, if any.
func (o *Orchestrator) Run(ctx context.Context, p *project.Project, sink chan<- stage.Event) ([]stage.Warning, error) {
	var allWarnings []stage.Warning

	for _, st := range o.stages {
		if o.cancel.Cancelled() {
			return allWarnings, nil
		}

		warnings, err := st.Validate(p)
		allWarnings = append(allWarnings, warnings...)
		if err != nil {
			return allWarnings, fmt.Errorf("%s: %w", st.ID(), err)
		}

		initWarnings, err := runForwarding(ctx, sink, stage.Initialization, func(forward chan<- stage.Event) ([]stage.Warning, error) {
			return st.Initialize(ctx, p, forward)
		})
		allWarnings = append(allWarnings, initWarnings...)
		if err != nil {
			return allWarnings, fmt.Errorf("%s: %w", st.ID(), err)
		}

		if o.cancel.Cancelled() {
			return allWarnings, nil
		}

		execWarnings, err := runForwarding(ctx, sink, stage.ProcessingPhase, func(forward chan<- stage.Event) ([]stage.Warning, error) {
			return st.Execute(ctx, p, forward, o.cancel)
		})
		allWarnings = append(allWarnings, execWarnings...)
		if err != nil {
			return allWarnings, fmt.Errorf("%s: %w", st.ID(), err)
		}
	}

	return allWarnings, nil
}

// runForwarding runs fn with a fresh per-call event channel (buffered to 16
// events), forwarding every event it emits onto sink concurrently with its
// Kind set to kind, using an errgroup to join the forwarding goroutine with
// fn's own completion. Once the buffer is full, the stage blocks on its next
// emit until the forwarder has handed earlier events to sink.
func runForwarding(ctx context.Context, sink chan<- stage.Event, kind stage.StageType, fn func(chan<- stage.Event) ([]stage.Warning, error)) ([]stage.Warning, error) {
	forward := make(chan stage.Event, 16)
	g, _ := errgroup.WithContext(ctx)

	g.Go(func() error {
		for ev := range forward {
			if sink != nil {
				ev.Kind = kind
				sink <- ev
			}
		}
		return nil
	})

	var warnings []stage.Warning
	var fnErr error
	func() {
		defer close(forward)
		warnings, fnErr = fn(forward)
	}()

	if err := g.Wait(); err != nil {
		return warnings, err
	}
	return warnings, fnErr
}
