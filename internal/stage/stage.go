// Package stage defines the uniform validate/initialize/execute lifecycle
// shared by every concrete pipeline stage (scene detection, parallel
// encoding, benchmarking, concatenation), plus the progress and
// cancellation plumbing the orchestrator threads between them.
package stage

import (
	"context"
	"sync/atomic"

	"github.com/five82/reencode/internal/project"
)

// Warning is a non-fatal anomaly surfaced to the operator without aborting
// the run (e.g. a missing scene artifact noticed during initialize).
type Warning struct {
	Stage   string
	Message string
}

// CancelFlag is the single shared cancellation signal passed into every
// Execute call. Stages poll it at loop iterations and subprocess-spawn
// boundaries; flipping it to true is the only supported cancel.
type CancelFlag struct {
	cancelled atomic.Bool
}

// Cancel flips the flag. Safe to call from any goroutine, any number of
// times.
func (c *CancelFlag) Cancel() {
	c.cancelled.Store(true)
}

// Cancelled reports the current flag value.
func (c *CancelFlag) Cancelled() bool {
	return c.cancelled.Load()
}

// Stage is the contract every concrete pipeline stage implements. Each
// method receives the whole Project plus a progress sink; Execute
// additionally receives the shared cancellation flag.
//
// validate verifies external preconditions without doing significant work
// and must not mutate project state materially. initialize performs
// potentially expensive but non-destructive preparation and may mutate
// Project. execute performs the stage's work, polling cancel at every
// long-running loop iteration and blocking boundary.
type Stage interface {
	ID() string
	Validate(p *project.Project) ([]Warning, error)
	Initialize(ctx context.Context, p *project.Project, sink chan<- Event) ([]Warning, error)
	Execute(ctx context.Context, p *project.Project, sink chan<- Event, cancel *CancelFlag) ([]Warning, error)
}
