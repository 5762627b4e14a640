package stage

// StatusKind tags a Status as processing, completed, or failed.
type StatusKind int

const (
	Processing StatusKind = iota
	Completed
	Failed
)

// CompletionKind tags which shape of progress a Completion carries.
type CompletionKind int

const (
	// Frames: done/total frame counts.
	FramesCompletion CompletionKind = iota
	// PassFrames: current pass and frame position within it.
	PassFramesCompletion
	// Passes: done/total pass counts.
	PassesCompletion
	// Custom: a named counter for stages with bespoke units of work.
	CustomCompletion
)

// Completion is the tagged completion payload of a Processing status:
// Frames{done,total}, PassFrames{pass(cur,total),frames(cur,total)},
// Passes{done,total}, or Custom{name,done,total}.
type Completion struct {
	Kind      CompletionKind
	Done      uint64
	Total     uint64
	PassCur   int
	PassTotal int
	Name      string
}

// Status is one of Processing{id,completion}, Completed{id}, or
// Failed{id,error}.
type Status struct {
	ID         string
	Kind       StatusKind
	Completion Completion
	Err        error
}

// ProcessingStatus builds a Processing status.
func ProcessingStatus(id string, completion Completion) Status {
	return Status{ID: id, Kind: Processing, Completion: completion}
}

// CompletedStatus builds a Completed status.
func CompletedStatus(id string) Status {
	return Status{ID: id, Kind: Completed}
}

// FailedStatus builds a Failed status.
func FailedStatus(id string, err error) Status {
	return Status{ID: id, Kind: Failed, Err: err}
}

// EventKind tags whether an Event is a Whole (stage-level) or Subprocess
// (nested stage-within-stage, e.g. benchmarker driving the encoder) event.
type EventKind int

const (
	WholeEvent EventKind = iota
	SubprocessEvent
)

// StageType tags which phase of a stage's lifecycle an event was forwarded
// from by the orchestrator.
type StageType int

const (
	Initialization StageType = iota
	ProcessingPhase
)

// Event is the tagged Progress Event variant described in the data model:
// Whole{stage_id, status} or Subprocess{parent_status, child_status}.
type Event struct {
	Kind StageType // Initialization | ProcessingPhase, set by the orchestrator
	EventKind EventKind

	// Whole
	StageID string
	Status  Status

	// Subprocess
	Parent Status
	Child  Status
}

// Whole builds a Whole progress event.
func Whole(stageID string, status Status) Event {
	return Event{EventKind: WholeEvent, StageID: stageID, Status: status}
}

// Subprocess builds a Subprocess progress event.
func Subprocess(parent, child Status) Event {
	return Event{EventKind: SubprocessEvent, Parent: parent, Child: child}
}

// Sink is the channel stages emit progress events into.
type Sink chan<- Event
