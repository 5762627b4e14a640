package reporter

import (
	"errors"
	"testing"

	"github.com/five82/reencode/internal/stage"
	"github.com/stretchr/testify/assert"
)

type recordingReporter struct {
	NullReporter
	progress []StageProgress
	errors   []ReporterError
}

func (r *recordingReporter) StageProgress(update StageProgress) {
	r.progress = append(r.progress, update)
}

func (r *recordingReporter) Error(err ReporterError) {
	r.errors = append(r.errors, err)
}

func TestStageEventAdapterFramesCompletion(t *testing.T) {
	rec := &recordingReporter{}
	a := NewStageEventAdapter(rec)

	a.Handle(stage.Whole("parallel_encode", stage.ProcessingStatus("parallel_encode", stage.Completion{
		Kind: stage.FramesCompletion, Done: 50, Total: 200,
	})))

	assert.Len(t, rec.progress, 1)
	assert.Equal(t, "parallel_encode", rec.progress[0].Stage)
	assert.InDelta(t, 25.0, rec.progress[0].Percent, 0.01)
}

func TestStageEventAdapterCompleted(t *testing.T) {
	rec := &recordingReporter{}
	a := NewStageEventAdapter(rec)

	a.Handle(stage.Whole("scene_detect", stage.CompletedStatus("scene_detect")))

	assert.Len(t, rec.progress, 1)
	assert.Equal(t, float32(100), rec.progress[0].Percent)
}

func TestStageEventAdapterFailed(t *testing.T) {
	rec := &recordingReporter{}
	a := NewStageEventAdapter(rec)

	a.Handle(stage.Whole("concat", stage.FailedStatus("concat", errors.New("mkvmerge exited 1"))))

	assert.Len(t, rec.errors, 1)
	assert.Equal(t, "concat", rec.errors[0].Title)
}

func TestStageEventAdapterSubprocessEvent(t *testing.T) {
	rec := &recordingReporter{}
	a := NewStageEventAdapter(rec)

	ev := stage.Subprocess(
		stage.ProcessingStatus("parallel_encode", stage.Completion{}),
		stage.ProcessingStatus("task-3", stage.Completion{Kind: stage.PassesCompletion, PassCur: 1, PassTotal: 2}),
	)
	a.Handle(ev)

	assert.Len(t, rec.progress, 1)
	assert.Equal(t, "parallel_encode", rec.progress[0].Stage)
}

func TestStageEventAdapterRunDrainsChannel(t *testing.T) {
	rec := &recordingReporter{}
	a := NewStageEventAdapter(rec)

	ch := make(chan stage.Event, 2)
	ch <- stage.Whole("benchmark", stage.CompletedStatus("benchmark"))
	close(ch)

	a.Run(ch)

	assert.Len(t, rec.progress, 1)
}
