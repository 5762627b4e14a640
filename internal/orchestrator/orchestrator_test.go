package orchestrator

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/five82/reencode/internal/project"
	"github.com/five82/reencode/internal/stage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStage struct {
	id         string
	validateErr error
	executeErr  error
	executed    *bool
	emits       []stage.Event
}

func (f *fakeStage) ID() string { return f.id }

func (f *fakeStage) Validate(p *project.Project) ([]stage.Warning, error) {
	return nil, f.validateErr
}

func (f *fakeStage) Initialize(ctx context.Context, p *project.Project, sink chan<- stage.Event) ([]stage.Warning, error) {
	return nil, nil
}

func (f *fakeStage) Execute(ctx context.Context, p *project.Project, sink chan<- stage.Event, cancel *stage.CancelFlag) ([]stage.Warning, error) {
	if f.executed != nil {
		*f.executed = true
	}
	for _, ev := range f.emits {
		sink <- ev
	}
	if f.executeErr != nil {
		return nil, f.executeErr
	}
	return []stage.Warning{{Stage: f.id, Message: "ok"}}, nil
}

func TestRunAllStagesSucceed(t *testing.T) {
	a, b := false, false
	o := New(&fakeStage{id: "a", executed: &a}, &fakeStage{id: "b", executed: &b})
	warnings, err := o.Run(context.Background(), &project.Project{}, nil)
	require.NoError(t, err)
	assert.True(t, a)
	assert.True(t, b)
	assert.Len(t, warnings, 2)
}

func TestRunStopsOnFirstFailure(t *testing.T) {
	a, b := false, false
	o := New(&fakeStage{id: "a", executed: &a}, &fakeStage{id: "b", executed: &b, validateErr: errors.New("boom")})
	_, err := o.Run(context.Background(), &project.Project{}, nil)
	require.Error(t, err)
	assert.True(t, a)
	assert.False(t, b)
}

func TestRunForwardsEvents(t *testing.T) {
	ev := stage.Whole("a", stage.CompletedStatus("a"))
	o := New(&fakeStage{id: "a", emits: []stage.Event{ev}})
	sink := make(chan stage.Event, 4)
	_, err := o.Run(context.Background(), &project.Project{}, sink)
	require.NoError(t, err)
	close(sink)
	var got []stage.Event
	for e := range sink {
		got = append(got, e)
	}
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].StageID)
}

func TestCancelStopsBeforeNextStage(t *testing.T) {
	o := New(&fakeStage{id: "a"}, &fakeStage{id: "b"})
	o.Cancel()
	warnings, err := o.Run(context.Background(), &project.Project{}, nil)
	require.NoError(t, err)
	assert.Empty(t, warnings)
}

func TestSweepStaleTempFilesRemovesOldOnly(t *testing.T) {
	dir := t.TempDir()
	old := dir + "/00000.temp.ivf"
	fresh := dir + "/00001.temp.ivf"
	require.NoError(t, os.WriteFile(old, []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(fresh, []byte("x"), 0o644))
	oldTime := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(old, oldTime, oldTime))

	n, err := SweepStaleTempFiles(dir, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
