package pipeline

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type upperStage struct{}

func (upperStage) Name() string { return "Upper" }
func (upperStage) Process(_ *Context, input []FileRecord) ([]FileRecord, error) {
	out := make([]FileRecord, len(input))
	for i, fr := range input {
		out[i] = fr.WithTransform("Upper", fr.Text+"!")
	}
	return out, nil
}

type failingStage struct {
	recoverable bool
}

func (failingStage) Name() string { return "Failing" }
func (f failingStage) Process(_ *Context, input []FileRecord) ([]FileRecord, error) {
	return nil, NewError(KindTransformer, "boom", nil)
}
func (f failingStage) HandleError(_ *Context, _ error, input []FileRecord) ([]FileRecord, bool) {
	if !f.recoverable {
		return nil, false
	}
	return input, true
}

func newTestContext() *Context {
	return NewContext(RunOptions{}, slog.Default())
}

func TestOrchestrator_Process_ThreadsRecordsSequentially(t *testing.T) {
	orch := NewOrchestrator(false)
	orch.Through(upperStage{}, upperStage{})

	ctx := newTestContext()
	out, err := orch.Process(ctx, []FileRecord{{RelPath: "a.txt", Text: "hi"}})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "hi!!", out[0].Text)
	assert.Len(t, out[0].Trail, 2)
}

func TestOrchestrator_Process_FailsWithoutRecovery(t *testing.T) {
	orch := NewOrchestrator(false)
	orch.Through(failingStage{})

	ctx := newTestContext()
	_, err := orch.Process(ctx, []FileRecord{{RelPath: "a.txt"}})
	require.Error(t, err)
}

func TestOrchestrator_Process_RecoversWhenContinueOnError(t *testing.T) {
	orch := NewOrchestrator(true)
	orch.Through(failingStage{recoverable: true}, upperStage{})

	ctx := newTestContext()
	out, err := orch.Process(ctx, []FileRecord{{RelPath: "a.txt", Text: "hi"}})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "hi!", out[0].Text)
	require.Len(t, ctx.Stats.Failures, 1)
}

func TestOrchestrator_Process_EmitsLifecycleEvents(t *testing.T) {
	orch := NewOrchestrator(false)
	orch.Through(upperStage{})

	ctx := newTestContext()
	var kinds []EventKind
	ctx.Events.On(func(ev Event) { kinds = append(kinds, ev.Kind) })

	_, err := orch.Process(ctx, []FileRecord{{RelPath: "a.txt", Text: "hi"}})
	require.NoError(t, err)

	assert.Equal(t, []EventKind{
		EventPipelineStart,
		EventStageStart,
		EventStageComplete,
		EventPipelineComplete,
	}, kinds)
}
