package pipeline

import (
	"runtime"
	"time"
)

// Stage is implemented by every pipeline stage in the ordered set (§4.9):
// FileDiscovery, ExternalSource, GitFilter, SortFiles, Limit, ProfileFilter,
// AlwaysInclude, FileLoading, Transform, CharLimit, Deduplicate,
// Instructions, OutputFormatting. A stage receives the prior stage's records
// and the shared run Context, and returns the next stage's records.
type Stage interface {
	// Name identifies the stage in logs, events, and stats.
	Name() string

	// Process transforms input into output. ctx carries run options, the
	// logger, the event emitter, and the stats accumulator.
	Process(ctx *Context, input []FileRecord) ([]FileRecord, error)
}

// Initializer is an optional Stage extension for one-time setup given the
// run Context, called once before the first Process call.
type Initializer interface {
	OnInit(ctx *Context) error
}

// BeforeRunner is an optional Stage extension invoked immediately before
// Process, with the input the stage is about to receive.
type BeforeRunner interface {
	BeforeRun(ctx *Context, input []FileRecord)
}

// AfterRunner is an optional Stage extension invoked immediately after a
// successful Process, with the output the stage produced.
type AfterRunner interface {
	AfterRun(ctx *Context, output []FileRecord)
}

// ErrorHandler is an optional Stage extension giving a stage the chance to
// recover from its own error. When continue_on_error is set on the run and
// HandleError returns true, the orchestrator uses the returned slice as
// that stage's output instead of aborting the pipeline.
type ErrorHandler interface {
	HandleError(ctx *Context, err error, input []FileRecord) ([]FileRecord, bool)
}

// Orchestrator runs an ordered list of Stages, threading each stage's output
// into the next, emitting lifecycle events and capturing metrics around
// every stage. Grounded on spec.md §4.8; the teacher's own pipeline.Run was a
// stub, so this is built fresh in the teacher's logging/error idiom.
type Orchestrator struct {
	stages          []Stage
	continueOnError bool
}

// NewOrchestrator creates an Orchestrator. continueOnError controls whether a
// failed stage's ErrorHandler gets a chance to recover (see HandleError).
func NewOrchestrator(continueOnError bool) *Orchestrator {
	return &Orchestrator{continueOnError: continueOnError}
}

// Through attaches stages in order, returning the Orchestrator for chaining.
func (o *Orchestrator) Through(stages ...Stage) *Orchestrator {
	o.stages = append(o.stages, stages...)
	return o
}

// Process runs every attached stage in order, threading records through.
func (o *Orchestrator) Process(ctx *Context, input []FileRecord) ([]FileRecord, error) {
	ctx.Events.Emit(Event{Kind: EventPipelineStart})

	records := input
	for _, stage := range o.stages {
		out, err := o.runStage(ctx, stage, records)
		if err != nil {
			ctx.Events.Emit(Event{Kind: EventPipelineError, Stage: stage.Name(), Err: err})
			return nil, err
		}
		records = out
	}

	ctx.Stats.EndedAt = time.Now()
	ctx.Events.Emit(Event{Kind: EventPipelineComplete})
	return records, nil
}

// GetStats returns the pipeline's accumulated stats. Exposed as a method for
// symmetry with spec.md §4.8's get_stats(); callers may also read ctx.Stats
// directly since Go has no private/protected distinction at package level.
func (o *Orchestrator) GetStats(ctx *Context) *PipelineStats {
	return ctx.Stats
}

func (o *Orchestrator) runStage(ctx *Context, stage Stage, input []FileRecord) ([]FileRecord, error) {
	if init, ok := stage.(Initializer); ok {
		if err := init.OnInit(ctx); err != nil {
			return nil, err
		}
	}
	if br, ok := stage.(BeforeRunner); ok {
		br.BeforeRun(ctx, input)
	}

	ctx.Events.Emit(Event{Kind: EventStageStart, Stage: stage.Name()})

	var memBefore runtime.MemStats
	runtime.ReadMemStats(&memBefore)
	start := time.Now()

	output, err := stage.Process(ctx, input)

	elapsed := time.Since(start)
	var memAfter runtime.MemStats
	runtime.ReadMemStats(&memAfter)
	timing := StageTiming{
		Name:        stage.Name(),
		Elapsed:     elapsed,
		HeapDelta:   int64(memAfter.HeapAlloc) - int64(memBefore.HeapAlloc),
		InputCount:  len(input),
		OutputCount: len(output),
	}

	if err != nil {
		if o.continueOnError {
			if eh, ok := stage.(ErrorHandler); ok {
				if recovered, ok2 := eh.HandleError(ctx, err, input); ok2 {
					ctx.Stats.RecordStage(timing)
					ctx.Stats.RecordFailure(stage.Name(), err)
					ctx.Events.Emit(Event{Kind: EventStageRecover, Stage: stage.Name(), Err: err})
					return recovered, nil
				}
			}
		}
		ctx.Events.Emit(Event{Kind: EventStageError, Stage: stage.Name(), Err: err})
		return nil, err
	}

	ctx.Stats.RecordStage(timing)
	if ar, ok := stage.(AfterRunner); ok {
		ar.AfterRun(ctx, output)
	}
	ctx.Events.Emit(Event{Kind: EventStageComplete, Stage: stage.Name(), Timing: timing})

	return output, nil
}
