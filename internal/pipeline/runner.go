package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Executor performs the external work of one stage. Implementations are
// collaborators (the platform CLI, the version-control host); the core
// only consumes the outcome they report.
type Executor interface {
	Execute(ctx context.Context, params Parameters, prior map[Stage]Outcome) Outcome
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(ctx context.Context, params Parameters, prior map[Stage]Outcome) Outcome

func (f ExecutorFunc) Execute(ctx context.Context, params Parameters, prior map[Stage]Outcome) Outcome {
	return f(ctx, params, prior)
}

// RunStore persists completed runs. The runner records best-effort; a
// store error is logged and does not change the run's verdict.
type RunStore interface {
	SaveRun(ctx context.Context, run *Run) error
}

// Notifier delivers the final verdict to an external sink. Failures here
// never alter the already-computed verdict.
type Notifier interface {
	Notify(ctx context.Context, run *Run) error
}

// Run is the complete record of one pipeline evaluation.
type Run struct {
	ID         string            `json:"id"`
	Params     Parameters        `json:"params"`
	Outcomes   map[Stage]Outcome `json:"outcomes"`
	Verdict    Verdict           `json:"verdict"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
}

// Runner evaluates stages in topological order against a fixed stage
// configuration and a set of registered executors.
type Runner struct {
	cfg       StageConfig
	executors map[Stage]Executor
	store     RunStore
	notifier  Notifier
	logger    *slog.Logger
	tracer    trace.Tracer
}

// Option configures a Runner.
type Option func(*Runner)

// WithStore sets the run store the runner persists records to.
func WithStore(s RunStore) Option {
	return func(r *Runner) { r.store = s }
}

// WithNotifier sets the sink the final verdict is forwarded to.
func WithNotifier(n Notifier) Option {
	return func(r *Runner) { r.notifier = n }
}

// WithLogger sets the runner's logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// NewRunner creates a runner. Executors missing for a stage that gates to
// run are recorded as that stage's failure, never silently skipped.
func NewRunner(cfg StageConfig, executors map[Stage]Executor, opts ...Option) *Runner {
	r := &Runner{
		cfg:       cfg,
		executors: executors,
		logger:    slog.Default(),
		tracer:    otel.Tracer("relgate/pipeline"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run evaluates one pipeline run for the given canonical parameters.
// Stages execute sequentially; a cancelled context marks every
// not-yet-evaluated stage as skipped and aggregation still produces a
// verdict.
func (r *Runner) Run(ctx context.Context, params Parameters) *Run {
	run := &Run{
		ID:        uuid.New().String(),
		Params:    params,
		Outcomes:  make(map[Stage]Outcome, len(StageOrder)),
		StartedAt: time.Now().UTC(),
	}

	ctx, span := r.tracer.Start(ctx, "pipeline.run",
		trace.WithAttributes(
			attribute.String("run.id", run.ID),
			attribute.String("run.event_type", string(params.EventType)),
		))
	defer span.End()

	for _, stage := range StageOrder {
		if ctx.Err() != nil {
			run.Outcomes[stage] = Skipped("cancelled")
			continue
		}

		decision, reason := Gate(stage, r.cfg, params, run.Outcomes)
		switch decision {
		case DecisionRun:
			run.Outcomes[stage] = r.execute(ctx, stage, params, run.Outcomes)
		case DecisionBlocked:
			run.Outcomes[stage] = Blocked(reason)
		default:
			run.Outcomes[stage] = Skipped(reason)
		}

		out := run.Outcomes[stage]
		r.logger.Info("stage evaluated",
			slog.String("run_id", run.ID),
			slog.String("stage", string(stage)),
			slog.String("status", string(out.Status)),
			slog.String("reason", out.Reason),
		)
	}

	run.Verdict = Aggregate(run.Outcomes, r.cfg, params.EventType)
	run.FinishedAt = time.Now().UTC()
	span.SetAttributes(attribute.Bool("run.success", run.Verdict.Success))

	r.logger.Info("pipeline finished",
		slog.String("run_id", run.ID),
		slog.Bool("success", run.Verdict.Success),
		slog.String("message", run.Verdict.Message),
	)

	// Persist and notify after the verdict is final against a fresh
	// context so run-level cancellation does not lose the record.
	persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	if r.store != nil {
		if err := r.store.SaveRun(persistCtx, run); err != nil {
			r.logger.Error("failed to persist run",
				slog.String("run_id", run.ID),
				slog.String("error", err.Error()))
		}
	}
	if r.notifier != nil {
		if err := r.notifier.Notify(persistCtx, run); err != nil {
			r.logger.Error("failed to deliver notification",
				slog.String("run_id", run.ID),
				slog.String("error", err.Error()))
		}
	}

	return run
}

// execute invokes a stage's registered executor. A missing executor or a
// panicking collaborator is mapped to a failure, never to skipped.
func (r *Runner) execute(ctx context.Context, stage Stage, params Parameters, prior map[Stage]Outcome) (out Outcome) {
	exec, ok := r.executors[stage]
	if !ok {
		return Failure(fmt.Sprintf("no executor registered for stage %s", stage))
	}

	ctx, span := r.tracer.Start(ctx, "pipeline.stage."+string(stage))
	defer span.End()

	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			out = Failure(fmt.Sprintf("stage %s crashed: %v", stage, rec))
		}
		out.Duration = time.Since(start)
	}()

	return exec.Execute(ctx, params, prior)
}
