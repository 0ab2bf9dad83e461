package pipeline

import (
	"context"
	"errors"
	"log/slog"

	"github.com/nao1215/sitemirror/internal/model"
)

// Step is one finalization stage of a mirror run.
// Steps run in sequence after the crawl loop has stopped, each receiving the
// same completed run.
//
// Design decision: Step is an interface rather than a function type so that
// a step can carry its writer, saver, and logger, and report a Name() for
// the log lines Execute emits.
type Step interface {
	// Do finalizes run.
	// It receives a context that is not cancelled by an interrupted crawl
	// and must treat run.State as read-only. A returned error is logged by
	// Execute; whether later steps still run depends on WithContinueOnError.
	Do(ctx context.Context, run *model.Run) error

	// Name returns the step's name for logging.
	Name() string
}

// Pipeline orchestrates the finalization steps of a run.
// It keeps an ordered list of steps and executes them in order. A *Pipeline
// satisfies crawler.Drainer, so the scheduler runs it in StateDraining.
type Pipeline struct {
	// steps contains the ordered list of steps to execute.
	steps []Step

	// logger is used for structured logging during execution.
	logger *slog.Logger

	// continueOnError runs the remaining steps after a failure.
	continueOnError bool
}

// Option is a function that configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
// If not set, slog.Default() is used.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithContinueOnError configures the pipeline to keep executing after a
// step fails. Every failure is logged, and Execute returns them joined with
// errors.Join.
//
// Design decision: the mirror command enables this. A history database that
// cannot be written must not cost the user the manifest, and a manifest that
// cannot be written must not stop the run from being recorded. The default
// stays stop-on-first-error, which is what tests composing steps expect.
func WithContinueOnError(continueOnError bool) Option {
	return func(p *Pipeline) {
		p.continueOnError = continueOnError
	}
}

// New creates a new Pipeline with the given options.
// Steps are added with AddStep or AddSteps after creation.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// AddStep appends a step to the pipeline.
// Steps are executed in the order they are added.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends steps in order.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs all pipeline steps in sequence against run.
//
// Design decision: cancellation is checked before each step rather than
// during one; steps bound their own work. The scheduler calls Execute with a
// context detached from the crawl's cancellation, so an interrupted crawl
// still gets its manifest.
//
// Returns the first error when continueOnError is false, otherwise every
// step error joined, or nil when all steps succeed.
func (p *Pipeline) Execute(ctx context.Context, run *model.Run) error {
	var errs []error
	for _, step := range p.steps {
		if err := ctx.Err(); err != nil {
			p.logger.Warn("finalization cancelled", "step", step.Name(), "reason", err)
			return errors.Join(append(errs, err)...)
		}

		p.logger.Debug("executing step", "step", step.Name(), "target", run.Target.URL)
		if err := step.Do(ctx, run); err != nil {
			p.logger.Error("step failed", "step", step.Name(), "target", run.Target.URL, "error", err)
			if !p.continueOnError {
				return err
			}
			errs = append(errs, err)
			continue
		}
		p.logger.Debug("step completed", "step", step.Name())
	}
	return errors.Join(errs...)
}

// StepCount returns the number of steps.
func (p *Pipeline) StepCount() int {
	return len(p.steps)
}

// StepNames returns the step names in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}
