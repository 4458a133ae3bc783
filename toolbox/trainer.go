package toolbox

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"
)

// ErrPaused is returned by Trainer.Step while the trainer is paused.
var ErrPaused = errors.New("trainer is paused")

// TrainerConfig controls a Trainer.
type TrainerConfig struct {
	LearnRate  float64
	Iterations int

	// StopOnComplete ends Run at the first StatusComplete report.  When
	// false, completion is logged and training continues until the
	// iteration budget is used up.
	StopOnComplete bool

	// Logger receives per-iteration lines.  nil means log.Default().
	Logger *log.Logger
}

// Validate checks that the configuration can drive a training run.
func (c *TrainerConfig) Validate() error {
	if c.Iterations <= 0 {
		return fmt.Errorf("iterations must be positive, got %d", c.Iterations)
	}
	if c.LearnRate == 0 {
		return fmt.Errorf("learn rate must be non-zero")
	}
	return nil
}

// TrainerTimings accumulates wall time spent inside Train.
type TrainerTimings struct {
	Overall time.Duration
	Slowest time.Duration
}

func (t *TrainerTimings) Reset() {
	t.Overall = 0 * time.Second
	t.Slowest = 0 * time.Second
}

// TrainerSummary describes a finished Run.
type TrainerSummary struct {
	Iterations       int
	Elapsed          time.Duration
	AverageIteration time.Duration
	Completed        bool
	Last             TrainReport
}

// Trainer owns a network and its training data, and advances training one
// scheduling tick at a time.  A host (CLI, UI loop) decides when to tick;
// Run is the simple blocking driver.
type Trainer struct {
	Net  *Network
	Data []Datapoint

	Config TrainerConfig

	// OnTick, if set, is called after every training tick, e.g. to redraw
	// the network.
	OnTick func(iteration int, report TrainReport)

	Timings TrainerTimings

	iteration int
	completed bool
	paused    bool
	failure   error
}

// NewTrainer validates cfg and returns a trainer for net over data.
func NewTrainer(net *Network, data []Datapoint, cfg TrainerConfig) (*Trainer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("while validating trainer config: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("no training data")
	}
	return &Trainer{
		Net:    net,
		Data:   data,
		Config: cfg,
	}, nil
}

func (t *Trainer) logger() *log.Logger {
	if t.Config.Logger != nil {
		return t.Config.Logger
	}
	return log.Default()
}

// Iteration is the number of ticks performed so far.
func (t *Trainer) Iteration() int {
	return t.iteration
}

// Done reports whether the iteration budget is exhausted, training has
// failed, or training has completed with StopOnComplete set.
func (t *Trainer) Done() bool {
	return t.iteration >= t.Config.Iterations || t.failure != nil || (t.completed && t.Config.StopOnComplete)
}

// SetPaused pauses or resumes training.
func (t *Trainer) SetPaused(paused bool) {
	t.paused = paused
}

func (t *Trainer) Paused() bool {
	return t.paused
}

// Step performs a single tick: one Train call over the whole dataset.  Once
// a tick has failed, every later Step returns the same error.
func (t *Trainer) Step() (TrainReport, error) {
	if t.failure != nil {
		return TrainReport{}, t.failure
	}
	if t.paused {
		return TrainReport{}, ErrPaused
	}

	report, err := t.Net.Train(t.Data, t.Config.LearnRate)
	t.iteration++

	t.Timings.Overall += report.Elapsed
	if report.Elapsed > t.Timings.Slowest {
		t.Timings.Slowest = report.Elapsed
	}

	if err != nil {
		t.logger().Printf("iteration %d/%d status=%v heuristic=%v", t.iteration, t.Config.Iterations, report.Status, report.Heuristic)
		t.failure = fmt.Errorf("iteration %d: %w", t.iteration, err)
		return report, t.failure
	}

	if report.Status == StatusComplete {
		t.completed = true
	}
	t.logger().Printf("iteration %d/%d status=%v elapsed=%v heuristic=%v mse=%v", t.iteration, t.Config.Iterations, report.Status, report.Elapsed, report.Heuristic, report.Loss)

	if t.OnTick != nil {
		t.OnTick(t.iteration, report)
	}
	return report, nil
}

// Run ticks until the trainer is done, a fatal training error occurs, the
// trainer is paused, or ctx is cancelled.  ctx is only checked between
// ticks.
func (t *Trainer) Run(ctx context.Context) (TrainerSummary, error) {
	start := time.Now()
	startIteration := t.iteration

	var summary TrainerSummary
	var runErr error
	for !t.Done() {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}

		report, err := t.Step()
		if errors.Is(err, ErrPaused) {
			break
		}
		summary.Last = report
		if err != nil {
			runErr = err
			break
		}
	}

	summary.Iterations = t.iteration - startIteration
	summary.Elapsed = time.Since(start)
	if summary.Iterations > 0 {
		summary.AverageIteration = summary.Elapsed / time.Duration(summary.Iterations)
	}
	summary.Completed = t.completed

	t.logger().Printf("%d iterations took %v, average iteration %v", summary.Iterations, summary.Elapsed, summary.AverageIteration)
	return summary, runErr
}
