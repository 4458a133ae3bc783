package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"runtime/pprof"

	"github.com/ahmedtd/ffnet/toolbox"
	"github.com/google/subcommands"
)

type TrainCommand struct {
	data dataFlags
	net  netFlags

	learnRate      float64
	iterations     int
	stopOnComplete bool
	quiet          bool

	cpuProfileFile string
}

var _ subcommands.Command = (*TrainCommand)(nil)

func (*TrainCommand) Name() string {
	return "train"
}

func (*TrainCommand) Synopsis() string {
	return "Train a network with gradient descent"
}

func (*TrainCommand) Usage() string {
	return ``
}

func (c *TrainCommand) SetFlags(f *flag.FlagSet) {
	c.data.register(f)
	c.net.register(f)

	f.Float64Var(&c.learnRate, "learn-rate", 0.5, "Learning rate; positive values descend the cost")
	f.IntVar(&c.iterations, "iterations", 1000, "Number of training iterations over the whole data set")
	f.BoolVar(&c.stopOnComplete, "stop-on-complete", false, "Stop at the first completion signal")
	f.BoolVar(&c.quiet, "quiet", false, "Do not log every iteration")

	f.StringVar(&c.cpuProfileFile, "cpu-profile", "", "Write a CPU profile")
}

func (c *TrainCommand) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if err := c.executeErr(ctx); err != nil {
		log.Printf("Error: %v", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func (c *TrainCommand) executeErr(ctx context.Context) error {
	if c.cpuProfileFile != "" {
		f, err := os.Create(c.cpuProfileFile)
		if err != nil {
			return fmt.Errorf("while creating CPU profile file: %w", err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			return fmt.Errorf("while starting CPU profile: %w", err)
		}
		defer pprof.StopCPUProfile()
	}

	data, err := c.data.load()
	if err != nil {
		return err
	}

	net, err := c.net.build()
	if err != nil {
		return err
	}
	if err := checkDataFits(net, data); err != nil {
		return err
	}

	cfg := toolbox.TrainerConfig{
		LearnRate:      c.learnRate,
		Iterations:     c.iterations,
		StopOnComplete: c.stopOnComplete,
	}
	if c.quiet {
		cfg.Logger = log.New(io.Discard, "", 0)
	}

	trainer, err := toolbox.NewTrainer(net, data, cfg)
	if err != nil {
		return fmt.Errorf("while creating trainer: %w", err)
	}

	log.Printf("Training %v %v network on %d datapoints; accuracy=%.3f mse=%v",
		net.Shape(), net.Activation(), len(data), toolbox.Accuracy(net, data), toolbox.MeanSquaredError(net, data))

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	summary, runErr := trainer.Run(ctx)

	log.Printf("iterations=%d completed=%v accuracy=%.3f mse=%v", summary.Iterations, summary.Completed, toolbox.Accuracy(net, data), toolbox.MeanSquaredError(net, data))
	log.Printf("timings overall=%v slowest=%v average=%v", trainer.Timings.Overall, trainer.Timings.Slowest, summary.AverageIteration)

	if runErr != nil {
		return fmt.Errorf("while training: %w", runErr)
	}

	if err := c.net.save(net); err != nil {
		return err
	}

	return nil
}
