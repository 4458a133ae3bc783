package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/ahmedtd/ffnet/toolbox"
	"github.com/google/subcommands"
)

type EvolveCommand struct {
	data dataFlags
	net  netFlags

	generations int
	population  int
	scale       float64
}

var _ subcommands.Command = (*EvolveCommand)(nil)

func (*EvolveCommand) Name() string {
	return "evolve"
}

func (*EvolveCommand) Synopsis() string {
	return "Improve a network by random mutation"
}

func (*EvolveCommand) Usage() string {
	return ``
}

func (c *EvolveCommand) SetFlags(f *flag.FlagSet) {
	c.data.register(f)
	c.net.register(f)

	f.IntVar(&c.generations, "generations", 100, "Number of generations")
	f.IntVar(&c.population, "population", 20, "Mutants evaluated per generation")
	f.Float64Var(&c.scale, "scale", 0.1, "Maximum perturbation of each weight and bias")
}

func (c *EvolveCommand) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if err := c.executeErr(ctx); err != nil {
		log.Printf("Error: %v", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func (c *EvolveCommand) executeErr(ctx context.Context) error {
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

	log.Printf("Evolving %v %v network on %d datapoints; accuracy=%.3f mse=%v",
		net.Shape(), net.Activation(), len(data), toolbox.Accuracy(net, data), toolbox.MeanSquaredError(net, data))

	best, loss, err := toolbox.Evolve(net, data, toolbox.EvolveConfig{
		Generations: c.generations,
		Population:  c.population,
		Scale:       c.scale,
	})
	if err != nil {
		return fmt.Errorf("while evolving: %w", err)
	}

	log.Printf("accuracy=%.3f mse=%v", toolbox.Accuracy(best, data), loss)

	if err := c.net.save(best); err != nil {
		return err
	}

	return nil
}
