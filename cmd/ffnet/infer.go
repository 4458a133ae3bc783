package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/ahmedtd/ffnet/toolbox"
	"github.com/google/subcommands"
	"gonum.org/v1/gonum/floats"
)

type InferCommand struct {
	weightsFile string
	input       string
}

var _ subcommands.Command = (*InferCommand)(nil)

func (*InferCommand) Name() string {
	return "infer"
}

func (*InferCommand) Synopsis() string {
	return "Run a trained network on one input"
}

func (*InferCommand) Usage() string {
	return ``
}

func (c *InferCommand) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.weightsFile, "weights", "sign.safetensors", "Path to the weights produced by the train or evolve command")
	f.StringVar(&c.input, "input", "", "Comma-separated input vector")
}

func (c *InferCommand) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if err := c.executeErr(ctx); err != nil {
		log.Printf("Error: %v", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func (c *InferCommand) executeErr(ctx context.Context) error {
	net, err := toolbox.ReadNetworkFile(c.weightsFile, nil)
	if err != nil {
		return fmt.Errorf("while loading weights: %w", err)
	}

	x, err := parseVector(c.input)
	if err != nil {
		return fmt.Errorf("while parsing --input: %w", err)
	}
	if want := net.Shape()[0]; len(x) != want {
		return fmt.Errorf("input has %d values, network wants %d", len(x), want)
	}

	pred := net.Run(x)

	log.Printf("Output: %v", pred)
	log.Printf("Prediction: %d", floats.MaxIdx(pred))
	return nil
}

func parseVector(s string) ([]float64, error) {
	parts := strings.Split(s, ",")
	v := make([]float64, len(parts))
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("while parsing value %q: %w", p, err)
		}
		v[i] = f
	}
	return v, nil
}
