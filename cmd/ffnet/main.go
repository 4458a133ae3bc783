// Command ffnet trains and inspects small feed-forward networks.
//
// To make a data set: `go run ./cmd/ffnet gen-data --out=sign.npz`
//
// To train: `go run ./cmd/ffnet train --data-file=sign.npz --output-weight-file=sign.safetensors`
//
// To infer: `go run ./cmd/ffnet infer --weights=sign.safetensors --input=0.3,-0.2`
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/ahmedtd/ffnet/toolbox"
	"github.com/google/subcommands"
	"golang.org/x/exp/rand"
)

func main() {
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(subcommands.CommandsCommand(), "")

	subcommands.Register(&GenDataCommand{}, "")
	subcommands.Register(&TrainCommand{}, "")
	subcommands.Register(&EvolveCommand{}, "")
	subcommands.Register(&InferCommand{}, "")
	subcommands.Register(&ActivationsCommand{}, "")

	flag.Parse()
	ctx := context.Background()
	os.Exit(int(subcommands.Execute(ctx)))
}

type GenDataCommand struct {
	outFile string
	n       int
	seed    uint64
}

var _ subcommands.Command = (*GenDataCommand)(nil)

func (*GenDataCommand) Name() string {
	return "gen-data"
}

func (*GenDataCommand) Synopsis() string {
	return "Write the sign classification data set"
}

func (*GenDataCommand) Usage() string {
	return ``
}

func (c *GenDataCommand) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.outFile, "out", "sign.npz", "Path to write the data set (npz format)")
	f.IntVar(&c.n, "n", 1000, "Number of datapoints")
	f.Uint64Var(&c.seed, "seed", 1, "Random seed")
}

func (c *GenDataCommand) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if err := c.executeErr(ctx); err != nil {
		log.Printf("Error: %v", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func (c *GenDataCommand) executeErr(ctx context.Context) error {
	if c.n <= 0 {
		return fmt.Errorf("--n must be positive, got %d", c.n)
	}

	data := toolbox.GenerateSignDataset(c.n, rand.NewSource(c.seed))
	if err := toolbox.WriteDataset(c.outFile, data); err != nil {
		return fmt.Errorf("while writing data set: %w", err)
	}

	log.Printf("Wrote %d datapoints to %s", len(data), c.outFile)
	return nil
}

// dataFlags selects the training data: a file, or a generated sign data set.
type dataFlags struct {
	dataFile string
	n        int
	dataSeed uint64
}

func (d *dataFlags) register(f *flag.FlagSet) {
	f.StringVar(&d.dataFile, "data-file", "", "Path to a data set written by gen-data; empty generates one")
	f.IntVar(&d.n, "n", 1000, "Number of datapoints to generate when --data-file is empty")
	f.Uint64Var(&d.dataSeed, "data-seed", 1, "Random seed for the generated data set")
}

func (d *dataFlags) load() ([]toolbox.Datapoint, error) {
	if d.dataFile == "" {
		if d.n <= 0 {
			return nil, fmt.Errorf("--n must be positive, got %d", d.n)
		}
		return toolbox.GenerateSignDataset(d.n, rand.NewSource(d.dataSeed)), nil
	}

	data, err := toolbox.ReadDataset(d.dataFile)
	if err != nil {
		return nil, fmt.Errorf("while reading data set: %w", err)
	}
	return data, nil
}

// netFlags describes the starting network: a checkpoint, or a fresh one.
type netFlags struct {
	shape              string
	activation         string
	seed               uint64
	fromCheckpointFile string
	outputWeightFile   string
}

func (n *netFlags) register(f *flag.FlagSet) {
	f.StringVar(&n.shape, "shape", "2 3 2", "Layer widths, input first")
	f.StringVar(&n.activation, "activation", "sigmoid", "Activation function shared by every layer")
	f.Uint64Var(&n.seed, "seed", 1, "Random seed for weights and mutations")
	f.StringVar(&n.fromCheckpointFile, "from-checkpoint", "", "Path to initial weights; overrides --shape and --activation")
	f.StringVar(&n.outputWeightFile, "output-weight-file", "", "Path to save the resulting weights (safetensors format)")
}

func (n *netFlags) build() (*toolbox.Network, error) {
	src := rand.NewSource(n.seed)

	if n.fromCheckpointFile != "" {
		net, err := toolbox.ReadNetworkFile(n.fromCheckpointFile, src)
		if err != nil {
			return nil, fmt.Errorf("while loading initial checkpoint: %w", err)
		}
		return net, nil
	}

	shape, err := toolbox.ParseShape(n.shape)
	if err != nil {
		return nil, fmt.Errorf("while parsing --shape: %w", err)
	}
	activation, err := toolbox.ParseActivation(n.activation)
	if err != nil {
		return nil, fmt.Errorf("while parsing --activation: %w", err)
	}
	return toolbox.NewNetwork(shape, activation, src), nil
}

func (n *netFlags) save(net *toolbox.Network) error {
	if n.outputWeightFile == "" {
		return nil
	}
	if err := toolbox.WriteNetworkFile(n.outputWeightFile, net); err != nil {
		return fmt.Errorf("while writing checkpoint: %w", err)
	}
	log.Printf("Wrote weights to %s", n.outputWeightFile)
	return nil
}

func checkDataFits(net *toolbox.Network, data []toolbox.Datapoint) error {
	shape := net.Shape()
	for k, dp := range data {
		if len(dp.Input) != shape[0] || len(dp.Output) != shape[len(shape)-1] {
			return fmt.Errorf("datapoint %d has shape (%d, %d) but the network is %v", k, len(dp.Input), len(dp.Output), shape)
		}
	}
	return nil
}
