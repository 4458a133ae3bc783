package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"os"
	"text/tabwriter"

	"github.com/ahmedtd/ffnet/toolbox"
	"github.com/google/subcommands"
	"gonum.org/v1/gonum/diff/fd"
)

type ActivationsCommand struct {
	samples int
}

var _ subcommands.Command = (*ActivationsCommand)(nil)

func (*ActivationsCommand) Name() string {
	return "activations"
}

func (*ActivationsCommand) Synopsis() string {
	return "List the activation functions and check their derivatives"
}

func (*ActivationsCommand) Usage() string {
	return ``
}

func (c *ActivationsCommand) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.samples, "samples", 1000, "Number of points in [-5, 5] to check each derivative at")
}

func (c *ActivationsCommand) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.samples < 2 {
		fmt.Fprintf(os.Stderr, "--samples must be at least 2\n")
		return subcommands.ExitUsageError
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintf(w, "NAME\tf(-1)\tf(0)\tf(1)\tMAX DERIVATIVE ERROR\n")
	for _, act := range toolbox.CatalogActivations() {
		fmt.Fprintf(w, "%v\t%.4f\t%.4f\t%.4f\t%.2e\n", act, act.Apply(-1), act.Apply(0), act.Apply(1), maxDerivativeError(act, c.samples))
	}
	w.Flush()

	return subcommands.ExitSuccess
}

// maxDerivativeError compares act.Derivative against a central difference
// at n evenly spaced points in [-5, 5].
func maxDerivativeError(act toolbox.ActivationType, n int) float64 {
	worst := 0.0
	for i := 0; i < n; i++ {
		x := -5 + 10*float64(i)/float64(n-1)
		want := fd.Derivative(act.Apply, x, &fd.Settings{Formula: fd.Central})
		worst = math.Max(worst, math.Abs(act.Derivative(x)-want))
	}
	return worst
}
