package toolbox

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Training stops being meaningful once the gradient heuristic grows past
// this magnitude.
const divergenceBound = 1 << 32

var (
	// ErrDiverged is returned by Train when the gradient heuristic exceeds
	// the divergence bound.  The network should be discarded or reset.
	ErrDiverged = errors.New("network has diverged")

	// ErrNumerical is returned by Train when the gradient heuristic is NaN.
	// The network should be discarded or reset.
	ErrNumerical = errors.New("numerical failure during training")
)

// TrainStatus tags the outcome of a single Train call.
type TrainStatus int

const (
	// StatusOK means training may continue.
	StatusOK TrainStatus = iota
	// StatusComplete means the gradient heuristic crossed zero; callers
	// should stop training.
	StatusComplete
	// StatusDiverged accompanies ErrDiverged.
	StatusDiverged
	// StatusNumerical accompanies ErrNumerical.
	StatusNumerical
)

func (s TrainStatus) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusComplete:
		return "complete"
	case StatusDiverged:
		return "diverged"
	case StatusNumerical:
		return "numerical"
	default:
		return fmt.Sprintf("TrainStatus(%d)", int(s))
	}
}

// TrainReport describes one Train call.
type TrainReport struct {
	Status  TrainStatus
	Elapsed time.Duration

	// Heuristic is the sum of every gradient accumulator entry just before
	// the reset.  It is a coarse progress signal used for the stopping
	// rules, not a loss.
	Heuristic float64

	// Loss is the mean squared error over the batch, measured during the
	// forward pass before the weights were updated.
	Loss float64
}

// Train runs one gradient descent step over data.
//
// Every datapoint's gradient is accumulated, the accumulators are applied
// once with learnRate/len(data), and then they are summed into the report's
// heuristic and zeroed.  A positive learnRate descends the squared-error
// cost.
//
// A non-nil error (wrapping ErrDiverged or ErrNumerical) means the network
// is no longer usable.  StatusComplete is not an error.
func (net *Network) Train(data []Datapoint, learnRate float64) (TrainReport, error) {
	if len(data) == 0 {
		return TrainReport{}, nil
	}

	start := time.Now()

	var loss float64
	for _, dp := range data {
		loss += net.UpdateGradients(dp)
	}

	net.ApplyGradients(learnRate / float64(len(data)))

	var heuristic float64
	for _, lay := range net.layers {
		heuristic += lay.resetGradients()
	}

	report := TrainReport{
		Heuristic: heuristic,
		Loss:      loss / float64(len(data)),
	}

	switch {
	case heuristic < 0:
		report.Status = StatusComplete
	case math.Abs(heuristic) >= divergenceBound:
		report.Status = StatusDiverged
	case math.IsNaN(heuristic):
		report.Status = StatusNumerical
	}

	report.Elapsed = time.Since(start)

	switch report.Status {
	case StatusDiverged:
		return report, fmt.Errorf("gradient heuristic %v: %w", heuristic, ErrDiverged)
	case StatusNumerical:
		return report, fmt.Errorf("gradient heuristic %v: %w", heuristic, ErrNumerical)
	}
	return report, nil
}

// UpdateGradients runs one forward and backward pass for dp, adding its
// gradient to every layer's accumulators.  It returns the datapoint's
// squared error cost, summed over the output nodes.
func (net *Network) UpdateGradients(dp Datapoint) float64 {
	values := make([]*LayerValues, len(net.layers))

	x := dp.Input
	for l, lay := range net.layers {
		values[l] = lay.SaveValues(x)
		x = values[l].Activations
	}

	var cost float64
	for i, a := range x {
		cost += SquaredErrorCost(a, dp.Output[i])
	}

	// Backprop.  The node values of layer l+1 and its weights give the node
	// values of layer l.
	last := len(net.layers) - 1
	nodeValues := net.layers[last].OutputNodeValues(values[last], dp.Output, SquaredErrorCostDerivative)
	net.layers[last].UpdateGradients(values[last].Inputs, nodeValues)

	for l := last - 1; l >= 0; l-- {
		nodeValues = net.layers[l].HiddenNodeValues(values[l], net.layers[l+1].W, nodeValues)
		net.layers[l].UpdateGradients(values[l].Inputs, nodeValues)
	}

	return cost
}

// ApplyGradients applies every layer's accumulators with learnRate.  The
// accumulators are not reset.
func (net *Network) ApplyGradients(learnRate float64) {
	for _, lay := range net.layers {
		lay.ApplyGradients(learnRate)
	}
}
