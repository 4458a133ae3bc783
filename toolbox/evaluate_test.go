package toolbox

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
)

func TestAccuracyAndMeanSquaredError(t *testing.T) {
	// Output {x, -x}: the first node wins exactly when x > 0.
	net := NewNetwork([]int{2, 2}, Identity, rand.NewSource(1))
	copy(net.Layers()[0].W, []float64{1, 0, -1, 0})
	copy(net.Layers()[0].B, []float64{0, 0})

	data := GenerateSignDataset(100, rand.NewSource(2))
	require.Equal(t, 1.0, Accuracy(net, data))

	// Outputs {1, -1} against {0, 1}: (1-0)^2 + (-1-1)^2 = 5.  Outputs
	// {0, 0} against {1, 0}: 1.  Ties go to the first node.
	two := []Datapoint{
		{Input: []float64{1, 0}, Output: []float64{0, 1}},
		{Input: []float64{0, 0}, Output: []float64{1, 0}},
	}
	require.InDelta(t, 3.0, MeanSquaredError(net, two), 1e-12)
	require.Equal(t, 0.5, Accuracy(net, two))

	require.Zero(t, MeanSquaredError(net, nil))
	require.Zero(t, Accuracy(net, nil))
}
