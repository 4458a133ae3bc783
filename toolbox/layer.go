package toolbox

import (
	"fmt"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"
)

// Layer is one dense affine transform followed by an activation.
//
// W and B are exposed for inspection (rendering, debugging).  Callers must
// treat them as read-only; they are mutated only by ApplyGradients.  The
// activation is fixed at construction.
type Layer struct {
	activation ActivationType

	W []float64 // Shape (OutputSize, InputSize), row-major
	B []float64 // Shape (OutputSize)

	InputSize  int
	OutputSize int

	// Gradient accumulators.  They hold the negated gradient of the cost so
	// that applying them is a plain scaled add.
	gradW []float64 // Shape (OutputSize, InputSize)
	gradB []float64 // Shape (OutputSize)
}

// LayerValues is what a forward pass has to remember for backpropagation.
type LayerValues struct {
	Inputs      []float64 // Shape (InputSize)
	Weighted    []float64 // Shape (OutputSize), pre-activation sums
	Activations []float64 // Shape (OutputSize)
}

// MakeDense creates a layer with weights and biases drawn uniformly from
// [-1, 1).  A nil src uses the global source.
func MakeDense(activation ActivationType, inputSize, outputSize int, src rand.Source) *Layer {
	l := newLayer(activation, inputSize, outputSize)

	dist := distuv.Uniform{Min: -1, Max: 1, Src: src}
	for i := range l.W {
		l.W[i] = dist.Rand()
	}
	for i := range l.B {
		l.B[i] = dist.Rand()
	}

	return l
}

func newLayer(activation ActivationType, inputSize, outputSize int) *Layer {
	if inputSize <= 0 || outputSize <= 0 {
		panic(fmt.Sprintf("invalid layer size: %d -> %d", inputSize, outputSize))
	}
	if !activation.Valid() {
		panic(fmt.Sprintf("invalid activation: %v", activation))
	}

	return &Layer{
		activation: activation,
		W:          make([]float64, outputSize*inputSize),
		B:          make([]float64, outputSize),
		InputSize:  inputSize,
		OutputSize: outputSize,
		gradW:      make([]float64, outputSize*inputSize),
		gradB:      make([]float64, outputSize),
	}
}

// Activation is the activation applied to every output node.
func (lay *Layer) Activation() ActivationType {
	return lay.activation
}

// weighted returns the pre-activation sum for output node i.
func (lay *Layer) weighted(x []float64, i int) float64 {
	return lay.B[i] + floats.Dot(lay.W[i*lay.InputSize:(i+1)*lay.InputSize], x)
}

// Calculate applies the layer in the forward direction.  Nothing is cached.
//
// x (input) is the layer input.  Shape (lay.InputSize)
func (lay *Layer) Calculate(x []float64) []float64 {
	a := make([]float64, lay.OutputSize)
	for i := 0; i < lay.OutputSize; i++ {
		a[i] = lay.activation.Apply(lay.weighted(x, i))
	}
	return a
}

// SaveValues is Calculate, additionally returning the weighted sums and the
// inputs needed by the backward pass.
func (lay *Layer) SaveValues(x []float64) *LayerValues {
	v := &LayerValues{
		Inputs:      x,
		Weighted:    make([]float64, lay.OutputSize),
		Activations: make([]float64, lay.OutputSize),
	}
	for i := 0; i < lay.OutputSize; i++ {
		z := lay.weighted(x, i)
		v.Weighted[i] = z
		v.Activations[i] = lay.activation.Apply(z)
	}
	return v
}

// OutputNodeValues computes dC/dz for every node of the terminal layer.
//
// expected is the ground truth output.  Shape (lay.OutputSize)
func (lay *Layer) OutputNodeValues(v *LayerValues, expected []float64, costDerivative CostDerivative) []float64 {
	nodeValues := make([]float64, lay.OutputSize)
	for i := range nodeValues {
		nodeValues[i] = costDerivative(v.Activations[i], expected[i]) * lay.activation.Derivative(v.Weighted[i])
	}
	return nodeValues
}

// HiddenNodeValues propagates node values back through the following layer.
//
// nextW is the following layer's weights.  Shape (len(nextNodeValues), lay.OutputSize)
// nextNodeValues is the following layer's dC/dz.
func (lay *Layer) HiddenNodeValues(v *LayerValues, nextW, nextNodeValues []float64) []float64 {
	nodeValues := make([]float64, lay.OutputSize)
	for i := 0; i < lay.OutputSize; i++ {
		var sum float64
		for j := range nextNodeValues {
			sum += nextW[j*lay.OutputSize+i] * nextNodeValues[j]
		}
		nodeValues[i] = sum * lay.activation.Derivative(v.Weighted[i])
	}
	return nodeValues
}

// UpdateGradients adds one datapoint's contribution to the accumulators.
//
// x is the layer input.  Shape (lay.InputSize)
// nodeValues is dC/dz for this layer.  Shape (lay.OutputSize)
func (lay *Layer) UpdateGradients(x, nodeValues []float64) {
	for i := 0; i < lay.OutputSize; i++ {
		nv := nodeValues[i]
		row := lay.gradW[i*lay.InputSize : (i+1)*lay.InputSize]
		for j := range row {
			row[j] -= x[j] * nv
		}
		lay.gradB[i] -= nv
	}
}

// ApplyGradients adds the accumulators, scaled by learnRate, to the weights
// and biases.  The accumulators are left untouched.
func (lay *Layer) ApplyGradients(learnRate float64) {
	floats.AddScaled(lay.W, learnRate, lay.gradW)
	floats.AddScaled(lay.B, learnRate, lay.gradB)
}

// Gradients returns copies of the weight and bias accumulators.
func (lay *Layer) Gradients() (gradW, gradB []float64) {
	return append([]float64(nil), lay.gradW...), append([]float64(nil), lay.gradB...)
}

// resetGradients zeroes the accumulators, returning the sum of their entries
// before the reset.
func (lay *Layer) resetGradients() float64 {
	sum := floats.Sum(lay.gradW) + floats.Sum(lay.gradB)
	clear(lay.gradW)
	clear(lay.gradB)
	return sum
}

// Clone returns an independent copy of the layer with zeroed accumulators.
func (lay *Layer) Clone() *Layer {
	l := newLayer(lay.activation, lay.InputSize, lay.OutputSize)
	copy(l.W, lay.W)
	copy(l.B, lay.B)
	return l
}

// Mutate returns a clone with every weight and bias perturbed by an
// independent uniform value in [-scale, scale].  lay is not modified.
func (lay *Layer) Mutate(scale float64, src rand.Source) *Layer {
	l := lay.Clone()

	noise := distuv.Uniform{Min: -scale, Max: scale, Src: src}
	for i := range l.W {
		l.W[i] += noise.Rand()
	}
	for i := range l.B {
		l.B[i] += noise.Rand()
	}

	return l
}
