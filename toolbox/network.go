package toolbox

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"golang.org/x/exp/rand"
)

// Network is an ordered stack of dense layers sharing one activation.
//
// A Network is not safe for concurrent use.  Training mutates its layers in
// place, and Mutate/Clone draw from the network's random source.
type Network struct {
	activation ActivationType

	shape  []int
	layers []*Layer

	src rand.Source
}

// NewNetwork creates a network whose layer widths are given by shape,
// including the input and output dimensions.  Weights are drawn from src; a
// nil src is seeded from the clock.
//
// NewNetwork panics if shape has fewer than two entries, if any width is not
// positive, or if activation is unknown.
func NewNetwork(shape []int, activation ActivationType, src rand.Source) *Network {
	if len(shape) < 2 {
		panic(fmt.Sprintf("invalid shape: %v", shape))
	}
	for _, s := range shape {
		if s <= 0 {
			panic(fmt.Sprintf("invalid shape: %v", shape))
		}
	}
	if src == nil {
		src = rand.NewSource(uint64(time.Now().UnixNano()))
	}

	net := &Network{
		activation: activation,
		shape:      slices.Clone(shape),
		layers:     make([]*Layer, len(shape)-1),
		src:        src,
	}
	for l := range net.layers {
		net.layers[l] = MakeDense(activation, shape[l], shape[l+1], src)
	}

	return net
}

// ParseShape parses layer widths separated by spaces or commas, e.g. "2 3 2".
func ParseShape(s string) ([]int, error) {
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
	shape := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("while parsing layer width %q: %w", p, err)
		}
		if n <= 0 {
			return nil, fmt.Errorf("layer width must be positive, got %d", n)
		}
		shape[i] = n
	}
	if len(shape) < 2 {
		return nil, fmt.Errorf("shape needs at least an input and an output width, got %v", shape)
	}
	return shape, nil
}

// Activation is the activation shared by every layer.  It is fixed at
// construction.
func (net *Network) Activation() ActivationType {
	return net.activation
}

// Shape returns a copy of the layer widths.
func (net *Network) Shape() []int {
	return slices.Clone(net.shape)
}

// Layers returns the network's layers, input side first.  The layers are
// shared, not copied; callers must not modify them.
func (net *Network) Layers() []*Layer {
	return net.layers
}

// Run threads x through every layer.  It has no side effects.
//
// x is the network input.  Shape (shape[0])
func (net *Network) Run(x []float64) []float64 {
	for _, lay := range net.layers {
		x = lay.Calculate(x)
	}
	return x
}

// Clone returns an exact, independent copy of the network.
func (net *Network) Clone() *Network {
	out := net.derive()
	for l, lay := range net.layers {
		out.layers[l] = lay.Clone()
	}
	return out
}

// Mutate returns a new network whose layers are independently perturbed
// copies of net's layers (see Layer.Mutate).  net is not modified.
func (net *Network) Mutate(scale float64) *Network {
	out := net.derive()
	for l, lay := range net.layers {
		out.layers[l] = lay.Mutate(scale, net.src)
	}
	return out
}

// derive returns an empty network with net's shape and activation, and a
// random source of its own seeded from net's.
func (net *Network) derive() *Network {
	return &Network{
		activation: net.activation,
		shape:      slices.Clone(net.shape),
		layers:     make([]*Layer, len(net.layers)),
		src:        rand.NewSource(net.src.Uint64()),
	}
}
