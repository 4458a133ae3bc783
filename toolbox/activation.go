package toolbox

import (
	"fmt"
	"math"
)

// ActivationType selects a scalar activation function together with its
// derivative.  The pair is a single unit: a layer never carries a function
// without its matching derivative.
type ActivationType int

const (
	Identity ActivationType = iota
	LeakyReLU
	ReLU
	Sigmoid
	Atan
	Tanh
	Sinh
	Asinh
	Softplus
	SiLU
	Gaussian
	ELU
)

// leakyReLUSlope is the slope of LeakyReLU for negative inputs.
const leakyReLUSlope = 0.05

var activationNames = map[ActivationType]string{
	Identity:  "identity",
	LeakyReLU: "lrelu",
	ReLU:      "relu",
	Sigmoid:   "sigmoid",
	Atan:      "atan",
	Tanh:      "tanh",
	Sinh:      "sinh",
	Asinh:     "asinh",
	Softplus:  "softplus",
	SiLU:      "silu",
	Gaussian:  "gaussian",
	ELU:       "elu",
}

// CatalogActivations returns the eleven catalog activations in their
// canonical order.  Identity is not part of the catalog.
func CatalogActivations() []ActivationType {
	return []ActivationType{
		LeakyReLU,
		ReLU,
		Sigmoid,
		Atan,
		Tanh,
		Sinh,
		Asinh,
		Softplus,
		SiLU,
		Gaussian,
		ELU,
	}
}

// ParseActivation looks up an activation by name ("sigmoid", "lrelu", ...).
func ParseActivation(name string) (ActivationType, error) {
	for act, actName := range activationNames {
		if actName == name {
			return act, nil
		}
	}
	return 0, fmt.Errorf("unknown activation %q", name)
}

// MustParseActivation is like ParseActivation but panics on unknown names.
func MustParseActivation(name string) ActivationType {
	act, err := ParseActivation(name)
	if err != nil {
		panic(err)
	}
	return act
}

func (act ActivationType) String() string {
	if name, ok := activationNames[act]; ok {
		return name
	}
	return fmt.Sprintf("ActivationType(%d)", int(act))
}

// Valid reports whether act names a known activation.
func (act ActivationType) Valid() bool {
	_, ok := activationNames[act]
	return ok
}

// Apply evaluates the activation function at z.
func (act ActivationType) Apply(z float64) float64 {
	switch act {
	case Identity:
		return z
	case LeakyReLU:
		if z < 0 {
			return z * leakyReLUSlope
		}
		return z
	case ReLU:
		if z < 0 {
			return 0
		}
		return z
	case Sigmoid:
		return sigmoid(z)
	case Atan:
		return math.Atan(z)
	case Tanh:
		return math.Tanh(z)
	case Sinh:
		return math.Sinh(z)
	case Asinh:
		return math.Asinh(z)
	case Softplus:
		return math.Max(z, 0) + math.Log1p(math.Exp(-math.Abs(z)))
	case SiLU:
		return z * sigmoid(z)
	case Gaussian:
		return math.Exp(-z * z)
	case ELU:
		if z < 0 {
			return math.Expm1(z)
		}
		return z
	default:
		panic("unhandled activation function")
	}
}

// Derivative evaluates d/dz of the activation function at the pre-activation
// value z.
func (act ActivationType) Derivative(z float64) float64 {
	switch act {
	case Identity:
		return 1
	case LeakyReLU:
		if z < 0 {
			return leakyReLUSlope
		}
		return 1
	case ReLU:
		if z < 0 {
			return 0
		}
		return 1
	case Sigmoid:
		s := sigmoid(z)
		return s * (1 - s)
	case Atan:
		return 1 / (z*z + 1)
	case Tanh:
		t := math.Tanh(z)
		return 1 - t*t
	case Sinh:
		return math.Cosh(z)
	case Asinh:
		return 1 / math.Sqrt(z*z+1)
	case Softplus:
		return sigmoid(z)
	case SiLU:
		s := sigmoid(z)
		return s * (1 + z*(1-s))
	case Gaussian:
		return -2 * z * math.Exp(-z*z)
	case ELU:
		if z < 0 {
			return math.Exp(z)
		}
		return 1
	default:
		panic("unhandled activation function")
	}
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}
