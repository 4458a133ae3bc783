package toolbox

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/exp/rand"
)

// makeFixedLayer builds a 2 -> 2 layer with known parameters.
func makeFixedLayer(act ActivationType) *Layer {
	lay := newLayer(act, 2, 2)
	copy(lay.W, []float64{1, -2, 0.5, 3})
	copy(lay.B, []float64{0.5, -1})
	return lay
}

func TestLayerCalculate(t *testing.T) {
	lay := makeFixedLayer(ReLU)

	got := lay.Calculate([]float64{2, 1})
	want := []float64{0.5, 3}
	if diff := cmp.Diff(got, want); diff != "" {
		t.Fatalf("Wrong output; diff (-got +want)\n%s", diff)
	}

	got = lay.Calculate([]float64{-2, 0})
	want = []float64{0, 0} // weighted sums -1.5 and -2 are clipped
	if diff := cmp.Diff(got, want); diff != "" {
		t.Fatalf("Wrong output; diff (-got +want)\n%s", diff)
	}
}

func TestLayerSaveValuesMatchesCalculate(t *testing.T) {
	lay := makeFixedLayer(LeakyReLU)
	x := []float64{-2, 0}

	v := lay.SaveValues(x)

	if diff := cmp.Diff(v.Activations, lay.Calculate(x)); diff != "" {
		t.Errorf("Wrong activations; diff (-got +want)\n%s", diff)
	}
	if diff := cmp.Diff(v.Weighted, []float64{-1.5, -2}); diff != "" {
		t.Errorf("Wrong weighted sums; diff (-got +want)\n%s", diff)
	}
	if diff := cmp.Diff(v.Inputs, x); diff != "" {
		t.Errorf("Wrong inputs; diff (-got +want)\n%s", diff)
	}
}

func TestLayerOutputNodeValues(t *testing.T) {
	lay := makeFixedLayer(Identity)
	v := lay.SaveValues([]float64{2, 1}) // activations {0.5, 3}

	got := lay.OutputNodeValues(v, []float64{1, 0}, SquaredErrorCostDerivative)
	want := []float64{-1, 6}
	if diff := cmp.Diff(got, want); diff != "" {
		t.Fatalf("Wrong node values; diff (-got +want)\n%s", diff)
	}
}

func TestLayerOutputNodeValuesUsesActivationDerivative(t *testing.T) {
	lay := makeFixedLayer(Sigmoid)
	v := lay.SaveValues([]float64{2, 1})

	got := lay.OutputNodeValues(v, []float64{1, 0}, SquaredErrorCostDerivative)
	for i := range got {
		want := 2 * (v.Activations[i] - []float64{1, 0}[i]) * Sigmoid.Derivative(v.Weighted[i])
		if math.Abs(got[i]-want) > 1e-15 {
			t.Errorf("node %d: got %v, want %v", i, got[i], want)
		}
	}
}

func TestLayerHiddenNodeValues(t *testing.T) {
	lay := makeFixedLayer(Identity)
	v := lay.SaveValues([]float64{2, 1})

	// Following layer is 2 -> 3.
	nextW := []float64{
		1, 2,
		3, 4,
		5, 6,
	}
	nextNodeValues := []float64{1, 0.5, -1}

	got := lay.HiddenNodeValues(v, nextW, nextNodeValues)
	want := []float64{-2.5, -2}
	if diff := cmp.Diff(got, want); diff != "" {
		t.Fatalf("Wrong node values; diff (-got +want)\n%s", diff)
	}
}

func TestLayerUpdateGradientsAccumulates(t *testing.T) {
	lay := makeFixedLayer(Identity)
	x := []float64{2, 1}
	nodeValues := []float64{-1, 6}

	lay.UpdateGradients(x, nodeValues)
	gotW, gotB := lay.Gradients()
	if diff := cmp.Diff(gotW, []float64{2, 1, -12, -6}); diff != "" {
		t.Errorf("Wrong weight gradient; diff (-got +want)\n%s", diff)
	}
	if diff := cmp.Diff(gotB, []float64{1, -6}); diff != "" {
		t.Errorf("Wrong bias gradient; diff (-got +want)\n%s", diff)
	}

	lay.UpdateGradients(x, nodeValues)
	gotW, gotB = lay.Gradients()
	if diff := cmp.Diff(gotW, []float64{4, 2, -24, -12}); diff != "" {
		t.Errorf("Wrong accumulated weight gradient; diff (-got +want)\n%s", diff)
	}
	if diff := cmp.Diff(gotB, []float64{2, -12}); diff != "" {
		t.Errorf("Wrong accumulated bias gradient; diff (-got +want)\n%s", diff)
	}
}

func TestLayerApplyGradientsKeepsAccumulators(t *testing.T) {
	lay := makeFixedLayer(Identity)
	lay.UpdateGradients([]float64{2, 1}, []float64{-1, 6})

	lay.ApplyGradients(0.5)

	if diff := cmp.Diff(lay.W, []float64{2, -1.5, -5.5, 0}); diff != "" {
		t.Errorf("Wrong weights; diff (-got +want)\n%s", diff)
	}
	if diff := cmp.Diff(lay.B, []float64{1, -4}); diff != "" {
		t.Errorf("Wrong biases; diff (-got +want)\n%s", diff)
	}

	gotW, _ := lay.Gradients()
	if diff := cmp.Diff(gotW, []float64{2, 1, -12, -6}); diff != "" {
		t.Errorf("Accumulators changed; diff (-got +want)\n%s", diff)
	}

	if sum := lay.resetGradients(); sum != 2+1-12-6+1-6 {
		t.Errorf("resetGradients() = %v, want %v", sum, 2+1-12-6+1-6)
	}
	gotW, gotB := lay.Gradients()
	if diff := cmp.Diff(gotW, []float64{0, 0, 0, 0}); diff != "" {
		t.Errorf("Weight accumulators not reset; diff (-got +want)\n%s", diff)
	}
	if diff := cmp.Diff(gotB, []float64{0, 0}); diff != "" {
		t.Errorf("Bias accumulators not reset; diff (-got +want)\n%s", diff)
	}
}

func TestMakeDenseDrawsFromUnitInterval(t *testing.T) {
	lay := MakeDense(Tanh, 30, 20, rand.NewSource(12345))

	gradW, gradB := lay.Gradients()
	for _, v := range append(gradW, gradB...) {
		if v != 0 {
			t.Fatalf("fresh accumulators must be zero")
		}
	}
	for _, w := range append(append([]float64(nil), lay.W...), lay.B...) {
		if w < -1 || w >= 1 {
			t.Errorf("parameter %v outside [-1, 1)", w)
		}
	}

	again := MakeDense(Tanh, 30, 20, rand.NewSource(12345))
	if diff := cmp.Diff(lay.W, again.W); diff != "" {
		t.Errorf("Same seed gave different weights; diff (-first +second)\n%s", diff)
	}
}

func TestMakeDensePanicsOnBadSize(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Errorf("MakeDense did not panic")
		}
	}()
	MakeDense(Sigmoid, 0, 3, nil)
}

func TestLayerCloneIsIndependent(t *testing.T) {
	lay := makeFixedLayer(Tanh)
	lay.UpdateGradients([]float64{2, 1}, []float64{-1, 6})

	c := lay.Clone()
	if diff := cmp.Diff(c.W, lay.W); diff != "" {
		t.Errorf("Wrong cloned weights; diff (-got +want)\n%s", diff)
	}
	if diff := cmp.Diff(c.B, lay.B); diff != "" {
		t.Errorf("Wrong cloned biases; diff (-got +want)\n%s", diff)
	}
	if gotW, _ := c.Gradients(); gotW[0] != 0 {
		t.Errorf("clone carried over accumulators")
	}

	c.W[0] = 100
	if lay.W[0] == 100 {
		t.Errorf("clone shares weight storage with the original")
	}
}

func TestLayerMutate(t *testing.T) {
	lay := MakeDense(Sigmoid, 4, 3, rand.NewSource(1))
	origW := append([]float64(nil), lay.W...)
	origB := append([]float64(nil), lay.B...)

	scale := 0.25
	m := lay.Mutate(scale, rand.NewSource(2))

	if diff := cmp.Diff(lay.W, origW); diff != "" {
		t.Errorf("Mutate modified the original; diff (-got +want)\n%s", diff)
	}

	changed := false
	for i := range m.W {
		d := math.Abs(m.W[i] - origW[i])
		if d > scale+1e-12 {
			t.Errorf("weight %d moved by %v, more than %v", i, d, scale)
		}
		if d != 0 {
			changed = true
		}
	}
	for i := range m.B {
		if d := math.Abs(m.B[i] - origB[i]); d > scale+1e-12 {
			t.Errorf("bias %d moved by %v, more than %v", i, d, scale)
		}
	}
	if !changed {
		t.Errorf("Mutate(%v) left every weight unchanged", scale)
	}
}
