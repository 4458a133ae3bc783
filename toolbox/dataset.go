package toolbox

import (
	"fmt"

	"github.com/sbinet/npyio/npz"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Datapoint is one training example.  The target encoding (e.g. one-hot) is
// up to the caller.
type Datapoint struct {
	Input  []float64 // Shape (shape[0])
	Output []float64 // Shape (shape[len(shape)-1])
}

// GenerateSignDataset returns n points drawn uniformly from [-1, 1)^2,
// labelled one-hot by the sign of the first coordinate: {1, 0} when x > 0,
// {0, 1} otherwise.
func GenerateSignDataset(n int, src rand.Source) []Datapoint {
	coord := distuv.Uniform{Min: -1, Max: 1, Src: src}

	data := make([]Datapoint, n)
	for k := range data {
		x := coord.Rand()
		y := coord.Rand()
		label := []float64{0, 1}
		if x > 0 {
			label = []float64{1, 0}
		}
		data[k] = Datapoint{
			Input:  []float64{x, y},
			Output: label,
		}
	}
	return data
}

// Keys of the arrays inside a dataset file.
const (
	datasetInputKey  = "x.npy"
	datasetOutputKey = "y.npy"
)

// WriteDataset stores data in an npz file as two arrays, x.npy of shape
// (n, inputs) and y.npy of shape (n, outputs).
func WriteDataset(path string, data []Datapoint) error {
	if len(data) == 0 {
		return fmt.Errorf("refusing to write an empty dataset")
	}

	inputSize := len(data[0].Input)
	outputSize := len(data[0].Output)
	x := mat.NewDense(len(data), inputSize, nil)
	y := mat.NewDense(len(data), outputSize, nil)
	for k, dp := range data {
		if len(dp.Input) != inputSize || len(dp.Output) != outputSize {
			return fmt.Errorf("datapoint %d has shape (%d, %d), want (%d, %d)", k, len(dp.Input), len(dp.Output), inputSize, outputSize)
		}
		x.SetRow(k, dp.Input)
		y.SetRow(k, dp.Output)
	}

	w, err := npz.Create(path)
	if err != nil {
		return fmt.Errorf("while creating dataset file: %w", err)
	}

	if err := w.Write(datasetInputKey, x); err != nil {
		w.Close()
		return fmt.Errorf("while writing %s: %w", datasetInputKey, err)
	}
	if err := w.Write(datasetOutputKey, y); err != nil {
		w.Close()
		return fmt.Errorf("while writing %s: %w", datasetOutputKey, err)
	}

	if err := w.Close(); err != nil {
		return fmt.Errorf("while closing dataset file: %w", err)
	}
	return nil
}

// ReadDataset loads a dataset written by WriteDataset.
func ReadDataset(path string) ([]Datapoint, error) {
	r, err := npz.Open(path)
	if err != nil {
		return nil, fmt.Errorf("while opening dataset file: %w", err)
	}
	defer r.Close()

	var x, y mat.Dense
	if err := r.Read(datasetInputKey, &x); err != nil {
		return nil, fmt.Errorf("while reading %s: %w", datasetInputKey, err)
	}
	if err := r.Read(datasetOutputKey, &y); err != nil {
		return nil, fmt.Errorf("while reading %s: %w", datasetOutputKey, err)
	}

	n, _ := x.Dims()
	if rows, _ := y.Dims(); rows != n {
		return nil, fmt.Errorf("dataset has %d inputs but %d outputs", n, rows)
	}

	data := make([]Datapoint, n)
	for k := range data {
		data[k] = Datapoint{
			Input:  mat.Row(nil, k, &x),
			Output: mat.Row(nil, k, &y),
		}
	}
	return data, nil
}
