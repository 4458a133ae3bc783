package toolbox

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/exp/rand"
)

// Tensor is a dense row-major float64 array.
type Tensor struct {
	V     []float64
	Shape []int
}

type SafeTensorInfo struct {
	DType       string `json:"dtype"`
	Shape       []int  `json:"shape"`
	DataOffsets []int  `json:"data_offsets"`
}

const safeTensorsMetadataKey = "__metadata__"

const (
	// maxSafeTensorsHeader matches the header limit of the reference
	// safetensors implementation.
	maxSafeTensorsHeader = 100 << 20

	// maxSafeTensorValues bounds the element count of a single tensor.
	maxSafeTensorValues = 1 << 30
)

// WriteSafeTensors writes tensors in the safetensors layout: a little-endian
// u64 header length, a JSON header, then the packed F64 values in key order.
// metadata may be nil.
func WriteSafeTensors(w io.Writer, tensors map[string]*Tensor, metadata map[string]string) error {
	header := map[string]any{}
	if len(metadata) > 0 {
		header[safeTensorsMetadataKey] = metadata
	}
	dataOffset := 0

	keys := []string{}
	for k := range tensors {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	for _, k := range keys {
		begin := dataOffset
		dataOffset += len(tensors[k].V) * 8
		end := dataOffset

		header[k] = SafeTensorInfo{
			DType:       "F64",
			Shape:       tensors[k].Shape,
			DataOffsets: []int{begin, end},
		}
	}

	headerBytes, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("while marshaling header: %w", err)
	}

	if err := binary.Write(w, binary.LittleEndian, uint64(len(headerBytes))); err != nil {
		return fmt.Errorf("while writing header length: %w", err)
	}

	if _, err := w.Write(headerBytes); err != nil {
		return fmt.Errorf("while writing header: %w", err)
	}

	for _, k := range keys {
		if err := binary.Write(w, binary.LittleEndian, tensors[k].V); err != nil {
			return fmt.Errorf("while writing %s values: %w", k, err)
		}
	}

	return nil
}

// ReadSafeTensors reads a file written by WriteSafeTensors.
func ReadSafeTensors(r io.ReaderAt) (map[string]*Tensor, map[string]string, error) {
	var lenBytes [8]byte
	if _, err := r.ReadAt(lenBytes[:], 0); err != nil {
		return nil, nil, fmt.Errorf("while reading header length: %w", err)
	}
	headerLen := binary.LittleEndian.Uint64(lenBytes[:])
	if headerLen > maxSafeTensorsHeader {
		return nil, nil, fmt.Errorf("header length %d exceeds limit %d", headerLen, maxSafeTensorsHeader)
	}

	headerBytes := make([]byte, int(headerLen))
	if _, err := r.ReadAt(headerBytes, 8); err != nil {
		return nil, nil, fmt.Errorf("while reading header: %w", err)
	}

	header := map[string]json.RawMessage{}
	if err := json.Unmarshal(headerBytes, &header); err != nil {
		return nil, nil, fmt.Errorf("while reading header: %w", err)
	}

	metadata := map[string]string{}
	if raw, ok := header[safeTensorsMetadataKey]; ok {
		if err := json.Unmarshal(raw, &metadata); err != nil {
			return nil, nil, fmt.Errorf("while reading metadata: %w", err)
		}
		delete(header, safeTensorsMetadataKey)
	}

	tensors := map[string]*Tensor{}
	for k, raw := range header {
		var hdr SafeTensorInfo
		if err := json.Unmarshal(raw, &hdr); err != nil {
			return nil, nil, fmt.Errorf("while reading header entry %s: %w", k, err)
		}
		if hdr.DType != "F64" {
			return nil, nil, fmt.Errorf("unsupported dtype %s", hdr.DType)
		}
		if len(hdr.DataOffsets) != 2 {
			return nil, nil, fmt.Errorf("bad data offsets %v for %s", hdr.DataOffsets, k)
		}

		if hdr.DataOffsets[0] < 0 || hdr.DataOffsets[1] < hdr.DataOffsets[0] {
			return nil, nil, fmt.Errorf("bad data offsets %v for %s", hdr.DataOffsets, k)
		}

		size := 1
		for _, s := range hdr.Shape {
			if s < 1 || size > maxSafeTensorValues/s {
				return nil, nil, fmt.Errorf("bad shape %v", hdr.Shape)
			}
			size *= s
		}
		if hdr.DataOffsets[1]-hdr.DataOffsets[0] != size*8 {
			return nil, nil, fmt.Errorf("data offsets %v do not match shape %v for %s", hdr.DataOffsets, hdr.Shape, k)
		}

		tensor := &Tensor{
			V:     make([]float64, size),
			Shape: hdr.Shape,
		}
		section := io.NewSectionReader(r, 8+int64(headerLen)+int64(hdr.DataOffsets[0]), int64(size*8))
		if err := binary.Read(section, binary.LittleEndian, tensor.V); err != nil {
			return nil, nil, fmt.Errorf("while reading values for %s: %w", k, err)
		}

		tensors[k] = tensor
	}

	return tensors, metadata, nil
}

// DumpTensors stores every layer's weights and biases in tensors, sharing
// the layers' storage.
func (net *Network) DumpTensors(tensors map[string]*Tensor) {
	for l, lay := range net.layers {
		tensors[fmt.Sprintf("net.%d.weights", l)] = &Tensor{V: lay.W, Shape: []int{lay.OutputSize, lay.InputSize}}
		tensors[fmt.Sprintf("net.%d.biases", l)] = &Tensor{V: lay.B, Shape: []int{lay.OutputSize}}
	}
}

// LoadTensors copies weights and biases out of tensors into net's layers.
// Accumulated gradients are left alone.
func (net *Network) LoadTensors(tensors map[string]*Tensor) error {
	for l, lay := range net.layers {
		weightKey := fmt.Sprintf("net.%d.weights", l)
		weightTensor, ok := tensors[weightKey]
		if !ok {
			return fmt.Errorf("no entry for %s", weightKey)
		}
		wantWeightShape := []int{lay.OutputSize, lay.InputSize}
		if !slices.Equal(weightTensor.Shape, wantWeightShape) {
			return fmt.Errorf("wrong shape for %s; got %v want %v", weightKey, weightTensor.Shape, wantWeightShape)
		}

		biasKey := fmt.Sprintf("net.%d.biases", l)
		biasTensor, ok := tensors[biasKey]
		if !ok {
			return fmt.Errorf("no entry for %s", biasKey)
		}
		wantBiasShape := []int{lay.OutputSize}
		if !slices.Equal(biasTensor.Shape, wantBiasShape) {
			return fmt.Errorf("wrong shape for %s; got %v want %v", biasKey, biasTensor.Shape, wantBiasShape)
		}

		copy(lay.W, weightTensor.V)
		copy(lay.B, biasTensor.V)
	}

	return nil
}

// WriteNetworkFile saves net's parameters, shape and activation to path.
func WriteNetworkFile(path string, net *Network) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("while creating network file: %w", err)
	}

	tensors := map[string]*Tensor{}
	net.DumpTensors(tensors)

	shape := make([]string, len(net.shape))
	for i, s := range net.shape {
		shape[i] = strconv.Itoa(s)
	}
	metadata := map[string]string{
		"shape":      strings.Join(shape, ","),
		"activation": net.activation.String(),
	}

	if err := WriteSafeTensors(f, tensors, metadata); err != nil {
		f.Close()
		return fmt.Errorf("while writing network tensors: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("while closing network file: %w", err)
	}
	return nil
}

// ReadNetworkFile restores a network saved by WriteNetworkFile.  src becomes
// the network's random source for later Clone and Mutate calls; nil is
// seeded from the clock.
func ReadNetworkFile(path string, src rand.Source) (*Network, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("while opening network file: %w", err)
	}
	defer f.Close()

	tensors, metadata, err := ReadSafeTensors(f)
	if err != nil {
		return nil, fmt.Errorf("while reading network tensors: %w", err)
	}

	shape, err := ParseShape(metadata["shape"])
	if err != nil {
		return nil, fmt.Errorf("while parsing stored shape: %w", err)
	}
	activation, err := ParseActivation(metadata["activation"])
	if err != nil {
		return nil, fmt.Errorf("while parsing stored activation: %w", err)
	}

	net := NewNetwork(shape, activation, src)
	if err := net.LoadTensors(tensors); err != nil {
		return nil, fmt.Errorf("while restoring network: %w", err)
	}
	return net, nil
}
