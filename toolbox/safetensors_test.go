package toolbox

import (
	"bytes"
	"encoding/binary"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
)

func TestSafeTensorsRoundTrip(t *testing.T) {
	tensors := map[string]*Tensor{
		"a": {V: []float64{1, 2, 3, 4, 5, 6}, Shape: []int{2, 3}},
		"b": {V: []float64{-0.5}, Shape: []int{1}},
	}
	metadata := map[string]string{"hello": "world"}

	buf := &bytes.Buffer{}
	require.NoError(t, WriteSafeTensors(buf, tensors, metadata))

	gotTensors, gotMetadata, err := ReadSafeTensors(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)

	if diff := cmp.Diff(gotTensors, tensors); diff != "" {
		t.Errorf("Wrong tensors; diff (-got +want)\n%s", diff)
	}
	if diff := cmp.Diff(gotMetadata, metadata); diff != "" {
		t.Errorf("Wrong metadata; diff (-got +want)\n%s", diff)
	}
}

func TestReadSafeTensorsRejectsTruncatedInput(t *testing.T) {
	buf := &bytes.Buffer{}
	require.NoError(t, WriteSafeTensors(buf, map[string]*Tensor{
		"a": {V: []float64{1, 2, 3}, Shape: []int{3}},
	}, nil))

	truncated := buf.Bytes()[:buf.Len()-4]
	_, _, err := ReadSafeTensors(bytes.NewReader(truncated))
	require.Error(t, err)
}

func TestReadSafeTensorsRejectsHugeHeaderLength(t *testing.T) {
	buf := &bytes.Buffer{}
	require.NoError(t, binary.Write(buf, binary.LittleEndian, uint64(1<<63)))
	buf.WriteString("{}")

	_, _, err := ReadSafeTensors(bytes.NewReader(buf.Bytes()))
	require.Error(t, err)
}

func TestReadSafeTensorsRejectsBadDataOffsets(t *testing.T) {
	testCases := []struct {
		name   string
		header string
	}{
		{"negative begin", `{"a":{"dtype":"F64","shape":[1],"data_offsets":[-8,0]}}`},
		{"end before begin", `{"a":{"dtype":"F64","shape":[1],"data_offsets":[16,8]}}`},
		{"overflowing shape", `{"a":{"dtype":"F64","shape":[4294967296,4294967296],"data_offsets":[0,0]}}`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			require.NoError(t, binary.Write(buf, binary.LittleEndian, uint64(len(tc.header))))
			buf.WriteString(tc.header)
			require.NoError(t, binary.Write(buf, binary.LittleEndian, []float64{1, 2, 3}))

			_, _, err := ReadSafeTensors(bytes.NewReader(buf.Bytes()))
			require.Error(t, err)
		})
	}
}

func TestNetworkFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "net.safetensors")
	net := NewNetwork([]int{2, 4, 3}, SiLU, rand.NewSource(1))

	require.NoError(t, WriteNetworkFile(path, net))

	got, err := ReadNetworkFile(path, rand.NewSource(2))
	require.NoError(t, err)

	require.Equal(t, net.Shape(), got.Shape())
	require.Equal(t, net.Activation(), got.Activation())
	for l := range net.Layers() {
		if diff := cmp.Diff(got.Layers()[l].W, net.Layers()[l].W); diff != "" {
			t.Errorf("layer %d: Wrong weights; diff (-got +want)\n%s", l, diff)
		}
		if diff := cmp.Diff(got.Layers()[l].B, net.Layers()[l].B); diff != "" {
			t.Errorf("layer %d: Wrong biases; diff (-got +want)\n%s", l, diff)
		}
	}
}

func TestLoadTensorsRejectsWrongShape(t *testing.T) {
	net := NewNetwork([]int{2, 3}, Tanh, rand.NewSource(1))
	other := NewNetwork([]int{3, 2}, Tanh, rand.NewSource(1))

	tensors := map[string]*Tensor{}
	other.DumpTensors(tensors)
	require.Error(t, net.LoadTensors(tensors))

	require.Error(t, net.LoadTensors(map[string]*Tensor{}))
}
