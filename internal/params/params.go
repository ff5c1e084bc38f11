package params

import (
	"encoding/binary"
	"io"
	"math"
	"math/rand/v2"
	"os"

	"github.com/pkg/errors"
)

// Weights file layout: float32 values, little-endian, no header. The
// values are consumed in graph line order.
const elemSize = 4

func Decode(data []byte) ([]float32, error) {
	if len(data)%elemSize != 0 {
		return nil, errors.Errorf("weights: %d bytes is not a whole number of float32s", len(data))
	}
	ws := make([]float32, len(data)/elemSize)
	for i := range ws {
		bits := binary.LittleEndian.Uint32(data[i*elemSize:])
		ws[i] = math.Float32frombits(bits)
	}
	return ws, nil
}

func Encode(ws []float32) []byte {
	data := make([]byte, len(ws)*elemSize)
	for i, w := range ws {
		binary.LittleEndian.PutUint32(data[i*elemSize:], math.Float32bits(w))
	}
	return data
}

func Read(r io.Reader) ([]float32, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "weights")
	}
	return Decode(data)
}

func ReadFile(path string) ([]float32, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "weights")
	}
	ws, err := Decode(data)
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	return ws, nil
}

func WriteFile(path string, ws []float32) error {
	if err := os.WriteFile(path, Encode(ws), 0o644); err != nil {
		return errors.Wrap(err, "weights")
	}
	return nil
}

// Random returns n weights drawn uniformly from [-bound, bound]. The
// same seed always gives the same weights.
func Random(n int, bound float64, seed uint64) []float32 {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	ws := make([]float32, n)
	for i := range ws {
		ws[i] = float32((2*rng.Float64() - 1) * bound)
	}
	return ws
}
