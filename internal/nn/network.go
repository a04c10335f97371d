package nn

import (
	"errors"
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"metaelm/internal/model"
)

var (
	ErrInputSizeUnset  = errors.New("input size not fixed: call Init before encode/decode")
	ErrOutputNotFitted = errors.New("output layer not fitted")
)

// Network is a multi-layer extreme learning machine. Hidden weights and
// biases are sampled from a seeded generator or decoded from a flat
// solution vector; the output coefficients (beta) are always the
// closed-form least-squares solution for the current hidden representation
// and are never part of the solution vector.
type Network struct {
	layerSizes []int
	activation string
	act        ActivationFunc
	rng        *rand.Rand

	inputSize int
	weights   []*mat.Dense
	biases    [][]float64
	beta      *mat.Dense
}

func NewNetwork(layerSizes []int, activation string, seed int64) (*Network, error) {
	if len(layerSizes) == 0 {
		return nil, errors.New("layer sizes are required")
	}
	for i, size := range layerSizes {
		if size <= 0 {
			return nil, fmt.Errorf("layer size must be > 0 at index %d: got %d", i, size)
		}
	}
	act, err := GetActivation(activation)
	if err != nil {
		return nil, err
	}

	return &Network{
		layerSizes: append([]int(nil), layerSizes...),
		activation: activation,
		act:        act,
		rng:        rand.New(rand.NewSource(seed)),
	}, nil
}

// Init fixes the input width and samples fresh standard-normal weights and
// biases layer by layer. Deterministic for a fixed seed and topology.
func (n *Network) Init(inputSize int) error {
	if inputSize <= 0 {
		return fmt.Errorf("input size must be > 0: got %d", inputSize)
	}

	n.inputSize = inputSize
	n.weights = make([]*mat.Dense, 0, len(n.layerSizes))
	n.biases = make([][]float64, 0, len(n.layerSizes))
	n.beta = nil

	prev := inputSize
	for _, size := range n.layerSizes {
		weight := mat.NewDense(prev, size, nil)
		for r := 0; r < prev; r++ {
			for c := 0; c < size; c++ {
				weight.Set(r, c, n.rng.NormFloat64())
			}
		}
		bias := make([]float64, size)
		for i := range bias {
			bias[i] = n.rng.NormFloat64()
		}
		n.weights = append(n.weights, weight)
		n.biases = append(n.biases, bias)
		prev = size
	}
	return nil
}

// Forward computes the final hidden representation for X. Pure with
// respect to the network's parameters.
func (n *Network) Forward(X *mat.Dense) (*mat.Dense, error) {
	if len(n.weights) == 0 {
		return nil, ErrInputSizeUnset
	}
	_, cols := X.Dims()
	if cols != n.inputSize {
		return nil, fmt.Errorf("input width mismatch: got %d, want %d", cols, n.inputSize)
	}

	cur := X
	for i := range n.weights {
		bias := n.biases[i]
		var h mat.Dense
		h.Mul(cur, n.weights[i])
		h.Apply(func(_, j int, v float64) float64 {
			return n.act(v + bias[j])
		}, &h)
		cur = &h
	}
	return cur, nil
}

// FitOutputLayer solves beta = pinv(H) * y. An SVD failure is surfaced as
// ErrDegenerate rather than silently producing NaNs.
func (n *Network) FitOutputLayer(H, y *mat.Dense) error {
	hr, _ := H.Dims()
	yr, _ := y.Dims()
	if hr != yr {
		return fmt.Errorf("row mismatch between hidden representation and targets: %d != %d", hr, yr)
	}
	pinv, err := PseudoInverse(H)
	if err != nil {
		return err
	}
	var beta mat.Dense
	beta.Mul(pinv, y)
	n.beta = &beta
	return nil
}

// Fit runs the classic closed-form ELM training: fix the input width,
// sample hidden parameters, and solve the output layer.
func (n *Network) Fit(X, y *mat.Dense) error {
	_, cols := X.Dims()
	if err := n.Init(cols); err != nil {
		return err
	}
	H, err := n.Forward(X)
	if err != nil {
		return err
	}
	return n.FitOutputLayer(H, y)
}

func (n *Network) Predict(X *mat.Dense) (*mat.Dense, error) {
	if n.beta == nil {
		return nil, ErrOutputNotFitted
	}
	H, err := n.Forward(X)
	if err != nil {
		return nil, err
	}
	var out mat.Dense
	out.Mul(H, n.beta)
	return &out, nil
}

// NDim is the solution-vector length: sum over layers of
// prev*size + size, with prev starting at the fixed input width.
func (n *Network) NDim() int {
	total := 0
	prev := n.inputSize
	for _, size := range n.layerSizes {
		total += prev*size + size
		prev = size
	}
	return total
}

// Encode flattens hidden parameters into one vector: layer by layer, the
// row-major weight matrix followed by the bias vector. Beta is excluded.
func (n *Network) Encode() ([]float64, error) {
	if len(n.weights) == 0 {
		return nil, ErrInputSizeUnset
	}
	out := make([]float64, 0, n.NDim())
	for i, weight := range n.weights {
		out = append(out, weight.RawMatrix().Data...)
		out = append(out, n.biases[i]...)
	}
	return out, nil
}

// Decode is the exact inverse of Encode: contiguous slices of vector are
// reshaped back into per-layer weights and biases, then beta is recomputed
// against (X, y) since the hidden representation has changed.
func (n *Network) Decode(vector []float64, X, y *mat.Dense) error {
	if n.inputSize <= 0 {
		return ErrInputSizeUnset
	}
	if len(vector) != n.NDim() {
		return fmt.Errorf("solution vector length mismatch: got %d, want %d", len(vector), n.NDim())
	}

	weights := make([]*mat.Dense, 0, len(n.layerSizes))
	biases := make([][]float64, 0, len(n.layerSizes))
	start := 0
	prev := n.inputSize
	for _, size := range n.layerSizes {
		weightLen := prev * size
		weightData := make([]float64, weightLen)
		copy(weightData, vector[start:start+weightLen])
		weights = append(weights, mat.NewDense(prev, size, weightData))
		start += weightLen

		bias := make([]float64, size)
		copy(bias, vector[start:start+size])
		biases = append(biases, bias)
		start += size

		prev = size
	}
	// Solve beta on a scratch copy first so a failed forward pass or a
	// degenerate pseudoinverse leaves this network untouched.
	scratch := n.CloneTopology()
	scratch.weights = weights
	scratch.biases = biases
	H, err := scratch.Forward(X)
	if err != nil {
		return err
	}
	if err := scratch.FitOutputLayer(H, y); err != nil {
		return err
	}

	n.weights = weights
	n.biases = biases
	n.beta = scratch.beta
	return nil
}

// CloneTopology returns a parameterless copy sharing topology, activation
// and input width. Scratch copies let concurrent fitness evaluations decode
// candidates without touching the long-lived network.
func (n *Network) CloneTopology() *Network {
	return &Network{
		layerSizes: append([]int(nil), n.layerSizes...),
		activation: n.activation,
		act:        n.act,
		inputSize:  n.inputSize,
	}
}

func (n *Network) InputSize() int     { return n.inputSize }
func (n *Network) LayerSizes() []int  { return append([]int(nil), n.layerSizes...) }
func (n *Network) Activation() string { return n.activation }
func (n *Network) Beta() *mat.Dense   { return n.beta }

// WeightReport exposes the current parameters for inspection.
type WeightReport struct {
	Weights []*mat.Dense
	Biases  [][]float64
	Beta    *mat.Dense
}

func (n *Network) Weights() WeightReport {
	return WeightReport{Weights: n.weights, Biases: n.biases, Beta: n.beta}
}

// Record converts the network into its persisted form.
func (n *Network) Record(id string) (model.NetworkRecord, error) {
	if len(n.weights) == 0 {
		return model.NetworkRecord{}, ErrInputSizeUnset
	}
	if n.beta == nil {
		return model.NetworkRecord{}, ErrOutputNotFitted
	}

	weights := make([][]float64, 0, len(n.weights))
	biases := make([][]float64, 0, len(n.biases))
	for i, weight := range n.weights {
		weights = append(weights, append([]float64(nil), weight.RawMatrix().Data...))
		biases = append(biases, append([]float64(nil), n.biases[i]...))
	}
	_, outputs := n.beta.Dims()

	return model.NetworkRecord{
		ID:         id,
		LayerSizes: n.LayerSizes(),
		Activation: n.activation,
		InputSize:  n.inputSize,
		OutputSize: outputs,
		Weights:    weights,
		Biases:     biases,
		Beta:       append([]float64(nil), n.beta.RawMatrix().Data...),
	}, nil
}

// FromRecord rebuilds a network from its persisted form.
func FromRecord(rec model.NetworkRecord) (*Network, error) {
	n, err := NewNetwork(rec.LayerSizes, rec.Activation, 0)
	if err != nil {
		return nil, err
	}
	if rec.InputSize <= 0 {
		return nil, fmt.Errorf("record input size must be > 0: got %d", rec.InputSize)
	}
	if len(rec.Weights) != len(rec.LayerSizes) || len(rec.Biases) != len(rec.LayerSizes) {
		return nil, fmt.Errorf("record layer count mismatch: %d weights, %d biases, %d layers",
			len(rec.Weights), len(rec.Biases), len(rec.LayerSizes))
	}

	n.inputSize = rec.InputSize
	prev := rec.InputSize
	for i, size := range rec.LayerSizes {
		if len(rec.Weights[i]) != prev*size {
			return nil, fmt.Errorf("record weight length mismatch at layer %d: got %d, want %d",
				i, len(rec.Weights[i]), prev*size)
		}
		if len(rec.Biases[i]) != size {
			return nil, fmt.Errorf("record bias length mismatch at layer %d: got %d, want %d",
				i, len(rec.Biases[i]), size)
		}
		n.weights = append(n.weights, mat.NewDense(prev, size, append([]float64(nil), rec.Weights[i]...)))
		n.biases = append(n.biases, append([]float64(nil), rec.Biases[i]...))
		prev = size
	}

	if len(rec.Beta) > 0 {
		if rec.OutputSize <= 0 || len(rec.Beta) != prev*rec.OutputSize {
			return nil, fmt.Errorf("record beta length mismatch: got %d, want %d", len(rec.Beta), prev*rec.OutputSize)
		}
		n.beta = mat.NewDense(prev, rec.OutputSize, append([]float64(nil), rec.Beta...))
	}
	return n, nil
}
