package scaler

import (
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestIdentityPassThrough(t *testing.T) {
	s, err := NewIdentity(2)
	if err != nil {
		t.Fatalf("new identity: %v", err)
	}

	y := mat.NewDense(3, 2, []float64{1, 2, 3, 4, 5, 6})
	scaled, err := s.Transform(y)
	if err != nil {
		t.Fatalf("transform: %v", err)
	}
	if !mat.Equal(y, scaled) {
		t.Fatal("identity transform must not change values")
	}

	back, err := s.InverseTransform(scaled)
	if err != nil {
		t.Fatalf("inverse transform: %v", err)
	}
	if !mat.Equal(y, back) {
		t.Fatal("identity inverse must not change values")
	}
}

func TestIdentityWidthMismatch(t *testing.T) {
	s, err := NewIdentity(1)
	if err != nil {
		t.Fatalf("new identity: %v", err)
	}
	if _, err := s.Transform(mat.NewDense(2, 3, nil)); err == nil {
		t.Fatal("expected width mismatch error")
	}
}

func TestOneHotRoundTrip(t *testing.T) {
	labels := mat.NewDense(5, 1, []float64{2, 0, 1, 2, 0})
	s, err := FitOneHot(labels)
	if err != nil {
		t.Fatalf("fit one hot: %v", err)
	}
	if got := s.NumOutputs(); got != 3 {
		t.Fatalf("num outputs: got=%d want=3", got)
	}

	encoded, err := s.Transform(labels)
	if err != nil {
		t.Fatalf("transform: %v", err)
	}
	if r, c := encoded.Dims(); r != 5 || c != 3 {
		t.Fatalf("encoded shape: got=(%d,%d) want=(5,3)", r, c)
	}
	for r := 0; r < 5; r++ {
		sum := 0.0
		for c := 0; c < 3; c++ {
			sum += encoded.At(r, c)
		}
		if sum != 1 {
			t.Fatalf("row %d is not one-hot", r)
		}
	}

	decoded, err := s.InverseTransform(encoded)
	if err != nil {
		t.Fatalf("inverse transform: %v", err)
	}
	if !mat.Equal(labels, decoded) {
		t.Fatal("one-hot round trip must restore labels")
	}
}

func TestOneHotArgmaxOnScores(t *testing.T) {
	labels := mat.NewDense(4, 1, []float64{0, 1, 0, 1})
	s, err := FitOneHot(labels)
	if err != nil {
		t.Fatalf("fit one hot: %v", err)
	}

	scores := mat.NewDense(2, 2, []float64{0.9, 0.4, -0.2, 0.3})
	decoded, err := s.InverseTransform(scores)
	if err != nil {
		t.Fatalf("inverse transform: %v", err)
	}
	if decoded.At(0, 0) != 0 || decoded.At(1, 0) != 1 {
		t.Fatalf("argmax decode wrong: got=(%v,%v)", decoded.At(0, 0), decoded.At(1, 0))
	}
}

func TestOneHotUnknownLabel(t *testing.T) {
	labels := mat.NewDense(4, 1, []float64{0, 1, 0, 1})
	s, err := FitOneHot(labels)
	if err != nil {
		t.Fatalf("fit one hot: %v", err)
	}
	if _, err := s.Transform(mat.NewDense(1, 1, []float64{7})); err == nil {
		t.Fatal("expected unknown label error")
	}
}

func TestOneHotRequiresTwoClasses(t *testing.T) {
	if _, err := FitOneHot(mat.NewDense(3, 1, []float64{1, 1, 1})); err == nil {
		t.Fatal("expected class count error")
	}
}
