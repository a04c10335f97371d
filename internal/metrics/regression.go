package metrics

import (
	"fmt"
	"math"
)

func checkPair(yTrue, yPred []float64) error {
	if len(yTrue) == 0 {
		return fmt.Errorf("ground truth must not be empty")
	}
	if len(yTrue) != len(yPred) {
		return fmt.Errorf("length mismatch: %d != %d", len(yTrue), len(yPred))
	}
	return nil
}

func meanSquaredError(yTrue, yPred []float64) (float64, error) {
	if err := checkPair(yTrue, yPred); err != nil {
		return 0, err
	}
	sum := 0.0
	for i := range yTrue {
		d := yTrue[i] - yPred[i]
		sum += d * d
	}
	return sum / float64(len(yTrue)), nil
}

func rootMeanSquaredError(yTrue, yPred []float64) (float64, error) {
	mse, err := meanSquaredError(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return math.Sqrt(mse), nil
}

func meanAbsoluteError(yTrue, yPred []float64) (float64, error) {
	if err := checkPair(yTrue, yPred); err != nil {
		return 0, err
	}
	sum := 0.0
	for i := range yTrue {
		sum += math.Abs(yTrue[i] - yPred[i])
	}
	return sum / float64(len(yTrue)), nil
}

func meanAbsolutePercentageError(yTrue, yPred []float64) (float64, error) {
	if err := checkPair(yTrue, yPred); err != nil {
		return 0, err
	}
	sum := 0.0
	count := 0
	for i := range yTrue {
		if yTrue[i] == 0 {
			continue
		}
		sum += math.Abs((yTrue[i] - yPred[i]) / yTrue[i])
		count++
	}
	if count == 0 {
		return 0, fmt.Errorf("all ground-truth values are zero")
	}
	return sum / float64(count), nil
}

func coefficientOfDetermination(yTrue, yPred []float64) (float64, error) {
	if err := checkPair(yTrue, yPred); err != nil {
		return 0, err
	}
	mean := 0.0
	for _, v := range yTrue {
		mean += v
	}
	mean /= float64(len(yTrue))

	ssRes, ssTot := 0.0, 0.0
	for i := range yTrue {
		r := yTrue[i] - yPred[i]
		ssRes += r * r
		d := yTrue[i] - mean
		ssTot += d * d
	}
	if ssTot == 0 {
		return 0, fmt.Errorf("ground truth has zero variance")
	}
	return 1 - ssRes/ssTot, nil
}

func explainedVarianceScore(yTrue, yPred []float64) (float64, error) {
	if err := checkPair(yTrue, yPred); err != nil {
		return 0, err
	}
	n := float64(len(yTrue))

	residMean, trueMean := 0.0, 0.0
	for i := range yTrue {
		residMean += yTrue[i] - yPred[i]
		trueMean += yTrue[i]
	}
	residMean /= n
	trueMean /= n

	residVar, trueVar := 0.0, 0.0
	for i := range yTrue {
		r := yTrue[i] - yPred[i] - residMean
		residVar += r * r
		d := yTrue[i] - trueMean
		trueVar += d * d
	}
	if trueVar == 0 {
		return 0, fmt.Errorf("ground truth has zero variance")
	}
	return 1 - residVar/trueVar, nil
}

func nashSutcliffeEfficiency(yTrue, yPred []float64) (float64, error) {
	// Identical formula to R2 but kept under its hydrology name.
	return coefficientOfDetermination(yTrue, yPred)
}
