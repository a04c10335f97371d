package metrics

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

var ErrMetricNotFound = errors.New("metric not found")

// Direction is the comparison convention a named metric requires.
type Direction string

const (
	Minimize Direction = "min"
	Maximize Direction = "max"
)

// MetricFn scores predictions against ground truth. Regression metrics
// receive flattened target/prediction values; classification metrics
// receive label values.
type MetricFn func(yTrue, yPred []float64) (float64, error)

type Spec struct {
	Direction Direction
	Fn        MetricFn
}

var regressionCatalog = map[string]Spec{
	"MSE":  {Minimize, meanSquaredError},
	"RMSE": {Minimize, rootMeanSquaredError},
	"MAE":  {Minimize, meanAbsoluteError},
	"MAPE": {Minimize, meanAbsolutePercentageError},
	"R2":   {Maximize, coefficientOfDetermination},
	"EVS":  {Maximize, explainedVarianceScore},
	"NSE":  {Maximize, nashSutcliffeEfficiency},
}

var classificationCatalog = map[string]Spec{
	"AS":  {Maximize, accuracyScore},
	"PS":  {Maximize, precisionScore},
	"RS":  {Maximize, recallScore},
	"F1S": {Maximize, f1Score},
}

func LookupRegression(name string) (Spec, error) {
	spec, ok := regressionCatalog[name]
	if !ok {
		return Spec{}, fmt.Errorf("%w: %s (supported regression metrics: %v)", ErrMetricNotFound, name, RegressionNames())
	}
	return spec, nil
}

func LookupClassification(name string) (Spec, error) {
	spec, ok := classificationCatalog[name]
	if !ok {
		return Spec{}, fmt.Errorf("%w: %s (supported classification metrics: %v)", ErrMetricNotFound, name, ClassificationNames())
	}
	return spec, nil
}

func RegressionNames() []string {
	return sortedNames(regressionCatalog)
}

func ClassificationNames() []string {
	return sortedNames(classificationCatalog)
}

func sortedNames(catalog map[string]Spec) []string {
	names := make([]string, 0, len(catalog))
	for name := range catalog {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// WorstValue is the sentinel assigned to candidates whose evaluation
// failed numerically: the optimizer discards them under either direction.
func WorstValue(direction Direction) float64 {
	if direction == Maximize {
		return math.Inf(-1)
	}
	return math.Inf(1)
}
