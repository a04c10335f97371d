package train

import (
	"errors"
	"fmt"

	"metaelm/internal/metrics"
)

// ResolveObjective maps an objective name to its metric and optimization
// direction, checking the regression catalog first and the classification
// catalog second. Names are case-sensitive.
func ResolveObjective(name string) (metrics.Spec, error) {
	if name == "" {
		return metrics.Spec{}, errors.New("objective name is required")
	}
	if spec, err := metrics.LookupRegression(name); err == nil {
		return spec, nil
	}
	spec, err := metrics.LookupClassification(name)
	if err == nil {
		return spec, nil
	}
	return metrics.Spec{}, fmt.Errorf("%w: %s (supported regression: %v, classification: %v)",
		metrics.ErrMetricNotFound, name, metrics.RegressionNames(), metrics.ClassificationNames())
}
