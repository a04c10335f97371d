package metrics

func accuracyScore(yTrue, yPred []float64) (float64, error) {
	if err := checkPair(yTrue, yPred); err != nil {
		return 0, err
	}
	correct := 0
	for i := range yTrue {
		if yTrue[i] == yPred[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(yTrue)), nil
}

type classCounts struct {
	truePositive  int
	falsePositive int
	falseNegative int
}

func countsByClass(yTrue, yPred []float64) map[float64]*classCounts {
	counts := make(map[float64]*classCounts)
	get := func(label float64) *classCounts {
		c, ok := counts[label]
		if !ok {
			c = &classCounts{}
			counts[label] = c
		}
		return c
	}
	for i := range yTrue {
		if yTrue[i] == yPred[i] {
			get(yTrue[i]).truePositive++
			continue
		}
		get(yPred[i]).falsePositive++
		get(yTrue[i]).falseNegative++
	}
	return counts
}

// precisionScore is macro-averaged over the observed classes.
func precisionScore(yTrue, yPred []float64) (float64, error) {
	if err := checkPair(yTrue, yPred); err != nil {
		return 0, err
	}
	counts := countsByClass(yTrue, yPred)
	total := 0.0
	for _, c := range counts {
		if denom := c.truePositive + c.falsePositive; denom > 0 {
			total += float64(c.truePositive) / float64(denom)
		}
	}
	return total / float64(len(counts)), nil
}

// recallScore is macro-averaged over the observed classes.
func recallScore(yTrue, yPred []float64) (float64, error) {
	if err := checkPair(yTrue, yPred); err != nil {
		return 0, err
	}
	counts := countsByClass(yTrue, yPred)
	total := 0.0
	for _, c := range counts {
		if denom := c.truePositive + c.falseNegative; denom > 0 {
			total += float64(c.truePositive) / float64(denom)
		}
	}
	return total / float64(len(counts)), nil
}

// f1Score is the macro-averaged harmonic mean of per-class precision and
// recall.
func f1Score(yTrue, yPred []float64) (float64, error) {
	if err := checkPair(yTrue, yPred); err != nil {
		return 0, err
	}
	counts := countsByClass(yTrue, yPred)
	total := 0.0
	for _, c := range counts {
		precision, recall := 0.0, 0.0
		if denom := c.truePositive + c.falsePositive; denom > 0 {
			precision = float64(c.truePositive) / float64(denom)
		}
		if denom := c.truePositive + c.falseNegative; denom > 0 {
			recall = float64(c.truePositive) / float64(denom)
		}
		if precision+recall > 0 {
			total += 2 * precision * recall / (precision + recall)
		}
	}
	return total / float64(len(counts)), nil
}
