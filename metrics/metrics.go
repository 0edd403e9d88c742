// Package metrics implements the evaluation functions a training driver
// feeds with (labels, predictions) pairs.
package metrics

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Metric maps a label vector and a prediction vector to a scalar score.
type Metric func(labels, preds []float64) (float64, error)

// AUC is the area under the ROC curve, computed from the Mann-Whitney rank
// statistic with tied predictions assigned their average rank.
func AUC(labels, preds []float64) (float64, error) {
	if len(labels) != len(preds) {
		return 0, errors.New("metrics: labels and predictions differ in length")
	}
	if len(labels) == 0 {
		return 0, errors.New("metrics: empty input")
	}
	n := len(preds)
	sorted := append([]float64(nil), preds...)
	order := make([]int, n)
	floats.Argsort(sorted, order)

	ranks := make([]float64, n)
	for i := 0; i < n; {
		j := i
		for j+1 < n && sorted[j+1] == sorted[i] {
			j++
		}
		avg := float64(i+j)/2 + 1
		for k := i; k <= j; k++ {
			ranks[order[k]] = avg
		}
		i = j + 1
	}

	positives := 0
	rankSum := 0.0
	for i, label := range labels {
		if label > 0.5 {
			positives++
			rankSum += ranks[i]
		}
	}
	negatives := n - positives
	if positives == 0 || negatives == 0 {
		return 0, errors.New("metrics: AUC needs both classes present")
	}
	return (rankSum - float64(positives)*float64(positives+1)/2) /
		(float64(positives) * float64(negatives)), nil
}

// LogLoss is the mean binary cross entropy with eps-clamped probabilities.
func LogLoss(labels, preds []float64) (float64, error) {
	if len(labels) != len(preds) {
		return 0, errors.New("metrics: labels and predictions differ in length")
	}
	if len(labels) == 0 {
		return 0, errors.New("metrics: empty input")
	}
	const eps = 1e-15
	terms := make([]float64, len(labels))
	for i, label := range labels {
		p := math.Min(math.Max(preds[i], eps), 1-eps)
		terms[i] = -(label*math.Log(p) + (1-label)*math.Log(1-p))
	}
	return floats.Sum(terms) / float64(len(terms)), nil
}

// Accuracy thresholds predictions at 0.5.
func Accuracy(labels, preds []float64) (float64, error) {
	if len(labels) != len(preds) {
		return 0, errors.New("metrics: labels and predictions differ in length")
	}
	if len(labels) == 0 {
		return 0, errors.New("metrics: empty input")
	}
	correct := 0
	for i, label := range labels {
		predicted := 0.0
		if preds[i] >= 0.5 {
			predicted = 1
		}
		if (label > 0.5) == (predicted > 0.5) {
			correct++
		}
	}
	return float64(correct) / float64(len(labels)), nil
}
