package loss

import (
	"errors"

	"github.com/fumitoshi0524/ixeoriCTR/tensor"
)

const logLossEps = 1e-7

// LogLoss computes the mean binary cross entropy between probabilities in
// (0,1) and 0/1 targets. Probabilities are eps-shifted before the log so a
// saturated sigmoid cannot produce an infinite loss.
func LogLoss(pred, target *tensor.Tensor) (*tensor.Tensor, error) {
	if pred == nil || target == nil {
		return nil, errors.New("LogLoss requires prediction and target tensors")
	}
	ones := tensor.Ones(pred.Shape()...)
	posTerm, err := tensor.Mul(target, tensor.Log(tensor.AddScalar(pred, logLossEps)))
	if err != nil {
		return nil, err
	}
	oneMinusTarget, err := tensor.Sub(ones, target)
	if err != nil {
		return nil, err
	}
	oneMinusPred, err := tensor.Sub(ones, pred)
	if err != nil {
		return nil, err
	}
	negTerm, err := tensor.Mul(oneMinusTarget, tensor.Log(tensor.AddScalar(oneMinusPred, logLossEps)))
	if err != nil {
		return nil, err
	}
	total, err := tensor.Add(posTerm, negTerm)
	if err != nil {
		return nil, err
	}
	return tensor.MulScalar(tensor.Mean(total), -1), nil
}
