package deepfm

import (
	"fmt"

	"github.com/fumitoshi0524/ixeoriCTR/optim"
	"github.com/fumitoshi0524/ixeoriCTR/tensor"
)

// optimizer is the slice of the optim package every kind satisfies.
type optimizer interface {
	Step() error
	ZeroGrad()
}

// newOptimizer builds the configured update rule over the parameter store.
// Hyperparameter defaults follow the reference DeepFM setup: Adam
// (0.9, 0.999, 1e-8), Adagrad eps 1e-8, momentum 0.95.
func newOptimizer(cfg Config, params []*tensor.Tensor) (optimizer, error) {
	lr := cfg.LearningRate
	switch cfg.Optimizer {
	case OptAdam:
		return optim.NewAdam(params, lr, 0.9, 0.999, 1e-8), nil
	case OptAdagrad:
		return optim.NewAdagrad(params, lr, 1e-8), nil
	case OptGD:
		return optim.NewSGD(params, lr, 0), nil
	case OptMomentum:
		return optim.NewSGD(params, lr, 0.95), nil
	case OptRMSProp:
		return optim.NewRMSProp(params, lr), nil
	case OptAdamW:
		return optim.NewAdamW(params, lr), nil
	case OptAdadelta:
		return optim.NewAdadelta(params, lr, 0.9, 1e-6), nil
	}
	return nil, fmt.Errorf("%w: unrecognized optimizer %q", ErrConfig, cfg.Optimizer)
}
