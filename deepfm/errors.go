package deepfm

import (
	"errors"
	"fmt"
)

// ErrConfig marks construction-time configuration failures. No model is
// built when it is returned.
var ErrConfig = errors.New("deepfm: invalid configuration")

// ErrShape marks forward/train-time batch shape failures. The call aborts
// and parameters are left untouched.
var ErrShape = errors.New("deepfm: shape mismatch")

// NumericalError reports a non-finite training loss. The update is skipped
// so the caller can decide whether to abort or retry with different
// hyperparameters.
type NumericalError struct {
	Step int
	Loss float64
}

func (e *NumericalError) Error() string {
	return fmt.Sprintf("deepfm: non-finite loss %v at step %d", e.Loss, e.Step)
}
