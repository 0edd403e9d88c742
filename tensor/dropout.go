package tensor

import (
	"errors"
	"math/rand"
)

// Dropout applies dropout to the input tensor during training, drawing the
// mask from the package-level generator.
func Dropout(input *Tensor, p float64, training bool) (*Tensor, error) {
	if p < 0 || p >= 1 {
		return nil, errors.New("dropout probability must be in [0, 1)")
	}
	if !training || p == 0 {
		return dropoutIdentity(input), nil
	}
	rngLock.Lock()
	defer rngLock.Unlock()
	return dropoutMask(rng, input, p), nil
}

// DropoutFrom draws the mask from the supplied generator, so a caller that
// owns a seeded source gets reproducible masks. The caller must serialize
// access to src.
func DropoutFrom(src *rand.Rand, input *Tensor, p float64, training bool) (*Tensor, error) {
	if src == nil {
		return nil, errors.New("dropout generator required")
	}
	if p < 0 || p >= 1 {
		return nil, errors.New("dropout probability must be in [0, 1)")
	}
	if !training || p == 0 {
		return dropoutIdentity(input), nil
	}
	return dropoutMask(src, input, p), nil
}

func dropoutIdentity(input *Tensor) *Tensor {
	out := input.Clone()
	if input.requiresGrad {
		out.requiresGrad = true
		out.parents = []*Tensor{input}
		out.node = &node{
			backward: func(grad *Tensor, grads map[*Tensor]*Tensor) {
				accumulate(grads, input, grad)
			},
		}
	}
	return out
}

func dropoutMask(src *rand.Rand, input *Tensor, p float64) *Tensor {
	scale := 1.0 / (1 - p)
	mask := make([]float64, len(input.data))
	out := Zeros(input.shape...)
	for i := range mask {
		if src.Float64() < p {
			mask[i] = 0
			out.data[i] = 0
		} else {
			mask[i] = scale
			out.data[i] = input.data[i] * scale
		}
	}

	if input.requiresGrad {
		out.requiresGrad = true
		out.parents = []*Tensor{input}
		out.node = &node{
			backward: func(grad *Tensor, grads map[*Tensor]*Tensor) {
				g := Zeros(input.shape...)
				for i := range g.data {
					g.data[i] = grad.data[i] * mask[i]
				}
				accumulate(grads, input, g)
			},
		}
	}

	return out
}
