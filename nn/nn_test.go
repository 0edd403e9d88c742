package nn

import (
	"math/rand"
	"testing"

	"github.com/fumitoshi0524/ixeoriCTR/loss"
	"github.com/fumitoshi0524/ixeoriCTR/optim"
	"github.com/fumitoshi0524/ixeoriCTR/tensor"
)

func floatsAlmostEqual(a, b []float64, tol float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		diff := a[i] - b[i]
		if diff < 0 {
			diff = -diff
		}
		if diff > tol {
			return false
		}
	}
	return true
}

func TestLinearForwardBackward(t *testing.T) {
	linear1 := NewLinear(3, 2, true)
	if err := linear1.Weight().SetData([]float64{
		0.5, -1.0, 1.5,
		-0.25, 0.75, -0.5,
	}); err != nil {
		t.Fatalf("set linear1 weight: %v", err)
	}
	if err := linear1.Bias().SetData([]float64{0.1, -0.2}); err != nil {
		t.Fatalf("set linear1 bias: %v", err)
	}
	linear2 := NewLinear(2, 1, true)
	if err := linear2.Weight().SetData([]float64{0.6, -1.2}); err != nil {
		t.Fatalf("set linear2 weight: %v", err)
	}
	if err := linear2.Bias().SetData([]float64{0.05}); err != nil {
		t.Fatalf("set linear2 bias: %v", err)
	}

	inputs := tensor.MustNew([]float64{
		1, 0, -1,
		2, 1, 0,
	}, 2, 3)
	targets := tensor.MustNew([]float64{1, -1}, 2, 1)

	hidden, err := linear1.Forward(inputs)
	if err != nil {
		t.Fatalf("forward failed: %v", err)
	}
	out, err := linear2.Forward(tensor.Relu(hidden))
	if err != nil {
		t.Fatalf("forward failed: %v", err)
	}

	l, err := loss.MSE(out, targets)
	if err != nil {
		t.Fatalf("loss failed: %v", err)
	}
	if err := l.Backward(); err != nil {
		t.Fatalf("backward failed: %v", err)
	}

	if linear1.Weight().Grad() == nil {
		t.Fatalf("expected gradient on linear1 weight")
	}
	if linear1.Bias().Grad() == nil {
		t.Fatalf("expected gradient on linear1 bias")
	}
	if linear2.Weight().Grad() == nil {
		t.Fatalf("expected gradient on linear2 weight")
	}
	if linear2.Bias().Grad() == nil {
		t.Fatalf("expected gradient on linear2 bias")
	}

	ZeroGradAll(linear1, linear2)
	if linear1.Weight().Grad() != nil || linear2.Weight().Grad() != nil {
		t.Fatalf("ZeroGradAll did not clear gradients")
	}
}

func TestLinearInitSeededDeterminism(t *testing.T) {
	a := NewLinearInit(4, 3, true, rand.New(rand.NewSource(17)))
	b := NewLinearInit(4, 3, true, rand.New(rand.NewSource(17)))
	if !floatsAlmostEqual(a.Weight().Data(), b.Weight().Data(), 0) {
		t.Fatalf("same seed should give identical weights")
	}
	if !floatsAlmostEqual(a.Bias().Data(), b.Bias().Data(), 0) {
		t.Fatalf("same seed should give identical biases")
	}
	c := NewLinearInit(4, 3, true, rand.New(rand.NewSource(18)))
	if floatsAlmostEqual(a.Weight().Data(), c.Weight().Data(), 0) {
		t.Fatalf("different seeds should give different weights")
	}
}

func TestLinearTrainingWithSGD(t *testing.T) {
	linear := NewLinear(1, 1, true)
	if err := linear.Weight().SetData([]float64{0}); err != nil {
		t.Fatalf("set linear weight: %v", err)
	}
	if err := linear.Bias().SetData([]float64{0}); err != nil {
		t.Fatalf("set linear bias: %v", err)
	}
	inputs := tensor.MustNew([]float64{-2, -1, 0, 1, 2, 3}, 6, 1)
	targets := tensor.MustNew([]float64{-5, -3, -1, 1, 3, 5}, 6, 1)
	opt := optim.NewSGD(linear.Parameters(), 0.1, 0)

	var initialLoss float64
	for epoch := 0; epoch < 50; epoch++ {
		opt.ZeroGrad()
		pred, err := linear.Forward(inputs)
		if err != nil {
			t.Fatalf("forward failed: %v", err)
		}
		l, err := loss.MSE(pred, targets)
		if err != nil {
			t.Fatalf("loss failed: %v", err)
		}
		if epoch == 0 {
			initialLoss = l.Data()[0]
		}
		if err := l.Backward(); err != nil {
			t.Fatalf("backward failed: %v", err)
		}
		if err := opt.Step(); err != nil {
			t.Fatalf("optimizer step failed: %v", err)
		}
	}
	pred, err := linear.Forward(inputs)
	if err != nil {
		t.Fatalf("forward failed: %v", err)
	}
	finalLoss, err := loss.MSE(pred, targets)
	if err != nil {
		t.Fatalf("loss failed: %v", err)
	}
	if finalLoss.Data()[0] >= initialLoss {
		t.Fatalf("expected loss to decrease: initial=%.6f final=%.6f", initialLoss, finalLoss.Data()[0])
	}
}
