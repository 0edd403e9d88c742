package tensor

import (
	"math/rand"
	"testing"
)

func TestDropoutFromIsDeterministic(t *testing.T) {
	input := MustNew([]float64{1, 2, 3, 4, 5, 6}, 2, 3)

	a, err := DropoutFrom(rand.New(rand.NewSource(21)), input, 0.5, true)
	if err != nil {
		t.Fatalf("dropout failed: %v", err)
	}
	b, err := DropoutFrom(rand.New(rand.NewSource(21)), input, 0.5, true)
	if err != nil {
		t.Fatalf("dropout failed: %v", err)
	}
	if !AlmostEqualSlices(a.Data(), b.Data(), 0) {
		t.Fatalf("same seed should give identical masks: %v vs %v", a.Data(), b.Data())
	}

	scale := 1.0 / (1 - 0.5)
	inputData := input.Data()
	for i, v := range a.Data() {
		if v != 0 && v != inputData[i]*scale {
			t.Fatalf("kept value %d not rescaled: got %v want %v", i, v, inputData[i]*scale)
		}
	}
}

func TestDropoutFromEvalIsIdentity(t *testing.T) {
	input := MustNew([]float64{1, 2, 3, 4}, 2, 2)
	input.SetRequiresGrad(true)
	out, err := DropoutFrom(rand.New(rand.NewSource(5)), input, 0.5, false)
	if err != nil {
		t.Fatalf("dropout failed: %v", err)
	}
	if !AlmostEqualSlices(out.Data(), input.Data(), 0) {
		t.Fatalf("eval dropout should pass through: %v", out.Data())
	}
	if err := Sum(out).Backward(); err != nil {
		t.Fatalf("backward failed: %v", err)
	}
	if grad := input.Grad(); grad == nil || !AlmostEqualSlices(grad.Data(), []float64{1, 1, 1, 1}, 0) {
		t.Fatalf("eval dropout grad should pass through: %v", grad)
	}
}

func TestDropoutFromRejectsBadInput(t *testing.T) {
	input := MustNew([]float64{1, 2}, 2)
	if _, err := DropoutFrom(nil, input, 0.5, true); err == nil {
		t.Fatalf("expected error for nil generator")
	}
	if _, err := DropoutFrom(rand.New(rand.NewSource(1)), input, 1.0, true); err == nil {
		t.Fatalf("expected error for drop probability 1")
	}
}
