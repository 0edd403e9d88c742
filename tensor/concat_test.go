package tensor

import "testing"

func TestConcatForwardBackward(t *testing.T) {
	a := MustNew([]float64{1, 2, 3, 4}, 2, 2)
	b := MustNew([]float64{5, 6, 7, 8}, 2, 2)
	a.SetRequiresGrad(true)
	b.SetRequiresGrad(true)
	cat, err := Concat(0, a, b)
	if err != nil {
		t.Fatalf("concat failed: %v", err)
	}
	if !AlmostEqualSlices(cat.Data(), []float64{1, 2, 3, 4, 5, 6, 7, 8}, 1e-9) {
		t.Fatalf("unexpected concat data: %v", cat.Data())
	}

	sum := Sum(cat)
	if err := sum.Backward(); err != nil {
		t.Fatalf("backward failed: %v", err)
	}
	if grad := a.Grad(); grad == nil || !AlmostEqualSlices(grad.Data(), []float64{1, 1, 1, 1}, 1e-9) {
		t.Fatalf("unexpected grad for a: %v", grad)
	}
	if grad := b.Grad(); grad == nil || !AlmostEqualSlices(grad.Data(), []float64{1, 1, 1, 1}, 1e-9) {
		t.Fatalf("unexpected grad for b: %v", grad)
	}
}

func TestConcatAlongColumns(t *testing.T) {
	a := MustNew([]float64{1, 2, 3, 4}, 2, 2)
	b := MustNew([]float64{5, 6}, 2, 1)
	cat, err := Concat(1, a, b)
	if err != nil {
		t.Fatalf("concat failed: %v", err)
	}
	if !equalShapes(cat.Shape(), []int{2, 3}) {
		t.Fatalf("unexpected concat shape: %v", cat.Shape())
	}
	if !AlmostEqualSlices(cat.Data(), []float64{1, 2, 5, 3, 4, 6}, 1e-9) {
		t.Fatalf("unexpected concat data: %v", cat.Data())
	}
}

func TestConcatErrors(t *testing.T) {
	if _, err := Concat(0); err == nil {
		t.Fatalf("expected error for empty tensors")
	}
	a := MustNew([]float64{1, 2}, 2, 1)
	b := MustNew([]float64{3, 4}, 1, 2)
	if _, err := Concat(0, a, b); err == nil {
		t.Fatalf("expected shape mismatch error")
	}
}
