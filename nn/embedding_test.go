package nn

import (
	"math/rand"
	"testing"

	"github.com/fumitoshi0524/ixeoriCTR/tensor"
)

func TestEmbeddingForwardBackward(t *testing.T) {
	emb := NewEmbedding(4, 2)
	mustSetData(t, emb.Weight(), []float64{
		0.1, 0.2,
		0.3, 0.4,
		0.5, 0.6,
		0.7, 0.8,
	})

	indices := tensor.MustNew([]float64{2, 0, 2}, 3)
	out, err := emb.Forward(indices)
	if err != nil {
		t.Fatalf("embedding forward failed: %v", err)
	}
	want := []float64{0.5, 0.6, 0.1, 0.2, 0.5, 0.6}
	if !floatsAlmostEqual(out.Data(), want, 1e-12) {
		t.Fatalf("lookup mismatch: got %v want %v", out.Data(), want)
	}

	if err := tensor.Sum(out).Backward(); err != nil {
		t.Fatalf("backward failed: %v", err)
	}
	grad := emb.Weight().Grad()
	if grad == nil {
		t.Fatalf("expected gradient on embedding weight")
	}
	// Row 2 is looked up twice, row 0 once, rows 1 and 3 never.
	wantGrad := []float64{1, 1, 0, 0, 2, 2, 0, 0}
	if !floatsAlmostEqual(grad.Data(), wantGrad, 1e-12) {
		t.Fatalf("grad mismatch: got %v want %v", grad.Data(), wantGrad)
	}
}

func TestEmbeddingNormalSeededDeterminism(t *testing.T) {
	a := NewEmbeddingNormal(5, 3, 0.01, rand.New(rand.NewSource(42)))
	b := NewEmbeddingNormal(5, 3, 0.01, rand.New(rand.NewSource(42)))
	if !floatsAlmostEqual(a.Weight().Data(), b.Weight().Data(), 0) {
		t.Fatalf("same seed should give identical tables")
	}
	c := NewEmbeddingNormal(5, 3, 0.01, rand.New(rand.NewSource(43)))
	if floatsAlmostEqual(a.Weight().Data(), c.Weight().Data(), 0) {
		t.Fatalf("different seeds should give different tables")
	}
}

func TestEmbeddingRejectsOutOfRangeIndex(t *testing.T) {
	emb := NewEmbedding(2, 2)
	if _, err := emb.Forward(tensor.MustNew([]float64{5}, 1)); err == nil {
		t.Fatalf("expected error for out of range index")
	}
}
