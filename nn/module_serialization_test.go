package nn

import (
	"path/filepath"
	"testing"

	"github.com/fumitoshi0524/ixeoriCTR/tensor"
)

func mustSetData(t *testing.T, dst *tensor.Tensor, data []float64) {
	t.Helper()
	if err := dst.SetData(data); err != nil {
		t.Fatalf("set data: %v", err)
	}
}

func TestSaveAndLoadModule(t *testing.T) {
	lin := NewLinear(2, 2, true)
	mustSetData(t, lin.Weight(), []float64{0.1, -0.2, 0.3, -0.4})
	mustSetData(t, lin.Bias(), []float64{0.05, -0.05})

	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "model.json")
	if err := SaveModule(path, lin); err != nil {
		t.Fatalf("SaveModule failed: %v", err)
	}

	// Overwrite parameters to confirm load restores them.
	mustSetData(t, lin.Weight(), []float64{1, 1, 1, 1})
	mustSetData(t, lin.Bias(), []float64{1, 1})

	if err := LoadModule(path, lin); err != nil {
		t.Fatalf("LoadModule failed: %v", err)
	}
	if !floatsAlmostEqual(lin.Weight().Data(), []float64{0.1, -0.2, 0.3, -0.4}, 1e-9) {
		t.Fatalf("weight mismatch after load: %v", lin.Weight().Data())
	}
	if !floatsAlmostEqual(lin.Bias().Data(), []float64{0.05, -0.05}, 1e-9) {
		t.Fatalf("bias mismatch after load: %v", lin.Bias().Data())
	}
}

type statelessModule struct{}

func (statelessModule) Forward(input *tensor.Tensor) (*tensor.Tensor, error) { return input, nil }
func (statelessModule) Parameters() []*tensor.Tensor                         { return nil }
func (statelessModule) ZeroGrad()                                            {}

func TestSaveModuleErrorsForStateless(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "stateless.json")
	if err := SaveModule(path, statelessModule{}); err == nil {
		t.Fatalf("expected error when saving stateless module")
	}
}

func TestZeroGradAllHandlesNil(t *testing.T) {
	lin := NewLinear(2, 2, true)
	lin.Weight().SetRequiresGrad(true)
	lin.Bias().SetRequiresGrad(true)

	input := tensor.MustNew([]float64{1, -1, 2, -2}, 2, 2)
	out, err := lin.Forward(input)
	if err != nil {
		t.Fatalf("linear forward failed: %v", err)
	}
	loss := tensor.Sum(out)
	if err := loss.Backward(); err != nil {
		t.Fatalf("backward failed: %v", err)
	}
	if lin.Weight().Grad() == nil {
		t.Fatalf("expected grad before ZeroGradAll")
	}

	ZeroGradAll(nil, lin)
	if lin.Weight().Grad() != nil || lin.Bias().Grad() != nil {
		t.Fatalf("ZeroGradAll should clear grads even with nil module present")
	}
}
