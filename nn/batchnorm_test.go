package nn

import (
	"testing"

	"github.com/fumitoshi0524/ixeoriCTR/tensor"
)

func TestBatchNormWrapperMatchesTensorAndUpdatesState(t *testing.T) {
	bn := NewBatchNorm(2, 0.2, 1e-5, true)
	if err := bn.weight.SetData([]float64{1.0, 0.5}); err != nil {
		t.Fatalf("set batchnorm weight: %v", err)
	}
	if err := bn.bias.SetData([]float64{0.0, 0.1}); err != nil {
		t.Fatalf("set batchnorm bias: %v", err)
	}
	input := tensor.MustNew([]float64{
		1, 2,
		3, 4,
	}, 2, 2)
	input.SetRequiresGrad(true)

	meanClone := bn.runningMean.Clone()
	varClone := bn.runningVar.Clone()
	ref, err := tensor.BatchNorm(input.Detach(), meanClone, varClone, bn.weight.Detach(), bn.bias.Detach(), bn.momentum, bn.eps, true)
	if err != nil {
		t.Fatalf("reference batchnorm failed: %v", err)
	}

	out, err := bn.Forward(input)
	if err != nil {
		t.Fatalf("batchnorm forward failed: %v", err)
	}
	if !floatsAlmostEqual(out.Data(), ref.Data(), 1e-9) {
		t.Fatalf("batchnorm wrapper mismatch: got %v want %v", out.Data(), ref.Data())
	}
	if !floatsAlmostEqual(bn.runningMean.Data(), meanClone.Data(), 1e-9) {
		t.Fatalf("running mean mismatch: got %v want %v", bn.runningMean.Data(), meanClone.Data())
	}
	if !floatsAlmostEqual(bn.runningVar.Data(), varClone.Data(), 1e-9) {
		t.Fatalf("running var mismatch: got %v want %v", bn.runningVar.Data(), varClone.Data())
	}

	loss := tensor.Sum(out)
	if err := loss.Backward(); err != nil {
		t.Fatalf("batchnorm backward failed: %v", err)
	}
	if bn.weight.Grad() == nil || bn.bias.Grad() == nil {
		t.Fatalf("expected gradients on batchnorm affine params")
	}

	bn.Eval()
	evalInput := tensor.MustNew([]float64{
		-1, 0,
		1, 2,
	}, 2, 2)
	eval, err := bn.Forward(evalInput)
	if err != nil {
		t.Fatalf("batchnorm eval forward failed: %v", err)
	}
	refEval, err := tensor.BatchNorm(evalInput.Detach(), bn.runningMean.Clone(), bn.runningVar.Clone(), bn.weight.Detach(), bn.bias.Detach(), bn.momentum, bn.eps, false)
	if err != nil {
		t.Fatalf("reference eval batchnorm failed: %v", err)
	}
	if !floatsAlmostEqual(eval.Data(), refEval.Data(), 1e-9) {
		t.Fatalf("batchnorm eval mismatch: got %v want %v", eval.Data(), refEval.Data())
	}
}

func TestBatchNormForwardModeLeavesStateAlone(t *testing.T) {
	bn := NewBatchNorm(2, 0.2, 1e-5, true)
	input := tensor.MustNew([]float64{
		1, 2,
		3, 4,
	}, 2, 2)

	meanBefore := bn.runningMean.Data()
	varBefore := bn.runningVar.Data()
	if _, err := bn.ForwardMode(input, false); err != nil {
		t.Fatalf("eval forward failed: %v", err)
	}
	if !floatsAlmostEqual(bn.runningMean.Data(), meanBefore, 0) {
		t.Fatalf("eval forward touched running mean: %v", bn.runningMean.Data())
	}
	if !floatsAlmostEqual(bn.runningVar.Data(), varBefore, 0) {
		t.Fatalf("eval forward touched running var: %v", bn.runningVar.Data())
	}
	if bn.training != true {
		t.Fatalf("ForwardMode should not change the stored mode")
	}
}
