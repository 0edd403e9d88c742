package deepfm

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/fumitoshi0524/ixeoriCTR/loss"
	"github.com/fumitoshi0524/ixeoriCTR/nn"
	"github.com/fumitoshi0524/ixeoriCTR/tensor"
)

// Model owns the full DeepFM computation graph: a shared embedding table, a
// per-feature bias table, the FM interaction branches, an optional deep
// stack, and the output projection. All learnable tensors live for the life
// of the instance and are written only by the optimizer inside TrainStep.
// Callers must serialize TrainStep against concurrent Forward calls on the
// same instance; eval-mode Forward calls are read-only and may run in
// parallel with each other.
type Model struct {
	cfg  Config
	mode BranchMode

	embeddings  *nn.Embedding // (M, K), Normal(0, 0.01)
	featureBias *nn.Embedding // (M, 1), Normal(0, 1)
	deep        []*nn.Linear
	norms       []*nn.BatchNorm
	projection  *nn.Linear

	act func(*tensor.Tensor) *tensor.Tensor
	opt optimizer
	src *rand.Rand

	step int
}

// NewModel validates cfg and builds the parameter store. Initialization and
// train-mode dropout masks are driven entirely by cfg.RandomSeed: two models
// constructed from the same config hold bit-identical parameters and replay
// identical training passes.
func NewModel(cfg Config) (*Model, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	m := &Model{cfg: cfg, mode: cfg.Mode()}

	switch cfg.Activation {
	case ActTanh:
		m.act = tensor.Tanh
	case ActSigmoid:
		m.act = tensor.Sigmoid
	default:
		m.act = tensor.Relu
	}

	src := rand.New(rand.NewSource(cfg.RandomSeed))
	m.src = src
	m.embeddings = nn.NewEmbeddingNormal(cfg.FeatureSize, cfg.EmbeddingSize, 0.01, src)
	m.featureBias = nn.NewEmbeddingNormal(cfg.FeatureSize, 1, 1.0, src)

	if cfg.UseDeep {
		prev := cfg.FieldSize * cfg.EmbeddingSize
		for _, width := range cfg.DeepLayers {
			m.deep = append(m.deep, nn.NewLinearInit(prev, width, true, src))
			if cfg.BatchNorm {
				m.norms = append(m.norms, nn.NewBatchNorm(width, 1-cfg.BatchNormDecay, 1e-5, true))
			}
			prev = width
		}
	}
	m.projection = nn.NewLinearInit(m.concatWidth(), 1, true, src)

	opt, err := newOptimizer(cfg, m.Parameters())
	if err != nil {
		return nil, err
	}
	m.opt = opt
	return m, nil
}

func (m *Model) concatWidth() int {
	width := 0
	if m.cfg.UseFM {
		width += m.cfg.FieldSize + m.cfg.EmbeddingSize
	}
	if m.cfg.UseDeep {
		width += m.cfg.DeepLayers[len(m.cfg.DeepLayers)-1]
	}
	return width
}

func (m *Model) Config() Config   { return m.cfg }
func (m *Model) Mode() BranchMode { return m.mode }

// Parameters returns every learnable tensor in construction order.
func (m *Model) Parameters() []*tensor.Tensor {
	params := append([]*tensor.Tensor(nil), m.embeddings.Parameters()...)
	params = append(params, m.featureBias.Parameters()...)
	for _, l := range m.deep {
		params = append(params, l.Parameters()...)
	}
	for _, bn := range m.norms {
		params = append(params, bn.Parameters()...)
	}
	params = append(params, m.projection.Parameters()...)
	return params
}

// ParameterCount is the total learnable scalar count across the store.
func (m *Model) ParameterCount() int {
	total := 0
	for _, p := range m.Parameters() {
		total += p.Numel()
	}
	return total
}

// Forward runs the combiner pipeline over a batch of (field index, field
// value) pairs. For logloss models the result is a probability in (0,1) per
// sample; for mse models it is the raw logit. Dropout and batch norm behave
// differently when training is true.
func (m *Model) Forward(featIndex, featValue *tensor.Tensor, training bool) (*tensor.Tensor, error) {
	logits, err := m.logits(featIndex, featValue, training)
	if err != nil {
		return nil, err
	}
	if m.cfg.LossType == LossLogLoss {
		return tensor.Sigmoid(logits), nil
	}
	return logits, nil
}

// Predict is eval-mode Forward.
func (m *Model) Predict(featIndex, featValue *tensor.Tensor) (*tensor.Tensor, error) {
	return m.Forward(featIndex, featValue, false)
}

func (m *Model) logits(featIndex, featValue *tensor.Tensor, training bool) (*tensor.Tensor, error) {
	if err := m.checkBatch(featIndex, featValue); err != nil {
		return nil, err
	}
	emb, err := m.activeEmbeddings(featIndex, featValue)
	if err != nil {
		return nil, err
	}

	parts := make([]*tensor.Tensor, 0, 3)
	if m.cfg.UseFM {
		first, err := m.firstOrder(featIndex, featValue, training)
		if err != nil {
			return nil, err
		}
		second, err := m.secondOrder(emb, training)
		if err != nil {
			return nil, err
		}
		parts = append(parts, first, second)
	}
	if m.cfg.UseDeep {
		top, err := m.deepForward(emb, training)
		if err != nil {
			return nil, err
		}
		parts = append(parts, top)
	}

	concat, err := tensor.Concat(1, parts...)
	if err != nil {
		return nil, err
	}
	return m.projection.Forward(concat)
}

// activeEmbeddings looks up each field's embedding and scales it by the
// field value, producing the (N, F, K) tensor shared by the second-order and
// deep branches.
func (m *Model) activeEmbeddings(featIndex, featValue *tensor.Tensor) (*tensor.Tensor, error) {
	emb, err := m.embeddings.Forward(featIndex)
	if err != nil {
		return nil, err
	}
	shape := featValue.Shape()
	vals, err := featValue.Reshape(shape[0], shape[1], 1)
	if err != nil {
		return nil, err
	}
	scaled, err := tensor.BroadcastTo(vals, emb.Shape())
	if err != nil {
		return nil, err
	}
	return tensor.Mul(emb, scaled)
}

// firstOrder is the per-field linear term: bias lookup scaled by the field
// value, (N, F). Equivalent to one-hot linear regression over all features.
func (m *Model) firstOrder(featIndex, featValue *tensor.Tensor, training bool) (*tensor.Tensor, error) {
	bias, err := m.featureBias.Forward(featIndex)
	if err != nil {
		return nil, err
	}
	shape := featValue.Shape()
	vals, err := featValue.Reshape(shape[0], shape[1], 1)
	if err != nil {
		return nil, err
	}
	weighted, err := tensor.Mul(bias, vals)
	if err != nil {
		return nil, err
	}
	first, err := tensor.SumAxis(weighted, 2)
	if err != nil {
		return nil, err
	}
	return m.dropoutKeep(first, m.cfg.DropoutFM[0], training)
}

// secondOrder computes the pairwise FM interactions over the field axis via
// the sum-square / square-sum identity, (N, K) in O(F*K). With a single
// field the two halves cancel exactly and the term is zero.
func (m *Model) secondOrder(emb *tensor.Tensor, training bool) (*tensor.Tensor, error) {
	summed, err := tensor.SumAxis(emb, 1)
	if err != nil {
		return nil, err
	}
	sumSquare := tensor.Pow(summed, 2)

	squared := tensor.Pow(emb, 2)
	squareSum, err := tensor.SumAxis(squared, 1)
	if err != nil {
		return nil, err
	}

	diff, err := tensor.Sub(sumSquare, squareSum)
	if err != nil {
		return nil, err
	}
	second := tensor.MulScalar(diff, 0.5)
	return m.dropoutKeep(second, m.cfg.DropoutFM[1], training)
}

// deepForward runs the hidden stack over the flattened embeddings,
// (N, F*K) -> (N, last width). Batch norm, when enabled, sits between the
// affine transform and the activation.
func (m *Model) deepForward(emb *tensor.Tensor, training bool) (*tensor.Tensor, error) {
	x, err := tensor.Flatten(emb)
	if err != nil {
		return nil, err
	}
	x, err = m.dropoutKeep(x, m.cfg.DropoutDeep[0], training)
	if err != nil {
		return nil, err
	}
	for i, layer := range m.deep {
		x, err = layer.Forward(x)
		if err != nil {
			return nil, err
		}
		if m.norms != nil {
			x, err = m.norms[i].ForwardMode(x, training)
			if err != nil {
				return nil, err
			}
		}
		x = m.act(x)
		x, err = m.dropoutKeep(x, m.cfg.DropoutDeep[1+i], training)
		if err != nil {
			return nil, err
		}
	}
	return x, nil
}

// objective assembles the scalar training loss: the configured data term
// plus the L2 penalties on the projection weight and, when the deep branch
// is enabled, every deep layer weight.
func (m *Model) objective(featIndex, featValue, labels *tensor.Tensor, training bool) (*tensor.Tensor, error) {
	if err := m.checkLabels(featIndex, labels); err != nil {
		return nil, err
	}
	out, err := m.Forward(featIndex, featValue, training)
	if err != nil {
		return nil, err
	}
	var objective *tensor.Tensor
	switch m.cfg.LossType {
	case LossLogLoss:
		objective, err = loss.LogLoss(out, labels)
	default:
		objective, err = loss.MSE(out, labels)
	}
	if err != nil {
		return nil, err
	}
	if m.cfg.L2Reg > 0 {
		objective, err = addL2(objective, m.projection.Weight(), m.cfg.L2Reg)
		if err != nil {
			return nil, err
		}
		for _, layer := range m.deep {
			objective, err = addL2(objective, layer.Weight(), m.cfg.L2Reg)
			if err != nil {
				return nil, err
			}
		}
	}
	return objective, nil
}

// TrainStep runs one forward pass in train mode, assembles the loss, and
// applies one optimizer update. A non-finite loss is returned as a
// NumericalError before any parameter is touched, and the step counter
// advances only when the update went through.
func (m *Model) TrainStep(featIndex, featValue, labels *tensor.Tensor) (float64, error) {
	m.opt.ZeroGrad()
	objective, err := m.objective(featIndex, featValue, labels, true)
	if err != nil {
		return 0, err
	}
	value := objective.Data()[0]
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return value, &NumericalError{Step: m.step + 1, Loss: value}
	}
	if err := objective.Backward(); err != nil {
		return value, err
	}
	if err := m.opt.Step(); err != nil {
		return value, err
	}
	m.step++
	return value, nil
}

// Loss evaluates the training objective in eval mode without updating any
// parameter. Drivers use it for validation tracking and early stopping.
func (m *Model) Loss(featIndex, featValue, labels *tensor.Tensor) (float64, error) {
	objective, err := m.objective(featIndex, featValue, labels, false)
	if err != nil {
		return 0, err
	}
	return objective.Data()[0], nil
}

// Step reports how many optimizer updates have been applied.
func (m *Model) Step() int { return m.step }

func (m *Model) checkBatch(featIndex, featValue *tensor.Tensor) error {
	if featIndex == nil || featValue == nil {
		return fmt.Errorf("%w: batch tensors are required", ErrShape)
	}
	idxShape := featIndex.Shape()
	valShape := featValue.Shape()
	if len(idxShape) != 2 || len(valShape) != 2 {
		return fmt.Errorf("%w: batch tensors must be rank 2, got %v and %v", ErrShape, idxShape, valShape)
	}
	if idxShape[0] != valShape[0] || idxShape[1] != valShape[1] {
		return fmt.Errorf("%w: index shape %v disagrees with value shape %v", ErrShape, idxShape, valShape)
	}
	if idxShape[1] != m.cfg.FieldSize {
		return fmt.Errorf("%w: batch has %d fields, model expects %d", ErrShape, idxShape[1], m.cfg.FieldSize)
	}
	return nil
}

func (m *Model) checkLabels(featIndex, labels *tensor.Tensor) error {
	if labels == nil {
		return fmt.Errorf("%w: labels are required", ErrShape)
	}
	shape := labels.Shape()
	if len(shape) != 2 || shape[1] != 1 {
		return fmt.Errorf("%w: labels must be (N,1), got %v", ErrShape, shape)
	}
	if featIndex != nil {
		if idxShape := featIndex.Shape(); len(idxShape) == 2 && idxShape[0] != shape[0] {
			return fmt.Errorf("%w: %d labels for a batch of %d samples", ErrShape, shape[0], idxShape[0])
		}
	}
	return nil
}

// dropoutKeep converts the configured keep probability into a drop
// probability and draws the mask from the model's seeded generator, so
// identically seeded models produce identical train-mode passes.
func (m *Model) dropoutKeep(x *tensor.Tensor, keep float64, training bool) (*tensor.Tensor, error) {
	return tensor.DropoutFrom(m.src, x, 1-keep, training)
}

// addL2 adds l2 * 0.5 * sum(w^2) to the objective through the graph so the
// penalty contributes to the weight's gradient.
func addL2(objective, weight *tensor.Tensor, l2 float64) (*tensor.Tensor, error) {
	penalty := tensor.MulScalar(tensor.Sum(tensor.Pow(weight, 2)), 0.5*l2)
	return tensor.Add(objective, penalty)
}

// BatchTensors packs per-sample field indices and values into the rank-2
// tensors Forward expects.
func BatchTensors(indices [][]int, values [][]float64) (*tensor.Tensor, *tensor.Tensor, error) {
	if len(indices) == 0 || len(indices) != len(values) {
		return nil, nil, fmt.Errorf("%w: %d index rows for %d value rows", ErrShape, len(indices), len(values))
	}
	fields := len(indices[0])
	idxData := make([]float64, 0, len(indices)*fields)
	valData := make([]float64, 0, len(values)*fields)
	for i := range indices {
		if len(indices[i]) != fields || len(values[i]) != fields {
			return nil, nil, fmt.Errorf("%w: ragged batch at row %d", ErrShape, i)
		}
		for j := 0; j < fields; j++ {
			idxData = append(idxData, float64(indices[i][j]))
			valData = append(valData, values[i][j])
		}
	}
	idx, err := tensor.New(idxData, len(indices), fields)
	if err != nil {
		return nil, nil, err
	}
	val, err := tensor.New(valData, len(values), fields)
	if err != nil {
		return nil, nil, err
	}
	return idx, val, nil
}

// LabelTensor packs per-sample labels into the (N,1) tensor TrainStep
// expects.
func LabelTensor(labels []float64) (*tensor.Tensor, error) {
	return tensor.New(append([]float64(nil), labels...), len(labels), 1)
}
