// Package train drives mini-batch training of a deepfm.Model: epoch
// iteration, shuffling, validation tracking, and early stopping. The model
// core stays synchronous; only eval-mode prediction fans out across batches.
package train

import (
	"errors"
	"fmt"
	"math/rand"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fumitoshi0524/ixeoriCTR/deepfm"
	"github.com/fumitoshi0524/ixeoriCTR/metrics"
	"github.com/fumitoshi0524/ixeoriCTR/tensor"
)

// Dataset holds parallel per-sample field indices, field values, and labels.
type Dataset struct {
	Indices [][]int
	Values  [][]float64
	Labels  []float64
}

func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Labels)
}

func (d *Dataset) check() error {
	if len(d.Indices) != len(d.Labels) || len(d.Values) != len(d.Labels) {
		return fmt.Errorf("train: dataset rows disagree: %d indices, %d values, %d labels",
			len(d.Indices), len(d.Values), len(d.Labels))
	}
	return nil
}

func (d *Dataset) batch(rows []int) (*Batch, error) {
	indices := make([][]int, len(rows))
	values := make([][]float64, len(rows))
	labels := make([]float64, len(rows))
	for i, row := range rows {
		indices[i] = d.Indices[row]
		values[i] = d.Values[row]
		labels[i] = d.Labels[row]
	}
	idx, val, err := deepfm.BatchTensors(indices, values)
	if err != nil {
		return nil, err
	}
	lab, err := deepfm.LabelTensor(labels)
	if err != nil {
		return nil, err
	}
	return &Batch{Index: idx, Value: val, Label: lab, Rows: rows}, nil
}

// Batch is one packed mini-batch.
type Batch struct {
	Index *tensor.Tensor
	Value *tensor.Tensor
	Label *tensor.Tensor
	Rows  []int
}

// Trainer runs Fit over a model. Zero fields fall back to the defaults the
// reference setup uses: 10 epochs, batches of 256, and an AUC validation
// metric tracked as greater-is-better. A custom Metric is tracked in the
// direction GreaterIsBetter says.
type Trainer struct {
	Model           *deepfm.Model
	Epochs          int
	BatchSize       int
	Shuffle         bool
	EarlyStopRounds int
	GreaterIsBetter bool
	Metric          metrics.Metric
	Logger          *zap.Logger
	Seed            int64
	EvalWorkers     int
}

// Fit trains over the training set and returns the per-epoch validation
// scores (or training scores when valid is nil). Early stopping fires after
// EarlyStopRounds epochs without improvement in the tracked score.
func (t *Trainer) Fit(trainSet, validSet *Dataset) ([]float64, error) {
	if t.Model == nil {
		return nil, errors.New("train: Trainer requires a model")
	}
	if trainSet.Len() == 0 {
		return nil, errors.New("train: empty training set")
	}
	if err := trainSet.check(); err != nil {
		return nil, err
	}
	if validSet != nil {
		if err := validSet.check(); err != nil {
			return nil, err
		}
	}

	epochs := t.Epochs
	if epochs <= 0 {
		epochs = 10
	}
	batchSize := t.BatchSize
	if batchSize <= 0 {
		batchSize = 256
	}
	metric := t.Metric
	greater := t.GreaterIsBetter
	if metric == nil {
		metric = metrics.AUC
		greater = true
	}
	logger := t.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	rng := rand.New(rand.NewSource(t.Seed))

	samples := trainSet.Len()
	history := make([]float64, 0, epochs)
	best := 0.0
	bestEpoch := -1

	for epoch := 1; epoch <= epochs; epoch++ {
		order := make([]int, samples)
		for i := range order {
			order[i] = i
		}
		if t.Shuffle {
			rng.Shuffle(samples, func(i, j int) {
				order[i], order[j] = order[j], order[i]
			})
		}

		runningLoss := 0.0
		for start := 0; start < samples; start += batchSize {
			end := start + batchSize
			if end > samples {
				end = samples
			}
			b, err := trainSet.batch(order[start:end])
			if err != nil {
				return history, err
			}
			lossValue, err := t.Model.TrainStep(b.Index, b.Value, b.Label)
			if err != nil {
				var numErr *deepfm.NumericalError
				if errors.As(err, &numErr) {
					logger.Warn("non-finite loss, batch skipped",
						zap.Int("epoch", epoch),
						zap.Int("step", numErr.Step),
						zap.Float64("loss", numErr.Loss))
					continue
				}
				return history, err
			}
			runningLoss += lossValue * float64(end-start)
		}

		scoreSet := validSet
		if scoreSet.Len() == 0 {
			scoreSet = trainSet
		}
		score, err := t.score(scoreSet, batchSize, metric)
		if err != nil {
			return history, err
		}
		history = append(history, score)

		logger.Info("epoch finished",
			zap.Int("epoch", epoch),
			zap.Float64("train_loss", runningLoss/float64(samples)),
			zap.Float64("score", score))

		if bestEpoch < 0 || better(score, best, greater) {
			best = score
			bestEpoch = epoch
		} else if t.EarlyStopRounds > 0 && epoch-bestEpoch >= t.EarlyStopRounds {
			logger.Info("early stop",
				zap.Int("epoch", epoch),
				zap.Int("best_epoch", bestEpoch),
				zap.Float64("best_score", best))
			break
		}
	}
	return history, nil
}

func (t *Trainer) score(ds *Dataset, batchSize int, metric metrics.Metric) (float64, error) {
	return Evaluate(t.Model, ds, batchSize, t.EvalWorkers, metric)
}

// Evaluate scores the model over the dataset with the given metric.
func Evaluate(m *deepfm.Model, ds *Dataset, batchSize, workers int, metric metrics.Metric) (float64, error) {
	preds, err := Predict(m, ds, batchSize, workers)
	if err != nil {
		return 0, err
	}
	return metric(ds.Labels, preds)
}

func better(score, best float64, greaterIsBetter bool) bool {
	if greaterIsBetter {
		return score > best
	}
	return score < best
}

// Predict runs eval-mode inference over the dataset in batches, fanning the
// batches out across workers. Eval-mode forward passes only read the
// parameter store, so they may run concurrently; callers must not run
// TrainStep on the same model while Predict is in flight.
func Predict(m *deepfm.Model, ds *Dataset, batchSize, workers int) ([]float64, error) {
	if m == nil {
		return nil, errors.New("train: Predict requires a model")
	}
	if err := ds.check(); err != nil {
		return nil, err
	}
	if batchSize <= 0 {
		batchSize = 256
	}
	if workers <= 0 {
		workers = 4
	}
	total := ds.Len()
	out := make([]float64, total)

	var g errgroup.Group
	g.SetLimit(workers)
	for start := 0; start < total; start += batchSize {
		end := start + batchSize
		if end > total {
			end = total
		}
		rows := make([]int, end-start)
		for i := start; i < end; i++ {
			rows[i-start] = i
		}
		lo, hi := start, end
		g.Go(func() error {
			b, err := ds.batch(rows)
			if err != nil {
				return err
			}
			preds, err := m.Predict(b.Index, b.Value)
			if err != nil {
				return err
			}
			copy(out[lo:hi], preds.Data())
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
