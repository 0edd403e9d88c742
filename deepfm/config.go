package deepfm

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type LossType string

const (
	LossLogLoss LossType = "logloss"
	LossMSE     LossType = "mse"
)

type OptimizerKind string

const (
	OptAdam     OptimizerKind = "adam"
	OptAdagrad  OptimizerKind = "adagrad"
	OptGD       OptimizerKind = "gd"
	OptMomentum OptimizerKind = "momentum"
	OptRMSProp  OptimizerKind = "rmsprop"
	OptAdamW    OptimizerKind = "adamw"
	OptAdadelta OptimizerKind = "adadelta"
)

type Activation string

const (
	ActRelu    Activation = "relu"
	ActTanh    Activation = "tanh"
	ActSigmoid Activation = "sigmoid"
)

// BranchMode is fixed at construction and selects which scoring paths feed
// the output projection.
type BranchMode int

const (
	BranchBoth BranchMode = iota
	BranchFMOnly
	BranchDeepOnly
)

func (m BranchMode) String() string {
	switch m {
	case BranchBoth:
		return "fm+deep"
	case BranchFMOnly:
		return "fm"
	case BranchDeepOnly:
		return "deep"
	}
	return "unknown"
}

// Config describes a DeepFM instance. It is immutable after NewModel; every
// field is validated up front so a bad configuration never reaches graph
// construction.
type Config struct {
	FeatureSize   int   `yaml:"feature_size"`
	FieldSize     int   `yaml:"field_size"`
	EmbeddingSize int   `yaml:"embedding_size"`
	DeepLayers    []int `yaml:"deep_layers"`

	// Keep probabilities: DropoutFM is [first_order_keep, second_order_keep];
	// DropoutDeep is [input_keep, layer_0_keep, layer_1_keep, ...] and must
	// have len(DeepLayers)+1 entries.
	DropoutFM   []float64 `yaml:"dropout_fm"`
	DropoutDeep []float64 `yaml:"dropout_deep"`

	Activation Activation `yaml:"activation"`

	UseFM   bool `yaml:"use_fm"`
	UseDeep bool `yaml:"use_deep"`

	LossType     LossType      `yaml:"loss_type"`
	Optimizer    OptimizerKind `yaml:"optimizer"`
	LearningRate float64       `yaml:"learning_rate"`
	L2Reg        float64       `yaml:"l2_reg"`

	BatchNorm      bool    `yaml:"batch_norm"`
	BatchNormDecay float64 `yaml:"batch_norm_decay"`

	RandomSeed int64 `yaml:"random_seed"`
}

// DefaultConfig mirrors the conventional DeepFM hyperparameters for a CTR
// task over the given feature dictionary and field count.
func DefaultConfig(featureSize, fieldSize int) Config {
	return Config{
		FeatureSize:    featureSize,
		FieldSize:      fieldSize,
		EmbeddingSize:  8,
		DeepLayers:     []int{32, 32},
		DropoutFM:      []float64{1.0, 1.0},
		DropoutDeep:    []float64{0.5, 0.5, 0.5},
		Activation:     ActRelu,
		UseFM:          true,
		UseDeep:        true,
		LossType:       LossLogLoss,
		Optimizer:      OptAdam,
		LearningRate:   0.001,
		BatchNormDecay: 0.995,
		RandomSeed:     2018,
	}
}

// LoadConfig reads a YAML config file over DefaultConfig values.
func LoadConfig(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg := DefaultConfig(0, 0)
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// Mode derives the branch selection. Only meaningful on validated configs.
func (c Config) Mode() BranchMode {
	switch {
	case c.UseFM && c.UseDeep:
		return BranchBoth
	case c.UseFM:
		return BranchFMOnly
	default:
		return BranchDeepOnly
	}
}

func (c Config) Validate() error {
	if c.FeatureSize <= 0 {
		return fmt.Errorf("%w: feature_size must be positive, got %d", ErrConfig, c.FeatureSize)
	}
	if c.FieldSize <= 0 {
		return fmt.Errorf("%w: field_size must be positive, got %d", ErrConfig, c.FieldSize)
	}
	if c.EmbeddingSize <= 0 {
		return fmt.Errorf("%w: embedding_size must be positive, got %d", ErrConfig, c.EmbeddingSize)
	}
	if !c.UseFM && !c.UseDeep {
		return fmt.Errorf("%w: at least one of use_fm and use_deep must be enabled", ErrConfig)
	}
	switch c.LossType {
	case LossLogLoss, LossMSE:
	default:
		return fmt.Errorf("%w: loss_type must be %q or %q, got %q", ErrConfig, LossLogLoss, LossMSE, c.LossType)
	}
	switch c.Optimizer {
	case OptAdam, OptAdagrad, OptGD, OptMomentum, OptRMSProp, OptAdamW, OptAdadelta:
	default:
		return fmt.Errorf("%w: unrecognized optimizer %q", ErrConfig, c.Optimizer)
	}
	switch c.Activation {
	case ActRelu, ActTanh, ActSigmoid:
	default:
		return fmt.Errorf("%w: unrecognized activation %q", ErrConfig, c.Activation)
	}
	if c.LearningRate <= 0 {
		return fmt.Errorf("%w: learning_rate must be positive, got %v", ErrConfig, c.LearningRate)
	}
	if c.L2Reg < 0 {
		return fmt.Errorf("%w: l2_reg must be non-negative, got %v", ErrConfig, c.L2Reg)
	}
	if c.UseFM {
		if len(c.DropoutFM) != 2 {
			return fmt.Errorf("%w: dropout_fm needs exactly 2 keep probabilities, got %d", ErrConfig, len(c.DropoutFM))
		}
		if err := checkKeepProbs(c.DropoutFM); err != nil {
			return err
		}
	}
	if c.UseDeep {
		if len(c.DeepLayers) == 0 {
			return fmt.Errorf("%w: use_deep requires at least one deep layer", ErrConfig)
		}
		for i, width := range c.DeepLayers {
			if width <= 0 {
				return fmt.Errorf("%w: deep layer %d width must be positive, got %d", ErrConfig, i, width)
			}
		}
		if len(c.DropoutDeep) != len(c.DeepLayers)+1 {
			return fmt.Errorf("%w: dropout_deep needs %d keep probabilities for %d deep layers, got %d",
				ErrConfig, len(c.DeepLayers)+1, len(c.DeepLayers), len(c.DropoutDeep))
		}
		if err := checkKeepProbs(c.DropoutDeep); err != nil {
			return err
		}
	}
	if c.BatchNorm && (c.BatchNormDecay <= 0 || c.BatchNormDecay >= 1) {
		return fmt.Errorf("%w: batch_norm_decay must be in (0,1), got %v", ErrConfig, c.BatchNormDecay)
	}
	return nil
}

func checkKeepProbs(keeps []float64) error {
	for i, keep := range keeps {
		if keep <= 0 || keep > 1 {
			return fmt.Errorf("%w: keep probability %d must be in (0,1], got %v", ErrConfig, i, keep)
		}
	}
	return nil
}
