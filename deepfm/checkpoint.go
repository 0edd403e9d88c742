package deepfm

import (
	"fmt"

	"github.com/fumitoshi0524/ixeoriCTR/nn"
	"github.com/fumitoshi0524/ixeoriCTR/tensor"
)

// Save writes every parameter tensor (and batch-norm running statistics) to
// a named-tensor checkpoint. The configuration itself is not persisted; Load
// requires a model built from an identical config.
func (m *Model) Save(path string) error {
	state := make(map[string]*tensor.Tensor)
	for name, mod := range m.namedModules() {
		mod.StateDict(name, state)
	}
	return tensor.SaveTensors(path, state)
}

// Load restores a checkpoint written by Save into this model's parameter
// store.
func (m *Model) Load(path string) error {
	state, err := tensor.LoadTensors(path)
	if err != nil {
		return err
	}
	for name, mod := range m.namedModules() {
		if err := mod.LoadState(name, state); err != nil {
			return fmt.Errorf("restore %s: %w", name, err)
		}
	}
	return nil
}

func (m *Model) namedModules() map[string]nn.StatefulModule {
	mods := map[string]nn.StatefulModule{
		"feature_embeddings": m.embeddings,
		"feature_bias":       m.featureBias,
		"concat_projection":  m.projection,
	}
	for i, layer := range m.deep {
		mods[fmt.Sprintf("layer_%d", i)] = layer
	}
	for i, bn := range m.norms {
		mods[fmt.Sprintf("batch_norm_%d", i)] = bn
	}
	return mods
}
