package train

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/scmulti-ml/scmulti/internal/multivae"
)

// writeConfigSnapshot records the exact configuration of the run so a
// finished output directory is self-describing.
func (t *Trainer[B]) writeConfigSnapshot() error {
	snap := struct {
		RunID   string             `json:"run_id"`
		Trainer Config             `json:"trainer"`
		VAE     multivae.VAEConfig `json:"vae"`
		MIL     multivae.MILConfig `json:"mil"`
	}{
		RunID:   t.cfg.RunID,
		Trainer: t.cfg,
		VAE:     t.model.VAE().Config(),
		MIL:     t.model.Config(),
	}
	return writeJSON(t.cfg.OutputDir, "config.json", snap)
}

// writeMetrics scores the validation latents and writes metrics.json,
// folding in the final epoch's losses.
func (t *Trainer[B]) writeMetrics(val []*multivae.Batch[B]) error {
	m, err := t.LatentMetrics(val)
	if err != nil {
		return fmt.Errorf("train: metrics: %w", err)
	}
	if last := t.history.Last(); last != nil {
		m.TrainLoss = last.Train.Total
		if last.Val != nil {
			m.ValLoss = last.Val.Total
		}
	}
	return writeJSON(t.cfg.OutputDir, "metrics.json", m)
}

func writeJSON(dir, name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("train: marshal %s: %w", name, err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("train: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("train: %w", err)
	}
	return nil
}
