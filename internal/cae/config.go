package cae

import (
	"errors"
	"fmt"
)

// Modality declares one input block of the cross-modal autoencoder.
// Reconstruction is always scored with squared error; count likelihoods
// belong to the VAE family.
type Modality struct {
	// Name identifies the modality in pair groups, errors and state
	// dict keys.
	Name string `json:"name"`
	// Dim is the feature width.
	Dim int `json:"dim"`
}

// Coefficients weights the loss components. Warmup zeroes Cross, Integ
// and Cycle and restores these configured values afterwards.
type Coefficients struct {
	Recon float64 `json:"recon"`
	Cross float64 `json:"cross"`
	Integ float64 `json:"integ"`
	Cycle float64 `json:"cycle"`
}

// Config configures the adversarial cross-modal autoencoder.
//
// Each modality runs through its own encoder to HDim, then through the
// shared encoder (conditioned on a one-hot modality vector) to ZDim;
// decoding mirrors the path. Pair groups declare which modalities carry
// partially paired cells: within a group, paired cells are aligned row
// by row across the members' pair masks.
type Config struct {
	// Modalities declares the input blocks, at least two.
	Modalities []Modality `json:"modalities"`
	// ZDim is the shared latent width.
	ZDim int `json:"z_dim"`
	// HDim is the per-modality hidden representation width.
	HDim int `json:"h_dim"`
	// Hidden lists the hidden widths of each per-modality encoder;
	// decoders use the reverse.
	Hidden []int `json:"hidden"`
	// SharedHidden lists the hidden widths of the shared encoder; the
	// shared decoder uses the reverse.
	SharedHidden []int `json:"shared_hidden"`
	// AdvHidden lists the hidden widths of the adversarial
	// discriminator.
	AdvHidden []int `json:"adv_hidden"`
	// Coefficients weights the loss terms. The integration coefficient
	// scales the MMD term without Adversarial and the discriminator
	// game with it.
	Coefficients Coefficients `json:"coefficients"`
	// Adversarial replaces the integration term with the discriminator
	// game: the main objective subtracts the adversarial loss, the
	// discriminator minimizes it.
	Adversarial bool `json:"adversarial"`
	// PairGroups maps a group name to the modalities sharing paired
	// cells. A modality may belong to at most one group; ungrouped
	// modality pairs always compare by MMD.
	PairGroups map[string][]string `json:"pair_groups,omitempty"`
	// Norm enables LayerNorm inside every MLP.
	Norm bool `json:"norm"`
	// Dropout is the dropout probability inside every MLP, in [0, 1).
	Dropout float64 `json:"dropout"`
	// Seed seeds parameter initialization.
	Seed int64 `json:"seed"`
}

// Validate reports the first configuration error, or nil.
func (c *Config) Validate() error {
	if len(c.Modalities) < 2 {
		return errors.New("at least two modalities are required")
	}
	names := make(map[string]bool, len(c.Modalities))
	for i, m := range c.Modalities {
		if m.Name == "" {
			return fmt.Errorf("modality %d has no name", i)
		}
		if names[m.Name] {
			return fmt.Errorf("duplicate modality name %q", m.Name)
		}
		names[m.Name] = true
		if m.Dim <= 0 {
			return fmt.Errorf("modality %q: dim must be positive, got %d", m.Name, m.Dim)
		}
	}
	if c.ZDim <= 0 {
		return fmt.Errorf("z_dim must be positive, got %d", c.ZDim)
	}
	if c.HDim <= 0 {
		return fmt.Errorf("h_dim must be positive, got %d", c.HDim)
	}
	for i, w := range c.Hidden {
		if w <= 0 {
			return fmt.Errorf("hidden width %d must be positive, got %d", i, w)
		}
	}
	for i, w := range c.SharedHidden {
		if w <= 0 {
			return fmt.Errorf("shared_hidden width %d must be positive, got %d", i, w)
		}
	}
	for i, w := range c.AdvHidden {
		if w <= 0 {
			return fmt.Errorf("adv_hidden width %d must be positive, got %d", i, w)
		}
	}
	if c.Coefficients.Recon <= 0 {
		return fmt.Errorf("recon coefficient must be positive, got %g", c.Coefficients.Recon)
	}
	if c.Coefficients.Cross < 0 || c.Coefficients.Integ < 0 || c.Coefficients.Cycle < 0 {
		return fmt.Errorf("cross, integ and cycle coefficients must be non-negative, got %g/%g/%g",
			c.Coefficients.Cross, c.Coefficients.Integ, c.Coefficients.Cycle)
	}
	if c.Dropout < 0 || c.Dropout >= 1 {
		return fmt.Errorf("dropout must be in [0, 1), got %g", c.Dropout)
	}

	grouped := make(map[string]string)
	for group, members := range c.PairGroups {
		if len(members) < 2 {
			return fmt.Errorf("pair group %q needs at least two modalities, got %d", group, len(members))
		}
		for _, member := range members {
			if !names[member] {
				return fmt.Errorf("pair group %q references unknown modality %q", group, member)
			}
			if prev, ok := grouped[member]; ok && prev != group {
				return fmt.Errorf("modality %q appears in pair groups %q and %q", member, prev, group)
			}
			grouped[member] = group
		}
	}
	return nil
}

// groupOf returns the per-modality pair group assignment, empty string
// for ungrouped modalities. Call after Validate.
func (c *Config) groupOf() []string {
	groups := make([]string, len(c.Modalities))
	for group, members := range c.PairGroups {
		for _, member := range members {
			for i, m := range c.Modalities {
				if m.Name == member {
					groups[i] = group
				}
			}
		}
	}
	return groups
}
