package cae

import (
	"fmt"

	"github.com/scmulti-ml/scmulti/internal/multivae"
	"github.com/scmulti-ml/scmulti/internal/tensor"
)

// Record reports each loss component as an unweighted host value for
// logging. Total is the main objective's value.
type Record struct {
	Total float64 `json:"total"`
	Recon float64 `json:"recon"`
	Cross float64 `json:"cross"`
	Integ float64 `json:"integ"`
	Cycle float64 `json:"cycle"`
	Adv   float64 `json:"adv"`
}

// LossOutput pairs the two objectives of the adversarial game. Both
// stay on the tape; the trainer runs one backward pass from each and
// steps the matching parameter collection.
type LossOutput[B tensor.Backend] struct {
	// Main is the autoencoder objective: the weighted loss minus the
	// weighted adversarial term.
	Main *tensor.Tensor[float32, B]
	// Adv is the discriminator objective.
	Adv    *tensor.Tensor[float32, B]
	Record Record
}

// Loss composes the training objectives from a forward pass.
//
// Reconstruction is per-modality MSE. For every ordered modality pair
// i != j, modality i's latent is decoded as j and re-encoded; the
// squared latent drift is the cycle term. Latent and cross-decoded
// feature alignment depend on the pair grouping: within a pair group
// the masks split cells into paired rows (MSE, aligned row by row) and
// unpaired rows (MMD), with empty sides skipped; across groups (or
// without one) alignment is always MMD.
//
// masks may be nil when no pair groups are configured.
func (m *CAE[B]) Loss(xs []*tensor.Tensor[float32, B], out *Outputs[B], masks [][]int32) (*LossOutput[B], error) {
	if err := m.validateInputs(xs); err != nil {
		return nil, err
	}
	if err := m.validatePairMasks(xs, masks); err != nil {
		return nil, err
	}

	recon := tensor.Zeros[float32](tensor.Shape{1}, m.backend)
	for i, x := range xs {
		recon = recon.Add(mse(out.Rs[i], x))
	}

	cross := tensor.Zeros[float32](tensor.Shape{1}, m.backend)
	integ := tensor.Zeros[float32](tensor.Shape{1}, m.backend)
	cycle := tensor.Zeros[float32](tensor.Shape{1}, m.backend)
	for i := range xs {
		for j := range xs {
			if i == j {
				continue
			}
			// Cross-decode modality i's latent as modality j, then bring
			// the reconstruction back into the latent space through j's
			// encoder.
			rij := m.decode(out.Zs[i], j)
			zij := m.encode(rij, j)
			cycle = cycle.Add(mse(out.Zs[i], zij))

			if m.groups[i] != "" && m.groups[i] == m.groups[j] {
				ziP, ziU := splitRows(out.Zs[i], masks[i])
				rijP, rijU := splitRows(rij, masks[i])
				zjP, zjU := splitRows(out.Zs[j], masks[j])
				xjP, xjU := splitRows(xs[j], masks[j])
				if ziU != nil && zjU != nil {
					integ = integ.Add(multivae.MMD(ziU, zjU))
				}
				if rijU != nil && xjU != nil {
					cross = cross.Add(multivae.MMD(rijU, xjU))
				}
				if ziP != nil && zjP != nil {
					integ = integ.Add(mse(ziP, zjP))
				}
				if rijP != nil && xjP != nil {
					cross = cross.Add(mse(rijP, xjP))
				}
			} else {
				integ = integ.Add(multivae.MMD(out.Zs[i], out.Zs[j]))
				cross = cross.Add(multivae.MMD(rij, xs[j]))
			}
		}
	}

	total := recon.MulScalar(m.coeffs.Recon).
		Add(cross.MulScalar(m.coeffs.Cross)).
		Add(cycle.MulScalar(m.coeffs.Cycle))
	if !m.cfg.Adversarial {
		total = total.Add(integ.MulScalar(m.coeffs.Integ))
	}

	advRaw := tensor.Zeros[float32](tensor.Shape{1}, m.backend)
	if m.cfg.Adversarial {
		advRaw = m.AdvLoss(out)
	}
	// The integration coefficient drives the adversarial game too, so
	// warmup pauses the discriminator along with the alignment terms.
	adv := advRaw.MulScalar(m.coeffs.Integ)
	main := total.Sub(adv)

	record := Record{
		Total: float64(main.Item()),
		Recon: float64(recon.Item()),
		Cross: float64(cross.Item()),
		Integ: float64(integ.Item()),
		Cycle: float64(cycle.Item()),
		Adv:   float64(advRaw.Item()),
	}
	return &LossOutput[B]{Main: main, Adv: adv, Record: record}, nil
}

// AdvLoss sums the discriminator's cross-entropy over every modality's
// latent rows, unweighted.
func (m *CAE[B]) AdvLoss(out *Outputs[B]) *tensor.Tensor[float32, B] {
	total := tensor.Zeros[float32](tensor.Shape{1}, m.backend)
	for i, z := range out.Zs {
		total = total.Add(m.discriminatorLoss(z, i))
	}
	return total
}

// discriminatorLoss is the cross-entropy of the discriminator
// predicting modality i from its latent rows.
func (m *CAE[B]) discriminatorLoss(z *tensor.Tensor[float32, B], i int) *tensor.Tensor[float32, B] {
	rows := z.Shape()[0]
	targets := make([]int32, rows)
	for r := range targets {
		targets[r] = int32(i)
	}
	tt, err := tensor.FromSlice[int32](targets, tensor.Shape{rows}, m.backend)
	if err != nil {
		panic(fmt.Sprintf("modality target tensor: %v", err))
	}
	return m.ce.Forward(m.discriminator.Forward(z), tt)
}

// validatePairMasks checks mask shape, values and the row alignment of
// paired cells within each group.
func (m *CAE[B]) validatePairMasks(xs []*tensor.Tensor[float32, B], masks [][]int32) error {
	if len(m.cfg.PairGroups) == 0 && masks == nil {
		return nil
	}
	if len(masks) != len(xs) {
		return fmt.Errorf("got %d pair masks, want %d", len(masks), len(xs))
	}
	groupCount := make(map[string]int)
	groupFirst := make(map[string]string)
	for i, mask := range masks {
		name := m.cfg.Modalities[i].Name
		rows := xs[i].Shape()[0]
		if len(mask) != rows {
			return fmt.Errorf("pair mask for modality %q has %d entries for %d cells", name, len(mask), rows)
		}
		count := 0
		for r, v := range mask {
			switch v {
			case 0:
			case 1:
				count++
			default:
				return fmt.Errorf("pair mask for modality %q: entry %d is %d, want 0 or 1", name, r, v)
			}
		}
		group := m.groups[i]
		if group == "" {
			continue
		}
		if prev, ok := groupCount[group]; ok {
			if prev != count {
				return fmt.Errorf("pair group %q: modality %q has %d paired cells, %q has %d",
					group, name, count, groupFirst[group], prev)
			}
		} else {
			groupCount[group] = count
			groupFirst[group] = name
		}
	}
	return nil
}

// splitRows partitions t's rows into the paired (mask 1) and unpaired
// (mask 0) subsets. An empty subset returns nil.
func splitRows[B tensor.Backend](t *tensor.Tensor[float32, B], mask []int32) (paired, unpaired *tensor.Tensor[float32, B]) {
	var p, u []int32
	for r, v := range mask {
		if v == 1 {
			p = append(p, int32(r))
		} else {
			u = append(u, int32(r))
		}
	}
	return selectRows(t, p), selectRows(t, u)
}

func selectRows[B tensor.Backend](t *tensor.Tensor[float32, B], rows []int32) *tensor.Tensor[float32, B] {
	if len(rows) == 0 {
		return nil
	}
	idx, err := tensor.FromSlice[int32](rows, tensor.Shape{len(rows)}, t.Backend())
	if err != nil {
		panic(fmt.Sprintf("row index tensor: %v", err))
	}
	return t.IndexSelect(idx)
}

// mse is the mean squared error over all elements, as a [1] scalar.
func mse[B tensor.Backend](a, b *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	d := a.Sub(b)
	return d.Mul(d).Mean()
}
