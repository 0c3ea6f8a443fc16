package multivae

import (
	"fmt"
	"math"

	"github.com/scmulti-ml/scmulti/internal/tensor"
)

// lossEps keeps logarithms away from zero in the BCE and NB terms.
const lossEps = 1e-8

// mmdScales is the RBF bandwidth ladder shared by every MMD term. The
// ladder is fixed, so the integration loss is deterministic given the
// latents.
var mmdScales = []float64{0.5, 1, 2, 4, 8}

// PresenceMasks returns one [cells, 1] mask per modality block with 1
// where the cell carries the modality (any nonzero feature) and 0
// where the block is all zero. The masks are constants: gradients flow
// only through the terms they scale.
func (m *MultiVAE[B]) PresenceMasks(xs []*tensor.Tensor[float32, B]) []*tensor.Tensor[float32, B] {
	return m.presence(xs).masks
}

// CalcKLLoss is the closed-form KL divergence between the diagonal
// Gaussian posterior N(mu, exp(logvar)) and the standard normal prior,
// summed over latent dimensions. Returns one value per cell.
func CalcKLLoss[B tensor.Backend](mu, logvar *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	inner := logvar.AddScalar(1).Sub(mu.Mul(mu)).Sub(logvar.Exp())
	return inner.SumDim(1, false).MulScalar(-0.5)
}

// CalcReconLoss sums each modality's masked per-cell reconstruction
// loss, returning one value per cell. xs and rs follow modality
// declaration order; masks come from PresenceMasks; sizeFactors is the
// [cells, 1] library size column, required when any modality uses the
// NB likelihood.
func (m *MultiVAE[B]) CalcReconLoss(xs, rs, masks []*tensor.Tensor[float32, B], sizeFactors *tensor.Tensor[float32, B]) (*tensor.Tensor[float32, B], error) {
	if len(xs) != len(m.cfg.Modalities) || len(rs) != len(m.cfg.Modalities) || len(masks) != len(m.cfg.Modalities) {
		return nil, fmt.Errorf("recon loss: got %d/%d/%d modality blocks, want %d", len(xs), len(rs), len(masks), len(m.cfg.Modalities))
	}
	var total *tensor.Tensor[float32, B]
	for i, mod := range m.cfg.Modalities {
		var perCell *tensor.Tensor[float32, B]
		switch mod.Likelihood {
		case LikelihoodMSE:
			d := rs[i].Sub(xs[i])
			perCell = d.Mul(d).SumDim(1, true)
		case LikelihoodBCE:
			perCell = bceLoss(xs[i], rs[i])
		case LikelihoodNB:
			if sizeFactors == nil {
				return nil, fmt.Errorf("recon loss: modality %q uses nb but the batch has no size factors", mod.Name)
			}
			theta := mod.Theta
			if theta == 0 {
				theta = 1
			}
			perCell = nbLoss(xs[i], rs[i], sizeFactors, theta)
		}
		perCell = perCell.Mul(masks[i])
		if total == nil {
			total = perCell
		} else {
			total = total.Add(perCell)
		}
	}
	cells := xs[0].Shape()[0]
	return total.Reshape(cells), nil
}

// bceLoss is the per-cell binary cross-entropy, summed over features.
// r must already be sigmoid-activated.
func bceLoss[B tensor.Backend](x, r *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	oneMinusX := x.MulScalar(-1).AddScalar(1)
	oneMinusR := r.MulScalar(-1).AddScalar(1)
	ll := x.Mul(r.AddScalar(lossEps).Log()).Add(oneMinusX.Mul(oneMinusR.AddScalar(lossEps).Log()))
	return ll.SumDim(1, true).MulScalar(-1)
}

// nbLoss is the per-cell negative binomial negative log-likelihood,
// summed over features. r is the decoder's exp-activated rate; the NB
// mean is r scaled by the cell's size factor. The lgamma terms depend
// only on the observed counts and the fixed dispersion, so they are
// computed on the host as a constant; gradients flow through the mean
// terms.
func nbLoss[B tensor.Backend](x, r, sizeFactors *tensor.Tensor[float32, B], theta float64) *tensor.Tensor[float32, B] {
	shape := x.Shape()
	xData := x.Data()
	lg := make([]float32, len(xData))
	lgTheta, _ := math.Lgamma(theta)
	for i, v := range xData {
		a, _ := math.Lgamma(float64(v) + theta)
		b, _ := math.Lgamma(float64(v) + 1)
		lg[i] = float32(a - lgTheta - b)
	}
	lgConst, err := tensor.FromSlice[float32](lg, shape, x.Backend())
	if err != nil {
		panic(fmt.Sprintf("nb lgamma constant: %v", err))
	}

	mean := r.Mul(sizeFactors)
	logThetaMean := mean.AddScalar(theta + lossEps).Log()
	term1 := logThetaMean.MulScalar(-theta).AddScalar(theta * math.Log(theta))
	term2 := x.Mul(mean.AddScalar(lossEps).Log().Sub(logThetaMean))
	logProb := lgConst.Add(term1).Add(term2)
	return logProb.SumDim(1, true).MulScalar(-1)
}

// CalcIntegLoss sums the pairwise multi-scale MMD between the latent
// distributions of each group. Groups with fewer than two cells are
// skipped; with fewer than two usable groups the loss is zero. Panics
// when groups does not have one entry per latent row.
func CalcIntegLoss[B tensor.Backend](z *tensor.Tensor[float32, B], groups []int32) *tensor.Tensor[float32, B] {
	backend := z.Backend()
	cells := z.Shape()[0]
	if len(groups) != cells {
		panic(fmt.Sprintf("CalcIntegLoss: %d group labels for %d cells", len(groups), cells))
	}

	var order []int32
	rows := make(map[int32][]int32)
	for r, g := range groups {
		if _, ok := rows[g]; !ok {
			order = append(order, g)
		}
		rows[g] = append(rows[g], int32(r))
	}
	var sets []*tensor.Tensor[float32, B]
	for _, g := range order {
		idx := rows[g]
		if len(idx) < 2 {
			continue
		}
		it, err := tensor.FromSlice[int32](idx, tensor.Shape{len(idx)}, backend)
		if err != nil {
			panic(fmt.Sprintf("group index tensor: %v", err))
		}
		sets = append(sets, z.IndexSelect(it))
	}

	total := tensor.Zeros[float32](tensor.Shape{1}, backend)
	for i := 0; i < len(sets); i++ {
		for j := i + 1; j < len(sets); j++ {
			total = total.Add(MMD(sets[i], sets[j]))
		}
	}
	return total
}

// MMD is the biased V-statistic estimate of the multi-scale RBF
// maximum mean discrepancy between two sets of vectors. Both the
// integration loss here and the cross-modal autoencoder's unpaired
// terms use this estimate.
func MMD[B tensor.Backend](a, b *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	return kernelMean(a, a).Add(kernelMean(b, b)).Sub(kernelMean(a, b).MulScalar(2))
}

// kernelMean averages the multi-scale RBF kernel over all pairs drawn
// from a [n, d] and b [m, d]. Squared distances come from the
// ||a||^2 + ||b||^2 - 2ab^T expansion, broadcast over [n, 1] + [1, m].
func kernelMean[B tensor.Backend](a, b *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	aSq := a.Mul(a).SumDim(1, true)
	bSq := b.Mul(b).SumDim(1, true).T()
	d2 := aSq.Add(bSq).Sub(a.MatMul(b.T()).MulScalar(2))
	var k *tensor.Tensor[float32, B]
	for _, scale := range mmdScales {
		e := d2.MulScalar(-1 / (2 * scale * scale)).Exp()
		if k == nil {
			k = e
		} else {
			k = k.Add(e)
		}
	}
	return k.Mean()
}

// CalcCycleLoss decodes the latent into each modality, re-encodes the
// reconstruction with that modality's encoder, and penalizes the
// squared drift from the original latent. For target modality j the
// drift is averaged separately over the cells carrying each other
// modality i != j; source modalities no cell carries are skipped.
func (m *MultiVAE[B]) CalcCycleLoss(xs []*tensor.Tensor[float32, B], z *tensor.Tensor[float32, B], batch *Batch[B]) (*tensor.Tensor[float32, B], error) {
	cond, err := m.conditionEmbedding(batch)
	if err != nil {
		return nil, err
	}
	pres := m.presence(xs)

	total := tensor.Zeros[float32](tensor.Shape{1}, m.backend)
	for j := range m.cfg.Modalities {
		var drift *tensor.Tensor[float32, B]
		for i := range m.cfg.Modalities {
			if i == j || pres.counts[i] == 0 {
				continue
			}
			if drift == nil {
				rj := m.decodeModality(j, z, cond)
				zBack := m.encodeModality(j, rj)
				d := z.Sub(zBack)
				drift = d.Mul(d).SumDim(1, true)
			}
			masked := drift.Mul(pres.masks[i])
			total = total.Add(masked.Sum().MulScalar(1 / float64(pres.counts[i])))
		}
	}
	return total, nil
}
