// Package multivae implements a multi-modal variational autoencoder
// for single-cell omics with a multiple-instance-learning
// classification head.
//
// The core model (MultiVAE) encodes each declared modality block of
// the feature matrix into a shared latent space, averages the
// per-modality posteriors over the modalities a cell actually carries,
// and decodes every modality back out, conditioned on covariate
// embeddings. Loss terms cover per-modality reconstruction (MSE,
// negative binomial or BCE), the closed-form KL to a standard normal
// prior, a multi-scale MMD integration penalty between covariate
// groups, and a cross-modal cycle-consistency penalty.
//
// MILClassifier wraps the core: cells are grouped into bags by the
// final categorical column, each bag is pooled by a learned Aggregator
// and classified with a linear head, optionally after a second
// attention pass over the bag's covariate views.
//
// Models never perform I/O and never log; training loops live in the
// train package.
package multivae

import (
	"fmt"
	"math/rand"

	"github.com/scmulti-ml/scmulti/internal/nn"
	"github.com/scmulti-ml/scmulti/internal/tensor"
)

// MultiVAE is the shared-latent VAE core.
//
// Each modality block has its own encoder MLP with mu/logvar heads and
// its own decoder MLP. The joint posterior is the presence-masked
// average of the per-modality posterior parameters: a cell whose block
// is all zero for a modality contributes nothing to the joint for that
// modality, and a cell missing every modality falls back to the prior.
type MultiVAE[B tensor.Backend] struct {
	cfg     VAEConfig
	backend B
	rng     *rand.Rand

	encoders    []*nn.MLP[B]
	muHeads     []*nn.Linear[B]
	logvarHeads []*nn.Linear[B]
	decoders    []*nn.MLP[B]

	// One embedding per categorical covariate and one Linear(1, cond)
	// per continuous covariate. The decoder conditions on their sum;
	// the MIL head consumes them as separate views.
	catEmbeddings  []*nn.Embedding[B]
	contEmbeddings []*nn.Linear[B]
}

// InferenceOutputs holds the posterior produced by Inference.
type InferenceOutputs[B tensor.Backend] struct {
	// ZJoint is the reparameterized latent sample, [cells, zDim].
	ZJoint *tensor.Tensor[float32, B]
	// Mu and Logvar parameterize the joint diagonal-Gaussian posterior.
	Mu     *tensor.Tensor[float32, B]
	Logvar *tensor.Tensor[float32, B]
}

// GenerativeOutputs holds the per-modality reconstructions produced by
// Generative, in modality declaration order.
type GenerativeOutputs[B tensor.Backend] struct {
	Rs []*tensor.Tensor[float32, B]
}

// NewMultiVAE builds the core model from its configuration.
// Configuration errors are reported here, never later.
func NewMultiVAE[B tensor.Backend](cfg VAEConfig, backend B) (*MultiVAE[B], error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("multivae config: %w", err)
	}
	rng := rand.New(rand.NewSource(cfg.Seed))
	m := &MultiVAE[B]{cfg: cfg, backend: backend, rng: rng}

	decoderIn := cfg.ZDim
	if m.conditioned() {
		decoderIn += cfg.CondDim
	}
	for _, mod := range cfg.Modalities {
		encCfg := nn.MLPConfig[B]{
			Hidden:         cfg.Hidden,
			Norm:           cfg.Norm,
			Dropout:        cfg.Dropout,
			RegularizeLast: true,
		}
		m.encoders = append(m.encoders, nn.NewMLP(mod.Dim, cfg.ZDim, encCfg, backend, rng))
		m.muHeads = append(m.muHeads, nn.NewLinear[B](cfg.ZDim, cfg.ZDim, backend, rng))
		m.logvarHeads = append(m.logvarHeads, nn.NewLinear[B](cfg.ZDim, cfg.ZDim, backend, rng))

		decCfg := nn.MLPConfig[B]{
			Hidden:           reverseInts(cfg.Hidden),
			Norm:             cfg.Norm,
			Dropout:          cfg.Dropout,
			OutputActivation: outputActivation[B](mod.Likelihood),
		}
		m.decoders = append(m.decoders, nn.NewMLP(decoderIn, mod.Dim, decCfg, backend, rng))
	}
	for _, card := range cfg.CatCovariates {
		m.catEmbeddings = append(m.catEmbeddings, nn.NewEmbedding[B](card, cfg.CondDim, backend, rng))
	}
	for i := 0; i < cfg.ContCovariates; i++ {
		m.contEmbeddings = append(m.contEmbeddings, nn.NewLinear[B](1, cfg.CondDim, backend, rng))
	}
	return m, nil
}

// Config returns the model's configuration.
func (m *MultiVAE[B]) Config() VAEConfig { return m.cfg }

// Backend returns the backend the model computes on.
func (m *MultiVAE[B]) Backend() B { return m.backend }

func (m *MultiVAE[B]) conditioned() bool {
	return len(m.cfg.CatCovariates) > 0 || m.cfg.ContCovariates > 0
}

// SplitByModality splits a feature matrix into the declared modality
// blocks. The width must match the declared total exactly.
func (m *MultiVAE[B]) SplitByModality(x *tensor.Tensor[float32, B]) ([]*tensor.Tensor[float32, B], error) {
	shape := x.Shape()
	if len(shape) != 2 || shape[1] != m.cfg.TotalDim() {
		return nil, fmt.Errorf("feature matrix shape %v does not match declared modality widths (total %d)", shape, m.cfg.TotalDim())
	}
	return m.splitModalities(x), nil
}

func (m *MultiVAE[B]) splitModalities(x *tensor.Tensor[float32, B]) []*tensor.Tensor[float32, B] {
	dims := make([]int, len(m.cfg.Modalities))
	for i, mod := range m.cfg.Modalities {
		dims[i] = mod.Dim
	}
	return x.SplitSizes(dims, 1)
}

// presence describes which cells carry which modalities. The masks are
// constant tensors built on the host, so gradients flow only through
// the posterior parameters they scale.
type presence[B tensor.Backend] struct {
	// masks[i] is [cells, 1] with 1 where the cell carries modality i.
	masks []*tensor.Tensor[float32, B]
	// counts[i] is the number of cells carrying modality i.
	counts []int
	// invCount is [cells, 1] holding 1/max(1, modalities present).
	invCount *tensor.Tensor[float32, B]
}

func (m *MultiVAE[B]) presence(xs []*tensor.Tensor[float32, B]) *presence[B] {
	cells := xs[0].Shape()[0]
	p := &presence[B]{}
	perCell := make([]float32, cells)
	for _, x := range xs {
		shape := x.Shape()
		dim := shape[1]
		data := x.Data()
		mask := make([]float32, cells)
		count := 0
		for r := 0; r < cells; r++ {
			row := data[r*dim : (r+1)*dim]
			for _, v := range row {
				if v != 0 {
					mask[r] = 1
					count++
					perCell[r]++
					break
				}
			}
		}
		t, err := tensor.FromSlice[float32](mask, tensor.Shape{cells, 1}, m.backend)
		if err != nil {
			panic(fmt.Sprintf("presence mask: %v", err))
		}
		p.masks = append(p.masks, t)
		p.counts = append(p.counts, count)
	}
	inv := make([]float32, cells)
	for r, c := range perCell {
		if c < 1 {
			c = 1
		}
		inv[r] = 1 / c
	}
	t, err := tensor.FromSlice[float32](inv, tensor.Shape{cells, 1}, m.backend)
	if err != nil {
		panic(fmt.Sprintf("presence count: %v", err))
	}
	p.invCount = t
	return p
}

// Inference encodes the batch into the joint posterior and draws a
// reparameterized latent sample z = mu + exp(logvar/2) * eps.
func (m *MultiVAE[B]) Inference(batch *Batch[B]) (*InferenceOutputs[B], error) {
	if err := batch.validate(m.cfg.TotalDim(), len(m.cfg.CatCovariates), m.cfg.ContCovariates, false); err != nil {
		return nil, fmt.Errorf("inference: %w", err)
	}
	xs := m.splitModalities(batch.X)
	pres := m.presence(xs)
	mu, logvar := m.jointPosterior(xs, pres)

	eps := tensor.Randn[float32](mu.Shape(), m.backend, m.rng)
	z := mu.Add(logvar.MulScalar(0.5).Exp().Mul(eps))
	return &InferenceOutputs[B]{ZJoint: z, Mu: mu, Logvar: logvar}, nil
}

// jointPosterior averages the per-modality posterior parameters over
// the modalities each cell carries.
func (m *MultiVAE[B]) jointPosterior(xs []*tensor.Tensor[float32, B], pres *presence[B]) (mu, logvar *tensor.Tensor[float32, B]) {
	var muSum, logvarSum *tensor.Tensor[float32, B]
	for i, x := range xs {
		h := m.encoders[i].Forward(x)
		muI := m.muHeads[i].Forward(h).Mul(pres.masks[i])
		logvarI := m.logvarHeads[i].Forward(h).Mul(pres.masks[i])
		if muSum == nil {
			muSum, logvarSum = muI, logvarI
		} else {
			muSum = muSum.Add(muI)
			logvarSum = logvarSum.Add(logvarI)
		}
	}
	return muSum.Mul(pres.invCount), logvarSum.Mul(pres.invCount)
}

// encodeModality runs one modality's encoder and returns the posterior
// mean. Used by the cycle loss to re-encode cross-modal
// reconstructions.
func (m *MultiVAE[B]) encodeModality(i int, x *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	return m.muHeads[i].Forward(m.encoders[i].Forward(x))
}

// covariateViews embeds every covariate column to cond_dim. The cat
// views are indexed like CatCovariates, the cont views like the
// continuous columns. Continuous values pass through log1p first.
func (m *MultiVAE[B]) covariateViews(batch *Batch[B]) (cat, cont []*tensor.Tensor[float32, B], err error) {
	cells := batch.Cells()
	for i, emb := range m.catEmbeddings {
		col := batch.CatColumn(i)
		card := int32(m.cfg.CatCovariates[i])
		for r, v := range col {
			if v < 0 || v >= card {
				return nil, nil, fmt.Errorf("categorical covariate %d: value %d at row %d outside [0, %d)", i, v, r, card)
			}
		}
		idx, ferr := tensor.FromSlice[int32](col, tensor.Shape{cells}, m.backend)
		if ferr != nil {
			panic(fmt.Sprintf("covariate index tensor: %v", ferr))
		}
		cat = append(cat, emb.Forward(idx))
	}
	for j, lin := range m.contEmbeddings {
		col := batch.ContColumn(j)
		v, ferr := tensor.FromSlice[float32](col, tensor.Shape{cells, 1}, m.backend)
		if ferr != nil {
			panic(fmt.Sprintf("covariate column tensor: %v", ferr))
		}
		cont = append(cont, lin.Forward(v.Log1p()))
	}
	return cat, cont, nil
}

// conditionEmbedding sums all covariate views into the decoder
// conditioning vector, or nil when the model has no covariates.
func (m *MultiVAE[B]) conditionEmbedding(batch *Batch[B]) (*tensor.Tensor[float32, B], error) {
	cat, cont, err := m.covariateViews(batch)
	if err != nil {
		return nil, err
	}
	var cond *tensor.Tensor[float32, B]
	for _, v := range cat {
		if cond == nil {
			cond = v
		} else {
			cond = cond.Add(v)
		}
	}
	for _, v := range cont {
		if cond == nil {
			cond = v
		} else {
			cond = cond.Add(v)
		}
	}
	return cond, nil
}

// Generative decodes the latent back into every modality, conditioned
// on the batch's covariate embeddings.
func (m *MultiVAE[B]) Generative(z *tensor.Tensor[float32, B], batch *Batch[B]) (*GenerativeOutputs[B], error) {
	if err := batch.validate(m.cfg.TotalDim(), len(m.cfg.CatCovariates), m.cfg.ContCovariates, false); err != nil {
		return nil, fmt.Errorf("generative: %w", err)
	}
	zShape := z.Shape()
	if len(zShape) != 2 || zShape[1] != m.cfg.ZDim {
		return nil, fmt.Errorf("generative: latent shape %v, want [cells %d]", zShape, m.cfg.ZDim)
	}
	if zShape[0] != batch.Cells() {
		return nil, fmt.Errorf("generative: latent rows %d do not match batch cells %d", zShape[0], batch.Cells())
	}
	cond, err := m.conditionEmbedding(batch)
	if err != nil {
		return nil, err
	}
	return &GenerativeOutputs[B]{Rs: m.decode(z, cond)}, nil
}

// decode runs every decoder on z, concatenated with the conditioning
// vector when present.
func (m *MultiVAE[B]) decode(z, cond *tensor.Tensor[float32, B]) []*tensor.Tensor[float32, B] {
	input := z
	if cond != nil {
		input = tensor.Cat([]*tensor.Tensor[float32, B]{z, cond}, 1)
	}
	rs := make([]*tensor.Tensor[float32, B], len(m.decoders))
	for i, dec := range m.decoders {
		rs[i] = dec.Forward(input)
	}
	return rs
}

// decodeModality decodes z as a single modality. Used by the cycle
// loss.
func (m *MultiVAE[B]) decodeModality(i int, z, cond *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	input := z
	if cond != nil {
		input = tensor.Cat([]*tensor.Tensor[float32, B]{z, cond}, 1)
	}
	return m.decoders[i].Forward(input)
}

// SetTraining toggles dropout across all submodules.
func (m *MultiVAE[B]) SetTraining(training bool) {
	for _, e := range m.encoders {
		e.SetTraining(training)
	}
	for _, d := range m.decoders {
		d.SetTraining(training)
	}
}

// Parameters returns all trainable parameters in a stable order.
func (m *MultiVAE[B]) Parameters() []*nn.Parameter[B] {
	var params []*nn.Parameter[B]
	for i := range m.encoders {
		params = append(params, m.encoders[i].Parameters()...)
		params = append(params, m.muHeads[i].Parameters()...)
		params = append(params, m.logvarHeads[i].Parameters()...)
		params = append(params, m.decoders[i].Parameters()...)
	}
	for _, e := range m.catEmbeddings {
		params = append(params, e.Parameters()...)
	}
	for _, l := range m.contEmbeddings {
		params = append(params, l.Parameters()...)
	}
	return params
}

// StateDict returns all parameters keyed by submodule path, e.g.
// "encoders.0.0.weight" for the first encoder's first linear layer.
func (m *MultiVAE[B]) StateDict() map[string]*tensor.RawTensor {
	sd := make(map[string]*tensor.RawTensor)
	for i := range m.encoders {
		nn.MergeStateDict(sd, fmt.Sprintf("encoders.%d.", i), m.encoders[i].StateDict())
		nn.MergeStateDict(sd, fmt.Sprintf("mu_heads.%d.", i), m.muHeads[i].StateDict())
		nn.MergeStateDict(sd, fmt.Sprintf("logvar_heads.%d.", i), m.logvarHeads[i].StateDict())
		nn.MergeStateDict(sd, fmt.Sprintf("decoders.%d.", i), m.decoders[i].StateDict())
	}
	for i, e := range m.catEmbeddings {
		nn.MergeStateDict(sd, fmt.Sprintf("cat_embeddings.%d.", i), e.StateDict())
	}
	for i, l := range m.contEmbeddings {
		nn.MergeStateDict(sd, fmt.Sprintf("cont_embeddings.%d.", i), l.StateDict())
	}
	return sd
}

// LoadStateDict restores all parameters from a state dict produced by
// StateDict on an identically configured model.
func (m *MultiVAE[B]) LoadStateDict(sd map[string]*tensor.RawTensor) error {
	for i := range m.encoders {
		if err := m.encoders[i].LoadStateDict(nn.SubStateDict(sd, fmt.Sprintf("encoders.%d.", i))); err != nil {
			return fmt.Errorf("encoder %d: %w", i, err)
		}
		if err := m.muHeads[i].LoadStateDict(nn.SubStateDict(sd, fmt.Sprintf("mu_heads.%d.", i))); err != nil {
			return fmt.Errorf("mu head %d: %w", i, err)
		}
		if err := m.logvarHeads[i].LoadStateDict(nn.SubStateDict(sd, fmt.Sprintf("logvar_heads.%d.", i))); err != nil {
			return fmt.Errorf("logvar head %d: %w", i, err)
		}
		if err := m.decoders[i].LoadStateDict(nn.SubStateDict(sd, fmt.Sprintf("decoders.%d.", i))); err != nil {
			return fmt.Errorf("decoder %d: %w", i, err)
		}
	}
	for i, e := range m.catEmbeddings {
		if err := e.LoadStateDict(nn.SubStateDict(sd, fmt.Sprintf("cat_embeddings.%d.", i))); err != nil {
			return fmt.Errorf("categorical embedding %d: %w", i, err)
		}
	}
	for i, l := range m.contEmbeddings {
		if err := l.LoadStateDict(nn.SubStateDict(sd, fmt.Sprintf("cont_embeddings.%d.", i))); err != nil {
			return fmt.Errorf("continuous embedding %d: %w", i, err)
		}
	}
	return nil
}

func reverseInts(xs []int) []int {
	out := make([]int, len(xs))
	for i, x := range xs {
		out[len(xs)-1-i] = x
	}
	return out
}

func outputActivation[B tensor.Backend](l Likelihood) nn.Module[B] {
	switch l {
	case LikelihoodNB:
		return nn.NewExp[B]()
	case LikelihoodBCE:
		return nn.NewSigmoid[B]()
	default:
		return nil
	}
}
