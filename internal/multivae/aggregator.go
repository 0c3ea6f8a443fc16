package multivae

import (
	"fmt"
	"math/rand"

	"github.com/scmulti-ml/scmulti/internal/nn"
	"github.com/scmulti-ml/scmulti/internal/tensor"
)

// Aggregator pools a set of instance vectors into a single vector of
// the same width. The pooling is either a plain sum or a learned
// softmax attention over the instances.
//
// Forward accepts a single set as [n, dim] or a batch of sets as
// [batch, n, dim]. The attention weights are returned alongside the
// pooled result as a diagnostic value; the aggregator itself holds no
// per-call state, so a single instance is safe to reuse across bags.
type Aggregator[B tensor.Backend] struct {
	mode ScoringMode
	dim  int

	// Attention head. value feeds the tanh branch, gate the sigmoid
	// branch (gated-attn only), score maps the head width to one
	// unnormalized score per instance.
	value *nn.Linear[B]
	gate  *nn.Linear[B]
	score *nn.Linear[B]
}

// NewAggregator creates an aggregator over vectors of width dim.
// attnDim is the attention head width, ignored for ScoreSum.
func NewAggregator[B tensor.Backend](dim int, mode ScoringMode, attnDim int, backend B, rng *rand.Rand) (*Aggregator[B], error) {
	if dim <= 0 {
		return nil, fmt.Errorf("aggregator: dim must be positive, got %d", dim)
	}
	agg := &Aggregator[B]{mode: mode, dim: dim}
	switch mode {
	case ScoreSum:
		return agg, nil
	case ScoreAttn, ScoreGatedAttn:
		if attnDim <= 0 {
			return nil, fmt.Errorf("aggregator: attn_dim must be positive for %v scoring, got %d", mode, attnDim)
		}
		agg.value = nn.NewLinear[B](dim, attnDim, backend, rng)
		if mode == ScoreGatedAttn {
			agg.gate = nn.NewLinear[B](dim, attnDim, backend, rng)
		}
		agg.score = nn.NewLinearNoBias[B](attnDim, 1, backend, rng)
		return agg, nil
	default:
		return nil, fmt.Errorf("aggregator: unknown scoring mode %d", int(mode))
	}
}

// Mode returns the configured scoring mode.
func (a *Aggregator[B]) Mode() ScoringMode { return a.mode }

// Dim returns the instance vector width.
func (a *Aggregator[B]) Dim() int { return a.dim }

// Forward pools the instances of x.
//
// For a [n, dim] input the pooled result is [dim] and the weights are
// [1, n]. For a [batch, n, dim] input the pooled result is
// [batch, dim] and the weights are [batch, 1, n]. ScoreSum returns nil
// weights.
func (a *Aggregator[B]) Forward(x *tensor.Tensor[float32, B]) (*tensor.Tensor[float32, B], *tensor.Tensor[float32, B]) {
	shape := x.Shape()
	ndim := len(shape)
	if ndim != 2 && ndim != 3 {
		panic(fmt.Sprintf("Aggregator.Forward: expected 2D or 3D input, got shape %v", shape))
	}
	if shape[ndim-1] != a.dim {
		panic(fmt.Sprintf("Aggregator.Forward: expected instance width %d, got %d", a.dim, shape[ndim-1]))
	}

	if a.mode == ScoreSum {
		return x.SumDim(ndim-2, false), nil
	}

	h := a.value.Forward(x).Tanh()
	if a.mode == ScoreGatedAttn {
		h = h.Mul(a.gate.Forward(x).Sigmoid())
	}
	scores := a.score.Forward(h) // [n, 1] or [batch, n, 1]

	if ndim == 2 {
		// weights [1, n], pooled [dim]
		weights := scores.T().Softmax()
		return weights.MatMul(x).Squeeze(0), weights
	}
	// weights [batch, 1, n], pooled [batch, dim]
	weights := scores.Transpose(0, 2, 1).Softmax()
	return weights.BatchMatMul(x).Squeeze(1), weights
}

// Parameters returns the attention parameters, empty for ScoreSum.
func (a *Aggregator[B]) Parameters() []*nn.Parameter[B] {
	if a.mode == ScoreSum {
		return nil
	}
	params := a.value.Parameters()
	if a.gate != nil {
		params = append(params, a.gate.Parameters()...)
	}
	return append(params, a.score.Parameters()...)
}

// StateDict returns the attention parameters keyed by branch.
func (a *Aggregator[B]) StateDict() map[string]*tensor.RawTensor {
	sd := make(map[string]*tensor.RawTensor)
	if a.mode == ScoreSum {
		return sd
	}
	nn.MergeStateDict(sd, "value.", a.value.StateDict())
	if a.gate != nil {
		nn.MergeStateDict(sd, "gate.", a.gate.StateDict())
	}
	nn.MergeStateDict(sd, "score.", a.score.StateDict())
	return sd
}

// LoadStateDict restores the attention parameters.
func (a *Aggregator[B]) LoadStateDict(sd map[string]*tensor.RawTensor) error {
	if a.mode == ScoreSum {
		return nil
	}
	if err := a.value.LoadStateDict(nn.SubStateDict(sd, "value.")); err != nil {
		return fmt.Errorf("aggregator value: %w", err)
	}
	if a.gate != nil {
		if err := a.gate.LoadStateDict(nn.SubStateDict(sd, "gate.")); err != nil {
			return fmt.Errorf("aggregator gate: %w", err)
		}
	}
	if err := a.score.LoadStateDict(nn.SubStateDict(sd, "score.")); err != nil {
		return fmt.Errorf("aggregator score: %w", err)
	}
	return nil
}
