package multivae

import (
	"errors"
	"fmt"
)

// Likelihood selects the reconstruction loss family for one modality.
type Likelihood int

const (
	// LikelihoodMSE scores reconstructions with squared error. Suited to
	// normalized continuous data such as scaled gene expression.
	LikelihoodMSE Likelihood = iota
	// LikelihoodNB scores raw counts with the negative binomial
	// log-likelihood using a fixed per-modality dispersion. Requires a
	// size factor column in the continuous covariates.
	LikelihoodNB
	// LikelihoodBCE scores binarized data (e.g. peak accessibility) with
	// binary cross-entropy.
	LikelihoodBCE
)

// String returns the canonical name ("mse", "nb", "bce").
func (l Likelihood) String() string {
	switch l {
	case LikelihoodMSE:
		return "mse"
	case LikelihoodNB:
		return "nb"
	case LikelihoodBCE:
		return "bce"
	default:
		return fmt.Sprintf("Likelihood(%d)", int(l))
	}
}

// ParseLikelihood maps a likelihood name to its Likelihood value.
func ParseLikelihood(s string) (Likelihood, error) {
	switch s {
	case "mse":
		return LikelihoodMSE, nil
	case "nb":
		return LikelihoodNB, nil
	case "bce":
		return LikelihoodBCE, nil
	default:
		return 0, fmt.Errorf("unknown likelihood %q (want mse, nb or bce)", s)
	}
}

// ScoringMode selects how an Aggregator pools a set of instance vectors.
type ScoringMode int

const (
	// ScoreSum pools by element-wise sum.
	ScoreSum ScoringMode = iota
	// ScoreAttn pools by softmax attention over a learned two-layer
	// score head.
	ScoreAttn
	// ScoreGatedAttn pools like ScoreAttn but gates the score input with
	// a sigmoid branch.
	ScoreGatedAttn
)

// String returns the canonical name ("sum", "attn", "gated-attn").
func (s ScoringMode) String() string {
	switch s {
	case ScoreSum:
		return "sum"
	case ScoreAttn:
		return "attn"
	case ScoreGatedAttn:
		return "gated-attn"
	default:
		return fmt.Sprintf("ScoringMode(%d)", int(s))
	}
}

// ParseScoringMode maps a scoring mode name to its ScoringMode value.
func ParseScoringMode(s string) (ScoringMode, error) {
	switch s {
	case "sum":
		return ScoreSum, nil
	case "attn":
		return ScoreAttn, nil
	case "gated-attn":
		return ScoreGatedAttn, nil
	default:
		return 0, fmt.Errorf("unknown scoring mode %q (want sum, attn or gated-attn)", s)
	}
}

// Coefficients weights the loss components. A zero Integ or Cycle
// coefficient disables its term entirely; the term is reported as a
// literal zero without being computed.
type Coefficients struct {
	Recon float64 `json:"recon"`
	KL    float64 `json:"kl"`
	Integ float64 `json:"integ"`
	Cycle float64 `json:"cycle"`
	Class float64 `json:"class"`
}

// Modality declares one block of the concatenated feature matrix.
type Modality struct {
	// Name identifies the modality in errors and state dict keys.
	Name string `json:"name"`
	// Dim is the block width in features.
	Dim int `json:"dim"`
	// Likelihood selects the reconstruction loss for this block.
	Likelihood Likelihood `json:"likelihood"`
	// Theta is the negative binomial inverse dispersion. Zero means 1.
	// Ignored for other likelihoods.
	Theta float64 `json:"theta,omitempty"`
}

// Sentinel column indexes. Zero is a valid covariate index, so "not
// configured" is negative.
const (
	// NoIntegration disables integration-loss grouping; all cells pool
	// into a single group and the loss contributes zero.
	NoIntegration = -1
	// NoPatient marks that no patient column exists to exclude from the
	// classifier covariates.
	NoPatient = -1
)

// VAEConfig configures the shared-latent VAE core.
//
// The model consumes batches whose feature matrix is the horizontal
// concatenation of the declared modality blocks. Categorical covariates
// are embedded to CondDim; the batch's categorical matrix carries one
// extra final column holding the bag label, which is never embedded.
// Continuous covariates are log1p-transformed and linearly embedded;
// their final column is the size factor used by NB reconstruction.
type VAEConfig struct {
	// Modalities declares the feature blocks in input order.
	Modalities []Modality `json:"modalities"`
	// ZDim is the latent dimensionality.
	ZDim int `json:"z_dim"`
	// Hidden lists the hidden widths of every encoder MLP; decoders use
	// the reverse.
	Hidden []int `json:"hidden"`
	// CondDim is the width of each covariate embedding. Required when
	// any covariates are declared.
	CondDim int `json:"cond_dim"`
	// CatCovariates lists the cardinality of each embedded categorical
	// covariate column, in column order.
	CatCovariates []int `json:"cat_covariates"`
	// ContCovariates is the number of continuous covariate columns.
	ContCovariates int `json:"cont_covariates"`
	// IntegrateOn selects the categorical covariate whose values define
	// integration-loss groups. NoIntegration pools all cells together.
	IntegrateOn int `json:"integrate_on"`
	// Norm enables LayerNorm inside the MLPs.
	Norm bool `json:"norm"`
	// Dropout is the dropout probability inside the MLPs, in [0, 1).
	Dropout float64 `json:"dropout"`
	// Seed seeds parameter initialization and the reparameterization
	// noise source.
	Seed int64 `json:"seed"`
}

// TotalDim returns the summed width of all modality blocks.
func (c *VAEConfig) TotalDim() int {
	total := 0
	for _, m := range c.Modalities {
		total += m.Dim
	}
	return total
}

// Validate reports the first configuration error, or nil.
func (c *VAEConfig) Validate() error {
	if len(c.Modalities) == 0 {
		return errors.New("at least one modality is required")
	}
	seen := make(map[string]bool, len(c.Modalities))
	for i, m := range c.Modalities {
		if m.Name == "" {
			return fmt.Errorf("modality %d has no name", i)
		}
		if seen[m.Name] {
			return fmt.Errorf("duplicate modality name %q", m.Name)
		}
		seen[m.Name] = true
		if m.Dim <= 0 {
			return fmt.Errorf("modality %q: dim must be positive, got %d", m.Name, m.Dim)
		}
		switch m.Likelihood {
		case LikelihoodMSE, LikelihoodBCE:
		case LikelihoodNB:
			if m.Theta < 0 {
				return fmt.Errorf("modality %q: theta must be non-negative, got %g", m.Name, m.Theta)
			}
			if c.ContCovariates == 0 {
				return fmt.Errorf("modality %q: nb likelihood requires the size factor as the final continuous covariate", m.Name)
			}
		default:
			return fmt.Errorf("modality %q: unknown likelihood %d", m.Name, int(m.Likelihood))
		}
	}
	if c.ZDim <= 0 {
		return fmt.Errorf("z_dim must be positive, got %d", c.ZDim)
	}
	for i, h := range c.Hidden {
		if h <= 0 {
			return fmt.Errorf("hidden width %d must be positive, got %d", i, h)
		}
	}
	for i, card := range c.CatCovariates {
		if card <= 0 {
			return fmt.Errorf("categorical covariate %d: cardinality must be positive, got %d", i, card)
		}
	}
	if c.ContCovariates < 0 {
		return fmt.Errorf("cont_covariates must be non-negative, got %d", c.ContCovariates)
	}
	if (len(c.CatCovariates) > 0 || c.ContCovariates > 0) && c.CondDim <= 0 {
		return fmt.Errorf("cond_dim must be positive when covariates are declared, got %d", c.CondDim)
	}
	if c.IntegrateOn != NoIntegration && (c.IntegrateOn < 0 || c.IntegrateOn >= len(c.CatCovariates)) {
		return fmt.Errorf("integrate_on %d out of range: have %d categorical covariates", c.IntegrateOn, len(c.CatCovariates))
	}
	if c.Dropout < 0 || c.Dropout >= 1 {
		return fmt.Errorf("dropout must be in [0, 1), got %g", c.Dropout)
	}
	return nil
}

// MILConfig configures the MIL classification head.
type MILConfig struct {
	// NumClasses is the number of bag-level classes. Bag labels are the
	// values of the batch's final categorical column and must lie in
	// [0, NumClasses).
	NumClasses int `json:"num_classes"`
	// Scoring selects the aggregator pooling mode.
	Scoring ScoringMode `json:"scoring"`
	// AttnDim is the attention head width for attn and gated-attn.
	AttnDim int `json:"attn_dim"`
	// ClassHidden lists the hidden widths of the per-cell transform in
	// front of the cell-level aggregator.
	ClassHidden []int `json:"class_hidden"`
	// Hierarchical enables the second aggregation over covariate views.
	// Requires at least one covariate view after patient exclusion.
	Hierarchical bool `json:"hierarchical"`
	// PatientColumn indexes the categorical covariate carrying the
	// patient identity, or NoPatient. Excluded from the classifier
	// covariates unless AddPatientToClassifier is set; the VAE decoder
	// still conditions on it.
	PatientColumn int `json:"patient_column"`
	// AddPatientToClassifier feeds the patient embedding to the
	// classifier despite PatientColumn.
	AddPatientToClassifier bool `json:"add_patient_to_classifier"`
	// ValidateBags checks that every embedded categorical covariate is
	// constant within each bag and fails the forward pass otherwise.
	// When unset, the first cell silently represents the bag.
	ValidateBags bool `json:"validate_bags"`
}

// Validate reports the first configuration error, or nil. Checks that
// depend on the VAE configuration happen in NewMILClassifier.
func (c *MILConfig) Validate() error {
	if c.NumClasses < 2 {
		return fmt.Errorf("num_classes must be at least 2, got %d", c.NumClasses)
	}
	switch c.Scoring {
	case ScoreSum:
	case ScoreAttn, ScoreGatedAttn:
		if c.AttnDim <= 0 {
			return fmt.Errorf("attn_dim must be positive for %v scoring, got %d", c.Scoring, c.AttnDim)
		}
	default:
		return fmt.Errorf("unknown scoring mode %d", int(c.Scoring))
	}
	for i, h := range c.ClassHidden {
		if h <= 0 {
			return fmt.Errorf("class_hidden width %d must be positive, got %d", i, h)
		}
	}
	if c.PatientColumn < NoPatient {
		return fmt.Errorf("patient_column must be a covariate index or NoPatient, got %d", c.PatientColumn)
	}
	return nil
}
