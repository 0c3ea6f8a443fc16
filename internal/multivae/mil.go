package multivae

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/scmulti-ml/scmulti/internal/nn"
	"github.com/scmulti-ml/scmulti/internal/tensor"
)

// MILClassifier attaches a bag-level classification head to a MultiVAE.
//
// Cells are grouped into bags by the final categorical column. A
// per-cell MLP maps latents to cond_dim, a cell-level Aggregator pools
// each bag, and a linear head produces class logits. With Hierarchical
// set, the pooled bag vector is first joined with the bag's covariate
// embeddings (first cell representative) and a second Aggregator
// attends over those views.
type MILClassifier[B tensor.Backend] struct {
	cfg     MILConfig
	vae     *MultiVAE[B]
	backend B

	cellTransform *nn.MLP[B]
	cellPool      *Aggregator[B]
	covTransform  *nn.MLP[B]
	covPool       *Aggregator[B]
	classifier    *nn.Linear[B]
	ce            *nn.CrossEntropyLoss[B]
}

// MILOutputs extends the VAE posterior with the classification head's
// outputs and attention diagnostics.
type MILOutputs[B tensor.Backend] struct {
	InferenceOutputs[B]
	// Prediction holds bag-level class logits, [bags, numClasses].
	Prediction *tensor.Tensor[float32, B]
	// Bags records the grouping behind the prediction rows.
	Bags *Bags
	// CellWeights holds each bag's attention over its cells as [1, n]
	// rows in bag order. Nil for ScoreSum.
	CellWeights []*tensor.Tensor[float32, B]
	// ViewWeights holds the attention over covariate views,
	// [bags, 1, views]. Nil without hierarchical aggregation.
	ViewWeights *tensor.Tensor[float32, B]
}

// LossRecord reports each loss component as an unweighted host value
// for logging. Total is the coefficient-weighted objective value.
type LossRecord struct {
	Total    float64 `json:"total"`
	Recon    float64 `json:"recon"`
	KL       float64 `json:"kl"`
	Integ    float64 `json:"integ"`
	Cycle    float64 `json:"cycle"`
	Class    float64 `json:"class"`
	Accuracy float64 `json:"accuracy"`
}

// LossOutput pairs the differentiable training objective with its
// logged components.
type LossOutput[B tensor.Backend] struct {
	// Total is the scalar objective, recorded on the tape.
	Total  *tensor.Tensor[float32, B]
	Record LossRecord
}

// NewMILClassifier builds the classification head over an existing
// core model. Cross-checks between the two configurations happen here.
func NewMILClassifier[B tensor.Backend](cfg MILConfig, vae *MultiVAE[B], rng *rand.Rand) (*MILClassifier[B], error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("mil config: %w", err)
	}
	vaeCfg := vae.Config()
	if vaeCfg.CondDim <= 0 {
		return nil, errors.New("mil config: classifier head requires cond_dim > 0 on the core model")
	}
	if cfg.PatientColumn != NoPatient && cfg.PatientColumn >= len(vaeCfg.CatCovariates) {
		return nil, fmt.Errorf("mil config: patient_column %d out of range: have %d categorical covariates", cfg.PatientColumn, len(vaeCfg.CatCovariates))
	}

	backend := vae.Backend()
	c := &MILClassifier[B]{cfg: cfg, vae: vae, backend: backend}
	if cfg.Hierarchical && c.numCovViews() == 0 {
		return nil, errors.New("mil config: hierarchical aggregation requires at least one covariate view for the classifier")
	}

	mlpCfg := nn.MLPConfig[B]{
		Hidden:  cfg.ClassHidden,
		Norm:    vaeCfg.Norm,
		Dropout: vaeCfg.Dropout,
	}
	c.cellTransform = nn.NewMLP(vaeCfg.ZDim, vaeCfg.CondDim, mlpCfg, backend, rng)
	pool, err := NewAggregator(vaeCfg.CondDim, cfg.Scoring, cfg.AttnDim, backend, rng)
	if err != nil {
		return nil, fmt.Errorf("mil config: %w", err)
	}
	c.cellPool = pool

	if cfg.Hierarchical {
		c.covTransform = nn.NewMLP(vaeCfg.CondDim, vaeCfg.CondDim, mlpCfg, backend, rng)
		pool, err := NewAggregator(vaeCfg.CondDim, cfg.Scoring, cfg.AttnDim, backend, rng)
		if err != nil {
			return nil, fmt.Errorf("mil config: %w", err)
		}
		c.covPool = pool
	}
	c.classifier = nn.NewLinear[B](vaeCfg.CondDim, cfg.NumClasses, backend, rng)
	c.ce = nn.NewCrossEntropyLoss[B](backend)
	return c, nil
}

// VAE returns the wrapped core model.
func (c *MILClassifier[B]) VAE() *MultiVAE[B] { return c.vae }

// Config returns the head's configuration.
func (c *MILClassifier[B]) Config() MILConfig { return c.cfg }

// includeCatView reports whether categorical covariate i feeds the
// classifier. The patient column is held out unless configured in.
func (c *MILClassifier[B]) includeCatView(i int) bool {
	return c.cfg.AddPatientToClassifier || i != c.cfg.PatientColumn
}

func (c *MILClassifier[B]) numCovViews() int {
	n := len(c.vae.contEmbeddings)
	for i := range c.vae.catEmbeddings {
		if c.includeCatView(i) {
			n++
		}
	}
	return n
}

// Inference encodes the batch, pools each bag and classifies it.
func (c *MILClassifier[B]) Inference(batch *Batch[B]) (*MILOutputs[B], error) {
	if err := batch.validate(c.vae.cfg.TotalDim(), len(c.vae.cfg.CatCovariates), c.vae.cfg.ContCovariates, true); err != nil {
		return nil, fmt.Errorf("mil inference: %w", err)
	}
	inf, err := c.vae.Inference(batch)
	if err != nil {
		return nil, err
	}
	bags, err := SplitByLabel(batch.Labels())
	if err != nil {
		return nil, fmt.Errorf("mil inference: %w", err)
	}
	for g, lbl := range bags.Labels {
		if lbl < 0 || int(lbl) >= c.cfg.NumClasses {
			return nil, fmt.Errorf("mil inference: bag %d label %d outside [0, %d)", g, lbl, c.cfg.NumClasses)
		}
	}
	if c.cfg.ValidateBags {
		for i := range c.vae.catEmbeddings {
			if err := bags.ValidateConstant(batch.CatColumn(i)); err != nil {
				return nil, fmt.Errorf("mil inference: categorical covariate %d: %w", i, err)
			}
		}
	}

	// Pool each bag's cells. The transform runs once over all cells;
	// the split only regroups rows.
	condDim := c.vae.cfg.CondDim
	transformed := c.cellTransform.Forward(inf.ZJoint)
	parts := transformed.SplitSizes(bags.Sizes, 0)
	pooled := make([]*tensor.Tensor[float32, B], len(parts))
	var cellWeights []*tensor.Tensor[float32, B]
	for g, part := range parts {
		p, w := c.cellPool.Forward(part)
		pooled[g] = p.Reshape(1, condDim)
		if w != nil {
			cellWeights = append(cellWeights, w)
		}
	}
	bagVec := tensor.Cat(pooled, 0)

	out := &MILOutputs[B]{InferenceOutputs: *inf, Bags: bags, CellWeights: cellWeights}
	if !c.cfg.Hierarchical {
		out.Prediction = c.classifier.Forward(bagVec)
		return out, nil
	}

	views, err := c.bagCovariateViews(batch, bags)
	if err != nil {
		return nil, fmt.Errorf("mil inference: %w", err)
	}
	// One view for the molecular signal plus one per covariate, stacked
	// to [bags, views, condDim] for the batched attention path.
	all := append([]*tensor.Tensor[float32, B]{bagVec}, views...)
	stacked := tensor.Cat(all, 1).Reshape(bags.Len(), len(all), condDim)
	h := c.covTransform.Forward(stacked)
	v, w := c.covPool.Forward(h)
	out.ViewWeights = w
	out.Prediction = c.classifier.Forward(v)
	return out, nil
}

// bagCovariateViews reduces each per-cell covariate view to the bag's
// representative row, taken from the bag's first cell.
func (c *MILClassifier[B]) bagCovariateViews(batch *Batch[B], bags *Bags) ([]*tensor.Tensor[float32, B], error) {
	cat, cont, err := c.vae.covariateViews(batch)
	if err != nil {
		return nil, err
	}
	starts := make([]int32, bags.Len())
	for g, s := range bags.Starts {
		starts[g] = int32(s)
	}
	idx, ferr := tensor.FromSlice[int32](starts, tensor.Shape{bags.Len()}, c.backend)
	if ferr != nil {
		panic(fmt.Sprintf("bag start index tensor: %v", ferr))
	}
	var views []*tensor.Tensor[float32, B]
	for i, v := range cat {
		if c.includeCatView(i) {
			views = append(views, v.IndexSelect(idx))
		}
	}
	for _, v := range cont {
		views = append(views, v.IndexSelect(idx))
	}
	return views, nil
}

// Forward runs inference and generative in sequence.
func (c *MILClassifier[B]) Forward(batch *Batch[B]) (*MILOutputs[B], *GenerativeOutputs[B], error) {
	inf, err := c.Inference(batch)
	if err != nil {
		return nil, nil, err
	}
	gen, err := c.vae.Generative(inf.ZJoint, batch)
	if err != nil {
		return nil, nil, err
	}
	return inf, gen, nil
}

// Loss composes the training objective from the batch and the forward
// outputs. Zero Integ or Cycle coefficients short-circuit to a literal
// zero without touching the underlying computation. Cell-level terms
// are averaged over cells, bag- and batch-level terms enter as
// scalars.
func (c *MILClassifier[B]) Loss(batch *Batch[B], outputs *MILOutputs[B], gen *GenerativeOutputs[B], coeffs Coefficients) (*LossOutput[B], error) {
	xs := c.vae.splitModalities(batch.X)
	masks := c.vae.PresenceMasks(xs)

	var sizeFactors *tensor.Tensor[float32, B]
	if sf := batch.SizeFactors(); sf != nil {
		t, err := tensor.FromSlice[float32](sf, tensor.Shape{len(sf), 1}, c.backend)
		if err != nil {
			panic(fmt.Sprintf("size factor tensor: %v", err))
		}
		sizeFactors = t
	}
	recon, err := c.vae.CalcReconLoss(xs, gen.Rs, masks, sizeFactors)
	if err != nil {
		return nil, err
	}
	kl := CalcKLLoss(outputs.Mu, outputs.Logvar)

	integ := tensor.Zeros[float32](tensor.Shape{1}, c.backend)
	if coeffs.Integ != 0 {
		integ = CalcIntegLoss(outputs.ZJoint, c.integrationGroups(batch))
	}
	cycle := tensor.Zeros[float32](tensor.Shape{1}, c.backend)
	if coeffs.Cycle != 0 {
		cycle, err = c.vae.CalcCycleLoss(xs, outputs.ZJoint, batch)
		if err != nil {
			return nil, err
		}
	}

	labels, lerr := tensor.FromSlice[int32](outputs.Bags.Labels, tensor.Shape{outputs.Bags.Len()}, c.backend)
	if lerr != nil {
		panic(fmt.Sprintf("bag label tensor: %v", lerr))
	}
	classLoss := c.ce.Forward(outputs.Prediction, labels)
	accuracy := nn.Accuracy(outputs.Prediction, labels)

	perCell := recon.MulScalar(coeffs.Recon).Add(kl.MulScalar(coeffs.KL))
	total := perCell.Mean().
		Add(integ.MulScalar(coeffs.Integ)).
		Add(cycle.MulScalar(coeffs.Cycle)).
		Add(classLoss.MulScalar(coeffs.Class))

	record := LossRecord{
		Total:    float64(total.Item()),
		Recon:    hostMean(recon),
		KL:       hostMean(kl),
		Integ:    float64(integ.Item()),
		Cycle:    float64(cycle.Item()),
		Class:    float64(classLoss.Item()),
		Accuracy: float64(accuracy),
	}
	return &LossOutput[B]{Total: total, Record: record}, nil
}

// integrationGroups returns the integrate-on covariate column, or a
// single pooled group when integration is not configured.
func (c *MILClassifier[B]) integrationGroups(batch *Batch[B]) []int32 {
	if c.vae.cfg.IntegrateOn == NoIntegration {
		return make([]int32, batch.Cells())
	}
	return batch.CatColumn(c.vae.cfg.IntegrateOn)
}

// Sample reconstructs the batch with gradient recording stopped,
// returning the per-modality reconstructions only.
func (c *MILClassifier[B]) Sample(batch *Batch[B]) ([]*tensor.Tensor[float32, B], error) {
	var rs []*tensor.Tensor[float32, B]
	var err error
	run := func() {
		var inf *MILOutputs[B]
		inf, err = c.Inference(batch)
		if err != nil {
			return
		}
		var gen *GenerativeOutputs[B]
		gen, err = c.vae.Generative(inf.ZJoint, batch)
		if err != nil {
			return
		}
		rs = gen.Rs
	}
	if ng, ok := any(c.backend).(interface{ NoGrad(func()) }); ok {
		ng.NoGrad(run)
	} else {
		run()
	}
	if err != nil {
		return nil, err
	}
	return rs, nil
}

// SetTraining toggles dropout across the core and the head.
func (c *MILClassifier[B]) SetTraining(training bool) {
	c.vae.SetTraining(training)
	c.cellTransform.SetTraining(training)
	if c.covTransform != nil {
		c.covTransform.SetTraining(training)
	}
}

// Parameters returns the core and head parameters in a stable order.
func (c *MILClassifier[B]) Parameters() []*nn.Parameter[B] {
	params := c.vae.Parameters()
	params = append(params, c.cellTransform.Parameters()...)
	params = append(params, c.cellPool.Parameters()...)
	if c.covTransform != nil {
		params = append(params, c.covTransform.Parameters()...)
		params = append(params, c.covPool.Parameters()...)
	}
	return append(params, c.classifier.Parameters()...)
}

// StateDict returns core and head parameters under their submodule
// prefixes.
func (c *MILClassifier[B]) StateDict() map[string]*tensor.RawTensor {
	sd := make(map[string]*tensor.RawTensor)
	nn.MergeStateDict(sd, "vae.", c.vae.StateDict())
	nn.MergeStateDict(sd, "cell_transform.", c.cellTransform.StateDict())
	nn.MergeStateDict(sd, "cell_pool.", c.cellPool.StateDict())
	if c.covTransform != nil {
		nn.MergeStateDict(sd, "cov_transform.", c.covTransform.StateDict())
		nn.MergeStateDict(sd, "cov_pool.", c.covPool.StateDict())
	}
	nn.MergeStateDict(sd, "classifier.", c.classifier.StateDict())
	return sd
}

// LoadStateDict restores core and head parameters.
func (c *MILClassifier[B]) LoadStateDict(sd map[string]*tensor.RawTensor) error {
	if err := c.vae.LoadStateDict(nn.SubStateDict(sd, "vae.")); err != nil {
		return err
	}
	if err := c.cellTransform.LoadStateDict(nn.SubStateDict(sd, "cell_transform.")); err != nil {
		return fmt.Errorf("cell transform: %w", err)
	}
	if err := c.cellPool.LoadStateDict(nn.SubStateDict(sd, "cell_pool.")); err != nil {
		return fmt.Errorf("cell pool: %w", err)
	}
	if c.covTransform != nil {
		if err := c.covTransform.LoadStateDict(nn.SubStateDict(sd, "cov_transform.")); err != nil {
			return fmt.Errorf("covariate transform: %w", err)
		}
		if err := c.covPool.LoadStateDict(nn.SubStateDict(sd, "cov_pool.")); err != nil {
			return fmt.Errorf("covariate pool: %w", err)
		}
	}
	if err := c.classifier.LoadStateDict(nn.SubStateDict(sd, "classifier.")); err != nil {
		return fmt.Errorf("classifier: %w", err)
	}
	return nil
}

func hostMean[B tensor.Backend](t *tensor.Tensor[float32, B]) float64 {
	data := t.Data()
	if len(data) == 0 {
		return 0
	}
	var sum float64
	for _, v := range data {
		sum += float64(v)
	}
	return sum / float64(len(data))
}
