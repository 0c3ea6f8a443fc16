package train

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/scmulti-ml/scmulti/internal/multivae"
	"github.com/scmulti-ml/scmulti/internal/tensor"
)

const defaultNeighbors = 15

// Metrics are the latent-space validation scores consumed by the
// hyperparameter search objective and written to metrics.json.
type Metrics struct {
	// ASWLabel is the mean silhouette width over bag labels, rescaled
	// to [0, 1]. Higher means better label separation in latent space.
	ASWLabel float64 `json:"asw_label"`
	// GraphConn is the fraction of k-nearest-neighbor edges whose
	// endpoints share a label. Higher means each label group holds
	// together.
	GraphConn float64 `json:"graph_conn"`
	// TrainLoss and ValLoss are the final epoch's averaged totals.
	TrainLoss float64 `json:"train_loss"`
	ValLoss   float64 `json:"val_loss"`
}

// LatentMetrics encodes the batches and scores the latent space. Rows
// use the posterior mean so the scores are deterministic; recording is
// stopped for the duration.
func (t *Trainer[B]) LatentMetrics(batches []*multivae.Batch[B]) (*Metrics, error) {
	restore := t.stopRecording()
	defer restore()
	t.model.SetTraining(false)
	defer t.model.SetTraining(true)

	var rows [][]float64
	var labels []int32
	for i, batch := range batches {
		if batch.CatCovs == nil {
			return nil, fmt.Errorf("metrics: batch %d has no bag labels", i)
		}
		out, err := t.model.VAE().Inference(batch)
		if err != nil {
			return nil, fmt.Errorf("metrics: batch %d: %w", i, err)
		}
		rows = append(rows, LatentRows(out.Mu)...)
		labels = append(labels, batch.Labels()...)
	}

	k := t.cfg.Neighbors
	if k <= 0 {
		k = defaultNeighbors
	}
	asw, err := SilhouetteScore(rows, labels)
	if err != nil {
		return nil, err
	}
	conn, err := GraphConnectivity(rows, labels, k)
	if err != nil {
		return nil, err
	}
	return &Metrics{ASWLabel: (asw + 1) / 2, GraphConn: conn}, nil
}

// LatentRows converts a [cells, dims] tensor into per-row float64
// slices for the metric functions.
func LatentRows[B tensor.Backend](z *tensor.Tensor[float32, B]) [][]float64 {
	shape := z.Shape()
	rows, cols := shape[0], shape[1]
	data := z.Data()
	out := make([][]float64, rows)
	for r := 0; r < rows; r++ {
		row := make([]float64, cols)
		for c := 0; c < cols; c++ {
			row[c] = float64(data[r*cols+c])
		}
		out[r] = row
	}
	return out
}

// SilhouetteScore computes the mean silhouette width of the rows under
// their labels: s(i) = (b(i) - a(i)) / max(a(i), b(i)), with a the
// mean distance to the own group and b the smallest mean distance to
// another group. The result lies in [-1, 1]; singleton groups
// contribute zero. Needs at least two label groups.
func SilhouetteScore(rows [][]float64, labels []int32) (float64, error) {
	if len(rows) != len(labels) {
		return 0, fmt.Errorf("metrics: %d rows but %d labels", len(rows), len(labels))
	}
	groups := groupIndexes(labels)
	if len(groups) < 2 {
		return 0, fmt.Errorf("metrics: silhouette needs at least two label groups, got %d", len(groups))
	}

	sil := make([]float64, 0, len(rows))
	for i, row := range rows {
		if len(groups[labels[i]]) == 1 {
			sil = append(sil, 0)
			continue
		}
		var a float64
		b := math.Inf(1)
		for label, members := range groups {
			var sum float64
			for _, j := range members {
				if j == i {
					continue
				}
				sum += floats.Distance(row, rows[j], 2)
			}
			if label == labels[i] {
				a = sum / float64(len(members)-1)
				continue
			}
			if mean := sum / float64(len(members)); mean < b {
				b = mean
			}
		}
		denom := math.Max(a, b)
		if denom == 0 {
			sil = append(sil, 0)
			continue
		}
		sil = append(sil, (b-a)/denom)
	}
	return stat.Mean(sil, nil), nil
}

// GraphConnectivity reports the fraction of k-nearest-neighbor edges
// whose endpoints share a label, a connectivity proxy for how well
// each label group holds together in latent space. k caps at n-1.
func GraphConnectivity(rows [][]float64, labels []int32, k int) (float64, error) {
	if len(rows) != len(labels) {
		return 0, fmt.Errorf("metrics: %d rows but %d labels", len(rows), len(labels))
	}
	if k <= 0 {
		return 0, fmt.Errorf("metrics: neighbor count must be positive, got %d", k)
	}
	if len(rows) < 2 {
		return 0, errors.New("metrics: graph connectivity needs at least two rows")
	}
	if k > len(rows)-1 {
		k = len(rows) - 1
	}

	type neighbor struct {
		dist  float64
		label int32
	}
	var same, total float64
	for i, row := range rows {
		neighbors := make([]neighbor, 0, len(rows)-1)
		for j, other := range rows {
			if j == i {
				continue
			}
			neighbors = append(neighbors, neighbor{dist: floats.Distance(row, other, 2), label: labels[j]})
		}
		sort.Slice(neighbors, func(a, b int) bool { return neighbors[a].dist < neighbors[b].dist })
		for _, n := range neighbors[:k] {
			total++
			if n.label == labels[i] {
				same++
			}
		}
	}
	return same / total, nil
}

func groupIndexes(labels []int32) map[int32][]int {
	groups := make(map[int32][]int)
	for i, label := range labels {
		groups[label] = append(groups[label], i)
	}
	return groups
}
