package multivae

import (
	"fmt"

	"github.com/scmulti-ml/scmulti/internal/tensor"
)

// Batch is one mini-batch of cells.
//
// Column semantics follow the dataset contract: the final categorical
// column is the bag label (never embedded), the final continuous column
// is the size factor consumed by NB reconstruction. Rows belonging to
// one bag must be contiguous; SplitByLabel validates this.
type Batch[B tensor.Backend] struct {
	// X is the concatenated feature matrix, [cells, sum(modality dims)].
	X *tensor.Tensor[float32, B]
	// CatCovs holds the embedded categorical covariates plus the bag
	// label in its final column, [cells, numCatCovariates+1]. May be nil
	// when the model declares no categorical covariates and no bag
	// grouping is required.
	CatCovs *tensor.Tensor[int32, B]
	// ContCovs holds the continuous covariates, [cells, numContCovariates].
	// Nil when the model declares none.
	ContCovs *tensor.Tensor[float32, B]
}

// Cells returns the number of rows in the batch.
func (b *Batch[B]) Cells() int {
	return b.X.Shape()[0]
}

// Labels returns the bag label column (the final categorical column).
// Panics when the batch carries no categorical covariates; callers
// validate the batch first.
func (b *Batch[B]) Labels() []int32 {
	if b.CatCovs == nil {
		panic("Batch.Labels: batch has no categorical covariates")
	}
	shape := b.CatCovs.Shape()
	return b.catColumn(shape[1] - 1)
}

// CatColumn returns a copy of categorical covariate column i.
func (b *Batch[B]) CatColumn(i int) []int32 {
	if b.CatCovs == nil {
		panic("Batch.CatColumn: batch has no categorical covariates")
	}
	return b.catColumn(i)
}

func (b *Batch[B]) catColumn(i int) []int32 {
	shape := b.CatCovs.Shape()
	rows, cols := shape[0], shape[1]
	if i < 0 || i >= cols {
		panic(fmt.Sprintf("Batch: categorical column %d out of range [0, %d)", i, cols))
	}
	data := b.CatCovs.Data()
	col := make([]int32, rows)
	for r := 0; r < rows; r++ {
		col[r] = data[r*cols+i]
	}
	return col
}

// ContColumn returns a copy of continuous covariate column j.
func (b *Batch[B]) ContColumn(j int) []float32 {
	if b.ContCovs == nil {
		panic("Batch.ContColumn: batch has no continuous covariates")
	}
	shape := b.ContCovs.Shape()
	rows, cols := shape[0], shape[1]
	if j < 0 || j >= cols {
		panic(fmt.Sprintf("Batch: continuous column %d out of range [0, %d)", j, cols))
	}
	data := b.ContCovs.Data()
	col := make([]float32, rows)
	for r := 0; r < rows; r++ {
		col[r] = data[r*cols+j]
	}
	return col
}

// SizeFactors returns the final continuous column, or nil when the
// batch carries no continuous covariates.
func (b *Batch[B]) SizeFactors() []float32 {
	if b.ContCovs == nil {
		return nil
	}
	return b.ContColumn(b.ContCovs.Shape()[1] - 1)
}

// validate checks the batch against the model's declared layout.
// needLabel additionally requires the bag label column.
func (b *Batch[B]) validate(totalDim, numCat, numCont int, needLabel bool) error {
	if b.X == nil {
		return fmt.Errorf("batch has no feature matrix")
	}
	xShape := b.X.Shape()
	if len(xShape) != 2 {
		return fmt.Errorf("feature matrix must be 2D, got shape %v", xShape)
	}
	if xShape[1] != totalDim {
		return fmt.Errorf("feature width %d does not match declared modality widths (total %d)", xShape[1], totalDim)
	}
	cells := xShape[0]
	if cells == 0 {
		return fmt.Errorf("empty batch")
	}

	if numCat > 0 || needLabel {
		if b.CatCovs == nil {
			return fmt.Errorf("batch has no categorical covariates: want %d columns plus the bag label", numCat)
		}
		cShape := b.CatCovs.Shape()
		if len(cShape) != 2 || cShape[1] != numCat+1 {
			return fmt.Errorf("categorical covariates have shape %v, want [%d %d]", cShape, cells, numCat+1)
		}
		if cShape[0] != cells {
			return fmt.Errorf("categorical covariate rows %d do not match feature rows %d", cShape[0], cells)
		}
	}

	if numCont > 0 {
		if b.ContCovs == nil {
			return fmt.Errorf("batch has no continuous covariates: want %d columns", numCont)
		}
		cShape := b.ContCovs.Shape()
		if len(cShape) != 2 || cShape[1] != numCont {
			return fmt.Errorf("continuous covariates have shape %v, want [%d %d]", cShape, cells, numCont)
		}
		if cShape[0] != cells {
			return fmt.Errorf("continuous covariate rows %d do not match feature rows %d", cShape[0], cells)
		}
	}
	return nil
}
