package multivae

import (
	"errors"
	"fmt"
)

// Bags records the contiguous label runs of one batch. Bag i covers
// rows [Starts[i], Starts[i]+Sizes[i]) and carries label Labels[i].
type Bags struct {
	Starts []int
	Sizes  []int
	Labels []int32
}

// SplitByLabel groups rows into bags of contiguous equal labels.
//
// Bags are defined purely by runs, never by sorting: callers must group
// rows by label upstream. A label that reappears after a different
// label means the batch was not grouped, which is reported as a
// structural error rather than silently split into two bags.
func SplitByLabel(labels []int32) (*Bags, error) {
	if len(labels) == 0 {
		return nil, errors.New("empty batch: no cells to group into bags")
	}
	bags := &Bags{}
	seen := make(map[int32]bool)
	start := 0
	for i := 1; i <= len(labels); i++ {
		if i < len(labels) && labels[i] == labels[start] {
			continue
		}
		label := labels[start]
		if seen[label] {
			return nil, fmt.Errorf("bag label %d appears in non-contiguous runs: group rows by label before batching", label)
		}
		seen[label] = true
		bags.Starts = append(bags.Starts, start)
		bags.Sizes = append(bags.Sizes, i-start)
		bags.Labels = append(bags.Labels, label)
		start = i
	}
	return bags, nil
}

// Len returns the number of bags.
func (b *Bags) Len() int { return len(b.Sizes) }

// ValidateConstant checks that column holds a single value within every
// bag. The first offending row is reported. Used to verify the
// first-cell-represents-the-bag simplification before relying on it.
func (b *Bags) ValidateConstant(column []int32) error {
	for g, start := range b.Starts {
		want := column[start]
		for i := start + 1; i < start+b.Sizes[g]; i++ {
			if column[i] != want {
				return fmt.Errorf("bag %d (label %d): covariate value %d at row %d differs from the bag's first cell value %d",
					g, b.Labels[g], column[i], i, want)
			}
		}
	}
	return nil
}
