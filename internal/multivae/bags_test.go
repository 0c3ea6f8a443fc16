package multivae

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitByLabel_Runs(t *testing.T) {
	bags, err := SplitByLabel([]int32{0, 0, 0, 1, 2, 2, 2, 2})
	require.NoError(t, err)

	assert.Equal(t, 3, bags.Len())
	assert.Equal(t, []int{0, 3, 4}, bags.Starts)
	assert.Equal(t, []int{3, 1, 4}, bags.Sizes)
	assert.Equal(t, []int32{0, 1, 2}, bags.Labels)
}

func TestSplitByLabel_SingleBag(t *testing.T) {
	bags, err := SplitByLabel([]int32{7, 7, 7})
	require.NoError(t, err)
	assert.Equal(t, 1, bags.Len())
	assert.Equal(t, []int{3}, bags.Sizes)
	assert.Equal(t, []int32{7}, bags.Labels)
}

// Labels are grouped by run, never sorted: a recurring label means the
// caller failed to group rows, which is a structural error.
func TestSplitByLabel_NonContiguousFails(t *testing.T) {
	_, err := SplitByLabel([]int32{0, 0, 1, 0})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "non-contiguous")
}

func TestSplitByLabel_EmptyFails(t *testing.T) {
	_, err := SplitByLabel(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty batch")
}

func TestBags_ValidateConstant(t *testing.T) {
	bags, err := SplitByLabel([]int32{0, 0, 1, 1, 1})
	require.NoError(t, err)

	assert.NoError(t, bags.ValidateConstant([]int32{5, 5, 2, 2, 2}))

	err = bags.ValidateConstant([]int32{5, 5, 2, 3, 2})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "differs from the bag's first cell")
}
