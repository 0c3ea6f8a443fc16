package nn

import (
	"strings"

	"github.com/scmulti-ml/scmulti/internal/tensor"
)

// MergeStateDict copies src entries into dst under prefix. Composite
// modules build their state dict by merging each submodule under its
// own prefix ("encoders.0.", "classifier.", ...).
func MergeStateDict(dst map[string]*tensor.RawTensor, prefix string, src map[string]*tensor.RawTensor) {
	for k, v := range src {
		dst[prefix+k] = v
	}
}

// SubStateDict extracts the entries under prefix with the prefix
// stripped, so nested modules can load their own keys.
func SubStateDict(sd map[string]*tensor.RawTensor, prefix string) map[string]*tensor.RawTensor {
	sub := make(map[string]*tensor.RawTensor)
	for k, v := range sd {
		if strings.HasPrefix(k, prefix) {
			sub[strings.TrimPrefix(k, prefix)] = v
		}
	}
	return sub
}
