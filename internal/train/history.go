package train

// Epoch is one row of a training history: the averaged training record
// plus the averaged validation record when a validation set was given.
type Epoch[R any] struct {
	Epoch int `json:"epoch"`
	Train R   `json:"train"`
	Val   *R  `json:"val,omitempty"`
}

// History collects per-epoch loss records for one run. The record type
// is the model's own loss record, so the same history shape serves both
// training loops.
type History[R any] struct {
	RunID  string     `json:"run_id"`
	Epochs []Epoch[R] `json:"epochs"`
}

// Last returns the most recent epoch entry, or nil before the first
// epoch completes.
func (h *History[R]) Last() *Epoch[R] {
	if len(h.Epochs) == 0 {
		return nil
	}
	return &h.Epochs[len(h.Epochs)-1]
}
