package flow

// StepData is an opaque per-step payload. The controller merges and
// forwards it; it never interprets fields except through registered
// completion predicates.
type StepData map[string]any

// Merge shallow-merges src into d. Later writes win field-by-field
// within a step; there is no merge across steps.
func (d StepData) Merge(src StepData) {
	for k, v := range src {
		d[k] = v
	}
}

// Clone returns a shallow copy. Nested values are shared; callers that
// need isolation should round-trip through the cache codec instead.
func (d StepData) Clone() StepData {
	if d == nil {
		return nil
	}
	out := make(StepData, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}
