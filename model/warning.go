package model

import "fmt"

// Warning codes emitted by the pipeline. Warnings never abort a job; they
// record elements that were skipped, replaced by placeholders, or degraded.
const (
	WarnUnsupportedInput = "unsupported-input"
	WarnCascadeExhausted = "conversion-cascade-exhausted"
	WarnRecursionCycle   = "recursion-cycle-detected"
	WarnHostUnavailable  = "host-automation-unavailable"
	WarnOCRUnavailable   = "ocr-unavailable"
)

// Warning records a non-fatal problem encountered during conversion.
type Warning struct {
	Code    string
	Message string
	Path    PathID // location in the expansion tree, may be empty
}

// String renders the warning for diagnostics.
func (w Warning) String() string {
	if len(w.Path) > 0 {
		return fmt.Sprintf("%s [%s]: %s", w.Code, w.Path, w.Message)
	}
	return fmt.Sprintf("%s: %s", w.Code, w.Message)
}
