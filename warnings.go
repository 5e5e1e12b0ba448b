package slideflow

import (
	"strings"

	"github.com/tethys-labs/slideflow/model"
)

// Warning records a non-fatal problem encountered during conversion, such
// as an image no strategy could convert or an embedded object that refers
// back to an ancestor. Conversion continues past warnings.
type Warning = model.Warning

// Warning codes, re-exported for callers that switch on them.
const (
	WarnUnsupportedInput = model.WarnUnsupportedInput
	WarnCascadeExhausted = model.WarnCascadeExhausted
	WarnRecursionCycle   = model.WarnRecursionCycle
	WarnHostUnavailable  = model.WarnHostUnavailable
	WarnOCRUnavailable   = model.WarnOCRUnavailable
)

// FormatWarnings renders warnings as a single human-readable string, one
// warning per line.
func FormatWarnings(warnings []Warning) string {
	if len(warnings) == 0 {
		return ""
	}
	lines := make([]string, len(warnings))
	for i, w := range warnings {
		lines[i] = w.String()
	}
	return strings.Join(lines, "\n")
}
