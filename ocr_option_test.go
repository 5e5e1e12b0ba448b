//go:build !ocr

package slideflow

import (
	"strings"
	"testing"
)

func TestWithOCRWithoutSupport(t *testing.T) {
	deck := buildPPTX(t, picParts())
	got, warnings, err := FromBytes(deck).WithoutPathComments().WithOCR().ToMarkdown()
	if err != nil {
		t.Fatalf("conversion must proceed without OCR support: %v", err)
	}
	if !strings.Contains(got, "a chart") {
		t.Errorf("picture alt text missing:\n%s", got)
	}
	found := false
	for _, w := range warnings {
		if w.Code == WarnOCRUnavailable {
			found = true
		}
	}
	if !found {
		t.Errorf("missing ocr-unavailable warning: %s", FormatWarnings(warnings))
	}
}
