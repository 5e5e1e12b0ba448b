package embedded

import (
	"crypto/sha256"
	"fmt"

	"github.com/tethys-labs/slideflow/format"
	"github.com/tethys-labs/slideflow/model"
)

// ConvertFunc converts an inner presentation payload into content blocks.
// The expander calls it for every embedded deck it decides to expand; the
// implementation recurses through the same pipeline as the outer deck.
type ConvertFunc func(payload []byte, path model.PathID) ([]model.Block, []model.Warning, error)

// Config controls expansion.
type Config struct {
	// MaxDepth bounds how deep embedded presentations may nest.
	MaxDepth int
}

// DefaultConfig returns the standard expansion settings.
func DefaultConfig() Config {
	return Config{MaxDepth: 5}
}

// Expander decides whether an embedded object is an inner presentation
// and, if so, splices its converted content in place. A digest stack of
// the payloads currently being expanded catches self-referential decks.
//
// An Expander tracks one expansion tree and is not safe for concurrent
// use; converters create one per job.
type Expander struct {
	config  Config
	convert ConvertFunc
	active  map[[sha256.Size]byte]bool
}

// NewExpander creates an expander with default settings.
func NewExpander(convert ConvertFunc) *Expander {
	return NewExpanderWithConfig(DefaultConfig(), convert)
}

// NewExpanderWithConfig creates an expander with custom settings.
func NewExpanderWithConfig(config Config, convert ConvertFunc) *Expander {
	return &Expander{
		config:  config,
		convert: convert,
		active:  make(map[[sha256.Size]byte]bool),
	}
}

// Expand converts the embedded object when it holds a presentation.
// expanded reports whether blocks replace the object; when false the
// caller falls back to the preview image or a marker, guided by the
// returned warnings.
func (e *Expander) Expand(emb *model.Embedded, path model.PathID) (blocks []model.Block, warnings []model.Warning, expanded bool) {
	payload, label, w := e.innerPayload(emb)
	warnings = append(warnings, w...)
	if payload == nil {
		return nil, warnings, false
	}

	f, err := format.DetectBytes(payload)
	if err != nil || f != format.PPTX {
		warnings = append(warnings, model.Warning{
			Code:    model.WarnUnsupportedInput,
			Message: fmt.Sprintf("embedded object %s is %s, not a presentation", labelOr(label, emb.ProgID), f),
			Path:    path,
		})
		return nil, warnings, false
	}

	if path.Depth() > e.config.MaxDepth {
		warnings = append(warnings, model.Warning{
			Code:    model.WarnRecursionCycle,
			Message: fmt.Sprintf("embedded presentation nesting exceeds depth %d", e.config.MaxDepth),
			Path:    path,
		})
		return nil, warnings, false
	}

	digest := sha256.Sum256(payload)
	if e.active[digest] {
		warnings = append(warnings, model.Warning{
			Code:    model.WarnRecursionCycle,
			Message: "embedded presentation refers back to an ancestor",
			Path:    path,
		})
		return nil, warnings, false
	}

	e.active[digest] = true
	defer delete(e.active, digest)

	inner, w2, err := e.convert(payload, path)
	warnings = append(warnings, w2...)
	if err != nil {
		warnings = append(warnings, model.Warning{
			Code:    model.WarnUnsupportedInput,
			Message: fmt.Sprintf("embedded presentation failed to convert: %v", err),
			Path:    path,
		})
		return nil, warnings, false
	}
	return inner, warnings, true
}

// innerPayload unwraps the embedded part down to the document bytes.
func (e *Expander) innerPayload(emb *model.Embedded) ([]byte, string, []model.Warning) {
	if len(emb.Data) == 0 {
		return nil, "", nil
	}

	switch emb.PartExt {
	case "bin":
		payload, err := ExtractOLE(emb.Data)
		if err != nil {
			return nil, "", []model.Warning{{
				Code:    model.WarnUnsupportedInput,
				Message: fmt.Sprintf("embedded OLE container: %v", err),
			}}
		}
		return payload.Data, payload.Label, nil
	default:
		// pptx and other direct parts carry the document bytes as-is.
		return emb.Data, "", nil
	}
}

func labelOr(label, fallback string) string {
	if label != "" {
		return label
	}
	if fallback != "" {
		return fallback
	}
	return "(unnamed)"
}
