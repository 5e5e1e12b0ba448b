// Package slideflow converts PowerPoint presentations into structured flow
// text: Markdown, TiddlyWiki, Madoko or Quarto.
//
// Basic usage:
//
//	md, warnings, err := slideflow.Open("deck.pptx").ToMarkdown()
//	if err != nil {
//	    // handle error
//	}
//	if len(warnings) > 0 {
//	    log.Println("Warnings:", slideflow.FormatWarnings(warnings))
//	}
//
// With options:
//
//	md, _, err := slideflow.Open("deck.pptx").
//	    Slides(1, 2, 3).
//	    WithSlideSeparators().
//	    ImageDir("deck_images").
//	    ToMarkdown()
//
// The pipeline parses slide XML into positioned shapes, classifies them,
// reconstructs reading order (including multi-column layouts), expands
// embedded presentations recursively, converts legacy raster payloads, and
// emits the chosen format. Lower-level packages (pptx, layout, raster,
// emit) are available for advanced use.
package slideflow

import (
	"github.com/tethys-labs/slideflow/embedded"
	"github.com/tethys-labs/slideflow/legacy"
	"github.com/tethys-labs/slideflow/pptx"
	"github.com/tethys-labs/slideflow/raster"
)

// Sentinel errors of the lower-level packages, re-exported so callers can
// errors.Is against the root package alone.
var (
	// ErrNotPowerPoint marks input that is not a PowerPoint package.
	ErrNotPowerPoint = pptx.ErrNotPowerPoint
	// ErrHostUnavailable marks a legacy .ppt input with no host
	// automation configured.
	ErrHostUnavailable = legacy.ErrHostUnavailable
	// ErrCascadeExhausted marks an image no conversion strategy could
	// handle.
	ErrCascadeExhausted = raster.ErrCascadeExhausted
	// ErrNoEmbeddedPayload marks an OLE container without an
	// extractable package stream.
	ErrNoEmbeddedPayload = embedded.ErrNoPayload
)

// Open prepares a presentation file for conversion. The file is read when
// a terminal operation runs.
//
// Example:
//
//	md, warnings, err := slideflow.Open("deck.pptx").ToMarkdown()
func Open(filename string) *Converter {
	return &Converter{
		filename: filename,
		options:  defaultOptions(),
	}
}

// FromBytes prepares an in-memory presentation package for conversion.
// Legacy binary presentations are not supported through this entry point;
// use Open so the host automation route can see the file.
func FromBytes(data []byte) *Converter {
	return &Converter{
		source:  data,
		options: defaultOptions(),
	}
}

// Must wraps a call returning (T, error) and panics on error. Intended for
// scripts and tests.
func Must[T any](val T, err error) T {
	if err != nil {
		panic(err)
	}
	return val
}

// MustRender wraps a terminal operation returning (T, []Warning, error),
// discarding warnings and panicking on error.
func MustRender[T any](val T, _ []Warning, err error) T {
	if err != nil {
		panic(err)
	}
	return val
}
