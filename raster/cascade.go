// Package raster converts picture payloads that browsers and Markdown
// renderers cannot display (WMF, EMF, TIFF and friends) into PNG or JPEG.
//
// Conversion runs through an ordered cascade of strategies; the first one
// that succeeds wins and each failure is recorded as a warning before the
// next strategy runs:
//
//  1. native decoding with the Go image packages
//  2. linked ImageMagick bindings (build tag "imagick")
//  3. the magick/convert executable
//  4. slide export through host automation, cropped to the shape
//
// A Cascade is safe for concurrent use.
package raster

import (
	"errors"
	"fmt"

	"github.com/tethys-labs/slideflow/host"
	"github.com/tethys-labs/slideflow/model"
)

// ErrCascadeExhausted is returned when every strategy failed.
var ErrCascadeExhausted = errors.New("image conversion cascade exhausted")

// directExts are formats emitted untouched, no conversion needed.
var directExts = map[string]bool{
	"png":  true,
	"jpg":  true,
	"jpeg": true,
	"gif":  true,
	"svg":  true,
	"webp": true,
}

// NeedsConversion reports whether a payload with the given extension must
// go through the cascade before it can be referenced from the output.
func NeedsConversion(ext string) bool {
	return !directExts[ext]
}

// Config controls conversion output.
type Config struct {
	// DPI is the rasterization density for vector metafiles.
	DPI int
	// JPEGQuality applies when encoding JPEG output.
	JPEGQuality int
	// PreferJPEG encodes opaque images as JPEG instead of PNG.
	PreferJPEG bool
	// MaxWidthPx downscales wider results when > 0.
	MaxWidthPx int
	// SlideExportWidthPx is the render width for whole-slide export in
	// the host strategy.
	SlideExportWidthPx int
}

// DefaultConfig returns the standard conversion settings.
func DefaultConfig() Config {
	return Config{
		DPI:                600,
		JPEGQuality:        92,
		PreferJPEG:         false,
		MaxWidthPx:         0,
		SlideExportWidthPx: 3840,
	}
}

// Request carries one payload through the cascade.
type Request struct {
	Data   []byte
	SrcExt string // source extension without dot

	// Shape geometry in points, used by the host strategy to crop the
	// exported slide down to the picture.
	ShapeBox    model.BBox
	SlideWidth  float64
	SlideHeight float64

	// SourcePath and SlideIndex locate the picture for the host
	// strategy; SourcePath is empty for in-memory or embedded decks.
	SourcePath string
	SlideIndex int
}

// Result is a converted payload.
type Result struct {
	Data []byte
	Ext  string // png or jpeg
}

// Strategy is one conversion approach.
type Strategy interface {
	// Name identifies the strategy in warnings.
	Name() string
	// Available reports whether the strategy can run at all; probing
	// must be cheap after the first call.
	Available() bool
	// Convert attempts the conversion.
	Convert(req Request, config Config) (Result, error)
}

// Cascade runs the conversion strategies in order.
type Cascade struct {
	config     Config
	strategies []Strategy
}

// NewCascade creates a cascade with the standard strategy order. The host
// capability may be host.None{}.
func NewCascade(config Config, h host.Capability) *Cascade {
	if h == nil {
		h = host.None{}
	}
	return NewCascadeWithStrategies(config,
		&nativeStrategy{},
		newImagickStrategy(),
		newMagickCLIStrategy(),
		&hostExportStrategy{host: h},
	)
}

// NewCascadeWithStrategies creates a cascade over an explicit strategy
// list.
func NewCascadeWithStrategies(config Config, strategies ...Strategy) *Cascade {
	return &Cascade{config: config, strategies: strategies}
}

// Convert runs the request through the cascade. On success the warnings
// describe any strategies that failed before the winning one; on
// exhaustion the error wraps ErrCascadeExhausted and the caller is
// expected to fall back to a placeholder.
func (c *Cascade) Convert(req Request) (Result, []model.Warning, error) {
	var warnings []model.Warning

	for _, s := range c.strategies {
		if !s.Available() {
			continue
		}
		res, err := s.Convert(req, c.config)
		if err == nil {
			return res, warnings, nil
		}
		warnings = append(warnings, model.Warning{
			Code:    model.WarnUnsupportedInput,
			Message: fmt.Sprintf("strategy %s: %v", s.Name(), err),
		})
	}

	warnings = append(warnings, model.Warning{
		Code:    model.WarnCascadeExhausted,
		Message: fmt.Sprintf("no strategy could convert %s payload (%d bytes)", req.SrcExt, len(req.Data)),
	})
	return Result{}, warnings, fmt.Errorf("%w: %s payload", ErrCascadeExhausted, req.SrcExt)
}
