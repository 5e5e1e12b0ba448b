// Package host abstracts slide-host automation (a locally installed
// PowerPoint or compatible application driven out of process). It is the
// last resort of the image conversion cascade and the only route for
// legacy binary presentations.
//
// No implementation ships with the library; callers on hosts that can
// drive PowerPoint plug one in via the root options.
package host

import "errors"

// ErrUnavailable is returned when no host automation capability is
// configured or the configured one cannot run here.
var ErrUnavailable = errors.New("host automation unavailable")

// Capability drives a locally installed presentation application.
// Implementations must be safe for concurrent use.
type Capability interface {
	// Available reports whether the host application can be driven
	// right now. Implementations should probe once and cache.
	Available() bool

	// ConvertToPPTX converts a legacy binary presentation to a PPTX
	// package and returns the path of the converted file.
	ConvertToPPTX(path string) (string, error)

	// ExportSlideImage renders one slide (0-based) of the presentation
	// at the given pixel width and returns PNG bytes.
	ExportSlideImage(path string, slideIndex int, widthPx int) ([]byte, error)
}

// None is the absent capability: Available always reports false and the
// operations fail with ErrUnavailable.
type None struct{}

// Available reports false.
func (None) Available() bool { return false }

// ConvertToPPTX fails with ErrUnavailable.
func (None) ConvertToPPTX(string) (string, error) { return "", ErrUnavailable }

// ExportSlideImage fails with ErrUnavailable.
func (None) ExportSlideImage(string, int, int) ([]byte, error) { return nil, ErrUnavailable }
