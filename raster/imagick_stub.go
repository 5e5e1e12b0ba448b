//go:build !imagick

package raster

import "errors"

// ErrImagickNotEnabled is returned when the ImageMagick bindings were not
// compiled in. Rebuild with -tags imagick to enable them; this requires
// the MagickWand development libraries on the system.
var ErrImagickNotEnabled = errors.New("ImageMagick bindings not enabled; rebuild with -tags imagick")

// imagickStrategy is the stub used without the "imagick" build tag. The
// cascade skips it and the magick executable strategy covers the same
// formats out of process.
type imagickStrategy struct{}

func newImagickStrategy() Strategy { return &imagickStrategy{} }

func (imagickStrategy) Name() string { return "imagick" }

func (imagickStrategy) Available() bool { return false }

func (imagickStrategy) Convert(Request, Config) (Result, error) {
	return Result{}, ErrImagickNotEnabled
}
