//go:build imagick

package raster

import (
	"fmt"

	"gopkg.in/gographics/imagick.v3/imagick"
)

// imagickStrategy converts through the linked ImageMagick bindings. It is
// compiled in with the "imagick" build tag and handles the vector
// metafiles (WMF, EMF) the native decoders cannot.
type imagickStrategy struct{}

func newImagickStrategy() Strategy {
	imagick.Initialize()
	return &imagickStrategy{}
}

func (imagickStrategy) Name() string { return "imagick" }

func (imagickStrategy) Available() bool { return true }

func (imagickStrategy) Convert(req Request, config Config) (Result, error) {
	mw := imagick.NewMagickWand()
	defer mw.Destroy()

	if err := mw.SetResolution(float64(config.DPI), float64(config.DPI)); err != nil {
		return Result{}, fmt.Errorf("setting density: %w", err)
	}
	if err := mw.ReadImageBlob(req.Data); err != nil {
		return Result{}, fmt.Errorf("reading %s blob: %w", req.SrcExt, err)
	}

	if config.MaxWidthPx > 0 {
		w := mw.GetImageWidth()
		if int(w) > config.MaxWidthPx {
			h := uint(float64(mw.GetImageHeight()) * float64(config.MaxWidthPx) / float64(w))
			if err := mw.ResizeImage(uint(config.MaxWidthPx), h, imagick.FILTER_LANCZOS); err != nil {
				return Result{}, fmt.Errorf("resizing: %w", err)
			}
		}
	}

	ext := "png"
	if config.PreferJPEG {
		ext = "jpeg"
		if err := mw.SetImageCompressionQuality(uint(config.JPEGQuality)); err != nil {
			return Result{}, fmt.Errorf("setting quality: %w", err)
		}
	}
	if err := mw.SetImageFormat(ext); err != nil {
		return Result{}, fmt.Errorf("setting format: %w", err)
	}

	data, err := mw.GetImageBlob()
	if err != nil {
		return Result{}, fmt.Errorf("encoding %s: %w", ext, err)
	}
	return Result{Data: data, Ext: ext}, nil
}
