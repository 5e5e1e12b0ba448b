package raster

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"

	_ "image/gif"

	"golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// nativeStrategy decodes with the Go image packages and re-encodes. It
// covers TIFF, BMP, WebP and GIF payloads; vector metafiles fail here and
// fall through to the external converters.
type nativeStrategy struct{}

func (nativeStrategy) Name() string { return "native" }

func (nativeStrategy) Available() bool { return true }

func (nativeStrategy) Convert(req Request, config Config) (Result, error) {
	img, srcFormat, err := image.Decode(bytes.NewReader(req.Data))
	if err != nil {
		return Result{}, fmt.Errorf("decoding %s: %w", req.SrcExt, err)
	}

	if config.MaxWidthPx > 0 && img.Bounds().Dx() > config.MaxWidthPx {
		img = downscale(img, config.MaxWidthPx)
	}

	var buf bytes.Buffer
	ext := "png"
	if config.PreferJPEG && isOpaque(img) {
		ext = "jpeg"
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: config.JPEGQuality})
	} else {
		err = png.Encode(&buf, img)
	}
	if err != nil {
		return Result{}, fmt.Errorf("re-encoding %s as %s: %w", srcFormat, ext, err)
	}
	return Result{Data: buf.Bytes(), Ext: ext}, nil
}

// downscale resizes the image to the given width, keeping aspect ratio.
func downscale(img image.Image, width int) image.Image {
	b := img.Bounds()
	height := int(float64(b.Dy()) * float64(width) / float64(b.Dx()))
	if height < 1 {
		height = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}

// isOpaque reports whether the image has no transparent pixels. Images
// exposing an Opaque method answer directly; everything else is sampled.
func isOpaque(img image.Image) bool {
	if o, ok := img.(interface{ Opaque() bool }); ok {
		return o.Opaque()
	}
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if _, _, _, a := img.At(x, y).RGBA(); a != 0xffff {
				return false
			}
		}
	}
	return true
}
