package raster

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	"github.com/tethys-labs/slideflow/host"
)

// hostExportStrategy renders the whole slide through host automation and
// crops the result down to the shape. It only applies when the request
// carries a source document path, so embedded and in-memory decks never
// reach it.
type hostExportStrategy struct {
	host host.Capability
}

func (s *hostExportStrategy) Name() string { return "host-export" }

func (s *hostExportStrategy) Available() bool {
	return s.host != nil && s.host.Available()
}

func (s *hostExportStrategy) Convert(req Request, config Config) (Result, error) {
	if req.SourcePath == "" {
		return Result{}, fmt.Errorf("no source document for slide export")
	}
	if req.SlideWidth <= 0 || req.ShapeBox.IsEmpty() {
		return Result{}, fmt.Errorf("shape geometry unknown")
	}

	data, err := s.host.ExportSlideImage(req.SourcePath, req.SlideIndex, config.SlideExportWidthPx)
	if err != nil {
		return Result{}, fmt.Errorf("exporting slide %d: %w", req.SlideIndex+1, err)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Result{}, fmt.Errorf("decoding exported slide: %w", err)
	}

	cropped, err := cropToShape(img, req)
	if err != nil {
		return Result{}, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, cropped); err != nil {
		return Result{}, fmt.Errorf("encoding crop: %w", err)
	}
	return Result{Data: buf.Bytes(), Ext: "png"}, nil
}

// cropToShape maps the shape's point geometry onto the exported pixel
// grid and cuts the shape region out.
func cropToShape(img image.Image, req Request) (image.Image, error) {
	b := img.Bounds()
	scale := float64(b.Dx()) / req.SlideWidth

	rect := image.Rect(
		b.Min.X+int(req.ShapeBox.Left()*scale),
		b.Min.Y+int(req.ShapeBox.Top()*scale),
		b.Min.X+int(req.ShapeBox.Right()*scale+0.5),
		b.Min.Y+int(req.ShapeBox.Bottom()*scale+0.5),
	)
	rect = rect.Intersect(b)
	if rect.Empty() {
		return nil, fmt.Errorf("shape box falls outside the exported slide")
	}

	type subImager interface {
		SubImage(image.Rectangle) image.Image
	}
	si, ok := img.(subImager)
	if !ok {
		return nil, fmt.Errorf("exported image type %T does not support cropping", img)
	}
	return si.SubImage(rect), nil
}
