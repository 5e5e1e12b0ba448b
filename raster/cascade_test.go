package raster

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"golang.org/x/image/tiff"

	"github.com/tethys-labs/slideflow/host"
	"github.com/tethys-labs/slideflow/model"
)

// fakeStrategy counts invocations and returns a fixed outcome.
type fakeStrategy struct {
	name      string
	available bool
	err       error
	calls     int
}

func (f *fakeStrategy) Name() string    { return f.name }
func (f *fakeStrategy) Available() bool { return f.available }
func (f *fakeStrategy) Convert(Request, Config) (Result, error) {
	f.calls++
	if f.err != nil {
		return Result{}, f.err
	}
	return Result{Data: []byte(f.name), Ext: "png"}, nil
}

func TestCascade_FirstSuccessShortCircuits(t *testing.T) {
	first := &fakeStrategy{name: "one", available: true}
	second := &fakeStrategy{name: "two", available: true}
	third := &fakeStrategy{name: "three", available: true}
	c := NewCascadeWithStrategies(DefaultConfig(), first, second, third)

	res, warnings, err := c.Convert(Request{SrcExt: "wmf"})
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if string(res.Data) != "one" {
		t.Errorf("result from %q", res.Data)
	}
	if first.calls != 1 || second.calls != 0 || third.calls != 0 {
		t.Errorf("calls = %d, %d, %d; want 1, 0, 0", first.calls, second.calls, third.calls)
	}
	if len(warnings) != 0 {
		t.Errorf("warnings on clean success: %v", warnings)
	}
}

func TestCascade_FailureFallsThrough(t *testing.T) {
	first := &fakeStrategy{name: "one", available: true, err: errors.New("boom")}
	second := &fakeStrategy{name: "two", available: true}
	c := NewCascadeWithStrategies(DefaultConfig(), first, second)

	res, warnings, err := c.Convert(Request{SrcExt: "wmf"})
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if string(res.Data) != "two" {
		t.Errorf("result from %q", res.Data)
	}
	if len(warnings) != 1 {
		t.Fatalf("warnings = %v", warnings)
	}
	if warnings[0].Code != model.WarnUnsupportedInput {
		t.Errorf("warning code = %q", warnings[0].Code)
	}
}

func TestCascade_UnavailableStrategiesSkipped(t *testing.T) {
	off := &fakeStrategy{name: "off", available: false}
	on := &fakeStrategy{name: "on", available: true}
	c := NewCascadeWithStrategies(DefaultConfig(), off, on)

	if _, _, err := c.Convert(Request{SrcExt: "emf"}); err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if off.calls != 0 {
		t.Errorf("unavailable strategy invoked %d times", off.calls)
	}
	if on.calls != 1 {
		t.Errorf("available strategy invoked %d times", on.calls)
	}
}

func TestCascade_Exhaustion(t *testing.T) {
	first := &fakeStrategy{name: "one", available: true, err: errors.New("a")}
	second := &fakeStrategy{name: "two", available: true, err: errors.New("b")}
	c := NewCascadeWithStrategies(DefaultConfig(), first, second)

	_, warnings, err := c.Convert(Request{SrcExt: "wmf"})
	if !errors.Is(err, ErrCascadeExhausted) {
		t.Fatalf("err = %v, want ErrCascadeExhausted", err)
	}
	if len(warnings) != 3 {
		t.Fatalf("warnings = %v", warnings)
	}
	last := warnings[len(warnings)-1]
	if last.Code != model.WarnCascadeExhausted {
		t.Errorf("final warning code = %q", last.Code)
	}
}

func TestNeedsConversion(t *testing.T) {
	tests := []struct {
		ext  string
		want bool
	}{
		{"png", false},
		{"jpeg", false},
		{"jpg", false},
		{"gif", false},
		{"wmf", true},
		{"emf", true},
		{"tiff", true},
		{"bmp", true},
	}
	for _, tt := range tests {
		if got := NeedsConversion(tt.ext); got != tt.want {
			t.Errorf("NeedsConversion(%q) = %v, want %v", tt.ext, got, tt.want)
		}
	}
}

// solidImage creates a width x height opaque test image.
func solidImage(width, height int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: 128, B: 64, A: 255})
		}
	}
	return img
}

func encodeTIFF(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := tiff.Encode(&buf, img, nil); err != nil {
		t.Fatalf("encoding tiff: %v", err)
	}
	return buf.Bytes()
}

func TestNativeStrategy_TIFFToPNG(t *testing.T) {
	data := encodeTIFF(t, solidImage(20, 10))

	res, err := nativeStrategy{}.Convert(Request{Data: data, SrcExt: "tiff"}, DefaultConfig())
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if res.Ext != "png" {
		t.Errorf("ext = %q, want png", res.Ext)
	}
	img, err := png.Decode(bytes.NewReader(res.Data))
	if err != nil {
		t.Fatalf("decoding result: %v", err)
	}
	if img.Bounds().Dx() != 20 || img.Bounds().Dy() != 10 {
		t.Errorf("result bounds = %v", img.Bounds())
	}
}

func TestNativeStrategy_PreferJPEGOnOpaque(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PreferJPEG = true

	res, err := nativeStrategy{}.Convert(Request{Data: encodeTIFF(t, solidImage(8, 8)), SrcExt: "tiff"}, cfg)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if res.Ext != "jpeg" {
		t.Errorf("ext = %q, want jpeg", res.Ext)
	}
}

func TestNativeStrategy_Downscale(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxWidthPx = 16

	res, err := nativeStrategy{}.Convert(Request{Data: encodeTIFF(t, solidImage(64, 32)), SrcExt: "tiff"}, cfg)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(res.Data))
	if err != nil {
		t.Fatalf("decoding result: %v", err)
	}
	if img.Bounds().Dx() != 16 || img.Bounds().Dy() != 8 {
		t.Errorf("bounds = %v, want 16x8", img.Bounds())
	}
}

func TestNativeStrategy_RejectsMetafile(t *testing.T) {
	wmf := []byte{0xD7, 0xCD, 0xC6, 0x9A, 0x00, 0x00} // placeable WMF header
	_, err := nativeStrategy{}.Convert(Request{Data: wmf, SrcExt: "wmf"}, DefaultConfig())
	if err == nil {
		t.Fatal("native strategy accepted a WMF payload")
	}
}

// fakeHost exports a fixed slide image.
type fakeHost struct {
	slide []byte
	err   error
	calls int
}

func (f *fakeHost) Available() bool                          { return true }
func (f *fakeHost) ConvertToPPTX(string) (string, error)     { return "", host.ErrUnavailable }
func (f *fakeHost) ExportSlideImage(path string, idx, w int) ([]byte, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.slide, nil
}

func TestHostExportStrategy_CropsShape(t *testing.T) {
	// 720x540pt slide exported at 1440px: scale 2. Shape at (72, 54)
	// size 144x108pt crops to a 288x216px region.
	var buf bytes.Buffer
	if err := png.Encode(&buf, solidImage(1440, 1080)); err != nil {
		t.Fatalf("encoding slide: %v", err)
	}
	h := &fakeHost{slide: buf.Bytes()}
	s := &hostExportStrategy{host: h}

	req := Request{
		SrcExt:      "wmf",
		ShapeBox:    model.NewBBox(72, 54, 144, 108),
		SlideWidth:  720,
		SlideHeight: 540,
		SourcePath:  "/decks/a.pptx",
		SlideIndex:  2,
	}
	res, err := s.Convert(req, DefaultConfig())
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(res.Data))
	if err != nil {
		t.Fatalf("decoding crop: %v", err)
	}
	if img.Bounds().Dx() != 288 || img.Bounds().Dy() != 216 {
		t.Errorf("crop bounds = %v, want 288x216", img.Bounds())
	}
	if h.calls != 1 {
		t.Errorf("host invoked %d times", h.calls)
	}
}

func TestHostExportStrategy_RequiresSourcePath(t *testing.T) {
	s := &hostExportStrategy{host: &fakeHost{}}
	_, err := s.Convert(Request{SrcExt: "wmf", ShapeBox: model.NewBBox(0, 0, 10, 10), SlideWidth: 720}, DefaultConfig())
	if err == nil {
		t.Fatal("export without source path succeeded")
	}
}

func TestHostExportStrategy_UnavailableWithoutHost(t *testing.T) {
	s := &hostExportStrategy{host: host.None{}}
	if s.Available() {
		t.Error("strategy available with host.None")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.DPI != 600 || cfg.JPEGQuality != 92 || cfg.SlideExportWidthPx != 3840 {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}
