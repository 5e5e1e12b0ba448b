package raster

import (
	"bytes"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"sync"
)

// magickCLIStrategy shells out to the ImageMagick executable. The binary
// is probed once; ImageMagick 7 ships "magick", older installs ship
// "convert".
type magickCLIStrategy struct {
	probe  sync.Once
	binary string
}

func newMagickCLIStrategy() Strategy {
	return &magickCLIStrategy{}
}

func (s *magickCLIStrategy) Name() string { return "magick-cli" }

func (s *magickCLIStrategy) Available() bool {
	s.probe.Do(func() {
		for _, name := range []string{"magick", "convert"} {
			if path, err := exec.LookPath(name); err == nil {
				s.binary = path
				return
			}
		}
	})
	return s.binary != ""
}

func (s *magickCLIStrategy) Convert(req Request, config Config) (Result, error) {
	if !s.Available() {
		return Result{}, fmt.Errorf("no magick executable on PATH")
	}

	ext := "png"
	args := []string{"-density", strconv.Itoa(config.DPI)}
	args = append(args, inputSpec(req.SrcExt))
	if config.MaxWidthPx > 0 {
		args = append(args, "-resize", fmt.Sprintf("%dx>", config.MaxWidthPx))
	}
	if config.PreferJPEG {
		ext = "jpeg"
		args = append(args, "-quality", strconv.Itoa(config.JPEGQuality))
	}
	args = append(args, strings.ToUpper(ext)+":-")

	cmd := exec.Command(s.binary, args...)
	cmd.Stdin = bytes.NewReader(req.Data)
	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return Result{}, fmt.Errorf("%s %s: %v: %s", s.binary, req.SrcExt, err, strings.TrimSpace(stderr.String()))
	}
	if out.Len() == 0 {
		return Result{}, fmt.Errorf("%s produced no output for %s payload", s.binary, req.SrcExt)
	}
	return Result{Data: out.Bytes(), Ext: ext}, nil
}

// inputSpec pins the input format so ImageMagick does not have to sniff a
// pipe. Unknown extensions are left to the sniffer.
func inputSpec(ext string) string {
	if ext == "" {
		return "-"
	}
	return strings.ToUpper(ext) + ":-"
}
