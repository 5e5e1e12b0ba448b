// Package legacy routes binary .ppt presentations through host automation.
// The CFB container format has no pure-Go reader here; the host converts
// the file to a PPTX package which then flows through the normal pipeline.
package legacy

import (
	"errors"
	"fmt"
	"os"

	"github.com/tethys-labs/slideflow/format"
	"github.com/tethys-labs/slideflow/host"
)

// ErrHostUnavailable is returned when a legacy presentation needs host
// automation and none is configured.
var ErrHostUnavailable = errors.New("legacy presentation requires host automation")

// Converter upgrades legacy binary presentations to PPTX packages.
type Converter struct {
	host host.Capability
}

// NewConverter creates a legacy converter backed by the given host
// capability. A nil capability behaves like host.None.
func NewConverter(h host.Capability) *Converter {
	if h == nil {
		h = host.None{}
	}
	return &Converter{host: h}
}

// CanConvert reports whether a host is configured and ready.
func (c *Converter) CanConvert() bool {
	return c.host.Available()
}

// ConvertFile verifies the file is a CFB presentation and asks the host to
// produce a PPTX package, returning the converted file's path. Without a
// usable host the error wraps ErrHostUnavailable.
func (c *Converter) ConvertFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening legacy presentation: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("opening legacy presentation: %w", err)
	}
	detected, err := format.DetectFromReader(f, info.Size())
	if err != nil {
		return "", fmt.Errorf("detecting legacy format: %w", err)
	}
	if detected != format.PPT {
		return "", fmt.Errorf("%s is not a legacy binary presentation", path)
	}

	if !c.host.Available() {
		return "", fmt.Errorf("converting %s: %w", path, ErrHostUnavailable)
	}
	converted, err := c.host.ConvertToPPTX(path)
	if err != nil {
		return "", fmt.Errorf("host conversion of %s: %w", path, err)
	}
	return converted, nil
}
