// Package embedded expands embedded OLE objects: presentations nested in
// a deck are converted recursively, everything else degrades to a preview
// image or a marker.
package embedded

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/richardlehane/mscfb"
	"github.com/richardlehane/msoleps"
)

// ErrNoPayload is returned when a compound file carries no extractable
// embedded package.
var ErrNoPayload = errors.New("no embedded payload stream")

// Payload is the content extracted from an OLE compound file.
type Payload struct {
	Data  []byte
	Label string // descriptive name from the property sets, may be empty
}

// ExtractOLE pulls the embedded package out of a CFB container. Modern
// producers store the raw bytes in a "Package" stream; legacy ones wrap
// them in an Ole10Native record. Property-set streams contribute a
// descriptive label when present.
func ExtractOLE(data []byte) (*Payload, error) {
	doc, err := mscfb.New(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("opening compound file: %w", err)
	}

	payload := &Payload{}
	for entry, err := doc.Next(); err == nil; entry, err = doc.Next() {
		name := entry.Name
		switch {
		case name == "Package":
			buf := make([]byte, entry.Size)
			if _, rerr := io.ReadFull(doc, buf); rerr != nil {
				return nil, fmt.Errorf("reading Package stream: %w", rerr)
			}
			payload.Data = buf
		case name == "\x01Ole10Native":
			buf := make([]byte, entry.Size)
			if _, rerr := io.ReadFull(doc, buf); rerr != nil {
				return nil, fmt.Errorf("reading Ole10Native stream: %w", rerr)
			}
			inner, label, perr := parseOle10Native(buf)
			if perr != nil {
				return nil, perr
			}
			payload.Data = inner
			if payload.Label == "" {
				payload.Label = label
			}
		case msoleps.IsMSOLEPS(entry.Initial):
			if label := readPropertyLabel(doc); label != "" && payload.Label == "" {
				payload.Label = label
			}
		}
	}

	if payload.Data == nil {
		return nil, ErrNoPayload
	}
	return payload, nil
}

// readPropertyLabel decodes a property-set stream and returns the first
// title-like string property.
func readPropertyLabel(r io.Reader) string {
	props := msoleps.New()
	if err := props.Reset(r); err != nil {
		return ""
	}
	for _, p := range props.Property {
		switch strings.ToLower(p.Name) {
		case "title", "subject":
			if s := p.String(); s != "" {
				return s
			}
		}
	}
	return ""
}

// parseOle10Native unwraps an Ole10Native record:
//
//	u32 total size, u16 type, label\0, source path\0,
//	u32 flags, u32 temp-path length + temp path\0,
//	u32 data size, data bytes
//
// Producers disagree on the middle fields, so the parse is defensive and
// anchored on the trailing size-prefixed data block.
func parseOle10Native(buf []byte) ([]byte, string, error) {
	if len(buf) < 6 {
		return nil, "", errors.New("Ole10Native record too short")
	}
	p := 6 // skip total size and type

	label, p, ok := readZString(buf, p)
	if !ok {
		return nil, "", errors.New("Ole10Native label truncated")
	}
	_, p, ok = readZString(buf, p) // source path
	if !ok {
		return nil, "", errors.New("Ole10Native source path truncated")
	}
	if p+8 > len(buf) {
		return nil, "", errors.New("Ole10Native header truncated")
	}
	p += 4 // flags
	tempLen := int(binary.LittleEndian.Uint32(buf[p:]))
	p += 4
	if tempLen < 0 || p+tempLen > len(buf) {
		return nil, "", errors.New("Ole10Native temp path truncated")
	}
	p += tempLen

	if p+4 > len(buf) {
		return nil, "", errors.New("Ole10Native data size missing")
	}
	size := int(binary.LittleEndian.Uint32(buf[p:]))
	p += 4
	if size < 0 || p+size > len(buf) {
		return nil, "", fmt.Errorf("Ole10Native claims %d data bytes, %d remain", size, len(buf)-p)
	}
	return buf[p : p+size], label, nil
}

func readZString(buf []byte, p int) (string, int, bool) {
	i := bytes.IndexByte(buf[p:], 0)
	if i < 0 {
		return "", p, false
	}
	return string(buf[p : p+i]), p + i + 1, true
}
