// Package format provides input format detection for the slideflow library.
package format

import (
	"archive/zip"
	"bytes"
	"io"
	"path/filepath"
	"strings"
)

// Format represents a recognized input format.
type Format int

const (
	// Unknown indicates an unrecognized format.
	Unknown Format = iota
	// PPTX indicates a Microsoft PowerPoint (.pptx) presentation.
	PPTX
	// PPT indicates a legacy binary PowerPoint (.ppt) presentation
	// stored in a Compound File Binary container.
	PPT
	// DOCX indicates a Microsoft Word (.docx) document. Word payloads
	// show up inside embedded OLE objects and are not converted.
	DOCX
	// XLSX indicates a Microsoft Excel (.xlsx) workbook, likewise only
	// seen as an embedded payload.
	XLSX
)

// cfbMagic is the Compound File Binary signature shared by all legacy
// Office formats.
var cfbMagic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}

// String returns the string representation of the format.
func (f Format) String() string {
	switch f {
	case PPTX:
		return "PPTX"
	case PPT:
		return "PPT"
	case DOCX:
		return "DOCX"
	case XLSX:
		return "XLSX"
	default:
		return "Unknown"
	}
}

// Extension returns the typical file extension for the format.
func (f Format) Extension() string {
	switch f {
	case PPTX:
		return ".pptx"
	case PPT:
		return ".ppt"
	case DOCX:
		return ".docx"
	case XLSX:
		return ".xlsx"
	default:
		return ""
	}
}

// Detect determines file format from filename extension.
func Detect(filename string) Format {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".pptx", ".pptm", ".potx":
		return PPTX
	case ".ppt", ".pps", ".pot":
		return PPT
	case ".docx":
		return DOCX
	case ".xlsx":
		return XLSX
	default:
		return Unknown
	}
}

// DetectFromMagic checks magic bytes to determine format. ZIP containers
// cannot be told apart by magic alone; callers with full content should
// use DetectFromReader, which inspects the archive. A CFB container is
// reported as PPT because the legacy route re-detects the exact stream
// layout itself.
func DetectFromMagic(data []byte) Format {
	if len(data) >= len(cfbMagic) && bytes.Equal(data[:len(cfbMagic)], cfbMagic) {
		return PPT
	}
	if len(data) >= 4 && data[0] == 0x50 && data[1] == 0x4B && data[2] == 0x03 && data[3] == 0x04 {
		return Unknown
	}
	return Unknown
}

// IsZIP reports whether the data starts with the ZIP local-file signature.
func IsZIP(data []byte) bool {
	return len(data) >= 4 &&
		data[0] == 0x50 && data[1] == 0x4B && data[2] == 0x03 && data[3] == 0x04
}

// DetectFromReader inspects the content to determine format. This is more
// reliable than extension-based detection and distinguishes the ZIP-based
// OOXML formats by their package layout.
func DetectFromReader(r io.ReaderAt, size int64) (Format, error) {
	magic := make([]byte, 8)
	n, err := r.ReadAt(magic, 0)
	if err != nil && err != io.EOF {
		return Unknown, err
	}
	magic = magic[:n]

	if f := DetectFromMagic(magic); f != Unknown {
		return f, nil
	}

	if IsZIP(magic) {
		return detectZIPFormat(r, size)
	}

	return Unknown, nil
}

// DetectBytes is DetectFromReader over an in-memory payload.
func DetectBytes(data []byte) (Format, error) {
	return DetectFromReader(bytes.NewReader(data), int64(len(data)))
}

// detectZIPFormat inspects a ZIP archive to tell PPTX, DOCX and XLSX apart.
func detectZIPFormat(r io.ReaderAt, size int64) (Format, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return Unknown, err
	}

	for _, f := range zr.File {
		switch {
		case strings.HasPrefix(f.Name, "ppt/"):
			return PPTX, nil
		case strings.HasPrefix(f.Name, "word/"):
			return DOCX, nil
		case strings.HasPrefix(f.Name, "xl/"):
			return XLSX, nil
		}
	}

	return Unknown, nil
}
