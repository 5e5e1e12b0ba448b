// Package ocr recovers alt text for slide pictures that carry none, by
// running the image through the Tesseract engine via gosseract.
//
// OCR support is compiled in with the "ocr" build tag:
//
//	go build -tags ocr
//
// and requires Tesseract on the system. On macOS:
//
//	brew install tesseract
//
// On Ubuntu/Debian:
//
//	apt-get install tesseract-ocr
//
// Without the tag every operation returns ErrOCRNotEnabled.
package ocr

import "errors"

// ErrOCRNotEnabled is returned when OCR is requested but support was not
// compiled in. Rebuild with -tags ocr to enable it.
var ErrOCRNotEnabled = errors.New("OCR support not enabled; rebuild with -tags ocr")
