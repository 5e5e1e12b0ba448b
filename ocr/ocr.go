//go:build ocr

package ocr

import (
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// Client wraps a Tesseract session. Close it to release engine resources.
type Client struct {
	client *gosseract.Client
}

// New creates an OCR client.
func New() (*Client, error) {
	return &Client{client: gosseract.NewClient()}, nil
}

// Close releases OCR resources. Safe on a nil client.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// RecognizeImage runs OCR over image bytes (PNG, JPEG, TIFF) and returns
// the recognized text, trimmed.
func (c *Client) RecognizeImage(data []byte) (string, error) {
	if err := c.client.SetImageFromBytes(data); err != nil {
		return "", fmt.Errorf("setting OCR image: %w", err)
	}
	text, err := c.client.Text()
	if err != nil {
		return "", fmt.Errorf("OCR recognition: %w", err)
	}
	return strings.TrimSpace(text), nil
}

// AltText produces a single-line alt text for a slide picture. Line breaks
// collapse to spaces; empty recognition yields an empty string without
// error.
func (c *Client) AltText(data []byte) (string, error) {
	text, err := c.RecognizeImage(data)
	if err != nil {
		return "", err
	}
	return strings.Join(strings.Fields(text), " "), nil
}

// SetLanguage sets the recognition language(s), "+"-separated, e.g.
// "eng+fra". Default is "eng".
func (c *Client) SetLanguage(lang string) error {
	return c.client.SetLanguage(lang)
}
