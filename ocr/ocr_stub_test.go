//go:build !ocr

package ocr

import (
	"errors"
	"testing"
)

func TestNewWithoutTagFails(t *testing.T) {
	client, err := New()
	if !errors.Is(err, ErrOCRNotEnabled) {
		t.Errorf("New() error = %v, want ErrOCRNotEnabled", err)
	}
	if client != nil {
		t.Error("expected nil client")
	}
}

func TestStubOperations(t *testing.T) {
	var client *Client
	if err := client.Close(); err != nil {
		t.Errorf("Close on nil client: %v", err)
	}

	c := &Client{}
	if _, err := c.AltText([]byte{1}); !errors.Is(err, ErrOCRNotEnabled) {
		t.Errorf("AltText error = %v, want ErrOCRNotEnabled", err)
	}
	if err := c.SetLanguage("eng"); !errors.Is(err, ErrOCRNotEnabled) {
		t.Errorf("SetLanguage error = %v, want ErrOCRNotEnabled", err)
	}
}
