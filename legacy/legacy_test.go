package legacy

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// cfbHeader is the magic prefix of a Compound File Binary container.
var cfbHeader = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}

type fakeHost struct {
	available bool
	converted string
	calls     int
}

func (h *fakeHost) Available() bool { return h.available }

func (h *fakeHost) ConvertToPPTX(path string) (string, error) {
	h.calls++
	return h.converted, nil
}

func (h *fakeHost) ExportSlideImage(string, int, int) ([]byte, error) {
	return nil, errors.New("not used")
}

func writeLegacyFile(t *testing.T, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "old.ppt")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	return path
}

func TestConvertFileWithoutHost(t *testing.T) {
	c := NewConverter(nil)
	path := writeLegacyFile(t, append(cfbHeader, make([]byte, 64)...))

	_, err := c.ConvertFile(path)
	if !errors.Is(err, ErrHostUnavailable) {
		t.Errorf("error = %v, want ErrHostUnavailable", err)
	}
	if c.CanConvert() {
		t.Error("CanConvert should be false without a host")
	}
}

func TestConvertFileViaHost(t *testing.T) {
	h := &fakeHost{available: true, converted: "/tmp/old.pptx"}
	c := NewConverter(h)
	path := writeLegacyFile(t, append(cfbHeader, make([]byte, 64)...))

	got, err := c.ConvertFile(path)
	if err != nil {
		t.Fatalf("ConvertFile: %v", err)
	}
	if got != "/tmp/old.pptx" {
		t.Errorf("converted path = %q", got)
	}
	if h.calls != 1 {
		t.Errorf("host calls = %d, want 1", h.calls)
	}
}

func TestConvertFileRejectsNonCFB(t *testing.T) {
	h := &fakeHost{available: true}
	c := NewConverter(h)
	path := writeLegacyFile(t, []byte("plain text, not a presentation"))

	if _, err := c.ConvertFile(path); err == nil {
		t.Error("expected error for non-CFB input")
	}
	if h.calls != 0 {
		t.Error("host must not be called for non-CFB input")
	}
}

func TestConvertFileMissing(t *testing.T) {
	c := NewConverter(&fakeHost{available: true})
	if _, err := c.ConvertFile(filepath.Join(t.TempDir(), "absent.ppt")); err == nil {
		t.Error("expected error for missing file")
	}
}
