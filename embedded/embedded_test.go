package embedded

import (
	"archive/zip"
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/tethys-labs/slideflow/model"
)

// buildOle10Native assembles a record in the layout legacy producers use.
func buildOle10Native(label, srcPath string, data []byte) []byte {
	var body bytes.Buffer
	binary.Write(&body, binary.LittleEndian, uint16(2)) // type
	body.WriteString(label)
	body.WriteByte(0)
	body.WriteString(srcPath)
	body.WriteByte(0)
	binary.Write(&body, binary.LittleEndian, uint32(0)) // flags
	temp := srcPath + "\x00"
	binary.Write(&body, binary.LittleEndian, uint32(len(temp)))
	body.WriteString(temp)
	binary.Write(&body, binary.LittleEndian, uint32(len(data)))
	body.Write(data)

	var rec bytes.Buffer
	binary.Write(&rec, binary.LittleEndian, uint32(body.Len()))
	rec.Write(body.Bytes())
	return rec.Bytes()
}

func TestParseOle10Native(t *testing.T) {
	want := []byte("PAYLOADBYTES")
	rec := buildOle10Native("Quarterly Review", `C:\decks\q3.pptx`, want)

	got, label, err := parseOle10Native(rec)
	if err != nil {
		t.Fatalf("parseOle10Native: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("data = %q, want %q", got, want)
	}
	if label != "Quarterly Review" {
		t.Errorf("label = %q, want %q", label, "Quarterly Review")
	}
}

func TestParseOle10NativeTruncated(t *testing.T) {
	rec := buildOle10Native("x", "y", []byte("abcdef"))
	for _, cut := range []int{3, 8, len(rec) - 3} {
		if _, _, err := parseOle10Native(rec[:cut]); err == nil {
			t.Errorf("cut at %d: expected error", cut)
		}
	}
}

func TestParseOle10NativeOversizedDataClaim(t *testing.T) {
	rec := buildOle10Native("x", "y", []byte("abc"))
	// Inflate the trailing data-size field past the buffer end.
	binary.LittleEndian.PutUint32(rec[len(rec)-7:], 1<<20)
	if _, _, err := parseOle10Native(rec); err == nil {
		t.Error("expected error for oversized data claim")
	}
}

// pptxPayload builds a minimal ZIP that format detection reports as PPTX.
func pptxPayload(t *testing.T, marker string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("ppt/presentation.xml")
	if err != nil {
		t.Fatalf("zip create: %v", err)
	}
	w.Write([]byte(marker))
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	return buf.Bytes()
}

func TestExpandPresentation(t *testing.T) {
	payload := pptxPayload(t, "inner deck")

	var gotPath string
	exp := NewExpander(func(data []byte, path model.PathID) ([]model.Block, []model.Warning, error) {
		if !bytes.Equal(data, payload) {
			t.Error("convert received different payload")
		}
		gotPath = path.String()
		return []model.Block{&model.TitleBlock{Runs: []model.TextRun{{Text: "Inner"}}}}, nil, nil
	})

	path := model.PathID{}.Slide(2).Embed(1)
	blocks, warnings, expanded := exp.Expand(&model.Embedded{Data: payload, PartExt: "pptx"}, path)
	if !expanded {
		t.Fatal("expected expansion")
	}
	if len(blocks) != 1 {
		t.Fatalf("blocks = %d, want 1", len(blocks))
	}
	if len(warnings) != 0 {
		t.Errorf("unexpected warnings: %v", warnings)
	}
	if gotPath != "S2/E1" {
		t.Errorf("path = %q, want S2/E1", gotPath)
	}
}

func TestExpandNonPresentationPayload(t *testing.T) {
	exp := NewExpander(func([]byte, model.PathID) ([]model.Block, []model.Warning, error) {
		t.Fatal("convert must not be called")
		return nil, nil, nil
	})

	emb := &model.Embedded{Data: []byte("not a zip at all"), PartExt: "xlsx", ProgID: "Excel.Sheet.12"}
	_, warnings, expanded := exp.Expand(emb, model.PathID{}.Slide(1).Embed(1))
	if expanded {
		t.Fatal("must not expand a non-presentation")
	}
	if len(warnings) != 1 || warnings[0].Code != model.WarnUnsupportedInput {
		t.Fatalf("warnings = %v, want one unsupported-input", warnings)
	}
}

func TestExpandEmptyPayload(t *testing.T) {
	exp := NewExpander(nil)
	_, warnings, expanded := exp.Expand(&model.Embedded{PartExt: "pptx"}, model.PathID{}.Slide(1).Embed(1))
	if expanded || len(warnings) != 0 {
		t.Fatalf("expanded = %v, warnings = %v; want false, none", expanded, warnings)
	}
}

func TestExpandBadOLEContainer(t *testing.T) {
	exp := NewExpander(nil)
	emb := &model.Embedded{Data: []byte("garbage, not CFB"), PartExt: "bin"}
	_, warnings, expanded := exp.Expand(emb, model.PathID{}.Slide(1).Embed(1))
	if expanded {
		t.Fatal("must not expand")
	}
	if len(warnings) != 1 || warnings[0].Code != model.WarnUnsupportedInput {
		t.Fatalf("warnings = %v, want one unsupported-input", warnings)
	}
}

func TestExpandCycleDetected(t *testing.T) {
	payload := pptxPayload(t, "ouroboros")

	var exp *Expander
	calls := 0
	exp = NewExpander(func(data []byte, path model.PathID) ([]model.Block, []model.Warning, error) {
		calls++
		// The inner deck embeds itself.
		inner, w, expanded := exp.Expand(&model.Embedded{Data: data, PartExt: "pptx"}, path.Slide(1).Embed(1))
		if expanded {
			t.Error("self-reference must not expand")
		}
		return inner, w, nil
	})

	_, warnings, expanded := exp.Expand(&model.Embedded{Data: payload, PartExt: "pptx"}, model.PathID{}.Slide(1).Embed(1))
	if !expanded {
		t.Fatal("outer expansion should succeed")
	}
	if calls != 1 {
		t.Errorf("convert calls = %d, want 1", calls)
	}
	found := false
	for _, w := range warnings {
		if w.Code == model.WarnRecursionCycle {
			found = true
		}
	}
	if !found {
		t.Errorf("warnings = %v, want a recursion-cycle warning", warnings)
	}
}

func TestExpandMaxDepth(t *testing.T) {
	payload := pptxPayload(t, "deep")
	exp := NewExpanderWithConfig(Config{MaxDepth: 2}, func([]byte, model.PathID) ([]model.Block, []model.Warning, error) {
		t.Fatal("convert must not be called past the depth limit")
		return nil, nil, nil
	})

	path := model.PathID{}.Slide(1).Embed(1).Slide(1).Embed(1).Slide(1).Embed(1)
	_, warnings, expanded := exp.Expand(&model.Embedded{Data: payload, PartExt: "pptx"}, path)
	if expanded {
		t.Fatal("must not expand past the depth limit")
	}
	if len(warnings) != 1 || warnings[0].Code != model.WarnRecursionCycle {
		t.Fatalf("warnings = %v, want one recursion-cycle", warnings)
	}
}

func TestExtractOLERejectsGarbage(t *testing.T) {
	if _, err := ExtractOLE([]byte("definitely not a compound file")); err == nil {
		t.Error("expected error")
	}
}
