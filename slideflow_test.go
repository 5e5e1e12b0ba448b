package slideflow

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const (
	xmlnsP = `xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main"`
	xmlnsA = `xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main"`
	xmlnsR = `xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships"`
)

// buildPPTX creates an in-memory PPTX zip from part name to content.
func buildPPTX(t *testing.T, parts map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range parts {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("creating part %s: %v", name, err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatalf("writing part %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("closing package: %v", err)
	}
	return buf.Bytes()
}

func deckParts(slides ...string) map[string]string {
	parts := map[string]string{}
	idList := ""
	rels := ""
	for i := range slides {
		n := string(rune('1' + i))
		idList += `<p:sldId id="25` + n + `" r:id="rId` + n + `"/>`
		rels += `<Relationship Id="rId` + n + `" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/slide" Target="slides/slide` + n + `.xml"/>`
		parts["ppt/slides/slide"+n+".xml"] = slides[i]
	}
	parts["ppt/presentation.xml"] = `<p:presentation ` + xmlnsP + ` ` + xmlnsR + `>` +
		`<p:sldIdLst>` + idList + `</p:sldIdLst>` +
		`<p:sldSz cx="9144000" cy="6858000"/></p:presentation>`
	parts["ppt/_rels/presentation.xml.rels"] = `<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` + rels + `</Relationships>`
	return parts
}

func slideXML(shapes string) string {
	return `<p:sld ` + xmlnsP + ` ` + xmlnsA + ` ` + xmlnsR + `>` +
		`<p:cSld><p:spTree><p:nvGrpSpPr><p:cNvPr id="1" name=""/></p:nvGrpSpPr>` +
		shapes + `</p:spTree></p:cSld></p:sld>`
}

func titleSp(text string) string {
	return `<p:sp><p:nvSpPr><p:cNvPr id="2" name="Title 1"/><p:nvPr><p:ph type="title"/></p:nvPr></p:nvSpPr>
		<p:spPr><a:xfrm><a:off x="457200" y="274638"/><a:ext cx="8229600" cy="1143000"/></a:xfrm></p:spPr>
		<p:txBody><a:bodyPr/><a:p><a:r><a:rPr sz="4400"/><a:t>` + text + `</a:t></a:r></a:p></p:txBody></p:sp>`
}

func bodySp(paragraphs string) string {
	return `<p:sp><p:nvSpPr><p:cNvPr id="3" name="Content 2"/><p:nvPr><p:ph type="body" idx="1"/></p:nvPr></p:nvSpPr>
		<p:spPr><a:xfrm><a:off x="457200" y="1600200"/><a:ext cx="8229600" cy="4525963"/></a:xfrm></p:spPr>
		<p:txBody><a:bodyPr/>` + paragraphs + `</p:txBody></p:sp>`
}

func bulletP(text string) string {
	return `<a:p><a:pPr lvl="0"><a:buChar char="&#8226;"/></a:pPr><a:r><a:t>` + text + `</a:t></a:r></a:p>`
}

// colSp is a free text box for layout fixtures, 3048000x1016000 EMU at the
// given offset.
func colSp(id int, text string, x, y int64) string {
	return fmt.Sprintf(`<p:sp><p:nvSpPr><p:cNvPr id="%d" name="TextBox %d"/><p:nvPr/></p:nvSpPr>
		<p:spPr><a:xfrm><a:off x="%d" y="%d"/><a:ext cx="3048000" cy="1016000"/></a:xfrm></p:spPr>
		<p:txBody><a:bodyPr/><a:p><a:r><a:t>%s</a:t></a:r></a:p></p:txBody></p:sp>`, id, id, x, y, text)
}

func TestToMarkdownBasic(t *testing.T) {
	deck := buildPPTX(t, deckParts(slideXML(
		titleSp("Quarterly Results")+
			bodySp(bulletP("first finding of the quarter")+bulletP("second finding of the quarter")),
	)))

	got, warnings, err := FromBytes(deck).ToMarkdown()
	if err != nil {
		t.Fatalf("ToMarkdown: %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("unexpected warnings: %s", FormatWarnings(warnings))
	}
	for _, want := range []string{
		"<!-- slide path: S1 -->",
		"# Quarterly Results",
		"* first finding of the quarter",
		"* second finding of the quarter",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("missing %q in:\n%s", want, got)
		}
	}
}

func TestDeterministicOutput(t *testing.T) {
	deck := buildPPTX(t, deckParts(slideXML(
		titleSp("Stable")+bodySp(bulletP("alpha content line")+bulletP("beta content line")),
	)))

	first, _, err := FromBytes(deck).ToMarkdown()
	if err != nil {
		t.Fatalf("ToMarkdown: %v", err)
	}
	for i := 0; i < 3; i++ {
		again, _, err := FromBytes(deck).ToMarkdown()
		if err != nil {
			t.Fatalf("ToMarkdown run %d: %v", i, err)
		}
		if again != first {
			t.Fatalf("run %d produced different output", i)
		}
	}
}

func TestOrderedListSeeding(t *testing.T) {
	paras := `<a:p><a:pPr><a:buAutoNum type="arabicPeriod" startAt="5"/></a:pPr><a:r><a:t>alpha</a:t></a:r></a:p>` +
		`<a:p><a:pPr><a:buAutoNum type="arabicPeriod" startAt="5"/></a:pPr><a:r><a:t>beta</a:t></a:r></a:p>` +
		`<a:p><a:pPr><a:buAutoNum type="arabicPeriod" startAt="5"/></a:pPr><a:r><a:t>gamma</a:t></a:r></a:p>`
	deck := buildPPTX(t, deckParts(slideXML(bodySp(paras))))

	got, _, err := FromBytes(deck).WithoutPathComments().ToMarkdown()
	if err != nil {
		t.Fatalf("ToMarkdown: %v", err)
	}
	want := "5. alpha\n6. beta\n7. gamma\n"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestManualBulletNormalization(t *testing.T) {
	paras := `<a:p><a:r><a:t>- item alpha is listed</a:t></a:r></a:p>` +
		`<a:p><a:r><a:t>&#8226; item beta is listed</a:t></a:r></a:p>`
	deck := buildPPTX(t, deckParts(slideXML(bodySp(paras))))

	got, _, err := FromBytes(deck).WithoutPathComments().ToMarkdown()
	if err != nil {
		t.Fatalf("ToMarkdown: %v", err)
	}
	want := "* item alpha is listed\n* item beta is listed\n"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestSimilarTitleSuppressed(t *testing.T) {
	deck := buildPPTX(t, deckParts(
		slideXML(titleSp("Project Overview")+bodySp(bulletP("part one of the story"))),
		slideXML(titleSp("Project Overviews")+bodySp(bulletP("part two of the story"))),
	))

	got, _, err := FromBytes(deck).WithoutPathComments().ToMarkdown()
	if err != nil {
		t.Fatalf("ToMarkdown: %v", err)
	}
	if strings.Contains(got, "Project Overviews") {
		t.Errorf("near-duplicate title should be suppressed:\n%s", got)
	}
	if !strings.Contains(got, "# Project Overview\n") {
		t.Errorf("first title missing:\n%s", got)
	}
	if !strings.Contains(got, "part two of the story") {
		t.Errorf("second slide body must survive the suppressed title:\n%s", got)
	}
}

func TestKeepSimilarTitles(t *testing.T) {
	deck := buildPPTX(t, deckParts(
		slideXML(titleSp("Project Overview")+bodySp(bulletP("part one of the story"))),
		slideXML(titleSp("Project Overviews")+bodySp(bulletP("part two of the story"))),
	))

	got, _, err := FromBytes(deck).WithoutPathComments().KeepSimilarTitles().ToMarkdown()
	if err != nil {
		t.Fatalf("ToMarkdown: %v", err)
	}
	if !strings.Contains(got, `# Project Overviews \(cont\.\)`) {
		t.Errorf("second title should be marked as continuation:\n%s", got)
	}
	if strings.Contains(got, `# Project Overview \(cont\.\)`+"\n") {
		t.Errorf("first title must not be marked:\n%s", got)
	}
}

func TestSlideSelection(t *testing.T) {
	deck := buildPPTX(t, deckParts(
		slideXML(titleSp("Alpha One")),
		slideXML(titleSp("Beta Two")),
	))

	got, _, err := FromBytes(deck).Slides(2).ToMarkdown()
	if err != nil {
		t.Fatalf("ToMarkdown: %v", err)
	}
	if strings.Contains(got, "Alpha One") {
		t.Errorf("slide 1 should be excluded:\n%s", got)
	}
	if !strings.Contains(got, "Beta Two") || !strings.Contains(got, "<!-- slide path: S2 -->") {
		t.Errorf("slide 2 missing:\n%s", got)
	}
}

func tableFrame() string {
	return `<p:graphicFrame>
		<p:nvGraphicFramePr><p:cNvPr id="5" name="Table 4"/></p:nvGraphicFramePr>
		<p:xfrm><a:off x="914400" y="1914400"/><a:ext cx="4572000" cy="1828800"/></p:xfrm>
		<a:graphic><a:graphicData uri="http://schemas.openxmlformats.org/drawingml/2006/table">
		<a:tbl><a:tblGrid><a:gridCol w="2286000"/><a:gridCol w="2286000"/></a:tblGrid>
			<a:tr h="370840">
				<a:tc><a:txBody><a:bodyPr/><a:p><a:r><a:t>name</a:t></a:r></a:p></a:txBody></a:tc>
				<a:tc><a:txBody><a:bodyPr/><a:p><a:r><a:t>value</a:t></a:r></a:p></a:txBody></a:tc>
			</a:tr>
			<a:tr h="370840">
				<a:tc><a:txBody><a:bodyPr/><a:p><a:r><a:t>cpu</a:t></a:r></a:p></a:txBody></a:tc>
				<a:tc><a:txBody><a:bodyPr/><a:p><a:r><a:t>97</a:t></a:r></a:p></a:txBody></a:tc>
			</a:tr>
		</a:tbl></a:graphicData></a:graphic>
	</p:graphicFrame>`
}

func TestTableHeaderModes(t *testing.T) {
	deck := buildPPTX(t, deckParts(slideXML(tableFrame())))

	got, _, err := FromBytes(deck).WithoutPathComments().ToMarkdown()
	if err != nil {
		t.Fatalf("ToMarkdown: %v", err)
	}
	want := "| name | value |\n| :-: | :-: |\n| cpu | 97 |\n"
	if got != want {
		t.Errorf("first-row mode: got %q, want %q", got, want)
	}

	got, _, err = FromBytes(deck).WithoutPathComments().EmptyTableHeaders().ToMarkdown()
	if err != nil {
		t.Fatalf("ToMarkdown: %v", err)
	}
	want = "|  |  |\n| :-: | :-: |\n| name | value |\n| cpu | 97 |\n"
	if got != want {
		t.Errorf("empty mode: got %q, want %q", got, want)
	}
}

func oleFrame() string {
	return `<p:graphicFrame>
		<p:nvGraphicFramePr><p:cNvPr id="6" name="Object 5"/></p:nvGraphicFramePr>
		<p:xfrm><a:off x="914400" y="1914400"/><a:ext cx="1828800" cy="1828800"/></p:xfrm>
		<a:graphic><a:graphicData uri="http://schemas.openxmlformats.org/presentationml/2006/ole">
			<p:oleObj progId="PowerPoint.Show.12" r:id="rId9"/>
		</a:graphicData></a:graphic>
	</p:graphicFrame>`
}

func oleRels(target string) string {
	return `<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
		<Relationship Id="rId9" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/oleObject" Target="` + target + `"/>
	</Relationships>`
}

func TestEmbeddedPresentationExpansion(t *testing.T) {
	inner := buildPPTX(t, deckParts(slideXML(titleSp("Inner Topic"))))

	parts := deckParts(slideXML(titleSp("Outer Deck") + oleFrame()))
	parts["ppt/slides/_rels/slide1.xml.rels"] = oleRels("../embeddings/inner.pptx")
	parts["ppt/embeddings/inner.pptx"] = string(inner)

	got, warnings, err := FromBytes(buildPPTX(t, parts)).ToMarkdown()
	if err != nil {
		t.Fatalf("ToMarkdown: %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("unexpected warnings: %s", FormatWarnings(warnings))
	}
	for _, want := range []string{
		"# Outer Deck",
		"<!-- slide path: S1/E1/S1 -->",
		"## Inner Topic",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("missing %q in:\n%s", want, got)
		}
	}
}

func TestEmbeddedNonPresentationMarker(t *testing.T) {
	parts := deckParts(slideXML(titleSp("Outer Deck") + oleFrame()))
	parts["ppt/slides/_rels/slide1.xml.rels"] = oleRels("../embeddings/oleObject1.bin")
	parts["ppt/embeddings/oleObject1.bin"] = "not a compound file"

	got, warnings, err := FromBytes(buildPPTX(t, parts)).ToMarkdown()
	if err != nil {
		t.Fatalf("ToMarkdown: %v", err)
	}
	if !strings.Contains(got, `_[embedded object: PowerPoint\.Show\.12`) {
		t.Errorf("missing embedded marker:\n%s", got)
	}
	found := false
	for _, w := range warnings {
		if w.Code == WarnUnsupportedInput && w.Path.String() == "S1/E1" {
			found = true
		}
	}
	if !found {
		t.Errorf("missing unsupported-input warning at S1/E1: %s", FormatWarnings(warnings))
	}
}

func picShape() string {
	return `<p:pic>
		<p:nvPicPr><p:cNvPr id="4" name="Picture 3" descr="a chart"/></p:nvPicPr>
		<p:blipFill><a:blip r:embed="rId8"/></p:blipFill>
		<p:spPr><a:xfrm><a:off x="914400" y="1914400"/><a:ext cx="2540000" cy="1270000"/></a:xfrm></p:spPr>
	</p:pic>`
}

func picParts() map[string]string {
	parts := deckParts(slideXML(picShape()))
	parts["ppt/slides/_rels/slide1.xml.rels"] = `<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
		<Relationship Id="rId8" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/image" Target="../media/image1.png"/>
	</Relationships>`
	parts["ppt/media/image1.png"] = "PNGDATA"
	return parts
}

func TestImagePlaceholderWithoutImageDir(t *testing.T) {
	deck := buildPPTX(t, picParts())
	got, _, err := FromBytes(deck).WithoutPathComments().ToMarkdown()
	if err != nil {
		t.Fatalf("ToMarkdown: %v", err)
	}
	if !strings.Contains(got, "_[unconverted image: a chart]_") {
		t.Errorf("expected placeholder without an image dir:\n%s", got)
	}
}

func TestImageFilesWritten(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "imgs")
	deck := buildPPTX(t, picParts())

	got, _, err := FromBytes(deck).ImageDir(dir).ToMarkdown()
	if err != nil {
		t.Fatalf("ToMarkdown: %v", err)
	}
	if !strings.Contains(got, "image_001.png") {
		t.Errorf("output should reference the image file:\n%s", got)
	}
	data, err := os.ReadFile(filepath.Join(dir, "image_001.png"))
	if err != nil {
		t.Fatalf("image file not written: %v", err)
	}
	if string(data) != "PNGDATA" {
		t.Errorf("image content = %q", data)
	}
}

func TestDisableImages(t *testing.T) {
	deck := buildPPTX(t, picParts())
	got, _, err := FromBytes(deck).DisableImages().ToMarkdown()
	if err != nil {
		t.Fatalf("ToMarkdown: %v", err)
	}
	if strings.Contains(got, "image") || strings.Contains(got, "chart") {
		t.Errorf("images should be dropped entirely:\n%s", got)
	}
}

func TestColumnDetectionToggle(t *testing.T) {
	deck := buildPPTX(t, deckParts(slideXML(
		titleSp("Columns Demo")+
			colSp(3, "left column first entry", 508000, 1270000)+
			colSp(4, "left column second entry", 508000, 3048000)+
			colSp(5, "right column first entry", 5588000, 1270000)+
			colSp(6, "right column second entry", 5588000, 3048000),
	)))

	got, _, err := FromBytes(deck).WithoutPathComments().ToMarkdown()
	if err != nil {
		t.Fatalf("ToMarkdown: %v", err)
	}
	if strings.Index(got, "left column second") > strings.Index(got, "right column first") {
		t.Errorf("left column should read fully before the right:\n%s", got)
	}

	got, _, err = FromBytes(deck).WithoutPathComments().DisableColumns().ToMarkdown()
	if err != nil {
		t.Fatalf("ToMarkdown: %v", err)
	}
	if strings.Index(got, "right column first") > strings.Index(got, "left column second") {
		t.Errorf("with columns off shapes should read strictly by top edge:\n%s", got)
	}
}

func wmfParts() map[string]string {
	parts := deckParts(slideXML(`<p:pic>
		<p:nvPicPr><p:cNvPr id="4" name="Picture 3" descr="diagram"/></p:nvPicPr>
		<p:blipFill><a:blip r:embed="rId8"/></p:blipFill>
		<p:spPr><a:xfrm><a:off x="914400" y="1914400"/><a:ext cx="2540000" cy="1270000"/></a:xfrm></p:spPr>
	</p:pic>`))
	parts["ppt/slides/_rels/slide1.xml.rels"] = `<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
		<Relationship Id="rId8" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/image" Target="../media/image1.wmf"/>
	</Relationships>`
	parts["ppt/media/image1.wmf"] = "not a metafile"
	return parts
}

func TestCascadeExhaustionKeepsPlaceholder(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "imgs")
	got, warnings, err := FromBytes(buildPPTX(t, wmfParts())).
		WithoutPathComments().ImageDir(dir).ToMarkdown()
	if err != nil {
		t.Fatalf("conversion must not abort on an unconvertible image: %v", err)
	}
	if !strings.Contains(got, "_[unconverted image: diagram]_") {
		t.Errorf("expected placeholder with preserved alt text:\n%s", got)
	}
	found := false
	for _, w := range warnings {
		if w.Code == WarnCascadeExhausted && w.Path.String() == "S1" {
			found = true
		}
	}
	if !found {
		t.Errorf("missing cascade-exhausted warning at S1: %s", FormatWarnings(warnings))
	}
}

func TestDisableWMF(t *testing.T) {
	got, warnings, err := FromBytes(buildPPTX(t, wmfParts())).
		WithoutPathComments().DisableWMF().ToMarkdown()
	if err != nil {
		t.Fatalf("ToMarkdown: %v", err)
	}
	if !strings.Contains(got, "_[unconverted image: diagram]_") {
		t.Errorf("expected placeholder for the skipped metafile:\n%s", got)
	}
	for _, w := range warnings {
		if w.Code == WarnCascadeExhausted {
			t.Errorf("cascade must not run with WMF disabled: %s", FormatWarnings(warnings))
		}
	}
}

func TestLegacyWithoutHost(t *testing.T) {
	path := filepath.Join(t.TempDir(), "old.ppt")
	cfb := append([]byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}, make([]byte, 64)...)
	if err := os.WriteFile(path, cfb, 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	_, _, err := Open(path).ToMarkdown()
	if !errors.Is(err, ErrHostUnavailable) {
		t.Errorf("error = %v, want ErrHostUnavailable", err)
	}
}

func TestNotPowerPointInput(t *testing.T) {
	_, _, err := FromBytes([]byte("plain text")).ToMarkdown()
	if !errors.Is(err, ErrNotPowerPoint) {
		t.Errorf("error = %v, want ErrNotPowerPoint", err)
	}
}

func TestRenderFormats(t *testing.T) {
	deck := buildPPTX(t, deckParts(slideXML(titleSp("Formats"))))

	quarto, _, err := FromBytes(deck).ToQuarto()
	if err != nil {
		t.Fatalf("ToQuarto: %v", err)
	}
	if !strings.Contains(quarto, "format: revealjs") {
		t.Errorf("missing quarto front matter:\n%s", quarto)
	}

	wiki, _, err := FromBytes(deck).ToWiki()
	if err != nil {
		t.Fatalf("ToWiki: %v", err)
	}
	if !strings.Contains(wiki, "! Formats") {
		t.Errorf("missing wiki heading:\n%s", wiki)
	}

	if _, _, err := FromBytes(deck).Render("pdf"); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestRenderToFile(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "deck.md")
	deck := buildPPTX(t, picParts())

	if _, err := FromBytes(deck).RenderToFile(out, "markdown"); err != nil {
		t.Fatalf("RenderToFile: %v", err)
	}
	content, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	if !strings.Contains(string(content), "image_001.png") {
		t.Errorf("output should reference the image:\n%s", content)
	}
	if _, err := os.Stat(filepath.Join(dir, "deck_images", "image_001.png")); err != nil {
		t.Errorf("derived image dir not written: %v", err)
	}
}

func TestConverterImmutability(t *testing.T) {
	base := FromBytes(buildPPTX(t, deckParts(slideXML(titleSp("Base")))))
	withNotes := base
	without := base.WithoutNotes()
	if withNotes.options.includeNotes != true {
		t.Error("base converter mutated by WithoutNotes")
	}
	if without.options.includeNotes {
		t.Error("WithoutNotes had no effect on the clone")
	}
}
