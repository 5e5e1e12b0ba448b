package slideflow

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tethys-labs/slideflow/embedded"
	"github.com/tethys-labs/slideflow/emit"
	"github.com/tethys-labs/slideflow/format"
	"github.com/tethys-labs/slideflow/host"
	"github.com/tethys-labs/slideflow/layout"
	"github.com/tethys-labs/slideflow/legacy"
	"github.com/tethys-labs/slideflow/model"
	"github.com/tethys-labs/slideflow/ocr"
	"github.com/tethys-labs/slideflow/pptx"
	"github.com/tethys-labs/slideflow/raster"
)

// Converter provides a fluent interface for converting presentations into
// structured flow text. Each configuration method returns a new Converter
// instance, making chains safe to share and reuse.
type Converter struct {
	// Source: exactly one of filename and source is set.
	filename string
	source   []byte

	options convertOptions

	// Accumulated error (fail-fast)
	err error
}

// clone creates a copy of the Converter with a deep copy of its options.
func (c *Converter) clone() *Converter {
	return &Converter{
		filename: c.filename,
		source:   c.source,
		options:  c.options.clone(),
		err:      c.err,
	}
}

// ============================================================================
// Configuration Methods (return new Converter instance)
// ============================================================================

// Slides restricts conversion to the given slides (1-indexed). Multiple
// calls are cumulative. Embedded presentations are always expanded in
// full.
//
// Example:
//
//	md, _, err := slideflow.Open("deck.pptx").Slides(1, 3).ToMarkdown()
func (c *Converter) Slides(slides ...int) *Converter {
	nc := c.clone()
	nc.options.slides = append(nc.options.slides, slides...)
	return nc
}

// WithoutNotes drops speaker notes from the output.
func (c *Converter) WithoutNotes() *Converter {
	nc := c.clone()
	nc.options.includeNotes = false
	return nc
}

// WithSlideSeparators emits a horizontal rule between slides.
func (c *Converter) WithSlideSeparators() *Converter {
	nc := c.clone()
	nc.options.slideSeparators = true
	return nc
}

// WithoutPathComments drops the per-slide path comments
// (<!-- slide path: S2/E1 -->) from the output.
func (c *Converter) WithoutPathComments() *Converter {
	nc := c.clone()
	nc.options.pathComments = false
	return nc
}

// TruncateSmallBlocks drops unformatted text blocks shorter than 15 runes,
// which removes most stray labels and page furniture.
func (c *Converter) TruncateSmallBlocks() *Converter {
	nc := c.clone()
	nc.options.truncateSmallBlocks = true
	return nc
}

// MinBlockSize drops unformatted text blocks shorter than the given rune
// count, like TruncateSmallBlocks with a custom cutoff.
func (c *Converter) MinBlockSize(runes int) *Converter {
	nc := c.clone()
	nc.options.truncateSmallBlocks = true
	nc.options.minBlockRunes = runes
	return nc
}

// DisableColor drops run colors from the output.
func (c *Converter) DisableColor() *Converter {
	nc := c.clone()
	nc.options.disableColor = true
	return nc
}

// DisableEscaping emits run text verbatim instead of escaping markup
// characters. Table cell pipes are still escaped to keep rows intact.
func (c *Converter) DisableEscaping() *Converter {
	nc := c.clone()
	nc.options.disableEscaping = true
	return nc
}

// KeepSimilarTitles emits a near-duplicate consecutive title with a
// "(cont.)" suffix instead of suppressing it.
func (c *Converter) KeepSimilarTitles() *Converter {
	nc := c.clone()
	nc.options.keepSimilarTitles = true
	return nc
}

// DisableColumns turns multi-column detection off; shapes read strictly
// top to bottom.
func (c *Converter) DisableColumns() *Converter {
	nc := c.clone()
	nc.options.disableColumns = true
	return nc
}

// DisableNumericFallback keeps the whitespace-gap column cut but skips the
// slower numeric split that handles touching columns.
func (c *Converter) DisableNumericFallback() *Converter {
	nc := c.clone()
	nc.options.numericFallback = false
	return nc
}

// EmptyTableHeaders renders tables with a synthesized blank header row
// instead of promoting the first data row.
func (c *Converter) EmptyTableHeaders() *Converter {
	nc := c.clone()
	nc.options.tableHeader = emit.HeaderEmpty
	return nc
}

// DisableImages skips pictures entirely.
func (c *Converter) DisableImages() *Converter {
	nc := c.clone()
	nc.options.disableImages = true
	return nc
}

// MaxImageWidth caps the display width of emitted images, in pixels.
func (c *Converter) MaxImageWidth(px int) *Converter {
	nc := c.clone()
	nc.options.maxImageWidthPx = px
	return nc
}

// ImageDir sets the directory image files are written to; the output
// references them through the same (relative) path. Without it, terminal
// operations other than RenderToFile keep pictures as placeholders.
func (c *Converter) ImageDir(dir string) *Converter {
	nc := c.clone()
	nc.options.imageDir = dir
	nc.options.imageRef = filepath.ToSlash(dir)
	nc.options.writeImages = true
	return nc
}

// DisableWMF keeps WMF/EMF metafile pictures as placeholders instead of
// running them through the conversion cascade.
func (c *Converter) DisableWMF() *Converter {
	nc := c.clone()
	nc.options.disableWMF = true
	return nc
}

// WithOCR recovers alt text for pictures that carry none by running them
// through OCR. Requires a build with the "ocr" tag; otherwise conversion
// proceeds with an ocr-unavailable warning.
func (c *Converter) WithOCR() *Converter {
	nc := c.clone()
	nc.options.useOCR = true
	return nc
}

// PreferJPEG encodes opaque converted images as JPEG instead of PNG.
func (c *Converter) PreferJPEG() *Converter {
	nc := c.clone()
	nc.options.preferJPEG = true
	return nc
}

// DPI sets the rasterization density for vector metafiles (default 600).
func (c *Converter) DPI(dpi int) *Converter {
	nc := c.clone()
	nc.options.dpi = dpi
	return nc
}

// WithHost plugs in a host automation capability, enabling legacy .ppt
// input and the slide-export image fallback.
func (c *Converter) WithHost(h host.Capability) *Converter {
	nc := c.clone()
	nc.options.host = h
	return nc
}

// TitleLevels overrides the heading level of specific titles, keyed by
// their exact text.
func (c *Converter) TitleLevels(levels map[string]int) *Converter {
	nc := c.clone()
	if nc.options.titleLevels == nil {
		nc.options.titleLevels = make(map[string]int, len(levels))
	}
	for k, v := range levels {
		nc.options.titleLevels[k] = v
	}
	return nc
}

// MaxEmbedDepth bounds how deep embedded presentations are expanded
// (default 5).
func (c *Converter) MaxEmbedDepth(depth int) *Converter {
	nc := c.clone()
	nc.options.maxEmbedDepth = depth
	return nc
}

// ============================================================================
// Terminal Operations
// ============================================================================

// Document parses and orders the presentation and returns the block
// document the emitters consume, for callers that post-process structure
// themselves.
func (c *Converter) Document() (*model.Document, []Warning, error) {
	doc, j, err := c.buildDocument()
	if err != nil {
		return nil, nil, err
	}
	return doc, j.warnings, nil
}

// ToMarkdown converts the presentation to Markdown.
//
// Example:
//
//	md, warnings, err := slideflow.Open("deck.pptx").ToMarkdown()
//	if len(warnings) > 0 {
//	    log.Println(slideflow.FormatWarnings(warnings))
//	}
func (c *Converter) ToMarkdown() (string, []Warning, error) {
	return c.Render("markdown")
}

// ToWiki converts the presentation to TiddlyWiki wikitext.
func (c *Converter) ToWiki() (string, []Warning, error) {
	return c.Render("wiki")
}

// ToMadoko converts the presentation to Madoko Markdown.
func (c *Converter) ToMadoko() (string, []Warning, error) {
	return c.Render("madoko")
}

// ToQuarto converts the presentation to a Quarto reveal.js document.
func (c *Converter) ToQuarto() (string, []Warning, error) {
	return c.Render("quarto")
}

// Render converts the presentation to the named output format: "markdown",
// "wiki", "madoko" or "quarto".
func (c *Converter) Render(formatName string) (string, []Warning, error) {
	doc, j, err := c.buildDocument()
	if err != nil {
		return "", nil, err
	}

	em, err := emit.New(formatName, c.options.emitConfig())
	if err != nil {
		return "", j.warnings, err
	}
	out, err := em.Render(doc)
	if err != nil {
		return "", j.warnings, err
	}

	if c.options.writeImages && !c.options.disableImages {
		if werr := j.writeImages(c.options.imageDir); werr != nil {
			return string(out), j.warnings, werr
		}
	}
	return string(out), j.warnings, nil
}

// RenderToFile converts the presentation and writes the result to outPath.
// Images are written to a sibling "<name>_images" directory unless an
// explicit ImageDir was configured.
func (c *Converter) RenderToFile(outPath, formatName string) ([]Warning, error) {
	nc := c.clone()
	if !nc.options.writeImages && !nc.options.disableImages {
		base := strings.TrimSuffix(filepath.Base(outPath), filepath.Ext(outPath))
		nc.options.imageDir = filepath.Join(filepath.Dir(outPath), base+"_images")
		nc.options.imageRef = base + "_images"
		nc.options.writeImages = true
	}

	out, warnings, err := nc.Render(formatName)
	if err != nil {
		return warnings, err
	}
	if err := os.WriteFile(outPath, []byte(out), 0o644); err != nil {
		return warnings, fmt.Errorf("writing %s: %w", outPath, err)
	}
	return warnings, nil
}

// ============================================================================
// Pipeline
// ============================================================================

// imageFile is one converted picture pending write-out.
type imageFile struct {
	name string
	data []byte
}

// job carries the mutable state of one conversion run, keeping the
// Converter itself immutable.
type job struct {
	opts       convertOptions
	sourcePath string

	classifier *layout.ShapeClassifier
	order      *layout.ReadingOrderBuilder
	cascade    *raster.Cascade
	expander   *embedded.Expander
	ocr        *ocr.Client

	warnings []Warning
	images   []imageFile
	imageSeq int
}

func (c *Converter) buildDocument() (*model.Document, *job, error) {
	if c.err != nil {
		return nil, nil, c.err
	}

	data, err := c.sourceBytes()
	if err != nil {
		return nil, nil, err
	}

	colCfg := layout.DefaultColumnConfig()
	colCfg.NumericFallback = c.options.numericFallback
	if c.options.disableColumns {
		colCfg.MaxDepth = 0
		colCfg.NumericFallback = false
	}

	j := &job{
		opts:       c.options,
		sourcePath: c.filename,
		classifier: layout.NewShapeClassifier(),
		order: layout.NewReadingOrderBuilderWithConfig(
			layout.DefaultOrderConfig(), layout.NewColumnDetectorWithConfig(colCfg)),
		cascade: raster.NewCascade(raster.Config{
			DPI:                c.options.dpi,
			JPEGQuality:        raster.DefaultConfig().JPEGQuality,
			PreferJPEG:         c.options.preferJPEG,
			MaxWidthPx:         c.options.maxImageWidthPx,
			SlideExportWidthPx: raster.DefaultConfig().SlideExportWidthPx,
		}, c.options.host),
	}
	j.expander = embedded.NewExpanderWithConfig(
		embedded.Config{MaxDepth: c.options.maxEmbedDepth},
		j.convertInner,
	)

	if c.options.useOCR && !c.options.disableImages {
		client, err := ocr.New()
		if err != nil {
			j.warnings = append(j.warnings, model.Warning{
				Code:    model.WarnOCRUnavailable,
				Message: err.Error(),
			})
		} else {
			j.ocr = client
			defer client.Close()
		}
	}

	blocks, title, err := j.deckBlocks(data, model.PathID{}, true)
	if err != nil {
		return nil, nil, err
	}
	return &model.Document{Blocks: blocks, Title: title}, j, nil
}

// sourceBytes loads the presentation package, routing legacy binary files
// through host automation first.
func (c *Converter) sourceBytes() ([]byte, error) {
	if c.source != nil {
		return c.source, nil
	}
	if c.filename == "" {
		return nil, fmt.Errorf("no input configured")
	}

	data, err := os.ReadFile(c.filename)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", c.filename, err)
	}
	if format.DetectFromMagic(data) != format.PPT {
		return data, nil
	}

	converted, err := legacy.NewConverter(c.options.host).ConvertFile(c.filename)
	if err != nil {
		return nil, err
	}
	data, err = os.ReadFile(converted)
	if err != nil {
		return nil, fmt.Errorf("reading converted %s: %w", converted, err)
	}
	return data, nil
}

// convertInner is the expansion callback: an embedded presentation runs
// through the same pipeline with its path as the prefix.
func (j *job) convertInner(payload []byte, path model.PathID) ([]model.Block, []model.Warning, error) {
	blocks, _, err := j.deckBlocks(payload, path, false)
	return blocks, nil, err
}

// deckBlocks converts one presentation package into blocks. Slide
// selection and the host image fallback apply to the top-level deck only.
func (j *job) deckBlocks(data []byte, base model.PathID, top bool) ([]model.Block, string, error) {
	reader, err := pptx.NewReaderFromBytes(data)
	if err != nil {
		return nil, "", err
	}
	deck, err := reader.Parse()
	if err != nil {
		return nil, "", err
	}
	j.addWarnings(reader.Warnings(), base)

	var blocks []model.Block
	var prevTitle string
	for _, slide := range deck.Slides {
		if top && !j.slideSelected(slide.Index) {
			continue
		}
		path := base.Slide(slide.Index + 1)
		blocks = append(blocks, j.slideBlocks(slide, path, top, &prevTitle)...)
	}
	return blocks, deck.Title, nil
}

func (j *job) slideSelected(index int) bool {
	if len(j.opts.slides) == 0 {
		return true
	}
	for _, n := range j.opts.slides {
		if n == index+1 {
			return true
		}
	}
	return false
}

func (j *job) slideBlocks(slide *model.Slide, path model.PathID, top bool, prevTitle *string) []model.Block {
	j.classifier.Classify(slide)
	ordered := j.order.Build(slide)

	columns := ordered.ColumnCount()
	blocks := []model.Block{&model.SlideMarker{Path: path, Columns: columns}}

	if ordered.Title != nil {
		if tb := j.titleBlock(ordered.Title, path, prevTitle); tb != nil {
			blocks = append(blocks, tb)
		}
	}

	embedSeq := 0
	lastColumn := -1
	for _, region := range ordered.Regions {
		if columns >= 2 && region.Column > lastColumn && lastColumn >= 0 {
			blocks = append(blocks, &model.ColumnBreak{})
		}
		if region.Column >= 0 {
			lastColumn = region.Column
		}
		for _, s := range region.Shapes {
			blocks = append(blocks, j.shapeBlocks(s, slide, path, top, &embedSeq)...)
		}
	}

	if len(slide.Notes) > 0 && j.opts.includeNotes {
		blocks = append(blocks, &model.NotesBlock{Paragraphs: slide.Notes})
	}
	return blocks
}

func (j *job) titleBlock(title *model.Shape, path model.PathID, prevTitle *string) model.Block {
	runs := joinParagraphRuns(title.Paragraphs)
	plain := strings.TrimSpace(title.PlainText())

	level := 1 + path.Depth()
	if custom, ok := j.opts.titleLevels[plain]; ok {
		level = custom
	}

	// A slide whose title fuzzily matches its predecessor continues the
	// same topic: the repeated title is suppressed, or kept with a
	// "(cont.)" suffix under KeepSimilarTitles.
	if *prevTitle != "" && titleSimilarity(*prevTitle, plain) >= titleContinuationScore {
		if !j.opts.keepSimilarTitles {
			return nil
		}
		runs = append(runs, model.TextRun{Text: " (cont.)"})
		return &model.TitleBlock{Runs: runs, Level: level}
	}
	*prevTitle = plain
	return &model.TitleBlock{Runs: runs, Level: level}
}

func (j *job) shapeBlocks(s *model.Shape, slide *model.Slide, path model.PathID, top bool, embedSeq *int) []model.Block {
	switch s.Kind {
	case model.KindPicture:
		return j.imageBlocks(s.Image, s.BBox, slide, path, top)
	case model.KindTable:
		if b := tableBlock(s.Table); b != nil {
			return []model.Block{b}
		}
		return nil
	case model.KindEmbedded:
		*embedSeq++
		return j.embeddedBlocks(s, slide, path.Embed(*embedSeq), top)
	default:
		return paragraphBlocks(s.Paragraphs)
	}
}

func (j *job) embeddedBlocks(s *model.Shape, slide *model.Slide, path model.PathID, top bool) []model.Block {
	emb := s.Embedded
	if emb == nil {
		return nil
	}

	blocks, warnings, expanded := j.expander.Expand(emb, path)
	j.addWarnings(warnings, path)
	if expanded {
		return blocks
	}

	if emb.Preview != nil && !j.opts.disableImages {
		preview := *emb.Preview
		if preview.AltText == "" {
			preview.AltText = emb.ProgID
		}
		if imgs := j.imageBlocks(&preview, s.BBox, slide, path, top); len(imgs) > 0 {
			return imgs
		}
	}

	reason := "not expanded"
	for _, w := range warnings {
		switch w.Code {
		case model.WarnRecursionCycle:
			reason = "recursion limit reached"
		case model.WarnUnsupportedInput:
			reason = "not a presentation"
		}
	}
	return []model.Block{&model.EmbeddedMarker{Path: path, ProgID: emb.ProgID, Reason: reason}}
}

func (j *job) imageBlocks(img *model.Image, box model.BBox, slide *model.Slide, path model.PathID, top bool) []model.Block {
	if img == nil || j.opts.disableImages || len(img.Data) == 0 {
		return nil
	}

	data := img.Data
	ext := strings.ToLower(img.Ext)
	alt := img.AltText
	if j.opts.disableWMF && (ext == "wmf" || ext == "emf") {
		return []model.Block{&model.ImageBlock{AltText: alt, Placeholder: true}}
	}
	if raster.NeedsConversion(ext) {
		req := raster.Request{
			Data:        data,
			SrcExt:      ext,
			ShapeBox:    box,
			SlideWidth:  slide.Width,
			SlideHeight: slide.Height,
			SlideIndex:  slide.Index,
		}
		if top {
			req.SourcePath = j.sourcePath
		}
		res, warnings, err := j.cascade.Convert(req)
		j.addWarnings(warnings, path)
		if err != nil {
			return []model.Block{&model.ImageBlock{AltText: alt, Placeholder: true}}
		}
		data, ext = res.Data, res.Ext
	}

	if alt == "" && j.ocr != nil {
		if text, err := j.ocr.AltText(data); err == nil && text != "" {
			alt = text
		}
	}

	if !j.opts.writeImages {
		// Nowhere to put the file; keep the alt text in the flow.
		return []model.Block{&model.ImageBlock{AltText: alt, Placeholder: true}}
	}

	j.imageSeq++
	name := fmt.Sprintf("image_%03d.%s", j.imageSeq, ext)
	j.images = append(j.images, imageFile{name: name, data: data})

	widthPx := int(box.Width * 96.0 / 72.0)
	ref := name
	if prefix := j.opts.imageRef; prefix != "" {
		ref = prefix + "/" + name
	}
	return []model.Block{&model.ImageBlock{Path: ref, AltText: alt, WidthPx: widthPx}}
}

func (j *job) writeImages(dir string) error {
	if len(j.images) == 0 {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating image directory: %w", err)
	}
	for _, img := range j.images {
		if err := os.WriteFile(filepath.Join(dir, img.name), img.data, 0o644); err != nil {
			return fmt.Errorf("writing image %s: %w", img.name, err)
		}
	}
	return nil
}

func (j *job) addWarnings(warnings []model.Warning, path model.PathID) {
	for _, w := range warnings {
		if len(w.Path) == 0 {
			w.Path = path
		}
		j.warnings = append(j.warnings, w)
	}
}

// ============================================================================
// Block assembly helpers
// ============================================================================

// manualBulletPrefixes are leading markers authors type by hand instead of
// using real list formatting.
var manualBulletPrefixes = []string{"- ", "* ", "• "}

// paragraphBlocks converts a text body into TextBlocks, resolving ordered
// list numbering and normalizing hand-typed bullet prefixes.
func paragraphBlocks(paragraphs []model.Paragraph) []model.Block {
	var blocks []model.Block
	counters := map[int]*listCounter{}
	for _, p := range paragraphs {
		p = normalizeManualBullet(p)
		if strings.TrimSpace(p.PlainText()) == "" {
			continue
		}

		tb := &model.TextBlock{Runs: p.Runs, Level: p.Level, Bullet: p.Bullet}
		switch p.Bullet.Kind {
		case model.BulletAutoNum:
			tb.SeqNumber = resolveSeq(counters, p)
		case model.BulletNone:
			// A plain paragraph ends any open numbered lists.
			counters = map[int]*listCounter{}
		}
		blocks = append(blocks, tb)
	}
	return blocks
}

// listCounter tracks one ordered list level.
type listCounter struct {
	last int
	seed int
}

// resolveSeq assigns the ordinal of an auto-numbered paragraph. An explicit
// StartAt seeds the sequence, a repeated equal StartAt advances it, and a
// jump past the current position is respected.
func resolveSeq(counters map[int]*listCounter, p model.Paragraph) int {
	start := p.Bullet.StartAt
	if start == 0 {
		start = 1
	}
	c := counters[p.Level]
	if c == nil {
		counters[p.Level] = &listCounter{last: start, seed: start}
		return start
	}
	if start > c.last+1 {
		c.last = start
		c.seed = start
		return c.last
	}
	c.last++
	return c.last
}

// normalizeManualBullet promotes a hand-typed "- ", "* " or bullet-dot
// prefix into real list semantics.
func normalizeManualBullet(p model.Paragraph) model.Paragraph {
	if p.Bullet.Kind != model.BulletNone || len(p.Runs) == 0 {
		return p
	}
	first := p.Runs[0].Text
	for _, prefix := range manualBulletPrefixes {
		if strings.HasPrefix(first, prefix) {
			runs := make([]model.TextRun, len(p.Runs))
			copy(runs, p.Runs)
			runs[0].Text = strings.TrimPrefix(first, prefix)
			p.Runs = runs
			p.Bullet = model.BulletInfo{Kind: model.BulletChar, Char: strings.TrimSpace(prefix)}
			return p
		}
	}
	return p
}

// tableBlock flattens a table shape's cell grid to formatted runs. Merged
// continuation cells render empty.
func tableBlock(t *model.Table) *model.TableBlock {
	if t == nil || len(t.Rows) == 0 {
		return nil
	}
	out := &model.TableBlock{Rows: make([][][]model.TextRun, len(t.Rows))}
	for i, row := range t.Rows {
		cells := make([][]model.TextRun, len(row))
		for k, cell := range row {
			if cell.Merged {
				cells[k] = nil
				continue
			}
			cells[k] = joinParagraphRuns(cell.Paragraphs)
		}
		out.Rows[i] = cells
	}
	return out
}

// joinParagraphRuns concatenates the runs of several paragraphs with a
// single space between paragraphs.
func joinParagraphRuns(paragraphs []model.Paragraph) []model.TextRun {
	var runs []model.TextRun
	for _, p := range paragraphs {
		if strings.TrimSpace(p.PlainText()) == "" {
			continue
		}
		if len(runs) > 0 {
			runs = append(runs, model.TextRun{Text: " "})
		}
		runs = append(runs, p.Runs...)
	}
	return runs
}
