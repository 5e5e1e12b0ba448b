package emit

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/tethys-labs/slideflow/model"
)

// MarkdownEmitter renders a block document as GitHub-flavored Markdown.
type MarkdownEmitter struct {
	config Config
}

// NewMarkdownEmitter creates a Markdown emitter with default settings.
func NewMarkdownEmitter() *MarkdownEmitter {
	return NewMarkdownEmitterWithConfig(DefaultConfig())
}

// NewMarkdownEmitterWithConfig creates a Markdown emitter with custom
// settings.
func NewMarkdownEmitterWithConfig(config Config) *MarkdownEmitter {
	return &MarkdownEmitter{config: config}
}

// Render implements Emitter.
func (e *MarkdownEmitter) Render(doc *model.Document) ([]byte, error) {
	var b strings.Builder
	first := true
	for _, blk := range doc.Blocks {
		if e.config.skipBlock(blk) {
			continue
		}
		e.renderBlock(&b, blk, first)
		if _, ok := blk.(*model.SlideMarker); ok {
			first = false
		}
	}
	return []byte(compressBlankLines(b.String())), nil
}

func (e *MarkdownEmitter) renderBlock(b *strings.Builder, blk model.Block, firstSlide bool) {
	switch blk := blk.(type) {
	case *model.SlideMarker:
		e.renderSlideMarker(b, blk, firstSlide)
	case *model.TitleBlock:
		fmt.Fprintf(b, "\n%s %s\n\n",
			strings.Repeat("#", clampHeading(blk.Level, 6)),
			e.renderRuns(blk.Runs))
	case *model.TextBlock:
		e.renderText(b, blk)
	case *model.ImageBlock:
		e.renderImage(b, blk)
	case *model.TableBlock:
		e.renderTable(b, blk)
	case *model.EmbeddedMarker:
		e.renderEmbeddedMarker(b, blk)
	case *model.NotesBlock:
		e.renderNotes(b, blk)
	case *model.ColumnBreak:
		b.WriteString("\n")
	}
}

func (e *MarkdownEmitter) renderSlideMarker(b *strings.Builder, m *model.SlideMarker, first bool) {
	if !first && e.config.SlideSeparators {
		b.WriteString("\n---\n\n")
	}
	if e.config.SlidePathComments && len(m.Path) > 0 {
		fmt.Fprintf(b, "\n<!-- slide path: %s -->\n\n", m.Path)
	}
}

func (e *MarkdownEmitter) renderText(b *strings.Builder, t *model.TextBlock) {
	indent := strings.Repeat("  ", t.Level)
	text := e.renderRuns(t.Runs)
	switch t.Bullet.Kind {
	case model.BulletChar:
		fmt.Fprintf(b, "%s* %s\n", indent, text)
	case model.BulletAutoNum:
		fmt.Fprintf(b, "%s%d. %s\n", indent, t.SeqNumber, text)
	default:
		fmt.Fprintf(b, "\n%s%s\n\n", indent, text)
	}
}

func (e *MarkdownEmitter) renderImage(b *strings.Builder, img *model.ImageBlock) {
	alt := img.AltText
	if alt == "" {
		alt = "image"
	}
	if img.Placeholder || img.Path == "" {
		fmt.Fprintf(b, "\n_[unconverted image: %s]_\n\n", e.escape(alt))
		return
	}
	src := escapeURLPath(img.Path)
	if width := e.imageWidth(img); width > 0 {
		fmt.Fprintf(b, "\n<img src=%q alt=%q style=\"max-width:%dpx;\">\n\n",
			src, alt, width)
		return
	}
	fmt.Fprintf(b, "\n![%s](%s)\n\n", e.escape(alt), src)
}

// escape applies Markdown escaping unless the configuration disabled it.
func (e *MarkdownEmitter) escape(s string) string {
	if e.config.DisableEscaping {
		return s
	}
	return escapeMarkdown(s)
}

// imageWidth returns the capped display width, 0 when no cap applies.
func (e *MarkdownEmitter) imageWidth(img *model.ImageBlock) int {
	limit := e.config.MaxImageWidthPx
	if limit <= 0 {
		return 0
	}
	if img.WidthPx > 0 && img.WidthPx < limit {
		return img.WidthPx
	}
	return limit
}

func (e *MarkdownEmitter) renderTable(b *strings.Builder, t *model.TableBlock) {
	if len(t.Rows) == 0 {
		return
	}
	cols := 0
	for _, row := range t.Rows {
		if len(row) > cols {
			cols = len(row)
		}
	}
	if cols == 0 {
		return
	}

	writeRow := func(cells []string) {
		b.WriteString("|")
		for i := 0; i < cols; i++ {
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			b.WriteString(" " + cell + " |")
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	rows := t.Rows
	if e.config.TableHeader == HeaderFirstRow {
		writeRow(e.cellTexts(rows[0]))
		rows = rows[1:]
	} else {
		writeRow(make([]string, cols))
	}
	sep := make([]string, cols)
	for i := range sep {
		sep[i] = ":-:"
	}
	writeRow(sep)
	for _, row := range rows {
		writeRow(e.cellTexts(row))
	}
	b.WriteString("\n")
}

func (e *MarkdownEmitter) cellTexts(row [][]model.TextRun) []string {
	out := make([]string, len(row))
	for i, runs := range row {
		out[i] = escapeTableCell(e.renderRuns(runs))
	}
	return out
}

func (e *MarkdownEmitter) renderEmbeddedMarker(b *strings.Builder, m *model.EmbeddedMarker) {
	label := m.ProgID
	if label == "" {
		label = "unknown object"
	}
	if m.Reason != "" {
		fmt.Fprintf(b, "\n_[embedded object: %s (%s)]_\n\n",
			e.escape(label), e.escape(m.Reason))
		return
	}
	fmt.Fprintf(b, "\n_[embedded object: %s]_\n\n", e.escape(label))
}

func (e *MarkdownEmitter) renderNotes(b *strings.Builder, n *model.NotesBlock) {
	if !e.config.IncludeNotes || len(n.Paragraphs) == 0 {
		return
	}
	b.WriteString("\n__Notes:__\n\n")
	e.renderNoteParagraphs(b, n.Paragraphs)
	b.WriteString("\n")
}

func (e *MarkdownEmitter) renderNoteParagraphs(b *strings.Builder, paragraphs []model.Paragraph) {
	seq := 0
	for _, p := range paragraphs {
		text := e.renderRuns(p.Runs)
		indent := strings.Repeat("  ", p.Level)
		switch p.Bullet.Kind {
		case model.BulletChar:
			fmt.Fprintf(b, "%s* %s\n", indent, text)
		case model.BulletAutoNum:
			if seq == 0 {
				seq = p.Bullet.StartAt
				if seq == 0 {
					seq = 1
				}
			} else {
				seq++
			}
			fmt.Fprintf(b, "%s%d. %s\n", indent, seq, text)
		default:
			fmt.Fprintf(b, "\n%s%s\n\n", indent, text)
		}
	}
}

func (e *MarkdownEmitter) renderRuns(runs []model.TextRun) string {
	var b strings.Builder
	for _, r := range runs {
		b.WriteString(e.renderRun(r))
	}
	return b.String()
}

func (e *MarkdownEmitter) renderRun(r model.TextRun) string {
	if r.IsMath {
		return "$" + strings.TrimSpace(r.Text) + "$"
	}
	lead, core, trail := splitPadding(r.Text)
	if core == "" {
		return r.Text
	}

	text := e.escape(core)
	if r.Underline {
		text = "<u>" + text + "</u>"
	}
	if r.Italic {
		text = "_" + text + "_"
	}
	if r.Bold {
		text = "__" + text + "__"
	}
	if r.Color != nil && !e.config.DisableColor {
		text = fmt.Sprintf("<span style=\"color:#%s\">%s</span>", r.Color.Hex(), text)
	}
	if r.Hyperlink != "" {
		text = "[" + text + "](" + escapeURLTarget(r.Hyperlink) + ")"
	}
	return lead + text + trail
}

// escapeURLPath percent-encodes a relative file path for use in a link
// target.
func escapeURLPath(p string) string {
	u := url.URL{Path: p}
	return u.EscapedPath()
}

// escapeURLTarget keeps an absolute URL intact apart from characters that
// would end a Markdown link target.
func escapeURLTarget(s string) string {
	s = strings.ReplaceAll(s, "(", "%28")
	s = strings.ReplaceAll(s, ")", "%29")
	return strings.ReplaceAll(s, " ", "%20")
}
