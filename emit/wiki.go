package emit

import (
	"fmt"
	"strings"

	"github.com/tethys-labs/slideflow/model"
)

// WikiEmitter renders a block document as TiddlyWiki wikitext.
type WikiEmitter struct {
	config Config
}

// NewWikiEmitter creates a TiddlyWiki emitter with default settings.
func NewWikiEmitter() *WikiEmitter {
	return NewWikiEmitterWithConfig(DefaultConfig())
}

// NewWikiEmitterWithConfig creates a TiddlyWiki emitter with custom
// settings.
func NewWikiEmitterWithConfig(config Config) *WikiEmitter {
	return &WikiEmitter{config: config}
}

// Render implements Emitter.
func (e *WikiEmitter) Render(doc *model.Document) ([]byte, error) {
	var b strings.Builder
	first := true
	for _, blk := range doc.Blocks {
		if e.config.skipBlock(blk) {
			continue
		}
		switch blk := blk.(type) {
		case *model.SlideMarker:
			if !first && e.config.SlideSeparators {
				b.WriteString("\n---\n\n")
			}
			if e.config.SlidePathComments && len(blk.Path) > 0 {
				fmt.Fprintf(&b, "\n<!-- slide path: %s -->\n\n", blk.Path)
			}
			first = false
		case *model.TitleBlock:
			fmt.Fprintf(&b, "\n%s %s\n\n",
				strings.Repeat("!", clampHeading(blk.Level, 6)),
				e.renderRuns(blk.Runs))
		case *model.TextBlock:
			e.renderText(&b, blk)
		case *model.ImageBlock:
			e.renderImage(&b, blk)
		case *model.TableBlock:
			e.renderTable(&b, blk)
		case *model.EmbeddedMarker:
			label := blk.ProgID
			if label == "" {
				label = "unknown object"
			}
			fmt.Fprintf(&b, "\n//[embedded object: %s]//\n\n", label)
		case *model.NotesBlock:
			e.renderNotes(&b, blk)
		case *model.ColumnBreak:
			b.WriteString("\n")
		}
	}
	return []byte(compressBlankLines(b.String())), nil
}

func (e *WikiEmitter) renderText(b *strings.Builder, t *model.TextBlock) {
	text := e.renderRuns(t.Runs)
	switch t.Bullet.Kind {
	case model.BulletChar:
		fmt.Fprintf(b, "%s %s\n", strings.Repeat("*", t.Level+1), text)
	case model.BulletAutoNum:
		fmt.Fprintf(b, "%s %s\n", strings.Repeat("#", t.Level+1), text)
	default:
		fmt.Fprintf(b, "\n%s\n\n", text)
	}
}

func (e *WikiEmitter) renderImage(b *strings.Builder, img *model.ImageBlock) {
	if img.Placeholder || img.Path == "" {
		alt := img.AltText
		if alt == "" {
			alt = "image"
		}
		fmt.Fprintf(b, "\n//[unconverted image: %s]//\n\n", alt)
		return
	}
	fmt.Fprintf(b, "\n[img[%s]]\n\n", img.Path)
}

// renderTable writes rows as |cell|cell| lines, the header row carrying the
// trailing h marker.
func (e *WikiEmitter) renderTable(b *strings.Builder, t *model.TableBlock) {
	if len(t.Rows) == 0 {
		return
	}
	cols := 0
	for _, row := range t.Rows {
		if len(row) > cols {
			cols = len(row)
		}
	}

	writeRow := func(cells []string, header bool) {
		b.WriteString("|")
		for i := 0; i < cols; i++ {
			cell := " "
			if i < len(cells) && cells[i] != "" {
				cell = cells[i]
			}
			b.WriteString(cell + "|")
		}
		if header {
			b.WriteString("h")
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	rows := t.Rows
	if e.config.TableHeader == HeaderFirstRow {
		writeRow(e.cellTexts(rows[0]), true)
		rows = rows[1:]
	} else {
		writeRow(make([]string, cols), true)
	}
	for _, row := range rows {
		writeRow(e.cellTexts(row), false)
	}
	b.WriteString("\n")
}

func (e *WikiEmitter) cellTexts(row [][]model.TextRun) []string {
	out := make([]string, len(row))
	for i, runs := range row {
		cell := e.renderRuns(runs)
		out[i] = strings.ReplaceAll(cell, "\n", " ")
	}
	return out
}

func (e *WikiEmitter) renderNotes(b *strings.Builder, n *model.NotesBlock) {
	if !e.config.IncludeNotes || len(n.Paragraphs) == 0 {
		return
	}
	b.WriteString("\n''Notes:''\n\n")
	for _, p := range n.Paragraphs {
		text := e.renderRuns(p.Runs)
		switch p.Bullet.Kind {
		case model.BulletChar:
			fmt.Fprintf(b, "%s %s\n", strings.Repeat("*", p.Level+1), text)
		case model.BulletAutoNum:
			fmt.Fprintf(b, "%s %s\n", strings.Repeat("#", p.Level+1), text)
		default:
			fmt.Fprintf(b, "\n%s\n\n", text)
		}
	}
	b.WriteString("\n")
}

func (e *WikiEmitter) renderRuns(runs []model.TextRun) string {
	var b strings.Builder
	for _, r := range runs {
		b.WriteString(e.renderRun(r))
	}
	return b.String()
}

func (e *WikiEmitter) renderRun(r model.TextRun) string {
	if r.IsMath {
		return "$" + strings.TrimSpace(r.Text) + "$"
	}
	lead, core, trail := splitPadding(r.Text)
	if core == "" {
		return r.Text
	}

	text := core
	if r.Underline {
		text = "__" + text + "__"
	}
	if r.Italic {
		text = "//" + text + "//"
	}
	if r.Bold {
		text = "''" + text + "''"
	}
	if r.Color != nil && !e.config.DisableColor {
		text = fmt.Sprintf("@@color:#%s;%s@@", r.Color.Hex(), text)
	}
	if r.Hyperlink != "" {
		text = fmt.Sprintf("[[%s|%s]]", text, r.Hyperlink)
	}
	return lead + text + trail
}
