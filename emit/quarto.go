package emit

import (
	"fmt"
	"strings"

	"github.com/tethys-labs/slideflow/model"
)

// QuartoEmitter renders Markdown for a Quarto reveal.js presentation:
// YAML front matter, column layout fences and speaker-note fences.
type QuartoEmitter struct {
	md     *MarkdownEmitter
	config Config
}

// NewQuartoEmitter creates a Quarto emitter with default settings.
func NewQuartoEmitter() *QuartoEmitter {
	return NewQuartoEmitterWithConfig(DefaultConfig())
}

// NewQuartoEmitterWithConfig creates a Quarto emitter with custom settings.
func NewQuartoEmitterWithConfig(config Config) *QuartoEmitter {
	return &QuartoEmitter{
		md:     NewMarkdownEmitterWithConfig(config),
		config: config,
	}
}

// Render implements Emitter.
func (e *QuartoEmitter) Render(doc *model.Document) ([]byte, error) {
	var b strings.Builder
	b.WriteString("---\n")
	if doc.Title != "" {
		fmt.Fprintf(&b, "title: %q\n", doc.Title)
	}
	b.WriteString("format: revealjs\n---\n\n")

	for i, slide := range splitSlides(doc.Blocks) {
		e.renderSlide(&b, slide, i == 0)
	}
	return []byte(compressBlankLines(b.String())), nil
}

// slideChunk is one slide's marker plus the blocks that follow it.
type slideChunk struct {
	marker *model.SlideMarker
	blocks []model.Block
}

// splitSlides groups a block sequence by its slide markers. Blocks before
// the first marker form a chunk with a nil marker.
func splitSlides(blocks []model.Block) []slideChunk {
	var chunks []slideChunk
	current := slideChunk{}
	flush := func() {
		if current.marker != nil || len(current.blocks) > 0 {
			chunks = append(chunks, current)
		}
	}
	for _, blk := range blocks {
		if m, ok := blk.(*model.SlideMarker); ok {
			flush()
			current = slideChunk{marker: m}
			continue
		}
		current.blocks = append(current.blocks, blk)
	}
	flush()
	return chunks
}

func (e *QuartoEmitter) renderSlide(b *strings.Builder, slide slideChunk, first bool) {
	if slide.marker != nil {
		e.md.renderSlideMarker(b, slide.marker, first)
	}

	blocks := slide.blocks

	// The title and trailing notes stay outside the column fences.
	if len(blocks) > 0 {
		if t, ok := blocks[0].(*model.TitleBlock); ok {
			e.md.renderBlock(b, t, false)
			blocks = blocks[1:]
		}
	}
	var notes *model.NotesBlock
	if len(blocks) > 0 {
		if n, ok := blocks[len(blocks)-1].(*model.NotesBlock); ok {
			notes = n
			blocks = blocks[:len(blocks)-1]
		}
	}

	if slide.marker != nil && slide.marker.Columns >= 2 {
		e.renderColumns(b, blocks, slide.marker.Columns)
	} else {
		e.renderBody(b, blocks)
	}

	if notes != nil && e.config.IncludeNotes && len(notes.Paragraphs) > 0 {
		b.WriteString("\n::: {.notes}\n\n")
		e.md.renderNoteParagraphs(b, notes.Paragraphs)
		b.WriteString("\n:::\n\n")
	}
}

func (e *QuartoEmitter) renderColumns(b *strings.Builder, blocks []model.Block, columns int) {
	width := fmt.Sprintf("%d%%", 100/columns)
	b.WriteString("\n:::: {.columns}\n\n")
	fmt.Fprintf(b, "::: {.column width=%q}\n\n", width)
	for _, blk := range blocks {
		if _, ok := blk.(*model.ColumnBreak); ok {
			b.WriteString("\n:::\n\n")
			fmt.Fprintf(b, "::: {.column width=%q}\n\n", width)
			continue
		}
		if e.config.skipBlock(blk) {
			continue
		}
		e.md.renderBlock(b, blk, false)
	}
	b.WriteString("\n:::\n\n::::\n\n")
}

func (e *QuartoEmitter) renderBody(b *strings.Builder, blocks []model.Block) {
	for _, blk := range blocks {
		if e.config.skipBlock(blk) {
			continue
		}
		e.md.renderBlock(b, blk, false)
	}
}
