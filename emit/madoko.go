package emit

import (
	"fmt"
	"strings"

	"github.com/tethys-labs/slideflow/model"
)

// defaultFigureWidthPx is the display width from which Madoko images are
// promoted to captioned figure blocks.
const defaultFigureWidthPx = 320

// MadokoEmitter renders Markdown in Madoko's dialect: a [TOC] directive at
// the top and custom figure blocks for large images.
type MadokoEmitter struct {
	md            *MarkdownEmitter
	config        Config
	figureWidthPx int
}

// NewMadokoEmitter creates a Madoko emitter with default settings.
func NewMadokoEmitter() *MadokoEmitter {
	return NewMadokoEmitterWithConfig(DefaultConfig())
}

// NewMadokoEmitterWithConfig creates a Madoko emitter with custom settings.
func NewMadokoEmitterWithConfig(config Config) *MadokoEmitter {
	return &MadokoEmitter{
		md:            NewMarkdownEmitterWithConfig(config),
		config:        config,
		figureWidthPx: defaultFigureWidthPx,
	}
}

// Render implements Emitter.
func (e *MadokoEmitter) Render(doc *model.Document) ([]byte, error) {
	var b strings.Builder
	if doc.Title != "" {
		fmt.Fprintf(&b, "Title: %s\n\n", doc.Title)
	}
	b.WriteString("[TOC]\n\n")

	first := true
	for _, blk := range doc.Blocks {
		if e.config.skipBlock(blk) {
			continue
		}
		if img, ok := blk.(*model.ImageBlock); ok && e.isFigure(img) {
			e.renderFigure(&b, img)
			continue
		}
		e.md.renderBlock(&b, blk, first)
		if _, ok := blk.(*model.SlideMarker); ok {
			first = false
		}
	}
	return []byte(compressBlankLines(b.String())), nil
}

func (e *MadokoEmitter) isFigure(img *model.ImageBlock) bool {
	return !img.Placeholder && img.Path != "" && img.WidthPx >= e.figureWidthPx
}

func (e *MadokoEmitter) renderFigure(b *strings.Builder, img *model.ImageBlock) {
	caption := img.AltText
	if caption == "" {
		caption = "Figure"
	}
	fmt.Fprintf(b, "\n~ Figure { caption: \"%s\" }\n![%s](%s)\n~\n\n",
		strings.ReplaceAll(caption, `"`, `\"`),
		e.md.escape(caption), escapeURLPath(img.Path))
}
