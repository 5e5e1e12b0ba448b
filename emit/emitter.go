// Package emit renders an ordered block document into one of the supported
// flow-text formats: Markdown, TiddlyWiki, Madoko and Quarto.
package emit

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/tethys-labs/slideflow/model"
)

// Emitter renders a block document into output bytes.
type Emitter interface {
	Render(doc *model.Document) ([]byte, error)
}

// HeaderMode selects how table headers are produced.
type HeaderMode int

const (
	// HeaderFirstRow treats the first table row as the header row.
	HeaderFirstRow HeaderMode = iota
	// HeaderEmpty synthesizes a blank header row so every source row
	// renders as data.
	HeaderEmpty
)

// Config holds rendering options shared by all emitters.
type Config struct {
	// SlidePathComments emits a comment with the slide's expansion path
	// before each slide.
	SlidePathComments bool
	// SlideSeparators emits a horizontal rule between slides.
	SlideSeparators bool
	// TableHeader selects the table header mode.
	TableHeader HeaderMode
	// MaxImageWidthPx caps image display width; 0 disables the cap.
	MaxImageWidthPx int
	// IncludeNotes renders speaker notes after the slide content.
	IncludeNotes bool
	// TruncateSmallBlocks drops unformatted text blocks shorter than
	// MinBlockRunes.
	TruncateSmallBlocks bool
	// MinBlockRunes is the cutoff under TruncateSmallBlocks; 0 means the
	// default of 15.
	MinBlockRunes int
	// DisableColor drops run colors from the output.
	DisableColor bool
	// DisableEscaping emits run text verbatim instead of escaping markup
	// characters. Table cell pipes are still escaped.
	DisableEscaping bool
}

// DefaultConfig returns the standard emitter settings.
func DefaultConfig() Config {
	return Config{
		SlidePathComments: true,
		TableHeader:       HeaderFirstRow,
		IncludeNotes:      true,
		MinBlockRunes:     defaultMinBlockRunes,
	}
}

// defaultMinBlockRunes is the cutoff under TruncateSmallBlocks when the
// configuration leaves MinBlockRunes unset.
const defaultMinBlockRunes = 15

// New returns the emitter for a format name: "markdown", "wiki", "madoko"
// or "quarto".
func New(name string, config Config) (Emitter, error) {
	switch strings.ToLower(name) {
	case "markdown", "md":
		return NewMarkdownEmitterWithConfig(config), nil
	case "wiki", "tiddlywiki":
		return NewWikiEmitterWithConfig(config), nil
	case "madoko":
		return NewMadokoEmitterWithConfig(config), nil
	case "quarto":
		return NewQuartoEmitterWithConfig(config), nil
	default:
		return nil, fmt.Errorf("unknown output format %q", name)
	}
}

// skipBlock reports whether a block should be dropped under the current
// configuration.
func (c Config) skipBlock(b model.Block) bool {
	if !c.TruncateSmallBlocks {
		return false
	}
	tb, ok := b.(*model.TextBlock)
	if !ok || tb.Bullet.Kind != model.BulletNone {
		return false
	}
	for _, r := range tb.Runs {
		if r.Bold || r.Italic || r.Underline || r.IsMath ||
			r.Color != nil || r.Hyperlink != "" {
			return false
		}
	}
	min := c.MinBlockRunes
	if min <= 0 {
		min = defaultMinBlockRunes
	}
	return utf8.RuneCountInString(strings.TrimSpace(tb.PlainText())) < min
}

var blankRuns = regexp.MustCompile(`\n{3,}`)

// compressBlankLines collapses runs of blank lines down to a single blank
// line and trims the document edges to end in exactly one newline.
func compressBlankLines(s string) string {
	s = blankRuns.ReplaceAllString(s, "\n\n")
	s = strings.TrimLeft(s, "\n")
	s = strings.TrimRight(s, "\n")
	if s != "" {
		s += "\n"
	}
	return s
}

// clampHeading bounds a heading level to what the format can express.
func clampHeading(level, max int) int {
	if level < 1 {
		return 1
	}
	if level > max {
		return max
	}
	return level
}
