package model

// BlockKind identifies the concrete type of a content block.
type BlockKind int

const (
	BlockTitle BlockKind = iota
	BlockText
	BlockImage
	BlockTable
	BlockSlideMarker
	BlockEmbeddedMarker
	BlockNotes
	BlockColumnBreak
)

// Block is one unit of the linear document handed to the emitters.
type Block interface {
	Kind() BlockKind
}

// TitleBlock is a slide title or a heading from an expanded embedded deck.
type TitleBlock struct {
	Runs  []TextRun
	Level int // 1-based heading level
}

func (*TitleBlock) Kind() BlockKind { return BlockTitle }

// PlainText returns the concatenated run text.
func (b *TitleBlock) PlainText() string {
	var out string
	for _, r := range b.Runs {
		out += r.Text
	}
	return out
}

// TextBlock is one paragraph of body text with its list semantics.
type TextBlock struct {
	Runs      []TextRun
	Level     int // indent level, 0 = top
	Bullet    BulletInfo
	SeqNumber int // resolved ordinal for BulletAutoNum paragraphs
}

func (*TextBlock) Kind() BlockKind { return BlockText }

// PlainText returns the concatenated run text.
func (b *TextBlock) PlainText() string {
	var out string
	for _, r := range b.Runs {
		out += r.Text
	}
	return out
}

// ImageBlock is a rendered picture. Path is the output-relative file path
// the emitter should reference; WidthPx caps the display width when > 0.
// Placeholder marks images whose payload could not be converted.
type ImageBlock struct {
	Path        string
	AltText     string
	WidthPx     int
	Placeholder bool
}

func (*ImageBlock) Kind() BlockKind { return BlockImage }

// TableBlock is a table with cells flattened to formatted runs.
type TableBlock struct {
	Rows [][][]TextRun // rows -> cells -> runs
}

func (*TableBlock) Kind() BlockKind { return BlockTable }

// SlideMarker separates slides and carries the expansion path of the slide
// that follows. Columns is the number of detected columns on the slide,
// 0 or 1 when the slide has no column layout.
type SlideMarker struct {
	Path    PathID
	Columns int
}

func (*SlideMarker) Kind() BlockKind { return BlockSlideMarker }

// ColumnBreak marks the transition between columns of a multi-column slide.
// Emitters without a column notion render it as a paragraph break.
type ColumnBreak struct{}

func (*ColumnBreak) Kind() BlockKind { return BlockColumnBreak }

// EmbeddedMarker stands in for an embedded object that was not expanded.
type EmbeddedMarker struct {
	Path   PathID
	ProgID string
	Reason string
}

func (*EmbeddedMarker) Kind() BlockKind { return BlockEmbeddedMarker }

// NotesBlock carries the speaker notes of the preceding slide.
type NotesBlock struct {
	Paragraphs []Paragraph
}

func (*NotesBlock) Kind() BlockKind { return BlockNotes }

// Document is the fully ordered block sequence ready for emission.
type Document struct {
	Blocks []Block
	Title  string
}
