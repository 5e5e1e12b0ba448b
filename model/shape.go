package model

import "strings"

// ShapeKind classifies what a shape contributes to the output document.
type ShapeKind int

const (
	KindUnknown ShapeKind = iota
	KindTitle
	KindSubtitle
	KindBody
	KindPicture
	KindTable
	KindGroup
	KindEmbedded
	KindDecoration
)

// String returns a human-readable name for the shape kind.
func (k ShapeKind) String() string {
	switch k {
	case KindTitle:
		return "title"
	case KindSubtitle:
		return "subtitle"
	case KindBody:
		return "body"
	case KindPicture:
		return "picture"
	case KindTable:
		return "table"
	case KindGroup:
		return "group"
	case KindEmbedded:
		return "embedded"
	case KindDecoration:
		return "decoration"
	default:
		return "unknown"
	}
}

// Color represents an RGB color.
type Color struct {
	R, G, B uint8
}

// Hex returns the color as a lowercase hex string without the leading #.
func (c Color) Hex() string {
	const digits = "0123456789abcdef"
	b := make([]byte, 6)
	for i, v := range []uint8{c.R, c.G, c.B} {
		b[i*2] = digits[v>>4]
		b[i*2+1] = digits[v&0xf]
	}
	return string(b)
}

// TextRun is a span of text with uniform formatting.
type TextRun struct {
	Text      string
	Bold      bool
	Italic    bool
	Underline bool
	Color     *Color
	Size      float64 // font size in points, 0 when unspecified
	Hyperlink string  // resolved target URL, empty when none
	IsMath    bool    // flattened from a math zone
}

// BulletKind describes the list marker of a paragraph.
type BulletKind int

const (
	BulletNone BulletKind = iota
	BulletChar
	BulletAutoNum
)

// BulletInfo carries the list semantics of a paragraph.
type BulletInfo struct {
	Kind    BulletKind
	Char    string // marker character for BulletChar
	StartAt int    // explicit numbering seed for BulletAutoNum, 0 when absent
}

// Paragraph is one paragraph of a text body.
type Paragraph struct {
	Runs      []TextRun
	Level     int // indent level, 0 = top
	Bullet    BulletInfo
	Alignment string // l, ctr, r, just; empty when unspecified
}

// PlainText returns the concatenated run text.
func (p Paragraph) PlainText() string {
	var sb strings.Builder
	for _, r := range p.Runs {
		sb.WriteString(r.Text)
	}
	return sb.String()
}

// MaxRunSize returns the largest explicit font size among the runs.
func (p Paragraph) MaxRunSize() float64 {
	var max float64
	for _, r := range p.Runs {
		if r.Size > max {
			max = r.Size
		}
	}
	return max
}

// Cell is a single table cell.
type Cell struct {
	Paragraphs []Paragraph
	RowSpan    int
	ColSpan    int
	Merged     bool // continuation of a merged cell, not the origin
}

// Text returns the cell content as a single string.
func (c Cell) Text() string {
	parts := make([]string, 0, len(c.Paragraphs))
	for _, p := range c.Paragraphs {
		if t := p.PlainText(); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

// Table holds the cell grid of a table shape.
type Table struct {
	Rows [][]Cell
}

// ColCount returns the number of columns in the widest row.
func (t Table) ColCount() int {
	max := 0
	for _, row := range t.Rows {
		if len(row) > max {
			max = len(row)
		}
	}
	return max
}

// Image holds the payload of a picture shape.
type Image struct {
	Data    []byte
	Ext     string // source extension without dot: png, jpeg, wmf, ...
	AltText string
}

// Embedded holds the payload of an embedded OLE object shape.
type Embedded struct {
	Data    []byte // raw part bytes; a CFB container for .bin parts
	PartExt string // bin or pptx
	ProgID  string // from the oleObj element when present
	Preview *Image // the shape's preview picture when present
}

// Shape is one positioned shape on a slide. Exactly one of the payload
// fields is set according to Kind; Group shapes carry Children with
// coordinates already mapped into the slide frame.
type Shape struct {
	ID   string
	Name string
	Kind ShapeKind
	BBox BBox
	Z    int // document order within the shape tree

	Placeholder string // ph type attribute, empty when not a placeholder

	Paragraphs []Paragraph
	Table      *Table
	Image      *Image
	Embedded   *Embedded
	Children   []*Shape
}

// PlainText returns all paragraph text of the shape joined by newlines.
func (s *Shape) PlainText() string {
	parts := make([]string, 0, len(s.Paragraphs))
	for _, p := range s.Paragraphs {
		parts = append(parts, p.PlainText())
	}
	return strings.Join(parts, "\n")
}

// HasText reports whether any run contains non-whitespace text.
func (s *Shape) HasText() bool {
	for _, p := range s.Paragraphs {
		if strings.TrimSpace(p.PlainText()) != "" {
			return true
		}
	}
	return false
}

// MaxRunSize returns the largest explicit font size across all paragraphs.
func (s *Shape) MaxRunSize() float64 {
	var max float64
	for _, p := range s.Paragraphs {
		if sz := p.MaxRunSize(); sz > max {
			max = sz
		}
	}
	return max
}

// Slide is one parsed slide with its shapes in document order.
type Slide struct {
	Index  int // 0-based position in the deck
	Shapes []*Shape
	Notes  []Paragraph
	Width  float64 // slide width in points
	Height float64 // slide height in points
}

// Deck is a parsed presentation.
type Deck struct {
	Slides []*Slide
	Width  float64
	Height float64
	Title  string // from core properties, may be empty
}
