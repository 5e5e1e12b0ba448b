package layout

import (
	"sort"
	"strings"

	"github.com/tethys-labs/slideflow/model"
)

// OrderConfig controls row grouping during reading-order reconstruction.
type OrderConfig struct {
	// RowThresholdFactor scales the median shape height into the
	// vertical distance within which two shapes share a row.
	RowThresholdFactor float64
	// MinRowThreshold and MaxRowThreshold clamp the adaptive threshold,
	// in points.
	MinRowThreshold float64
	MaxRowThreshold float64
	// MaxSlideNumberLen bounds the length of a bare number that can be
	// folded into the title row.
	MaxSlideNumberLen int
}

// DefaultOrderConfig returns the standard ordering settings.
func DefaultOrderConfig() OrderConfig {
	return OrderConfig{
		RowThresholdFactor: 1.3,
		MinRowThreshold:    10.0,
		MaxRowThreshold:    100.0,
		MaxSlideNumberLen:  4,
	}
}

// Ordered is the reading order of one slide.
type Ordered struct {
	// Title is the slide title, nil when the slide has none.
	Title *model.Shape
	// Regions hold the remaining shapes, each region fully ordered.
	Regions []Region
}

// Flat returns title (when present) followed by all region shapes.
func (o *Ordered) Flat() []*model.Shape {
	var out []*model.Shape
	if o.Title != nil {
		out = append(out, o.Title)
	}
	for _, r := range o.Regions {
		out = append(out, r.Shapes...)
	}
	return out
}

// ColumnCount returns the number of distinct columns, or 1 when the slide
// has no column structure.
func (o *Ordered) ColumnCount() int {
	cols := map[int]bool{}
	for _, r := range o.Regions {
		if r.Column >= 0 {
			cols[r.Column] = true
		}
	}
	if len(cols) == 0 {
		return 1
	}
	return len(cols)
}

// ReadingOrderBuilder reconstructs the reading order of a slide.
type ReadingOrderBuilder struct {
	config  OrderConfig
	columns *ColumnDetector
}

// NewReadingOrderBuilder creates a builder with default settings.
func NewReadingOrderBuilder() *ReadingOrderBuilder {
	return NewReadingOrderBuilderWithConfig(DefaultOrderConfig(), NewColumnDetector())
}

// NewReadingOrderBuilderWithConfig creates a builder with custom settings
// and column detector.
func NewReadingOrderBuilderWithConfig(config OrderConfig, columns *ColumnDetector) *ReadingOrderBuilder {
	return &ReadingOrderBuilder{config: config, columns: columns}
}

// Build orders the classified shapes of a slide. Groups are flattened,
// decorations dropped, the title read first, and the remaining shapes
// grouped into regions and rows. With no column structure the result is
// ordered strictly by top edge, ties broken by left edge then z-order.
func (b *ReadingOrderBuilder) Build(slide *model.Slide) *Ordered {
	flat := flatten(slide.Shapes)

	out := &Ordered{}
	var rest []*model.Shape
	for _, s := range flat {
		switch {
		case s.Kind == model.KindDecoration:
			// dropped
		case s.Kind == model.KindTitle && out.Title == nil:
			out.Title = s
		default:
			rest = append(rest, s)
		}
	}

	rest = b.foldSlideNumber(out, rest)

	for _, region := range b.columns.Detect(rest, slide.Width, slide.Height) {
		region.Shapes = b.orderRegion(region.Shapes)
		out.Regions = append(out.Regions, region)
	}
	return out
}

// foldSlideNumber pulls a bare number sharing the title row out of the
// flow and reads it directly after the title, where a "3  Results" style
// header belongs.
func (b *ReadingOrderBuilder) foldSlideNumber(out *Ordered, shapes []*model.Shape) []*model.Shape {
	if out.Title == nil || out.Title.BBox.IsEmpty() {
		return shapes
	}

	titleBox := out.Title.BBox
	var kept, folded []*model.Shape
	for _, s := range shapes {
		if isBareNumber(s, b.config.MaxSlideNumberLen) && rowsOverlap(s.BBox, titleBox) {
			folded = append(folded, s)
		} else {
			kept = append(kept, s)
		}
	}
	if len(folded) > 0 {
		sortSpanning(folded)
		out.Regions = append(out.Regions, Region{Shapes: folded, BBox: shapesBBox(folded), Column: -1})
	}
	return kept
}

func isBareNumber(s *model.Shape, maxLen int) bool {
	if s.Kind != model.KindBody {
		return false
	}
	text := strings.TrimSpace(s.PlainText())
	if text == "" || len(text) > maxLen {
		return false
	}
	for _, r := range text {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func rowsOverlap(a, b model.BBox) bool {
	return a.Top() < b.Bottom() && b.Top() < a.Bottom()
}

// orderRegion sorts a region's shapes into rows read top to bottom, left
// to right.
func (b *ReadingOrderBuilder) orderRegion(shapes []*model.Shape) []*model.Shape {
	if len(shapes) < 2 {
		return shapes
	}

	sorted := append([]*model.Shape(nil), shapes...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, c := sorted[i], sorted[j]
		if a.BBox.Top() != c.BBox.Top() {
			return a.BBox.Top() < c.BBox.Top()
		}
		if a.BBox.Left() != c.BBox.Left() {
			return a.BBox.Left() < c.BBox.Left()
		}
		return a.Z < c.Z
	})

	threshold := b.rowThreshold(sorted)

	var out []*model.Shape
	var row []*model.Shape
	rowRefY := 0.0
	flush := func() {
		sort.SliceStable(row, func(i, j int) bool {
			if row[i].BBox.Left() != row[j].BBox.Left() {
				return row[i].BBox.Left() < row[j].BBox.Left()
			}
			return row[i].Z < row[j].Z
		})
		out = append(out, row...)
		row = row[:0]
	}

	for _, s := range sorted {
		cy := s.BBox.Center().Y
		if len(row) == 0 {
			row = append(row, s)
			rowRefY = cy
			continue
		}
		if cy-rowRefY <= threshold {
			row = append(row, s)
			continue
		}
		flush()
		row = append(row, s)
		rowRefY = cy
	}
	flush()
	return out
}

// rowThreshold adapts the row grouping distance to the median shape
// height so dense and sparse slides both group sensibly.
func (b *ReadingOrderBuilder) rowThreshold(shapes []*model.Shape) float64 {
	heights := make([]float64, 0, len(shapes))
	for _, s := range shapes {
		if s.BBox.Height > 0 {
			heights = append(heights, s.BBox.Height)
		}
	}
	if len(heights) == 0 {
		return b.config.MinRowThreshold
	}
	sort.Float64s(heights)
	median := heights[len(heights)/2]
	if len(heights)%2 == 0 {
		median = (heights[len(heights)/2-1] + heights[len(heights)/2]) / 2
	}

	t := median * b.config.RowThresholdFactor
	if t < b.config.MinRowThreshold {
		t = b.config.MinRowThreshold
	}
	if t > b.config.MaxRowThreshold {
		t = b.config.MaxRowThreshold
	}
	return t
}

// flatten expands groups into their children, depth first, preserving
// document order.
func flatten(shapes []*model.Shape) []*model.Shape {
	var out []*model.Shape
	for _, s := range shapes {
		if s.Kind == model.KindGroup {
			out = append(out, flatten(s.Children)...)
			continue
		}
		out = append(out, s)
	}
	return out
}
