package layout

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/optimize"

	"github.com/tethys-labs/slideflow/model"
)

// ColumnConfig controls region detection.
type ColumnConfig struct {
	// VerticalGapRatio is the minimum width of a vertical whitespace
	// band, as a fraction of region width, for a left/right cut.
	VerticalGapRatio float64
	// HorizontalGapRatio is the analogous fraction of region height for
	// a top/bottom cut.
	HorizontalGapRatio float64
	// MinVGapPoints and MinHGapPoints are absolute floors on gap size.
	MinVGapPoints float64
	MinHGapPoints float64
	// WideSpanRatio marks shapes spanning most of the region width;
	// they never block a vertical cut and are emitted as spanning
	// regions of their own.
	WideSpanRatio float64
	// TallSpanRatio is the analogous fraction for horizontal cuts.
	TallSpanRatio float64
	// MaxDepth bounds cut recursion.
	MaxDepth int
	// MinShapesPerRegion rejects cuts that would isolate fewer shapes.
	MinShapesPerRegion int
	// Eps merges projection intervals separated by less than this.
	Eps float64
	// SplitGapRatio is the minimum inter-cluster gap, as a fraction of
	// slide width, for the numeric fallback to accept a split.
	SplitGapRatio float64
	// NumericFallback enables the numeric two-cluster split when the cut
	// found no column structure. It is the slower path.
	NumericFallback bool
}

// DefaultColumnConfig returns the standard detection settings.
func DefaultColumnConfig() ColumnConfig {
	return ColumnConfig{
		VerticalGapRatio:   0.08,
		HorizontalGapRatio: 0.06,
		MinVGapPoints:      40.0,
		MinHGapPoints:      24.0,
		WideSpanRatio:      0.8,
		TallSpanRatio:      0.9,
		MaxDepth:           2,
		MinShapesPerRegion: 2,
		Eps:                0.5,
		SplitGapRatio:      0.2,
		NumericFallback:    true,
	}
}

// Region is a group of shapes that reads as a unit. Column is the 0-based
// column index when the region came out of a top-level vertical cut, and
// -1 for spanning or single-region layouts.
type Region struct {
	Shapes []*model.Shape
	BBox   model.BBox
	Column int
}

// ColumnDetector finds the region structure of a slide.
type ColumnDetector struct {
	config ColumnConfig
}

// NewColumnDetector creates a detector with default settings.
func NewColumnDetector() *ColumnDetector {
	return NewColumnDetectorWithConfig(DefaultColumnConfig())
}

// NewColumnDetectorWithConfig creates a detector with custom settings.
func NewColumnDetectorWithConfig(config ColumnConfig) *ColumnDetector {
	return &ColumnDetector{config: config}
}

// Detect splits the shapes into regions in reading order. Shapes with
// unknown geometry are kept in a single leading region so they are never
// lost. The fallback numeric split only runs when the cut found no column
// structure at all.
func (d *ColumnDetector) Detect(shapes []*model.Shape, slideWidth, slideHeight float64) []Region {
	if len(shapes) == 0 {
		return nil
	}

	positioned := make([]*model.Shape, 0, len(shapes))
	var unpositioned []*model.Shape
	for _, s := range shapes {
		if s.BBox.IsEmpty() {
			unpositioned = append(unpositioned, s)
		} else {
			positioned = append(positioned, s)
		}
	}

	var regions []Region
	if len(unpositioned) > 0 {
		regions = append(regions, Region{Shapes: unpositioned, Column: -1})
	}
	if len(positioned) == 0 {
		return regions
	}

	cut := d.cut(positioned, shapesBBox(positioned), 0)
	if len(cut) == 1 && d.config.NumericFallback {
		if left, right, ok := d.numericSplit(positioned, slideWidth); ok {
			cut = []Region{
				{Shapes: left, BBox: shapesBBox(left), Column: 0},
				{Shapes: right, BBox: shapesBBox(right), Column: 1},
			}
		}
	}
	return append(regions, cut...)
}

// cut recursively applies the XY-cut. Vertical cuts are tried first so a
// column structure always wins over the row gaps its columns happen to
// share; full-width shapes are set aside as spanning regions rather than
// blocking the cut.
func (d *ColumnDetector) cut(shapes []*model.Shape, box model.BBox, depth int) []Region {
	if depth >= d.config.MaxDepth || len(shapes) < 2*d.config.MinShapesPerRegion {
		return []Region{{Shapes: shapes, BBox: box, Column: -1}}
	}

	if cols, spanning, ok := d.splitVertical(shapes, box); ok {
		var out []Region
		// Spanning shapes above the column block read first, the rest
		// read after all columns.
		colTop := math.Inf(1)
		for _, col := range cols {
			for _, s := range col {
				colTop = math.Min(colTop, s.BBox.Top())
			}
		}
		var before, after []*model.Shape
		for _, s := range spanning {
			if s.BBox.Center().Y < colTop {
				before = append(before, s)
			} else {
				after = append(after, s)
			}
		}
		if len(before) > 0 {
			out = append(out, Region{Shapes: before, BBox: shapesBBox(before), Column: -1})
		}
		for i, col := range cols {
			sub := d.cut(col, shapesBBox(col), depth+1)
			for j := range sub {
				if sub[j].Column < 0 {
					sub[j].Column = i
				}
			}
			out = append(out, sub...)
		}
		if len(after) > 0 {
			out = append(out, Region{Shapes: after, BBox: shapesBBox(after), Column: -1})
		}
		return out
	}

	if bands, ok := d.splitHorizontal(shapes, box); ok {
		var out []Region
		for _, band := range bands {
			out = append(out, d.cut(band, shapesBBox(band), depth+1)...)
		}
		return out
	}

	return []Region{{Shapes: shapes, BBox: box, Column: -1}}
}

// splitHorizontal cuts the region into vertical bands at whitespace rows.
func (d *ColumnDetector) splitHorizontal(shapes []*model.Shape, box model.BBox) ([][]*model.Shape, bool) {
	minGap := math.Max(d.config.MinHGapPoints, d.config.HorizontalGapRatio*box.Height)

	var intervals []interval
	for _, s := range shapes {
		if s.BBox.Height >= d.config.TallSpanRatio*box.Height {
			// A shape spanning the whole region blocks every cut.
			return nil, false
		}
		intervals = append(intervals, interval{s.BBox.Top(), s.BBox.Bottom()})
	}

	cuts := gapCenters(intervals, minGap, d.config.Eps)
	if len(cuts) == 0 {
		return nil, false
	}

	bands := partitionBy(shapes, cuts, func(s *model.Shape) float64 { return s.BBox.Center().Y })
	for _, b := range bands {
		if len(b) == 0 {
			return nil, false
		}
	}
	return bands, true
}

// splitVertical cuts the region into columns at whitespace bands, setting
// aside shapes wide enough to span the cut.
func (d *ColumnDetector) splitVertical(shapes []*model.Shape, box model.BBox) (cols [][]*model.Shape, spanning []*model.Shape, ok bool) {
	minGap := math.Max(d.config.MinVGapPoints, d.config.VerticalGapRatio*box.Width)

	var narrow []*model.Shape
	var intervals []interval
	for _, s := range shapes {
		if s.BBox.Width >= d.config.WideSpanRatio*box.Width {
			spanning = append(spanning, s)
			continue
		}
		narrow = append(narrow, s)
		intervals = append(intervals, interval{s.BBox.Left(), s.BBox.Right()})
	}
	if len(narrow) < 2*d.config.MinShapesPerRegion {
		return nil, nil, false
	}

	cuts := gapCenters(intervals, minGap, d.config.Eps)
	if len(cuts) == 0 {
		return nil, nil, false
	}

	cols = partitionBy(narrow, cuts, func(s *model.Shape) float64 { return s.BBox.Center().X })
	for _, c := range cols {
		if len(c) < d.config.MinShapesPerRegion {
			return nil, nil, false
		}
	}
	sortSpanning(spanning)
	return cols, spanning, true
}

// numericSplit is the fallback for slides whose columns touch or overlap
// enough that projection gaps vanish. It minimizes the within-cluster
// variance of a two-cluster split over the shape x-centers and accepts
// the split only when the clusters are separated by at least
// SplitGapRatio of the slide width.
func (d *ColumnDetector) numericSplit(shapes []*model.Shape, slideWidth float64) (left, right []*model.Shape, ok bool) {
	if len(shapes) < 2*d.config.MinShapesPerRegion || slideWidth <= 0 {
		return nil, nil, false
	}

	centers := make([]float64, len(shapes))
	for i, s := range shapes {
		centers[i] = s.BBox.Center().X
	}

	split := optimalSplit(centers)

	var leftMax, rightMin = math.Inf(-1), math.Inf(1)
	for i, s := range shapes {
		if centers[i] < split {
			left = append(left, s)
			leftMax = math.Max(leftMax, s.BBox.Right())
		} else {
			right = append(right, s)
			rightMin = math.Min(rightMin, s.BBox.Left())
		}
	}

	if len(left) < d.config.MinShapesPerRegion || len(right) < d.config.MinShapesPerRegion {
		return nil, nil, false
	}
	if rightMin-leftMax < d.config.SplitGapRatio*slideWidth {
		return nil, nil, false
	}
	return left, right, true
}

// optimalSplit estimates the threshold of a 1-D two-cluster split by
// minimizing a smoothed within-cluster cost with Nelder-Mead. The hard
// cost is piecewise constant in the threshold, so the smooth relaxation is
// what the minimizer descends; it runs from three quantile starts and the
// result with the lowest hard cost wins.
func optimalSplit(centers []float64) float64 {
	sorted := append([]float64(nil), centers...)
	sort.Float64s(sorted)
	span := sorted[len(sorted)-1] - sorted[0]
	if span <= 0 {
		return sorted[0]
	}
	bandwidth := span / 20

	problem := optimize.Problem{
		Func: func(x []float64) float64 { return softSplitCost(centers, x[0], bandwidth) },
	}

	best, bestCost := sorted[0], math.Inf(1)
	for _, q := range []float64{0.25, 0.5, 0.75} {
		start := sorted[0] + q*span
		result, err := optimize.Minimize(problem, []float64{start}, nil, &optimize.NelderMead{})
		if err != nil || result == nil {
			continue
		}
		if cost := splitCost(centers, result.X[0]); cost < bestCost {
			best, bestCost = result.X[0], cost
		}
	}
	return best
}

// softSplitCost is a smooth relaxation of splitCost: each center joins the
// left cluster with logistic weight sigmoid((t-c)/h) and the cluster means
// are weight-averaged, so the cost is continuous in the threshold t.
func softSplitCost(centers []float64, t, h float64) float64 {
	weights := make([]float64, len(centers))
	var wl, wr, suml, sumr float64
	for i, c := range centers {
		w := 1 / (1 + math.Exp(-(t-c)/h))
		weights[i] = w
		wl += w
		wr += 1 - w
		suml += w * c
		sumr += (1 - w) * c
	}
	if wl < 1e-9 || wr < 1e-9 {
		return math.Inf(1)
	}
	ml, mr := suml/wl, sumr/wr

	var cost float64
	for i, c := range centers {
		cost += weights[i]*(c-ml)*(c-ml) + (1-weights[i])*(c-mr)*(c-mr)
	}
	return cost
}

// splitCost is the within-cluster sum of squared deviations for the
// two-cluster split at t. Splits that empty a side cost +Inf.
func splitCost(centers []float64, t float64) float64 {
	var nl, nr float64
	var suml, sumr float64
	for _, c := range centers {
		if c < t {
			nl++
			suml += c
		} else {
			nr++
			sumr += c
		}
	}
	if nl == 0 || nr == 0 {
		return math.Inf(1)
	}
	ml, mr := suml/nl, sumr/nr

	var cost float64
	for _, c := range centers {
		if c < t {
			cost += (c - ml) * (c - ml)
		} else {
			cost += (c - mr) * (c - mr)
		}
	}
	return cost
}

type interval struct {
	lo, hi float64
}

// gapCenters merges the projection intervals and returns the centers of
// qualifying gaps between them, in ascending order.
func gapCenters(intervals []interval, minGap, eps float64) []float64 {
	if len(intervals) == 0 {
		return nil
	}
	sort.Slice(intervals, func(i, j int) bool { return intervals[i].lo < intervals[j].lo })

	merged := []interval{intervals[0]}
	for _, iv := range intervals[1:] {
		last := &merged[len(merged)-1]
		if iv.lo <= last.hi+eps {
			if iv.hi > last.hi {
				last.hi = iv.hi
			}
		} else {
			merged = append(merged, iv)
		}
	}

	var cuts []float64
	for i := 0; i+1 < len(merged); i++ {
		gap := merged[i+1].lo - merged[i].hi
		if gap >= minGap {
			cuts = append(cuts, merged[i].hi+gap/2)
		}
	}
	return cuts
}

// partitionBy splits shapes into len(cuts)+1 buckets by the given
// coordinate, preserving input order within each bucket.
func partitionBy(shapes []*model.Shape, cuts []float64, coord func(*model.Shape) float64) [][]*model.Shape {
	buckets := make([][]*model.Shape, len(cuts)+1)
	for _, s := range shapes {
		idx := sort.SearchFloat64s(cuts, coord(s))
		buckets[idx] = append(buckets[idx], s)
	}
	return buckets
}

func sortSpanning(shapes []*model.Shape) {
	sort.SliceStable(shapes, func(i, j int) bool {
		return lessTopLeft(shapes[i], shapes[j])
	})
}

func shapesBBox(shapes []*model.Shape) model.BBox {
	var box model.BBox
	for _, s := range shapes {
		box = box.Union(s.BBox)
	}
	return box
}
