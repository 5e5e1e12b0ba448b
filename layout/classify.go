package layout

import (
	"strings"
	"unicode/utf8"

	"github.com/tethys-labs/slideflow/model"
)

// ClassifierConfig controls shape classification.
type ClassifierConfig struct {
	// TopBandLimit is the distance from the slide top, in points, below
	// which a shape receives the TopBandBonus in title scoring.
	TopBandLimit float64
	// TopBandBonus is added to the title score of shapes near the top.
	TopBandBonus float64
	// MinTitleScore is the lowest score that can win the title role when
	// no title placeholder exists.
	MinTitleScore float64
	// DefaultFontSize substitutes for runs that carry no explicit size.
	DefaultFontSize float64
	// MinDecorationArea demotes tiny shapes to decoration, in square
	// points. Shapes with unknown geometry are never demoted.
	MinDecorationArea float64
}

// DefaultClassifierConfig returns the standard classification settings.
func DefaultClassifierConfig() ClassifierConfig {
	return ClassifierConfig{
		TopBandLimit:      120.0,
		TopBandBonus:      15.0,
		MinTitleScore:     0.0,
		DefaultFontSize:   18.0,
		MinDecorationArea: 32.0,
	}
}

// ShapeClassifier assigns a role to every shape on a slide.
type ShapeClassifier struct {
	config ClassifierConfig
}

// NewShapeClassifier creates a classifier with default settings.
func NewShapeClassifier() *ShapeClassifier {
	return NewShapeClassifierWithConfig(DefaultClassifierConfig())
}

// NewShapeClassifierWithConfig creates a classifier with custom settings.
func NewShapeClassifierWithConfig(config ClassifierConfig) *ShapeClassifier {
	return &ShapeClassifier{config: config}
}

// Classify sets the Kind of every shape on the slide in place. Shapes the
// reader already typed (pictures, tables, embedded objects) keep their
// kind. When no placeholder claims the title role, the highest-scoring
// text shape is promoted instead.
func (c *ShapeClassifier) Classify(slide *model.Slide) {
	hasTitle := false
	c.classifyShapes(slide.Shapes, &hasTitle)

	if !hasTitle {
		if best := c.bestTitleCandidate(slide.Shapes); best != nil {
			best.Kind = model.KindTitle
		}
	}
}

func (c *ShapeClassifier) classifyShapes(shapes []*model.Shape, hasTitle *bool) {
	for _, s := range shapes {
		if s.Kind == model.KindGroup {
			c.classifyShapes(s.Children, hasTitle)
			continue
		}
		if s.Kind != model.KindUnknown {
			continue
		}
		s.Kind = c.classifyOne(s)
		if s.Kind == model.KindTitle {
			*hasTitle = true
		}
	}
}

func (c *ShapeClassifier) classifyOne(s *model.Shape) model.ShapeKind {
	switch s.Placeholder {
	case "title", "ctrTitle":
		if s.HasText() {
			return model.KindTitle
		}
		return model.KindDecoration
	case "subTitle":
		if s.HasText() {
			return model.KindSubtitle
		}
		return model.KindDecoration
	case "sldNum", "ftr", "dt", "sldImg":
		return model.KindDecoration
	}

	if !s.HasText() {
		return model.KindDecoration
	}
	if !s.BBox.IsEmpty() && s.BBox.Area() < c.config.MinDecorationArea {
		return model.KindDecoration
	}
	return model.KindBody
}

// bestTitleCandidate scores body shapes and returns the winner, or nil
// when nothing clears MinTitleScore. Ties go to the shape closer to the
// top, then to the left.
func (c *ShapeClassifier) bestTitleCandidate(shapes []*model.Shape) *model.Shape {
	var best *model.Shape
	var bestScore float64

	var walk func([]*model.Shape)
	walk = func(ss []*model.Shape) {
		for _, s := range ss {
			if s.Kind == model.KindGroup {
				walk(s.Children)
				continue
			}
			// Placeholder bodies are declared content; only free
			// text boxes compete for the title role.
			if s.Kind != model.KindBody || s.Placeholder != "" {
				continue
			}
			score := c.titleScore(s)
			if score < c.config.MinTitleScore {
				continue
			}
			if best == nil || score > bestScore ||
				(score == bestScore && lessTopLeft(s, best)) {
				best = s
				bestScore = score
			}
		}
	}
	walk(shapes)
	return best
}

// titleScore favors large type near the top of the slide and penalizes
// long text, which is usually body content even when set large.
func (c *ShapeClassifier) titleScore(s *model.Shape) float64 {
	size := s.MaxRunSize()
	if size == 0 {
		size = c.config.DefaultFontSize
	}
	textLen := utf8.RuneCountInString(strings.TrimSpace(s.PlainText()))

	score := size*10.0 - s.BBox.Top()/5.0 - float64(textLen)*0.5
	if s.BBox.Top() <= c.config.TopBandLimit {
		score += c.config.TopBandBonus
	}
	return score
}

func lessTopLeft(a, b *model.Shape) bool {
	if a.BBox.Top() != b.BBox.Top() {
		return a.BBox.Top() < b.BBox.Top()
	}
	return a.BBox.Left() < b.BBox.Left()
}
