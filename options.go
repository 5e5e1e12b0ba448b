package slideflow

import (
	"github.com/tethys-labs/slideflow/emit"
	"github.com/tethys-labs/slideflow/host"
)

// convertOptions holds the configuration of a Converter.
type convertOptions struct {
	// Slide selection (1-indexed); nil means all slides.
	slides []int

	// Output shaping
	includeNotes        bool
	slideSeparators     bool
	pathComments        bool
	truncateSmallBlocks bool
	minBlockRunes       int
	disableColor        bool
	disableEscaping     bool
	keepSimilarTitles   bool
	tableHeader         emit.HeaderMode
	titleLevels         map[string]int

	// Layout
	disableColumns  bool
	numericFallback bool

	// Images
	disableImages   bool
	disableWMF      bool
	preferJPEG      bool
	useOCR          bool
	dpi             int
	maxImageWidthPx int
	imageDir        string // directory image files are written to
	imageRef        string // reference prefix used in the output
	writeImages     bool

	// Embedded presentations
	maxEmbedDepth int

	// Host automation
	host host.Capability
}

// defaultOptions returns the default conversion options.
func defaultOptions() convertOptions {
	return convertOptions{
		includeNotes:    true,
		pathComments:    true,
		tableHeader:     emit.HeaderFirstRow,
		numericFallback: true,
		dpi:             600,
		maxEmbedDepth:   5,
		host:            host.None{},
	}
}

// clone creates a deep copy of convertOptions.
func (o convertOptions) clone() convertOptions {
	out := o
	if o.slides != nil {
		out.slides = make([]int, len(o.slides))
		copy(out.slides, o.slides)
	}
	if o.titleLevels != nil {
		out.titleLevels = make(map[string]int, len(o.titleLevels))
		for k, v := range o.titleLevels {
			out.titleLevels[k] = v
		}
	}
	return out
}

// emitConfig maps the options onto the emitter configuration.
func (o convertOptions) emitConfig() emit.Config {
	return emit.Config{
		SlidePathComments:   o.pathComments,
		SlideSeparators:     o.slideSeparators,
		TableHeader:         o.tableHeader,
		MaxImageWidthPx:     o.maxImageWidthPx,
		IncludeNotes:        o.includeNotes,
		TruncateSmallBlocks: o.truncateSmallBlocks,
		MinBlockRunes:       o.minBlockRunes,
		DisableColor:        o.disableColor,
		DisableEscaping:     o.disableEscaping,
	}
}
