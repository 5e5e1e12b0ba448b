package model

import (
	"fmt"
	"strings"
)

// PathID locates a slide or embedded object within the expansion tree of a
// deck. Components are either slides (S<n>) or embedded objects (E<n>),
// both 1-based, rendered like "S2/E1/S3".
type PathID []PathComponent

// PathComponent is one step of a PathID.
type PathComponent struct {
	Embedded bool
	N        int
}

// Slide appends a slide component and returns the extended path.
// The receiver is not modified.
func (p PathID) Slide(n int) PathID {
	return p.extend(PathComponent{Embedded: false, N: n})
}

// Embed appends an embedded-object component and returns the extended path.
func (p PathID) Embed(n int) PathID {
	return p.extend(PathComponent{Embedded: true, N: n})
}

func (p PathID) extend(c PathComponent) PathID {
	out := make(PathID, len(p)+1)
	copy(out, p)
	out[len(p)] = c
	return out
}

// Depth returns the number of embedded-object components, which is the
// recursion depth of the path.
func (p PathID) Depth() int {
	d := 0
	for _, c := range p {
		if c.Embedded {
			d++
		}
	}
	return d
}

// String renders the path like "S2/E1/S3". The empty path renders "".
func (p PathID) String() string {
	parts := make([]string, len(p))
	for i, c := range p {
		if c.Embedded {
			parts[i] = fmt.Sprintf("E%d", c.N)
		} else {
			parts[i] = fmt.Sprintf("S%d", c.N)
		}
	}
	return strings.Join(parts, "/")
}
