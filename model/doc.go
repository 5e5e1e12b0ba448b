// Package model defines the core data types shared across the conversion
// pipeline: positioned shapes as parsed from slide XML, the classified
// content blocks handed to the format emitters, and the geometric
// primitives both are built on.
//
// All coordinates are in points with the origin at the top-left corner of
// the slide and Y growing downward. Raw OOXML geometry is expressed in
// EMUs (914400 per inch); FromEMU converts to points at parse time so the
// layout code never sees EMUs.
package model
