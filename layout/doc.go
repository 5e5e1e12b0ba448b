// Package layout turns the positioned shapes of a slide into an ordered
// sequence suitable for flow text.
//
// Three stages cooperate:
//
//   - [ShapeClassifier] decides what role each shape plays (title, body,
//     decoration, ...), using placeholder types when present and a
//     geometric score otherwise.
//   - [ColumnDetector] finds the region structure of a slide with a
//     recursive XY-cut over shape bounding boxes, falling back to a
//     numeric two-cluster split when the cut finds nothing but the
//     horizontal distribution is clearly bimodal.
//   - [ReadingOrderBuilder] orders shapes within and across regions so
//     that a left column is read completely before a right one and rows
//     are read top to bottom.
//
// All stages are deterministic: the same slide always yields the same
// order.
package layout
