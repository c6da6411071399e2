// Package detection provides the geometric stages of document detection:
// border following on a binary edge map, polygon approximation, convexity
// testing and quadrilateral corner ordering.
//
// # Coordinate System
//
// All coordinates use the standard image convention:
//   - Origin (0, 0) at top-left corner
//   - X increases rightward
//   - Y increases downward
//
// # Contours
//
// FindExternalContours follows the outer border of every connected region of
// non-zero pixels that is not enclosed by another region. Border points are
// compressed to the ends of each horizontal, vertical or diagonal run.
// Contours are returned in the order their first pixel is met by a raster
// scan, and that order is stable for identical input.
//
// # Quadrilaterals
//
// OrderQuad labels four corners as top-left, top-right, bottom-right and
// bottom-left using coordinate sums and differences. Quad.Dimensions derives
// the output size of a rectified document from the longer of each pair of
// opposite edges.
package detection
