package detection

import (
	"math"
)

// Bounds represents a rectangular bounding box in pixel coordinates.
//
// The coordinate convention follows standard image bounds:
//   - (X1, Y1) is the top-left corner (inclusive)
//   - (X2, Y2) is the bottom-right corner (inclusive)
type Bounds struct {
	X1 int `json:"x1"` // Left edge (inclusive)
	Y1 int `json:"y1"` // Top edge (inclusive)
	X2 int `json:"x2"` // Right edge
	Y2 int `json:"y2"` // Bottom edge
}

// Point represents a 2D coordinate in pixel space.
type Point struct {
	X int `json:"x"` // Horizontal position (0 = leftmost)
	Y int `json:"y"` // Vertical position (0 = topmost)
}

// PointF is a sub-pixel coordinate used once corners leave the integer grid.
type PointF struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Float converts p to a PointF.
func (p Point) Float() PointF {
	return PointF{X: float64(p.X), Y: float64(p.Y)}
}

// Dist returns the Euclidean distance between a and b.
func (a PointF) Dist(b PointF) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// Corner indexes into a Quad.
const (
	TopLeft = iota
	TopRight
	BottomRight
	BottomLeft
)

// Quad is a quadrilateral whose corners are stored in canonical order:
// top-left, top-right, bottom-right, bottom-left.
type Quad [4]PointF

// OrderQuad assigns the four vertices of an approximated polygon to
// canonical corners.
//
// With s = x+y and d = y-x:
//   - top-left is the vertex with the smallest s
//   - bottom-right is the vertex with the largest s
//   - top-right is the vertex with the smallest d
//   - bottom-left is the vertex with the largest d
//
// Ties resolve to the vertex that appears first in pts. Degenerate inputs
// may map the same vertex to more than one corner; callers catch that
// through the dimension and transform checks.
func OrderQuad(pts [4]Point) Quad {
	tl, br, tr, bl := 0, 0, 0, 0
	for i := 1; i < 4; i++ {
		s := pts[i].X + pts[i].Y
		d := pts[i].Y - pts[i].X
		if s < pts[tl].X+pts[tl].Y {
			tl = i
		}
		if s > pts[br].X+pts[br].Y {
			br = i
		}
		if d < pts[tr].Y-pts[tr].X {
			tr = i
		}
		if d > pts[bl].Y-pts[bl].X {
			bl = i
		}
	}
	return Quad{pts[tl].Float(), pts[tr].Float(), pts[br].Float(), pts[bl].Float()}
}

// Dimensions returns the size of the rectangle the quad is rectified into.
//
// Width is the longer of the top and bottom edges, height the longer of the
// left and right edges. Each edge length is truncated toward zero before
// the comparison.
func (q Quad) Dimensions() (width, height int) {
	widthA := int(q[BottomRight].Dist(q[BottomLeft]))
	widthB := int(q[TopRight].Dist(q[TopLeft]))
	heightA := int(q[TopRight].Dist(q[BottomRight]))
	heightB := int(q[TopLeft].Dist(q[BottomLeft]))
	return max(widthA, widthB), max(heightA, heightB)
}

// Bounds returns the integer bounding box of the quad's corners.
func (q Quad) Bounds() Bounds {
	b := Bounds{
		X1: int(math.Floor(q[0].X)), Y1: int(math.Floor(q[0].Y)),
		X2: int(math.Ceil(q[0].X)), Y2: int(math.Ceil(q[0].Y)),
	}
	for _, p := range q[1:] {
		b.X1 = min(b.X1, int(math.Floor(p.X)))
		b.Y1 = min(b.Y1, int(math.Floor(p.Y)))
		b.X2 = max(b.X2, int(math.Ceil(p.X)))
		b.Y2 = max(b.Y2, int(math.Ceil(p.Y)))
	}
	return b
}

// Center returns the centroid of the four corners.
func (q Quad) Center() PointF {
	var c PointF
	for _, p := range q {
		c.X += p.X
		c.Y += p.Y
	}
	return PointF{X: c.X / 4, Y: c.Y / 4}
}
