package detection

import (
	"math"
	"reflect"
	"testing"
)

// squareRing samples the boundary of an axis-aligned square every step
// pixels, clockwise on screen from the top-left corner.
func squareRing(size, step int) []Point {
	var pts []Point
	for x := 0; x < size; x += step {
		pts = append(pts, Point{x, 0})
	}
	for y := 0; y < size; y += step {
		pts = append(pts, Point{size, y})
	}
	for x := size; x > 0; x -= step {
		pts = append(pts, Point{x, size})
	}
	for y := size; y > 0; y -= step {
		pts = append(pts, Point{0, y})
	}
	return pts
}

func TestArea(t *testing.T) {
	tests := []struct {
		name string
		pts  []Point
		want float64
	}{
		{"rectangle", []Point{{0, 0}, {10, 0}, {10, 5}, {0, 5}}, 50},
		{"reversed winding", []Point{{0, 5}, {10, 5}, {10, 0}, {0, 0}}, 50},
		{"triangle", []Point{{0, 0}, {4, 0}, {0, 3}}, 6},
		{"segment", []Point{{0, 0}, {4, 0}}, 0},
		{"empty", nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Area(tt.pts); got != tt.want {
				t.Errorf("Area() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestArcLength(t *testing.T) {
	tests := []struct {
		name string
		pts  []Point
		want float64
	}{
		{"rectangle", []Point{{0, 0}, {10, 0}, {10, 5}, {0, 5}}, 30},
		{"right triangle", []Point{{0, 0}, {4, 0}, {0, 3}}, 12},
		{"segment counted both ways", []Point{{0, 0}, {4, 0}}, 8},
		{"single point", []Point{{1, 1}}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ArcLength(tt.pts); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("ArcLength() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestApproxPolygonSquare(t *testing.T) {
	pts := squareRing(100, 10)
	eps := 0.02 * ArcLength(pts)

	got := ApproxPolygon(pts, eps)
	want := []Point{{0, 0}, {100, 0}, {100, 100}, {0, 100}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ApproxPolygon() = %v, want %v", got, want)
	}
}

func TestApproxPolygonKeepsShapeVertexCount(t *testing.T) {
	tests := []struct {
		name string
		pts  []Point
		want int
	}{
		{"triangle", []Point{{0, 0}, {100, 0}, {50, 80}}, 3},
		{"pentagon", []Point{{50, 0}, {100, 38}, {81, 100}, {19, 100}, {0, 38}}, 5},
		{"single point", []Point{{7, 7}}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ApproxPolygon(tt.pts, 0.02*ArcLength(tt.pts))
			if len(got) != tt.want {
				t.Errorf("got %d vertices (%v), want %d", len(got), got, tt.want)
			}
		})
	}
}

func TestApproxPolygonDropsSmallDeviation(t *testing.T) {
	// A one-pixel notch in the top edge is well inside 2% of the perimeter.
	pts := []Point{{0, 0}, {50, 0}, {51, 1}, {52, 0}, {100, 0}, {100, 100}, {0, 100}}
	got := ApproxPolygon(pts, 0.02*ArcLength(pts))
	if len(got) != 4 {
		t.Errorf("expected 4 vertices, got %v", got)
	}
}

func TestIsConvex(t *testing.T) {
	tests := []struct {
		name string
		pts  []Point
		want bool
	}{
		{"square", []Point{{0, 0}, {10, 0}, {10, 10}, {0, 10}}, true},
		{"square reversed", []Point{{0, 10}, {10, 10}, {10, 0}, {0, 0}}, true},
		{"skewed quad", []Point{{2, 0}, {12, 1}, {10, 9}, {0, 11}}, true},
		{"dart", []Point{{0, 0}, {10, 0}, {4, 4}, {0, 10}}, false},
		{"collinear vertex", []Point{{0, 0}, {5, 0}, {10, 0}, {10, 10}}, false},
		{"bow tie", []Point{{0, 0}, {10, 10}, {10, 0}, {0, 10}}, false},
		{"too few points", []Point{{0, 0}, {1, 1}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsConvex(tt.pts); got != tt.want {
				t.Errorf("IsConvex(%v) = %v, want %v", tt.pts, got, tt.want)
			}
		})
	}
}
