package rectify

import (
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"

	"github.com/ironsheep/docscan-mcp/internal/detection"
)

// Matrix is a row-major 3x3 projective transform.
type Matrix [9]float64

// Apply maps (x, y) through m. ok is false when the point maps to infinity.
func (m Matrix) Apply(x, y float64) (px, py float64, ok bool) {
	w := m[6]*x + m[7]*y + m[8]
	if w == 0 {
		return 0, 0, false
	}
	return (m[0]*x + m[1]*y + m[2]) / w, (m[3]*x + m[4]*y + m[5]) / w, true
}

// Invert returns the inverse of m computed from its adjugate.
func (m Matrix) Invert() (Matrix, error) {
	adj := Matrix{
		m[4]*m[8] - m[5]*m[7], m[2]*m[7] - m[1]*m[8], m[1]*m[5] - m[2]*m[4],
		m[5]*m[6] - m[3]*m[8], m[0]*m[8] - m[2]*m[6], m[2]*m[3] - m[0]*m[5],
		m[3]*m[7] - m[4]*m[6], m[1]*m[6] - m[0]*m[7], m[0]*m[4] - m[1]*m[3],
	}
	det := m[0]*adj[0] + m[1]*adj[3] + m[2]*adj[6]

	scale := 0.0
	for _, v := range m {
		scale = math.Max(scale, math.Abs(v))
	}
	if scale == 0 || math.Abs(det) <= 1e-12*scale*scale*scale {
		return Matrix{}, fmt.Errorf("singular transform: %w", ErrDegenerate)
	}

	var inv Matrix
	for i, v := range adj {
		inv[i] = v / det
	}
	return inv, nil
}

// RectangleCorners returns the corners of a width×height raster in quad
// order: (0,0), (w-1,0), (w-1,h-1), (0,h-1).
func RectangleCorners(width, height int) detection.Quad {
	w := float64(width - 1)
	h := float64(height - 1)
	return detection.Quad{{X: 0, Y: 0}, {X: w, Y: 0}, {X: w, Y: h}, {X: 0, Y: h}}
}

// PerspectiveTransform solves for the projective transform that maps each
// src corner onto the matching dst corner.
//
// The eight unknowns (the ninth entry is fixed at 1) are found by Gaussian
// elimination with partial pivoting. ErrDegenerate is returned when two
// source corners coincide, when the system is singular, or when a source
// corner would map to infinity.
func PerspectiveTransform(src, dst detection.Quad) (Matrix, error) {
	for i := 0; i < 4; i++ {
		for j := i + 1; j < 4; j++ {
			if src[i].Dist(src[j]) < 1e-9 {
				return Matrix{}, fmt.Errorf("corners %d and %d coincide: %w", i, j, ErrDegenerate)
			}
		}
	}

	var a [8][8]float64
	var b [8]float64
	for i := 0; i < 4; i++ {
		x, y := src[i].X, src[i].Y
		u, v := dst[i].X, dst[i].Y
		r := 2 * i
		a[r] = [8]float64{x, y, 1, 0, 0, 0, -x * u, -y * u}
		b[r] = u
		a[r+1] = [8]float64{0, 0, 0, x, y, 1, -x * v, -y * v}
		b[r+1] = v
	}

	h, ok := solve8(a, b)
	if !ok {
		return Matrix{}, fmt.Errorf("singular corner system: %w", ErrDegenerate)
	}
	m := Matrix{h[0], h[1], h[2], h[3], h[4], h[5], h[6], h[7], 1}

	// Every corner must stay on the same side of the horizon line, or the
	// mapping folds the quad through infinity.
	sign := 0.0
	for _, p := range src {
		w := m[6]*p.X + m[7]*p.Y + m[8]
		if math.Abs(w) < 1e-9 || (sign != 0 && math.Signbit(w) != math.Signbit(sign)) {
			return Matrix{}, fmt.Errorf("corner maps to infinity: %w", ErrDegenerate)
		}
		sign = w
	}
	return m, nil
}

// solve8 solves a·x = b by Gauss-Jordan elimination with partial pivoting.
func solve8(a [8][8]float64, b [8]float64) ([8]float64, bool) {
	scale := 0.0
	for _, row := range a {
		for _, v := range row {
			scale = math.Max(scale, math.Abs(v))
		}
	}
	if scale == 0 {
		return [8]float64{}, false
	}
	tiny := 1e-12 * scale

	for col := 0; col < 8; col++ {
		pivot := col
		for r := col + 1; r < 8; r++ {
			if math.Abs(a[r][col]) > math.Abs(a[pivot][col]) {
				pivot = r
			}
		}
		if math.Abs(a[pivot][col]) <= tiny {
			return [8]float64{}, false
		}
		a[col], a[pivot] = a[pivot], a[col]
		b[col], b[pivot] = b[pivot], b[col]

		div := a[col][col]
		for c := col; c < 8; c++ {
			a[col][c] /= div
		}
		b[col] /= div

		for r := 0; r < 8; r++ {
			if r == col || a[r][col] == 0 {
				continue
			}
			f := a[r][col]
			for c := col; c < 8; c++ {
				a[r][c] -= f * a[col][c]
			}
			b[r] -= f * b[col]
		}
	}
	return b, true
}

// Warp rectifies the region of src bounded by q into a width×height image.
//
// Each output pixel is mapped back into src through the inverse transform
// and sampled bilinearly. Source pixels outside src count as black. The
// output is fully opaque.
func Warp(src image.Image, q detection.Quad, width, height int) (*image.NRGBA, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid output size %dx%d: %w", width, height, ErrDegenerate)
	}

	m, err := PerspectiveTransform(q, RectangleCorners(width, height))
	if err != nil {
		return nil, err
	}
	inv, err := m.Invert()
	if err != nil {
		return nil, err
	}

	img := imaging.Clone(src)
	out := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			i := y*out.Stride + x*4
			out.Pix[i+3] = 255
			sx, sy, ok := inv.Apply(float64(x), float64(y))
			if !ok {
				continue
			}
			r, g, b := bilinear(img, sx, sy)
			out.Pix[i+0] = r
			out.Pix[i+1] = g
			out.Pix[i+2] = b
		}
	}
	return out, nil
}

// bilinear samples img at (x, y). Neighbours outside the image are black.
func bilinear(img *image.NRGBA, x, y float64) (r, g, b uint8) {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	if math.IsNaN(x) || math.IsNaN(y) || x <= -1 || y <= -1 || x >= float64(w) || y >= float64(h) {
		return 0, 0, 0
	}

	x0 := int(math.Floor(x))
	y0 := int(math.Floor(y))
	fx := x - float64(x0)
	fy := y - float64(y0)

	var acc [3]float64
	add := func(px, py int, weight float64) {
		if weight == 0 || px < 0 || py < 0 || px >= w || py >= h {
			return
		}
		i := py*img.Stride + px*4
		acc[0] += float64(img.Pix[i+0]) * weight
		acc[1] += float64(img.Pix[i+1]) * weight
		acc[2] += float64(img.Pix[i+2]) * weight
	}
	add(x0, y0, (1-fx)*(1-fy))
	add(x0+1, y0, fx*(1-fy))
	add(x0, y0+1, (1-fx)*fy)
	add(x0+1, y0+1, fx*fy)

	return toUint8(acc[0]), toUint8(acc[1]), toUint8(acc[2])
}

func toUint8(v float64) uint8 {
	v = math.Round(v)
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
