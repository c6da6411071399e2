package detection

import (
	"image"
)

// Contour is an ordered, closed sequence of boundary points.
type Contour []Point

// neighbour directions in (row, col) order, counterclockwise starting east
// (rows grow downward): E, NE, N, NW, W, SW, S, SE.
var dirRows = [8]int{0, -1, -1, -1, 0, 1, 1, 1}
var dirCols = [8]int{1, 1, 0, -1, -1, -1, 0, 1}

// FindExternalContours traces the outer borders of the foreground regions
// in a binary image. Any non-zero pixel counts as foreground.
//
// Borders are found with Suzuki-Abe border following over a copy of the
// image padded with one background pixel on every side, so regions that
// touch the image edge still produce closed borders. Only outer borders
// whose parent is the image frame are returned: a region lying inside the
// hole of another region is skipped.
//
// Each contour is compressed to the points where the chain changes
// direction; straight horizontal, vertical and diagonal runs keep only
// their end points. An isolated pixel yields a single-point contour.
//
// Contours are returned in discovery order (raster order of each border's
// first pixel).
//
// # Labels
//
// The working array holds 0 for background, 1 for unvisited foreground,
// and ±NBD for pixels on border NBD. A negative label marks a pixel whose
// east neighbour is background, which is how the scan later recognises
// that it is leaving a region.
func FindExternalContours(img *image.Gray) []Contour {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return nil
	}

	stride := w + 2
	f := make([]int32, stride*(h+2))
	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+w]
		for x, v := range row {
			if v != 0 {
				f[(y+1)*stride+x+1] = 1
			}
		}
	}

	var offs [8]int
	for d := range offs {
		offs[d] = dirRows[d]*stride + dirCols[d]
	}

	// Border 1 is the frame, which behaves as a hole border.
	holes := []bool{false, true}
	parents := []int32{0, 0}
	nbd := int32(1)

	var out []Contour
	for i := 1; i <= h; i++ {
		lnbd := int32(1)
		for j := 1; j <= w; j++ {
			p := i*stride + j
			v := f[p]
			if v == 0 {
				continue
			}

			var start int
			hole := false
			switch {
			case v == 1 && f[p-1] == 0:
				start = 4
			case v >= 1 && f[p+1] == 0:
				hole = true
				start = 0
				if v > 1 {
					lnbd = v
				}
			default:
				if v != 1 {
					lnbd = abs32(v)
				}
				continue
			}

			nbd++
			parent := lnbd
			if hole == holes[lnbd] {
				parent = parents[lnbd]
			}
			holes = append(holes, hole)
			parents = append(parents, parent)

			chain := followBorder(f, offs, p, start, nbd)
			if !hole && parent == 1 {
				c := make(Contour, len(chain))
				for k, q := range chain {
					c[k] = Point{X: q%stride - 1, Y: q/stride - 1}
				}
				out = append(out, c)
			}

			if f[p] != 1 {
				lnbd = abs32(f[p])
			}
		}
	}
	return out
}

// followBorder walks one border starting at p0, whose background neighbour
// lies in direction start. It relabels the border pixels with nbd and
// returns the direction-change points as flat indexes into f.
func followBorder(f []int32, offs [8]int, p0, start int, nbd int32) []int {
	s := start
	found := false
	for {
		s = (s - 1) & 7
		if f[p0+offs[s]] != 0 {
			found = true
			break
		}
		if s == start {
			break
		}
	}
	if !found {
		f[p0] = -nbd
		return []int{p0}
	}

	p1 := p0 + offs[s]
	p3 := p0
	prev := s ^ 4
	var chain []int
	for {
		from := s
		eastClear := false
		p4 := p3
		for k := 1; k <= 8; k++ {
			d := (from + k) & 7
			q := p3 + offs[d]
			if f[q] != 0 {
				s = d
				p4 = q
				break
			}
			if d == 0 {
				eastClear = true
			}
		}

		if eastClear {
			f[p3] = -nbd
		} else if f[p3] == 1 {
			f[p3] = nbd
		}

		if s != prev {
			chain = append(chain, p3)
			prev = s
		}

		if p4 == p0 && p3 == p1 {
			break
		}
		p3 = p4
		s = (s + 4) & 7
	}
	return chain
}

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}
