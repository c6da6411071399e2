package detection

import "math"

// Area returns the absolute area enclosed by the closed polygon pts,
// computed with the shoelace formula.
func Area(pts []Point) float64 {
	n := len(pts)
	if n < 3 {
		return 0
	}
	var sum float64
	prev := pts[n-1]
	for _, p := range pts {
		sum += float64(prev.X)*float64(p.Y) - float64(p.X)*float64(prev.Y)
		prev = p
	}
	return math.Abs(sum) / 2
}

// ArcLength returns the perimeter of the closed polygon pts.
func ArcLength(pts []Point) float64 {
	n := len(pts)
	if n < 2 {
		return 0
	}
	var total float64
	prev := pts[n-1].Float()
	for _, p := range pts {
		q := p.Float()
		total += q.Dist(prev)
		prev = q
	}
	return total
}

type span struct{ start, end int }

// ApproxPolygon simplifies the closed polygon pts with the Douglas-Peucker
// algorithm so that no dropped point lies farther than epsilon from the
// result.
//
// # Algorithm
//
//  1. Anchors: starting from pts[0], hop three times to the point farthest
//     from the current one. The last hop gives two anchors that split the
//     ring into two chains.
//  2. Split: each chain keeps its start point when every interior point is
//     within epsilon of the chord, otherwise it splits at the farthest
//     point and both halves are processed, left half first.
//  3. Clean-up: a vertex is removed when it lies within epsilon/√2 of the
//     segment joining its neighbours, sits between them, and that segment
//     is neither horizontal nor vertical.
//
// The returned polygon starts at the first anchor.
func ApproxPolygon(pts []Point, epsilon float64) []Point {
	n := len(pts)
	if n == 0 {
		return nil
	}
	eps := epsilon * epsilon

	// 1. anchors
	pos := 0
	far := 0
	closeEnough := false
	for iter := 0; iter < 3; iter++ {
		pos = (pos + far) % n
		origin := pts[pos]
		maxDist := 0.0
		for j := 1; j < n; j++ {
			p := pts[(pos+j)%n]
			dx := float64(p.X - origin.X)
			dy := float64(p.Y - origin.Y)
			if d := dx*dx + dy*dy; d > maxDist {
				maxDist = d
				far = j
			}
		}
		closeEnough = maxDist <= eps
	}
	if closeEnough {
		return []Point{pts[pos]}
	}

	a := pos
	bIdx := (far + pos) % n
	stack := []span{{bIdx, a}, {a, bIdx}}
	dst := make([]Point, 0, n)

	// 2. split
	for len(stack) > 0 {
		sl := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		first := pts[sl.start]
		last := pts[sl.end]
		i := (sl.start + 1) % n
		keep := true
		split := 0
		if i != sl.end {
			dx := float64(last.X - first.X)
			dy := float64(last.Y - first.Y)
			maxDist := 0.0
			for ; i != sl.end; i = (i + 1) % n {
				p := pts[i]
				var d float64
				if dx == 0 && dy == 0 {
					px := float64(p.X - first.X)
					py := float64(p.Y - first.Y)
					d = math.Sqrt(px*px + py*py)
				} else {
					d = math.Abs(float64(p.Y-first.Y)*dx - float64(p.X-first.X)*dy)
				}
				if d > maxDist {
					maxDist = d
					split = i
				}
			}
			if dx == 0 && dy == 0 {
				keep = maxDist*maxDist <= eps
			} else {
				keep = maxDist*maxDist <= eps*(dx*dx+dy*dy)
			}
		}

		if keep {
			dst = append(dst, first)
			continue
		}
		stack = append(stack, span{split, sl.end}, span{sl.start, split})
	}

	return removeFlatVertices(dst, eps)
}

// removeFlatVertices runs the clean-up pass in place over the ring dst.
// eps is the squared tolerance.
func removeFlatVertices(dst []Point, eps float64) []Point {
	count := len(dst)
	kept := count
	pos := count - 1
	read := func() Point {
		p := dst[pos]
		pos++
		if pos >= count {
			pos = 0
		}
		return p
	}

	start := read()
	wpos := pos
	pt := read()
	for i := 0; i < count && kept > 2; i++ {
		end := read()
		dx := float64(end.X - start.X)
		dy := float64(end.Y - start.Y)
		dist := math.Abs(float64(pt.X-start.X)*dy - float64(pt.Y-start.Y)*dx)
		inner := float64(pt.X-start.X)*float64(end.X-pt.X) + float64(pt.Y-start.Y)*float64(end.Y-pt.Y)

		if dist*dist <= 0.5*eps*(dx*dx+dy*dy) && dx != 0 && dy != 0 && inner >= 0 {
			kept--
			start = end
			dst[wpos] = end
			wpos = (wpos + 1) % count
			pt = read()
			i++
			continue
		}
		start = pt
		dst[wpos] = pt
		wpos = (wpos + 1) % count
		pt = end
	}
	return dst[:kept]
}

// IsConvex reports whether the closed polygon pts turns the same way at
// every vertex. A zero turn (collinear or repeated vertex) counts as
// non-convex.
func IsConvex(pts []Point) bool {
	n := len(pts)
	if n < 3 {
		return false
	}
	prev := pts[n-2]
	cur := pts[n-1]
	dx0 := cur.X - prev.X
	dy0 := cur.Y - prev.Y
	orientation := 0
	for _, p := range pts {
		prev, cur = cur, p
		dx := cur.X - prev.X
		dy := cur.Y - prev.Y
		dxdy0 := dx * dy0
		dydx0 := dy * dx0
		switch {
		case dydx0 > dxdy0:
			orientation |= 1
		case dydx0 < dxdy0:
			orientation |= 2
		default:
			orientation |= 3
		}
		if orientation == 3 {
			return false
		}
		dx0, dy0 = dx, dy
	}
	return true
}
