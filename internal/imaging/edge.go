package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// Default Canny thresholds on the 8-bit gradient scale.
const (
	DefaultCannyLow  = 50
	DefaultCannyHigh = 150
)

// tan(22.5°), the boundary between horizontal and diagonal gradients.
const tg22 = 0.4142135623730950

// EdgeDetectResult contains an edge-detected image encoded as base64 PNG.
//
// The result is a grayscale image where white pixels (255) represent detected
// edges and black pixels (0) represent non-edges.
type EdgeDetectResult struct {
	// Width of the output image in pixels (same as input).
	Width int `json:"width"`

	// Height of the output image in pixels (same as input).
	Height int `json:"height"`

	// EdgePixels is the number of pixels marked as edges.
	EdgePixels int `json:"edge_pixels"`

	// ImageBase64 is the edge image encoded as base64 PNG.
	ImageBase64 string `json:"image_base64"`

	// MimeType is always "image/png" for edge detection results.
	MimeType string `json:"mime_type"`
}

// EdgeDetect runs the document preprocessing stages followed by Canny and
// returns the edge map as a PNG, which is what contour extraction sees.
//
// Parameters:
//   - img: Source image (color or grayscale).
//   - thresholdLow: Gradient magnitude a pixel must exceed to be an edge
//     candidate. Typical value: 50.
//   - thresholdHigh: Gradient magnitude a pixel must exceed to seed an edge.
//     Typical value: 150.
//
// Returns:
//   - *EdgeDetectResult: Binary edge image as base64 PNG.
//   - error: Non-nil if PNG encoding fails.
func EdgeDetect(img image.Image, thresholdLow, thresholdHigh int) (*EdgeDetectResult, error) {
	edges := Canny(Preprocess(img), thresholdLow, thresholdHigh)

	count := 0
	for _, v := range edges.Pix {
		if v != 0 {
			count++
		}
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, edges, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode edge image: %w", err)
	}

	b := edges.Bounds()
	return &EdgeDetectResult{
		Width:       b.Dx(),
		Height:      b.Dy(),
		EdgePixels:  count,
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    "image/png",
	}, nil
}

// Canny detects edges in a grayscale image and returns a binary map with
// edges at 255 and everything else at 0.
//
// # Algorithm
//
//  1. Gradients: 3x3 Sobel in X and Y. Pixels past the border repeat the
//     nearest edge pixel.
//  2. Magnitude: |Gx| + |Gy|.
//  3. Non-maximum suppression: the gradient direction is bucketed into
//     horizontal, vertical or one of the two diagonals. A pixel survives if
//     its magnitude beats the neighbour behind it and is at least the
//     neighbour ahead (strictly beats both for diagonals). Magnitude outside
//     the image counts as zero.
//  4. Hysteresis: surviving pixels above low are candidates; candidates
//     above high seed edges, which then grow through 8-connected
//     candidates.
func Canny(gray *image.Gray, low, high int) *image.Gray {
	b := gray.Bounds()
	w, h := b.Dx(), b.Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))
	if w == 0 || h == 0 {
		return out
	}

	at := func(x, y int) int {
		x = clamp(x, 0, w-1)
		y = clamp(y, 0, h-1)
		return int(gray.Pix[y*gray.Stride+x])
	}

	dx := make([]int, w*h)
	dy := make([]int, w*h)
	mag := make([]int, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			gx := at(x+1, y-1) + 2*at(x+1, y) + at(x+1, y+1) -
				at(x-1, y-1) - 2*at(x-1, y) - at(x-1, y+1)
			gy := at(x-1, y+1) + 2*at(x, y+1) + at(x+1, y+1) -
				at(x-1, y-1) - 2*at(x, y-1) - at(x+1, y-1)
			i := y*w + x
			dx[i], dy[i] = gx, gy
			mag[i] = abs(gx) + abs(gy)
		}
	}

	m := func(x, y int) int {
		if x < 0 || y < 0 || x >= w || y >= h {
			return 0
		}
		return mag[y*w+x]
	}

	const (
		none = iota
		candidate
		edge
	)
	state := make([]uint8, w*h)
	var stack []int

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*w + x
			v := mag[i]
			if v <= low {
				continue
			}
			ax := float64(abs(dx[i]))
			ay := float64(abs(dy[i]))
			tg22x := ax * tg22

			var peak bool
			switch {
			case ay < tg22x:
				peak = v > m(x-1, y) && v >= m(x+1, y)
			case ay > tg22x+2*ax:
				peak = v > m(x, y-1) && v >= m(x, y+1)
			default:
				s := 1
				if (dx[i] ^ dy[i]) < 0 {
					s = -1
				}
				peak = v > m(x-s, y-1) && v > m(x+s, y+1)
			}
			if !peak {
				continue
			}
			if v > high {
				state[i] = edge
				stack = append(stack, i)
			} else {
				state[i] = candidate
			}
		}
	}

	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		x, y := i%w, i/w
		for ny := y - 1; ny <= y+1; ny++ {
			for nx := x - 1; nx <= x+1; nx++ {
				if nx < 0 || ny < 0 || nx >= w || ny >= h {
					continue
				}
				j := ny*w + nx
				if state[j] == candidate {
					state[j] = edge
					stack = append(stack, j)
				}
			}
		}
	}

	for i, s := range state {
		if s == edge {
			out.Pix[(i/w)*out.Stride+i%w] = 255
		}
	}
	return out
}

// clamp constrains an integer value to the range [lo, hi].
func clamp(val, lo, hi int) int {
	if val < lo {
		return lo
	}
	if val > hi {
		return hi
	}
	return val
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
