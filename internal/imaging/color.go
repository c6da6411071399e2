package imaging

import (
	"image"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// ToneResult summarises the overall color of a page.
type ToneResult struct {
	// Hex is the mean color in "#rrggbb" form.
	Hex string `json:"hex"`

	// Lightness is CIE L* of the mean color, 0 (black) to 1 (white).
	Lightness float64 `json:"lightness"`

	// Saturation is the HSL saturation of the mean color, 0 to 1.
	Saturation float64 `json:"saturation"`

	// Dark is true when the page is darker than mid-gray, which usually
	// means the quad was a dark object rather than paper.
	Dark bool `json:"dark"`
}

// Tone computes the mean color of img. Alpha is ignored.
func Tone(img image.Image) ToneResult {
	b := img.Bounds()
	n := b.Dx() * b.Dy()
	if n == 0 {
		return ToneResult{Hex: "#000000", Dark: true}
	}

	var sr, sg, sb float64
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			sr += float64(r >> 8)
			sg += float64(g >> 8)
			sb += float64(bl >> 8)
		}
	}

	mean := colorful.Color{
		R: sr / float64(n) / 255,
		G: sg / float64(n) / 255,
		B: sb / float64(n) / 255,
	}.Clamped()

	l, _, _ := mean.Lab()
	_, s, _ := mean.Hsl()

	return ToneResult{
		Hex:        mean.Hex(),
		Lightness:  l,
		Saturation: s,
		Dark:       l < 0.5,
	}
}
