package imaging

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"testing"
)

// createRectImage draws a filled rectangle of fg on a bg canvas.
func createRectImage(width, height, x1, y1, x2, y2 int, fg, bg color.Color) *image.RGBA {
	img := solidImage(width, height, bg)
	for y := y1; y <= y2; y++ {
		for x := x1; x <= x2; x++ {
			img.Set(x, y, fg)
		}
	}
	return img
}

func countEdges(g *image.Gray) int {
	n := 0
	for _, v := range g.Pix {
		if v != 0 {
			n++
		}
	}
	return n
}

func TestCanny_UniformImage(t *testing.T) {
	gray := Preprocess(solidImage(60, 40, color.RGBA{128, 128, 128, 255}))
	edges := Canny(gray, DefaultCannyLow, DefaultCannyHigh)
	if n := countEdges(edges); n != 0 {
		t.Errorf("uniform image produced %d edge pixels", n)
	}
}

func TestCanny_RectangleOutline(t *testing.T) {
	img := createRectImage(100, 100, 30, 30, 69, 69, color.White, color.Black)
	edges := Canny(Preprocess(img), DefaultCannyLow, DefaultCannyHigh)

	if countEdges(edges) == 0 {
		t.Fatal("expected edges around the rectangle")
	}

	row := 50
	hasEdgeNear := func(x1, x2 int) bool {
		for x := x1; x <= x2; x++ {
			if edges.GrayAt(x, row).Y != 0 {
				return true
			}
		}
		return false
	}
	if !hasEdgeNear(26, 33) {
		t.Error("missing edge at the left side of the rectangle")
	}
	if !hasEdgeNear(66, 73) {
		t.Error("missing edge at the right side of the rectangle")
	}
	for x := 36; x <= 63; x++ {
		if edges.GrayAt(x, row).Y != 0 {
			t.Errorf("unexpected edge inside the rectangle at x=%d", x)
		}
	}
	for _, p := range []image.Point{{5, 5}, {94, 94}, {50, 5}} {
		if edges.GrayAt(p.X, p.Y).Y != 0 {
			t.Errorf("unexpected edge in background at %v", p)
		}
	}
}

func TestCanny_EdgesAreThin(t *testing.T) {
	img := createRectImage(80, 80, 20, 20, 59, 59, color.White, color.Black)
	edges := Canny(Preprocess(img), DefaultCannyLow, DefaultCannyHigh)

	// Along a row through the middle, each side contributes one edge pixel.
	run := 0
	for x := 0; x < 80; x++ {
		if edges.GrayAt(x, 40).Y != 0 {
			run++
			if run > 1 {
				t.Fatalf("edge wider than one pixel at x=%d", x)
			}
		} else {
			run = 0
		}
	}
}

func TestCanny_Thresholds(t *testing.T) {
	img := createRectImage(60, 60, 20, 20, 39, 39, color.Gray{90}, color.Gray{60})
	gray := Preprocess(img)

	tests := []struct {
		name      string
		low, high int
		wantEdges bool
	}{
		{"sensitive", 10, 30, true},
		{"above strongest gradient", 1000, 2000, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := countEdges(Canny(gray, tt.low, tt.high)) > 0
			if got != tt.wantEdges {
				t.Errorf("edges found = %v, want %v", got, tt.wantEdges)
			}
		})
	}
}

func TestCanny_EmptyImage(t *testing.T) {
	out := Canny(image.NewGray(image.Rect(0, 0, 0, 0)), 50, 150)
	if len(out.Pix) != 0 {
		t.Errorf("expected empty output, got %d pixels", len(out.Pix))
	}
}

func TestEdgeDetect(t *testing.T) {
	img := createRectImage(64, 48, 16, 12, 47, 35, color.White, color.Black)

	result, err := EdgeDetect(img, DefaultCannyLow, DefaultCannyHigh)
	if err != nil {
		t.Fatalf("EdgeDetect failed: %v", err)
	}
	if result.Width != 64 || result.Height != 48 {
		t.Errorf("unexpected dimensions: %dx%d", result.Width, result.Height)
	}
	if result.MimeType != "image/png" {
		t.Errorf("expected image/png, got %s", result.MimeType)
	}
	if result.EdgePixels == 0 {
		t.Error("expected edge pixels")
	}

	data, err := base64.StdEncoding.DecodeString(result.ImageBase64)
	if err != nil {
		t.Fatalf("invalid base64: %v", err)
	}
	decoded, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("invalid png: %v", err)
	}
	if decoded.Bounds().Dx() != 64 || decoded.Bounds().Dy() != 48 {
		t.Errorf("decoded size %v", decoded.Bounds())
	}
}

func TestClamp(t *testing.T) {
	tests := []struct {
		val, lo, hi, want int
	}{
		{5, 0, 10, 5},
		{-5, 0, 10, 0},
		{15, 0, 10, 10},
		{0, 0, 10, 0},
		{10, 0, 10, 10},
	}

	for _, tt := range tests {
		if got := clamp(tt.val, tt.lo, tt.hi); got != tt.want {
			t.Errorf("clamp(%d, %d, %d) = %d, want %d", tt.val, tt.lo, tt.hi, got, tt.want)
		}
	}
}
