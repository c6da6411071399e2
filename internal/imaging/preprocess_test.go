package imaging

import (
	"image"
	"image/color"
	"testing"
)

func TestGrayscale_BT601(t *testing.T) {
	tests := []struct {
		name string
		c    color.Color
		want uint8
	}{
		{"red", color.RGBA{255, 0, 0, 255}, 76},
		{"green", color.RGBA{0, 255, 0, 255}, 150},
		{"blue", color.RGBA{0, 0, 255, 255}, 29},
		{"white", color.White, 255},
		{"black", color.Black, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gray := Grayscale(solidImage(4, 3, tt.c))
			if b := gray.Bounds(); b.Dx() != 4 || b.Dy() != 3 {
				t.Fatalf("unexpected size %dx%d", b.Dx(), b.Dy())
			}
			if got := gray.GrayAt(2, 1).Y; got != tt.want {
				t.Errorf("gray = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestGrayscale_IgnoresOrigin(t *testing.T) {
	src := image.NewRGBA(image.Rect(10, 10, 14, 12))
	for y := 10; y < 12; y++ {
		for x := 10; x < 14; x++ {
			src.Set(x, y, color.White)
		}
	}
	gray := Grayscale(src)
	if gray.Bounds().Min != (image.Point{}) {
		t.Errorf("expected zero origin, got %v", gray.Bounds().Min)
	}
	if gray.GrayAt(0, 0).Y != 255 {
		t.Errorf("expected white, got %d", gray.GrayAt(0, 0).Y)
	}
}

func TestBlur_Uniform(t *testing.T) {
	gray := image.NewGray(image.Rect(0, 0, 12, 12))
	for i := range gray.Pix {
		gray.Pix[i] = 100
	}

	out := Blur(gray)
	for y := 0; y < 12; y++ {
		for x := 0; x < 12; x++ {
			if v := out.GrayAt(x, y).Y; v != 100 {
				t.Fatalf("pixel (%d,%d) = %d, want 100", x, y, v)
			}
		}
	}
}

func TestBlur_SpotMatchesBinomialKernel(t *testing.T) {
	gray := image.NewGray(image.Rect(0, 0, 9, 9))
	gray.SetGray(4, 4, color.Gray{255})

	out := Blur(gray)

	tests := []struct {
		x, y int
		want uint8
	}{
		{4, 4, 36}, // 255*36/256
		{5, 4, 24}, // 255*24/256
		{6, 6, 1},  // 255*1/256
		{4, 7, 0},  // outside the 5x5 footprint
	}
	for _, tt := range tests {
		if got := out.GrayAt(tt.x, tt.y).Y; got != tt.want {
			t.Errorf("pixel (%d,%d) = %d, want %d", tt.x, tt.y, got, tt.want)
		}
	}

	// The kernel is symmetric.
	if out.GrayAt(3, 4) != out.GrayAt(5, 4) || out.GrayAt(4, 3) != out.GrayAt(4, 5) {
		t.Error("blur is not symmetric around the spot")
	}
}

func TestBlur_MirrorsBorder(t *testing.T) {
	// A bright left column. Mirroring without repeating the edge pixel
	// leaves only the center tap on column 0 at x=0.
	gray := image.NewGray(image.Rect(0, 0, 8, 6))
	for y := 0; y < 6; y++ {
		gray.SetGray(0, y, color.Gray{255})
	}

	out := Blur(gray)
	tests := []struct {
		x    int
		want uint8
	}{
		{0, 96}, // 255*6/16
		{1, 64}, // 255*4/16
		{2, 16}, // 255*1/16
		{3, 0},
	}
	for _, tt := range tests {
		for y := 0; y < 6; y++ {
			if got := out.GrayAt(tt.x, y).Y; got != tt.want {
				t.Errorf("pixel (%d,%d) = %d, want %d", tt.x, y, got, tt.want)
			}
		}
	}
}

func TestReflect101(t *testing.T) {
	tests := []struct {
		i, n, want int
	}{
		{0, 5, 0},
		{-1, 5, 1},
		{-2, 5, 2},
		{5, 5, 3},
		{6, 5, 2},
		{-2, 2, 0},
		{3, 2, 1},
		{-2, 1, 0},
		{2, 1, 0},
	}
	for _, tt := range tests {
		if got := reflect101(tt.i, tt.n); got != tt.want {
			t.Errorf("reflect101(%d, %d) = %d, want %d", tt.i, tt.n, got, tt.want)
		}
	}
}

func TestBlur_Empty(t *testing.T) {
	if out := Blur(image.NewGray(image.Rect(0, 0, 0, 0))); out.Bounds().Dx() != 0 {
		t.Errorf("unexpected bounds %v", out.Bounds())
	}
}

func TestBlurKernel5_SumsToOne(t *testing.T) {
	k := blurKernel5()
	var sum float64
	for _, v := range k.Matrix {
		sum += v
	}
	if absFloat(sum-1) > 1e-12 {
		t.Errorf("kernel sum = %v, want 1", sum)
	}
	if k.Matrix[12] != 36.0/256 {
		t.Errorf("center weight = %v, want 36/256", k.Matrix[12])
	}
}

func absFloat(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
