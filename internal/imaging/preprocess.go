package imaging

import (
	"image"

	"github.com/anthonynsimon/bild/convolution"
	"github.com/disintegration/imaging"
)

// binomial5 is the 1-D 5-tap Gaussian used when the kernel size is 5 and
// sigma is derived automatically.
var binomial5 = [5]float64{1, 4, 6, 4, 1}

// blurKernel5 returns the normalized 5x5 separable Gaussian kernel.
func blurKernel5() *convolution.Kernel {
	k := convolution.NewKernel(5, 5)
	for y := 0; y < 5; y++ {
		for x := 0; x < 5; x++ {
			k.Matrix[y*5+x] = binomial5[y] * binomial5[x] / 256
		}
	}
	return k
}

// Grayscale converts img to a single-channel intensity image using the
// ITU-R BT.601 weights (0.299 R + 0.587 G + 0.114 B). Alpha is ignored.
func Grayscale(img image.Image) *image.Gray {
	return redChannel(imaging.Grayscale(img))
}

// Blur applies the fixed 5x5 Gaussian to a grayscale image. Pixels past the
// border mirror the image without repeating the edge pixel (dcb|abcd|cba),
// and results are rounded.
func Blur(gray *image.Gray) *image.Gray {
	const r = 2
	b := gray.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return image.NewGray(image.Rect(0, 0, w, h))
	}

	padded := image.NewGray(image.Rect(0, 0, w+2*r, h+2*r))
	for y := 0; y < h+2*r; y++ {
		sy := b.Min.Y + reflect101(y-r, h)
		for x := 0; x < w+2*r; x++ {
			padded.Pix[y*padded.Stride+x] = gray.GrayAt(b.Min.X+reflect101(x-r, w), sy).Y
		}
	}

	blurred := convolution.Convolve(padded, blurKernel5(), &convolution.Options{
		Bias:      0.5,
		Wrap:      false,
		KeepAlpha: true,
	})

	out := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		row := blurred.Pix[(y+r)*blurred.Stride:]
		for x := 0; x < w; x++ {
			out.Pix[y*out.Stride+x] = row[(x+r)*4]
		}
	}
	return out
}

// reflect101 folds i into [0, n) by mirroring about the first and last
// index.
func reflect101(i, n int) int {
	if n == 1 {
		return 0
	}
	for i < 0 || i >= n {
		if i < 0 {
			i = -i
		}
		if i >= n {
			i = 2*(n-1) - i
		}
	}
	return i
}

// Preprocess runs the grayscale and blur stages that precede edge detection.
func Preprocess(img image.Image) *image.Gray {
	return Blur(Grayscale(img))
}

// redChannel copies the R channel of an RGBA-layout image into a Gray.
// After grayscale conversion all three color channels carry the same value.
func redChannel(img image.Image) *image.Gray {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))

	var pix []uint8
	var stride int
	switch src := img.(type) {
	case *image.NRGBA:
		pix, stride = src.Pix, src.Stride
	case *image.RGBA:
		pix, stride = src.Pix, src.Stride
	default:
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				r, _, _, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
				out.Pix[y*out.Stride+x] = uint8(r >> 8)
			}
		}
		return out
	}

	for y := 0; y < h; y++ {
		row := pix[y*stride : y*stride+w*4]
		for x := 0; x < w; x++ {
			out.Pix[y*out.Stride+x] = row[x*4]
		}
	}
	return out
}
