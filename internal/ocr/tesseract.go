package ocr

import (
	"bytes"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"
)

// DefaultLanguage is used when a Reader is created with an empty language.
const DefaultLanguage = "eng"

// minPageHeight is the height below which pages are upscaled before OCR.
// Tesseract accuracy drops sharply on small glyphs.
const minPageHeight = 900

// Word is one recognized word and where it sits on the page.
type Word struct {
	// Text is the recognized word.
	Text string `json:"text"`

	// Confidence is Tesseract's score scaled to 0.0-1.0.
	Confidence float64 `json:"confidence"`

	// Bounds is the word box in page coordinates.
	Bounds image.Rectangle `json:"bounds"`
}

// Result holds the text read from one page.
type Result struct {
	// Text is all recognized text with Tesseract's line breaks.
	Text string `json:"text"`

	// Words may be empty when word boxes are unavailable; Text is still set.
	Words []Word `json:"words"`
}

// Reader runs Tesseract on in-memory pages. Each call opens its own client,
// so a Reader is safe for concurrent use.
type Reader struct {
	language string
}

// NewReader returns a Reader for the given Tesseract language code
// ("eng", "deu", ...). The language data must be installed.
func NewReader(language string) *Reader {
	if language == "" {
		language = DefaultLanguage
	}
	return &Reader{language: language}
}

// Language returns the Tesseract language code in use.
func (r *Reader) Language() string {
	return r.language
}

// ReadImage performs OCR on a single page.
//
// The page is converted to grayscale, given a mild contrast boost and
// upscaled when shorter than 900 pixels. Word bounds are mapped back to the
// coordinates of img.
func (r *Reader) ReadImage(img image.Image) (*Result, error) {
	b := img.Bounds()
	if b.Empty() {
		return nil, fmt.Errorf("failed to read page: empty image")
	}

	page, scale := prepare(img)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, page, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode page: %w", err)
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(r.language); err != nil {
		return nil, fmt.Errorf("failed to set language: %w", err)
	}
	if err := client.SetImageFromBytes(buf.Bytes()); err != nil {
		return nil, fmt.Errorf("failed to set image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return nil, fmt.Errorf("OCR failed: %w", err)
	}

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return &Result{Text: text, Words: []Word{}}, nil
	}

	words := make([]Word, 0, len(boxes))
	for _, box := range boxes {
		if box.Word == "" {
			continue
		}
		words = append(words, Word{
			Text:       box.Word,
			Confidence: box.Confidence / 100.0,
			Bounds:     unscale(box.Box, scale).Add(b.Min),
		})
	}
	return &Result{Text: text, Words: words}, nil
}

// ReadPages reads each page in order. The first failure stops the run.
func (r *Reader) ReadPages(pages []image.Image) ([]*Result, error) {
	results := make([]*Result, 0, len(pages))
	for i, p := range pages {
		res, err := r.ReadImage(p)
		if err != nil {
			return results, fmt.Errorf("page %d: %w", i+1, err)
		}
		results = append(results, res)
	}
	return results, nil
}

// Version returns the linked Tesseract version.
func Version() string {
	client := gosseract.NewClient()
	defer client.Close()
	return client.Version()
}

// prepare returns the OCR input for img and the factor it was upscaled by.
// The result always has its origin at (0, 0).
func prepare(img image.Image) (*image.NRGBA, float64) {
	gray := imaging.Grayscale(img)
	gray = imaging.AdjustContrast(gray, 15)

	scale := 1.0
	if h := gray.Bounds().Dy(); h < minPageHeight {
		scale = float64(minPageHeight) / float64(h)
		gray = imaging.Resize(gray, 0, minPageHeight, imaging.Lanczos)
	}
	return gray, scale
}

// unscale maps a rectangle in upscaled coordinates back to the original.
func unscale(r image.Rectangle, scale float64) image.Rectangle {
	if scale == 1 {
		return r
	}
	f := func(v int) int { return int(float64(v)/scale + 0.5) }
	return image.Rect(f(r.Min.X), f(r.Min.Y), f(r.Max.X), f(r.Max.Y))
}
