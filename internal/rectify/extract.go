package rectify

import (
	"fmt"
	"image"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/docscan-mcp/internal/detection"
	imgutil "github.com/ironsheep/docscan-mcp/internal/imaging"
)

// Fixed pipeline constants.
const (
	// ApproxFactor scales a contour's perimeter into the polygon
	// approximation tolerance.
	ApproxFactor = 0.02

	// MinAspect and MaxAspect bound width/height of an accepted document.
	MinAspect = 0.5
	MaxAspect = 2.0
)

// Options tunes the area filter and output encoding.
type Options struct {
	// MinArea is the smallest contour area, in square pixels, considered a
	// document.
	MinArea float64

	// MaxAreaRatio caps contour area as a fraction of the image area, which
	// keeps the photo's own frame from being picked up.
	MaxAreaRatio float64

	// JPEGQuality is used by ExtractFile when writing documents.
	JPEGQuality int
}

// DefaultOptions returns MinArea 1000, MaxAreaRatio 0.9 and JPEG quality 95.
func DefaultOptions() Options {
	return Options{
		MinArea:      1000,
		MaxAreaRatio: 0.9,
		JPEGQuality:  imgutil.DefaultJPEGQuality,
	}
}

// Validate reports the first out-of-range option.
func (o Options) Validate() error {
	if o.MinArea < 0 {
		return fmt.Errorf("min area must not be negative, got %v", o.MinArea)
	}
	if o.MaxAreaRatio <= 0 || o.MaxAreaRatio > 1 {
		return fmt.Errorf("max area ratio must be in (0, 1], got %v", o.MaxAreaRatio)
	}
	if o.JPEGQuality < 1 || o.JPEGQuality > 100 {
		return fmt.Errorf("jpeg quality must be in [1, 100], got %d", o.JPEGQuality)
	}
	return nil
}

// Candidate is a contour that passed every geometric filter.
type Candidate struct {
	// Contour is the index of the source contour in discovery order.
	Contour int `json:"contour"`

	// Quad holds the ordered corners in source image coordinates.
	Quad detection.Quad `json:"quad"`

	// Area is the contour area in square pixels.
	Area float64 `json:"area"`

	// Width and Height are the rectified output dimensions.
	Width  int `json:"width"`
	Height int `json:"height"`

	// Bounds is the axis-aligned box around Quad and Center its centroid,
	// for clients that highlight the document on the photo.
	Bounds detection.Bounds `json:"bounds"`
	Center detection.PointF `json:"center"`
}

// Detection is the outcome of the geometric stages on one image.
type Detection struct {
	ImageWidth  int         `json:"image_width"`
	ImageHeight int         `json:"image_height"`
	Contours    int         `json:"contours"`
	Candidates  []Candidate `json:"candidates"`
	Rejected    Rejections  `json:"rejected"`
}

// Document is one rectified output.
type Document struct {
	Candidate

	// Index is the 1-based acceptance number.
	Index int `json:"index"`

	// Handle is what the sink returned for the stored page.
	Handle string `json:"handle"`

	// Tone summarises the page color.
	Tone imgutil.ToneResult `json:"tone"`
}

// Result lists what one extraction produced. An empty result is not an
// error.
type Result struct {
	// Handles holds one entry per stored document, in acceptance order.
	Handles []string `json:"handles"`

	Documents []Document `json:"documents"`
	Rejected  Rejections `json:"rejected"`

	// Dropped lists accepted documents the sink failed to store.
	Dropped []*IOError `json:"-"`
}

// Extractor finds flat rectangular documents in photos and rectifies them.
// It holds no per-call state and is safe for concurrent use.
type Extractor struct {
	opts Options
	log  logrus.FieldLogger
}

// NewExtractor returns an Extractor. A nil logger discards all output.
func NewExtractor(opts Options, logger logrus.FieldLogger) *Extractor {
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = l
	}
	return &Extractor{opts: opts, log: logger}
}

// Options returns the extractor's configuration.
func (e *Extractor) Options() Options {
	return e.opts
}

// Detect runs preprocessing, edge detection, contour extraction and the
// per-contour filters without rectifying anything.
//
// Contours are examined in discovery order. A contour is rejected when:
//   - its area is below MinArea or above image area × MaxAreaRatio
//   - its polygon approximation (tolerance 2% of the perimeter) does not
//     have exactly four vertices
//   - that quadrilateral is not convex
//   - its rectified width or height is zero, or its corners do not define
//     an invertible perspective mapping
//   - width/height falls outside [MinAspect, MaxAspect]
func (e *Extractor) Detect(img image.Image) *Detection {
	b := img.Bounds()
	det := &Detection{
		ImageWidth:  b.Dx(),
		ImageHeight: b.Dy(),
		Rejected:    Rejections{},
	}

	edges := imgutil.Canny(imgutil.Preprocess(img), imgutil.DefaultCannyLow, imgutil.DefaultCannyHigh)
	contours := detection.FindExternalContours(edges)
	det.Contours = len(contours)

	maxArea := float64(b.Dx()) * float64(b.Dy()) * e.opts.MaxAreaRatio
	for i, c := range contours {
		cand, reason := e.examine(c, maxArea)
		if reason != "" {
			det.Rejected[reason]++
			e.log.WithFields(logrus.Fields{
				"contour": i,
				"reason":  reason,
			}).Trace("contour rejected")
			continue
		}
		cand.Contour = i
		det.Candidates = append(det.Candidates, cand)
	}

	e.log.WithFields(logrus.Fields{
		"contours":   det.Contours,
		"candidates": len(det.Candidates),
		"rejected":   det.Rejected.Total(),
	}).Debug("detection complete")
	return det
}

func (e *Extractor) examine(c detection.Contour, maxArea float64) (Candidate, RejectReason) {
	area := detection.Area(c)
	if area < e.opts.MinArea || area > maxArea {
		return Candidate{}, RejectArea
	}

	approx := detection.ApproxPolygon(c, ApproxFactor*detection.ArcLength(c))
	if len(approx) != 4 {
		return Candidate{}, RejectVertices
	}
	if !detection.IsConvex(approx) {
		return Candidate{}, RejectConvexity
	}

	q := detection.OrderQuad([4]detection.Point(approx))
	w, h := q.Dimensions()
	if w == 0 || h == 0 {
		return Candidate{}, RejectDegenerate
	}
	aspect := float64(w) / float64(h)
	if aspect < MinAspect || aspect > MaxAspect {
		return Candidate{}, RejectAspect
	}
	if _, err := PerspectiveTransform(q, RectangleCorners(w, h)); err != nil {
		return Candidate{}, RejectDegenerate
	}

	return Candidate{
		Quad:   q,
		Area:   area,
		Width:  w,
		Height: h,
		Bounds: q.Bounds(),
		Center: q.Center(),
	}, ""
}

// ExtractImage detects documents in img, rectifies each accepted one and
// hands it to sink numbered from 1 in acceptance order.
//
// A sink failure is logged and recorded in Result.Dropped; the document's
// number is not reused and the remaining documents are still processed.
func (e *Extractor) ExtractImage(img image.Image, sink Sink) *Result {
	det := e.Detect(img)
	res := &Result{Rejected: det.Rejected}

	next := 1
	for _, cand := range det.Candidates {
		page, err := Warp(img, cand.Quad, cand.Width, cand.Height)
		if err != nil {
			res.Rejected[RejectDegenerate]++
			e.log.WithError(err).WithField("contour", cand.Contour).Debug("rectification skipped")
			continue
		}

		index := next
		next++
		handle, err := sink.Put(index, page)
		if err != nil {
			ioErr := &IOError{Index: index, Handle: handle, Err: err}
			res.Dropped = append(res.Dropped, ioErr)
			e.log.WithError(err).WithFields(logrus.Fields{
				"index":  index,
				"handle": handle,
			}).Warn("failed to store document")
			continue
		}

		res.Handles = append(res.Handles, handle)
		res.Documents = append(res.Documents, Document{
			Candidate: cand,
			Index:     index,
			Handle:    handle,
			Tone:      imgutil.Tone(page),
		})
		e.log.WithFields(logrus.Fields{
			"index":  index,
			"handle": handle,
			"width":  cand.Width,
			"height": cand.Height,
		}).Debug("document stored")
	}
	return res
}

// ExtractReader decodes an image from r and extracts its documents into
// sink. The only error returned is *DecodeError.
func (e *Extractor) ExtractReader(r io.Reader, sink Sink) (*Result, error) {
	img, err := imgutil.Decode(r)
	if err != nil {
		return nil, &DecodeError{Err: err}
	}
	return e.ExtractImage(img, sink), nil
}

// ExtractFile extracts the documents in the image at path and writes them
// to outDir as transformed_1.jpg, transformed_2.jpg, and so on. The
// returned handles are the written file paths.
//
// The only error returned is *DecodeError, for a missing, unreadable or
// corrupt input. Write failures are reported in Result.Dropped.
func (e *Extractor) ExtractFile(path, outDir string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &DecodeError{Source: path, Err: err}
	}
	defer f.Close()

	img, err := imgutil.Decode(f)
	if err != nil {
		return nil, &DecodeError{Source: path, Err: err}
	}

	sink := NewDirSink(outDir, e.opts.JPEGQuality)
	res := e.ExtractImage(img, sink)
	e.log.WithFields(logrus.Fields{
		"source":    path,
		"documents": len(res.Handles),
		"dropped":   len(res.Dropped),
	}).Info("extraction complete")
	return res, nil
}
