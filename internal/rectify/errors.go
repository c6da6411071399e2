package rectify

import (
	"errors"
	"fmt"
)

// ErrDegenerate is returned when four corners do not define an invertible
// perspective mapping (coincident or collinear corners, or a corner that
// maps to infinity).
var ErrDegenerate = errors.New("degenerate quadrilateral")

// DecodeError reports that the input could not be read as an image. It is
// the only failure that aborts an extraction.
type DecodeError struct {
	Source string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("cannot decode image: %v", e.Err)
	}
	return fmt.Sprintf("cannot decode image %s: %v", e.Source, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// IOError reports that an accepted document could not be written. The
// document's number stays consumed and extraction continues.
type IOError struct {
	Index  int
	Handle string
	Err    error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("failed to write document %d (%s): %v", e.Index, e.Handle, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// RejectReason names the filter that discarded a contour.
type RejectReason string

const (
	RejectArea       RejectReason = "area"
	RejectVertices   RejectReason = "vertices"
	RejectConvexity  RejectReason = "convexity"
	RejectAspect     RejectReason = "aspect"
	RejectDegenerate RejectReason = "degenerate"
)

// Rejections counts discarded contours by reason.
type Rejections map[RejectReason]int

// Total returns the number of rejected contours.
func (r Rejections) Total() int {
	n := 0
	for _, c := range r {
		n += c
	}
	return n
}
