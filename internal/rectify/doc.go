// Package rectify finds flat rectangular documents in a photo and produces a
// straightened, top-down image of each one.
//
// # Pipeline
//
// An Extractor runs the same fixed sequence on every photo:
//
//  1. Grayscale conversion and a 5x5 Gaussian blur
//  2. Canny edge detection with thresholds 50 and 150
//  3. Outermost contour extraction, in raster discovery order
//  4. Per-contour filters: area, four-vertex approximation, convexity
//  5. Corner ordering and output size from the longer opposite edges
//  6. Aspect filter (width/height within [0.5, 2.0])
//  7. Perspective warp into a width×height image
//
// Accepted documents are handed to a Sink numbered from 1 in acceptance order.
// DirSink writes them as transformed_1.jpg, transformed_2.jpg, and so on;
// MemorySink keeps them for further processing.
//
// # Errors
//
// A photo with no documents is not an error; the Result is simply empty. The
// only hard failure is *DecodeError, for input that cannot be read or
// decoded. A sink failure for one document is recorded as an *IOError in
// Result.Dropped and does not stop the others.
//
// # Usage
//
//	ex := rectify.NewExtractor(rectify.DefaultOptions(), logger)
//	res, err := ex.ExtractFile("receipt.jpg", "out")
//	if err != nil {
//	    return err
//	}
//	fmt.Println(res.Handles) // [out/transformed_1.jpg]
package rectify
