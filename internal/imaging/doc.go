// Package imaging provides the raster stages of document extraction.
//
// It decodes photos with their EXIF orientation applied, converts them to
// intensity, smooths them and runs Canny edge detection, producing the
// binary edge map the detection package traces. It also encodes rectified
// pages as JPEG and summarises their tone.
//
// # Pipeline Stages
//
//  1. Decode: [Decode] or [ImageCache.Load], orientation applied
//  2. Grayscale: ITU-R BT.601 luminance via [Grayscale]
//  3. Blur: fixed 5x5 binomial kernel via [Blur]
//  4. Edges: [Canny] with thresholds 50/150 by default
//
// [Preprocess] runs stages 2 and 3 together.
//
// # Coordinate System
//
// All pixel coordinates are 0-based with the origin at the top-left corner.
// Every image this package returns has its origin at (0, 0), whatever the
// bounds of the input.
//
// # Thread Safety
//
// ImageCache is safe for concurrent use. All other functions are stateless
// and never modify their inputs.
package imaging
