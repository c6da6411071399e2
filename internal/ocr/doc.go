// Package ocr reads text from rectified document pages using Tesseract.
//
// This package wraps the Tesseract OCR engine (via gosseract/v2). Pages are
// passed in memory; nothing is written to temporary files.
//
// # Prerequisites
//
// Tesseract and its language data must be installed on the system:
//   - Ubuntu/Debian: apt-get install tesseract-ocr tesseract-ocr-eng
//   - macOS: brew install tesseract
//
// # Languages
//
// The default language is English ("eng"). Other languages are selected with
// their Tesseract codes, for example "deu", "fra" or "chi_sim".
package ocr
