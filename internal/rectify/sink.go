package rectify

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sync"

	imgutil "github.com/ironsheep/docscan-mcp/internal/imaging"
)

// Sink receives rectified documents in acceptance order. index starts at 1.
// The returned handle identifies the stored document to callers (a file
// path for DirSink).
type Sink interface {
	Put(index int, doc image.Image) (handle string, err error)
}

// OutputName returns the file name used for the document with the given
// 1-based acceptance number.
func OutputName(index int) string {
	return fmt.Sprintf("transformed_%d.jpg", index)
}

// DirSink writes each document as a JPEG file named by OutputName inside Dir.
// Existing files with the same name are overwritten.
type DirSink struct {
	Dir     string
	Quality int
}

// NewDirSink returns a sink writing into dir. A quality outside [1, 100]
// selects the default JPEG quality.
func NewDirSink(dir string, quality int) *DirSink {
	if quality < 1 || quality > 100 {
		quality = imgutil.DefaultJPEGQuality
	}
	return &DirSink{Dir: dir, Quality: quality}
}

// Put encodes doc to Dir/transformed_<index>.jpg. The directory is created
// when missing.
func (s *DirSink) Put(index int, doc image.Image) (string, error) {
	path := filepath.Join(s.Dir, OutputName(index))
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return path, fmt.Errorf("failed to create output directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return path, fmt.Errorf("failed to create output file: %w", err)
	}
	if err := imgutil.EncodeJPEG(f, doc, s.Quality); err != nil {
		f.Close()
		os.Remove(path)
		return path, err
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return path, fmt.Errorf("failed to close output file: %w", err)
	}
	return path, nil
}

// MemorySink keeps documents in memory, for callers that post-process the
// pages (OCR, previews) without touching disk.
type MemorySink struct {
	mu    sync.Mutex
	pages []image.Image
}

// Put stores doc and returns a "memory:<index>" handle.
func (s *MemorySink) Put(index int, doc image.Image) (string, error) {
	s.mu.Lock()
	s.pages = append(s.pages, doc)
	s.mu.Unlock()
	return fmt.Sprintf("memory:%d", index), nil
}

// Pages returns the stored documents in acceptance order.
func (s *MemorySink) Pages() []image.Image {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]image.Image(nil), s.pages...)
}
