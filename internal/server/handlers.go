package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"path/filepath"
	"sync"

	"github.com/ironsheep/docscan-mcp/internal/imaging"
	"github.com/ironsheep/docscan-mcp/internal/ocr"
	"github.com/ironsheep/docscan-mcp/internal/rectify"
)

// DefaultThumbnailSize is the longest preview side when a client asks for
// thumbnails without giving a size.
const DefaultThumbnailSize = 256

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "image_load", "document_extract").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(params.Name, params.Arguments)
	if err != nil {
		s.log.WithError(err).WithField("tool", params.Name).Warn("tool failed")
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
func (s *Server) executeTool(name string, args json.RawMessage) (interface{}, error) {
	switch name {
	// Photo Information
	case "image_load":
		return s.handleImageLoad(args)
	case "image_dimensions":
		return s.handleImageDimensions(args)
	case "image_unload":
		return s.handleImageUnload(args)
	case "image_edge_detect":
		return s.handleImageEdgeDetect(args)

	// Document Operations
	case "document_detect":
		return s.handleDocumentDetect(args)
	case "document_extract":
		return s.handleDocumentExtract(args)
	case "document_ocr":
		return s.handleDocumentOCR(args)

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// On marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// decodeArgs unmarshals args and checks that a path was given.
func decodeArgs(args json.RawMessage, v interface{ target() string }) error {
	if err := json.Unmarshal(args, v); err != nil {
		return err
	}
	if v.target() == "" {
		return errors.New("path is required")
	}
	return nil
}

// === Photo Information Handlers ===

type imageLoadArgs struct {
	Path string `json:"path"`
}

func (a *imageLoadArgs) target() string { return a.Path }

func (s *Server) handleImageLoad(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	return imaging.LoadImageInfo(s.cache, a.Path)
}

func (s *Server) handleImageDimensions(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	return imaging.GetDimensions(s.cache, a.Path)
}

func (s *Server) handleImageUnload(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"evicted": s.cache.Evict(a.Path),
		"cached":  s.cache.Len(),
	}, nil
}

type imageEdgeDetectArgs struct {
	Path          string `json:"path"`
	ThresholdLow  int    `json:"threshold_low"`
	ThresholdHigh int    `json:"threshold_high"`
}

func (a *imageEdgeDetectArgs) target() string { return a.Path }

func (s *Server) handleImageEdgeDetect(args json.RawMessage) (interface{}, error) {
	var a imageEdgeDetectArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.ThresholdLow == 0 {
		a.ThresholdLow = imaging.DefaultCannyLow
	}
	if a.ThresholdHigh == 0 {
		a.ThresholdHigh = imaging.DefaultCannyHigh
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	return imaging.EdgeDetect(img, a.ThresholdLow, a.ThresholdHigh)
}

// === Document Handlers ===

type documentArgs struct {
	Path         string   `json:"path"`
	MinArea      *float64 `json:"min_area"`
	MaxAreaRatio *float64 `json:"max_area_ratio"`
}

func (a *documentArgs) target() string { return a.Path }

// extractor returns the server's extractor, or a copy with the per-call
// area overrides applied.
func (s *Server) extractor(a documentArgs) (*rectify.Extractor, error) {
	if a.MinArea == nil && a.MaxAreaRatio == nil {
		return s.ex, nil
	}
	opts := s.ex.Options()
	if a.MinArea != nil {
		opts.MinArea = *a.MinArea
	}
	if a.MaxAreaRatio != nil {
		opts.MaxAreaRatio = *a.MaxAreaRatio
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return rectify.NewExtractor(opts, s.log), nil
}

// loadPhoto returns the cached photo at path. Failures are reported as
// *rectify.DecodeError.
func (s *Server) loadPhoto(path string) (image.Image, error) {
	img, err := s.cache.Load(path)
	if err != nil {
		return nil, &rectify.DecodeError{Source: path, Err: err}
	}
	return img, nil
}

func (s *Server) handleDocumentDetect(args json.RawMessage) (interface{}, error) {
	var a documentArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	ex, err := s.extractor(a)
	if err != nil {
		return nil, err
	}
	img, err := s.loadPhoto(a.Path)
	if err != nil {
		return nil, err
	}
	return ex.Detect(img), nil
}

type documentExtractArgs struct {
	documentArgs
	OutputDir     string `json:"output_dir"`
	Thumbnails    bool   `json:"thumbnails"`
	ThumbnailSize int    `json:"thumbnail_size"`
}

// DocumentExtractResult is the document_extract reply.
type DocumentExtractResult struct {
	OutputDir  string                     `json:"output_dir"`
	Handles    []string                   `json:"handles"`
	Documents  []rectify.Document         `json:"documents"`
	Rejected   rectify.Rejections         `json:"rejected"`
	Dropped    []string                   `json:"dropped,omitempty"`

	// Thumbnails has one entry per handle; an entry is null when its
	// preview failed and the reason is listed in ThumbnailErrors.
	Thumbnails      []*imaging.ThumbnailResult `json:"thumbnails,omitempty"`
	ThumbnailErrors []string                   `json:"thumbnail_errors,omitempty"`
}

// keepingSink records every page its wrapped sink stored successfully.
type keepingSink struct {
	rectify.Sink

	mu    sync.Mutex
	pages []image.Image
}

func (k *keepingSink) Put(index int, doc image.Image) (string, error) {
	handle, err := k.Sink.Put(index, doc)
	if err == nil {
		k.mu.Lock()
		k.pages = append(k.pages, doc)
		k.mu.Unlock()
	}
	return handle, err
}

func (s *Server) handleDocumentExtract(args json.RawMessage) (interface{}, error) {
	var a documentExtractArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.ThumbnailSize == 0 {
		a.ThumbnailSize = DefaultThumbnailSize
	}
	if a.ThumbnailSize < 0 {
		return nil, fmt.Errorf("invalid thumbnail size: %d", a.ThumbnailSize)
	}
	if a.OutputDir == "" {
		a.OutputDir = filepath.Join(s.cfg.OutputDir, s.newID())
	}

	ex, err := s.extractor(a.documentArgs)
	if err != nil {
		return nil, err
	}
	img, err := s.loadPhoto(a.Path)
	if err != nil {
		return nil, err
	}

	sink := &keepingSink{Sink: rectify.NewDirSink(a.OutputDir, ex.Options().JPEGQuality)}
	res := ex.ExtractImage(img, sink)

	out := &DocumentExtractResult{
		OutputDir: a.OutputDir,
		Handles:   res.Handles,
		Documents: res.Documents,
		Rejected:  res.Rejected,
	}
	for _, d := range res.Dropped {
		out.Dropped = append(out.Dropped, d.Error())
	}
	if a.Thumbnails {
		for i, page := range sink.pages {
			thumb, err := s.thumb(page, a.ThumbnailSize)
			if err != nil {
				out.ThumbnailErrors = append(out.ThumbnailErrors, fmt.Sprintf("%s: %v", res.Handles[i], err))
				s.log.WithError(err).WithField("handle", res.Handles[i]).Warn("thumbnail failed")
			}
			out.Thumbnails = append(out.Thumbnails, thumb)
		}
	}

	s.log.WithField("source", a.Path).WithField("documents", len(res.Handles)).Info("documents extracted")
	return out, nil
}

type documentOCRArgs struct {
	documentArgs
	Language string `json:"language"`
}

// PageText is the text read from one rectified document.
type PageText struct {
	Index  int        `json:"index"`
	Width  int        `json:"width"`
	Height int        `json:"height"`
	Text   string     `json:"text"`
	Words  []ocr.Word `json:"words"`
}

// DocumentOCRResult is the document_ocr reply.
type DocumentOCRResult struct {
	Language  string             `json:"language"`
	Documents []PageText         `json:"documents"`
	Rejected  rectify.Rejections `json:"rejected"`
}

func (s *Server) handleDocumentOCR(args json.RawMessage) (interface{}, error) {
	var a documentOCRArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	reader := s.ocr
	if a.Language != "" && a.Language != reader.Language() {
		reader = ocr.NewReader(a.Language)
	}

	ex, err := s.extractor(a.documentArgs)
	if err != nil {
		return nil, err
	}
	img, err := s.loadPhoto(a.Path)
	if err != nil {
		return nil, err
	}

	sink := &rectify.MemorySink{}
	res := ex.ExtractImage(img, sink)
	texts, err := reader.ReadPages(sink.Pages())
	if err != nil {
		return nil, err
	}

	out := &DocumentOCRResult{
		Language:  reader.Language(),
		Documents: make([]PageText, 0, len(texts)),
		Rejected:  res.Rejected,
	}
	for i, t := range texts {
		d := res.Documents[i]
		out.Documents = append(out.Documents, PageText{
			Index:  d.Index,
			Width:  d.Width,
			Height: d.Height,
			Text:   t.Text,
			Words:  t.Words,
		})
	}
	return out, nil
}
