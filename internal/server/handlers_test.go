package server

import (
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ironsheep/docscan-mcp/internal/imaging"
	"github.com/ironsheep/docscan-mcp/internal/rectify"
)

// createPhotoFile writes a black PNG with one white sheet per rectangle
// (inclusive corners) and returns its path.
func createPhotoFile(t *testing.T, width, height int, sheets ...image.Rectangle) string {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.Black)
			for _, r := range sheets {
				if x >= r.Min.X && x <= r.Max.X && y >= r.Min.Y && y <= r.Max.Y {
					img.Set(x, y, color.White)
				}
			}
		}
	}

	path := filepath.Join(t.TempDir(), "photo.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create file: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}
	return path
}

func callTool(t *testing.T, s *Server, name string, args map[string]interface{}) *MCPResponse {
	t.Helper()
	params, _ := json.Marshal(map[string]interface{}{"name": name, "arguments": args})
	return s.handleRequest(&MCPRequest{JSONRPC: "2.0", ID: 1, Method: "tools/call", Params: params})
}

// resultText returns the JSON text of a successful tool response.
func resultText(t *testing.T, resp *MCPResponse) string {
	t.Helper()
	if resp == nil {
		t.Fatal("nil response")
	}
	if resp.Error != nil {
		t.Fatalf("Unexpected error: %+v", resp.Error)
	}
	content := resp.Result.(map[string]interface{})["content"].([]map[string]interface{})
	if len(content) != 1 || content[0]["type"] != "text" {
		t.Fatalf("unexpected content %v", content)
	}
	return content[0]["text"].(string)
}

func TestHandleToolsCall_ImageLoad(t *testing.T) {
	s := newTestServer(t)
	path := createPhotoFile(t, 100, 80)

	var info struct {
		Width  int    `json:"width"`
		Height int    `json:"height"`
		Format string `json:"format"`
	}
	if err := json.Unmarshal([]byte(resultText(t, callTool(t, s, "image_load", map[string]interface{}{"path": path}))), &info); err != nil {
		t.Fatal(err)
	}
	if info.Width != 100 || info.Height != 80 || info.Format != "png" {
		t.Errorf("unexpected info %+v", info)
	}
	if s.cache.Len() != 1 {
		t.Errorf("photo should be cached")
	}
}

func TestHandleToolsCall_ImageUnload(t *testing.T) {
	s := newTestServer(t)
	path := createPhotoFile(t, 40, 40)
	resultText(t, callTool(t, s, "image_dimensions", map[string]interface{}{"path": path}))

	text := resultText(t, callTool(t, s, "image_unload", map[string]interface{}{"path": path}))
	if !strings.Contains(text, `"evicted": true`) || !strings.Contains(text, `"cached": 0`) {
		t.Errorf("unexpected unload result %s", text)
	}
}

func TestHandleToolsCall_Errors(t *testing.T) {
	s := newTestServer(t)
	tests := []struct {
		name string
		tool string
		args map[string]interface{}
	}{
		{"unknown tool", "nonexistent_tool", map[string]interface{}{}},
		{"missing path", "image_load", map[string]interface{}{}},
		{"missing file", "document_extract", map[string]interface{}{"path": "/nonexistent/image.png"}},
		{"bad area ratio", "document_detect", map[string]interface{}{"path": "/any.png", "max_area_ratio": 3}},
		{"bad thumbnail size", "document_extract", map[string]interface{}{"path": "/any.png", "thumbnail_size": -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := callTool(t, s, tt.tool, tt.args)
			if resp.Error == nil || resp.Error.Code != -32000 {
				t.Errorf("expected tool execution error, got %+v", resp)
			}
		})
	}
}

func TestHandleToolsCall_InvalidParams(t *testing.T) {
	s := newTestServer(t)
	resp := s.handleToolsCall(&MCPRequest{JSONRPC: "2.0", ID: 1, Params: json.RawMessage(`{invalid`)})
	if resp.Error == nil || resp.Error.Code != -32602 {
		t.Errorf("expected invalid params error, got %+v", resp)
	}
}

func TestHandleToolsCall_EdgeDetect(t *testing.T) {
	s := newTestServer(t)
	path := createPhotoFile(t, 120, 100, image.Rect(30, 30, 89, 69))

	var res struct {
		EdgePixels int    `json:"edge_pixels"`
		MimeType   string `json:"mime_type"`
	}
	text := resultText(t, callTool(t, s, "image_edge_detect", map[string]interface{}{"path": path}))
	if err := json.Unmarshal([]byte(text), &res); err != nil {
		t.Fatal(err)
	}
	if res.EdgePixels == 0 || res.MimeType != "image/png" {
		t.Errorf("unexpected edge result %+v", res)
	}
}

func TestDocumentDetect(t *testing.T) {
	s := newTestServer(t)
	path := createPhotoFile(t, 400, 300, image.Rect(100, 80, 299, 199))

	out, err := s.executeTool("document_detect", json.RawMessage(`{"path":"`+path+`"}`))
	if err != nil {
		t.Fatalf("document_detect failed: %v", err)
	}
	det := out.(*rectify.Detection)
	if len(det.Candidates) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(det.Candidates))
	}
	if entries, _ := os.ReadDir(s.cfg.OutputDir); len(entries) != 0 {
		t.Error("document_detect must not write files")
	}

	// A larger minimum area rejects the sheet.
	out, err = s.executeTool("document_detect", json.RawMessage(`{"path":"`+path+`","min_area":50000}`))
	if err != nil {
		t.Fatalf("document_detect failed: %v", err)
	}
	if det := out.(*rectify.Detection); len(det.Candidates) != 0 || det.Rejected[rectify.RejectArea] == 0 {
		t.Errorf("expected area rejection, got %+v", det)
	}
}

func TestDocumentExtract_DefaultOutputDir(t *testing.T) {
	s := newTestServer(t)
	s.newID = func() string { return "fixed-id" }
	path := createPhotoFile(t, 500, 400, image.Rect(300, 30, 449, 129), image.Rect(40, 200, 199, 339))

	out, err := s.executeTool("document_extract", json.RawMessage(`{"path":"`+path+`","thumbnails":true,"thumbnail_size":64}`))
	if err != nil {
		t.Fatalf("document_extract failed: %v", err)
	}
	res := out.(*DocumentExtractResult)

	wantDir := filepath.Join(s.cfg.OutputDir, "fixed-id")
	if res.OutputDir != wantDir {
		t.Errorf("OutputDir = %s, want %s", res.OutputDir, wantDir)
	}
	if len(res.Handles) != 2 {
		t.Fatalf("expected 2 documents, got %v", res.Handles)
	}
	for i, h := range res.Handles {
		if h != filepath.Join(wantDir, rectify.OutputName(i+1)) {
			t.Errorf("handle %d = %s", i, h)
		}
		if _, err := os.Stat(h); err != nil {
			t.Errorf("document %d not written: %v", i+1, err)
		}
	}
	if len(res.Thumbnails) != 2 {
		t.Fatalf("expected 2 thumbnails, got %d", len(res.Thumbnails))
	}
	for _, th := range res.Thumbnails {
		if th.Width > 64 || th.Height > 64 {
			t.Errorf("thumbnail %dx%d exceeds 64", th.Width, th.Height)
		}
	}
}

func TestDocumentExtract_ThumbnailFailureKeepsHandles(t *testing.T) {
	s := newTestServer(t)
	calls := 0
	s.thumb = func(page image.Image, size int) (*imaging.ThumbnailResult, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("encoder out of memory")
		}
		return imaging.Thumbnail(page, size)
	}
	path := createPhotoFile(t, 500, 400, image.Rect(300, 30, 449, 129), image.Rect(40, 200, 199, 339))
	dir := filepath.Join(t.TempDir(), "pages")

	out, err := s.executeTool("document_extract", json.RawMessage(`{"path":"`+path+`","output_dir":"`+dir+`","thumbnails":true}`))
	if err != nil {
		t.Fatalf("document_extract failed: %v", err)
	}
	res := out.(*DocumentExtractResult)
	if len(res.Handles) != 2 {
		t.Fatalf("expected 2 handles, got %v", res.Handles)
	}
	for _, h := range res.Handles {
		if _, err := os.Stat(h); err != nil {
			t.Errorf("document %s not written: %v", h, err)
		}
	}
	if len(res.Thumbnails) != 2 || res.Thumbnails[0] != nil || res.Thumbnails[1] == nil {
		t.Errorf("thumbnails should stay aligned with handles: %v", res.Thumbnails)
	}
	if len(res.ThumbnailErrors) != 1 || !strings.HasPrefix(res.ThumbnailErrors[0], res.Handles[0]) {
		t.Errorf("ThumbnailErrors = %v", res.ThumbnailErrors)
	}
}

func TestDocumentExtract_ExplicitDirAndEmptyPhoto(t *testing.T) {
	s := newTestServer(t)
	path := createPhotoFile(t, 200, 150)
	dir := filepath.Join(t.TempDir(), "pages")

	text := resultText(t, callTool(t, s, "document_extract", map[string]interface{}{"path": path, "output_dir": dir}))
	var res DocumentExtractResult
	if err := json.Unmarshal([]byte(text), &res); err != nil {
		t.Fatal(err)
	}
	if res.OutputDir != dir || len(res.Handles) != 0 || len(res.Thumbnails) != 0 {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestDocumentExtract_DecodeError(t *testing.T) {
	s := newTestServer(t)
	path := filepath.Join(t.TempDir(), "junk.jpg")
	if err := os.WriteFile(path, []byte("junk"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := s.executeTool("document_extract", json.RawMessage(`{"path":"`+path+`"}`))
	var decErr *rectify.DecodeError
	if !errors.As(err, &decErr) || decErr.Source != path {
		t.Errorf("expected DecodeError for %s, got %v", path, err)
	}
}

func TestDocumentOCR_NoDocuments(t *testing.T) {
	s := newTestServer(t)
	path := createPhotoFile(t, 200, 150)

	out, err := s.executeTool("document_ocr", json.RawMessage(`{"path":"`+path+`","language":"deu"}`))
	if err != nil {
		t.Fatalf("document_ocr failed: %v", err)
	}
	res := out.(*DocumentOCRResult)
	if res.Language != "deu" || len(res.Documents) != 0 {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestKeepingSink(t *testing.T) {
	mem := &rectify.MemorySink{}
	k := &keepingSink{Sink: mem}
	page := image.NewGray(image.Rect(0, 0, 3, 3))
	if _, err := k.Put(1, page); err != nil {
		t.Fatal(err)
	}
	if len(k.pages) != 1 || len(mem.Pages()) != 1 {
		t.Errorf("pages not recorded: %d %d", len(k.pages), len(mem.Pages()))
	}
}

func TestExecuteTool_InvalidJSON(t *testing.T) {
	s := newTestServer(t)
	if _, err := s.executeTool("image_load", json.RawMessage(`{invalid`)); err == nil {
		t.Error("executeTool should fail for invalid JSON")
	}
}
