package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

func pathProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Absolute path to the photo",
	}
}

func areaProperties(props map[string]interface{}) map[string]interface{} {
	props["min_area"] = map[string]interface{}{
		"type":        "number",
		"description": "Smallest document area in square pixels (default from server config, normally 1000)",
	}
	props["max_area_ratio"] = map[string]interface{}{
		"type":        "number",
		"description": "Largest document area as a fraction of the photo area (default from server config, normally 0.9)",
	}
	return props
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Photo Information
		{
			Name:        "image_load",
			Description: "Load a photo and return its dimensions and format. The decoded photo stays cached for later calls until image_unload.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_dimensions",
			Description: "Get the width and height of a photo after EXIF orientation is applied.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_unload",
			Description: "Drop a photo from the server's cache.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_edge_detect",
			Description: "Return the edge map that document detection works on (grayscale, 5x5 blur, Canny) as a base64 PNG. Useful for seeing why a document was or was not found.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"threshold_low": map[string]interface{}{
						"type":        "integer",
						"description": "Low threshold for Canny edge detection (default 50)",
						"default":     50,
					},
					"threshold_high": map[string]interface{}{
						"type":        "integer",
						"description": "High threshold for Canny edge detection (default 150)",
						"default":     150,
					},
				},
				"required": []string{"path"},
			},
		},

		// Document Operations
		{
			Name:        "document_detect",
			Description: "Find flat rectangular documents in a photo without writing anything. Returns each document's corners (top-left, top-right, bottom-right, bottom-left), area and rectified size, plus counts of rejected outlines by reason.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": areaProperties(map[string]interface{}{"path": pathProperty()}),
				"required":   []string{"path"},
			},
		},
		{
			Name:        "document_extract",
			Description: "Detect documents in a photo and write a straightened, top-down JPEG of each one as transformed_1.jpg, transformed_2.jpg, ... Returns the written paths.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": areaProperties(map[string]interface{}{
					"path": pathProperty(),
					"output_dir": map[string]interface{}{
						"type":        "string",
						"description": "Directory for the documents. Defaults to a new unique folder inside the server's output directory.",
					},
					"thumbnails": map[string]interface{}{
						"type":        "boolean",
						"description": "Also return a small base64 JPEG preview of each document",
						"default":     false,
					},
					"thumbnail_size": map[string]interface{}{
						"type":        "integer",
						"description": "Longest side of each preview in pixels",
						"default":     256,
					},
				}),
				"required": []string{"path"},
			},
		},
		{
			Name:        "document_ocr",
			Description: "Detect and straighten the documents in a photo, then read the text of each one with Tesseract. Nothing is written to disk.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": areaProperties(map[string]interface{}{
					"path": pathProperty(),
					"language": map[string]interface{}{
						"type":        "string",
						"description": "Tesseract language code (default from server config, normally eng)",
					},
				}),
				"required": []string{"path"},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
