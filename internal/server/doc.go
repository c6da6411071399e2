// Package server implements the MCP (Model Context Protocol) server for
// document extraction tools.
//
// This package provides a JSON-RPC 2.0 server that exposes the document
// rectification pipeline through the MCP protocol, so an assistant can find
// paper documents in a photo, straighten them and read them back.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Photo Information:
//   - image_load: Load a photo and get metadata
//   - image_dimensions: Get width and height
//   - image_unload: Drop a photo from the cache
//   - image_edge_detect: Edge map used by document detection
//
// Document Operations:
//   - document_detect: Report document corners without writing files
//   - document_extract: Write transformed_N.jpg for each document
//   - document_ocr: Read the text of each document
//
// # Image Caching
//
// Photos are decoded once, with EXIF orientation applied, and cached by
// path so a detect followed by an extract does not decode twice.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: The Go error string
//
// A photo in which no documents are found is not an error; the tool result
// simply lists none.
package server
