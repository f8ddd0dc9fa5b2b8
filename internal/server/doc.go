// Package server implements the MCP (Model Context Protocol) server for the
// filter host.
//
// The server exposes image inspection and filter application to MCP clients
// so a filter can be tried, checked and re-run without leaving the client.
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
// Image Information:
//   - image_load: Load image and get metadata, including the RGBA buffer size
//   - image_dimensions: Get width and height
//   - image_sample_color: Get the color at a pixel
//
// Filters:
//   - filter_list: Names of the filters the host can resolve and where each lives
//   - filter_apply: Run a filter over an input file and write the output file
//
// # Filter Params
//
// filter_apply accepts params either as a JSON object, which is re-encoded and
// handed to the filter as text, or as a string passed through verbatim. The
// filter decides what the text means; unusable text selects its defaults.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: Additional error details (typically the Go error string)
//
// A filter that returns a failure status is reported as a tool error and no
// output file is written.
package server
