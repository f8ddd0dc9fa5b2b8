package server

import (
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// createTestImageFile creates a test image file in a temp dir and returns its path
func createTestImageFile(t *testing.T, width, height int, c color.Color) string {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}

	path := filepath.Join(t.TempDir(), "input.png")
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

// callTool sends a tools/call request and returns the response.
func callTool(t *testing.T, s *Server, name string, args interface{}) *MCPResponse {
	t.Helper()

	params := map[string]interface{}{
		"name":      name,
		"arguments": args,
	}
	paramsJSON, _ := json.Marshal(params)

	req := &MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "tools/call",
		Params:  paramsJSON,
	}

	resp := s.handleRequest(context.Background(), req)
	if resp == nil {
		t.Fatal("handleRequest returned nil")
	}
	return resp
}

// decodeResult unmarshals the text content of a successful tool response.
func decodeResult(t *testing.T, resp *MCPResponse, v interface{}) {
	t.Helper()

	if resp.Error != nil {
		t.Fatalf("Unexpected error: %+v", resp.Error)
	}
	result, ok := resp.Result.(map[string]interface{})
	if !ok {
		t.Fatal("Result should be a map")
	}
	content, ok := result["content"].([]map[string]interface{})
	if !ok || len(content) != 1 {
		t.Fatalf("content: got %#v", result["content"])
	}
	text, _ := content[0]["text"].(string)
	if err := json.Unmarshal([]byte(text), v); err != nil {
		t.Fatalf("Failed to unmarshal tool result: %v\n%s", err, text)
	}
}

func TestHandleToolsCall_ImageLoad(t *testing.T) {
	s := newTestServer(t)
	imgPath := createTestImageFile(t, 100, 80, color.RGBA{255, 0, 0, 255})

	resp := callTool(t, s, "image_load", map[string]interface{}{"path": imgPath})

	var info struct {
		Width       int    `json:"width"`
		Height      int    `json:"height"`
		Format      string `json:"format"`
		BufferBytes int    `json:"buffer_bytes"`
	}
	decodeResult(t, resp, &info)

	if info.Width != 100 || info.Height != 80 {
		t.Errorf("dimensions: got %dx%d, want 100x80", info.Width, info.Height)
	}
	if info.Format != "png" {
		t.Errorf("Format: got %s, want png", info.Format)
	}
	if info.BufferBytes != 100*80*4 {
		t.Errorf("BufferBytes: got %d, want %d", info.BufferBytes, 100*80*4)
	}
}

func TestHandleToolsCall_ImageDimensions(t *testing.T) {
	s := newTestServer(t)
	imgPath := createTestImageFile(t, 200, 150, color.RGBA{0, 255, 0, 255})

	resp := callTool(t, s, "image_dimensions", map[string]interface{}{"path": imgPath})

	var dims struct {
		Width  int `json:"width"`
		Height int `json:"height"`
	}
	decodeResult(t, resp, &dims)

	if dims.Width != 200 || dims.Height != 150 {
		t.Errorf("dimensions: got %dx%d, want 200x150", dims.Width, dims.Height)
	}
}

func TestHandleToolsCall_SampleColor(t *testing.T) {
	s := newTestServer(t)
	imgPath := createTestImageFile(t, 10, 10, color.RGBA{255, 128, 64, 255})

	resp := callTool(t, s, "image_sample_color", map[string]interface{}{"path": imgPath, "x": 5, "y": 5})

	var c struct {
		Hex string `json:"hex"`
	}
	decodeResult(t, resp, &c)

	if c.Hex != "#FF8040" {
		t.Errorf("Hex: got %s, want #FF8040", c.Hex)
	}
}

func TestHandleToolsCall_NonExistentFile(t *testing.T) {
	s := newTestServer(t)

	resp := callTool(t, s, "image_load", map[string]interface{}{"path": "/nonexistent/image.png"})

	if resp.Error == nil {
		t.Fatal("Expected error for non-existent file")
	}
	if resp.Error.Code != -32000 {
		t.Errorf("Error code: got %d, want -32000", resp.Error.Code)
	}
}

func TestHandleToolsCall_InvalidTool(t *testing.T) {
	s := newTestServer(t)

	resp := callTool(t, s, "nonexistent_tool", map[string]interface{}{})

	if resp.Error == nil {
		t.Fatal("Expected error for unknown tool")
	}
	if data, _ := resp.Error.Data.(string); !strings.Contains(data, "unknown tool") {
		t.Errorf("Error data: got %v", resp.Error.Data)
	}
}

func TestHandleToolsCall_InvalidParams(t *testing.T) {
	s := newTestServer(t)
	req := &MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "tools/call",
		Params:  json.RawMessage(`"not an object"`),
	}

	resp := s.handleRequest(context.Background(), req)

	if resp.Error == nil || resp.Error.Code != -32602 {
		t.Fatalf("Expected -32602, got %+v", resp.Error)
	}
}

func TestHandleToolsCall_FilterList(t *testing.T) {
	s := newTestServer(t)

	resp := callTool(t, s, "filter_list", map[string]interface{}{})

	var list struct {
		Filters []struct {
			Name   string `json:"name"`
			Source string `json:"source"`
		} `json:"filters"`
	}
	decodeResult(t, resp, &list)

	if len(list.Filters) != 2 {
		t.Fatalf("filters: got %d, want 2", len(list.Filters))
	}
	if list.Filters[0].Name != "blur" || list.Filters[1].Name != "mirror" {
		t.Errorf("names: got %s, %s", list.Filters[0].Name, list.Filters[1].Name)
	}
	if list.Filters[0].Source != "builtin" {
		t.Errorf("source: got %s, want builtin", list.Filters[0].Source)
	}
}

func TestHandleToolsCall_FilterApply(t *testing.T) {
	s := newTestServer(t)
	input := createTestImageFile(t, 4, 3, color.RGBA{10, 20, 30, 255})
	output := filepath.Join(t.TempDir(), "out.png")

	tests := []struct {
		name   string
		params interface{}
	}{
		{"object params", map[string]interface{}{"radius": 2, "iterations": 2}},
		{"string params", `{"radius": 2, "iterations": 2}`},
		{"malformed string params", `radius=2`},
		{"no params", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := map[string]interface{}{
				"input":  input,
				"output": output,
				"filter": "blur",
			}
			if tt.params != nil {
				args["params"] = tt.params
			}

			resp := callTool(t, s, "filter_apply", args)

			var res struct {
				Status int    `json:"status"`
				Source string `json:"source"`
				After  struct {
					Mean struct {
						Hex string `json:"hex"`
					} `json:"mean"`
				} `json:"after"`
			}
			decodeResult(t, resp, &res)

			if res.Status != 0 {
				t.Errorf("Status: got %d, want 0", res.Status)
			}
			if res.Source != "builtin" {
				t.Errorf("Source: got %s, want builtin", res.Source)
			}
			// A uniform image is a fixed point of the blur.
			if res.After.Mean.Hex != "#0A141E" {
				t.Errorf("mean: got %s, want #0A141E", res.After.Mean.Hex)
			}
			if _, err := os.Stat(output); err != nil {
				t.Errorf("output not written: %v", err)
			}
		})
	}
}

func TestHandleToolsCall_FilterApply_UnknownFilter(t *testing.T) {
	s := newTestServer(t)
	input := createTestImageFile(t, 2, 2, color.RGBA{0, 0, 0, 255})

	resp := callTool(t, s, "filter_apply", map[string]interface{}{
		"input":  input,
		"output": filepath.Join(t.TempDir(), "out.png"),
		"filter": "sharpen",
	})

	if resp.Error == nil {
		t.Fatal("Expected error for unknown filter")
	}
}

func TestParamsText(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{``, ``},
		{`null`, ``},
		{`{"horizontal": true}`, `{"horizontal": true}`},
		{`"{\"radius\": 3}"`, `{"radius": 3}`},
		{`"anything"`, `anything`},
		{`42`, `42`},
	}

	for _, tt := range tests {
		got, err := paramsText(json.RawMessage(tt.raw))
		if err != nil {
			t.Fatalf("paramsText(%s) failed: %v", tt.raw, err)
		}
		if got != tt.want {
			t.Errorf("paramsText(%s): got %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestExecuteTool_InvalidJSON(t *testing.T) {
	s := newTestServer(t)

	for _, name := range []string{"image_load", "image_dimensions", "image_sample_color", "filter_apply"} {
		if _, err := s.executeTool(context.Background(), name, json.RawMessage(`{invalid`)); err == nil {
			t.Errorf("%s: expected error for invalid JSON", name)
		}
	}
}
