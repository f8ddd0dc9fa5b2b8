package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

func pathSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"path": map[string]interface{}{
				"type":        "string",
				"description": "Absolute path to the image file",
			},
		},
		"required": []string{"path"},
	}
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Image Information
		{
			Name:        "image_load",
			Description: "Load an image file and return its dimensions, format and the size of the RGBA buffer a filter would receive.",
			InputSchema: pathSchema(),
		},
		{
			Name:        "image_dimensions",
			Description: "Get the width and height of an image file.",
			InputSchema: pathSchema(),
		},
		{
			Name:        "image_sample_color",
			Description: "Get the non-premultiplied RGBA color at a pixel. Useful for checking a filter result.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the image file",
					},
					"x": map[string]interface{}{
						"type":        "integer",
						"description": "X coordinate (0-based, from left)",
					},
					"y": map[string]interface{}{
						"type":        "integer",
						"description": "Y coordinate (0-based, from top)",
					},
				},
				"required": []string{"path", "x", "y"},
			},
		},

		// Filters
		{
			Name:        "filter_list",
			Description: "List the filters that can be applied, with whether each is a native plugin or compiled in.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
		{
			Name: "filter_apply",
			Description: "Apply a filter to a decoded copy of the input image and write the result to output. " +
				"Malformed params never fail the call; the filter falls back to its defaults.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"input": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the source image",
					},
					"output": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path for the result (.png, .jpg, .jpeg or .bmp)",
					},
					"filter": map[string]interface{}{
						"type":        "string",
						"description": "Filter name, e.g. blur or mirror",
					},
					"params": map[string]interface{}{
						"type":        []string{"object", "string"},
						"description": `Filter parameters, e.g. {"radius": 2, "iterations": 3} for blur or {"horizontal": true, "vertical": false} for mirror`,
					},
					"params_file": map[string]interface{}{
						"type":        "string",
						"description": "Path to a file holding the params text. Overrides params.",
					},
				},
				"required": []string{"input", "output", "filter"},
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
