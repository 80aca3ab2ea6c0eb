package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// settingsProperties are the optional settings fields shared by the render
// and update tools.
func settingsProperties() map[string]interface{} {
	return map[string]interface{}{
		"preset": map[string]interface{}{
			"type":        "string",
			"description": "Apply a named preset before the other fields",
			"enum":        []string{"fax", "glitch", "news", "pixel", "poster", "tiny", "web"},
		},
		"quality": map[string]interface{}{
			"type":        "number",
			"description": "Encoder quality, 0.05 to 0.95",
		},
		"scale": map[string]interface{}{
			"type":        "number",
			"description": "Export scale relative to the source, 0.1 to 1.0",
		},
		"bw": map[string]interface{}{
			"type":        "boolean",
			"description": "Convert to grayscale before quantizing",
		},
		"mode": map[string]interface{}{
			"type":        "string",
			"description": "Quantization mode",
			"enum":        []string{"bits", "palette"},
		},
		"bits": map[string]interface{}{
			"type":        "integer",
			"description": "Bits per channel in bits mode, 1 to 8",
		},
		"palette_n": map[string]interface{}{
			"type":        "integer",
			"description": "Palette size in palette mode, 2 to 256",
		},
		"dither_type": map[string]interface{}{
			"type":        "string",
			"description": "Dither algorithm",
			"enum":        []string{"none", "ordered", "random", "diffusion"},
		},
		"dither_strength": map[string]interface{}{
			"type":        "number",
			"description": "Dither strength, 0 to 1",
		},
		"block_size": map[string]interface{}{
			"type":        "integer",
			"description": "Pixelation tile size, 1 to 32",
		},
		"block_strength": map[string]interface{}{
			"type":        "number",
			"description": "Blend between original and tile mean, 0 to 1",
		},
		"force_palette": map[string]interface{}{
			"type":        "boolean",
			"description": "Force requantization even if nothing upstream changed",
			"default":     false,
		},
	}
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	renderProps := settingsProperties()
	renderProps["include_preview"] = map[string]interface{}{
		"type":        "boolean",
		"description": "Include the preview frame as base64-encoded PNG",
		"default":     false,
	}
	renderProps["region_width"] = map[string]interface{}{
		"type":        "integer",
		"description": "Width of the display region the preview is fitted into",
	}
	renderProps["region_height"] = map[string]interface{}{
		"type":        "integer",
		"description": "Height of the display region the preview is fitted into",
	}

	return []Tool{
		// Source
		{
			Name:        "posterize_load",
			Description: "Load an image file as the session source and render it with the current settings. Returns source dimensions, format and file size.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the image file",
					},
				},
				"required": []string{"path"},
			},
		},

		// Rendering
		{
			Name:        "posterize_render",
			Description: "Apply settings and render immediately. Only stages whose inputs changed are rebuilt. Returns export and preview dimensions, timing and the suggested export filename.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": renderProps,
			},
		},
		{
			Name:        "posterize_update",
			Description: "Apply settings and schedule a debounced render. Rapid updates coalesce into a single render.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": settingsProperties(),
			},
		},
		{
			Name:        "posterize_estimate",
			Description: "Report the encoded export size of the latest render and the reduction relative to the source file.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"wait": map[string]interface{}{
						"type":        "boolean",
						"description": "Wait for a pending estimate. Default true",
						"default":     true,
					},
					"timeout_ms": map[string]interface{}{
						"type":        "integer",
						"description": "Maximum wait in milliseconds. Default 10000",
						"default":     10000,
					},
				},
			},
		},

		// Output
		{
			Name:        "posterize_export",
			Description: "Encode the latest render at full export size and write it to a file named from the source and settings.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"dir": map[string]interface{}{
						"type":        "string",
						"description": "Output directory. Defaults to the server export directory",
					},
					"timeout_ms": map[string]interface{}{
						"type":        "integer",
						"description": "Maximum encode time in milliseconds. Default 30000",
						"default":     30000,
					},
				},
			},
		},
		{
			Name:        "posterize_save_preview",
			Description: "Write the current preview frame to a PNG file.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path of the PNG to write",
					},
				},
				"required": []string{"path"},
			},
		},

		// Reference
		{
			Name:        "posterize_palette",
			Description: "List the current palette colors with hex, RGB, HSL and the share of rendered pixels each covers. Empty in bits mode.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
		{
			Name:        "posterize_history",
			Description: "List recent exports, newest first.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"limit": map[string]interface{}{
						"type":        "integer",
						"description": "Maximum number of exports to list. Default 20",
						"default":     20,
					},
				},
			},
		},
		{
			Name:        "posterize_presets",
			Description: "List the named presets and the settings each applies.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
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
