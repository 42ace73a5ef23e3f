package server

import (
	"github.com/ironsheep/image-watermark-mcp/internal/composite"
)

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// policyProperties are the blend policy arguments shared by the apply tools.
func policyProperties() map[string]interface{} {
	return map[string]interface{}{
		"policy": map[string]interface{}{
			"type":        "string",
			"enum":        composite.PolicyNames,
			"description": "Blend policy that adapts the watermark brightness to the image",
		},
		"boost_ratio": map[string]interface{}{
			"type":        "number",
			"description": "global-max-boost: target = brightest pixel luminance * boost_ratio (default 1.3)",
		},
		"min_scale": map[string]interface{}{
			"type":        "number",
			"description": "Lower clamp of the per-pixel brightness scale (0 keeps the policy default)",
		},
		"max_scale": map[string]interface{}{
			"type":        "number",
			"description": "Upper clamp of the per-pixel brightness scale (0 keeps the policy default)",
		},
		"opacity": map[string]interface{}{
			"type":        "number",
			"description": "multiply: strength of the multiply blend in [0,1] (default 0.5)",
		},
		"output_height": map[string]interface{}{
			"type":        "integer",
			"description": "Resize images to this height before watermarking, keeping aspect ratio (default 2000, 0 keeps the size)",
		},
		"jpeg_quality": map[string]interface{}{
			"type":        "integer",
			"description": "JPEG output quality 1-100 (default 95)",
		},
		"precompress_quality": map[string]interface{}{
			"type":        "integer",
			"description": "Re-encode JPEG inputs once at this quality before watermarking (0 disables)",
		},
	}
}

func withProperties(base map[string]interface{}, extra map[string]interface{}) map[string]interface{} {
	for k, v := range extra {
		base[k] = v
	}
	return base
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Watermark Operations
		{
			Name:        "watermark_generate",
			Description: "Synthesize a diagonal dashed-line watermark mask with text stamped at the crossings and save it as <name>.npy, <name>.png (preview) and <name>.yaml (metadata).",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"output_dir": map[string]interface{}{
						"type":        "string",
						"description": "Directory the asset files are written to",
					},
					"name": map[string]interface{}{
						"type":        "string",
						"description": "Base file name of the asset",
					},
					"config": map[string]interface{}{
						"type":        "string",
						"description": "Optional YAML configuration file; its mask section supplies the defaults",
					},
					"width":        map[string]interface{}{"type": "integer", "description": "Canvas width in pixels (default 6000)"},
					"height":       map[string]interface{}{"type": "integer", "description": "Canvas height in pixels (default 6000)"},
					"spacing":      map[string]interface{}{"type": "integer", "description": "Distance between parallel lines along the top edge (default 450)"},
					"dash_length":  map[string]interface{}{"type": "number", "description": "Dash length (default 10)"},
					"stroke_width": map[string]interface{}{"type": "number", "description": "Dash stroke width (default 6)"},
					"stamp_text":   map[string]interface{}{"type": "string", "description": "Text stamped at each crossing (default BH)"},
					"font_size":    map[string]interface{}{"type": "number", "description": "Stamp font size (default 60)"},
					"stamp_stride": map[string]interface{}{"type": "integer", "description": "Stamp only every n-th line of each family (default 1)"},
					"fog_stroke_width": map[string]interface{}{
						"type":        "number",
						"description": "Width of the blurred solid lines under the dashes (default 0, disabled)",
					},
					"fill_color": map[string]interface{}{
						"type":        "string",
						"description": "Hex color the mask is painted with when applied, #RRGGBB or #RRGGBBAA",
					},
				},
				"required": []string{"output_dir", "name"},
			},
		},
		{
			Name:        "watermark_apply",
			Description: "Apply a watermark asset to one image, adapting its brightness to the image with the chosen blend policy.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withProperties(map[string]interface{}{
					"asset": map[string]interface{}{
						"type":        "string",
						"description": "Path to the watermark .npy file",
					},
					"input": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the image to watermark",
					},
					"output": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path of the result; the extension selects the format",
					},
				}, policyProperties()),
				"required": []string{"asset", "input", "output", "policy"},
			},
		},
		{
			Name:        "watermark_batch",
			Description: "Apply a watermark asset to every .jpg/.jpeg/.png image in a folder in parallel. Failures are reported per file.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withProperties(map[string]interface{}{
					"asset": map[string]interface{}{
						"type":        "string",
						"description": "Path to the watermark .npy file",
					},
					"dir": map[string]interface{}{
						"type":        "string",
						"description": "Folder containing the images",
					},
					"output_dir": map[string]interface{}{
						"type":        "string",
						"description": "Folder for the results (default <dir>/output)",
					},
					"workers": map[string]interface{}{
						"type":        "integer",
						"description": "Number of images processed at once (default: number of CPUs)",
					},
				}, policyProperties()),
				"required": []string{"asset", "dir", "policy"},
			},
		},
		{
			Name:        "watermark_asset_info",
			Description: "Report the size, coverage, fill color and generation settings of a watermark asset.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"asset": map[string]interface{}{
						"type":        "string",
						"description": "Path to the watermark .npy file",
					},
				},
				"required": []string{"asset"},
			},
		},

		// Color Operations
		{
			Name:        "color_luminance",
			Description: "Describe a color: hex, RGB, HSL, linear RGB and WCAG relative luminance.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"color": map[string]interface{}{
						"type":        "string",
						"description": "Hex color, e.g. #1E1E1E",
					},
				},
				"required": []string{"color"},
			},
		},
		{
			Name:        "color_contrast",
			Description: "Compute the WCAG contrast ratio of two colors and whether it passes AA (4.5) and AAA (7.0).",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"foreground": map[string]interface{}{"type": "string", "description": "Hex foreground color"},
					"background": map[string]interface{}{"type": "string", "description": "Hex background color"},
				},
				"required": []string{"foreground", "background"},
			},
		},
		{
			Name:        "color_adjust_luminance",
			Description: "Brighten a color toward white just enough to reach a target relative luminance. Never darkens.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"color": map[string]interface{}{
						"type":        "string",
						"description": "Hex color to adjust",
					},
					"target": map[string]interface{}{
						"type":        "number",
						"description": "Target relative luminance in [0,1]",
					},
				},
				"required": []string{"color", "target"},
			},
		},

		// Geometry Operations
		{
			Name:        "line_intersect",
			Description: "Intersect two line segments. Parallel or non-touching segments report no intersection.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"a": segmentSchema("First segment"),
					"b": segmentSchema("Second segment"),
				},
				"required": []string{"a", "b"},
			},
		},

		// Basic Image Information
		{
			Name:        "image_load",
			Description: "Load an image file and return its dimensions, format and whether it has an alpha channel.",
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
		{
			Name:        "image_sample_color",
			Description: "Get the exact color and luminance at a pixel, e.g. to check a watermark against its background.",
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
	}
}

func segmentSchema(description string) map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"x1": map[string]interface{}{"type": "number"},
			"y1": map[string]interface{}{"type": "number"},
			"x2": map[string]interface{}{"type": "number"},
			"y2": map[string]interface{}{"type": "number"},
		},
		"required":    []string{"x1", "y1", "x2", "y2"},
		"description": description,
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
