// Package server implements the MCP (Model Context Protocol) server for the
// watermarking tools.
//
// The server speaks JSON-RPC 2.0 over stdio and exposes mask generation,
// watermark application and the color and geometry helpers behind them.
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
// Watermark Operations:
//   - watermark_generate: Synthesize a mask and save it as .npy, .png and .yaml
//   - watermark_apply: Watermark one image with a blend policy
//   - watermark_batch: Watermark every image in a folder
//   - watermark_asset_info: Describe a saved mask
//
// Color Operations:
//   - color_luminance: WCAG relative luminance of a color
//   - color_contrast: Contrast ratio and AA/AAA verdict
//   - color_adjust_luminance: Brighten a color to a target luminance
//
// Geometry Operations:
//   - line_intersect: Intersect two segments
//
// Basic Image Information:
//   - image_load: Load image and get metadata
//   - image_sample_color: Get color at pixel
//
// # Caching
//
// Decoded images and loaded masks are cached by path for the lifetime of the
// process. Tools that write a file evict that path so later reads see the new
// content.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: The Go error string
//
// A luminance target that cannot be reached is not an error; the result
// carries converged=false and a warning instead.
//
// # Usage
//
//	srv := server.New(version, logger)
//	if err := srv.Run(ctx); err != nil {
//	    logger.Fatal().Err(err).Msg("server stopped")
//	}
package server
