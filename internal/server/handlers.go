package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/ironsheep/image-watermark-mcp/internal/batch"
	"github.com/ironsheep/image-watermark-mcp/internal/composite"
	"github.com/ironsheep/image-watermark-mcp/internal/config"
	"github.com/ironsheep/image-watermark-mcp/internal/geometry"
	"github.com/ironsheep/image-watermark-mcp/internal/imaging"
	"github.com/ironsheep/image-watermark-mcp/internal/mask"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "watermark_apply", "color_contrast").
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
		s.logger.Warn().Str("tool", params.Name).Err(err).Msg("tool failed")
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
//
// Each tool handler:
//  1. Unmarshals arguments from JSON
//  2. Applies default values for optional parameters
//  3. Loads images and watermark assets from the caches as needed
//  4. Calls the appropriate imaging/composite/mask/batch function
//  5. Returns the result or error
func (s *Server) executeTool(name string, args json.RawMessage) (interface{}, error) {
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}
	switch name {
	// Watermark Operations
	case "watermark_generate":
		return s.handleWatermarkGenerate(args)
	case "watermark_apply":
		return s.handleWatermarkApply(args)
	case "watermark_batch":
		return s.handleWatermarkBatch(args)
	case "watermark_asset_info":
		return s.handleWatermarkAssetInfo(args)

	// Color Operations
	case "color_luminance":
		return s.handleColorLuminance(args)
	case "color_contrast":
		return s.handleColorContrast(args)
	case "color_adjust_luminance":
		return s.handleColorAdjustLuminance(args)

	// Geometry Operations
	case "line_intersect":
		return s.handleLineIntersect(args)

	// Basic Image Information
	case "image_load":
		return s.handleImageLoad(args)
	case "image_sample_color":
		return s.handleImageSampleColor(args)

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
// Panics are suppressed; on marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// assetCache keeps loaded watermark assets by path. Assets are immutable,
// so one instance is shared by every call.
type assetCache struct {
	mu     sync.RWMutex
	assets map[string]*mask.Asset
}

func newAssetCache() *assetCache {
	return &assetCache{assets: make(map[string]*mask.Asset)}
}

func (c *assetCache) Load(path string) (*mask.Asset, error) {
	c.mu.RLock()
	a, ok := c.assets[path]
	c.mu.RUnlock()
	if ok {
		return a, nil
	}

	a, err := mask.Load(path)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.assets[path] = a
	c.mu.Unlock()
	return a, nil
}

func (c *assetCache) Evict(path string) {
	c.mu.Lock()
	delete(c.assets, path)
	c.mu.Unlock()
}

// === Watermark Operation Handlers ===

type watermarkGenerateArgs struct {
	OutputDir      string   `json:"output_dir"`
	Name           string   `json:"name"`
	Config         string   `json:"config"`
	Width          *int     `json:"width"`
	Height         *int     `json:"height"`
	Spacing        *int     `json:"spacing"`
	DashLength     *float64 `json:"dash_length"`
	StrokeWidth    *float64 `json:"stroke_width"`
	StampText      *string  `json:"stamp_text"`
	FontSize       *float64 `json:"font_size"`
	StampStride    *int     `json:"stamp_stride"`
	FogStrokeWidth *float64 `json:"fog_stroke_width"`
	FillColor      string   `json:"fill_color"`
}

type watermarkGenerateResult struct {
	Paths         mask.Paths `json:"paths"`
	Asset         mask.Info  `json:"asset"`
	Lines45       int        `json:"lines_45"`
	Lines135      int        `json:"lines_135"`
	Intersections int        `json:"intersections"`
}

func (s *Server) handleWatermarkGenerate(args json.RawMessage) (interface{}, error) {
	var a watermarkGenerateArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	cfg, err := config.Load(a.Config)
	if err != nil {
		return nil, err
	}
	o, err := cfg.MaskOptions()
	if err != nil {
		return nil, err
	}

	setInt(&o.Width, a.Width)
	setInt(&o.Height, a.Height)
	setInt(&o.Spacing, a.Spacing)
	setInt(&o.StampStride, a.StampStride)
	setFloat(&o.DashLength, a.DashLength)
	setFloat(&o.StrokeWidth, a.StrokeWidth)
	setFloat(&o.FontSize, a.FontSize)
	setFloat(&o.FogStrokeWidth, a.FogStrokeWidth)
	if a.StampText != nil {
		o.StampText = *a.StampText
	}
	if a.FillColor != "" {
		if o.FillColor, err = imaging.ParseColor(a.FillColor, o.FillColor.A); err != nil {
			return nil, err
		}
	}

	res, err := mask.Synthesize(o)
	if err != nil {
		return nil, err
	}
	paths, err := mask.Save(a.OutputDir, a.Name, res.Asset)
	if err != nil {
		return nil, err
	}
	s.assets.Evict(paths.Array)
	s.cache.Evict(paths.Preview)

	s.logger.Info().
		Str("asset", paths.Array).
		Int("width", o.Width).
		Int("height", o.Height).
		Float64("coverage", res.Asset.Mask.Coverage()).
		Msg("watermark generated")

	return &watermarkGenerateResult{
		Paths:         paths,
		Asset:         res.Asset.Describe(),
		Lines45:       len(res.Lines45),
		Lines135:      len(res.Lines135),
		Intersections: len(res.Intersections),
	}, nil
}

// applyArgs are the policy and output settings shared by the apply tools.
type applyArgs struct {
	Policy             string  `json:"policy"`
	BoostRatio         float64 `json:"boost_ratio"`
	MinScale           float64 `json:"min_scale"`
	MaxScale           float64 `json:"max_scale"`
	Opacity            float64 `json:"opacity"`
	OutputHeight       *int    `json:"output_height"`
	JPEGQuality        int     `json:"jpeg_quality"`
	PrecompressQuality int     `json:"precompress_quality"`
}

func (a applyArgs) driver(s *Server, assetPath string, opts batch.Options) (*batch.Driver, error) {
	asset, err := s.assets.Load(assetPath)
	if err != nil {
		return nil, err
	}
	policy, err := composite.NewPolicy(a.Policy, composite.Params{
		BoostRatio: a.BoostRatio,
		MinScale:   a.MinScale,
		MaxScale:   a.MaxScale,
		Opacity:    a.Opacity,
	})
	if err != nil {
		return nil, err
	}
	setInt(&opts.OutputHeight, a.OutputHeight)
	if a.JPEGQuality != 0 {
		opts.JPEGQuality = a.JPEGQuality
	}
	opts.PrecompressQuality = a.PrecompressQuality
	return batch.NewDriver(asset, policy, opts, s.logger)
}

type watermarkApplyArgs struct {
	applyArgs
	Asset  string `json:"asset"`
	Input  string `json:"input"`
	Output string `json:"output"`
}

type watermarkApplyResult struct {
	Result batch.Result       `json:"result"`
	Output *imaging.ImageInfo `json:"output"`
}

func (s *Server) handleWatermarkApply(args json.RawMessage) (interface{}, error) {
	var a watermarkApplyArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Input == "" || a.Output == "" {
		return nil, fmt.Errorf("input and output paths are required: %w", imaging.ErrConfig)
	}
	d, err := a.driver(s, a.Asset, batch.DefaultOptions())
	if err != nil {
		return nil, err
	}

	res, err := d.ProcessFile(s.ctx, a.Input, a.Output)
	if err != nil {
		return nil, err
	}
	s.cache.Evict(a.Output)
	info, err := imaging.LoadImageInfo(s.cache, a.Output)
	if err != nil {
		return nil, err
	}
	return &watermarkApplyResult{Result: res, Output: info}, nil
}

type watermarkBatchArgs struct {
	applyArgs
	Asset     string `json:"asset"`
	Dir       string `json:"dir"`
	OutputDir string `json:"output_dir"`
	Workers   int    `json:"workers"`
}

type watermarkBatchResult struct {
	OK       bool          `json:"ok"`
	Written  int           `json:"written"`
	Skipped  int           `json:"skipped"`
	Failed   int           `json:"failed"`
	Canceled int           `json:"canceled"`
	Report   *batch.Report `json:"report"`
}

func (s *Server) handleWatermarkBatch(args json.RawMessage) (interface{}, error) {
	var a watermarkBatchArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	opts := batch.DefaultOptions()
	opts.OutputDir = a.OutputDir
	opts.Workers = a.Workers
	d, err := a.driver(s, a.Asset, opts)
	if err != nil {
		return nil, err
	}

	report, err := d.Run(s.ctx, a.Dir)
	if err != nil {
		return nil, err
	}
	for _, r := range report.Results {
		if r.Output != "" {
			s.cache.Evict(r.Output)
		}
	}
	return &watermarkBatchResult{
		OK:       report.OK(),
		Written:  report.Count(batch.StatusOK),
		Skipped:  report.Count(batch.StatusSkipped),
		Failed:   report.Count(batch.StatusFailed),
		Canceled: report.Count(batch.StatusCanceled),
		Report:   report,
	}, nil
}

type watermarkAssetInfoArgs struct {
	Asset string `json:"asset"`
}

type watermarkAssetInfoResult struct {
	Path       string        `json:"path"`
	Info       mask.Info     `json:"info"`
	Generation *mask.Options `json:"generation,omitempty"`
}

func (s *Server) handleWatermarkAssetInfo(args json.RawMessage) (interface{}, error) {
	var a watermarkAssetInfoArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	asset, err := s.assets.Load(a.Asset)
	if err != nil {
		return nil, err
	}
	return &watermarkAssetInfoResult{
		Path:       a.Asset,
		Info:       asset.Describe(),
		Generation: asset.Options,
	}, nil
}

// === Color Operation Handlers ===

func parseRGB(s string) (imaging.RGBColor, error) {
	c, err := imaging.ParseColor(s, 0xff)
	if err != nil {
		return imaging.RGBColor{}, err
	}
	return c.RGB(), nil
}

type colorLuminanceArgs struct {
	Color string `json:"color"`
}

func (s *Server) handleColorLuminance(args json.RawMessage) (interface{}, error) {
	var a colorLuminanceArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	c, err := parseRGB(a.Color)
	if err != nil {
		return nil, err
	}
	return imaging.DescribeColor(c), nil
}

type colorContrastArgs struct {
	Foreground string `json:"foreground"`
	Background string `json:"background"`
}

func (s *Server) handleColorContrast(args json.RawMessage) (interface{}, error) {
	var a colorContrastArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	fg, err := parseRGB(a.Foreground)
	if err != nil {
		return nil, err
	}
	bg, err := parseRGB(a.Background)
	if err != nil {
		return nil, err
	}
	return imaging.CompareContrast(fg, bg), nil
}

type colorAdjustArgs struct {
	Color  string  `json:"color"`
	Target float64 `json:"target"`
}

type colorAdjustResult struct {
	Original  imaging.ColorReport    `json:"original"`
	Adjusted  imaging.ColorReport    `json:"adjusted"`
	Target    float64                `json:"target"`
	Converged bool                   `json:"converged"`
	Warning   string                 `json:"warning,omitempty"`
	Contrast  imaging.ContrastReport `json:"contrast_with_original"`
}

func (s *Server) handleColorAdjustLuminance(args json.RawMessage) (interface{}, error) {
	var a colorAdjustArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	c, err := parseRGB(a.Color)
	if err != nil {
		return nil, err
	}

	adjusted, err := imaging.AdjustToTargetLuminance(c, a.Target)
	res := &colorAdjustResult{
		Original:  imaging.DescribeColor(c),
		Adjusted:  imaging.DescribeColor(adjusted),
		Target:    a.Target,
		Converged: err == nil,
		Contrast:  imaging.CompareContrast(adjusted, c),
	}
	switch {
	case errors.Is(err, imaging.ErrNonConvergence):
		res.Warning = err.Error()
		s.logger.Warn().Str("color", c.Hex()).Float64("target", a.Target).Err(err).Msg("luminance target not reached")
	case err != nil:
		return nil, err
	}
	return res, nil
}

// === Geometry Operation Handlers ===

type lineIntersectArgs struct {
	A geometry.Segment `json:"a"`
	B geometry.Segment `json:"b"`
}

type lineIntersectResult struct {
	Intersects bool            `json:"intersects"`
	Point      *geometry.Point `json:"point,omitempty"`
}

func (s *Server) handleLineIntersect(args json.RawMessage) (interface{}, error) {
	var a lineIntersectArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	p, ok := geometry.Intersect(a.A, a.B)
	if !ok {
		return &lineIntersectResult{}, nil
	}
	return &lineIntersectResult{Intersects: true, Point: &p}, nil
}

// === Basic Image Information Handlers ===

type imageLoadArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleImageLoad(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return imaging.LoadImageInfo(s.cache, a.Path)
}

type imageSampleColorArgs struct {
	Path string `json:"path"`
	X    int    `json:"x"`
	Y    int    `json:"y"`
}

func (s *Server) handleImageSampleColor(args json.RawMessage) (interface{}, error) {
	var a imageSampleColorArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	return imaging.SampleColor(img, a.X, a.Y)
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}
