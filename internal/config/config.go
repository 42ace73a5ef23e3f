// Package config reads the YAML configuration shared by the CLI and the
// MCP server and turns it into the typed parameters of the mask, composite
// and batch packages.
//
// Every key is optional. Load starts from Default and decodes the file over
// it, so absent keys keep their defaults. Unknown keys are rejected.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ironsheep/image-watermark-mcp/internal/batch"
	"github.com/ironsheep/image-watermark-mcp/internal/composite"
	"github.com/ironsheep/image-watermark-mcp/internal/imaging"
	"github.com/ironsheep/image-watermark-mcp/internal/mask"
)

// File is the whole configuration file.
type File struct {
	Mask  MaskSection  `yaml:"mask"`
	Apply ApplySection `yaml:"apply"`
}

// Canvas is the design canvas size.
type Canvas struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// MaskSection configures mask generation. Opacities are percentages.
type MaskSection struct {
	Canvas         Canvas  `yaml:"canvas"`
	Spacing        int     `yaml:"spacing"`
	DashLength     float64 `yaml:"dash_length"`
	GapLength      float64 `yaml:"gap_length"`
	LineWidth      float64 `yaml:"line_width"`
	ShadowExtra    float64 `yaml:"shadow_extra"`
	FoggyLineWidth float64 `yaml:"foggy_line_width"`
	BlurRadius     float64 `yaml:"blur_radius"`
	StampText      string  `yaml:"stamp_text"`
	FontSize       float64 `yaml:"font_size"`
	FontPath       string  `yaml:"font_path"`
	StampOffset    int     `yaml:"stamp_offset"`
	StampStride    int     `yaml:"stamp_stride"`
	Color          string  `yaml:"color"`
	Opacity        int     `yaml:"opacity"`
	ShadowOpacity  int     `yaml:"shadow_opacity"`
	FillColor      string  `yaml:"fill_color"`
	FillOpacity    int     `yaml:"fill_opacity"`
}

// PolicySection selects the blend policy. Zero numbers keep the policy's
// defaults. Opacity is a percentage used by the multiply policy.
type PolicySection struct {
	Kind       string  `yaml:"kind"`
	BoostRatio float64 `yaml:"boost_ratio"`
	MinScale   float64 `yaml:"min_scale"`
	MaxScale   float64 `yaml:"max_scale"`
	Opacity    int     `yaml:"opacity"`
}

// ApplySection configures how watermarks are applied.
type ApplySection struct {
	OutputHeight       int           `yaml:"output_height"`
	OutputDir          string        `yaml:"output_dir"`
	JPEGQuality        int           `yaml:"jpeg_quality"`
	PNGCompression     string        `yaml:"png_compression"`
	PrecompressQuality int           `yaml:"precompress_quality"`
	Workers            int           `yaml:"workers"`
	Policy             PolicySection `yaml:"policy"`
}

// Settings is a validated File.
type Settings struct {
	Mask   mask.Options
	Policy composite.Policy
	Batch  batch.Options
}

// Default returns the configuration every file is decoded over. The policy
// kind is left empty: applying a watermark requires choosing one.
func Default() *File {
	m := mask.Defaults()
	b := batch.DefaultOptions()
	return &File{
		Mask: MaskSection{
			Canvas:         Canvas{Width: m.Width, Height: m.Height},
			Spacing:        m.Spacing,
			DashLength:     m.DashLength,
			GapLength:      m.GapLength,
			LineWidth:      m.StrokeWidth,
			ShadowExtra:    m.ShadowExtra,
			FoggyLineWidth: m.FogStrokeWidth,
			BlurRadius:     m.BlurRadius,
			StampText:      m.StampText,
			FontSize:       m.FontSize,
			FontPath:       m.FontPath,
			StampOffset:    m.StampOffset,
			StampStride:    m.StampStride,
			Color:          m.StrokeColor.RGB().Hex(),
			Opacity:        50,
			ShadowOpacity:  25,
			FillColor:      m.FillColor.RGB().Hex(),
			FillOpacity:    50,
		},
		Apply: ApplySection{
			OutputHeight:   b.OutputHeight,
			OutputDir:      b.OutputDir,
			JPEGQuality:    b.JPEGQuality,
			PNGCompression: "default",
			Workers:        b.Workers,
			Policy:         PolicySection{Opacity: 50},
		},
	}
}

// Load reads and strictly decodes the file at path. An empty path returns
// Default.
func Load(path string) (*File, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %v: %w", err, imaging.ErrConfig)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Parse strictly decodes YAML over Default.
func Parse(data []byte) (*File, error) {
	f := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config: %v: %w", err, imaging.ErrConfig)
	}
	return f, nil
}

// Validate converts every section and reports the first problem as
// ErrConfig.
func (f *File) Validate() (*Settings, error) {
	m, err := f.MaskOptions()
	if err != nil {
		return nil, err
	}
	p, err := f.Policy()
	if err != nil {
		return nil, err
	}
	b, err := f.BatchOptions()
	if err != nil {
		return nil, err
	}
	return &Settings{Mask: m, Policy: p, Batch: b}, nil
}

// MaskOptions converts the mask section.
func (f *File) MaskOptions() (mask.Options, error) {
	s := f.Mask
	for _, pc := range []struct {
		key string
		v   int
	}{
		{"mask.opacity", s.Opacity},
		{"mask.shadow_opacity", s.ShadowOpacity},
		{"mask.fill_opacity", s.FillOpacity},
	} {
		if err := checkPercent(pc.key, pc.v); err != nil {
			return mask.Options{}, err
		}
	}

	stroke, err := imaging.ParseColor(s.Color, mask.OpacityToAlpha(s.Opacity))
	if err != nil {
		return mask.Options{}, fmt.Errorf("mask.color: %w", err)
	}
	shadow, err := imaging.ParseColor(s.Color, mask.OpacityToAlpha(s.ShadowOpacity))
	if err != nil {
		return mask.Options{}, fmt.Errorf("mask.color: %w", err)
	}
	fill, err := imaging.ParseColor(s.FillColor, mask.OpacityToAlpha(s.FillOpacity))
	if err != nil {
		return mask.Options{}, fmt.Errorf("mask.fill_color: %w", err)
	}

	o := mask.Options{
		Width:          s.Canvas.Width,
		Height:         s.Canvas.Height,
		Spacing:        s.Spacing,
		DashLength:     s.DashLength,
		GapLength:      s.GapLength,
		StrokeWidth:    s.LineWidth,
		ShadowExtra:    s.ShadowExtra,
		FogStrokeWidth: s.FoggyLineWidth,
		BlurRadius:     s.BlurRadius,
		StampText:      s.StampText,
		FontSize:       s.FontSize,
		FontPath:       s.FontPath,
		StampOffset:    s.StampOffset,
		StampStride:    s.StampStride,
		StrokeColor:    stroke,
		ShadowColor:    shadow,
		FillColor:      fill,
	}
	if err := o.Validate(); err != nil {
		return mask.Options{}, fmt.Errorf("mask: %w", err)
	}
	return o, nil
}

// Policy converts the apply.policy section. An empty kind is an error.
func (f *File) Policy() (composite.Policy, error) {
	s := f.Apply.Policy
	if err := checkPercent("apply.policy.opacity", s.Opacity); err != nil {
		return nil, err
	}
	p, err := composite.NewPolicy(s.Kind, composite.Params{
		BoostRatio: s.BoostRatio,
		MinScale:   s.MinScale,
		MaxScale:   s.MaxScale,
		Opacity:    float64(s.Opacity) / 100,
	})
	if err != nil {
		return nil, fmt.Errorf("apply.policy: %w", err)
	}
	return p, nil
}

// BatchOptions converts the apply section's file handling settings.
func (f *File) BatchOptions() (batch.Options, error) {
	s := f.Apply
	level, err := imaging.ParsePNGCompression(s.PNGCompression)
	if err != nil {
		return batch.Options{}, fmt.Errorf("apply.png_compression: %w", err)
	}
	o := batch.Options{
		OutputHeight:       s.OutputHeight,
		OutputDir:          s.OutputDir,
		JPEGQuality:        s.JPEGQuality,
		PNGCompression:     level,
		PrecompressQuality: s.PrecompressQuality,
		Workers:            s.Workers,
	}
	if err := o.Validate(); err != nil {
		return batch.Options{}, fmt.Errorf("apply: %w", err)
	}
	return o, nil
}

func checkPercent(key string, v int) error {
	if v < 0 || v > 100 {
		return fmt.Errorf("%s must be within 0-100, got %d: %w", key, v, imaging.ErrConfig)
	}
	return nil
}
