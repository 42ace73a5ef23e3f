package mask

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ironsheep/image-watermark-mcp/internal/imaging"
)

// Metadata is the YAML sidecar stored next to a mask array.
type Metadata struct {
	Width      int               `yaml:"width"`
	Height     int               `yaml:"height"`
	FillColor  imaging.RGBAColor `yaml:"fill_color"`
	Coverage   float64           `yaml:"coverage"`
	Generation *Options          `yaml:"generation,omitempty"`
}

// Paths names the files of one stored asset.
type Paths struct {
	Array    string `json:"array"`
	Preview  string `json:"preview"`
	Metadata string `json:"metadata"`
}

// PathsFor returns the file names Save uses for name under dir.
func PathsFor(dir, name string) Paths {
	base := filepath.Join(dir, name)
	return Paths{
		Array:    base + ".npy",
		Preview:  base + ".png",
		Metadata: base + ".yaml",
	}
}

// DefaultFill is the fill applied to a mask loaded without a sidecar.
func DefaultFill() imaging.RGBAColor {
	return Defaults().FillColor
}

// Save writes the asset as name.npy, a grayscale name.png preview and a
// name.yaml sidecar under dir, creating dir if needed.
func Save(dir, name string, a *Asset) (Paths, error) {
	if name == "" || strings.ContainsAny(name, `/\`) {
		return Paths{}, fmt.Errorf("invalid asset name %q: %w", name, imaging.ErrConfig)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Paths{}, fmt.Errorf("failed to create directory: %w", err)
	}
	p := PathsFor(dir, name)

	f, err := os.Create(p.Array)
	if err != nil {
		return Paths{}, fmt.Errorf("failed to create mask file: %w", err)
	}
	if err := WriteNPY(f, a.Mask); err != nil {
		f.Close()
		return Paths{}, err
	}
	if err := f.Close(); err != nil {
		return Paths{}, fmt.Errorf("failed to close mask file: %w", err)
	}

	if err := imaging.Save(a.Mask.Preview(), p.Preview, imaging.SaveOptions{}); err != nil {
		return Paths{}, err
	}

	meta := Metadata{
		Width:      a.Mask.Width,
		Height:     a.Mask.Height,
		FillColor:  a.Fill,
		Coverage:   a.Mask.Coverage(),
		Generation: a.Options,
	}
	data, err := yaml.Marshal(&meta)
	if err != nil {
		return Paths{}, fmt.Errorf("failed to encode metadata: %w", err)
	}
	if err := os.WriteFile(p.Metadata, data, 0o644); err != nil {
		return Paths{}, fmt.Errorf("failed to write metadata: %w", err)
	}
	return p, nil
}

// Load reads a mask array and, when present, the .yaml sidecar beside it.
// Without a sidecar the asset gets DefaultFill. A sidecar whose size
// disagrees with the array is rejected with ErrInput.
func Load(path string) (*Asset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open mask: %v: %w", err, imaging.ErrInput)
	}
	defer f.Close()

	m, err := ReadNPY(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read mask %s: %w", path, err)
	}
	a := &Asset{Mask: m, Fill: DefaultFill()}

	sidecar := strings.TrimSuffix(path, filepath.Ext(path)) + ".yaml"
	data, err := os.ReadFile(sidecar)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return a, nil
	case err != nil:
		return nil, fmt.Errorf("failed to read metadata: %w", err)
	}

	meta := Metadata{FillColor: a.Fill}
	if err := yaml.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("failed to parse metadata %s: %v: %w", sidecar, err, imaging.ErrInput)
	}
	if meta.Width != m.Width || meta.Height != m.Height {
		return nil, fmt.Errorf("metadata says %dx%d but mask is %dx%d: %w",
			meta.Width, meta.Height, m.Width, m.Height, imaging.ErrInput)
	}
	a.Fill = meta.FillColor
	a.Options = meta.Generation
	return a, nil
}
