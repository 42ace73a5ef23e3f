package mask

import (
	"fmt"
	"image"
	"image/draw"
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/ironsheep/image-watermark-mcp/internal/geometry"
	"github.com/ironsheep/image-watermark-mcp/internal/imaging"
)

// stamper draws one short text centered on given points, five times per
// point: the four diagonal offsets and the center.
type stamper struct {
	face   font.Face
	text   string
	src    image.Image
	offset fixed.Int26_6

	// center is the vector from the ink box center to the drawing origin.
	center fixed.Point26_6
}

func loadFont(path string) (*opentype.Font, error) {
	data := goregular.TTF
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read font: %v: %w", err, imaging.ErrInput)
		}
		data = b
	}
	f, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse font %q: %v: %w", path, err, imaging.ErrInput)
	}
	return f, nil
}

func newStamper(o Options) (*stamper, error) {
	f, err := loadFont(o.FontPath)
	if err != nil {
		return nil, err
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    o.FontSize,
		DPI:     72,
		Hinting: font.HintingNone,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create font face: %v: %w", err, imaging.ErrConfig)
	}

	bounds, _ := font.BoundString(face, o.StampText)
	return &stamper{
		face:   face,
		text:   o.StampText,
		src:    image.NewUniform(o.ShadowColor.NRGBA()),
		offset: fixed.I(o.StampOffset),
		center: fixed.Point26_6{
			X: -(bounds.Min.X + bounds.Max.X) / 2,
			Y: -(bounds.Min.Y + bounds.Max.Y) / 2,
		},
	}, nil
}

func (s *stamper) Close() error {
	return s.face.Close()
}

// Stamp draws the text with its ink box centered on p.
func (s *stamper) Stamp(dst draw.Image, p geometry.Point) {
	origin := fixed.Point26_6{
		X: fixed.Int26_6(p.X*64) + s.center.X,
		Y: fixed.Int26_6(p.Y*64) + s.center.Y,
	}
	d := font.Drawer{Dst: dst, Src: s.src, Face: s.face}
	o := s.offset
	for _, off := range [5]fixed.Point26_6{{X: o, Y: o}, {X: -o, Y: -o}, {X: -o, Y: o}, {X: o, Y: -o}, {}} {
		d.Dot = origin.Add(off)
		d.DrawString(s.text)
	}
}
