package batch

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/ironsheep/image-watermark-mcp/internal/composite"
	"github.com/ironsheep/image-watermark-mcp/internal/imaging"
	"github.com/ironsheep/image-watermark-mcp/internal/mask"
)

// solidAsset returns a w x h asset with every pixel set.
func solidAsset(w, h int, fill imaging.RGBAColor) *mask.Asset {
	bits := make([]uint8, w*h)
	for i := range bits {
		bits[i] = 1
	}
	return &mask.Asset{Mask: &mask.Mask{Width: w, Height: h, Bits: bits}, Fill: fill}
}

func writeImage(t *testing.T, path string, w, h int, c color.NRGBA) {
	t.Helper()
	if err := imaging.Save(imaging.Fill(w, h, c), path, imaging.SaveOptions{}); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

func newTestDriver(t *testing.T, opts Options) *Driver {
	t.Helper()
	blue := imaging.RGBAColor{B: 255, A: 255}
	d, err := NewDriver(solidAsset(5, 5, blue), composite.Overlay{}, opts, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewDriver() error = %v", err)
	}
	return d
}

func TestEnumerate(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.png", "a.JPG", "c.txt", "d.jpeg", "e.gif"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "sub.png"), 0o755); err != nil {
		t.Fatal(err)
	}

	got, err := Enumerate(dir)
	if err != nil {
		t.Fatalf("Enumerate() error = %v", err)
	}
	want := []string{"a.JPG", "b.png", "d.jpeg"}
	if len(got) != len(want) {
		t.Fatalf("Enumerate() = %v, want %v", got, want)
	}
	for i := range want {
		if filepath.Base(got[i]) != want[i] {
			t.Errorf("Enumerate()[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestEnumerate_MissingDir(t *testing.T) {
	_, err := Enumerate(filepath.Join(t.TempDir(), "nope"))
	if !errors.Is(err, imaging.ErrInput) {
		t.Errorf("Enumerate() error = %v, want ErrInput", err)
	}
}

func TestOptionsValidate(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		wantErr bool
	}{
		{"defaults", DefaultOptions(), false},
		{"zero value", Options{}, false},
		{"best png", Options{PNGCompression: png.BestCompression}, false},
		{"negative height", Options{OutputHeight: -1}, true},
		{"jpeg quality too high", Options{JPEGQuality: 101}, true},
		{"negative precompress", Options{PrecompressQuality: -1}, true},
		{"negative workers", Options{Workers: -2}, true},
		{"unknown png level", Options{PNGCompression: 9}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.Validate()
			if tt.wantErr && !errors.Is(err, imaging.ErrConfig) {
				t.Errorf("Validate() = %v, want ErrConfig", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Validate() = %v, want nil", err)
			}
		})
	}
}

func TestNewDriver_Errors(t *testing.T) {
	asset := solidAsset(1, 1, imaging.RGBAColor{A: 255})
	if _, err := NewDriver(nil, composite.Overlay{}, Options{}, zerolog.Nop()); !errors.Is(err, imaging.ErrInput) {
		t.Errorf("nil asset: error = %v, want ErrInput", err)
	}
	if _, err := NewDriver(asset, nil, Options{}, zerolog.Nop()); !errors.Is(err, imaging.ErrConfig) {
		t.Errorf("nil policy: error = %v, want ErrConfig", err)
	}
	if _, err := NewDriver(asset, composite.Multiply{Opacity: 2}, Options{}, zerolog.Nop()); !errors.Is(err, imaging.ErrConfig) {
		t.Errorf("bad policy: error = %v, want ErrConfig", err)
	}
	if _, err := NewDriver(asset, composite.Overlay{}, Options{Workers: -1}, zerolog.Nop()); !errors.Is(err, imaging.ErrConfig) {
		t.Errorf("bad options: error = %v, want ErrConfig", err)
	}
}

func TestProcessFile(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "red.png")
	out := filepath.Join(dir, "out", "red.png")
	writeImage(t, in, 20, 20, color.NRGBA{R: 255, A: 255})

	d := newTestDriver(t, Options{})
	res, err := d.ProcessFile(context.Background(), in, out)
	if err != nil {
		t.Fatalf("ProcessFile() error = %v", err)
	}
	if res.Status != StatusOK || res.Output != out {
		t.Errorf("result = %+v", res)
	}

	img, err := imaging.Open(out)
	if err != nil {
		t.Fatalf("Open(out) error = %v", err)
	}
	nrgba := imaging.ToNRGBA(img)
	if got := nrgba.NRGBAAt(0, 0); got != (color.NRGBA{B: 255, A: 255}) {
		t.Errorf("watermarked pixel = %v, want blue", got)
	}
	if got := nrgba.NRGBAAt(10, 10); got != (color.NRGBA{R: 255, A: 255}) {
		t.Errorf("uncovered pixel = %v, want red", got)
	}
}

func TestProcessFile_Resizes(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "wide.jpg")
	out := filepath.Join(dir, "out", "wide.jpg")
	writeImage(t, in, 40, 20, color.NRGBA{R: 90, G: 90, B: 90, A: 255})

	d := newTestDriver(t, Options{OutputHeight: 10, PrecompressQuality: 30})
	if _, err := d.ProcessFile(context.Background(), in, out); err != nil {
		t.Fatalf("ProcessFile() error = %v", err)
	}
	info, err := imaging.LoadImageInfo(imaging.NewImageCache(), out)
	if err != nil {
		t.Fatalf("LoadImageInfo() error = %v", err)
	}
	if info.Width != 20 || info.Height != 10 {
		t.Errorf("output is %dx%d, want 20x10", info.Width, info.Height)
	}
}

func TestProcessFile_Undecodable(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "broken.png")
	os.WriteFile(in, []byte("not a png"), 0o644)

	d := newTestDriver(t, Options{})
	res, err := d.ProcessFile(context.Background(), in, filepath.Join(dir, "out.png"))
	if !errors.Is(err, imaging.ErrInput) {
		t.Errorf("ProcessFile() error = %v, want ErrInput", err)
	}
	if res.Status != StatusFailed || res.Error == "" {
		t.Errorf("result = %+v, want failed with message", res)
	}
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	writeImage(t, filepath.Join(dir, "a.png"), 30, 30, color.NRGBA{G: 200, A: 255})
	writeImage(t, filepath.Join(dir, "b.jpg"), 40, 20, color.NRGBA{R: 120, G: 60, B: 30, A: 255})
	os.WriteFile(filepath.Join(dir, "c.png"), []byte("garbage"), 0o644)
	os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644)

	d := newTestDriver(t, Options{OutputHeight: 10, Workers: 2})
	report, err := d.Run(context.Background(), dir)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(report.Results) != 3 {
		t.Fatalf("got %d results, want 3", len(report.Results))
	}
	wantStatus := []Status{StatusOK, StatusOK, StatusFailed}
	for i, res := range report.Results {
		if res.Status != wantStatus[i] {
			t.Errorf("%s: status %s, want %s (%s)", filepath.Base(res.Input), res.Status, wantStatus[i], res.Error)
		}
	}
	if report.OK() {
		t.Error("OK() = true with a failed file")
	}
	if report.OutputDir != filepath.Join(dir, DefaultOutputDir) {
		t.Errorf("OutputDir = %s", report.OutputDir)
	}
	for _, name := range []string{"a.png", "b.jpg"} {
		if _, err := os.Stat(filepath.Join(report.OutputDir, name)); err != nil {
			t.Errorf("missing output %s: %v", name, err)
		}
	}
	if _, err := os.Stat(filepath.Join(report.OutputDir, "c.png")); !os.IsNotExist(err) {
		t.Errorf("failed file produced output: %v", err)
	}
}

func TestRun_AllGood(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(t.TempDir(), "results")
	for _, name := range []string{"1.png", "2.png", "3.png", "4.png"} {
		writeImage(t, filepath.Join(dir, name), 8, 8, color.NRGBA{R: 10, G: 10, B: 10, A: 255})
	}

	d := newTestDriver(t, Options{OutputDir: out, Workers: 1})
	report, err := d.Run(context.Background(), dir)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !report.OK() || report.Count(StatusOK) != 4 {
		t.Errorf("report = %+v", report)
	}
	if report.OutputDir != out {
		t.Errorf("OutputDir = %s, want %s", report.OutputDir, out)
	}
}

func TestRun_Canceled(t *testing.T) {
	dir := t.TempDir()
	writeImage(t, filepath.Join(dir, "a.png"), 8, 8, color.NRGBA{A: 255})
	writeImage(t, filepath.Join(dir, "b.png"), 8, 8, color.NRGBA{A: 255})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := newTestDriver(t, Options{})
	report, err := d.Run(ctx, dir)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() error = %v, want context.Canceled", err)
	}
	if report.Count(StatusCanceled) != 2 || report.OK() {
		t.Errorf("report = %+v", report)
	}
}

func TestRun_MissingDir(t *testing.T) {
	d := newTestDriver(t, Options{})
	if _, err := d.Run(context.Background(), filepath.Join(t.TempDir(), "missing")); !errors.Is(err, imaging.ErrInput) {
		t.Errorf("Run() error = %v, want ErrInput", err)
	}
}

func TestReport_EmptyIsOK(t *testing.T) {
	r := &Report{}
	if !r.OK() {
		t.Error("empty report should be OK")
	}
	r.Results = []Result{{Status: StatusSkipped}}
	if !r.OK() {
		t.Error("skipped files should not fail the report")
	}
}

func TestRun_PanicIsRecordedAsFailure(t *testing.T) {
	dir := t.TempDir()
	writeImage(t, filepath.Join(dir, "a.png"), 8, 8, color.NRGBA{R: 255, A: 255})
	writeImage(t, filepath.Join(dir, "b.png"), 8, 8, color.NRGBA{G: 255, A: 255})

	d := newTestDriver(t, Options{JPEGQuality: 95, Workers: 2})
	d.compose = func(base, _ image.Image, _ composite.Policy) (*image.NRGBA, error) {
		if r, _, _, _ := base.At(0, 0).RGBA(); r == 0xffff {
			panic("corrupt pixel buffer")
		}
		return imaging.ToNRGBA(base), nil
	}

	report, err := d.Run(context.Background(), dir)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(report.Results) != 2 {
		t.Fatalf("got %d results, want 2", len(report.Results))
	}
	a, b := report.Results[0], report.Results[1]
	if a.Status != StatusFailed || !strings.Contains(a.Error, "corrupt pixel buffer") {
		t.Errorf("a.png: status = %s, error = %q; want failed with the recovered panic", a.Status, a.Error)
	}
	if b.Status != StatusOK {
		t.Errorf("b.png: status = %s (%s), want ok", b.Status, b.Error)
	}
	if _, err := os.Stat(filepath.Join(dir, "output", "b.png")); err != nil {
		t.Errorf("sibling output missing: %v", err)
	}
	if report.OK() {
		t.Error("report with failures should not be OK")
	}
}

func TestProcessFile_PanicReturnsError(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.png")
	writeImage(t, in, 8, 8, color.NRGBA{R: 255, A: 255})

	d := newTestDriver(t, Options{JPEGQuality: 95})
	d.compose = func(image.Image, image.Image, composite.Policy) (*image.NRGBA, error) {
		panic("corrupt pixel buffer")
	}

	res, err := d.ProcessFile(context.Background(), in, filepath.Join(dir, "out.png"))
	if err == nil || res.Status != StatusFailed {
		t.Errorf("ProcessFile() = %s, %v; want failed with an error", res.Status, err)
	}
}
