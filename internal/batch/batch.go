package batch

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ironsheep/image-watermark-mcp/internal/composite"
	"github.com/ironsheep/image-watermark-mcp/internal/imaging"
	"github.com/ironsheep/image-watermark-mcp/internal/mask"
)

// DefaultOutputDir is the folder created inside the input directory when
// Options.OutputDir is empty.
const DefaultOutputDir = "output"

// Options controls how each file is prepared and written.
type Options struct {
	// OutputHeight is the height every image is resized to before
	// watermarking, keeping the aspect ratio. Zero keeps the input size.
	OutputHeight int `json:"output_height" yaml:"output_height"`

	// OutputDir receives the results. Empty selects <input>/output.
	OutputDir string `json:"output_dir" yaml:"output_dir"`

	// JPEGQuality is used when writing JPEG results. Zero selects 95.
	JPEGQuality int `json:"jpeg_quality" yaml:"jpeg_quality"`

	PNGCompression png.CompressionLevel `json:"png_compression" yaml:"png_compression"`

	// PrecompressQuality, when non-zero, runs JPEG inputs through one lossy
	// encode/decode pass at this quality before the watermark is applied.
	PrecompressQuality int `json:"precompress_quality" yaml:"precompress_quality"`

	// Workers bounds the number of files processed at once. Zero selects
	// runtime.NumCPU().
	Workers int `json:"workers" yaml:"workers"`
}

// DefaultOptions returns the classic driver settings: 2000 px high output
// written next to the inputs, JPEG quality 95.
func DefaultOptions() Options {
	return Options{
		OutputHeight: 2000,
		JPEGQuality:  95,
	}
}

// Validate reports out-of-range settings as ErrConfig.
func (o Options) Validate() error {
	switch {
	case o.OutputHeight < 0:
		return fmt.Errorf("output_height must not be negative, got %d: %w", o.OutputHeight, imaging.ErrConfig)
	case o.JPEGQuality < 0 || o.JPEGQuality > 100:
		return fmt.Errorf("jpeg_quality must be within 0-100, got %d: %w", o.JPEGQuality, imaging.ErrConfig)
	case o.PrecompressQuality < 0 || o.PrecompressQuality > 100:
		return fmt.Errorf("precompress_quality must be within 0-100, got %d: %w", o.PrecompressQuality, imaging.ErrConfig)
	case o.Workers < 0:
		return fmt.Errorf("workers must not be negative, got %d: %w", o.Workers, imaging.ErrConfig)
	case o.PNGCompression > png.DefaultCompression || o.PNGCompression < png.BestCompression:
		return fmt.Errorf("unknown png compression level %d: %w", o.PNGCompression, imaging.ErrConfig)
	}
	return nil
}

func (o Options) workers() int {
	if o.Workers > 0 {
		return o.Workers
	}
	return runtime.NumCPU()
}

// Status is the outcome of one file.
type Status string

const (
	StatusOK       Status = "ok"
	StatusSkipped  Status = "skipped"
	StatusFailed   Status = "failed"
	StatusCanceled Status = "canceled"
)

// Result records what happened to one input file.
type Result struct {
	Input    string        `json:"input"`
	Output   string        `json:"output,omitempty"`
	Status   Status        `json:"status"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration_ns"`

	Err error `json:"-"`
}

// Report collects the results of a Run in input order.
type Report struct {
	InputDir  string   `json:"input_dir"`
	OutputDir string   `json:"output_dir"`
	Results   []Result `json:"results"`
}

// OK reports whether every file was written or deliberately skipped.
func (r *Report) OK() bool {
	for _, res := range r.Results {
		if res.Status != StatusOK && res.Status != StatusSkipped {
			return false
		}
	}
	return true
}

// Count returns how many results have status s.
func (r *Report) Count(s Status) int {
	n := 0
	for _, res := range r.Results {
		if res.Status == s {
			n++
		}
	}
	return n
}

// Driver applies one watermark asset to many images.
//
// The watermark layer is rendered once by NewDriver and shared read-only by
// every worker. A Driver is safe for concurrent use.
type Driver struct {
	asset   *mask.Asset
	policy  composite.Policy
	options Options
	logger  zerolog.Logger
	layer   *image.NRGBA

	// compose is composite.Composite outside tests.
	compose func(base, watermark image.Image, p composite.Policy) (*image.NRGBA, error)
}

// NewDriver validates its arguments and renders the watermark layer.
func NewDriver(asset *mask.Asset, policy composite.Policy, opts Options, logger zerolog.Logger) (*Driver, error) {
	if asset == nil || asset.Mask == nil {
		return nil, fmt.Errorf("watermark asset is required: %w", imaging.ErrInput)
	}
	if policy == nil {
		return nil, fmt.Errorf("blend policy is required: %w", imaging.ErrConfig)
	}
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Driver{
		asset:   asset,
		policy:  policy,
		options: opts,
		logger:  logger,
		layer:   asset.Layer(),
		compose: composite.Composite,
	}, nil
}

// Enumerate lists the .jpg, .jpeg and .png files directly inside dir,
// matching extensions case-insensitively, sorted by name.
func Enumerate(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read input directory: %v: %w", err, imaging.ErrInput)
	}
	var files []string
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".jpg", ".jpeg", ".png":
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	return files, nil
}

// Run watermarks every image in dir and writes the results under the
// configured output directory with unchanged base names.
//
// Files are processed by a bounded pool of workers. A failing file is
// recorded and logged and does not stop its siblings. When ctx is canceled
// no further files are started, files in flight finish, the remaining
// files are reported as canceled and the context error is returned together
// with the partial report.
func (d *Driver) Run(ctx context.Context, dir string) (*Report, error) {
	files, err := Enumerate(dir)
	if err != nil {
		return nil, err
	}
	outDir := d.options.OutputDir
	if outDir == "" {
		outDir = filepath.Join(dir, DefaultOutputDir)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	report := &Report{
		InputDir:  dir,
		OutputDir: outDir,
		Results:   make([]Result, len(files)),
	}
	for i, in := range files {
		report.Results[i] = Result{Input: in, Status: StatusCanceled}
	}

	d.logger.Info().
		Str("dir", dir).
		Int("files", len(files)).
		Int("workers", d.options.workers()).
		Str("policy", d.policy.Name()).
		Msg("batch started")

	var g errgroup.Group
	g.SetLimit(d.options.workers())
	for i, in := range files {
		if ctx.Err() != nil {
			break
		}
		i, in := i, in
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			report.Results[i] = d.process(ctx, in, filepath.Join(outDir, filepath.Base(in)))
			return nil
		})
	}
	g.Wait()

	d.logger.Info().
		Int("ok", report.Count(StatusOK)).
		Int("skipped", report.Count(StatusSkipped)).
		Int("failed", report.Count(StatusFailed)).
		Int("canceled", report.Count(StatusCanceled)).
		Msg("batch finished")

	if err := ctx.Err(); err != nil {
		return report, err
	}
	return report, nil
}

// ProcessFile watermarks a single image from in and writes it to out.
// Images with no pixels are reported with an error wrapping ErrDimension.
func (d *Driver) ProcessFile(ctx context.Context, in, out string) (Result, error) {
	res := d.process(ctx, in, out)
	return res, res.Err
}

func (d *Driver) process(ctx context.Context, in, out string) Result {
	start := time.Now()
	res := Result{Input: in}
	err := d.applyRecovered(ctx, in, out)
	res.Duration = time.Since(start)

	log := d.logger.With().Str("file", in).Logger()
	switch {
	case err == nil:
		res.Status = StatusOK
		res.Output = out
		log.Info().Dur("took", res.Duration).Str("output", out).Msg("watermarked")
	case errors.Is(err, imaging.ErrDimension):
		res.Status = StatusSkipped
		log.Warn().Err(err).Msg("skipped empty image")
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		res.Status = StatusCanceled
		log.Warn().Err(err).Msg("canceled")
	default:
		res.Status = StatusFailed
		log.Error().Err(err).Msg("failed")
	}
	if err != nil {
		res.Err = err
		res.Error = err.Error()
	}
	return res
}

// applyRecovered turns a panic while processing one file into an error so
// the other files of a batch keep going. Panics on goroutines started by the
// imaging libraries are out of its reach.
func (d *Driver) applyRecovered(ctx context.Context, in, out string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while watermarking %s: %v", in, r)
		}
	}()
	return d.apply(ctx, in, out)
}

func (d *Driver) apply(ctx context.Context, in, out string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	img, err := imaging.Open(in)
	if err != nil {
		return err
	}

	if d.options.OutputHeight > 0 {
		img, err = imaging.ResizeToHeight(img, d.options.OutputHeight)
		if err != nil {
			return err
		}
	}

	if q := d.options.PrecompressQuality; q > 0 && isJPEG(in) {
		img, err = imaging.Recompress(img, q)
		if err != nil {
			return err
		}
	}

	result, err := d.compose(img, d.layer, d.policy)
	if err != nil {
		return err
	}

	return imaging.Save(result, out, imaging.SaveOptions{
		JPEGQuality:    d.options.JPEGQuality,
		PNGCompression: d.options.PNGCompression,
	})
}

func isJPEG(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return true
	}
	return false
}
