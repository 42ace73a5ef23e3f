package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/ironsheep/image-watermark-mcp/internal/batch"
	"github.com/ironsheep/image-watermark-mcp/internal/config"
	"github.com/ironsheep/image-watermark-mcp/internal/imaging"
	"github.com/ironsheep/image-watermark-mcp/internal/mask"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

const usage = `watermark - generate watermark masks and apply them to images

Usage:
  watermark generate  -config cfg.yaml -out dir -name watermark_mask_450
  watermark apply     -config cfg.yaml -asset mask.npy -in img.jpg -out out.jpg [-policy kind]
  watermark batch     -config cfg.yaml -asset mask.npy -dir folder [-policy kind]
  watermark luminance -rgb 30,30,30 -target 0.175

Every subcommand accepts -debug. Policies: overlay, adaptive,
global-max-boost, symmetric-contrast, multiply.

Environment variables:
  WATERMARK_LOG_LEVEL=debug    Log level (debug, info, warn, error)
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	var run func(args []string, logger zerolog.Logger) error
	switch os.Args[1] {
	case "--version", "-v", "version":
		fmt.Printf("watermark %s\n", Version)
		fmt.Printf("  Build time: %s\n", BuildTime)
		fmt.Printf("  Git commit: %s\n", GitCommit)
		return
	case "--help", "-h", "help":
		fmt.Print(usage)
		return
	case "generate":
		run = runGenerate
	case "apply":
		run = runApply
	case "batch":
		run = runBatch
	case "luminance":
		run = runLuminance
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", os.Args[1], usage)
		os.Exit(2)
	}

	logger := newLogger(hasDebugFlag(os.Args[2:]))
	if err := run(os.Args[2:], logger); err != nil {
		logger.Error().Err(err).Str("command", os.Args[1]).Msg("failed")
		os.Exit(1)
	}
}

// newLogger writes human-readable logs to stderr at the level named by
// WATERMARK_LOG_LEVEL, or debug when forced.
func newLogger(debug bool) zerolog.Logger {
	level, err := zerolog.ParseLevel(os.Getenv("WATERMARK_LOG_LEVEL"))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	if debug {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()
}

func hasDebugFlag(args []string) bool {
	for _, a := range args {
		if a == "-debug" || a == "--debug" || a == "-debug=true" || a == "--debug=true" {
			return true
		}
	}
	return false
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.Bool("debug", false, "debug logging")
	return fs
}

func loadConfig(path, policy string) (*config.File, error) {
	f, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if policy != "" {
		f.Apply.Policy.Kind = policy
	}
	return f, nil
}

func runGenerate(args []string, logger zerolog.Logger) error {
	fs := newFlagSet("generate")
	cfgPath := fs.String("config", "", "YAML configuration file")
	out := fs.String("out", ".", "output directory")
	name := fs.String("name", "watermark_mask_450", "asset base name")
	if err := fs.Parse(args); err != nil {
		return err
	}

	f, err := loadConfig(*cfgPath, "")
	if err != nil {
		return err
	}
	o, err := f.MaskOptions()
	if err != nil {
		return err
	}
	res, err := mask.Synthesize(o)
	if err != nil {
		return err
	}
	paths, err := mask.Save(*out, *name, res.Asset)
	if err != nil {
		return err
	}
	logger.Info().
		Str("array", paths.Array).
		Str("preview", paths.Preview).
		Str("metadata", paths.Metadata).
		Int("lines_45", len(res.Lines45)).
		Int("lines_135", len(res.Lines135)).
		Int("intersections", len(res.Intersections)).
		Float64("coverage", res.Asset.Mask.Coverage()).
		Msg("watermark generated")
	return nil
}

// newDriver loads the asset and builds a batch driver from the config.
func newDriver(cfgPath, policy, assetPath string, logger zerolog.Logger) (*batch.Driver, error) {
	if assetPath == "" {
		return nil, fmt.Errorf("-asset is required: %w", imaging.ErrConfig)
	}
	f, err := loadConfig(cfgPath, policy)
	if err != nil {
		return nil, err
	}
	s, err := f.Validate()
	if err != nil {
		return nil, err
	}
	asset, err := mask.Load(assetPath)
	if err != nil {
		return nil, err
	}
	return batch.NewDriver(asset, s.Policy, s.Batch, logger)
}

func runApply(args []string, logger zerolog.Logger) error {
	fs := newFlagSet("apply")
	cfgPath := fs.String("config", "", "YAML configuration file")
	policy := fs.String("policy", "", "blend policy, overrides apply.policy.kind")
	assetPath := fs.String("asset", "", "watermark .npy file")
	in := fs.String("in", "", "input image")
	out := fs.String("out", "", "output image")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *in == "" || *out == "" {
		return fmt.Errorf("-in and -out are required: %w", imaging.ErrConfig)
	}

	d, err := newDriver(*cfgPath, *policy, *assetPath, logger)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := d.ProcessFile(ctx, *in, *out)
	if err != nil {
		return err
	}
	if res.Status != batch.StatusOK {
		return fmt.Errorf("%s: %s", res.Status, res.Error)
	}
	return nil
}

func runBatch(args []string, logger zerolog.Logger) error {
	fs := newFlagSet("batch")
	cfgPath := fs.String("config", "", "YAML configuration file")
	policy := fs.String("policy", "", "blend policy, overrides apply.policy.kind")
	assetPath := fs.String("asset", "", "watermark .npy file")
	dir := fs.String("dir", "", "folder of images")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *dir == "" {
		return fmt.Errorf("-dir is required: %w", imaging.ErrConfig)
	}

	d, err := newDriver(*cfgPath, *policy, *assetPath, logger)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := d.Run(ctx, *dir)
	if err != nil {
		return err
	}
	if !report.OK() {
		return fmt.Errorf("%d of %d files failed", report.Count(batch.StatusFailed), len(report.Results))
	}
	return nil
}

func runLuminance(args []string, logger zerolog.Logger) error {
	fs := newFlagSet("luminance")
	rgb := fs.String("rgb", "30,30,30", "color as r,g,b")
	target := fs.Float64("target", 0.175, "target relative luminance")
	if err := fs.Parse(args); err != nil {
		return err
	}

	c, err := parseTriple(*rgb)
	if err != nil {
		return err
	}
	adjusted, err := imaging.AdjustToTargetLuminance(c, *target)
	switch {
	case errors.Is(err, imaging.ErrNonConvergence):
		logger.Warn().Err(err).Msg("luminance target not reached")
	case err != nil:
		return err
	}

	contrast := imaging.CompareContrast(adjusted, c)
	fmt.Printf("original: %s  luminance %.4f\n", c.Hex(), c.Luminance())
	fmt.Printf("adjusted: %s  rgb(%d,%d,%d)  luminance %.4f\n",
		adjusted.Hex(), adjusted.R, adjusted.G, adjusted.B, adjusted.Luminance())
	fmt.Printf("contrast: %.2f:1  AA %v  AAA %v\n", contrast.Ratio, contrast.AA, contrast.AAA)
	return nil
}

func parseTriple(s string) (imaging.RGBColor, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return imaging.RGBColor{}, fmt.Errorf("color %q must be r,g,b: %w", s, imaging.ErrConfig)
	}
	var v [3]uint8
	for i, p := range parts {
		n, err := strconv.ParseUint(strings.TrimSpace(p), 10, 8)
		if err != nil {
			return imaging.RGBColor{}, fmt.Errorf("color %q: %w", s, imaging.ErrConfig)
		}
		v[i] = uint8(n)
	}
	return imaging.RGBColor{R: v[0], G: v[1], B: v[2]}, nil
}
