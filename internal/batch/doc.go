// Package batch applies one watermark asset to every image in a folder.
//
// # Pipeline
//
// Each file goes through the same steps:
//
//  1. Decode (JPEG, PNG; EXIF orientation applied).
//  2. Resize to Options.OutputHeight, keeping the aspect ratio.
//  3. Optionally re-encode JPEG inputs once at Options.PrecompressQuality.
//  4. Composite the watermark layer under the configured blend policy.
//  5. Encode in the input's format under the output directory.
//
// # Concurrency
//
// Files are independent. Run schedules them on an errgroup bounded to
// Options.Workers goroutines and collects one Result per file in input
// order. A failure in one file never aborts the others; the Report says
// which files failed and why.
//
// Zero-area images are reported as skipped rather than failed.
package batch
