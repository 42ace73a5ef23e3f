// Package imaging holds the color model and the image plumbing shared by the
// watermark engine.
//
// # Color Model
//
// All luminance math follows WCAG 2.x on sRGB input:
//   - GammaToLinear undoes the sRGB transfer curve for one channel
//   - RelativeLuminance weights the linear channels 0.2126/0.7152/0.0722
//   - ContrastRatio compares two luminances as (hi+0.05)/(lo+0.05)
//   - AdjustToTargetLuminance brightens a color toward white by bisection
//
// Channels are normalized floats in [0,1] inside the math and 8-bit integers
// at storage boundaries. Conversions back to 8 bits round to nearest and
// clamp to [0,255] (see ClampByte).
//
// # Image IO
//
// Open, Save and ImageCache wrap github.com/disintegration/imaging. Save picks
// the encoder from the file extension and flattens anything written as JPEG.
// CropTopLeft, ResizeToHeight, FlattenRGB and Recompress are the alignment
// steps applied before and after compositing.
//
// # Coordinate System
//
// Pixel coordinates are 0-based with the origin at the top-left corner,
// X increasing rightward and Y increasing downward.
//
// # Error Handling
//
// Errors about inputs and parameters, from this package and the packages
// built on it, wrap one of ErrInput, ErrDimension, ErrConfig or
// ErrNonConvergence. Failures writing outputs (creating directories,
// encoding files) wrap the underlying OS error instead, so errors.Is with
// fs.ErrPermission and similar keeps working.
//
// # Thread Safety
//
// ImageCache is safe for concurrent use. Every other function is stateless
// and can be called concurrently on different images.
package imaging
