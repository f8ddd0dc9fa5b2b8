// Package imaging converts between image files and the RGBA8 buffers filters
// operate on.
//
// Decoded sources are held in an ImageCache. LoadRGBA turns a source into a
// fresh *image.NRGBA whose Pix slice is the row-major, top-to-bottom,
// 4-bytes-per-pixel buffer passed across the process_image boundary, and Save
// writes the result back out with an encoder chosen by file extension.
//
// # Coordinate System
//
// All pixel coordinates in this package are 0-based:
//   - X: horizontal position (0 = leftmost pixel)
//   - Y: vertical position (0 = topmost pixel)
//
// # Pixel Format
//
// Buffers are non-premultiplied RGBA with 8 bits per channel. Sources with
// 16-bit channels, palettes or premultiplied alpha are converted on load.
// JPEG sources are rotated according to their EXIF orientation tag.
//
// # Thread Safety
//
// The ImageCache type is safe for concurrent use. LoadRGBA returns a private
// copy on every call, so callers may mutate the result freely.
//
// # Color Representation
//
// Colors are returned in multiple formats for flexibility:
//   - Hex: 6-character format "#RRGGBB" (alpha excluded)
//   - RGB: 8-bit components (0-255)
//   - RGBA: 8-bit components with alpha (0-255)
//   - HSL: Hue (0-360), Saturation (0-100), Lightness (0-100)
//
// Summarize reports the mean color of a buffer, which the host uses to
// describe an image before and after a filter runs.
package imaging
