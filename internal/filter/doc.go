// Package filter implements the reference image filters and their parameter
// decoders.
//
// Every filter operates on a Buffer: a contiguous RGBA8 pixel slice, row-major,
// four bytes per pixel, no row padding. A Buffer is only ever constructed after
// its length has been validated against its dimensions (see package abi), so
// the algorithms here work purely over bounds-checked slices and never touch
// raw pointers.
//
// # Filters
//
//   - BoxBlur ("blur"): spatial mean over a square neighbourhood, repeated for
//     a number of passes. Configured with {"radius": uint, "iterations": uint}.
//   - Mirror ("mirror"): independent horizontal and vertical flips. Configured
//     with {"horizontal": bool, "vertical": bool}.
//
// # Configuration
//
// Parameter decoding never fails. Malformed JSON, wrong field types, missing
// fields and invalid UTF-8 all resolve to the filter's default record:
//
//	blur:   {"radius": 1, "iterations": 1}
//	mirror: {"horizontal": false, "vertical": false}
//
// Empty configuration text is treated as "{}", which is missing every field
// and therefore also yields the defaults.
//
// # Thread Safety
//
// Filters hold no state. A single call mutates its Buffer in place and must
// not run concurrently with another call on the same Buffer.
package filter
