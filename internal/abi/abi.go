// Package abi implements the process_image boundary shared by every filter
// module.
//
// The entry point has the C signature
//
//	int32_t process_image(uint32_t width, uint32_t height,
//	                      uint8_t *data, const char *params);
//
// and returns 0 on success and -1 on failure. Failure means only that the
// arguments could not be turned into a safe buffer view: the pixel count or
// byte length overflowed, data was nil while bytes were required, or a value
// does not fit Go's index types. Configuration problems never fail a call;
// they resolve to defaults inside the filter.
//
// ProcessImage is the only code in the module that converts raw pointers into
// slices. Everything past it works over a validated filter.Buffer.
package abi

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/bits"
	"unsafe"

	"github.com/ironsheep/image-filter-host/internal/filter"
)

// EntryPoint is the symbol every filter module exports.
const EntryPoint = "process_image"

// Status is the boundary status code.
type Status int32

const (
	// Success means the buffer was processed, or was empty.
	Success Status = 0

	// Failure means the arguments were rejected and nothing was written.
	Failure Status = -1
)

// OK reports whether s is the success code. Any non-zero value returned by a
// foreign module counts as failure.
func (s Status) OK() bool { return s == Success }

func (s Status) String() string {
	if s.OK() {
		return "success"
	}
	return fmt.Sprintf("failure(%d)", int32(s))
}

var (
	// ErrPixelCountOverflow is returned when width*height overflows uint32.
	ErrPixelCountOverflow = errors.New("pixel count overflows uint32")

	// ErrLengthOverflow is returned when width*height*4 overflows uint32.
	ErrLengthOverflow = errors.New("buffer length overflows uint32")

	// ErrNilData is returned when bytes are required but the data pointer is nil.
	ErrNilData = errors.New("nil data pointer with non-zero buffer length")

	// ErrLengthRange is returned when the buffer length does not fit in int.
	ErrLengthRange = errors.New("buffer length exceeds addressable size")

	// ErrDimensionRange is returned when a dimension does not fit in int.
	ErrDimensionRange = errors.New("dimension exceeds index range")

	// ErrShortBuffer is returned when a Go slice is shorter than the
	// dimensions require.
	ErrShortBuffer = errors.New("buffer shorter than width*height*4")
)

// Layout is a validated set of buffer dimensions.
type Layout struct {
	Width  int
	Height int
	Len    int
}

// ByteLength computes width*height*4 with every step checked. It is the
// first half of the contract and needs no pointer.
func ByteLength(width, height uint32) (uint32, error) {
	hi, pixels := bits.Mul32(width, height)
	if hi != 0 {
		return 0, ErrPixelCountOverflow
	}
	hi, n := bits.Mul32(pixels, filter.BytesPerPixel)
	if hi != 0 {
		return 0, ErrLengthOverflow
	}
	return n, nil
}

// Validate runs the pointer-independent checks of the contract and returns
// the layout a buffer must have.
func Validate(width, height uint32) (Layout, error) {
	n, err := ByteLength(width, height)
	if err != nil {
		return Layout{}, err
	}
	return layout(width, height, n)
}

// layout converts a checked length and the dimensions into int.
func layout(width, height, n uint32) (Layout, error) {
	length, ok := toInt(n)
	if !ok {
		return Layout{}, ErrLengthRange
	}
	w, ok := toInt(width)
	if !ok {
		return Layout{}, ErrDimensionRange
	}
	h, ok := toInt(height)
	if !ok {
		return Layout{}, ErrDimensionRange
	}
	return Layout{Width: w, Height: h, Len: length}, nil
}

// toInt converts v to int, reporting false where int is narrower than uint32
// and v does not fit.
func toInt(v uint32) (int, bool) {
	if uint64(v) > math.MaxInt {
		return 0, false
	}
	return int(v), true
}

// ProcessImage is the body of every exported process_image function.
//
// Preconditions, trusted and not checkable here: data points to at least
// width*height*4 writable bytes whenever that product is non-zero and stays
// valid for the call; params is nil or NUL-terminated; no other call uses the
// same buffer concurrently.
//
// The checks run in contract order: pixel count, byte length, nil data, then
// conversion into int. Only after all of them pass is the view built. A
// rejected call writes nothing.
func ProcessImage(width, height uint32, data, params unsafe.Pointer, f filter.Filter) Status {
	n, err := ByteLength(width, height)
	if err != nil {
		return reject(f, width, height, err)
	}
	if n > 0 && data == nil {
		return reject(f, width, height, ErrNilData)
	}
	l, err := layout(width, height, n)
	if err != nil {
		return reject(f, width, height, err)
	}

	b := &filter.Buffer{
		Width:  l.Width,
		Height: l.Height,
		Pix:    unsafe.Slice((*byte)(data), l.Len),
	}
	f.Apply(b, string(cString(params)))
	return Success
}

// Apply runs f over a Go-owned slice under the same contract as ProcessImage.
// pix must hold at least width*height*4 bytes; only that prefix is passed to
// the filter.
func Apply(f filter.Filter, width, height uint32, pix []byte, params string) Status {
	l, err := Validate(width, height)
	if err != nil {
		return reject(f, width, height, err)
	}
	if len(pix) < l.Len {
		return reject(f, width, height, ErrShortBuffer)
	}

	b := &filter.Buffer{Width: l.Width, Height: l.Height, Pix: pix[:l.Len:l.Len]}
	f.Apply(b, params)
	return Success
}

// cString returns the bytes of a NUL-terminated string without the
// terminator. A nil pointer is an empty string.
func cString(p unsafe.Pointer) []byte {
	if p == nil {
		return nil
	}
	n := 0
	for *(*byte)(unsafe.Add(p, n)) != 0 {
		n++
	}
	return unsafe.Slice((*byte)(p), n)
}

func reject(f filter.Filter, width, height uint32, err error) Status {
	logger().Debug("process_image rejected",
		slog.String("filter", f.Name()),
		slog.Uint64("width", uint64(width)),
		slog.Uint64("height", uint64(height)),
		slog.Any("error", err),
	)
	return Failure
}
