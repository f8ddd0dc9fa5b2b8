package filter

// BytesPerPixel is the size of one RGBA8 pixel.
const BytesPerPixel = 4

// Buffer is a validated RGBA8 view over caller-owned memory.
//
// len(Pix) is exactly Width*Height*BytesPerPixel. Filters mutate Pix in place
// and never retain it past the call.
type Buffer struct {
	Width  int
	Height int
	Pix    []byte
}

// offset returns the index of the first byte of pixel (x, y).
func (b *Buffer) offset(x, y int) int {
	return (y*b.Width + x) * BytesPerPixel
}

// Empty reports whether the buffer holds no pixels.
func (b *Buffer) Empty() bool {
	return b.Width == 0 || b.Height == 0
}

// Filter is the one capability every filter implementation provides: mutate a
// buffer given its configuration text. Apply must not fail; configuration
// problems resolve to defaults inside the implementation.
type Filter interface {
	// Name is the logical name the filter is registered under.
	Name() string

	// Apply decodes params and runs the filter over b.
	Apply(b *Buffer, params string)
}

// BoxBlur is the box blur filter.
type BoxBlur struct{}

// Name implements Filter.
func (BoxBlur) Name() string { return "blur" }

// Apply implements Filter.
func (BoxBlur) Apply(b *Buffer, params string) {
	Blur(b, DecodeBlurParams(params))
}

// Mirror is the mirror filter.
type Mirror struct{}

// Name implements Filter.
func (Mirror) Name() string { return "mirror" }

// Apply implements Filter.
func (Mirror) Apply(b *Buffer, params string) {
	Flip(b, DecodeMirrorParams(params))
}

// Builtins returns the filters compiled into this module, in name order.
func Builtins() []Filter {
	return []Filter{BoxBlur{}, Mirror{}}
}
