package filter

// Flip mirrors the buffer along the requested axes.
//
// Horizontal reverses every row, Vertical reverses the row order. The flags
// compose independently; with both set the result is a point reflection
// through the image centre.
func Flip(b *Buffer, p MirrorParams) {
	if b.Empty() || (!p.Horizontal && !p.Vertical) {
		return
	}

	src := make([]byte, len(b.Pix))
	copy(src, b.Pix)

	w, h := b.Width, b.Height
	for y := 0; y < h; y++ {
		srcY := y
		if p.Vertical {
			srcY = h - 1 - y
		}
		for x := 0; x < w; x++ {
			srcX := x
			if p.Horizontal {
				srcX = w - 1 - x
			}
			s := b.offset(srcX, srcY)
			d := b.offset(x, y)
			copy(b.Pix[d:d+BytesPerPixel], src[s:s+BytesPerPixel])
		}
	}
}
