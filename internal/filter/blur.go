package filter

import "bytes"

// Blur applies p.Iterations passes of a box blur with half-width p.Radius.
//
// Each pass reads from a snapshot of the buffer taken at the start of the pass
// and writes averages into b.Pix, so passes compose sequentially rather than
// as one larger kernel. For every pixel the four channels are summed over the
// neighbours (dx, dy) in [-Radius, Radius]² that fall inside the image and
// divided by the number of neighbours actually included. Division truncates
// toward zero.
//
// # Edge Handling
//
// Out-of-bounds neighbours are excluded, never clamped or wrapped, so corner
// and edge pixels average over fewer samples than interior ones.
//
// # Cost
//
// A pass costs O(Width * Height * (2*Radius+1)²), with the window intersected
// with the image first. Radius 0 makes every pass a no-op. Once a pass leaves
// the buffer unchanged the remaining passes would too, so they are skipped.
func Blur(b *Buffer, p BlurParams) {
	if b.Empty() || p.Radius == 0 || p.Iterations == 0 {
		return
	}

	r := effectiveRadius(p.Radius, b.Width, b.Height)
	snapshot := make([]byte, len(b.Pix))
	copy(snapshot, b.Pix)

	for range p.Iterations {
		blurPass(b, snapshot, r)
		if bytes.Equal(snapshot, b.Pix) {
			return
		}
		copy(snapshot, b.Pix)
	}
}

// effectiveRadius caps radius at the larger image dimension. Every offset
// beyond that lands outside the image and is excluded anyway.
func effectiveRadius(radius uint32, width, height int) int {
	limit := uint64(max(width, height))
	return int(min(uint64(radius), limit))
}

// blurPass writes one box-blur pass of src into b.Pix.
func blurPass(b *Buffer, src []byte, r int) {
	w, h := b.Width, b.Height
	for y := 0; y < h; y++ {
		y0, y1 := max(y-r, 0), min(y+r, h-1)
		for x := 0; x < w; x++ {
			x0, x1 := max(x-r, 0), min(x+r, w-1)

			// (2r+1)² * 255 fits comfortably: the window never exceeds the
			// image, whose pixel count fits in 32 bits.
			var sum [BytesPerPixel]uint64
			for ny := y0; ny <= y1; ny++ {
				row := src[b.offset(x0, ny):b.offset(x1+1, ny)]
				for i := 0; i < len(row); i += BytesPerPixel {
					sum[0] += uint64(row[i])
					sum[1] += uint64(row[i+1])
					sum[2] += uint64(row[i+2])
					sum[3] += uint64(row[i+3])
				}
			}

			count := uint64(y1-y0+1) * uint64(x1-x0+1)
			dst := b.Pix[b.offset(x, y) : b.offset(x, y)+BytesPerPixel]
			for c := range dst {
				dst[c] = uint8(sum[c] / count)
			}
		}
	}
}
