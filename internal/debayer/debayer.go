// Package debayer reconstructs interleaved RGB data from single-channel
// Bayer-mosaic sensor planes using bilinear neighbor interpolation.
package debayer

import (
	"fmt"

	"github.com/openskies/alpaca-console/internal/imagebytes"
)

// Pattern is a 2x2 Bayer tiling tag.
type Pattern string

const (
	RGGB Pattern = "RGGB"
	GRBG Pattern = "GRBG"
	GBRG Pattern = "GBRG"
	BGGR Pattern = "BGGR"
)

// ParsePattern validates a pattern string.
func ParsePattern(s string) (Pattern, error) {
	switch Pattern(s) {
	case RGGB, GRBG, GBRG, BGGR:
		return Pattern(s), nil
	}
	return "", fmt.Errorf("debayer: unknown bayer pattern %q", s)
}

// roleAt returns the color filter letter ('R', 'G' or 'B') covering pixel
// (x, y). The pattern string lists the 2x2 tile row by row.
func (p Pattern) roleAt(x, y int) byte {
	return p[(y%2)*2+(x%2)]
}

// Result is the reconstructed image.
type Result struct {
	// RGB is row-major with three interleaved channels per pixel.
	RGB imagebytes.PixelBuffer
	// Bits is the output element width: 8-bit in, 8-bit out; 16-bit in,
	// 16-bit out; anything wider is promoted to 32.
	Bits int
}

// Reconstruct produces an interleaved RGB plane from a Bayer mosaic.
//
// The input plane is column-major exactly as received from an Alpaca
// imagearray transfer: the sample for spatial position (x, y) lives at
// plane[x*height+y]. The output is row-major.
//
// Missing neighbors at the image edges are read as zero and the divisor
// stays the one implied by a full 2x2 neighborhood (2 or 4). This darkens
// edge pixels relative to averaging only in-bounds samples; the behavior is
// kept bit-exact with the reference implementation rather than corrected.
func Reconstruct(plane imagebytes.PixelBuffer, width, height int, pattern Pattern) (Result, error) {
	if width <= 0 || height <= 0 {
		return Result{}, fmt.Errorf("debayer: invalid dimensions %dx%d", width, height)
	}
	if plane.Len() < width*height {
		return Result{}, fmt.Errorf("debayer: plane has %d elements, need %d", plane.Len(), width*height)
	}
	if _, err := ParsePattern(string(pattern)); err != nil {
		return Result{}, err
	}

	outBits := plane.Bits
	if outBits > 16 {
		outBits = 32
	}

	n := width * height * 3
	var out8 []uint8
	var out16 []uint16
	var out32 []uint32
	var put func(i int, v uint32)
	switch outBits {
	case 8:
		out8 = make([]uint8, n)
		put = func(i int, v uint32) { out8[i] = uint8(v) }
	case 16:
		out16 = make([]uint16, n)
		put = func(i int, v uint32) { out16[i] = uint16(v) }
	default:
		out32 = make([]uint32, n)
		put = func(i int, v uint32) { out32[i] = v }
	}

	// Out-of-bounds samples contribute zero.
	pix := func(x, y int) uint32 {
		if x < 0 || x >= width || y < 0 || y >= height {
			return 0
		}
		return plane.At(x*height + y)
	}

	// Neighbor sums can exceed 32 bits for wide planes, so they accumulate
	// in uint64 before the fixed-divisor division.

	// cardinal averages the N/S/E/W neighborhood with the fixed divisor 4.
	cardinal := func(x, y int) uint32 {
		sum := uint64(pix(x, y-1)) + uint64(pix(x, y+1)) + uint64(pix(x-1, y)) + uint64(pix(x+1, y))
		return uint32(sum / 4)
	}
	// diagonal averages the four corner neighbors with the fixed divisor 4.
	diagonal := func(x, y int) uint32 {
		sum := uint64(pix(x-1, y-1)) + uint64(pix(x+1, y-1)) + uint64(pix(x-1, y+1)) + uint64(pix(x+1, y+1))
		return uint32(sum / 4)
	}
	horizontal := func(x, y int) uint32 {
		return uint32((uint64(pix(x-1, y)) + uint64(pix(x+1, y))) / 2)
	}
	vertical := func(x, y int) uint32 {
		return uint32((uint64(pix(x, y-1)) + uint64(pix(x, y+1))) / 2)
	}

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			var r, g, b uint32

			switch pattern.roleAt(x, y) {
			case 'R':
				r = pix(x, y)
				g = cardinal(x, y)
				b = diagonal(x, y)
			case 'B':
				b = pix(x, y)
				g = cardinal(x, y)
				r = diagonal(x, y)
			default: // G: exactly one of R/B sits in this Bayer row
				g = pix(x, y)
				if pattern.roleAt(x+1, y) == 'R' {
					r = horizontal(x, y)
					b = vertical(x, y)
				} else {
					r = vertical(x, y)
					b = horizontal(x, y)
				}
			}

			base := (y*width + x) * 3
			put(base, r)
			put(base+1, g)
			put(base+2, b)
		}
	}

	res := Result{Bits: outBits}
	switch outBits {
	case 8:
		res.RGB = imagebytes.NewPixelBuffer8(out8)
	case 16:
		res.RGB = imagebytes.NewPixelBuffer16(out16)
	default:
		res.RGB = imagebytes.NewPixelBuffer32(out32)
	}
	return res, nil
}
