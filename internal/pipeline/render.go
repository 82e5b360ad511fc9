package pipeline

// RenderDisplay converts a processed mono or RGB image into an RGBA byte
// buffer for display. The lookup table maps raw pixel values to display
// intensities, so the caller controls the stretch; values beyond the table
// render as 0. Alpha is always 255.
func RenderDisplay(img *ProcessedImageData, lut []uint8) []uint8 {
	pixels := img.Width * img.Height
	out := make([]uint8, pixels*4)

	lookup := func(v uint32) uint8 {
		if int(v) < len(lut) {
			return lut[v]
		}
		return 0
	}

	switch img.Channels {
	case 1:
		for i := 0; i < pixels; i++ {
			display := lookup(img.PixelData.At(i))
			o := i * 4
			out[o] = display
			out[o+1] = display
			out[o+2] = display
			out[o+3] = 255
		}
	case 3:
		for i := 0; i < pixels; i++ {
			base := i * 3
			o := i * 4
			out[o] = lookup(img.PixelData.At(base))
			out[o+1] = lookup(img.PixelData.At(base + 1))
			out[o+2] = lookup(img.PixelData.At(base + 2))
			out[o+3] = 255
		}
	}

	return out
}

// LinearLUT builds an identity-shaped lookup table mapping the value range
// implied by bits (8, 16 or 32 clamped to 16 for table size) linearly onto
// 0..255. It is the default stretch used when the UI has not supplied one.
func LinearLUT(bits int) []uint8 {
	if bits > 16 {
		bits = 16
	}
	size := 1 << bits
	lut := make([]uint8, size)
	if size == 1 {
		return lut
	}
	for i := 0; i < size; i++ {
		lut[i] = uint8(i * 255 / (size - 1))
	}
	return lut
}
