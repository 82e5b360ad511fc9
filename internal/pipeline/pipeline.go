// Package pipeline orchestrates ImageBytes decoding, Bayer reconstruction
// and summary statistics for camera exposures.
package pipeline

import (
	"fmt"

	"github.com/openskies/alpaca-console/internal/debayer"
	"github.com/openskies/alpaca-console/internal/imagebytes"
	"github.com/openskies/alpaca-console/internal/models"
)

// ProcessedImageData is the output record of one exposure decode. Records
// are immutable; a new exposure supersedes the previous record instead of
// mutating it.
type ProcessedImageData struct {
	Width        int              `json:"width"`
	Height       int              `json:"height"`
	Channels     int              `json:"channels"` // 1 or 3
	ImageType    models.ImageType `json:"image_type"`
	IsDebayered  bool             `json:"is_debayered"`
	BitsPerPixel int              `json:"bits_per_pixel"`

	// PixelData is row-major with Channels interleaved values per pixel.
	PixelData imagebytes.PixelBuffer `json:"-"`

	// OriginalPixelData retains the pre-debayer column-major plane so an
	// exposure can be re-processed with a different Bayer pattern.
	OriginalPixelData imagebytes.PixelBuffer `json:"-"`

	MinPixelValue  uint32  `json:"min_pixel_value"`
	MaxPixelValue  uint32  `json:"max_pixel_value"`
	MeanPixelValue float64 `json:"mean_pixel_value"`
}

// Decode parses a raw ImageBytes response and processes it. pattern may be
// empty for monochrome sensors. Decode errors always propagate; there is no
// fallback image.
func Decode(buf []byte, pattern debayer.Pattern) (*ProcessedImageData, error) {
	md, err := imagebytes.ParseHeader(buf)
	if err != nil {
		return nil, err
	}

	plane, err := imagebytes.ReadElements(buf, md)
	if err != nil {
		return nil, err
	}

	width := int(md.Dimension1)
	height := int(md.Dimension2)

	// dimension3 >= 3 means the device already delivered color planes.
	if md.Dimension3 >= 3 {
		return processColorPassthrough(plane, width, height)
	}

	return Process(plane, width, height, pattern)
}

// Process turns a typed sensor plane into a ProcessedImageData. The plane is
// column-major as received from the wire (sample (x,y) at plane[x*height+y]).
func Process(plane imagebytes.PixelBuffer, width, height int, pattern debayer.Pattern) (*ProcessedImageData, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("pipeline: invalid dimensions %dx%d", width, height)
	}
	if plane.Len() < width*height {
		return nil, fmt.Errorf("pipeline: plane has %d elements, need %d", plane.Len(), width*height)
	}

	if pattern != "" {
		res, err := debayer.Reconstruct(plane, width, height, pattern)
		if err != nil {
			return nil, err
		}

		min, max, mean := luminanceStats(res.RGB, width*height)
		return &ProcessedImageData{
			Width:             width,
			Height:            height,
			Channels:          3,
			ImageType:         models.ImageTypeColor,
			IsDebayered:       true,
			BitsPerPixel:      res.Bits,
			PixelData:         res.RGB,
			OriginalPixelData: plane,
			MinPixelValue:     min,
			MaxPixelValue:     max,
			MeanPixelValue:    mean,
		}, nil
	}

	rowMajor := transpose(plane, width, height)
	min, max, mean := rawStats(rowMajor)
	return &ProcessedImageData{
		Width:             width,
		Height:            height,
		Channels:          1,
		ImageType:         models.ImageTypeMonochrome,
		IsDebayered:       false,
		BitsPerPixel:      plane.Bits,
		PixelData:         rowMajor,
		OriginalPixelData: plane,
		MinPixelValue:     min,
		MaxPixelValue:     max,
		MeanPixelValue:    mean,
	}, nil
}

// processColorPassthrough handles images the device already debayered.
// Any supplied Bayer pattern is ignored. The data is passed through with
// channels=1; downstream consumers expect this simplification and it is
// kept as-is.
func processColorPassthrough(plane imagebytes.PixelBuffer, width, height int) (*ProcessedImageData, error) {
	min, max, mean := rawStats(plane)
	return &ProcessedImageData{
		Width:             width,
		Height:            height,
		Channels:          1,
		ImageType:         models.ImageTypeColor,
		IsDebayered:       false,
		BitsPerPixel:      plane.Bits,
		PixelData:         plane,
		OriginalPixelData: plane,
		MinPixelValue:     min,
		MaxPixelValue:     max,
		MeanPixelValue:    mean,
	}, nil
}

// transpose converts a column-major plane into a row-major buffer of the
// same element width.
func transpose(plane imagebytes.PixelBuffer, width, height int) imagebytes.PixelBuffer {
	n := width * height
	switch plane.Bits {
	case 8:
		out := make([]uint8, n)
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				out[y*width+x] = uint8(plane.At(x*height + y))
			}
		}
		return imagebytes.NewPixelBuffer8(out)
	case 16:
		out := make([]uint16, n)
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				out[y*width+x] = uint16(plane.At(x*height + y))
			}
		}
		return imagebytes.NewPixelBuffer16(out)
	default:
		out := make([]uint32, n)
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				out[y*width+x] = plane.At(x*height + y)
			}
		}
		return imagebytes.NewPixelBuffer32(out)
	}
}

// luminanceStats reduces an interleaved RGB buffer to per-pixel luminance
// (unweighted channel mean) and reports min/max as truncated integers and
// the mean as a non-truncated floating average.
func luminanceStats(rgb imagebytes.PixelBuffer, pixels int) (min, max uint32, mean float64) {
	if pixels == 0 {
		return 0, 0, 0
	}
	min = ^uint32(0)
	var sum float64
	for i := 0; i < pixels; i++ {
		base := i * 3
		// Channel sums can exceed 32 bits for wide planes.
		total := uint64(rgb.At(base)) + uint64(rgb.At(base+1)) + uint64(rgb.At(base+2))
		lum := uint32(total / 3)
		if lum < min {
			min = lum
		}
		if lum > max {
			max = lum
		}
		sum += float64(total) / 3
	}
	return min, max, sum / float64(pixels)
}

// rawStats computes min/max/mean over raw pixel values.
func rawStats(buf imagebytes.PixelBuffer) (min, max uint32, mean float64) {
	n := buf.Len()
	if n == 0 {
		return 0, 0, 0
	}
	min = ^uint32(0)
	var sum float64
	for i := 0; i < n; i++ {
		v := buf.At(i)
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
		sum += float64(v)
	}
	return min, max, sum / float64(n)
}
