package imagebytes

import (
	"encoding/binary"
	"fmt"
	"math"
)

// PixelBuffer is an owned, typed numeric array produced by one decode call.
// It is immutable after construction.
type PixelBuffer struct {
	// Type is the transmission element type the data was read as.
	Type ElementType
	// Bits is the canonical element width: 8, 16 or 32.
	Bits int

	u8  []uint8
	u16 []uint16
	u32 []uint32
}

// NewPixelBuffer8 wraps an 8-bit plane.
func NewPixelBuffer8(data []uint8) PixelBuffer {
	return PixelBuffer{Type: ElementByte, Bits: 8, u8: data}
}

// NewPixelBuffer16 wraps a 16-bit plane.
func NewPixelBuffer16(data []uint16) PixelBuffer {
	return PixelBuffer{Type: ElementUInt16, Bits: 16, u16: data}
}

// NewPixelBuffer32 wraps a 32-bit plane.
func NewPixelBuffer32(data []uint32) PixelBuffer {
	return PixelBuffer{Type: ElementUInt32, Bits: 32, u32: data}
}

// Len returns the number of elements.
func (p PixelBuffer) Len() int {
	switch p.Bits {
	case 8:
		return len(p.u8)
	case 16:
		return len(p.u16)
	default:
		return len(p.u32)
	}
}

// At returns element i widened to uint32. Int16 sources were already masked
// to unsigned 16-bit at read time, so no further masking happens here.
func (p PixelBuffer) At(i int) uint32 {
	switch p.Bits {
	case 8:
		return uint32(p.u8[i])
	case 16:
		return uint32(p.u16[i])
	default:
		return p.u32[i]
	}
}

// Widened returns all elements as uint32 values.
func (p PixelBuffer) Widened() []uint32 {
	out := make([]uint32, p.Len())
	for i := range out {
		out[i] = p.At(i)
	}
	return out
}

// ReadElements reinterprets the payload bytes starting at the metadata's
// data start offset as the declared transmission element type. Element
// widths are canonicalized: Byte stays 8-bit, Int16/UInt16 become unsigned
// 16-bit (signed containers wrap via a 16-bit mask, matching the device wire
// convention), and everything wider up to 32 bits becomes unsigned 32-bit.
func ReadElements(buf []byte, md ImageMetadata) (PixelBuffer, error) {
	count := md.ElementCount()
	payload := buf[md.DataStart:]
	le := binary.LittleEndian

	need := func(elemSize int) error {
		if len(payload) < count*elemSize {
			return fmt.Errorf("%w: payload %d bytes, need %d", ErrTruncatedBuffer, len(payload), count*elemSize)
		}
		return nil
	}

	switch md.TransmissionElementType {
	case ElementByte:
		if err := need(1); err != nil {
			return PixelBuffer{}, err
		}
		data := make([]uint8, count)
		copy(data, payload[:count])
		return PixelBuffer{Type: md.TransmissionElementType, Bits: 8, u8: data}, nil

	case ElementInt16, ElementUInt16:
		if err := need(2); err != nil {
			return PixelBuffer{}, err
		}
		data := make([]uint16, count)
		for i := 0; i < count; i++ {
			// Int16 values are reinterpreted as unsigned via the mask.
			data[i] = le.Uint16(payload[i*2:])
		}
		return PixelBuffer{Type: md.TransmissionElementType, Bits: 16, u16: data}, nil

	case ElementInt32, ElementUInt32:
		if err := need(4); err != nil {
			return PixelBuffer{}, err
		}
		data := make([]uint32, count)
		for i := 0; i < count; i++ {
			data[i] = le.Uint32(payload[i*4:])
		}
		return PixelBuffer{Type: md.TransmissionElementType, Bits: 32, u32: data}, nil

	case ElementSingle:
		if err := need(4); err != nil {
			return PixelBuffer{}, err
		}
		data := make([]uint32, count)
		for i := 0; i < count; i++ {
			f := math.Float32frombits(le.Uint32(payload[i*4:]))
			if f < 0 {
				f = 0
			}
			data[i] = uint32(f)
		}
		return PixelBuffer{Type: md.TransmissionElementType, Bits: 32, u32: data}, nil

	default:
		return PixelBuffer{}, &UnsupportedElementTypeError{Type: md.TransmissionElementType}
	}
}
