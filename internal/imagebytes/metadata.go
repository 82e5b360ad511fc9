// Package imagebytes decodes the ASCOM Alpaca ImageBytes binary format
// returned by camera imagearray endpoints.
package imagebytes

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// HeaderSize is the fixed ImageBytes header length in bytes.
const HeaderSize = 44

// ElementType enumerates the ASCOM ImageBytes element type tags.
type ElementType int32

const (
	ElementUnknown  ElementType = 0
	ElementInt16    ElementType = 1
	ElementInt32    ElementType = 2
	ElementByte     ElementType = 3
	ElementSingle   ElementType = 4
	ElementDouble   ElementType = 5
	ElementCurrency ElementType = 6
	ElementUInt16   ElementType = 7
	ElementUInt32   ElementType = 8
	ElementInt64    ElementType = 9
	ElementUInt64   ElementType = 10
	ElementBoolean  ElementType = 11
	ElementString   ElementType = 12
	ElementObject   ElementType = 13
)

// String returns the ASCOM name of the element type tag.
func (t ElementType) String() string {
	switch t {
	case ElementUnknown:
		return "Unknown"
	case ElementInt16:
		return "Int16"
	case ElementInt32:
		return "Int32"
	case ElementByte:
		return "Byte"
	case ElementSingle:
		return "Single"
	case ElementDouble:
		return "Double"
	case ElementCurrency:
		return "Currency"
	case ElementUInt16:
		return "UInt16"
	case ElementUInt32:
		return "UInt32"
	case ElementInt64:
		return "Int64"
	case ElementUInt64:
		return "UInt64"
	case ElementBoolean:
		return "Boolean"
	case ElementString:
		return "String"
	case ElementObject:
		return "Object"
	default:
		return fmt.Sprintf("ElementType(%d)", int32(t))
	}
}

// numeric reports whether the tag is one of the nine numeric image types
// the wire format can legally carry.
func (t ElementType) numeric() bool {
	switch t {
	case ElementInt16, ElementInt32, ElementByte, ElementSingle, ElementDouble,
		ElementUInt16, ElementUInt32, ElementInt64, ElementUInt64:
		return true
	}
	return false
}

// ErrTruncatedBuffer is returned when a buffer is shorter than the fixed
// header or shorter than the data start offset it declares.
var ErrTruncatedBuffer = errors.New("imagebytes: truncated buffer")

// UnsupportedElementTypeError is returned for element type tags the decoder
// does not recognize or cannot read.
type UnsupportedElementTypeError struct {
	Type ElementType
}

func (e *UnsupportedElementTypeError) Error() string {
	return fmt.Sprintf("imagebytes: unsupported element type %s", e.Type)
}

// ImageMetadata is the parsed fixed-layout ImageBytes header.
type ImageMetadata struct {
	MetadataVersion         int32
	ErrorNumber             int32
	ClientTransactionID     int32
	ServerTransactionID     int32
	DataStart               int32
	ImageElementType        ElementType
	TransmissionElementType ElementType
	Rank                    int32
	Dimension1              int32 // width
	Dimension2              int32 // height
	Dimension3              int32 // plane count, 1 for monochrome, >=3 implies color
}

// ElementCount returns the number of payload elements the header declares.
func (m ImageMetadata) ElementCount() int {
	planes := m.Dimension3
	if planes < 1 {
		planes = 1
	}
	return int(m.Dimension1) * int(m.Dimension2) * int(planes)
}

// ParseHeader parses the 44-byte little-endian ImageBytes header.
func ParseHeader(buf []byte) (ImageMetadata, error) {
	var md ImageMetadata
	if len(buf) < HeaderSize {
		return md, fmt.Errorf("%w: %d bytes, header needs %d", ErrTruncatedBuffer, len(buf), HeaderSize)
	}

	le := binary.LittleEndian
	md.MetadataVersion = int32(le.Uint32(buf[0:4]))
	md.ErrorNumber = int32(le.Uint32(buf[4:8]))
	md.ClientTransactionID = int32(le.Uint32(buf[8:12]))
	md.ServerTransactionID = int32(le.Uint32(buf[12:16]))
	md.DataStart = int32(le.Uint32(buf[16:20]))
	md.ImageElementType = ElementType(int32(le.Uint32(buf[20:24])))
	md.TransmissionElementType = ElementType(int32(le.Uint32(buf[24:28])))
	md.Rank = int32(le.Uint32(buf[28:32]))
	md.Dimension1 = int32(le.Uint32(buf[32:36]))
	md.Dimension2 = int32(le.Uint32(buf[36:40]))
	md.Dimension3 = int32(le.Uint32(buf[40:44]))

	if !md.ImageElementType.numeric() {
		return md, &UnsupportedElementTypeError{Type: md.ImageElementType}
	}
	if !md.TransmissionElementType.numeric() {
		return md, &UnsupportedElementTypeError{Type: md.TransmissionElementType}
	}

	if md.DataStart < HeaderSize {
		return md, fmt.Errorf("imagebytes: data start %d inside fixed header", md.DataStart)
	}
	if len(buf) < int(md.DataStart) {
		return md, fmt.Errorf("%w: %d bytes, data starts at %d", ErrTruncatedBuffer, len(buf), md.DataStart)
	}
	if md.Rank < 1 || md.Rank > 3 {
		return md, fmt.Errorf("imagebytes: invalid rank %d", md.Rank)
	}
	if md.Dimension1 <= 0 || md.Dimension2 < 0 || md.Dimension3 < 0 {
		return md, fmt.Errorf("imagebytes: invalid dimensions %dx%dx%d for rank %d",
			md.Dimension1, md.Dimension2, md.Dimension3, md.Rank)
	}
	if md.Rank >= 2 && md.Dimension2 == 0 {
		return md, fmt.Errorf("imagebytes: invalid dimensions %dx%d for rank %d",
			md.Dimension1, md.Dimension2, md.Rank)
	}

	// The declared element count must stay within int32 range so payload
	// size math downstream cannot overflow.
	count := int64(md.Dimension1) * int64(md.Dimension2)
	if count > math.MaxInt32 {
		return md, fmt.Errorf("imagebytes: element count %d out of range", count)
	}
	if md.Dimension3 > 1 {
		count *= int64(md.Dimension3)
	}
	if count > math.MaxInt32 {
		return md, fmt.Errorf("imagebytes: element count %d out of range", count)
	}

	return md, nil
}
