package imagebytes

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func header(transmission ElementType, rank, width, height, planes int32) ImageMetadata {
	return ImageMetadata{
		MetadataVersion:         1,
		DataStart:               HeaderSize,
		ImageElementType:        ElementInt32,
		TransmissionElementType: transmission,
		Rank:                    rank,
		Dimension1:              width,
		Dimension2:              height,
		Dimension3:              planes,
	}
}

func TestParseHeader(t *testing.T) {
	t.Run("parses a valid header", func(t *testing.T) {
		buf, err := EncodeFrame(header(ElementUInt16, 2, 3, 2, 1), make([]uint32, 6))
		require.NoError(t, err)

		md, err := ParseHeader(buf)
		require.NoError(t, err)
		assert.Equal(t, int32(1), md.MetadataVersion)
		assert.Equal(t, ElementUInt16, md.TransmissionElementType)
		assert.Equal(t, int32(3), md.Dimension1)
		assert.Equal(t, int32(2), md.Dimension2)
		assert.Equal(t, 6, md.ElementCount())
	})

	t.Run("rejects buffers shorter than the fixed header", func(t *testing.T) {
		_, err := ParseHeader(make([]byte, HeaderSize-1))
		assert.ErrorIs(t, err, ErrTruncatedBuffer)
	})

	t.Run("rejects buffers shorter than dataStart", func(t *testing.T) {
		buf, err := EncodeFrame(header(ElementByte, 2, 2, 2, 1), make([]uint32, 4))
		require.NoError(t, err)
		binary.LittleEndian.PutUint32(buf[16:20], uint32(len(buf)+10))

		_, err = ParseHeader(buf)
		assert.ErrorIs(t, err, ErrTruncatedBuffer)
	})

	t.Run("rejects non-numeric element types", func(t *testing.T) {
		for _, bad := range []ElementType{ElementUnknown, ElementCurrency, ElementBoolean, ElementString, ElementObject} {
			buf, err := EncodeFrame(header(ElementByte, 2, 2, 2, 1), make([]uint32, 4))
			require.NoError(t, err)
			binary.LittleEndian.PutUint32(buf[24:28], uint32(bad))

			_, err = ParseHeader(buf)
			var ute *UnsupportedElementTypeError
			require.ErrorAs(t, err, &ute, "type %s", bad)
			assert.Equal(t, bad, ute.Type)
		}
	})

	t.Run("rejects dataStart inside the fixed header", func(t *testing.T) {
		buf, err := EncodeFrame(header(ElementByte, 2, 2, 2, 1), make([]uint32, 4))
		require.NoError(t, err)
		binary.LittleEndian.PutUint32(buf[16:20], 20)

		_, err = ParseHeader(buf)
		assert.Error(t, err)
		assert.False(t, errors.Is(err, ErrTruncatedBuffer))
	})

	t.Run("rejects invalid rank", func(t *testing.T) {
		buf, err := EncodeFrame(header(ElementByte, 2, 2, 2, 1), make([]uint32, 4))
		require.NoError(t, err)
		binary.LittleEndian.PutUint32(buf[28:32], 4)

		_, err = ParseHeader(buf)
		assert.Error(t, err)
	})

	t.Run("rejects negative dimensions for any rank", func(t *testing.T) {
		buf, err := EncodeFrame(header(ElementByte, 2, 2, 2, 1), make([]uint32, 4))
		require.NoError(t, err)
		binary.LittleEndian.PutUint32(buf[28:32], 1)                  // rank 1
		binary.LittleEndian.PutUint32(buf[32:36], uint32(0xFFFFFFFC)) // dimension1 = -4

		_, err = ParseHeader(buf)
		assert.Error(t, err)

		// A negative plane count is rejected too, not clamped.
		buf, err = EncodeFrame(header(ElementByte, 2, 2, 2, 1), make([]uint32, 4))
		require.NoError(t, err)
		binary.LittleEndian.PutUint32(buf[40:44], uint32(0xFFFFFFFF))

		_, err = ParseHeader(buf)
		assert.Error(t, err)
	})

	t.Run("rejects element counts beyond int32 range", func(t *testing.T) {
		buf, err := EncodeFrame(header(ElementByte, 2, 2, 2, 1), make([]uint32, 4))
		require.NoError(t, err)
		binary.LittleEndian.PutUint32(buf[32:36], uint32(0x40000000))
		binary.LittleEndian.PutUint32(buf[36:40], uint32(0x40000000))

		_, err = ParseHeader(buf)
		assert.Error(t, err)
	})
}

func TestReadElementsRoundTrip(t *testing.T) {
	values := []uint32{0, 1, 127, 200, 255, 42}

	cases := []struct {
		name string
		elem ElementType
	}{
		{"Byte", ElementByte},
		{"UInt16", ElementUInt16},
		{"Int32", ElementInt32},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			buf, err := EncodeFrame(header(tc.elem, 2, 3, 2, 1), values)
			require.NoError(t, err)

			md, err := ParseHeader(buf)
			require.NoError(t, err)

			plane, err := ReadElements(buf, md)
			require.NoError(t, err)
			assert.Equal(t, values, plane.Widened())
		})
	}
}

func TestReadElementsInt16Mask(t *testing.T) {
	// Signed containers carry unsigned sensor values. -15000 wraps to 50536.
	buf, err := EncodeFrame(header(ElementInt16, 2, 2, 1, 1), []uint32{0, 0})
	require.NoError(t, err)
	raw := int16(-15000)
	binary.LittleEndian.PutUint16(buf[HeaderSize:], uint16(raw))

	md, err := ParseHeader(buf)
	require.NoError(t, err)

	plane, err := ReadElements(buf, md)
	require.NoError(t, err)
	assert.Equal(t, 16, plane.Bits)
	assert.Equal(t, uint32(50536), plane.At(0))
}

func TestReadElementsSingle(t *testing.T) {
	buf, err := EncodeFrame(header(ElementSingle, 2, 2, 1, 1), []uint32{0, 0})
	require.NoError(t, err)
	binary.LittleEndian.PutUint32(buf[HeaderSize:], math.Float32bits(1234.9))
	binary.LittleEndian.PutUint32(buf[HeaderSize+4:], math.Float32bits(-3.5))

	md, err := ParseHeader(buf)
	require.NoError(t, err)

	plane, err := ReadElements(buf, md)
	require.NoError(t, err)
	assert.Equal(t, 32, plane.Bits)
	assert.Equal(t, uint32(1234), plane.At(0), "fractional part truncates")
	assert.Equal(t, uint32(0), plane.At(1), "negative samples clamp to zero")
}

func TestReadElementsTruncatedPayload(t *testing.T) {
	buf, err := EncodeFrame(header(ElementUInt16, 2, 4, 4, 1), make([]uint32, 16))
	require.NoError(t, err)

	md, err := ParseHeader(buf)
	require.NoError(t, err)

	_, err = ReadElements(buf[:len(buf)-2], md)
	assert.ErrorIs(t, err, ErrTruncatedBuffer)
}

func TestReadElementsUnsupportedTransmission(t *testing.T) {
	// Double, Int64 and UInt64 parse as numeric but have no reader.
	for _, elem := range []ElementType{ElementDouble, ElementInt64, ElementUInt64} {
		md := header(elem, 2, 2, 2, 1)
		buf := make([]byte, HeaderSize+32)

		_, err := ReadElements(buf, md)
		var ute *UnsupportedElementTypeError
		require.ErrorAs(t, err, &ute, "type %s", elem)
		assert.Equal(t, elem, ute.Type)
	}
}

func TestElementCountUsesAtLeastOnePlane(t *testing.T) {
	md := header(ElementByte, 2, 5, 4, 0)
	assert.Equal(t, 20, md.ElementCount())

	md.Dimension3 = 3
	assert.Equal(t, 60, md.ElementCount())
}
