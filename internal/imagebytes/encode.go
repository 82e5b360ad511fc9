package imagebytes

import (
	"encoding/binary"
	"fmt"
)

// EncodeFrame builds a complete ImageBytes buffer (header plus payload) from
// widened element values. It is the symmetric counterpart of ParseHeader and
// ReadElements, used by the device simulator and by tests.
func EncodeFrame(md ImageMetadata, values []uint32) ([]byte, error) {
	if md.DataStart == 0 {
		md.DataStart = HeaderSize
	}
	if md.DataStart < HeaderSize {
		return nil, fmt.Errorf("imagebytes: data start %d inside fixed header", md.DataStart)
	}
	if len(values) != md.ElementCount() {
		return nil, fmt.Errorf("imagebytes: %d values, metadata declares %d", len(values), md.ElementCount())
	}

	var elemSize int
	switch md.TransmissionElementType {
	case ElementByte:
		elemSize = 1
	case ElementInt16, ElementUInt16:
		elemSize = 2
	case ElementInt32, ElementUInt32, ElementSingle:
		elemSize = 4
	default:
		return nil, &UnsupportedElementTypeError{Type: md.TransmissionElementType}
	}

	buf := make([]byte, int(md.DataStart)+len(values)*elemSize)
	le := binary.LittleEndian

	le.PutUint32(buf[0:4], uint32(md.MetadataVersion))
	le.PutUint32(buf[4:8], uint32(md.ErrorNumber))
	le.PutUint32(buf[8:12], uint32(md.ClientTransactionID))
	le.PutUint32(buf[12:16], uint32(md.ServerTransactionID))
	le.PutUint32(buf[16:20], uint32(md.DataStart))
	le.PutUint32(buf[20:24], uint32(md.ImageElementType))
	le.PutUint32(buf[24:28], uint32(md.TransmissionElementType))
	le.PutUint32(buf[28:32], uint32(md.Rank))
	le.PutUint32(buf[32:36], uint32(md.Dimension1))
	le.PutUint32(buf[36:40], uint32(md.Dimension2))
	le.PutUint32(buf[40:44], uint32(md.Dimension3))

	payload := buf[md.DataStart:]
	for i, v := range values {
		switch elemSize {
		case 1:
			payload[i] = byte(v)
		case 2:
			le.PutUint16(payload[i*2:], uint16(v))
		default:
			le.PutUint32(payload[i*4:], v)
		}
	}

	return buf, nil
}
