package cache

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/pierrec/lz4/v4"
)

const (
	flagRaw byte = 0
	flagLZ4 byte = 1

	headerSize = 5

	// Values shorter than this are stored raw.
	compressThreshold = 256
)

var errCorruptValue = errors.New("corrupt cache value")

// encodeValue prefixes data with a one-byte flag and its uint32 length,
// LZ4-compressing the payload when that makes it smaller.
func encodeValue(data []byte) []byte {
	if len(data) >= compressThreshold {
		buf := make([]byte, headerSize+lz4.CompressBlockBound(len(data)))
		n, err := lz4.CompressBlock(data, buf[headerSize:], nil)
		if err == nil && n > 0 && n < len(data) {
			buf[0] = flagLZ4
			binary.LittleEndian.PutUint32(buf[1:headerSize], uint32(len(data)))
			return buf[:headerSize+n]
		}
	}

	out := make([]byte, headerSize+len(data))
	out[0] = flagRaw
	binary.LittleEndian.PutUint32(out[1:headerSize], uint32(len(data)))
	copy(out[headerSize:], data)
	return out
}

func decodeValue(stored []byte) ([]byte, error) {
	if len(stored) < headerSize {
		return nil, errCorruptValue
	}
	size := int(binary.LittleEndian.Uint32(stored[1:headerSize]))
	payload := stored[headerSize:]

	switch stored[0] {
	case flagRaw:
		if len(payload) != size {
			return nil, errCorruptValue
		}
		return payload, nil
	case flagLZ4:
		out := make([]byte, size)
		n, err := lz4.UncompressBlock(payload, out)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errCorruptValue, err)
		}
		if n != size {
			return nil, errCorruptValue
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: unknown flag %d", errCorruptValue, stored[0])
	}
}
