package cache

import (
	"fmt"

	"github.com/pierrec/lz4/v4"
)

// Payload encodings stored in the encoding column.
const (
	encodingJSON = "json"
	encodingLZ4  = "lz4"
)

// compressThreshold is the smallest JSON payload worth compressing.
const compressThreshold = 1 << 10

// encodePayload LZ4-compresses large payloads. It falls back to the raw bytes
// when compression does not shrink them.
func encodePayload(raw []byte) ([]byte, string) {
	if len(raw) < compressThreshold {
		return raw, encodingJSON
	}
	dst := make([]byte, lz4.CompressBlockBound(len(raw)))
	n, err := lz4.CompressBlock(raw, dst, nil)
	if err != nil || n == 0 || n >= len(raw) {
		return raw, encodingJSON
	}
	return dst[:n], encodingLZ4
}

// decodePayload reverses encodePayload. rawSize is the uncompressed length.
func decodePayload(b []byte, encoding string, rawSize int) ([]byte, error) {
	switch encoding {
	case encodingJSON, "":
		return b, nil
	case encodingLZ4:
		out := make([]byte, rawSize)
		n, err := lz4.UncompressBlock(b, out)
		if err != nil {
			return nil, fmt.Errorf("lz4: %w", err)
		}
		if n != rawSize {
			return nil, fmt.Errorf("lz4: got %d bytes, want %d", n, rawSize)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unknown payload encoding %q", encoding)
	}
}
