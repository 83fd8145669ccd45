package delta

import (
	"fmt"

	"github.com/golang/snappy"
)

// Compression tags recorded alongside stored revision data.
const (
	CompressionNone   = "none"
	CompressionSnappy = "snappy"
)

// Encode prepares data for storage. With preferred set to snappy the
// compressed form is kept only when it is strictly smaller.
func Encode(data []byte, preferred string) ([]byte, string, error) {
	switch preferred {
	case "", CompressionNone:
		return data, CompressionNone, nil
	case CompressionSnappy:
		packed := snappy.Encode(nil, data)
		if len(packed) < len(data) {
			return packed, CompressionSnappy, nil
		}
		return data, CompressionNone, nil
	default:
		return nil, "", fmt.Errorf("unknown compression: %s", preferred)
	}
}

// Decode reverses Encode given the recorded tag.
func Decode(stored []byte, tag string) ([]byte, error) {
	switch tag {
	case CompressionNone:
		return stored, nil
	case CompressionSnappy:
		data, err := snappy.Decode(nil, stored)
		if err != nil {
			return nil, fmt.Errorf("snappy decode: %w", err)
		}
		return data, nil
	default:
		return nil, fmt.Errorf("unknown compression tag: %q", tag)
	}
}

// ValidCompression reports whether name is a supported compression setting.
func ValidCompression(name string) bool {
	return name == CompressionNone || name == CompressionSnappy
}
