package writer

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/vietddude/gravity-indexer/internal/core/domain"
)

// HeightWidth is the zero-padded width of the height segment.
const HeightWidth = 12

// ErrInvalidKey is returned for keys outside the message schema.
var ErrInvalidKey = errors.New("invalid message key")

// Key identifies one stored message.
type Key struct {
	Height         uint64
	Type           domain.MessageType
	BlockTimestamp int64
	TxHash         string
}

// String encodes "{height:012d}:{type}:{timestamp}:{txHash}".
func (k Key) String() string {
	return fmt.Sprintf("%0*d:%s:%d:%s", HeightWidth, k.Height, k.Type, k.BlockTimestamp, k.TxHash)
}

// Bytes returns the encoded key.
func (k Key) Bytes() []byte {
	return []byte(k.String())
}

// KeyOf builds the key for a message.
func KeyOf(m domain.IndexedMessage) Key {
	return Key{
		Height:         m.Height,
		Type:           m.Type,
		BlockTimestamp: m.BlockTimestamp,
		TxHash:         m.TxHash,
	}
}

// ParseKey decodes a message key. Keys of other records (checkpoint, gaps)
// fail with ErrInvalidKey.
func ParseKey(raw []byte) (Key, error) {
	parts := strings.Split(string(raw), ":")
	if len(parts) != 4 {
		return Key{}, fmt.Errorf("%w: %q has %d segments", ErrInvalidKey, raw, len(parts))
	}
	if len(parts[0]) != HeightWidth {
		return Key{}, fmt.Errorf("%w: %q height is not %d digits", ErrInvalidKey, raw, HeightWidth)
	}

	height, err := strconv.ParseUint(parts[0], 10, 64)
	if err != nil {
		return Key{}, fmt.Errorf("%w: bad height: %v", ErrInvalidKey, err)
	}
	ts, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return Key{}, fmt.Errorf("%w: bad timestamp: %v", ErrInvalidKey, err)
	}
	if parts[3] == "" {
		return Key{}, fmt.Errorf("%w: %q has empty tx hash", ErrInvalidKey, raw)
	}

	return Key{
		Height:         height,
		Type:           domain.MessageType(parts[1]),
		BlockTimestamp: ts,
		TxHash:         parts[3],
	}, nil
}

// HeightPrefix returns the key prefix shared by every message at height.
func HeightPrefix(height uint64) []byte {
	return []byte(fmt.Sprintf("%0*d:", HeightWidth, height))
}
