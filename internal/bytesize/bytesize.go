// Package bytesize parses and prints human-readable byte sizes used in
// configuration, such as segment caps and buffer tiers.
package bytesize

import (
	"errors"
	"fmt"
	"math"
	"math/bits"
	"regexp"
	"strconv"
	"strings"
)

// ByteSize is a size in bytes that unmarshals from strings like "8Mi",
// "64KiB", "100MB" or plain numbers.
//
// Binary units (Ki, Mi, Gi, Ti, optionally with a trailing B) multiply by
// 1024; decimal units (K, M, G, T, optionally with B) by 1000.
type ByteSize uint64

// Common byte size constants
const (
	B  ByteSize = 1
	KB ByteSize = 1000
	MB ByteSize = 1000 * KB
	GB ByteSize = 1000 * MB
	TB ByteSize = 1000 * GB

	KiB ByteSize = 1024
	MiB ByteSize = 1024 * KiB
	GiB ByteSize = 1024 * MiB
	TiB ByteSize = 1024 * GiB
)

// ErrOverflow is returned when a size does not fit in 64 bits.
var ErrOverflow = errors.New("byte size overflows uint64")

var byteSizePattern = regexp.MustCompile(`(?i)^\s*(\d+(?:\.\d+)?)\s*([a-z]*)\s*$`)

var unitMultipliers = map[string]ByteSize{
	"": B, "b": B,
	"k": KB, "kb": KB,
	"m": MB, "mb": MB,
	"g": GB, "gb": GB,
	"t": TB, "tb": TB,
	"ki": KiB, "kib": KiB,
	"mi": MiB, "mib": MiB,
	"gi": GiB, "gib": GiB,
	"ti": TiB, "tib": TiB,
}

// binaryUnits is ordered largest first for String.
var binaryUnits = []struct {
	size ByteSize
	name string
}{
	{TiB, "Ti"},
	{GiB, "Gi"},
	{MiB, "Mi"},
	{KiB, "Ki"},
}

// ParseByteSize parses a human-readable byte size.
func ParseByteSize(s string) (ByteSize, error) {
	if strings.TrimSpace(s) == "" {
		return 0, errors.New("empty byte size string")
	}

	matches := byteSizePattern.FindStringSubmatch(s)
	if matches == nil {
		return 0, fmt.Errorf("invalid byte size format: %q", s)
	}
	numStr, unit := matches[1], matches[2]

	multiplier, ok := unitMultipliers[strings.ToLower(unit)]
	if !ok {
		return 0, fmt.Errorf("unknown byte size unit: %q", unit)
	}

	if strings.Contains(numStr, ".") {
		num, err := strconv.ParseFloat(numStr, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid number in byte size: %q", numStr)
		}
		v := num * float64(multiplier)
		if v >= math.MaxUint64 {
			return 0, fmt.Errorf("%q: %w", s, ErrOverflow)
		}
		return ByteSize(v), nil
	}

	num, err := strconv.ParseUint(numStr, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%q: %w", s, ErrOverflow)
	}
	hi, lo := bits.Mul64(num, uint64(multiplier))
	if hi != 0 {
		return 0, fmt.Errorf("%q: %w", s, ErrOverflow)
	}
	return ByteSize(lo), nil
}

// UnmarshalText implements encoding.TextUnmarshaler, which mapstructure's
// TextUnmarshallerHookFunc uses when decoding configuration.
func (b *ByteSize) UnmarshalText(text []byte) error {
	size, err := ParseByteSize(string(text))
	if err != nil {
		return err
	}
	*b = size
	return nil
}

// MarshalText implements encoding.TextMarshaler so saved configuration
// round-trips through ParseByteSize.
func (b ByteSize) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

// String returns the size in the largest binary unit that divides it
// exactly ("8Mi", "1536Ki"), or in bytes ("1000").
func (b ByteSize) String() string {
	for _, u := range binaryUnits {
		if b >= u.size && b%u.size == 0 {
			return strconv.FormatUint(uint64(b/u.size), 10) + u.name
		}
	}
	return strconv.FormatUint(uint64(b), 10)
}

// HumanReadable returns an approximate size with two decimals, for display.
func (b ByteSize) HumanReadable() string {
	for _, u := range binaryUnits {
		if b >= u.size {
			return fmt.Sprintf("%.2f%sB", float64(b)/float64(u.size), u.name)
		}
	}
	return fmt.Sprintf("%dB", uint64(b))
}

// Uint64 returns the ByteSize as a uint64.
func (b ByteSize) Uint64() uint64 {
	return uint64(b)
}

// Int returns the ByteSize as an int, saturating at math.MaxInt.
func (b ByteSize) Int() int {
	if uint64(b) > math.MaxInt {
		return math.MaxInt
	}
	return int(b)
}
