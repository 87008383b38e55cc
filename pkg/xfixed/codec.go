// Package xfixed decodes the sensor wire format: 32-bit big-endian words
// holding a sign bit, a 15-bit integer magnitude and a 16-bit fraction.
package xfixed

import (
	"encoding/binary"
	"math"

	"github.com/pkg/errors"
)

const (
	WordSize       = 4
	WordsPerPacket = 9
	PacketSize     = WordSize * WordsPerPacket // 36

	signBit   = uint32(1) << 31
	intShift  = 16
	intMask   = 0x7fff
	fracMask  = 0xffff
	fracScale = 65536.0

	// MaxMagnitude is the first magnitude that no longer fits the 15-bit
	// integer field.
	MaxMagnitude = float64(intMask + 1)

	// Resolution is the weight of the least significant fraction bit.
	Resolution = 1 / fracScale
)

var (
	ErrShortPacket = errors.New("short packet")
	ErrOutOfRange  = errors.New("value out of range")
)

// Vector is one decoded packet: nine values in wire order.
type Vector [WordsPerPacket]float64

// DecodeWord converts one host-order word. Bit 15 of the upper half (the bit
// below the sign) is not part of the integer mask.
func DecodeWord(w uint32) float64 {
	f := float64((w >> intShift) & intMask)
	f += float64(w&fracMask) / fracScale
	if w&signBit != 0 {
		f = -f
	}
	return f
}

// EncodeWord is the inverse of DecodeWord, rounding the fraction to the
// nearest 1/65536.
func EncodeWord(x float64) (uint32, error) {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0, errors.Wrapf(ErrOutOfRange, "%v", x)
	}
	var w uint32
	if math.Signbit(x) {
		w = signBit
	}
	m := math.Abs(x)
	whole := math.Floor(m)
	frac := math.Round((m - whole) * fracScale)
	if frac >= fracScale {
		whole++
		frac = 0
	}
	if whole > intMask {
		return 0, errors.Wrapf(ErrOutOfRange, "%v exceeds %v", x, MaxMagnitude)
	}
	return w | uint32(whole)<<intShift | uint32(frac), nil
}

// DecodePacket reads nine network-order words from the head of b. Bytes past
// PacketSize are ignored.
func DecodePacket(b []byte) (Vector, error) {
	var v Vector
	if len(b) < PacketSize {
		return v, errors.Wrapf(ErrShortPacket, "got %d bytes, want %d", len(b), PacketSize)
	}
	for i := range v {
		v[i] = DecodeWord(binary.BigEndian.Uint32(b[i*WordSize:]))
	}
	return v, nil
}

func EncodePacket(v Vector) ([]byte, error) {
	b := make([]byte, PacketSize)
	for i, x := range v {
		w, err := EncodeWord(x)
		if err != nil {
			return nil, errors.Wrapf(err, "word %d", i)
		}
		binary.BigEndian.PutUint32(b[i*WordSize:], w)
	}
	return b, nil
}
