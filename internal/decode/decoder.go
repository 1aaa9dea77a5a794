package decode

import (
	"github.com/ridgeline-iot/canopy-edge/internal/domain"
)

// DecodeSignal extracts one signal from payload per format, accumulating
// up to 64 raw bits into a uint64 before sign-extension and scaling, so
// widths up to and including 64 bits are supported uniformly. ok is false
// when the signal's bit span does not fit within payload,
// which the caller treats as "skip this signal, keep decoding the rest of
// the frame".
func DecodeSignal(payload []byte, f domain.CANSignalFormat) (domain.Value, bool) {
	if f.SizeInBits == 0 || f.SizeInBits > 64 {
		return domain.Undefined, false
	}

	raw, ok := extractBits(payload, f.StartBit, f.SizeInBits, f.Endianness)
	if !ok {
		return domain.Undefined, false
	}

	var signedRaw int64
	if f.Signedness == domain.Signed {
		signedRaw = signExtend(raw, f.SizeInBits)
	}

	var physical float64
	if f.Signedness == domain.Signed {
		physical = float64(signedRaw)*f.Factor + f.Offset
	} else {
		physical = float64(raw)*f.Factor + f.Offset
	}

	if f.SignalType == domain.SignalTypeBool {
		return domain.BoolValue(raw != 0), true
	}
	return domain.NumValue(physical), true
}

// extractBits reads sizeBits starting at startBit (DBC-style bit numbering,
// bit n is bit n%8 of byte n/8: big-endian signals start at their MSB and
// read downward within each byte, continuing at bit 7 of the next
// higher-numbered byte; little-endian signals start at their LSB and read
// upward toward higher-numbered bytes). The result is right-aligned in the
// returned uint64.
func extractBits(payload []byte, startBit, sizeBits uint16, endian domain.Endianness) (uint64, bool) {
	var out uint64
	bitsRead := uint16(0)

	if endian == domain.LittleEndian {
		bitPos := int(startBit)
		for bitsRead < sizeBits {
			byteIdx := bitPos / 8
			bitInByte := uint(bitPos % 8)
			if byteIdx < 0 || byteIdx >= len(payload) {
				return 0, false
			}
			bit := (payload[byteIdx] >> bitInByte) & 1
			out |= uint64(bit) << bitsRead
			bitsRead++
			bitPos++
		}
		return out, true
	}

	// Big-endian (DBC "Motorola") numbering: startBit is the MSB's position
	// as byte*8 + bitInByte, with bitInByte 7 being the byte's MSB.
	bitPos := int(startBit)
	for bitsRead < sizeBits {
		byteIdx := bitPos / 8
		bitInByte := uint(bitPos % 8)
		if byteIdx < 0 || byteIdx >= len(payload) {
			return 0, false
		}
		bit := (payload[byteIdx] >> bitInByte) & 1
		out = (out << 1) | uint64(bit)
		bitsRead++
		if bitInByte == 0 {
			// Crossing below bit 0 of a byte wraps to bit 7 of the next
			// byte in big-endian numbering.
			bitPos = (byteIdx+1)*8 + 7
		} else {
			bitPos--
		}
	}
	return out, true
}

// signExtend interprets the low width bits of raw as a two's-complement
// signed integer.
func signExtend(raw uint64, width uint16) int64 {
	if width >= 64 {
		return int64(raw)
	}
	signBit := uint64(1) << (width - 1)
	if raw&signBit != 0 {
		return int64(raw | (^uint64(0) << width))
	}
	return int64(raw)
}
