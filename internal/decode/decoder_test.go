package decode

import (
	"testing"

	"github.com/ridgeline-iot/canopy-edge/internal/domain"
)

func TestDecodeSignalLittleEndianUnsigned(t *testing.T) {
	payload := []byte{0x34, 0x12, 0, 0, 0, 0, 0, 0}
	f := domain.CANSignalFormat{
		StartBit:   0,
		SizeInBits: 16,
		Endianness: domain.LittleEndian,
		Factor:     1,
	}
	v, ok := DecodeSignal(payload, f)
	if !ok {
		t.Fatalf("expected decode ok")
	}
	n, _ := v.AsNumber()
	if n != 0x1234 {
		t.Fatalf("expected 0x1234 (4660), got %v", n)
	}
}

func TestDecodeSignalBigEndianMotorola(t *testing.T) {
	// DBC big-endian start bit 7 (MSB of byte 0), width 16, spans bytes 0-1.
	payload := []byte{0x12, 0x34, 0, 0, 0, 0, 0, 0}
	f := domain.CANSignalFormat{
		StartBit:   7,
		SizeInBits: 16,
		Endianness: domain.BigEndian,
		Factor:     1,
	}
	v, ok := DecodeSignal(payload, f)
	if !ok {
		t.Fatalf("expected decode ok")
	}
	n, _ := v.AsNumber()
	if n != 0x1234 {
		t.Fatalf("expected 0x1234 (4660), got %v", n)
	}
}

func TestDecodeSignalSignedNegative(t *testing.T) {
	// 8-bit signed value 0xFF == -1.
	payload := []byte{0xFF, 0, 0, 0, 0, 0, 0, 0}
	f := domain.CANSignalFormat{
		StartBit:   0,
		SizeInBits: 8,
		Endianness: domain.LittleEndian,
		Signedness: domain.Signed,
		Factor:     1,
	}
	v, ok := DecodeSignal(payload, f)
	if !ok {
		t.Fatalf("expected decode ok")
	}
	n, _ := v.AsNumber()
	if n != -1 {
		t.Fatalf("expected -1, got %v", n)
	}
}

func TestDecodeSignalFactorOffset(t *testing.T) {
	payload := []byte{10, 0, 0, 0, 0, 0, 0, 0}
	f := domain.CANSignalFormat{
		StartBit:   0,
		SizeInBits: 8,
		Endianness: domain.LittleEndian,
		Factor:     0.5,
		Offset:     2,
	}
	v, ok := DecodeSignal(payload, f)
	if !ok {
		t.Fatalf("expected decode ok")
	}
	n, _ := v.AsNumber()
	if n != 7 { // 10*0.5+2
		t.Fatalf("expected 7, got %v", n)
	}
}

func TestDecodeSignalBoolType(t *testing.T) {
	payload := []byte{0x01, 0, 0, 0, 0, 0, 0, 0}
	f := domain.CANSignalFormat{
		StartBit:   0,
		SizeInBits: 1,
		Endianness: domain.LittleEndian,
		SignalType: domain.SignalTypeBool,
	}
	v, ok := DecodeSignal(payload, f)
	if !ok {
		t.Fatalf("expected decode ok")
	}
	if v.Kind != domain.KindBool || !v.Bool {
		t.Fatalf("expected bool true, got %+v", v)
	}
}

func TestDecodeSignalOutOfRangeSkips(t *testing.T) {
	payload := []byte{0, 0}
	f := domain.CANSignalFormat{
		StartBit:   60,
		SizeInBits: 16,
		Endianness: domain.LittleEndian,
	}
	if _, ok := DecodeSignal(payload, f); ok {
		t.Fatalf("expected decode to fail when bits exceed payload")
	}
}
