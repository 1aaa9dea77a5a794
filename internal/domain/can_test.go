package domain

import "testing"

func TestCollectedDataFrameEmpty(t *testing.T) {
	if !(CollectedDataFrame{}).Empty() {
		t.Fatalf("expected zero-value frame to be empty")
	}
	f := CollectedDataFrame{Signals: []CollectedSignal{{SignalID: 1}}}
	if f.Empty() {
		t.Fatalf("expected frame with signals to not be empty")
	}
}

func TestCollectedDataFrameCloneIsIndependent(t *testing.T) {
	raw := &CollectedCanRawFrame{FrameID: 1, Size: 2}
	raw.Data[0] = 0xAA
	orig := CollectedDataFrame{
		RawFrame: raw,
		Signals:  []CollectedSignal{{SignalID: 1, Value: NumValue(1)}},
	}

	clone := orig.Clone()
	clone.RawFrame.Data[0] = 0xBB
	clone.Signals[0].Value = NumValue(99)

	if orig.RawFrame.Data[0] != 0xAA {
		t.Fatalf("expected mutating the clone's raw frame to not affect the original")
	}
	n, _ := orig.Signals[0].Value.AsNumber()
	if n != 1 {
		t.Fatalf("expected mutating the clone's signals to not affect the original, got %v", n)
	}
}

func TestDecoderDictionaryCollects(t *testing.T) {
	d := NewDecoderDictionary()
	d.SignalsToCollect[7] = struct{}{}
	if !d.Collects(7) {
		t.Fatalf("expected signal 7 to be collected")
	}
	if d.Collects(8) {
		t.Fatalf("expected signal 8 to not be collected")
	}
	var nilDict *DecoderDictionary
	if nilDict.Collects(7) {
		t.Fatalf("expected a nil dictionary to collect nothing")
	}
}

func TestDecoderDictionaryAddMethod(t *testing.T) {
	d := NewDecoderDictionary()
	d.AddMethod(0, 0x10, CANMessageDecoderMethod{Format: CANMessageFormat{MessageID: 0x10}})
	d.AddMethod(0, 0x20, CANMessageDecoderMethod{Format: CANMessageFormat{MessageID: 0x20}})
	if len(d.Method[0]) != 2 {
		t.Fatalf("expected 2 methods registered on channel 0, got %d", len(d.Method[0]))
	}
}
