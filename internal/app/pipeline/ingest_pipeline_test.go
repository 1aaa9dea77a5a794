package pipeline

import (
	"testing"

	"github.com/ridgeline-iot/canopy-edge/internal/decode"
	"github.com/ridgeline-iot/canopy-edge/internal/domain"
)

type fakeFrameSink struct {
	pushed []domain.CollectedDataFrame
}

func (f *fakeFrameSink) Push(frame domain.CollectedDataFrame) {
	f.pushed = append(f.pushed, frame)
}

func TestRunIngestPipelineDecodesAndDistributes(t *testing.T) {
	dict := domain.NewDecoderDictionary()
	dict.SignalsToCollect[domain.SignalID(7)] = struct{}{}
	dict.AddMethod(0, 0x100, domain.CANMessageDecoderMethod{
		CollectPolicy: domain.CollectDecode,
		Format: domain.CANMessageFormat{
			MessageID:   0x100,
			SizeInBytes: 8,
			Valid:       true,
			Signals: []domain.CANSignalFormat{
				{SignalID: 7, StartBit: 0, SizeInBits: 8, Endianness: domain.LittleEndian, Factor: 1, SignalType: domain.SignalTypeUint8},
			},
		},
	})

	handle := decode.NewDictionaryHandle()
	handle.Store(dict)
	consumer := decode.NewConsumer(handle, nil)

	frames := make(chan decode.RawFrame, 1)
	frames <- decode.RawFrame{Channel: 0, FrameID: 0x100, ReceiveTime: 1, Data: []byte{42, 0, 0, 0, 0, 0, 0, 0}}
	close(frames)

	sink := &fakeFrameSink{}
	RunIngestPipeline(frames, consumer, sink, nil)

	if len(sink.pushed) != 1 {
		t.Fatalf("expected 1 decoded frame, got %d", len(sink.pushed))
	}
	if len(sink.pushed[0].Signals) != 1 {
		t.Fatalf("expected 1 decoded signal, got %d", len(sink.pushed[0].Signals))
	}
	got, ok := sink.pushed[0].Signals[0].Value.AsNumber()
	if !ok || got != 42 {
		t.Fatalf("expected decoded value 42, got %v ok=%v", got, ok)
	}
}
