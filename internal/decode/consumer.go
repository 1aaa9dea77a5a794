package decode

import (
	"github.com/ridgeline-iot/canopy-edge/internal/domain"
	"github.com/ridgeline-iot/canopy-edge/internal/ports"
)

// RawFrame is what the bus-side producer hands the consumer: one captured
// CAN frame with its receive timestamp, prior to any decoding.
type RawFrame struct {
	Channel     domain.ChannelID
	FrameID     uint32
	ReceiveTime domain.Timestamp
	Data        []byte
}

// Consumer turns RawFrames into domain.CollectedDataFrame using the
// currently active decoder dictionary, grounded on the source agent's
// CANDataConsumer::processMessage: one dictionary load per frame (never
// mid-frame), a dictionary miss drops the frame without decoding, and an
// invalid format still yields the raw capture when the policy calls for
// it.
type Consumer struct {
	dict *DictionaryHandle
	obs  ports.Observability
}

// NewConsumer builds a consumer reading dictionaries from dict.
func NewConsumer(dict *DictionaryHandle, obs ports.Observability) *Consumer {
	return &Consumer{dict: dict, obs: obs}
}

// Process decodes one raw frame against the active dictionary and returns
// the resulting collected frame. ok is false when the frame produced
// nothing to collect (no active dictionary, or no method matched) — the
// caller should simply drop it, never treat it as an error.
func (c *Consumer) Process(raw RawFrame) (domain.CollectedDataFrame, bool) {
	d := c.dict.Load()
	if d == nil {
		if c.obs != nil {
			c.obs.IncCounter("decode_dictionary_absent_total", 1)
		}
		return domain.CollectedDataFrame{}, false
	}

	method, resolvedID, ok := FindDecoderMethod(d, raw.Channel, raw.FrameID)
	if !ok {
		return domain.CollectedDataFrame{}, false
	}

	out := domain.CollectedDataFrame{}

	wantRaw := method.CollectPolicy == domain.CollectRaw || method.CollectPolicy == domain.CollectRawAndDecode
	wantDecode := method.CollectPolicy == domain.CollectDecode || method.CollectPolicy == domain.CollectRawAndDecode

	if wantRaw {
		out.RawFrame = toRawCapture(raw, resolvedID)
	}

	if wantDecode {
		if !method.Format.Valid {
			if c.obs != nil {
				c.obs.IncCounter("decode_format_invalid_total", 1)
			}
		} else {
			out.Signals = c.decodeSignals(raw, method.Format, d)
		}
	}

	if out.Empty() {
		return domain.CollectedDataFrame{}, false
	}
	return out, true
}

func (c *Consumer) decodeSignals(raw RawFrame, format domain.CANMessageFormat, d *domain.DecoderDictionary) []domain.CollectedSignal {
	var out []domain.CollectedSignal
	for _, sf := range format.Signals {
		if !d.Collects(sf.SignalID) {
			continue
		}
		v, ok := DecodeSignal(raw.Data, sf)
		if !ok {
			if c.obs != nil {
				c.obs.IncCounter("decode_failure_total", 1)
			}
			continue
		}
		out = append(out, domain.CollectedSignal{
			SignalID:  sf.SignalID,
			Timestamp: raw.ReceiveTime,
			Value:     v,
			Type:      sf.SignalType,
		})
	}
	return out
}

func toRawCapture(raw RawFrame, resolvedID uint32) *domain.CollectedCanRawFrame {
	frame := &domain.CollectedCanRawFrame{
		Channel:     raw.Channel,
		FrameID:     resolvedID,
		ReceiveTime: raw.ReceiveTime,
	}
	n := len(raw.Data)
	if n > domain.MaxCANFrameBytes {
		n = domain.MaxCANFrameBytes
	}
	copy(frame.Data[:n], raw.Data[:n])
	frame.Size = uint8(n)
	return frame
}
