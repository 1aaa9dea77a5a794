// Package decode turns raw CAN frames into collected signals against a
// live decoder dictionary: format/method lookup, bit-exact extraction,
// and the RAW/DECODE/RAW_AND_DECODE collection policy.
package decode

import (
	"sync/atomic"

	"github.com/ridgeline-iot/canopy-edge/internal/domain"
)

// DictionaryHandle holds the currently active decoder dictionary behind an
// atomic pointer, so a cloud-pushed dictionary swap never blocks or races
// the consumer reading it once per frame. Mirrors the shared-pointer swap
// the source agent performs under a dictionary mutex: here, the swap
// itself is lock-free.
type DictionaryHandle struct {
	current atomic.Pointer[domain.DecoderDictionary]
}

// NewDictionaryHandle returns a handle with no dictionary installed; Load
// returns nil until Store is called.
func NewDictionaryHandle() *DictionaryHandle {
	return &DictionaryHandle{}
}

// Store installs d as the active dictionary. Safe to call concurrently with
// Load from the consumer goroutine.
func (h *DictionaryHandle) Store(d *domain.DecoderDictionary) {
	h.current.Store(d)
}

// Load returns the active dictionary, or nil if none has been installed.
func (h *DictionaryHandle) Load() *domain.DecoderDictionary {
	return h.current.Load()
}

// FindDecoderMethod looks up the decode method for (channel, frameID),
// first by direct match, then — for frames carrying the 29-bit extended-id
// flag — by masking off the flag and retrying. On an extended-id fallback
// hit it returns the masked id too, so the caller attributes the decoded
// signals to the canonical (flagless) frame id. Grounded on the source
// agent's CANDataConsumer::findDecoderMethod two-step lookup.
func FindDecoderMethod(d *domain.DecoderDictionary, channel domain.ChannelID, frameID uint32) (method domain.CANMessageDecoderMethod, resolvedID uint32, ok bool) {
	if d == nil {
		return domain.CANMessageDecoderMethod{}, frameID, false
	}
	byChannel, ok := d.Method[channel]
	if !ok {
		return domain.CANMessageDecoderMethod{}, frameID, false
	}

	if m, ok := byChannel[frameID]; ok {
		return m, frameID, true
	}

	if frameID&domain.ExtendedIDFlag != 0 {
		masked := frameID & domain.ExtendedIDMask
		if m, ok := byChannel[masked]; ok {
			return m, masked, true
		}
	}

	return domain.CANMessageDecoderMethod{}, frameID, false
}
