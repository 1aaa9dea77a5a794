package decode

import (
	"encoding/json"
	"fmt"

	"github.com/ridgeline-iot/canopy-edge/internal/domain"
)

// Manifest is the cloud-pushed decoder manifest document: a flat list of
// per-channel CAN message formats plus the signal names enabled for
// collection. Building a dictionary from it is a pure function, grounded
// on CANDecoderDictionary in the original data collection agent.
type Manifest struct {
	Channels         []ManifestChannel `json:"channels"`
	SignalsToCollect []string          `json:"signalsToCollect"`
}

// ManifestChannel groups every known frame on one CAN bus instance.
type ManifestChannel struct {
	ID     uint8           `json:"id"`
	Frames []ManifestFrame `json:"frames"`
}

// ManifestFrame is one (channel, frame id) decode method.
type ManifestFrame struct {
	FrameID       uint32           `json:"frameId"`
	SizeInBytes   uint8            `json:"sizeInBytes"`
	CollectPolicy string           `json:"collectPolicy"`
	Valid         *bool            `json:"valid"`
	Signals       []ManifestSignal `json:"signals"`
}

// ManifestSignal describes one signal's bit layout within a frame.
type ManifestSignal struct {
	SignalID   uint32  `json:"signalId"`
	Name       string  `json:"name"`
	StartBit   uint16  `json:"startBit"`
	SizeInBits uint16  `json:"sizeInBits"`
	BigEndian  bool    `json:"isBigEndian"`
	Signed     bool    `json:"isSigned"`
	Factor     float64 `json:"factor"`
	Offset     float64 `json:"offset"`
	Type       string  `json:"type"`
}

// SignalCatalog maps a signal's fully-qualified name to its id, as
// declared by the decoder manifest; campaign compilation resolves
// expression signal references through this map.
type SignalCatalog map[string]domain.SignalID

// ParseManifest parses raw JSON into a decoder dictionary plus the name ->
// id catalog used to compile campaign expressions and collect-sets.
func ParseManifest(raw []byte) (*domain.DecoderDictionary, SignalCatalog, error) {
	var m Manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, nil, fmt.Errorf("decode manifest: %w", err)
	}

	dict := domain.NewDecoderDictionary()
	catalog := make(SignalCatalog)

	for _, ch := range m.Channels {
		for _, fr := range ch.Frames {
			format := domain.CANMessageFormat{
				MessageID:   fr.FrameID,
				SizeInBytes: fr.SizeInBytes,
				Valid:       fr.Valid == nil || *fr.Valid,
			}
			for _, sig := range fr.Signals {
				sf := domain.CANSignalFormat{
					SignalID:   domain.SignalID(sig.SignalID),
					Name:       sig.Name,
					StartBit:   sig.StartBit,
					SizeInBits: sig.SizeInBits,
					Factor:     sig.Factor,
					Offset:     sig.Offset,
					SignalType: parseSignalType(sig.Type),
				}
				if sig.BigEndian {
					sf.Endianness = domain.BigEndian
				}
				if sig.Signed {
					sf.Signedness = domain.Signed
				}
				format.Signals = append(format.Signals, sf)
				if sig.Name != "" {
					catalog[sig.Name] = sf.SignalID
				}
			}

			method := domain.CANMessageDecoderMethod{
				Format:        format,
				CollectPolicy: parseCollectPolicy(fr.CollectPolicy),
			}
			dict.AddMethod(domain.ChannelID(ch.ID), fr.FrameID, method)
		}
	}

	for _, name := range m.SignalsToCollect {
		if id, ok := catalog[name]; ok {
			dict.SignalsToCollect[id] = struct{}{}
		}
	}

	return dict, catalog, nil
}

func parseCollectPolicy(s string) domain.CollectPolicy {
	switch s {
	case "RAW":
		return domain.CollectRaw
	case "RAW_AND_DECODE":
		return domain.CollectRawAndDecode
	default:
		return domain.CollectDecode
	}
}

func parseSignalType(s string) domain.SignalType {
	switch s {
	case "INT8":
		return domain.SignalTypeInt8
	case "UINT8":
		return domain.SignalTypeUint8
	case "INT16":
		return domain.SignalTypeInt16
	case "UINT16":
		return domain.SignalTypeUint16
	case "INT32":
		return domain.SignalTypeInt32
	case "UINT32":
		return domain.SignalTypeUint32
	case "INT64":
		return domain.SignalTypeInt64
	case "UINT64":
		return domain.SignalTypeUint64
	case "BOOL":
		return domain.SignalTypeBool
	case "STRING":
		return domain.SignalTypeString
	default:
		return domain.SignalTypeDouble
	}
}
