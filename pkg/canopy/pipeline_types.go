package canopy

import (
	"github.com/ridgeline-iot/canopy-edge/internal/decode"
	"github.com/ridgeline-iot/canopy-edge/internal/domain"
	"github.com/ridgeline-iot/canopy-edge/internal/inspection"
	"github.com/ridgeline-iot/canopy-edge/internal/ports"
)

// CollectedDataFrame is the unit the decode consumer hands to the
// distributor; exported so custom bus producers can reference it.
type CollectedDataFrame = domain.CollectedDataFrame

// RawFrame is one captured CAN frame prior to decoding.
type RawFrame = decode.RawFrame

// CollectionPayload is the record handed to the uplink boundary when a
// campaign fires.
type CollectionPayload = ports.CollectionPayload

// UplinkPublisher is the opaque external collaborator that actually moves
// a CollectionPayload off the device; callers supply a real implementation
// via WithPublisher.
type UplinkPublisher = ports.UplinkPublisher

// Observability emits metrics/logs about decode failures, expression type
// mismatches, queue overflows, and retry aborts.
type Observability = ports.Observability

// Field is a structured log/metric field used by Observability
// implementations.
type Field = ports.Field

// CustomFunction is the Invoke/ConditionEnd/Cleanup contract a campaign's
// custom_function(...) call site is bound to.
type CustomFunction = ports.CustomFunction

// Campaign is a compiled, cloud-issued collection rule.
type Campaign = inspection.Campaign

// DecoderDictionary maps (channel, frame id) to a decode method plus the
// set of signals enabled for collection.
type DecoderDictionary = domain.DecoderDictionary

// SignalID is an opaque identifier assigned by the cloud decoder manifest.
type SignalID = domain.SignalID

// ChannelID names one CAN bus instance on the vehicle.
type ChannelID = domain.ChannelID
