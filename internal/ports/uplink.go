package ports

// CollectionPayload is the record handed to the uplink boundary when a
// campaign fires (see internal/inspection's emitter).
type CollectionPayload struct {
	CampaignID     string
	FireTimestamp  uint64
	Signals        []CollectedSignalDTO
	RawFrames      []RawFrameDTO
	CustomAppended []CollectedSignalDTO
}

// CollectedSignalDTO is the wire-shaped view of a domain.CollectedSignal,
// kept free of the domain package's internal Value union so the uplink
// boundary (opaque per spec, e.g. MQTT) only ever depends on this file.
type CollectedSignalDTO struct {
	SignalID  uint32
	Timestamp uint64
	Value     any
}

// RawFrameDTO is the wire-shaped view of a raw CAN capture.
type RawFrameDTO struct {
	Channel     uint8
	FrameID     uint32
	ReceiveTime uint64
	Data        []byte
}

// UplinkPublisher is the opaque external collaborator that actually moves
// a CollectionPayload off the device (cloud credentials, MQTT transport,
// etc. — explicitly out of scope for this module). The engine only ever
// depends on this interface; production code wires a real implementation
// at the boundary.
type UplinkPublisher interface {
	Publish(CollectionPayload) error
}
