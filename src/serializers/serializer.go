package serializers

import (
	"github.com/square-key-labs/strawgo-lisa/src/frames"
)

// SerializerType defines the serialization format type
type SerializerType string

const (
	SerializerTypeBinary SerializerType = "binary"
	SerializerTypeText   SerializerType = "text"
)

// FrameSerializer converts between pipeline frames and a client wire
// protocol. Deserialize returns a nil frame for messages it ignores; Serialize
// returns nil data for frames the client never sees.
type FrameSerializer interface {
	// Type returns the serialization type of outbound control messages
	Type() SerializerType

	// Setup reads connection details from the StartFrame
	Setup(frame frames.Frame) error

	// Serialize returns string for text messages and []byte for binary ones
	Serialize(frame frames.Frame) (any, error)

	// Deserialize accepts string (text message) or []byte (binary message)
	Deserialize(data any) (frames.Frame, error)
}
