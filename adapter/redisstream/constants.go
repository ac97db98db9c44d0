package redisstream

// Stream entry fields.
const (
	fieldName        = "name"
	fieldPayload     = "payload"     // codec bytes
	fieldEmittedAt   = "emittedAt"   // int64 ns
	fieldSubscribers = "subscribers" // subscriber count at emission
	fieldCodec       = "codec"
)
