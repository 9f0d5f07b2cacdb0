package protocol

// Machine-readable reasons carried in error frames. Clients branch on the
// code; the message is for humans.
const (
	ErrCodeBadEnvelope    = "bad_envelope"
	ErrCodeUnknownType    = "unknown_type"
	ErrCodeInvalidPayload = "invalid_payload"
	ErrCodeNotMember      = "not_conversation_member"
	ErrCodeNotCallHost    = "not_call_host"
	ErrCodeNotParticipant = "not_call_participant"
	ErrCodeCallNotFound   = "call_not_found"
	ErrCodeCallEnded      = "call_ended"
	ErrCodeStorage        = "storage_error"
)

// ErrorFrame is the payload of every outbound error envelope.
type ErrorFrame struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewError builds a ready-to-send error envelope. Marshalling an ErrorFrame
// cannot fail, so the Envelope error is swallowed here.
func NewError(code, message string) Envelope {
	env, _ := NewEnvelope(TypeError, ErrorFrame{Code: code, Message: message})
	return env
}
