package domain

type MessageType string

const (
	MessageJoin         MessageType = "join"
	MessageOffer        MessageType = "offer"
	MessageAnswer       MessageType = "answer"
	MessageICECandidate MessageType = "ice_candidate"
	MessageLeave        MessageType = "leave"
)

// Payload keys used inside SignalingMessage.Data.
const (
	KeySDP             = "sdp"
	KeyCandidate       = "candidate"
	KeySDPMid          = "sdpMid"
	KeySDPMLineIndex   = "sdpMLineIndex"
	KeyConnectionID    = "connectionId"
	KeyConnectionCount = "connectionCount"
)

// SignalingMessage is the wire envelope. ConnectionID is the subject on
// inbound messages and the addressee on outbound ones.
type SignalingMessage struct {
	Type         MessageType    `json:"type"`
	ConnectionID string         `json:"connectionId,omitempty"`
	SenderID     string         `json:"senderId,omitempty"`
	OfferID      string         `json:"offerId,omitempty"`
	Data         map[string]any `json:"data,omitempty"`
	IsSender     *bool          `json:"isSender,omitempty"`
}

// DataString returns a non-empty string payload value.
func (m SignalingMessage) DataString(key string) (string, bool) {
	if m.Data == nil {
		return "", false
	}
	s, ok := m.Data[key].(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// Sender reports the role hint, false when absent.
func (m SignalingMessage) Sender() bool {
	return m.IsSender != nil && *m.IsSender
}

// Bool is a helper for optional role hints.
func Bool(v bool) *bool { return &v }
