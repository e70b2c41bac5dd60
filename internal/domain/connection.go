package domain

// Connection is one signaling peer. Its role is fixed when it joins.
type Connection struct {
	ID        string `json:"id"`
	IsSender  bool   `json:"isSender"`
	SDPOffer  string `json:"sdpOffer,omitempty"`
	SDPAnswer string `json:"sdpAnswer,omitempty"`
}
