// Package domain contains entities without logic, just meta-data
package domain

// Room is the membership record of one broadcast. Empty strings mean "none".
type Room struct {
	ID        string   `json:"id"`
	SenderID  string   `json:"senderId,omitempty"`
	ViewerIDs []string `json:"viewerIds"`
	SenderSDP string   `json:"-"`
}

func (r Room) HasSender() bool { return r.SenderID != "" }

// Membership is a snapshot of a room's participants.
type Membership struct {
	SenderID  string
	ViewerIDs []string
}

// Count is the number of attached participants, sender included.
func (m Membership) Count() int {
	n := len(m.ViewerIDs)
	if m.SenderID != "" {
		n++
	}
	return n
}

// Participants lists viewers in join order followed by the sender.
func (m Membership) Participants() []string {
	out := make([]string, 0, m.Count())
	out = append(out, m.ViewerIDs...)
	if m.SenderID != "" {
		out = append(out, m.SenderID)
	}
	return out
}

// RoomInfo is a read-only view for APIs.
type RoomInfo struct {
	ID           string `json:"id"`
	Participants int    `json:"participants"`
	HasSender    bool   `json:"hasSender"`
	HasOffer     bool   `json:"hasOffer"`
}
