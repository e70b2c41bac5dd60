package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSignalingMessage_DataString(t *testing.T) {
	msg := SignalingMessage{Data: map[string]any{
		KeySDP:       "v=0",
		KeyCandidate: "",
		"count":      3,
	}}

	sdp, ok := msg.DataString(KeySDP)
	assert.True(t, ok)
	assert.Equal(t, "v=0", sdp)

	_, ok = msg.DataString(KeyCandidate)
	assert.False(t, ok, "empty strings count as missing")

	_, ok = msg.DataString("count")
	assert.False(t, ok, "non-string values count as missing")

	_, ok = SignalingMessage{}.DataString(KeySDP)
	assert.False(t, ok)
}

func TestSignalingMessage_Sender(t *testing.T) {
	assert.False(t, SignalingMessage{}.Sender())
	assert.False(t, SignalingMessage{IsSender: Bool(false)}.Sender())
	assert.True(t, SignalingMessage{IsSender: Bool(true)}.Sender())
}

func TestMembership_CountAndParticipants(t *testing.T) {
	m := Membership{SenderID: "s1", ViewerIDs: []string{"v1", "v2"}}
	assert.Equal(t, 3, m.Count())
	assert.Equal(t, []string{"v1", "v2", "s1"}, m.Participants())

	empty := Membership{}
	assert.Equal(t, 0, empty.Count())
	assert.Empty(t, empty.Participants())
}
