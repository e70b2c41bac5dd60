package app

import (
	"fmt"
	"testing"

	"github.com/sourcegraph/conc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoomRegistry_CreateRoomTwiceKeepsMembership(t *testing.T) {
	reg := NewRoomRegistry()
	require.True(t, reg.CreateRoom("r1"))
	reg.AddConnection("r1", "s1", true)
	reg.AddConnection("r1", "v1", false)
	reg.SetSenderSDP("r1", "O1")

	assert.False(t, reg.CreateRoom("r1"))

	room, ok := reg.GetRoom("r1")
	require.True(t, ok)
	assert.Equal(t, "s1", room.SenderID)
	assert.Equal(t, []string{"v1"}, room.ViewerIDs)
	assert.Equal(t, "O1", room.SenderSDP)
}

func TestRoomRegistry_AddConnectionToMissingRoomOrphans(t *testing.T) {
	reg := NewRoomRegistry()

	conn, attached := reg.AddConnection("nowhere", "c1", false)
	assert.False(t, attached)
	assert.Equal(t, "c1", conn.ID)

	_, ok := reg.GetConnection("c1")
	assert.True(t, ok, "connection record exists")
	_, ok = reg.GetRoom("nowhere")
	assert.False(t, ok, "room is not created implicitly")

	// Creating the room afterwards does not adopt the orphan.
	reg.CreateRoom("nowhere")
	m, _ := reg.Membership("nowhere")
	assert.Equal(t, 0, m.Count())
}

func TestRoomRegistry_ViewersUniqueAndOrdered(t *testing.T) {
	reg := NewRoomRegistry()
	reg.CreateRoom("r1")
	for _, id := range []string{"v1", "v2", "v3", "v2"} {
		reg.AddConnection("r1", id, false)
	}
	room, _ := reg.GetRoom("r1")
	assert.Equal(t, []string{"v1", "v3", "v2"}, room.ViewerIDs)
}

func TestRoomRegistry_RoleChanges(t *testing.T) {
	reg := NewRoomRegistry()
	reg.CreateRoom("r1")
	reg.AddConnection("r1", "a", false)
	reg.AddConnection("r1", "a", true)

	room, _ := reg.GetRoom("r1")
	assert.Equal(t, "a", room.SenderID)
	assert.Empty(t, room.ViewerIDs, "promoted viewer leaves the viewer list")

	reg.SetSenderSDP("r1", "O1")
	reg.AddConnection("r1", "b", true)
	room, _ = reg.GetRoom("r1")
	assert.Equal(t, "b", room.SenderID)
	assert.Empty(t, room.SenderSDP, "a new sender invalidates the cached offer")

	reg.SetSenderSDP("r1", "O2")
	reg.AddConnection("r1", "b", false)
	room, _ = reg.GetRoom("r1")
	assert.False(t, room.HasSender())
	assert.Empty(t, room.SenderSDP)
	assert.Equal(t, []string{"b"}, room.ViewerIDs)
}

func TestRoomRegistry_RemoveSenderClearsSDP(t *testing.T) {
	reg := NewRoomRegistry()
	reg.CreateRoom("r1")
	reg.AddConnection("r1", "s1", true)
	reg.AddConnection("r1", "v1", false)
	reg.AddConnection("r1", "v2", false)
	reg.SetSenderSDP("r1", "O1")

	remaining, m := reg.RemoveConnection("r1", "s1")
	assert.Equal(t, 2, remaining)
	assert.Equal(t, []string{"v1", "v2"}, m.Participants())

	room, _ := reg.GetRoom("r1")
	assert.Empty(t, room.SenderID)
	assert.Empty(t, room.SenderSDP)
	_, ok := reg.GetConnection("s1")
	assert.False(t, ok)
}

func TestRoomRegistry_RemoveViewerAndUnknowns(t *testing.T) {
	reg := NewRoomRegistry()
	reg.CreateRoom("r1")
	reg.AddConnection("r1", "s1", true)
	reg.AddConnection("r1", "v1", false)

	remaining, _ := reg.RemoveConnection("r1", "v1")
	assert.Equal(t, 1, remaining)

	remaining, _ = reg.RemoveConnection("r1", "ghost")
	assert.Equal(t, 1, remaining)

	remaining, m := reg.RemoveConnection("missing", "s1")
	assert.Equal(t, 0, remaining)
	assert.Equal(t, 0, m.Count())
}

func TestRoomRegistry_SnapshotsAreCopies(t *testing.T) {
	reg := NewRoomRegistry()
	reg.CreateRoom("r1")
	reg.AddConnection("r1", "v1", false)

	room, _ := reg.GetRoom("r1")
	room.ViewerIDs[0] = "mutated"
	m, _ := reg.Membership("r1")
	m.ViewerIDs = append(m.ViewerIDs, "extra")

	again, _ := reg.GetRoom("r1")
	assert.Equal(t, []string{"v1"}, again.ViewerIDs)
}

func TestRoomRegistry_OfferAnswerStorage(t *testing.T) {
	reg := NewRoomRegistry()
	reg.CreateRoom("r1")
	reg.AddConnection("r1", "v1", false)

	assert.True(t, reg.SetConnectionOffer("v1", "O"))
	assert.True(t, reg.SetConnectionAnswer("v1", "A"))
	assert.False(t, reg.SetConnectionAnswer("ghost", "A"))

	conn, _ := reg.GetConnection("v1")
	assert.Equal(t, "O", conn.SDPOffer)
	answer, ok := reg.Answer("v1")
	assert.True(t, ok)
	assert.Equal(t, "A", answer)

	_, ok = reg.Answer("ghost")
	assert.False(t, ok)
}

func TestRoomRegistry_DeleteRoomAndList(t *testing.T) {
	reg := NewRoomRegistry()
	reg.CreateRoom("b")
	reg.CreateRoom("a")
	reg.AddConnection("a", "s1", true)
	reg.AddConnection("a", "v1", false)
	reg.SetSenderSDP("a", "O1")

	rooms := reg.ListRooms()
	require.Len(t, rooms, 2)
	assert.Equal(t, "a", rooms[0].ID)
	assert.Equal(t, 2, rooms[0].Participants)
	assert.True(t, rooms[0].HasSender)
	assert.True(t, rooms[0].HasOffer)
	assert.Equal(t, "b", rooms[1].ID)

	evicted := reg.DeleteRoom("a")
	assert.ElementsMatch(t, []string{"s1", "v1"}, evicted)
	_, ok := reg.GetConnection("s1")
	assert.False(t, ok)
	assert.Len(t, reg.ListRooms(), 1)
	assert.Nil(t, reg.DeleteRoom("a"))
}

func TestRoomRegistry_ConcurrentAccess(t *testing.T) {
	reg := NewRoomRegistry()
	reg.CreateRoom("r1")

	var wg conc.WaitGroup
	for i := 0; i < 50; i++ {
		id := fmt.Sprintf("v%d", i)
		wg.Go(func() {
			reg.AddConnection("r1", id, false)
			reg.SetConnectionAnswer(id, "A")
			reg.Membership("r1")
			reg.SetSenderSDP("r1", "O")
		})
		wg.Go(func() {
			reg.CreateRoom("r1")
			reg.ListRooms()
		})
	}
	wg.Wait()

	m, _ := reg.Membership("r1")
	assert.Equal(t, 50, m.Count())

	for i := 0; i < 50; i++ {
		id := fmt.Sprintf("v%d", i)
		wg.Go(func() { reg.RemoveConnection("r1", id) })
	}
	wg.Wait()
	m, _ = reg.Membership("r1")
	assert.Equal(t, 0, m.Count())
}

func TestRoomRegistry_SetSenderSDPIfSender(t *testing.T) {
	reg := NewRoomRegistry()
	reg.CreateRoom("r1")
	reg.AddConnection("r1", "s1", true)
	reg.AddConnection("r1", "v1", false)

	_, ok := reg.SetSenderSDPIfSender("r1", "v1", "V")
	assert.False(t, ok)
	_, ok = reg.SetSenderSDPIfSender("missing", "s1", "S")
	assert.False(t, ok)
	room, _ := reg.GetRoom("r1")
	assert.Empty(t, room.SenderSDP)

	m, ok := reg.SetSenderSDPIfSender("r1", "s1", "S1")
	require.True(t, ok)
	assert.Equal(t, []string{"v1"}, m.ViewerIDs)

	reg.AddConnection("r1", "s2", true)
	_, ok = reg.SetSenderSDPIfSender("r1", "s1", "S1-late")
	assert.False(t, ok, "a replaced sender cannot write")
	room, _ = reg.GetRoom("r1")
	assert.Equal(t, "s2", room.SenderID)
	assert.Empty(t, room.SenderSDP)
}

func TestRoomRegistry_SenderSDPFollowsSenderUnderRace(t *testing.T) {
	reg := NewRoomRegistry()
	reg.CreateRoom("r1")

	var wg conc.WaitGroup
	for i := 0; i < 20; i++ {
		id := fmt.Sprintf("s%d", i)
		wg.Go(func() {
			reg.AddConnection("r1", id, true)
			for j := 0; j < 20; j++ {
				reg.SetSenderSDPIfSender("r1", id, "sdp-"+id)
			}
		})
	}
	wg.Wait()

	room, _ := reg.GetRoom("r1")
	if room.SenderSDP != "" {
		assert.Equal(t, "sdp-"+room.SenderID, room.SenderSDP)
	}
}
