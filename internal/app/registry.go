package app

import (
	"cmp"
	"slices"
	"sync"

	"github.com/dkeye/castrelay/internal/domain"
	"github.com/rs/zerolog/log"
)

// RoomRegistry owns rooms and connections.
//
// Lock order is connMu before roomMu. Each lock is taken once per call and
// released before returning; nothing re-acquires a lock it already holds.
type RoomRegistry struct {
	connMu sync.RWMutex
	conns  map[string]*domain.Connection

	roomMu sync.RWMutex
	rooms  map[string]*domain.Room
}

func NewRoomRegistry() *RoomRegistry {
	return &RoomRegistry{
		conns: make(map[string]*domain.Connection),
		rooms: make(map[string]*domain.Room),
	}
}

// CreateRoom inserts an empty room. It reports false and leaves the existing
// room untouched when the id is already taken.
func (r *RoomRegistry) CreateRoom(roomID string) bool {
	r.roomMu.RLock()
	_, ok := r.rooms[roomID]
	r.roomMu.RUnlock()
	if ok {
		return false
	}
	r.roomMu.Lock()
	defer r.roomMu.Unlock()
	if _, ok = r.rooms[roomID]; ok {
		return false
	}
	r.rooms[roomID] = &domain.Room{ID: roomID, ViewerIDs: []string{}}
	log.Info().Str("module", "app.registry").Str("room", roomID).Msg("room created")
	return true
}

// DeleteRoom drops a room together with the connection records attached to it
// and returns the ids of those connections.
func (r *RoomRegistry) DeleteRoom(roomID string) []string {
	r.connMu.Lock()
	defer r.connMu.Unlock()
	r.roomMu.Lock()
	defer r.roomMu.Unlock()

	room, ok := r.rooms[roomID]
	if !ok {
		return nil
	}
	ids := membershipOf(room).Participants()
	for _, id := range ids {
		delete(r.conns, id)
	}
	delete(r.rooms, roomID)
	log.Info().Str("module", "app.registry").Str("room", roomID).Int("evicted", len(ids)).Msg("room deleted")
	return ids
}

// AddConnection registers a connection and attaches it to roomID when that
// room exists. A connection added to a missing room stays orphaned: present in
// the connection table, absent from any membership. The bool reports whether
// the connection was attached.
func (r *RoomRegistry) AddConnection(roomID, connID string, isSender bool) (domain.Connection, bool) {
	conn := &domain.Connection{ID: connID, IsSender: isSender}

	r.connMu.Lock()
	defer r.connMu.Unlock()
	r.conns[connID] = conn

	r.roomMu.Lock()
	defer r.roomMu.Unlock()
	room, ok := r.rooms[roomID]
	if !ok {
		log.Warn().Str("module", "app.registry").Str("room", roomID).Str("conn", connID).Msg("connection orphaned, no such room")
		return *conn, false
	}

	room.ViewerIDs = slices.DeleteFunc(room.ViewerIDs, func(id string) bool { return id == connID })
	switch {
	case isSender:
		if room.SenderID != "" && room.SenderID != connID {
			log.Warn().Str("module", "app.registry").Str("room", roomID).Str("previous", room.SenderID).Str("conn", connID).Msg("sender replaced")
			room.SenderSDP = ""
		}
		room.SenderID = connID
	default:
		if room.SenderID == connID {
			room.SenderID = ""
			room.SenderSDP = ""
		}
		room.ViewerIDs = append(room.ViewerIDs, connID)
	}
	log.Info().Str("module", "app.registry").Str("room", roomID).Str("conn", connID).Bool("sender", isSender).Msg("connection attached")
	return *conn, true
}

func (r *RoomRegistry) GetRoom(roomID string) (domain.Room, bool) {
	r.roomMu.RLock()
	defer r.roomMu.RUnlock()
	room, ok := r.rooms[roomID]
	if !ok {
		return domain.Room{}, false
	}
	out := *room
	out.ViewerIDs = slices.Clone(room.ViewerIDs)
	return out, true
}

func (r *RoomRegistry) GetConnection(connID string) (domain.Connection, bool) {
	r.connMu.RLock()
	defer r.connMu.RUnlock()
	conn, ok := r.conns[connID]
	if !ok {
		return domain.Connection{}, false
	}
	return *conn, true
}

// Membership returns a snapshot of the room's participants.
func (r *RoomRegistry) Membership(roomID string) (domain.Membership, bool) {
	r.roomMu.RLock()
	defer r.roomMu.RUnlock()
	room, ok := r.rooms[roomID]
	if !ok {
		return domain.Membership{}, false
	}
	return membershipOf(room), true
}

// IsSender reports whether connID is the room's current sender.
func (r *RoomRegistry) IsSender(roomID, connID string) bool {
	r.roomMu.RLock()
	defer r.roomMu.RUnlock()
	room, ok := r.rooms[roomID]
	return ok && connID != "" && room.SenderID == connID
}

// SetSenderSDP caches the room's latest offer and returns the membership seen
// by that same write.
func (r *RoomRegistry) SetSenderSDP(roomID, sdp string) (domain.Membership, bool) {
	r.roomMu.Lock()
	defer r.roomMu.Unlock()
	room, ok := r.rooms[roomID]
	if !ok {
		return domain.Membership{}, false
	}
	room.SenderSDP = sdp
	return membershipOf(room), true
}

// SetSenderSDPIfSender is SetSenderSDP guarded by a role check made under the
// same lock. It reports false, writing nothing, unless connID is the sender.
func (r *RoomRegistry) SetSenderSDPIfSender(roomID, connID, sdp string) (domain.Membership, bool) {
	r.roomMu.Lock()
	defer r.roomMu.Unlock()
	room, ok := r.rooms[roomID]
	if !ok || connID == "" || room.SenderID != connID {
		return domain.Membership{}, false
	}
	room.SenderSDP = sdp
	return membershipOf(room), true
}

func (r *RoomRegistry) SetConnectionOffer(connID, sdp string) bool {
	r.connMu.Lock()
	defer r.connMu.Unlock()
	conn, ok := r.conns[connID]
	if ok {
		conn.SDPOffer = sdp
	}
	return ok
}

func (r *RoomRegistry) SetConnectionAnswer(connID, sdp string) bool {
	r.connMu.Lock()
	defer r.connMu.Unlock()
	conn, ok := r.conns[connID]
	if ok {
		conn.SDPAnswer = sdp
	}
	return ok
}

// Answer returns the most recent answer stored for connID.
func (r *RoomRegistry) Answer(connID string) (string, bool) {
	r.connMu.RLock()
	defer r.connMu.RUnlock()
	conn, ok := r.conns[connID]
	if !ok || conn.SDPAnswer == "" {
		return "", false
	}
	return conn.SDPAnswer, true
}

// RemoveConnection deletes the connection record and detaches it from the
// room. It returns the remaining participant count and the membership left
// behind, both taken from the same critical section.
func (r *RoomRegistry) RemoveConnection(roomID, connID string) (int, domain.Membership) {
	r.connMu.Lock()
	defer r.connMu.Unlock()
	delete(r.conns, connID)

	r.roomMu.Lock()
	defer r.roomMu.Unlock()
	room, ok := r.rooms[roomID]
	if !ok {
		return 0, domain.Membership{}
	}
	if room.SenderID == connID {
		room.SenderID = ""
		room.SenderSDP = ""
	} else {
		room.ViewerIDs = slices.DeleteFunc(room.ViewerIDs, func(id string) bool { return id == connID })
	}
	m := membershipOf(room)
	log.Info().Str("module", "app.registry").Str("room", roomID).Str("conn", connID).Int("remaining", m.Count()).Msg("connection removed")
	return m.Count(), m
}

func (r *RoomRegistry) ListRooms() []domain.RoomInfo {
	r.roomMu.RLock()
	defer r.roomMu.RUnlock()
	out := make([]domain.RoomInfo, 0, len(r.rooms))
	for _, room := range r.rooms {
		out = append(out, domain.RoomInfo{
			ID:           room.ID,
			Participants: membershipOf(room).Count(),
			HasSender:    room.HasSender(),
			HasOffer:     room.SenderSDP != "",
		})
	}
	slices.SortFunc(out, func(a, b domain.RoomInfo) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

// membershipOf must be called with roomMu held.
func membershipOf(room *domain.Room) domain.Membership {
	return domain.Membership{
		SenderID:  room.SenderID,
		ViewerIDs: slices.Clone(room.ViewerIDs),
	}
}
