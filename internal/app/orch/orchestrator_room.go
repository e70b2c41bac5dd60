package orch

import (
	"github.com/dkeye/castrelay/internal/domain"
	"github.com/rs/zerolog/log"
)

func (o *Orchestrator) CreateRoom(roomID string) bool {
	return o.Registry.CreateRoom(roomID)
}

func (o *Orchestrator) Rooms() []domain.RoomInfo {
	return o.Registry.ListRooms()
}

func (o *Orchestrator) Room(roomID string) (domain.Room, bool) {
	return o.Registry.GetRoom(roomID)
}

func (o *Orchestrator) Connection(connID string) (domain.Connection, bool) {
	return o.Registry.GetConnection(connID)
}

// EvictRoom drops the room with every connection in it and returns the ids
// the transport has to close.
func (o *Orchestrator) EvictRoom(roomID string) []string {
	if o.Media != nil {
		o.closeRoute(roomID)
	}
	ids := o.Registry.DeleteRoom(roomID)
	log.Info().Str("module", "orch").Str("room", roomID).Strs("evicted", ids).Msg("room evicted")
	return ids
}
