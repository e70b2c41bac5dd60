package signal

import (
	"errors"
	"sync"

	"github.com/dkeye/castrelay/internal/app"
	"github.com/dkeye/castrelay/internal/core"
	"github.com/dkeye/castrelay/internal/domain"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
)

type hubEntry struct {
	room string
	conn core.SignalConnection
}

// Hub addresses open sockets by connection id.
type Hub struct {
	Policy app.Policy

	mu    sync.RWMutex
	conns map[string]hubEntry
}

func NewHub(policy app.Policy) *Hub {
	return &Hub{
		Policy: policy,
		conns:  make(map[string]hubEntry),
	}
}

// Register binds c to its id. It refuses ids that are already bound.
func (h *Hub) Register(roomID string, c core.SignalConnection) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.conns[c.ID()]; ok {
		return false
	}
	h.conns[c.ID()] = hubEntry{room: roomID, conn: c}
	return true
}

// Unregister removes c unless its id has since been bound to another socket.
func (h *Hub) Unregister(c core.SignalConnection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if e, ok := h.conns[c.ID()]; ok && e.conn == c {
		delete(h.conns, c.ID())
	}
}

func (h *Hub) Has(connID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.conns[connID]
	return ok
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// Deliver sends every envelope to its addressee and returns how many were
// queued. Envelopes for ids without a socket are dropped.
func (h *Hub) Deliver(msgs []domain.SignalingMessage) int {
	sent := 0
	for _, msg := range msgs {
		h.mu.RLock()
		e, ok := h.conns[msg.ConnectionID]
		h.mu.RUnlock()
		if !ok {
			log.Debug().Str("module", "signal.hub").Str("conn", msg.ConnectionID).Str("type", string(msg.Type)).Msg("no socket for addressee")
			continue
		}
		if h.send(e, msg) {
			sent++
		}
	}
	return sent
}

// CloseAll closes the sockets of the given ids.
func (h *Hub) CloseAll(ids []string) {
	for _, id := range ids {
		h.mu.RLock()
		e, ok := h.conns[id]
		h.mu.RUnlock()
		if ok {
			e.conn.Close()
		}
	}
}

func (h *Hub) send(e hubEntry, v any) bool {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal.hub").Msg("marshal envelope")
		return false
	}
	err = e.conn.TrySend(b)
	if err == nil {
		return true
	}
	if !errors.Is(err, ErrBackpressure) || h.Policy == nil {
		log.Warn().Err(err).Str("module", "signal.hub").Str("conn", e.conn.ID()).Msg("send failed")
		return false
	}

	action := h.Policy.OnBackPressure(e.room, e.conn.ID())
	log.Warn().Str("module", "signal.hub").Str("conn", e.conn.ID()).Str("room", e.room).Stringer("action", action).Msg("backpressure")
	if action == app.KickMember {
		e.conn.Close()
	}
	return false
}
