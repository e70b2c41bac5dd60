package orch

import (
	"context"
	"sync"

	"github.com/dkeye/castrelay/internal/app"
	"github.com/dkeye/castrelay/internal/core"
	"github.com/dkeye/castrelay/internal/domain"
	"github.com/rs/zerolog/log"
)

// Orchestrator is the layer around the relay: it dispatches envelopes and,
// when a media backend is configured, mirrors the sender's offers onto it.
type Orchestrator struct {
	Registry *app.RoomRegistry
	Relay    *app.SignalingRelay
	Media    core.MediaBackend

	mu     sync.Mutex
	routes map[string]core.RouteID
}

func New(relay *app.SignalingRelay, media core.MediaBackend) *Orchestrator {
	return &Orchestrator{
		Registry: relay.Registry(),
		Relay:    relay,
		Media:    media,
		routes:   make(map[string]core.RouteID),
	}
}

// Handle dispatches one inbound envelope and returns what has to be delivered.
func (o *Orchestrator) Handle(ctx context.Context, roomID string, msg domain.SignalingMessage) ([]domain.SignalingMessage, error) {
	// Roles have to be read before dispatch: join and leave change them.
	before, _ := o.Registry.Membership(roomID)
	wasSender := msg.ConnectionID != "" && before.SenderID == msg.ConnectionID

	out, err := o.Relay.Dispatch(roomID, msg)
	if err != nil {
		log.Warn().Err(err).Str("module", "orch").Str("room", roomID).Str("conn", msg.ConnectionID).Str("type", string(msg.Type)).Msg("dispatch rejected")
		return nil, err
	}
	if o.Media == nil {
		return out, nil
	}

	switch msg.Type {
	case domain.MessageJoin:
		// A route is negotiated with one sender only. Replacing or demoting
		// that sender invalidates it.
		if before.SenderID != "" && wasSender != msg.Sender() {
			o.closeRoute(roomID)
		}
	case domain.MessageOffer:
		if wasSender {
			sdp, _ := msg.DataString(domain.KeySDP)
			if answer, ok := o.publish(ctx, roomID, msg.ConnectionID, sdp); ok {
				out = append(out, answer)
			}
		}
	case domain.MessageICECandidate:
		if wasSender {
			o.trickle(ctx, roomID, msg)
		}
	case domain.MessageLeave:
		if wasSender {
			o.closeRoute(roomID)
		}
	}
	return out, nil
}

// Disconnect handles a transport-level disconnect of connID.
func (o *Orchestrator) Disconnect(_ context.Context, roomID, connID string) []domain.SignalingMessage {
	wasSender := o.Registry.IsSender(roomID, connID)
	out := o.Relay.Disconnect(roomID, connID)
	if wasSender && o.Media != nil {
		o.closeRoute(roomID)
	}
	log.Info().Str("module", "orch").Str("room", roomID).Str("conn", connID).Int("notified", len(out)).Msg("disconnect")
	return out
}

// Answer returns the answer a viewer stored for its sender's offer.
func (o *Orchestrator) Answer(connID string) (string, bool) {
	return o.Relay.Answer(connID)
}
