package app

import (
	"maps"

	"github.com/dkeye/castrelay/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type RelayOptions struct {
	// StrictOffer rejects offers from connections that are not the room sender.
	StrictOffer bool
	// NewOfferID generates correlation ids for outbound offers.
	NewOfferID func() string
}

// SignalingRelay turns one inbound envelope into the envelopes the transport
// has to deliver. It keeps no state of its own.
type SignalingRelay struct {
	reg  *RoomRegistry
	opts RelayOptions
}

func NewSignalingRelay(reg *RoomRegistry, opts RelayOptions) *SignalingRelay {
	if opts.NewOfferID == nil {
		opts.NewOfferID = uuid.NewString
	}
	return &SignalingRelay{reg: reg, opts: opts}
}

func (r *SignalingRelay) Registry() *RoomRegistry { return r.reg }

// Dispatch handles msg for roomID. Unknown rooms and connections produce no
// output rather than an error; only malformed messages fail.
func (r *SignalingRelay) Dispatch(roomID string, msg domain.SignalingMessage) ([]domain.SignalingMessage, error) {
	switch msg.Type {
	case domain.MessageJoin:
		return r.join(roomID, msg)
	case domain.MessageOffer:
		return r.offer(roomID, msg)
	case domain.MessageAnswer:
		return r.answer(msg)
	case domain.MessageICECandidate:
		return r.candidate(roomID, msg)
	case domain.MessageLeave:
		if msg.ConnectionID == "" {
			return nil, missing(msg.Type, "connectionId")
		}
		return r.Disconnect(roomID, msg.ConnectionID), nil
	default:
		log.Debug().Str("module", "app.relay").Str("type", string(msg.Type)).Msg("ignoring unknown message type")
		return nil, nil
	}
}

// Answer exposes the answer stored for connID so the surrounding system can
// complete the handshake.
func (r *SignalingRelay) Answer(connID string) (string, bool) {
	return r.reg.Answer(connID)
}

func (r *SignalingRelay) join(roomID string, msg domain.SignalingMessage) ([]domain.SignalingMessage, error) {
	if msg.ConnectionID == "" {
		return nil, missing(msg.Type, "connectionId")
	}
	conn, _ := r.reg.AddConnection(roomID, msg.ConnectionID, msg.Sender())
	if conn.IsSender {
		return nil, nil
	}

	room, ok := r.reg.GetRoom(roomID)
	if !ok || !room.HasSender() || room.SenderSDP == "" {
		return nil, nil
	}
	log.Debug().Str("module", "app.relay").Str("room", roomID).Str("conn", conn.ID).Msg("late join catch-up offer")
	return []domain.SignalingMessage{r.offerTo(conn.ID, room.SenderID, room.SenderSDP)}, nil
}

func (r *SignalingRelay) offer(roomID string, msg domain.SignalingMessage) ([]domain.SignalingMessage, error) {
	if msg.ConnectionID == "" {
		return nil, missing(msg.Type, "connectionId")
	}
	sdp, ok := msg.DataString(domain.KeySDP)
	if !ok {
		return nil, missing(msg.Type, "data.sdp")
	}

	var members domain.Membership
	if r.opts.StrictOffer {
		if members, ok = r.reg.SetSenderSDPIfSender(roomID, msg.ConnectionID, sdp); !ok {
			return nil, ErrRoleMismatch
		}
		r.reg.SetConnectionOffer(msg.ConnectionID, sdp)
	} else {
		r.reg.SetConnectionOffer(msg.ConnectionID, sdp)
		if members, ok = r.reg.SetSenderSDP(roomID, sdp); !ok {
			return nil, nil
		}
	}

	out := make([]domain.SignalingMessage, 0, len(members.ViewerIDs))
	for _, viewer := range members.ViewerIDs {
		out = append(out, r.offerTo(viewer, msg.ConnectionID, sdp))
	}
	log.Debug().Str("module", "app.relay").Str("room", roomID).Str("conn", msg.ConnectionID).Int("viewers", len(out)).Msg("offer fan-out")
	return out, nil
}

func (r *SignalingRelay) answer(msg domain.SignalingMessage) ([]domain.SignalingMessage, error) {
	if msg.ConnectionID == "" {
		return nil, missing(msg.Type, "connectionId")
	}
	sdp, ok := msg.DataString(domain.KeySDP)
	if !ok {
		return nil, missing(msg.Type, "data.sdp")
	}
	r.reg.SetConnectionAnswer(msg.ConnectionID, sdp)
	return nil, nil
}

func (r *SignalingRelay) candidate(roomID string, msg domain.SignalingMessage) ([]domain.SignalingMessage, error) {
	if msg.ConnectionID == "" {
		return nil, missing(msg.Type, "connectionId")
	}
	candidate, ok := msg.DataString(domain.KeyCandidate)
	if !ok {
		return nil, missing(msg.Type, "data.candidate")
	}
	members, ok := r.reg.Membership(roomID)
	if !ok {
		return nil, nil
	}

	data := map[string]any{domain.KeyCandidate: candidate}
	for _, key := range []string{domain.KeySDPMid, domain.KeySDPMLineIndex} {
		if v, ok := msg.Data[key]; ok && v != nil {
			data[key] = v
		}
	}

	var targets []string
	switch {
	case members.SenderID == msg.ConnectionID:
		targets = members.ViewerIDs
	case members.SenderID != "":
		targets = []string{members.SenderID}
	}

	out := make([]domain.SignalingMessage, 0, len(targets))
	for _, to := range targets {
		out = append(out, domain.SignalingMessage{
			Type:         domain.MessageICECandidate,
			ConnectionID: to,
			SenderID:     msg.ConnectionID,
			Data:         maps.Clone(data),
		})
	}
	return out, nil
}

// Disconnect removes connID from the room and notifies everyone left behind.
// It is the transport-level counterpart of a leave message.
func (r *SignalingRelay) Disconnect(roomID, connID string) []domain.SignalingMessage {
	remaining, members := r.reg.RemoveConnection(roomID, connID)
	participants := members.Participants()
	out := make([]domain.SignalingMessage, 0, len(participants))
	for _, id := range participants {
		if id == connID {
			continue
		}
		out = append(out, domain.SignalingMessage{
			Type:         domain.MessageLeave,
			ConnectionID: id,
			Data: map[string]any{
				domain.KeyConnectionID:    connID,
				domain.KeyConnectionCount: remaining,
			},
		})
	}
	return out
}

func (r *SignalingRelay) offerTo(viewer, sender, sdp string) domain.SignalingMessage {
	return domain.SignalingMessage{
		Type:         domain.MessageOffer,
		ConnectionID: viewer,
		SenderID:     sender,
		OfferID:      r.opts.NewOfferID(),
		Data:         map[string]any{domain.KeySDP: sdp},
		IsSender:     domain.Bool(false),
	}
}
