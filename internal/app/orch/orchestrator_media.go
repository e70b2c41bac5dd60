package orch

import (
	"context"
	"errors"
	"fmt"

	"github.com/dkeye/castrelay/internal/core"
	"github.com/dkeye/castrelay/internal/domain"
	"github.com/pion/sdp/v3"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

// publish binds the sender's offer to the room's route and returns the
// backend's answer addressed to the sender.
func (o *Orchestrator) publish(ctx context.Context, roomID, senderID, offer string) (domain.SignalingMessage, bool) {
	logger := log.With().Str("module", "orch.media").Str("room", roomID).Str("sender", senderID).Logger()

	media, err := validateOffer(offer)
	if err != nil {
		logger.Warn().Err(err).Msg("offer not forwarded to media backend")
		return domain.SignalingMessage{}, false
	}

	route, err := o.ensureRoute(ctx, roomID)
	if err != nil {
		logger.Error().Err(err).Msg("create route")
		return domain.SignalingMessage{}, false
	}
	answer, err := o.Media.BindOffer(ctx, route, offer)
	if errors.Is(err, core.ErrUnknownRoute) {
		// The backend dropped the route on its own; start over once.
		logger.Warn().Str("route", string(route)).Msg("route gone, recreating")
		o.forgetRoute(roomID, route)
		if route, err = o.ensureRoute(ctx, roomID); err != nil {
			logger.Error().Err(err).Msg("create route")
			return domain.SignalingMessage{}, false
		}
		answer, err = o.Media.BindOffer(ctx, route, offer)
	}
	if err != nil {
		logger.Error().Err(err).Str("route", string(route)).Msg("bind offer")
		return domain.SignalingMessage{}, false
	}
	logger.Info().Str("route", string(route)).Int("media_sections", media).Msg("offer bound to route")

	return domain.SignalingMessage{
		Type:         domain.MessageAnswer,
		ConnectionID: senderID,
		SenderID:     string(route),
		Data:         map[string]any{domain.KeySDP: answer},
	}, true
}

func (o *Orchestrator) trickle(ctx context.Context, roomID string, msg domain.SignalingMessage) {
	o.mu.Lock()
	route, ok := o.routes[roomID]
	o.mu.Unlock()
	if !ok {
		return
	}

	c, _ := msg.DataString(domain.KeyCandidate)
	ci := webrtc.ICECandidateInit{Candidate: c}
	if mid, ok := msg.DataString(domain.KeySDPMid); ok {
		ci.SDPMid = &mid
	}
	if idx, ok := lineIndex(msg.Data[domain.KeySDPMLineIndex]); ok {
		ci.SDPMLineIndex = &idx
	}
	if err := o.Media.AddCandidate(ctx, route, ci); err != nil {
		log.Error().Err(err).Str("module", "orch.media").Str("room", roomID).Str("route", string(route)).Msg("add ice candidate")
	}
}

func (o *Orchestrator) ensureRoute(ctx context.Context, roomID string) (core.RouteID, error) {
	o.mu.Lock()
	route, ok := o.routes[roomID]
	o.mu.Unlock()
	if ok {
		return route, nil
	}

	route, err := o.Media.CreateRoute(ctx, roomID)
	if err != nil {
		return "", err
	}

	o.mu.Lock()
	if existing, ok := o.routes[roomID]; ok {
		o.mu.Unlock()
		// Lost a race with a concurrent offer for the same room.
		if err := o.Media.CloseRoute(route); err != nil {
			log.Error().Err(err).Str("module", "orch.media").Str("route", string(route)).Msg("close duplicate route")
		}
		return existing, nil
	}
	o.routes[roomID] = route
	o.mu.Unlock()
	return route, nil
}

// forgetRoute unmaps route if it is still the room's current one.
func (o *Orchestrator) forgetRoute(roomID string, route core.RouteID) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.routes[roomID] == route {
		delete(o.routes, roomID)
	}
}

func (o *Orchestrator) closeRoute(roomID string) {
	o.mu.Lock()
	route, ok := o.routes[roomID]
	delete(o.routes, roomID)
	o.mu.Unlock()
	if !ok {
		return
	}
	if err := o.Media.CloseRoute(route); err != nil {
		log.Error().Err(err).Str("module", "orch.media").Str("room", roomID).Str("route", string(route)).Msg("close route")
		return
	}
	log.Info().Str("module", "orch.media").Str("room", roomID).Str("route", string(route)).Msg("route closed")
}

// validateOffer parses the offer and returns its number of media sections.
func validateOffer(offer string) (int, error) {
	var desc sdp.SessionDescription
	if err := desc.UnmarshalString(offer); err != nil {
		return 0, fmt.Errorf("parse sdp: %w", err)
	}
	if len(desc.MediaDescriptions) == 0 {
		return 0, fmt.Errorf("sdp has no media sections")
	}
	return len(desc.MediaDescriptions), nil
}

// lineIndex accepts the numeric shapes JSON decoding and in-process callers produce.
func lineIndex(v any) (uint16, bool) {
	switch n := v.(type) {
	case float64:
		if n < 0 || n > 65535 {
			return 0, false
		}
		return uint16(n), true
	case int:
		if n < 0 || n > 65535 {
			return 0, false
		}
		return uint16(n), true
	case uint16:
		return n, true
	}
	return 0, false
}
