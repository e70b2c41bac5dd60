package rtc

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dkeye/castrelay/internal/core"
	"github.com/google/uuid"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

// Backend is a core.MediaBackend on top of pion: one PeerConnection per route.
// It terminates the sender's session; nothing is forwarded to viewers.
type Backend struct {
	cfg           webrtc.Configuration
	gatherTimeout time.Duration

	mu     sync.RWMutex
	routes map[core.RouteID]*WebRTCConnection
}

var _ core.MediaBackend = (*Backend)(nil)

func NewBackend(cfg webrtc.Configuration, gatherTimeout time.Duration) *Backend {
	if gatherTimeout <= 0 {
		gatherTimeout = 5 * time.Second
	}
	return &Backend{
		cfg:           cfg,
		gatherTimeout: gatherTimeout,
		routes:        make(map[core.RouteID]*WebRTCConnection),
	}
}

// CreateRoute creates a new PeerConnection for roomID and starts its callbacks.
func (b *Backend) CreateRoute(ctx context.Context, roomID string) (core.RouteID, error) {
	route := core.RouteID(uuid.NewString())
	logger := log.With().
		Str("module", "webrtc.backend").
		Str("route", string(route)).
		Str("room", roomID).
		Logger()

	wc, err := NewWebRTCConnection(b.cfg, route, roomID)
	if err != nil {
		return "", fmt.Errorf("new peer connection: %w", err)
	}
	// The route outlives the request that created it.
	if err := wc.Start(context.WithoutCancel(ctx)); err != nil {
		_ = wc.Close()
		return "", fmt.Errorf("start route: %w", err)
	}
	wc.OnClosed(func() { b.forget(route) })

	b.mu.Lock()
	b.routes[route] = wc
	b.mu.Unlock()

	logger.Info().Msg("route created")
	return route, nil
}

func (b *Backend) BindOffer(ctx context.Context, route core.RouteID, sdp string) (string, error) {
	wc, ok := b.get(route)
	if !ok {
		return "", fmt.Errorf("%w: %s", core.ErrUnknownRoute, route)
	}
	offer := webrtc.SessionDescription{
		Type: webrtc.SDPTypeOffer,
		SDP:  sdp,
	}
	answer, err := wc.ApplyOfferAndCreateAnswer(ctx, offer, b.gatherTimeout)
	if err != nil {
		return "", err
	}
	return answer.SDP, nil
}

func (b *Backend) AddCandidate(_ context.Context, route core.RouteID, candidate webrtc.ICECandidateInit) error {
	wc, ok := b.get(route)
	if !ok {
		return fmt.Errorf("%w: %s", core.ErrUnknownRoute, route)
	}
	return wc.AddICECandidate(candidate)
}

// CloseRoute stops a route and removes it from the backend.
func (b *Backend) CloseRoute(route core.RouteID) error {
	b.mu.Lock()
	wc, ok := b.routes[route]
	delete(b.routes, route)
	b.mu.Unlock()
	if !ok {
		return nil
	}
	return wc.Close()
}

// Close tears down every route.
func (b *Backend) Close() {
	b.mu.Lock()
	routes := b.routes
	b.routes = make(map[core.RouteID]*WebRTCConnection)
	b.mu.Unlock()
	for _, wc := range routes {
		_ = wc.Close()
	}
}

func (b *Backend) get(route core.RouteID) (*WebRTCConnection, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	wc, ok := b.routes[route]
	return wc, ok
}

func (b *Backend) forget(route core.RouteID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.routes, route)
}
