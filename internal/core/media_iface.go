package core

//go:generate mockgen -source=media_iface.go -destination=media_mock.go -package=core

import (
	"context"
	"errors"

	"github.com/pion/webrtc/v4"
)

// ErrUnknownRoute is returned for routes the backend no longer holds, either
// closed by the caller or dropped after the peer connection failed.
var ErrUnknownRoute = errors.New("unknown route")

// RouteID is the backend-assigned identifier of a forwarding route.
type RouteID string

// MediaBackend is the media-routing collaborator. The relay never calls it;
// the orchestrator does after observing stored offer state.
type MediaBackend interface {
	// CreateRoute allocates a forwarding route for a room.
	CreateRoute(ctx context.Context, roomID string) (RouteID, error)
	// BindOffer applies a remote offer to the route and returns the local answer.
	BindOffer(ctx context.Context, route RouteID, sdp string) (string, error)
	// AddCandidate applies a remote ICE candidate to the route.
	AddCandidate(ctx context.Context, route RouteID, candidate webrtc.ICECandidateInit) error
	// CloseRoute releases every resource held by the route.
	CloseRoute(route RouteID) error
}
