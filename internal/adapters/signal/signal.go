package signal

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dkeye/castrelay/internal/app/orch"
	"github.com/dkeye/castrelay/internal/core"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var (
	ErrBackpressure = errors.New("backpressure")
	ErrClosed       = errors.New("connection closed")
)

type Options struct {
	AutoCreateRooms bool
	ReadLimit       int64
	PingPeriod      time.Duration
	WriteTimeout    time.Duration
	SendBuffer      int
}

type SignalWSController struct {
	Orch    *orch.Orchestrator
	Hub     *Hub
	Limiter *RoomRateLimiter
	opts    Options
}

func NewSignalWSController(o *orch.Orchestrator, hub *Hub, limiter *RoomRateLimiter, opts Options) *SignalWSController {
	if opts.PingPeriod <= 0 {
		opts.PingPeriod = 54 * time.Second
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 5 * time.Second
	}
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = 32
	}
	return &SignalWSController{
		Orch:    o,
		Hub:     hub,
		Limiter: limiter,
		opts:    opts,
	}
}

// WsSignalConn is one signaling socket bound to a connection id and a room.
type WsSignalConn struct {
	id   string
	room string
	conn *websocket.Conn
	send chan core.Frame

	// joined is set between a successful join and the matching leave.
	joined atomic.Bool

	mu     sync.RWMutex
	closed bool
}

func (c *WsSignalConn) ID() string { return c.id }

func (c *WsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrClosed
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *WsSignalConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleSignal upgrades GET /api/ws/signal?room=<id>[&connection=<id>].
func (ctl *SignalWSController) HandleSignal(ctx context.Context, c *gin.Context) {
	roomID := c.Query("room")
	if roomID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing room"})
		return
	}
	connID := c.Query("connection")
	if connID == "" {
		connID = uuid.NewString()
	}
	if ctl.Hub.Has(connID) {
		c.JSON(http.StatusConflict, gin.H{"error": "connection id in use"})
		return
	}
	if _, ok := ctl.Orch.Room(roomID); !ok {
		if !ctl.opts.AutoCreateRooms {
			c.JSON(http.StatusNotFound, gin.H{"error": "room does not exist"})
			return
		}
		ctl.Orch.CreateRoom(roomID)
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}

	conn := &WsSignalConn{
		id:   connID,
		room: roomID,
		conn: ws,
		send: make(chan core.Frame, ctl.opts.SendBuffer),
	}
	if !ctl.Hub.Register(roomID, conn) {
		log.Warn().Str("module", "signal").Str("conn", connID).Msg("connection id taken during upgrade")
		_ = ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "connection id in use"))
		_ = ws.Close()
		return
	}
	log.Info().
		Str("module", "signal").
		Str("conn", connID).
		Str("room", roomID).
		Str("client", c.GetString("client_token")).
		Msg("new WS connection")

	ctx, cancel := context.WithCancel(ctx)
	ctl.sendWelcome(conn)

	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, cancel, conn)
}
