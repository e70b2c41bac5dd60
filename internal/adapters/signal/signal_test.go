package signal

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dkeye/castrelay/internal/app"
	"github.com/dkeye/castrelay/internal/app/orch"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	url  string
	orch *orch.Orchestrator
	hub  *Hub
}

func newTestServer(t *testing.T, opts Options, limiter *RoomRateLimiter) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	o := orch.New(app.NewSignalingRelay(app.NewRoomRegistry(), app.RelayOptions{}), nil)
	hub := NewHub(app.SimplePolicy{Action: app.KickMember})
	ctl := NewSignalWSController(o, hub, limiter, opts)

	r := gin.New()
	r.GET("/ws", func(c *gin.Context) { ctl.HandleSignal(ctx, c) })
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	return &testServer{
		url:  "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws",
		orch: o,
		hub:  hub,
	}
}

func (s *testServer) dial(t *testing.T, room, conn string) *websocket.Conn {
	t.Helper()
	ws, resp, err := websocket.DefaultDialer.Dial(s.url+"?room="+room+"&connection="+conn, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = ws.Close() })

	welcome := read(t, ws)
	require.Equal(t, "welcome", welcome["type"])
	require.Equal(t, conn, welcome["connectionId"])
	return ws
}

func read(t *testing.T, ws *websocket.Conn) map[string]any {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(3*time.Second)))
	var msg map[string]any
	require.NoError(t, ws.ReadJSON(&msg))
	return msg
}

func send(t *testing.T, ws *websocket.Conn, msg map[string]any) {
	t.Helper()
	require.NoError(t, ws.WriteJSON(msg))
}

// barrier sends a ping and waits for the pong, so every earlier frame from ws
// has been handled by the server.
func barrier(t *testing.T, ws *websocket.Conn) {
	t.Helper()
	send(t, ws, map[string]any{"type": "ping"})
	require.Equal(t, "pong", read(t, ws)["type"])
}

func TestSignal_BroadcastSession(t *testing.T) {
	s := newTestServer(t, Options{AutoCreateRooms: true}, nil)

	s1 := s.dial(t, "r1", "s1")
	v1 := s.dial(t, "r1", "v1")

	send(t, s1, map[string]any{"type": "join", "isSender": true})
	barrier(t, s1)
	send(t, v1, map[string]any{"type": "join"})
	barrier(t, v1)

	send(t, s1, map[string]any{"type": "offer", "data": map[string]any{"sdp": "O1"}})
	got := read(t, v1)
	assert.Equal(t, "offer", got["type"])
	assert.Equal(t, "v1", got["connectionId"])
	assert.Equal(t, "s1", got["senderId"])
	assert.NotEmpty(t, got["offerId"])
	assert.Equal(t, "O1", got["data"].(map[string]any)["sdp"])

	v2 := s.dial(t, "r1", "v2")
	send(t, v2, map[string]any{"type": "join"})
	got = read(t, v2)
	assert.Equal(t, "offer", got["type"], "late joiner catches up")
	assert.Equal(t, "O1", got["data"].(map[string]any)["sdp"])

	send(t, v2, map[string]any{"type": "ice_candidate", "data": map[string]any{"candidate": "c-v2"}})
	got = read(t, s1)
	assert.Equal(t, "ice_candidate", got["type"])
	assert.Equal(t, "v2", got["senderId"])

	send(t, v1, map[string]any{"type": "answer", "data": map[string]any{"sdp": "A1"}})
	barrier(t, v1)
	answer, ok := s.orch.Answer("v1")
	assert.True(t, ok)
	assert.Equal(t, "A1", answer)

	require.NoError(t, s1.Close())
	for _, ws := range []*websocket.Conn{v1, v2} {
		got = read(t, ws)
		assert.Equal(t, "leave", got["type"])
		data := got["data"].(map[string]any)
		assert.Equal(t, "s1", data["connectionId"])
		assert.Equal(t, float64(2), data["connectionCount"])
	}
}

func TestSignal_SocketSpeaksForItsOwnID(t *testing.T) {
	s := newTestServer(t, Options{AutoCreateRooms: true}, nil)
	s1 := s.dial(t, "r1", "s1")

	send(t, s1, map[string]any{"type": "join", "connectionId": "someone-else", "isSender": true})
	barrier(t, s1)

	room, ok := s.orch.Room("r1")
	require.True(t, ok)
	assert.Equal(t, "s1", room.SenderID)
}

func TestSignal_ErrorsAreReported(t *testing.T) {
	s := newTestServer(t, Options{AutoCreateRooms: true}, nil)
	ws := s.dial(t, "r1", "s1")

	send(t, ws, map[string]any{"type": "offer"})
	got := read(t, ws)
	assert.Equal(t, "error", got["type"])
	assert.Equal(t, "missing_field", got["error"])
	assert.Equal(t, "data.sdp", got["field"])

	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte("{not json")))
	got = read(t, ws)
	assert.Equal(t, "bad_payload", got["error"])

	send(t, ws, map[string]any{"type": "renegotiate"})
	barrier(t, ws)
}

func TestSignal_RateLimited(t *testing.T) {
	s := newTestServer(t, Options{AutoCreateRooms: true}, NewRoomRateLimiter(2, time.Minute))
	ws := s.dial(t, "r1", "v1")

	for i := 0; i < 2; i++ {
		send(t, ws, map[string]any{"type": "answer", "data": map[string]any{"sdp": "A"}})
	}
	barrier(t, ws)

	send(t, ws, map[string]any{"type": "answer", "data": map[string]any{"sdp": "A"}})
	got := read(t, ws)
	assert.Equal(t, "rate_limited", got["error"])
}

func TestSignal_HandshakeRejections(t *testing.T) {
	s := newTestServer(t, Options{}, nil)

	_, resp, err := websocket.DefaultDialer.Dial(s.url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	_, resp, err = websocket.DefaultDialer.Dial(s.url+"?room=nope", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	s.orch.CreateRoom("r1")
	s.dial(t, "r1", "c1")
	_, resp, err = websocket.DefaultDialer.Dial(s.url+"?room=r1&connection=c1", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestSignal_LeaveThenCloseNotifiesOnce(t *testing.T) {
	s := newTestServer(t, Options{AutoCreateRooms: true}, nil)
	s1 := s.dial(t, "r1", "s1")
	v1 := s.dial(t, "r1", "v1")

	send(t, v1, map[string]any{"type": "join"})
	barrier(t, v1)
	send(t, s1, map[string]any{"type": "join", "isSender": true})
	barrier(t, s1)

	send(t, v1, map[string]any{"type": "leave"})
	got := read(t, s1)
	assert.Equal(t, "leave", got["type"])
	assert.Equal(t, float64(1), got["data"].(map[string]any)["connectionCount"])

	require.NoError(t, v1.Close())
	// Nothing else is pending for s1; the next frame must be our pong.
	barrier(t, s1)
}
