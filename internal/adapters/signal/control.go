package signal

import (
	"errors"

	"github.com/dkeye/castrelay/internal/app"
)

// Envelopes answered by the transport itself, never seen by the relay.
const (
	controlPing    = "ping"
	controlPong    = "pong"
	controlWelcome = "welcome"
	controlError   = "error"
)

type controlMsg struct {
	Type         string `json:"type"`
	ConnectionID string `json:"connectionId,omitempty"`
	Room         string `json:"room,omitempty"`
	Error        string `json:"error,omitempty"`
	Field        string `json:"field,omitempty"`
}

func (ctl *SignalWSController) sendWelcome(conn *WsSignalConn) {
	ctl.sendJSON(conn, controlMsg{Type: controlWelcome, ConnectionID: conn.id, Room: conn.room})
}

func (ctl *SignalWSController) handlePing(conn *WsSignalConn) {
	ctl.sendJSON(conn, controlMsg{Type: controlPong})
}

func (ctl *SignalWSController) sendError(conn *WsSignalConn, reason, field string) {
	ctl.sendJSON(conn, controlMsg{Type: controlError, Error: reason, Field: field})
}

// sendFailure reports a rejected envelope back to its submitter.
func (ctl *SignalWSController) sendFailure(conn *WsSignalConn, err error) {
	var mf *app.MissingFieldError
	switch {
	case errors.As(err, &mf):
		ctl.sendError(conn, "missing_field", mf.Field)
	case errors.Is(err, app.ErrRoleMismatch):
		ctl.sendError(conn, "not_sender", "")
	default:
		ctl.sendError(conn, err.Error(), "")
	}
}
