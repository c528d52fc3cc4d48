package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Action is a control message from a websocket client.
type Action struct {
	Action     string  `json:"action"`
	Multiplier float64 `json:"multiplier"` // set_speed only
}

func (s *Server) handleWebsocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}

	s.hub.Register(conn)
	defer s.hub.Unregister(conn)

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		var action Action
		if err := json.Unmarshal(data, &action); err != nil {
			s.hub.Send(conn, Message{Type: "error", Error: "invalid message: " + err.Error()})
			continue
		}
		if err := s.apply(action); err != nil {
			s.hub.Send(conn, Message{Type: "error", Error: err.Error()})
		}
	}
}

// apply runs a client action against the runner. State changes reach
// clients through the runner subscription.
func (s *Server) apply(a Action) error {
	switch a.Action {
	case "toggle_pause":
		s.runner.TogglePause()
	case "play":
		s.runner.Play()
	case "pause":
		s.runner.Pause()
	case "set_speed":
		return s.runner.SetSpeed(a.Multiplier)
	case "reset":
		return s.runner.Reset()
	case "step":
		return s.runner.StepOnce()
	default:
		return &UnknownActionError{Action: a.Action}
	}
	return nil
}

// UnknownActionError reports a websocket action the server does not handle.
type UnknownActionError struct {
	Action string
}

func (e *UnknownActionError) Error() string {
	return "unknown action: " + e.Action
}
