package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/michaelbrown/rentdesk/internal/chat"
	"github.com/michaelbrown/rentdesk/internal/llm"
	"github.com/michaelbrown/rentdesk/internal/presets"
	"github.com/michaelbrown/rentdesk/internal/tools"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // served behind the office LAN
	},
}

// wsIncoming is a message from the UI.
type wsIncoming struct {
	Type    string `json:"type"` // message, cancel, route
	Content string `json:"content,omitempty"`
	Route   string `json:"route,omitempty"`
}

// wsOutgoing is a message to the UI.
type wsOutgoing struct {
	Type    string                     `json:"type"`
	Content string                     `json:"content,omitempty"`
	Name    string                     `json:"name,omitempty"`
	Args    string                     `json:"args,omitempty"`
	Booking *presets.PartialBookingData `json:"booking,omitempty"`
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	as, ok := s.sessions.Get(chi.URLParam(r, "id"))
	if !ok {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	// Writes to the connection come from the read loop and from turn
	// callbacks running in another goroutine.
	var wsMu sync.Mutex
	send := func(msg wsOutgoing) {
		wsMu.Lock()
		defer wsMu.Unlock()
		wsWriteJSON(conn, msg)
	}

	as.SetBookingUpdateHandler(func(data presets.PartialBookingData) {
		d := data
		send(wsOutgoing{Type: "booking_update", Booking: &d})
	})
	defer as.SetBookingUpdateHandler(nil)

	for {
		var msg wsIncoming
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return
			}
			log.Printf("websocket read error: %v", err)
			return
		}

		switch msg.Type {
		case "message":
			if msg.Content == "" {
				send(wsOutgoing{Type: "error", Content: "empty message"})
				continue
			}
			// The read loop stays free to deliver a cancel while the turn
			// runs.
			go s.runWebSocketTurn(as, send, msg.Content)

		case "cancel":
			as.CancelTurn()

		case "route":
			as.Orch.SetRoute(msg.Route)

		default:
			send(wsOutgoing{Type: "error", Content: "invalid message type"})
		}
	}
}

func (s *Server) runWebSocketTurn(as *ActiveSession, send func(wsOutgoing), content string) {
	as.mu.Lock()
	defer as.mu.Unlock()

	// Not tied to the websocket request context: the turn survives until it
	// finishes or is cancelled explicitly.
	ctx, done := as.BeginTurn(context.Background())
	defer done()

	as.Orch.OnTextDelta = func(delta string) {
		send(wsOutgoing{Type: "text_delta", Content: delta})
	}
	as.Orch.OnToolCall = func(name, arguments string) {
		send(wsOutgoing{Type: "tool_call", Name: name, Args: arguments})
	}
	as.Orch.OnToolResult = func(result tools.Result) {
		send(wsOutgoing{Type: "tool_result", Name: result.Name, Content: result.Content()})
	}

	err := as.Orch.SubmitUserTurn(ctx, content)
	switch {
	case err == nil:
		send(wsOutgoing{Type: "done"})
	case errors.Is(err, context.Canceled):
		send(wsOutgoing{Type: "notice", Content: "Interrupted. The partial answer was kept."})
	case errors.Is(err, llm.ErrRateLimited):
		send(wsOutgoing{Type: "notice", Content: "The assistant is rate limited right now. Your message was not consumed; try again shortly."})
	case errors.Is(err, llm.ErrPaymentRequired):
		send(wsOutgoing{Type: "notice", Content: "The assistant account is out of credit. Your message was not consumed."})
	case errors.Is(err, chat.ErrBusy):
		send(wsOutgoing{Type: "error", Content: "a turn is already in progress"})
	default:
		send(wsOutgoing{Type: "error", Content: err.Error()})
	}
}

func wsWriteJSON(conn *websocket.Conn, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("websocket marshal error: %v", err)
		return
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		log.Printf("websocket write error: %v", err)
	}
}
