package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/michaelbrown/rentdesk/internal/chat"
	"github.com/michaelbrown/rentdesk/internal/llm"
)

// --- JSON helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// --- Session handlers ---

type sessionInfo struct {
	ID              string    `json:"id"`
	CreatedAt       time.Time `json:"created_at"`
	State           string    `json:"state"`
	MessageCount    int       `json:"message_count"`
	CurrentCustomer string    `json:"current_customer,omitempty"`
}

func sessionToInfo(as *ActiveSession) sessionInfo {
	return sessionInfo{
		ID:              as.ID,
		CreatedAt:       as.CreatedAt,
		State:           as.Orch.State().String(),
		MessageCount:    len(as.Orch.Messages()),
		CurrentCustomer: as.Tools.CurrentCustomerID(),
	}
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	active := s.sessions.List()
	sort.Slice(active, func(i, j int) bool {
		return active[i].CreatedAt.Before(active[j].CreatedAt)
	})

	infos := make([]sessionInfo, len(active))
	for i, as := range active {
		infos[i] = sessionToInfo(as)
	}
	writeJSON(w, http.StatusOK, infos)
}

type createSessionRequest struct {
	Route string `json:"route"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	// An empty body means all defaults.
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	route := req.Route
	if route == "" {
		route = s.cfg.Chat.DefaultRoute
	}

	as := s.sessions.Create(s.client, s.store, s.library, route, s.cfg.Chat.MaxTurns)
	writeJSON(w, http.StatusCreated, sessionToInfo(as))
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	as, ok := s.sessions.Get(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	writeJSON(w, http.StatusOK, sessionToInfo(as))
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if !s.sessions.Remove(chi.URLParam(r, "id")) {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleResetSession clears the conversation and the current-customer
// selection. Resets are full or nothing.
func (s *Server) handleResetSession(w http.ResponseWriter, r *http.Request) {
	as, ok := s.sessions.Get(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	if err := as.Orch.Reset(); err != nil {
		if errors.Is(err, chat.ErrBusy) {
			writeError(w, http.StatusConflict, "a turn is in progress")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	as.Tools.Reset()
	writeJSON(w, http.StatusOK, sessionToInfo(as))
}

// --- Message handlers ---

func (s *Server) handleGetMessages(w http.ResponseWriter, r *http.Request) {
	as, ok := s.sessions.Get(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	messages := as.Orch.Messages()
	if messages == nil {
		messages = []llm.Message{}
	}
	writeJSON(w, http.StatusOK, messages)
}

// --- Preset handlers ---

func (s *Server) handleListPresets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"types": s.library.Types()})
}
