package server

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/michaelbrown/rentdesk/internal/chat"
	"github.com/michaelbrown/rentdesk/internal/directory"
	"github.com/michaelbrown/rentdesk/internal/llm"
	"github.com/michaelbrown/rentdesk/internal/presets"
	"github.com/michaelbrown/rentdesk/internal/tools"
)

// ActiveSession is one in-memory conversation: an orchestrator plus the tool
// session that tracks the operator's current customer. Sessions live only as
// long as the process.
type ActiveSession struct {
	ID        string
	CreatedAt time.Time
	Orch      *chat.Orchestrator
	Tools     *tools.Session

	mu     sync.Mutex // one turn at a time per session
	cancel context.CancelFunc

	updateMu        sync.Mutex
	onBookingUpdate func(presets.PartialBookingData)
}

// BeginTurn derives a cancellable context for one turn and remembers its
// cancel func so CancelTurn can reach it.
func (as *ActiveSession) BeginTurn(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	as.updateMu.Lock()
	as.cancel = cancel
	as.updateMu.Unlock()
	return ctx, func() {
		cancel()
		as.updateMu.Lock()
		as.cancel = nil
		as.updateMu.Unlock()
	}
}

// CancelTurn interrupts the in-flight turn, if any.
func (as *ActiveSession) CancelTurn() {
	as.updateMu.Lock()
	defer as.updateMu.Unlock()
	if as.cancel != nil {
		as.cancel()
	}
}

// SetBookingUpdateHandler installs the callback for wizard field updates
// produced by the booking tool. Pass nil to detach.
func (as *ActiveSession) SetBookingUpdateHandler(fn func(presets.PartialBookingData)) {
	as.updateMu.Lock()
	as.onBookingUpdate = fn
	as.updateMu.Unlock()
}

func (as *ActiveSession) publishBookingUpdate(data presets.PartialBookingData) {
	as.updateMu.Lock()
	fn := as.onBookingUpdate
	as.updateMu.Unlock()
	if fn != nil {
		fn(data)
	}
}

// SessionManager tracks the process's active sessions.
type SessionManager struct {
	mu       sync.RWMutex
	sessions map[string]*ActiveSession
}

// NewSessionManager creates an empty SessionManager.
func NewSessionManager() *SessionManager {
	return &SessionManager{
		sessions: make(map[string]*ActiveSession),
	}
}

// Create builds a session with its own tool registry and orchestrator. Each
// session gets its own registry because the booking tool's update sink and
// current-customer state are per-session.
func (sm *SessionManager) Create(client *llm.Client, store directory.Store, library *presets.Library, route string, maxTurns int) *ActiveSession {
	as := &ActiveSession{
		ID:        uuid.New().String(),
		CreatedAt: time.Now(),
		Tools:     tools.NewSession(),
	}

	registry := tools.NewRegistry()
	tools.RegisterBackOffice(registry, store, library, as.Tools,
		func(ctx context.Context, data presets.PartialBookingData) error {
			as.publishBookingUpdate(data)
			return nil
		})
	as.Orch = chat.New(client, registry, route, maxTurns)

	sm.mu.Lock()
	sm.sessions[as.ID] = as
	sm.mu.Unlock()
	return as
}

// Get returns a session by ID.
func (sm *SessionManager) Get(sessionID string) (*ActiveSession, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	as, ok := sm.sessions[sessionID]
	return as, ok
}

// List returns all sessions.
func (sm *SessionManager) List() []*ActiveSession {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	out := make([]*ActiveSession, 0, len(sm.sessions))
	for _, as := range sm.sessions {
		out = append(out, as)
	}
	return out
}

// Remove drops a session and cancels any in-flight turn.
func (sm *SessionManager) Remove(sessionID string) bool {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	as, ok := sm.sessions[sessionID]
	if !ok {
		return false
	}
	as.CancelTurn()
	delete(sm.sessions, sessionID)
	return true
}

// CloseAll cancels every session's in-flight work.
func (sm *SessionManager) CloseAll() {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	for id, as := range sm.sessions {
		as.CancelTurn()
		delete(sm.sessions, id)
	}
}
