package tools

import "sync"

// Session holds conversation-scoped tool state. Resolving a customer via
// search makes them the "current customer" so later tool calls in the same
// conversation can reuse their rental history.
type Session struct {
	mu                sync.Mutex
	currentCustomerID string
}

// NewSession creates an empty session.
func NewSession() *Session {
	return &Session{}
}

// CurrentCustomerID returns the resolved customer id, or "" if none.
func (s *Session) CurrentCustomerID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentCustomerID
}

// SetCurrentCustomer records the customer the conversation is about.
func (s *Session) SetCurrentCustomer(id string) {
	s.mu.Lock()
	s.currentCustomerID = id
	s.mu.Unlock()
}

// Reset clears all session state.
func (s *Session) Reset() {
	s.mu.Lock()
	s.currentCustomerID = ""
	s.mu.Unlock()
}
