package services

import (
	"fmt"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/custodia-labs/ragkit/internal/core/domain"
	"github.com/custodia-labs/ragkit/internal/core/ports/driving"
)

// Ensure SessionRegistry implements the interface.
var _ driving.SessionRegistry = (*SessionRegistry)(nil)

// SessionRegistry holds conversations by handle. When full, the least
// recently used session is evicted.
type SessionRegistry struct {
	sessions *lru.Cache[string, *Conversation]
	factory  func() *Conversation
}

// NewSessionRegistry creates a registry of at most size sessions, each made
// by factory.
func NewSessionRegistry(size int, factory func() *Conversation) (*SessionRegistry, error) {
	if size <= 0 {
		return nil, domain.NewConfigurationError("conversation.max_sessions", "must be positive, got %d", size)
	}
	cache, err := lru.New[string, *Conversation](size)
	if err != nil {
		return nil, fmt.Errorf("create session cache: %w", err)
	}
	return &SessionRegistry{sessions: cache, factory: factory}, nil
}

// Open creates a session and returns its handle.
func (r *SessionRegistry) Open() string {
	handle := uuid.NewString()
	r.sessions.Add(handle, r.factory())
	return handle
}

// Get returns the session for handle.
func (r *SessionRegistry) Get(handle string) (driving.ConversationService, error) {
	conv, ok := r.sessions.Get(handle)
	if !ok {
		return nil, fmt.Errorf("session %s: %w", handle, domain.ErrNotFound)
	}
	return conv, nil
}

// Close discards a session.
func (r *SessionRegistry) Close(handle string) {
	r.sessions.Remove(handle)
}

// Len returns the number of live sessions.
func (r *SessionRegistry) Len() int {
	return r.sessions.Len()
}
