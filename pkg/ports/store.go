package ports

import (
	"context"

	"github.com/aretw0/espalier/pkg/domain"
)

// SessionStore persists session state, enabling stop-and-resume conversations.
// Implementations must provide read-your-writes consistency per session id.
type SessionStore interface {
	// Save persists the session under its id.
	Save(ctx context.Context, session *domain.Session) error

	// Load retrieves a session by id.
	// Returns domain.ErrSessionNotFound if the session does not exist.
	Load(ctx context.Context, sessionID string) (*domain.Session, error)

	// Delete removes the session. Deleting a missing session is not an error.
	Delete(ctx context.Context, sessionID string) error

	// List returns the ids of all stored sessions.
	List(ctx context.Context) ([]string, error)
}
