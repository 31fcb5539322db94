// Package tests holds reusable contract suites for port implementations.
package tests

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/ports"
)

// RunSessionStoreContract verifies that a SessionStore implementation adheres
// to the interface contract. Every adapter test runs this suite.
func RunSessionStoreContract(t *testing.T, store ports.SessionStore) {
	ctx := context.Background()
	sessionID := "contract-session-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		session := domain.NewSession(sessionID, "flow-1", "whatsapp", "contact-1", "start", time.Now().UTC())
		session.SetVariable("name", "Maria")
		session.AwaitingNodeID = "ask_name"

		require.NoError(t, store.Save(ctx, session))

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		assert.Equal(t, session.CurrentNodeID, loaded.CurrentNodeID)
		assert.Equal(t, "ask_name", loaded.AwaitingNodeID)
		assert.Equal(t, "Maria", loaded.Variables["name"])
	})

	t.Run("Read Your Writes", func(t *testing.T) {
		session := domain.NewSession(sessionID, "flow-1", "whatsapp", "contact-1", "start", time.Now().UTC())
		require.NoError(t, store.Save(ctx, session))

		session.CurrentNodeID = "mid"
		require.NoError(t, store.Save(ctx, session))

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		assert.Equal(t, "mid", loaded.CurrentNodeID)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "missing-"+sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, domain.NewSession(sessionID, "flow-1", "", "", "start", time.Now().UTC())))
		require.NoError(t, store.Delete(ctx, sessionID))

		_, err := store.Load(ctx, sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)

		// Deleting an already-deleted session must not fail.
		assert.NoError(t, store.Delete(ctx, sessionID))
	})

	t.Run("List", func(t *testing.T) {
		id1 := sessionID + "-1"
		id2 := sessionID + "-2"
		require.NoError(t, store.Save(ctx, domain.NewSession(id1, "flow-1", "", "", "start", time.Now().UTC())))
		require.NoError(t, store.Save(ctx, domain.NewSession(id2, "flow-1", "", "", "start", time.Now().UTC())))
		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		ids, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, id1)
		assert.Contains(t, ids, id2)
	})
}
