package memory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/espalier/pkg/adapters/memory"
	"github.com/aretw0/espalier/pkg/domain"
)

func TestProvider_RegisterAndGet(t *testing.T) {
	flow := &domain.Flow{
		ID:     "welcome",
		RootID: "start",
		Nodes: map[string]*domain.Node{
			"start": {ID: "start"},
		},
	}
	provider, err := memory.NewProvider(flow)
	require.NoError(t, err)

	got, err := provider.GetFlow(context.Background(), "welcome")
	require.NoError(t, err)
	assert.Equal(t, "start", got.RootID)
}

func TestProvider_NotFound(t *testing.T) {
	provider, err := memory.NewProvider()
	require.NoError(t, err)

	_, err = provider.GetFlow(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrFlowNotFound)
}

func TestProvider_RejectsMissingID(t *testing.T) {
	_, err := memory.NewProvider(&domain.Flow{})
	assert.Error(t, err)
}
