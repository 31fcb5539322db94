package ports

import (
	"context"

	"github.com/aretw0/espalier/pkg/domain"
)

// FlowProvider resolves flow definitions. The graph storage/authoring backend
// lives behind this interface; the engine only reads.
type FlowProvider interface {
	// GetFlow returns the flow for the given id, or domain.ErrFlowNotFound.
	GetFlow(ctx context.Context, flowID string) (*domain.Flow, error)
}

// FlowLister is an optional extension of FlowProvider for backends that can
// enumerate their flows.
type FlowLister interface {
	ListFlows(ctx context.Context) ([]string, error)
}
