package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/aretw0/espalier/pkg/domain"
)

// Provider implements ports.FlowProvider over an in-memory registry.
// Handy for tests and embedded use.
type Provider struct {
	flows map[string]*domain.Flow
	mu    sync.RWMutex
}

// NewProvider creates a provider pre-registered with the given flows.
func NewProvider(flows ...*domain.Flow) (*Provider, error) {
	p := &Provider{flows: make(map[string]*domain.Flow)}
	for _, f := range flows {
		if err := p.Register(f); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Register adds or replaces a flow.
func (p *Provider) Register(flow *domain.Flow) error {
	if flow == nil || flow.ID == "" {
		return fmt.Errorf("flow missing id")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.flows[flow.ID] = flow
	return nil
}

// GetFlow retrieves a flow by id.
func (p *Provider) GetFlow(ctx context.Context, id string) (*domain.Flow, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	flow, ok := p.flows[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrFlowNotFound, id)
	}
	return flow, nil
}

// ListFlows returns the ids of all registered flows.
func (p *Provider) ListFlows(ctx context.Context) ([]string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	ids := make([]string, 0, len(p.flows))
	for id := range p.flows {
		ids = append(ids, id)
	}
	return ids, nil
}
