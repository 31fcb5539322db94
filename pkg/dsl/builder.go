package dsl

import (
	"fmt"

	"github.com/aretw0/espalier/pkg/domain"
)

// Builder manages the flow construction.
type Builder struct {
	flowID string
	name   string
	rootID string
	order  []string
	nodes  map[string]*NodeBuilder
}

// New creates a new flow builder. The first node added becomes the root
// unless Root is called explicitly.
func New(flowID string) *Builder {
	return &Builder{
		flowID: flowID,
		nodes:  make(map[string]*NodeBuilder),
	}
}

// Name sets the human-readable flow name.
func (b *Builder) Name(name string) *Builder {
	b.name = name
	return b
}

// Root designates the entry node.
func (b *Builder) Root(id string) *Builder {
	b.rootID = id
	return b
}

// Add creates a new node in the flow.
// If the node already exists, it returns the existing builder.
func (b *Builder) Add(id string) *NodeBuilder {
	if nb, ok := b.nodes[id]; ok {
		return nb
	}
	nb := &NodeBuilder{
		node: domain.Node{
			ID:   id,
			Type: domain.NodeTypeAction,
		},
		builder: b,
	}
	b.nodes[id] = nb
	b.order = append(b.order, id)
	if b.rootID == "" {
		b.rootID = id
	}
	return nb
}

// Build compiles the flow into a domain.Flow.
func (b *Builder) Build() (*domain.Flow, error) {
	if b.flowID == "" {
		return nil, fmt.Errorf("flow id is required")
	}
	if b.rootID == "" {
		return nil, fmt.Errorf("flow %q has no nodes", b.flowID)
	}
	if _, ok := b.nodes[b.rootID]; !ok {
		return nil, fmt.Errorf("root node %q does not exist", b.rootID)
	}

	nodes := make(map[string]*domain.Node, len(b.nodes))
	for _, id := range b.order {
		node := b.nodes[id].node
		nodes[id] = &node
	}

	return &domain.Flow{
		ID:     b.flowID,
		Name:   b.name,
		RootID: b.rootID,
		Nodes:  nodes,
	}, nil
}
