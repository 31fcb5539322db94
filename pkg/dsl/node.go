package dsl

import "github.com/aretw0/espalier/pkg/domain"

// NodeBuilder provides a fluent API for configuring a node.
type NodeBuilder struct {
	node    domain.Node
	builder *Builder
}

// Label sets a human-readable label on the node.
func (n *NodeBuilder) Label(label string) *NodeBuilder {
	n.node.Label = label
	return n
}

// Say sends a text message and continues.
func (n *NodeBuilder) Say(text string) *NodeBuilder {
	n.node.Action = domain.Action{Kind: domain.ActionMessage, Data: map[string]any{"text": text}}
	return n
}

// Ask prompts for free text and saves the answer to the variable.
func (n *NodeBuilder) Ask(text, variable string) *NodeBuilder {
	n.node.Action = domain.Action{Kind: domain.ActionAsk, Data: map[string]any{"text": text, "variable": variable}}
	return n
}

// Menu presents options as a numbered list.
func (n *NodeBuilder) Menu(text string) *NodeBuilder {
	n.node.Type = domain.NodeTypeMenu
	n.node.Action = domain.Action{Kind: domain.ActionMenu, Data: map[string]any{"text": text}}
	return n
}

// Buttons presents options as interactive buttons.
func (n *NodeBuilder) Buttons(text string) *NodeBuilder {
	n.node.Type = domain.NodeTypeMenu
	n.node.Action = domain.Action{Kind: domain.ActionButtons, Data: map[string]any{"text": text}}
	return n
}

// Option appends one selectable item. Target may be empty to fall through to
// the default successor.
func (n *NodeBuilder) Option(id, label, value, target string) *NodeBuilder {
	n.node.Options = append(n.node.Options, domain.Option{ID: id, Label: label, Value: value, Target: target})
	return n
}

// Delay suspends the conversation for the given number of seconds.
func (n *NodeBuilder) Delay(seconds int) *NodeBuilder {
	n.node.Action = domain.Action{Kind: domain.ActionDelay, Data: map[string]any{"seconds": seconds}}
	return n
}

// Webhook calls an external HTTP endpoint.
func (n *NodeBuilder) Webhook(method, url string, successTarget, errorTarget string) *NodeBuilder {
	n.node.Action = domain.Action{Kind: domain.ActionWebhookOut, Data: map[string]any{
		"method":         method,
		"url":            url,
		"success_target": successTarget,
		"error_target":   errorTarget,
	}}
	return n
}

// Transfer hands the conversation to a human queue, keeping the session open.
func (n *NodeBuilder) Transfer(queue, text string) *NodeBuilder {
	n.node.Action = domain.Action{Kind: domain.ActionTransfer, Data: map[string]any{"queue": queue, "text": text}}
	return n
}

// End terminates the conversation with an optional goodbye message.
func (n *NodeBuilder) End(text string) *NodeBuilder {
	data := map[string]any{}
	if text != "" {
		data["text"] = text
	}
	n.node.Action = domain.Action{Kind: domain.ActionEnd, Data: data}
	return n
}

// Action configures the node directly with a raw kind and data payload, for
// kinds without a dedicated helper (conditions, validations, CRM, AI).
func (n *NodeBuilder) Action(kind string, data map[string]any) *NodeBuilder {
	n.node.Action = domain.Action{Kind: kind, Data: data}
	return n
}

// Go sets the default successor.
func (n *NodeBuilder) Go(target string) *NodeBuilder {
	n.node.Children = []string{target}
	return n
}

// Build returns the underlying domain.Node.
// This is primarily used by the Builder, but exposed for advanced usage.
func (n *NodeBuilder) Build() domain.Node {
	return n.node
}
