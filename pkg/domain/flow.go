package domain

// NodeType constants define the control-flow family of a node.
const (
	// NodeTypeMenu marks nodes whose primary job is presenting options.
	NodeTypeMenu = "menu"
	// NodeTypeAction marks generic action nodes (message, webhook, delay, ...).
	NodeTypeAction = "action"
)

// Action kind constants. The kind selects which typed configuration the
// executor decodes from Action.Data.
const (
	ActionStart           = "start"
	ActionMessage         = "message"
	ActionMenu            = "menu"
	ActionButtons         = "buttons"
	ActionAsk             = "ask"
	ActionQuestion        = "question"
	ActionCondition       = "condition"
	ActionValidation      = "validation"
	ActionValidationCRM   = "validation_bitrix"
	ActionScheduler       = "scheduler"
	ActionWebhookOut      = "webhook_out"
	ActionDelay           = "delay"
	ActionTransfer        = "transfer"
	ActionHandoff         = "handoff"
	ActionCRM             = "bitrix_crm"
	ActionAIRag           = "ia_rag"
	ActionAIAgent         = "ia_agent"
	ActionEnd             = "end"
)

// Action describes what a node does: a kind discriminator plus the raw,
// kind-specific configuration payload as authored.
type Action struct {
	Kind string         `json:"kind" yaml:"kind"`
	Data map[string]any `json:"data,omitempty" yaml:"data,omitempty"`
}

// Option is one selectable menu/button item.
type Option struct {
	ID     string `json:"id" yaml:"id"`
	Label  string `json:"label" yaml:"label"`
	Value  string `json:"value,omitempty" yaml:"value,omitempty"`
	Target string `json:"target,omitempty" yaml:"target,omitempty"`
}

// Node is one step in the conversation graph.
type Node struct {
	ID     string `json:"id" yaml:"id"`
	Label  string `json:"label,omitempty" yaml:"label,omitempty"`
	Type   string `json:"type" yaml:"type"` // "menu" or "action"
	Action Action `json:"action" yaml:"action"`

	// Options is the ordered list of selectable items for menu/buttons nodes.
	Options []Option `json:"options,omitempty" yaml:"options,omitempty"`

	// Children holds the default successors. Only the first entry is used
	// when an action does not itself choose a branch.
	Children []string `json:"children,omitempty" yaml:"children,omitempty"`
}

// DefaultChild returns the fall-through successor, or "" when the node is a sink.
func (n *Node) DefaultChild() string {
	if n == nil || len(n.Children) == 0 {
		return ""
	}
	return n.Children[0]
}

// Flow is the authored conversation definition: an immutable node map plus a
// designated root. The engine only ever reads it.
type Flow struct {
	ID     string           `json:"id" yaml:"id"`
	Name   string           `json:"name,omitempty" yaml:"name,omitempty"`
	RootID string           `json:"root" yaml:"root"`
	Nodes  map[string]*Node `json:"nodes" yaml:"nodes"`
}

// Node looks up a node by id. Returns nil when the id does not resolve, which
// callers treat as "fall through to the default successor".
func (f *Flow) Node(id string) *Node {
	if f == nil || id == "" {
		return nil
	}
	return f.Nodes[id]
}

// Root returns the entry node of the flow.
func (f *Flow) Root() *Node {
	return f.Node(f.RootID)
}
