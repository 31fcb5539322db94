package ports

import "context"

// CompletionTurn is one entry of the rolling conversation window handed to the
// completion service.
type CompletionTurn struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// CompletionRequest carries the prompt, the rolling history window and the
// opaque channel metadata agent nodes may need (e.g. referral data).
type CompletionRequest struct {
	System   string
	Input    string
	History  []CompletionTurn
	Agent    bool // enables multi-turn tool use
	Metadata map[string]any
}

// CompletionResult is the service's answer. Agent completions may decide to
// end or transfer the conversation themselves.
type CompletionResult struct {
	Text     string
	End      bool
	Transfer *CompletionTransfer
}

// CompletionTransfer mirrors the transfer decision of an agent completion.
type CompletionTransfer struct {
	Queue   string
	Advisor string
	FlowID  string
}

// Completer is the contract to the external AI-completion service.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (CompletionResult, error)
}
