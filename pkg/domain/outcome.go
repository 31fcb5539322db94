package domain

// TransferSignal describes a hand-to-human decision: which queue, advisor or
// follow-up flow should take over the conversation.
type TransferSignal struct {
	Queue   string `json:"queue,omitempty"`
	Advisor string `json:"advisor,omitempty"`
	FlowID  string `json:"flow_id,omitempty"`
}

// Outcome is the result of evaluating one node once.
type Outcome struct {
	// Directives to emit, in order.
	Directives []Directive

	// NextNodeID is where traversal continues, or "" when the node did not
	// choose a branch (the engine falls through to the default child) or the
	// conversation ended.
	NextNodeID string

	// AwaitingInput marks the node as suspended: the engine must persist the
	// session and stop until the next inbound event.
	AwaitingInput bool

	// Variables is the delta the engine merges into the session bag.
	Variables map[string]string

	// Ended terminates the conversation.
	Ended bool

	// Transfer, when set, signals a hand-off to a human. A transfer with
	// Ended == false keeps the session alive while the human responds.
	Transfer *TransferSignal
}

// Emit appends directives to the outcome and returns it for chaining.
func (o *Outcome) Emit(directives ...Directive) *Outcome {
	o.Directives = append(o.Directives, directives...)
	return o
}

// SetVariable records one entry in the variable delta.
func (o *Outcome) SetVariable(key, value string) {
	if o.Variables == nil {
		o.Variables = make(map[string]string)
	}
	o.Variables[key] = value
}

// Stay suspends on the given node awaiting input.
func Stay(nodeID string) *Outcome {
	return &Outcome{NextNodeID: nodeID, AwaitingInput: true}
}

// Advance continues to the given node with no side effects.
func Advance(nodeID string) *Outcome {
	return &Outcome{NextNodeID: nodeID}
}
