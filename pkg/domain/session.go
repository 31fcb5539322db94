package domain

import "time"

// MaxHistoryRecords bounds the per-session interaction history. The history is
// informational only; the engine never reads it back for control flow.
const MaxHistoryRecords = 1000

// Interaction is one history record: something the contact sent or the bot emitted.
type Interaction struct {
	At        time.Time `json:"at"`
	Direction string    `json:"direction"` // "in" or "out"
	NodeID    string    `json:"node_id,omitempty"`
	Summary   string    `json:"summary,omitempty"`
}

// Session is the durable, resumable state of one in-progress conversation.
// It is the sole mutable entity in the system; the engine owns it exclusively
// for the duration of one invocation.
type Session struct {
	ID        string `json:"id"`
	FlowID    string `json:"flow_id"`
	Channel   string `json:"channel,omitempty"`
	ContactID string `json:"contact_id,omitempty"`

	// CurrentNodeID is where the session logically sits in the graph.
	CurrentNodeID string `json:"current_node_id"`

	// AwaitingNodeID is non-empty exactly when the engine is blocked waiting
	// for the next inbound event at that node.
	AwaitingNodeID string `json:"awaiting_node_id,omitempty"`

	// Variables is the string-keyed bag captured answers, webhook results and
	// CRM lookups are merged into. Last write wins.
	Variables map[string]string `json:"variables,omitempty"`

	// LastText is the most recent inbound text, recorded by the engine so
	// condition/keyword nodes can evaluate it after the event itself has been
	// consumed by a prompt node.
	LastText string `json:"last_text,omitempty"`

	History []Interaction `json:"history,omitempty"`

	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	LastInboundAt time.Time `json:"last_inbound_at,omitempty"`
}

// NewSession creates a clean session positioned at the flow's root.
func NewSession(id, flowID, channel, contactID, rootID string, now time.Time) *Session {
	return &Session{
		ID:            id,
		FlowID:        flowID,
		Channel:       channel,
		ContactID:     contactID,
		CurrentNodeID: rootID,
		Variables:     make(map[string]string),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// SetVariable writes one variable, allocating the bag on first use.
func (s *Session) SetVariable(key, value string) {
	if s.Variables == nil {
		s.Variables = make(map[string]string)
	}
	s.Variables[key] = value
}

// Variable reads one variable with an ok flag.
func (s *Session) Variable(key string) (string, bool) {
	v, ok := s.Variables[key]
	return v, ok
}

// MergeVariables applies a delta with last-write-wins semantics.
func (s *Session) MergeVariables(delta map[string]string) {
	for k, v := range delta {
		s.SetVariable(k, v)
	}
}

// Record appends one interaction, trimming to the most recent MaxHistoryRecords.
func (s *Session) Record(rec Interaction) {
	s.History = append(s.History, rec)
	if overflow := len(s.History) - MaxHistoryRecords; overflow > 0 {
		s.History = s.History[overflow:]
	}
}
