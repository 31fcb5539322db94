package domain

// EventType discriminates the inbound event union.
type EventType string

const (
	// EventText is a plain text message from the contact.
	EventText EventType = "text"
	// EventButton is a button/option selection carrying a payload.
	EventButton EventType = "button"
	// EventMedia is an image/audio/document message.
	EventMedia EventType = "media"
	// EventResume is the reserved sentinel delivered by the timer facility
	// when a scheduled delay elapses. It is never produced by a contact.
	EventResume EventType = "resume"
	// EventUnknown covers channel payloads the adapter could not classify.
	EventUnknown EventType = "unknown"
)

// InboundEvent is the engine's generic view of one incoming message.
type InboundEvent struct {
	Type EventType `json:"type"`

	// Text payloads.
	Text string `json:"text,omitempty"`

	// Button payloads: the matchable value plus an optional display title.
	Payload string `json:"payload,omitempty"`
	Title   string `json:"title,omitempty"`

	// Media payloads.
	MediaURL  string `json:"media_url,omitempty"`
	MediaType string `json:"media_type,omitempty"`
	Caption   string `json:"caption,omitempty"`

	// TimerID identifies the originating timer for resume events.
	TimerID string `json:"timer_id,omitempty"`

	// Raw is an opaque passthrough of the channel-specific payload for node
	// kinds that need provider detail (e.g. referral metadata for an agent).
	Raw map[string]any `json:"raw,omitempty"`
}

// TextEvent builds a plain text event.
func TextEvent(text string) *InboundEvent {
	return &InboundEvent{Type: EventText, Text: text}
}

// ButtonEvent builds an option-selection event.
func ButtonEvent(payload, title string) *InboundEvent {
	return &InboundEvent{Type: EventButton, Payload: payload, Title: title}
}

// MediaEvent builds a media event.
func MediaEvent(url, mediaType, caption string) *InboundEvent {
	return &InboundEvent{Type: EventMedia, MediaURL: url, MediaType: mediaType, Caption: caption}
}

// ResumeEvent builds the timer-resumption sentinel.
func ResumeEvent(timerID string) *InboundEvent {
	return &InboundEvent{Type: EventResume, TimerID: timerID}
}

// IsResume reports whether the event is the timer sentinel.
func (e *InboundEvent) IsResume() bool {
	return e != nil && e.Type == EventResume
}

// DisplayText returns the most human-readable rendition of the event, used for
// option matching and history records.
func (e *InboundEvent) DisplayText() string {
	if e == nil {
		return ""
	}
	switch e.Type {
	case EventText:
		return e.Text
	case EventButton:
		if e.Title != "" {
			return e.Title
		}
		return e.Payload
	case EventMedia:
		return e.Caption
	}
	return ""
}
