package domain

// DirectiveType discriminates the outbound directive union.
type DirectiveType string

const (
	DirectiveText    DirectiveType = "text"
	DirectiveButtons DirectiveType = "buttons"
	DirectiveMenu    DirectiveType = "menu"
	DirectiveMedia   DirectiveType = "media"
	// DirectiveSystem is a diagnostic/control directive. It is never shown to
	// the contact; hosts use it for transfer signaling and error reporting.
	DirectiveSystem DirectiveType = "system"
)

// System directive levels.
const (
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

// Directive is one outbound instruction the engine hands back to the caller
// for delivery on the channel.
type Directive struct {
	Type DirectiveType `json:"type"`

	// Text / buttons / menu payloads.
	Text    string   `json:"text,omitempty"`
	Options []Option `json:"options,omitempty"`

	// Interactive distinguishes native interactive menus from their plain
	// numbered-text fallback.
	Interactive bool `json:"interactive,omitempty"`

	// OverflowTarget names the option shown when the channel cannot render
	// the full button list.
	OverflowTarget string `json:"overflow_target,omitempty"`

	// Media payloads.
	MediaURL  string `json:"media_url,omitempty"`
	MediaType string `json:"media_type,omitempty"`
	Caption   string `json:"caption,omitempty"`

	// System payloads.
	Level   string         `json:"level,omitempty"`
	Message string         `json:"message,omitempty"`
	Meta    map[string]any `json:"meta,omitempty"`
}

// TextDirective builds a plain text directive.
func TextDirective(text string) Directive {
	return Directive{Type: DirectiveText, Text: text}
}

// ButtonsDirective builds an interactive buttons directive.
func ButtonsDirective(text string, options []Option, overflowTarget string) Directive {
	return Directive{Type: DirectiveButtons, Text: text, Options: options, Interactive: true, OverflowTarget: overflowTarget}
}

// MenuDirective builds a numbered menu directive.
func MenuDirective(text string, options []Option, interactive bool) Directive {
	return Directive{Type: DirectiveMenu, Text: text, Options: options, Interactive: interactive}
}

// MediaDirective builds a media directive.
func MediaDirective(url, mediaType, caption string) Directive {
	return Directive{Type: DirectiveMedia, MediaURL: url, MediaType: mediaType, Caption: caption}
}

// SystemDirective builds a diagnostic directive.
func SystemDirective(level, message string, meta map[string]any) Directive {
	return Directive{Type: DirectiveSystem, Level: level, Message: message, Meta: meta}
}

// IsUserVisible reports whether the directive should reach the contact.
func (d Directive) IsUserVisible() bool {
	return d.Type != DirectiveSystem
}
