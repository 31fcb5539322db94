package runtime

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aretw0/espalier/pkg/domain"
)

func TestMatchOption_Priority(t *testing.T) {
	options := []domain.Option{
		{ID: "opt_yes", Label: "Yes, please", Value: "y", Target: "confirmed"},
		{ID: "opt_no", Label: "No thanks", Value: "n", Target: "declined"},
	}

	tests := []struct {
		name   string
		ev     *domain.InboundEvent
		wantID string
		ok     bool
	}{
		{"payload equals value", &domain.InboundEvent{Type: domain.EventButton, Payload: "y"}, "opt_yes", true},
		{"payload equals id", &domain.InboundEvent{Type: domain.EventButton, Payload: "opt_no"}, "opt_no", true},
		{"text equals value", &domain.InboundEvent{Type: domain.EventText, Text: "n"}, "opt_no", true},
		{"text equals id", &domain.InboundEvent{Type: domain.EventText, Text: "opt_yes"}, "opt_yes", true},
		{"text equals label case-insensitive", &domain.InboundEvent{Type: domain.EventText, Text: "yes, PLEASE"}, "opt_yes", true},
		{"text equals 1-based index", &domain.InboundEvent{Type: domain.EventText, Text: "2"}, "opt_no", true},
		{"text with whitespace", &domain.InboundEvent{Type: domain.EventText, Text: "  Y  "}, "opt_yes", true},
		{"button falls back to title", &domain.InboundEvent{Type: domain.EventButton, Payload: "unknown", Title: "No thanks"}, "opt_no", true},
		{"no match", &domain.InboundEvent{Type: domain.EventText, Text: "maybe"}, "", false},
		{"index out of range", &domain.InboundEvent{Type: domain.EventText, Text: "3"}, "", false},
		{"nil event", nil, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := MatchOption(tt.ev, options)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.wantID, got.ID)
		})
	}
}

func TestMatchOption_PayloadBeatsText(t *testing.T) {
	options := []domain.Option{
		{ID: "a", Label: "Alpha", Value: "alpha", Target: "t_a"},
		{ID: "b", Label: "Beta", Value: "beta", Target: "t_b"},
	}
	// The payload names one option, the title another. Payload wins.
	ev := &domain.InboundEvent{Type: domain.EventButton, Payload: "beta", Title: "Alpha"}
	got, ok := MatchOption(ev, options)
	assert.True(t, ok)
	assert.Equal(t, "b", got.ID)
}
