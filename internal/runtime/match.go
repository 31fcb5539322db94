package runtime

import (
	"strconv"
	"strings"

	"github.com/aretw0/espalier/pkg/domain"
)

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// MatchOption resolves an inbound event against an option list.
//
// Priority order: payload equals value, payload equals id, normalized text
// equals value, normalized text equals id, normalized text equals label
// (case-insensitive), normalized text equals the option's 1-based index.
// The first match wins; no match is a distinct, explicit outcome.
func MatchOption(ev *domain.InboundEvent, options []domain.Option) (domain.Option, bool) {
	if ev == nil || len(options) == 0 {
		return domain.Option{}, false
	}

	if payload := strings.TrimSpace(ev.Payload); payload != "" {
		for _, o := range options {
			if o.Value != "" && payload == o.Value {
				return o, true
			}
		}
		for _, o := range options {
			if o.ID != "" && payload == o.ID {
				return o, true
			}
		}
	}

	text := normalize(ev.Text)
	if text == "" {
		text = normalize(ev.Title)
	}
	if text == "" {
		return domain.Option{}, false
	}

	for _, o := range options {
		if o.Value != "" && text == normalize(o.Value) {
			return o, true
		}
	}
	for _, o := range options {
		if o.ID != "" && text == normalize(o.ID) {
			return o, true
		}
	}
	for _, o := range options {
		if o.Label != "" && text == normalize(o.Label) {
			return o, true
		}
	}
	for i, o := range options {
		if text == strconv.Itoa(i+1) {
			return o, true
		}
	}
	return domain.Option{}, false
}
