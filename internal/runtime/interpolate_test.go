package runtime

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInterpolate_Variables(t *testing.T) {
	x := NewExecutor()
	sess := testSession()
	sess.SetVariable("name", "Maria")
	sess.SetVariable("order", "A-17")

	tests := []struct {
		in   string
		want string
	}{
		{"Hi {{name}}, order {{order}} is ready", "Hi Maria, order A-17 is ready"},
		{"Hi {{ name }}", "Hi Maria"},
		{"no placeholders", "no placeholders"},
		{"{{missing}} stays", "{{missing}} stays"},
		{"{{name}}{{name}}", "MariaMaria"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, x.interpolate(context.Background(), tt.in, sess, entityCache{}))
	}
}

func TestInterpolate_EntityFieldFetchesOncePerMessage(t *testing.T) {
	crm := newFakeCRM()
	crm.entities["contact"] = map[string]any{"NAME": "Maria", "CITY": "Lima"}
	x := NewExecutor(WithCRMClient(crm))
	sess := testSession()

	cache := entityCache{}
	got := x.interpolate(context.Background(),
		"{{contact:NAME}} from {{contact:CITY}}, again {{contact:NAME}}", sess, cache)

	assert.Equal(t, "Maria from Lima, again Maria", got)
	assert.Equal(t, 1, crm.fetches)
}

func TestInterpolate_EntityFailureCachedAndLeftVerbatim(t *testing.T) {
	crm := newFakeCRM()
	// No contact entity registered: every lookup fails.
	x := NewExecutor(WithCRMClient(crm))
	sess := testSession()

	cache := entityCache{}
	got := x.interpolate(context.Background(), "{{contact:NAME}} {{contact:CITY}}", sess, cache)

	assert.Equal(t, "{{contact:NAME}} {{contact:CITY}}", got)
	assert.Equal(t, 1, crm.fetches)
}

func TestInterpolate_EntityWithoutClientLeftVerbatim(t *testing.T) {
	x := NewExecutor()
	got := x.interpolate(context.Background(), "Hi {{contact:NAME}}", testSession(), entityCache{})
	assert.Equal(t, "Hi {{contact:NAME}}", got)
}

func TestInterpolateValue_WalksNestedStructures(t *testing.T) {
	x := NewExecutor()
	sess := testSession()
	sess.SetVariable("name", "Maria")

	in := map[string]any{
		"contact": map[string]any{"name": "{{name}}"},
		"tags":    []any{"{{name}}", 7},
		"fixed":   true,
	}
	got := x.interpolateValue(context.Background(), in, sess, entityCache{}).(map[string]any)

	assert.Equal(t, "Maria", got["contact"].(map[string]any)["name"])
	assert.Equal(t, "Maria", got["tags"].([]any)[0])
	assert.Equal(t, 7, got["tags"].([]any)[1])
	assert.Equal(t, true, got["fixed"])
}

func TestInterpolate_UnknownEntityTypeIsVariableOnly(t *testing.T) {
	x := NewExecutor(WithCRMClient(newFakeCRM()))
	sess := testSession()
	got := x.interpolate(context.Background(), "{{ticket:ID}}", sess, entityCache{})
	assert.Equal(t, "{{ticket:ID}}", got)
}
