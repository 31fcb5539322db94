package runtime

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/ports"
)

// placeholderRe matches {{name}} and {{entity:FIELD}} placeholders.
var placeholderRe = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_]+)(?::([A-Za-z0-9_.]+))?\s*\}\}`)

// entity types allowed in {{entity:FIELD}} placeholders.
var interpolableEntities = map[string]bool{
	ports.EntityContact: true,
	ports.EntityLead:    true,
	ports.EntityDeal:    true,
	ports.EntityCompany: true,
}

// entityCache memoizes CRM fetches for the duration of one message, so a text
// referencing {{contact:NAME}} three times costs one lookup.
type entityCache map[string]map[string]any

// interpolate replaces {{name}} placeholders from the session variable bag and
// {{entity:FIELD}} placeholders from a lazily fetched CRM entity. Unresolved
// placeholders are left verbatim.
func (x *Executor) interpolate(ctx context.Context, text string, sess *domain.Session, cache entityCache) string {
	if !strings.Contains(text, "{{") {
		return text
	}
	return placeholderRe.ReplaceAllStringFunc(text, func(match string) string {
		groups := placeholderRe.FindStringSubmatch(match)
		name, field := groups[1], groups[2]

		if field != "" {
			if v, ok := x.entityField(ctx, name, field, sess, cache); ok {
				return v
			}
			return match
		}
		if v, ok := sess.Variable(name); ok {
			return v
		}
		return match
	})
}

// entityField resolves one {{entity:FIELD}} reference, fetching the entity at
// most once per message.
func (x *Executor) entityField(ctx context.Context, entityType, field string, sess *domain.Session, cache entityCache) (string, bool) {
	key := strings.ToLower(entityType)
	if !interpolableEntities[key] || x.crm == nil || sess.ContactID == "" {
		return "", false
	}

	entity, fetched := cache[key]
	if !fetched {
		var err error
		entity, err = x.crm.EntityByContact(ctx, key, sess.ContactID)
		if err != nil {
			x.logger.Warn("entity interpolation fetch failed",
				"entity_type", key, "contact_id", sess.ContactID, "err", err)
			entity = nil
		}
		// Cache failures too: at most one fetch per message per entity.
		if cache != nil {
			cache[key] = entity
		}
	}
	if entity == nil {
		return "", false
	}
	val, ok := entity[field]
	if !ok || val == nil {
		return "", false
	}
	return fmt.Sprintf("%v", val), true
}

// interpolateValue walks a string-or-JSON value, interpolating every string in
// place. Used by webhook bodies.
func (x *Executor) interpolateValue(ctx context.Context, v any, sess *domain.Session, cache entityCache) any {
	switch t := v.(type) {
	case string:
		return x.interpolate(ctx, t, sess, cache)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, inner := range t {
			out[k] = x.interpolateValue(ctx, inner, sess, cache)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, inner := range t {
			out[i] = x.interpolateValue(ctx, inner, sess, cache)
		}
		return out
	default:
		return v
	}
}
