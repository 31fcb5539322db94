package runtime

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/aretw0/espalier/pkg/domain"
)

// execCondition evaluates an ordered rule list against a source value and
// routes accordingly. Conditions never suspend and never emit user-visible
// responses.
func (x *Executor) execCondition(ctx context.Context, node *domain.Node, sess *domain.Session, ev *domain.InboundEvent) *domain.Outcome {
	var cfg conditionConfig
	if err := decodeConfig(node.Action.Data, &cfg); err != nil {
		out := domain.Advance(node.DefaultChild())
		return out.Emit(domain.SystemDirective(domain.LevelError,
			"invalid condition config: "+err.Error(), map[string]any{"node_id": node.ID}))
	}

	value, warn := x.conditionSource(ctx, cfg, sess, ev)

	fallback := cfg.DefaultTarget
	if fallback == "" {
		fallback = node.DefaultChild()
	}

	var target string
	if strings.EqualFold(cfg.MatchMode, "all") {
		target = matchAll(cfg.Rules, value)
	} else {
		target = matchAny(cfg.Rules, value)
	}
	if target == "" {
		target = fallback
	}

	out := domain.Advance(target)
	if warn != "" {
		out.Emit(domain.SystemDirective(domain.LevelWarn, warn, map[string]any{"node_id": node.ID}))
	}
	return out
}

// conditionSource resolves the value the rules run against.
func (x *Executor) conditionSource(ctx context.Context, cfg conditionConfig, sess *domain.Session, ev *domain.InboundEvent) (value, warn string) {
	switch cfg.Source {
	case "", "message", "keywords":
		if ev != nil {
			if t := ev.DisplayText(); t != "" {
				return t, ""
			}
		}
		return sess.LastText, ""
	case "variable":
		v, _ := sess.Variable(cfg.Variable)
		return v, ""
	case "crm_field":
		if x.crm == nil {
			return "", "condition source crm_field requires a CRM client"
		}
		v, err := x.crm.FieldValue(ctx, cfg.EntityType, sess.ContactID, cfg.Field)
		if err != nil {
			x.logger.Warn("crm field lookup failed", "field", cfg.Field, "err", err)
			return "", "crm field lookup failed: " + err.Error()
		}
		return v, ""
	default:
		return "", "unknown condition source " + cfg.Source
	}
}

// matchAny routes via the first matching rule's target.
func matchAny(rules []conditionRule, value string) string {
	for _, r := range rules {
		if evalRule(r, value) {
			return r.Target
		}
	}
	return ""
}

// matchAll requires every rule to hold and routes via the first rule's target.
func matchAll(rules []conditionRule, value string) string {
	if len(rules) == 0 {
		return ""
	}
	for _, r := range rules {
		if !evalRule(r, value) {
			return ""
		}
	}
	return rules[0].Target
}

func evalRule(r conditionRule, value string) bool {
	if len(r.Keywords) > 0 {
		return matchKeywords(r.Keywords, r.Match, value)
	}

	v := strings.TrimSpace(value)
	expected := strings.TrimSpace(r.Value)

	switch r.Operator {
	case "equals", "":
		return strings.EqualFold(v, expected)
	case "not_equals":
		return !strings.EqualFold(v, expected)
	case "contains":
		return strings.Contains(strings.ToLower(v), strings.ToLower(expected))
	case "not_contains":
		return !strings.Contains(strings.ToLower(v), strings.ToLower(expected))
	case "starts_with":
		return strings.HasPrefix(strings.ToLower(v), strings.ToLower(expected))
	case "ends_with":
		return strings.HasSuffix(strings.ToLower(v), strings.ToLower(expected))
	case "regex":
		re, err := regexp.Compile(r.Value)
		return err == nil && re.MatchString(value)
	case "greater_than":
		a, err1 := strconv.ParseFloat(v, 64)
		b, err2 := strconv.ParseFloat(expected, 64)
		return err1 == nil && err2 == nil && a > b
	case "less_than":
		a, err1 := strconv.ParseFloat(v, 64)
		b, err2 := strconv.ParseFloat(expected, 64)
		return err1 == nil && err2 == nil && a < b
	case "is_empty":
		return v == ""
	case "not_empty":
		return v != ""
	default:
		return false
	}
}

// matchKeywords matches a keyword list in "contains" (default) or "exact" mode.
func matchKeywords(keywords []string, mode, value string) bool {
	v := normalize(value)
	exact := strings.EqualFold(mode, "exact")
	for _, kw := range keywords {
		k := normalize(kw)
		if k == "" {
			continue
		}
		if exact {
			if v == k {
				return true
			}
		} else if strings.Contains(v, k) {
			return true
		}
	}
	return false
}
