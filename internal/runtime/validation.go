package runtime

import (
	"context"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/aretw0/espalier/pkg/domain"
)

// Format patterns for the built-in validation formats. DNI and RUC follow the
// Peruvian document formats the original channel integrations target.
var (
	emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phoneRe = regexp.MustCompile(`^\+?[0-9][0-9\s\-()]{5,19}$`)
	dniRe   = regexp.MustCompile(`^[0-9]{8}$`)
	rucRe   = regexp.MustCompile(`^[0-9]{11}$`)
)

var dateLayouts = []string{"2006-01-02", "02/01/2006", "02-01-2006"}

// execValidation drives validation and validation_bitrix nodes: a richer
// condition that inspects the inbound reply. With no event present it waits
// exactly like menu/ask.
func (x *Executor) execValidation(ctx context.Context, node *domain.Node, sess *domain.Session, ev *domain.InboundEvent, withCRM bool) *domain.Outcome {
	var cfg validationConfig
	if err := decodeConfig(node.Action.Data, &cfg); err != nil {
		out := domain.Advance(node.DefaultChild())
		return out.Emit(domain.SystemDirective(domain.LevelError,
			"invalid validation config: "+err.Error(), map[string]any{"node_id": node.ID}))
	}

	if ev == nil {
		out := domain.Stay(node.ID)
		if cfg.Text != "" {
			out.Emit(domain.TextDirective(x.interpolate(ctx, cfg.Text, sess, entityCache{})))
		}
		return out
	}

	answer := strings.TrimSpace(ev.DisplayText())

	// Keyword groups route first, each to its own target.
	for _, g := range cfg.Groups {
		if matchKeywords(g.Keywords, g.Match, answer) {
			target := g.Target
			if target == "" {
				target = node.DefaultChild()
			}
			return domain.Advance(target)
		}
	}
	if len(cfg.Groups) > 0 && len(cfg.Checks) == 0 {
		return x.validationFailed(node, cfg, cfg.NoMatchTarget)
	}

	captures := make(map[string]string)
	for _, check := range cfg.Checks {
		ok, warn := x.runCheck(ctx, check, answer, sess, withCRM, captures)
		if warn != "" {
			x.logger.Warn("validation check degraded", "node_id", node.ID, "warn", warn)
		}
		if !ok {
			return x.validationFailed(node, cfg, cfg.InvalidTarget)
		}
	}

	target := cfg.ValidTarget
	if target == "" {
		target = node.DefaultChild()
	}
	out := domain.Advance(target)
	if cfg.Variable != "" {
		out.SetVariable(cfg.Variable, answer)
	}
	for k, v := range captures {
		out.SetVariable(k, v)
	}
	return out
}

// validationFailed emits the retry message and routes to the given target, or
// stays on the node awaiting another reply when none is configured.
func (x *Executor) validationFailed(node *domain.Node, cfg validationConfig, target string) *domain.Outcome {
	retry := cfg.InvalidText
	if retry == "" {
		retry = defaultRetryText
	}
	if target != "" {
		return domain.Advance(target).Emit(domain.TextDirective(retry))
	}
	return domain.Stay(node.ID).Emit(domain.TextDirective(retry))
}

// runCheck evaluates a single validation check. A CRM check without a client
// degrades to pass-with-warning, never a crash.
func (x *Executor) runCheck(ctx context.Context, check validationCheck, answer string, sess *domain.Session, withCRM bool, captures map[string]string) (bool, string) {
	switch check.Kind {
	case "format":
		ok := matchFormat(check, answer)
		if ok && check.CaptureTo != "" {
			captures[check.CaptureTo] = answer
		}
		return ok, ""
	case "variable":
		v, _ := sess.Variable(check.Variable)
		return evalRule(conditionRule{Operator: check.Operator, Value: check.Value}, v), ""
	case "range":
		n, err := strconv.ParseFloat(answer, 64)
		if err != nil {
			return false, ""
		}
		if check.Min != nil {
			if check.Exclusive && n <= *check.Min || !check.Exclusive && n < *check.Min {
				return false, ""
			}
		}
		if check.Max != nil {
			if check.Exclusive && n >= *check.Max || !check.Exclusive && n > *check.Max {
				return false, ""
			}
		}
		return true, ""
	case "options":
		return containsFold(check.Options, answer), ""
	case "length":
		if check.MinLen != nil && len(answer) < *check.MinLen {
			return false, ""
		}
		if check.MaxLen != nil && len(answer) > *check.MaxLen {
			return false, ""
		}
		return true, ""
	case "regex":
		return matchPattern(check.Pattern, answer), ""
	case "entity_exists":
		if !withCRM || x.crm == nil {
			return true, "entity_exists check requires a CRM client"
		}
		entity, err := x.crm.EntityByContact(ctx, check.EntityType, sess.ContactID)
		if err != nil {
			return false, "entity lookup failed: " + err.Error()
		}
		return entity != nil, ""
	case "field_equals":
		if !withCRM || x.crm == nil {
			return true, "field_equals check requires a CRM client"
		}
		v, err := x.crm.FieldValue(ctx, check.EntityType, sess.ContactID, check.Field)
		if err != nil {
			return false, "field lookup failed: " + err.Error()
		}
		return strings.EqualFold(strings.TrimSpace(v), strings.TrimSpace(check.Value)), ""
	default:
		return false, "unknown validation check kind " + check.Kind
	}
}

func matchFormat(check validationCheck, answer string) bool {
	switch check.Format {
	case "email":
		return emailRe.MatchString(answer)
	case "phone":
		return phoneRe.MatchString(answer)
	case "dni":
		return dniRe.MatchString(answer)
	case "ruc":
		return rucRe.MatchString(answer)
	case "number":
		_, err := strconv.ParseFloat(answer, 64)
		return err == nil
	case "url":
		u, err := url.Parse(answer)
		return err == nil && u.Scheme != "" && u.Host != ""
	case "date":
		for _, layout := range dateLayouts {
			if _, err := time.Parse(layout, answer); err == nil {
				return true
			}
		}
		return false
	case "custom":
		return matchPattern(check.Pattern, answer)
	default:
		return false
	}
}
