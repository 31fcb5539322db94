package runtime

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/aretw0/espalier/pkg/domain"
)

// execCRM drives bitrix_crm nodes: create/update/delete/search against the
// external CRM client, with success/error routing and, for search, additional
// found/not-found routing.
func (x *Executor) execCRM(ctx context.Context, node *domain.Node, sess *domain.Session) *domain.Outcome {
	var cfg crmConfig
	if err := decodeConfig(node.Action.Data, &cfg); err != nil {
		out := domain.Advance(node.DefaultChild())
		return out.Emit(domain.SystemDirective(domain.LevelError,
			"invalid crm config: "+err.Error(), map[string]any{"node_id": node.ID}))
	}

	successTarget := cfg.SuccessTarget
	if successTarget == "" {
		successTarget = node.DefaultChild()
	}
	errorTarget := cfg.ErrorTarget
	if errorTarget == "" {
		errorTarget = successTarget
	}

	if x.crm == nil {
		x.logger.Warn("crm client not configured, operation skipped", "node_id", node.ID, "operation", cfg.Operation)
		out := domain.Advance(successTarget)
		return out.Emit(domain.SystemDirective(domain.LevelWarn,
			"crm client not configured, operation skipped", map[string]any{"node_id": node.ID}))
	}

	cache := entityCache{}
	fields := x.crmFields(ctx, cfg.Fields, sess, cache)

	switch strings.ToLower(cfg.Operation) {
	case "create":
		id, err := x.crm.CreateEntity(ctx, cfg.EntityType, fields)
		if err != nil {
			return x.crmError(node, errorTarget, cfg.Operation, err)
		}
		out := domain.Advance(successTarget)
		out.SetVariable(VarCRMIDPrefix+cfg.EntityType, id)
		return out.Emit(domain.SystemDirective(domain.LevelInfo, "crm entity created",
			map[string]any{"node_id": node.ID, "entity_type": cfg.EntityType, "entity_id": id}))

	case "update":
		id, ok := x.crmEntityID(ctx, cfg, sess, cache)
		if !ok {
			return x.crmError(node, errorTarget, cfg.Operation, fmt.Errorf("no entity id resolved"))
		}
		if err := x.crm.UpdateEntity(ctx, cfg.EntityType, id, fields); err != nil {
			return x.crmError(node, errorTarget, cfg.Operation, err)
		}
		out := domain.Advance(successTarget)
		return out.Emit(domain.SystemDirective(domain.LevelInfo, "crm entity updated",
			map[string]any{"node_id": node.ID, "entity_type": cfg.EntityType, "entity_id": id}))

	case "delete":
		id, ok := x.crmEntityID(ctx, cfg, sess, cache)
		if !ok {
			return x.crmError(node, errorTarget, cfg.Operation, fmt.Errorf("no entity id resolved"))
		}
		if err := x.crm.DeleteEntity(ctx, cfg.EntityType, id); err != nil {
			return x.crmError(node, errorTarget, cfg.Operation, err)
		}
		delete(sess.Variables, VarCRMIDPrefix+cfg.EntityType)
		out := domain.Advance(successTarget)
		return out.Emit(domain.SystemDirective(domain.LevelInfo, "crm entity deleted",
			map[string]any{"node_id": node.ID, "entity_type": cfg.EntityType, "entity_id": id}))

	case "search":
		results, err := x.crm.SearchEntities(ctx, cfg.EntityType, fields)
		if err != nil {
			return x.crmError(node, errorTarget, cfg.Operation, err)
		}
		var out *domain.Outcome
		if len(results) > 0 {
			target := cfg.FoundTarget
			if target == "" {
				target = successTarget
			}
			out = domain.Advance(target)
			// Cache the first result for downstream nodes.
			first := results[0]
			if id, ok := first["id"]; ok {
				out.SetVariable(VarCRMIDPrefix+cfg.EntityType, fmt.Sprintf("%v", id))
			}
			for k, v := range first {
				out.SetVariable("crm_"+k, fmt.Sprintf("%v", v))
			}
		} else {
			target := cfg.NotFoundTarget
			if target == "" {
				target = errorTarget
			}
			out = domain.Advance(target)
		}
		out.SetVariable(VarSearchCount, strconv.Itoa(len(results)))
		return out.Emit(domain.SystemDirective(domain.LevelInfo, "crm search completed",
			map[string]any{"node_id": node.ID, "entity_type": cfg.EntityType, "count": len(results)}))

	default:
		out := domain.Advance(node.DefaultChild())
		return out.Emit(domain.SystemDirective(domain.LevelError,
			"unknown crm operation "+cfg.Operation, map[string]any{"node_id": node.ID}))
	}
}

func (x *Executor) crmError(node *domain.Node, target, operation string, err error) *domain.Outcome {
	x.logger.Warn("crm operation failed", "node_id", node.ID, "operation", operation, "err", err)
	out := domain.Advance(target)
	return out.Emit(domain.SystemDirective(domain.LevelError,
		"crm "+operation+" failed: "+err.Error(), map[string]any{"node_id": node.ID}))
}

// crmFields builds the field map from the declarative {field, value|variable}
// list. Static values are interpolated; variable references read the bag.
func (x *Executor) crmFields(ctx context.Context, fields []crmField, sess *domain.Session, cache entityCache) map[string]any {
	out := make(map[string]any, len(fields))
	for _, f := range fields {
		if f.Field == "" {
			continue
		}
		if f.Variable != "" {
			if v, ok := sess.Variable(f.Variable); ok {
				out[f.Field] = v
			}
			continue
		}
		out[f.Field] = x.interpolate(ctx, f.Value, sess, cache)
	}
	return out
}

// crmEntityID resolves the target entity: explicit id, then the id cached by a
// previous create/search, then a contact-identifier field match.
func (x *Executor) crmEntityID(ctx context.Context, cfg crmConfig, sess *domain.Session, cache entityCache) (string, bool) {
	if cfg.EntityID != "" {
		return x.interpolate(ctx, cfg.EntityID, sess, cache), true
	}
	if id, ok := sess.Variable(VarCRMIDPrefix + cfg.EntityType); ok && id != "" {
		return id, true
	}
	if cfg.MatchField != "" && sess.ContactID != "" {
		entity, err := x.crm.FindByField(ctx, cfg.EntityType, cfg.MatchField, sess.ContactID)
		if err != nil || entity == nil {
			return "", false
		}
		if id, ok := entity["id"]; ok {
			return fmt.Sprintf("%v", id), true
		}
	}
	return "", false
}
