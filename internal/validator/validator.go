// Package validator checks authored flows before they are served: broken
// targets, unreachable nodes, out-of-range delays and malformed schedules.
package validator

import (
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"

	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/schedule"
)

// maxDelaySeconds mirrors the runtime clamp; flows exceeding it are rejected
// at authoring time instead of clamped at runtime.
const maxDelaySeconds = 345600

// Issue is one validation finding.
type Issue struct {
	NodeID  string
	Message string
}

func (i Issue) String() string {
	if i.NodeID == "" {
		return i.Message
	}
	return fmt.Sprintf("node %q: %s", i.NodeID, i.Message)
}

// ValidateFlow checks the flow graph. It returns all findings rather than
// stopping at the first, so authors fix a flow in one pass.
func ValidateFlow(flow *domain.Flow) []Issue {
	var issues []Issue

	if flow == nil {
		return []Issue{{Message: "flow is nil"}}
	}
	if flow.RootID == "" {
		issues = append(issues, Issue{Message: "flow has no root node"})
		return issues
	}
	if flow.Node(flow.RootID) == nil {
		issues = append(issues, Issue{Message: fmt.Sprintf("root node %q does not exist", flow.RootID)})
		return issues
	}

	reachable := crawl(flow)

	for id, node := range flow.Nodes {
		if node.ID != id {
			issues = append(issues, Issue{NodeID: id, Message: fmt.Sprintf("node id %q does not match its key", node.ID)})
		}
		for _, target := range nodeTargets(node) {
			if flow.Node(target) == nil {
				issues = append(issues, Issue{NodeID: id, Message: fmt.Sprintf("target %q does not exist", target)})
			}
		}
		issues = append(issues, checkAction(node)...)
		if !reachable[id] {
			issues = append(issues, Issue{NodeID: id, Message: "unreachable from the root"})
		}
	}

	return issues
}

// crawl walks every outgoing edge from the root.
func crawl(flow *domain.Flow) map[string]bool {
	visited := make(map[string]bool)
	queue := []string{flow.RootID}

	for len(queue) > 0 {
		currentID := queue[0]
		queue = queue[1:]

		if visited[currentID] {
			continue
		}
		visited[currentID] = true

		node := flow.Node(currentID)
		if node == nil {
			continue
		}
		for _, target := range nodeTargets(node) {
			if !visited[target] {
				queue = append(queue, target)
			}
		}
	}
	return visited
}

// nodeTargets collects every node id the node can route to: children, option
// targets, and any *target entry of its action data (including rule and group
// lists).
func nodeTargets(node *domain.Node) []string {
	var targets []string
	targets = append(targets, node.Children...)
	for _, o := range node.Options {
		if o.Target != "" {
			targets = append(targets, o.Target)
		}
	}
	targets = append(targets, dataTargets(node.Action.Data)...)
	return targets
}

func dataTargets(data map[string]any) []string {
	var targets []string
	for key, v := range data {
		switch t := v.(type) {
		case string:
			if strings.HasSuffix(key, "target") && t != "" {
				targets = append(targets, t)
			}
		case map[string]any:
			targets = append(targets, dataTargets(t)...)
		case []any:
			for _, item := range t {
				if m, ok := item.(map[string]any); ok {
					targets = append(targets, dataTargets(m)...)
				}
			}
		}
	}
	return targets
}

// checkAction applies per-kind configuration checks.
func checkAction(node *domain.Node) []Issue {
	var issues []Issue

	switch node.Action.Kind {
	case domain.ActionDelay:
		var cfg struct {
			Seconds int `mapstructure:"seconds"`
		}
		if err := weakDecode(node.Action.Data, &cfg); err != nil {
			issues = append(issues, Issue{NodeID: node.ID, Message: "invalid delay config: " + err.Error()})
			break
		}
		if cfg.Seconds <= 0 {
			issues = append(issues, Issue{NodeID: node.ID, Message: "delay requires a positive number of seconds"})
		} else if cfg.Seconds > maxDelaySeconds {
			issues = append(issues, Issue{NodeID: node.ID, Message: fmt.Sprintf("delay of %ds exceeds the four-day bound", cfg.Seconds)})
		}

	case domain.ActionScheduler:
		var cfg struct {
			Mode     string            `mapstructure:"mode"`
			Schedule schedule.Schedule `mapstructure:"schedule"`
		}
		if err := weakDecode(node.Action.Data, &cfg); err != nil {
			issues = append(issues, Issue{NodeID: node.ID, Message: "invalid scheduler config: " + err.Error()})
			break
		}
		if cfg.Mode == "bitrix" {
			break
		}
		if err := schedule.Validate(cfg.Schedule); err != nil {
			issues = append(issues, Issue{NodeID: node.ID, Message: "invalid schedule: " + err.Error()})
		}

	case domain.ActionMenu, domain.ActionButtons:
		if len(node.Options) == 0 {
			issues = append(issues, Issue{NodeID: node.ID, Message: "menu node has no options"})
		}

	case domain.ActionAsk, domain.ActionQuestion:
		variable, _ := node.Action.Data["variable"].(string)
		if variable == "" {
			issues = append(issues, Issue{NodeID: node.ID, Message: "ask node has no variable configured"})
		}
	}

	if node.Type == domain.NodeTypeMenu &&
		node.Action.Kind != domain.ActionMenu && node.Action.Kind != domain.ActionButtons &&
		len(node.Options) == 0 {
		issues = append(issues, Issue{NodeID: node.ID, Message: "menu node has no options"})
	}

	return issues
}

func weakDecode(data map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
	})
	if err != nil {
		return err
	}
	return dec.Decode(data)
}
