package graph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/espalier/pkg/domain"
)

// Overlay contains dynamic session state to visualize on the graph.
type Overlay struct {
	VisitedNodes []string
	CurrentNode  string
}

// prompting reports whether the node suspends waiting for the contact.
func prompting(kind string) bool {
	switch kind {
	case domain.ActionMenu, domain.ActionButtons, domain.ActionAsk, domain.ActionQuestion,
		domain.ActionValidation, domain.ActionValidationCRM:
		return true
	}
	return false
}

// external reports whether the node calls out of the conversation.
func external(kind string) bool {
	switch kind {
	case domain.ActionWebhookOut, domain.ActionCRM, domain.ActionAIRag, domain.ActionAIAgent:
		return true
	}
	return false
}

// GenerateMermaid produces a Mermaid flowchart syntax string from a flow.
// It applies semantic styling:
// - Root: ((Circle))
// - External call (webhook/CRM/AI): [[Subroutine]]
// - Prompt (menu/ask/validation): [/Parallelogram/]
// - Default: [Rectangle]
// It also applies overlay styles (Visited/Current) if provided.
func GenerateMermaid(flow *domain.Flow, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	ids := make([]string, 0, len(flow.Nodes))
	for id := range flow.Nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		node := flow.Nodes[id]
		safeID := sanitizeMermaidID(node.ID)

		// Node shape based on behavior
		opener, closer := "[", "]"
		switch {
		case node.ID == flow.RootID:
			opener, closer = "((", "))" // Circle
		case external(node.Action.Kind):
			opener, closer = "[[", "]]" // Subroutine
		case prompting(node.Action.Kind):
			opener, closer = "[/", "/]" // Parallelogram (Input)
		}

		title := node.ID
		if node.Label != "" {
			title = node.Label
		}
		label := fmt.Sprintf("    %s%s\"%s\"%s\n", safeID, opener, escapeMermaidLabel(title), closer)
		if node.Action.Kind == domain.ActionDelay {
			// Annotate delay nodes with a clock icon
			label = fmt.Sprintf("    %s%s\"%s <br/> ⏱️ delay\"%s\n", safeID, opener, escapeMermaidLabel(title), closer)
		}
		sb.WriteString(label)

		// Default successor
		if next := node.DefaultChild(); next != "" {
			sb.WriteString(fmt.Sprintf("    %s --> %s\n", safeID, sanitizeMermaidID(next)))
		}

		// Option branches
		for _, opt := range node.Options {
			if opt.Target == "" {
				continue
			}
			sb.WriteString(fmt.Sprintf("    %s -- \"%s\" --> %s\n",
				safeID, escapeMermaidLabel(opt.Label), sanitizeMermaidID(opt.Target)))
		}

		// Branch targets buried in the action config (conditions, webhooks,
		// validations). Drawn dashed to distinguish them from graph children.
		for _, edge := range dataEdges(node.Action.Data) {
			sb.WriteString(fmt.Sprintf("    %s -. \"%s\" .-> %s\n",
				safeID, escapeMermaidLabel(edge.label), sanitizeMermaidID(edge.target)))
		}
	}

	// Apply overlay styles
	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme (Light/Dark)
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		visitedSet := make(map[string]bool)
		for _, id := range overlay.VisitedNodes {
			safeID := sanitizeMermaidID(id)
			if !visitedSet[safeID] && safeID != "" {
				visitedSet[safeID] = true
				sb.WriteString(fmt.Sprintf("    class %s visited;\n", safeID))
			}
		}

		if overlay.CurrentNode != "" {
			sb.WriteString(fmt.Sprintf("    class %s current;\n", sanitizeMermaidID(overlay.CurrentNode)))
		}
	}

	return sb.String()
}

type edge struct {
	label  string
	target string
}

// dataEdges collects branch targets from the action config: any key ending in
// "target" whose value is a node id, recursively through nested maps/lists.
func dataEdges(data map[string]any) []edge {
	var edges []edge
	var walk func(key string, v any)
	walk = func(key string, v any) {
		switch val := v.(type) {
		case string:
			if strings.HasSuffix(key, "target") && val != "" {
				edges = append(edges, edge{label: strings.TrimSuffix(key, "_target"), target: val})
			}
		case map[string]any:
			keys := make([]string, 0, len(val))
			for k := range val {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				walk(k, val[k])
			}
		case []any:
			for _, item := range val {
				walk(key, item)
			}
		}
	}
	walk("", map[string]any(data))
	return edges
}

func escapeMermaidLabel(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	return s
}
