package espalier_test

import (
	"context"
	"fmt"
	"log"

	"github.com/aretw0/espalier"
	"github.com/aretw0/espalier/pkg/adapters/memory"
	"github.com/aretw0/espalier/pkg/domain"
)

// ExampleNew demonstrates driving a flow with an in-memory definition.
// This is useful for testing, embedded scenarios, or when you don't want to
// rely on the file system.
func ExampleNew() {
	flow := &domain.Flow{
		ID:     "welcome",
		RootID: "start",
		Nodes: map[string]*domain.Node{
			"start": {
				ID:       "start",
				Type:     domain.NodeTypeAction,
				Action:   domain.Action{Kind: domain.ActionStart},
				Children: []string{"ask_city"},
			},
			"ask_city": {
				ID:       "ask_city",
				Type:     domain.NodeTypeAction,
				Action:   domain.Action{Kind: domain.ActionAsk, Data: map[string]any{"text": "Which city are you in?", "variable": "city"}},
				Children: []string{"done"},
			},
			"done": {
				ID:     "done",
				Type:   domain.NodeTypeAction,
				Action: domain.Action{Kind: domain.ActionEnd, Data: map[string]any{"text": "Greetings from {{city}}!"}},
			},
		},
	}

	flows, err := memory.NewProvider(flow)
	if err != nil {
		log.Fatal(err)
	}

	eng, err := espalier.New(flows)
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()

	// No event: render up to the first prompt.
	reply, err := eng.ProcessMessage(ctx, espalier.Message{SessionID: "demo", FlowID: "welcome"})
	if err != nil {
		log.Fatal(err)
	}
	for _, d := range reply.Directives {
		fmt.Println(d.Text)
	}

	// The contact answers, the flow runs to the end.
	reply, err = eng.ProcessMessage(ctx, espalier.Message{
		SessionID: "demo", FlowID: "welcome",
		Event: domain.TextEvent("Lima"),
	})
	if err != nil {
		log.Fatal(err)
	}
	for _, d := range reply.Directives {
		fmt.Println(d.Text)
	}

	// Output:
	// Which city are you in?
	// Greetings from Lima!
}
