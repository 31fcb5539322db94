/*
Package espalier is a resumable conversation flow engine for messaging bots.

It walks a directed graph of nodes (messages, menus, questions, conditions,
webhooks, delays, CRM and AI steps) one inbound event at a time, separating
the flow definition (Graph) from the conversation state (Session) and the
outside world (Collaborators).

# Concept

A flow is a graph of nodes keyed by id. The engine runs automatic nodes in a
chain until it reaches a node that needs user input, then suspends: the
session records which node is awaiting and the call returns the rendered
prompts. The next inbound event resumes exactly that node. Delay nodes
suspend the same way but are resumed by a durable timer instead of the
contact. This Hexagonal Architecture keeps the engine independent of the
channel: the host owns message delivery, the engine owns the conversation.

# Key Features

  - Resumable execution: sessions survive process restarts through any
    SessionStore (in-memory, Redis).
  - Durable delays: timers outlive the process and re-enter the flow at the
    reserved continuation node.
  - Optional collaborators: webhooks, CRM, AI completion and timers are
    injected ports; a missing collaborator degrades the node, never the
    conversation.
  - Per-session serialization: concurrent events for one session are
    processed one at a time, optionally across processes via a distributed
    lock.

# Usage

Define flows (YAML files or in-memory), build an Engine, and feed it events:

	package main

	import (
		"context"
		"fmt"
		"log"

		"github.com/aretw0/espalier"
		"github.com/aretw0/espalier/pkg/adapters/file"
		"github.com/aretw0/espalier/pkg/domain"
	)

	func main() {
		flows, err := file.NewProvider("./flows")
		if err != nil {
			log.Fatal(err)
		}

		eng, err := espalier.New(flows)
		if err != nil {
			log.Fatal(err)
		}

		ctx := context.Background()

		// First call has no event: it renders up to the first prompt.
		reply, err := eng.ProcessMessage(ctx, espalier.Message{
			SessionID: "wa:5511999990000",
			FlowID:    "onboarding",
		})
		if err != nil {
			log.Fatal(err)
		}
		for _, d := range reply.Directives {
			fmt.Println(d.Text)
		}

		// Later, the contact answers.
		reply, err = eng.ProcessMessage(ctx, espalier.Message{
			SessionID: "wa:5511999990000",
			FlowID:    "onboarding",
			Event:     domain.TextEvent("Maria"),
		})
		if err != nil {
			log.Fatal(err)
		}
		for _, d := range reply.Directives {
			fmt.Println(d.Text)
		}
	}
*/
package espalier
