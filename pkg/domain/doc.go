// Package domain holds the core entities of the flow engine: the authored
// conversation graph, the durable session, and the generic inbound/outbound
// message shapes exchanged with channel adapters. It has no dependencies on
// storage or transport.
package domain
