/*
Package ports defines the driven ports (interfaces) of the flow engine.

These interfaces decouple the runtime from its collaborators, so the engine can
run against in-memory fakes in tests and real backends in production.

# Key Interfaces

  - FlowProvider: resolves flow definitions by ID.
  - SessionStore: persists and loads session state.
  - WebhookDispatcher: performs outbound HTTP calls for webhook nodes.
  - TimerFacility: durably schedules delayed resumptions.
  - CRMClient: entity operations for CRM-backed nodes and interpolation.
  - Completer: AI completion for ia_rag / ia_agent nodes.
  - EventSink: per-node execution telemetry.
  - DistributedLocker: cross-replica session locking.
*/
package ports
