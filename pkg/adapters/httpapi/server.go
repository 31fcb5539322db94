// Package httpapi exposes the engine over HTTP for channel gateways: one
// endpoint receives inbound events, the rest inspect flows and sessions.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/aretw0/espalier"
	"github.com/aretw0/espalier/pkg/domain"
)

// Engine defines the interface for the conversation engine core.
type Engine interface {
	ProcessMessage(ctx context.Context, msg espalier.Message) (*espalier.Reply, error)
	Flow(ctx context.Context, flowID string) (*domain.Flow, error)
	Flows(ctx context.Context) ([]string, error)
	Session(ctx context.Context, sessionID string) (*domain.Session, error)
	Sessions(ctx context.Context) ([]string, error)
	EndSession(ctx context.Context, sessionID string) error
}

// MessageRequest is the POST /v1/messages body.
type MessageRequest struct {
	SessionID string               `json:"session_id"`
	FlowID    string               `json:"flow_id"`
	Channel   string               `json:"channel,omitempty"`
	ContactID string               `json:"contact_id,omitempty"`
	Message   *domain.InboundEvent `json:"message,omitempty"`
	Metadata  map[string]any       `json:"metadata,omitempty"`
}

// MessageResponse is the POST /v1/messages reply. Responses carries only the
// contact-facing directives; system diagnostics go to the server log.
type MessageResponse struct {
	SessionID      string             `json:"session_id"`
	Responses      []domain.Directive `json:"responses"`
	Ended          bool               `json:"ended"`
	ShouldTransfer bool               `json:"should_transfer,omitempty"`
	TransferQueue  string             `json:"transfer_queue,omitempty"`
	AwaitingNodeID string             `json:"awaiting_node_id,omitempty"`
}

// Server carries the handlers' shared dependencies.
type Server struct {
	Engine  Engine
	Metrics http.Handler
}

// NewHandler creates the HTTP handler for the engine. metrics may be nil; if
// set it is mounted at GET /metrics (typically promhttp).
func NewHandler(engine Engine, metrics http.Handler) http.Handler {
	server := &Server{Engine: engine, Metrics: metrics}
	r := chi.NewRouter()

	r.Post("/v1/messages", server.PostMessage)
	r.Get("/v1/flows", server.ListFlows)
	r.Get("/v1/flows/{flowID}", server.GetFlow)
	r.Get("/v1/sessions", server.ListSessions)
	r.Get("/v1/sessions/{sessionID}", server.GetSession)
	r.Delete("/v1/sessions/{sessionID}", server.DeleteSession)
	r.Get("/health", server.GetHealth)

	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics)
	}

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// PostMessage handles the POST /v1/messages request.
func (s *Server) PostMessage(w http.ResponseWriter, r *http.Request) {
	var body MessageRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		slog.Warn("PostMessage: Invalid request body", "error", err)
		return
	}
	if body.SessionID == "" || body.FlowID == "" {
		http.Error(w, "session_id and flow_id are required", http.StatusBadRequest)
		return
	}
	// The resume type is reserved for the timer facility; it never arrives
	// over the wire.
	if body.Message != nil && body.Message.Type == domain.EventResume {
		http.Error(w, "Invalid input: reserved event type", http.StatusBadRequest)
		slog.Warn("PostMessage: reserved event type rejected", "session_id", body.SessionID)
		return
	}

	// Sanitize contact-controlled text (global policy)
	if body.Message != nil {
		for _, field := range []*string{&body.Message.Text, &body.Message.Payload, &body.Message.Caption} {
			if *field == "" {
				continue
			}
			clean, err := SanitizeInput(*field)
			if err != nil {
				http.Error(w, fmt.Sprintf("Invalid input: %v", err), http.StatusBadRequest)
				slog.Warn("PostMessage: Input rejected", "error", err, "size", len(*field))
				return
			}
			*field = clean
		}
	}

	reply, err := s.Engine.ProcessMessage(r.Context(), espalier.Message{
		SessionID: body.SessionID,
		FlowID:    body.FlowID,
		Channel:   body.Channel,
		ContactID: body.ContactID,
		Event:     body.Message,
		Metadata:  body.Metadata,
	})
	if err != nil {
		http.Error(w, fmt.Sprintf("Processing error: %v", err), http.StatusInternalServerError)
		slog.Error("PostMessage failed", "error", err, "session_id", body.SessionID)
		return
	}

	// System-level directives are operator diagnostics; the API returns only
	// what a channel should deliver to the contact.
	responses := make([]domain.Directive, 0, len(reply.Directives))
	for _, d := range reply.Directives {
		if d.IsUserVisible() {
			responses = append(responses, d)
		}
	}

	resp := MessageResponse{
		SessionID:      body.SessionID,
		Responses:      responses,
		Ended:          reply.Ended,
		ShouldTransfer: reply.ShouldTransfer,
		TransferQueue:  reply.TransferQueue,
	}
	if resp.Responses == nil {
		resp.Responses = []domain.Directive{}
	}
	if reply.Session != nil {
		resp.AwaitingNodeID = reply.Session.AwaitingNodeID
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("PostMessage response encode failed", "error", err)
	}
}

// ListFlows handles the GET /v1/flows request.
func (s *Server) ListFlows(w http.ResponseWriter, r *http.Request) {
	ids, err := s.Engine.Flows(r.Context())
	if err != nil {
		http.Error(w, fmt.Sprintf("List error: %v", err), http.StatusInternalServerError)
		slog.Error("ListFlows failed", "error", err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string][]string{"flows": ids}); err != nil {
		slog.Error("ListFlows response encode failed", "error", err)
	}
}

// GetFlow handles the GET /v1/flows/{flowID} request.
func (s *Server) GetFlow(w http.ResponseWriter, r *http.Request) {
	flowID := chi.URLParam(r, "flowID")
	flow, err := s.Engine.Flow(r.Context(), flowID)
	if err != nil {
		if errors.Is(err, domain.ErrFlowNotFound) {
			http.Error(w, "Flow not found", http.StatusNotFound)
			return
		}
		http.Error(w, fmt.Sprintf("Flow error: %v", err), http.StatusInternalServerError)
		slog.Error("GetFlow failed", "error", err, "flow_id", flowID)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(flow); err != nil {
		slog.Error("GetFlow response encode failed", "error", err)
	}
}

// ListSessions handles the GET /v1/sessions request.
func (s *Server) ListSessions(w http.ResponseWriter, r *http.Request) {
	ids, err := s.Engine.Sessions(r.Context())
	if err != nil {
		http.Error(w, fmt.Sprintf("List error: %v", err), http.StatusInternalServerError)
		slog.Error("ListSessions failed", "error", err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string][]string{"sessions": ids}); err != nil {
		slog.Error("ListSessions response encode failed", "error", err)
	}
}

// GetSession handles the GET /v1/sessions/{sessionID} request.
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	sess, err := s.Engine.Session(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			http.Error(w, "Session not found", http.StatusNotFound)
			return
		}
		http.Error(w, fmt.Sprintf("Session error: %v", err), http.StatusInternalServerError)
		slog.Error("GetSession failed", "error", err, "session_id", sessionID)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(sess); err != nil {
		slog.Error("GetSession response encode failed", "error", err)
	}
}

// DeleteSession handles the DELETE /v1/sessions/{sessionID} request.
func (s *Server) DeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if err := s.Engine.EndSession(r.Context(), sessionID); err != nil {
		http.Error(w, fmt.Sprintf("Delete error: %v", err), http.StatusInternalServerError)
		slog.Error("DeleteSession failed", "error", err, "session_id", sessionID)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]string{"status": "ok"}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
