package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/espalier"
	"github.com/aretw0/espalier/pkg/adapters/memory"
	"github.com/aretw0/espalier/pkg/domain"
)

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()
	flow := &domain.Flow{
		ID:     "support",
		RootID: "start",
		Nodes: map[string]*domain.Node{
			"start": {
				ID:       "start",
				Type:     domain.NodeTypeAction,
				Action:   domain.Action{Kind: domain.ActionStart},
				Children: []string{"ask"},
			},
			"ask": {
				ID:       "ask",
				Type:     domain.NodeTypeAction,
				Action:   domain.Action{Kind: domain.ActionAsk, Data: map[string]any{"text": "How can we help?", "variable": "topic"}},
				Children: []string{"done"},
			},
			"done": {
				ID:     "done",
				Type:   domain.NodeTypeAction,
				Action: domain.Action{Kind: domain.ActionEnd, Data: map[string]any{"text": "Noted: {{topic}}"}},
			},
		},
	}
	flows, err := memory.NewProvider(flow)
	require.NoError(t, err)
	eng, err := espalier.New(flows)
	require.NoError(t, err)
	return NewHandler(eng, nil)
}

func postMessage(t *testing.T, handler http.Handler, body MessageRequest) (*httptest.ResponseRecorder, MessageResponse) {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest("POST", "/v1/messages", bytes.NewReader(raw))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	var resp MessageResponse
	if w.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return w, resp
}

func TestPostMessage_SuspendAndResume(t *testing.T) {
	handler := newTestHandler(t)

	w, resp := postMessage(t, handler, MessageRequest{SessionID: "s1", FlowID: "support", Channel: "whatsapp"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	require.Len(t, resp.Responses, 1)
	assert.Equal(t, "How can we help?", resp.Responses[0].Text)
	assert.False(t, resp.Ended)
	assert.Equal(t, "ask", resp.AwaitingNodeID)

	w, resp = postMessage(t, handler, MessageRequest{
		SessionID: "s1", FlowID: "support",
		Message: domain.TextEvent("billing"),
	})
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, resp.Responses, 1)
	assert.Equal(t, "Noted: billing", resp.Responses[0].Text)
	assert.True(t, resp.Ended)
	assert.Empty(t, resp.AwaitingNodeID)

	// The end node also produces a system diagnostic; only contact-facing
	// directives cross the API.
	for _, d := range resp.Responses {
		assert.True(t, d.IsUserVisible())
	}
}

func TestPostMessage_Validation(t *testing.T) {
	handler := newTestHandler(t)

	req := httptest.NewRequest("POST", "/v1/messages", bytes.NewReader([]byte("{broken")))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = postMessage(t, handler, MessageRequest{FlowID: "support"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = postMessage(t, handler, MessageRequest{SessionID: "s1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPostMessage_RejectsReservedEventType(t *testing.T) {
	handler := newTestHandler(t)

	// Suspend a session at the ask node, then try to force it forward with
	// the timer facility's event type.
	w, _ := postMessage(t, handler, MessageRequest{SessionID: "s1", FlowID: "support"})
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = postMessage(t, handler, MessageRequest{
		SessionID: "s1", FlowID: "support",
		Message: domain.ResumeEvent("forged"),
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// The suspension is untouched.
	req := httptest.NewRequest("GET", "/v1/sessions/s1", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var sess domain.Session
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sess))
	assert.Equal(t, "ask", sess.AwaitingNodeID)
}

func TestGetFlow(t *testing.T) {
	handler := newTestHandler(t)

	req := httptest.NewRequest("GET", "/v1/flows/support", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var flow domain.Flow
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &flow))
	assert.Equal(t, "support", flow.ID)
	assert.Equal(t, "start", flow.RootID)

	req = httptest.NewRequest("GET", "/v1/flows/nope", nil)
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListFlows(t *testing.T) {
	handler := newTestHandler(t)

	req := httptest.NewRequest("GET", "/v1/flows", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string][]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, []string{"support"}, resp["flows"])
}

func TestSessions_Lifecycle(t *testing.T) {
	handler := newTestHandler(t)

	w, _ := postMessage(t, handler, MessageRequest{SessionID: "s1", FlowID: "support"})
	require.Equal(t, http.StatusOK, w.Code)

	req := httptest.NewRequest("GET", "/v1/sessions", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var list map[string][]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, []string{"s1"}, list["sessions"])

	req = httptest.NewRequest("GET", "/v1/sessions/s1", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var sess domain.Session
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sess))
	assert.Equal(t, "ask", sess.AwaitingNodeID)

	req = httptest.NewRequest("DELETE", "/v1/sessions/s1", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	req = httptest.NewRequest("GET", "/v1/sessions/s1", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthAndCORS(t *testing.T) {
	handler := newTestHandler(t)

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest("OPTIONS", "/v1/messages", nil)
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMetricsMount(t *testing.T) {
	flows, err := memory.NewProvider(&domain.Flow{
		ID: "f", RootID: "start",
		Nodes: map[string]*domain.Node{
			"start": {ID: "start", Type: domain.NodeTypeAction, Action: domain.Action{Kind: domain.ActionEnd}},
		},
	})
	require.NoError(t, err)
	eng, err := espalier.New(flows)
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	handler := NewHandler(eng, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
