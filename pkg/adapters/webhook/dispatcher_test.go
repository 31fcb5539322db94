package webhook_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/espalier/pkg/adapters/webhook"
	"github.com/aretw0/espalier/pkg/ports"
)

func TestDispatcher_Call(t *testing.T) {
	var gotMethod, gotHeader, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotHeader = r.Header.Get("X-Token")
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":7}`))
	}))
	defer srv.Close()

	d := webhook.NewDispatcher()
	result, err := d.Call(context.Background(), ports.WebhookRequest{
		URL:     srv.URL,
		Method:  "POST",
		Headers: map[string]string{"X-Token": "secret"},
		Body:    []byte(`{"name":"Maria"}`),
	})
	require.NoError(t, err)

	assert.True(t, result.OK)
	assert.Equal(t, http.StatusCreated, result.Status)
	assert.Equal(t, `{"id":7}`, result.Response)
	assert.Equal(t, "POST", gotMethod)
	assert.Equal(t, "secret", gotHeader)
	assert.Equal(t, `{"name":"Maria"}`, gotBody)
}

func TestDispatcher_ErrorStatusIsNotOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	d := webhook.NewDispatcher()
	result, err := d.Call(context.Background(), ports.WebhookRequest{URL: srv.URL, Method: "GET"})
	require.NoError(t, err)

	assert.False(t, result.OK)
	assert.Equal(t, http.StatusInternalServerError, result.Status)
}

func TestDispatcher_TimeoutReportsRequestTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	defer srv.Close()

	d := webhook.NewDispatcher()
	result, err := d.Call(context.Background(), ports.WebhookRequest{
		URL:     srv.URL,
		Method:  "GET",
		Timeout: 50 * time.Millisecond,
	})
	require.NoError(t, err)

	assert.False(t, result.OK)
	assert.Equal(t, http.StatusRequestTimeout, result.Status)
}

func TestDispatcher_TransportFailure(t *testing.T) {
	d := webhook.NewDispatcher()
	// Nothing listens here.
	result, err := d.Call(context.Background(), ports.WebhookRequest{
		URL:    "http://127.0.0.1:1",
		Method: "GET",
	})
	require.NoError(t, err)
	assert.False(t, result.OK)
	assert.Zero(t, result.Status)
}

func TestDispatcher_DefaultsContentTypeForBodies(t *testing.T) {
	var gotType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotType = r.Header.Get("Content-Type")
	}))
	defer srv.Close()

	d := webhook.NewDispatcher()
	_, err := d.Call(context.Background(), ports.WebhookRequest{
		URL: srv.URL, Method: "POST", Body: []byte(`{}`),
	})
	require.NoError(t, err)
	assert.Equal(t, "application/json", gotType)
}

func TestDispatcher_CallWithRetry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d := webhook.NewDispatcher()

	// A reachable endpoint succeeds on the first attempt.
	result, err := d.CallWithRetry(context.Background(), ports.WebhookRequest{URL: srv.URL, Method: "GET"})
	require.NoError(t, err)
	assert.True(t, result.OK)
	assert.Equal(t, int32(1), calls.Load())
}
