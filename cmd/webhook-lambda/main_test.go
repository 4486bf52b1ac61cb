package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/clinic-scheduler/internal/http/middleware"
)

func event(method, path, body string, headers map[string]string) events.APIGatewayV2HTTPRequest {
	return events.APIGatewayV2HTTPRequest{
		RawPath: path,
		Body:    body,
		Headers: headers,
		RequestContext: events.APIGatewayV2HTTPRequestContext{
			RequestID: "req-1",
			HTTP: events.APIGatewayV2HTTPRequestContextHTTPDescription{
				Method:   method,
				Path:     path,
				SourceIP: "203.0.113.9",
			},
		},
	}
}

type captured struct {
	method, path, secret, requestID, remote string
	body                                    []byte
}

func recorder(c *captured) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c.method = r.Method
		c.path = r.URL.Path
		c.secret = r.Header.Get(middleware.RetellSecretHeader)
		c.requestID = r.Header.Get("X-Request-Id")
		c.remote = r.RemoteAddr
		c.body, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "accepted"})
	})
}

func TestHandleForwardsWebhook(t *testing.T) {
	var got captured
	resp, err := handle(context.Background(), recorder(&got), event(http.MethodPost, "/webhooks/retell/appointment",
		`{"doctor_id":"d1"}`, map[string]string{"x-retell-secret": "s3cret", "content-type": "application/json"}))
	require.NoError(t, err)

	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Headers["content-type"])
	assert.JSONEq(t, `{"status":"accepted"}`, resp.Body)
	assert.Equal(t, http.MethodPost, got.method)
	assert.Equal(t, "/webhooks/retell/appointment", got.path)
	assert.Equal(t, "s3cret", got.secret)
	assert.Equal(t, "req-1", got.requestID)
	assert.Equal(t, "203.0.113.9:0", got.remote)
	assert.JSONEq(t, `{"doctor_id":"d1"}`, string(got.body))
}

func TestHandleDecodesBase64Body(t *testing.T) {
	var got captured
	evt := event(http.MethodPost, "/webhooks/retell/cancel", base64.StdEncoding.EncodeToString([]byte(`{"appointment_id":"a1"}`)), nil)
	evt.IsBase64Encoded = true
	_, err := handle(context.Background(), recorder(&got), evt)
	require.NoError(t, err)
	assert.JSONEq(t, `{"appointment_id":"a1"}`, string(got.body))

	evt.Body = "%%%"
	resp, err := handle(context.Background(), recorder(&got), evt)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandleRejectsAdminPaths(t *testing.T) {
	var got captured
	resp, err := handle(context.Background(), recorder(&got), event(http.MethodGet, "/admin/doctors", "", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Empty(t, got.method)
}

func TestResponseBufferDefaultsToOK(t *testing.T) {
	resp, err := handle(context.Background(), http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}), event(http.MethodGet, "/health", "", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", resp.Body)
}
