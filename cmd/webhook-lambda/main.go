package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"github.com/wolfman30/clinic-scheduler/cmd/mainconfig"
	"github.com/wolfman30/clinic-scheduler/internal/app/bootstrap"
	appconfig "github.com/wolfman30/clinic-scheduler/internal/config"
	"github.com/wolfman30/clinic-scheduler/pkg/logging"
)

// The Lambda only fronts the voice assistant webhooks; the admin API runs on
// the long-lived server.
func main() {
	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)

	ctx := context.Background()
	api, err := bootstrap.BuildAPI(ctx, cfg, mainconfig.LoadWebhookAWSConfig(ctx, cfg, logger), logger)
	if err != nil {
		logger.Error("failed to build API", "error", err)
		panic(err)
	}

	lambda.Start(func(ctx context.Context, evt events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
		return handle(ctx, api.Handler, evt)
	})
}

func handle(ctx context.Context, h http.Handler, evt events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	method := strings.ToUpper(strings.TrimSpace(evt.RequestContext.HTTP.Method))
	path := strings.TrimSpace(evt.RawPath)
	if path == "" {
		path = strings.TrimSpace(evt.RequestContext.HTTP.Path)
	}

	switch {
	case path == "/health":
	case strings.HasPrefix(path, "/webhooks/retell/"):
	default:
		return jsonResponse(http.StatusNotFound, `{"status":"error","message":"Not found"}`), nil
	}

	body, err := decodeBody(evt)
	if err != nil {
		return jsonResponse(http.StatusBadRequest, `{"status":"error","message":"Invalid request body"}`), nil
	}

	target := path
	if qs := strings.TrimSpace(evt.RawQueryString); qs != "" {
		target += "?" + qs
	}
	req, err := http.NewRequestWithContext(ctx, method, target, bytes.NewReader(body))
	if err != nil {
		return jsonResponse(http.StatusBadRequest, `{"status":"error","message":"Invalid request"}`), nil
	}
	for k, v := range evt.Headers {
		req.Header.Set(k, v)
	}
	if ip := strings.TrimSpace(evt.RequestContext.HTTP.SourceIP); ip != "" {
		req.RemoteAddr = ip + ":0"
	}
	if id := strings.TrimSpace(evt.RequestContext.RequestID); id != "" {
		req.Header.Set("X-Request-Id", id)
	}

	rw := &responseBuffer{header: http.Header{}}
	h.ServeHTTP(rw, req)

	out := events.APIGatewayV2HTTPResponse{
		StatusCode: rw.status(),
		Body:       rw.body.String(),
		Headers:    map[string]string{},
	}
	for k := range rw.header {
		out.Headers[strings.ToLower(k)] = rw.header.Get(k)
	}
	return out, nil
}

// responseBuffer collects a handler's response for the Lambda reply.
type responseBuffer struct {
	header http.Header
	body   bytes.Buffer
	code   int
}

func (b *responseBuffer) Header() http.Header { return b.header }

func (b *responseBuffer) Write(p []byte) (int, error) {
	if b.code == 0 {
		b.code = http.StatusOK
	}
	return b.body.Write(p)
}

func (b *responseBuffer) WriteHeader(code int) {
	if b.code == 0 {
		b.code = code
	}
}

func (b *responseBuffer) status() int {
	if b.code == 0 {
		return http.StatusOK
	}
	return b.code
}

func jsonResponse(status int, body string) events.APIGatewayV2HTTPResponse {
	return events.APIGatewayV2HTTPResponse{
		StatusCode: status,
		Body:       body,
		Headers:    map[string]string{"content-type": "application/json"},
	}
}

func decodeBody(evt events.APIGatewayV2HTTPRequest) ([]byte, error) {
	if !evt.IsBase64Encoded {
		return []byte(evt.Body), nil
	}
	return base64.StdEncoding.DecodeString(evt.Body)
}
