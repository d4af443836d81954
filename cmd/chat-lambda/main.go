// Command chat-lambda serves the chat API behind an API Gateway HTTP API.
// Stores must be shared (postgres or mongo) since Lambda instances are
// short-lived; websocket upgrades are not available on this path.
package main

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"github.com/wolfman30/vetchat/cmd/mainconfig"
	"github.com/wolfman30/vetchat/internal/app/bootstrap"
	appconfig "github.com/wolfman30/vetchat/internal/config"
	"github.com/wolfman30/vetchat/pkg/logging"
)

func main() {
	cfg := appconfig.Load()
	logger := logging.NewWithOptions(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if cfg.StoreBackend == appconfig.StoreMemory {
		logger.Warn("memory store selected for lambda; conversations will not survive cold starts")
	}

	ctx := context.Background()
	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		panic(err)
	}
	app, err := bootstrap.Build(ctx, cfg, awsCfg, logger)
	if err != nil {
		panic(err)
	}

	lambda.Start(func(ctx context.Context, evt events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
		return handle(ctx, app.Handler, evt)
	})
}

func handle(ctx context.Context, handler http.Handler, evt events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	req, err := toRequest(ctx, evt)
	if err != nil {
		return events.APIGatewayV2HTTPResponse{StatusCode: http.StatusBadRequest, Body: "invalid body"}, nil
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	out := events.APIGatewayV2HTTPResponse{
		StatusCode: rec.Code,
		Body:       rec.Body.String(),
		Headers:    map[string]string{},
	}
	for key, values := range rec.Header() {
		out.Headers[strings.ToLower(key)] = strings.Join(values, ",")
	}
	return out, nil
}

func toRequest(ctx context.Context, evt events.APIGatewayV2HTTPRequest) (*http.Request, error) {
	method := strings.ToUpper(strings.TrimSpace(evt.RequestContext.HTTP.Method))
	if method == "" {
		method = http.MethodGet
	}
	path := strings.TrimSpace(evt.RawPath)
	if path == "" {
		path = strings.TrimSpace(evt.RequestContext.HTTP.Path)
	}
	if path == "" {
		path = "/"
	}
	if qs := strings.TrimSpace(evt.RawQueryString); qs != "" {
		path += "?" + qs
	}

	body, err := decodeBody(evt)
	if err != nil {
		return nil, err
	}

	req := httptest.NewRequest(method, path, strings.NewReader(body)).WithContext(ctx)
	for key, value := range evt.Headers {
		req.Header.Set(key, value)
	}
	if len(evt.Cookies) > 0 {
		req.Header.Set("Cookie", strings.Join(evt.Cookies, "; "))
	}
	if ip := strings.TrimSpace(evt.RequestContext.HTTP.SourceIP); ip != "" {
		req.RemoteAddr = ip + ":0"
		if req.Header.Get("X-Forwarded-For") == "" {
			req.Header.Set("X-Forwarded-For", ip)
		}
	}
	return req, nil
}

func decodeBody(evt events.APIGatewayV2HTTPRequest) (string, error) {
	if !evt.IsBase64Encoded {
		return evt.Body, nil
	}
	decoded, err := base64.StdEncoding.DecodeString(evt.Body)
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}
