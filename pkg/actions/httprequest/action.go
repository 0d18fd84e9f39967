// Package httprequest provides the built-in HTTP request action.
package httprequest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/weftworks/weft/pkg/models"
	"github.com/weftworks/weft/pkg/protocol"
)

const (
	defaultTimeoutSeconds = 30
	maxResponseBytes      = 10 << 20
)

var (
	// ErrURLRequired is returned when the configuration has no url.
	ErrURLRequired = errors.New("http_request action requires a url")
)

// Action performs an HTTP request with optional headers and body. Templates
// in the config are resolved by the engine before Execute is called.
type Action struct {
	client *http.Client
}

func NewAction() protocol.Action {
	return &Action{
		client: &http.Client{},
	}
}

// Schema returns the JSON schema for the action configuration.
func Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"url": map[string]any{
				"type":        "string",
				"description": "Request URL. Supports templating.",
			},
			"method": map[string]any{
				"type":        "string",
				"default":     "GET",
				"enum":        []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD"},
				"description": "HTTP method",
			},
			"headers": map[string]any{
				"type":        "object",
				"description": "Request headers, values support templating.",
			},
			"body": map[string]any{
				"description": "Request body. Maps and lists are sent as JSON.",
			},
			"timeout_seconds": map[string]any{
				"type":        "number",
				"description": "Per-request timeout in seconds",
				"default":     defaultTimeoutSeconds,
			},
		},
		"required": []string{"url"},
	}
}

func (a *Action) Execute(ctx context.Context, config map[string]any, _ map[string]any, logger *slog.Logger) (map[string]any, error) {
	url, _ := config["url"].(string)
	if url == "" {
		return nil, models.NewValidationError("", ErrURLRequired.Error())
	}

	method, _ := config["method"].(string)
	if method == "" {
		method = http.MethodGet
	}

	method = strings.ToUpper(method)

	bodyReader, contentType, err := buildBody(config["body"])
	if err != nil {
		return nil, models.NewValidationError("", err.Error())
	}

	timeout := defaultTimeoutSeconds * time.Second
	if secs, ok := config["timeout_seconds"].(float64); ok && secs > 0 {
		timeout = time.Duration(secs * float64(time.Second))
	}

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, method, url, bodyReader)
	if err != nil {
		return nil, models.NewValidationError("", fmt.Sprintf("failed to create http request: %v", err))
	}

	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	if headers, ok := config["headers"].(map[string]any); ok {
		for key, value := range headers {
			if str, ok := value.(string); ok {
				req.Header.Set(key, str)
			}
		}
	}

	logger.DebugContext(ctx, "Sending HTTP request", "method", method, "url", url)

	resp, err := a.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || reqCtx.Err() == context.DeadlineExceeded {
			return nil, models.NewTimeoutError("", fmt.Sprintf("http request timed out after %s", timeout))
		}

		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	output := map[string]any{
		"status":  resp.StatusCode,
		"headers": flattenHeaders(resp.Header),
		"body":    parseBody(raw, resp.Header.Get("Content-Type")),
	}

	// Server errors are recoverable so the engine's retry budget applies;
	// client errors are configuration problems and fail immediately.
	if resp.StatusCode >= http.StatusInternalServerError {
		return output, models.NewExecutionError("",
			fmt.Errorf("server error: status %d from %s", resp.StatusCode, url))
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return output, models.NewValidationError("",
			fmt.Sprintf("client error: status %d from %s", resp.StatusCode, url))
	}

	return output, nil
}

// buildBody turns the configured body into a reader. Maps and lists are
// marshalled as JSON, strings pass through verbatim.
func buildBody(body any) (io.Reader, string, error) {
	switch v := body.(type) {
	case nil:
		return nil, "", nil
	case string:
		if v == "" {
			return nil, "", nil
		}

		return strings.NewReader(v), "", nil
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, "", fmt.Errorf("failed to marshal request body: %w", err)
		}

		return strings.NewReader(string(data)), "application/json", nil
	}
}

// parseBody decodes a JSON response body, falling back to the raw string.
func parseBody(raw []byte, contentType string) any {
	if strings.Contains(contentType, "application/json") {
		var decoded any
		if err := json.Unmarshal(raw, &decoded); err == nil {
			return decoded
		}
	}

	return string(raw)
}

func flattenHeaders(header http.Header) map[string]any {
	out := make(map[string]any, len(header))
	for key := range header {
		out[key] = header.Get(key)
	}

	return out
}
