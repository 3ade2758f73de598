package toolruntime

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/nextlevelbuilder/orchhub/internal/httpx"
	"github.com/nextlevelbuilder/orchhub/internal/store"
)

// executeREST calls the declarative HTTP endpoint from def.ImplParams
// (method, url, headers), substituting args as the JSON request body for
// non-GET methods (§4.7 rest kind), using the shared TLS>=1.2/60s client
// (internal/httpx).
func executeREST(ctx context.Context, def *store.ToolDefinition, client *http.Client, args map[string]any) *Result {
	method, _ := def.ImplParams["method"].(string)
	if method == "" {
		method = http.MethodGet
	}
	url, _ := def.ImplParams["url"].(string)
	if url == "" {
		return ErrorResult("rest tool has no configured url")
	}

	var body io.Reader
	if !strings.EqualFold(method, http.MethodGet) && !strings.EqualFold(method, http.MethodHead) {
		encoded, err := json.Marshal(args)
		if err != nil {
			return ErrorResult(fmt.Sprintf("rest tool: %v", err)).WithError(err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, strings.ToUpper(method), url, body)
	if err != nil {
		return ErrorResult(fmt.Sprintf("rest tool: %v", err)).WithError(err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if headers, ok := def.ImplParams["headers"].(map[string]any); ok {
		for k, v := range headers {
			if s, ok := v.(string); ok {
				req.Header.Set(k, s)
			}
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return ErrorResult(fmt.Sprintf("rest call failed: %v", err)).WithError(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return ErrorResult(fmt.Sprintf("rest tool: %v", err)).WithError(err)
	}
	if resp.StatusCode >= 400 {
		return ErrorResult(fmt.Sprintf("rest call returned %d: %s", resp.StatusCode, respBody))
	}
	return NewResult(string(respBody))
}

// NewRESTClient is a thin alias kept so callers don't need to import httpx
// directly just to build a REST dispatcher.
func NewRESTClient() *http.Client { return httpx.NewProviderClient() }
