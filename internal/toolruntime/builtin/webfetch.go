// Package builtin provides stock code-kind handlers for a
// toolruntime.Registry; they are registered only by a caller of
// Registry.Register, and nothing in orchhub registers them. Adapted from the teacher's
// internal/tools web_fetch/web_search/shell handlers into the simpler
// Handler shape (no managed-mode sandbox/virtual-FS routing, since orchhub
// has no per-user workspace concept — every call runs host-side).
package builtin

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/nextlevelbuilder/orchhub/internal/toolruntime"
)

const (
	defaultFetchMaxChars = 50000
	fetchTimeoutSeconds  = 30
	fetchUserAgent       = "orchhub-tool-fetch/1.0"
)

// WebFetch implements the "web_fetch" code tool: fetch a URL and return its
// body, truncated to maxChars.
type WebFetch struct {
	client   *http.Client
	maxChars int
}

func NewWebFetch(maxChars int) *WebFetch {
	if maxChars <= 0 {
		maxChars = defaultFetchMaxChars
	}
	return &WebFetch{
		client:   &http.Client{Timeout: fetchTimeoutSeconds * time.Second},
		maxChars: maxChars,
	}
}

func (t *WebFetch) Name() string { return "web_fetch" }

func (t *WebFetch) Execute(ctx context.Context, args map[string]any) *toolruntime.Result {
	rawURL, _ := args["url"].(string)
	if rawURL == "" {
		return toolruntime.ErrorResult("url is required")
	}
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return toolruntime.ErrorResult("url must be http or https")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return toolruntime.ErrorResult(fmt.Sprintf("web_fetch: %v", err)).WithError(err)
	}
	req.Header.Set("User-Agent", fetchUserAgent)

	resp, err := t.client.Do(req)
	if err != nil {
		return toolruntime.ErrorResult(fmt.Sprintf("fetch failed: %v", err)).WithError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, int64(t.maxChars)+1))
	if err != nil {
		return toolruntime.ErrorResult(fmt.Sprintf("web_fetch: %v", err)).WithError(err)
	}
	text := string(body)
	if len(text) > t.maxChars {
		text = text[:t.maxChars]
	}
	if resp.StatusCode >= 400 {
		return toolruntime.ErrorResult(fmt.Sprintf("fetch returned %d: %s", resp.StatusCode, text))
	}
	return toolruntime.NewResult(text)
}
