package wschannel

import (
	"net/http"
	"testing"
)

func TestCheckOrigin_NoAllowlistAllowsAll(t *testing.T) {
	s := NewServer(Config{})
	req := &http.Request{Header: http.Header{"Origin": []string{"https://evil.example"}}}
	if !s.checkOrigin(req) {
		t.Fatal("expected no-allowlist to permit any origin")
	}
}

func TestCheckOrigin_AllowlistRejectsUnknown(t *testing.T) {
	s := NewServer(Config{AllowedOrigins: []string{"https://widget.example"}})
	req := &http.Request{Header: http.Header{"Origin": []string{"https://evil.example"}}}
	if s.checkOrigin(req) {
		t.Fatal("expected rejection of non-allowlisted origin")
	}
}

func TestCheckOrigin_AllowlistAcceptsMatch(t *testing.T) {
	s := NewServer(Config{AllowedOrigins: []string{"https://widget.example"}})
	req := &http.Request{Header: http.Header{"Origin": []string{"https://widget.example"}}}
	if !s.checkOrigin(req) {
		t.Fatal("expected acceptance of allowlisted origin")
	}
}

func TestCheckOrigin_EmptyOriginAllowed(t *testing.T) {
	s := NewServer(Config{AllowedOrigins: []string{"https://widget.example"}})
	req := &http.Request{Header: http.Header{}}
	if !s.checkOrigin(req) {
		t.Fatal("expected empty Origin header (non-browser client) to be allowed")
	}
}

func TestGreetDedup_SuppressesWithinWindow(t *testing.T) {
	s := NewServer(Config{})
	if s.recentlyGreeted("site-1", "user-1") {
		t.Fatal("should not be greeted yet")
	}
	s.markGreeted("site-1", "user-1")
	if !s.recentlyGreeted("site-1", "user-1") {
		t.Fatal("expected dedup window to suppress a second greeting")
	}
	if s.recentlyGreeted("site-1", "user-2") {
		t.Fatal("dedup key should be scoped per user")
	}
}
