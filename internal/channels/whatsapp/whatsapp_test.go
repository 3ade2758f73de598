package whatsapp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNormalizeUserID(t *testing.T) {
	cases := map[string]string{
		"+593987654321":       "593987654321",
		"593987654321@c.us":   "593987654321",
		"  +1 555 0100@c.us":  "1 555 0100",
	}
	for in, want := range cases {
		if got := NormalizeUserID(in); got != want {
			t.Errorf("NormalizeUserID(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSend_UnknownProviderErrors(t *testing.T) {
	ch := New(func(ctx context.Context, userID string) (Credentials, error) {
		return Credentials{Provider: "bogus"}, nil
	})
	if err := ch.Send(context.Background(), "593987654321@c.us", "hola"); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestSend_ResolveErrorPropagates(t *testing.T) {
	wantErr := "no instance configured"
	ch := New(func(ctx context.Context, userID string) (Credentials, error) {
		return Credentials{}, errString(wantErr)
	})
	err := ch.Send(context.Background(), "593987654321@c.us", "hola")
	if err == nil {
		t.Fatal("expected resolve error to propagate")
	}
}

type errString string

func (e errString) Error() string { return string(e) }

func TestSend_UltramsgHitsInstanceEndpoint(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ch := New(func(ctx context.Context, userID string) (Credentials, error) {
		return Credentials{Provider: ProviderUltramsg, InstanceID: "148415", Token: "tok"}, nil
	})
	ch.ultramsgBaseURL = srv.URL

	if err := ch.Send(context.Background(), "593987654321@c.us", "hola"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if gotPath != "/148415/messages/chat" {
		t.Fatalf("unexpected path: %s", gotPath)
	}
}

func TestStartStop_TogglesRunning(t *testing.T) {
	ch := New(func(ctx context.Context, userID string) (Credentials, error) {
		return Credentials{}, nil
	})
	if ch.IsRunning() {
		t.Fatal("should not be running before Start")
	}
	if err := ch.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if !ch.IsRunning() {
		t.Fatal("expected running after Start")
	}
	if err := ch.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if ch.IsRunning() {
		t.Fatal("expected stopped after Stop")
	}
}
