package wschannel

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/nextlevelbuilder/orchhub/internal/bus"
)

// pingInterval is the server-initiated keepalive cadence (§4.10).
const pingInterval = 60 * time.Second

// authTimeout bounds how long a freshly connected session has to send its
// auth frame before the server closes with 1008.
const authTimeout = 20 * time.Second

// greetingDedupWindow suppresses a duplicate greeting on fast reconnects.
const greetingDedupWindow = 5 * time.Second

// frame is the wire shape for every message exchanged over the socket.
// Fields are a union of all frame kinds; unused ones are omitted.
type frame struct {
	Type      string          `json:"type"`
	ID        string          `json:"id,omitempty"`
	Token     string          `json:"token,omitempty"`
	UserID    string          `json:"userId,omitempty"`
	Content   string          `json:"content,omitempty"`
	MessageID string          `json:"messageId,omitempty"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	Timestamp int64           `json:"timestamp,omitempty"`
}

const (
	frameConnected      = "connected"
	frameAuth           = "auth"
	frameAuthSuccess    = "auth_success"
	framePing           = "ping"
	framePong           = "pong"
	frameMessage        = "message"
	frameMessageReceived = "message_received"
)

// Inbound is a normalized message handed to the Processor once a session
// frame has been authenticated and classified as a user message.
type Inbound struct {
	UserID          string
	WebsiteID       string // channel_config_id
	FlowID          string
	Content         string
	ClientMessageID string
}

// Processor runs one conversational turn for a webchat message. Narrow
// interface mirroring ingress.Processor, so wschannel does not depend on
// the concrete orchestrator wiring (§9 Design notes).
type Processor interface {
	ProcessTurn(ctx context.Context, in Inbound) (string, error)
}

// GreetingResolver looks up the greeting text for a newly started
// conversation, by flow id if present, else by channel (website) id.
type GreetingResolver interface {
	Resolve(ctx context.Context, flowID, websiteID string) (string, bool, error)
}

// HasHistory reports whether a conversation already has prior messages —
// used to decide whether a greeting is owed.
type HasHistory interface {
	HasPriorMessages(ctx context.Context, websiteID, userID string) (bool, error)
}

// Session is one authenticated (or authenticating) WebSocket connection.
// Grounded on the teacher's gateway.Client, rebuilt since the teacher's
// own client.go was not present in the retrieved copy of the repo.
type Session struct {
	id     string
	conn   *websocket.Conn
	server *Server

	mu            sync.Mutex
	authenticated bool
	userID        string
	websiteID     string
	flowID        string

	send chan frame
	done chan struct{}
}

func newSession(conn *websocket.Conn, server *Server) *Session {
	return &Session{
		id:     uuid.NewString(),
		conn:   conn,
		server: server,
		send:   make(chan frame, 32),
		done:   make(chan struct{}),
	}
}

// Run drives the session's lifecycle: handshake, auth wait, read/write
// pumps, keepalive. It blocks until the connection closes.
func (s *Session) Run(ctx context.Context) {
	defer close(s.done)

	s.writeFrame(frame{Type: frameConnected, ID: s.id})

	go s.writePump()

	authCtx, cancel := context.WithTimeout(ctx, authTimeout)
	defer cancel()
	if !s.awaitAuth(authCtx) {
		s.closeWithCode(websocket.ClosePolicyViolation, "Authentication timeout")
		return
	}

	s.readPump(ctx)
}

func (s *Session) awaitAuth(ctx context.Context) bool {
	type result struct {
		f   frame
		err error
	}
	got := make(chan result, 1)
	go func() {
		var f frame
		err := s.conn.ReadJSON(&f)
		got <- result{f, err}
	}()

	select {
	case <-ctx.Done():
		return false
	case r := <-got:
		if r.err != nil || r.f.Type != frameAuth {
			return false
		}
		claims, err := s.server.verifier.Verify(r.f.Token)
		if err != nil {
			slog.Info("wschannel.auth_failed", "session", s.id, "error", err)
			return false
		}
		s.mu.Lock()
		s.authenticated = true
		s.userID = claims.UserID
		s.websiteID = claims.WebsiteID
		s.flowID = claims.FlowID
		s.mu.Unlock()

		s.writeFrame(frame{Type: frameAuthSuccess, UserID: claims.UserID})
		s.maybeSendGreeting(ctx)
		return true
	}
}

func (s *Session) maybeSendGreeting(ctx context.Context) {
	if s.server.greetings == nil || s.server.history == nil {
		return
	}
	s.mu.Lock()
	websiteID, flowID, userID := s.websiteID, s.flowID, s.userID
	s.mu.Unlock()

	if s.server.recentlyGreeted(websiteID, userID) {
		return
	}

	hasHistory, err := s.server.history.HasPriorMessages(ctx, websiteID, userID)
	if err != nil || hasHistory {
		return
	}
	greeting, ok, err := s.server.greetings.Resolve(ctx, flowID, websiteID)
	if err != nil || !ok || greeting == "" {
		return
	}
	s.server.markGreeted(websiteID, userID)
	s.writeFrame(frame{Type: frameMessage, Content: greeting, Timestamp: time.Now().UnixMilli()})
}

func (s *Session) readPump(ctx context.Context) {
	for {
		var f frame
		if err := s.conn.ReadJSON(&f); err != nil {
			s.classifyClose(err)
			return
		}
		s.handleFrame(ctx, f)
	}
}

func (s *Session) handleFrame(ctx context.Context, f frame) {
	switch f.Type {
	case framePing:
		s.writeFrame(frame{Type: framePong})
	case framePong:
		// client answering our keepalive; nothing to do.
	case frameMessage:
		s.handleMessage(ctx, f)
	default:
		slog.Debug("wschannel.unknown_frame", "session", s.id, "type", f.Type)
	}
}

func (s *Session) handleMessage(ctx context.Context, f frame) {
	s.writeFrame(frame{Type: frameMessageReceived, MessageID: f.MessageID})

	s.mu.Lock()
	userID, websiteID, flowID := s.userID, s.websiteID, s.flowID
	s.mu.Unlock()

	if s.server.processor == nil {
		return
	}
	go func() {
		content, err := s.server.processor.ProcessTurn(ctx, Inbound{
			UserID:          userID,
			WebsiteID:       websiteID,
			FlowID:          flowID,
			Content:         f.Content,
			ClientMessageID: f.MessageID,
		})
		if err != nil {
			slog.Error("wschannel.process_turn_failed", "session", s.id, "error", err)
			content = "Sorry, an error occurred processing your message, please try again."
		}
		s.writeFrame(frame{Type: frameMessage, Content: content, Timestamp: time.Now().UnixMilli()})
	}()
}

// writePump serializes all writes through the send channel so concurrent
// goroutines (read pump, keepalive ticker, async turn replies) never race
// on the underlying connection.
func (s *Session) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case f, ok := <-s.send:
			if !ok {
				return
			}
			if err := s.conn.WriteJSON(f); err != nil {
				return
			}
		case <-ticker.C:
			if err := s.conn.WriteJSON(frame{Type: framePing}); err != nil {
				return
			}
		}
	}
}

func (s *Session) writeFrame(f frame) {
	select {
	case s.send <- f:
	case <-s.done:
	}
}

// SendEvent pushes a server-side bus event down to this session, used by
// Server.BroadcastEvent.
func (s *Session) SendEvent(event bus.Event) {
	payload, _ := json.Marshal(event.Payload)
	s.writeFrame(frame{Type: event.Name, Metadata: payload, Timestamp: time.Now().UnixMilli()})
}

func (s *Session) closeWithCode(code int, reason string) {
	msg := websocket.FormatCloseMessage(code, reason)
	_ = s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	_ = s.conn.Close()
}

// classifyClose logs a close per the §4.10 severity table: 1000/1001
// normal, 1006-while-unauthenticated debug, 1008 info, others error.
func (s *Session) classifyClose(err error) {
	code := websocket.CloseNoStatusReceived
	if ce, ok := err.(*websocket.CloseError); ok {
		code = ce.Code
	}

	s.mu.Lock()
	authenticated := s.authenticated
	s.mu.Unlock()

	switch {
	case code == websocket.CloseNormalClosure || code == websocket.CloseGoingAway:
		slog.Debug("wschannel.closed", "session", s.id, "code", code)
	case code == websocket.CloseAbnormalClosure && !authenticated:
		slog.Debug("wschannel.closed_tab", "session", s.id, "code", code)
	case code == websocket.ClosePolicyViolation:
		slog.Info("wschannel.auth_timeout", "session", s.id, "code", code)
	default:
		slog.Error("wschannel.closed_with_error", "session", s.id, "code", code, "error", err)
	}
}
