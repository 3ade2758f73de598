package main

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/nextlevelbuilder/orchhub/internal/mcp"
	"github.com/nextlevelbuilder/orchhub/internal/wschannel"
)

type webchatAuthRequest struct {
	UserID    string `json:"userId"`
	WebsiteID string `json:"websiteId"`
	FlowID    string `json:"flowId,omitempty"`
}

type webchatAuthResponse struct {
	Token string `json:"token"`
}

// webchatAuthHandler issues the short-lived bearer token the widget sends
// in its auth frame (§4.10, §6 `POST /api/v1/webchat/auth`).
func webchatAuthHandler(jwtSecret string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		var req webchatAuthRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if req.UserID == "" || req.WebsiteID == "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		token, err := wschannel.IssueToken(jwtSecret, req.UserID, req.WebsiteID, req.FlowID)
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(webchatAuthResponse{Token: token})
	}
}

type healthComponents struct {
	API       bool `json:"api"`
	Database  bool `json:"database"`
	Redis     bool `json:"redis"`
	McpServer bool `json:"mcpServer"`
}

type healthResponse struct {
	Status     string           `json:"status"`
	Components healthComponents `json:"components"`
}

// healthHandler backs `GET /health` (§6): reports the aggregate readiness
// of the database, cache/queue backend, and configured MCP servers.
func healthHandler(pool *pgxpool.Pool, redisClient *redis.Client, mcpMgr *mcp.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		c := healthComponents{
			API:       true,
			Database:  pool.Ping(ctx) == nil,
			Redis:     redisClient.Ping(ctx).Err() == nil,
			McpServer: mcpMgr.Healthy(),
		}
		resp := healthResponse{Status: "ok", Components: c}
		code := http.StatusOK
		if !c.Database || !c.Redis || !c.McpServer {
			resp.Status = "degraded"
			code = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(resp)
	}
}
