package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/nextlevelbuilder/orchhub/internal/store"
)

// WidgetConfigHandler backs `GET /api/widgets/{widgetKey}/config` (§6):
// public, CORS-open render config for the in-browser webchat widget
// script (the script itself is the admin-owned static surface named in
// §1's Non-goals; this endpoint is the hub's side of that contract).
type WidgetConfigHandler struct {
	Channels store.ChannelConfigStore
}

type widgetConfigResponse struct {
	WidgetKey string            `json:"widgetKey"`
	Active    bool              `json:"active"`
	Render    map[string]string `json:"render"`
}

func (h *WidgetConfigHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Access-Control-Allow-Origin", "*")

	widgetKey := r.PathValue("widgetKey")
	if widgetKey == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	cfg, err := h.Channels.FindByPrimaryKey(r.Context(), "webchat", widgetKey)
	if err != nil {
		slog.Error("http.widget_config.lookup_failed", "widgetKey", widgetKey, "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	if cfg == nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(widgetConfigResponse{
		WidgetKey: widgetKey,
		Active:    cfg.Active,
		Render:    cfg.Addressing,
	})
}
