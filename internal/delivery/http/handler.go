package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/webshopd/shopnotify/internal/dispatch"
	"github.com/webshopd/shopnotify/internal/domain"
	"github.com/webshopd/shopnotify/internal/push"
	"github.com/webshopd/shopnotify/internal/realtime"
	"github.com/webshopd/shopnotify/internal/worker"
)

// Handler is the local control and status API.
type Handler struct {
	Realtime *realtime.Client
	Push     *push.Manager
	Bridge   *dispatch.Bridge
	Worker   *worker.Worker
}

func NewHandler(rt *realtime.Client, pm *push.Manager, bridge *dispatch.Bridge, w *worker.Worker) *Handler {
	return &Handler{Realtime: rt, Push: pm, Bridge: bridge, Worker: w}
}

func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	status := h.Realtime.Status()
	resp := map[string]any{
		"connection": map[string]any{
			"state":      status.State.String(),
			"attempts":   status.Attempts,
			"session_id": status.SessionID,
		},
		"live":            h.Bridge.Live(),
		"indicator":       h.Bridge.StatusText(),
		"push_subscribed": h.Push.IsSubscribed(),
		"worker":          h.Worker.CurrentState().String(),
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (h *Handler) HandleConnect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Token string `json:"token"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)
	if req.Token == "" {
		http.Error(w, "missing token", http.StatusBadRequest)
		return
	}
	if err := h.Realtime.Connect(req.Token); err != nil {
		var authErr *realtime.AuthError
		if errors.As(err, &authErr) {
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	if err := h.Bridge.Bind(); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) HandleDisconnect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	h.Realtime.Disconnect()
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) HandleSubscription(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var req struct {
			Token string `json:"token"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Token == "" {
			http.Error(w, "missing token", http.StatusBadRequest)
			return
		}
		record, err := h.Push.Subscribe(r.Context(), req.Token)
		switch {
		case errors.Is(err, domain.ErrUnsupportedPlatform):
			http.Error(w, err.Error(), http.StatusNotImplemented)
		case record == nil && err == nil:
			writeJSON(w, map[string]any{"subscribed": false, "reason": "permission not granted"})
		case err != nil && record != nil:
			// Local subscription exists; only the backend sync failed.
			w.WriteHeader(http.StatusBadGateway)
			writeJSON(w, map[string]any{"subscribed": true, "synced": false, "subscription": record})
		case err != nil:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		default:
			writeJSON(w, map[string]any{"subscribed": true, "synced": true, "subscription": record})
		}
	case http.MethodDelete:
		var req struct {
			Token string `json:"token"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		h.Push.Unsubscribe(r.Context(), req.Token)
		w.WriteHeader(http.StatusOK)
	case http.MethodGet:
		writeJSON(w, map[string]any{"subscribed": h.Push.IsSubscribed()})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) HandleSkipWaiting(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	h.Worker.Post(worker.ControlMessage{Type: worker.ControlSkipWaiting})
	w.WriteHeader(http.StatusOK)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func StartWebServer(handler *Handler, port int) {
	http.HandleFunc("/api/status", handler.HandleStatus)
	http.HandleFunc("/api/connect", handler.HandleConnect)
	http.HandleFunc("/api/disconnect", handler.HandleDisconnect)
	http.HandleFunc("/api/subscription", handler.HandleSubscription)
	http.HandleFunc("/api/worker/skip-waiting", handler.HandleSkipWaiting)

	addr := fmt.Sprintf(":%d", port)
	log.Printf("control API listening on http://localhost%s", addr)
	log.Fatal(http.ListenAndServe(addr, nil))
}
