package handlers

import (
	"fmt"
	"net/http"
	"time"
)

const keepAliveInterval = 30 * time.Second

func (h *Handler) ListRecent(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.recent.List(r.Context()))
}

func (h *Handler) ForgetRecent(w http.ResponseWriter, r *http.Request) {
	id, ok := showID(r)
	if !ok {
		writeMessage(w, http.StatusBadRequest, "invalid show id")
		return
	}
	writeJSON(w, http.StatusOK, h.recent.Remove(r.Context(), id))
}

func (h *Handler) ClearRecent(w http.ResponseWriter, r *http.Request) {
	h.recent.Clear(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// RecentEvents streams one "change" event each time another context rewrites
// the recently visited list.
func (h *Handler) RecentEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeMessage(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	changes := make(chan struct{}, 1)
	unsubscribe := h.recent.Subscribe(func() {
		select {
		case changes <- struct{}{}:
		default:
		}
	})
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprint(w, ": subscribed\n\n")
	flusher.Flush()

	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-changes:
			if _, err := fmt.Fprint(w, "event: change\ndata: {}\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
