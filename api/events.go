package api

import (
	"fmt"
	"net/http"
	"time"
)

// keepaliveInterval is how often an SSE comment is written so idle
// proxies don't drop the connection.
const keepaliveInterval = 15 * time.Second

// StreamEvents relays ledger change signals to the client as
// Server-Sent Events. Each signal becomes one "change" event; the
// payload is content-free and the client is expected to re-fetch.
// Subscription starts at connect time - there is no replay of earlier
// signals - and ends when the client disconnects.
func (h *Handler) StreamEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "Streaming unsupported", nil)
		return
	}

	signals, cancel := h.Events.Subscribe()
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	keepalive := time.NewTicker(keepaliveInterval)
	defer keepalive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-signals:
			fmt.Fprint(w, "event: change\ndata: {}\n\n")
			flusher.Flush()
		case <-keepalive.C:
			fmt.Fprint(w, ": keepalive\n\n")
			flusher.Flush()
		}
	}
}
