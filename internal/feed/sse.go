package feed

import (
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// KeepAlive is the interval between SSE comment lines on an idle stream.
var KeepAlive = 15 * time.Second

// Handler streams the feed as text/event-stream. Clients resume with
// Last-Event-ID.
func (f *Feed) Handler() http.Handler {
	return http.HandlerFunc(f.serveSSE)
}

func (f *Feed) serveSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	// Streams outlive the server's write timeout.
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	// Subscribe before the snapshot so nothing published in between is lost.
	ch, cancel := f.Subscribe()
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	lastID := parseLastEventID(r.Header.Get("Last-Event-ID"))
	for _, e := range f.Since(lastID) {
		if err := writeSSE(w, e); err != nil {
			return
		}
		lastID = e.ID
	}
	flusher.Flush()

	keepAlive := time.NewTicker(KeepAlive)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case e, ok := <-ch:
			if !ok {
				return
			}
			if e.ID <= lastID {
				continue
			}
			if err := writeSSE(w, e); err != nil {
				return
			}
			lastID = e.ID
			flusher.Flush()
		case <-keepAlive.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func parseLastEventID(v string) int64 {
	if v == "" {
		return 0
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func writeSSE(w http.ResponseWriter, e Entry) error {
	// Data is single-line JSON.
	_, err := fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", e.ID, e.Kind, e.Data)
	return err
}
