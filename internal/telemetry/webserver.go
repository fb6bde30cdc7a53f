package telemetry

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sigstream/sigstream/internal/logging"
)

// WebServer exposes telemetry history, live updates and metrics over HTTP.
type WebServer struct {
	srv *http.Server
	hub *Hub
	log logging.Logger

	upgrader websocket.Upgrader
}

// NewWebServer builds an HTTP server with the event, live and metrics
// endpoints. Metrics may be nil, in which case /metrics is not registered.
func NewWebServer(addr string, hub *Hub, metrics *Metrics, log logging.Logger) *WebServer {
	if log == nil {
		log = logging.Nop()
	}
	w := &WebServer{
		hub: hub,
		log: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/events", w.handleEvents)
	mux.HandleFunc("/api/live", w.handleLive)
	mux.HandleFunc("/ws", w.handleWS)
	if metrics != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{}))
	}

	w.srv = &http.Server{Addr: addr, Handler: mux}
	return w
}

// Start begins listening and shuts down when the context is canceled.
func (w *WebServer) Start(ctx context.Context) {
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := w.srv.Shutdown(shutdownCtx); err != nil {
			w.log.Warn("telemetry server shutdown", logging.F("err", err))
		}
	}()

	if err := w.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		w.log.Error("telemetry server failed", logging.F("err", err))
	}
}

func (w *WebServer) handleEvents(rw http.ResponseWriter, _ *http.Request) {
	rw.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(rw).Encode(w.hub.History())
}

// handleLive streams events as server-sent events, starting with the stored
// history for immediate display.
func (w *WebServer) handleLive(rw http.ResponseWriter, r *http.Request) {
	flusher, ok := rw.(http.Flusher)
	if !ok {
		http.Error(rw, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	rw.Header().Set("Content-Type", "text/event-stream")
	rw.Header().Set("Cache-Control", "no-cache")
	rw.Header().Set("Connection", "keep-alive")

	ch, cancel := w.hub.Subscribe()
	defer cancel()

	for _, ev := range w.hub.History() {
		writeSSE(rw, ev)
	}
	flusher.Flush()

	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return
			}
			writeSSE(rw, ev)
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}

func writeSSE(rw http.ResponseWriter, ev Event) {
	payload, _ := json.Marshal(ev)
	rw.Write([]byte("data: "))
	rw.Write(payload)
	rw.Write([]byte("\n\n"))
}

// handleWS streams live events over a websocket as JSON messages.
func (w *WebServer) handleWS(rw http.ResponseWriter, r *http.Request) {
	conn, err := w.upgrader.Upgrade(rw, r, nil)
	if err != nil {
		w.log.Warn("websocket upgrade failed", logging.F("err", err))
		return
	}
	defer conn.Close()

	ch, cancel := w.hub.Subscribe()
	defer cancel()

	// Drain the read side so close frames are processed.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()

	for ev := range ch {
		if err := conn.WriteJSON(ev); err != nil {
			return
		}
	}
}
