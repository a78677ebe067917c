package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/vadiminshakov/madao/internal/domain"
	"github.com/vadiminshakov/madao/internal/events"
	"github.com/vadiminshakov/madao/internal/store"
	"go.uber.org/zap"
)

const heartbeatInterval = 30 * time.Second

type stateReader interface {
	Snapshot() store.State
}

type pendingReader interface {
	Pending() []domain.PendingTxn
}

type notificationSource interface {
	Subscribe() chan events.Message
	Unsubscribe(ch chan events.Message)
}

// Server exposes the dapp state, pending transactions and user notifications over HTTP.
type Server struct {
	Addr          string
	State         stateReader
	Pending       pendingReader
	Notifications notificationSource
	Gatherer      prometheus.Gatherer
	l             *zap.Logger
}

// NewServer creates a new web server instance. A nil gatherer disables /metrics.
func NewServer(l *zap.Logger, addr string, state stateReader, pending pendingReader, notifications notificationSource, gatherer prometheus.Gatherer) *Server {
	return &Server{
		Addr:          addr,
		State:         state,
		Pending:       pending,
		Notifications: notifications,
		Gatherer:      gatherer,
		l:             l,
	}
}

// Handler routes all endpoints.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/api/state", s.handleState)
	mux.HandleFunc("/api/pending", s.handlePending)
	mux.HandleFunc("/api/events", s.handleEvents)
	if s.Gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(s.Gatherer, promhttp.HandlerOpts{}))
	}
	return mux
}

// Start runs the HTTP server (blocking) and shuts it down when ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	s.l.Info("web server listening", zap.String("addr", s.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, indexHTML)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	if s.State == nil {
		http.Error(w, "state not available", http.StatusServiceUnavailable)
		return
	}
	s.writeJSON(w, s.State.Snapshot())
}

func (s *Server) handlePending(w http.ResponseWriter, r *http.Request) {
	if s.Pending == nil {
		http.Error(w, "pending transactions not available", http.StatusServiceUnavailable)
		return
	}
	pending := s.Pending.Pending()
	if pending == nil {
		pending = []domain.PendingTxn{}
	}
	s.writeJSON(w, pending)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if s.Notifications == nil {
		http.Error(w, "notifications not available", http.StatusServiceUnavailable)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	// subscribe before headers go out so nothing published after the client connects is lost
	ch := s.Notifications.Subscribe()
	defer s.Notifications.Unsubscribe(ch)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	// send a comment heartbeat so proxies keep connection
	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprintf(w, ": ping\n\n")
			flusher.Flush()
		case msg, ok := <-ch:
			if !ok {
				return
			}
			payload, err := json.Marshal(msg)
			if err != nil {
				s.l.Error("failed to encode notification", zap.Error(err))
				continue
			}
			fmt.Fprintf(w, "event: %s\n", msg.Severity)
			fmt.Fprintf(w, "id: %s\n", msg.ID)
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
		}
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.l.Error("failed to write response", zap.Error(err))
	}
}

// Single page showing state, pending transactions and live notifications.
const indexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8" />
  <title>MADAO</title>
  <style>
    :root { --bg:#ffffff; --ink:#111111; --ink-soft:#9c9c9c; --panel:#f6f6f6; }
    * { box-sizing:border-box; }
    body { margin:0; padding:2rem; background:var(--bg); color:var(--ink); font-family:'Space Mono','JetBrains Mono',monospace; }
    #app { max-width:1100px; margin:0 auto; background:var(--panel); border:3px solid var(--ink); padding:2rem; box-shadow:12px 12px 0 rgba(0,0,0,.15); display:grid; grid-template-columns:1fr 320px; gap:2rem; }
    h1, h2 { margin:0 0 1rem; text-transform:uppercase; letter-spacing:.1em; }
    pre { margin:0; white-space:pre-wrap; font-size:.8rem; }
    .msg { border-left:4px solid var(--ink); padding:.25rem .5rem; margin-bottom:.5rem; font-size:.8rem; }
    .msg.error { border-color:#c0392b; }
    .soft { color:var(--ink-soft); }
  </style>
</head>
<body>
  <div id="app">
    <section>
      <h1>madao</h1>
      <pre id="state" class="soft">loading...</pre>
    </section>
    <aside>
      <h2>pending</h2>
      <pre id="pending" class="soft">none</pre>
      <h2>messages</h2>
      <div id="messages"></div>
    </aside>
  </div>
  <script>
    async function refresh() {
      const [state, pending] = await Promise.all([
        fetch('/api/state').then(r => r.json()),
        fetch('/api/pending').then(r => r.json()),
      ]);
      document.getElementById('state').textContent = JSON.stringify(state, null, 2);
      document.getElementById('pending').textContent = pending.length
        ? pending.map(p => p.text + ' ' + p.txnHash).join('\n')
        : 'none';
    }
    function show(ev) {
      const msg = JSON.parse(ev.data);
      const el = document.createElement('div');
      el.className = 'msg ' + msg.severity;
      el.textContent = msg.text;
      document.getElementById('messages').prepend(el);
      refresh();
    }
    const stream = new EventSource('/api/events');
    stream.addEventListener('info', show);
    stream.addEventListener('error', show);
    refresh();
    setInterval(refresh, 5000);
  </script>
</body>
</html>`
