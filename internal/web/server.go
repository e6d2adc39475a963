// Package web serves a single-page chat frontend. Each browser tab opens one
// websocket and gets its own session.
package web

import (
	"context"
	"embed"
	"errors"
	"io/fs"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mwiater/compliance-agent/internal/logging"
	"github.com/mwiater/compliance-agent/internal/session"
)

//go:embed static
var staticFiles embed.FS

const shutdownTimeout = 5 * time.Second

// Request is one message sent by the page.
type Request struct {
	Month int    `json:"month"`
	Year  int    `json:"year"`
	Query string `json:"query"`
}

// Reply is the server's answer to a Request.
type Reply struct {
	Status string `json:"status"`
	Answer string `json:"answer"`
}

// Server hosts the page and the /ws endpoint.
type Server struct {
	addr     string
	build    session.Factory
	upgrader websocket.Upgrader
}

// NewServer returns a Server listening on addr. build creates the runner for
// every session the server opens.
func NewServer(addr string, build session.Factory) *Server {
	return &Server{
		addr:  addr,
		build: build,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Addr returns the configured listen address.
func (s *Server) Addr() string { return s.addr }

// Handler returns the HTTP routes: the page at / and the websocket at /ws.
func (s *Server) Handler() http.Handler {
	static, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(err)
	}
	mux := http.NewServeMux()
	mux.Handle("/", http.FileServer(http.FS(static)))
	mux.HandleFunc("/ws", s.serveWS)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

// ListenAndServe runs the server until ctx is canceled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.LogEvent("web frontend listening on http://%s", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.LogEvent("ws upgrade: %v", err)
		return
	}
	defer conn.Close()

	sess := session.New(s.build)
	ctx := r.Context()
	for {
		var req Request
		if err := conn.ReadJSON(&req); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logging.LogEvent("ws read: %v", err)
			}
			return
		}
		status, answer := sess.Process(ctx, req.Month, req.Year, req.Query)
		if err := conn.WriteJSON(Reply{Status: status, Answer: answer}); err != nil {
			logging.LogEvent("ws write: %v", err)
			return
		}
	}
}
