// Package control serves the local HTTP and websocket API used by hotkey
// daemons, editor plugins, and the desktop shell.
package control

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// Server routes control requests to the session coordinator.
type Server struct {
	hub     *Hub
	history History
	token   string
	logger  *slog.Logger
}

// NewServer builds a server. The controller may be attached later through
// the hub; history may be nil.
func NewServer(hub *Hub, history History, token string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Server{hub: hub, history: history, token: token, logger: logger}
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(s.logRequests)
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(s.rejectCrossOrigin)
		r.Use(s.authenticate)

		r.Get("/status", s.status)
		r.Get("/history", s.listHistory)
		r.Get("/ws", s.hub.ServeHTTP)

		r.Route("/ptt", func(r chi.Router) {
			r.Post("/down", s.command(CommandPTTDown))
			r.Post("/up", s.command(CommandPTTUp))
		})

		r.Route("/preview", func(r chi.Router) {
			r.Get("/", s.preview)
			r.Put("/text", s.editText)
			r.Post("/accept", s.command(CommandAccept))
			r.Post("/copy", s.command(CommandCopy))
			r.Post("/cancel", s.command(CommandCancel))
			r.Post("/rerecord", s.command(CommandReRecord))
			r.Post("/undo", s.command(CommandUndo))
			r.Post("/redo", s.command(CommandRedo))
		})
	})
	return r
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, listener)
}

func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("control server listening", "addr", listener.Addr().String())
		errCh <- srv.Serve(listener)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.hub.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown control server: %w", err)
	}
	return nil
}

func (s *Server) command(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.run(w, r, name, "")
	}
}

func (s *Server) editText(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	s.run(w, r, CommandEdit, req.Text)
}

func (s *Server) run(w http.ResponseWriter, r *http.Request, name string, text string) {
	ctrl := s.hub.controller()
	if ctrl == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "not ready"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), commandLimit)
	defer cancel()
	if err := dispatch(ctx, ctrl, name, text); err != nil {
		writeJSON(w, statusCode(err), map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, ctrl.Status())
}

func (s *Server) status(w http.ResponseWriter, _ *http.Request) {
	ctrl := s.hub.controller()
	if ctrl == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "not ready"})
		return
	}
	writeJSON(w, http.StatusOK, ctrl.Status())
}

func (s *Server) preview(w http.ResponseWriter, _ *http.Request) {
	ctrl := s.hub.controller()
	if ctrl == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "not ready"})
		return
	}
	view, ok := ctrl.Preview()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no preview is open"})
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) listHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "journal disabled"})
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 20
	}

	entries, err := s.history.List(r.Context(), limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"sessions": entries, "count": len(entries)})
}

// authenticate accepts "Authorization: Bearer <token>" or, for browser
// websockets, a token query parameter.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.token == "" {
			next.ServeHTTP(w, r)
			return
		}
		presented := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if presented == "" || presented == r.Header.Get("Authorization") {
			presented = r.URL.Query().Get("token")
		}
		if subtle.ConstantTimeCompare([]byte(presented), []byte(s.token)) != 1 {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("control request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", chimiddleware.GetReqID(r.Context()),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
