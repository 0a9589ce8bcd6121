// Package http wires the receipt application to the outside world: the
// OAuth login pages, the receipt JSON API and the static/templated UI.
// It owns status-code mapping; the auth and store layers only return
// sentinel errors.
package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/msilvprog7/receipt/internal/auth"
	"github.com/msilvprog7/receipt/internal/core"
	"github.com/msilvprog7/receipt/internal/events"
	applog "github.com/msilvprog7/receipt/internal/log"
	"github.com/msilvprog7/receipt/internal/session"
	"github.com/msilvprog7/receipt/internal/store"
	appweb "github.com/msilvprog7/receipt/web"
)

type Server struct {
	http.Server

	templates *template.Template

	flow      *auth.Flow
	sessions  *session.Store
	receipts  *store.Owned[core.Receipt]
	publisher events.Publisher

	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run
// server. The receipt store and event publisher are injected; nothing
// here owns process-wide state.
func NewServer(addr string, flow *auth.Flow, sessions *session.Store, receipts *store.Owned[core.Receipt], publisher events.Publisher) *Server {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}

	s := &Server{
		flow:      flow,
		sessions:  sessions,
		receipts:  receipts,
		publisher: publisher,
	}

	// Parse embedded templates at startup.
	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		slog.Warn("Failed parsing templates", "error", err)
	}
	s.templates = t

	r := chi.NewRouter()
	r.Use(s.requestLog)
	r.Use(secureHeaders)

	// Static assets from the embedded FS.
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/public/", http.FileServer(http.FS(sub)))
		r.Handle("/public/*", http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			w.Header().Set("Cache-Control", "public, max-age=3600, immutable")
			static.ServeHTTP(w, req)
		}))
	} else {
		slog.Warn("Failed to mount embedded static FS", "error", err)
	}

	r.Get("/", s.handleIndex)
	r.Get("/login", s.handleLogin)
	r.Get("/login/facebook", s.handleCallback)
	r.Get("/logout", s.handleLogout)
	r.Get("/settings", s.handleSettings)
	r.Get("/healthz", handleHealth)
	r.Get("/readyz", handleReady)

	r.Route("/api/v1/receipts", func(r chi.Router) {
		r.Use(s.requireUser)
		r.Post("/", s.handleCreateReceipt)
		r.Get("/", s.handleListReceipts)
		r.Get("/{id}", s.handleGetReceipt)
		r.Put("/{id}", s.handleEditReceipt)
		r.Delete("/{id}", s.handleRemoveReceipt)
	})

	s.Server = http.Server{Addr: addr, Handler: r}
	return s
}

// Shutdown stops the HTTP listener; safe to call more than once.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		err = s.Server.Shutdown(ctx)
	})
	return err
}

// requestLog tags every request with an id and logs start/completion.
// Handlers pull the request-scoped logger back out with log.FromContext.
func (s *Server) requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := r.Header.Get("X-Forwarded-For")
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}
		requestID := generateRequestID()
		logger := applog.New(applog.ComponentHTTP).With(applog.FieldRequestID, requestID)
		ctx := applog.IntoContext(r.Context(), logger)
		r = r.WithContext(ctx)

		logger.InfoContext(ctx, "Request started",
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path,
			applog.FieldClientIP, clientIP)

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		logger.InfoContext(ctx, "Request completed",
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path,
			applog.FieldStatus, rw.statusCode,
			applog.FieldDuration, time.Since(start).Milliseconds())
	})
}

func secureHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

type contextKey string

const userKey contextKey = "user"

// requireUser resolves the request's identity and rejects the request
// with 401 when it cannot. The resolved user rides in the context.
func (s *Server) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := s.currentUser(r)
		if err != nil {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		ctx := context.WithValue(r.Context(), userKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// currentUser resolves the session's identity against the provider.
func (s *Server) currentUser(r *http.Request) (core.User, error) {
	sess, ok := s.sessions.Get(r)
	if !ok {
		return core.User{}, core.ErrNoToken
	}
	return s.flow.ResolveIdentity(r.Context(), sess)
}

func userFrom(ctx context.Context) core.User {
	user, _ := ctx.Value(userKey).(core.User)
	return user
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// generateRequestID creates a unique request ID for tracing.
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}
