package http

import (
	"net/http"

	"github.com/msilvprog7/receipt/internal/core"
	applog "github.com/msilvprog7/receipt/internal/log"
)

// indexData feeds the index template. User and Receipts are zero for
// the anonymous view.
type indexData struct {
	Authenticated bool
	User          core.User
	Receipts      []core.Receipt
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	user, err := s.currentUser(r)
	if err != nil {
		// Auth failures fall back to the anonymous page, never an error.
		s.render(w, r, "index.html", indexData{})
		return
	}
	s.render(w, r, "index.html", indexData{
		Authenticated: true,
		User:          user,
		Receipts:      s.receipts.All(user.ID),
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if _, err := s.currentUser(r); err == nil {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	sess := s.sessions.Load(w, r)
	redirect, err := s.flow.Begin(sess)
	if err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Failed to begin authorization", applog.FieldError, err)
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	http.Redirect(w, r, redirect, http.StatusFound)
}

// handleCallback completes the authorization-code dance. Whatever the
// outcome, the browser goes back to the index; failures stay in the log.
func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.Load(w, r)
	state := r.URL.Query().Get("state")
	code := r.URL.Query().Get("code")

	if err := s.flow.Complete(r.Context(), sess, state, code); err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Failed to complete authorization", applog.FieldError, err)
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if sess, ok := s.sessions.Get(r); ok {
		if err := s.flow.End(sess); err != nil {
			applog.FromContext(r.Context()).ErrorContext(r.Context(), "Failed to destroy session", applog.FieldError, err)
		}
	}
	s.sessions.ClearCookie(w)
	http.Redirect(w, r, "/", http.StatusFound)
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	user, err := s.currentUser(r)
	if err != nil {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	s.render(w, r, "settings.html", indexData{Authenticated: true, User: user})
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	if s.templates == nil {
		http.Error(w, "templates unavailable", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Failed rendering template", "template", name, applog.FieldError, err)
	}
}
