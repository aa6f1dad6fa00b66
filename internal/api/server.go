package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/rollcall/internal/auth"
	"github.com/Kerhoff/rollcall/internal/models"
	"github.com/Kerhoff/rollcall/internal/repository"
	"github.com/Kerhoff/rollcall/internal/service"
)

const sessionCookieName = "rollcall_session"

// Observer receives one call per served request
type Observer interface {
	ObserveRequest(route, method string, status int, elapsed time.Duration)
}

// Options tune the server. The zero value is usable.
type Options struct {
	// CookieTTL is the lifetime of the session cookie
	CookieTTL time.Duration
	// SecureCookies marks the session cookie Secure (HTTPS deployments)
	SecureCookies bool
	// Observer records request metrics; nil disables it
	Observer Observer
	// AuthLimiter throttles sign-in, sign-up and password reset per client IP
	AuthLimiter *IPRateLimiter
}

// Server serves the HTML views and the small JSON API.
type Server struct {
	svc    *service.Service
	logger *logrus.Logger
	mux    *http.ServeMux
	pages  map[string]*template.Template
	opts   Options
	now    func() time.Time
}

// NewServer creates a Server, registers all routes, and returns it.
func NewServer(svc *service.Service, logger *logrus.Logger, opts Options) (*Server, error) {
	pages, err := loadTemplates()
	if err != nil {
		return nil, err
	}
	if opts.CookieTTL <= 0 {
		opts.CookieTTL = 7 * 24 * time.Hour
	}
	if opts.AuthLimiter == nil {
		opts.AuthLimiter = NewIPRateLimiter(20, 10)
	}

	s := &Server{
		svc:    svc,
		logger: logger,
		mux:    http.NewServeMux(),
		pages:  pages,
		opts:   opts,
		now:    time.Now,
	}
	s.routes()
	return s, nil
}

// Handler returns the http.Handler that can be passed to http.Server.
func (s *Server) Handler() http.Handler {
	return s.accessLog(s.mux)
}

// ---------------------------------------------------------------------------
// Routes
// ---------------------------------------------------------------------------

func (s *Server) routes() {
	limited := s.opts.AuthLimiter.Middleware

	// Account
	s.mux.HandleFunc("GET /login", s.handleLoginPage)
	s.mux.Handle("POST /login", limited(http.HandlerFunc(s.handleLogin)))
	s.mux.Handle("POST /signup", limited(http.HandlerFunc(s.handleSignup)))
	s.mux.HandleFunc("POST /logout", s.handleLogout)
	s.mux.HandleFunc("GET /settings", s.requireSession(s.handleSettingsPage))
	s.mux.HandleFunc("POST /settings", s.requireSession(s.handleUpdateDisplayName))
	s.mux.HandleFunc("POST /settings/password", s.requireSession(s.handleChangePassword))
	s.mux.HandleFunc("GET /password/forgot", s.handleForgotPage)
	s.mux.Handle("POST /password/forgot", limited(http.HandlerFunc(s.handleForgot)))
	s.mux.HandleFunc("GET /password/reset", s.handleResetPage)
	s.mux.Handle("POST /password/reset", limited(http.HandlerFunc(s.handleReset)))

	// Rooms
	s.mux.HandleFunc("GET /{$}", s.requireSession(s.handleRooms))
	s.mux.HandleFunc("POST /rooms", s.requireSession(s.handleCreateRoom))
	s.mux.HandleFunc("GET /join/{code}", s.requireSession(s.handleJoinPage))
	s.mux.HandleFunc("POST /join", s.requireSession(s.handleJoin))
	s.mux.HandleFunc("GET /rooms/{id}", s.requireSession(s.handleBoard))
	s.mux.HandleFunc("POST /rooms/{id}/rename", s.requireSession(s.handleRenameRoom))
	s.mux.HandleFunc("POST /rooms/{id}/telegram", s.requireSession(s.handleSetTelegram))
	s.mux.HandleFunc("POST /rooms/{id}/members/{userID}/remove", s.requireSession(s.handleRemoveMember))

	// Board
	s.mux.HandleFunc("POST /rooms/{id}/candidates", s.requireSession(s.handleAddCandidate))
	s.mux.HandleFunc("POST /candidates/{id}/delete", s.requireSession(s.handleDeleteCandidate))
	s.mux.HandleFunc("POST /candidates/{id}/responses", s.requireSession(s.handleSetResponse))
	s.mux.HandleFunc("POST /candidates/{id}/confirm", s.requireSession(s.handleConfirm))
	s.mux.HandleFunc("POST /rooms/{id}/guests", s.requireSession(s.handleAddGuest))
	s.mux.HandleFunc("POST /guests/{id}/delete", s.requireSession(s.handleDeleteGuest))

	// Events
	s.mux.HandleFunc("GET /events/{id}", s.requireSession(s.handleEvent))
	s.mux.HandleFunc("POST /events/{id}", s.requireSession(s.handleUpdateEvent))
	s.mux.HandleFunc("POST /events/{id}/delete", s.requireSession(s.handleUnconfirm))
	s.mux.HandleFunc("GET /events/{id}/calendar.ics", s.requireSession(s.handleCalendar))

	// API
	s.mux.HandleFunc("GET /api/candidates/{id}/tally", s.handleTally)
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
}

// ---------------------------------------------------------------------------
// JSON helpers
// ---------------------------------------------------------------------------

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			s.logger.WithError(err).Error("failed to encode JSON response")
		}
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}

// pathUUID extracts a path value and parses it as a UUID.
func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	raw := r.PathValue(name)
	if raw == "" {
		return uuid.Nil, fmt.Errorf("missing %s in path", name)
	}
	return uuid.Parse(raw)
}

// ---------------------------------------------------------------------------
// Middleware
// ---------------------------------------------------------------------------

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// accessLog logs every request and feeds the observer. The route label is
// the matched ServeMux pattern so path IDs do not blow up label cardinality.
func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := s.now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		elapsed := s.now().Sub(start)
		if s.opts.Observer != nil {
			s.opts.Observer.ObserveRequest(r.Pattern, r.Method, rec.status, elapsed)
		}
		s.logger.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rec.status,
			"duration": elapsed,
		}).Debug("HTTP request")
	})
}

type sessionHandler func(w http.ResponseWriter, r *http.Request, sess auth.Session, user *models.User)

// session resolves the session cookie into the caller's session
func (s *Server) session(r *http.Request) (auth.Session, *models.User, error) {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		return auth.Session{}, nil, service.ErrUnauthenticated
	}
	return s.svc.Authenticate(r.Context(), cookie.Value)
}

// requireSession acquires the session at request start and passes it to
// next. Requests without one are sent to the login page.
func (s *Server) requireSession(next sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, user, err := s.session(r)
		if errors.Is(err, service.ErrUnauthenticated) {
			s.redirectToLogin(w, r)
			return
		}
		if err != nil {
			s.logger.WithError(err).Error("failed to authenticate request")
			s.renderError(w, nil, http.StatusInternalServerError, service.UserMessage(err))
			return
		}
		next(w, r.WithContext(auth.WithSession(r.Context(), sess)), sess, user)
	}
}

func (s *Server) redirectToLogin(w http.ResponseWriter, r *http.Request) {
	s.clearSessionCookie(w)
	target := "/login"
	if r.Method == http.MethodGet {
		target += "?next=" + url.QueryEscape(r.URL.RequestURI())
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (s *Server) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.opts.CookieTTL.Seconds()),
		HttpOnly: true,
		Secure:   s.opts.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.opts.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

// localPath only lets through same-site absolute paths
func localPath(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/"
	}
	return next
}

// ---------------------------------------------------------------------------
// HTML rendering
// ---------------------------------------------------------------------------

// page is what every template receives
type page struct {
	Title  string
	User   *models.User
	Error  string
	Notice string
	Data   any
}

func (s *Server) render(w http.ResponseWriter, status int, name string, p page) {
	tmpl, ok := s.pages[name]
	if !ok {
		s.logger.WithField("template", name).Error("unknown template")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", p); err != nil {
		s.logger.WithError(err).WithField("template", name).Error("failed to execute template")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

func (s *Server) renderError(w http.ResponseWriter, user *models.User, status int, message string) {
	s.render(w, status, "error.html", page{Title: http.StatusText(status), User: user, Error: message})
}

// statusFor maps a service error to the HTTP status of the inline banner
func statusFor(err error) int {
	var ve *service.ValidationError
	switch {
	case errors.As(err, &ve):
		return http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrForbidden), errors.Is(err, service.ErrNotMember):
		return http.StatusForbidden
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, repository.ErrQuorumNotReached),
		errors.Is(err, repository.ErrAlreadyConfirmed),
		errors.Is(err, repository.ErrInvalidInviteCode),
		errors.Is(err, repository.ErrDuplicate),
		errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// fail handles an error from an action. Lost sessions go to the login page;
// anything else is shown through show with the matching status.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error, show func(status int, message string)) {
	if errors.Is(err, service.ErrUnauthenticated) {
		s.redirectToLogin(w, r)
		return
	}
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.WithError(err).WithField("path", r.URL.Path).Error("request failed")
	}
	show(status, service.UserMessage(err))
}
