package api

import (
	"net/http"
	"net/url"

	"github.com/Kerhoff/rollcall/internal/auth"
	"github.com/Kerhoff/rollcall/internal/models"
)

type loginPage struct {
	Next  string
	Email string
}

// ---------------------------------------------------------------------------
// Sign in / sign up / sign out
// ---------------------------------------------------------------------------

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if _, _, err := s.session(r); err == nil {
		http.Redirect(w, r, localPath(r.URL.Query().Get("next")), http.StatusSeeOther)
		return
	}

	p := page{Title: "Sign in", Data: loginPage{Next: r.URL.Query().Get("next")}}
	if r.URL.Query().Get("reset") == "1" {
		p.Notice = "Your password was changed. Sign in with the new one."
	}
	s.render(w, http.StatusOK, "login.html", p)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	email, next := r.FormValue("email"), r.FormValue("next")

	token, _, err := s.svc.SignIn(r.Context(), email, r.FormValue("password"))
	if err != nil {
		s.fail(w, r, err, func(status int, message string) {
			s.render(w, status, "login.html", page{Title: "Sign in", Error: message, Data: loginPage{Next: next, Email: email}})
		})
		return
	}

	s.setSessionCookie(w, token)
	http.Redirect(w, r, localPath(next), http.StatusSeeOther)
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	email, next := r.FormValue("email"), r.FormValue("next")

	token, _, err := s.svc.SignUp(r.Context(), email, r.FormValue("password"), r.FormValue("display_name"))
	if err != nil {
		s.fail(w, r, err, func(status int, message string) {
			s.render(w, status, "login.html", page{Title: "Sign in", Error: message, Data: loginPage{Next: next, Email: email}})
		})
		return
	}

	s.setSessionCookie(w, token)
	http.Redirect(w, r, localPath(next), http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if sess, _, err := s.session(r); err == nil {
		if err := s.svc.SignOut(r.Context(), sess); err != nil {
			s.logger.WithError(err).Warn("failed to sign out")
		}
	}
	s.clearSessionCookie(w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// ---------------------------------------------------------------------------
// Settings
// ---------------------------------------------------------------------------

func (s *Server) renderSettings(w http.ResponseWriter, user *models.User, status int, errMsg, notice string) {
	s.render(w, status, "settings.html", page{Title: "Settings", User: user, Error: errMsg, Notice: notice})
}

func (s *Server) handleSettingsPage(w http.ResponseWriter, r *http.Request, sess auth.Session, user *models.User) {
	notice := ""
	switch r.URL.Query().Get("saved") {
	case "name":
		notice = "Display name updated."
	case "password":
		notice = "Password changed. Other devices have been signed out."
	}
	s.renderSettings(w, user, http.StatusOK, "", notice)
}

func (s *Server) handleUpdateDisplayName(w http.ResponseWriter, r *http.Request, sess auth.Session, user *models.User) {
	if err := s.svc.UpdateDisplayName(r.Context(), sess, r.FormValue("display_name")); err != nil {
		s.fail(w, r, err, func(status int, message string) {
			s.renderSettings(w, user, status, message, "")
		})
		return
	}
	http.Redirect(w, r, "/settings?saved=name", http.StatusSeeOther)
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request, sess auth.Session, user *models.User) {
	token, err := s.svc.ChangePassword(r.Context(), sess, r.FormValue("current_password"), r.FormValue("new_password"))
	if err != nil {
		s.fail(w, r, err, func(status int, message string) {
			s.renderSettings(w, user, status, message, "")
		})
		return
	}
	s.setSessionCookie(w, token)
	http.Redirect(w, r, "/settings?saved=password", http.StatusSeeOther)
}

// ---------------------------------------------------------------------------
// Password reset
// ---------------------------------------------------------------------------

func (s *Server) handleForgotPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, "forgot.html", page{Title: "Forgot password"})
}

func (s *Server) handleForgot(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.RequestPasswordReset(r.Context(), r.FormValue("email")); err != nil {
		s.fail(w, r, err, func(status int, message string) {
			s.render(w, status, "forgot.html", page{Title: "Forgot password", Error: message})
		})
		return
	}
	s.render(w, http.StatusOK, "forgot.html", page{
		Title:  "Forgot password",
		Notice: "If an account exists for that address, a reset link is on its way.",
	})
}

func (s *Server) handleResetPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, "reset.html", page{Title: "Choose a new password", Data: r.URL.Query().Get("token")})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	token := r.FormValue("token")
	if err := s.svc.ResetPassword(r.Context(), token, r.FormValue("password")); err != nil {
		s.fail(w, r, err, func(status int, message string) {
			s.render(w, status, "reset.html", page{Title: "Choose a new password", Error: message, Data: token})
		})
		return
	}
	http.Redirect(w, r, "/login?reset=1&next="+url.QueryEscape("/"), http.StatusSeeOther)
}
