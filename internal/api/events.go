package api

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/Kerhoff/rollcall/internal/auth"
	"github.com/Kerhoff/rollcall/internal/calendar"
	"github.com/Kerhoff/rollcall/internal/models"
	"github.com/Kerhoff/rollcall/internal/service"
)

// ---------------------------------------------------------------------------
// Event page
// ---------------------------------------------------------------------------

func (s *Server) eventID(w http.ResponseWriter, r *http.Request, user *models.User) (uuid.UUID, bool) {
	id, err := pathUUID(r, "id")
	if err != nil {
		s.renderError(w, user, http.StatusNotFound, "event not found")
		return uuid.Nil, false
	}
	return id, true
}

func (s *Server) renderEvent(w http.ResponseWriter, r *http.Request, sess auth.Session, user *models.User, eventID uuid.UUID, status int, errMsg, notice string) {
	view, err := s.svc.EventDetail(r.Context(), sess, eventID)
	if err != nil {
		s.fail(w, r, err, func(status int, message string) {
			s.renderError(w, user, status, message)
		})
		return
	}
	s.render(w, status, "event.html", page{
		Title:  view.Room.Name + " " + view.Event.DateString(),
		User:   user,
		Error:  errMsg,
		Notice: notice,
		Data:   view,
	})
}

func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request, sess auth.Session, user *models.User) {
	eventID, ok := s.eventID(w, r, user)
	if !ok {
		return
	}
	notice := ""
	if r.URL.Query().Get("saved") == "1" {
		notice = "Event updated."
	}
	s.renderEvent(w, r, sess, user, eventID, http.StatusOK, "", notice)
}

func (s *Server) handleUpdateEvent(w http.ResponseWriter, r *http.Request, sess auth.Session, user *models.User) {
	eventID, ok := s.eventID(w, r, user)
	if !ok {
		return
	}
	if err := s.svc.UpdateEventDetails(r.Context(), sess, eventID, r.FormValue("start_time"), r.FormValue("note")); err != nil {
		s.fail(w, r, err, func(status int, message string) {
			s.renderEvent(w, r, sess, user, eventID, status, message, "")
		})
		return
	}
	http.Redirect(w, r, fmt.Sprintf("/events/%s?saved=1", eventID), http.StatusSeeOther)
}

func (s *Server) handleUnconfirm(w http.ResponseWriter, r *http.Request, sess auth.Session, user *models.User) {
	eventID, ok := s.eventID(w, r, user)
	if !ok {
		return
	}
	e, err := s.svc.UnconfirmEvent(r.Context(), sess, eventID)
	if err != nil {
		s.fail(w, r, err, func(status int, message string) {
			s.renderEvent(w, r, sess, user, eventID, status, message, "")
		})
		return
	}
	http.Redirect(w, r, "/rooms/"+e.RoomID.String(), http.StatusSeeOther)
}

func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request, sess auth.Session, user *models.User) {
	eventID, ok := s.eventID(w, r, user)
	if !ok {
		return
	}
	view, err := s.svc.EventDetail(r.Context(), sess, eventID)
	if err != nil {
		s.fail(w, r, err, func(status int, message string) {
			s.renderError(w, user, status, message)
		})
		return
	}

	var buf bytes.Buffer
	err = calendar.Encode(&buf, calendar.Export{
		RoomName:     view.Room.Name,
		Event:        view.Event,
		Participants: view.Participants,
		URL:          view.URL,
	}, s.now())
	if err != nil {
		s.logger.WithError(err).Error("failed to export event")
		s.renderError(w, user, http.StatusInternalServerError, service.UserMessage(err))
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, calendar.Filename(view.Event)))
	buf.WriteTo(w)
}

// ---------------------------------------------------------------------------
// JSON API
// ---------------------------------------------------------------------------

func (s *Server) handleTally(w http.ResponseWriter, r *http.Request) {
	sess, _, err := s.session(r)
	if errors.Is(err, service.ErrUnauthenticated) {
		s.respondError(w, http.StatusUnauthorized, service.UserMessage(err))
		return
	}
	if err != nil {
		s.logger.WithError(err).Error("failed to authenticate request")
		s.respondError(w, http.StatusInternalServerError, service.UserMessage(err))
		return
	}

	candidateID, err := pathUUID(r, "id")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid candidate id")
		return
	}

	summary, err := s.svc.CandidateTally(r.Context(), sess, candidateID)
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			s.logger.WithError(err).Error("failed to tally candidate")
		}
		s.respondError(w, status, service.UserMessage(err))
		return
	}

	s.respondJSON(w, http.StatusOK, summary)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
