package api

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/Kerhoff/rollcall/internal/auth"
	"github.com/Kerhoff/rollcall/internal/models"
	"github.com/Kerhoff/rollcall/internal/service"
)

// candidateRoom resolves the room a candidate belongs to, so a failed action
// can re-render that room's board
func (s *Server) candidateRoom(w http.ResponseWriter, r *http.Request, user *models.User) (uuid.UUID, uuid.UUID, bool) {
	id, err := pathUUID(r, "id")
	if err != nil {
		s.renderError(w, user, http.StatusNotFound, "date not found")
		return uuid.Nil, uuid.Nil, false
	}
	c, err := s.svc.Candidates.GetByID(r.Context(), id)
	if err != nil {
		s.fail(w, r, err, func(status int, message string) {
			s.renderError(w, user, status, message)
		})
		return uuid.Nil, uuid.Nil, false
	}
	return c.ID, c.RoomID, true
}

func (s *Server) handleAddCandidate(w http.ResponseWriter, r *http.Request, sess auth.Session, user *models.User) {
	roomID, ok := s.roomID(w, r, user)
	if !ok {
		return
	}
	_, err := s.svc.AddCandidate(r.Context(), sess, roomID, r.FormValue("date"), r.FormValue("min_players"))
	s.boardAction(w, r, sess, user, roomID, err)
}

func (s *Server) handleDeleteCandidate(w http.ResponseWriter, r *http.Request, sess auth.Session, user *models.User) {
	candidateID, roomID, ok := s.candidateRoom(w, r, user)
	if !ok {
		return
	}
	err := s.svc.DeleteCandidate(r.Context(), sess, candidateID)
	s.boardAction(w, r, sess, user, roomID, err)
}

// handleSetResponse records the caller's answer, or a member's answer when
// the form carries user_id (owner only)
func (s *Server) handleSetResponse(w http.ResponseWriter, r *http.Request, sess auth.Session, user *models.User) {
	candidateID, roomID, ok := s.candidateRoom(w, r, user)
	if !ok {
		return
	}

	target := uuid.Nil
	if raw := r.FormValue("user_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			s.renderBoard(w, r, sess, user, roomID, http.StatusUnprocessableEntity, "that user is not a member of this room")
			return
		}
		target = id
	}

	err := s.svc.SetResponse(r.Context(), sess, candidateID, target, r.FormValue("status"))
	s.boardAction(w, r, sess, user, roomID, err)
}

func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request, sess auth.Session, user *models.User) {
	candidateID, roomID, ok := s.candidateRoom(w, r, user)
	if !ok {
		return
	}

	eventID, err := s.svc.ConfirmCandidate(r.Context(), sess, candidateID, r.FormValue("start_time"))
	if err != nil {
		s.boardAction(w, r, sess, user, roomID, err)
		return
	}
	http.Redirect(w, r, "/events/"+eventID.String(), http.StatusSeeOther)
}

func (s *Server) handleAddGuest(w http.ResponseWriter, r *http.Request, sess auth.Session, user *models.User) {
	roomID, ok := s.roomID(w, r, user)
	if !ok {
		return
	}

	var candidateID uuid.UUID
	if raw := r.FormValue("candidate_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			s.renderBoard(w, r, sess, user, roomID, http.StatusUnprocessableEntity, "that date does not belong to this room")
			return
		}
		candidateID = id
	}

	_, err := s.svc.AddGuest(r.Context(), sess, roomID, service.GuestInput{
		CandidateID: candidateID,
		Name:        r.FormValue("name"),
		Note:        r.FormValue("note"),
	})
	s.boardAction(w, r, sess, user, roomID, err)
}

func (s *Server) handleDeleteGuest(w http.ResponseWriter, r *http.Request, sess auth.Session, user *models.User) {
	id, err := pathUUID(r, "id")
	if err != nil {
		s.renderError(w, user, http.StatusNotFound, "guest not found")
		return
	}
	g, err := s.svc.Guests.GetByID(r.Context(), id)
	if err != nil {
		s.fail(w, r, err, func(status int, message string) {
			s.renderError(w, user, status, message)
		})
		return
	}

	_, err = s.svc.DeleteGuest(r.Context(), sess, g.ID)
	s.boardAction(w, r, sess, user, g.RoomID, err)
}
