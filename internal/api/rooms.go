package api

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/Kerhoff/rollcall/internal/auth"
	"github.com/Kerhoff/rollcall/internal/models"
	"github.com/Kerhoff/rollcall/internal/service"
)

// boardPage is the room view with the limits the candidate form enforces
type boardPage struct {
	Board      *service.Board
	MinLower   int
	MinUpper   int
	MinDefault int
}

// ---------------------------------------------------------------------------
// Room list
// ---------------------------------------------------------------------------

func (s *Server) renderRooms(w http.ResponseWriter, r *http.Request, sess auth.Session, user *models.User, status int, errMsg string) {
	rooms, err := s.svc.ListRooms(r.Context(), sess)
	if err != nil {
		s.fail(w, r, err, func(status int, message string) {
			s.renderError(w, user, status, message)
		})
		return
	}
	s.render(w, status, "rooms.html", page{Title: "Rooms", User: user, Error: errMsg, Data: rooms})
}

func (s *Server) handleRooms(w http.ResponseWriter, r *http.Request, sess auth.Session, user *models.User) {
	s.renderRooms(w, r, sess, user, http.StatusOK, "")
}

func (s *Server) handleCreateRoom(w http.ResponseWriter, r *http.Request, sess auth.Session, user *models.User) {
	room, err := s.svc.CreateRoom(r.Context(), sess, r.FormValue("name"))
	if err != nil {
		s.fail(w, r, err, func(status int, message string) {
			s.renderRooms(w, r, sess, user, status, message)
		})
		return
	}
	http.Redirect(w, r, "/rooms/"+room.ID.String(), http.StatusSeeOther)
}

// ---------------------------------------------------------------------------
// Joining
// ---------------------------------------------------------------------------

func (s *Server) handleJoinPage(w http.ResponseWriter, r *http.Request, sess auth.Session, user *models.User) {
	s.render(w, http.StatusOK, "join.html", page{Title: "Join a room", User: user, Data: r.PathValue("code")})
}

func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request, sess auth.Session, user *models.User) {
	code := r.FormValue("code")
	roomID, err := s.svc.JoinRoom(r.Context(), sess, code)
	if err != nil {
		s.fail(w, r, err, func(status int, message string) {
			s.render(w, status, "join.html", page{Title: "Join a room", User: user, Error: message, Data: code})
		})
		return
	}
	http.Redirect(w, r, "/rooms/"+roomID.String(), http.StatusSeeOther)
}

// ---------------------------------------------------------------------------
// Board
// ---------------------------------------------------------------------------

// renderBoard reloads the whole room and renders it, with errMsg in the
// banner when an action failed
func (s *Server) renderBoard(w http.ResponseWriter, r *http.Request, sess auth.Session, user *models.User, roomID uuid.UUID, status int, errMsg string) {
	board, err := s.svc.RoomBoard(r.Context(), sess, roomID)
	if err != nil {
		s.fail(w, r, err, func(status int, message string) {
			s.renderError(w, user, status, message)
		})
		return
	}
	s.render(w, status, "board.html", page{
		Title: board.Room.Name,
		User:  user,
		Error: errMsg,
		Data: boardPage{
			Board:      board,
			MinLower:   models.MinPlayersLowerBound,
			MinUpper:   models.MinPlayersUpperBound,
			MinDefault: models.DefaultMinPlayers,
		},
	})
}

// boardAction runs an action against a room and either redirects back to the
// board or re-renders it with the error
func (s *Server) boardAction(w http.ResponseWriter, r *http.Request, sess auth.Session, user *models.User, roomID uuid.UUID, err error) {
	if err != nil {
		s.fail(w, r, err, func(status int, message string) {
			s.renderBoard(w, r, sess, user, roomID, status, message)
		})
		return
	}
	http.Redirect(w, r, "/rooms/"+roomID.String(), http.StatusSeeOther)
}

func (s *Server) roomID(w http.ResponseWriter, r *http.Request, user *models.User) (uuid.UUID, bool) {
	id, err := pathUUID(r, "id")
	if err != nil {
		s.renderError(w, user, http.StatusNotFound, "room not found")
		return uuid.Nil, false
	}
	return id, true
}

func (s *Server) handleBoard(w http.ResponseWriter, r *http.Request, sess auth.Session, user *models.User) {
	roomID, ok := s.roomID(w, r, user)
	if !ok {
		return
	}
	s.renderBoard(w, r, sess, user, roomID, http.StatusOK, "")
}

func (s *Server) handleRenameRoom(w http.ResponseWriter, r *http.Request, sess auth.Session, user *models.User) {
	roomID, ok := s.roomID(w, r, user)
	if !ok {
		return
	}
	err := s.svc.RenameRoom(r.Context(), sess, roomID, r.FormValue("name"))
	s.boardAction(w, r, sess, user, roomID, err)
}

func (s *Server) handleSetTelegram(w http.ResponseWriter, r *http.Request, sess auth.Session, user *models.User) {
	roomID, ok := s.roomID(w, r, user)
	if !ok {
		return
	}
	err := s.svc.SetTelegramChat(r.Context(), sess, roomID, r.FormValue("chat_id"))
	s.boardAction(w, r, sess, user, roomID, err)
}

func (s *Server) handleRemoveMember(w http.ResponseWriter, r *http.Request, sess auth.Session, user *models.User) {
	roomID, ok := s.roomID(w, r, user)
	if !ok {
		return
	}
	userID, err := pathUUID(r, "userID")
	if err != nil {
		s.renderBoard(w, r, sess, user, roomID, http.StatusNotFound, "member not found")
		return
	}
	err = s.svc.RemoveMember(r.Context(), sess, roomID, userID)
	s.boardAction(w, r, sess, user, roomID, err)
}
