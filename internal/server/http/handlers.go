package httpserver

import (
	"net/http"

	"github.com/gofrs/uuid/v5"
	"github.com/gorilla/mux"

	"github.com/and161185/timekeeper/internal/auth"
	"github.com/and161185/timekeeper/internal/convert"
	"github.com/and161185/timekeeper/internal/errs"
)

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// userID reads the authenticated caller. A missing id answers 401.
func (s *Server) userID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, ok := auth.UserIDFromCtx(r.Context())
	if !ok {
		s.writeError(w, r, errs.ErrUnauthorized)
		return uuid.Nil, false
	}
	return id, true
}

// pathID parses the named route variable. A malformed id answers 400.
func (s *Server) pathID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := convert.ParseID(name, mux.Vars(r)[name])
	if err != nil {
		s.writeError(w, r, err)
		return uuid.Nil, false
	}
	return id, true
}

func (s *Server) create(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	in, err := convert.DecodeCreate(r.Body)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	e, err := s.entries.Start(r.Context(), userID, in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, convert.ToResponse(e))
}

func (s *Server) stop(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	id, ok := s.pathID(w, r, "id")
	if !ok {
		return
	}
	e, err := s.entries.Stop(r.Context(), userID, id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, convert.ToResponse(e))
}

func (s *Server) update(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	id, ok := s.pathID(w, r, "id")
	if !ok {
		return
	}
	patch, err := convert.DecodeUpdate(r.Body)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	e, err := s.entries.Update(r.Context(), userID, id, patch)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, convert.ToResponse(e))
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	out, err := s.entries.List(r.Context(), userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, convert.ToResponses(out))
}

func (s *Server) listByTask(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	taskID, ok := s.pathID(w, r, "task_id")
	if !ok {
		return
	}
	out, err := s.entries.ListByTask(r.Context(), userID, taskID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, convert.ToResponses(out))
}

// active answers 204 when the caller has nothing running.
func (s *Server) active(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	e, err := s.entries.Active(r.Context(), userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if e == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	s.writeJSON(w, http.StatusOK, convert.ToResponse(*e))
}

func (s *Server) delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	id, ok := s.pathID(w, r, "id")
	if !ok {
		return
	}
	if err := s.entries.Delete(r.Context(), userID, id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
