package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"puzzled/internal/imagestore"
	"puzzled/internal/logging"
	"puzzled/internal/types"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// session returns the caller's session id, issuing a fresh cookie when the
// request carries none or an unparsable one.
func (s *Server) session(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(s.opts.CookieName); err == nil {
		if _, err := uuid.Parse(c.Value); err == nil {
			return c.Value
		}
	}
	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     s.opts.CookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	logging.SessionDebug("issued session %s", id)
	return id
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	session := s.session(w, r)

	if r.ContentLength > s.opts.MaxUploadBytes {
		writeMessage(w, http.StatusRequestEntityTooLarge, "upload too large")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	file, header, err := r.FormFile("image")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeMessage(w, http.StatusRequestEntityTooLarge, "upload too large")
			return
		}
		writeMessage(w, http.StatusBadRequest, "multipart field \"image\" is required")
		return
	}
	defer file.Close()

	img, _, err := imagestore.Decode(file)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "unsupported or corrupt image")
		return
	}

	frags, err := s.puzzles.Upload(r.Context(), session, header.Filename, img)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, frags)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	session := s.session(w, r)
	frags, err := s.puzzles.Fragments(r.Context(), session)
	if errors.Is(err, types.ErrNotFound) {
		writeJSON(w, http.StatusOK, []types.Fragment{})
		return
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, frags)
}

func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	session := s.session(w, r)
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "fragment id must be an integer")
		return
	}

	data, contentType, err := s.puzzles.FragmentImage(r.Context(), session, id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	session := s.session(w, r)

	var placements []types.Placement
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(&placements); err != nil {
		writeMessage(w, http.StatusBadRequest, "body must be a JSON array of placements")
		return
	}

	ok, err := s.puzzles.Check(r.Context(), session, placements)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ok)
}

func (s *Server) handleAssemble(w http.ResponseWriter, r *http.Request) {
	session := s.session(w, r)
	frags, layout, err := s.puzzles.Assemble(r.Context(), session)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !layout.Report.Complete() {
		s.logger.Warn("incomplete assembly",
			zap.String("session", session),
			zap.Ints("repeated", layout.Report.Repeated),
			zap.Ints("missing", layout.Report.Missing))
	}
	writeJSON(w, http.StatusOK, frags)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	session := s.session(w, r)
	if err := s.puzzles.Reset(r.Context(), session); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// =============================================================================
// RESPONSES
// =============================================================================

type errorBody struct {
	Error string `json:"error"`
}

// writeError maps service errors onto status codes.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, types.ErrNotFound):
		writeMessage(w, http.StatusNotFound, "not found")
	case errors.Is(err, types.ErrPrecondition):
		s.logger.Error("internal consistency failure", zap.String("path", r.URL.Path), zap.Error(err))
		writeMessage(w, http.StatusInternalServerError, types.ErrPrecondition.Error())
	case errors.Is(err, context.DeadlineExceeded):
		s.logger.Warn("request timed out", zap.String("path", r.URL.Path), zap.Error(err))
		writeMessage(w, http.StatusServiceUnavailable, "timed out")
	case errors.Is(err, types.ErrStorage):
		s.logger.Error("storage failure", zap.String("path", r.URL.Path), zap.Error(err))
		logging.ServerError("%s %s: %v", r.Method, r.URL.Path, err)
		writeMessage(w, http.StatusInternalServerError, types.ErrStorage.Error())
	default:
		s.logger.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
		logging.ServerError("%s %s: %v", r.Method, r.URL.Path, err)
		writeMessage(w, http.StatusInternalServerError, "internal error")
	}
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
