package httpserver

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/and161185/timekeeper/internal/convert"
	"github.com/and161185/timekeeper/internal/errs"
)

var kindStatus = map[errs.Kind]int{
	errs.KindUnauthorized: http.StatusUnauthorized,
	errs.KindBadRequest:   http.StatusBadRequest,
	errs.KindNotFound:     http.StatusNotFound,
	errs.KindConflict:     http.StatusConflict,
	errs.KindInternal:     http.StatusInternalServerError,
}

// StatusFor returns the HTTP status code of an error kind.
func StatusFor(k errs.Kind) int {
	if code, ok := kindStatus[k]; ok {
		return code
	}
	return http.StatusInternalServerError
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Warn("encode response", zap.Error(err))
	}
}

// writeError answers with the classified kind. The cause of internal errors is logged, never sent.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := errs.KindOf(err)
	switch kind {
	case errs.KindInternal:
		s.log.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	case errs.KindConflict:
		s.metrics.conflicts.WithLabelValues(routeOf(r)).Inc()
		s.log.Debug("request rejected", zap.Stringer("kind", kind), zap.Error(err))
	default:
		s.log.Debug("request rejected", zap.Stringer("kind", kind), zap.Error(err))
	}
	s.writeJSON(w, StatusFor(kind), convert.ErrorResponse{
		Kind:    kind.String(),
		Message: errs.Message(err),
	})
}

// routeOf returns the matched route template, or "unmatched".
func routeOf(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}
