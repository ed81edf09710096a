package httpserver

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"unidata-cache/internal/cache/service"
)

// handleRoot answers with the fixed greeting
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	s.writeResponse(w, greeting)
}

// handleUnidata resolves the university records for the country in the path
func (s *Server) handleUnidata(w http.ResponseWriter, r *http.Request) {
	country := mux.Vars(r)["university"]

	result, err := s.resolver.Resolve(r.Context(), country)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrCacheDecode):
			s.writeErrorResponse(w, detailCacheDecode, http.StatusInternalServerError)
		case errors.Is(err, service.ErrUpstreamDecode):
			s.writeErrorResponse(w, detailUpstreamDecode, http.StatusInternalServerError)
		default:
			s.logger.Error("Lookup failed", zap.String("country", country), zap.Error(err))
			s.writeErrorResponse(w, detailInternal, http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set(headerCacheStatus, string(result.Status))
	w.Header().Set(headerCacheLevel, string(result.Level))
	s.writeResponse(w, result.Data)
}
