package api

import "net/http"

func (s *Server) handleListModels(w http.ResponseWriter, _ *http.Request) {
	models := s.catalog.List()
	s.writeJSON(w, http.StatusOK, models)
}
