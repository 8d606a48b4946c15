package api

import "net/http"

func (s *Server) handleGetInsights(w http.ResponseWriter, r *http.Request) {
	insights, err := s.insights.GetInsights()
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to compute insights")
		return
	}
	RespondWithJSON(w, http.StatusOK, insights)
}
