package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handleListIncidents(w http.ResponseWriter, r *http.Request) {
	studentID, _ := strconv.ParseInt(chi.URLParam(r, "studentID"), 10, 64)
	incidents, err := s.store.ListIncidentsForStudent(studentID)
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to retrieve incidents")
		return
	}
	RespondWithJSON(w, http.StatusOK, incidents)
}

func (s *Server) handleCreateIncident(w http.ResponseWriter, r *http.Request) {
	studentID, _ := strconv.ParseInt(chi.URLParam(r, "studentID"), 10, 64)
	if _, err := s.store.GetStudent(studentID); err != nil {
		RespondWithError(w, http.StatusNotFound, "Student not found")
		return
	}

	var payload struct {
		Description  string    `json:"description"`
		Severity     string    `json:"severity"`
		IncidentDate time.Time `json:"incident_date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if payload.Description == "" {
		RespondWithError(w, http.StatusBadRequest, "Description is required")
		return
	}
	if payload.Severity != "low" && payload.Severity != "medium" && payload.Severity != "high" {
		RespondWithError(w, http.StatusBadRequest, "Severity must be low, medium or high")
		return
	}
	if payload.IncidentDate.IsZero() {
		payload.IncidentDate = time.Now()
	}

	incident, err := s.store.CreateIncident(studentID, payload.Description, payload.Severity, payload.IncidentDate)
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to create incident")
		return
	}
	RespondWithJSON(w, http.StatusCreated, incident)
}

func (s *Server) handleDeleteIncident(w http.ResponseWriter, r *http.Request) {
	incidentID, _ := strconv.ParseInt(chi.URLParam(r, "incidentID"), 10, 64)
	if err := s.store.DeleteIncident(incidentID); err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to delete incident")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
