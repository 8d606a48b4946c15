package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	studentID, _ := strconv.ParseInt(chi.URLParam(r, "studentID"), 10, 64)
	sessions, err := s.store.ListSessionsForStudent(studentID)
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to retrieve sessions")
		return
	}
	RespondWithJSON(w, http.StatusOK, sessions)
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	studentID, _ := strconv.ParseInt(chi.URLParam(r, "studentID"), 10, 64)
	if _, err := s.store.GetStudent(studentID); err != nil {
		RespondWithError(w, http.StatusNotFound, "Student not found")
		return
	}

	var payload struct {
		Topic       string    `json:"topic"`
		Notes       string    `json:"notes"`
		SessionDate time.Time `json:"session_date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if payload.Topic == "" {
		RespondWithError(w, http.StatusBadRequest, "Topic is required")
		return
	}
	if payload.SessionDate.IsZero() {
		payload.SessionDate = time.Now()
	}

	session, err := s.store.CreateSession(studentID, payload.Topic, payload.Notes, payload.SessionDate)
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to create session")
		return
	}
	RespondWithJSON(w, http.StatusCreated, session)
}

func (s *Server) handleUpdateSession(w http.ResponseWriter, r *http.Request) {
	sessionID, _ := strconv.ParseInt(chi.URLParam(r, "sessionID"), 10, 64)
	var payload struct {
		Topic       string    `json:"topic"`
		Notes       string    `json:"notes"`
		SessionDate time.Time `json:"session_date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	existing, err := s.store.GetSession(sessionID)
	if err != nil {
		RespondWithError(w, http.StatusNotFound, "Session not found")
		return
	}
	if payload.SessionDate.IsZero() {
		payload.SessionDate = existing.SessionDate
	}

	if err := s.store.UpdateSession(sessionID, payload.Topic, payload.Notes, payload.SessionDate); err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to update session")
		return
	}
	session, _ := s.store.GetSession(sessionID)
	RespondWithJSON(w, http.StatusOK, session)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID, _ := strconv.ParseInt(chi.URLParam(r, "sessionID"), 10, 64)
	if err := s.store.DeleteCounselingSession(sessionID); err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to delete session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
