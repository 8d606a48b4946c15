package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rehberapp/rehber-go/internal/survey"
)

func (s *Server) handleListSurveyTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := s.store.ListSurveyTemplates()
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to retrieve survey templates")
		return
	}
	RespondWithJSON(w, http.StatusOK, templates)
}

func (s *Server) handleCreateSurveyTemplate(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Name          string          `json:"name"`
		Version       string          `json:"version"`
		Questions     json.RawMessage `json:"questions"`
		ScoringScript string          `json:"scoring_script"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if payload.Name == "" || len(payload.Questions) == 0 {
		RespondWithError(w, http.StatusBadRequest, "Name and questions are required")
		return
	}
	if !survey.IsValidVersion(payload.Version) {
		RespondWithError(w, http.StatusBadRequest, "Version must be a valid semantic version")
		return
	}

	template, err := s.store.CreateSurveyTemplate(payload.Name, payload.Version, string(payload.Questions), payload.ScoringScript)
	if err != nil {
		RespondWithError(w, http.StatusConflict, "A template with this name and version already exists")
		return
	}
	RespondWithJSON(w, http.StatusCreated, template)
}

func (s *Server) handleGetSurveyTemplate(w http.ResponseWriter, r *http.Request) {
	templateID, _ := strconv.ParseInt(chi.URLParam(r, "templateID"), 10, 64)
	template, err := s.store.GetSurveyTemplate(templateID)
	if err != nil {
		RespondWithError(w, http.StatusNotFound, "Survey template not found")
		return
	}
	RespondWithJSON(w, http.StatusOK, template)
}

// handleGetLatestSurveyTemplate serves the highest semantic version of a
// named template.
func (s *Server) handleGetLatestSurveyTemplate(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	versions, err := s.store.ListSurveyTemplateVersions(name)
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to retrieve template versions")
		return
	}

	latest := survey.LatestVersion(versions)
	if latest == nil {
		RespondWithError(w, http.StatusNotFound, "No template with this name")
		return
	}
	RespondWithJSON(w, http.StatusOK, latest)
}

func (s *Server) handleSubmitSurveyResponse(w http.ResponseWriter, r *http.Request) {
	templateID, _ := strconv.ParseInt(chi.URLParam(r, "templateID"), 10, 64)
	template, err := s.store.GetSurveyTemplate(templateID)
	if err != nil {
		RespondWithError(w, http.StatusNotFound, "Survey template not found")
		return
	}

	var payload struct {
		StudentID int64                  `json:"student_id"`
		Answers   map[string]interface{} `json:"answers"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if _, err := s.store.GetStudent(payload.StudentID); err != nil {
		RespondWithError(w, http.StatusNotFound, "Student not found")
		return
	}

	// Score at submission time; templates without a scoring script store
	// the raw answers only.
	var score *float64
	if template.ScoringScript != "" {
		value, err := survey.Score(template.ScoringScript, payload.Answers)
		if err != nil {
			RespondWithError(w, http.StatusUnprocessableEntity, "Scoring failed: "+err.Error())
			return
		}
		score = &value
	}

	answersJSON, err := json.Marshal(payload.Answers)
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid answers")
		return
	}

	response, err := s.store.CreateSurveyResponse(templateID, payload.StudentID, string(answersJSON), score)
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to store response")
		return
	}
	RespondWithJSON(w, http.StatusCreated, response)
}

func (s *Server) handleListSurveyResponses(w http.ResponseWriter, r *http.Request) {
	studentID, _ := strconv.ParseInt(chi.URLParam(r, "studentID"), 10, 64)
	responses, err := s.store.ListResponsesForStudent(studentID)
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to retrieve responses")
		return
	}
	RespondWithJSON(w, http.StatusOK, responses)
}
