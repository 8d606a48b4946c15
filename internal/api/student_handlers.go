package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rehberapp/rehber-go/internal/models"
	"github.com/rehberapp/rehber-go/internal/photo"
)

func validRiskLevel(level string) bool {
	switch level {
	case "none", "low", "medium", "high":
		return true
	}
	return false
}

func (s *Server) handleListStudents(w http.ResponseWriter, r *http.Request) {
	className := r.URL.Query().Get("class")
	students, err := s.store.ListStudents(className)
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to retrieve students")
		return
	}
	RespondWithJSON(w, http.StatusOK, students)
}

func (s *Server) handleCreateStudent(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		NationalID string `json:"national_id"`
		FirstName  string `json:"first_name"`
		LastName   string `json:"last_name"`
		ClassName  string `json:"class_name"`
		RiskLevel  string `json:"risk_level"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if payload.NationalID == "" || payload.FirstName == "" || payload.LastName == "" {
		RespondWithError(w, http.StatusBadRequest, "National ID, first name and last name are required")
		return
	}
	if payload.RiskLevel == "" {
		payload.RiskLevel = "none"
	}
	if !validRiskLevel(payload.RiskLevel) {
		RespondWithError(w, http.StatusBadRequest, "Invalid risk level")
		return
	}

	student, err := s.store.CreateStudent(&models.Student{
		NationalID: payload.NationalID,
		FirstName:  payload.FirstName,
		LastName:   payload.LastName,
		ClassName:  payload.ClassName,
		RiskLevel:  payload.RiskLevel,
	})
	if err != nil {
		// Could be a unique constraint violation
		RespondWithError(w, http.StatusConflict, "A student with this national ID already exists")
		return
	}
	RespondWithJSON(w, http.StatusCreated, student)
}

func (s *Server) handleGetStudent(w http.ResponseWriter, r *http.Request) {
	studentID, _ := strconv.ParseInt(chi.URLParam(r, "studentID"), 10, 64)
	student, err := s.store.GetStudent(studentID)
	if err != nil {
		RespondWithError(w, http.StatusNotFound, "Student not found")
		return
	}
	RespondWithJSON(w, http.StatusOK, student)
}

func (s *Server) handleUpdateStudent(w http.ResponseWriter, r *http.Request) {
	studentID, _ := strconv.ParseInt(chi.URLParam(r, "studentID"), 10, 64)
	var payload struct {
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		ClassName string `json:"class_name"`
		RiskLevel string `json:"risk_level"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if !validRiskLevel(payload.RiskLevel) {
		RespondWithError(w, http.StatusBadRequest, "Invalid risk level")
		return
	}

	if err := s.store.UpdateStudent(studentID, payload.FirstName, payload.LastName, payload.ClassName, payload.RiskLevel); err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to update student")
		return
	}
	student, err := s.store.GetStudent(studentID)
	if err != nil {
		RespondWithError(w, http.StatusNotFound, "Student not found")
		return
	}
	RespondWithJSON(w, http.StatusOK, student)
}

func (s *Server) handleDeleteStudent(w http.ResponseWriter, r *http.Request) {
	studentID, _ := strconv.ParseInt(chi.URLParam(r, "studentID"), 10, 64)
	if err := s.store.DeleteStudent(studentID); err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to delete student")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleUploadStudentPhoto accepts a multipart photo upload, generates a
// small thumbnail and stores it inline on the student record.
func (s *Server) handleUploadStudentPhoto(w http.ResponseWriter, r *http.Request) {
	studentID, _ := strconv.ParseInt(chi.URLParam(r, "studentID"), 10, 64)
	if _, err := s.store.GetStudent(studentID); err != nil {
		RespondWithError(w, http.StatusNotFound, "Student not found")
		return
	}

	// 5 MB is plenty for a portrait photo.
	if err := r.ParseMultipartForm(5 << 20); err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}
	file, _, err := r.FormFile("photo")
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, "Missing 'photo' form field")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to read uploaded file")
		return
	}

	thumbnail, err := photo.GenerateThumbnail(data)
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, "Uploaded file is not a valid image")
		return
	}

	if err := s.store.UpdateStudentThumbnail(studentID, thumbnail); err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to store thumbnail")
		return
	}
	RespondWithJSON(w, http.StatusOK, map[string]string{"thumbnail": thumbnail})
}
