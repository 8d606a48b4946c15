package store

import (
	"time"

	"github.com/rehberapp/rehber-go/internal/models"
)

// CreateSurveyTemplate inserts a new template version.
func (s *Store) CreateSurveyTemplate(name, version, questions, scoringScript string) (*models.SurveyTemplate, error) {
	res, err := s.db.Exec(
		"INSERT INTO survey_templates (name, version, questions, scoring_script, created_at) VALUES (?, ?, ?, ?, ?)",
		name, version, questions, scoringScript, time.Now())
	if err != nil {
		return nil, err
	}
	id, _ := res.LastInsertId()
	return s.GetSurveyTemplate(id)
}

// GetSurveyTemplate retrieves one template by id.
func (s *Store) GetSurveyTemplate(id int64) (*models.SurveyTemplate, error) {
	var t models.SurveyTemplate
	err := s.db.QueryRow(
		"SELECT id, name, version, questions, scoring_script, created_at FROM survey_templates WHERE id = ?",
		id).Scan(&t.ID, &t.Name, &t.Version, &t.Questions, &t.ScoringScript, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ListSurveyTemplates returns every stored template version.
func (s *Store) ListSurveyTemplates() ([]*models.SurveyTemplate, error) {
	rows, err := s.db.Query(
		"SELECT id, name, version, questions, scoring_script, created_at FROM survey_templates ORDER BY name, created_at")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var templates []*models.SurveyTemplate
	for rows.Next() {
		var t models.SurveyTemplate
		if err := rows.Scan(&t.ID, &t.Name, &t.Version, &t.Questions, &t.ScoringScript, &t.CreatedAt); err != nil {
			return nil, err
		}
		templates = append(templates, &t)
	}
	return templates, rows.Err()
}

// ListSurveyTemplateVersions returns every version recorded for a name.
func (s *Store) ListSurveyTemplateVersions(name string) ([]*models.SurveyTemplate, error) {
	rows, err := s.db.Query(
		"SELECT id, name, version, questions, scoring_script, created_at FROM survey_templates WHERE name = ?",
		name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var templates []*models.SurveyTemplate
	for rows.Next() {
		var t models.SurveyTemplate
		if err := rows.Scan(&t.ID, &t.Name, &t.Version, &t.Questions, &t.ScoringScript, &t.CreatedAt); err != nil {
			return nil, err
		}
		templates = append(templates, &t)
	}
	return templates, rows.Err()
}

// CreateSurveyResponse stores a student's answers and computed score.
func (s *Store) CreateSurveyResponse(templateID, studentID int64, answers string, score *float64) (*models.SurveyResponse, error) {
	res, err := s.db.Exec(
		"INSERT INTO survey_responses (template_id, student_id, answers, score, created_at) VALUES (?, ?, ?, ?, ?)",
		templateID, studentID, answers, score, time.Now())
	if err != nil {
		return nil, err
	}
	id, _ := res.LastInsertId()

	var r models.SurveyResponse
	err = s.db.QueryRow(
		"SELECT id, template_id, student_id, answers, score, created_at FROM survey_responses WHERE id = ?",
		id).Scan(&r.ID, &r.TemplateID, &r.StudentID, &r.Answers, &r.Score, &r.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// ListResponsesForStudent returns a student's survey responses, newest first.
func (s *Store) ListResponsesForStudent(studentID int64) ([]*models.SurveyResponse, error) {
	rows, err := s.db.Query(
		"SELECT id, template_id, student_id, answers, score, created_at FROM survey_responses WHERE student_id = ? ORDER BY created_at DESC",
		studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var responses []*models.SurveyResponse
	for rows.Next() {
		var r models.SurveyResponse
		if err := rows.Scan(&r.ID, &r.TemplateID, &r.StudentID, &r.Answers, &r.Score, &r.CreatedAt); err != nil {
			return nil, err
		}
		responses = append(responses, &r)
	}
	return responses, rows.Err()
}
