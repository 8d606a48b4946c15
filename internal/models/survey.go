package models

import "time"

// SurveyTemplate defines a survey form. Templates are versioned; several
// versions of the same name may coexist and the newest semantic version is
// the one served to clients. The scoring script is a JavaScript snippet
// exporting a score(answers) function.
type SurveyTemplate struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Version       string    `json:"version"`
	Questions     string    `json:"questions"` // JSON array of question objects
	ScoringScript string    `json:"scoring_script,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// SurveyResponse is one student's submitted answers for a template,
// with the score computed at submission time.
type SurveyResponse struct {
	ID         int64     `json:"id"`
	TemplateID int64     `json:"template_id"`
	StudentID  int64     `json:"student_id"`
	Answers    string    `json:"answers"` // JSON object keyed by question id
	Score      *float64  `json:"score,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
