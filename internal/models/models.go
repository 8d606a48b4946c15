package models

import "time"

// User represents an account that can log into the application.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"` // Never expose the hash in API responses.
	Role         string    `json:"role"` // "admin" or "counselor"
	CreatedAt    time.Time `json:"created_at"`
}

// Student is one student record, keyed by the national identity number
// used across MEB systems.
type Student struct {
	ID             int64     `json:"id"`
	NationalID     string    `json:"national_id"`
	FirstName      string    `json:"first_name"`
	LastName       string    `json:"last_name"`
	ClassName      string    `json:"class_name"`
	RiskLevel      string    `json:"risk_level"` // "none", "low", "medium", "high"
	PhotoThumbnail *string   `json:"photo_thumbnail,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// CounselingSession is a single guidance meeting with a student. Synced
// sessions have already been transferred to MEBBIS.
type CounselingSession struct {
	ID           int64     `json:"id"`
	StudentID    int64     `json:"student_id"`
	Topic        string    `json:"topic"`
	Notes        string    `json:"notes"`
	SessionDate  time.Time `json:"session_date"`
	MebbisSynced bool      `json:"mebbis_synced"`
	CreatedAt    time.Time `json:"created_at"`
}

// BehaviorIncident records a disciplinary or behavioral event for a student.
type BehaviorIncident struct {
	ID           int64     `json:"id"`
	StudentID    int64     `json:"student_id"`
	Description  string    `json:"description"`
	Severity     string    `json:"severity"` // "low", "medium", "high"
	IncidentDate time.Time `json:"incident_date"`
	CreatedAt    time.Time `json:"created_at"`
}
