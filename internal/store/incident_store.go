package store

import (
	"time"

	"github.com/rehberapp/rehber-go/internal/models"
)

// ListIncidentsForStudent returns a student's behavior incidents, newest
// first.
func (s *Store) ListIncidentsForStudent(studentID int64) ([]*models.BehaviorIncident, error) {
	rows, err := s.db.Query(
		"SELECT id, student_id, description, severity, incident_date, created_at FROM behavior_incidents WHERE student_id = ? ORDER BY incident_date DESC",
		studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var incidents []*models.BehaviorIncident
	for rows.Next() {
		var bi models.BehaviorIncident
		if err := rows.Scan(&bi.ID, &bi.StudentID, &bi.Description, &bi.Severity, &bi.IncidentDate, &bi.CreatedAt); err != nil {
			return nil, err
		}
		incidents = append(incidents, &bi)
	}
	return incidents, rows.Err()
}

// CreateIncident records a behavior incident.
func (s *Store) CreateIncident(studentID int64, description, severity string, incidentDate time.Time) (*models.BehaviorIncident, error) {
	res, err := s.db.Exec(
		"INSERT INTO behavior_incidents (student_id, description, severity, incident_date, created_at) VALUES (?, ?, ?, ?, ?)",
		studentID, description, severity, incidentDate, time.Now())
	if err != nil {
		return nil, err
	}
	id, _ := res.LastInsertId()

	var bi models.BehaviorIncident
	err = s.db.QueryRow(
		"SELECT id, student_id, description, severity, incident_date, created_at FROM behavior_incidents WHERE id = ?",
		id).Scan(&bi.ID, &bi.StudentID, &bi.Description, &bi.Severity, &bi.IncidentDate, &bi.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &bi, nil
}

// DeleteIncident removes a behavior incident.
func (s *Store) DeleteIncident(id int64) error {
	_, err := s.db.Exec("DELETE FROM behavior_incidents WHERE id = ?", id)
	return err
}

// CountIncidentsSince counts incidents on or after the cutoff.
func (s *Store) CountIncidentsSince(cutoff time.Time) (int, error) {
	var n int
	err := s.db.QueryRow("SELECT COUNT(*) FROM behavior_incidents WHERE incident_date >= ?", cutoff).Scan(&n)
	return n, err
}
