package store

import (
	"database/sql"
	"time"

	"github.com/rehberapp/rehber-go/internal/models"
)

const studentColumns = "id, national_id, first_name, last_name, class_name, risk_level, photo_thumbnail, created_at, updated_at"

func scanStudent(row interface{ Scan(...interface{}) error }) (*models.Student, error) {
	var st models.Student
	err := row.Scan(&st.ID, &st.NationalID, &st.FirstName, &st.LastName, &st.ClassName,
		&st.RiskLevel, &st.PhotoThumbnail, &st.CreatedAt, &st.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &st, nil
}

// ListStudents returns all students, optionally filtered by class name.
func (s *Store) ListStudents(className string) ([]*models.Student, error) {
	query := "SELECT " + studentColumns + " FROM students"
	var args []interface{}
	if className != "" {
		query += " WHERE class_name = ?"
		args = append(args, className)
	}
	query += " ORDER BY last_name, first_name"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var students []*models.Student
	for rows.Next() {
		st, err := scanStudent(rows)
		if err != nil {
			return nil, err
		}
		students = append(students, st)
	}
	return students, rows.Err()
}

// GetStudent retrieves a single student by id.
func (s *Store) GetStudent(id int64) (*models.Student, error) {
	row := s.db.QueryRow("SELECT "+studentColumns+" FROM students WHERE id = ?", id)
	return scanStudent(row)
}

// CreateStudent inserts a student record.
func (s *Store) CreateStudent(st *models.Student) (*models.Student, error) {
	now := time.Now()
	res, err := s.db.Exec(
		"INSERT INTO students (national_id, first_name, last_name, class_name, risk_level, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		st.NationalID, st.FirstName, st.LastName, st.ClassName, st.RiskLevel, now, now)
	if err != nil {
		return nil, err
	}
	id, _ := res.LastInsertId()
	return s.GetStudent(id)
}

// UpdateStudent updates the editable fields of a student.
func (s *Store) UpdateStudent(id int64, firstName, lastName, className, riskLevel string) error {
	_, err := s.db.Exec(
		"UPDATE students SET first_name = ?, last_name = ?, class_name = ?, risk_level = ?, updated_at = ? WHERE id = ?",
		firstName, lastName, className, riskLevel, time.Now(), id)
	return err
}

// UpdateStudentThumbnail stores the student's photo thumbnail data URI.
func (s *Store) UpdateStudentThumbnail(id int64, thumbnail string) error {
	_, err := s.db.Exec("UPDATE students SET photo_thumbnail = ?, updated_at = ? WHERE id = ?",
		thumbnail, time.Now(), id)
	return err
}

// DeleteStudent removes a student; sessions, incidents and survey
// responses cascade.
func (s *Store) DeleteStudent(id int64) error {
	_, err := s.db.Exec("DELETE FROM students WHERE id = ?", id)
	return err
}

// UpsertStudent inserts a student or, when the national id already
// exists, refreshes the mutable fields. Used by the CSV importer.
func (s *Store) UpsertStudent(st *models.Student) error {
	now := time.Now()
	_, err := s.db.Exec(`
		INSERT INTO students (national_id, first_name, last_name, class_name, risk_level, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(national_id) DO UPDATE SET
			first_name = excluded.first_name,
			last_name = excluded.last_name,
			class_name = excluded.class_name,
			updated_at = excluded.updated_at`,
		st.NationalID, st.FirstName, st.LastName, st.ClassName, st.RiskLevel, now, now)
	return err
}

// CountStudentsByRisk groups student counts by risk level.
func (s *Store) CountStudentsByRisk() (map[string]int, error) {
	rows, err := s.db.Query("SELECT risk_level, COUNT(*) FROM students GROUP BY risk_level")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var level string
		var n int
		if err := rows.Scan(&level, &n); err != nil {
			return nil, err
		}
		counts[level] = n
	}
	return counts, rows.Err()
}

// GetStudentByNationalID looks a student up by the national identity number.
func (s *Store) GetStudentByNationalID(nationalID string) (*models.Student, error) {
	row := s.db.QueryRow("SELECT "+studentColumns+" FROM students WHERE national_id = ?", nationalID)
	st, err := scanStudent(row)
	if err == sql.ErrNoRows {
		return nil, err
	}
	return st, err
}
