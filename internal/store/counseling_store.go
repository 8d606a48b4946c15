package store

import (
	"fmt"
	"strings"
	"time"

	"github.com/rehberapp/rehber-go/internal/models"
)

// ListSessionsForStudent returns a student's counseling sessions, newest
// first.
func (s *Store) ListSessionsForStudent(studentID int64) ([]*models.CounselingSession, error) {
	rows, err := s.db.Query(
		"SELECT id, student_id, topic, notes, session_date, mebbis_synced, created_at FROM counseling_sessions WHERE student_id = ? ORDER BY session_date DESC",
		studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*models.CounselingSession
	for rows.Next() {
		var cs models.CounselingSession
		if err := rows.Scan(&cs.ID, &cs.StudentID, &cs.Topic, &cs.Notes, &cs.SessionDate, &cs.MebbisSynced, &cs.CreatedAt); err != nil {
			return nil, err
		}
		sessions = append(sessions, &cs)
	}
	return sessions, rows.Err()
}

// GetSession retrieves one counseling session.
func (s *Store) GetSession(id int64) (*models.CounselingSession, error) {
	var cs models.CounselingSession
	err := s.db.QueryRow(
		"SELECT id, student_id, topic, notes, session_date, mebbis_synced, created_at FROM counseling_sessions WHERE id = ?",
		id).Scan(&cs.ID, &cs.StudentID, &cs.Topic, &cs.Notes, &cs.SessionDate, &cs.MebbisSynced, &cs.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &cs, nil
}

// CreateSession records a counseling session for a student.
func (s *Store) CreateSession(studentID int64, topic, notes string, sessionDate time.Time) (*models.CounselingSession, error) {
	res, err := s.db.Exec(
		"INSERT INTO counseling_sessions (student_id, topic, notes, session_date, created_at) VALUES (?, ?, ?, ?, ?)",
		studentID, topic, notes, sessionDate, time.Now())
	if err != nil {
		return nil, err
	}
	id, _ := res.LastInsertId()
	return s.GetSession(id)
}

// UpdateSession updates the editable fields of a session.
func (s *Store) UpdateSession(id int64, topic, notes string, sessionDate time.Time) error {
	_, err := s.db.Exec(
		"UPDATE counseling_sessions SET topic = ?, notes = ?, session_date = ? WHERE id = ?",
		topic, notes, sessionDate, id)
	return err
}

// DeleteCounselingSession removes a counseling session.
func (s *Store) DeleteCounselingSession(id int64) error {
	_, err := s.db.Exec("DELETE FROM counseling_sessions WHERE id = ?", id)
	return err
}

// TransferCandidate is a counseling session joined with its student, as
// selected for a MEBBIS transfer batch.
type TransferCandidate struct {
	SessionID   int64
	StudentName string
	Topic       string
}

// GetSessionsForTransfer resolves the requested session ids into transfer
// candidates, keeping the caller's order. Unknown ids are skipped; if
// onlyUnsynced is set, sessions already transferred are skipped too.
func (s *Store) GetSessionsForTransfer(sessionIDs []int64, onlyUnsynced bool) ([]*TransferCandidate, error) {
	if len(sessionIDs) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(sessionIDs)), ",")
	query := fmt.Sprintf(`
		SELECT cs.id, st.first_name || ' ' || st.last_name, cs.topic, cs.mebbis_synced
		FROM counseling_sessions cs
		JOIN students st ON st.id = cs.student_id
		WHERE cs.id IN (%s)`, placeholders)

	args := make([]interface{}, len(sessionIDs))
	for i, id := range sessionIDs {
		args[i] = id
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byID := make(map[int64]*TransferCandidate, len(sessionIDs))
	for rows.Next() {
		var c TransferCandidate
		var synced bool
		if err := rows.Scan(&c.SessionID, &c.StudentName, &c.Topic, &synced); err != nil {
			return nil, err
		}
		if onlyUnsynced && synced {
			continue
		}
		byID[c.SessionID] = &c
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var candidates []*TransferCandidate
	for _, id := range sessionIDs {
		if c, ok := byID[id]; ok {
			candidates = append(candidates, c)
		}
	}
	return candidates, nil
}

// MarkSessionSynced flags a counseling session as transferred to MEBBIS.
func (s *Store) MarkSessionSynced(sessionID int64) error {
	_, err := s.db.Exec("UPDATE counseling_sessions SET mebbis_synced = 1 WHERE id = ?", sessionID)
	return err
}

// CountSessionsSince counts counseling sessions on or after the cutoff.
func (s *Store) CountSessionsSince(cutoff time.Time) (int, error) {
	var n int
	err := s.db.QueryRow("SELECT COUNT(*) FROM counseling_sessions WHERE session_date >= ?", cutoff).Scan(&n)
	return n, err
}

// CountUnsyncedSessions counts sessions not yet transferred to MEBBIS.
func (s *Store) CountUnsyncedSessions() (int, error) {
	var n int
	err := s.db.QueryRow("SELECT COUNT(*) FROM counseling_sessions WHERE mebbis_synced = 0").Scan(&n)
	return n, err
}
