// Package analytics computes counselor-facing summary figures over the
// student database. Results are cached with a TTL so dashboard polling does
// not hammer SQLite.
package analytics

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const cacheKey = "insights"

// Queries is the slice of the store the analytics service needs.
type Queries interface {
	CountStudentsByRisk() (map[string]int, error)
	CountSessionsSince(cutoff time.Time) (int, error)
	CountIncidentsSince(cutoff time.Time) (int, error)
	CountUnsyncedSessions() (int, error)
}

// Insights is the dashboard summary served to clients.
type Insights struct {
	TotalStudents       int            `json:"total_students"`
	StudentsByRisk      map[string]int `json:"students_by_risk"`
	SessionsLast30Days  int            `json:"sessions_last_30_days"`
	IncidentsLast30Days int            `json:"incidents_last_30_days"`
	UnsyncedSessions    int            `json:"unsynced_sessions"`
	GeneratedAt         time.Time      `json:"generated_at"`
}

type Service struct {
	queries Queries
	cache   *expirable.LRU[string, *Insights]
}

// New creates an analytics service whose results stay cached for ttl.
func New(queries Queries, ttl time.Duration) *Service {
	return &Service{
		queries: queries,
		cache:   expirable.NewLRU[string, *Insights](1, nil, ttl),
	}
}

// GetInsights returns the cached summary, recomputing it when the cache
// entry has expired.
func (s *Service) GetInsights() (*Insights, error) {
	if cached, ok := s.cache.Get(cacheKey); ok {
		return cached, nil
	}
	return s.Refresh()
}

// Refresh recomputes the summary and replaces the cached copy.
func (s *Service) Refresh() (*Insights, error) {
	byRisk, err := s.queries.CountStudentsByRisk()
	if err != nil {
		return nil, err
	}

	cutoff := time.Now().AddDate(0, 0, -30)
	sessions, err := s.queries.CountSessionsSince(cutoff)
	if err != nil {
		return nil, err
	}
	incidents, err := s.queries.CountIncidentsSince(cutoff)
	if err != nil {
		return nil, err
	}
	unsynced, err := s.queries.CountUnsyncedSessions()
	if err != nil {
		return nil, err
	}

	total := 0
	for _, count := range byRisk {
		total += count
	}

	insights := &Insights{
		TotalStudents:       total,
		StudentsByRisk:      byRisk,
		SessionsLast30Days:  sessions,
		IncidentsLast30Days: incidents,
		UnsyncedSessions:    unsynced,
		GeneratedAt:         time.Now(),
	}
	s.cache.Add(cacheKey, insights)
	return insights, nil
}
