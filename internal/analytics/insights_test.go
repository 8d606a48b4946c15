package analytics_test

import (
	"errors"
	"testing"
	"time"

	"github.com/rehberapp/rehber-go/internal/analytics"
)

type fakeQueries struct {
	calls   int
	byRisk  map[string]int
	failing bool
}

func (f *fakeQueries) CountStudentsByRisk() (map[string]int, error) {
	f.calls++
	if f.failing {
		return nil, errors.New("db gone")
	}
	return f.byRisk, nil
}

func (f *fakeQueries) CountSessionsSince(cutoff time.Time) (int, error)  { return 12, nil }
func (f *fakeQueries) CountIncidentsSince(cutoff time.Time) (int, error) { return 3, nil }
func (f *fakeQueries) CountUnsyncedSessions() (int, error)               { return 5, nil }

func TestGetInsights(t *testing.T) {
	q := &fakeQueries{byRisk: map[string]int{"none": 10, "high": 2}}
	svc := analytics.New(q, time.Minute)

	insights, err := svc.GetInsights()
	if err != nil {
		t.Fatalf("GetInsights failed: %v", err)
	}
	if insights.TotalStudents != 12 {
		t.Errorf("Expected 12 total students, got %d", insights.TotalStudents)
	}
	if insights.SessionsLast30Days != 12 || insights.IncidentsLast30Days != 3 {
		t.Errorf("Unexpected activity counts: %+v", insights)
	}
	if insights.UnsyncedSessions != 5 {
		t.Errorf("Expected 5 unsynced sessions, got %d", insights.UnsyncedSessions)
	}
}

func TestGetInsightsUsesCache(t *testing.T) {
	q := &fakeQueries{byRisk: map[string]int{"none": 1}}
	svc := analytics.New(q, time.Minute)

	svc.GetInsights()
	svc.GetInsights()
	svc.GetInsights()

	if q.calls != 1 {
		t.Errorf("Expected queries to run once with warm cache, ran %d times", q.calls)
	}
}

func TestGetInsightsExpires(t *testing.T) {
	q := &fakeQueries{byRisk: map[string]int{"none": 1}}
	svc := analytics.New(q, 10*time.Millisecond)

	svc.GetInsights()
	time.Sleep(30 * time.Millisecond)
	svc.GetInsights()

	if q.calls != 2 {
		t.Errorf("Expected recompute after TTL, queries ran %d times", q.calls)
	}
}

func TestRefreshBypassesCache(t *testing.T) {
	q := &fakeQueries{byRisk: map[string]int{"none": 1}}
	svc := analytics.New(q, time.Minute)

	svc.GetInsights()
	if _, err := svc.Refresh(); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if q.calls != 2 {
		t.Errorf("Expected Refresh to recompute, queries ran %d times", q.calls)
	}
}

func TestGetInsightsError(t *testing.T) {
	q := &fakeQueries{failing: true}
	svc := analytics.New(q, time.Minute)

	if _, err := svc.GetInsights(); err == nil {
		t.Fatal("Expected error from failing queries, but got nil")
	}
}
