package survey_test

import (
	"testing"

	"github.com/rehberapp/rehber-go/internal/models"
	"github.com/rehberapp/rehber-go/internal/survey"
)

func TestCompareVersions(t *testing.T) {
	testCases := []struct {
		v1, v2   string
		expected int
	}{
		{"1.0.0", "2.0.0", -1},
		{"2.0.0", "1.0.0", 1},
		{"1.2.3", "1.2.3", 0},
		{"v1.0.0", "1.0.1", -1},
		{"1.10.0", "1.9.0", 1},
	}

	for _, tc := range testCases {
		got, err := survey.CompareVersions(tc.v1, tc.v2)
		if err != nil {
			t.Fatalf("CompareVersions(%s, %s) failed: %v", tc.v1, tc.v2, err)
		}
		if got != tc.expected {
			t.Errorf("CompareVersions(%s, %s) = %d, want %d", tc.v1, tc.v2, got, tc.expected)
		}
	}

	if _, err := survey.CompareVersions("not-a-version", "1.0.0"); err == nil {
		t.Error("Expected error for invalid version string, but got nil")
	}
}

func TestIsValidVersion(t *testing.T) {
	if !survey.IsValidVersion("1.2.3") {
		t.Error("Expected '1.2.3' to be valid")
	}
	if !survey.IsValidVersion("v2.0.0") {
		t.Error("Expected 'v2.0.0' to be valid")
	}
	if survey.IsValidVersion("latest") {
		t.Error("Expected 'latest' to be invalid")
	}
}

func TestLatestVersion(t *testing.T) {
	templates := []*models.SurveyTemplate{
		{ID: 1, Name: "okul-tutum", Version: "1.0.0"},
		{ID: 2, Name: "okul-tutum", Version: "1.10.0"},
		{ID: 3, Name: "okul-tutum", Version: "1.9.0"},
		{ID: 4, Name: "okul-tutum", Version: "garbage"},
	}

	latest := survey.LatestVersion(templates)
	if latest == nil {
		t.Fatal("Expected a latest template, got nil")
	}
	if latest.ID != 2 {
		t.Errorf("Expected template 2 (v1.10.0) to be latest, got %d (%s)", latest.ID, latest.Version)
	}

	if survey.LatestVersion(nil) != nil {
		t.Error("Expected nil for empty template list")
	}
}
