package survey_test

import (
	"strings"
	"testing"

	"github.com/rehberapp/rehber-go/internal/survey"
)

func TestScore(t *testing.T) {
	script := `
		exports.score = function(answers) {
			var total = 0;
			for (var key in answers) {
				total += answers[key];
			}
			return total / 2;
		};
	`
	answers := map[string]interface{}{"q1": 4, "q2": 3}

	score, err := survey.Score(script, answers)
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	if score != 3.5 {
		t.Errorf("Expected score 3.5, got %f", score)
	}
}

func TestScoreMissingExport(t *testing.T) {
	_, err := survey.Score(`var x = 1;`, map[string]interface{}{})
	if err == nil {
		t.Fatal("Expected error for script without score export, but got nil")
	}
	if !strings.Contains(err.Error(), "score") {
		t.Errorf("Error should mention the missing export, got: %v", err)
	}
}

func TestScoreInvalidScript(t *testing.T) {
	_, err := survey.Score(`this is not javascript`, map[string]interface{}{})
	if err == nil {
		t.Fatal("Expected error for invalid script, but got nil")
	}
}

func TestScoreThrowingScript(t *testing.T) {
	script := `exports.score = function(answers) { throw new Error("boom"); };`
	_, err := survey.Score(script, map[string]interface{}{})
	if err == nil {
		t.Fatal("Expected error from throwing script, but got nil")
	}
}

func TestScoreTimeout(t *testing.T) {
	script := `exports.score = function(answers) { while (true) {} };`
	_, err := survey.Score(script, map[string]interface{}{})
	if err == nil {
		t.Fatal("Expected timeout error from infinite loop, but got nil")
	}
}
