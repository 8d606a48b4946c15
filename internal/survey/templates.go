package survey

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/rehberapp/rehber-go/internal/models"
)

// CompareVersions compares two version strings semantically.
// Returns:
// - -1 if v1 < v2
// - 0 if v1 == v2
// - 1 if v1 > v2
// - error if either version string is invalid
func CompareVersions(v1, v2 string) (int, error) {
	// Strip leading 'v' if present (common in version strings)
	v1 = strings.TrimPrefix(v1, "v")
	v2 = strings.TrimPrefix(v2, "v")

	version1, err := semver.NewVersion(v1)
	if err != nil {
		return 0, fmt.Errorf("invalid version %s: %w", v1, err)
	}

	version2, err := semver.NewVersion(v2)
	if err != nil {
		return 0, fmt.Errorf("invalid version %s: %w", v2, err)
	}

	return version1.Compare(version2), nil
}

// IsValidVersion checks if a version string is valid semantic version.
func IsValidVersion(version string) bool {
	version = strings.TrimPrefix(version, "v")
	_, err := semver.NewVersion(version)
	return err == nil
}

// LatestVersion picks the template with the highest semantic version from
// a list of versions of the same template name. Templates with invalid
// version strings are skipped.
func LatestVersion(templates []*models.SurveyTemplate) *models.SurveyTemplate {
	var latest *models.SurveyTemplate
	var latestVer *semver.Version

	for _, tpl := range templates {
		ver, err := semver.NewVersion(strings.TrimPrefix(tpl.Version, "v"))
		if err != nil {
			continue
		}
		if latestVer == nil || ver.GreaterThan(latestVer) {
			latest = tpl
			latestVer = ver
		}
	}
	return latest
}
