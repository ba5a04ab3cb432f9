package insight

import (
	"regexp"
	"strings"
)

var numberedMarker = regexp.MustCompile(`^\d+\.`)

// ParseInsights keeps the bulleted or numbered lines of a model reply with
// their markers stripped. A reply without any such line is returned whole.
func ParseInsights(text string) []string {
	var insights []string
	for _, line := range strings.Split(text, "\n") {
		cleaned := strings.TrimSpace(line)
		if cleaned == "" {
			continue
		}

		switch {
		case strings.HasPrefix(cleaned, "•"):
			cleaned = strings.TrimPrefix(cleaned, "•")
		case strings.HasPrefix(cleaned, "-"), strings.HasPrefix(cleaned, "*"):
			cleaned = cleaned[1:]
		case numberedMarker.MatchString(cleaned):
			cleaned = numberedMarker.ReplaceAllString(cleaned, "")
		default:
			continue
		}
		insights = append(insights, strings.TrimSpace(cleaned))
	}

	if len(insights) == 0 {
		return []string{text}
	}
	return insights
}
