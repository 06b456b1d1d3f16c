package suggest

import (
	"regexp"
	"strings"
)

// suggestionLine matches "CATEGORY: title - description" with room for the
// decoration models like to add: leading markdown bullets or numbering,
// bold markers around the category, any case, and either a hyphen or an
// en/em dash between title and description.
var suggestionLine = regexp.MustCompile(
	`(?i)^\s*(?:[-*\d.)\s]*)\**\s*(meme|animation|illustration)\s*\**\s*:\s*(.+)$`,
)

var titleSeparator = regexp.MustCompile(`\s+[-–—]\s+`)

// ParseSuggestions extracts suggestions from a model reply. Lines that do
// not match are skipped; duplicate categories keep the first occurrence.
// The result can hold fewer than three entries when the model drops a
// category.
func ParseSuggestions(content string) []Suggestion {
	seen := map[Category]bool{}
	var suggestions []Suggestion

	for _, line := range strings.Split(content, "\n") {
		m := suggestionLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}

		category := Category(strings.ToUpper(m[1]))
		if seen[category] {
			continue
		}

		rest := strings.TrimSpace(m[2])
		title, description := rest, ""
		if loc := titleSeparator.FindStringIndex(rest); loc != nil {
			title = strings.TrimSpace(rest[:loc[0]])
			description = strings.TrimSpace(rest[loc[1]:])
		}
		title = strings.Trim(title, "*\"")
		if title == "" {
			continue
		}

		seen[category] = true
		suggestions = append(suggestions, Suggestion{
			Category:    category,
			Title:       title,
			Description: description,
		})
	}
	return suggestions
}
