package forge

import (
	"regexp"
	"strings"
)

var (
	entityPattern = regexp.MustCompile(`\b[A-Z][a-z]+(?:\s+[A-Z][a-z]+)*\b`)

	// Sentence-initial words and question openers are capitalized without
	// naming anything.
	entityStopwords = map[string]bool{
		"the": true, "a": true, "an": true, "i": true,
		"what": true, "who": true, "when": true, "where": true, "why": true,
		"how": true, "is": true, "are": true, "does": true, "do": true,
		"tell": true, "show": true, "please": true,
	}
)

// ExtractEntities returns deduplicated capitalized noun phrases from the turn
// text, used to seed the graph neighborhood traversal. It is a deliberately
// naive fallback for a real NER collaborator.
func ExtractEntities(text string) []string {
	matches := entityPattern.FindAllString(text, -1)

	var entities []string
	seen := make(map[string]bool)
	for _, m := range matches {
		key := strings.ToLower(m)
		if entityStopwords[key] || seen[key] {
			continue
		}
		seen[key] = true
		entities = append(entities, m)
	}
	return entities
}
