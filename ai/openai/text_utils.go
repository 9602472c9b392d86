package openai

import "strings"

// normalizeTags lowercases tags, trims stray punctuation and drops empties.
func normalizeTags(tags []string) []string {
	normalized := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		tag = strings.Trim(tag, ".,!?;:\"'()[]{}")
		if tag == "" {
			continue
		}
		normalized = append(normalized, tag)
	}
	return normalized
}

// isLetter returns true if the rune is an ASCII letter.
func isLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}
