package generate

import (
	"encoding/json"
	"strings"
)

// parseExamples extracts up to count distinct, non-empty example strings from
// a raw completion. Two response shapes are accepted: a bare JSON array of
// strings, and an era-keyed object of arrays (some models return the full
// object form regardless of instructions). Returns nil if nothing usable is
// recoverable.
func parseExamples(raw, era string, count int) []string {
	text := strings.TrimSpace(raw)
	if strings.HasPrefix(text, "```") {
		text = extractFromCodeBlock(text)
	}

	var list []string
	if err := json.Unmarshal([]byte(text), &list); err != nil {
		var byEra map[string][]string
		if err := json.Unmarshal([]byte(text), &byEra); err != nil {
			return nil
		}
		list = pickEra(byEra, era)
	}

	seen := make(map[string]bool)
	var examples []string
	for _, ex := range list {
		ex = strings.TrimSpace(ex)
		if ex == "" || seen[ex] {
			continue
		}
		seen[ex] = true
		examples = append(examples, ex)
		if len(examples) == count {
			break
		}
	}

	return examples
}

// pickEra selects the example list for an era from an era-keyed response,
// tolerating case and whitespace differences in the key. A single-entry
// object is taken as-is since the prompt asked about exactly one era.
func pickEra(byEra map[string][]string, era string) []string {
	if list, ok := byEra[era]; ok {
		return list
	}

	want := strings.ToLower(strings.TrimSpace(era))
	for key, list := range byEra {
		if strings.ToLower(strings.TrimSpace(key)) == want {
			return list
		}
	}

	if len(byEra) == 1 {
		for _, list := range byEra {
			return list
		}
	}

	return nil
}

// extractFromCodeBlock extracts content from a markdown code block.
func extractFromCodeBlock(text string) string {
	lines := strings.Split(text, "\n")
	if len(lines) < 2 {
		return text
	}

	// Remove first line (```json or ```)
	start := 1
	// Remove last line if it's ```
	end := len(lines)
	if strings.TrimSpace(lines[len(lines)-1]) == "```" {
		end = len(lines) - 1
	}

	return strings.Join(lines[start:end], "\n")
}
