package generate

import "fmt"

// buildPrompt renders the deterministic generation prompt for one
// (word, era, count) request. Identical requests produce identical prompts,
// which is what makes response caching sound.
func buildPrompt(word, era string, count int) string {
	return fmt.Sprintf(`Analyze how the word %q was understood and used during the era %q.

Provide %d contextual examples that show how people used this word during that period. Focus on:
- Semantic changes and shifts in meaning
- Cultural context and connotations
- Historical usage patterns

Requirements:
- Each example should be a complete phrase or short sentence (10-30 words)
- Show authentic period-appropriate usage
- Be historically accurate and specific

Format as valid JSON only (no markdown, no preamble): a JSON array of %d example strings.`,
		word, era, count, count)
}
