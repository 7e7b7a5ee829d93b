// Package budget provides token budget estimation for assembled prompts.
// Because the generator supports multiple LLM backends with different
// tokenizers, this package uses a conservative character-based heuristic:
// 1 token ≈ 4 characters (English prose).
package budget

import (
	"github.com/cloudwego/eino/schema"
)

const (
	// charsPerToken is the character-to-token ratio used for estimation.
	charsPerToken = 4

	// DefaultMaxContextTokens is the default budget for retrieved context in
	// tokens. Fits comfortably within 8k-context models while leaving room for
	// the instruction template and the answer. Override via MAX_CONTEXT_TOKENS.
	DefaultMaxContextTokens = 3000
)

// Estimate returns a rough token count for s using the character heuristic.
func Estimate(s string) int {
	return estimateChars(len(s))
}

func estimateChars(n int) int {
	tokens := n / charsPerToken
	if tokens == 0 && n > 0 {
		return 1
	}
	return tokens
}

// EstimateMessages returns the estimated total token count for a slice of
// schema.Message values, summing role + content for each message.
func EstimateMessages(msgs []*schema.Message) int {
	total := 0
	for _, m := range msgs {
		// ~4 tokens of per-message overhead in most APIs.
		total += 4
		total += Estimate(string(m.Role))
		total += Estimate(m.Content)
	}
	return total
}

// Fit returns how many leading sections fit within maxTokens once joined
// with sep, so Estimate(strings.Join(sections[:n], sep)) <= maxTokens.
// Sections are ordered most important first, so dropping from the tail
// removes the least important content. maxTokens <= 0 means unlimited.
func Fit(sections []string, sep string, maxTokens int) int {
	if maxTokens <= 0 {
		return len(sections)
	}
	chars := 0
	for i, s := range sections {
		if i > 0 {
			chars += len(sep)
		}
		chars += len(s)
		if estimateChars(chars) > maxTokens {
			return i
		}
	}
	return len(sections)
}
