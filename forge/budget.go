package forge

// EstimateTokens approximates the token cost of a text. Roughly four
// characters per token for English prose; the constant matters less than the
// estimate being stable and monotonic in length.
func EstimateTokens(text string) int {
	return len(text)/4 + 1
}

// PruneToBudget walks the ranked candidates in order, accumulating estimated
// token cost, and cuts the list before the first candidate that would exceed
// the budget. Hitting the budget is an expected outcome, not an error.
func PruneToBudget(candidates []Candidate, budget int) (kept []Candidate, truncated bool) {
	total := 0
	for i, c := range candidates {
		cost := EstimateTokens(c.Item.Content)
		if total+cost > budget {
			return candidates[:i], true
		}
		total += cost
	}
	return candidates, false
}
