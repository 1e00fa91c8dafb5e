package prompt

// Per-character token weights. Korean text tokenizes less efficiently than
// Latin script in the target model, so Hangul syllables weigh more.
const (
	hangulWeight = 2.5
	otherWeight  = 1.2
)

// EstimateTokens approximates the token cost of a text span. It is a rough
// heuristic for budget decisions, not billing-accurate counting.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}

	var hangul, other int
	for _, r := range text {
		if r >= 0xAC00 && r <= 0xD7AF {
			hangul++
		} else {
			other++
		}
	}
	return int(float64(hangul)*hangulWeight + float64(other)*otherWeight)
}
