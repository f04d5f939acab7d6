package escalation

import "regexp"

// distressPattern matches whole distress words, case-insensitively. Both
// straight and curly apostrophes are accepted in "don't like", and the
// apostrophe may be left out.
var distressPattern = regexp.MustCompile(`(?i)\b(sad|scared|worried|upset|afraid|mad|angry|hurt|unhappy|frustrated|lonely|anxious|nervous|stressed|hate|don['’]?t like|bad|terrible|awful)\b`)

// CountDistress returns how many distress words occur in text. Every
// occurrence counts, so "sad, so sad" is 2.
func CountDistress(text string) int {
	if text == "" {
		return 0
	}
	return len(distressPattern.FindAllStringIndex(text, -1))
}
