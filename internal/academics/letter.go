package academics

import "math"

type band struct {
	min    float64
	letter string
}

// Highest threshold first; the first match wins.
var bands = []band{
	{90, "A+"},
	{85, "A"},
	{80, "A-"},
	{75, "B+"},
	{70, "B"},
	{65, "B-"},
	{60, "C+"},
	{55, "C"},
	{50, "C-"},
	{45, "D"},
}

// Letters lists every letter grade from best to worst.
var Letters = []string{"A+", "A", "A-", "B+", "B", "B-", "C+", "C", "C-", "D", "F"}

// LetterGrade maps a percentage to its letter grade. Every input, NaN
// included, lands in exactly one band.
func LetterGrade(percentage float64) string {
	for _, b := range bands {
		if percentage >= b.min {
			return b.letter
		}
	}
	return "F"
}

// LetterGroup collapses a letter grade to its first letter. It is used for
// display grouping only and is not a second grading policy.
func LetterGroup(letter string) string {
	if letter == "" {
		return ""
	}
	return letter[:1]
}

// Round2 rounds to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
