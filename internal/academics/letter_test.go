package academics

import (
	"math"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLetterGrade_Boundaries(t *testing.T) {
	testCases := []struct {
		percentage float64
		expected   string
	}{
		{100, "A+"},
		{90, "A+"},
		{89.99, "A"},
		{85, "A"},
		{84.5, "A-"},
		{80, "A-"},
		{79.99, "B+"},
		{75, "B+"},
		{70, "B"},
		{65, "B-"},
		{60, "C+"},
		{55, "C"},
		{50, "C-"},
		{45, "D"},
		{44.99, "F"},
		{0, "F"},
		{-12, "F"},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.expected, LetterGrade(tc.percentage), "percentage %v", tc.percentage)
	}
}

func TestLetterGrade_TotalAndMonotonic(t *testing.T) {
	assert.Equal(t, "F", LetterGrade(math.NaN()))
	assert.Equal(t, "A+", LetterGrade(math.Inf(1)))
	assert.Equal(t, "F", LetterGrade(math.Inf(-1)))

	prev := slices.Index(Letters, LetterGrade(-5))
	for p := -5.0; p <= 105; p += 0.25 {
		r := slices.Index(Letters, LetterGrade(p))
		assert.NotEqual(t, -1, r)
		assert.LessOrEqual(t, r, prev, "grade dropped at %v", p)
		prev = r
	}
}

func TestLetterGroup(t *testing.T) {
	assert.Equal(t, "A", LetterGroup("A+"))
	assert.Equal(t, "B", LetterGroup("B-"))
	assert.Equal(t, "F", LetterGroup("F"))
	assert.Equal(t, "", LetterGroup(""))
}
