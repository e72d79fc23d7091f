package academics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portal/internal/model"
)

func f(v float64) *float64 { return &v }

func TestSchemeA_Breakdown(t *testing.T) {
	b := SchemeA{Internal1: f(40), Internal2: f(45), External: f(42)}.Breakdown()

	assert.Equal(t, KindA, b.Scheme)
	assert.Equal(t, 42.5, b.Internal)
	assert.Equal(t, 84.5, b.Total)
	assert.Equal(t, 84.5, b.Percentage)
	assert.Equal(t, "A-", b.Letter)
	assert.True(t, b.Complete)
}

func TestSchemeA_MissingMarksPreviewAsZero(t *testing.T) {
	s := SchemeA{Internal1: f(40)}
	b := s.Breakdown()
	assert.Equal(t, 20.0, b.Internal)
	assert.Equal(t, 20.0, b.Total)
	assert.False(t, b.Complete)

	fields := s.Fields()
	assert.Nil(t, fields["internal2_marks"])
	assert.Nil(t, fields["external_marks"])
}

func TestSchemeB_UsesStoredExternal(t *testing.T) {
	s := SchemeBFromEntry(f(25), f(18), f(70))

	require.NotNil(t, s.StoredExternal)
	assert.Equal(t, 35.0, *s.StoredExternal)
	assert.Equal(t, 43.0, s.FinalIA())
	assert.Equal(t, 70.0, *s.DisplayExternal())

	b := s.Breakdown()
	assert.Equal(t, 78.0, b.Total)
	assert.Equal(t, 70.0, b.External)
	assert.Equal(t, "B+", b.Letter)

	// Sent on the entry scale; the backend halves it.
	assert.Equal(t, 70.0, *s.Fields()["external_marks"].(*float64))
}

func TestFromRecord_ResolvesScheme(t *testing.T) {
	stored := model.Grade{IA: f(25), Assignment: f(18), External: f(35)}
	s := FromRecord(stored, KindA)
	require.IsType(t, SchemeB{}, s)
	assert.Equal(t, 78.0, s.Breakdown().Total)

	legacy := model.Grade{Internal1: f(40), Internal2: f(45), External: f(42)}
	assert.IsType(t, SchemeA{}, FromRecord(legacy, KindB))

	bare := model.Grade{External: f(30)}
	assert.IsType(t, SchemeA{}, FromRecord(bare, KindA))
	assert.IsType(t, SchemeB{}, FromRecord(bare, KindB))
}

func TestEntry_SchemeAppliesPolicy(t *testing.T) {
	e := Entry{IA: f(35), Assignment: f(18), External: f(120)}

	s, err := e.Scheme(KindB, MarkPolicyOff)
	require.NoError(t, err)
	assert.Equal(t, 35.0, *s.(SchemeB).IA)

	s, err = e.Scheme(KindB, MarkPolicyClamp)
	require.NoError(t, err)
	assert.Equal(t, 30.0, *s.(SchemeB).IA)
	assert.Equal(t, 50.0, *s.(SchemeB).StoredExternal)

	_, err = e.Scheme(KindB, MarkPolicyReject)
	var oor *OutOfRangeError
	require.ErrorAs(t, err, &oor)
	assert.Equal(t, "ia_marks", oor.Field)
}

func TestDistribution_OrdersByBand(t *testing.T) {
	grades := []model.Grade{
		{IA: f(30), Assignment: f(20), External: f(45)},   // 95
		{IA: f(10), Assignment: f(5), External: f(10)},    // 25
		{IA: f(30), Assignment: f(20), External: f(42.5)}, // 92.5
	}
	assert.Equal(t, []LetterCount{{"A+", 2}, {"F", 1}}, Distribution(grades, KindB))
	assert.Empty(t, Distribution(nil, KindB))
}

func TestBreakdown_NoMarksHasNoLetter(t *testing.T) {
	b := SchemeB{}.Breakdown()
	assert.Zero(t, b.Total)
	assert.Empty(t, b.Letter)
	assert.Empty(t, b.Group)
	assert.Empty(t, SchemeA{}.Breakdown().Letter)
	assert.Equal(t, "F", SchemeB{IA: f(5)}.Breakdown().Letter)

	grades := []model.Grade{
		{ID: 1},
		{IA: f(30), Assignment: f(20), External: f(45)},
	}
	assert.Equal(t, []LetterCount{{"A+", 1}}, Distribution(grades, KindB))
}

func TestParseKindAndPolicy(t *testing.T) {
	k, err := ParseKind("")
	require.NoError(t, err)
	assert.Equal(t, KindB, k)
	_, err = ParseKind("c")
	assert.Error(t, err)

	p, err := ParseMarkPolicy("Clamp")
	require.NoError(t, err)
	assert.Equal(t, MarkPolicyClamp, p)
	_, err = ParseMarkPolicy("strict")
	assert.Error(t, err)
}
