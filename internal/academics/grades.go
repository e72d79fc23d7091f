package academics

import (
	"fmt"
	"strings"

	"portal/internal/model"
)

// Kind names a grading scheme.
type Kind string

const (
	// KindA: two internals out of 50, averaged, plus an external out of 50.
	KindA Kind = "a"
	// KindB: IA out of 30 plus assignment out of 20, plus an external entered
	// out of 100 and stored halved.
	KindB Kind = "b"
)

// ParseKind parses a configured scheme name.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindA, KindB:
		return k, nil
	case "":
		return KindB, nil
	default:
		return "", fmt.Errorf("unknown grade scheme %q", s)
	}
}

// Scheme is the tagged variant over the two grading schemes. Each variant
// owns the one canonical total calculation for its marks.
type Scheme interface {
	Kind() Kind
	Breakdown() Breakdown
	// Fields renders the marks the way the backend expects them on create/update.
	Fields() map[string]any
}

// Breakdown is the derived, display-ready view of a set of marks.
type Breakdown struct {
	Scheme     Kind    `json:"scheme"`
	Internal   float64 `json:"internal"`
	External   float64 `json:"external"`
	Total      float64 `json:"total"`
	Percentage float64 `json:"percentage"`
	Letter     string  `json:"letter_grade"`
	Group      string  `json:"letter_group"`
	Complete   bool    `json:"complete"`
}

// SchemeA holds internal1 (0-50), internal2 (0-50) and external (0-50).
type SchemeA struct {
	Internal1 *float64
	Internal2 *float64
	External  *float64
}

func (SchemeA) Kind() Kind { return KindA }

// Breakdown: internal average plus external. Missing marks count as 0 here
// but are never written back as 0.
func (s SchemeA) Breakdown() Breakdown {
	avg := (val(s.Internal1) + val(s.Internal2)) / 2
	total := avg + val(s.External)
	return finish(Breakdown{
		Scheme:   KindA,
		Internal: Round2(avg),
		External: Round2(val(s.External)),
		Total:    Round2(total),
		Complete: s.Internal1 != nil && s.Internal2 != nil && s.External != nil,
	})
}

func (s SchemeA) Fields() map[string]any {
	b := s.Breakdown()
	var letter *string
	if b.Letter != "" {
		letter = &b.Letter
	}
	return map[string]any{
		"internal1_marks": s.Internal1,
		"internal2_marks": s.Internal2,
		"external_marks":  s.External,
		"total_marks":     b.Total,
		"percentage":      b.Percentage,
		"letter_grade":    letter,
	}
}

// SchemeB holds IA (0-30), assignment (0-20) and the external mark in its
// stored, halved form (0-50).
type SchemeB struct {
	IA             *float64
	Assignment     *float64
	StoredExternal *float64
}

// SchemeBFromEntry builds a SchemeB from marks as typed by faculty, with the
// external mark on the 0-100 scale.
func SchemeBFromEntry(ia, assignment, external *float64) SchemeB {
	s := SchemeB{IA: ia, Assignment: assignment}
	if external != nil {
		half := *external / 2
		s.StoredExternal = &half
	}
	return s
}

func (SchemeB) Kind() Kind { return KindB }

// FinalIA is IA plus assignment.
func (s SchemeB) FinalIA() float64 { return val(s.IA) + val(s.Assignment) }

// DisplayExternal re-doubles the stored external mark.
func (s SchemeB) DisplayExternal() *float64 {
	if s.StoredExternal == nil {
		return nil
	}
	v := *s.StoredExternal * 2
	return &v
}

// Breakdown: total is final IA plus the stored (halved) external mark.
func (s SchemeB) Breakdown() Breakdown {
	total := s.FinalIA() + val(s.StoredExternal)
	return finish(Breakdown{
		Scheme:   KindB,
		Internal: Round2(s.FinalIA()),
		External: Round2(val(s.StoredExternal) * 2),
		Total:    Round2(total),
		Complete: s.IA != nil && s.Assignment != nil && s.StoredExternal != nil,
	})
}

// Fields sends the external mark on the entry scale; the backend halves it
// when it persists the record.
func (s SchemeB) Fields() map[string]any {
	return map[string]any{
		"ia_marks":         s.IA,
		"assignment_marks": s.Assignment,
		"external_marks":   s.DisplayExternal(),
	}
}

// FromRecord resolves which scheme a stored grade was written with. Records
// carrying neither scheme's internal marks fall back to the given kind.
func FromRecord(g model.Grade, fallback Kind) Scheme {
	switch {
	case g.IA != nil || g.Assignment != nil:
		return SchemeB{IA: g.IA, Assignment: g.Assignment, StoredExternal: g.External}
	case g.FinalIA != nil:
		return SchemeB{IA: g.FinalIA, Assignment: ptr(0), StoredExternal: g.External}
	case g.Internal1 != nil || g.Internal2 != nil:
		return SchemeA{Internal1: g.Internal1, Internal2: g.Internal2, External: g.External}
	case fallback == KindA:
		return SchemeA{External: g.External}
	default:
		return SchemeB{StoredExternal: g.External}
	}
}

// Entry is a set of marks as typed into a grade form. Which fields matter
// depends on the scheme.
type Entry struct {
	Internal1  *float64 `json:"internal1_marks"`
	Internal2  *float64 `json:"internal2_marks"`
	IA         *float64 `json:"ia_marks"`
	Assignment *float64 `json:"assignment_marks"`
	External   *float64 `json:"external_marks"`
}

// Scheme converts the entry to the given scheme after applying the policy to
// each mark's range.
func (e Entry) Scheme(kind Kind, policy MarkPolicy) (Scheme, error) {
	if kind == KindA {
		i1, err := policy.ApplyPtr("internal1_marks", e.Internal1, 50)
		if err != nil {
			return nil, err
		}
		i2, err := policy.ApplyPtr("internal2_marks", e.Internal2, 50)
		if err != nil {
			return nil, err
		}
		ext, err := policy.ApplyPtr("external_marks", e.External, 50)
		if err != nil {
			return nil, err
		}
		return SchemeA{Internal1: i1, Internal2: i2, External: ext}, nil
	}
	ia, err := policy.ApplyPtr("ia_marks", e.IA, 30)
	if err != nil {
		return nil, err
	}
	asg, err := policy.ApplyPtr("assignment_marks", e.Assignment, 20)
	if err != nil {
		return nil, err
	}
	ext, err := policy.ApplyPtr("external_marks", e.External, 100)
	if err != nil {
		return nil, err
	}
	return SchemeBFromEntry(ia, asg, ext), nil
}

// Distribution counts grades per letter in band order. Letters are derived
// from the marks, not trusted from the record; ungraded records are skipped.
func Distribution(grades []model.Grade, fallback Kind) []LetterCount {
	counts := make(map[string]int, len(Letters))
	for _, g := range grades {
		if l := FromRecord(g, fallback).Breakdown().Letter; l != "" {
			counts[l]++
		}
	}
	out := make([]LetterCount, 0, len(counts))
	for _, l := range Letters {
		if n := counts[l]; n > 0 {
			out = append(out, LetterCount{Letter: l, Count: n})
		}
	}
	return out
}

// LetterCount is one row of a grade distribution.
type LetterCount struct {
	Letter string `json:"letter_grade"`
	Count  int    `json:"count"`
}

// finish derives the percentage and letter. A zero total has no letter.
func finish(b Breakdown) Breakdown {
	b.Percentage = b.Total
	if b.Total <= 0 {
		return b
	}
	b.Letter = LetterGrade(b.Percentage)
	b.Group = LetterGroup(b.Letter)
	return b
}

func val(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

func ptr(v float64) *float64 { return &v }
