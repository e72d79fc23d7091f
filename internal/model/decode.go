package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DayLayout is the date format sent to and displayed from the backend.
const DayLayout = "2006-01-02"

var dayLayouts = []string{
	DayLayout,
	time.RFC1123,
	time.RFC1123Z,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ParseDay parses the date forms the backend emits: ISO dates, HTTP dates
// and timestamps.
func ParseDay(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dayLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}

// NormalizeDay rewrites any accepted date form as DayLayout; unparseable
// input is returned unchanged.
func NormalizeDay(s string) string {
	t, err := ParseDay(s)
	if err != nil {
		return s
	}
	return t.Format(DayLayout)
}

// number decodes decimals that arrive either as JSON numbers or as strings.
type number float64

func (n *number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s = strings.TrimSpace(s); s == "" {
			*n = 0
			return nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("invalid decimal %q", s)
		}
		*n = number(f)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("invalid decimal %s", string(data))
	}
	*n = number(f)
	return nil
}

func (n *number) float() *float64 {
	if n == nil {
		return nil
	}
	f := float64(*n)
	return &f
}

// UnmarshalJSON accepts marks as numbers or decimal strings.
func (g *Grade) UnmarshalJSON(data []byte) error {
	type alias Grade
	aux := struct {
		*alias
		Internal1  *number `json:"internal1_marks"`
		Internal2  *number `json:"internal2_marks"`
		IA         *number `json:"ia_marks"`
		Assignment *number `json:"assignment_marks"`
		FinalIA    *number `json:"final_ia_marks"`
		External   *number `json:"external_marks"`
		Total      *number `json:"total_marks"`
		Percentage *number `json:"percentage"`
	}{alias: (*alias)(g)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	g.Internal1 = aux.Internal1.float()
	g.Internal2 = aux.Internal2.float()
	g.IA = aux.IA.float()
	g.Assignment = aux.Assignment.float()
	g.FinalIA = aux.FinalIA.float()
	g.External = aux.External.float()
	g.Total = aux.Total.float()
	g.Percentage = aux.Percentage.float()
	return nil
}

// UnmarshalJSON accepts the cgpa as a number or a decimal string.
func (s *Student) UnmarshalJSON(data []byte) error {
	type alias Student
	aux := struct {
		*alias
		CGPA *number `json:"cgpa"`
	}{alias: (*alias)(s)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if f := aux.CGPA.float(); f != nil {
		s.CGPA = *f
	}
	return nil
}

// UnmarshalJSON normalizes the attendance date to DayLayout.
func (a *Attendance) UnmarshalJSON(data []byte) error {
	type alias Attendance
	if err := json.Unmarshal(data, (*alias)(a)); err != nil {
		return err
	}
	a.Date = NormalizeDay(a.Date)
	return nil
}
