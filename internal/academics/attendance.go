package academics

import "portal/internal/model"

// Tally counts attendance records by status.
type Tally struct {
	Total      int     `json:"total_classes"`
	Present    int     `json:"present"`
	Absent     int     `json:"absent"`
	Late       int     `json:"late"`
	Excused    int     `json:"excused"`
	Attended   int     `json:"attended"`
	Percentage float64 `json:"attendance_percentage"`
}

// Summarize tallies records. Present and late both count as attended.
func Summarize(records []model.Attendance) Tally {
	var t Tally
	for _, r := range records {
		t.Total++
		switch r.Status {
		case model.AttendancePresent:
			t.Present++
		case model.AttendanceAbsent:
			t.Absent++
		case model.AttendanceLate:
			t.Late++
		case model.AttendanceExcused:
			t.Excused++
		}
		if r.Status.Attended() {
			t.Attended++
		}
	}
	t.Percentage = percentage(t.Attended, t.Total)
	return t
}

// AttendancePercentage is 100 * attended / total rounded to two decimals,
// and 0 for an empty record set.
func AttendancePercentage(records []model.Attendance) float64 {
	return Summarize(records).Percentage
}

func percentage(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return Round2(float64(part) / float64(total) * 100)
}
