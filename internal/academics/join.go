package academics

import (
	"sort"

	"portal/internal/model"
)

// EnrolledStudent is an active enrollment joined to its student.
type EnrolledStudent struct {
	Enrollment model.Enrollment `json:"enrollment"`
	Student    model.Student    `json:"student"`
}

// ResolveEnrolledStudents returns the enrollments of courseID whose status is
// enrolled, joined to their students. Enrollments whose student cannot be
// resolved are dropped, not padded.
func ResolveEnrolledStudents(enrollments []model.Enrollment, students []model.Student, courseID model.ID) []EnrolledStudent {
	byID := make(map[model.ID]*model.Student, len(students))
	for i := range students {
		byID[students[i].ID] = &students[i]
	}
	return enrolledIn(enrollments, courseID, func(id model.ID) *model.Student { return byID[id] })
}

// EnrolledStudents is ResolveEnrolledStudents over the index, reporting
// unresolved students.
func (ix *Index) EnrolledStudents(courseID model.ID) []EnrolledStudent {
	return enrolledIn(ix.Raw.Enrollments, courseID, func(id model.ID) *model.Student {
		return ix.Student(id, "enrollment")
	})
}

func enrolledIn(enrollments []model.Enrollment, courseID model.ID, lookup func(model.ID) *model.Student) []EnrolledStudent {
	var out []EnrolledStudent
	for _, e := range enrollments {
		if e.CourseID != courseID || e.Status != model.EnrollmentEnrolled {
			continue
		}
		s := lookup(e.StudentID)
		if s == nil {
			continue
		}
		out = append(out, EnrolledStudent{Enrollment: e, Student: *s})
	}
	return out
}

// AvailableCoursesForStudent returns the courses of the student's department
// that the student has no enrollment in, whatever that enrollment's status.
func AvailableCoursesForStudent(courses []model.Course, enrollments []model.Enrollment, student model.Student) []model.Course {
	taken := make(map[model.ID]struct{})
	for _, e := range enrollments {
		if e.StudentID == student.ID {
			taken[e.CourseID] = struct{}{}
		}
	}
	out := []model.Course{}
	for _, c := range courses {
		if c.DepartmentID != student.DepartmentID {
			continue
		}
		if _, ok := taken[c.ID]; ok {
			continue
		}
		out = append(out, c)
	}
	return out
}

// CoursesTaughtBy filters courses assigned to a faculty member.
func CoursesTaughtBy(courses []model.Course, facultyID model.ID) []model.Course {
	out := []model.Course{}
	for _, c := range courses {
		if c.FacultyID == facultyID {
			out = append(out, c)
		}
	}
	return out
}

// LowAttendanceRow is a student whose attendance in one course is below the threshold.
type LowAttendanceRow struct {
	EnrollmentID     model.ID `json:"enrollment_id"`
	StudentID        model.ID `json:"student_id"`
	StudentName      string   `json:"student_name"`
	EnrollmentNumber string   `json:"enrollment_number"`
	CourseCode       string   `json:"course_code"`
	CourseName       string   `json:"course_name"`
	Attendance       Tally    `json:"attendance"`
}

// LowAttendance lists active enrollments with at least one attendance record
// and an attendance percentage below threshold, lowest first.
func LowAttendance(ix *Index, threshold float64) []LowAttendanceRow {
	out := []LowAttendanceRow{}
	for _, e := range ix.Raw.Enrollments {
		if e.Status != model.EnrollmentEnrolled {
			continue
		}
		recs := ix.AttendanceOf(e.ID)
		if len(recs) == 0 {
			continue
		}
		t := Summarize(recs)
		if t.Percentage >= threshold {
			continue
		}
		row := LowAttendanceRow{
			EnrollmentID:     e.ID,
			StudentID:        e.StudentID,
			StudentName:      ix.StudentName(e.StudentID, "enrollment"),
			EnrollmentNumber: NotAvailable,
			CourseCode:       NotAvailable,
			CourseName:       Unknown,
			Attendance:       t,
		}
		if s := ix.Student(e.StudentID, "enrollment"); s != nil {
			row.EnrollmentNumber = s.EnrollmentNumber
		}
		if c := ix.Course(e.CourseID, "enrollment"); c != nil {
			row.CourseCode, row.CourseName = c.Code, c.Name
		}
		out = append(out, row)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Attendance.Percentage < out[j].Attendance.Percentage
	})
	return out
}

// Limit is the fixed-size slice applied to list views.
func Limit[T any](rows []T, n int) []T {
	if n <= 0 || len(rows) <= n {
		return rows
	}
	return rows[:n]
}
