package academics

import "portal/internal/model"

// GradeView is a grade as displayed. Ungraded enrollments are a valid state
// with Graded false, not missing data.
type GradeView struct {
	GradeID   model.ID            `json:"grade_id,omitempty"`
	Graded    bool                `json:"graded"`
	Marks     map[string]*float64 `json:"marks,omitempty"`
	Breakdown *Breakdown          `json:"breakdown,omitempty"`
}

// ViewGrade derives the display form of g; nil means ungraded.
func ViewGrade(g *model.Grade, fallback Kind) GradeView {
	if g == nil {
		return GradeView{}
	}
	s := FromRecord(*g, fallback)
	b := s.Breakdown()
	v := GradeView{GradeID: g.ID, Graded: true, Breakdown: &b}
	switch s := s.(type) {
	case SchemeA:
		v.Marks = map[string]*float64{
			"internal1_marks": s.Internal1,
			"internal2_marks": s.Internal2,
			"external_marks":  s.External,
		}
	case SchemeB:
		finalIA := s.FinalIA()
		v.Marks = map[string]*float64{
			"ia_marks":         s.IA,
			"assignment_marks": s.Assignment,
			"final_ia_marks":   &finalIA,
			"external_marks":   s.DisplayExternal(),
		}
	}
	return v
}

// RosterRow is one enrolled student of a course as a faculty member sees it.
type RosterRow struct {
	EnrollmentID     model.ID  `json:"enrollment_id"`
	StudentID        model.ID  `json:"student_id"`
	StudentName      string    `json:"student_name"`
	EnrollmentNumber string    `json:"enrollment_number"`
	Semester         string    `json:"semester"`
	Attendance       Tally     `json:"attendance"`
	Grade            GradeView `json:"grade"`
}

// Roster joins the enrolled students of a course with their names,
// attendance tallies and grades.
func Roster(ix *Index, courseID model.ID, fallback Kind) []RosterRow {
	rows := []RosterRow{}
	for _, es := range ix.EnrolledStudents(courseID) {
		row := RosterRow{
			EnrollmentID:     es.Enrollment.ID,
			StudentID:        es.Student.ID,
			StudentName:      ix.UserName(es.Student.UserID, "student"),
			EnrollmentNumber: orNA(es.Student.EnrollmentNumber),
			Semester:         orNA(es.Enrollment.Semester),
			Attendance:       Summarize(ix.AttendanceOf(es.Enrollment.ID)),
			Grade:            ViewGrade(ix.GradeOf(es.Enrollment.ID), fallback),
		}
		rows = append(rows, row)
	}
	return rows
}

// StudentCourseRow is one of a student's enrollments as the student sees it.
type StudentCourseRow struct {
	EnrollmentID model.ID               `json:"enrollment_id"`
	CourseID     model.ID               `json:"course_id"`
	CourseCode   string                 `json:"course_code"`
	CourseName   string                 `json:"course_name"`
	FacultyName  string                 `json:"faculty_name"`
	Semester     string                 `json:"semester"`
	Credits      int                    `json:"credits"`
	Status       model.EnrollmentStatus `json:"status"`
	Attendance   Tally                  `json:"attendance"`
	Grade        GradeView              `json:"grade"`
}

// StudentCourses joins a student's enrollments with course, faculty,
// attendance and grade.
func StudentCourses(ix *Index, studentID model.ID, fallback Kind) []StudentCourseRow {
	rows := []StudentCourseRow{}
	for _, e := range ix.EnrollmentsOf(studentID) {
		row := StudentCourseRow{
			EnrollmentID: e.ID,
			CourseID:     e.CourseID,
			CourseCode:   NotAvailable,
			CourseName:   Unknown,
			FacultyName:  Unknown,
			Semester:     orNA(e.Semester),
			Status:       e.Status,
			Attendance:   Summarize(ix.AttendanceOf(e.ID)),
			Grade:        ViewGrade(ix.GradeOf(e.ID), fallback),
		}
		if c := ix.Course(e.CourseID, "enrollment"); c != nil {
			row.CourseCode, row.CourseName, row.Credits = c.Code, c.Name, c.Credits
			row.FacultyName = ix.FacultyName(c.FacultyID, "course")
			if e.Semester == "" {
				row.Semester = orNA(c.Semester)
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// OverallAttendance tallies every attendance record of a student.
func OverallAttendance(ix *Index, studentID model.ID) Tally {
	var all []model.Attendance
	for _, e := range ix.EnrollmentsOf(studentID) {
		all = append(all, ix.AttendanceOf(e.ID)...)
	}
	return Summarize(all)
}

// AveragePercentage is the mean percentage over graded rows, 0 when none are graded.
func AveragePercentage(rows []StudentCourseRow) float64 {
	var sum float64
	var n int
	for _, r := range rows {
		if r.Grade.Breakdown == nil {
			continue
		}
		sum += r.Grade.Breakdown.Percentage
		n++
	}
	if n == 0 {
		return 0
	}
	return Round2(sum / float64(n))
}

// StudentRow is a student joined to user and department.
type StudentRow struct {
	model.Student
	Name       string `json:"name"`
	Email      string `json:"email"`
	Department string `json:"department_name"`
}

func StudentRows(ix *Index) []StudentRow {
	rows := make([]StudentRow, 0, len(ix.Raw.Students))
	for _, s := range ix.Raw.Students {
		row := StudentRow{Student: s, Name: Unknown, Email: NotAvailable}
		if u := ix.User(s.UserID, "student"); u != nil {
			row.Name, row.Email = DisplayName(u), u.Email
		}
		row.Department = ix.DepartmentName(s.DepartmentID, "student")
		rows = append(rows, row)
	}
	return rows
}

// FacultyRow is a faculty member joined to user and department.
type FacultyRow struct {
	model.Faculty
	Name       string `json:"name"`
	Email      string `json:"email"`
	Department string `json:"department_name"`
	Courses    int    `json:"course_count"`
}

func FacultyRows(ix *Index) []FacultyRow {
	rows := make([]FacultyRow, 0, len(ix.Raw.Faculty))
	for _, f := range ix.Raw.Faculty {
		row := FacultyRow{Faculty: f, Name: Unknown, Email: NotAvailable}
		if u := ix.User(f.UserID, "faculty"); u != nil {
			row.Name, row.Email = DisplayName(u), u.Email
		}
		row.Department = ix.DepartmentName(f.DepartmentID, "faculty")
		row.Courses = len(CoursesTaughtBy(ix.Raw.Courses, f.ID))
		rows = append(rows, row)
	}
	return rows
}

// CourseRow is a course joined to department, faculty and enrollment count.
type CourseRow struct {
	model.Course
	Department  string `json:"department_name"`
	FacultyName string `json:"faculty_name"`
	Enrolled    int    `json:"enrolled"`
}

func CourseRows(ix *Index, courses []model.Course) []CourseRow {
	counts := make(map[model.ID]int)
	for _, e := range ix.Raw.Enrollments {
		if e.Status == model.EnrollmentEnrolled {
			counts[e.CourseID]++
		}
	}
	rows := make([]CourseRow, 0, len(courses))
	for _, c := range courses {
		rows = append(rows, CourseRow{
			Course:      c,
			Department:  ix.DepartmentName(c.DepartmentID, "course"),
			FacultyName: ix.FacultyName(c.FacultyID, "course"),
			Enrolled:    counts[c.ID],
		})
	}
	return rows
}

// DepartmentRow is a department with its head's name. A department without
// a head shows N/A; a head that cannot be resolved shows Unknown.
type DepartmentRow struct {
	model.Department
	HeadName string `json:"head_name"`
	Students int    `json:"student_count"`
	Faculty  int    `json:"faculty_count"`
}

func DepartmentRows(ix *Index) []DepartmentRow {
	students := make(map[model.ID]int)
	for _, s := range ix.Raw.Students {
		students[s.DepartmentID]++
	}
	faculty := make(map[model.ID]int)
	for _, f := range ix.Raw.Faculty {
		faculty[f.DepartmentID]++
	}
	rows := make([]DepartmentRow, 0, len(ix.Raw.Departments))
	for _, d := range ix.Raw.Departments {
		row := DepartmentRow{Department: d, HeadName: NotAvailable, Students: students[d.ID], Faculty: faculty[d.ID]}
		if d.Head != nil && d.Head.Valid() {
			row.HeadName = ix.FacultyName(*d.Head, "department")
		}
		rows = append(rows, row)
	}
	return rows
}

// EnrollmentRow is an enrollment joined to student and course.
type EnrollmentRow struct {
	model.Enrollment
	StudentName      string `json:"student_name"`
	EnrollmentNumber string `json:"enrollment_number"`
	CourseCode       string `json:"course_code"`
	CourseName       string `json:"course_name"`
}

func EnrollmentRows(ix *Index) []EnrollmentRow {
	rows := make([]EnrollmentRow, 0, len(ix.Raw.Enrollments))
	for _, e := range ix.Raw.Enrollments {
		row := EnrollmentRow{Enrollment: e, EnrollmentNumber: NotAvailable, CourseCode: NotAvailable, CourseName: Unknown}
		row.StudentName = ix.StudentName(e.StudentID, "enrollment")
		if s := ix.Student(e.StudentID, "enrollment"); s != nil {
			row.EnrollmentNumber = orNA(s.EnrollmentNumber)
		}
		if c := ix.Course(e.CourseID, "enrollment"); c != nil {
			row.CourseCode, row.CourseName = c.Code, c.Name
		}
		rows = append(rows, row)
	}
	return rows
}

// AttendanceRow is an attendance record joined through its enrollment.
type AttendanceRow struct {
	model.Attendance
	StudentName  string `json:"student_name"`
	CourseCode   string `json:"course_code"`
	MarkedByName string `json:"marked_by_name"`
}

func AttendanceRows(ix *Index, records []model.Attendance) []AttendanceRow {
	rows := make([]AttendanceRow, 0, len(records))
	for _, a := range records {
		row := AttendanceRow{Attendance: a, StudentName: Unknown, CourseCode: NotAvailable, MarkedByName: NotAvailable}
		if e := ix.Enrollment(a.EnrollmentID, "attendance"); e != nil {
			row.StudentName = ix.StudentName(e.StudentID, "enrollment")
			if c := ix.Course(e.CourseID, "enrollment"); c != nil {
				row.CourseCode = c.Code
			}
		}
		if a.MarkedBy.Valid() {
			row.MarkedByName = ix.FacultyName(a.MarkedBy, "attendance")
		}
		rows = append(rows, row)
	}
	return rows
}

// GradeRow is a grade joined through its enrollment, with its derived breakdown.
type GradeRow struct {
	model.Grade
	StudentName string    `json:"student_name"`
	CourseCode  string    `json:"course_code"`
	View        GradeView `json:"view"`
}

func GradeRows(ix *Index, fallback Kind) []GradeRow {
	rows := make([]GradeRow, 0, len(ix.Raw.Grades))
	for i := range ix.Raw.Grades {
		g := ix.Raw.Grades[i]
		row := GradeRow{Grade: g, StudentName: Unknown, CourseCode: NotAvailable, View: ViewGrade(&g, fallback)}
		if e := ix.Enrollment(g.EnrollmentID, "grade"); e != nil {
			row.StudentName = ix.StudentName(e.StudentID, "enrollment")
			if c := ix.Course(e.CourseID, "enrollment"); c != nil {
				row.CourseCode = c.Code
			}
		}
		rows = append(rows, row)
	}
	return rows
}

func orNA(s string) string {
	if s == "" {
		return NotAvailable
	}
	return s
}
