package academics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portal/internal/model"
)

type missLog struct {
	entries []string
}

func (m *missLog) JoinMiss(entity string, id model.ID, referrer string) {
	m.entries = append(m.entries, entity+":"+id.String()+"<-"+referrer)
}

func fixture() Collections {
	head := model.ID(10)
	ghostHead := model.ID(99)
	return Collections{
		Users: []model.User{
			{ID: 1, FirstName: "Asha", LastName: "Rao", Email: "asha@uni.test", Role: model.RoleStudent},
			{ID: 2, FirstName: "Ben", LastName: "Okafor", Email: "ben@uni.test", Role: model.RoleStudent},
			{ID: 5, FirstName: "Dr", LastName: "Menon", Email: "menon@uni.test", Role: model.RoleFaculty},
		},
		Students: []model.Student{
			{ID: 100, UserID: 1, EnrollmentNumber: "CS001", DepartmentID: 1},
			{ID: 101, UserID: 2, EnrollmentNumber: "CS002", DepartmentID: 1},
			{ID: 102, UserID: 77, EnrollmentNumber: "CS003", DepartmentID: 1},
		},
		Faculty: []model.Faculty{{ID: 10, UserID: 5, DepartmentID: 1}},
		Departments: []model.Department{
			{ID: 1, Code: "CS", Name: "Computer Science", Head: &head},
			{ID: 2, Code: "ME", Name: "Mechanical"},
			{ID: 3, Code: "EE", Name: "Electrical", Head: &ghostHead},
		},
		Courses: []model.Course{
			{ID: 200, Code: "CS101", Name: "Programming", DepartmentID: 1, FacultyID: 10, Semester: "Fall 2024"},
			{ID: 201, Code: "CS102", Name: "Data Structures", DepartmentID: 1, FacultyID: 10},
			{ID: 202, Code: "ME101", Name: "Statics", DepartmentID: 2, FacultyID: 11},
		},
		Enrollments: []model.Enrollment{
			{ID: 300, StudentID: 100, CourseID: 200, Status: model.EnrollmentEnrolled},
			{ID: 301, StudentID: 101, CourseID: 200, Status: model.EnrollmentDropped},
			{ID: 302, StudentID: 999, CourseID: 200, Status: model.EnrollmentEnrolled},
			{ID: 303, StudentID: 101, CourseID: 201, Status: model.EnrollmentEnrolled},
			{ID: 304, StudentID: 102, CourseID: 200, Status: model.EnrollmentEnrolled},
		},
		Attendance: []model.Attendance{
			{ID: 1, EnrollmentID: 300, Date: "2024-09-01", Status: model.AttendancePresent, MarkedBy: 10},
			{ID: 2, EnrollmentID: 300, Date: "2024-09-02", Status: model.AttendanceLate, MarkedBy: 10},
			{ID: 3, EnrollmentID: 300, Date: "2024-09-03", Status: model.AttendanceAbsent, MarkedBy: 10},
			{ID: 4, EnrollmentID: 300, Date: "2024-09-04", Status: model.AttendanceExcused, MarkedBy: 10},
			{ID: 5, EnrollmentID: 303, Date: "2024-09-01", Status: model.AttendanceAbsent, MarkedBy: 10},
			{ID: 6, EnrollmentID: 888, Date: "2024-09-01", Status: model.AttendancePresent, MarkedBy: 10},
		},
		Grades: []model.Grade{
			{ID: 400, EnrollmentID: 300, IA: f(25), Assignment: f(18), External: f(35)},
		},
	}
}

func TestResolveEnrolledStudents(t *testing.T) {
	c := fixture()
	got := ResolveEnrolledStudents(c.Enrollments, c.Students, 200)

	ids := []model.ID{}
	for _, es := range got {
		ids = append(ids, es.Enrollment.ID)
	}
	// 301 is dropped, 302 has no student record.
	assert.Equal(t, []model.ID{300, 304}, ids)
	assert.Equal(t, "CS001", got[0].Student.EnrollmentNumber)

	assert.Empty(t, ResolveEnrolledStudents(c.Enrollments, c.Students, 999))
}

func TestIndex_ReportsMissesOnce(t *testing.T) {
	misses := &missLog{}
	ix := NewIndex(fixture(), misses)

	ix.EnrolledStudents(200)
	ix.EnrolledStudents(200)

	assert.Equal(t, []string{"student:999<-enrollment"}, misses.entries)
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "Unknown", DisplayName(nil))
	assert.Equal(t, "Asha Rao", DisplayName(&model.User{FirstName: "Asha", LastName: "Rao"}))

	ix := NewIndex(fixture(), nil)
	assert.Equal(t, "Unknown", ix.StudentName(102, "test"))
	assert.Equal(t, "Dr Menon", ix.FacultyName(10, "test"))
}

func TestAvailableCoursesForStudent(t *testing.T) {
	c := fixture()
	student := c.Students[1] // enrolled (dropped) in 200, enrolled in 201

	assert.Empty(t, AvailableCoursesForStudent(c.Courses, c.Enrollments, student))

	fresh := model.Student{ID: 500, DepartmentID: 1}
	got := AvailableCoursesForStudent(c.Courses, c.Enrollments, fresh)
	require.Len(t, got, 2)
	assert.Equal(t, model.ID(200), got[0].ID)
	assert.Equal(t, model.ID(201), got[1].ID)
}

func TestRoster(t *testing.T) {
	ix := NewIndex(fixture(), nil)
	rows := Roster(ix, 200, KindB)
	require.Len(t, rows, 2)

	first := rows[0]
	assert.Equal(t, "Asha Rao", first.StudentName)
	assert.Equal(t, 4, first.Attendance.Total)
	assert.Equal(t, 50.0, first.Attendance.Percentage)
	assert.True(t, first.Grade.Graded)
	assert.Equal(t, 78.0, first.Grade.Breakdown.Total)
	assert.Equal(t, "N/A", first.Semester)

	second := rows[1]
	assert.Equal(t, "Unknown", second.StudentName)
	assert.False(t, second.Grade.Graded)
	assert.Nil(t, second.Grade.Breakdown)
	assert.Equal(t, 0.0, second.Attendance.Percentage)
}

func TestStudentCourses(t *testing.T) {
	ix := NewIndex(fixture(), nil)
	rows := StudentCourses(ix, 100, KindB)
	require.Len(t, rows, 1)
	assert.Equal(t, "CS101", rows[0].CourseCode)
	assert.Equal(t, "Dr Menon", rows[0].FacultyName)
	assert.Equal(t, "Fall 2024", rows[0].Semester)
	assert.Equal(t, 78.0, AveragePercentage(rows))

	overall := OverallAttendance(ix, 100)
	assert.Equal(t, 4, overall.Total)
	assert.Equal(t, 2, overall.Attended)
}

func TestAdminRows(t *testing.T) {
	misses := &missLog{}
	ix := NewIndex(fixture(), misses)

	depts := DepartmentRows(ix)
	assert.Equal(t, "Dr Menon", depts[0].HeadName)
	assert.Equal(t, "N/A", depts[1].HeadName)
	assert.Equal(t, "Unknown", depts[2].HeadName)
	assert.Equal(t, 3, depts[0].Students)

	courses := CourseRows(ix, ix.Raw.Courses)
	assert.Equal(t, 3, courses[0].Enrolled)
	assert.Equal(t, "Unknown", courses[2].FacultyName)

	att := AttendanceRows(ix, ix.Raw.Attendance)
	assert.Equal(t, "Unknown", att[5].StudentName)
	assert.Equal(t, "N/A", att[5].CourseCode)

	assert.Contains(t, misses.entries, "enrollment:888<-attendance")
	assert.Contains(t, misses.entries, "faculty:99<-department")
}

func TestLowAttendance(t *testing.T) {
	ix := NewIndex(fixture(), nil)
	rows := LowAttendance(ix, 75)
	require.Len(t, rows, 2)
	assert.Equal(t, model.ID(303), rows[0].EnrollmentID)
	assert.Equal(t, 0.0, rows[0].Attendance.Percentage)
	assert.Equal(t, model.ID(300), rows[1].EnrollmentID)
}

func TestLimit(t *testing.T) {
	rows := []int{1, 2, 3, 4}
	assert.Equal(t, []int{1, 2}, Limit(rows, 2))
	assert.Equal(t, rows, Limit(rows, 10))
	assert.Equal(t, rows, Limit(rows, 0))
}
