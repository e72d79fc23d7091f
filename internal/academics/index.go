// Package academics joins independently fetched backend collections into
// display-ready rows and computes the derived figures (attendance
// percentages, grade totals, letter grades). Nothing here does I/O.
package academics

import (
	"sort"
	"sync"

	"portal/internal/model"
)

const (
	// Unknown replaces a name whose backing record cannot be resolved.
	Unknown = "Unknown"
	// NotAvailable replaces an optional field that is absent or unresolved.
	NotAvailable = "N/A"
)

// Collections is one fetch cycle's worth of raw backend data. Any field may
// be empty when a dashboard does not need it.
type Collections struct {
	Users       []model.User
	Students    []model.Student
	Faculty     []model.Faculty
	Courses     []model.Course
	Departments []model.Department
	Enrollments []model.Enrollment
	Attendance  []model.Attendance
	Grades      []model.Grade
}

// MissReporter is told about every foreign key that did not resolve. Such
// misses render as placeholders; reporting keeps them distinguishable from
// data that simply has not been loaded.
type MissReporter interface {
	JoinMiss(entity string, id model.ID, referrer string)
}

// MissFunc adapts a function to MissReporter.
type MissFunc func(entity string, id model.ID, referrer string)

func (f MissFunc) JoinMiss(entity string, id model.ID, referrer string) { f(entity, id, referrer) }

// Index holds id-keyed lookups built once per fetch cycle.
type Index struct {
	// Raw is the fetch cycle the index was built from.
	Raw Collections

	users        map[model.ID]*model.User
	students     map[model.ID]*model.Student
	faculty      map[model.ID]*model.Faculty
	courses      map[model.ID]*model.Course
	departments  map[model.ID]*model.Department
	enrollments  map[model.ID]*model.Enrollment
	byStudent    map[model.ID][]*model.Enrollment
	attendance   map[model.ID][]model.Attendance
	grades       map[model.ID]*model.Grade
	studentUsers map[model.ID]*model.Student
	facultyUsers map[model.ID]*model.Faculty

	misses MissReporter
	mu     sync.Mutex
	seen   map[missKey]struct{}
}

type missKey struct {
	entity string
	id     model.ID
}

// NewIndex indexes c. reporter may be nil.
func NewIndex(c Collections, reporter MissReporter) *Index {
	ix := &Index{
		Raw:          c,
		users:        make(map[model.ID]*model.User, len(c.Users)),
		students:     make(map[model.ID]*model.Student, len(c.Students)),
		faculty:      make(map[model.ID]*model.Faculty, len(c.Faculty)),
		courses:      make(map[model.ID]*model.Course, len(c.Courses)),
		departments:  make(map[model.ID]*model.Department, len(c.Departments)),
		enrollments:  make(map[model.ID]*model.Enrollment, len(c.Enrollments)),
		byStudent:    make(map[model.ID][]*model.Enrollment),
		attendance:   make(map[model.ID][]model.Attendance),
		grades:       make(map[model.ID]*model.Grade, len(c.Grades)),
		studentUsers: make(map[model.ID]*model.Student, len(c.Students)),
		facultyUsers: make(map[model.ID]*model.Faculty, len(c.Faculty)),
		misses:       reporter,
		seen:         make(map[missKey]struct{}),
	}
	for i := range c.Users {
		ix.users[c.Users[i].ID] = &c.Users[i]
	}
	for i := range c.Students {
		ix.students[c.Students[i].ID] = &c.Students[i]
		ix.studentUsers[c.Students[i].UserID] = &c.Students[i]
	}
	for i := range c.Faculty {
		ix.faculty[c.Faculty[i].ID] = &c.Faculty[i]
		ix.facultyUsers[c.Faculty[i].UserID] = &c.Faculty[i]
	}
	for i := range c.Courses {
		ix.courses[c.Courses[i].ID] = &c.Courses[i]
	}
	for i := range c.Departments {
		ix.departments[c.Departments[i].ID] = &c.Departments[i]
	}
	for i := range c.Enrollments {
		e := &c.Enrollments[i]
		ix.enrollments[e.ID] = e
		ix.byStudent[e.StudentID] = append(ix.byStudent[e.StudentID], e)
	}
	for _, a := range c.Attendance {
		ix.attendance[a.EnrollmentID] = append(ix.attendance[a.EnrollmentID], a)
	}
	for i := range c.Grades {
		ix.grades[c.Grades[i].EnrollmentID] = &c.Grades[i]
	}
	for id := range ix.attendance {
		recs := ix.attendance[id]
		sort.SliceStable(recs, func(i, j int) bool { return recs[i].Date > recs[j].Date })
	}
	return ix
}

func (ix *Index) miss(entity string, id model.ID, referrer string) {
	if ix.misses == nil {
		return
	}
	ix.mu.Lock()
	k := missKey{entity, id}
	_, dup := ix.seen[k]
	ix.seen[k] = struct{}{}
	ix.mu.Unlock()
	if !dup {
		ix.misses.JoinMiss(entity, id, referrer)
	}
}

// User resolves a user id, reporting a miss on failure.
func (ix *Index) User(id model.ID, referrer string) *model.User {
	u := ix.users[id]
	if u == nil {
		ix.miss("user", id, referrer)
	}
	return u
}

func (ix *Index) Student(id model.ID, referrer string) *model.Student {
	s := ix.students[id]
	if s == nil {
		ix.miss("student", id, referrer)
	}
	return s
}

func (ix *Index) Faculty(id model.ID, referrer string) *model.Faculty {
	f := ix.faculty[id]
	if f == nil {
		ix.miss("faculty", id, referrer)
	}
	return f
}

func (ix *Index) Course(id model.ID, referrer string) *model.Course {
	c := ix.courses[id]
	if c == nil {
		ix.miss("course", id, referrer)
	}
	return c
}

func (ix *Index) Department(id model.ID, referrer string) *model.Department {
	d := ix.departments[id]
	if d == nil {
		ix.miss("department", id, referrer)
	}
	return d
}

func (ix *Index) Enrollment(id model.ID, referrer string) *model.Enrollment {
	e := ix.enrollments[id]
	if e == nil {
		ix.miss("enrollment", id, referrer)
	}
	return e
}

// StudentByUser finds the student profile of a user; no miss is reported
// since most users are not students.
func (ix *Index) StudentByUser(userID model.ID) *model.Student { return ix.studentUsers[userID] }

// FacultyByUser finds the faculty profile of a user.
func (ix *Index) FacultyByUser(userID model.ID) *model.Faculty { return ix.facultyUsers[userID] }

// AttendanceOf returns the records of an enrollment, newest first.
func (ix *Index) AttendanceOf(enrollmentID model.ID) []model.Attendance {
	return ix.attendance[enrollmentID]
}

// GradeOf returns the grade of an enrollment or nil when ungraded.
func (ix *Index) GradeOf(enrollmentID model.ID) *model.Grade { return ix.grades[enrollmentID] }

// EnrollmentsOf returns every enrollment of a student regardless of status.
func (ix *Index) EnrollmentsOf(studentID model.ID) []*model.Enrollment {
	return ix.byStudent[studentID]
}

// DisplayName is "first last", or Unknown for a missing user.
func DisplayName(u *model.User) string {
	if u == nil {
		return Unknown
	}
	return u.FirstName + " " + u.LastName
}

// UserName resolves a user id to a display name.
func (ix *Index) UserName(userID model.ID, referrer string) string {
	return DisplayName(ix.User(userID, referrer))
}

// StudentName resolves student → user → display name.
func (ix *Index) StudentName(studentID model.ID, referrer string) string {
	s := ix.Student(studentID, referrer)
	if s == nil {
		return Unknown
	}
	return ix.UserName(s.UserID, "student")
}

// FacultyName resolves faculty → user → display name.
func (ix *Index) FacultyName(facultyID model.ID, referrer string) string {
	f := ix.Faculty(facultyID, referrer)
	if f == nil {
		return Unknown
	}
	return ix.UserName(f.UserID, "faculty")
}

// DepartmentName resolves a department id to its name.
func (ix *Index) DepartmentName(id model.ID, referrer string) string {
	d := ix.Department(id, referrer)
	if d == nil {
		return Unknown
	}
	return d.Name
}
