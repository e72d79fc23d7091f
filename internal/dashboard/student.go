package dashboard

import (
	"context"
	"fmt"
	"net/url"

	"golang.org/x/sync/errgroup"

	"portal/internal/academics"
	"portal/internal/model"
)

var studentSections = []Section{SectionProfile, SectionCourses, SectionEnroll, SectionAttendance, SectionGrades}

// StudentData is one fetch of a student's own records.
type StudentData struct {
	Index     *academics.Index
	Me        model.Student
	Courses   []academics.StudentCourseRow
	Available []model.Course
	Overall   academics.Tally
	Average   float64
}

// StudentProfile is the content of the profile section.
type StudentProfile struct {
	Student    model.Student   `json:"student"`
	Name       string          `json:"name"`
	Email      string          `json:"email"`
	Department string          `json:"department_name"`
	Attendance academics.Tally `json:"overall_attendance"`
	Average    float64         `json:"average_percentage"`
	Courses    int             `json:"enrolled_courses"`
}

// StudentAttendance is the content of the attendance section.
type StudentAttendance struct {
	Overall academics.Tally           `json:"overall"`
	Courses []StudentCourseAttendance `json:"courses"`
	Records []academics.AttendanceRow `json:"records"`
}

// StudentCourseAttendance is the tally of one enrollment.
type StudentCourseAttendance struct {
	EnrollmentID model.ID        `json:"enrollment_id"`
	CourseCode   string          `json:"course_code"`
	CourseName   string          `json:"course_name"`
	Attendance   academics.Tally `json:"attendance"`
}

// StudentGrades is the content of the grades section.
type StudentGrades struct {
	Scheme  academics.Kind               `json:"grade_scheme"`
	Courses []academics.StudentCourseRow `json:"courses"`
	Average float64                      `json:"average_percentage"`
}

// Student is one student session's dashboard.
type Student struct {
	svc   *Service
	who   model.Identity
	board *Board[StudentData]
}

// Student returns the student dashboard of a session.
func (s *Service) Student(sessionID string, who model.Identity) *Student {
	return Lookup(s.registry, sessionID, DashboardStudent, func() *Student {
		st := &Student{svc: s, who: who}
		st.board = NewBoard(DashboardStudent, st.load)
		return st
	})
}

func (s *Student) profile(ctx context.Context) (*model.Student, error) {
	if s.who.StudentID != nil && s.who.StudentID.Valid() {
		return s.svc.api.Students.Get(ctx, *s.who.StudentID)
	}
	found, err := s.svc.api.Students.List(ctx, url.Values{"user_id": {s.who.UserID.String()}})
	if err != nil {
		return nil, err
	}
	for i := range found {
		if found[i].UserID == s.who.UserID {
			return &found[i], nil
		}
	}
	return nil, precondition("no student profile is linked to this account")
}

func (s *Student) load(ctx context.Context) (*StudentData, error) {
	me, err := s.profile(ctx)
	if err != nil {
		return nil, err
	}
	mine := url.Values{"student_id": {me.ID.String()}}

	var c academics.Collections
	g, gctx := errgroup.WithContext(ctx)
	fetch(gctx, g, s.svc.api.Courses, nil, &c.Courses)
	fetch(gctx, g, s.svc.api.Departments, nil, &c.Departments)
	fetch(gctx, g, s.svc.api.Faculty, nil, &c.Faculty)
	fetch(gctx, g, s.svc.api.Users, nil, &c.Users)
	fetch(gctx, g, s.svc.api.Enrollments, mine, &c.Enrollments)
	fetch(gctx, g, s.svc.api.Attendance, mine, &c.Attendance)
	fetch(gctx, g, s.svc.api.Grades, mine, &c.Grades)
	if err := g.Wait(); err != nil {
		return nil, err
	}
	ownOnly(&c, me.ID)
	c.Students = []model.Student{*me}

	ix := s.svc.index(c)
	rows := academics.StudentCourses(ix, me.ID, s.svc.opts.Scheme)
	return &StudentData{
		Index:     ix,
		Me:        *me,
		Courses:   rows,
		Available: academics.AvailableCoursesForStudent(c.Courses, c.Enrollments, *me),
		Overall:   academics.OverallAttendance(ix, me.ID),
		Average:   academics.AveragePercentage(rows),
	}, nil
}

// ownOnly drops records of other students in case the backend ignored the
// student filter.
func ownOnly(c *academics.Collections, studentID model.ID) {
	own := make(map[model.ID]struct{})
	enrollments := c.Enrollments[:0]
	for _, e := range c.Enrollments {
		if e.StudentID == studentID {
			own[e.ID] = struct{}{}
			enrollments = append(enrollments, e)
		}
	}
	c.Enrollments = enrollments

	attendance := c.Attendance[:0]
	for _, a := range c.Attendance {
		if _, ok := own[a.EnrollmentID]; ok {
			attendance = append(attendance, a)
		}
	}
	c.Attendance = attendance

	grades := c.Grades[:0]
	for _, g := range c.Grades {
		if _, ok := own[g.EnrollmentID]; ok {
			grades = append(grades, g)
		}
	}
	c.Grades = grades
}

func (s *Student) Ensure(ctx context.Context) error  { return s.board.Ensure(ctx) }
func (s *Student) Refresh(ctx context.Context) error { return s.board.Refresh(ctx) }
func (s *Student) Dismiss()                          { s.board.Dismiss() }

// View renders a section from the last fetch.
func (s *Student) View(section string) (View, error) {
	sec, err := parseSection(section, studentSections, SectionProfile)
	if err != nil {
		return View{}, err
	}
	st := s.board.State()
	v := newView(DashboardStudent, sec, studentSections, st)
	if st.Data == nil {
		return v, nil
	}
	d := st.Data
	switch sec {
	case SectionProfile:
		p := StudentProfile{
			Student:    d.Me,
			Name:       academics.DisplayName(&model.User{FirstName: s.who.FirstName, LastName: s.who.LastName}),
			Email:      s.who.Email,
			Department: d.Index.DepartmentName(d.Me.DepartmentID, "student"),
			Attendance: d.Overall,
			Average:    d.Average,
		}
		for _, r := range d.Courses {
			if r.Status == model.EnrollmentEnrolled {
				p.Courses++
			}
		}
		v.Content = p
	case SectionCourses:
		v.Content = d.Courses
	case SectionEnroll:
		v.Content = academics.CourseRows(d.Index, d.Available)
	case SectionAttendance:
		a := StudentAttendance{Overall: d.Overall, Records: academics.AttendanceRows(d.Index, d.Index.Raw.Attendance)}
		for _, r := range d.Courses {
			a.Courses = append(a.Courses, StudentCourseAttendance{
				EnrollmentID: r.EnrollmentID,
				CourseCode:   r.CourseCode,
				CourseName:   r.CourseName,
				Attendance:   r.Attendance,
			})
		}
		v.Content = a
	case SectionGrades:
		v.Content = StudentGrades{Scheme: s.svc.opts.Scheme, Courses: d.Courses, Average: d.Average}
	}
	return v, nil
}

// Enroll enrolls the student in one of the available courses.
func (s *Student) Enroll(ctx context.Context, courseID model.ID) error {
	key := courseID.String()
	st := s.board.State()
	var err error
	var course *model.Course
	if st.Data == nil {
		err = precondition("dashboard is still loading")
	} else if course = findCourse(st.Data.Available, courseID); course == nil {
		err = precondition(fmt.Sprintf("course %s is not open for enrollment", courseID))
	}
	if err != nil {
		return reject(ctx, s.svc, s.board, s.who, DashboardStudent, "enroll", "enrollments", key, nil, err)
	}
	me := st.Data.Me
	return submit(ctx, s.svc, s.board, s.who, DashboardStudent, "enroll", "enrollments", key, nil, func(ctx context.Context) (string, error) {
		payload := map[string]any{
			"student_id":      me.ID,
			"course_id":       course.ID,
			"status":          model.EnrollmentEnrolled,
			"enrollment_date": s.svc.now().Format(model.DayLayout),
		}
		if course.Semester != "" {
			payload["semester"] = course.Semester
		}
		if _, err := s.svc.api.Enrollments.Create(ctx, payload); err != nil {
			return "", err
		}
		return fmt.Sprintf("enrolled in %s", course.Code), nil
	})
}
