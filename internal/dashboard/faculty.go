package dashboard

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"portal/internal/academics"
	"portal/internal/model"
)

var facultySections = []Section{SectionCourses, SectionStudents, SectionAttendance, SectionGrades}

const promptSelectCourse = "Select a course to continue"

// FacultyData is one fetch of what a faculty member works with.
type FacultyData struct {
	Index   *academics.Index
	Me      model.Faculty
	Courses []model.Course
}

// AttendanceMark is the status of one enrolled student on the marked date.
// An omitted status counts as present.
type AttendanceMark struct {
	Status model.AttendanceStatus `json:"status,omitempty"`
	Notes  string                 `json:"notes,omitempty"`
}

// AttendanceSheet marks every student enrolled in the selected course for
// one date, keyed by enrollment id.
type AttendanceSheet struct {
	Date  string                      `json:"attendance_date"`
	Marks map[model.ID]AttendanceMark `json:"marks"`
}

// AttendanceEdit changes one existing attendance record.
type AttendanceEdit struct {
	Status model.AttendanceStatus `json:"status"`
	Notes  *string                `json:"notes,omitempty"`
}

// GradeEntry is a grade typed for one enrollment of the selected course.
type GradeEntry struct {
	EnrollmentID model.ID `json:"enrollment_id"`
	academics.Entry
}

// FacultyCourses is the content of the courses section.
type FacultyCourses struct {
	Me       model.Faculty         `json:"faculty"`
	Selected model.ID              `json:"selected_course_id,omitempty"`
	Courses  []academics.CourseRow `json:"courses"`
}

// FacultyCourseView is the content of the course-bound sections.
type FacultyCourseView struct {
	Course     model.Course              `json:"course"`
	Scheme     academics.Kind            `json:"grade_scheme"`
	Date       string                    `json:"attendance_date,omitempty"`
	Roster     []academics.RosterRow     `json:"roster"`
	Attendance []academics.AttendanceRow `json:"attendance_log,omitempty"`
}

// Faculty is one faculty session's dashboard.
type Faculty struct {
	svc   *Service
	who   model.Identity
	board *Board[FacultyData]

	mu     sync.Mutex
	course model.ID
}

// Faculty returns the faculty dashboard of a session.
func (s *Service) Faculty(sessionID string, who model.Identity) *Faculty {
	return Lookup(s.registry, sessionID, DashboardFaculty, func() *Faculty {
		f := &Faculty{svc: s, who: who}
		f.board = NewBoard(DashboardFaculty, f.load)
		return f
	})
}

func (f *Faculty) load(ctx context.Context) (*FacultyData, error) {
	var c academics.Collections
	g, gctx := errgroup.WithContext(ctx)
	fetch(gctx, g, f.svc.api.Faculty, nil, &c.Faculty)
	fetch(gctx, g, f.svc.api.Courses, nil, &c.Courses)
	fetch(gctx, g, f.svc.api.Enrollments, nil, &c.Enrollments)
	fetch(gctx, g, f.svc.api.Students, nil, &c.Students)
	fetch(gctx, g, f.svc.api.Users, nil, &c.Users)
	fetch(gctx, g, f.svc.api.Attendance, nil, &c.Attendance)
	fetch(gctx, g, f.svc.api.Grades, nil, &c.Grades)
	if err := g.Wait(); err != nil {
		return nil, err
	}

	ix := f.svc.index(c)
	me := ix.FacultyByUser(f.who.UserID)
	if me == nil && f.who.FacultyID != nil {
		me = ix.Faculty(*f.who.FacultyID, "session")
	}
	if me == nil {
		return nil, precondition("no faculty profile is linked to this account")
	}
	return &FacultyData{
		Index:   ix,
		Me:      *me,
		Courses: academics.CoursesTaughtBy(c.Courses, me.ID),
	}, nil
}

func (f *Faculty) Ensure(ctx context.Context) error  { return f.board.Ensure(ctx) }
func (f *Faculty) Refresh(ctx context.Context) error { return f.board.Refresh(ctx) }
func (f *Faculty) Dismiss()                          { f.board.Dismiss() }

// Selected is the selected course, zero when none.
func (f *Faculty) Selected() model.ID {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.course
}

// Select picks the course the attendance and grade sections work on. Zero
// clears the selection. Only courses taught by this faculty member can be
// selected.
func (f *Faculty) Select(courseID model.ID) error {
	if courseID.Valid() {
		st := f.board.State()
		if st.Data == nil || findCourse(st.Data.Courses, courseID) == nil {
			return f.board.Reject(nil, precondition(fmt.Sprintf("course %s is not assigned to you", courseID)))
		}
	}
	f.mu.Lock()
	f.course = courseID
	f.mu.Unlock()
	return nil
}

func findCourse(courses []model.Course, id model.ID) *model.Course {
	for i := range courses {
		if courses[i].ID == id {
			return &courses[i]
		}
	}
	return nil
}

// View renders a section from the last fetch. Course-bound sections without a
// selected course carry a prompt instead of content.
func (f *Faculty) View(section, date string) (View, error) {
	sec, err := parseSection(section, facultySections, SectionAttendance)
	if err != nil {
		return View{}, err
	}
	st := f.board.State()
	v := newView(DashboardFaculty, sec, facultySections, st)
	if st.Data == nil {
		return v, nil
	}
	d := st.Data
	selected := f.Selected()
	if sec == SectionCourses {
		v.Content = FacultyCourses{Me: d.Me, Selected: selected, Courses: academics.CourseRows(d.Index, d.Courses)}
		return v, nil
	}

	course := findCourse(d.Courses, selected)
	if course == nil {
		v.Prompt = promptSelectCourse
		v.Content = FacultyCourses{Me: d.Me, Courses: academics.CourseRows(d.Index, d.Courses)}
		return v, nil
	}
	cv := FacultyCourseView{
		Course: *course,
		Scheme: f.svc.opts.Scheme,
		Roster: academics.Roster(d.Index, course.ID, f.svc.opts.Scheme),
	}
	if sec == SectionAttendance {
		cv.Date = date
		if cv.Date == "" {
			cv.Date = f.svc.now().Format(model.DayLayout)
		}
		cv.Attendance = academics.AttendanceRows(d.Index, courseAttendance(d.Index, course.ID))
	}
	v.Content = cv
	return v, nil
}

func courseAttendance(ix *academics.Index, courseID model.ID) []model.Attendance {
	var out []model.Attendance
	for _, e := range ix.Raw.Enrollments {
		if e.CourseID == courseID {
			out = append(out, ix.AttendanceOf(e.ID)...)
		}
	}
	return out
}

// selection returns the loaded data and the selected course, or a
// precondition error when either is missing.
func (f *Faculty) selection() (*FacultyData, *model.Course, error) {
	st := f.board.State()
	if st.Data == nil {
		return nil, nil, precondition("dashboard is still loading")
	}
	course := findCourse(st.Data.Courses, f.Selected())
	if course == nil {
		return st.Data, nil, precondition("select a course first")
	}
	return st.Data, course, nil
}

// MarkAttendance records the date for every student enrolled in the selected
// course, updating records that already exist for that date. Submission is
// sequential and stops at the first failure.
func (f *Faculty) MarkAttendance(ctx context.Context, sheet AttendanceSheet) error {
	d, course, err := f.selection()
	if err == nil && sheet.Date == "" {
		err = precondition("select a date")
	}
	var day string
	if err == nil {
		t, perr := model.ParseDay(sheet.Date)
		if perr != nil {
			err = precondition("attendance date must be YYYY-MM-DD")
		}
		day = t.Format(model.DayLayout)
	}
	var roster []academics.EnrolledStudent
	if err == nil {
		roster = d.Index.EnrolledStudents(course.ID)
		if len(roster) == 0 {
			err = precondition("no students enrolled in this course")
		}
	}
	if err == nil {
		onRoster := make(map[model.ID]struct{}, len(roster))
		for _, es := range roster {
			onRoster[es.Enrollment.ID] = struct{}{}
		}
		for id, m := range sheet.Marks {
			if _, ok := onRoster[id]; !ok {
				err = precondition(fmt.Sprintf("enrollment %s is not on the roster of %s", id, course.Code))
				break
			}
			if m.Status != "" && !m.Status.Valid() {
				err = precondition(fmt.Sprintf("invalid status %q for enrollment %s", m.Status, id))
				break
			}
		}
	}
	key := ""
	if course != nil {
		key = course.ID.String() + "@" + sheet.Date
	}
	if err != nil {
		return reject(ctx, f.svc, f.board, f.who, DashboardFaculty, "mark_attendance", "attendance", key, sheet, err)
	}

	return submit(ctx, f.svc, f.board, f.who, DashboardFaculty, "mark_attendance", "attendance", key, sheet, func(ctx context.Context) (string, error) {
		for i, es := range roster {
			m := sheet.Marks[es.Enrollment.ID]
			status := m.Status
			if status == "" {
				status = model.AttendancePresent
			}
			payload := map[string]any{
				"status":    status,
				"marked_by": d.Me.ID,
			}
			if m.Notes != "" {
				payload["notes"] = m.Notes
			}
			// one record per enrollment and date; marking again corrects it
			var err error
			if prev := attendanceOn(d.Index, es.Enrollment.ID, day); prev != nil {
				_, err = f.svc.api.Attendance.Update(ctx, prev.ID, payload)
			} else {
				payload["enrollment_id"] = es.Enrollment.ID
				payload["attendance_date"] = day
				_, err = f.svc.api.Attendance.Create(ctx, payload)
			}
			if err != nil {
				return "", &PartialError{Done: i, Total: len(roster), Err: err}
			}
		}
		return fmt.Sprintf("attendance marked for %d students on %s", len(roster), day), nil
	})
}

// UpdateAttendance changes the status and notes of one record of the
// selected course.
func (f *Faculty) UpdateAttendance(ctx context.Context, attendanceID model.ID, edit AttendanceEdit) error {
	key := attendanceID.String()
	d, course, err := f.selection()
	if err == nil && !edit.Status.Valid() {
		err = precondition("select a status")
	}
	if err == nil && !attendanceInCourse(d.Index, attendanceID, course.ID) {
		err = precondition(fmt.Sprintf("attendance record %s is not part of %s", attendanceID, course.Code))
	}
	if err != nil {
		return reject(ctx, f.svc, f.board, f.who, DashboardFaculty, "update_attendance", "attendance", key, edit, err)
	}
	return submit(ctx, f.svc, f.board, f.who, DashboardFaculty, "update_attendance", "attendance", key, edit, func(ctx context.Context) (string, error) {
		payload := map[string]any{"status": edit.Status}
		if edit.Notes != nil {
			payload["notes"] = *edit.Notes
		}
		if _, err := f.svc.api.Attendance.Update(ctx, attendanceID, payload); err != nil {
			return "", err
		}
		return "attendance updated", nil
	})
}

func attendanceOn(ix *academics.Index, enrollmentID model.ID, day string) *model.Attendance {
	records := ix.AttendanceOf(enrollmentID)
	for i := range records {
		if records[i].Date == day {
			return &records[i]
		}
	}
	return nil
}

func attendanceInCourse(ix *academics.Index, attendanceID, courseID model.ID) bool {
	for _, a := range courseAttendance(ix, courseID) {
		if a.ID == attendanceID {
			return true
		}
	}
	return false
}

// SaveGrade creates the grade of an enrollment of the selected course, or
// updates it when one exists.
func (f *Faculty) SaveGrade(ctx context.Context, entry GradeEntry) error {
	key := entry.EnrollmentID.String()
	d, course, err := f.selection()
	if err == nil && !enrolledIn(d.Index, entry.EnrollmentID, course.ID) {
		err = precondition(fmt.Sprintf("enrollment %s is not an active enrollment of %s", entry.EnrollmentID, course.Code))
	}
	var existing *model.Grade
	if err == nil {
		existing = d.Index.GradeOf(entry.EnrollmentID)
	}
	var fields map[string]any
	if err == nil {
		fields, err = gradeFields(f.svc, entry.Entry, existing == nil)
	}
	action := "create_grade"
	if existing != nil {
		action = "update_grade"
	}
	if err != nil {
		return reject(ctx, f.svc, f.board, f.who, DashboardFaculty, action, "grades", key, entry, err)
	}
	return submit(ctx, f.svc, f.board, f.who, DashboardFaculty, action, "grades", key, entry, func(ctx context.Context) (string, error) {
		if existing != nil {
			if _, err := f.svc.api.Grades.Update(ctx, existing.ID, fields); err != nil {
				return "", err
			}
			return "grade updated", nil
		}
		fields["enrollment_id"] = entry.EnrollmentID
		if _, err := f.svc.api.Grades.Create(ctx, fields); err != nil {
			return "", err
		}
		return "grade added", nil
	})
}

func enrolledIn(ix *academics.Index, enrollmentID, courseID model.ID) bool {
	for _, es := range ix.EnrolledStudents(courseID) {
		if es.Enrollment.ID == enrollmentID {
			return true
		}
	}
	return false
}

// Preview computes the breakdown of marks as typed, missing marks counting
// as zero. Nothing is sent to the backend.
func (f *Faculty) Preview(entry academics.Entry) (academics.Breakdown, error) {
	scheme, err := entry.Scheme(f.svc.opts.Scheme, f.svc.opts.Policy)
	if err != nil {
		return academics.Breakdown{}, err
	}
	return scheme.Breakdown(), nil
}
