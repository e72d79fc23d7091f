package dashboard

import (
	"context"

	"golang.org/x/sync/errgroup"

	"portal/internal/academics"
	"portal/internal/model"
)

var adminSections = []Section{
	SectionHome, SectionUsers, SectionStudents, SectionFaculty, SectionCourses,
	SectionDepartments, SectionEnrollments, SectionAttendance, SectionGrades,
}

// AdminCounts are the headline numbers of the admin home.
type AdminCounts struct {
	Users             int `json:"users"`
	Students          int `json:"students"`
	Faculty           int `json:"faculty"`
	Courses           int `json:"courses"`
	Departments       int `json:"departments"`
	Enrollments       int `json:"enrollments"`
	ActiveEnrollments int `json:"active_enrollments"`
	Attendance        int `json:"attendance_records"`
	Grades            int `json:"grades"`
}

// AdminData is one fetch of every collection.
type AdminData struct {
	Index         *academics.Index
	Counts        AdminCounts
	Distribution  []academics.LetterCount
	LowAttendance []academics.LowAttendanceRow
}

// AdminHome is the content of the home section.
type AdminHome struct {
	Counts        AdminCounts                  `json:"counts"`
	Distribution  []academics.LetterCount      `json:"grade_distribution"`
	Threshold     float64                      `json:"low_attendance_threshold"`
	LowAttendance []academics.LowAttendanceRow `json:"low_attendance"`
}

// Admin is one admin session's dashboard.
type Admin struct {
	svc   *Service
	who   model.Identity
	board *Board[AdminData]
	ops   map[Section]resourceOps
}

// Admin returns the admin dashboard of a session.
func (s *Service) Admin(sessionID string, who model.Identity) *Admin {
	return Lookup(s.registry, sessionID, DashboardAdmin, func() *Admin {
		a := &Admin{svc: s, who: who, ops: adminResources(s.api)}
		a.board = NewBoard(DashboardAdmin, a.load)
		return a
	})
}

func (a *Admin) load(ctx context.Context) (*AdminData, error) {
	var c academics.Collections
	g, gctx := errgroup.WithContext(ctx)
	fetch(gctx, g, a.svc.api.Users, nil, &c.Users)
	fetch(gctx, g, a.svc.api.Students, nil, &c.Students)
	fetch(gctx, g, a.svc.api.Faculty, nil, &c.Faculty)
	fetch(gctx, g, a.svc.api.Courses, nil, &c.Courses)
	fetch(gctx, g, a.svc.api.Departments, nil, &c.Departments)
	fetch(gctx, g, a.svc.api.Enrollments, nil, &c.Enrollments)
	fetch(gctx, g, a.svc.api.Attendance, nil, &c.Attendance)
	fetch(gctx, g, a.svc.api.Grades, nil, &c.Grades)
	if err := g.Wait(); err != nil {
		return nil, err
	}

	ix := a.svc.index(c)
	counts := AdminCounts{
		Users:       len(c.Users),
		Students:    len(c.Students),
		Faculty:     len(c.Faculty),
		Courses:     len(c.Courses),
		Departments: len(c.Departments),
		Enrollments: len(c.Enrollments),
		Attendance:  len(c.Attendance),
		Grades:      len(c.Grades),
	}
	for _, e := range c.Enrollments {
		if e.Status == model.EnrollmentEnrolled {
			counts.ActiveEnrollments++
		}
	}
	return &AdminData{
		Index:         ix,
		Counts:        counts,
		Distribution:  academics.Distribution(c.Grades, a.svc.opts.Scheme),
		LowAttendance: academics.LowAttendance(ix, a.svc.opts.LowAttendanceThreshold),
	}, nil
}

func (a *Admin) Ensure(ctx context.Context) error  { return a.board.Ensure(ctx) }
func (a *Admin) Refresh(ctx context.Context) error { return a.board.Refresh(ctx) }
func (a *Admin) Dismiss()                          { a.board.Dismiss() }

// View renders a section from the last fetch.
func (a *Admin) View(section string) (View, error) {
	sec, err := parseSection(section, adminSections, SectionHome)
	if err != nil {
		return View{}, err
	}
	st := a.board.State()
	v := newView(DashboardAdmin, sec, adminSections, st)
	if st.Data == nil {
		return v, nil
	}
	d := st.Data
	ix := d.Index
	switch sec {
	case SectionHome:
		v.Content = AdminHome{
			Counts:        d.Counts,
			Distribution:  d.Distribution,
			Threshold:     a.svc.opts.LowAttendanceThreshold,
			LowAttendance: academics.Limit(d.LowAttendance, a.svc.opts.PageSize),
		}
	case SectionUsers:
		v.Content = ix.Raw.Users
	case SectionStudents:
		v.Content = academics.StudentRows(ix)
	case SectionFaculty:
		v.Content = academics.FacultyRows(ix)
	case SectionCourses:
		v.Content = academics.CourseRows(ix, ix.Raw.Courses)
	case SectionDepartments:
		v.Content = academics.DepartmentRows(ix)
	case SectionEnrollments:
		v.Content = academics.EnrollmentRows(ix)
	case SectionAttendance:
		v.Content = academics.AttendanceRows(ix, ix.Raw.Attendance)
	case SectionGrades:
		v.Content = academics.GradeRows(ix, a.svc.opts.Scheme)
	}
	return v, nil
}

func (a *Admin) resource(ctx context.Context, action, resource string, form any) (resourceOps, error) {
	op, ok := a.ops[Section(resource)]
	if !ok {
		return op, reject(ctx, a.svc, a.board, a.who, DashboardAdmin, action, resource, "", form, ErrUnknownResource)
	}
	return op, nil
}

// Create validates body as the form of resource and creates the record.
func (a *Admin) Create(ctx context.Context, resource string, body []byte) error {
	op, err := a.resource(ctx, "create", resource, nil)
	if err != nil {
		return err
	}
	form, payload, err := op.prepare(a.svc, body, true)
	if err != nil {
		return reject(ctx, a.svc, a.board, a.who, DashboardAdmin, "create", resource, "", form, err)
	}
	return submit(ctx, a.svc, a.board, a.who, DashboardAdmin, "create", resource, "", form, func(ctx context.Context) (string, error) {
		if err := op.create(ctx, payload); err != nil {
			return "", err
		}
		return op.created(), nil
	})
}

// Update sends the fields set in body to record id of resource.
func (a *Admin) Update(ctx context.Context, resource string, id model.ID, body []byte) error {
	op, err := a.resource(ctx, "update", resource, nil)
	if err != nil {
		return err
	}
	key := id.String()
	form, payload, err := op.prepare(a.svc, body, false)
	if err != nil {
		return reject(ctx, a.svc, a.board, a.who, DashboardAdmin, "update", resource, key, form, err)
	}
	return submit(ctx, a.svc, a.board, a.who, DashboardAdmin, "update", resource, key, form, func(ctx context.Context) (string, error) {
		if err := op.update(ctx, id, payload); err != nil {
			return "", err
		}
		return op.updated(), nil
	})
}

// Delete removes record id of resource.
func (a *Admin) Delete(ctx context.Context, resource string, id model.ID) error {
	op, err := a.resource(ctx, "delete", resource, nil)
	if err != nil {
		return err
	}
	key := id.String()
	return submit(ctx, a.svc, a.board, a.who, DashboardAdmin, "delete", resource, key, nil, func(ctx context.Context) (string, error) {
		if err := op.delete(ctx, id); err != nil {
			return "", err
		}
		return op.deleted(), nil
	})
}
