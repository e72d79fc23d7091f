package dashboard

import (
	"context"
	"encoding/json"
	"fmt"

	"portal/internal/academics"
	"portal/internal/backend"
	"portal/internal/model"
)

// Admin forms. Pointer fields are sent only when set, so an update carries
// just what the user changed. `create` tags apply on create, `validate` tags
// on update.

type UserForm struct {
	Email       *string     `json:"email,omitempty" create:"required,email" validate:"omitempty,email"`
	Password    *string     `json:"password,omitempty" create:"required,min=6" validate:"omitempty,min=6"`
	Role        *model.Role `json:"role,omitempty" create:"required,oneof=admin faculty student" validate:"omitempty,oneof=admin faculty student"`
	FirstName   *string     `json:"first_name,omitempty" create:"required" validate:"omitempty,min=1"`
	LastName    *string     `json:"last_name,omitempty" create:"required" validate:"omitempty,min=1"`
	Phone       *string     `json:"phone,omitempty"`
	DateOfBirth *string     `json:"date_of_birth,omitempty" create:"omitempty,datetime=2006-01-02" validate:"omitempty,datetime=2006-01-02"`
	IsActive    *bool       `json:"is_active,omitempty"`
}

type StudentForm struct {
	UserID           *model.ID `json:"user_id,omitempty" create:"required"`
	EnrollmentNumber *string   `json:"enrollment_number,omitempty" create:"required" validate:"omitempty,min=1"`
	DepartmentID     *model.ID `json:"department_id,omitempty" create:"required"`
	Semester         *int      `json:"semester,omitempty" create:"omitempty,min=1,max=12" validate:"omitempty,min=1,max=12"`
	Batch            *string   `json:"batch,omitempty" create:"required"`
	AdmissionDate    *string   `json:"admission_date,omitempty" create:"required,datetime=2006-01-02" validate:"omitempty,datetime=2006-01-02"`
	CGPA             *float64  `json:"cgpa,omitempty" create:"omitempty,min=0,max=10" validate:"omitempty,min=0,max=10"`
	Status           *string   `json:"status,omitempty"`
}

type FacultyForm struct {
	UserID        *model.ID `json:"user_id,omitempty" create:"required"`
	EmployeeID    *string   `json:"employee_id,omitempty" create:"required"`
	DepartmentID  *model.ID `json:"department_id,omitempty" create:"required"`
	Designation   *string   `json:"designation,omitempty" create:"required"`
	Qualification *string   `json:"qualification,omitempty" create:"required"`
	JoiningDate   *string   `json:"joining_date,omitempty" create:"required,datetime=2006-01-02" validate:"omitempty,datetime=2006-01-02"`
	Status        *string   `json:"status,omitempty"`
}

type CourseForm struct {
	Code         *string   `json:"course_code,omitempty" create:"required"`
	Name         *string   `json:"course_name,omitempty" create:"required" validate:"omitempty,min=1"`
	DepartmentID *model.ID `json:"department_id,omitempty" create:"required"`
	FacultyID    *model.ID `json:"faculty_id,omitempty" create:"required"`
	Semester     *string   `json:"semester,omitempty" create:"required"`
	Credits      *int      `json:"credits,omitempty" create:"omitempty,min=1,max=10" validate:"omitempty,min=1,max=10"`
	MaxStudents  *int      `json:"max_students,omitempty" create:"omitempty,min=1" validate:"omitempty,min=1"`
	TotalClasses *int      `json:"total_classes,omitempty" create:"omitempty,min=1" validate:"omitempty,min=1"`
}

type DepartmentForm struct {
	Code         *string   `json:"department_code,omitempty" create:"required"`
	Name         *string   `json:"department_name,omitempty" create:"required" validate:"omitempty,min=1"`
	Head         *model.ID `json:"head_of_department,omitempty"`
	ContactEmail *string   `json:"contact_email,omitempty" create:"omitempty,email" validate:"omitempty,email"`
	IsActive     *bool     `json:"is_active,omitempty"`
}

type EnrollmentForm struct {
	StudentID            *model.ID               `json:"student_id,omitempty" create:"required"`
	CourseID             *model.ID               `json:"course_id,omitempty" create:"required"`
	Status               *model.EnrollmentStatus `json:"status,omitempty" create:"omitempty,oneof=enrolled completed dropped withdrawn" validate:"omitempty,oneof=enrolled completed dropped withdrawn"`
	ClassesAttended      *int                    `json:"classes_attended,omitempty" create:"omitempty,min=0" validate:"omitempty,min=0"`
	ClassesHeld          *int                    `json:"classes_held,omitempty" create:"omitempty,min=0" validate:"omitempty,min=0"`
	AttendancePercentage *float64                `json:"attendance_percentage,omitempty"`
}

type AttendanceForm struct {
	EnrollmentID *model.ID               `json:"enrollment_id,omitempty" create:"required"`
	Date         *string                 `json:"attendance_date,omitempty" create:"required,datetime=2006-01-02"`
	Status       *model.AttendanceStatus `json:"status,omitempty" create:"required,oneof=present absent late excused" validate:"omitempty,oneof=present absent late excused"`
	MarkedBy     *model.ID               `json:"marked_by,omitempty" create:"required"`
	Notes        *string                 `json:"notes,omitempty"`
}

type GradeForm struct {
	EnrollmentID *model.ID `json:"enrollment_id,omitempty" create:"required"`
	academics.Entry
}

// resourceOps is the create/update/delete surface of one admin table.
type resourceOps struct {
	singular string
	prepare  func(s *Service, body []byte, creating bool) (form any, payload any, err error)
	create   func(ctx context.Context, payload any) error
	update   func(ctx context.Context, id model.ID, payload any) error
	delete   func(ctx context.Context, id model.ID) error
}

func crud[T any, F any](r *backend.Resource[T], singular string, finish func(s *Service, f *F, creating bool) (any, error)) resourceOps {
	return resourceOps{
		singular: singular,
		prepare: func(s *Service, body []byte, creating bool) (any, any, error) {
			f := new(F)
			if err := json.Unmarshal(body, f); err != nil {
				return json.RawMessage(body), nil, &InvalidFormError{Err: err}
			}
			rules := s.updateRules
			if creating {
				rules = s.createRules
			}
			if err := rules.Struct(f); err != nil {
				return f, nil, err
			}
			if finish == nil {
				return f, f, nil
			}
			payload, err := finish(s, f, creating)
			return f, payload, err
		},
		create: func(ctx context.Context, payload any) error {
			_, err := r.Create(ctx, payload)
			return err
		},
		update: func(ctx context.Context, id model.ID, payload any) error {
			_, err := r.Update(ctx, id, payload)
			return err
		},
		delete: r.Delete,
	}
}

func adminResources(api *backend.Resources) map[Section]resourceOps {
	return map[Section]resourceOps{
		SectionUsers:       crud[model.User, UserForm](api.Users, "user", nil),
		SectionStudents:    crud[model.Student, StudentForm](api.Students, "student", nil),
		SectionFaculty:     crud[model.Faculty, FacultyForm](api.Faculty, "faculty member", nil),
		SectionCourses:     crud[model.Course, CourseForm](api.Courses, "course", nil),
		SectionDepartments: crud[model.Department, DepartmentForm](api.Departments, "department", nil),
		SectionEnrollments: crud[model.Enrollment, EnrollmentForm](api.Enrollments, "enrollment", finishEnrollment),
		SectionAttendance:  crud[model.Attendance, AttendanceForm](api.Attendance, "attendance record", nil),
		SectionGrades:      crud[model.Grade, GradeForm](api.Grades, "grade", finishGrade),
	}
}

func finishEnrollment(s *Service, f *EnrollmentForm, _ bool) (any, error) {
	pct, err := s.opts.Policy.ApplyPtr("attendance_percentage", f.AttendancePercentage, 100)
	if err != nil {
		return nil, err
	}
	f.AttendancePercentage = pct
	return f, nil
}

func finishGrade(s *Service, f *GradeForm, creating bool) (any, error) {
	fields, err := gradeFields(s, f.Entry, creating)
	if err != nil {
		return nil, err
	}
	if f.EnrollmentID != nil {
		fields["enrollment_id"] = *f.EnrollmentID
	}
	return fields, nil
}

// gradeFields converts typed marks into the backend payload of the
// configured scheme. Scheme A derives its total on this side, so every mark
// must be present; scheme B updates may be partial.
func gradeFields(s *Service, e academics.Entry, creating bool) (map[string]any, error) {
	scheme, err := e.Scheme(s.opts.Scheme, s.opts.Policy)
	if err != nil {
		return nil, err
	}
	if scheme.Kind() == academics.KindA && !scheme.Breakdown().Complete {
		return nil, precondition("enter internal 1 (0-50), internal 2 (0-50) and external (0-50) marks")
	}
	if scheme.Kind() == academics.KindB && creating && !scheme.Breakdown().Complete {
		return nil, precondition("enter IA (0-30), assignment (0-20) and external (0-100) marks")
	}
	return compact(scheme.Fields()), nil
}

// compact drops unset marks so that an update never clears a stored value.
func compact(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		if p, ok := v.(*float64); ok && p == nil {
			continue
		}
		out[k] = v
	}
	return out
}

func (op resourceOps) created() string { return fmt.Sprintf("%s created", op.singular) }
func (op resourceOps) updated() string { return fmt.Sprintf("%s updated", op.singular) }
func (op resourceOps) deleted() string { return fmt.Sprintf("%s deleted", op.singular) }
