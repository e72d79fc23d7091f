package dashboard

import (
	"context"
	"encoding/json"

	"portal/internal/model"
)

// SignupForm is a self-service account request. Student and faculty
// profile fields are required only for that role; the backend creates the
// user from the whole form.
type SignupForm struct {
	Email       string     `json:"email" create:"required,email"`
	Password    string     `json:"password" create:"required,min=6"`
	Role        model.Role `json:"role" create:"required,oneof=student faculty"`
	FirstName   string     `json:"first_name" create:"required"`
	LastName    string     `json:"last_name" create:"required"`
	Phone       string     `json:"phone,omitempty"`
	DateOfBirth string     `json:"date_of_birth,omitempty" create:"omitempty,datetime=2006-01-02"`

	DepartmentID *model.ID `json:"department_id,omitempty" create:"required"`

	EnrollmentNumber string `json:"enrollment_number,omitempty" create:"required_if=Role student"`
	Semester         *int   `json:"semester,omitempty" create:"omitempty,min=1,max=8"`
	Batch            string `json:"batch,omitempty" create:"required_if=Role student"`
	AdmissionDate    string `json:"admission_date,omitempty" create:"required_if=Role student,omitempty,datetime=2006-01-02"`

	Designation   string `json:"designation,omitempty" create:"required_if=Role faculty,omitempty,oneof=professor associate_professor assistant_professor lecturer"`
	Qualification string `json:"qualification,omitempty" create:"required_if=Role faculty"`
	JoiningDate   string `json:"joining_date,omitempty" create:"required_if=Role faculty,omitempty,datetime=2006-01-02"`
}

// SignupDepartments lists the departments a new account can pick from.
func (s *Service) SignupDepartments(ctx context.Context) ([]model.Department, error) {
	return s.api.Departments.List(ctx, nil)
}

// Signup validates body and creates the account. Nothing is sent when the
// form is incomplete for the chosen role.
func (s *Service) Signup(ctx context.Context, body []byte) (*model.User, error) {
	var f SignupForm
	if err := json.Unmarshal(body, &f); err != nil {
		err = &InvalidFormError{Err: err}
		s.record(ctx, model.Identity{}, "signup", "create", "users", "", err)
		return nil, err
	}
	who := model.Identity{Email: f.Email, Role: f.Role, FirstName: f.FirstName, LastName: f.LastName}
	if err := s.createRules.Struct(&f); err != nil {
		s.record(ctx, who, "signup", "create", "users", f.Email, err)
		return nil, err
	}

	user, err := s.api.Users.Create(ctx, f)
	s.record(ctx, who, "signup", "create", "users", f.Email, err)
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("email", f.Email).Str("role", string(f.Role)).Msg("account created")
	return user, nil
}
