package model

// Role is the portal role of a user.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleFaculty Role = "faculty"
	RoleStudent Role = "student"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleFaculty, RoleStudent:
		return true
	}
	return false
}

// EnrollmentStatus is the lifecycle state of an enrollment.
type EnrollmentStatus string

const (
	EnrollmentEnrolled  EnrollmentStatus = "enrolled"
	EnrollmentCompleted EnrollmentStatus = "completed"
	EnrollmentDropped   EnrollmentStatus = "dropped"
	EnrollmentWithdrawn EnrollmentStatus = "withdrawn"
)

// AttendanceStatus is the status of a single attendance record.
type AttendanceStatus string

const (
	AttendancePresent AttendanceStatus = "present"
	AttendanceAbsent  AttendanceStatus = "absent"
	AttendanceLate    AttendanceStatus = "late"
	AttendanceExcused AttendanceStatus = "excused"
)

// Valid reports whether s is one of the known statuses.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendancePresent, AttendanceAbsent, AttendanceLate, AttendanceExcused:
		return true
	}
	return false
}

// Attended reports whether the status counts toward the attendance numerator.
func (s AttendanceStatus) Attended() bool {
	return s == AttendancePresent || s == AttendanceLate
}

// User is the identity record behind every student, faculty member and admin.
type User struct {
	ID          ID      `json:"user_id"`
	Email       string  `json:"email"`
	Role        Role    `json:"role"`
	FirstName   string  `json:"first_name"`
	LastName    string  `json:"last_name"`
	Phone       *string `json:"phone,omitempty"`
	DateOfBirth *string `json:"date_of_birth,omitempty"`
	IsActive    bool    `json:"is_active"`
	CreatedAt   string  `json:"created_at,omitempty"`
}

// Department groups students, faculty and courses.
type Department struct {
	ID           ID     `json:"department_id"`
	Code         string `json:"department_code"`
	Name         string `json:"department_name"`
	Head         *ID    `json:"head_of_department,omitempty"`
	ContactEmail string `json:"contact_email,omitempty"`
	IsActive     bool   `json:"is_active"`
	CreatedAt    string `json:"created_at,omitempty"`
}

// Faculty is the teaching profile of a faculty user.
type Faculty struct {
	ID            ID     `json:"faculty_id"`
	UserID        ID     `json:"user_id"`
	EmployeeID    string `json:"employee_id"`
	DepartmentID  ID     `json:"department_id"`
	Designation   string `json:"designation"`
	Qualification string `json:"qualification"`
	JoiningDate   string `json:"joining_date,omitempty"`
	Status        string `json:"status"`
	CreatedAt     string `json:"created_at,omitempty"`
}

// Student is the academic profile of a student user.
type Student struct {
	ID               ID      `json:"student_id"`
	UserID           ID      `json:"user_id"`
	EnrollmentNumber string  `json:"enrollment_number"`
	DepartmentID     ID      `json:"department_id"`
	Semester         int     `json:"semester"`
	Batch            string  `json:"batch"`
	AdmissionDate    string  `json:"admission_date,omitempty"`
	CGPA             float64 `json:"cgpa"`
	Status           string  `json:"status"`
	CreatedAt        string  `json:"created_at,omitempty"`
}

// Course is a course offering taught by one faculty member.
type Course struct {
	ID           ID     `json:"course_id"`
	Code         string `json:"course_code"`
	Name         string `json:"course_name"`
	DepartmentID ID     `json:"department_id"`
	FacultyID    ID     `json:"faculty_id"`
	Semester     string `json:"semester"`
	Credits      int    `json:"credits"`
	MaxStudents  int    `json:"max_students"`
	TotalClasses int    `json:"total_classes"`
	CreatedAt    string `json:"created_at,omitempty"`
}

// Enrollment links a student to a course.
type Enrollment struct {
	ID             ID               `json:"enrollment_id"`
	StudentID      ID               `json:"student_id"`
	CourseID       ID               `json:"course_id"`
	EnrollmentDate string           `json:"enrollment_date,omitempty"`
	Status         EnrollmentStatus `json:"status"`
	Semester       string           `json:"semester,omitempty"`
}

// Attendance is one record per enrollment and date.
type Attendance struct {
	ID           ID               `json:"attendance_id"`
	EnrollmentID ID               `json:"enrollment_id"`
	Date         string           `json:"attendance_date"`
	Status       AttendanceStatus `json:"status"`
	MarkedBy     ID               `json:"marked_by"`
	Notes        *string          `json:"notes,omitempty"`
	CreatedAt    string           `json:"created_at,omitempty"`
}

// Grade is the optional grade record of an enrollment. Which mark fields are
// populated depends on the grading scheme the record was written with.
type Grade struct {
	ID           ID       `json:"grade_id"`
	EnrollmentID ID       `json:"enrollment_id"`
	Internal1    *float64 `json:"internal1_marks,omitempty"`
	Internal2    *float64 `json:"internal2_marks,omitempty"`
	IA           *float64 `json:"ia_marks,omitempty"`
	Assignment   *float64 `json:"assignment_marks,omitempty"`
	FinalIA      *float64 `json:"final_ia_marks,omitempty"`
	External     *float64 `json:"external_marks,omitempty"`
	Total        *float64 `json:"total_marks,omitempty"`
	Percentage   *float64 `json:"percentage,omitempty"`
	LetterGrade  *string  `json:"letter_grade,omitempty"`
}

// Identity is the authenticated user as held by the session.
type Identity struct {
	UserID       ID     `json:"user_id"`
	Email        string `json:"email"`
	Role         Role   `json:"role"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	StudentID    *ID    `json:"student_id,omitempty"`
	FacultyID    *ID    `json:"faculty_id,omitempty"`
	DepartmentID *ID    `json:"department_id,omitempty"`
}
