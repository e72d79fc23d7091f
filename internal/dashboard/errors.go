package dashboard

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"portal/internal/academics"
	"portal/internal/audit"
	"portal/internal/backend"
)

// InvalidFormError reports a form body that could not be decoded.
type InvalidFormError struct {
	Err error
}

func (e *InvalidFormError) Error() string { return "invalid form: " + e.Err.Error() }
func (e *InvalidFormError) Unwrap() error { return e.Err }

// PartialError reports a bulk submission that stopped part way.
type PartialError struct {
	Done  int
	Total int
	Err   error
}

func (e *PartialError) Error() string {
	return fmt.Sprintf("saved %d of %d: %v", e.Done, e.Total, e.Err)
}

func (e *PartialError) Unwrap() error { return e.Err }

// Message is the user-facing text for err.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var partial *PartialError
	if errors.As(err, &partial) {
		return fmt.Sprintf("%s (saved %d of %d)", Message(partial.Err), partial.Done, partial.Total)
	}
	var be *backend.Error
	if errors.As(err, &be) {
		return backend.Message(be)
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return validationMessage(verrs)
	}
	var oor *academics.OutOfRangeError
	var invalid *InvalidFormError
	switch {
	case errors.As(err, &oor):
		return oor.Error()
	case errors.As(err, &invalid):
		return invalid.Error()
	case errors.Is(err, ErrPrecondition), errors.Is(err, ErrBusy),
		errors.Is(err, ErrUnknownResource), errors.Is(err, ErrUnknownSection):
		return err.Error()
	}
	return backend.GenericMessage
}

// Outcome classifies err for the audit trail: local and backend rejections
// are "rejected", everything else that failed is "failed".
func Outcome(err error) string {
	if err == nil {
		return audit.OutcomeOK
	}
	var be *backend.Error
	if errors.As(err, &be) {
		if be.Status >= 400 && be.Status < 500 {
			return audit.OutcomeRejected
		}
		return audit.OutcomeFailed
	}
	var verrs validator.ValidationErrors
	var oor *academics.OutOfRangeError
	var invalid *InvalidFormError
	if errors.As(err, &verrs) || errors.As(err, &oor) || errors.As(err, &invalid) ||
		errors.Is(err, ErrPrecondition) || errors.Is(err, ErrUnknownResource) {
		return audit.OutcomeRejected
	}
	return audit.OutcomeFailed
}

func validationMessage(verrs validator.ValidationErrors) string {
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Field()
		switch fe.Tag() {
		case "required":
			parts = append(parts, field+" is required")
		case "required_if":
			params := strings.Fields(fe.Param())
			parts = append(parts, fmt.Sprintf("%s is required for role %s", field, params[len(params)-1]))
		case "email":
			parts = append(parts, field+" must be a valid email")
		case "oneof":
			parts = append(parts, fmt.Sprintf("%s must be one of %s", field, fe.Param()))
		case "datetime":
			parts = append(parts, field+" must be a date (YYYY-MM-DD)")
		case "min", "gte":
			parts = append(parts, fmt.Sprintf("%s must be at least %s", field, fe.Param()))
		case "max", "lte":
			parts = append(parts, fmt.Sprintf("%s must be at most %s", field, fe.Param()))
		default:
			parts = append(parts, field+" is invalid")
		}
	}
	return strings.Join(parts, "; ")
}
