package backend

import (
	"context"
	"net/http"

	"portal/internal/model"
)

// Credentials is the login form posted to the backend.
type Credentials struct {
	Email    string     `json:"email" binding:"required,email"`
	Password string     `json:"password" binding:"required"`
	Role     model.Role `json:"role" binding:"required,oneof=admin faculty student"`
}

// Login authenticates against the backend and returns the identity it
// reports, including the student or faculty profile id when there is one.
func (c *Client) Login(ctx context.Context, creds Credentials) (model.Identity, error) {
	var out struct {
		User *model.Identity `json:"user"`
	}
	if err := c.do(ctx, http.MethodPost, "/auth/login", nil, creds, &out); err != nil {
		return model.Identity{}, err
	}
	if out.User == nil || !out.User.UserID.Valid() || !out.User.Role.Valid() {
		return model.Identity{}, &Error{Op: "POST /auth/login", Status: http.StatusUnauthorized, Message: "Invalid credentials or role"}
	}
	return *out.User, nil
}
