package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portal/internal/model"
)

func TestIssueAndParse(t *testing.T) {
	token, exp, err := Issue("sess-1", 7, model.RoleStudent, "portal", "k", time.Hour)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, time.Minute)

	claims, err := Parse(token, "k", "portal")
	require.NoError(t, err)
	assert.Equal(t, "sess-1", claims.SessionID)
	assert.Equal(t, model.RoleStudent, claims.Role)
	assert.Equal(t, "7", claims.Subject)

	_, err = Parse(token, "other-key", "portal")
	assert.Error(t, err)
	_, err = Parse(token, "k", "someone-else")
	assert.Error(t, err)

	expired, _, err := Issue("sess-2", 7, model.RoleStudent, "portal", "k", -time.Minute)
	require.NoError(t, err)
	_, err = Parse(expired, "k", "portal")
	assert.Error(t, err)
}

func TestDecide(t *testing.T) {
	admin := &model.Identity{UserID: 1, Role: model.RoleAdmin}
	student := &model.Identity{UserID: 2, Role: model.RoleStudent}

	ok, redirect := Decide(nil, []model.Role{model.RoleAdmin})
	assert.False(t, ok)
	assert.Equal(t, LoginPath, redirect)

	ok, redirect = Decide(student, []model.Role{model.RoleAdmin, model.RoleFaculty})
	assert.False(t, ok)
	assert.Equal(t, UnauthorizedPath, redirect)

	ok, _ = Decide(admin, []model.Role{model.RoleAdmin})
	assert.True(t, ok)

	ok, _ = Decide(student, nil)
	assert.True(t, ok)
}

type fakeResolver map[string]model.Identity

func (f fakeResolver) Resolve(_ context.Context, token string) (model.Identity, string, error) {
	id, ok := f[token]
	if !ok {
		return model.Identity{}, "", errors.New("unknown token")
	}
	return id, "sid-" + token, nil
}

func guardedRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	resolver := fakeResolver{
		"admin-token":   {UserID: 1, Role: model.RoleAdmin},
		"student-token": {UserID: 2, Role: model.RoleStudent},
	}
	r := gin.New()
	r.GET("/admin", Guard(resolver, model.RoleAdmin), func(c *gin.Context) {
		id, _ := CurrentIdentity(c)
		c.JSON(http.StatusOK, gin.H{"user_id": id.UserID, "session": SessionID(c)})
	})
	return r
}

func TestGuard(t *testing.T) {
	r := guardedRouter()

	testCases := []struct {
		name     string
		setup    func(*http.Request)
		status   int
		location string
	}{
		{"page load without session redirects to login", func(*http.Request) {}, http.StatusFound, LoginPath},
		{"page load with wrong role redirects to unauthorized", func(req *http.Request) {
			req.AddCookie(&http.Cookie{Name: CookieName, Value: "student-token"})
		}, http.StatusFound, UnauthorizedPath},
		{"api call without session is 401", func(req *http.Request) {
			req.Header.Set("Accept", "application/json")
		}, http.StatusUnauthorized, ""},
		{"api call with wrong role is 403", func(req *http.Request) {
			req.Header.Set("Accept", "application/json")
			req.Header.Set("Authorization", "Bearer student-token")
		}, http.StatusForbidden, ""},
		{"unknown token counts as no session", func(req *http.Request) {
			req.Header.Set("Authorization", "Bearer forged")
		}, http.StatusFound, LoginPath},
		{"admin passes", func(req *http.Request) {
			req.Header.Set("Authorization", "Bearer admin-token")
		}, http.StatusOK, ""},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			tc.setup(req)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tc.status, w.Code)
			if tc.location != "" {
				assert.Equal(t, tc.location, w.Header().Get("Location"))
			}
		})
	}
}

func TestGuard_APIDenialNamesRedirect(t *testing.T) {
	r := guardedRouter()
	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer student-token")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.JSONEq(t, `{"error":"role not allowed","redirect":"/unauthorized"}`, w.Body.String())
}

func TestHomePath(t *testing.T) {
	assert.Equal(t, "/faculty", HomePath(model.RoleFaculty))
	assert.Equal(t, LoginPath, HomePath("guest"))
}
