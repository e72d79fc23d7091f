package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portal/internal/academics"
	"portal/internal/audit"
	"portal/internal/auth"
	"portal/internal/backend"
	"portal/internal/dashboard"
	"portal/internal/model"
	"portal/internal/queue"
	"portal/internal/session"
)

func init() { gin.SetMode(gin.TestMode) }

// fakeAPI answers the login call and serves a small fixed dataset.
type fakeAPI struct {
	mu      sync.Mutex
	calls   []string
	created []map[string]any
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api")
	f.mu.Lock()
	f.calls = append(f.calls, r.Method+" "+path)
	f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")

	if path == "/auth/login" {
		var creds backend.Credentials
		_ = json.NewDecoder(r.Body).Decode(&creds)
		if creds.Password != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "Invalid credentials or role"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"user": map[string]any{
			"user_id": 1, "email": creds.Email, "role": creds.Role, "first_name": "Asha", "last_name": "Rao",
		}})
		return
	}

	name := strings.Split(strings.Trim(path, "/"), "/")[0]
	if r.Method == http.MethodPost && name == "users" {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["email"] == "taken@uni.test" {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "Email already exists"})
			return
		}
		f.mu.Lock()
		f.created = append(f.created, body)
		f.mu.Unlock()
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{"message": "User created successfully", "user": map[string]any{
			"user_id": 42, "email": body["email"], "role": body["role"], "first_name": body["first_name"], "last_name": body["last_name"],
		}})
		return
	}

	var list any = []any{}
	switch name {
	case "students":
		list = []map[string]any{{"student_id": 100, "user_id": 1, "enrollment_number": "CS001", "department_id": 1}}
	case "departments":
		list = []map[string]any{{"department_id": 1, "department_code": "CS", "department_name": "Computer Science"}}
	case "courses":
		list = []map[string]any{{"course_id": 200, "course_code": "CS101", "course_name": "Programming", "department_id": 1, "semester": "Fall 2024"}}
	}
	_ = json.NewEncoder(w).Encode(map[string]any{name: list})
}

func (f *fakeAPI) count(prefix string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

type fakeAudit struct {
	filter audit.EntryFilter
	err    error
}

func (f *fakeAudit) ListEntries(_ context.Context, filter audit.EntryFilter) ([]audit.Entry, error) {
	f.filter = filter
	if f.err != nil {
		return nil, f.err
	}
	return []audit.Entry{{ID: "7d1c", Dashboard: "admin", Action: "create", Resource: "users", Outcome: audit.OutcomeOK}}, nil
}

func (f *fakeAudit) ListFindings(context.Context, int) ([]audit.Finding, error) {
	return nil, nil
}

type testServer struct {
	api      *fakeAPI
	router   *gin.Engine
	sessions *session.Provider
	boards   *dashboard.Service
	audit    *fakeAudit
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	api := &fakeAPI{}
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	log := zerolog.Nop()
	client := backend.New(srv.URL+"/api", 5*time.Second, log)
	sessions := session.NewProvider(session.NewMemoryStore(), "portal", "test-key", time.Hour)
	boards := dashboard.NewService(
		backend.NewResources(client),
		audit.NewRecorder(queue.NewInMemory(64), true, log),
		dashboard.NewRegistry(),
		dashboard.Options{Scheme: academics.KindB, PageSize: 10, LowAttendanceThreshold: 75},
		log,
	)
	reader := &fakeAudit{}
	probes := map[string]Probe{"backend": func(context.Context) bool { return true }}
	h := New(client, sessions, boards, reader, probes, false, log)

	r := gin.New()
	h.Register(r)
	return &testServer{api: api, router: r, sessions: sessions, boards: boards, audit: reader}
}

func (s *testServer) login(t *testing.T, role model.Role) string {
	t.Helper()
	sess, err := s.sessions.Login(context.Background(), model.Identity{UserID: 1, Role: role, FirstName: "Asha", LastName: "Rao"})
	require.NoError(t, err)
	return sess.Token
}

func (s *testServer) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestLogin(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodPost, "/auth/login", "", map[string]string{"email": "asha@uni.test", "password": "secret", "role": "student"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, "/student", body["redirect"])
	assert.NotEmpty(t, body["token"])

	var cookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == auth.CookieName {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)

	me := s.do(http.MethodGet, "/auth/me", body["token"].(string), nil)
	require.Equal(t, http.StatusOK, me.Code)
	assert.Equal(t, "/student", decode(t, me)["home"])
}

func TestLogin_Refused(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodPost, "/auth/login", "", map[string]string{"email": "asha@uni.test", "password": "wrong", "role": "student"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Invalid credentials or role", decode(t, w)["error"])

	w = s.do(http.MethodPost, "/auth/login", "", map[string]string{"email": "not-an-email", "password": "secret", "role": "student"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 1, s.api.count("POST /auth/login"))
}

func TestGuard(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodGet, "/admin", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, auth.LoginPath, decode(t, w)["redirect"])

	req := httptest.NewRequest(http.MethodGet, "/student", nil)
	page := httptest.NewRecorder()
	s.router.ServeHTTP(page, req)
	assert.Equal(t, http.StatusFound, page.Code)
	assert.Equal(t, auth.LoginPath, page.Header().Get("Location"))

	token := s.login(t, model.RoleStudent)
	w = s.do(http.MethodGet, "/admin", token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, auth.UnauthorizedPath, decode(t, w)["redirect"])
	assert.Zero(t, s.api.count("GET /users"))
}

func TestStudentView(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t, model.RoleStudent)

	w := s.do(http.MethodGet, "/student/view/profile", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, "profile", body["section"])
	assert.Equal(t, "ready", body["status"])
	content := body["content"].(map[string]any)
	assert.Equal(t, "Computer Science", content["department_name"])
	assert.Equal(t, "CS001", content["student"].(map[string]any)["enrollment_number"])

	w = s.do(http.MethodGet, "/student/view/nowhere", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(http.MethodPost, "/student/enrollments", token, map[string]any{"course_id": 999})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.NotEmpty(t, decode(t, w)["view"])
	assert.Zero(t, s.api.count("POST /enrollments"))
}

func TestAdminCreate_Invalid(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t, model.RoleAdmin)

	w := s.do(http.MethodPost, "/admin/records/users", token, map[string]any{"email": "nope", "role": "admin"})
	require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	body := decode(t, w)
	assert.NotEmpty(t, body["error"])
	view := body["view"].(map[string]any)
	assert.Equal(t, "users", view["section"])
	assert.Equal(t, body["error"], view["notice"])
	assert.Zero(t, s.api.count("POST /users"))

	w = s.do(http.MethodDelete, "/admin/records/users/abc", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/admin/records/widgets", token, map[string]any{})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAuditLog(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t, model.RoleAdmin)

	w := s.do(http.MethodGet, "/admin/audit?dashboard=admin&limit=5", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Len(t, body["entries"], 1)
	assert.Empty(t, body["findings"])
	assert.Equal(t, "admin", s.audit.filter.Dashboard)
	assert.Equal(t, 5, s.audit.filter.Limit)

	s.audit.err = errors.New("db down")
	w = s.do(http.MethodGet, "/admin/audit", token, nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestLogout_DropsDashboards(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t, model.RoleStudent)

	w := s.do(http.MethodGet, "/student", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, s.boards.Registry().Len())

	w = s.do(http.MethodPost, "/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Zero(t, s.boards.Registry().Len())

	w = s.do(http.MethodGet, "/student", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSignupPage(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodGet, auth.SignupPath, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "/auth/signup", body["action"])
	require.Len(t, body["departments"], 1)
	assert.Equal(t, "Computer Science", body["departments"].([]any)[0].(map[string]any)["department_name"])
}

func TestSignup(t *testing.T) {
	s := newTestServer(t)
	student := map[string]any{
		"email": "new@uni.test", "password": "secret1", "role": "student",
		"first_name": "Ravi", "last_name": "Kumar", "department_id": 1,
		"enrollment_number": "CS042", "semester": 1, "batch": "2024", "admission_date": "2024-07-01",
	}

	w := s.do(http.MethodPost, "/auth/signup", "", student)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, auth.LoginPath, body["redirect"])
	assert.Equal(t, "new@uni.test", body["user"].(map[string]any)["email"])
	require.Len(t, s.api.created, 1)
	assert.Equal(t, "CS042", s.api.created[0]["enrollment_number"])
	assert.Equal(t, "secret1", s.api.created[0]["password"])

	taken := map[string]any{}
	for k, v := range student {
		taken[k] = v
	}
	taken["email"] = "taken@uni.test"
	w = s.do(http.MethodPost, "/auth/signup", "", taken)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Email already exists", decode(t, w)["error"])
}

func TestSignup_RoleFieldsRequired(t *testing.T) {
	testCases := []struct {
		name     string
		form     map[string]any
		expected string
	}{
		{
			"student without batch",
			map[string]any{"email": "a@uni.test", "password": "secret1", "role": "student", "first_name": "A", "last_name": "B",
				"department_id": 1, "enrollment_number": "CS1", "admission_date": "2024-07-01"},
			"batch is required for role student",
		},
		{
			"faculty without joining date",
			map[string]any{"email": "a@uni.test", "password": "secret1", "role": "faculty", "first_name": "A", "last_name": "B",
				"department_id": 1, "designation": "lecturer", "qualification": "PhD"},
			"joining_date is required for role faculty",
		},
		{
			"short password",
			map[string]any{"email": "a@uni.test", "password": "12345", "role": "faculty", "first_name": "A", "last_name": "B",
				"department_id": 1, "designation": "lecturer", "qualification": "PhD", "joining_date": "2020-01-01"},
			"password must be at least 6",
		},
		{
			"admin role",
			map[string]any{"email": "a@uni.test", "password": "secret1", "role": "admin", "first_name": "A", "last_name": "B", "department_id": 1},
			"role must be one of student faculty",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestServer(t)
			w := s.do(http.MethodPost, "/auth/signup", "", tc.form)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tc.expected, decode(t, w)["error"])
			assert.Zero(t, s.api.count("POST /users"))
		})
	}
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t)
	w := s.do(http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, true, body["backend"])
}
