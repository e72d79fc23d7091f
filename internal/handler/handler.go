package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"portal/internal/academics"
	"portal/internal/audit"
	"portal/internal/auth"
	"portal/internal/backend"
	"portal/internal/dashboard"
	"portal/internal/model"
	"portal/internal/session"
)

// Probe reports whether one dependency is reachable.
type Probe func(ctx context.Context) bool

// AuditReader lists what the worker persisted; *audit.Repository satisfies it.
type AuditReader interface {
	ListEntries(ctx context.Context, f audit.EntryFilter) ([]audit.Entry, error)
	ListFindings(ctx context.Context, limit int) ([]audit.Finding, error)
}

type Handler struct {
	backend  *backend.Client
	sessions *session.Provider
	boards   *dashboard.Service
	audit    AuditReader // nil when the audit database is not reachable
	probes   map[string]Probe
	secure   bool
	log      zerolog.Logger
}

func New(b *backend.Client, sessions *session.Provider, boards *dashboard.Service, audit AuditReader, probes map[string]Probe, secureCookies bool, log zerolog.Logger) *Handler {
	return &Handler{
		backend:  b,
		sessions: sessions,
		boards:   boards,
		audit:    audit,
		probes:   probes,
		secure:   secureCookies,
		log:      log.With().Str("component", "handler").Logger(),
	}
}

// Register mounts every portal route on r.
func (h *Handler) Register(r gin.IRouter) {
	r.GET("/healthz", h.Healthz)
	r.GET(auth.LoginPath, h.LoginPage)
	r.GET(auth.UnauthorizedPath, h.UnauthorizedPage)
	r.GET(auth.SignupPath, h.SignupPage)

	r.POST("/auth/login", h.Login)
	r.POST("/auth/signup", h.Signup)
	r.POST("/auth/logout", h.Logout)
	r.GET("/auth/me", auth.Guard(h.sessions), h.Me)

	admin := r.Group("/admin", auth.Guard(h.sessions, model.RoleAdmin))
	{
		admin.GET("", h.AdminView)
		admin.GET("/view/:section", h.AdminView)
		admin.POST("/refresh", h.AdminRefresh)
		admin.DELETE("/notice", h.AdminDismiss)
		admin.POST("/records/:resource", h.AdminCreate)
		admin.PUT("/records/:resource/:id", h.AdminUpdate)
		admin.DELETE("/records/:resource/:id", h.AdminDelete)
		admin.GET("/audit", h.AuditLog)
	}

	faculty := r.Group("/faculty", auth.Guard(h.sessions, model.RoleFaculty))
	{
		faculty.GET("", h.FacultyView)
		faculty.GET("/view/:section", h.FacultyView)
		faculty.POST("/refresh", h.FacultyRefresh)
		faculty.DELETE("/notice", h.FacultyDismiss)
		faculty.PUT("/course", h.FacultySelectCourse)
		faculty.POST("/attendance", h.FacultyMarkAttendance)
		faculty.PUT("/attendance/:id", h.FacultyUpdateAttendance)
		faculty.POST("/grades", h.FacultySaveGrade)
		faculty.POST("/grades/preview", h.FacultyPreviewGrade)
	}

	student := r.Group("/student", auth.Guard(h.sessions, model.RoleStudent))
	{
		student.GET("", h.StudentView)
		student.GET("/view/:section", h.StudentView)
		student.POST("/refresh", h.StudentRefresh)
		student.DELETE("/notice", h.StudentDismiss)
		student.POST("/enrollments", h.StudentEnroll)
	}
}

// ---------- Health ----------

func (h *Handler) Healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()
	body := gin.H{"status": "ok"}
	status := http.StatusOK
	for name, probe := range h.probes {
		ok := probe(ctx)
		body[name] = ok
		if !ok {
			status = http.StatusServiceUnavailable
			body["status"] = "degraded"
		}
	}
	c.JSON(status, body)
}

// ---------- Session ----------

func (h *Handler) LoginPage(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"page": "login", "action": "/auth/login", "roles": []model.Role{model.RoleAdmin, model.RoleFaculty, model.RoleStudent}})
}

func (h *Handler) UnauthorizedPage(c *gin.Context) {
	body := gin.H{"page": "unauthorized", "error": "you do not have access to that page"}
	if token := auth.TokenFromRequest(c); token != "" {
		if who, _, err := h.sessions.Resolve(c.Request.Context(), token); err == nil {
			body["home"] = auth.HomePath(who.Role)
		}
	}
	c.JSON(http.StatusForbidden, body)
}

func (h *Handler) Login(c *gin.Context) {
	var creds backend.Credentials
	if err := c.ShouldBindJSON(&creds); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": bindMessage(err)})
		return
	}

	who, err := h.backend.Login(c.Request.Context(), creds)
	if err != nil {
		status := backend.StatusOf(err)
		if status < 400 || status >= 500 {
			status = http.StatusBadGateway
		}
		h.log.Info().Str("email", creds.Email).Str("role", string(creds.Role)).Int("status", status).Msg("login refused")
		c.JSON(status, gin.H{"error": backend.Message(err)})
		return
	}

	sess, err := h.sessions.Login(c.Request.Context(), who)
	if err != nil {
		h.log.Error().Err(err).Msg("session create failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "session create failed"})
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(auth.CookieName, sess.Token, int(time.Until(sess.ExpiresAt).Seconds()), "/", "", h.secure, true)
	c.JSON(http.StatusOK, gin.H{
		"token":      sess.Token,
		"expires_at": sess.ExpiresAt.Unix(),
		"user":       sess.Identity,
		"redirect":   auth.HomePath(who.Role),
	})
}

// SignupPage lists departments for the profile part of the form. A backend
// failure still renders the form with an empty list.
func (h *Handler) SignupPage(c *gin.Context) {
	departments, err := h.boards.SignupDepartments(c.Request.Context())
	if err != nil {
		h.log.Warn().Err(err).Msg("signup departments unavailable")
		departments = []model.Department{}
	}
	c.JSON(http.StatusOK, gin.H{
		"page":        "signup",
		"action":      "/auth/signup",
		"roles":       []model.Role{model.RoleStudent, model.RoleFaculty},
		"departments": departments,
	})
}

func (h *Handler) Signup(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read request body"})
		return
	}
	user, err := h.boards.Signup(c.Request.Context(), body)
	if err != nil {
		c.JSON(statusOf(err), gin.H{"error": dashboard.Message(err)})
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message":  "Account created successfully! Please login.",
		"user":     user,
		"redirect": auth.LoginPath,
	})
}

func (h *Handler) Logout(c *gin.Context) {
	if token := auth.TokenFromRequest(c); token != "" {
		sid, err := h.sessions.Logout(c.Request.Context(), token)
		if err != nil && !errors.Is(err, session.ErrNotFound) {
			h.log.Warn().Err(err).Msg("session delete failed")
		}
		if sid != "" {
			h.boards.Registry().Drop(sid)
		}
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(auth.CookieName, "", -1, "/", "", h.secure, true)
	c.JSON(http.StatusOK, gin.H{"message": "logged out", "redirect": auth.LoginPath})
}

func (h *Handler) Me(c *gin.Context) {
	who, _ := auth.CurrentIdentity(c)
	c.JSON(http.StatusOK, gin.H{"user": who, "home": auth.HomePath(who.Role)})
}

// ---------- Audit ----------

func (h *Handler) AuditLog(c *gin.Context) {
	if h.audit == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "audit log not configured"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	f := audit.EntryFilter{
		Dashboard: c.Query("dashboard"),
		Outcome:   c.Query("outcome"),
		Limit:     limit,
		Offset:    offset,
	}
	if v := c.Query("actor_id"); v != "" {
		id, err := model.ParseID(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid actor_id"})
			return
		}
		f.ActorID = id
	}

	entries, err := h.audit.ListEntries(c.Request.Context(), f)
	if err != nil {
		h.log.Error().Err(err).Msg("list audit entries failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "audit query failed"})
		return
	}
	findings, err := h.audit.ListFindings(c.Request.Context(), limit)
	if err != nil {
		h.log.Error().Err(err).Msg("list findings failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "audit query failed"})
		return
	}
	if entries == nil {
		entries = []audit.Entry{}
	}
	if findings == nil {
		findings = []audit.Finding{}
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries, "findings": findings})
}

// ---------- Shared ----------

func identity(c *gin.Context) (model.Identity, string) {
	who, _ := auth.CurrentIdentity(c)
	return who, auth.SessionID(c)
}

// statusOf maps a dashboard error to an HTTP status.
func statusOf(err error) int {
	var be *backend.Error
	var verrs validator.ValidationErrors
	var oor *academics.OutOfRangeError
	var invalid *dashboard.InvalidFormError
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &be):
		if be.Status >= 400 && be.Status < 500 {
			return be.Status
		}
		return http.StatusBadGateway
	case errors.As(err, &verrs), errors.As(err, &oor), errors.As(err, &invalid):
		return http.StatusBadRequest
	case errors.Is(err, dashboard.ErrPrecondition):
		return http.StatusUnprocessableEntity
	case errors.Is(err, dashboard.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, dashboard.ErrUnknownSection), errors.Is(err, dashboard.ErrUnknownResource):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// respond writes the view, or the view and an error when err is set, so a
// failure never hides what was already on screen.
func respond(c *gin.Context, okStatus int, view dashboard.View, err error) {
	if err != nil {
		c.JSON(statusOf(err), gin.H{"error": dashboard.Message(err), "view": view})
		return
	}
	c.JSON(okStatus, view)
}

func bindMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return dashboard.Message(verrs)
	}
	return "invalid request body"
}

func pathID(c *gin.Context) (model.ID, bool) {
	id, err := model.ParseID(c.Param("id"))
	if err != nil || !id.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}
