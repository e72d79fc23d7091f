package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"portal/internal/academics"
	"portal/internal/dashboard"
	"portal/internal/model"
)

// board is what every role dashboard offers the HTTP layer.
type board interface {
	Ensure(ctx context.Context) error
	Refresh(ctx context.Context) error
	Dismiss()
}

// show loads the board on first use and renders one section.
func show(c *gin.Context, b board, render func() (dashboard.View, error)) {
	loadErr := b.Ensure(c.Request.Context())
	view, err := render()
	if err != nil {
		c.JSON(statusOf(err), gin.H{"error": dashboard.Message(err)})
		return
	}
	respond(c, http.StatusOK, view, loadErr)
}

// after renders the section named by ?section= once a mutation returned.
func after(c *gin.Context, status int, opErr error, render func(section string) (dashboard.View, error)) {
	view, err := render(c.Query("section"))
	if err != nil {
		view, _ = render("")
	}
	respond(c, status, view, opErr)
}

// ---------- Admin ----------

func (h *Handler) admin(c *gin.Context) *dashboard.Admin {
	who, sid := identity(c)
	return h.boards.Admin(sid, who)
}

func (h *Handler) AdminView(c *gin.Context) {
	a := h.admin(c)
	show(c, a, func() (dashboard.View, error) { return a.View(c.Param("section")) })
}

func (h *Handler) AdminRefresh(c *gin.Context) {
	a := h.admin(c)
	err := a.Refresh(c.Request.Context())
	after(c, http.StatusOK, err, a.View)
}

func (h *Handler) AdminDismiss(c *gin.Context) {
	a := h.admin(c)
	a.Dismiss()
	after(c, http.StatusOK, nil, a.View)
}

func (h *Handler) AdminCreate(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	a := h.admin(c)
	_ = a.Ensure(c.Request.Context())
	resource := c.Param("resource")
	err = a.Create(c.Request.Context(), resource, body)
	after(c, http.StatusCreated, err, sectionOr(a.View, resource))
}

func (h *Handler) AdminUpdate(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	a := h.admin(c)
	_ = a.Ensure(c.Request.Context())
	resource := c.Param("resource")
	err = a.Update(c.Request.Context(), resource, id, body)
	after(c, http.StatusOK, err, sectionOr(a.View, resource))
}

func (h *Handler) AdminDelete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	a := h.admin(c)
	_ = a.Ensure(c.Request.Context())
	resource := c.Param("resource")
	err := a.Delete(c.Request.Context(), resource, id)
	after(c, http.StatusOK, err, sectionOr(a.View, resource))
}

// sectionOr renders fallback when no section was asked for, so a record
// change lands on the list it changed.
func sectionOr(render func(string) (dashboard.View, error), fallback string) func(string) (dashboard.View, error) {
	return func(section string) (dashboard.View, error) {
		if section == "" {
			section = fallback
		}
		return render(section)
	}
}

// ---------- Faculty ----------

func (h *Handler) faculty(c *gin.Context) *dashboard.Faculty {
	who, sid := identity(c)
	return h.boards.Faculty(sid, who)
}

func facultyRender(c *gin.Context, f *dashboard.Faculty) func(string) (dashboard.View, error) {
	return func(section string) (dashboard.View, error) { return f.View(section, c.Query("date")) }
}

func (h *Handler) FacultyView(c *gin.Context) {
	f := h.faculty(c)
	show(c, f, func() (dashboard.View, error) { return f.View(c.Param("section"), c.Query("date")) })
}

func (h *Handler) FacultyRefresh(c *gin.Context) {
	f := h.faculty(c)
	err := f.Refresh(c.Request.Context())
	after(c, http.StatusOK, err, facultyRender(c, f))
}

func (h *Handler) FacultyDismiss(c *gin.Context) {
	f := h.faculty(c)
	f.Dismiss()
	after(c, http.StatusOK, nil, facultyRender(c, f))
}

type selectCourseRequest struct {
	CourseID model.ID `json:"course_id"`
}

func (h *Handler) FacultySelectCourse(c *gin.Context) {
	var req selectCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": bindMessage(err)})
		return
	}
	f := h.faculty(c)
	_ = f.Ensure(c.Request.Context())
	err := f.Select(req.CourseID)
	after(c, http.StatusOK, err, facultyRender(c, f))
}

func (h *Handler) FacultyMarkAttendance(c *gin.Context) {
	var sheet dashboard.AttendanceSheet
	if err := c.ShouldBindJSON(&sheet); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": bindMessage(err)})
		return
	}
	f := h.faculty(c)
	_ = f.Ensure(c.Request.Context())
	err := f.MarkAttendance(c.Request.Context(), sheet)
	render := func(section string) (dashboard.View, error) {
		if section == "" {
			section = string(dashboard.SectionAttendance)
		}
		return f.View(section, sheet.Date)
	}
	after(c, http.StatusCreated, err, render)
}

func (h *Handler) FacultyUpdateAttendance(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var edit dashboard.AttendanceEdit
	if err := c.ShouldBindJSON(&edit); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": bindMessage(err)})
		return
	}
	f := h.faculty(c)
	_ = f.Ensure(c.Request.Context())
	err := f.UpdateAttendance(c.Request.Context(), id, edit)
	after(c, http.StatusOK, err, facultyRender(c, f))
}

func (h *Handler) FacultySaveGrade(c *gin.Context) {
	var entry dashboard.GradeEntry
	if err := c.ShouldBindJSON(&entry); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": bindMessage(err)})
		return
	}
	f := h.faculty(c)
	_ = f.Ensure(c.Request.Context())
	err := f.SaveGrade(c.Request.Context(), entry)
	after(c, http.StatusOK, err, sectionOr(facultyRender(c, f), string(dashboard.SectionGrades)))
}

func (h *Handler) FacultyPreviewGrade(c *gin.Context) {
	var entry academics.Entry
	if err := c.ShouldBindJSON(&entry); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": bindMessage(err)})
		return
	}
	breakdown, err := h.faculty(c).Preview(entry)
	if err != nil {
		c.JSON(statusOf(err), gin.H{"error": dashboard.Message(err)})
		return
	}
	c.JSON(http.StatusOK, breakdown)
}

// ---------- Student ----------

func (h *Handler) student(c *gin.Context) *dashboard.Student {
	who, sid := identity(c)
	return h.boards.Student(sid, who)
}

func (h *Handler) StudentView(c *gin.Context) {
	s := h.student(c)
	show(c, s, func() (dashboard.View, error) { return s.View(c.Param("section")) })
}

func (h *Handler) StudentRefresh(c *gin.Context) {
	s := h.student(c)
	err := s.Refresh(c.Request.Context())
	after(c, http.StatusOK, err, s.View)
}

func (h *Handler) StudentDismiss(c *gin.Context) {
	s := h.student(c)
	s.Dismiss()
	after(c, http.StatusOK, nil, s.View)
}

func (h *Handler) StudentEnroll(c *gin.Context) {
	var req selectCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": bindMessage(err)})
		return
	}
	s := h.student(c)
	_ = s.Ensure(c.Request.Context())
	err := s.Enroll(c.Request.Context(), req.CourseID)
	after(c, http.StatusCreated, err, sectionOr(s.View, string(dashboard.SectionCourses)))
}
