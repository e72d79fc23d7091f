package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"portal/internal/model"
)

// Resource is the CRUD client of one backend collection. Lists arrive
// wrapped under the plural key and single records under the singular one.
type Resource[T any] struct {
	c    *Client
	path string
	one  string
	many string
}

// NewResource binds a collection path such as "/students" to its envelope keys.
func NewResource[T any](c *Client, path, one, many string) *Resource[T] {
	return &Resource[T]{c: c, path: path, one: one, many: many}
}

// Name is the plural envelope key, used as the resource's label.
func (r *Resource[T]) Name() string { return r.many }

// List returns the whole collection matching params. Paginated endpoints are
// walked page by page unless params pins a page.
func (r *Resource[T]) List(ctx context.Context, params url.Values) ([]T, error) {
	q := url.Values{}
	for k, v := range params {
		q[k] = append([]string(nil), v...)
	}
	walk := q.Get("page") == ""
	if q.Get("per_page") == "" && r.c.PageSize > 0 {
		q.Set("per_page", strconv.Itoa(r.c.PageSize))
	}

	all := []T{}
	for page := 1; ; page++ {
		if walk {
			q.Set("page", strconv.Itoa(page))
		}
		var raw json.RawMessage
		if err := r.c.do(ctx, http.MethodGet, r.path+"/", q, nil, &raw); err != nil {
			return nil, err
		}
		items, pages, err := r.decodeList(raw)
		if err != nil {
			return nil, &Error{Op: "GET " + r.path + "/", Status: http.StatusOK, Message: GenericMessage, Err: err}
		}
		all = append(all, items...)
		if !walk || page >= pages || len(items) == 0 {
			return all, nil
		}
	}
}

func (r *Resource[T]) decodeList(raw json.RawMessage) ([]T, int, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '[' {
		var items []T
		err := json.Unmarshal(raw, &items)
		return items, 1, err
	}
	var env map[string]json.RawMessage
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, 0, err
	}
	body, ok := env[r.many]
	if !ok {
		return nil, 0, fmt.Errorf("response has no %q list", r.many)
	}
	var items []T
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, 0, fmt.Errorf("decode %s: %w", r.many, err)
	}
	pages := 1
	if p, ok := env["pages"]; ok && string(p) != "null" {
		if err := json.Unmarshal(p, &pages); err != nil {
			return nil, 0, fmt.Errorf("decode %s pages: %w", r.many, err)
		}
	}
	return items, pages, nil
}

// Get fetches one record.
func (r *Resource[T]) Get(ctx context.Context, id model.ID) (*T, error) {
	var env map[string]json.RawMessage
	op := r.path + "/" + id.String()
	if err := r.c.do(ctx, http.MethodGet, op, nil, nil, &env); err != nil {
		return nil, err
	}
	rec, err := r.single(env)
	if err != nil {
		return nil, &Error{Op: "GET " + op, Status: http.StatusOK, Message: GenericMessage, Err: err}
	}
	if rec == nil {
		return nil, &Error{Op: "GET " + op, Status: http.StatusOK, Message: GenericMessage, Err: fmt.Errorf("response has no %q record", r.one)}
	}
	return rec, nil
}

// Create posts payload and returns the created record when echoed back.
func (r *Resource[T]) Create(ctx context.Context, payload any) (*T, error) {
	var env map[string]json.RawMessage
	if err := r.c.do(ctx, http.MethodPost, r.path+"/", nil, payload, &env); err != nil {
		return nil, err
	}
	rec, err := r.single(env)
	if err != nil {
		return nil, &Error{Op: "POST " + r.path + "/", Status: http.StatusCreated, Message: GenericMessage, Err: err}
	}
	return rec, nil
}

// Update puts payload. Backends that answer with only a message yield a nil
// record and no error.
func (r *Resource[T]) Update(ctx context.Context, id model.ID, payload any) (*T, error) {
	var env map[string]json.RawMessage
	op := r.path + "/" + id.String()
	if err := r.c.do(ctx, http.MethodPut, op, nil, payload, &env); err != nil {
		return nil, err
	}
	rec, err := r.single(env)
	if err != nil {
		return nil, &Error{Op: "PUT " + op, Status: http.StatusOK, Message: GenericMessage, Err: err}
	}
	return rec, nil
}

// Delete removes one record.
func (r *Resource[T]) Delete(ctx context.Context, id model.ID) error {
	return r.c.do(ctx, http.MethodDelete, r.path+"/"+id.String(), nil, nil, nil)
}

func (r *Resource[T]) single(env map[string]json.RawMessage) (*T, error) {
	body, ok := env[r.one]
	if !ok || bytes.Equal(bytes.TrimSpace(body), []byte("null")) {
		return nil, nil
	}
	var rec T
	if err := json.Unmarshal(body, &rec); err != nil {
		return nil, fmt.Errorf("decode %s: %w", r.one, err)
	}
	return &rec, nil
}

// Resources groups the clients of every backend collection.
type Resources struct {
	Users       *Resource[model.User]
	Students    *Resource[model.Student]
	Faculty     *Resource[model.Faculty]
	Courses     *Resource[model.Course]
	Departments *Resource[model.Department]
	Enrollments *Resource[model.Enrollment]
	Attendance  *Resource[model.Attendance]
	Grades      *Resource[model.Grade]
}

// NewResources wires every collection to c.
func NewResources(c *Client) *Resources {
	return &Resources{
		Users:       NewResource[model.User](c, "/users", "user", "users"),
		Students:    NewResource[model.Student](c, "/students", "student", "students"),
		Faculty:     NewResource[model.Faculty](c, "/faculty", "faculty", "faculty"),
		Courses:     NewResource[model.Course](c, "/courses", "course", "courses"),
		Departments: NewResource[model.Department](c, "/departments", "department", "departments"),
		Enrollments: NewResource[model.Enrollment](c, "/enrollments", "enrollment", "enrollments"),
		Attendance:  NewResource[model.Attendance](c, "/attendance", "attendance", "attendance"),
		Grades:      NewResource[model.Grade](c, "/grades", "grade", "grades"),
	}
}
