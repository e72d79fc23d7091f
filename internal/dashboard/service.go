package dashboard

import (
	"context"
	"errors"
	"net/url"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"portal/internal/academics"
	"portal/internal/audit"
	"portal/internal/backend"
	"portal/internal/metrics"
	"portal/internal/model"
)

// Dashboard names, also used as metric and audit labels.
const (
	DashboardAdmin   = "admin"
	DashboardFaculty = "faculty"
	DashboardStudent = "student"
)

// Section selects what part of a dashboard is shown. Switching sections
// never calls the backend.
type Section string

const (
	SectionHome        Section = "home"
	SectionUsers       Section = "users"
	SectionStudents    Section = "students"
	SectionFaculty     Section = "faculty"
	SectionCourses     Section = "courses"
	SectionDepartments Section = "departments"
	SectionEnrollments Section = "enrollments"
	SectionAttendance  Section = "attendance"
	SectionGrades      Section = "grades"
	SectionProfile     Section = "profile"
	SectionEnroll      Section = "enroll"
)

var (
	ErrUnknownSection  = errors.New("unknown section")
	ErrUnknownResource = errors.New("unknown resource")
)

func parseSection(s string, allowed []Section, fallback Section) (Section, error) {
	if s == "" {
		return fallback, nil
	}
	for _, a := range allowed {
		if string(a) == s {
			return a, nil
		}
	}
	return "", ErrUnknownSection
}

// Options tune how dashboards derive their figures.
type Options struct {
	Scheme                 academics.Kind
	Policy                 academics.MarkPolicy
	PageSize               int
	LowAttendanceThreshold float64
}

// Service builds dashboards for sessions and carries what they share.
type Service struct {
	api      *backend.Resources
	recorder *audit.Recorder
	registry *Registry
	opts     Options
	log      zerolog.Logger

	// createRules checks `create` tags, updateRules checks `validate` tags.
	createRules *validator.Validate
	updateRules *validator.Validate
	now         func() time.Time
}

func NewService(api *backend.Resources, recorder *audit.Recorder, registry *Registry, opts Options, log zerolog.Logger) *Service {
	if opts.Scheme == "" {
		opts.Scheme = academics.KindB
	}
	if opts.Policy == "" {
		opts.Policy = academics.MarkPolicyOff
	}
	return &Service{
		api:         api,
		recorder:    recorder,
		registry:    registry,
		opts:        opts,
		log:         log.With().Str("component", "dashboard").Logger(),
		createRules: newValidator("create"),
		updateRules: newValidator("validate"),
		now:         time.Now,
	}
}

func newValidator(tag string) *validator.Validate {
	v := validator.New()
	v.SetTagName(tag)
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Registry exposes the session registry for logout and sweeping.
func (s *Service) Registry() *Registry { return s.registry }

// Options returns the options dashboards were built with.
func (s *Service) Options() Options { return s.opts }

func (s *Service) index(c academics.Collections) *academics.Index {
	return academics.NewIndex(c, s.recorder)
}

func fetch[T any](ctx context.Context, g *errgroup.Group, r *backend.Resource[T], params url.Values, dst *[]T) {
	g.Go(func() error {
		items, err := r.List(ctx, params)
		if err != nil {
			return err
		}
		*dst = items
		return nil
	})
}

func (s *Service) record(ctx context.Context, who model.Identity, dashboard, action, resource, key string, err error) {
	outcome := Outcome(err)
	metrics.Mutations.WithLabelValues(dashboard, action, outcome).Inc()
	e := audit.Entry{
		ActorID:   who.UserID,
		ActorRole: who.Role,
		Dashboard: dashboard,
		Action:    action,
		Resource:  resource,
		RecordKey: key,
		Outcome:   outcome,
	}
	if err != nil {
		e.Message = Message(err)
	}
	s.recorder.Record(ctx, e)
}

// submit runs a mutation on b and records its outcome.
func submit[D any](ctx context.Context, s *Service, b *Board[D], who model.Identity, dashboard, action, resource, key string, form any, fn func(ctx context.Context) (string, error)) error {
	err := b.Mutate(ctx, form, fn)
	if errors.Is(err, ErrBusy) {
		return err
	}
	s.record(ctx, who, dashboard, action, resource, key, err)
	return err
}

// reject records a mutation refused before it reached the backend.
func reject[D any](ctx context.Context, s *Service, b *Board[D], who model.Identity, dashboard, action, resource, key string, form any, err error) error {
	s.record(ctx, who, dashboard, action, resource, key, err)
	return b.Reject(form, err)
}

// View is what a dashboard request renders.
type View struct {
	Dashboard  string     `json:"dashboard"`
	Section    Section    `json:"section"`
	Sections   []Section  `json:"sections"`
	Status     Status     `json:"status"`
	Notice     string     `json:"notice,omitempty"`
	Message    string     `json:"message,omitempty"`
	Prompt     string     `json:"prompt,omitempty"`
	Form       any        `json:"form,omitempty"`
	Generation uint64     `json:"generation"`
	LoadedAt   *time.Time `json:"loaded_at,omitempty"`
	Content    any        `json:"content,omitempty"`
}

func newView[D any](dashboard string, section Section, sections []Section, st State[D]) View {
	v := View{
		Dashboard:  dashboard,
		Section:    section,
		Sections:   sections,
		Status:     st.Status,
		Notice:     st.Notice,
		Message:    st.Message,
		Form:       st.Form,
		Generation: st.Generation,
	}
	if !st.LoadedAt.IsZero() {
		t := st.LoadedAt
		v.LoadedAt = &t
	}
	return v
}
