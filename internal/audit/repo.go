package audit

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"portal/internal/model"
)

// Entry is one dashboard mutation as attempted by a user.
type Entry struct {
	ID         string     `json:"id"`
	OccurredAt time.Time  `json:"occurred_at"`
	ActorID    model.ID   `json:"actor_id"`
	ActorRole  model.Role `json:"actor_role"`
	Dashboard  string     `json:"dashboard"`
	Action     string     `json:"action"`
	Resource   string     `json:"resource"`
	RecordKey  string     `json:"record_key,omitempty"`
	Outcome    string     `json:"outcome"`
	Message    string     `json:"message,omitempty"`
}

// Outcomes of a mutation.
const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
)

// Finding is a foreign key that did not resolve during a join.
type Finding struct {
	Entity      string    `json:"entity"`
	EntityID    model.ID  `json:"entity_id"`
	Referrer    string    `json:"referrer"`
	FirstSeen   time.Time `json:"first_seen"`
	LastSeen    time.Time `json:"last_seen"`
	Occurrences int       `json:"occurrences"`
}

// Repository persists audit data in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// InsertEntry writes a new entry.
func (r *Repository) InsertEntry(ctx context.Context, e Entry) (Entry, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO audit_entries (id, occurred_at, actor_id, actor_role, dashboard, action, resource, record_key, outcome, message)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		ON CONFLICT (id) DO NOTHING
	`, e.ID, e.OccurredAt, int64(e.ActorID), string(e.ActorRole), e.Dashboard, e.Action, e.Resource, e.RecordKey, e.Outcome, e.Message)
	if err != nil {
		return Entry{}, err
	}
	return e, nil
}

// UpsertFinding records a sighting of an unresolved key.
func (r *Repository) UpsertFinding(ctx context.Context, f Finding) error {
	if f.LastSeen.IsZero() {
		f.LastSeen = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO integrity_findings (entity, entity_id, referrer, first_seen, last_seen, occurrences)
		VALUES ($1, $2, $3, $4, $4, 1)
		ON CONFLICT (entity, entity_id, referrer) DO UPDATE SET
			last_seen = EXCLUDED.last_seen,
			occurrences = integrity_findings.occurrences + 1
	`, f.Entity, int64(f.EntityID), f.Referrer, f.LastSeen)
	return err
}

// EntryFilter narrows ListEntries.
type EntryFilter struct {
	ActorID   model.ID
	Dashboard string
	Outcome   string
	Limit     int
	Offset    int
}

// ListEntries returns entries newest first with basic filters.
func (r *Repository) ListEntries(ctx context.Context, f EntryFilter) ([]Entry, error) {
	if f.Limit <= 0 {
		f.Limit = 50
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	query := `SELECT id, occurred_at, actor_id, actor_role, dashboard, action, resource, record_key, outcome, message FROM audit_entries`
	args := []any{}
	clauses := []string{}
	if f.ActorID.Valid() {
		args = append(args, int64(f.ActorID))
		clauses = append(clauses, fmt.Sprintf("actor_id = $%d", len(args)))
	}
	if f.Dashboard != "" {
		args = append(args, f.Dashboard)
		clauses = append(clauses, fmt.Sprintf("dashboard = $%d", len(args)))
	}
	if f.Outcome != "" {
		args = append(args, f.Outcome)
		clauses = append(clauses, fmt.Sprintf("outcome = $%d", len(args)))
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += fmt.Sprintf(" ORDER BY occurred_at DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, f.Limit, f.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []Entry{}
	for rows.Next() {
		var e Entry
		var actorID int64
		var role string
		if err := rows.Scan(&e.ID, &e.OccurredAt, &actorID, &role, &e.Dashboard, &e.Action, &e.Resource, &e.RecordKey, &e.Outcome, &e.Message); err != nil {
			return nil, err
		}
		e.ActorID, e.ActorRole = model.ID(actorID), model.Role(role)
		res = append(res, e)
	}
	return res, rows.Err()
}

// ListFindings returns the most recently seen findings.
func (r *Repository) ListFindings(ctx context.Context, limit int) ([]Finding, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT entity, entity_id, referrer, first_seen, last_seen, occurrences
		FROM integrity_findings
		ORDER BY last_seen DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []Finding{}
	for rows.Next() {
		var f Finding
		var id int64
		if err := rows.Scan(&f.Entity, &id, &f.Referrer, &f.FirstSeen, &f.LastSeen, &f.Occurrences); err != nil {
			return nil, err
		}
		f.EntityID = model.ID(id)
		res = append(res, f)
	}
	return res, rows.Err()
}

// Purge deletes entries older than the cutoff and returns how many went.
func (r *Repository) Purge(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM audit_entries WHERE occurred_at < $1`, before)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
