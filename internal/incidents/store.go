package incidents

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"ira/internal/db"
)

type Store interface {
	Create(ctx context.Context, inc *Incident) error
	Get(ctx context.Context, id string) (*Incident, error)
	// List returns incidents newest first with creator names resolved.
	List(ctx context.Context, f ListFilter) ([]Incident, error)
	Update(ctx context.Context, id string, p Patch) (*Incident, error)
}

// prepareNew assigns identity and timestamps and applies defaults.
func prepareNew(inc *Incident, now time.Time) error {
	if err := inc.normalize(); err != nil {
		return err
	}
	if inc.ID == "" {
		inc.ID = uuid.NewString()
	}
	inc.CreatedAt = now
	inc.UpdatedAt = now
	return nil
}

type PostgresStore struct {
	db  db.DBTX
	now func() time.Time
}

func NewPostgresStore(conn db.DBTX) *PostgresStore {
	return &PostgresStore{db: conn, now: time.Now}
}

func (s *PostgresStore) Create(ctx context.Context, inc *Incident) error {
	if err := prepareNew(inc, s.now().UTC()); err != nil {
		return err
	}
	const q = `
		INSERT INTO incidents
		(id, title, severity, status, service, message, created_by, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`
	var createdBy any
	if inc.CreatedBy.ID != "" {
		createdBy = inc.CreatedBy.ID
	}
	if _, err := s.db.ExecContext(ctx, q,
		inc.ID,
		inc.Title,
		inc.Severity,
		inc.Status,
		inc.Service,
		inc.Message,
		createdBy,
		inc.CreatedAt,
		inc.UpdatedAt,
	); err != nil {
		return fmt.Errorf("insert incident: %w", err)
	}
	return nil
}

const selectIncident = `
	SELECT i.id, i.title, i.severity, i.status, i.service, i.message,
	       COALESCE(i.created_by::text, ''), COALESCE(u.name, ''),
	       i.created_at, i.updated_at
	FROM incidents i
	LEFT JOIN users u ON u.id = i.created_by
`

type scanner interface {
	Scan(dest ...any) error
}

func scanIncident(row scanner) (Incident, error) {
	var inc Incident
	err := row.Scan(&inc.ID, &inc.Title, &inc.Severity, &inc.Status, &inc.Service, &inc.Message,
		&inc.CreatedBy.ID, &inc.CreatedBy.Name, &inc.CreatedAt, &inc.UpdatedAt)
	return inc, err
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*Incident, error) {
	inc, err := scanIncident(s.db.QueryRowContext(ctx, selectIncident+" WHERE i.id = $1", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get incident: %w", err)
	}
	return &inc, nil
}

func (s *PostgresStore) List(ctx context.Context, f ListFilter) ([]Incident, error) {
	clauses := []string{"1=1"}
	args := []interface{}{}
	idx := 1
	if f.Status != "" {
		clauses = append(clauses, "i.status = $"+itoa(idx))
		args = append(args, string(f.Status))
		idx++
	}
	if f.Severity != "" {
		clauses = append(clauses, "i.severity = $"+itoa(idx))
		args = append(args, string(f.Severity))
		idx++
	}
	query := selectIncident + " WHERE " + strings.Join(clauses, " AND ") + " ORDER BY i.created_at DESC"
	if limit := f.limit(); limit > 0 {
		query += " LIMIT " + itoa(limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list incidents: %w", err)
	}
	defer rows.Close()
	res := []Incident{}
	for rows.Next() {
		inc, err := scanIncident(rows)
		if err != nil {
			return nil, fmt.Errorf("scan incident: %w", err)
		}
		res = append(res, inc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list incidents: %w", err)
	}
	return res, nil
}

func (s *PostgresStore) Update(ctx context.Context, id string, p Patch) (*Incident, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if p.Empty() {
		return s.Get(ctx, id)
	}
	sets := []string{}
	args := []interface{}{}
	idx := 1
	add := func(col string, v interface{}) {
		sets = append(sets, col+" = $"+itoa(idx))
		args = append(args, v)
		idx++
	}
	if p.Title != nil {
		add("title", *p.Title)
	}
	if p.Severity != nil {
		add("severity", string(*p.Severity))
	}
	if p.Status != nil {
		add("status", string(*p.Status))
	}
	if p.Service != nil {
		add("service", *p.Service)
	}
	if p.Message != nil {
		add("message", *p.Message)
	}
	add("updated_at", s.now().UTC())
	args = append(args, id)
	query := "UPDATE incidents SET " + strings.Join(sets, ", ") + " WHERE id = $" + itoa(idx)

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("update incident: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("update incident: %w", err)
	}
	if n == 0 {
		return nil, ErrNotFound
	}
	return s.Get(ctx, id)
}

func itoa(i int) string {
	return strconv.Itoa(i)
}
