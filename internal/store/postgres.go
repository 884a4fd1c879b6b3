package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/cloudopsstack/cloudops-engine/internal/models"
)

const incidentsSchema = `
CREATE TABLE IF NOT EXISTS incidents (
	incident_id TEXT PRIMARY KEY,
	timestamp   BIGINT NOT NULL,
	source      TEXT NOT NULL,
	event_type  TEXT NOT NULL,
	severity    TEXT NOT NULL,
	status      TEXT NOT NULL,
	details     TEXT NOT NULL,
	analysis    TEXT NOT NULL,
	created_at  TEXT NOT NULL,
	updated_at  TEXT NOT NULL,
	resolved_at TEXT
);
CREATE INDEX IF NOT EXISTS incidents_timestamp_idx ON incidents (timestamp);
CREATE INDEX IF NOT EXISTS incidents_status_idx ON incidents (status);
`

// Open connects to Postgres and verifies connectivity.
func Open(ctx context.Context, dsn string, maxOpen, maxIdle int) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if maxOpen > 0 {
		db.SetMaxOpenConns(maxOpen)
	}
	if maxIdle > 0 {
		db.SetMaxIdleConns(maxIdle)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// PostgresStore persists incidents in a single document-style table keyed
// by incident id.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore wraps an open database handle.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the incidents table and indexes if absent.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, incidentsSchema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Put upserts the incident. Identifier collisions overwrite the previous
// row; the identifier scheme accepts this.
func (s *PostgresStore) Put(ctx context.Context, inc models.Incident) error {
	const q = `
		INSERT INTO incidents
		(incident_id, timestamp, source, event_type, severity, status,
		 details, analysis, created_at, updated_at, resolved_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		ON CONFLICT (incident_id) DO UPDATE SET
			timestamp = EXCLUDED.timestamp,
			source = EXCLUDED.source,
			event_type = EXCLUDED.event_type,
			severity = EXCLUDED.severity,
			status = EXCLUDED.status,
			details = EXCLUDED.details,
			analysis = EXCLUDED.analysis,
			created_at = EXCLUDED.created_at,
			updated_at = EXCLUDED.updated_at,
			resolved_at = EXCLUDED.resolved_at
	`
	_, err := s.db.ExecContext(ctx, q,
		inc.IncidentID,
		inc.Timestamp,
		inc.Source,
		inc.EventType,
		string(inc.Severity),
		string(inc.Status),
		inc.Details,
		inc.Analysis,
		inc.CreatedAt,
		inc.UpdatedAt,
		nullable(inc.ResolvedAt),
	)
	if err != nil {
		return fmt.Errorf("put incident: %w", err)
	}
	return nil
}

// Get performs a point lookup by incident id.
func (s *PostgresStore) Get(ctx context.Context, id string) (models.Incident, error) {
	const q = `
		SELECT incident_id, timestamp, source, event_type, severity, status,
		       details, analysis, created_at, updated_at, resolved_at
		FROM incidents WHERE incident_id = $1
	`
	inc, err := scanIncident(s.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Incident{}, ErrNotFound
		}
		return models.Incident{}, fmt.Errorf("get incident: %w", err)
	}
	return inc, nil
}

// List scans newest-first with optional equality filters on status and
// severity.
func (s *PostgresStore) List(ctx context.Context, filter ListFilter) ([]models.Incident, error) {
	clauses := []string{"1=1"}
	args := []any{}
	idx := 1
	if filter.Status != "" {
		clauses = append(clauses, "status = $"+strconv.Itoa(idx))
		args = append(args, string(filter.Status))
		idx++
	}
	if filter.Severity != "" {
		clauses = append(clauses, "severity = $"+strconv.Itoa(idx))
		args = append(args, string(filter.Severity))
		idx++
	}

	query := "SELECT incident_id, timestamp, source, event_type, severity, status," +
		" details, analysis, created_at, updated_at, resolved_at" +
		" FROM incidents WHERE " + strings.Join(clauses, " AND ") +
		" ORDER BY timestamp DESC LIMIT " + strconv.Itoa(clampLimit(filter.Limit))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list incidents: %w", err)
	}
	defer rows.Close()

	var incidents []models.Incident
	for rows.Next() {
		inc, err := scanIncident(rows)
		if err != nil {
			return nil, fmt.Errorf("list incidents: %w", err)
		}
		incidents = append(incidents, inc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list incidents: %w", err)
	}
	return incidents, nil
}

// ListSince returns incidents with timestamp strictly greater than since,
// the scan backing the metrics window.
func (s *PostgresStore) ListSince(ctx context.Context, since int64) ([]models.Incident, error) {
	const q = `
		SELECT incident_id, timestamp, source, event_type, severity, status,
		       details, analysis, created_at, updated_at, resolved_at
		FROM incidents WHERE timestamp > $1
		ORDER BY timestamp DESC
	`
	rows, err := s.db.QueryContext(ctx, q, since)
	if err != nil {
		return nil, fmt.Errorf("list incidents since: %w", err)
	}
	defer rows.Close()

	var incidents []models.Incident
	for rows.Next() {
		inc, err := scanIncident(rows)
		if err != nil {
			return nil, fmt.Errorf("list incidents since: %w", err)
		}
		incidents = append(incidents, inc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list incidents since: %w", err)
	}
	return incidents, nil
}

// Resolve transitions an incident to RESOLVED and stamps the resolution
// time. It returns the updated record or ErrNotFound.
func (s *PostgresStore) Resolve(ctx context.Context, id string, resolvedAt time.Time) (models.Incident, error) {
	iso := resolvedAt.UTC().Format(time.RFC3339)
	const q = `
		UPDATE incidents
		SET status = $1, resolved_at = $2, updated_at = $2
		WHERE incident_id = $3
	`
	result, err := s.db.ExecContext(ctx, q, string(models.StatusResolved), iso, id)
	if err != nil {
		return models.Incident{}, fmt.Errorf("resolve incident: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return models.Incident{}, fmt.Errorf("resolve incident: %w", err)
	}
	if affected == 0 {
		return models.Incident{}, ErrNotFound
	}
	return s.Get(ctx, id)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIncident(row rowScanner) (models.Incident, error) {
	var (
		inc        models.Incident
		severity   string
		status     string
		resolvedAt sql.NullString
	)
	err := row.Scan(
		&inc.IncidentID,
		&inc.Timestamp,
		&inc.Source,
		&inc.EventType,
		&severity,
		&status,
		&inc.Details,
		&inc.Analysis,
		&inc.CreatedAt,
		&inc.UpdatedAt,
		&resolvedAt,
	)
	if err != nil {
		return models.Incident{}, err
	}
	inc.Severity = models.Severity(severity)
	inc.Status = models.Status(status)
	if resolvedAt.Valid {
		inc.ResolvedAt = resolvedAt.String
	}
	return inc, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
