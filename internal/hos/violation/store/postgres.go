package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"fleetops/internal/hos/models"
	id "fleetops/pkg/domain"
	"fleetops/pkg/platform/sentinel"
	"fleetops/pkg/platform/tx"
)

// PostgresStore persists violations in PostgreSQL. Durations are stored as
// nanoseconds.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const violationColumns = `id, driver_id, kind, severity, rule_set_key, triggering_entry_id, detected_at,
	used_ns, limit_ns, resolved, resolved_at, resolved_by, resolution_note`

func (s *PostgresStore) Insert(ctx context.Context, v models.Violation) (bool, error) {
	query := `
		INSERT INTO violations (` + violationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, FALSE, NULL, '', '')
		ON CONFLICT (id) DO NOTHING
	`
	res, err := tx.Conn(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(v.ID),
		string(v.DriverID),
		string(v.Kind),
		string(v.Severity),
		v.RuleSetKey,
		uuid.UUID(v.TriggeringEntryID),
		v.DetectedAt,
		int64(v.Used),
		int64(v.Limit),
	)
	if err != nil {
		return false, fmt.Errorf("insert violation: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert violation rows affected: %w", err)
	}
	return rows == 1, nil
}

func (s *PostgresStore) FindByID(ctx context.Context, violationID id.ViolationID) (*models.Violation, error) {
	query := `SELECT ` + violationColumns + ` FROM violations WHERE id = $1`
	v, err := scanViolation(tx.Conn(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(violationID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find violation: %w", err)
	}
	return v, nil
}

func (s *PostgresStore) List(ctx context.Context, filter models.ViolationFilter) ([]models.Violation, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if filter.DriverID != "" {
		where = append(where, "driver_id = "+arg(string(filter.DriverID)))
	}
	if filter.Severity != "" {
		where = append(where, "severity = "+arg(string(filter.Severity)))
	}
	if len(filter.Kinds) > 0 {
		kinds := make([]string, len(filter.Kinds))
		for i, k := range filter.Kinds {
			kinds[i] = string(k)
		}
		where = append(where, "kind = ANY("+arg(pq.Array(kinds))+")")
	}
	if filter.UnresolvedOnly {
		where = append(where, "resolved = FALSE")
	}
	if !filter.Since.IsZero() {
		where = append(where, "detected_at >= "+arg(filter.Since))
	}

	query := `SELECT ` + violationColumns + ` FROM violations`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY detected_at, id"
	if filter.Limit > 0 {
		query += " LIMIT " + arg(filter.Limit)
	}

	rows, err := tx.Conn(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list violations: %w", err)
	}
	defer rows.Close()

	out := make([]models.Violation, 0)
	for rows.Next() {
		v, err := scanViolation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan violation: %w", err)
		}
		out = append(out, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate violations: %w", err)
	}
	return out, nil
}

// Resolve sets the resolution fields once. A second resolution affects no
// rows and reports ErrAlreadyUsed.
func (s *PostgresStore) Resolve(ctx context.Context, v models.Violation) error {
	query := `
		UPDATE violations
		SET resolved = TRUE, resolved_at = $2, resolved_by = $3, resolution_note = $4
		WHERE id = $1 AND resolved = FALSE
	`
	res, err := tx.Conn(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(v.ID), v.ResolvedAt, string(v.ResolvedBy), v.ResolutionNote,
	)
	if err != nil {
		return fmt.Errorf("resolve violation: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("resolve violation rows affected: %w", err)
	}
	if rows == 0 {
		if _, err := s.FindByID(ctx, v.ID); err != nil {
			return err
		}
		return sentinel.ErrAlreadyUsed
	}
	return nil
}

type violationRow interface {
	Scan(dest ...any) error
}

func scanViolation(row violationRow) (*models.Violation, error) {
	var (
		v          models.Violation
		vid, entry uuid.UUID
		driver     string
		kind, sev  string
		used, lim  int64
		resolvedAt sql.NullTime
		resolvedBy string
	)
	if err := row.Scan(&vid, &driver, &kind, &sev, &v.RuleSetKey, &entry, &v.DetectedAt,
		&used, &lim, &v.Resolved, &resolvedAt, &resolvedBy, &v.ResolutionNote); err != nil {
		return nil, err
	}
	v.ID = id.ViolationID(vid)
	v.DriverID = id.DriverID(driver)
	v.Kind = models.ViolationKind(kind)
	v.Severity = models.Severity(sev)
	v.TriggeringEntryID = id.EntryID(entry)
	v.Used = time.Duration(used)
	v.Limit = time.Duration(lim)
	v.ResolvedBy = id.ActorID(resolvedBy)
	if resolvedAt.Valid {
		t := resolvedAt.Time
		v.ResolvedAt = &t
	}
	return &v, nil
}
