package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"fleetops/internal/hos/models"
	id "fleetops/pkg/domain"
	"fleetops/pkg/platform/sentinel"
	"fleetops/pkg/platform/tx"
)

// PostgresStore relies on the one_pending_amendment_per_entry partial index
// to reject a second pending request for the same entry.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const columns = `id, driver_id, target_entry_id, requested_by, requested_at, reason, proposed_status,
	proposed_start, proposed_end, state, decided_by, decided_at, decision_note, result_entry_id`

func (s *PostgresStore) Create(ctx context.Context, a *models.AmendmentRequest) error {
	_, err := tx.Conn(ctx, s.db).ExecContext(ctx, `
		INSERT INTO amendment_requests (`+columns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, '', NULL, '', NULL)
	`,
		uuid.UUID(a.ID),
		string(a.DriverID),
		uuid.UUID(a.TargetEntryID),
		string(a.RequestedBy),
		a.RequestedAt,
		a.Reason,
		string(a.ProposedStatus),
		a.ProposedStart,
		a.ProposedEnd,
		string(a.State),
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert amendment: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, amendmentID id.AmendmentID) (*models.AmendmentRequest, error) {
	return s.findOne(ctx, `SELECT `+columns+` FROM amendment_requests WHERE id = $1`, uuid.UUID(amendmentID))
}

func (s *PostgresStore) FindPending(ctx context.Context, entryID id.EntryID) (*models.AmendmentRequest, error) {
	return s.findOne(ctx,
		`SELECT `+columns+` FROM amendment_requests WHERE target_entry_id = $1 AND state = 'PENDING'`,
		uuid.UUID(entryID),
	)
}

func (s *PostgresStore) findOne(ctx context.Context, query string, arg any) (*models.AmendmentRequest, error) {
	a, err := scanRequest(tx.Conn(ctx, s.db).QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find amendment: %w", err)
	}
	return a, nil
}

func (s *PostgresStore) Decide(ctx context.Context, a *models.AmendmentRequest) error {
	var result uuid.NullUUID
	if a.ResultEntryID != nil {
		result = uuid.NullUUID{UUID: uuid.UUID(*a.ResultEntryID), Valid: true}
	}
	res, err := tx.Conn(ctx, s.db).ExecContext(ctx, `
		UPDATE amendment_requests
		SET state = $2, decided_by = $3, decided_at = $4, decision_note = $5, result_entry_id = $6
		WHERE id = $1 AND state = 'PENDING'
	`, uuid.UUID(a.ID), string(a.State), string(a.DecidedBy), a.DecidedAt, a.DecisionNote, result)
	if err != nil {
		return fmt.Errorf("decide amendment: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("decide amendment rows affected: %w", err)
	}
	if n == 1 {
		return nil
	}
	if _, err := s.FindByID(ctx, a.ID); err != nil {
		return err
	}
	return sentinel.ErrAlreadyUsed
}

func (s *PostgresStore) ListByDriver(ctx context.Context, driverID id.DriverID, state models.AmendmentState) ([]models.AmendmentRequest, error) {
	query := `SELECT ` + columns + ` FROM amendment_requests WHERE driver_id = $1`
	args := []any{string(driverID)}
	if state != "" {
		query += ` AND state = $2`
		args = append(args, string(state))
	}
	query += ` ORDER BY requested_at, id`

	rows, err := tx.Conn(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list amendments: %w", err)
	}
	defer rows.Close()

	var out []models.AmendmentRequest
	for rows.Next() {
		a, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan amendment: %w", err)
		}
		out = append(out, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate amendments: %w", err)
	}
	return out, nil
}

type row interface {
	Scan(dest ...any) error
}

func scanRequest(r row) (*models.AmendmentRequest, error) {
	var (
		a           models.AmendmentRequest
		amendmentID uuid.UUID
		driver      string
		target      uuid.UUID
		requestedBy string
		status      string
		state       string
		decidedBy   string
		decidedAt   sql.NullTime
		result      uuid.NullUUID
	)
	if err := r.Scan(&amendmentID, &driver, &target, &requestedBy, &a.RequestedAt, &a.Reason, &status,
		&a.ProposedStart, &a.ProposedEnd, &state, &decidedBy, &decidedAt, &a.DecisionNote, &result); err != nil {
		return nil, err
	}
	a.ID = id.AmendmentID(amendmentID)
	a.DriverID = id.DriverID(driver)
	a.TargetEntryID = id.EntryID(target)
	a.RequestedBy = id.ActorID(requestedBy)
	a.ProposedStatus = models.DutyStatus(status)
	a.State = models.AmendmentState(state)
	a.DecidedBy = id.ActorID(decidedBy)
	if decidedAt.Valid {
		t := decidedAt.Time
		a.DecidedAt = &t
	}
	if result.Valid {
		v := id.EntryID(result.UUID)
		a.ResultEntryID = &v
	}
	return &a, nil
}
