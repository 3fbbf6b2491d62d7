package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"fleetops/internal/hos/models"
	id "fleetops/pkg/domain"
	"fleetops/pkg/platform/sentinel"
	"fleetops/pkg/platform/tx"
)

// PostgresStore keeps entries in duty_status_entries and the per-driver
// compare-and-swap point in driver_heads.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const entryColumns = `id, driver_id, sequence, status, start_time, end_time, metadata, data_source,
	recorded_by, recorded_at, certified_at, certified_by, amends_entry_id, amendment_id`

const uniqueViolation = "23505"

func (s *PostgresStore) Head(ctx context.Context, driverID id.DriverID) (models.Head, error) {
	conn := tx.Conn(ctx, s.db)
	var head models.Head
	err := conn.QueryRowContext(ctx,
		`SELECT last_sequence FROM driver_heads WHERE driver_id = $1`, string(driverID),
	).Scan(&head.Sequence)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Head{}, nil
	}
	if err != nil {
		return models.Head{}, fmt.Errorf("load driver head: %w", err)
	}

	open, err := scanEntry(conn.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM duty_status_entries WHERE driver_id = $1 AND end_time IS NULL`,
		string(driverID),
	))
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return models.Head{}, fmt.Errorf("load open entry: %w", err)
	default:
		head.Open = open
	}
	return head, nil
}

// Commit runs in the caller's transaction, or in its own when there is none.
func (s *PostgresStore) Commit(ctx context.Context, driverID id.DriverID, expectedSeq int64, closed *models.Entry, next models.Entry) error {
	return s.inTx(ctx, func(conn tx.DBTX) error {
		if err := advanceHead(ctx, conn, driverID, expectedSeq); err != nil {
			return err
		}
		if closed != nil {
			res, err := conn.ExecContext(ctx,
				`UPDATE duty_status_entries SET end_time = $2 WHERE id = $1 AND end_time IS NULL`,
				uuid.UUID(closed.ID), closed.EndTime,
			)
			if err != nil {
				return fmt.Errorf("close open entry: %w", err)
			}
			if n, err := res.RowsAffected(); err != nil {
				return fmt.Errorf("close open entry rows affected: %w", err)
			} else if n == 0 {
				return sentinel.ErrConflict
			}
		}

		metadata, err := json.Marshal(next.Metadata)
		if err != nil {
			return fmt.Errorf("marshal entry metadata: %w", err)
		}
		_, err = conn.ExecContext(ctx, `
			INSERT INTO duty_status_entries (`+entryColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NULL, '', $11, $12)
		`,
			uuid.UUID(next.ID),
			string(driverID),
			expectedSeq+1,
			string(next.Status),
			next.StartTime,
			next.EndTime,
			metadata,
			string(next.DataSource),
			string(next.RecordedBy),
			next.RecordedAt,
			nullUUID(next.AmendsEntry),
			nullAmendment(next.AmendmentID),
		)
		if err != nil {
			if isUniqueViolation(err) {
				return sentinel.ErrConflict
			}
			return fmt.Errorf("insert entry: %w", err)
		}
		return nil
	})
}

func advanceHead(ctx context.Context, conn tx.DBTX, driverID id.DriverID, expectedSeq int64) error {
	var (
		res sql.Result
		err error
	)
	if expectedSeq == 0 {
		res, err = conn.ExecContext(ctx,
			`INSERT INTO driver_heads (driver_id, last_sequence) VALUES ($1, 1) ON CONFLICT (driver_id) DO NOTHING`,
			string(driverID),
		)
	} else {
		res, err = conn.ExecContext(ctx,
			`UPDATE driver_heads SET last_sequence = $3 WHERE driver_id = $1 AND last_sequence = $2`,
			string(driverID), expectedSeq, expectedSeq+1,
		)
	}
	if err != nil {
		return fmt.Errorf("advance driver head: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("advance driver head rows affected: %w", err)
	}
	if n == 0 {
		return sentinel.ErrConflict
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, entryID id.EntryID) (*models.Entry, error) {
	e, err := scanEntry(tx.Conn(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM duty_status_entries WHERE id = $1`, uuid.UUID(entryID),
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find entry: %w", err)
	}
	return e, nil
}

func (s *PostgresStore) MarkCertified(ctx context.Context, entryID id.EntryID, at time.Time, by id.ActorID) error {
	res, err := tx.Conn(ctx, s.db).ExecContext(ctx, `
		UPDATE duty_status_entries
		SET certified_at = $2, certified_by = $3
		WHERE id = $1 AND certified_at IS NULL AND end_time IS NOT NULL
	`, uuid.UUID(entryID), at, string(by))
	if err != nil {
		return fmt.Errorf("certify entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("certify entry rows affected: %w", err)
	}
	if n == 1 {
		return nil
	}
	e, err := s.FindByID(ctx, entryID)
	if err != nil {
		return err
	}
	if e.IsCertified() {
		return sentinel.ErrAlreadyUsed
	}
	return sentinel.ErrInvalidState
}

// Scan streams rows as they are read; the query stays open until the
// iteration ends.
func (s *PostgresStore) Scan(ctx context.Context, driverID id.DriverID, from, to time.Time) iter.Seq2[models.Entry, error] {
	return func(yield func(models.Entry, error) bool) {
		hit := `SELECT id FROM duty_status_entries WHERE driver_id = $1 AND (end_time IS NULL OR end_time > $2)`
		args := []any{string(driverID), from}
		if !to.IsZero() {
			hit += ` AND start_time < $3`
			args = append(args, to)
		}
		query := `
			WITH hit AS (` + hit + `)
			SELECT ` + entryColumns + `
			FROM duty_status_entries
			WHERE driver_id = $1
			  AND (id IN (SELECT id FROM hit) OR amends_entry_id IN (SELECT id FROM hit))
			ORDER BY sequence
		`
		rows, err := tx.Conn(ctx, s.db).QueryContext(ctx, query, args...)
		if err != nil {
			yield(models.Entry{}, fmt.Errorf("scan entries: %w", err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			e, err := scanEntry(rows)
			if err != nil {
				yield(models.Entry{}, fmt.Errorf("scan entry: %w", err))
				return
			}
			if !yield(*e, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(models.Entry{}, fmt.Errorf("iterate entries: %w", err))
		}
	}
}

func (s *PostgresStore) SupersededBy(ctx context.Context, entryID id.EntryID) (*models.Entry, error) {
	e, err := scanEntry(tx.Conn(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM duty_status_entries WHERE amends_entry_id = $1`, uuid.UUID(entryID),
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find overlay: %w", err)
	}
	return e, nil
}

func (s *PostgresStore) inTx(ctx context.Context, fn func(conn tx.DBTX) error) error {
	if t, ok := tx.From(ctx); ok {
		return fn(t)
	}
	t, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin commit: %w", err)
	}
	defer func() {
		_ = t.Rollback()
	}()
	if err := fn(t); err != nil {
		return err
	}
	if err := t.Commit(); err != nil {
		return fmt.Errorf("commit entry: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func nullUUID(v *id.EntryID) uuid.NullUUID {
	if v == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: uuid.UUID(*v), Valid: true}
}

func nullAmendment(v *id.AmendmentID) uuid.NullUUID {
	if v == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: uuid.UUID(*v), Valid: true}
}

type entryRow interface {
	Scan(dest ...any) error
}

func scanEntry(row entryRow) (*models.Entry, error) {
	var (
		e           models.Entry
		entryID     uuid.UUID
		driver      string
		status      string
		end         sql.NullTime
		metadata    []byte
		source      string
		recordedBy  string
		certifiedAt sql.NullTime
		certifiedBy string
		amends      uuid.NullUUID
		amendment   uuid.NullUUID
	)
	if err := row.Scan(&entryID, &driver, &e.Sequence, &status, &e.StartTime, &end, &metadata, &source,
		&recordedBy, &e.RecordedAt, &certifiedAt, &certifiedBy, &amends, &amendment); err != nil {
		return nil, err
	}
	e.ID = id.EntryID(entryID)
	e.DriverID = id.DriverID(driver)
	e.Status = models.DutyStatus(status)
	e.DataSource = models.DataSource(source)
	e.RecordedBy = id.ActorID(recordedBy)
	e.CertifiedBy = id.ActorID(certifiedBy)
	if end.Valid {
		t := end.Time
		e.EndTime = &t
	}
	if certifiedAt.Valid {
		t := certifiedAt.Time
		e.CertifiedAt = &t
	}
	if amends.Valid {
		v := id.EntryID(amends.UUID)
		e.AmendsEntry = &v
	}
	if amendment.Valid {
		v := id.AmendmentID(amendment.UUID)
		e.AmendmentID = &v
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &e.Metadata); err != nil {
			return nil, fmt.Errorf("decode entry metadata: %w", err)
		}
	}
	return &e, nil
}
