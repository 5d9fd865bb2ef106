package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"event-seating/internal/data/entity"
	"event-seating/pkg/database"
	"event-seating/pkg/utils"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

const seatColumns = `id, section_id, row_id, col, price_tier, status, held_by, held_at, created_at, updated_at`

type seatRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewSeatRepository(db database.PgxIface, log *zap.Logger) SeatRepository {
	return &seatRepository{
		db:  db,
		log: log.With(zap.String("repository", "seat")),
	}
}

func scanSeat(row pgx.Row) (*entity.Seat, error) {
	var seat entity.Seat
	var status string
	err := row.Scan(
		&seat.ID,
		&seat.SectionID,
		&seat.RowID,
		&seat.Column,
		&seat.PriceTier,
		&status,
		&seat.HeldBy,
		&seat.HeldAt,
		&seat.CreatedAt,
		&seat.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	seat.Status = entity.SeatStatus(status)
	return &seat, nil
}

func collectSeats(rows pgx.Rows) ([]*entity.Seat, error) {
	defer rows.Close()

	seats := []*entity.Seat{}
	for rows.Next() {
		seat, err := scanSeat(rows)
		if err != nil {
			return nil, fmt.Errorf("scan seat row: %w", err)
		}
		seats = append(seats, seat)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate seat rows: %w", err)
	}
	return seats, nil
}

func (r *seatRepository) List(ctx context.Context, limit, offset int) ([]*entity.Seat, int64, error) {
	var total int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM seats`).Scan(&total); err != nil {
		r.log.Error("Failed to count seats", zap.Error(err))
		return nil, 0, fmt.Errorf("failed to count seats: %w", err)
	}

	query := `
		SELECT ` + seatColumns + `
		FROM seats
		ORDER BY section_id ASC, id ASC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		r.log.Error("Failed to list seats",
			zap.Error(err),
			zap.Int("limit", limit),
			zap.Int("offset", offset),
		)
		return nil, 0, fmt.Errorf("failed to list seats: %w", err)
	}

	seats, err := collectSeats(rows)
	if err != nil {
		r.log.Error("Failed to scan seat page", zap.Error(err))
		return nil, 0, err
	}

	return seats, total, nil
}

func (r *seatRepository) FindAll(ctx context.Context) ([]*entity.Seat, error) {
	query := `SELECT ` + seatColumns + ` FROM seats ORDER BY section_id ASC, id ASC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		r.log.Error("Failed to load seat snapshot", zap.Error(err))
		return nil, fmt.Errorf("failed to load seats: %w", err)
	}
	return collectSeats(rows)
}

func (r *seatRepository) FindByIDs(ctx context.Context, ids []string) ([]*entity.Seat, error) {
	if len(ids) == 0 {
		return []*entity.Seat{}, nil
	}

	query := `SELECT ` + seatColumns + ` FROM seats WHERE id = ANY($1) ORDER BY id`

	rows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		r.log.Error("Failed to find seats by IDs",
			zap.Error(err),
			zap.Int("seat_count", len(ids)),
		)
		return nil, fmt.Errorf("failed to find seats: %w", err)
	}
	return collectSeats(rows)
}

func (r *seatRepository) TryHold(ctx context.Context, seatID, sessionID string, maxHeld int) (*entity.Seat, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin hold transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// Serialize holds of one session so the count below stays valid until commit.
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, sessionID); err != nil {
		r.log.Error("Failed to lock session", zap.Error(err), zap.String("session_id", sessionID))
		return nil, fmt.Errorf("failed to lock session: %w", err)
	}

	if maxHeld > 0 {
		var held int
		err := tx.QueryRow(ctx,
			`SELECT COUNT(*) FROM seats WHERE held_by = $1 AND status = 'held' AND id <> $2`,
			sessionID, seatID,
		).Scan(&held)
		if err != nil {
			r.log.Error("Failed to count held seats", zap.Error(err), zap.String("session_id", sessionID))
			return nil, fmt.Errorf("failed to count held seats: %w", err)
		}
		if held >= maxHeld {
			return nil, ErrCapExceeded
		}
	}

	query := `
		UPDATE seats
		SET status = 'held', held_by = $2, held_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND (status = 'available' OR (status = 'held' AND held_by = $2))
		RETURNING ` + seatColumns

	seat, err := scanSeat(tx.QueryRow(ctx, query, seatID, sessionID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, r.missOrConflict(ctx, tx, seatID, ErrConflict)
	}
	if err != nil {
		r.log.Error("Failed to hold seat",
			zap.Error(err),
			zap.String("seat_id", seatID),
			zap.String("session_id", sessionID),
		)
		return nil, fmt.Errorf("failed to hold seat: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit hold: %w", err)
	}

	return seat, nil
}

func (r *seatRepository) Release(ctx context.Context, seatID, sessionID string) (*entity.Seat, error) {
	query := `
		UPDATE seats
		SET status = 'available', held_by = NULL, held_at = NULL, updated_at = NOW()
		WHERE id = $1 AND status = 'held' AND held_by = $2
		RETURNING ` + seatColumns

	seat, err := scanSeat(r.db.QueryRow(ctx, query, seatID, sessionID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, r.missOrConflict(ctx, r.db, seatID, ErrForbidden)
	}
	if err != nil {
		r.log.Error("Failed to release seat",
			zap.Error(err),
			zap.String("seat_id", seatID),
			zap.String("session_id", sessionID),
		)
		return nil, fmt.Errorf("failed to release seat: %w", err)
	}

	return seat, nil
}

func (r *seatRepository) Complete(ctx context.Context, seatIDs []string, sessionID string) ([]*entity.Seat, error) {
	ids := utils.UniqueStrings(seatIDs)
	if len(ids) == 0 {
		return []*entity.Seat{}, nil
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin complete transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// Lock in a stable order so two overlapping completions cannot deadlock.
	rows, err := tx.Query(ctx,
		`SELECT `+seatColumns+` FROM seats WHERE id = ANY($1) ORDER BY id FOR UPDATE`, ids)
	if err != nil {
		r.log.Error("Failed to lock seats for completion", zap.Error(err), zap.Strings("seat_ids", ids))
		return nil, fmt.Errorf("failed to lock seats: %w", err)
	}
	current, err := collectSeats(rows)
	if err != nil {
		return nil, err
	}

	if offending := OffendingSeats(ids, current, sessionID); len(offending) > 0 {
		return nil, &HoldMismatchError{SeatIDs: offending}
	}

	query := `
		UPDATE seats
		SET status = 'sold', held_by = NULL, held_at = NULL, updated_at = NOW()
		WHERE id = ANY($1) AND status = 'held' AND held_by = $2
		RETURNING ` + seatColumns

	rows, err = tx.Query(ctx, query, ids, sessionID)
	if err != nil {
		r.log.Error("Failed to complete seats",
			zap.Error(err),
			zap.Strings("seat_ids", ids),
			zap.String("session_id", sessionID),
		)
		return nil, fmt.Errorf("failed to complete seats: %w", err)
	}
	sold, err := collectSeats(rows)
	if err != nil {
		return nil, err
	}
	if len(sold) != len(ids) {
		return nil, &HoldMismatchError{SeatIDs: ids}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit completion: %w", err)
	}

	return sold, nil
}

func (r *seatRepository) SetStatus(ctx context.Context, seatIDs []string, status entity.SeatStatus, holder string) ([]*entity.Seat, error) {
	ids := utils.UniqueStrings(seatIDs)
	if len(ids) == 0 {
		return []*entity.Seat{}, nil
	}

	var (
		rows pgx.Rows
		err  error
	)
	if status == entity.SeatStatusHeld {
		rows, err = r.db.Query(ctx, `
			UPDATE seats
			SET status = 'held', held_by = $2, held_at = NOW(), updated_at = NOW()
			WHERE id = ANY($1)
			RETURNING `+seatColumns, ids, holder)
	} else {
		rows, err = r.db.Query(ctx, `
			UPDATE seats
			SET status = $2, held_by = NULL, held_at = NULL, updated_at = NOW()
			WHERE id = ANY($1)
			RETURNING `+seatColumns, ids, string(status))
	}
	if err != nil {
		r.log.Error("Failed to update seat status",
			zap.Error(err),
			zap.Strings("seat_ids", ids),
			zap.String("status", string(status)),
		)
		return nil, fmt.Errorf("failed to update seats: %w", err)
	}

	return collectSeats(rows)
}

func (r *seatRepository) ReleaseExpired(ctx context.Context, cutoff time.Time) ([]string, error) {
	query := `
		UPDATE seats
		SET status = 'available', held_by = NULL, held_at = NULL, updated_at = NOW()
		WHERE status = 'held' AND held_at < $1
		RETURNING id
	`

	rows, err := r.db.Query(ctx, query, cutoff)
	if err != nil {
		r.log.Error("Failed to release expired holds", zap.Error(err), zap.Time("cutoff", cutoff))
		return nil, fmt.Errorf("failed to release expired holds: %w", err)
	}
	defer rows.Close()

	released := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan released seat: %w", err)
		}
		released = append(released, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate released seats: %w", err)
	}

	return released, nil
}

type queryRower interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// missOrConflict tells a missing seat apart from a failed precondition.
func (r *seatRepository) missOrConflict(ctx context.Context, q queryRower, seatID string, failed error) error {
	var exists bool
	err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM seats WHERE id = $1)`, seatID).Scan(&exists)
	if err != nil {
		r.log.Error("Failed to check seat existence", zap.Error(err), zap.String("seat_id", seatID))
		return fmt.Errorf("failed to check seat: %w", err)
	}
	if !exists {
		return ErrNotFound
	}
	return failed
}

// OffendingSeats returns the requested IDs that are missing from current
// or not held by sessionID.
func OffendingSeats(ids []string, current []*entity.Seat, sessionID string) []string {
	byID := make(map[string]*entity.Seat, len(current))
	for _, seat := range current {
		byID[seat.ID] = seat
	}

	var offending []string
	for _, id := range ids {
		seat, ok := byID[id]
		if !ok || !seat.IsHeldBy(sessionID) {
			offending = append(offending, id)
		}
	}
	return offending
}
