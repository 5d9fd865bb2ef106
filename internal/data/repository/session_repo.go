package repository

import (
	"context"
	"fmt"

	"event-seating/internal/data/entity"
	"event-seating/pkg/database"

	"go.uber.org/zap"
)

type sessionRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewSessionRepository(db database.PgxIface, log *zap.Logger) SessionRepository {
	return &sessionRepository{
		db:  db,
		log: log.With(zap.String("repository", "session")),
	}
}

func (r *sessionRepository) Create(ctx context.Context, session *entity.Session) error {
	query := `INSERT INTO seat_sessions (id, created_at) VALUES ($1, $2)`

	if _, err := r.db.Exec(ctx, query, session.ID, session.CreatedAt); err != nil {
		r.log.Error("Failed to create session",
			zap.Error(err),
			zap.String("session_id", session.ID),
		)
		return fmt.Errorf("failed to create session: %w", err)
	}

	return nil
}

func (r *sessionRepository) CountHeld(ctx context.Context, sessionID string) (int, error) {
	query := `SELECT COUNT(*) FROM seats WHERE held_by = $1 AND status = 'held'`

	var count int
	if err := r.db.QueryRow(ctx, query, sessionID).Scan(&count); err != nil {
		r.log.Error("Failed to count held seats",
			zap.Error(err),
			zap.String("session_id", sessionID),
		)
		return 0, fmt.Errorf("failed to count held seats: %w", err)
	}

	return count, nil
}
