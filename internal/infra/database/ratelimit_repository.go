package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/xavierca1/ligue-crm/internal/entity"
)

// RateLimitRepository guarda um registro por ação permitida; a janela deslizante é
// calculada na consulta.
type RateLimitRepository struct {
	DB *sql.DB
}

func NewRateLimitRepository(db *sql.DB) *RateLimitRepository {
	return &RateLimitRepository{DB: db}
}

func (r *RateLimitRepository) CountSince(ctx context.Context, identifier, action string, since, until time.Time) (int, time.Time, error) {
	var (
		n      int
		oldest sql.NullTime
	)
	err := r.DB.QueryRowContext(ctx, `
		SELECT COUNT(*), MIN(created_at) FROM rate_limits
		WHERE identifier = $1 AND action = $2 AND created_at >= $3 AND created_at <= $4
	`, identifier, action, since, until).Scan(&n, &oldest)
	if err != nil {
		return 0, time.Time{}, err
	}
	return n, oldest.Time, nil
}

func (r *RateLimitRepository) Insert(ctx context.Context, hit entity.RateLimitHit) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO rate_limits (identifier, action, created_at) VALUES ($1, $2, $3)`,
		hit.Identifier, hit.Action, hit.CreatedAt)
	return err
}

// Purge apaga registros que já saíram de qualquer janela. Chamado pelo scheduler.
func (r *RateLimitRepository) Purge(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM rate_limits WHERE created_at < $1`, before)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
