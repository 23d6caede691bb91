package postgres

import (
	"context"
	"time"

	"github.com/baharkarakas/prepaid-ledger/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
)

type revocationsRepo struct{ pool *pgxpool.Pool }

func (r *revocationsRepo) Revoke(ctx context.Context, rec models.RevocationRecord) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO token_revocations(jti, account_id, expires_at)
		 VALUES($1,$2,$3)
		 ON CONFLICT (jti) DO NOTHING`,
		rec.JTI, rec.Subject, rec.ExpiresAt,
	)
	return mapErr(err, nil)
}

func (r *revocationsRepo) IsRevoked(ctx context.Context, jti string) (bool, error) {
	var revoked bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM token_revocations WHERE jti=$1)`, jti,
	).Scan(&revoked)
	return revoked, mapErr(err, nil)
}

func (r *revocationsRepo) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM token_revocations WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, mapErr(err, nil)
	}
	return tag.RowsAffected(), nil
}
