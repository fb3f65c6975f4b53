package postgres

import (
	"context"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Well-known settings keys.
const (
	KeyPointsPerCheckin = "points_per_checkin"
	KeySweeperLastRun   = "sweeper_last_run"
)

// SettingsRepo is the injected key-value capability backing per-deployment
// tunables and the sweeper throttle timestamp.
type SettingsRepo interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	GetInt64(ctx context.Context, key string, fallback int64) (int64, error)
	SetInt64(ctx context.Context, key string, value int64) error
}

type SettingsRepoImpl struct{ pool *pgxpool.Pool }

func NewSettingsRepo(pool *pgxpool.Pool) *SettingsRepoImpl { return &SettingsRepoImpl{pool: pool} }

func (r *SettingsRepoImpl) Get(ctx context.Context, key string) (string, bool, error) {
	const q = `SELECT value FROM settings WHERE key=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var value string
	err := r.pool.QueryRow(ctx, q, key).Scan(&value)
	if err == pgx.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (r *SettingsRepoImpl) Set(ctx context.Context, key, value string) error {
	const q = `INSERT INTO settings (key, value) VALUES ($1,$2)
  ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := r.pool.Exec(ctx, q, key, value)
	return err
}

func (r *SettingsRepoImpl) GetInt64(ctx context.Context, key string, fallback int64) (int64, error) {
	raw, ok, err := r.Get(ctx, key)
	if err != nil {
		return fallback, err
	}
	if !ok {
		return fallback, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		// An unparsable value behaves like an unset one.
		return fallback, nil
	}
	return n, nil
}

func (r *SettingsRepoImpl) SetInt64(ctx context.Context, key string, value int64) error {
	return r.Set(ctx, key, strconv.FormatInt(value, 10))
}

var _ SettingsRepo = (*SettingsRepoImpl)(nil)
