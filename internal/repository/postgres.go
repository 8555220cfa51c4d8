package repository

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"syscall"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/mmeshcher/marksix/internal/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// PostgresMirror копирует тиражи архива в таблицу PostgreSQL.
// Источником истины остаётся CSV-файл, зеркало только дополняется.
type PostgresMirror struct {
	pool *pgxpool.Pool
}

// OpenPostgresMirror подключается к базе и доводит схему зеркала до последней миграции.
// Подключение и миграции ограничены ctx вызывающего.
func OpenPostgresMirror(ctx context.Context, dsn string) (*PostgresMirror, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open mirror pool: %w", err)
	}

	m := &PostgresMirror{pool: pool}
	if err := withRetry(ctx, func() error { return m.migrate(ctx) }); err != nil {
		pool.Close()
		return nil, err
	}

	return m, nil
}

// migrate применяет встроенные миграции через goose.Provider без глобального состояния goose.
func (m *PostgresMirror) migrate(ctx context.Context) error {
	migrations, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("mirror migrations: %w", err)
	}

	db := stdlib.OpenDBFromPool(m.pool)
	defer db.Close()

	provider, err := goose.NewProvider(goose.DialectPostgres, db, migrations)
	if err != nil {
		return fmt.Errorf("init mirror migrations: %w", err)
	}

	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("migrate mirror schema: %w", err)
	}
	return nil
}

// Close закрывает пул соединений с БД.
func (m *PostgresMirror) Close() error {
	m.pool.Close()
	return nil
}

// MirrorDraws добавляет в таблицу тиражи, которых там ещё нет, и возвращает их число.
// Уже существующие строки не изменяются.
func (m *PostgresMirror) MirrorDraws(ctx context.Context, rows []model.Draw) (int, error) {
	existing, err := m.mirroredKeys(ctx)
	if err != nil {
		return 0, err
	}

	inserted := 0
	for _, d := range rows {
		key := d.Key()
		if _, ok := existing[key]; ok {
			continue
		}

		var added bool
		err := withRetry(ctx, func() error {
			var insErr error
			added, insErr = m.insertDraw(ctx, d)
			return insErr
		})
		if err != nil {
			return inserted, err
		}
		if added {
			inserted++
		}
		existing[key] = struct{}{}
	}

	return inserted, nil
}

func (m *PostgresMirror) mirroredKeys(ctx context.Context) (map[model.DrawKey]struct{}, error) {
	rows, err := m.pool.Query(ctx, `SELECT year, no FROM draws`)
	if err != nil {
		return nil, fmt.Errorf("query mirrored draws: %w", err)
	}
	defer rows.Close()

	keys := make(map[model.DrawKey]struct{})
	for rows.Next() {
		var year, no string
		if err := rows.Scan(&year, &no); err != nil {
			return nil, fmt.Errorf("scan mirrored draw: %w", err)
		}
		keys[model.NewDrawKey(year, no)] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate mirrored draws: %w", err)
	}

	return keys, nil
}

func (m *PostgresMirror) insertDraw(ctx context.Context, d model.Draw) (bool, error) {
	_, err := m.pool.Exec(ctx,
		`INSERT INTO draws (
			year, no, draw_date, close_date, open_date, status, snowball_code, snowball_name,
			pool_sell, pool_total_investment, pool_jackpot, pool_estimated_prize, pool_derived_first_prize_div,
			drawn1, drawn2, drawn3, drawn4, drawn5, drawn6, special
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`,
		d.Year, d.No, d.DrawDate, d.CloseDate, d.OpenDate, d.Status, d.SnowballCode, d.SnowballName,
		d.PoolSell, d.PoolTotalInvestment, d.PoolJackpot, d.PoolEstimatedPrize, d.PoolDerivedFirstPrizeDiv,
		d.Drawn[0], d.Drawn[1], d.Drawn[2], d.Drawn[3], d.Drawn[4], d.Drawn[5], d.Special,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return false, nil
		}
		return false, fmt.Errorf("insert draw %s/%s: %w", d.Year, d.No, err)
	}
	return true, nil
}

var retryDelays = []time.Duration{1 * time.Second, 3 * time.Second, 5 * time.Second}

func withRetry(ctx context.Context, fn func() error) error {
	var err error

	for i := 0; i <= len(retryDelays); i++ {
		err = fn()
		if err == nil {
			return nil
		}

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		if !isRetryable(err) || i == len(retryDelays) {
			break
		}

		timer := time.NewTimer(retryDelays[i])
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return err
}

func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgerrcode.SerializationFailure || pgErr.Code == pgerrcode.DeadlockDetected
	}
	return isConnectionError(err)
}

func isConnectionError(err error) bool {
	return errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) ||
		pgconn.SafeToRetry(err)
}
