package repository

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"github.com/atinyakov/kv-url-shortener/internal/storage"
)

// Rows are keyed by the SHA-256 of the key so arbitrarily long keys stay
// under the btree index row limit.
const createTable = `
	CREATE TABLE IF NOT EXISTS kv_store (
	key_hash BYTEA PRIMARY KEY,
	key TEXT NOT NULL,
	value TEXT NOT NULL
);`

const upsert = "INSERT INTO kv_store (key_hash, key, value) VALUES ($1, $2, $3) ON CONFLICT (key_hash) DO UPDATE SET value = EXCLUDED.value;"

// InitDB opens the pool without connecting. The schema is created on the
// first successful Ping.
func InitDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return db, nil
}

// KVRepository stores key-value pairs in a single PostgreSQL table.
type KVRepository struct {
	db     *sql.DB
	logger *zap.Logger
	ready  atomic.Bool
}

func CreateKVRepository(db *sql.DB, logger *zap.Logger) *KVRepository {
	return &KVRepository{
		db:     db,
		logger: logger,
	}
}

func (r *KVRepository) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, "SELECT value FROM kv_store WHERE key_hash = $1;", keyHash(key)).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", storage.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("select value: %w", err)
	}
	return value, nil
}

func (r *KVRepository) MGet(ctx context.Context, keys []string) (map[string]string, error) {
	out := make(map[string]string, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	placeholders := make([]string, len(keys))
	args := make([]any, len(keys))
	for i, k := range keys {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = keyHash(k)
	}
	query := "SELECT key, value FROM kv_store WHERE key_hash IN (" + strings.Join(placeholders, ", ") + ");"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select values: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *KVRepository) Set(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, upsert, keyHash(key), key, value)
	if err != nil {
		return fmt.Errorf("upsert value: %w", err)
	}
	return nil
}

func (r *KVRepository) MSet(ctx context.Context, pairs map[string]string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}

	for _, k := range sortedKeys(pairs) {
		_, err = tx.ExecContext(ctx, upsert, keyHash(k), k, pairs[k])
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("upsert value: %w", err)
		}
	}

	return tx.Commit()
}

// MSetNX inserts every pair in one transaction. A unique violation on any
// key rolls the whole write back and reports false.
func (r *KVRepository) MSetNX(ctx context.Context, pairs map[string]string) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin: %w", err)
	}

	for _, k := range sortedKeys(pairs) {
		_, err = tx.ExecContext(ctx,
			"INSERT INTO kv_store (key_hash, key, value) VALUES ($1, $2, $3);",
			keyHash(k), k, pairs[k],
		)
		if err == nil {
			continue
		}

		_ = tx.Rollback()
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			r.logger.Debug("conditional write rejected", zap.String("key", k))
			return false, nil
		}
		return false, fmt.Errorf("insert value: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}
	return true, nil
}

// Scan pages through keys in lexical order. The cursor is a row offset and
// returns to 0 after the last page.
func (r *KVRepository) Scan(ctx context.Context, cursor uint64, match string, count int64) ([]string, uint64, error) {
	if count <= 0 {
		count = 10
	}

	rows, err := r.db.QueryContext(ctx,
		"SELECT key FROM kv_store WHERE key LIKE $1 ORDER BY key LIMIT $2 OFFSET $3;",
		likePrefix(storage.MatchPrefix(match)), count, int64(cursor),
	)
	if err != nil {
		return nil, 0, fmt.Errorf("select keys: %w", err)
	}
	defer rows.Close()

	keys := make([]string, 0, count)
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, 0, fmt.Errorf("scan row: %w", err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	if int64(len(keys)) < count {
		return keys, 0, nil
	}
	return keys, cursor + uint64(len(keys)), nil
}

// Ping checks the connection and creates the table once it is reachable.
func (r *KVRepository) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return err
	}
	if r.ready.Load() {
		return nil
	}
	if _, err := r.db.ExecContext(ctx, createTable); err != nil {
		return fmt.Errorf("create table: %w", err)
	}
	r.ready.Store(true)
	r.logger.Info("database connected and table ready")
	return nil
}

func (r *KVRepository) Close() error {
	return r.db.Close()
}

func sortedKeys(pairs map[string]string) []string {
	keys := make([]string, 0, len(pairs))
	for k := range pairs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func keyHash(key string) []byte {
	sum := sha256.Sum256([]byte(key))
	return sum[:]
}

func likePrefix(prefix string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(prefix) + "%"
}
