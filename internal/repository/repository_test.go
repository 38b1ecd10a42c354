package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/atinyakov/kv-url-shortener/internal/storage"
)

// Helper to set up a mock DB and repository
func setupMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *KVRepository) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := CreateKVRepository(db, zap.NewNop())
	return db, mock, repo
}

func TestGet(t *testing.T) {
	_, mock, repo := setupMockDB(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT value FROM kv_store WHERE key_hash = $1;")).
		WithArgs(keyHash("short:abc")).
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow("https://example.com"))

	v, err := repo.Get(context.Background(), "short:abc")

	assert.NoError(t, err)
	assert.Equal(t, "https://example.com", v)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGet_NotFound(t *testing.T) {
	_, mock, repo := setupMockDB(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT value FROM kv_store WHERE key_hash = $1;")).
		WithArgs(keyHash("short:none")).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), "short:none")

	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMGet(t *testing.T) {
	_, mock, repo := setupMockDB(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT key, value FROM kv_store WHERE key_hash IN ($1, $2, $3);")).
		WithArgs(keyHash("short:a"), keyHash("short:b"), keyHash("short:c")).
		WillReturnRows(sqlmock.NewRows([]string{"key", "value"}).
			AddRow("short:a", "https://a.com").
			AddRow("short:c", "https://c.com"))

	got, err := repo.MGet(context.Background(), []string{"short:a", "short:b", "short:c"})

	require.NoError(t, err)
	assert.Equal(t, map[string]string{"short:a": "https://a.com", "short:c": "https://c.com"}, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSet(t *testing.T) {
	_, mock, repo := setupMockDB(t)

	mock.ExpectExec(regexp.QuoteMeta(upsert)).
		WithArgs(keyHash("k"), "k", "v").
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, repo.Set(context.Background(), "k", "v"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMSet_RollbackOnError(t *testing.T) {
	_, mock, repo := setupMockDB(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO kv_store`).
		WithArgs(keyHash("a"), "a", "1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO kv_store`).
		WithArgs(keyHash("b"), "b", "2").
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := repo.MSet(context.Background(), map[string]string{"a": "1", "b": "2"})

	assert.ErrorContains(t, err, "disk full")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMSetNX(t *testing.T) {
	insert := regexp.QuoteMeta("INSERT INTO kv_store (key_hash, key, value) VALUES ($1, $2, $3);")
	pairs := map[string]string{
		"long:https://example.com": "abc",
		"short:abc":                "https://example.com",
	}

	t.Run("all keys new", func(t *testing.T) {
		_, mock, repo := setupMockDB(t)

		mock.ExpectBegin()
		mock.ExpectExec(insert).WithArgs(keyHash("long:https://example.com"), "long:https://example.com", "abc").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(insert).WithArgs(keyHash("short:abc"), "short:abc", "https://example.com").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		ok, err := repo.MSetNX(context.Background(), pairs)

		assert.NoError(t, err)
		assert.True(t, ok)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("existing key", func(t *testing.T) {
		_, mock, repo := setupMockDB(t)

		mock.ExpectBegin()
		mock.ExpectExec(insert).
			WithArgs(keyHash("long:https://example.com"), "long:https://example.com", "abc").
			WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation})
		mock.ExpectRollback()

		ok, err := repo.MSetNX(context.Background(), pairs)

		assert.NoError(t, err)
		assert.False(t, ok)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("other error", func(t *testing.T) {
		_, mock, repo := setupMockDB(t)

		mock.ExpectBegin()
		mock.ExpectExec(insert).
			WithArgs(keyHash("long:https://example.com"), "long:https://example.com", "abc").
			WillReturnError(errors.New("connection reset"))
		mock.ExpectRollback()

		ok, err := repo.MSetNX(context.Background(), pairs)

		assert.Error(t, err)
		assert.False(t, ok)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestMSetNX_LongKey(t *testing.T) {
	_, mock, repo := setupMockDB(t)

	longURL := "https://example.com/" + strings.Repeat("a", 4096)
	longKey := storage.ReverseKey(longURL)
	insert := regexp.QuoteMeta("INSERT INTO kv_store (key_hash, key, value) VALUES ($1, $2, $3);")

	mock.ExpectBegin()
	mock.ExpectExec(insert).WithArgs(keyHash(longKey), longKey, "abc").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(insert).WithArgs(keyHash("short:abc"), "short:abc", longURL).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	ok, err := repo.MSetNX(context.Background(), map[string]string{
		longKey:     "abc",
		"short:abc": longURL,
	})

	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestKeyHash_FixedSize(t *testing.T) {
	short := keyHash("short:abc")
	long := keyHash(storage.ReverseKey("https://example.com/" + strings.Repeat("x", 8192)))

	assert.Len(t, short, 32)
	assert.Len(t, long, 32)
	assert.NotEqual(t, short, long)
	assert.Equal(t, short, keyHash("short:abc"))
}

func TestScan(t *testing.T) {
	query := regexp.QuoteMeta("SELECT key FROM kv_store WHERE key LIKE $1 ORDER BY key LIMIT $2 OFFSET $3;")

	t.Run("full page keeps cursor", func(t *testing.T) {
		_, mock, repo := setupMockDB(t)

		mock.ExpectQuery(query).
			WithArgs("short:%", int64(2), int64(0)).
			WillReturnRows(sqlmock.NewRows([]string{"key"}).AddRow("short:a").AddRow("short:b"))

		keys, next, err := repo.Scan(context.Background(), 0, "short:*", 2)

		require.NoError(t, err)
		assert.Equal(t, []string{"short:a", "short:b"}, keys)
		assert.Equal(t, uint64(2), next)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("short page ends iteration", func(t *testing.T) {
		_, mock, repo := setupMockDB(t)

		mock.ExpectQuery(query).
			WithArgs("short:%", int64(2), int64(2)).
			WillReturnRows(sqlmock.NewRows([]string{"key"}).AddRow("short:c"))

		keys, next, err := repo.Scan(context.Background(), 2, "short:*", 2)

		require.NoError(t, err)
		assert.Equal(t, []string{"short:c"}, keys)
		assert.Zero(t, next)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPing_CreatesTableOnce(t *testing.T) {
	_, mock, repo := setupMockDB(t)

	mock.ExpectPing()
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS kv_store`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectPing()

	ctx := context.Background()
	require.NoError(t, repo.Ping(ctx))
	require.NoError(t, repo.Ping(ctx))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPing_Error(t *testing.T) {
	_, mock, repo := setupMockDB(t)

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))

	assert.Error(t, repo.Ping(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLikePrefix(t *testing.T) {
	assert.Equal(t, "short:%", likePrefix("short:"))
	assert.Equal(t, `a\_b\%%`, likePrefix("a_b%"))
}
