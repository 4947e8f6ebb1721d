package migrate

import (
	"context"
	"errors"
	"os"
	"regexp"
	"testing"
	"testing/fstest"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func migrationsFS() fstest.MapFS {
	return fstest.MapFS{
		"002_indexes.sql": {Data: []byte("CREATE INDEX idx ON events (campaign_id);")},
		"001_init.sql":    {Data: []byte("CREATE TABLE campaigns (id SERIAL PRIMARY KEY);")},
		"003_empty.sql":   {Data: []byte("  \n")},
		"README.md":       {Data: []byte("not sql")},
	}
}

func TestUp_AppliesPendingInOrder(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS schema_migrations`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT filename, applied_at FROM schema_migrations`).
		WillReturnRows(sqlmock.NewRows([]string{"filename", "applied_at"}))

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TABLE campaigns`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO schema_migrations`).WithArgs("001_init.sql").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE INDEX idx`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO schema_migrations`).WithArgs("002_indexes.sql").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	ran, err := New(db, migrationsFS()).Up(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"001_init.sql", "002_indexes.sql"}, ran)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUp_SkipsApplied(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS schema_migrations`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT filename, applied_at FROM schema_migrations`).
		WillReturnRows(sqlmock.NewRows([]string{"filename", "applied_at"}).
			AddRow("001_init.sql", time.Now()).
			AddRow("002_indexes.sql", time.Now()))

	ran, err := New(db, migrationsFS()).Up(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ran)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUp_StopsOnFailureAndRollsBack(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS schema_migrations`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT filename, applied_at FROM schema_migrations`).
		WillReturnRows(sqlmock.NewRows([]string{"filename", "applied_at"}))
	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TABLE campaigns`).WillReturnError(errors.New(`relation "campaigns" already exists`))
	mock.ExpectRollback()

	ran, err := New(db, migrationsFS()).Up(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "apply 001_init.sql")
	assert.Empty(t, ran)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplied_Lists(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	at := time.Date(2026, 1, 5, 12, 0, 0, 0, time.UTC)
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS schema_migrations`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT filename, applied_at FROM schema_migrations`).
		WillReturnRows(sqlmock.NewRows([]string{"filename", "applied_at"}).AddRow("001_init.sql", at))

	got, err := New(db, migrationsFS()).Applied(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []Applied{{Filename: "001_init.sql", AppliedAt: at}}, got)
}

// Event ids are int64 end to end; 32-bit columns would make large query ids
// fail with "out of range" instead of matching nothing.
func TestSchema_IDColumnsAre64Bit(t *testing.T) {
	data, err := os.ReadFile("../../migrations/001_phishing_events.sql")
	require.NoError(t, err)

	narrow := regexp.MustCompile(`(?i)\b(SERIAL|INTEGER|INT|INT4)\b`)
	assert.Empty(t, narrow.FindAllString(string(data), -1))
	assert.Contains(t, string(data), "CONSTRAINT events_campaign_id_fkey")
	assert.Contains(t, string(data), "CONSTRAINT events_employee_id_fkey")
}
