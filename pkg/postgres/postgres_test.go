package postgres

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakechorley/daycare-scheduler/pkg/core/model"
)

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"serialization failure", &pgconn.PgError{Code: "40001"}, true},
		{"deadlock", &pgconn.PgError{Code: "40P01"}, true},
		{"wrapped serialization failure", fmt.Errorf("failed to insert booking: %w", &pgconn.PgError{Code: "40001"}), true},
		{"unique violation", &pgconn.PgError{Code: "23505"}, false},
		{"plain error", errors.New("boom"), false},
		{"rejection", model.Reject(model.KindOverlap, "overlap"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isRetryable(tt.err))
		})
	}
}

func TestPendingMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"migrations/002_more.sql":    {Data: []byte("SELECT 2")},
		"migrations/001_initial.sql": {Data: []byte("SELECT 1")},
		"migrations/README.md":       {Data: []byte("docs")},
		"migrations/003_latest.sql":  {Data: []byte("SELECT 3")},
	}

	pending, err := pendingMigrations(fsys, []string{"002_more.sql"})
	require.NoError(t, err)
	assert.Equal(t, []string{"001_initial.sql", "003_latest.sql"}, pending)
}

func TestEmbeddedMigrationsPresent(t *testing.T) {
	pending, err := pendingMigrations(migrationsFS, nil)
	require.NoError(t, err)
	assert.Contains(t, pending, "001_initial_schema.sql")
}

func TestWaitlistAllowsSeveralEntriesPerBooking(t *testing.T) {
	schema, err := fs.ReadFile(migrationsFS, "migrations/001_initial_schema.sql")
	require.NoError(t, err)

	start := strings.Index(string(schema), "CREATE TABLE waitlist (")
	require.NotEqual(t, -1, start)
	table := string(schema)[start:]
	table = table[:strings.Index(table, ");")]
	assert.NotContains(t, table, "UNIQUE")

	assert.Contains(t, latestEntryForBooking, "ORDER BY active DESC, created_at DESC")
	assert.Contains(t, latestEntryForBooking, "LIMIT 1")
}

func TestTimeOfDayConversion(t *testing.T) {
	tod := model.NewTimeOfDay(8, 30, 15)

	pg := timeOfDayToPg(&tod)
	assert.True(t, pg.Valid)
	assert.Equal(t, int64(tod)*1_000_000, pg.Microseconds)

	back := timeOfDayFromPg(pg)
	require.NotNil(t, back)
	assert.Equal(t, tod, *back)

	assert.False(t, timeOfDayToPg(nil).Valid)
	assert.Nil(t, timeOfDayFromPg(pgtype.Time{}))
}

func TestUniqueStrings(t *testing.T) {
	assert.Len(t, uniqueStrings([]string{"a", "b", "a"}), 2)
}
