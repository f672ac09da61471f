package repository

import (
	"errors"
	"fmt"
	"testing"
	"testing/fstest"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/learnhub/learnhub/internal/model"
	"github.com/learnhub/learnhub/migrations"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursor_RoundTrip(t *testing.T) {
	t.Parallel()

	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	encoded := encodeCursor(&PaginationCursor{ID: "c1", CreatedAt: created, Count: 42})

	decoded, err := decodeCursor(encoded)
	require.NoError(t, err)
	assert.Equal(t, "c1", decoded.ID)
	assert.True(t, created.Equal(decoded.CreatedAt))
	assert.Equal(t, int64(42), decoded.Count)
}

func TestDecodeCursor_Invalid(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"!!!", "bm90LWpzb24", "e30="} {
		_, err := decodeCursor(in)
		assert.Error(t, err, "decodeCursor(%q)", in)
	}
}

func TestEscapeLike(t *testing.T) {
	t.Parallel()

	assert.Equal(t, `100\% go\_lang \\`, escapeLike(`100% go_lang \`))
	assert.Equal(t, "plain", escapeLike("plain"))
}

func TestUniqueViolation(t *testing.T) {
	t.Parallel()

	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "users_username_key"}
	name, ok := uniqueViolation(fmt.Errorf("wrapped: %w", pgErr))
	assert.True(t, ok)
	assert.Equal(t, "users_username_key", name)

	_, ok = uniqueViolation(&pgconn.PgError{Code: "23503"})
	assert.False(t, ok)

	_, ok = uniqueViolation(errors.New("duplicate key value violates unique constraint"))
	assert.False(t, ok)
}

func TestNonNil(t *testing.T) {
	t.Parallel()

	assert.NotNil(t, nonNil(nil))
	assert.Equal(t, []string{"a"}, nonNil([]string{"a"}))
}

func TestUniqueDailyKeys(t *testing.T) {
	t.Parallel()

	day := time.Date(2026, 5, 10, 8, 0, 0, 0, time.UTC)
	events := []*model.EnrollmentEvent{
		{CourseID: "a", OccurredAt: day},
		{CourseID: "a", OccurredAt: day.Add(3 * time.Hour)},
		{CourseID: "b", OccurredAt: day},
		{CourseID: "a", OccurredAt: day.Add(24 * time.Hour)},
	}

	keys := uniqueDailyKeys(events)
	require.Len(t, keys, 3)
	assert.Equal(t, "a", keys[0].courseID)
	assert.Equal(t, time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC), keys[0].date)
	assert.Equal(t, "b", keys[1].courseID)
	assert.Equal(t, time.Date(2026, 5, 11, 0, 0, 0, 0, time.UTC), keys[2].date)
}

func TestLoadMigrations_Embedded(t *testing.T) {
	t.Parallel()

	migs, err := LoadMigrations(migrations.FS)
	require.NoError(t, err)
	require.NotEmpty(t, migs)

	for i, m := range migs {
		assert.NotEmpty(t, m.Up, "migration %d up", m.Version)
		assert.NotEmpty(t, m.Down, "migration %d down", m.Version)
		if i > 0 {
			assert.Greater(t, m.Version, migs[i-1].Version)
		}
	}
	assert.Equal(t, "users", migs[0].Name)
}

func TestLoadMigrations_MissingUp(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"000001_init.up.sql":    {Data: []byte("CREATE TABLE a (id int);")},
		"000001_init.down.sql":  {Data: []byte("DROP TABLE a;")},
		"000002_extra.down.sql": {Data: []byte("DROP TABLE b;")},
		"README.md":             {Data: []byte("ignored")},
	}

	_, err := LoadMigrations(fsys)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "000002_extra")
}
