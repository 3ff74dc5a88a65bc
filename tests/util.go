package testutil

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coinsforstudy/coins/core"
	"github.com/coinsforstudy/coins/core/economy"
	"github.com/coinsforstudy/coins/storage/database"
)

// NewTestConfig returns a config backed by a migrated SQLite file private to t.
func NewTestConfig(t *testing.T) *core.Config {
	t.Helper()
	conf := core.NewConfig()
	conf.TestMode = true
	conf.Database.Engine = "sqlite"
	conf.Database.DSN = filepath.Join(t.TempDir(), "coins.db")
	return conf
}

// PrepareDB opens and migrates a fresh SQLite database, closed when t ends.
func PrepareDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := database.Open(NewTestConfig(t))
	if err != nil {
		t.Fatalf("database.Open() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := database.Migrate(db); err != nil {
		t.Fatalf("database.Migrate() failed: %v", err)
	}
	return db
}

func CreateSession(t *testing.T, repo economy.Repository, name string, state economy.State, createdAt ...time.Time) economy.SessionRecord {
	t.Helper()
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	rec, err := repo.CreateSession(context.Background(), economy.SessionRecord{
		ID:        uuid.NewString(),
		Name:      name,
		Version:   1,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
		State:     state,
	})
	if err != nil {
		t.Fatalf("CreateSession() failed: %v", err)
	}
	return rec
}

func DemoState(t *testing.T) economy.State {
	t.Helper()
	sess, err := economy.NewDemoSession(economy.DefaultOptions())
	if err != nil {
		t.Fatalf("NewDemoSession() failed: %v", err)
	}
	return sess.State()
}

// TestSessionRepository checks the behaviour every economy.Repository must share.
func TestSessionRepository(t *testing.T, repo economy.Repository) {
	ctx := context.Background()
	t0 := time.Date(2025, time.September, 1, 9, 0, 0, 0, time.UTC)
	first := CreateSession(t, repo, "Ana", DemoState(t), t0)
	second := CreateSession(t, repo, "Bruno", economy.State{}, t0.Add(time.Minute))

	t.Run("get", func(t *testing.T) {
		rec, err := repo.GetSession(ctx, first.ID)
		require.NoError(t, err)
		assert.Equal(t, "Ana", rec.Name)
		assert.Equal(t, 1, rec.Version)
		assert.True(t, rec.CreatedAt.Equal(t0))
		assert.Len(t, rec.State.Subjects, 4)
		assert.Len(t, rec.State.Entries, 4)
		assert.Len(t, rec.State.Activities, 3)
		assert.Equal(t, 7.0, rec.State.Policy.MinThreshold["mat"])
	})

	t.Run("get unknown", func(t *testing.T) {
		_, err := repo.GetSession(ctx, "nope")
		assert.ErrorIs(t, err, economy.ErrNotFound)
	})

	t.Run("query", func(t *testing.T) {
		infos, err := repo.QuerySessions(ctx)
		require.NoError(t, err)
		require.Len(t, infos, 2)
		assert.Equal(t, first.ID, infos[0].ID)
		assert.Equal(t, second.ID, infos[1].ID)
	})

	t.Run("update", func(t *testing.T) {
		rec, err := repo.GetSession(ctx, second.ID)
		require.NoError(t, err)
		rec.State.Subjects = append(rec.State.Subjects, economy.Subject{ID: "mat", Name: "Matematica"})
		rec.State.Accounts = append(rec.State.Accounts, "mat")
		rec.UpdatedAt = t0.Add(time.Hour)

		saved, err := repo.UpdateSession(ctx, rec)
		require.NoError(t, err)
		assert.Equal(t, 2, saved.Version)

		got, err := repo.GetSession(ctx, second.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, got.Version)
		assert.True(t, got.UpdatedAt.Equal(t0.Add(time.Hour)))
		assert.True(t, got.CreatedAt.Equal(t0.Add(time.Minute)))
		assert.Equal(t, []economy.Subject{{ID: "mat", Name: "Matematica"}}, got.State.Subjects)

		// rec still carries version 1
		_, err = repo.UpdateSession(ctx, rec)
		assert.ErrorIs(t, err, economy.ErrConflict)
	})

	t.Run("update unknown", func(t *testing.T) {
		_, err := repo.UpdateSession(ctx, economy.SessionRecord{ID: "nope", Version: 1})
		assert.ErrorIs(t, err, economy.ErrNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, repo.DeleteSession(ctx, first.ID))
		_, err := repo.GetSession(ctx, first.ID)
		assert.ErrorIs(t, err, economy.ErrNotFound)
		assert.ErrorIs(t, repo.DeleteSession(ctx, first.ID), economy.ErrNotFound)

		infos, err := repo.QuerySessions(ctx)
		require.NoError(t, err)
		assert.Len(t, infos, 1)
	})
}
