package sqlxrepos

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	testutil "github.com/coinsforstudy/coins/tests"
)

func TestSessionRepository(t *testing.T) {
	testutil.TestSessionRepository(t, NewSessionRepository(testutil.PrepareDB(t)))
}

func TestSessionRepository_StoresSnapshotAsJSON(t *testing.T) {
	db := testutil.PrepareDB(t)
	repo := NewSessionRepository(db)
	rec := testutil.CreateSession(t, repo, "Ana", testutil.DemoState(t))

	var snapshot string
	err := db.GetContext(context.Background(), &snapshot, db.Rebind(`SELECT snapshot FROM economy_session WHERE id = ?`), rec.ID)
	require.NoError(t, err)
	assert.Contains(t, snapshot, `"price_coins_per_point":"5"`)
	assert.Contains(t, snapshot, `"deadline":"2025-10-01"`)
}
