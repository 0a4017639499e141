package members

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepositoryUpsertUser(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	created := now.AddDate(-1, 0, 0)
	mock.ExpectQuery("(?s)INSERT INTO users .+ ON CONFLICT \\(id\\) DO UPDATE").
		WithArgs(int64(3), "Zoe", now).
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "orbit_points", "created_at"}).
			AddRow(int64(3), "Zoe", int64(120), created))

	u, err := NewRepository(mock).UpsertUser(context.Background(), 3, "Zoe", now)
	require.NoError(t, err)
	assert.Equal(t, int64(120), u.OrbitPoints)
	assert.Equal(t, created, u.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}
