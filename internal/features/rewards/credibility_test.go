package rewards

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/orbit-points/internal/common"
	"serotonyl.ru/orbit-points/internal/features/ledger"
)

type brokenReader struct{}

func (brokenReader) GetUser(context.Context, int64) (*ledger.User, error) {
	return nil, errors.New("pool closed")
}

func TestGateThresholdIsInclusive(t *testing.T) {
	store := ledger.NewMemoryStore()
	store.PutUser(ledger.User{ID: 1, OrbitPoints: 49})
	store.PutUser(ledger.User{ID: 2, OrbitPoints: 50})
	gate := NewGate(store, 50)
	ctx := context.Background()

	assert.False(t, gate.IsCredible(ctx, 1))
	assert.True(t, gate.IsCredible(ctx, 2))

	err := gate.Require(ctx, store, 1)
	var cred *common.CredibilityError
	require.True(t, errors.As(err, &cred))
	assert.Equal(t, int64(50), cred.Required)
	assert.Equal(t, int64(49), cred.Current)
	assert.Equal(t, "you need 50+ orbit points to do this (you have 49)", err.Error())

	assert.NoError(t, gate.Require(ctx, store, 2))
}

func TestGateMissingUserIsNotCredible(t *testing.T) {
	store := ledger.NewMemoryStore()
	gate := NewGate(store, 50)

	assert.False(t, gate.IsCredible(context.Background(), 404))
	assert.ErrorIs(t, gate.Require(context.Background(), store, 404), common.ErrInsufficientCredibility)
}

func TestGateFailsClosedOnReadError(t *testing.T) {
	gate := NewGate(brokenReader{}, 50)

	assert.False(t, gate.IsCredible(context.Background(), 1))
	assert.ErrorIs(t, gate.Require(context.Background(), brokenReader{}, 1), common.ErrPersistence)
}
