package rewards

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/orbit-points/internal/common"
	"serotonyl.ru/orbit-points/internal/features/ledger"
)

var testNow = time.Date(2026, 3, 10, 15, 30, 0, 0, time.UTC)

func newTestEngine(t *testing.T) (*Engine, *ledger.MemoryStore, *common.FixedClock) {
	t.Helper()
	store := ledger.NewMemoryStore()
	store.PutUser(ledger.User{ID: 1, Name: "Ann", CreatedAt: testNow.AddDate(-1, 0, 0)})
	store.PutUser(ledger.User{ID: 2, Name: "Bob", CreatedAt: testNow.AddDate(-1, 0, 0)})
	clock := &common.FixedClock{T: testNow}
	return NewEngine(store, clock, time.Second), store, clock
}

func ptr[T any](v T) *T { return &v }

func assertLedgerMatchesBalance(t *testing.T, store *ledger.MemoryStore, userID int64) {
	t.Helper()
	ctx := context.Background()
	u, err := store.GetUser(ctx, userID)
	require.NoError(t, err)
	sum, err := store.SumPoints(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, u.OrbitPoints, sum, "сумма журнала должна совпадать с балансом")
}

func TestAwardUsesConfiguredPoints(t *testing.T) {
	engine, store, _ := newTestEngine(t)

	res, err := engine.AwardOne(context.Background(), AwardRequest{UserID: 1, ActionType: ledger.ActionEventAttendance})
	require.NoError(t, err)
	assert.Equal(t, int64(30), res.Attempted)
	assert.Equal(t, int64(30), res.Awarded)
	assert.Equal(t, int64(30), res.Balance)
	assert.NotEmpty(t, res.TransactionID)
	assert.False(t, res.Capped)

	txs, err := store.ListTransactions(context.Background(), 1, 0)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, ledger.CategoryActivity, txs[0].Category)
	assert.Equal(t, testNow, txs[0].CreatedAt)
	assertLedgerMatchesBalance(t, store, 1)
}

func TestAwardExplicitPointsOverrideConfig(t *testing.T) {
	engine, store, _ := newTestEngine(t)

	res, err := engine.AwardOne(context.Background(), AwardRequest{
		UserID:     1,
		ActionType: ledger.ActionConsultationCompleted,
		Points:     ptr(int64(250)),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(250), res.Awarded)
	assertLedgerMatchesBalance(t, store, 1)
}

func TestAwardZeroConfiguredPointsWritesNothing(t *testing.T) {
	engine, store, _ := newTestEngine(t)

	res, err := engine.AwardOne(context.Background(), AwardRequest{UserID: 1, ActionType: ledger.ActionAdminAdjustment})
	require.NoError(t, err)
	assert.Equal(t, int64(0), res.Awarded)
	assert.Empty(t, res.TransactionID)

	sum, err := store.SumPoints(context.Background(), 1)
	require.NoError(t, err)
	assert.Zero(t, sum)
}

func TestAwardDailyLimit(t *testing.T) {
	engine, store, _ := newTestEngine(t)
	ctx := context.Background()

	// chapter_post: 5 в сутки
	for i := 0; i < 5; i++ {
		res, err := engine.AwardOne(ctx, AwardRequest{UserID: 1, ActionType: ledger.ActionChapterPost})
		require.NoError(t, err)
		assert.Equal(t, int64(10), res.Awarded, "начисление %d", i+1)
	}

	res, err := engine.AwardOne(ctx, AwardRequest{UserID: 1, ActionType: ledger.ActionChapterPost})
	require.NoError(t, err)
	assert.True(t, res.Capped)
	assert.Equal(t, int64(10), res.Attempted)
	assert.Equal(t, int64(0), res.Awarded)
	assert.Equal(t, int64(50), res.Balance)

	count, err := store.CountActionsSince(ctx, 1, ledger.ActionChapterPost, common.StartOfDayUTC(testNow))
	require.NoError(t, err)
	assert.Equal(t, 5, count)
	assertLedgerMatchesBalance(t, store, 1)
}

func TestAwardDailyLimitIsPerUser(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := engine.AwardOne(ctx, AwardRequest{UserID: 1, ActionType: ledger.ActionDailyLogin})
	require.NoError(t, err)

	res, err := engine.AwardOne(ctx, AwardRequest{UserID: 2, ActionType: ledger.ActionDailyLogin})
	require.NoError(t, err)
	assert.Equal(t, int64(5), res.Awarded)
}

func TestAwardDailyLimitResetsAtUTCMidnight(t *testing.T) {
	engine, _, clock := newTestEngine(t)
	ctx := context.Background()

	_, err := engine.AwardOne(ctx, AwardRequest{UserID: 1, ActionType: ledger.ActionDailyLogin})
	require.NoError(t, err)

	clock.T = time.Date(2026, 3, 10, 23, 59, 0, 0, time.UTC)
	res, err := engine.AwardOne(ctx, AwardRequest{UserID: 1, ActionType: ledger.ActionDailyLogin})
	require.NoError(t, err)
	assert.True(t, res.Capped)

	clock.T = time.Date(2026, 3, 11, 0, 1, 0, 0, time.UTC)
	res, err = engine.AwardOne(ctx, AwardRequest{UserID: 1, ActionType: ledger.ActionDailyLogin})
	require.NoError(t, err)
	assert.Equal(t, int64(5), res.Awarded)
	assert.Equal(t, int64(10), res.Balance)
}

func TestAwardStrictLimitReturnsError(t *testing.T) {
	engine, store, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := engine.AwardOne(ctx, AwardRequest{UserID: 1, ActionType: ledger.ActionProfileUpdate, Strict: true})
	require.NoError(t, err)

	_, err = engine.AwardOne(ctx, AwardRequest{UserID: 1, ActionType: ledger.ActionProfileUpdate, Strict: true})
	require.ErrorIs(t, err, common.ErrLimitExceeded)
	assertLedgerMatchesBalance(t, store, 1)
}

func TestAwardUnknownOrInactiveAction(t *testing.T) {
	engine, store, _ := newTestEngine(t)
	ctx := context.Background()

	for _, action := range []string{"teleport", ledger.ActionPointDecay} {
		_, err := engine.AwardOne(ctx, AwardRequest{UserID: 1, ActionType: action})
		require.ErrorIs(t, err, common.ErrUnknownAction, action)

		var unknown *common.UnknownActionError
		require.True(t, errors.As(err, &unknown))
		assert.Equal(t, action, unknown.Action)
	}

	sum, err := store.SumPoints(ctx, 1)
	require.NoError(t, err)
	assert.Zero(t, sum)
}

func TestAwardValidation(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	cases := []AwardRequest{
		{UserID: 0, ActionType: ledger.ActionDailyLogin},
		{UserID: 1},
		{UserID: 1, ActionType: ledger.ActionConsultationCompleted, Points: ptr(int64(0))},
	}
	for _, req := range cases {
		_, err := engine.AwardOne(context.Background(), req)
		assert.ErrorIs(t, err, common.ErrInvalidInput)
	}
}

func TestAwardMissingUser(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	_, err := engine.AwardOne(context.Background(), AwardRequest{UserID: 99, ActionType: ledger.ActionDailyLogin})
	assert.ErrorIs(t, err, common.ErrUserNotFound)
	assert.NotErrorIs(t, err, common.ErrPersistence)
}

func TestAwardDuplicateSourceID(t *testing.T) {
	engine, store, _ := newTestEngine(t)
	ctx := context.Background()
	req := AwardRequest{UserID: 1, ActionType: ledger.ActionEventAttendance, SourceID: ptr("event-42")}

	_, err := engine.AwardOne(ctx, req)
	require.NoError(t, err)
	_, err = engine.AwardOne(ctx, req)
	require.ErrorIs(t, err, common.ErrDuplicate)

	u, err := store.GetUser(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(30), u.OrbitPoints)
}

type failingBalance struct {
	ledger.Queries
}

func (failingBalance) AddToBalance(context.Context, int64, int64) (int64, error) {
	return 0, errors.New("connection reset")
}

type failingStore struct {
	*ledger.MemoryStore
}

func (s failingStore) WithTx(ctx context.Context, fn func(q ledger.Queries) error) error {
	return s.MemoryStore.WithTx(ctx, func(q ledger.Queries) error {
		return fn(failingBalance{q})
	})
}

func TestAwardIsAtomic(t *testing.T) {
	_, store, clock := newTestEngine(t)
	engine := NewEngine(failingStore{store}, clock, time.Second)

	_, err := engine.AwardOne(context.Background(), AwardRequest{UserID: 1, ActionType: ledger.ActionEventAttendance})
	require.ErrorIs(t, err, common.ErrPersistence)

	txs, err := store.ListTransactions(context.Background(), 1, 0)
	require.NoError(t, err)
	assert.Empty(t, txs, "запись журнала должна откатиться вместе с балансом")
	assertLedgerMatchesBalance(t, store, 1)
}

func TestAwardComposesInOneTransaction(t *testing.T) {
	engine, store, _ := newTestEngine(t)
	ctx := context.Background()

	err := store.WithTx(ctx, func(q ledger.Queries) error {
		if _, err := engine.Award(ctx, q, AwardRequest{UserID: 1, ActionType: ledger.ActionEventAttendance}); err != nil {
			return err
		}
		_, err := engine.Award(ctx, q, AwardRequest{UserID: 2, ActionType: "teleport"})
		return err
	})
	require.ErrorIs(t, err, common.ErrUnknownAction)

	u, err := store.GetUser(ctx, 1)
	require.NoError(t, err)
	assert.Zero(t, u.OrbitPoints)
}

func TestLedgerStaysConsistentAcrossMixedAwards(t *testing.T) {
	engine, store, clock := newTestEngine(t)
	ctx := context.Background()

	actions := []string{
		ledger.ActionDailyLogin, ledger.ActionDailyLogin, ledger.ActionChapterPost,
		ledger.ActionEventFeedback, ledger.ActionEventFeedback, ledger.ActionEventFeedback,
		ledger.ActionEventFeedback, ledger.ActionReceiveThankYou,
	}
	for day := 0; day < 3; day++ {
		for _, a := range actions {
			_, err := engine.AwardOne(ctx, AwardRequest{UserID: 1, ActionType: a})
			require.NoError(t, err)
		}
		clock.Advance(24 * time.Hour)
	}
	assertLedgerMatchesBalance(t, store, 1)

	u, err := store.GetUser(ctx, 1)
	require.NoError(t, err)
	// за сутки: 5 + 10 + 3*15 + 50
	assert.Equal(t, int64(3*(5+10+45+50)), u.OrbitPoints)
}

func TestAwardConcurrentAwardsAreNotLost(t *testing.T) {
	engine, store, _ := newTestEngine(t)
	const workers = 50

	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := engine.AwardOne(context.Background(), AwardRequest{UserID: 1, ActionType: ledger.ActionEventAttendance})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	u, err := store.GetUser(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(workers*30), u.OrbitPoints)
	txs, err := store.ListTransactions(context.Background(), 1, 0)
	require.NoError(t, err)
	assert.Len(t, txs, workers)
	assertLedgerMatchesBalance(t, store, 1)
}
