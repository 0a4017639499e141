package members

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/orbit-points/internal/common"
	"serotonyl.ru/orbit-points/internal/features/ledger"
)

type countingSource struct {
	store *ledger.MemoryStore
	calls int
}

func (s *countingSource) GetUser(ctx context.Context, userID int64) (*ledger.User, error) {
	s.calls++
	return s.store.GetUser(ctx, userID)
}

func newDirectory(t *testing.T, ttl time.Duration) (*Directory, *countingSource, *ledger.MemoryStore) {
	t.Helper()
	store := ledger.NewMemoryStore()
	src := &countingSource{store: store}
	clock := &common.FixedClock{T: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	return NewDirectory(src, store, clock, 16, ttl), src, store
}

func TestDirectoryCachesProfiles(t *testing.T) {
	ctx := context.Background()
	dir, src, store := newDirectory(t, time.Minute)
	store.PutUser(ledger.User{ID: 1, Name: "Ann"})

	p, err := dir.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Ann", p.Name)

	_, err = dir.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, src.calls)
}

func TestDirectoryDoesNotCacheMissingUsers(t *testing.T) {
	ctx := context.Background()
	dir, src, store := newDirectory(t, time.Minute)

	_, err := dir.Get(ctx, 7)
	require.ErrorIs(t, err, common.ErrUserNotFound)

	store.PutUser(ledger.User{ID: 7, Name: "Late"})
	p, err := dir.Get(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, "Late", p.Name)
	assert.Equal(t, 2, src.calls)
}

func TestDirectoryEntriesExpire(t *testing.T) {
	ctx := context.Background()
	dir, src, store := newDirectory(t, 20*time.Millisecond)
	store.PutUser(ledger.User{ID: 1, Name: "Ann"})

	_, err := dir.Get(ctx, 1)
	require.NoError(t, err)
	time.Sleep(80 * time.Millisecond)
	_, err = dir.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, src.calls)
}

func TestDirectoryInvalidateAndPurge(t *testing.T) {
	ctx := context.Background()
	dir, src, store := newDirectory(t, time.Minute)
	store.PutUser(ledger.User{ID: 1, Name: "Ann"})
	store.PutUser(ledger.User{ID: 2, Name: "Bob"})

	_, _ = dir.Get(ctx, 1)
	_, _ = dir.Get(ctx, 2)
	assert.Equal(t, 2, dir.Len())

	assert.True(t, dir.Invalidate(1))
	assert.False(t, dir.Invalidate(1))
	assert.Equal(t, 1, dir.Len())

	dir.Purge()
	assert.Equal(t, 0, dir.Len())
	_, _ = dir.Get(ctx, 2)
	assert.Equal(t, 3, src.calls)
}

func TestDirectoryRegisterKeepsBalanceAndRefreshesName(t *testing.T) {
	ctx := context.Background()
	dir, _, store := newDirectory(t, time.Minute)
	store.PutUser(ledger.User{ID: 1, Name: "Ann", OrbitPoints: 70})

	p, err := dir.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Ann", p.Name)

	u, err := dir.Register(ctx, 1, "Anna")
	require.NoError(t, err)
	assert.Equal(t, int64(70), u.OrbitPoints)

	p, err = dir.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Anna", p.Name)

	created, err := dir.Register(ctx, 2, "New")
	require.NoError(t, err)
	assert.Equal(t, int64(0), created.OrbitPoints)
	assert.Equal(t, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), created.CreatedAt)
}

func TestHandlerRegisterAndEvict(t *testing.T) {
	dir, _, _ := newDirectory(t, time.Minute)
	h := NewHandler(dir)
	r := chi.NewRouter()
	r.Put("/members/{id}", h.Register)
	r.Delete("/cache/users/{id}", h.EvictUser)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/members/5", strings.NewReader(`{"name":"Eve"}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"name":"Eve"`)

	_, err := dir.Get(context.Background(), 5)
	require.NoError(t, err)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/cache/users/5", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"data":{"evicted":true}}`, rec.Body.String())

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/members/abc", strings.NewReader(`{"name":"Eve"}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/members/5", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "name is required")
}
