package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/orbit-points/internal/config"
	"serotonyl.ru/orbit-points/internal/features/admin"
	"serotonyl.ru/orbit-points/internal/features/ledger"
)

const adminKey = "integration-key"

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	hash, err := admin.HashKey(adminKey, admin.Params{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32})
	require.NoError(t, err)

	cfg := &config.Config{
		HTTPAddr:               ":0",
		AdminKeyHash:           hash,
		AppStore:               config.StoreMemory,
		OperationTimeout:       time.Second,
		CredibilityThreshold:   50,
		ThankYouCooldownDays:   7,
		ThankYouMaxLength:      500,
		SummaryRecentLimit:     50,
		DecaySchedule:          "0 3 1 * *",
		DecayTimezone:          "UTC",
		DecayInactivityDays:    30,
		DecayPercent:           5,
		UserCacheSize:          100,
		UserCacheTTL:           time.Minute,
		RateLimitRequests:      1000,
		RateLimitWindow:        time.Minute,
		FeatureDecayEnabled:    true,
		FeatureThankYouEnabled: true,
	}
	require.NoError(t, cfg.Validate())
	return cfg
}

func newTestApp(t *testing.T) *App {
	t.Helper()
	a, err := New(context.Background(), testConfig(t))
	require.NoError(t, err)
	t.Cleanup(a.Close)
	return a
}

type client struct {
	t *testing.T
	h http.Handler
}

func (c client) do(method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	c.t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	c.h.ServeHTTP(rec, req)
	return rec
}

func (c client) asUser(id int64, method, path, body string) *httptest.ResponseRecorder {
	return c.do(method, path, body, map[string]string{"X-User-ID": strconv.FormatInt(id, 10)})
}

func (c client) asAdmin(method, path, body string) *httptest.ResponseRecorder {
	return c.do(method, path, body, map[string]string{admin.HeaderAdminKey: adminKey})
}

func TestEndToEndThankYouFlow(t *testing.T) {
	a := newTestApp(t)
	c := client{t: t, h: a.Handler()}

	require.Equal(t, http.StatusOK, c.asAdmin(http.MethodPut, "/api/admin/members/1", `{"name":"Ann"}`).Code)
	require.Equal(t, http.StatusOK, c.asAdmin(http.MethodPut, "/api/admin/members/2", `{"name":"Bob"}`).Code)

	// неизвестный пользователь
	assert.Equal(t, http.StatusUnauthorized, c.asUser(99, http.MethodGet, "/api/points/summary", "").Code)
	assert.Equal(t, http.StatusUnauthorized, c.do(http.MethodGet, "/api/points/summary", "", nil).Code)

	// баланс 0 — шлюз доверия
	rec := c.asUser(1, http.MethodPost, "/api/thank-you", `{"receiverId":2,"message":"thanks"}`)
	require.Equal(t, http.StatusForbidden, rec.Code)

	// 60 баллов: посещение, вход, профиль, отзыв
	for _, action := range []string{"event_attendance", "daily_login", "profile_update", "event_feedback"} {
		require.Equal(t, http.StatusOK, c.asUser(1, http.MethodPost, "/api/actions/"+action, "").Code, action)
	}

	rec = c.asUser(1, http.MethodPost, "/api/thank-you", `{"receiverId":2,"message":"thanks for the intro"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"pointsAwarded":20`)

	rec = c.asUser(1, http.MethodPost, "/api/thank-you", `{"receiverId":2,"message":"again"}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	var body struct {
		Data struct {
			CurrentBalance int64 `json:"currentBalance"`
			Rank           int   `json:"rank"`
			Discrepancy    int64 `json:"discrepancy"`
		} `json:"data"`
	}
	rec = c.asUser(1, http.MethodGet, "/api/points/summary", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, int64(80), body.Data.CurrentBalance)
	assert.Equal(t, 1, body.Data.Rank)
	assert.Zero(t, body.Data.Discrepancy)

	rec = c.asUser(2, http.MethodGet, "/api/points/summary", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, int64(50), body.Data.CurrentBalance)
	assert.Equal(t, 2, body.Data.Rank)

	rec = c.asUser(2, http.MethodGet, "/api/points/credibility", "")
	assert.JSONEq(t, `{"success":true,"data":{"credible":true,"threshold":50}}`, rec.Body.String())

	for _, id := range []int64{1, 2} {
		u, err := a.Store.GetUser(context.Background(), id)
		require.NoError(t, err)
		sum, err := a.Store.SumPoints(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, u.OrbitPoints, sum)
	}
}

func TestAdminRoutesRequireKey(t *testing.T) {
	a := newTestApp(t)
	c := client{t: t, h: a.Handler()}

	assert.Equal(t, http.StatusUnauthorized, c.do(http.MethodPost, "/api/admin/decay/run", "", nil).Code)
	assert.Equal(t, http.StatusForbidden,
		c.do(http.MethodPost, "/api/admin/decay/run", "", map[string]string{admin.HeaderAdminKey: "wrong"}).Code)
	assert.Equal(t, http.StatusOK, c.asAdmin(http.MethodPost, "/api/admin/decay/run", "").Code)
}

func TestCacheEvictionEndpoint(t *testing.T) {
	a := newTestApp(t)
	c := client{t: t, h: a.Handler()}
	require.Equal(t, http.StatusOK, c.asAdmin(http.MethodPut, "/api/admin/members/1", `{"name":"Ann"}`).Code)
	require.Equal(t, http.StatusOK, c.asUser(1, http.MethodGet, "/api/rewards/config", "").Code)

	rec := c.asAdmin(http.MethodDelete, "/api/admin/cache/users/1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"evicted":true`)
}

func TestHealthAndMetrics(t *testing.T) {
	a := newTestApp(t)
	c := client{t: t, h: a.Handler()}

	rec := c.do(http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	// счётчики появляются после первого начисления
	require.Equal(t, http.StatusOK, c.asAdmin(http.MethodPut, "/api/admin/members/1", `{"name":"Ann"}`).Code)
	require.Equal(t, http.StatusOK, c.asUser(1, http.MethodPost, "/api/actions/daily_login", "").Code)

	rec = c.do(http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "orbit_award_outcomes_total")

	assert.Equal(t, http.StatusNotFound, c.do(http.MethodGet, "/nope", "", nil).Code)
}

func TestMigrationsSeedMatchesDefaults(t *testing.T) {
	seed := migration003RewardConfig
	for _, cfg := range ledger.DefaultRewardConfigs() {
		assert.Contains(t, seed, "'"+cfg.ActionType+"'", cfg.ActionType)
	}
	for i, m := range Migrations {
		assert.Equal(t, i+1, m.Version)
	}
}

func TestNewDecayBuildsOnlyDecay(t *testing.T) {
	a, err := NewDecay(context.Background(), testConfig(t))
	require.NoError(t, err)
	t.Cleanup(a.Close)

	mem, ok := a.Store.(*ledger.MemoryStore)
	require.True(t, ok)
	old := time.Now().UTC().AddDate(0, -3, 0)
	mem.PutUser(ledger.User{ID: 1, OrbitPoints: 100, CreatedAt: old})
	mem.AppendRaw(ledger.PointTransaction{
		ID: "old", UserID: 1, Points: 100, ActionType: ledger.ActionEventAttendance,
		Category: ledger.CategoryActivity, CreatedAt: old,
	})

	report, err := a.Decay.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Candidates)
	assert.Equal(t, 1, report.Decayed)
	assert.Equal(t, int64(5), report.PointsRemoved)
}
