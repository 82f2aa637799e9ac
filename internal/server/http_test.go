package server

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scottholdren/idle-clicker-game/internal/catalog"
	"github.com/scottholdren/idle-clicker-game/internal/config"
	"github.com/scottholdren/idle-clicker-game/internal/game"
	"github.com/scottholdren/idle-clicker-game/internal/num"
	"github.com/scottholdren/idle-clicker-game/internal/save"
)

func newTestServer(t *testing.T, repo *save.FileRepo) (http.Handler, *game.Engine) {
	t.Helper()
	clock := game.NewFakeClock(time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC))
	engine := game.NewEngine(catalog.Default(), config.Default(), clock)
	h, err := NewHandler(Options{
		Engine:          engine,
		Repo:            repo,
		Logger:          slog.New(slog.NewTextHandler(io.Discard, nil)),
		BotTickInterval: 5 * time.Millisecond,
	})
	require.NoError(t, err)
	return h, engine
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	h, _ := newTestServer(t, nil)
	rec := doJSON(t, h, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["ok"])
}

func TestStateAndClick(t *testing.T) {
	h, _ := newTestServer(t, nil)

	rec := doJSON(t, h, http.MethodPost, "/api/click", map[string]any{"count": 10})
	require.Equal(t, http.StatusOK, rec.Code)
	var clicked map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &clicked))
	assert.Equal(t, "10", clicked["earned"])

	rec = doJSON(t, h, http.MethodGet, "/api/state", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var st stateView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.True(t, st.Currency.Equals(num.FromInt(10)))
	assert.Equal(t, int64(10), st.TotalClicks)
	assert.Equal(t, "10", st.CurrencyDisplay)
	assert.Len(t, st.Generators, len(catalog.Default().Generators))
}

func TestPurchaseGenerator(t *testing.T) {
	h, engine := newTestServer(t, nil)
	engine.State.Currency = num.FromInt(15)
	engine.State.TotalEarned = num.FromInt(15)

	rec := doJSON(t, h, http.MethodPost, "/api/purchase/generator", map[string]any{"id": "auto_clicker"})
	require.Equal(t, http.StatusOK, rec.Code)
	g, _ := engine.State.Generator("auto_clicker")
	assert.Equal(t, 1, g.Owned)
	assert.True(t, engine.State.Currency.IsZero())

	// Failure taxonomy: unknown id, locked entity, insufficient funds.
	rec = doJSON(t, h, http.MethodPost, "/api/purchase/generator", map[string]any{"id": "nope"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/api/purchase/generator", map[string]any{"id": "click_farm"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/api/purchase/generator", map[string]any{"id": "auto_clicker"})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestPurchaseGeneratorMax(t *testing.T) {
	h, engine := newTestServer(t, nil)
	engine.State.Currency = num.FromInt(100)

	rec := doJSON(t, h, http.MethodPost, "/api/purchase/generator", map[string]any{"id": "auto_clicker", "max": true})
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	// 15 + 18 + 20 + 23 = 76 buys four units; the fifth would cost 27.
	assert.Equal(t, float64(4), body["bought"])
	g, _ := engine.State.Generator("auto_clicker")
	assert.Equal(t, 4, g.Owned)
}

func TestPurchaseUpgradeAndPrestige(t *testing.T) {
	h, engine := newTestServer(t, nil)

	rec := doJSON(t, h, http.MethodPost, "/api/prestige", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	engine.State.Currency = num.FromInt(100000)
	engine.State.TotalEarned = num.FromInt(100000)
	engine.RefreshUnlocks()

	rec = doJSON(t, h, http.MethodPost, "/api/purchase/upgrade", map[string]any{"id": "ergonomic_desk"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/api/prestige", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, engine.State.StrategyPoints.IsPositive())
	assert.True(t, engine.State.TotalEarned.IsZero())
}

func TestOfflineClaim(t *testing.T) {
	h, engine := newTestServer(t, nil)
	g, _ := engine.State.Generator("script_bot")
	g.Owned = 1 // 1/s

	rec := doJSON(t, h, http.MethodPost, "/api/offline-claim", map[string]any{"offline_seconds": -5})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/api/offline-claim", map[string]any{"offline_seconds": 7200})
	require.Equal(t, http.StatusOK, rec.Code)

	var res game.OfflineResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.False(t, res.CappedByTime)
	assert.True(t, res.CappedByEfficiency)
	// 2h at 1/s and 50% offline rate.
	assert.True(t, res.IdleEarnings.Equals(num.FromInt(3600)))
	assert.True(t, engine.State.Currency.Equals(num.FromInt(3600)))
}

func TestSaveEndpoints(t *testing.T) {
	repo, err := save.NewFileRepo(t.TempDir())
	require.NoError(t, err)
	h, engine := newTestServer(t, repo)
	engine.State.Currency = num.FromInt(42)
	engine.State.TotalEarned = num.FromInt(42)

	rec := doJSON(t, h, http.MethodPost, "/api/save", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/api/save", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var snap map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, "42", snap["currency"])

	// Without a repo, persisting is rejected but export still works.
	h2, _ := newTestServer(t, nil)
	rec = doJSON(t, h2, http.MethodPost, "/api/save", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	rec = doJSON(t, h2, http.MethodGet, "/api/save", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestBotLifecycleOverHTTP(t *testing.T) {
	h, _ := newTestServer(t, nil)

	rec := doJSON(t, h, http.MethodPost, "/api/bot/start", map[string]any{"mode": "active", "speed": "warp"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/api/bot/start", map[string]any{
		"mode":             "active",
		"speed":            "simulated",
		"simulation_speed": 100,
		"max_duration_ms":  50,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		rec = doJSON(t, h, http.MethodGet, "/api/bot/status", nil)
		var st map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
		if st["state"] == "completed" {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	rec = doJSON(t, h, http.MethodGet, "/api/bot/status", nil)
	var st map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.Equal(t, "completed", st["state"])

	rec = doJSON(t, h, http.MethodGet, "/api/bot/report", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")

	rec = doJSON(t, h, http.MethodGet, "/api/bot/report?format=text", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Bot Run Report")

	// A finished run does not wedge the endpoint; starting again works.
	rec = doJSON(t, h, http.MethodPost, "/api/bot/start", map[string]any{
		"mode":             "active",
		"speed":            "simulated",
		"simulation_speed": 100,
		"max_duration_ms":  50,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var restarted map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &restarted))
	assert.Contains(t, []any{"running", "completed"}, restarted["state"])
}

func TestRoutesListing(t *testing.T) {
	h, _ := newTestServer(t, nil)
	rec := doJSON(t, h, http.MethodGet, "/api/routes", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var routes []RouteDoc
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &routes))
	assert.NotEmpty(t, routes)

	seen := map[string]bool{}
	for _, rt := range routes {
		seen[rt.Method+" "+rt.Pattern] = true
	}
	assert.True(t, seen["POST /api/click"])
	assert.True(t, seen["GET /api/bot/status"])
}
