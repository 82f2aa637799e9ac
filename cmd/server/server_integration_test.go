package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/scottholdren/idle-clicker-game/internal/catalog"
	"github.com/scottholdren/idle-clicker-game/internal/config"
	"github.com/scottholdren/idle-clicker-game/internal/game"
	"github.com/scottholdren/idle-clicker-game/internal/save"
	"github.com/scottholdren/idle-clicker-game/internal/server"
	"github.com/scottholdren/idle-clicker-game/internal/telemetry"
)

type testApp struct {
	t       *testing.T
	handler http.Handler
	engine  *game.Engine
	dataDir string
}

// newTestApp boots the app the way main does: config from YAML, a file
// save repo, restore-or-fresh, then the HTTP handler.
func newTestApp(t *testing.T, dataDir string) *testApp {
	t.Helper()

	cfgPath := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(cfgPath, []byte("addr: \":0\"\ndata_dir: "+dataDir+"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	bal := cfg.EffectiveBalance()
	cat := catalog.Default()
	clock := game.NewFakeClock(time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC))

	repo, err := save.NewFileRepo(cfg.DataDir)
	if err != nil {
		t.Fatalf("open repo: %v", err)
	}
	engine := game.NewEngine(cat, bal, clock)
	state, err := repo.Load(cat, bal, clock.Now())
	if err == nil {
		engine.State = state
	} else if !errors.Is(err, save.ErrNoSave) && !errors.Is(err, save.ErrInvalidSave) {
		t.Fatalf("load save: %v", err)
	}

	handler, err := server.NewHandler(server.Options{
		Engine: engine,
		Repo:   repo,
		Events: telemetry.NewMemoryRepository(),
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	return &testApp{t: t, handler: handler, engine: engine, dataDir: cfg.DataDir}
}

func (app *testApp) json(method, path string, body any) *httptest.ResponseRecorder {
	app.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			app.t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	app.handler.ServeHTTP(rec, req)
	return rec
}

func TestServer_PlaySessionSurvivesRestart(t *testing.T) {
	dataDir := t.TempDir()
	app := newTestApp(t, dataDir)

	// Earn 15 by clicking, buy the first generator, persist.
	res := app.json(http.MethodPost, "/api/click", map[string]any{"count": 15})
	if res.Code != http.StatusOK {
		t.Fatalf("click expected 200, got %d body=%s", res.Code, res.Body.String())
	}
	res = app.json(http.MethodPost, "/api/purchase/generator", map[string]any{"id": "auto_clicker"})
	if res.Code != http.StatusOK {
		t.Fatalf("purchase expected 200, got %d body=%s", res.Code, res.Body.String())
	}
	res = app.json(http.MethodPost, "/api/save", nil)
	if res.Code != http.StatusOK {
		t.Fatalf("save expected 200, got %d body=%s", res.Code, res.Body.String())
	}

	// A second boot from the same data dir restores the session.
	restarted := newTestApp(t, dataDir)
	res = restarted.json(http.MethodGet, "/api/state", nil)
	if res.Code != http.StatusOK {
		t.Fatalf("state expected 200, got %d", res.Code)
	}
	var st struct {
		TotalClicks int64 `json:"total_clicks"`
		Generators  []struct {
			ID    string `json:"id"`
			Owned int    `json:"owned"`
		} `json:"generators"`
	}
	if err := json.Unmarshal(res.Body.Bytes(), &st); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if st.TotalClicks != 15 {
		t.Fatalf("expected 15 clicks after restart, got %d", st.TotalClicks)
	}
	owned := 0
	for _, g := range st.Generators {
		if g.ID == "auto_clicker" {
			owned = g.Owned
		}
	}
	if owned != 1 {
		t.Fatalf("expected 1 auto_clicker after restart, got %d", owned)
	}
}

func TestServer_CorruptSaveFallsBackToFresh(t *testing.T) {
	dataDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dataDir, "save.json"), []byte(`{"broken": true}`), 0o644); err != nil {
		t.Fatalf("write corrupt save: %v", err)
	}

	app := newTestApp(t, dataDir)
	res := app.json(http.MethodGet, "/api/state", nil)
	if res.Code != http.StatusOK {
		t.Fatalf("state expected 200, got %d", res.Code)
	}
	var st struct {
		Currency string `json:"currency"`
	}
	if err := json.Unmarshal(res.Body.Bytes(), &st); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if st.Currency != "0" {
		t.Fatalf("expected fresh state, got currency %q", st.Currency)
	}
}
