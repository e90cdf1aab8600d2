//go:build integration
// +build integration

package http_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/samirrijal/platekit/internal/adapters/http"
	"github.com/samirrijal/platekit/internal/adapters/postgres"
	"github.com/samirrijal/platekit/internal/adapters/source"
	"github.com/samirrijal/platekit/internal/core/domain"
	"github.com/samirrijal/platekit/internal/core/usecases"
	"github.com/samirrijal/platekit/internal/pkg/config"
)

// setupTestDB connects to the test database. The schema from migrations/
// must already be applied.
func setupTestDB(t *testing.T) *postgres.DB {
	cfg, err := config.Load("platekit-test")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	pool, err := pgxpool.New(context.Background(), cfg.Database.DSN())
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		t.Fatalf("ping db: %v", err)
	}

	return &postgres.DB{Pool: pool}
}

// setupTestDeps wires the filter service to files and the real database.
func setupTestDeps(t *testing.T, db *postgres.DB) (*http.Dependencies, *postgres.CollectionRepo) {
	repo := postgres.NewCollectionRepo(db)
	router := source.NewRouter(nil, repo)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return &http.Dependencies{
		Filter:      usecases.NewFilterService(router, router, nil, t.TempDir(), logger),
		Collections: repo,
		DB:          db,
		Logger:      logger,
	}, repo
}

// seedCollection stores sampleCollection under name.
func seedCollection(t *testing.T, repo *postgres.CollectionRepo, name string) {
	t.Helper()
	fc := sampleCollection()
	fc.Name = name
	if err := repo.Write(context.Background(), fc, postgres.Scheme+name); err != nil {
		t.Fatalf("seed collection: %v", err)
	}
	t.Cleanup(func() { _ = repo.Delete(context.Background(), postgres.Scheme+name) })
}

// TestFilter_Integration_DatabaseRoundTrip filters a stored collection into
// a new stored collection.
func TestFilter_Integration_DatabaseRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db := setupTestDB(t)
	defer db.Pool.Close()

	deps, repo := setupTestDeps(t, db)
	suffix := time.Now().Format("20060102150405")
	in, out := "test_in_"+suffix, "test_out_"+suffix
	seedCollection(t, repo, in)
	t.Cleanup(func() { _ = repo.Delete(context.Background(), postgres.Scheme+out) })

	app := setupApp(deps)
	body := `{"inputFile": "pg:` + in + `", "outputFile": "pg:` + out + `", "filterSequence": [1], "rPlateID": [801]}`
	resp, err := app.Test(postJSON("/v1/filter", body), -1)
	if err != nil {
		t.Fatalf("test request: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, readBody(t, resp.Body))
	}

	stored, err := repo.Load(context.Background(), postgres.Scheme+out)
	if err != nil {
		t.Fatalf("load output: %v", err)
	}
	if stored.Len() != 2 || stored.Features[0].ID != "B" {
		t.Fatalf("expected B and C stored, got %+v", stored.Features)
	}
	if got := stored.Features[0].ValidTime.Begin; got != domain.DistantPast {
		t.Errorf("expected distant past to survive storage, got %v", got)
	}
}

// TestListCollections_Integration lists seeded collections.
func TestListCollections_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db := setupTestDB(t)
	defer db.Pool.Close()

	deps, repo := setupTestDeps(t, db)
	name := "test_list_" + time.Now().Format("20060102150405")
	seedCollection(t, repo, name)

	app := setupApp(deps)
	resp, err := app.Test(httptest.NewRequest("GET", "/v1/collections?limit=500", nil), -1)
	if err != nil {
		t.Fatalf("test request: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result struct {
		Data []domain.CollectionInfo `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	for _, c := range result.Data {
		if c.Name == name {
			if c.Features != 3 {
				t.Errorf("expected 3 features in %s, got %d", name, c.Features)
			}
			return
		}
	}
	t.Errorf("collection %s not listed", name)
}

// TestReady_Integration checks readiness with a live database.
func TestReady_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db := setupTestDB(t)
	defer db.Pool.Close()

	deps, _ := setupTestDeps(t, db)
	resp, err := setupApp(deps).Test(httptest.NewRequest("GET", "/v1/ready", nil), -1)
	if err != nil {
		t.Fatalf("test request: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}
