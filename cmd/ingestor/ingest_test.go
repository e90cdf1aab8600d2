package main

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/samirrijal/platekit/internal/core/domain"
)

const ridge = `{"type":"FeatureCollection","features":[
 {"type":"Feature","geometry":{"type":"Point","coordinates":[150,-20]},"properties":{"featureId":"R1","reconstructionPlateId":901}},
 {"type":"Feature","geometry":{"type":"Point","coordinates":[151,-21]},"properties":{"featureId":"R2","reconstructionPlateId":901}}
]}`

// --- Mock CollectionWriter ---

type memWriter struct {
	mu      sync.Mutex
	targets map[string]int
	err     error
}

func (m *memWriter) Write(_ context.Context, fc *domain.FeatureCollection, target string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if m.targets == nil {
		m.targets = make(map[string]int)
	}
	m.targets[target] = fc.Len()
	return nil
}

func (m *memWriter) names() []string {
	var out []string
	for k := range m.targets {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func zipOf(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(body)); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func newIngestor(w *memWriter) *Ingestor {
	return &Ingestor{
		Writer:      w,
		Client:      http.DefaultClient,
		Concurrency: 2,
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestIngestLocalAndRemote(t *testing.T) {
	dir := t.TempDir()
	local := filepath.Join(dir, "ridges.geojson")
	if err := os.WriteFile(local, []byte(ridge), 0o644); err != nil {
		t.Fatal(err)
	}

	archive := zipOf(t, map[string]string{
		"data/coastlines.geojson": ridge,
		"data/isochrons.json":     ridge,
		"README.txt":              "not a collection",
	})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ridges.geojson":
			_, _ = w.Write([]byte(ridge))
		case "/bundle.zip":
			_, _ = w.Write(archive)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	w := &memWriter{}
	stats := newIngestor(w).Run(context.Background(), []Entry{
		{Name: "local", Location: local},
		{Name: "remote", Location: srv.URL + "/ridges.geojson"},
		{Name: "bundle", Location: srv.URL + "/bundle.zip"},
		{Name: "gone", Location: srv.URL + "/missing.geojson"},
	})

	if stats.Collections != 4 || stats.Features != 8 || stats.Failed != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
	want := []string{"pg:bundle_coastlines", "pg:bundle_isochrons", "pg:local", "pg:remote"}
	got := w.names()
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("target %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func TestIngestFailures(t *testing.T) {
	dir := t.TempDir()
	garbage := filepath.Join(dir, "garbage.geojson")
	if err := os.WriteFile(garbage, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	empty := filepath.Join(dir, "empty.zip")
	if err := os.WriteFile(empty, zipOf(t, map[string]string{"notes.txt": "x"}), 0o644); err != nil {
		t.Fatal(err)
	}

	w := &memWriter{}
	stats := newIngestor(w).Run(context.Background(), []Entry{
		{Name: "garbage", Location: garbage},
		{Name: "empty", Location: empty},
		{Name: "missing", Location: filepath.Join(dir, "absent.geojson")},
		{Name: "", Location: garbage},
	})
	if stats.Failed != 4 || stats.Collections != 0 {
		t.Errorf("unexpected stats: %+v", stats)
	}

	ok := filepath.Join(dir, "ok.geojson")
	if err := os.WriteFile(ok, []byte(ridge), 0o644); err != nil {
		t.Fatal(err)
	}
	w.err = errors.New("db down")
	stats = newIngestor(w).Run(context.Background(), []Entry{{Name: "ok", Location: ok}})
	if stats.Failed != 1 {
		t.Errorf("write failure not counted: %+v", stats)
	}
}

func TestManifestSelect(t *testing.T) {
	m := Manifest{Collections: []Entry{{Name: "a"}, {Name: "b"}, {Name: "c"}}}
	if got := m.Select(nil); len(got) != 3 {
		t.Errorf("expected all entries, got %v", got)
	}
	got := m.Select([]string{"c", "a"})
	if len(got) != 2 || got[0].Name != "a" || got[1].Name != "c" {
		t.Errorf("unexpected selection %v", got)
	}
}
