package main

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path"
	"strings"
	"sync"

	"github.com/samirrijal/platekit/internal/adapters/geojson"
	"github.com/samirrijal/platekit/internal/adapters/postgres"
	"github.com/samirrijal/platekit/internal/core/domain"
	"github.com/samirrijal/platekit/internal/core/ports"
)

// Manifest lists the collections to import.
type Manifest struct {
	Source      string  `json:"source"`
	Collections []Entry `json:"collections"`
}

// Entry is one import. Location is a local path or an http(s) URL naming
// a GeoJSON file or a zip archive of GeoJSON files.
type Entry struct {
	Name     string `json:"name"`
	Location string `json:"location"`
}

// Select keeps the entries whose name is in names; no names keeps all.
func (m Manifest) Select(names []string) []Entry {
	if len(names) == 0 {
		return m.Collections
	}
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}
	var out []Entry
	for _, e := range m.Collections {
		if want[e.Name] {
			out = append(out, e)
		}
	}
	return out
}

// Stats summarises an ingestion.
type Stats struct {
	Collections int
	Features    int
	Failed      int
}

// Ingestor fetches, decodes and stores manifest entries.
type Ingestor struct {
	Writer      ports.CollectionWriter
	Client      *http.Client
	Concurrency int
	Logger      *slog.Logger
}

// Run imports entries with bounded concurrency. A failed entry is logged
// and counted; the others still run.
func (in *Ingestor) Run(ctx context.Context, entries []Entry) Stats {
	limit := in.Concurrency
	if limit < 1 {
		limit = 1
	}

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		stats Stats
	)
	sem := make(chan struct{}, limit)

	for _, entry := range entries {
		wg.Add(1)
		go func(e Entry) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			colls, feats, err := in.ingest(ctx, e)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				stats.Failed++
				in.Logger.Error("ingest failed", "collection", e.Name, "location", e.Location, "error", err)
				return
			}
			stats.Collections += colls
			stats.Features += feats
		}(entry)
	}

	wg.Wait()
	return stats
}

func (in *Ingestor) ingest(ctx context.Context, e Entry) (int, int, error) {
	if e.Name == "" || e.Location == "" {
		return 0, 0, fmt.Errorf("entry needs a name and a location")
	}
	data, err := in.fetch(ctx, e.Location)
	if err != nil {
		return 0, 0, err
	}

	files := map[string][]byte{e.Name: data}
	if strings.HasSuffix(strings.ToLower(e.Location), ".zip") {
		if files, err = unzipCollections(e.Name, data); err != nil {
			return 0, 0, err
		}
	}

	var colls, feats int
	for name, raw := range files {
		fc, err := geojson.Decode(raw)
		if err != nil {
			return colls, feats, fmt.Errorf("decode %s: %w", name, err)
		}
		fc.Name = name
		if err := in.Writer.Write(ctx, fc, postgres.Scheme+name); err != nil {
			return colls, feats, fmt.Errorf("store %s: %w", name, err)
		}
		in.Logger.Info("collection stored", "collection", name, "features", fc.Len())
		colls++
		feats += fc.Len()
	}
	return colls, feats, nil
}

func (in *Ingestor) fetch(ctx context.Context, location string) ([]byte, error) {
	if !strings.HasPrefix(location, "http://") && !strings.HasPrefix(location, "https://") {
		data, err := os.ReadFile(location)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrRead, err)
		}
		return data, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, err
	}
	resp, err := in.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d for %s", resp.StatusCode, location)
	}
	return io.ReadAll(resp.Body)
}

// unzipCollections returns every GeoJSON file of an archive, named
// <prefix>_<file stem>.
func unzipCollections(prefix string, data []byte) (map[string][]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open zip: %w", err)
	}

	out := make(map[string][]byte)
	for _, f := range zr.File {
		if f.FileInfo().IsDir() || !geojson.Supports(f.Name) {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", f.Name, err)
		}
		raw, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", f.Name, err)
		}
		base := path.Base(f.Name)
		out[prefix+"_"+strings.TrimSuffix(base, path.Ext(base))] = raw
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no GeoJSON files in archive", domain.ErrFormat)
	}
	return out, nil
}
