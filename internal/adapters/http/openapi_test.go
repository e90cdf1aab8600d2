package http_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"

	handler "github.com/samirrijal/platekit/internal/adapters/http"
)

// findOpenAPISpec locates the openapi.yaml file by walking up from the test directory.
func findOpenAPISpec(t *testing.T) string {
	dir, _ := os.Getwd()

	for i := 0; i < 5; i++ {
		candidate := filepath.Join(dir, "api", "openapi.yaml")
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate
		}
		dir = filepath.Dir(dir)
	}

	t.Fatalf("could not find api/openapi.yaml")
	return ""
}

func loadOpenAPI(t *testing.T) *openapi3.T {
	t.Helper()
	data, err := os.ReadFile(findOpenAPISpec(t))
	if err != nil {
		t.Fatalf("failed to read openapi.yaml: %v", err)
	}
	loader := &openapi3.Loader{IsExternalRefsAllowed: false}
	doc, err := loader.LoadFromData(data)
	if err != nil {
		t.Fatalf("failed to parse OpenAPI document: %v", err)
	}
	return doc
}

// TestOpenAPIDocument validates the document and checks it covers the routes.
func TestOpenAPIDocument(t *testing.T) {
	doc := loadOpenAPI(t)

	if err := doc.Validate(context.Background()); err != nil {
		t.Fatalf("OpenAPI validation failed: %v", err)
	}

	expectedPaths := []string{
		"/v1/health",
		"/v1/ready",
		"/v1/filter",
		"/v1/filter/stages",
		"/v1/collections",
		"/v1/batches",
		"/v1/batches/{id}",
		"/v1/geo/distance",
		"/v1/geo/box",
		"/v1/geo/sample",
		"/v1/geo/normalize",
		"/v1/paleomag/precision",
		"/v1/geo/precision",
		"/graphql",
	}
	for _, path := range expectedPaths {
		if item := doc.Paths.Find(path); item == nil {
			t.Errorf("expected path %s not found", path)
		}
	}

	if op := doc.Paths.Find("/v1/geo/precision").Get; op == nil || !op.Deprecated {
		t.Error("legacy precision path must be marked deprecated")
	}

	expectedSchemas := []string{
		"APIError",
		"Pagination",
		"GeoPoint",
		"BoundingBox",
		"AgeWindow",
		"StageInfo",
		"StageReport",
		"Feature",
		"FeatureCollection",
		"FilterRequest",
		"FilterResult",
		"CollectionInfo",
		"FilterRunEvent",
		"BatchInput",
		"BatchStatus",
	}
	for _, schema := range expectedSchemas {
		if doc.Components.Schemas[schema] == nil {
			t.Errorf("expected schema %s not found", schema)
		}
	}

	t.Logf("OpenAPI document valid: %d paths, %d schemas", len(doc.Paths.Map()), len(doc.Components.Schemas))
}

// TestOpenAPIFilterParameters checks that every stage parameter is documented.
func TestOpenAPIFilterParameters(t *testing.T) {
	doc := loadOpenAPI(t)

	req := doc.Components.Schemas["FilterRequest"]
	if req == nil || req.Value == nil {
		t.Fatal("FilterRequest schema missing")
	}
	for _, s := range handlerStages() {
		if _, ok := req.Value.Properties[s]; !ok {
			t.Errorf("stage parameter %s not documented", s)
		}
	}
}

// TestOpenAPIInfo verifies document metadata.
func TestOpenAPIInfo(t *testing.T) {
	doc := loadOpenAPI(t)

	if doc.Info.Title != "Platekit API" {
		t.Errorf("expected title 'Platekit API', got %q", doc.Info.Title)
	}
	if doc.Info.Version != "1.0.0" {
		t.Errorf("expected version 1.0.0, got %q", doc.Info.Version)
	}
	if doc.Info.Description == "" {
		t.Error("expected non-empty description")
	}
	if len(doc.Servers) == 0 {
		t.Fatal("expected at least one server")
	}

	t.Logf("OpenAPI Info: %s v%s @ %s", doc.Info.Title, doc.Info.Version, doc.Servers[0].URL)
}

func TestDocsServeValidatedDocument(t *testing.T) {
	spec := findOpenAPISpec(t)
	app := setupApp(makeDeps(func(d *handler.Dependencies) { d.OpenAPIPath = spec }))

	resp, err := app.Test(httptest.NewRequest("GET", "/docs/openapi.json", nil), -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	var doc struct {
		OpenAPI string `json:"openapi"`
		Info    struct {
			Title string `json:"title"`
		} `json:"info"`
	}
	if err := json.Unmarshal(body, &doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if doc.OpenAPI != "3.0.3" || doc.Info.Title != "Platekit API" {
		t.Errorf("unexpected document header: %+v", doc)
	}

	resp, _ = app.Test(httptest.NewRequest("GET", "/docs/openapi.yaml", nil), -1)
	if resp.StatusCode != 200 {
		t.Errorf("yaml: expected 200, got %d", resp.StatusCode)
	}
}

func TestDocsMissingDocument(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "openapi.yaml")
	app := setupApp(makeDeps(func(d *handler.Dependencies) { d.OpenAPIPath = missing }))

	for _, path := range []string{"/docs/openapi.json", "/docs/openapi.yaml"} {
		resp, _ := app.Test(httptest.NewRequest("GET", path, nil), -1)
		if resp.StatusCode != 404 {
			t.Errorf("%s: expected 404, got %d", path, resp.StatusCode)
		}
	}
	resp, _ := app.Test(httptest.NewRequest("GET", "/docs", nil), -1)
	if resp.StatusCode != 200 {
		t.Errorf("/docs: expected 200, got %d", resp.StatusCode)
	}
}
