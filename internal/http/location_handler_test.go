package http

import (
	"encoding/json"
	"net/http"
	"testing"

	"city-spots/internal/domain"
)

func listLocations(t *testing.T, env *testEnv, path string) []domain.Location {
	t.Helper()
	w := env.do(t, http.MethodGet, path, nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("GET %s: expected 200, got %d: %s", path, w.Code, w.Body.String())
	}
	var resp struct {
		Locations []domain.Location `json:"locations"`
		Count     int               `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode locations response: %v", err)
	}
	if resp.Count != len(resp.Locations) {
		t.Fatalf("count mismatch: %d vs %d entries", resp.Count, len(resp.Locations))
	}
	return resp.Locations
}

func TestListLocations(t *testing.T) {
	env := newTestEnv(t)

	all := listLocations(t, env, "/locations")
	if len(all) != 3 {
		t.Fatalf("expected 3 locations, got %d", len(all))
	}

	parks := listLocations(t, env, "/locations?category=Park")
	if len(parks) != 2 {
		t.Fatalf("expected 2 parks, got %d", len(parks))
	}

	eastEnd := listLocations(t, env, "/locations?region=East+End")
	if len(eastEnd) != 2 {
		t.Fatalf("expected 2 east end locations, got %d", len(eastEnd))
	}

	both := listLocations(t, env, "/locations?category=Park&region=East+End")
	if len(both) != 1 || both[0].ID != "loc-3" {
		t.Fatalf("expected only loc-3, got %v", both)
	}

	none := listLocations(t, env, "/locations?category=Hiking")
	if len(none) != 0 {
		t.Fatalf("expected empty list, got %v", none)
	}
}

func TestGetLocation(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/locations/loc-2", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp struct {
		Location domain.Location `json:"location"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode location response: %v", err)
	}
	if resp.Location.Name != "Phipps Conservatory" {
		t.Fatalf("unexpected location: %+v", resp.Location)
	}

	w = env.do(t, http.MethodGet, "/locations/unknown", nil, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestListCategoriesAndRegions(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/categories", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var catResp struct {
		Categories []domain.Category `json:"categories"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &catResp); err != nil {
		t.Fatalf("decode categories: %v", err)
	}
	if len(catResp.Categories) != 2 {
		t.Fatalf("expected 2 categories, got %v", catResp.Categories)
	}

	w = env.do(t, http.MethodGet, "/regions", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var regResp struct {
		Regions []domain.Region `json:"regions"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &regResp); err != nil {
		t.Fatalf("decode regions: %v", err)
	}
	if len(regResp.Regions) != 2 {
		t.Fatalf("expected 2 regions, got %v", regResp.Regions)
	}
}
