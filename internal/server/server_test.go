package server

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/bciworks/epochlab/internal/epoch"
	"github.com/bciworks/epochlab/internal/features"
	"github.com/bciworks/epochlab/internal/storage/sqlite"
	"github.com/bciworks/epochlab/pkg/config"
)

// newTestController stores one analysis run and returns a controller wired to
// it plus the stored run ID.
func newTestController(t *testing.T) (*Controller, string) {
	t.Helper()

	store, err := sqlite.New(filepath.Join(t.TempDir(), "results.db"), nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	params, err := features.ParamsFromConfig(config.Default())
	if err != nil {
		t.Fatal(err)
	}

	epochs := make([]epoch.Epoch, 0, 2)
	for i, label := range []string{"left", "right"} {
		samples := make(map[string][]float64)
		for _, ch := range params.EEGChannels {
			s := make([]float64, 1000)
			for j := range s {
				ti := float64(j) / params.SampleRate
				s[j] = math.Sin(2*math.Pi*10*ti) + 0.4*math.Sin(2*math.Pi*5*ti) + 0.3*math.Sin(2*math.Pi*20*ti)
			}
			samples[ch] = s
		}
		epochs = append(epochs, epoch.Epoch{Index: i, Label: label, Samples: samples})
	}

	table, err := features.NewAggregator(params, nil).Aggregate(epochs)
	if err != nil {
		t.Fatal(err)
	}
	stats, err := table.ClassStats([]string{"left", "right"})
	if err != nil {
		t.Fatal(err)
	}
	id, err := store.SaveRun(context.Background(), "session01.csv", table, stats)
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	c := NewController(context.Background(), &wg, store, "127.0.0.1:0", nil)
	return c, id
}

func doGet(t *testing.T, c *Controller, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	c.server.Handler.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	c, _ := newTestController(t)

	rec := doGet(t, c, "/api/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != "ok" {
		t.Errorf("status field = %q", body["status"])
	}
}

func TestListRuns(t *testing.T) {
	c, id := newTestController(t)

	rec := doGet(t, c, "/api/runs")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}

	var runs []sqlite.RunInfo
	if err := json.NewDecoder(rec.Body).Decode(&runs); err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].ID != id {
		t.Errorf("runs = %+v", runs)
	}
	if runs[0].Epochs != 2 {
		t.Errorf("epochs = %d, want 2", runs[0].Epochs)
	}
}

func TestFeatures(t *testing.T) {
	c, id := newTestController(t)

	rec := doGet(t, c, "/api/runs/"+id+"/features")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var values []sqlite.FeatureValue
	if err := json.NewDecoder(rec.Body).Decode(&values); err != nil {
		t.Fatal(err)
	}
	if len(values) == 0 {
		t.Fatal("expected feature values")
	}
	seen := false
	for _, fv := range values {
		if fv.Column == "C3_7-12hz" {
			seen = true
			break
		}
	}
	if !seen {
		t.Error("alpha-band power column missing from response")
	}
}

func TestStats(t *testing.T) {
	c, id := newTestController(t)

	rec := doGet(t, c, "/api/runs/"+id+"/stats")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var values []sqlite.StatValue
	if err := json.NewDecoder(rec.Body).Decode(&values); err != nil {
		t.Fatal(err)
	}
	// 3 channels x 4 bands x 2 classes.
	if len(values) != 24 {
		t.Errorf("expected 24 stats, got %d", len(values))
	}
}

func TestFeaturesWithPropagatedRatios(t *testing.T) {
	store, err := sqlite.New(filepath.Join(t.TempDir(), "results.db"), nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	params, err := features.ParamsFromConfig(config.Default())
	if err != nil {
		t.Fatal(err)
	}
	// Force every ratio denominator under the near-zero threshold so the
	// stored run carries ±Inf ratio cells and flagged rows.
	params.Policy = features.RatioPropagate
	params.DenomEpsilon = 1

	samples := make(map[string][]float64)
	for _, ch := range params.EEGChannels {
		s := make([]float64, 1000)
		for j := range s {
			s[j] = math.Sin(2 * math.Pi * 10 * float64(j) / params.SampleRate)
		}
		samples[ch] = s
	}
	table, err := features.NewAggregator(params, nil).Aggregate([]epoch.Epoch{
		{Index: 0, Label: "left", Samples: samples},
	})
	if err != nil {
		t.Fatal(err)
	}
	id, err := store.SaveRun(context.Background(), "session01.csv", table, nil)
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	c := NewController(context.Background(), &wg, store, "127.0.0.1:0", nil)

	rec := doGet(t, c, "/api/runs/"+id+"/features")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Body.Len() == 0 {
		t.Fatal("response body is empty")
	}

	var values []map[string]interface{}
	if err := json.NewDecoder(rec.Body).Decode(&values); err != nil {
		t.Fatal(err)
	}
	sawInf := false
	for _, v := range values {
		if v["flagged"] != true {
			t.Errorf("cell %v should be flagged", v["column"])
		}
		if s, ok := v["value"].(string); ok {
			if s != "+Inf" && s != "-Inf" {
				t.Errorf("non-finite value rendered as %q", s)
			}
			sawInf = true
		}
	}
	if !sawInf {
		t.Error("expected at least one infinite ratio cell in the response")
	}
}

func TestUnknownRun(t *testing.T) {
	c, _ := newTestController(t)

	for _, path := range []string{
		"/api/runs/does-not-exist/features",
		"/api/runs/does-not-exist/stats",
	} {
		rec := doGet(t, c, path)
		if rec.Code != http.StatusNotFound {
			t.Errorf("GET %s status = %d, want %d", path, rec.Code, http.StatusNotFound)
		}
		var body map[string]string
		if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
			t.Fatal(err)
		}
		if body["error"] == "" {
			t.Errorf("GET %s should include an error message", path)
		}
	}
}

func TestMethodNotAllowed(t *testing.T) {
	c, _ := newTestController(t)

	req := httptest.NewRequest(http.MethodPost, "/api/runs", nil)
	rec := httptest.NewRecorder()
	c.server.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusMethodNotAllowed)
	}
}
