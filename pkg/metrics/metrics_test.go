package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var testCounter = promauto.NewCounter(prometheus.CounterOpts{
	Name: "catalog_metrics_test_total",
	Help: "Counter registered by the metrics package tests",
})

func TestRegistry(t *testing.T) {
	if Registry != prometheus.DefaultRegisterer {
		t.Error("Registry should be the default Prometheus registerer")
	}
	if Gatherer != prometheus.DefaultGatherer {
		t.Error("Gatherer should be the default Prometheus gatherer")
	}
}

func TestCatalogFamilies(t *testing.T) {
	testCounter.Inc()

	names, err := CatalogFamilies()
	if err != nil {
		t.Fatalf("CatalogFamilies failed: %v", err)
	}

	found := false
	for _, name := range names {
		if !strings.HasPrefix(name, Prefix) {
			t.Errorf("family %q lacks the %q prefix", name, Prefix)
		}
		if name == "catalog_metrics_test_total" {
			found = true
		}
	}
	if !found {
		t.Errorf("test counter not gathered, got %v", names)
	}
}

func TestHandler(t *testing.T) {
	testCounter.Inc()

	srv := httptest.NewServer(Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if !strings.Contains(string(body), "catalog_metrics_test_total") {
		t.Error("exposition should contain the test counter")
	}
}
