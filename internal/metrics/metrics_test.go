package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_ObserveProvider(t *testing.T) {
	m := New()

	m.ObserveProvider("pexels", "ok", 100*time.Millisecond)
	m.ObserveProvider("pexels", "ok", 200*time.Millisecond)
	m.ObserveProvider("pexels", "unavailable", 0)

	if got := testutil.ToFloat64(m.ProviderRequests.WithLabelValues("pexels", "ok")); got != 2 {
		t.Errorf("Expected 2 ok requests, got %v", got)
	}
	if got := testutil.ToFloat64(m.ProviderRequests.WithLabelValues("pexels", "unavailable")); got != 1 {
		t.Errorf("Expected 1 unavailable request, got %v", got)
	}
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics

	m.ObserveProvider("unsplash", "ok", time.Second)
	m.IncDownloads("ok")
	m.AddStoredBytes("blog", 10)
	m.IncHTTPRequests("GET", "/health", "200")
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.IncDownloads("error")
	m.AddStoredBytes("showcase", 2048)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	for _, want := range []string{
		`imageserver_downloads_total{outcome="error"} 1`,
		`imageserver_stored_bytes_total{section="showcase"} 2048`,
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("Expected metrics output to contain %q", want)
		}
	}
}
