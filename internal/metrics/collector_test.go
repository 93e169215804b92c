package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func TestCounter(t *testing.T) {
	c := NewCollector()
	ctr := c.Counter("test_total", "test counter", "")
	ctr.Inc()
	ctr.Add(4)
	if ctr.Value() != 5 {
		t.Fatalf("expected 5, got %d", ctr.Value())
	}
}

func TestCounter_SameKeyReturnsSame(t *testing.T) {
	c := NewCollector()
	a := c.Counter("dup_total", "help", "")
	b := c.Counter("dup_total", "help", "")
	a.Inc()
	if b.Value() != 1 {
		t.Fatal("expected identical counter instance for same key")
	}
}

func TestGauge(t *testing.T) {
	c := NewCollector()
	g := c.Gauge("test_gauge", "test", "")
	g.Set(10)
	g.Inc()
	g.Dec()
	g.Dec()
	if g.Value() != 9 {
		t.Fatalf("expected 9, got %d", g.Value())
	}
}

func TestHistogram_Buckets(t *testing.T) {
	c := NewCollector()
	h := c.Histogram("test_seconds", "test", "", []float64{1, 5, 10})
	h.Observe(0.5)
	h.Observe(3)
	h.Observe(7)
	h.Observe(100)
	if h.Count() != 4 {
		t.Fatalf("expected 4 observations, got %d", h.Count())
	}
}

func TestHandler_Exposition(t *testing.T) {
	c := NewCollector()
	c.Counter("demo_total", "a demo counter", "").Add(3)
	c.Gauge("demo_gauge", "a demo gauge", "").Set(2)
	c.Histogram("demo_seconds", "a demo histogram", "", []float64{1, 10}).Observe(0.5)

	rec := httptest.NewRecorder()
	c.Handler()(rec, httptest.NewRequest("GET", "/metrics", nil))
	body := rec.Body.String()

	for _, want := range []string{
		"deskpilot_uptime_seconds",
		"# TYPE demo_total counter",
		"demo_total 3",
		"demo_gauge 2",
		`demo_seconds_bucket{le="1"} 1`,
		"demo_seconds_count 1",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("exposition missing %q:\n%s", want, body)
		}
	}
}

func TestHandler_LabeledCounter(t *testing.T) {
	c := NewCollector()
	c.Counter("outcome_total", "by outcome", `outcome="ok"`).Inc()
	c.Counter("outcome_total", "by outcome", `outcome="error"`).Add(2)

	rec := httptest.NewRecorder()
	c.Handler()(rec, httptest.NewRequest("GET", "/metrics", nil))
	body := rec.Body.String()

	if !strings.Contains(body, `outcome_total{outcome="ok"} 1`) {
		t.Fatalf("missing ok sample:\n%s", body)
	}
	if !strings.Contains(body, `outcome_total{outcome="error"} 2`) {
		t.Fatalf("missing error sample:\n%s", body)
	}
}
