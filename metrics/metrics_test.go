package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/wippyai/hostbridge/handle"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	if err != nil {
		t.Fatal(err)
	}
	return string(body)
}

func expectLines(t *testing.T, body string, lines ...string) {
	t.Helper()
	for _, l := range lines {
		if !strings.Contains(body, l+"\n") {
			t.Errorf("exposition missing %q", l)
		}
	}
}

func TestMetrics_HandleGauge(t *testing.T) {
	m := New(prometheus.NewRegistry())
	r := handle.NewRegistry()
	r.Subscribe(m)

	a, _ := r.Create(handle.CategoryTexture, 1)
	_, _ = r.Create(handle.CategoryTexture, 2)
	s, _ := r.Create(handle.CategorySocket, 3)
	_ = r.Remove(handle.CategoryTexture, a)
	_, _ = r.Take(handle.CategorySocket, s)

	expectLines(t, scrape(t, m),
		`hostbridge_handles_live{category="texture"} 1`,
		`hostbridge_handles_live{category="socket"} 0`,
		`hostbridge_handle_operations_total{category="texture",op="created"} 2`,
		`hostbridge_handle_operations_total{category="texture",op="removed"} 1`,
		`hostbridge_handle_operations_total{category="socket",op="taken"} 1`,
	)
}

func TestMetrics_Observers(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.ObserveFlush(3, 36)
	m.ObserveFlush(1, 12)

	m.ObserveCall("tick", nil)
	m.ObserveCall("tick", errors.New("trap"))
	m.ObserveCall("tick", nil)

	m.AllocFailures.Inc()

	expectLines(t, scrape(t, m),
		`hostbridge_input_records_total 4`,
		`hostbridge_input_flush_bytes_count 2`,
		`hostbridge_input_flush_bytes_sum 48`,
		`hostbridge_guest_calls_total{export="tick",status="ok"} 2`,
		`hostbridge_guest_calls_total{export="tick",status="error"} 1`,
		`hostbridge_alloc_failures_total 1`,
	)
}

func TestMetrics_SeparateRegistries(t *testing.T) {
	a := New(prometheus.NewRegistry())
	b := New(prometheus.NewRegistry())
	a.SocketsOpen.Inc()
	expectLines(t, scrape(t, b), `hostbridge_sockets_open 0`)
}
