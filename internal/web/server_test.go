package web

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/sweeney/cover-control/internal/cover"
	"github.com/sweeney/cover-control/internal/logic"
	"github.com/sweeney/cover-control/internal/metrics"
	"github.com/sweeney/cover-control/internal/status"
	"github.com/sweeney/cover-control/internal/topics"
)

func newTestServer(t *testing.T) (*httptest.Server, *status.Tracker, *metrics.Metrics) {
	t.Helper()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := status.Config{
		TransitTimeMs: 90000,
		Broker:        "tcp://192.168.1.200:1883",
		ClientID:      "cover-control-test",
		HTTPAddr:      ":8080",
	}
	tr := status.NewTracker(start, cfg)
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	srv := New(":0", tr, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), nil)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, tr, m
}

func getJSON(t *testing.T, url string) status.StatusJSON {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()

	var sj status.StatusJSON
	if err := json.NewDecoder(resp.Body).Decode(&sj); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	return sj
}

func TestJSONEndpoint(t *testing.T) {
	ts, tr, _ := newTestServer(t)
	tr.Observe(cover.Outcome{
		Event:      cover.NewEvent(topics.SwitchOpenState, []byte(topics.SwitchOn)),
		From:       logic.StateClose,
		To:         logic.StateOpening,
		TimerArmed: true,
	})
	tr.SetMQTTConnected(true)

	resp, err := http.Get(ts.URL + "/index.json")
	if err != nil {
		t.Fatalf("GET /index.json: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q, want application/json", ct)
	}

	var sj status.StatusJSON
	if err := json.NewDecoder(resp.Body).Decode(&sj); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	if sj.Status.State != "OPENING" {
		t.Errorf("State: got %q, want OPENING", sj.Status.State)
	}
	if !sj.Status.InTransit || !sj.Status.TimerArmed {
		t.Error("expected in transit with armed timer")
	}
	if !sj.Status.MQTT.Connected {
		t.Error("expected MQTT.Connected=true")
	}
	if sj.Status.MQTT.Broker != "tcp://192.168.1.200:1883" {
		t.Errorf("MQTT.Broker: got %q", sj.Status.MQTT.Broker)
	}
	if sj.Status.Counts.Transitions != 1 {
		t.Errorf("Counts.Transitions: got %d, want 1", sj.Status.Counts.Transitions)
	}
	if sj.Status.LastEvent == nil || sj.Status.LastEvent.Topic != topics.SwitchOpenState {
		t.Errorf("unexpected last event: %+v", sj.Status.LastEvent)
	}
}

func TestJSONInitialState(t *testing.T) {
	ts, _, _ := newTestServer(t)

	sj := getJSON(t, ts.URL+"/index.json")

	if sj.Status.State != "CLOSE" {
		t.Errorf("State: got %q, want CLOSE", sj.Status.State)
	}
	if sj.Status.TimerArmed || sj.Status.InTransit {
		t.Error("expected idle cover initially")
	}
}

func TestHTMLEndpointRoot(t *testing.T) {
	ts, tr, _ := newTestServer(t)
	tr.Observe(cover.Outcome{
		Event: cover.NewEvent(topics.CoverCommand, []byte(topics.CommandStop)),
		From:  logic.StateClosing,
		To:    logic.StateClosing,
	})

	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	ct := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type: got %q, want text/html", ct)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `class="closing">CLOSING`) {
		t.Errorf("expected rendered state in body")
	}
	if !strings.Contains(string(body), "cover/command = stop") {
		t.Errorf("expected last event in body")
	}
}

func TestHTMLEndpointIndexHTML(t *testing.T) {
	ts, _, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/index.html")
	if err != nil {
		t.Fatalf("GET /index.html: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
}

func TestHealthz(t *testing.T) {
	ts, _, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != 200 || string(body) != "ok" {
		t.Errorf("unexpected healthz response: %d %q", resp.StatusCode, body)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	ts, _, m := newTestServer(t)
	m.Observe(cover.Outcome{
		Event: cover.NewEvent(topics.SwitchOpenState, []byte(topics.SwitchOn)),
		From:  logic.StateClose,
		To:    logic.StateOpening,
		Timer: logic.TimerArm,
	})

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	for _, want := range []string{
		`cover_state{state="OPENING"} 1`,
		`cover_transitions_total{from="CLOSE",to="OPENING"} 1`,
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestMetricsDisabled(t *testing.T) {
	tr := status.NewTracker(time.Now(), status.Config{})
	ts := httptest.NewServer(New(":0", tr, nil, nil).Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != 404 {
		t.Errorf("status: got %d, want 404", resp.StatusCode)
	}
}

func TestNotFoundForUnknownPath(t *testing.T) {
	ts, _, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/nonexistent")
	if err != nil {
		t.Fatalf("GET /nonexistent: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 404 {
		t.Errorf("status: got %d, want 404", resp.StatusCode)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	ts, _, _ := newTestServer(t)

	resp, err := http.Post(ts.URL+"/index.json", "application/json", nil)
	if err != nil {
		t.Fatalf("POST /index.json: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("status: got %d, want 405", resp.StatusCode)
	}
}

func TestStateChangesReflectedInResponse(t *testing.T) {
	ts, tr, _ := newTestServer(t)

	if sj := getJSON(t, ts.URL+"/index.json"); sj.Status.Counts.Dispatched != 0 {
		t.Errorf("expected no dispatches initially, got %d", sj.Status.Counts.Dispatched)
	}

	tr.Observe(cover.Outcome{From: logic.StateClose, To: logic.StateOpening, TimerArmed: true})
	tr.Observe(cover.Outcome{Dropped: cover.DropStale})
	tr.Observe(cover.Outcome{From: logic.StateOpening, To: logic.StateOpen})

	sj := getJSON(t, ts.URL+"/index.json")
	if sj.Status.State != "OPEN" {
		t.Errorf("State: got %q, want OPEN", sj.Status.State)
	}
	if sj.Status.TimerArmed {
		t.Error("timer should be idle after expiry")
	}
	if sj.Status.Counts.Dispatched != 2 || sj.Status.Counts.Stale != 1 {
		t.Errorf("unexpected counts: %+v", sj.Status.Counts)
	}
}

// failingWriter accepts headers but fails every body write.
type failingWriter struct {
	*httptest.ResponseRecorder
}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("client went away")
}

func TestHTMLRenderErrorIsLogged(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	tr := status.NewTracker(time.Now(), status.Config{})
	srv := New(":0", tr, nil, zap.New(core).Sugar())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	srv.Handler().ServeHTTP(failingWriter{httptest.NewRecorder()}, req)

	entries := logs.FilterMessageSnippet("render status page").All()
	if len(entries) != 1 {
		t.Fatalf("expected one render warning, got %d", len(entries))
	}
	if !strings.Contains(entries[0].Message, "client went away") {
		t.Errorf("unexpected message: %q", entries[0].Message)
	}
}
