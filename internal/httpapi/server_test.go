package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/servicemonitor/internal/domain"
	"github.com/hamed0406/servicemonitor/internal/repo"
	"github.com/hamed0406/servicemonitor/internal/repo/memory"
)

// ---- test helpers ----

type fakeStatus struct {
	snap   []domain.ProbeStatus
	cycles uint64
}

func (f *fakeStatus) Snapshot() []domain.ProbeStatus { return f.snap }
func (f *fakeStatus) Cycles() uint64 { return f.cycles }

type brokenJournal struct{}

func (brokenJournal) Record(context.Context, *repo.Entry) error { return errors.New("down") }
func (brokenJournal) Recent(context.Context, int) ([]repo.Entry, error) {
	return nil, errors.New("down")
}

func setup(t *testing.T, j repo.JournalStore, keys []string) *httptest.Server {
	t.Helper()
	last := &domain.Message{
		Timestamp: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		Service:   "gateway",
		Probe:     domain.KindPing,
		Severity:  domain.Error,
		Header:    "Unreachable host",
	}
	st := &fakeStatus{
		cycles: 7,
		snap: []domain.ProbeStatus{
			{Index: 0, Service: "gateway", Probe: domain.KindPing, LastResult: last, LastMessage: last, RepeatCounter: 2},
			{Index: 1, Service: "website", Probe: domain.KindHTTPS},
		},
	}
	srv := NewServer(zap.NewNop(), st, j)
	ts := httptest.NewServer(srv.Router(Options{APIKeys: keys}))
	t.Cleanup(ts.Close)
	return ts
}

func get(t *testing.T, url, key string) *http.Response {
	t.Helper()
	req, _ := http.NewRequest(http.MethodGet, url, nil)
	if key != "" {
		req.Header.Set("X-API-Key", key)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

// ---- tests ----

func TestHealthzIsOpen(t *testing.T) {
	ts := setup(t, memory.New(10), []string{"k1"})
	if resp := get(t, ts.URL+"/healthz", ""); resp.StatusCode != http.StatusOK {
		t.Fatalf("want 200, got %d", resp.StatusCode)
	}
}

func TestProbes(t *testing.T) {
	ts := setup(t, memory.New(10), []string{"k1"})

	if resp := get(t, ts.URL+"/api/probes", ""); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("want 401 without key, got %d", resp.StatusCode)
	}

	resp := get(t, ts.URL+"/api/probes", "k1")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("want 200, got %d", resp.StatusCode)
	}
	var body probesResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Cycles != 7 || len(body.Probes) != 2 {
		t.Fatalf("unexpected body: %+v", body)
	}
	p := body.Probes[0]
	if p.Service != "gateway" || p.RepeatCounter != 2 || p.LastMessage == nil || p.LastMessage.Severity != domain.Error {
		t.Fatalf("unexpected first probe: %+v", p)
	}
	if body.Probes[1].LastMessage != nil {
		t.Fatalf("second probe should have no retained message")
	}
}

func TestJournal(t *testing.T) {
	j := memory.New(10)
	for i := 0; i < 3; i++ {
		msg := domain.Message{Service: "gateway", Probe: domain.KindPing, Severity: domain.Error, Header: "Unreachable host"}
		_ = j.Record(context.Background(), repo.NewEntry(0, msg, "notify", nil))
	}
	ts := setup(t, j, nil)

	resp := get(t, ts.URL+"/api/journal?limit=2", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("want 200, got %d", resp.StatusCode)
	}
	var entries []repo.Entry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(entries) != 2 || entries[0].Outcome != repo.OutcomeSent {
		t.Fatalf("unexpected entries: %+v", entries)
	}

	for _, bad := range []string{"0", "-3", "abc"} {
		if resp := get(t, ts.URL+"/api/journal?limit="+bad, ""); resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("limit=%s: want 400, got %d", bad, resp.StatusCode)
		}
	}
}

func TestJournal_EmptyIsArray(t *testing.T) {
	ts := setup(t, memory.New(10), nil)
	resp := get(t, ts.URL+"/api/journal", "")
	var raw json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if string(raw) != "[]" {
		t.Fatalf("want [], got %s", raw)
	}
}

func TestJournal_StoreError(t *testing.T) {
	ts := setup(t, brokenJournal{}, nil)
	if resp := get(t, ts.URL+"/api/journal", ""); resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("want 500, got %d", resp.StatusCode)
	}
}
