package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hamed0406/servicemonitor/internal/domain"
)

func sampleMessage() domain.Message {
	return domain.Message{
		Timestamp: time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC),
		Service:   "testService",
		Probe:     domain.KindPing,
		Severity:  domain.Error,
		Header:    "Unreachable host",
		Body:      "1 packets transmitted, 0 received",
	}
}

func TestSlack_OK(t *testing.T) {
	var got string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]string
		_ = json.NewDecoder(r.Body).Decode(&payload)
		got = payload["text"]
		w.WriteHeader(200)
	}))
	defer ts.Close()

	s, err := NewSlack(SlackConfig{Webhook: ts.URL})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Send(context.Background(), sampleMessage()); err != nil {
		t.Fatalf("send err: %v", err)
	}
	want := "*[Monitoring/Error/ping] testService Unreachable host*\n[1970-01-01T00:00:00Z] Error ping/testService: Unreachable host"
	if !strings.HasPrefix(got, want) {
		t.Fatalf("payload not as expected:\nwant prefix=%q\ngot        =%q", want, got)
	}
}

func TestSlack_Non2xx(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(500)
	}))
	defer ts.Close()

	s, _ := NewSlack(SlackConfig{Webhook: ts.URL})
	if err := s.Send(context.Background(), sampleMessage()); err == nil {
		t.Fatalf("expected error on non-2xx")
	}
}

func TestSlack_RejectsNonASCIIBeforeSending(t *testing.T) {
	called := false
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer ts.Close()

	s, _ := NewSlack(SlackConfig{Webhook: ts.URL})
	m := sampleMessage()
	m.Body = "temp 21°C"
	err := s.Send(context.Background(), m)
	if !errors.Is(err, ErrNonASCIIBody) {
		t.Fatalf("want ErrNonASCIIBody, got %v", err)
	}
	if called {
		t.Fatalf("webhook must not be called for a rejected body")
	}
}

func TestNewSlack_RequiresWebhook(t *testing.T) {
	if _, err := NewSlack(SlackConfig{}); err == nil {
		t.Fatalf("expected error for empty webhook")
	}
}
