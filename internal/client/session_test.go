package client_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"stitcher/internal/client"
	"stitcher/internal/services"
)

func newSession(t *testing.T, opts client.Options) *client.Session {
	t.Helper()
	if opts.RetryDelay == 0 {
		opts.RetryDelay = time.Millisecond
	}
	s, err := client.New(opts)
	if err != nil {
		t.Fatalf("client.New: %v", err)
	}
	return s
}

func TestGetSegmentSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("segment-bytes"))
	}))
	defer srv.Close()

	s := newSession(t, client.Options{})
	resp, err := s.GetSegment(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("GetSegment: %v", err)
	}
	if !resp.OK() || string(resp.Body) != "segment-bytes" {
		t.Fatalf("unexpected response %d %q", resp.Status, resp.Body)
	}
}

func TestRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	s := newSession(t, client.Options{MaxRetries: 3})
	resp, err := s.GetSegment(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("GetSegment after retries: %v", err)
	}
	if string(resp.Body) != "ok" {
		t.Fatalf("body = %q", resp.Body)
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls.Load())
	}
}

func TestExhaustedRetriesAreTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	s := newSession(t, client.Options{MaxRetries: 2})
	_, err := s.GetSegment(context.Background(), srv.URL)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
}

func TestClientErrorsAreNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	s := newSession(t, client.Options{MaxRetries: 3})
	resp, err := s.GetSegment(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("GetSegment: %v", err)
	}
	if resp.Status != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", resp.Status)
	}
	if calls.Load() != 1 {
		t.Fatalf("4xx must not be retried, saw %d attempts", calls.Load())
	}
}

func TestPostFormEncodesBody(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body := make([]byte, r.ContentLength)
		r.Body.Read(body)
		got = r.Header.Get("Content-Type") + "|" + string(body)
		w.Write([]byte("{}"))
	}))
	defer srv.Close()

	s := newSession(t, client.Options{})
	form := map[string][]string{"titleId": {"42"}, "format": {"DASH"}}
	if _, err := s.PostForm(context.Background(), srv.URL, form); err != nil {
		t.Fatalf("PostForm: %v", err)
	}
	if got != "application/x-www-form-urlencoded|format=DASH&titleId=42" {
		t.Fatalf("unexpected request: %q", got)
	}
}

func TestInvalidProxyRejected(t *testing.T) {
	_, err := client.New(client.Options{Proxy: "::bad"})
	if err == nil {
		t.Fatal("expected error for invalid proxy")
	}
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration marker, got %v", err)
	}
}
