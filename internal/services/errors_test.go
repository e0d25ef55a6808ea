package services_test

import (
	"errors"
	"strings"
	"testing"

	"stitcher/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrAssembly, "assembly", "mux", "failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrAssembly) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"assembly", "mux", "failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "fetch", "segment", "timeout", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
}

func TestFatalOnlyForConfiguration(t *testing.T) {
	cfgErr := services.Wrap(services.ErrConfiguration, "plan", "range", "start > end", nil)
	if !services.Fatal(cfgErr) {
		t.Fatal("expected configuration error to be fatal")
	}
	fetchErr := services.Wrap(services.ErrSegmentFetch, "fetch", "segment", "exhausted", nil)
	if services.Fatal(fetchErr) {
		t.Fatal("segment fetch error must not abort the run")
	}
}

func TestRetryable(t *testing.T) {
	if !services.Retryable(services.Wrap(services.ErrTransient, "fetch", "get", "503", nil)) {
		t.Fatal("expected transient error to be retryable")
	}
	if services.Retryable(services.Wrap(services.ErrSegmentFetch, "fetch", "get", "403", nil)) {
		t.Fatal("fatal fetch error must not be retryable")
	}
}
