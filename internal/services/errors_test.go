package services_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"montage/internal/registry"
	"montage/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalTool, "executing", "ffmpeg", "failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"executing", "ffmpeg", "failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestTypedErrorsUnwrapToMarkers(t *testing.T) {
	src := fmt.Errorf("stage: %w", &services.MissingSourceAssetError{ClipID: "c1", SourceRef: "a.mp4"})
	if !errors.Is(src, services.ErrNotFound) {
		t.Fatalf("expected not-found marker, got %v", src)
	}
	var srcErr *services.MissingSourceAssetError
	if !errors.As(src, &srcErr) || srcErr.ClipID != "c1" {
		t.Fatalf("expected clip id c1, got %v", srcErr)
	}

	font := &services.MissingFontAssetError{Family: "Inter", Err: errors.New("no file")}
	if !errors.Is(font, services.ErrNotFound) {
		t.Fatalf("expected not-found marker, got %v", font)
	}
	if !services.Retryable(font) {
		t.Fatal("expected missing font to be retryable")
	}

	backend := &services.BackendExecutionError{Backend: "cpu", Details: "Invalid argument"}
	if !errors.Is(backend, services.ErrExternalTool) {
		t.Fatalf("expected external tool marker, got %v", backend)
	}
	if !strings.Contains(backend.Error(), "Invalid argument") {
		t.Fatalf("expected details in message, got %q", backend.Error())
	}
	if services.Retryable(backend) {
		t.Fatal("expected backend failure to be terminal")
	}
}

func TestFailureStatusMapping(t *testing.T) {
	cancelled := services.Wrap(services.ErrCancelled, "executing", "render", "job discarded", nil)
	if status := services.FailureStatus(cancelled); status != registry.StatusCancelled {
		t.Fatalf("expected cancelled status, got %s", status)
	}

	backend := &services.BackendExecutionError{Details: "exit status 1"}
	if status := services.FailureStatus(backend); status != registry.StatusFailed {
		t.Fatalf("expected failed for backend error, got %s", status)
	}

	if status := services.FailureStatus(nil); status != registry.StatusFailed {
		t.Fatalf("expected failed for nil error, got %s", status)
	}
}
