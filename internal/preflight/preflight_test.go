package preflight

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"montage/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckFreeSpace(t *testing.T) {
	dir := t.TempDir()
	if r := CheckFreeSpace("disk", dir, 0); !r.Passed {
		t.Fatalf("disabled check should pass: %+v", r)
	}
	if r := CheckFreeSpace("disk", dir, 1e9); r.Passed {
		t.Fatalf("exabyte requirement should fail: %+v", r)
	}
	if r := CheckFreeSpace("disk", filepath.Join(dir, "missing"), 1); r.Passed {
		t.Fatalf("missing path should fail: %+v", r)
	}
}

func TestCheckFreeBytes(t *testing.T) {
	dir := t.TempDir()
	if r := CheckFreeBytes("raw", dir, 0); !r.Passed {
		t.Fatalf("empty requirement should pass: %+v", r)
	}
	if r := CheckFreeBytes("raw", dir, 1); !r.Passed {
		t.Fatalf("one byte should fit: %+v", r)
	}
	if r := CheckFreeBytes("raw", dir, 1<<62); r.Passed {
		t.Fatalf("exabyte requirement should fail: %+v", r)
	}
	if r := CheckFreeBytes("raw", filepath.Join(dir, "missing"), 1); r.Passed {
		t.Fatalf("missing path should fail: %+v", r)
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	if results := RunAll(context.Background(), nil); results != nil {
		t.Fatalf("expected nil results, got %v", results)
	}
}

func TestRunAll_ReportsMissingTools(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	cfg.FFmpeg.FFmpegBinary = "montage-missing-ffmpeg"
	cfg.FFmpeg.FFprobeBinary = "montage-missing-ffprobe"
	t.Setenv("PATH", "")

	results := RunAll(context.Background(), cfg)
	failed := Failed(results)
	if len(failed) != 2 {
		t.Fatalf("expected ffmpeg and ffprobe to fail, got %+v", failed)
	}
	for _, r := range results {
		if r.Name == "Default font" && (!r.Optional || r.Passed) {
			t.Fatalf("missing default font should be an optional failure: %+v", r)
		}
	}
}

func TestRunAll_PassesWithStubbedTools(t *testing.T) {
	t.Setenv("PATH", "")
	cfg := testsupport.NewConfig(t,
		testsupport.WithStubbedBinaries(),
		testsupport.WithFont("Inter", "Inter-Regular.ttf", []byte("font")),
	)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}

	results := RunAll(context.Background(), cfg)
	if failed := Failed(results); len(failed) != 0 {
		t.Fatalf("expected all checks to pass, got %+v", failed)
	}
	for _, r := range results {
		if !r.Passed {
			t.Fatalf("check %s did not pass: %s", r.Name, r.Detail)
		}
	}
}
