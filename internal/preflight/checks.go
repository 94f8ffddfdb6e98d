package preflight

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"montage/internal/config"
	"montage/internal/deps"
)

const gib = 1 << 30

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckFreeSpace verifies that the filesystem holding path has at least
// minGiB available to unprivileged users. minGiB <= 0 disables the check.
func CheckFreeSpace(name, path string, minGiB float64) Result {
	if minGiB <= 0 {
		return Result{Name: name, Passed: true, Detail: "check disabled"}
	}
	avail, err := FreeBytes(path)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: statfs: %v)", path, err)}
	}
	free := float64(avail) / gib
	detail := fmt.Sprintf("%.1f GiB free (need %.1f GiB)", free, minGiB)
	return Result{Name: name, Passed: free >= minGiB, Detail: detail}
}

// CheckFreeBytes verifies that the filesystem holding path can take need
// more bytes.
func CheckFreeBytes(name, path string, need int64) Result {
	if need <= 0 {
		return Result{Name: name, Passed: true, Detail: "nothing to write"}
	}
	avail, err := FreeBytes(path)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: statfs: %v)", path, err)}
	}
	detail := fmt.Sprintf("%.2f GiB free (need %.2f GiB)", float64(avail)/gib, float64(need)/gib)
	return Result{Name: name, Passed: avail >= uint64(need), Detail: detail}
}

// FreeBytes returns the bytes available to unprivileged users on the
// filesystem holding path.
func FreeBytes(path string) (uint64, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return 0, err
	}
	return uint64(stat.Bavail) * uint64(stat.Bsize), nil
}

// CheckSystemDeps evaluates the external tools exports rely on. The default
// font is optional: text overlays fail without it but media-only projects
// still export.
func CheckSystemDeps(_ context.Context, cfg *config.Config) []deps.Status {
	requirements := []deps.Requirement{
		{
			Name:        "FFmpeg",
			Command:     cfg.FFmpeg.FFmpegBinary,
			Description: "Required for encoding and video decoding",
		},
	}
	statuses := deps.CheckBinaries(requirements)
	statuses = append(statuses, deps.ResolveFFprobe(cfg.FFmpeg.FFmpegBinary, cfg.FFmpeg.FFprobeBinary))
	statuses = append(statuses, deps.CheckFile(
		"Default font",
		defaultFontPath(cfg),
		fmt.Sprintf("Family %q for text overlays", cfg.Fonts.DefaultFamily),
		true,
	))
	return statuses
}

func defaultFontPath(cfg *config.Config) string {
	file, _ := cfg.FontFile(cfg.Fonts.DefaultFamily)
	return file
}
