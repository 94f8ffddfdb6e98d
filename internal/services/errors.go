package services

import (
	"errors"
	"fmt"
	"strings"

	"montage/internal/registry"
)

var (
	ErrExternalTool  = errors.New("external tool error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrTimeout       = errors.New("timeout")
	ErrTransient     = errors.New("transient failure")
	ErrCancelled     = errors.New("cancelled")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later status classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// MissingSourceAssetError reports a clip whose source bytes could not be
// resolved. The export fails immediately.
type MissingSourceAssetError struct {
	ClipID    string
	SourceRef string
	Err       error
}

func (e *MissingSourceAssetError) Error() string {
	msg := fmt.Sprintf("source asset for clip %q unavailable", e.ClipID)
	if e.SourceRef != "" {
		msg += fmt.Sprintf(" (ref %s)", e.SourceRef)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *MissingSourceAssetError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrNotFound}
	}
	return []error{ErrNotFound, e.Err}
}

// MissingFontAssetError reports a font family that could not be staged.
// Callers may retry once the font becomes available.
type MissingFontAssetError struct {
	Family string
	Err    error
}

func (e *MissingFontAssetError) Error() string {
	msg := fmt.Sprintf("font family %q unavailable", e.Family)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *MissingFontAssetError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrNotFound}
	}
	return []error{ErrNotFound, e.Err}
}

// BackendExecutionError carries the diagnostic output of a failed render.
type BackendExecutionError struct {
	Backend string
	Details string
	Err     error
}

func (e *BackendExecutionError) Error() string {
	var b strings.Builder
	b.WriteString("backend execution failed")
	if e.Backend != "" {
		b.WriteString(" (" + e.Backend + ")")
	}
	if e.Err != nil {
		b.WriteString(": " + e.Err.Error())
	}
	if details := strings.TrimSpace(e.Details); details != "" {
		b.WriteString(": " + details)
	}
	return b.String()
}

func (e *BackendExecutionError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrExternalTool}
	}
	return []error{ErrExternalTool, e.Err}
}

// FailureStatus maps an export error to the terminal status recorded for the
// job.
func FailureStatus(err error) registry.Status {
	switch {
	case errors.Is(err, ErrCancelled):
		return registry.StatusCancelled
	default:
		return registry.StatusFailed
	}
}

// Retryable reports whether the failure may succeed if the caller resubmits
// the same job after fixing its environment (for example installing a font).
func Retryable(err error) bool {
	var fontErr *MissingFontAssetError
	switch {
	case err == nil:
		return false
	case errors.As(err, &fontErr):
		return true
	case errors.Is(err, ErrTransient), errors.Is(err, ErrTimeout):
		return true
	default:
		return false
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
