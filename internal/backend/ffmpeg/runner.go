package ffmpeg

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"montage/internal/backend"
	"montage/internal/services"
)

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string, onStdout, onStderr func(string)) error
}

// stderrLimit bounds the diagnostic tail kept for error reports.
const stderrLimit = 32

// Runner executes ffmpeg and reports progress.
type Runner struct {
	Binary string
	Exec   Executor
}

// NewRunner returns a runner for binary using the real process executor.
func NewRunner(binary string) *Runner {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	return &Runner{Binary: binary, Exec: commandExecutor{}}
}

// Run executes ffmpeg with args. total is the expected frame count used to
// scale progress. A failed process yields a BackendExecutionError carrying
// the tail of stderr; cancellation yields services.ErrCancelled.
func (r *Runner) Run(ctx context.Context, args []string, total int64, progress backend.ProgressFunc) error {
	report := backend.Monotonic(progress)
	tail := newTail(stderrLimit)
	parser := progressParser{total: total, report: report}

	err := r.Exec.Run(ctx, r.Binary, args, parser.line, tail.add)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return services.Wrap(services.ErrCancelled, "ffmpeg", "run", "export cancelled", ctxErr)
	}
	if err != nil {
		return &services.BackendExecutionError{Backend: "ffmpeg", Details: tail.String(), Err: err}
	}
	report(total, total)
	return nil
}

// progressParser consumes `-progress pipe:1` key=value lines.
type progressParser struct {
	total  int64
	report backend.ProgressFunc
}

func (p *progressParser) line(line string) {
	key, value, ok := strings.Cut(strings.TrimSpace(line), "=")
	if !ok {
		return
	}
	switch key {
	case "frame":
		if frame, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err == nil {
			p.report(frame, p.total)
		}
	case "progress":
		if strings.TrimSpace(value) == "end" {
			p.report(p.total, p.total)
		}
	}
}

type tail struct {
	mu    sync.Mutex
	limit int
	lines []string
}

func newTail(limit int) *tail { return &tail{limit: limit} }

func (t *tail) add(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lines = append(t.lines, line)
	if len(t.lines) > t.limit {
		t.lines = t.lines[len(t.lines)-t.limit:]
	}
}

func (t *tail) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return strings.Join(t.lines, "\n")
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string, onStdout, onStderr func(string)) error {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start command: %w", err)
	}

	var wg sync.WaitGroup
	var scanErr error
	var once sync.Once

	scan := func(r io.Reader, forward func(string)) {
		defer wg.Done()
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		for scanner.Scan() {
			if forward != nil {
				forward(scanner.Text())
			}
		}
		if err := scanner.Err(); err != nil && !errors.Is(err, io.ErrClosedPipe) {
			once.Do(func() {
				scanErr = err
			})
		}
	}

	wg.Add(2)
	go scan(stdout, onStdout)
	go scan(stderr, onStderr)

	wg.Wait()
	if scanErr != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return fmt.Errorf("scan output: %w", scanErr)
	}
	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("wait command: %w", err)
	}
	return nil
}
