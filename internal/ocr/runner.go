package ocr

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/joseph-ayodele/docintake/internal/common"
)

// Runner runs an external command. Tests substitute a fake.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct {
	Logger *slog.Logger
}

func (r ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}
	start := time.Now()

	cmd := exec.CommandContext(ctx, name, args...)
	var out, errb bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errb

	err := cmd.Run()
	attrs := []any{
		"req_id", common.RequestIDFromContext(ctx),
		"file_name", common.FileNameFromContext(ctx),
		"cmd", name,
		"args", strings.Join(args, " "),
		"elapsed_ms", time.Since(start).Milliseconds(),
	}
	switch {
	case IsMissingBinary(err):
		logger.Error("ocr.exec.missing_binary", append(attrs, "error", err)...)
	case err != nil:
		logger.Error("ocr.exec.failed", append(attrs, "error", err, "stderr", truncate(errb.String(), 8<<10))...)
	default:
		logger.Debug("ocr.exec.ok", append(attrs, "stdout_bytes", out.Len())...)
	}

	return out.Bytes(), errb.Bytes(), err
}

// IsMissingBinary reports whether err means the executable could not be found.
func IsMissingBinary(err error) bool {
	return errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}
