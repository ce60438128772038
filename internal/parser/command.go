// Package parser runs the external blueprint parser. The parser reads one
// blueprint string on stdin and prints its tree as JSON on stdout. A non-zero
// exit status means the string is malformed; stderr carries the reason.
package parser

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"coipond/internal/domain"
	models "coipond/internal/domain/models/blueprint"
	bpService "coipond/internal/domain/services/blueprint"
)

// Command implements the Parser interface by executing a program per call
type Command struct {
	path    string
	args    []string
	timeout time.Duration
	logger  *slog.Logger
}

// NewCommand creates a parser around an executable. commandLine is split on
// whitespace: the first field is the program, the rest are arguments.
func NewCommand(commandLine string, timeout time.Duration, logger *slog.Logger) (*Command, error) {
	fields := strings.Fields(commandLine)
	if len(fields) == 0 {
		return nil, fmt.Errorf("empty parser command")
	}
	return &Command{
		path:    fields[0],
		args:    fields[1:],
		timeout: timeout,
		logger:  logger,
	}, nil
}

// Parse runs the parser on text
func (c *Command) Parse(ctx context.Context, text string) (models.Tree, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, c.path, c.args...)
	cmd.Stdin = strings.NewReader(text)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second

	start := time.Now()
	err := cmd.Run()
	duration := time.Since(start)

	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: parser: %w", domain.ErrExternalService, ctx.Err())
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			reason := strings.TrimSpace(stderr.String())
			c.logger.Debug("blueprint rejected by parser",
				"exit_code", exitErr.ExitCode(),
				"reason", reason,
			)
			if reason == "" {
				return nil, bpService.ErrParse
			}
			return nil, fmt.Errorf("%w: %s", bpService.ErrParse, reason)
		}
		return nil, fmt.Errorf("%w: run parser: %w", domain.ErrExternalService, err)
	}

	c.logger.Debug("blueprint parsed",
		"bytes", len(text),
		"duration_ms", duration.Milliseconds(),
	)

	return Decode(stdout.Bytes())
}
