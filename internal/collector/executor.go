// Package collector runs the fixed diagnostic command set against an open
// session, one command at a time. A single command's failure is recorded
// and the remaining commands still run: downstream sees "no data for this
// section", never a dead device.
package collector

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/fpcollect/fpcollect/internal/model"
)

// Shell is the minimal remote-shell surface the executor needs. Satisfied
// by *session.Session and by test fakes.
type Shell interface {
	Run(ctx context.Context, cmd string, timeout time.Duration) (string, error)
	Close() error
}

// CommandError records one command's failure within an otherwise live
// session.
type CommandError struct {
	Node    string
	Command string
	Err     error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command %q failed on %s: %v", e.Command, e.Node, e.Err)
}

func (e *CommandError) Unwrap() error { return e.Err }

// CaptureSet holds per-command raw output plus per-command failures for
// one device.
type CaptureSet struct {
	Node     string
	Captures map[string]model.RawCapture
	Failures map[string]error
}

// Get returns the named capture if the command produced output.
func (cs CaptureSet) Get(name string) (model.RawCapture, bool) {
	c, ok := cs.Captures[name]
	return c, ok
}

// FailureReason returns the recorded failure for a section, if any.
func (cs CaptureSet) FailureReason(name string) (string, bool) {
	if err, ok := cs.Failures[name]; ok {
		return err.Error(), true
	}
	return "", false
}

// Executor issues command specs sequentially on one session.
type Executor struct {
	logger *slog.Logger
	now    func() time.Time // injectable for tests
}

// NewExecutor creates an executor.
func NewExecutor(logger *slog.Logger) *Executor {
	return &Executor{
		logger: logger.With("component", "executor"),
		now:    time.Now,
	}
}

// Run executes specs in order on sh. It never returns an error: failures
// are per-command and recorded in the CaptureSet. Context cancellation
// stops issuing further commands; already-captured sections are kept.
func (e *Executor) Run(ctx context.Context, node string, sh Shell, specs []Spec) CaptureSet {
	cs := CaptureSet{
		Node:     node,
		Captures: make(map[string]model.RawCapture, len(specs)),
		Failures: make(map[string]error),
	}

	for _, spec := range specs {
		if err := ctx.Err(); err != nil {
			cs.Failures[spec.Name] = &CommandError{Node: node, Command: spec.Command, Err: err}
			continue
		}

		out, err := sh.Run(ctx, spec.Command, spec.Timeout)
		if err != nil {
			e.logger.Warn("command failed",
				"node", node,
				"section", spec.Name,
				"error", err,
			)
			cs.Failures[spec.Name] = &CommandError{Node: node, Command: spec.Command, Err: err}
			continue
		}
		if out == "" {
			cs.Failures[spec.Name] = &CommandError{Node: node, Command: spec.Command, Err: fmt.Errorf("empty output")}
			continue
		}

		cs.Captures[spec.Name] = model.RawCapture{
			ID:         uuid.New(),
			Node:       node,
			Command:    spec.Command,
			Output:     out,
			CapturedAt: e.now(),
		}
		e.logger.Debug("command captured",
			"node", node,
			"section", spec.Name,
			"bytes", len(out),
		)
	}

	return cs
}
