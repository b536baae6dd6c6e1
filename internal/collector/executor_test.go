package collector

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"
)

// fakeShell returns canned output per command and fails the rest.
type fakeShell struct {
	outputs map[string]string
	fail    map[string]error
	calls   []string
}

func (f *fakeShell) Run(ctx context.Context, cmd string, timeout time.Duration) (string, error) {
	f.calls = append(f.calls, cmd)
	if err, ok := f.fail[cmd]; ok {
		return "", err
	}
	return f.outputs[cmd], nil
}

func (f *fakeShell) Close() error { return nil }

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRunPartialFailure(t *testing.T) {
	specs := []Spec{
		{Name: "a", Command: "show a"},
		{Name: "b", Command: "show b"},
		{Name: "c", Command: "show c"},
	}
	sh := &fakeShell{
		outputs: map[string]string{
			"show a": "output a",
			"show c": "output c",
		},
		fail: map[string]error{
			"show b": errors.New("channel closed"),
		},
	}

	cs := NewExecutor(discard()).Run(context.Background(), "dut-1", sh, specs)

	if len(sh.calls) != 3 {
		t.Fatalf("ran %d commands, want all 3 despite the failure", len(sh.calls))
	}
	if _, ok := cs.Get("a"); !ok {
		t.Error("section a missing")
	}
	if _, ok := cs.Get("c"); !ok {
		t.Error("section c missing after earlier failure")
	}
	if _, ok := cs.Get("b"); ok {
		t.Error("failed section b present")
	}
	reason, failed := cs.FailureReason("b")
	if !failed {
		t.Fatal("section b not recorded as failed")
	}
	var cmdErr *CommandError
	if !errors.As(cs.Failures["b"], &cmdErr) {
		t.Errorf("failure = %T, want *CommandError", cs.Failures["b"])
	}
	if reason == "" {
		t.Error("empty failure reason")
	}
}

func TestRunEmptyOutputIsFailure(t *testing.T) {
	specs := []Spec{{Name: "a", Command: "show a"}}
	sh := &fakeShell{outputs: map[string]string{"show a": ""}}

	cs := NewExecutor(discard()).Run(context.Background(), "dut-1", sh, specs)
	if _, ok := cs.Get("a"); ok {
		t.Error("empty output stored as capture")
	}
	if _, failed := cs.FailureReason("a"); !failed {
		t.Error("empty output not recorded as failure")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	specs := []Spec{{Name: "a", Command: "show a"}}
	sh := &fakeShell{outputs: map[string]string{"show a": "output"}}

	cs := NewExecutor(discard()).Run(ctx, "dut-1", sh, specs)
	if len(sh.calls) != 0 {
		t.Errorf("issued %d commands on a canceled context", len(sh.calls))
	}
	if _, failed := cs.FailureReason("a"); !failed {
		t.Error("canceled section not recorded as failed")
	}
}

func TestDefaultSpecsCoverAllSections(t *testing.T) {
	specs := DefaultSpecs()
	want := []string{
		SectionUptime, SectionVersion, SectionRoutingEngine, SectionMemory,
		SectionStorageXML, SectionStorageText, SectionHardware, SectionOptics,
		SectionAlarms, SectionInterfaces, SectionLoopback,
	}
	names := make(map[string]bool, len(specs))
	for _, s := range specs {
		names[s.Name] = true
		if s.Command == "" {
			t.Errorf("section %s has no command", s.Name)
		}
	}
	for _, w := range want {
		if !names[w] {
			t.Errorf("section %s missing from default specs", w)
		}
	}
}
