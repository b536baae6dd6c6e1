// Package artifacts writes per-run debug material to disk: one file per
// raw capture plus a parse-failure log. Everything here is best effort;
// a full disk must never fail a collection run, so write errors are
// logged and swallowed.
package artifacts

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fpcollect/fpcollect/internal/model"
)

const (
	dirLogs = "Debug Logs"
	dirXML  = "Debug XML"
	dirTemp = "Temp Files"
)

type Archiver struct {
	root   string
	logger *slog.Logger

	mu      sync.Mutex
	runDirs map[uuid.UUID]string
}

func NewArchiver(root string, logger *slog.Logger) *Archiver {
	return &Archiver{
		root:    root,
		logger:  logger.With("component", "artifacts"),
		runDirs: make(map[uuid.UUID]string),
	}
}

// SaveCapture writes one raw capture under the run's debug tree. XML
// captures land in the XML directory, everything else in the log
// directory.
func (a *Archiver) SaveCapture(runID uuid.UUID, c model.RawCapture) {
	dir := dirLogs
	ext := ".txt"
	if strings.Contains(c.Command, "display xml") {
		dir = dirXML
		ext = ".xml"
	}
	name := fmt.Sprintf("%s_%s%s", sanitize(c.Node), sanitize(c.Command), ext)
	a.write(runID, dir, name, []byte(c.Output))
}

// SaveParseError appends one line to the run's parse failure log.
func (a *Archiver) SaveParseError(runID uuid.UUID, node, section, reason string) {
	base, err := a.runDir(runID)
	if err != nil {
		a.logger.Warn("debug dir unavailable", "error", err)
		return
	}
	path := filepath.Join(base, dirTemp, "parse_errors.log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		a.logger.Warn("parse error log unavailable", "error", err)
		return
	}
	defer f.Close()
	line := fmt.Sprintf("%s node=%s section=%s reason=%s\n",
		time.Now().Format(time.RFC3339), node, section, reason)
	if _, err := f.WriteString(line); err != nil {
		a.logger.Warn("parse error log write failed", "error", err)
	}
}

func (a *Archiver) write(runID uuid.UUID, dir, name string, data []byte) {
	base, err := a.runDir(runID)
	if err != nil {
		a.logger.Warn("debug dir unavailable", "error", err)
		return
	}
	path := filepath.Join(base, dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		a.logger.Warn("debug write failed", "path", path, "error", err)
	}
}

// runDir lazily creates the per-run directory tree.
func (a *Archiver) runDir(runID uuid.UUID) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if dir, ok := a.runDirs[runID]; ok {
		return dir, nil
	}
	base := filepath.Join(a.root, fmt.Sprintf("run_%s_%s",
		time.Now().Format("20060102_150405"), shortID(runID)))
	for _, sub := range []string{dirLogs, dirXML, dirTemp} {
		if err := os.MkdirAll(filepath.Join(base, sub), 0o755); err != nil {
			return "", err
		}
	}
	a.runDirs[runID] = base
	return base, nil
}

func shortID(id uuid.UUID) string {
	s := id.String()
	if len(s) > 8 {
		return s[:8]
	}
	return s
}

var replacer = strings.NewReplacer(
	" ", "_", "|", "", "/", "-", ":", "-", "\\", "-", "\"", "", "*", "", "?", "",
)

func sanitize(s string) string {
	out := replacer.Replace(strings.TrimSpace(s))
	for strings.Contains(out, "__") {
		out = strings.ReplaceAll(out, "__", "_")
	}
	return strings.Trim(out, "_")
}
