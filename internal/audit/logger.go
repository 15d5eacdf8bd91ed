// Package audit writes an append-only JSONL trail of control-plane
// mutations: subdevice routing changes, clock and sample-rate updates,
// stream lifecycle and DAC synchronization attempts.
package audit

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sdr-control/sdrc/internal/dacsync"
	"github.com/sdr-control/sdrc/internal/periph"
)

// Entry is a single audit record.
type Entry struct {
	Timestamp time.Time      `json:"ts"`
	Action    string         `json:"action"`
	Mboard    int            `json:"mboard"`
	Params    map[string]any `json:"params,omitempty"`
	Outcome   string         `json:"outcome"`
	Code      string         `json:"code"`
}

// Logger appends entries to a JSONL file.
type Logger struct {
	mu   sync.Mutex
	file *os.File
}

// NewLogger creates the log directory if needed and opens the audit
// file for appending.
func NewLogger(logDir string) (*Logger, error) {
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, fmt.Errorf("create audit log directory: %w", err)
	}
	file, err := os.OpenFile(filepath.Join(logDir, "audit.jsonl"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	return &Logger{file: file}, nil
}

// LogAction records one mutation attempt and its outcome.
func (l *Logger) LogAction(action string, mboard int, params map[string]any, err error) {
	entry := Entry{
		Timestamp: time.Now().UTC(),
		Action:    action,
		Mboard:    mboard,
		Params:    params,
		Outcome:   outcomeOf(err),
		Code:      codeOf(err),
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return
	}
	data, merr := json.Marshal(entry)
	if merr != nil {
		fmt.Fprintf(os.Stderr, "audit: marshal entry: %v\n", merr)
		return
	}
	if _, werr := l.file.Write(append(data, '\n')); werr != nil {
		fmt.Fprintf(os.Stderr, "audit: write entry: %v\n", werr)
	}
}

// Close flushes and closes the audit file.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

func outcomeOf(err error) string {
	if err == nil {
		return "SUCCESS"
	}
	return "ERROR"
}

func codeOf(err error) string {
	var syncErr *dacsync.SyncError
	switch {
	case err == nil:
		return "SUCCESS"
	case errors.As(err, &syncErr):
		return "SYNC_FAILED"
	case errors.Is(err, periph.ErrConfiguration):
		return "INVALID_CONFIGURATION"
	case errors.Is(err, periph.ErrHardware):
		return "HARDWARE_ACCESS"
	default:
		return "ERROR"
	}
}
