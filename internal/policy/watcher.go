package policy

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"permgate/internal/bus"
	"permgate/internal/metrics"
	"permgate/internal/permission"
)

const defaultDebounce = 200 * time.Millisecond

// Watcher reloads a policy file into an enforcer whenever the file changes.
// A file that fails to load or validate is logged and the enforcer keeps its
// current matrix.
type Watcher struct {
	path     string
	enforcer *permission.Enforcer
	events   *bus.EventBus
	logger   *slog.Logger
	debounce time.Duration

	mu      sync.Mutex
	lastErr error
}

// NewWatcher creates a watcher for path. events may be nil.
func NewWatcher(path string, enforcer *permission.Enforcer, events *bus.EventBus, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		path:     filepath.Clean(path),
		enforcer: enforcer,
		events:   events,
		logger:   logger,
		debounce: defaultDebounce,
	}
}

// Run watches until ctx is done. The parent directory is watched rather than
// the file so that editors replacing the file by rename are seen.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("policy watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("policy watcher: watch %s: %w", filepath.Dir(w.path), err)
	}
	w.logger.Info("watching policy file", "path", w.path)

	var (
		timer   *time.Timer
		pending <-chan time.Time
	)
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			// Editors emit bursts of events per save.
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			pending = timer.C
		case <-pending:
			pending = nil
			w.Reload()
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("policy watcher error", "error", err)
		}
	}
}

// Reload reads the policy file once and applies it.
func (w *Watcher) Reload() error {
	p, err := LoadPolicy(w.path, w.logger)

	w.mu.Lock()
	w.lastErr = err
	w.mu.Unlock()

	if err != nil {
		w.logger.Error("policy reload failed, keeping current permissions", "path", w.path, "error", err)
		w.emit(bus.EventPolicyReloadFailed, map[string]any{"path": w.path, "error": err.Error()})
		return err
	}

	w.enforcer.UpdatePermissions(p.Matrix)
	if p.IsolationSet && p.Isolation != w.enforcer.Isolation() {
		if err := w.enforcer.SetIsolation(p.Isolation); err != nil {
			return err
		}
	}
	metrics.PolicyReloads.Inc()
	w.logger.Info("policy reloaded", "path", w.path, "score", p.Validation.SecurityScore)
	w.emit(bus.EventPolicyReloaded, map[string]any{"path": w.path, "score": p.Validation.SecurityScore})
	return nil
}

// LastError returns the error of the latest reload, nil after a success.
func (w *Watcher) LastError() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastErr
}

func (w *Watcher) emit(eventType string, payload map[string]any) {
	if w.events == nil {
		return
	}
	w.events.Emit(bus.Event{
		Type:      eventType,
		Source:    "policy",
		Payload:   payload,
		Timestamp: time.Now(),
	})
}
