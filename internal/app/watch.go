package app

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"time"
)

// BinaryWatcher polls the running executable and reports when it has been rebuilt.
type BinaryWatcher struct {
	execPath string
	interval time.Duration

	mu          sync.Mutex
	baseline    time.Time
	stopCh      chan struct{}
	running     bool
	onNewBinary func()
	onTick      func()

	stat func(string) (os.FileInfo, error)
}

// NewBinaryWatcher watches the current executable.
func NewBinaryWatcher(interval time.Duration) (*BinaryWatcher, error) {
	execPath, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("locate executable: %w", err)
	}
	// go build replaces the file behind a symlink
	if resolved, err := filepath.EvalSymlinks(execPath); err == nil {
		execPath = resolved
	}
	return newBinaryWatcher(execPath, interval, os.Stat)
}

func newBinaryWatcher(path string, interval time.Duration, stat func(string) (os.FileInfo, error)) (*BinaryWatcher, error) {
	info, err := stat(path)
	if err != nil {
		return nil, err
	}
	return &BinaryWatcher{
		execPath: path,
		interval: interval,
		baseline: info.ModTime(),
		stat:     stat,
	}, nil
}

// OnNewBinary sets the callback run once, from the watch goroutine, when a newer binary
// appears. Watching stops after it fires.
func (w *BinaryWatcher) OnNewBinary(callback func()) {
	w.mu.Lock()
	w.onNewBinary = callback
	w.mu.Unlock()
}

// OnTick sets a callback run on every poll.
func (w *BinaryWatcher) OnTick(callback func()) {
	w.mu.Lock()
	w.onTick = callback
	w.mu.Unlock()
}

// Start begins polling. Calling Start while running does nothing.
func (w *BinaryWatcher) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return
	}
	w.running = true
	w.stopCh = make(chan struct{})
	go w.run(w.stopCh)
}

// Stop ends polling.
func (w *BinaryWatcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return
	}
	w.running = false
	close(w.stopCh)
}

func (w *BinaryWatcher) run(stop chan struct{}) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			w.mu.Lock()
			tick, fire := w.onTick, w.onNewBinary
			w.mu.Unlock()

			if tick != nil {
				tick()
			}
			if !w.Changed() {
				continue
			}
			w.mu.Lock()
			if w.stopCh == stop {
				w.running = false
			}
			w.mu.Unlock()
			if fire != nil {
				fire()
			}
			return
		}
	}
}

// Changed reports whether the binary is newer than the baseline.
func (w *BinaryWatcher) Changed() bool {
	info, err := w.stat(w.execPath)
	if err != nil {
		return false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return info.ModTime().After(w.baseline)
}

// ExecPath returns the watched file.
func (w *BinaryWatcher) ExecPath() string {
	return w.execPath
}

// Baseline returns the modification time changes are compared against.
func (w *BinaryWatcher) Baseline() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.baseline
}

// ResetBaseline accepts the current binary so it is not reported again.
func (w *BinaryWatcher) ResetBaseline() {
	info, err := w.stat(w.execPath)
	if err != nil {
		return
	}
	w.mu.Lock()
	w.baseline = info.ModTime()
	w.mu.Unlock()
}

// Restart replaces the process with the new binary, keeping arguments and environment.
// It does not return on success.
func (w *BinaryWatcher) Restart() error {
	return syscall.Exec(w.execPath, os.Args, os.Environ())
}
