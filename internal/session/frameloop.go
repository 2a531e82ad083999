package session

import (
	"sync"
	"time"
)

// DefaultFrameInterval is roughly one display refresh.
const DefaultFrameInterval = 16 * time.Millisecond

// FrameLoop drives viewport transitions. It sleeps until the session starts an animation,
// then ticks the session once per interval and invokes the frame callback until the
// transition completes.
type FrameLoop struct {
	session  *Session
	interval time.Duration
	onFrame  func() // Called after every tick, from the loop goroutine

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
}

// NewFrameLoop attaches a frame loop to s. The loop is idle until s emits
// EventAnimationStarted.
func NewFrameLoop(s *Session, interval time.Duration) *FrameLoop {
	if interval <= 0 {
		interval = DefaultFrameInterval
	}
	f := &FrameLoop{
		session:  s,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
	s.On(EventAnimationStarted, func(interface{}) { f.Kick() })
	return f
}

// OnFrame sets the callback to invoke after each frame. The callback is called from a
// background goroutine - use appropriate synchronization if updating UI.
func (f *FrameLoop) OnFrame(callback func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onFrame = callback
}

// Kick starts the loop goroutine if it is not already running.
func (f *FrameLoop) Kick() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.running {
		return
	}
	select {
	case <-f.stopCh:
		return
	default:
	}
	f.running = true
	go f.run()
}

// Running reports whether the loop goroutine is active.
func (f *FrameLoop) Running() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running
}

// Stop ends the loop permanently.
func (f *FrameLoop) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	select {
	case <-f.stopCh:
	default:
		close(f.stopCh)
	}
}

func (f *FrameLoop) run() {
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		select {
		case <-f.stopCh:
			f.setRunning(false)
			return
		case <-ticker.C:
			more := f.session.Tick()

			f.mu.Lock()
			cb := f.onFrame
			if !more {
				// Kick is a no-op while running, so a transition started from a frame
				// listener is picked up here. Later Kicks wait on mu.
				more = f.session.Animating()
			}
			if !more {
				f.running = false
			}
			f.mu.Unlock()

			if cb != nil {
				cb()
			}
			if !more {
				return
			}
		}
	}
}

func (f *FrameLoop) setRunning(v bool) {
	f.mu.Lock()
	f.running = v
	f.mu.Unlock()
}
