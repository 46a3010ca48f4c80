package scheduler

import (
	"slices"
	"sync"
	"time"
)

// Timer cancels a callback registered on a Clock. Stop is idempotent.
type Timer interface {
	Stop()
}

// TimerFunc adapts a function to the Timer interface.
type TimerFunc func()

func (f TimerFunc) Stop() { f() }

// Clock is the dispatch primitive a Scheduler runs on. It decides where and
// when callbacks fire; the Scheduler only decides which actions they flush.
type Clock interface {
	Now() time.Time
	// AfterFunc runs fn once after d.
	AfterFunc(d time.Duration, fn func()) Timer
	// Every runs fn each time d elapses until the Timer is stopped.
	Every(d time.Duration, fn func()) Timer
	// Defer runs fn as soon as the current unit of work yields.
	Defer(fn func()) Timer
	// Frame runs fn on the next animation frame.
	Frame(fn func()) Timer
}

// minInterval guards repeating timers against non-positive periods.
const minInterval = time.Millisecond

// SystemClock dispatches on the Go runtime timers. Callbacks run on timer
// goroutines, so a Scheduler built on it serialises its own flushes but work
// on different schedulers may interleave.
type SystemClock struct {
	frames *frameLoop
}

// NewSystemClock returns a wall clock whose animation frames tick every
// frameInterval.
func NewSystemClock(frameInterval time.Duration) *SystemClock {
	if frameInterval <= 0 {
		frameInterval = time.Second / 60
	}
	return &SystemClock{frames: &frameLoop{interval: frameInterval, pending: map[uint64]func(){}}}
}

func (c *SystemClock) Now() time.Time { return time.Now() }

func (c *SystemClock) AfterFunc(d time.Duration, fn func()) Timer {
	t := time.AfterFunc(d, fn)
	return TimerFunc(func() { t.Stop() })
}

func (c *SystemClock) Every(d time.Duration, fn func()) Timer {
	if d < minInterval {
		d = minInterval
	}
	ticker := time.NewTicker(d)
	done := make(chan struct{})
	var once sync.Once

	go func() {
		for {
			select {
			case <-ticker.C:
				select {
				case <-done:
					return
				default:
				}
				fn()
			case <-done:
				return
			}
		}
	}()

	return TimerFunc(func() {
		once.Do(func() {
			ticker.Stop()
			close(done)
		})
	})
}

func (c *SystemClock) Defer(fn func()) Timer {
	return c.AfterFunc(0, fn)
}

func (c *SystemClock) Frame(fn func()) Timer {
	return c.frames.request(fn)
}

// frameLoop batches every callback requested before the next frame boundary
// into a single timer fire.
type frameLoop struct {
	interval time.Duration

	mu      sync.Mutex
	seq     uint64
	pending map[uint64]func()
	timer   *time.Timer
}

func (l *frameLoop) request(fn func()) Timer {
	l.mu.Lock()
	id := l.seq
	l.seq++
	l.pending[id] = fn
	if l.timer == nil {
		wait := l.interval - time.Duration(time.Now().UnixNano()%int64(l.interval))
		l.timer = time.AfterFunc(wait, l.fire)
	}
	l.mu.Unlock()

	return TimerFunc(func() {
		l.mu.Lock()
		delete(l.pending, id)
		l.mu.Unlock()
	})
}

func (l *frameLoop) fire() {
	l.mu.Lock()
	batch := l.pending
	l.pending = map[uint64]func(){}
	l.timer = nil
	l.mu.Unlock()

	order := make([]uint64, 0, len(batch))
	for id := range batch {
		order = append(order, id)
	}
	slices.Sort(order)
	for _, id := range order {
		batch[id]()
	}
}
