package scheduler

import (
	"sync"
	"time"
)

// VirtualClock is a deterministic Clock. Nothing fires until the owner calls
// Advance, RunMicrotasks or NextFrame, and every callback runs on the calling
// goroutine.
type VirtualClock struct {
	mu     sync.Mutex
	now    time.Time
	seq    uint64
	timers []*virtualTimer
	micro  []*virtualTask
	frames []*virtualTask
}

type virtualTimer struct {
	when    time.Time
	period  time.Duration
	seq     uint64
	fn      func()
	stopped bool
}

type virtualTask struct {
	fn      func()
	stopped bool
}

// NewVirtualClock returns a clock frozen at start.
func NewVirtualClock(start time.Time) *VirtualClock {
	return &VirtualClock{now: start}
}

func (c *VirtualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *VirtualClock) AfterFunc(d time.Duration, fn func()) Timer {
	return c.addTimer(d, 0, fn)
}

func (c *VirtualClock) Every(d time.Duration, fn func()) Timer {
	if d < minInterval {
		d = minInterval
	}
	return c.addTimer(d, d, fn)
}

func (c *VirtualClock) Defer(fn func()) Timer {
	return c.addTask(&c.micro, fn)
}

func (c *VirtualClock) Frame(fn func()) Timer {
	return c.addTask(&c.frames, fn)
}

func (c *VirtualClock) addTimer(d, period time.Duration, fn func()) Timer {
	if d < 0 {
		d = 0
	}
	c.mu.Lock()
	t := &virtualTimer{when: c.now.Add(d), period: period, seq: c.seq, fn: fn}
	c.seq++
	c.timers = append(c.timers, t)
	c.mu.Unlock()

	return TimerFunc(func() {
		c.mu.Lock()
		t.stopped = true
		c.mu.Unlock()
	})
}

func (c *VirtualClock) addTask(queue *[]*virtualTask, fn func()) Timer {
	c.mu.Lock()
	task := &virtualTask{fn: fn}
	*queue = append(*queue, task)
	c.mu.Unlock()

	return TimerFunc(func() {
		c.mu.Lock()
		task.stopped = true
		c.mu.Unlock()
	})
}

// Advance moves the clock forward by d, firing every timer that falls due in
// timestamp order. Microtasks are drained before and after each timer.
func (c *VirtualClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()

	for {
		c.RunMicrotasks()

		c.mu.Lock()
		next := c.nextDueLocked(target)
		if next == nil {
			c.now = target
			c.mu.Unlock()
			break
		}
		c.now = next.when
		if next.period > 0 {
			next.when = next.when.Add(next.period)
		} else {
			next.stopped = true
		}
		fn := next.fn
		c.mu.Unlock()

		fn()
	}
	c.RunMicrotasks()
}

func (c *VirtualClock) nextDueLocked(target time.Time) *virtualTimer {
	live := c.timers[:0]
	var next *virtualTimer
	for _, t := range c.timers {
		if t.stopped {
			continue
		}
		live = append(live, t)
		if t.when.After(target) {
			continue
		}
		if next == nil || t.when.Before(next.when) || (t.when.Equal(next.when) && t.seq < next.seq) {
			next = t
		}
	}
	c.timers = live
	return next
}

// RunMicrotasks drains deferred callbacks, including ones queued while
// draining.
func (c *VirtualClock) RunMicrotasks() {
	for {
		c.mu.Lock()
		if len(c.micro) == 0 {
			c.mu.Unlock()
			return
		}
		task := c.micro[0]
		c.micro = c.micro[1:]
		stopped := task.stopped
		c.mu.Unlock()

		if !stopped {
			task.fn()
		}
	}
}

// NextFrame runs the callbacks requested before this call. Callbacks requested
// while the frame runs wait for the following frame.
func (c *VirtualClock) NextFrame() {
	c.mu.Lock()
	batch := c.frames
	c.frames = nil
	c.mu.Unlock()

	for _, task := range batch {
		c.mu.Lock()
		stopped := task.stopped
		c.mu.Unlock()
		if !stopped {
			task.fn()
		}
	}
	c.RunMicrotasks()
}

// Pending reports how many timers, microtasks and frame callbacks are live.
func (c *VirtualClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, t := range c.timers {
		if !t.stopped {
			n++
		}
	}
	for _, q := range [][]*virtualTask{c.micro, c.frames} {
		for _, task := range q {
			if !task.stopped {
				n++
			}
		}
	}
	return n
}
