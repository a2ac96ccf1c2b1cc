package session

import "time"

// DefaultAnimationStep is the delay between two animated jumps.
const DefaultAnimationStep = 500 * time.Millisecond

// Animator plays a fixed number of steps, one per tick. Starting a new
// sequence cancels the one in progress.
type Animator struct {
	sched   Scheduler
	step    time.Duration
	gen     uint64
	cancel  func()
	running bool
}

func NewAnimator(s Scheduler, step time.Duration) *Animator {
	if step <= 0 {
		step = DefaultAnimationStep
	}
	return &Animator{sched: s, step: step}
}

func (a *Animator) Running() bool { return a.running }

// Start schedules n calls to apply, one per tick. apply returning false aborts
// the sequence. done runs once at the end with completed=false on abort; it
// does not run when the sequence is cancelled.
func (a *Animator) Start(n int, apply func(i int) bool, done func(completed bool)) {
	a.Cancel()
	if n <= 0 {
		done(true)
		return
	}
	a.running = true
	gen := a.gen
	i := 0
	var tick func()
	tick = func() {
		if gen != a.gen {
			return
		}
		if !apply(i) {
			a.finish()
			done(false)
			return
		}
		i++
		if i >= n {
			a.finish()
			done(true)
			return
		}
		a.cancel = a.sched.After(a.step, tick)
	}
	a.cancel = a.sched.After(a.step, tick)
}

// Cancel stops the running sequence without calling its done callback.
func (a *Animator) Cancel() {
	if a.cancel != nil {
		a.cancel()
	}
	a.finish()
}

func (a *Animator) finish() {
	a.gen++
	a.cancel = nil
	a.running = false
}
