package valentine

import "time"

// Timer is a pending callback that can be cancelled.
type Timer interface {
	// Stop prevents the callback from running. It reports whether the
	// call stopped the timer before it fired.
	Stop() bool
}

// Scheduler runs callbacks after a delay.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// WallClock schedules on real time.
type WallClock struct{}

// AfterFunc implements Scheduler with time.AfterFunc.
func (WallClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// pending tracks the one outstanding timer of an owner. gen identifies the
// scheduled callback so a callback that lost the race with Stop is ignored.
type pending struct {
	timer Timer
	gen   uint64
}

func (p *pending) active() bool {
	return p.timer != nil
}

func (p *pending) cancel() {
	if p.timer != nil {
		p.timer.Stop()
	}
	p.timer = nil
	p.gen = 0
}
