package core

// Timer represents a scheduled event
type Timer struct {
	WakeTime uint32
	Handler  func(*Timer) uint8
	Next     *Timer
}

const (
	SF_DONE       = 0
	SF_RESCHEDULE = 1
)

// Scheduler keeps timers sorted by wake time and runs the due ones from the
// main loop. Handlers set WakeTime themselves before returning SF_RESCHEDULE.
type Scheduler struct {
	timerList *Timer
}

// NewScheduler returns an empty scheduler.
func NewScheduler() *Scheduler {
	return &Scheduler{}
}

// ScheduleTimer adds a timer to the schedule
func (s *Scheduler) ScheduleTimer(t *Timer) {
	state := disableInterrupts()
	defer restoreInterrupts(state)

	s.insertTimer(t)
}

// Cancel removes a timer if it is queued.
func (s *Scheduler) Cancel(t *Timer) {
	state := disableInterrupts()
	defer restoreInterrupts(state)

	if s.timerList == t {
		s.timerList = t.Next
		t.Next = nil
		return
	}
	for cur := s.timerList; cur != nil; cur = cur.Next {
		if cur.Next == t {
			cur.Next = t.Next
			t.Next = nil
			return
		}
	}
}

// Pending returns the number of queued timers.
func (s *Scheduler) Pending() int {
	n := 0
	for cur := s.timerList; cur != nil; cur = cur.Next {
		n++
	}
	return n
}

// NextWake returns the earliest wake time and whether any timer is queued.
func (s *Scheduler) NextWake() (uint32, bool) {
	if s.timerList == nil {
		return 0, false
	}
	return s.timerList.WakeTime, true
}

// insertTimer inserts a timer in sorted order by WakeTime. Timers with equal
// wake times keep insertion order.
func (s *Scheduler) insertTimer(t *Timer) {
	if s.timerList == nil || TimerBefore(t.WakeTime, s.timerList.WakeTime) {
		t.Next = s.timerList
		s.timerList = t
		return
	}

	current := s.timerList
	for current.Next != nil && !TimerBefore(t.WakeTime, current.Next.WakeTime) {
		current = current.Next
	}

	t.Next = current.Next
	current.Next = t
}

// Dispatch runs every timer whose WakeTime is at or before now. Handlers run
// with interrupts enabled; only list updates are guarded.
func (s *Scheduler) Dispatch(now uint32) {
	for {
		state := disableInterrupts()
		timer := s.timerList
		if timer == nil || TimerBefore(now, timer.WakeTime) {
			restoreInterrupts(state)
			return
		}
		s.timerList = timer.Next
		timer.Next = nil
		restoreInterrupts(state)

		if timer.Handler(timer) == SF_RESCHEDULE {
			state = disableInterrupts()
			s.insertTimer(timer)
			restoreInterrupts(state)
		}
	}
}

// ProcessTimers dispatches against the system clock.
func (s *Scheduler) ProcessTimers() {
	s.Dispatch(GetTime())
}
