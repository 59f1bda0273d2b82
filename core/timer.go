package core

// TimerFreq is the system clock rate: one tick per microsecond, matching
// the RP2040 hardware timer.
const TimerFreq = 1000000

var (
	systemTicks uint32
	bootTime    uint32
)

// GetTime returns the current system time in timer ticks
func GetTime() uint32 {
	return getSystemTicks()
}

// SetTime sets the current system time (for testing/hardware integration)
func SetTime(ticks uint32) {
	setSystemTicks(ticks)
}

// TimerInit records the boot time for uptime reporting
func TimerInit() {
	bootTime = GetTime()
}

// Uptime returns ticks since TimerInit. Wraps after about 71 minutes.
func Uptime() uint32 {
	return GetTime() - bootTime
}

// TimerFromUS converts microseconds to timer ticks
func TimerFromUS(us uint32) uint32 {
	return uint32(uint64(us) * TimerFreq / 1000000)
}

// TimerFromMS converts milliseconds to timer ticks
func TimerFromMS(ms uint32) uint32 {
	return TimerFromUS(ms * 1000)
}

// TimerToUS converts timer ticks to microseconds
func TimerToUS(ticks uint32) uint32 {
	return uint32(uint64(ticks) * 1000000 / TimerFreq)
}

// TimerBefore reports whether a is earlier than b, tolerating counter wrap.
func TimerBefore(a, b uint32) bool {
	return int32(a-b) < 0
}
