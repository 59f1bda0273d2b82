package core

// DebugWriter is a function type for writing debug messages
type DebugWriter func(string)

// ControlEvent captures a mission event for post-mortem analysis
type ControlEvent struct {
	EventType uint8  // Event type code
	Cursor    uint16 // Command cursor when the event fired
	Clock     uint32 // System clock at event
	Value1    int32  // Context-dependent value
	Value2    int32  // Context-dependent value
}

// Event type codes
const (
	EvtIntersection   = 1  // Intersection accepted by the sensor reader
	EvtCursorAdvance  = 2  // Cursor moved; v1=new cursor, v2=maneuver code
	EvtWaypointArmed  = 3  // v1=target mm, v2=table index
	EvtWaypointReach  = 4  // v1=travel mm, v2=target mm
	EvtWaypointNoDist = 5  // Waypoint table exhausted, intersection gating used
	EvtPivotStart     = 6  // v1=side, v2=target ticks
	EvtPivotFinish    = 7  // v1=accumulated ticks, v2=turning ticks
	EvtPivotTimeout   = 8  // v1=accumulated ticks, v2=turning ticks
	EvtGoal           = 9  // Terminal state reached
	EvtHalt           = 10 // v1=reason
	EvtResume         = 11
	EvtDriverError    = 12 // v1=error count
)

const (
	EventRingSize = 32 // Keep last 32 events for post-mortem
)

var (
	// debugPrintln is the global debug print function (can be set by platform code)
	debugPrintln DebugWriter = func(s string) {} // No-op by default

	// debugEnabled controls whether debug output is active
	debugEnabled bool = false
)

// SetDebugWriter sets the platform-specific debug output function
// This allows platforms to redirect debug output to UART, USB, etc.
func SetDebugWriter(writer DebugWriter) {
	debugPrintln = writer
}

// SetDebugEnabled enables or disables debug output
func SetDebugEnabled(enabled bool) {
	debugEnabled = enabled
}

// IsDebugEnabled returns whether debug output is enabled
func IsDebugEnabled() bool {
	return debugEnabled
}

// DebugPrintln writes a debug message using the platform-specific writer
func DebugPrintln(msg string) {
	if debugEnabled && debugPrintln != nil {
		debugPrintln(msg)
	}
}

// EventName returns the log name of an event code.
func EventName(code uint8) string {
	switch code {
	case EvtIntersection:
		return "INTERSECTION"
	case EvtCursorAdvance:
		return "ADVANCE"
	case EvtWaypointArmed:
		return "WP_ARMED"
	case EvtWaypointReach:
		return "WP_REACHED"
	case EvtWaypointNoDist:
		return "WP_NO_DIST"
	case EvtPivotStart:
		return "PIVOT_START"
	case EvtPivotFinish:
		return "PIVOT_DONE"
	case EvtPivotTimeout:
		return "PIVOT_TIMEOUT!"
	case EvtGoal:
		return "GOAL"
	case EvtHalt:
		return "HALT"
	case EvtResume:
		return "RESUME"
	case EvtDriverError:
		return "DRIVER_ERR"
	default:
		return "UNKNOWN"
	}
}

// FormatEvent renders an event as a single debug line.
func FormatEvent(evt ControlEvent) string {
	return "[EVT] " + EventName(evt.EventType) +
		" cur=" + utoa(uint32(evt.Cursor)) +
		" clock=" + utoa(evt.Clock) +
		" v1=" + itoa(int(evt.Value1)) +
		" v2=" + itoa(int(evt.Value2))
}

// EventRing is a fixed-size, non-blocking record of recent control events.
// Not safe for concurrent writers; the control loop is its only writer.
type EventRing struct {
	ring [EventRingSize]ControlEvent
	head uint8
	n    uint32

	// OnEvent, if set, is called for every recorded event.
	OnEvent func(ControlEvent)
}

// Record captures an event in the ring buffer
func (r *EventRing) Record(eventType uint8, cursor uint16, clock uint32, value1, value2 int32) {
	evt := ControlEvent{
		EventType: eventType,
		Cursor:    cursor,
		Clock:     clock,
		Value1:    value1,
		Value2:    value2,
	}
	r.ring[r.head] = evt
	r.head = (r.head + 1) % EventRingSize
	r.n++
	DebugPrintln(FormatEvent(evt))
	if r.OnEvent != nil {
		r.OnEvent(evt)
	}
}

// Total returns the number of events recorded since the last Clear.
func (r *EventRing) Total() uint32 {
	return r.n
}

// Events returns the retained events, oldest first.
func (r *EventRing) Events() []ControlEvent {
	out := make([]ControlEvent, 0, EventRingSize)
	start := r.head
	for i := uint8(0); i < EventRingSize; i++ {
		evt := r.ring[(start+i)%EventRingSize]
		if evt.EventType == 0 {
			continue // Empty slot
		}
		out = append(out, evt)
	}
	return out
}

// Dump outputs the ring through the debug writer regardless of debugEnabled.
func (r *EventRing) Dump() {
	if debugPrintln == nil {
		return
	}
	debugPrintln("[EVT] === Event Ring Dump ===")
	debugPrintln("[EVT] Total events: " + utoa(r.n))
	for _, evt := range r.Events() {
		debugPrintln(FormatEvent(evt))
	}
	debugPrintln("[EVT] === End Dump ===")
}

// Clear empties the ring
func (r *EventRing) Clear() {
	for i := range r.ring {
		r.ring[i] = ControlEvent{}
	}
	r.head = 0
	r.n = 0
}
