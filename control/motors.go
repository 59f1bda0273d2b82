package control

// Motors is the drive surface the state machines command. Percentages are
// signed in [-100, 100]; steer is added to the right wheel and subtracted
// from the left around center.
type Motors interface {
	Steer(center, steer int) error
	Stop() error
	SetDisabled(left, right bool) error
}

// EventSink receives mission events from a controller. The owner stamps
// them with the cursor and clock.
type EventSink func(eventType uint8, value1, value2 int32)
