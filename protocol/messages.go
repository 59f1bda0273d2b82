package protocol

// Message identifiers. Host-to-robot commands and robot-to-host reports
// share one ID space.
const (
	MsgIdentify      uint16 = 1 // host->robot, no args
	MsgIdentifyReply uint16 = 2 // robot->host, version=%s
	MsgStatus        uint16 = 3 // robot->host, see Status
	MsgEvent         uint16 = 4 // robot->host, see Event
	MsgEstop         uint16 = 5 // host->robot, no args
	MsgResume        uint16 = 6 // host->robot, no args
	MsgSetTelemetry  uint16 = 7 // host->robot, interval=%u in control ticks, 0 disables
	MsgDumpEvents    uint16 = 8 // host->robot, no args
	MsgSetDebug      uint16 = 9 // host->robot, enable=%c
)

// SensorChannels is the number of reflectance channels carried in Status
const SensorChannels = 6

// Halt reasons carried in Status.HaltReason and halt events
const (
	HaltNone     uint8 = 0
	HaltHost     uint8 = 1
	HaltObstacle uint8 = 2
)

// Status is the periodic telemetry snapshot
type Status struct {
	Clock        uint32
	Cursor       uint16
	Maneuver     uint8
	Phase        uint8
	PivotState   uint8
	Distance     int32
	Steer        int32
	OnLine       uint8 // bit n set when channel n is on the line
	Contrast     [SensorChannels]uint16
	HaltReason   uint8
	DriverErrors uint32
}

// Halted reports whether the robot was stopped by a supervisor
func (s *Status) Halted() bool {
	return s.HaltReason != HaltNone
}

// Event mirrors a control event ring entry
type Event struct {
	Type   uint8
	Cursor uint16
	Clock  uint32
	Value1 int32
	Value2 int32
}

// EncodeStatus writes the Status fields in wire order
func EncodeStatus(out OutputBuffer, s *Status) {
	EncodeVLQUint(out, s.Clock)
	EncodeVLQUint(out, uint32(s.Cursor))
	EncodeVLQUint(out, uint32(s.Maneuver))
	EncodeVLQUint(out, uint32(s.Phase))
	EncodeVLQUint(out, uint32(s.PivotState))
	EncodeVLQInt(out, s.Distance)
	EncodeVLQInt(out, s.Steer)
	EncodeVLQUint(out, uint32(s.OnLine))
	for _, c := range s.Contrast {
		EncodeVLQUint(out, uint32(c))
	}
	EncodeVLQUint(out, uint32(s.HaltReason))
	EncodeVLQUint(out, s.DriverErrors)
}

// DecodeStatus reads a Status written by EncodeStatus
func DecodeStatus(data *[]byte) (Status, error) {
	var s Status
	var vals [8]uint32
	for i := range vals {
		v, err := DecodeVLQUint(data)
		if err != nil {
			return s, err
		}
		vals[i] = v
	}
	s.Clock = vals[0]
	s.Cursor = uint16(vals[1])
	s.Maneuver = uint8(vals[2])
	s.Phase = uint8(vals[3])
	s.PivotState = uint8(vals[4])
	s.Distance = int32(vals[5])
	s.Steer = int32(vals[6])
	s.OnLine = uint8(vals[7])
	for i := range s.Contrast {
		c, err := DecodeVLQUint(data)
		if err != nil {
			return s, err
		}
		s.Contrast[i] = uint16(c)
	}
	reason, err := DecodeVLQUint(data)
	if err != nil {
		return s, err
	}
	s.HaltReason = uint8(reason)
	s.DriverErrors, err = DecodeVLQUint(data)
	return s, err
}

// EncodeEvent writes an Event in wire order
func EncodeEvent(out OutputBuffer, e *Event) {
	EncodeVLQUint(out, uint32(e.Type))
	EncodeVLQUint(out, uint32(e.Cursor))
	EncodeVLQUint(out, e.Clock)
	EncodeVLQInt(out, e.Value1)
	EncodeVLQInt(out, e.Value2)
}

// DecodeEvent reads an Event written by EncodeEvent
func DecodeEvent(data *[]byte) (Event, error) {
	var e Event
	var vals [5]uint32
	for i := range vals {
		v, err := DecodeVLQUint(data)
		if err != nil {
			return e, err
		}
		vals[i] = v
	}
	e.Type = uint8(vals[0])
	e.Cursor = uint16(vals[1])
	e.Clock = vals[2]
	e.Value1 = int32(vals[3])
	e.Value2 = int32(vals[4])
	return e, nil
}
