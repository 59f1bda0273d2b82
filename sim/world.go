package sim

import (
	"math"
	"time"

	"linebot/control"
	"linebot/core"
)

// Segment is one stretch of tape between two decision points
type Segment struct {
	LengthMM float64
	// Junction means a crossing tape lies at the far end
	Junction bool
	// DeadEnd means the only way on is back; a pivot here reverses onto
	// the same tape instead of taking a branch
	DeadEnd bool
}

// deadEndSlackMM is how far the tape runs past a waypoint stop
const deadEndSlackMM = 60

// TrackFor lays out one segment per STRAIGHT in the route. A STRAIGHT
// followed by a WAYPOINT becomes a dead end ending just past its armed
// distance, and the STRAIGHT after the U-turn leads back over the same
// distance. Every other segment is segmentMM long and ends at a junction.
func TrackFor(route control.RouteConfig, segmentMM float64) []Segment {
	var (
		track []Segment
		pair  int
		back  float64
	)
	codes := route.Maneuvers
	for i, m := range codes {
		if m != control.Straight {
			continue
		}
		seg := Segment{LengthMM: segmentMM, Junction: true}
		if i > 0 && codes[i-1] == control.UTurn && back > 0 {
			seg.LengthMM = back
			back = 0
		}
		if i+1 < len(codes) && codes[i+1] == control.Waypoint {
			if pair < len(route.WaypointsMM) {
				d := float64(route.WaypointsMM[pair])
				seg = Segment{LengthMM: d + deadEndSlackMM, DeadEnd: true}
				back = d
			} else {
				seg.DeadEnd = true
				back = seg.LengthMM
			}
			pair++
		}
		track = append(track, seg)
	}
	return track
}

// Mount places one reflectance channel across the sensor bar
type Mount struct {
	Channel int
	// OffsetMM is the lateral position, positive to the right of centre
	OffsetMM float64
}

// Geometry describes the body, the sensor bar and the tape
type Geometry struct {
	WheelBaseMM   float64
	MaxSpeedMMS   float64 // wheel surface speed at 100% duty
	CountsPerMM   float64
	SensorAheadMM float64 // tracking bar distance ahead of the axle
	TapeWidthMM   float64
	JunctionMM    float64 // half-width of a crossing tape

	LinePeak     uint16 // contrast of a channel centred on the tape
	JunctionPeak uint16 // contrast of an outer channel over a crossing
	Floor        uint16 // contrast over bare floor

	Mounts           []Mount
	JunctionChannels []int
}

// DefaultGeometry derives a body matching cfg: encoder resolution from the
// odometry block, tracking channels from the steering weights (positive
// weights sit left of centre) and the outer channels from the sensor block.
// The outer channels sit level with the axle so a pivot lands on the
// crossing tape.
func DefaultGeometry(cfg *control.Config) Geometry {
	o := cfg.Odometry
	circumference := 2 * math.Pi * float64(o.WheelRadiusMM)
	g := Geometry{
		WheelBaseMM:      54,
		MaxSpeedMMS:      600,
		CountsPerMM:      float64(o.CountsPerRev) / circumference,
		SensorAheadMM:    20,
		TapeWidthMM:      18,
		JunctionMM:       10,
		LinePeak:         90,
		JunctionPeak:     60,
		Floor:            3,
		JunctionChannels: append([]int(nil), cfg.Sensors.IntersectionChannels...),
	}
	place := func(ws []control.ChannelWeight, spacing float64) {
		for _, w := range ws {
			off := spacing
			if w.Weight > 0 {
				off = -spacing
			}
			g.Mounts = append(g.Mounts, Mount{Channel: w.Channel, OffsetMM: off})
		}
	}
	place(cfg.Steering.Track, 9)
	place(cfg.Steering.Predict, 18)
	return g
}

// Pose is the body position in the current segment's frame
type Pose struct {
	Segment    int
	AlongMM    float64 // axle distance from the segment start
	LateralMM  float64 // axle offset, positive to the right of the tape
	HeadingDeg float64 // positive rotated left of the tape direction
}

// World integrates differential-drive kinematics over a topological track
type World struct {
	geo   Geometry
	hw    *Hardware
	drive control.DriveConfig
	track []Segment

	seg      int
	u, y     float64
	theta    float64
	traveled float64
}

// NewWorld places the body at the start of the first segment and primes
// the sensor channels
func NewWorld(drive control.DriveConfig, geo Geometry, hw *Hardware, track []Segment) *World {
	w := &World{geo: geo, hw: hw, drive: drive, track: track}
	w.sense()
	return w
}

// Step advances the body by dt under the current motor commands
func (w *World) Step(dt time.Duration) {
	sec := dt.Seconds()
	vl := w.wheelSpeed(w.drive.LeftPWMPin, w.drive.LeftDisablePin, w.drive.LeftSign)
	vr := w.wheelSpeed(w.drive.RightPWMPin, w.drive.RightDisablePin, w.drive.RightSign)

	w.hw.Encoders.Advance(core.EncoderLeft, vl*sec*w.geo.CountsPerMM)
	w.hw.Encoders.Advance(core.EncoderRight, vr*sec*w.geo.CountsPerMM)

	v := (vl + vr) / 2
	w.theta += (vr - vl) / w.geo.WheelBaseMM * sec
	w.u += v * math.Cos(w.theta) * sec
	w.y -= v * math.Sin(w.theta) * sec
	w.traveled += math.Abs(v) * sec

	w.followTrack()
	w.sense()
}

// wheelSpeed decodes one wheel's compare value into surface speed. A
// disabled driver coasts to a stop instantly.
func (w *World) wheelSpeed(pwmPin, disablePin uint32, sign int) float64 {
	if w.hw.GPIO.Level(core.GPIOPin(disablePin)) {
		return 0
	}
	if sign == 0 {
		sign = 1
	}
	pct := sign * w.hw.PWM.Duty(core.PWMPin(pwmPin))
	return float64(pct) / 100 * w.geo.MaxSpeedMMS
}

// followTrack moves the frame onto the next segment once the body has
// driven through a junction or pivoted far enough to face the next tape
func (w *World) followTrack() {
	if w.seg >= len(w.track) {
		return
	}
	seg := w.track[w.seg]

	if seg.DeadEnd {
		if math.Abs(w.theta) > 3*math.Pi/4 {
			w.theta -= math.Copysign(math.Pi, w.theta)
			w.y = -w.y
			w.u = 0
			w.next()
		}
		return
	}

	if !seg.Junction {
		return
	}
	switch {
	case w.theta > math.Pi/4:
		w.theta -= math.Pi / 2
		w.u, w.y = -w.y, w.u-seg.LengthMM
		w.next()
	case w.theta < -math.Pi/4:
		w.theta += math.Pi / 2
		w.u, w.y = w.y, seg.LengthMM-w.u
		w.next()
	case w.u > seg.LengthMM+w.geo.JunctionMM:
		w.u -= seg.LengthMM
		w.next()
	}
}

func (w *World) next() { w.seg++ }

// sense writes the contrast each channel sees at the current pose
func (w *World) sense() {
	for ch := 0; ch < Channels; ch++ {
		w.hw.ADC.SetContrast(ch, w.geo.Floor)
	}
	if w.seg >= len(w.track) {
		return
	}
	seg := w.track[w.seg]

	along := w.u + w.geo.SensorAheadMM*math.Cos(w.theta)
	bar := w.y - w.geo.SensorAheadMM*math.Sin(w.theta)
	taped := seg.Junction || along <= seg.LengthMM
	if taped {
		span := float64(w.geo.LinePeak) - float64(w.geo.Floor)
		for _, m := range w.geo.Mounts {
			d := math.Abs(bar + m.OffsetMM*math.Cos(w.theta))
			f := 1 - d/w.geo.TapeWidthMM
			if f <= 0 {
				continue
			}
			w.hw.ADC.SetContrast(m.Channel, w.geo.Floor+uint16(f*span))
		}
	}

	if seg.Junction && math.Abs(w.u-seg.LengthMM) <= w.geo.JunctionMM {
		for _, ch := range w.geo.JunctionChannels {
			w.hw.ADC.SetContrast(ch, w.geo.JunctionPeak)
		}
	}
}

// Pose returns the body position in the current segment's frame
func (w *World) Pose() Pose {
	return Pose{
		Segment:    w.seg,
		AlongMM:    w.u,
		LateralMM:  w.y,
		HeadingDeg: w.theta * 180 / math.Pi,
	}
}

// Segment returns the index of the segment being followed
func (w *World) Segment() int { return w.seg }

// Track returns the segment list
func (w *World) Track() []Segment { return w.track }

// Traveled returns the total axle travel in millimetres
func (w *World) Traveled() float64 { return w.traveled }

// Finished reports whether the body has left the last segment
func (w *World) Finished() bool { return w.seg >= len(w.track) }
