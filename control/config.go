package control

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Config is the complete tunable surface of the robot
type Config struct {
	Timing    TimingConfig    `json:"timing"`
	Odometry  OdometryConfig  `json:"odometry"`
	Sensors   SensorConfig    `json:"sensors"`
	Steering  SteeringConfig  `json:"steering"`
	Drive     DriveConfig     `json:"drive"`
	Pivot     PivotConfig     `json:"pivot"`
	Path      PathConfig      `json:"path"`
	Telemetry TelemetryConfig `json:"telemetry"`
	Obstacle  ObstacleConfig  `json:"obstacle"`
	Route     RouteConfig     `json:"route"`
}

// TimingConfig holds the two periodic task rates
type TimingConfig struct {
	ControlPeriodMS  uint32 `json:"control_period_ms"`
	OdometryPeriodMS uint32 `json:"odometry_period_ms"`
}

// Ticks converts a duration in milliseconds to whole control ticks,
// rounding up so a nonzero duration never becomes zero ticks.
func (t TimingConfig) Ticks(ms uint32) uint32 {
	if ms == 0 || t.ControlPeriodMS == 0 {
		return 0
	}
	return (ms + t.ControlPeriodMS - 1) / t.ControlPeriodMS
}

// DT returns the control period in seconds
func (t TimingConfig) DT() float32 {
	return float32(t.ControlPeriodMS) / 1000
}

// OdometryConfig describes the drive train geometry in fixed point
type OdometryConfig struct {
	CountsPerRev     int32 `json:"counts_per_rev"`
	WheelRadiusMM    int32 `json:"wheel_radius_mm"`
	PiX1000          int32 `json:"pi_x1000"`
	CalibrationX1000 int32 `json:"calibration_x1000"`
}

// MMPerCountX1000 is the wheel travel per encoder count in micrometres
func (o OdometryConfig) MMPerCountX1000() int32 {
	if o.CountsPerRev == 0 {
		return 0
	}
	return 2 * o.PiX1000 * o.WheelRadiusMM / o.CountsPerRev
}

// SensorConfig describes the reflectance array and its classification band
type SensorConfig struct {
	Channels             int    `json:"channels"`
	Samples              int    `json:"samples"`
	BandMin              uint16 `json:"band_min"`
	BandMax              uint16 `json:"band_max"`
	Hysteresis           uint16 `json:"hysteresis"`
	DebounceTicks        int    `json:"debounce_ticks"`
	ClearTicks           int    `json:"clear_ticks"`
	IntersectionChannels []int  `json:"intersection_channels"`
}

// Normalize maps a contrast count into [0,1] across the band
func (s SensorConfig) Normalize(pp uint16) float32 {
	if pp <= s.BandMin {
		return 0
	}
	if pp >= s.BandMax {
		return 1
	}
	return float32(pp-s.BandMin) / float32(s.BandMax-s.BandMin)
}

// ChannelWeight assigns a signed weight to one sensor channel
type ChannelWeight struct {
	Channel int     `json:"channel"`
	Weight  float32 `json:"weight"`
}

// SteeringConfig holds the PI gains and line-loss policy
type SteeringConfig struct {
	Track         []ChannelWeight `json:"track"`
	Predict       []ChannelWeight `json:"predict"`
	PredictGain   float32         `json:"predict_gain"`
	Gain          float32         `json:"gain"`
	Kp            float32         `json:"kp"`
	Ki            float32         `json:"ki"`
	IntegralLimit float32         `json:"integral_limit"`
	OutputLimit   float32         `json:"output_limit"`
	LossEpsilon   float32         `json:"loss_epsilon"`
	LossTimeoutMS uint32          `json:"loss_timeout_ms"`
	LossDecay     float32         `json:"loss_decay"`
}

// DriveConfig maps signed wheel percentages onto the motor drivers
type DriveConfig struct {
	CenterDuty       int    `json:"center_duty"`
	RightTrimPercent int    `json:"right_trim_percent"`
	MinForwardDuty   int    `json:"min_forward_duty"`
	LeftSign         int    `json:"left_sign"`
	RightSign        int    `json:"right_sign"`
	PWMPeriodNs      uint64 `json:"pwm_period_ns"`
	LeftPWMPin       uint32 `json:"left_pwm_pin"`
	RightPWMPin      uint32 `json:"right_pwm_pin"`
	LeftDisablePin   uint32 `json:"left_disable_pin"`
	RightDisablePin  uint32 `json:"right_disable_pin"`
}

// PivotConfig holds the per-side encoder goals and drive magnitudes
type PivotConfig struct {
	TargetLeft  int32  `json:"target_left"`
	TargetRight int32  `json:"target_right"`
	TargetUTurn int32  `json:"target_uturn"`
	SpeedLeft   int    `json:"speed_left"`
	SpeedRight  int    `json:"speed_right"`
	SpeedUTurn  int    `json:"speed_uturn"`
	SafetyTicks uint32 `json:"safety_ticks"`
	PrepMS      uint32 `json:"prep_ms"`
	BrakeMS     uint32 `json:"brake_ms"`
}

// Target returns the encoder goal for a side
func (p PivotConfig) Target(s Side) int32 {
	switch s {
	case SideLeft:
		return p.TargetLeft
	case SideRight:
		return p.TargetRight
	case SideUTurn:
		return p.TargetUTurn
	}
	return 0
}

// Speed returns the pivot drive magnitude for a side
func (p PivotConfig) Speed(s Side) int {
	switch s {
	case SideLeft:
		return p.SpeedLeft
	case SideRight:
		return p.SpeedRight
	case SideUTurn:
		return p.SpeedUTurn
	}
	return 0
}

// PathConfig holds the runner's timed windows
type PathConfig struct {
	WaypointHoldMS uint32 `json:"waypoint_hold_ms"`
	TurnCooldownMS uint32 `json:"turn_cooldown_ms"`
}

// TelemetryConfig controls periodic status reports
type TelemetryConfig struct {
	IntervalTicks uint32 `json:"interval_ticks"`
}

// ObstacleConfig controls the forward range sensor halt
type ObstacleConfig struct {
	Enabled    bool   `json:"enabled"`
	HaltMM     uint16 `json:"halt_mm"`
	ClearMM    uint16 `json:"clear_mm"`
	PollTicks  uint32 `json:"poll_ticks"`
	I2CAddress uint16 `json:"i2c_address"`
}

// RouteConfig is the fixed maneuver list and waypoint distance table
type RouteConfig struct {
	Maneuvers   []Maneuver `json:"maneuvers"`
	WaypointsMM []int32    `json:"waypoints_mm"`
}

// MarshalJSON keeps maneuver lists as numeric arrays
func (m Maneuver) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf("%d", uint8(m))), nil
}

// UnmarshalJSON accepts a numeric code or a maneuver name
func (m *Maneuver) UnmarshalJSON(data []byte) error {
	var code uint8
	if err := json.Unmarshal(data, &code); err == nil {
		*m = Maneuver(code)
		return nil
	}
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return fmt.Errorf("maneuver: %w", err)
	}
	v, err := ParseManeuver(name)
	if err != nil {
		return err
	}
	*m = v
	return nil
}

var (
	ErrEmptyRoute    = errors.New("route is empty")
	ErrRouteNoGoal   = errors.New("route does not end with GOAL")
	ErrInvalidPeriod = errors.New("periods must be positive")
)

// Validate checks the configuration for values the controllers cannot run with
func (c *Config) Validate() error {
	if c.Timing.ControlPeriodMS == 0 || c.Timing.OdometryPeriodMS == 0 {
		return ErrInvalidPeriod
	}
	if c.Odometry.CountsPerRev <= 0 || c.Odometry.WheelRadiusMM <= 0 {
		return fmt.Errorf("odometry: counts_per_rev and wheel_radius_mm must be positive")
	}

	s := &c.Sensors
	if s.Channels <= 0 {
		return fmt.Errorf("sensors: channels must be positive")
	}
	if s.BandMin >= s.BandMax {
		return fmt.Errorf("sensors: band_min %d must be below band_max %d", s.BandMin, s.BandMax)
	}
	// A dark channel must be able to fall out of the widened band
	if s.Hysteresis >= s.BandMin {
		return fmt.Errorf("sensors: hysteresis %d must be below band_min %d", s.Hysteresis, s.BandMin)
	}
	if len(s.IntersectionChannels) == 0 {
		return fmt.Errorf("sensors: no intersection channels")
	}
	for _, ch := range s.IntersectionChannels {
		if ch < 0 || ch >= s.Channels {
			return fmt.Errorf("sensors: intersection channel %d out of range", ch)
		}
	}

	if len(c.Steering.Track) == 0 {
		return fmt.Errorf("steering: no track channels")
	}
	for _, w := range append(append([]ChannelWeight(nil), c.Steering.Track...), c.Steering.Predict...) {
		if w.Channel < 0 || w.Channel >= s.Channels {
			return fmt.Errorf("steering: channel %d out of range", w.Channel)
		}
	}
	if c.Steering.IntegralLimit < 0 || c.Steering.OutputLimit <= 0 {
		return fmt.Errorf("steering: limits must be positive")
	}
	if c.Steering.LossDecay < 0 || c.Steering.LossDecay >= 1 {
		return fmt.Errorf("steering: loss_decay %v must be in [0,1)", c.Steering.LossDecay)
	}

	if c.Pivot.SafetyTicks == 0 {
		return fmt.Errorf("pivot: safety_ticks must be positive")
	}
	for _, side := range []Side{SideLeft, SideRight, SideUTurn} {
		if c.Pivot.Target(side) <= 0 {
			return fmt.Errorf("pivot: %s target must be positive", side)
		}
	}

	if c.Obstacle.Enabled {
		if c.Obstacle.ClearMM < c.Obstacle.HaltMM {
			return fmt.Errorf("obstacle: clear_mm %d below halt_mm %d", c.Obstacle.ClearMM, c.Obstacle.HaltMM)
		}
		if c.Obstacle.PollTicks == 0 {
			return fmt.Errorf("obstacle: poll_ticks must be positive")
		}
	}

	return c.Route.Validate()
}

// Validate checks the maneuver list and waypoint table
func (r *RouteConfig) Validate() error {
	if len(r.Maneuvers) == 0 {
		return ErrEmptyRoute
	}
	for i, m := range r.Maneuvers {
		if !m.Valid() {
			return fmt.Errorf("route[%d]: unknown maneuver code %d", i, uint8(m))
		}
	}
	if r.Maneuvers[len(r.Maneuvers)-1] != Goal {
		return ErrRouteNoGoal
	}
	for i, d := range r.WaypointsMM {
		if d < 0 {
			return fmt.Errorf("waypoints_mm[%d]: negative distance %d", i, d)
		}
	}
	return nil
}

// ArmedWaypoints counts the STRAIGHT then WAYPOINT pairs in the route
func (r *RouteConfig) ArmedWaypoints() int {
	n := 0
	for i := 0; i+1 < len(r.Maneuvers); i++ {
		if r.Maneuvers[i] == Straight && r.Maneuvers[i+1] == Waypoint {
			n++
		}
	}
	return n
}
