package config

import (
	"encoding/json"
	"fmt"

	"linebot/control"
)

// LoadConfig parses a JSON configuration. Fields missing from the document
// keep their built-in defaults, so a file only needs the values it changes.
func LoadConfig(jsonData []byte) (*control.Config, error) {
	config := Default()

	if err := json.Unmarshal(jsonData, config); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// Apply defaults
	applyDefaults(config)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return config, nil
}

// applyDefaults repairs values an override zeroed that no controller can
// run with
func applyDefaults(config *control.Config) {
	// Task periods
	if config.Timing.ControlPeriodMS == 0 {
		config.Timing.ControlPeriodMS = 8
	}
	if config.Timing.OdometryPeriodMS == 0 {
		config.Timing.OdometryPeriodMS = 5
	}

	// Drive train
	if config.Odometry.PiX1000 == 0 {
		config.Odometry.PiX1000 = 3142
	}
	if config.Odometry.CalibrationX1000 == 0 {
		config.Odometry.CalibrationX1000 = 1000
	}

	// Sensors
	if config.Sensors.Samples == 0 {
		config.Sensors.Samples = 256
	}
	if config.Sensors.DebounceTicks == 0 {
		config.Sensors.DebounceTicks = 1
	}
	if config.Sensors.ClearTicks == 0 {
		config.Sensors.ClearTicks = 1
	}

	// Steering
	if config.Steering.Gain == 0 {
		config.Steering.Gain = 1
	}

	// Motor sign must be +1 or -1
	if config.Drive.LeftSign == 0 {
		config.Drive.LeftSign = 1
	}
	if config.Drive.RightSign == 0 {
		config.Drive.RightSign = -1
	}
	if config.Drive.PWMPeriodNs == 0 {
		config.Drive.PWMPeriodNs = 50000 // 20 kHz
	}

	if config.Obstacle.PollTicks == 0 {
		config.Obstacle.PollTicks = 6
	}
	if config.Obstacle.I2CAddress == 0 {
		config.Obstacle.I2CAddress = 0x29
	}
}

// Default returns the competition configuration
func Default() *control.Config {
	return &control.Config{
		Timing: control.TimingConfig{
			ControlPeriodMS:  8,
			OdometryPeriodMS: 5,
		},
		Odometry: control.OdometryConfig{
			CountsPerRev:     228,
			WheelRadiusMM:    34,
			PiX1000:          3142,
			CalibrationX1000: 1000,
		},
		Sensors: control.SensorConfig{
			Channels:             6,
			Samples:              256,
			BandMin:              10,
			BandMax:              100,
			Hysteresis:           6,
			DebounceTicks:        5,
			ClearTicks:           4,
			IntersectionChannels: []int{0, 1},
		},
		Steering: control.SteeringConfig{
			Track: []control.ChannelWeight{
				{Channel: 2, Weight: -1},
				{Channel: 5, Weight: 1},
			},
			PredictGain:   0.25,
			Gain:          1.5,
			Kp:            18,
			Ki:            2,
			IntegralLimit: 30,
			OutputLimit:   11,
			LossEpsilon:   0.06,
			LossTimeoutMS: 250,
			LossDecay:     0.92,
		},
		Drive: control.DriveConfig{
			CenterDuty:       25,
			RightTrimPercent: 5,
			MinForwardDuty:   15,
			LeftSign:         1,
			RightSign:        -1,
			PWMPeriodNs:      50000,
			LeftPWMPin:       16,
			RightPWMPin:      18,
			LeftDisablePin:   20,
			RightDisablePin:  21,
		},
		Pivot: control.PivotConfig{
			TargetLeft:  90,
			TargetRight: 90,
			TargetUTurn: 180,
			SpeedLeft:   24,
			SpeedRight:  24,
			SpeedUTurn:  42,
			SafetyTicks: 400,
			PrepMS:      100,
			BrakeMS:     500,
		},
		Path: control.PathConfig{
			WaypointHoldMS: 5000,
			TurnCooldownMS: 400,
		},
		Telemetry: control.TelemetryConfig{
			IntervalTicks: 12,
		},
		Obstacle: control.ObstacleConfig{
			Enabled:    false,
			HaltMM:     120,
			ClearMM:    180,
			PollTicks:  6,
			I2CAddress: 0x29,
		},
		Route: control.RouteConfig{
			Maneuvers:   DefaultRoute(),
			WaypointsMM: DefaultWaypoints(),
		},
	}
}

// Competition track, one code per track segment or junction action:
// 0 straight, 1 left, 2 right, 3 U-turn, 5 waypoint stop, 6 goal
var defaultRoute = [...]uint8{
	0, 1, 0, 2, 0, 1, 0, 1, 0, 2, 0, 2, 0, 2, 0, 2, 0, 1, 0, 1, 0, 2, 0, 2, 0, 1, 0, 1, 0, 2, 0, 2,
	0, 1, 0, 1, 0, 2, 0, 5, 3, 0, 2, 0, 2, 0, 1, 0, 1, 0, 1, 0, 2, 0, 1, 0, 1, 0, 2, 0, 2, 0, 2, 0,
	1, 0, 2, 0, 2, 0, 1, 0, 1, 0, 5, 3, 0, 1, 0, 2, 0, 2, 0, 2, 0, 2, 0, 1, 0, 1, 0, 2, 0, 2, 0, 1,
	0, 1, 0, 1, 0, 2, 0, 2, 0, 5, 3, 0, 0, 2, 0, 5, 3, 0, 2, 0, 1, 0, 1, 0, 2, 0, 2, 0, 1, 0, 1, 0,
	1, 0, 2, 0, 2, 0, 1, 0, 1, 0, 1, 0, 6,
}

var defaultWaypoints = [...]int32{40, 40, 120, 40, 160}

// DefaultRoute returns a fresh copy of the built-in maneuver list
func DefaultRoute() []control.Maneuver {
	route := make([]control.Maneuver, len(defaultRoute))
	for i, code := range defaultRoute {
		route[i] = control.Maneuver(code)
	}
	return route
}

// DefaultWaypoints returns a fresh copy of the built-in distance table
func DefaultWaypoints() []int32 {
	return append([]int32(nil), defaultWaypoints[:]...)
}
