package config

import (
	"errors"
	"testing"

	"linebot/control"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default config invalid: %v", err)
	}

	if n := len(cfg.Route.Maneuvers); n != 141 {
		t.Errorf("Expected 141 maneuvers, got %d", n)
	}
	if cfg.Route.Maneuvers[len(cfg.Route.Maneuvers)-1] != control.Goal {
		t.Error("Route must end with GOAL")
	}
	if n := cfg.Route.ArmedWaypoints(); n != 4 {
		t.Errorf("Expected 4 armed waypoints, got %d", n)
	}
	if got := cfg.Odometry.MMPerCountX1000(); got != 937 {
		t.Errorf("MMPerCountX1000 = %d, want 937", got)
	}
}

func TestDefaultRouteIsCopy(t *testing.T) {
	a := DefaultRoute()
	a[0] = control.Goal
	if DefaultRoute()[0] != control.Straight {
		t.Error("DefaultRoute returned shared storage")
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	data := []byte(`{
		"steering": {"kp": 10, "ki": 1},
		"pivot": {"prep_ms": 0},
		"route": {"maneuvers": [0, "left", 0, "GOAL"], "waypoints_mm": []}
	}`)
	cfg, err := LoadConfig(data)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Steering.Kp != 10 || cfg.Steering.Ki != 1 {
		t.Errorf("Gains not applied: kp=%v ki=%v", cfg.Steering.Kp, cfg.Steering.Ki)
	}
	// Unmentioned fields keep defaults
	if cfg.Steering.OutputLimit != 11 || cfg.Drive.CenterDuty != 25 {
		t.Errorf("Defaults lost: limit=%v center=%d", cfg.Steering.OutputLimit, cfg.Drive.CenterDuty)
	}
	// Zero prep is meaningful and must survive
	if cfg.Pivot.PrepMS != 0 {
		t.Errorf("PrepMS = %d, want 0", cfg.Pivot.PrepMS)
	}
	want := []control.Maneuver{control.Straight, control.TurnLeft, control.Straight, control.Goal}
	if len(cfg.Route.Maneuvers) != len(want) {
		t.Fatalf("Route = %v", cfg.Route.Maneuvers)
	}
	for i := range want {
		if cfg.Route.Maneuvers[i] != want[i] {
			t.Errorf("Route[%d] = %v, want %v", i, cfg.Route.Maneuvers[i], want[i])
		}
	}
}

func TestLoadConfigRepairsPeriods(t *testing.T) {
	cfg, err := LoadConfig([]byte(`{"timing": {"control_period_ms": 0, "odometry_period_ms": 0}}`))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Timing.ControlPeriodMS != 8 || cfg.Timing.OdometryPeriodMS != 5 {
		t.Errorf("Periods not repaired: %+v", cfg.Timing)
	}
}

func TestLoadConfigRejects(t *testing.T) {
	tests := []struct {
		name string
		json string
		want error
	}{
		{"empty route", `{"route": {"maneuvers": []}}`, control.ErrEmptyRoute},
		{"no goal", `{"route": {"maneuvers": [0, 1, 0]}}`, control.ErrRouteNoGoal},
		{"unknown code", `{"route": {"maneuvers": [0, 4, 6]}}`, nil},
		{"inverted band", `{"sensors": {"band_min": 200, "band_max": 100}}`, nil},
		{"channel range", `{"sensors": {"intersection_channels": [0, 9]}}`, nil},
		{"stuck hysteresis", `{"sensors": {"band_min": 10, "hysteresis": 10}}`, nil},
		{"bad json", `{"route": `, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig([]byte(tt.json))
			if err == nil {
				t.Fatal("Expected error")
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestTicks(t *testing.T) {
	timing := control.TimingConfig{ControlPeriodMS: 8}
	tests := []struct {
		ms   uint32
		want uint32
	}{
		{0, 0},
		{1, 1},
		{8, 1},
		{9, 2},
		{100, 13},
		{400, 50},
		{500, 63},
		{5000, 625},
	}
	for _, tt := range tests {
		if got := timing.Ticks(tt.ms); got != tt.want {
			t.Errorf("Ticks(%d) = %d, want %d", tt.ms, got, tt.want)
		}
	}
}
