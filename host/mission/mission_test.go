package mission

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"linebot/control"
	"linebot/control/config"
)

const practice = `
name: practice loop
route: [straight, left, straight, fruit, uturn, straight, right, goal]
waypoints_mm: [40]
segment_mm: 250
tunables:
  drive:
    center_duty: 20
  sensors:
    hysteresis: 4
  path:
    waypoint_hold_ms: 1500
`

func TestParse(t *testing.T) {
	m, err := Parse([]byte(practice))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if m.Name != "practice loop" || m.SegmentMM != 250 {
		t.Errorf("Name/SegmentMM = %q/%v", m.Name, m.SegmentMM)
	}

	want := []control.Maneuver{
		control.Straight, control.TurnLeft, control.Straight, control.Waypoint,
		control.UTurn, control.Straight, control.TurnRight, control.Goal,
	}
	got := m.Config.Route.Maneuvers
	if len(got) != len(want) {
		t.Fatalf("route = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("route[%d] = %v, want %v", i, got[i], want[i])
		}
	}
	if len(m.Config.Route.WaypointsMM) != 1 || m.Config.Route.WaypointsMM[0] != 40 {
		t.Errorf("waypoints = %v", m.Config.Route.WaypointsMM)
	}

	if m.Config.Drive.CenterDuty != 20 || m.Config.Sensors.Hysteresis != 4 || m.Config.Path.WaypointHoldMS != 1500 {
		t.Errorf("tunables not applied: drive %+v sensors %+v path %+v", m.Config.Drive, m.Config.Sensors, m.Config.Path)
	}

	// Untouched values keep their defaults
	def := config.Default()
	if m.Config.Sensors.BandMin != def.Sensors.BandMin || m.Config.Pivot.TargetLeft != def.Pivot.TargetLeft {
		t.Error("Defaults lost under tunables")
	}
}

func TestParseDefaults(t *testing.T) {
	m, err := Parse([]byte("name: stock\n"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if m.SegmentMM != DefaultSegmentMM {
		t.Errorf("SegmentMM = %v, want %v", m.SegmentMM, DefaultSegmentMM)
	}
	if len(m.Config.Route.Maneuvers) != len(config.DefaultRoute()) {
		t.Errorf("route length = %d, want built-in %d", len(m.Config.Route.Maneuvers), len(config.DefaultRoute()))
	}
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"unknown maneuver", "route: [straight, hop, goal]\n", "route[1]"},
		{"no goal", "route: [straight, left]\n", "invalid mission"},
		{"unknown field", "name: x\nspeed: 3\n", "parse mission"},
		{"bad tunable", "tunables:\n  sensors:\n    band_min: 90\n    band_max: 20\n", "invalid config"},
		{"non-string key", "tunables:\n  1: 2\n", "tunables"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Parse error = %v, want containing %q", err, tt.want)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "practice.yaml")
	if err := os.WriteFile(path, []byte(practice), 0o644); err != nil {
		t.Fatal(err)
	}
	m, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if m.Name != "practice loop" {
		t.Errorf("Name = %q", m.Name)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Expected error for missing file")
	}
}
