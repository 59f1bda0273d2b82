// Package mission reads YAML mission files for the host tools.
//
// A mission names a route, its waypoint distances and any tunables that
// differ from the built-in configuration:
//
//	name: practice loop
//	route: [straight, left, straight, fruit, uturn, straight, right, goal]
//	waypoints_mm: [40]
//	segment_mm: 300
//	tunables:
//	  drive:
//	    center_duty: 20
//	  sensors:
//	    hysteresis: 4
//
// The tunables tree uses the same keys as the JSON configuration.
package mission

import (
	"encoding/json"
	"fmt"
	"os"

	yaml "gopkg.in/yaml.v2"

	"linebot/control"
	"linebot/control/config"
)

// DefaultSegmentMM is the simulated tape length between junctions when a
// mission does not set one
const DefaultSegmentMM = 300

// File is the on-disk layout
type File struct {
	Name        string                      `yaml:"name"`
	Route       []string                    `yaml:"route"`
	WaypointsMM []int32                     `yaml:"waypoints_mm"`
	SegmentMM   float64                     `yaml:"segment_mm"`
	Tunables    map[interface{}]interface{} `yaml:"tunables"`
}

// Mission is a parsed mission ready to run
type Mission struct {
	Name      string
	Config    *control.Config
	SegmentMM float64
}

// Load reads and parses a mission file
func Load(path string) (*Mission, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read mission: %w", err)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// Parse builds a Mission from YAML. An empty route keeps the built-in
// route and waypoint table.
func Parse(data []byte) (*Mission, error) {
	var f File
	if err := yaml.UnmarshalStrict(data, &f); err != nil {
		return nil, fmt.Errorf("parse mission: %w", err)
	}

	doc := []byte("{}")
	if len(f.Tunables) > 0 {
		tree, err := jsonTree(f.Tunables)
		if err != nil {
			return nil, fmt.Errorf("tunables: %w", err)
		}
		if doc, err = json.Marshal(tree); err != nil {
			return nil, fmt.Errorf("tunables: %w", err)
		}
	}
	cfg, err := config.LoadConfig(doc)
	if err != nil {
		return nil, err
	}

	if len(f.Route) > 0 {
		route := make([]control.Maneuver, 0, len(f.Route))
		for i, name := range f.Route {
			m, err := control.ParseManeuver(name)
			if err != nil {
				return nil, fmt.Errorf("route[%d]: %w", i, err)
			}
			route = append(route, m)
		}
		cfg.Route = control.RouteConfig{
			Maneuvers:   route,
			WaypointsMM: f.WaypointsMM,
		}
	} else if f.WaypointsMM != nil {
		cfg.Route.WaypointsMM = f.WaypointsMM
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid mission: %w", err)
	}

	m := &Mission{
		Name:      f.Name,
		Config:    cfg,
		SegmentMM: f.SegmentMM,
	}
	if m.SegmentMM <= 0 {
		m.SegmentMM = DefaultSegmentMM
	}
	return m, nil
}

// jsonTree rewrites the map[interface{}]interface{} nodes yaml.v2 produces
// into string-keyed maps encoding/json accepts
func jsonTree(v interface{}) (interface{}, error) {
	switch n := v.(type) {
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(n))
		for k, child := range n {
			key, ok := k.(string)
			if !ok {
				return nil, fmt.Errorf("key %v is not a string", k)
			}
			c, err := jsonTree(child)
			if err != nil {
				return nil, fmt.Errorf("%s.%w", key, err)
			}
			out[key] = c
		}
		return out, nil
	case []interface{}:
		out := make([]interface{}, len(n))
		for i, child := range n {
			c, err := jsonTree(child)
			if err != nil {
				return nil, err
			}
			out[i] = c
		}
		return out, nil
	}
	return v, nil
}
