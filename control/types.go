// Package control holds the vocabulary shared by the line-following
// controllers: maneuver codes, pivot sides and the direction flag that
// crosses from the control loop into the odometry task.
package control

import (
	"fmt"
	"strings"
	"sync/atomic"
)

// Maneuver is one entry of the command list. The numeric values are the
// codes used in route tables.
type Maneuver uint8

const (
	Straight  Maneuver = 0
	TurnLeft  Maneuver = 1
	TurnRight Maneuver = 2
	UTurn     Maneuver = 3
	Waypoint  Maneuver = 5
	Goal      Maneuver = 6
)

var maneuverNames = map[Maneuver]string{
	Straight:  "STRAIGHT",
	TurnLeft:  "TURN_LEFT",
	TurnRight: "TURN_RIGHT",
	UTurn:     "U_TURN",
	Waypoint:  "WAYPOINT",
	Goal:      "GOAL",
}

func (m Maneuver) String() string {
	if s, ok := maneuverNames[m]; ok {
		return s
	}
	return fmt.Sprintf("Maneuver(%d)", uint8(m))
}

// Valid reports whether m is a known code.
func (m Maneuver) Valid() bool {
	_, ok := maneuverNames[m]
	return ok
}

// IsTurn reports whether m is executed by the pivot machine.
func (m Maneuver) IsTurn() bool {
	return m == TurnLeft || m == TurnRight || m == UTurn
}

// Side returns the pivot side for a turn code, SideNone otherwise.
func (m Maneuver) Side() Side {
	switch m {
	case TurnLeft:
		return SideLeft
	case TurnRight:
		return SideRight
	case UTurn:
		return SideUTurn
	}
	return SideNone
}

// ParseManeuver accepts either a name ("left", "TURN_LEFT", "fruit") or a
// numeric code.
func ParseManeuver(s string) (Maneuver, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "0", "S", "STRAIGHT":
		return Straight, nil
	case "1", "L", "LEFT", "TURN_LEFT":
		return TurnLeft, nil
	case "2", "R", "RIGHT", "TURN_RIGHT":
		return TurnRight, nil
	case "3", "U", "UTURN", "U_TURN":
		return UTurn, nil
	case "5", "W", "WAYPOINT", "FRUIT":
		return Waypoint, nil
	case "6", "G", "GOAL", "END":
		return Goal, nil
	}
	return 0, fmt.Errorf("unknown maneuver %q", s)
}

// Side selects a pivot direction.
type Side uint8

const (
	SideNone  Side = 0
	SideLeft  Side = 1
	SideRight Side = 2
	SideUTurn Side = 3
)

func (s Side) String() string {
	switch s {
	case SideNone:
		return "none"
	case SideLeft:
		return "left"
	case SideRight:
		return "right"
	case SideUTurn:
		return "uturn"
	}
	return fmt.Sprintf("Side(%d)", uint8(s))
}

// Direction is the shared pivot request flag. The path runner sets it to
// request a turn, the pivot machine clears it on completion, and the
// odometry task reads it to decide whether the encoders are its to consume.
type Direction struct {
	v atomic.Uint32
}

// Load returns the current side.
func (d *Direction) Load() Side {
	return Side(d.v.Load())
}

// Store sets the current side.
func (d *Direction) Store(s Side) {
	d.v.Store(uint32(s))
}

// Clear resets the flag to SideNone.
func (d *Direction) Clear() {
	d.v.Store(uint32(SideNone))
}

// Pivoting reports whether a turn is latched.
func (d *Direction) Pivoting() bool {
	return d.Load() != SideNone
}
