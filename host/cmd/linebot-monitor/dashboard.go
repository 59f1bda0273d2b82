package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"

	"linebot/control"
	"linebot/control/path"
	"linebot/control/pivot"
	"linebot/core"
	"linebot/protocol"
)

const logLines = 12

var (
	styleText   = tcell.StyleDefault
	styleTitle  = tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true)
	styleOn     = tcell.StyleDefault.Foreground(tcell.ColorGreen)
	styleOff    = tcell.StyleDefault.Foreground(tcell.ColorGray)
	styleHalted = tcell.StyleDefault.Foreground(tcell.ColorWhite).Background(tcell.ColorRed).Bold(true)
	styleError  = tcell.StyleDefault.Foreground(tcell.ColorRed)
)

type dashboard struct {
	screen  tcell.Screen
	version string
	log     []string
	message string
	failed  bool
}

func newDashboard(screen tcell.Screen, version string) *dashboard {
	return &dashboard{screen: screen, version: version}
}

func (d *dashboard) addEvent(e protocol.Event) {
	d.log = append(d.log, formatEvent(e))
	if len(d.log) > logLines {
		d.log = d.log[len(d.log)-logLines:]
	}
}

func (d *dashboard) clearLog() { d.log = nil }

func (d *dashboard) note(msg string, err error) {
	d.failed = err != nil
	if err != nil {
		msg = fmt.Sprintf("%s: %v", msg, err)
	}
	d.message = msg
}

func (d *dashboard) draw(st protocol.Status, at time.Time, statuses, dropped uint32) {
	s := d.screen
	s.Clear()

	y := 0
	d.text(0, y, styleTitle, "linebot "+d.version)
	y += 2

	if at.IsZero() {
		d.text(0, y, styleOff, "waiting for telemetry...")
	} else {
		for _, line := range statusLines(st) {
			d.text(0, y, styleText, line)
			y++
		}
		d.text(0, y, styleOff, fmt.Sprintf("last report %v ago, %d reports, %d events dropped",
			time.Since(at).Round(time.Millisecond), statuses, dropped))
		y++
		if st.Halted() {
			d.text(0, y, styleHalted, " HALTED: "+haltName(st.HaltReason)+" ")
		}
		y += 2

		for ch, c := range st.Contrast {
			style := styleOff
			if st.OnLine&(1<<ch) != 0 {
				style = styleOn
			}
			d.text(0, y, style, fmt.Sprintf("ch%d %4d %s", ch, c, bar(c, 40)))
			y++
		}
	}
	y++

	d.text(0, y, styleTitle, "events")
	y++
	for _, line := range d.log {
		d.text(0, y, styleText, line)
		y++
	}
	y++

	if d.message != "" {
		style := styleText
		if d.failed {
			style = styleError
		}
		d.text(0, y, style, d.message)
		y++
	}
	d.text(0, y, styleOff, "e/space estop  r resume  d dump events  g debug  q quit")
	s.Show()
}

func (d *dashboard) text(x, y int, style tcell.Style, s string) {
	for _, r := range s {
		d.screen.SetContent(x, y, r, nil, style)
		x++
	}
}

// statusLines renders the scalar status fields
func statusLines(st protocol.Status) []string {
	return []string{
		fmt.Sprintf("cursor %3d  maneuver %-10s phase %-7s pivot %s",
			st.Cursor, control.Maneuver(st.Maneuver), path.Phase(st.Phase), pivot.State(st.PivotState)),
		fmt.Sprintf("distance %5d mm  steer %4d  line %06b  driver errors %d",
			st.Distance, st.Steer, st.OnLine, st.DriverErrors),
	}
}

func formatEvent(e protocol.Event) string {
	return fmt.Sprintf("%10d  cur=%3d  %-14s %d %d", e.Clock, e.Cursor, core.EventName(e.Type), e.Value1, e.Value2)
}

func haltName(reason uint8) string {
	switch reason {
	case protocol.HaltHost:
		return "host estop"
	case protocol.HaltObstacle:
		return "obstacle"
	}
	return fmt.Sprintf("reason %d", reason)
}

// barFull is the contrast drawn as a full bar; tape reads well below it
const barFull = 128

func bar(v uint16, width int) string {
	n := int(v) * width / barFull
	if n > width {
		n = width
	}
	return strings.Repeat("#", n) + strings.Repeat(".", width-n)
}
