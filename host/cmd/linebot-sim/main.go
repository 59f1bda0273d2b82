// Command linebot-sim runs a mission against the simulated robot and prints
// the event log the firmware reports over its wire protocol.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"linebot/control"
	"linebot/control/config"
	"linebot/control/path"
	"linebot/control/pivot"
	"linebot/core"
	"linebot/host/mission"
	"linebot/protocol"
	"linebot/robot"
	"linebot/sim"
)

var (
	missionPath = flag.String("mission", "", "YAML mission file (default: built-in competition route)")
	segment     = flag.Float64("segment", 0, "Tape length between junctions in mm (overrides the mission)")
	timeout     = flag.Duration("timeout", 5*time.Minute, "Simulated time limit")
	telemetry   = flag.Uint("telemetry", 0, "Print a status line every N control ticks (0 = off)")
	obstacleAt  = flag.Duration("obstacle-at", 0, "Place an obstacle in front of the robot at this simulated time")
	obstacleFor = flag.Duration("obstacle-for", time.Second, "How long the obstacle stays")
	verbose     = flag.Bool("verbose", false, "Print firmware debug output")
)

func main() {
	flag.Parse()
	log.SetFlags(0)
	log.SetPrefix("linebot-sim: ")

	name, cfg, segmentMM := loadMission()
	if *segment > 0 {
		segmentMM = *segment
	}
	cfg.Telemetry.IntervalTicks = uint32(*telemetry)
	if *obstacleAt > 0 {
		cfg.Obstacle.Enabled = true
	}

	if *verbose {
		core.SetDebugWriter(func(s string) { fmt.Fprintln(os.Stderr, s) })
		core.SetDebugEnabled(true)
	}

	track := sim.TrackFor(cfg.Route, segmentMM)
	s := sim.New(cfg, track)
	r, err := robot.New(cfg)
	if err != nil {
		log.Fatalf("robot: %v", err)
	}
	if cfg.Obstacle.Enabled {
		r.SetRangeSensor(s.HW.Range)
	}

	out := protocol.NewScratchOutput()
	tr := protocol.NewTransport(out, r.HandleCommand)
	r.AttachTransport(tr)

	fmt.Printf("Mission %q: %d maneuvers, %d segments of track\n", name, len(cfg.Route.Maneuvers), len(track))
	start := s.Now()
	r.Start(start)

	var (
		pending []byte
		period  = time.Duration(cfg.Timing.ControlPeriodMS) * time.Millisecond
	)
	for s.Elapsed() < *timeout && !r.Done() {
		s.Run(r, period, r.Done)
		placeObstacle(s)

		pending = append(pending, out.Result()...)
		out.Reset()
		payloads, rest := protocol.SplitFrames(pending)
		pending = append([]byte(nil), rest...)
		for _, p := range payloads {
			report(p, start)
		}
	}

	fmt.Println()
	fmt.Printf("Simulated %v, traveled %.0f mm, world pose %+v\n", s.Elapsed(), s.World.Traveled(), s.World.Pose())
	st := r.Status()
	fmt.Printf("Final status: cursor=%d maneuver=%s phase=%s distance=%dmm halt=%d line=%06b\n",
		st.Cursor, control.Maneuver(st.Maneuver), path.Phase(st.Phase), st.Distance, st.HaltReason, st.OnLine)
	completed, timeouts, _ := r.Pivot().Stats()
	fmt.Printf("Pivots %d (timeouts %d), driver errors %d\n", completed, timeouts, r.DriverErrors())
	if in, bad := tr.Stats(); bad != 0 {
		log.Printf("transport: %d frames, %d bad", in, bad)
	}

	if !r.Done() {
		log.Printf("mission did not reach GOAL within %v", *timeout)
		os.Exit(1)
	}
}

func loadMission() (string, *control.Config, float64) {
	if *missionPath == "" {
		return "built-in", config.Default(), mission.DefaultSegmentMM
	}
	m, err := mission.Load(*missionPath)
	if err != nil {
		log.Fatal(err)
	}
	return m.Name, m.Config, m.SegmentMM
}

func placeObstacle(s *sim.Sim) {
	if *obstacleAt <= 0 {
		return
	}
	el := s.Elapsed()
	if el >= *obstacleAt && el < *obstacleAt+*obstacleFor {
		s.HW.Range.Set(40)
	} else {
		s.HW.Range.Set(2000)
	}
}

// report prints every message in one frame payload
func report(payload []byte, start uint32) {
	for len(payload) > 0 {
		id, err := protocol.DecodeVLQUint(&payload)
		if err != nil {
			log.Printf("bad frame: %v", err)
			return
		}
		switch uint16(id) {
		case protocol.MsgEvent:
			e, err := protocol.DecodeEvent(&payload)
			if err != nil {
				log.Printf("bad event: %v", err)
				return
			}
			fmt.Printf("%9.3fs  cur=%3d  %-14s v1=%d v2=%d\n",
				seconds(e.Clock-start), e.Cursor, core.EventName(e.Type), e.Value1, e.Value2)

		case protocol.MsgStatus:
			st, err := protocol.DecodeStatus(&payload)
			if err != nil {
				log.Printf("bad status: %v", err)
				return
			}
			fmt.Printf("%9.3fs  cur=%3d  %-8s pivot=%-7s dist=%5dmm steer=%4d line=%06b halt=%d\n",
				seconds(st.Clock-start), st.Cursor, path.Phase(st.Phase), pivot.State(st.PivotState),
				st.Distance, st.Steer, st.OnLine, st.HaltReason)

		default:
			log.Printf("unexpected message %d", id)
			return
		}
	}
}

func seconds(ticks uint32) float64 {
	return float64(core.TimerToUS(ticks)) / 1e6
}
