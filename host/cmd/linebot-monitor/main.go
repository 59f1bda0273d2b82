// Command linebot-monitor shows live telemetry from the robot and sends
// supervisory commands from the keyboard.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/gdamore/tcell/v2"

	"linebot/host/monitor"
	"linebot/host/serial"
)

var (
	device    = flag.String("device", serial.AutoDevice, "Serial device path, or auto to find the robot")
	baud      = flag.Int("baud", 115200, "Baud rate (ignored for USB CDC)")
	interval  = flag.Uint("telemetry", 12, "Status interval in control ticks")
	listPorts = flag.Bool("list", false, "List serial ports and exit")
)

func main() {
	flag.Parse()
	log.SetFlags(0)
	log.SetPrefix("linebot-monitor: ")

	if *listPorts {
		ports, err := serial.ListPorts()
		if err != nil {
			log.Fatal(err)
		}
		for _, p := range ports {
			mark := " "
			if p.Robot() {
				mark = "*"
			}
			fmt.Printf("%s %-16s usb=%-5v %s:%s %s\n", mark, p.Name, p.USB, p.VID, p.PID, p.Product)
		}
		return
	}

	cfg := serial.DefaultConfig(*device)
	cfg.Baud = *baud
	mon, err := monitor.Dial(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer mon.Close()

	version, err := mon.Identify(2 * time.Second)
	if err != nil {
		log.Fatal(err)
	}
	if err := mon.SetTelemetry(uint32(*interval)); err != nil {
		log.Fatalf("set telemetry: %v", err)
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		log.Fatalf("screen: %v", err)
	}
	if err := screen.Init(); err != nil {
		log.Fatalf("screen: %v", err)
	}

	d := newDashboard(screen, version)
	err = run(screen, mon, d)
	screen.Fini()

	// Leave the robot quiet for the next session
	mon.SetTelemetry(0)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(screen tcell.Screen, mon *monitor.Monitor, d *dashboard) error {
	eventChan := make(chan tcell.Event, 16)
	go func() {
		for {
			ev := screen.PollEvent()
			if ev == nil {
				return
			}
			eventChan <- ev
		}
	}()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	debug := false
	for {
		select {
		case ev := <-eventChan:
			switch ev := ev.(type) {
			case *tcell.EventKey:
				if ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC {
					return nil
				}
				if ev.Key() != tcell.KeyRune {
					continue
				}
				var err error
				switch ev.Rune() {
				case 'q':
					return nil
				case 'e', ' ':
					err = mon.Estop()
					d.note("estop sent", err)
				case 'r':
					err = mon.Resume()
					d.note("resume sent", err)
				case 'd':
					d.clearLog()
					err = mon.DumpEvents()
					d.note("event dump requested", err)
				case 'g':
					debug = !debug
					err = mon.SetDebug(debug)
					d.note(fmt.Sprintf("debug %v", debug), err)
				}
			case *tcell.EventResize:
				screen.Sync()
			}

		case e := <-mon.Events():
			d.addEvent(e)

		case <-ticker.C:
			st, at := mon.Status()
			statuses, dropped, _ := mon.Stats()
			d.draw(st, at, statuses, dropped)
		}
	}
}
