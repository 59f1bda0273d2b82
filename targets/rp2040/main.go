//go:build rp2040

package main

import (
	"machine"
	"time"

	"linebot/control/config"
	"linebot/core"
	"linebot/protocol"
	"linebot/robot"
	"linebot/targets/pio"
)

var (
	// Buffers for communication
	inputBuffer  *protocol.FifoBuffer
	outputBuffer *protocol.ScratchOutput
	transport    *protocol.Transport

	msgerrors uint32

	// USB connection state tracking
	usbWasDisconnected       bool
	consecutiveWriteFailures uint32
)

func main() {
	// Clear any watchdog state left over from a previous run
	if err := machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: 0}); err != nil {
		return
	}

	if err := InitUSB(); err != nil {
		halt()
	}
	core.TimerInit()
	UpdateSystemTime()

	// Debug text shares the USB link; the host resynchronizes on the
	// frame sync byte
	core.SetDebugWriter(func(s string) {
		machine.Serial.Write([]byte(s + "\r\n"))
	})

	core.SetADCDriver(NewMuxADCDriver(muxOutput, muxSelect0, muxSelect1, muxSelect2))
	core.SetGPIODriver(NewRPGPIODriver())
	core.SetPWMDriver(NewRP2040PWMDriver())
	encoders, err := pio.NewEncoders(leftEncoderA, rightEncoderA, false, true)
	if err != nil {
		halt()
	}
	core.SetEncoderDriver(encoders)

	cfg := config.Default()
	bot, err := robot.New(cfg)
	if err != nil {
		halt()
	}
	if cfg.Obstacle.Enabled {
		sensor, err := NewRangeSensor(cfg.Obstacle.I2CAddress)
		if err != nil {
			core.DebugPrintln("[MAIN] range sensor: " + err.Error())
		} else {
			bot.SetRangeSensor(sensor)
		}
	}

	inputBuffer = protocol.NewFifoBuffer(256)
	outputBuffer = protocol.NewScratchOutput()
	transport = protocol.NewTransport(outputBuffer, bot.HandleCommand)
	transport.SetResetCallback(func() {
		inputBuffer.Reset()
		outputBuffer.Reset()
	})
	// ACKs go out before the next report so the host sees them in order
	transport.SetFlushCallback(writeUSB)
	bot.AttachTransport(transport)

	statusLED.Configure(machine.PinConfig{Mode: machine.PinOutput})

	go usbReaderLoop()

	bot.Start(UpdateSystemTime())
	for {
		func() {
			defer func() {
				if r := recover(); r != nil {
					msgerrors++
					inputBuffer.Reset()
					outputBuffer.Reset()
				}
			}()

			now := UpdateSystemTime()

			if inputBuffer.Available() > 0 {
				data := inputBuffer.Data()
				originalLen := len(data)
				inputBuf := protocol.NewSliceInputBuffer(data)
				transport.Receive(inputBuf)
				if consumed := originalLen - inputBuf.Available(); consumed > 0 {
					inputBuffer.Pop(consumed)
				}
			}

			bot.Poll(now)

			if len(outputBuffer.Result()) > 0 {
				writeUSB()
			}

			// Heartbeat: fast blink while halted, slow while running
			period := uint32(1000000)
			if bot.Halted() != protocol.HaltNone {
				period = 200000
			}
			statusLED.Set(now%period < period/2)
		}()

		time.Sleep(10 * time.Microsecond)
	}
}

// usbReaderLoop moves received bytes into the input FIFO
func usbReaderLoop() {
	defer func() {
		if r := recover(); r != nil {
			msgerrors++
			time.Sleep(100 * time.Millisecond)
			go usbReaderLoop()
		}
	}()

	for {
		if USBAvailable() > 0 {
			data, err := USBRead()
			if err != nil {
				msgerrors++
				time.Sleep(time.Millisecond)
				continue
			}

			// A host reconnecting starts a new sequence
			if usbWasDisconnected {
				usbWasDisconnected = false
				inputBuffer.Reset()
				outputBuffer.Reset()
				transport.Reset()
				consecutiveWriteFailures = 0
			}

			if inputBuffer.Write([]byte{data}) == 0 {
				msgerrors++
				time.Sleep(10 * time.Millisecond)
			}
		}
		time.Sleep(100 * time.Microsecond)
	}
}

// writeUSB sends the output buffer. Repeated failures mean the host has
// gone away; pending output is dropped rather than queued.
func writeUSB() {
	result := outputBuffer.Result()
	written := 0
	for written < len(result) {
		n, err := USBWriteBytes(result[written:])
		if err != nil || n == 0 {
			consecutiveWriteFailures++
			if consecutiveWriteFailures > 10 {
				usbWasDisconnected = true
				consecutiveWriteFailures = 0
				outputBuffer.Reset()
				inputBuffer.Reset()
			}
			return
		}
		written += n
	}
	consecutiveWriteFailures = 0
	outputBuffer.Reset()
}

// halt parks the firmware with the LED lit when startup fails. The robot
// never drives without its drivers.
func halt() {
	statusLED.Configure(machine.PinConfig{Mode: machine.PinOutput})
	statusLED.High()
	for {
		time.Sleep(time.Second)
	}
}
