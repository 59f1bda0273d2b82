//go:build tinygo

package core

import "sync/atomic"

// systemTicksValue is written from the clock update in the main loop and may
// be read from interrupt handlers.
var systemTicksValue uint32

// getSystemTicks returns the current system ticks
func getSystemTicks() uint32 {
	return atomic.LoadUint32(&systemTicksValue)
}

// setSystemTicks sets the system ticks
func setSystemTicks(ticks uint32) {
	atomic.StoreUint32(&systemTicksValue, ticks)
}
