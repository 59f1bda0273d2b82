//go:build rp2040

package main

import (
	"runtime/volatile"
	"unsafe"

	"linebot/core"
)

// RP2040 timer peripheral: a free-running 64-bit microsecond counter
const (
	timerBase     = 0x40054000
	timerTIMERAWH = timerBase + 0x24 // Raw timer high word, no latching
	timerTIMERAWL = timerBase + 0x28 // Raw timer low word, no latching
)

var (
	timerRAWH = (*volatile.Register32)(unsafe.Pointer(uintptr(timerTIMERAWH)))
	timerRAWL = (*volatile.Register32)(unsafe.Pointer(uintptr(timerTIMERAWL)))
)

// GetHardwareTime returns the low 32 bits of the microsecond counter.
// One core timer tick is one microsecond, so no scaling is needed.
func GetHardwareTime() uint32 {
	return timerRAWL.Get()
}

// GetHardwareUptime reads the full 64-bit counter
func GetHardwareUptime() uint64 {
	for {
		high1 := timerRAWH.Get()
		low := timerRAWL.Get()
		high2 := timerRAWH.Get()
		if high1 == high2 {
			return (uint64(high1) << 32) | uint64(low)
		}
		// Low word wrapped between the reads
	}
}

// UpdateSystemTime publishes the hardware counter as the core clock
func UpdateSystemTime() uint32 {
	now := GetHardwareTime()
	core.SetTime(now)
	return now
}
