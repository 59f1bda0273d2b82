// PWM duty mapping for locked anti-phase H-bridge drive
// A 50% compare value holds the motor still; values above drive one way,
// values below the other.
package core

// ClampPercent limits a signed duty to [-100, 100].
func ClampPercent(p int) int {
	if p > 100 {
		return 100
	}
	if p < -100 {
		return -100
	}
	return p
}

// DutyToCompare converts a signed duty percent to a compare value for a
// counter whose top is max.
func DutyToCompare(percent int, max uint32) PWMValue {
	p := int64(ClampPercent(percent))
	v := int64(max)/2 + int64(max)*p/200
	if v < 0 {
		v = 0
	}
	if v > int64(max) {
		v = int64(max)
	}
	return PWMValue(v)
}

// CompareToDuty is the inverse of DutyToCompare, rounded to the nearest percent.
func CompareToDuty(v PWMValue, max uint32) int {
	if max == 0 {
		return 0
	}
	num := (int64(v) - int64(max)/2) * 200
	den := int64(max)
	if num >= 0 {
		return ClampPercent(int((num + den/2) / den))
	}
	return ClampPercent(int((num - den/2) / den))
}
