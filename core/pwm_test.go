package core

import "testing"

func TestDutyToCompare(t *testing.T) {
	tests := []struct {
		percent int
		max     uint32
		want    PWMValue
	}{
		{0, 200, 100},
		{100, 200, 200},
		{-100, 200, 0},
		{50, 200, 150},
		{-25, 200, 75},
		{150, 200, 200},
		{-150, 200, 0},
		{10, 65535, 36043},
	}

	for _, tt := range tests {
		got := DutyToCompare(tt.percent, tt.max)
		if got != tt.want {
			t.Errorf("DutyToCompare(%d, %d) = %d, want %d", tt.percent, tt.max, got, tt.want)
		}
	}
}

func TestCompareToDutyInverse(t *testing.T) {
	for _, max := range []uint32{200, 1000, 65535} {
		for p := -100; p <= 100; p++ {
			if got := CompareToDuty(DutyToCompare(p, max), max); got != p {
				t.Errorf("max=%d: round trip of %d gave %d", max, p, got)
			}
		}
	}
}
