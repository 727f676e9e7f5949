// Package bot drives AI-controlled seats on the host. AI players act
// through the same intent path as remote peers, so the engine cannot
// tell them apart from humans.
package bot

import "time"

// Speed paces AI turns so human players can follow along.
type Speed string

const (
	SpeedSlow    Speed = "slow"
	SpeedNormal  Speed = "normal"
	SpeedFast    Speed = "fast"
	SpeedInstant Speed = "instant"
)

// ParseSpeed maps a config string onto a Speed, defaulting to normal.
func ParseSpeed(s string) Speed {
	switch Speed(s) {
	case SpeedSlow, SpeedNormal, SpeedFast, SpeedInstant:
		return Speed(s)
	default:
		return SpeedNormal
	}
}

// Delay is the pause before each AI action.
func (s Speed) Delay() time.Duration {
	switch s {
	case SpeedSlow:
		return 2000 * time.Millisecond
	case SpeedFast:
		return 500 * time.Millisecond
	case SpeedInstant:
		return 0
	default:
		return 1000 * time.Millisecond
	}
}
