// Package steering implements the line-tracking PI controller.
//
// The controller turns normalized channel contrasts into a signed steering
// percentage: positive steer speeds up the right wheel and slows the left.
package steering

import "linebot/control"

// saturationTolerance treats outputs this close to the limit as saturated
const saturationTolerance = 1e-3

// Controller holds the PI state. It is reset whenever a pivot completes.
type Controller struct {
	cfg      control.SteeringConfig
	dt       float32
	periodMS uint32

	integral float32
	output   float32

	lost   bool
	lossMS uint32
}

// New creates a controller running once per control period
func New(cfg control.SteeringConfig, timing control.TimingConfig) *Controller {
	gain := cfg.Gain
	if gain == 0 {
		gain = 1
	}
	cfg.Gain = gain
	return &Controller{
		cfg:      cfg,
		dt:       timing.DT(),
		periodMS: timing.ControlPeriodMS,
	}
}

// Reset clears the integral, the held output and the loss timer
func (c *Controller) Reset() {
	c.integral = 0
	c.output = 0
	c.lost = false
	c.lossMS = 0
}

// Integral returns the integral accumulator
func (c *Controller) Integral() float32 { return c.integral }

// Output returns the last unrounded output
func (c *Controller) Output() float32 { return c.output }

// Lost reports whether the line was lost on the last update
func (c *Controller) Lost() bool { return c.lost }

// Update runs one control step. normalized holds every channel's contrast
// in [0,1], indexed by channel.
func (c *Controller) Update(normalized []float32) int {
	var sum, weighted float32
	for _, w := range c.cfg.Track {
		s := c.level(normalized, w.Channel)
		sum += s
		weighted += w.Weight * s
	}

	if sum < c.cfg.LossEpsilon {
		c.lost = true
		c.lossMS += c.periodMS
		if c.lossMS > c.cfg.LossTimeoutMS {
			c.integral *= c.cfg.LossDecay
		}
		return round(clamp(c.output, c.cfg.OutputLimit))
	}
	c.lost = false
	c.lossMS = 0

	e := weighted / sum
	bias := c.predict(normalized)

	candidate := clamp(c.integral+e*c.dt, c.cfg.IntegralLimit)
	raw := c.cfg.Kp*e + c.cfg.Ki*candidate + bias

	// Conditional integration: a saturated output keeps the old integral
	// when the new one would push it further out
	if c.saturated(raw) && c.cfg.Ki*(candidate-c.integral)*raw > 0 {
		candidate = c.integral
		raw = c.cfg.Kp*e + c.cfg.Ki*candidate + bias
	}

	c.integral = candidate
	c.output = clamp(raw, c.cfg.OutputLimit)
	return round(c.output)
}

// predict is the optional feed-forward term from the look-ahead channels
func (c *Controller) predict(normalized []float32) float32 {
	if len(c.cfg.Predict) == 0 {
		return 0
	}
	var bias float32
	for _, w := range c.cfg.Predict {
		bias += w.Weight * c.level(normalized, w.Channel)
	}
	return c.cfg.PredictGain * bias
}

func (c *Controller) level(normalized []float32, ch int) float32 {
	if ch < 0 || ch >= len(normalized) {
		return 0
	}
	s := normalized[ch] * c.cfg.Gain
	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}

func (c *Controller) saturated(u float32) bool {
	limit := c.cfg.OutputLimit - saturationTolerance
	return u >= limit || u <= -limit
}

func clamp(v, limit float32) float32 {
	if v > limit {
		return limit
	}
	if v < -limit {
		return -limit
	}
	return v
}

// round is half away from zero
func round(v float32) int {
	if v >= 0 {
		return int(v + 0.5)
	}
	return int(v - 0.5)
}
