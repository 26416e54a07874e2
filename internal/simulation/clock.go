package simulation

import (
	"fmt"
)

// VirtualClock is the monotonic simulation time
type VirtualClock struct {
	now float64
}

// Now returns the current simulation time
func (c *VirtualClock) Now() float64 {
	return c.now
}

// AdvanceTo moves the clock forward. Going back in time is an error.
func (c *VirtualClock) AdvanceTo(t float64) error {
	if t < c.now {
		return fmt.Errorf("clock cannot move backwards from %f to %f", c.now, t)
	}
	c.now = t
	return nil
}
