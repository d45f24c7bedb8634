package scheduler

import "github.com/otuschhoff/dwalk/internal/walk"

// Counters accumulates one peer's lifetime statistics: the walker's
// file/directory/byte counts plus the scheduler's own message and
// loop-iteration tallies, reduced once at shutdown for reporting only —
// none of this influences correctness.
type Counters struct {
	walk.Counters
	MessagesSent     int64
	MessagesReceived int64
	LoopIterations   int64
	Rounds           int64
}

// Add merges another peer's counters into this one.
func (c *Counters) Add(o Counters) {
	c.Counters.Add(o.Counters)
	c.MessagesSent += o.MessagesSent
	c.MessagesReceived += o.MessagesReceived
	c.LoopIterations += o.LoopIterations
	c.Rounds += o.Rounds
}
