package scheduler

import "github.com/otuschhoff/dwalk/internal/transport"

// registers holds, per victim/requester, the one outstanding handle each of
// the steal client and the donor server is allowed in flight. A round
// tracks two of these (current, next) and swaps them at the round
// boundary. Every steal request and donation reply is stored into next,
// whether it is posted before or after the local barrier vote; current
// holds what the previous round left in next, and the vote's "all prior
// sends completed" test checks only those handles. Sends posted earlier in
// the same round are not waited for by that round's vote; they are checked
// by the round that follows.
type registers struct {
	steal  []transport.Handle
	donate []transport.Handle
}

func newRegisters(n int) *registers {
	r := &registers{
		steal:  make([]transport.Handle, n),
		donate: make([]transport.Handle, n),
	}
	for i := 0; i < n; i++ {
		r.steal[i] = transport.Completed
		r.donate[i] = transport.Completed
	}
	return r
}

// allCompleted reports whether every steal and donation handle currently
// tracked has finished — the precondition for posting the round's barrier.
func (r *registers) allCompleted() bool {
	for _, h := range r.steal {
		if !h.Test() {
			return false
		}
	}
	for _, h := range r.donate {
		if !h.Test() {
			return false
		}
	}
	return true
}
