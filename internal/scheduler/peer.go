// Package scheduler implements one peer's cooperative work-stealing loop:
// a directory walker interleaved with steal requests, donation replies, and
// a two-level nonblocking termination detector (barrier, then an
// all-reduce over total queue length).
package scheduler

import (
	"fmt"
	"log/slog"

	"github.com/otuschhoff/dwalk/internal/config"
	"github.com/otuschhoff/dwalk/internal/queue"
	"github.com/otuschhoff/dwalk/internal/transport"
	"github.com/otuschhoff/dwalk/internal/walk"
)

// Peer runs the scheduler loop for one rank against a Transport, a local
// Queue, and a walk.Sink. It is not safe for concurrent use — exactly one
// goroutine owns a Peer's Run call.
type Peer struct {
	t    transport.Transport
	cfg  *config.Config
	q    *queue.Queue
	sink walk.Sink
	log  *slog.Logger

	cursor    int
	stoleFrom []int

	current       *registers
	next          *registers
	barrierPosted bool

	readyForBarrier bool
	emptyTicks      int
	barrier         transport.Handle

	pendingReduce transport.Handle
	reduceResult  *int

	counters Counters
	err      error
}

// NewPeer builds a Peer bound to t, with cfg's thresholds, sinking walked
// files and directories into sink.
func NewPeer(t transport.Transport, cfg *config.Config, sink walk.Sink, log *slog.Logger) *Peer {
	n := t.Size()
	return &Peer{
		t:         t,
		cfg:       cfg,
		q:         queue.New(),
		sink:      sink,
		log:       log.With("rank", t.Rank()),
		cursor:    -1,
		stoleFrom: make([]int, n),
		current:   newRegisters(n),
		next:      newRegisters(n),
	}
}

// Seed enqueues root as this peer's initial, unwalked task (§4.7 of the
// reference design: maxdepth=0, the root itself enters the queue).
func (p *Peer) Seed(root string) {
	p.q.Push(walk.Seed(root))
}

// Counters returns this peer's accumulated statistics after Run returns.
func (p *Peer) Counters() Counters {
	return p.counters
}

// Run drives the peer to global quiescence and returns its final counters.
// A non-nil error means a sink rejected an entry (spec.md §7): the peer
// stopped scheduling immediately, without finishing its share of the
// traversal, and the caller must abort the job rather than trust the
// returned counters as complete. Because the in-process Transport has no
// group-wide abort signal (transport.go documents the real transport,
// including any cluster abort mechanism, as out of scope), siblings that
// are still waiting on this peer's barrier or all-reduce contribution will
// not themselves unblock — the caller is expected to treat any returned
// error as fatal for the whole run, not just this peer.
func (p *Peer) Run() (Counters, error) {
	p.log.Debug("peer starting", "queue_len", p.q.Len())

	if p.t.Size() == 1 {
		p.runSingleWorker()
	} else {
		for {
			done := p.runRound()
			if p.err != nil || done {
				break
			}
		}
	}

	if p.err != nil {
		p.log.Error("peer aborted", "error", p.err)
		return p.counters, p.err
	}

	p.log.Debug("peer finished",
		"rounds", p.counters.Rounds,
		"files", p.counters.FilesProcessed,
		"dirs", p.counters.DirsProcessed,
		"bytes", p.counters.BytesSeen,
	)
	return p.counters, nil
}

// runSingleWorker is the spec's trivial shortcut: with no peers to talk to,
// drain the queue to empty in one sweep and declare done without ever
// touching the transport.
func (p *Peer) runSingleWorker() {
	for p.q.Len() > 0 {
		p.walkOne()
		if p.err != nil {
			return
		}
	}
	p.counters.Rounds = 1
}

// runRound executes one outer termination-detection round: an inner NBC
// loop of scheduler ticks until the local barrier completes, a register
// swap, then a decision based on the previous round's all-reduce (deferred
// by one round so the wait for it never blocks the cooperative loop — the
// round that follows keeps ticking while the reduction completes in the
// background). It reports whether the group has reached global quiescence
// or a fatal sink error (p.err) cut the round short.
func (p *Peer) runRound() bool {
	p.resetRoundState()

	for !p.barrierDone() {
		p.tick()
		if p.err != nil {
			return true
		}
	}

	p.current, p.next = p.next, newRegisters(p.t.Size())
	p.barrierPosted = false
	p.barrier = nil

	done := false
	if p.pendingReduce != nil {
		p.pendingReduce.Wait()
		done = *p.reduceResult == 0
	}

	if !done {
		h, r := p.t.AllreduceSumNonblocking(p.q.Len())
		p.pendingReduce = h
		p.reduceResult = r
	}

	p.counters.Rounds++
	return done
}

func (p *Peer) resetRoundState() {
	for i := range p.stoleFrom {
		p.stoleFrom[i] = 0
	}
	p.stoleFrom[p.t.Rank()] = 1
	p.readyForBarrier = false
	p.emptyTicks = 0
	p.barrier = nil
	p.barrierPosted = false
}

func (p *Peer) barrierDone() bool {
	return p.barrier != nil && p.barrier.Test()
}

// tick performs one iteration of the scheduler loop (§4.5): at most one
// unit of local work, then one drained reply, one drained request, a steal
// attempt if starving, and an attempt to advance the termination detector.
func (p *Peer) tick() {
	p.counters.LoopIterations++

	if p.q.Len() > 0 {
		p.walkOne()
	} else {
		p.emptyTicks++
	}

	p.drainReply()
	p.drainRequest()

	if p.needWork() {
		p.stealTick()
	}

	p.advanceDetector()
}

func (p *Peer) walkOne() {
	path, ok := p.q.PopOne()
	if !ok {
		return
	}
	res := walk.Walk(path, p.sink)
	p.counters.Counters.Add(res.Counters)
	p.q.PushAll(res.ChildDirs)
	if res.Err != nil {
		p.err = res.Err
	}
}

func (p *Peer) excessWork() bool {
	return p.q.Len() > p.cfg.ExcessThreshold
}

func (p *Peer) needWork() bool {
	return p.q.Len() <= p.cfg.StarveThreshold
}

// nextVictim advances the round-robin steal cursor, skipping self.
func (p *Peer) nextVictim() int {
	n := p.t.Size()
	p.cursor = (p.cursor + 1) % n
	if p.cursor == p.t.Rank() {
		p.cursor = (p.cursor + 1) % n
	}
	return p.cursor
}

func (p *Peer) stealTick() {
	victim := p.nextVictim()
	if p.stoleFrom[victim] >= p.cfg.MaxRequestsPerPeer {
		return
	}
	if !p.next.steal[victim].Test() {
		return
	}

	h := p.t.SendNonblocking(victim, transport.TagWorkRequest, nil)
	p.stoleFrom[victim]++
	p.counters.MessagesSent++
	p.next.steal[victim] = h
}

func (p *Peer) drainReply() {
	src, ok := p.t.Probe(transport.TagWorkReply)
	if !ok {
		return
	}
	p.counters.MessagesReceived++
	payload := p.t.Recv(src, transport.TagWorkReply)
	if len(payload) == 0 {
		panic(fmt.Sprintf("scheduler: empty WORK_REPLY payload from rank %d", src))
	}
	p.q.PushAll(payload)
}

func (p *Peer) drainRequest() {
	src, ok := p.t.Probe(transport.TagWorkRequest)
	if !ok {
		return
	}
	p.readyForBarrier = true

	if p.excessWork() {
		if donation, ok := p.q.SplitFront(p.cfg.SplitDivisor); ok {
			p.next.donate[src].Wait()
			h := p.t.SendNonblocking(src, transport.TagWorkReply, donation)
			p.counters.MessagesSent++
			p.next.donate[src] = h
		}
	}

	p.counters.MessagesReceived++
	p.t.Recv(src, transport.TagWorkRequest)
}

// advanceDetector arms, posts, and tests the local barrier vote. Arming
// normally happens on the first observed WORK_REQUEST this round (§4.6);
// as the spec's open question on starved voters resolves, a peer whose
// queue has sat empty for a full tick with no inbound request yet arms
// itself too, so a peer nobody ever probes still votes.
func (p *Peer) advanceDetector() {
	if !p.readyForBarrier && p.emptyTicks >= 1 {
		p.readyForBarrier = true
	}

	if !p.readyForBarrier {
		return
	}

	if !p.barrierPosted {
		if p.current.allCompleted() {
			p.barrier = p.t.BarrierNonblocking()
			p.barrierPosted = true
		}
		return
	}

	_ = p.barrier.Test()
}
