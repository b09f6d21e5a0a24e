package subexec

import (
	"fmt"
	"sync"
	"time"
)

// syncYield is the duration a reader waits for its counterpart to reach
// the same rendezvous point before synchronisation is declared broken. It
// stands in for the single cooperative yield the specification describes
// in a coroutine model; goroutines have no equivalent primitive, so a
// short deadline approximates "got starved for one yield".
const syncYield = 2 * time.Second

// rendezvousKey names one synchronisation point: a chunk boundary (start
// or end) or the shared end-of-stream point both readers reach at EOF.
type rendezvousKey struct {
	chunk int
	kind  string // "start", "end", or "eof"
}

type rendezvousPoint struct {
	arrived int
	ch      chan struct{}
}

// Rendezvous implements the cross-stream handshake: each of the two
// readers (stdout, stderr) calls Arrive independently when it reaches the
// same framing boundary. The first arrival blocks until the second
// arrives or syncYield elapses, at which point synchronisation is
// considered broken.
type Rendezvous struct {
	mu     sync.Mutex
	points map[rendezvousKey]*rendezvousPoint
}

// NewRendezvous constructs an empty rendezvous tracker for one session run.
func NewRendezvous() *Rendezvous {
	return &Rendezvous{points: map[rendezvousKey]*rendezvousPoint{}}
}

// ArriveChunkBoundary waits for the other stream's reader to reach the
// same (chunk, start|end) boundary.
func (r *Rendezvous) ArriveChunkBoundary(chunk int, isStart bool) error {
	kind := "end"
	if isStart {
		kind = "start"
	}
	return r.arrive(rendezvousKey{chunk: chunk, kind: kind})
}

// ArriveStreamEnd waits for the other stream's reader to reach clean EOF.
func (r *Rendezvous) ArriveStreamEnd() error {
	return r.arrive(rendezvousKey{kind: "eof"})
}

func (r *Rendezvous) arrive(key rendezvousKey) error {
	r.mu.Lock()
	p, ok := r.points[key]
	if !ok {
		p = &rendezvousPoint{ch: make(chan struct{})}
		r.points[key] = p
	}
	p.arrived++
	if p.arrived >= 2 {
		close(p.ch)
		delete(r.points, key)
		r.mu.Unlock()
		return nil
	}
	r.mu.Unlock()

	select {
	case <-p.ch:
		return nil
	case <-time.After(syncYield):
		return fmt.Errorf("cross-stream synchronization broken at chunk=%d kind=%s", key.chunk, key.kind)
	}
}
