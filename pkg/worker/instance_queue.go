package worker

import "sync"

// instanceQueue serializes work per orchestration instance. Tickets for
// the same key form a chain: each becomes ready when its predecessor is
// released, so handlers run one at a time in enqueue order.
type instanceQueue struct {
	mu    sync.Mutex
	tails map[string]*ticket
}

type ticket struct {
	key   string
	ready <-chan struct{}
	done  chan struct{}
}

var closedCh = func() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}()

func newInstanceQueue() *instanceQueue {
	return &instanceQueue{tails: make(map[string]*ticket)}
}

func (q *instanceQueue) enqueue(key string) *ticket {
	q.mu.Lock()
	defer q.mu.Unlock()

	t := &ticket{key: key, ready: closedCh, done: make(chan struct{})}
	if prev, ok := q.tails[key]; ok {
		t.ready = prev.done
	}
	q.tails[key] = t
	return t
}

func (q *instanceQueue) release(t *ticket) {
	q.mu.Lock()
	if q.tails[t.key] == t {
		delete(q.tails, t.key)
	}
	q.mu.Unlock()
	close(t.done)
}

// active returns the number of instances with queued or running work.
func (q *instanceQueue) active() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tails)
}
