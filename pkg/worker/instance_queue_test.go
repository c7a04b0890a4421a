package worker

import (
	"testing"
)

func isReady(t *ticket) bool {
	select {
	case <-t.ready:
		return true
	default:
		return false
	}
}

func TestInstanceQueue_ChainsTicketsPerKey(t *testing.T) {
	q := newInstanceQueue()

	a1 := q.enqueue("a")
	a2 := q.enqueue("a")
	a3 := q.enqueue("a")
	b1 := q.enqueue("b")

	if !isReady(a1) || !isReady(b1) {
		t.Fatalf("first ticket per key should be ready immediately")
	}
	if isReady(a2) || isReady(a3) {
		t.Fatalf("later tickets must wait for their predecessor")
	}
	if q.active() != 2 {
		t.Fatalf("active() = %d, want 2", q.active())
	}

	q.release(a1)
	if !isReady(a2) || isReady(a3) {
		t.Fatalf("releasing a1 should only unblock a2")
	}

	q.release(a2)
	if !isReady(a3) {
		t.Fatalf("releasing a2 should unblock a3")
	}

	q.release(a3)
	q.release(b1)
	if q.active() != 0 {
		t.Fatalf("active() = %d after releasing everything, want 0", q.active())
	}
}

func TestInstanceQueue_ReleaseOfOldTicketKeepsTail(t *testing.T) {
	q := newInstanceQueue()

	first := q.enqueue("a")
	second := q.enqueue("a")
	q.release(first)

	// The tail is still second; a new ticket must wait for it.
	third := q.enqueue("a")
	if isReady(third) {
		t.Fatalf("third ticket should wait for second")
	}
	q.release(second)
	if !isReady(third) {
		t.Fatalf("third ticket should be ready once second is released")
	}
}
