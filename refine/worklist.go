package refine

import (
	"container/heap"
	"sync"

	"github.com/notargets/yada/types"
)

// Item is a queued element handle with the priority it had when queued
type Item struct {
	ID       types.ElementID
	Priority int
}

type entry struct {
	Item
	seq uint64
}

// entries is a max heap on priority, first in first out within a priority
type entries []entry

func (h entries) Len() int { return len(h) }

func (h entries) Less(i, j int) bool {
	if h[i].Priority != h[j].Priority {
		return h[i].Priority > h[j].Priority
	}
	return h[i].seq < h[j].seq
}

func (h entries) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *entries) Push(x any) { *h = append(*h, x.(entry)) }

func (h *entries) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

/*
Worklist is the shared queue of elements waiting for refinement. Handles may be
queued more than once and may go stale while queued; consumers discard those.
Take counts the caller as busy until it calls Done, which is how the list knows
that an empty queue means the work is finished rather than that a busy worker
is about to push more.
*/
type Worklist struct {
	mu      sync.Mutex
	cond    *sync.Cond
	entries entries
	seq     uint64
	busy    int
}

func NewWorklist() (w *Worklist) {
	w = &Worklist{}
	w.cond = sync.NewCond(&w.mu)
	return
}

func (w *Worklist) Push(items ...Item) {
	if len(items) == 0 {
		return
	}
	w.mu.Lock()
	for _, it := range items {
		heap.Push(&w.entries, entry{Item: it, seq: w.seq})
		w.seq++
	}
	w.mu.Unlock()
	if len(items) == 1 {
		w.cond.Signal()
	} else {
		w.cond.Broadcast()
	}
}

// Take blocks while the queue is empty and some worker is still busy. It
// returns false once the queue is empty with nobody busy.
func (w *Worklist) Take() (it Item, ok bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for len(w.entries) == 0 && w.busy > 0 {
		w.cond.Wait()
	}
	if len(w.entries) == 0 {
		return
	}
	it = heap.Pop(&w.entries).(entry).Item
	w.busy++
	return it, true
}

// Done marks the end of the work started by the last successful Take
func (w *Worklist) Done() {
	w.mu.Lock()
	w.busy--
	if w.busy < 0 {
		w.mu.Unlock()
		panic("worklist Done called without a matching Take")
	}
	idle := w.busy == 0 && len(w.entries) == 0
	w.mu.Unlock()
	if idle {
		w.cond.Broadcast()
	}
}

func (w *Worklist) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.entries)
}
