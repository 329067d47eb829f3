package mesh

import (
	"fmt"
	"sync"

	"go.uber.org/atomic"

	"github.com/notargets/yada/types"
)

const (
	pageBits = 12
	pageSize = 1 << pageBits
	maxPages = 1 << 16 // 2^28 slots
)

type slot struct {
	element    atomic.Pointer[Element]
	generation atomic.Uint32
	nextFree   atomic.Uint32 // index+1 of the next free slot, 0 ends the list
}

type page [pageSize]slot

/*
Arena hands out stable ElementID handles for elements. Slots live in fixed size
pages that are never moved, so lookups need no lock. Freed slots go on a lock
free stack whose head carries a counter next to the index; the counter changes
on every push and pop so a stale head can never be swapped in.
*/
type Arena struct {
	pages    [maxPages]atomic.Pointer[page]
	pageMu   sync.Mutex // Serialises page allocation only
	next     atomic.Uint64
	freeHead atomic.Uint64 // counter<<32 | index+1
}

func NewArena() *Arena {
	return &Arena{}
}

func (a *Arena) slot(index int) *slot {
	p := a.pages[index>>pageBits].Load()
	if p == nil {
		return nil
	}
	return &p[index&(pageSize-1)]
}

func (a *Arena) ensurePage(pageNum int) *page {
	if p := a.pages[pageNum].Load(); p != nil {
		return p
	}
	a.pageMu.Lock()
	defer a.pageMu.Unlock()
	if p := a.pages[pageNum].Load(); p != nil {
		return p
	}
	p := new(page)
	a.pages[pageNum].Store(p)
	return p
}

func (a *Arena) popFree() (index int, ok bool) {
	for {
		head := a.freeHead.Load()
		top := uint32(head)
		if top == 0 {
			return 0, false
		}
		index = int(top) - 1
		next := a.slot(index).nextFree.Load()
		if a.freeHead.CompareAndSwap(head, (head>>32+1)<<32|uint64(next)) {
			return index, true
		}
	}
}

func (a *Arena) pushFree(index int) {
	s := a.slot(index)
	for {
		head := a.freeHead.Load()
		s.nextFree.Store(uint32(head))
		if a.freeHead.CompareAndSwap(head, (head>>32+1)<<32|uint64(index+1)) {
			return
		}
	}
}

// Alloc stores e in a slot and assigns its handle
func (a *Arena) Alloc(e *Element) (id types.ElementID) {
	index, ok := a.popFree()
	if !ok {
		n := a.next.Add(1) - 1
		if n >= maxPages*pageSize {
			panic(fmt.Errorf("element arena exhausted at %d slots", n))
		}
		index = int(n)
		a.ensurePage(index >> pageBits)
	}
	s := a.slot(index)
	gen := s.generation.Add(1)
	id = types.NewElementID(index, gen)
	e.id = id
	s.element.Store(e)
	return
}

// Lookup resolves a handle, returning nil when its element has been released
func (a *Arena) Lookup(id types.ElementID) *Element {
	if id == types.NoElement {
		return nil
	}
	index := id.Index()
	if index >= maxPages*pageSize {
		return nil
	}
	s := a.slot(index)
	if s == nil {
		return nil
	}
	e := s.element.Load()
	if e == nil || e.id != id {
		return nil
	}
	return e
}

// Release tombstones the slot of e and recycles it
func (a *Arena) Release(e *Element) {
	s := a.slot(e.id.Index())
	if s == nil || !s.element.CompareAndSwap(e, nil) {
		panic(fmt.Errorf("releasing %v which does not own its slot", e.id))
	}
	a.pushFree(e.id.Index())
}

// Slots is the number of slots handed out so far, live or free
func (a *Arena) Slots() int {
	return int(a.next.Load())
}
