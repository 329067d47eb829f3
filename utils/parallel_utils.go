package utils

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"runtime"
	"time"

	"go.uber.org/atomic"
)

/*
The transaction primitive used by the mesh refiner.

Every shared object embeds an Owner word. A Txn claims objects by swapping the
word from zero to its own id; finding another transaction's id there is a
conflict, and the caller gives up immediately rather than waiting. Work that runs
inside Space.Atomically follows two phases: it first claims everything it will
read or modify, and only then writes. A conflict can therefore only be reported
before the first write, so aborting is just releasing the claims, and since no
transaction ever waits on another there is no deadlock.
*/

var ErrConflict = errors.New("transaction conflict")

type Owner struct {
	word atomic.Uint64
}

// Owned is implemented by anything that can be claimed by a transaction
type Owned interface {
	Ownership() *Owner
}

// Holder returns the id of the transaction holding the object, zero when free
func (o *Owner) Holder() uint64 {
	return o.word.Load()
}

type Txn struct {
	id    uint64
	held  []*Owner
	space *Space
}

func (tx *Txn) ID() uint64 {
	return tx.id
}

// Acquire claims obj for this transaction, returning ErrConflict when another
// transaction holds it.
func (tx *Txn) Acquire(obj Owned) (err error) {
	var (
		o = obj.Ownership()
	)
	if o.word.Load() == tx.id {
		return
	}
	if !o.word.CompareAndSwap(0, tx.id) {
		return ErrConflict
	}
	tx.held = append(tx.held, o)
	return
}

// Claim takes ownership of an object that no other transaction can reach yet,
// typically one created inside this transaction.
func (tx *Txn) Claim(obj Owned) {
	var (
		o = obj.Ownership()
	)
	if prev := o.word.Swap(tx.id); prev != 0 && prev != tx.id {
		panic(fmt.Errorf("claimed an object held by transaction %d", prev))
	}
	tx.held = append(tx.held, o)
}

func (tx *Txn) Owns(obj Owned) bool {
	return obj.Ownership().word.Load() == tx.id
}

func (tx *Txn) Held() int {
	return len(tx.held)
}

func (tx *Txn) release() {
	for i, o := range tx.held {
		o.word.CompareAndSwap(tx.id, 0)
		tx.held[i] = nil
	}
	tx.held = tx.held[:0]
}

func (tx *Txn) renew() {
	tx.id = tx.space.nextID.Inc()
}

type SpaceStats struct {
	Commits   int64 // Transactions that returned without error
	Aborts    int64 // Transactions that returned an error other than a conflict
	Conflicts int64 // Attempts discarded and retried
}

type Space struct {
	nextID    atomic.Uint64
	commits   atomic.Int64
	aborts    atomic.Int64
	conflicts atomic.Int64
}

func NewSpace() *Space {
	return &Space{}
}

/*
Atomically runs fn until it finishes without a conflict. On ErrConflict (checked
with errors.Is) every claim is released and fn runs again from the start after a
short randomised backoff. Any other result releases the claims and is returned;
a nil result is a commit.
*/
func (s *Space) Atomically(fn func(tx *Txn) error) (err error) {
	var (
		tx = &Txn{space: s}
	)
	defer func() {
		if r := recover(); r != nil {
			tx.release()
			panic(r)
		}
	}()
	for attempt := 0; ; attempt++ {
		tx.renew()
		err = fn(tx)
		tx.release()
		if !errors.Is(err, ErrConflict) {
			if err == nil {
				s.commits.Inc()
			} else {
				s.aborts.Inc()
			}
			return
		}
		s.conflicts.Inc()
		Backoff(attempt)
	}
}

func (s *Space) Stats() SpaceStats {
	return SpaceStats{
		Commits:   s.commits.Load(),
		Aborts:    s.aborts.Load(),
		Conflicts: s.conflicts.Load(),
	}
}

const (
	spinAttempts = 4
	maxSleepBits = 10
)

// Backoff yields for the first few attempts, then sleeps for a random interval
// whose upper bound doubles with each attempt.
func Backoff(attempt int) {
	if attempt < spinAttempts {
		runtime.Gosched()
		return
	}
	shift := min(attempt-spinAttempts, maxSleepBits)
	time.Sleep(time.Duration(rand.Int64N(int64(time.Microsecond) << shift)))
}
