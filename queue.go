// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package achan

import (
	"cmp"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// pad is cache line padding to prevent false sharing between hot
// atomic fields.
type pad [64]byte

// padShort pads a slot after its 8-byte stamp field to fill a cache
// line, keeping each slot on its own line so producers hammering
// adjacent slots don't contend on the stamp of a neighbour.
type padShort [64 - 8]byte

// slot is one ring cell: a stamp handshake plus storage for one value.
// The stamp is the sole synchronization point between producers and
// the consumer; all data transfer is value write -> stamp release,
// stamp acquire -> value read.
type slot[T any] struct {
	stamp atomix.Uint64
	value T
	_     padShort
}

// pushErr and popErr classify why push/pop could not complete, without
// allocating an error value on every call.
type pushErr int

const (
	pushErrNone pushErr = iota
	pushErrFull
	pushErrClosed
)

type popErr int

const (
	popErrNone popErr = iota
	popErrEmpty
	popErrClosed
)

// queue is a bounded MPSC ring of stamped slots, based on Dmitry
// Vyukov's bounded MPMC queue with a closed flag folded into the
// enqueue position.
//
// Position word layout (64-bit):
//
//	| <- MSB           sequence count           | flag | buffer index -> LSB |
//
// The flag's purpose differs by field: in enqueuePos, set means the
// channel is closed; in dequeuePos it is always clear; in a slot's
// stamp it is simply part of the extended mantissa, which is what lets
// capacity-1 queues work without special-casing.
type queue[T any] struct {
	_ pad
	// enqueuePos is the position of the next slot a producer will
	// attempt to claim. Shared, read/written by every producer.
	enqueuePos atomix.Uint64
	_          pad
	// dequeuePos is mutated only by the consumer. It is not atomic:
	// the Receiver handle is never cloned, so there is never
	// concurrent access, except from the drop/drain path which only
	// runs once every other handle is gone.
	dequeuePos uint64
	_          pad
	buffer     []slot[T]
	// rightMask covers the buffer-index bits plus the one flag bit
	// immediately above them.
	rightMask uint64
	// closedMask is the single flag bit, the authoritative
	// closed-channel indicator when read from enqueuePos.
	closedMask uint64
	capacity   uint64
}

// newQueue creates a queue with the given capacity. Unlike the
// teacher's lock-free queue variants, capacity is not rounded up to a
// power of two: only the bit layout's flag/index split uses
// capacity's next power of two, so that a queue of any capacity >= 1
// works without wasting buffer slots.
func newQueue[T any](capacity int) *queue[T] {
	if capacity < 1 {
		panic("achan: capacity must be >= 1")
	}
	const maxCapacity = 1 << 62 // usize::MAX/2 + 1 analogue for a 64-bit word
	if capacity > maxCapacity {
		panic("achan: capacity may not exceed 1<<62")
	}

	buffer := make([]slot[T], capacity)
	for i := range buffer {
		buffer[i].stamp.StoreRelaxed(uint64(i))
	}

	closedMask := uint64(roundToPow2(capacity))
	rightMask := (closedMask << 1) - 1

	return &queue[T]{
		buffer:     buffer,
		rightMask:  rightMask,
		closedMask: closedMask,
		capacity:   uint64(capacity),
	}
}

// nextQueuePos advances a queue position by one, incrementing the
// sequence count as well if the buffer index wraps to zero.
//
// Precondition: pos's closed-channel flag bit must be clear.
func (q *queue[T]) nextQueuePos(pos uint64) uint64 {
	newPos := pos + 1
	newIndex := newPos & q.rightMask

	if newIndex < q.capacity {
		return newPos
	}

	sequenceIncrement := q.rightMask + 1
	sequenceCount := pos &^ q.rightMask

	return sequenceCount + sequenceIncrement
}

// push attempts to write value into the queue. Safe to call
// concurrently from any number of producers.
func (q *queue[T]) push(value T) (pushErr, T) {
	enqueuePos := q.enqueuePos.LoadRelaxed()
	sw := spin.Wait{}

	for {
		if enqueuePos&q.closedMask != 0 {
			return pushErrClosed, value
		}

		s := &q.buffer[enqueuePos&q.rightMask]
		stamp := s.stamp.LoadAcquire()

		// Wrapping subtraction interpreted as signed: this is the
		// only correct way to compare positions that may have wrapped
		// around the 64-bit sequence space.
		stampDelta := int64(stamp - enqueuePos)

		switch cmp.Compare(stampDelta, 0) {
		case 0:
			if q.enqueuePos.CompareAndSwapRelaxed(enqueuePos, q.nextQueuePos(enqueuePos)) {
				s.value = value
				s.stamp.StoreRelease(stamp + 1)
				return pushErrNone, value
			}
			enqueuePos = q.enqueuePos.LoadRelaxed()
		case -1:
			// The stamp's sequence trails the enqueue position: the
			// slot still holds a value the consumer hasn't popped.
			return pushErrFull, value
		case 1:
			// A concurrent producer already advanced enqueuePos and
			// is mid-write to this slot; reload and retry.
			enqueuePos = q.enqueuePos.LoadRelaxed()
		}
		sw.Once()
	}
}

// pop attempts to remove and return a value from the queue.
//
// Must not be called concurrently from more than one goroutine: the
// Receiver handle that owns this queue is never cloned, so this
// invariant holds for the lifetime of the channel except during the
// final drain, which only runs once every other handle is gone.
func (q *queue[T]) pop() (T, popErr) {
	var zero T

	dequeuePos := q.dequeuePos
	s := &q.buffer[dequeuePos&q.rightMask]
	stamp := s.stamp.LoadAcquire()

	if dequeuePos != stamp {
		// stamp is ahead of dequeuePos by exactly one (push stored
		// its position plus one): the slot is ready to be popped.
		q.dequeuePos = q.nextQueuePos(dequeuePos)

		value := s.value
		s.value = zero // let the GC reclaim anything value references
		s.stamp.StoreRelease(stamp + q.rightMask)

		return value, popErrNone
	}

	// The slot is empty. The channel may still be open — a producer
	// may have read "open" and begun a push before the flag was set,
	// in which case the stamp will soon reflect the write and a later
	// pop will succeed. Only report Closed once enqueuePos shows no
	// reservation is in flight either.
	if q.enqueuePos.LoadRelaxed() == dequeuePos|q.closedMask {
		return zero, popErrClosed
	}
	return zero, popErrEmpty
}

// close sets the closed-channel flag. Idempotent.
func (q *queue[T]) close() {
	for {
		pos := q.enqueuePos.LoadRelaxed()
		if pos&q.closedMask != 0 {
			return
		}
		if q.enqueuePos.CompareAndSwapRelaxed(pos, pos|q.closedMask) {
			return
		}
	}
}

// isClosed reports whether the closed-channel flag is set. Advisory
// only: even once true, buffered messages may still be popped.
func (q *queue[T]) isClosed() bool {
	return q.enqueuePos.LoadRelaxed()&q.closedMask != 0
}

// drain pops every remaining value so referenced objects become
// eligible for garbage collection. Safe only once the caller holds
// exclusive access to the queue (i.e. every Sender and the Receiver
// have released their share of Inner).
func (q *queue[T]) drain() {
	for {
		if _, err := q.pop(); err != popErrNone {
			return
		}
	}
}

// cap returns the queue's capacity.
func (q *queue[T]) cap() int {
	return int(q.capacity)
}
