// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package achan

import (
	"context"
	"fmt"
	"iter"
	"runtime"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// inner holds the state shared by every handle to a channel.
type inner[T any] struct {
	queue *queue[T]
	// receiverWaker notifies the single Receiver that a value (or
	// closure) is ready to be observed.
	receiverWaker *waker
	// senderEvent notifies one or several parked Sender.Send calls
	// that capacity freed up, or that the channel closed.
	senderEvent *event
	// senderCount is the number of live Sender handles, including
	// clones not yet released.
	senderCount atomix.Int64
	// receiverReleased is set once the Receiver has released its share.
	// Together with senderCount reaching zero, it gates drain: buffered
	// values become GC-eligible only once nothing can ever observe the
	// queue again.
	receiverReleased atomix.Bool
	opts             options
}

func newInner[T any](capacity int, opts options) *inner[T] {
	return &inner[T]{
		queue:         newQueue[T](capacity),
		receiverWaker: newWaker(),
		senderEvent:   newEvent(),
		opts:          opts,
	}
}

// Sender is the sending side of a channel. Multiple Senders can be
// created by cloning an existing one.
type Sender[T any] struct {
	inner *inner[T]
}

// Receiver is the receiving side of a channel. Receiver is never
// cloned: a channel has exactly one consumer.
type Receiver[T any] struct {
	inner *inner[T]
}

// New creates a channel with the given buffer capacity and returns one
// Sender and the Receiver.
//
// New panics if capacity is less than 1 or greater than 1<<62.
func New[T any](capacity int, opts ...Option) (*Sender[T], *Receiver[T]) {
	in := newInner[T](capacity, resolveOptions(opts))
	in.senderCount.StoreRelaxed(1)

	s := &Sender[T]{inner: in}
	r := &Receiver[T]{inner: in}

	runtime.SetFinalizer(s, (*Sender[T]).finalize)
	runtime.SetFinalizer(r, (*Receiver[T]).finalize)

	return s, r
}

// Cap returns the channel's buffer capacity.
func (s *Sender[T]) Cap() int { return s.inner.queue.cap() }

// Cap returns the channel's buffer capacity.
func (r *Receiver[T]) Cap() int { return r.inner.queue.cap() }

// TrySend attempts to send a message immediately, without parking.
// Returns a *TrySendError[T] wrapping ErrFull if the buffer is full,
// or ErrSenderClosed if the channel is closed.
func (s *Sender[T]) TrySend(message T) error {
	kind, v := s.inner.queue.push(message)
	switch kind {
	case pushErrNone:
		s.inner.receiverWaker.notify()
		return nil
	case pushErrFull:
		return &TrySendError[T]{Value: v, Err: ErrFull}
	default: // pushErrClosed
		return &TrySendError[T]{Value: v, Err: ErrSenderClosed}
	}
}

// sendOutcome distinguishes the two ways waitUntil's predicate can stop
// waiting: the message landed, or the channel closed out from under it.
// A plain bool return can't carry this: "stop waiting" and "it
// succeeded" are different questions once Close can race a push.
type sendOutcome struct {
	closed bool
}

// Send sends a message, parking the calling goroutine until capacity
// becomes available, the channel closes, or ctx is done.
//
// On success, Send returns nil. If the channel is (or becomes) closed,
// Send returns a *SendError[T] carrying the rejected message and
// wrapping ErrSenderClosed. If ctx is done first, Send returns a
// *SendError[T] carrying the rejected message and wrapping ctx.Err().
func (s *Sender[T]) Send(ctx context.Context, message T) error {
	pending := message

	// Spin a bounded number of times before paying for registration and
	// parking: under light contention the consumer usually frees a slot
	// within a handful of attempts.
	sw := spin.Wait{}
	for i := 0; i < s.inner.opts.spinLimit; i++ {
		kind, v := s.inner.queue.push(pending)
		switch kind {
		case pushErrNone:
			s.inner.receiverWaker.notify()
			return nil
		case pushErrClosed:
			return &SendError[T]{Value: v, Err: ErrSenderClosed}
		default: // pushErrFull
			pending = v
		}
		sw.Once()
	}

	outcome, err := waitUntil(ctx, s.inner.senderEvent, func() (sendOutcome, bool) {
		kind, v := s.inner.queue.push(pending)
		switch kind {
		case pushErrNone:
			return sendOutcome{}, true
		case pushErrFull:
			pending = v // recycle the message for the next attempt
			return sendOutcome{}, false
		default: // pushErrClosed
			pending = v // preserve the message for the caller
			return sendOutcome{closed: true}, true
		}
	})

	if err != nil {
		return &SendError[T]{Value: pending, Err: err}
	}
	if outcome.closed {
		return &SendError[T]{Value: pending, Err: ErrSenderClosed}
	}

	s.inner.receiverWaker.notify()
	return nil
}

// Close closes the channel. No further messages will be accepted by
// TrySend or Send; messages already buffered can still be received.
func (s *Sender[T]) Close() {
	s.inner.queue.close()
	s.inner.receiverWaker.notify()
	s.inner.senderEvent.notify(notifyAll)
}

// IsClosed reports whether the channel is closed. Advisory only:
// buffered messages may still be waiting to be received.
func (s *Sender[T]) IsClosed() bool {
	return s.inner.queue.isClosed()
}

// Clone returns a new Sender handle sharing this channel. Each clone
// must eventually be released with Release.
func (s *Sender[T]) Clone() *Sender[T] {
	s.inner.senderCount.AddAcqRel(1)

	clone := &Sender[T]{inner: s.inner}
	runtime.SetFinalizer(clone, (*Sender[T]).finalize)
	return clone
}

// Release relinquishes this Sender's share of the channel. If this was
// the last live Sender and the channel is not already closed, Release
// closes it and notifies the Receiver. Release is not idempotent: call
// it at most once per handle. Calling it again is a caller bug that
// decrements the sender count a second time.
func (s *Sender[T]) Release() {
	runtime.SetFinalizer(s, nil)
	s.release()
}

func (s *Sender[T]) finalize() {
	s.release()
}

func (s *Sender[T]) release() {
	// AcqRel ordering mirrors an Arc reference-count decrement: it
	// publishes every write this sender performed before release to
	// whichever goroutine observes the count drop to zero, and that
	// goroutine's subsequent reads observe every prior decrement in the
	// chain in turn.
	if s.inner.senderCount.AddAcqRel(-1) == 0 {
		if !s.inner.queue.isClosed() {
			s.inner.queue.close()
			s.inner.receiverWaker.notify()
		}
		// The Receiver side may have already released; if so, every
		// handle to this channel is now gone and any still-buffered
		// values can be let go.
		if s.inner.receiverReleased.LoadAcquire() {
			s.inner.queue.drain()
		}
	}
}

// TryRecv attempts to receive a message immediately, without parking.
// Returns ErrEmpty if the buffer is empty and the channel is open, or
// ErrReceiverClosed once the channel is closed and fully drained.
func (r *Receiver[T]) TryRecv() (T, error) {
	v, err := r.inner.queue.pop()
	switch err {
	case popErrNone:
		r.inner.senderEvent.notify(1)
		return v, nil
	case popErrEmpty:
		return v, ErrEmpty
	default: // popErrClosed
		return v, ErrReceiverClosed
	}
}

// Recv receives a message, parking the calling goroutine until one
// becomes available, the channel closes and drains, or ctx is done.
func (r *Receiver[T]) Recv(ctx context.Context) (T, error) {
	// Spin a bounded number of times before registering the waker and
	// parking: a producer may be mid-push and about to land a value.
	sw := spin.Wait{}
	for i := 0; i < r.inner.opts.spinLimit; i++ {
		v, err := r.inner.queue.pop()
		switch err {
		case popErrNone:
			r.inner.senderEvent.notify(1)
			return v, nil
		case popErrClosed:
			var zero T
			return zero, ErrReceiverClosed
		}
		sw.Once()
	}

	for {
		ch := make(chan struct{}, 1)
		r.inner.receiverWaker.register(ch)

		// Double-check: a producer may have pushed and notified the
		// (until now unregistered) waker between the fast-path pop
		// above and this registration. Re-polling here is mandatory,
		// not an optimization.
		v, err := r.inner.queue.pop()
		switch err {
		case popErrNone:
			r.inner.receiverWaker.unregister()
			r.inner.senderEvent.notify(1)
			return v, nil
		case popErrClosed:
			r.inner.receiverWaker.unregister()
			var zero T
			return zero, ErrReceiverClosed
		}

		select {
		case <-ch:
			r.inner.receiverWaker.unregister()
			// Loop back and re-poll; a push may still race us.
		case <-ctx.Done():
			r.inner.receiverWaker.unregister()
			var zero T
			return zero, ctx.Err()
		}
	}
}

// Close closes the channel. No further messages will be accepted;
// messages already buffered can still be received, which is why this
// should typically be followed by draining with Recv/TryRecv until an
// error is returned.
//
// There is no IsClosed on Receiver: exposing one invites the "check
// then stop receiving" pattern, which can silently drop buffered
// messages. Drain with Recv/TryRecv until ErrReceiverClosed instead.
func (r *Receiver[T]) Close() {
	if !r.inner.queue.isClosed() {
		r.inner.queue.close()
		r.inner.senderEvent.notify(notifyAll)
	}
}

// Release relinquishes the Receiver's share of the channel, closing it
// unconditionally and notifying every parked Sender.
func (r *Receiver[T]) Release() {
	runtime.SetFinalizer(r, nil)
	r.release()
}

func (r *Receiver[T]) finalize() {
	r.release()
}

func (r *Receiver[T]) release() {
	r.inner.queue.close()
	r.inner.senderEvent.notify(notifyAll)
	r.inner.receiverReleased.StoreRelease(true)

	// Every Sender may have already released; if so, every handle to
	// this channel is now gone and any still-buffered values can be
	// let go.
	if r.inner.senderCount.LoadRelaxed() == 0 {
		r.inner.queue.drain()
	}
}

// Stream returns an iter.Seq[T] that yields every message received
// until the channel closes and drains, or ctx is done. It is the
// idiomatic Go replacement for a lazy, single-consumer, finite
// sequence of T terminating on channel closure.
func (r *Receiver[T]) Stream(ctx context.Context) iter.Seq[T] {
	return func(yield func(T) bool) {
		for {
			v, err := r.Recv(ctx)
			if err != nil {
				return
			}
			if !yield(v) {
				return
			}
		}
	}
}

// String implements fmt.Stringer for debugging; neither handle exposes
// its internal state beyond capacity and closedness.
func (s *Sender[T]) String() string {
	return fmt.Sprintf("achan.Sender{cap=%d, closed=%t}", s.Cap(), s.IsClosed())
}

func (r *Receiver[T]) String() string {
	return fmt.Sprintf("achan.Receiver{cap=%d}", r.Cap())
}
