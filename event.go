// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package achan

import (
	"context"
	"math"
	"sync"
)

// notifyAll is passed to event.notify to wake every registered waiter
// and additionally prime all future registrations so that a waiter
// registering after the broadcast still returns immediately — the
// close semantics sender-wait notifications require.
const notifyAll = math.MaxInt

// event is a multi-waiter wait/notify primitive used to park producers
// until capacity frees up or the channel closes.
//
// No package in the retrieved corpus implements an async multi-waiter
// event primitive for Go (the Rust source this is modeled on reaches
// for the event-listener crate, which has no Go analogue among the
// examples), so this is original, built from sync.Mutex plus a FIFO of
// per-waiter channels — the same shape the Go runtime itself uses
// internally for channel wait queues.
type event struct {
	mu      sync.Mutex
	waiters []chan struct{}
	primed  bool // set once notify(notifyAll) has fired; see register
}

func newEvent() *event {
	return &event{}
}

// register adds a new waiter and returns its wake channel. If the
// event has already been broadcast-closed, the returned channel is
// pre-fired so the caller's very next receive succeeds immediately.
func (e *event) register() chan struct{} {
	ch := make(chan struct{}, 1)

	e.mu.Lock()
	if e.primed {
		e.mu.Unlock()
		ch <- struct{}{}
		return ch
	}
	e.waiters = append(e.waiters, ch)
	e.mu.Unlock()

	return ch
}

// unregister removes ch from the waiter list if it is still present.
// No-op if ch was already woken and removed by notify.
func (e *event) unregister(ch chan struct{}) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i, w := range e.waiters {
		if w == ch {
			e.waiters = append(e.waiters[:i], e.waiters[i+1:]...)
			return
		}
	}
}

// notify wakes up to n currently-registered waiters, oldest first.
// notify(notifyAll) wakes every waiter and primes all future
// registrations until the event is recreated.
//
// A notify(1) issued while no waiter is registered is absorbed: wake
// credit is not queued for a future registration, which is why callers
// must re-check their predicate after every registration, per the
// wait_until contract below.
func (e *event) notify(n int) {
	e.mu.Lock()
	if n >= notifyAll {
		e.primed = true
	}
	k := n
	if k > len(e.waiters) {
		k = len(e.waiters)
	}
	woken := e.waiters[:k]
	e.waiters = e.waiters[k:]
	e.mu.Unlock()

	for _, ch := range woken {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// transferCredit drains a single buffered wake credit from ch, if one
// is present, and republishes it to another registered waiter. This is
// the cancellation-safety contract: a waiter that is abandoned after
// already being woken must not let that wake credit vanish.
func (e *event) transferCredit(ch chan struct{}) {
	select {
	case <-ch:
		e.notify(1)
	default:
	}
}

// waitUntil cooperatively parks the calling goroutine until predicate
// reports success or ctx is done. predicate is re-evaluated on entry,
// after registration (to close the register/notify race), and after
// every wake, exactly as the sender-wait event's contract requires.
// Once the event is broadcast-closed every registration is pre-fired,
// so a predicate that keeps failing is re-evaluated without parking.
//
// waitUntil is a free function rather than a method because Go methods
// cannot introduce additional type parameters.
func waitUntil[V any](ctx context.Context, e *event, predicate func() (V, bool)) (V, error) {
	if v, ok := predicate(); ok {
		return v, nil
	}

	for {
		ch := e.register()

		if v, ok := predicate(); ok {
			e.unregister(ch)
			e.transferCredit(ch)
			return v, nil
		}

		select {
		case <-ch:
			// Woken: loop back around to re-evaluate the predicate.
		case <-ctx.Done():
			e.unregister(ch)
			e.transferCredit(ch)
			var zero V
			return zero, ctx.Err()
		}
	}
}
