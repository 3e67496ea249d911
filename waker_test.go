// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package achan

import (
	"sync"
	"testing"
	"time"
)

// TestWakerNotifyWithoutRegisterIsNoop verifies notify before any
// register does nothing and, crucially, does not panic or block.
func TestWakerNotifyWithoutRegisterIsNoop(t *testing.T) {
	w := newWaker()
	w.notify() // must not panic
}

// TestWakerRegisterThenNotify verifies the registered channel receives
// exactly one wake.
func TestWakerRegisterThenNotify(t *testing.T) {
	w := newWaker()
	ch := make(chan struct{}, 1)
	w.register(ch)

	w.notify()

	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("registered channel was not notified")
	}
}

// TestWakerUnregisterStopsDelivery verifies notify after unregister is
// a no-op against the stale channel.
func TestWakerUnregisterStopsDelivery(t *testing.T) {
	w := newWaker()
	ch := make(chan struct{}, 1)
	w.register(ch)
	w.unregister()

	w.notify()

	select {
	case <-ch:
		t.Fatal("unregistered channel should not have been notified")
	default:
	}
}

// TestWakerReregisterDifferentChannel verifies registering a second
// channel replaces the first as the notify target.
func TestWakerReregisterDifferentChannel(t *testing.T) {
	w := newWaker()
	ch1 := make(chan struct{}, 1)
	ch2 := make(chan struct{}, 1)

	w.register(ch1)
	w.register(ch2)

	w.notify()

	select {
	case <-ch2:
	default:
		t.Fatal("ch2 should have been notified")
	}
	select {
	case <-ch1:
		t.Fatal("ch1 should not have been notified after re-register")
	default:
	}
}

// TestWakerConcurrentNotify hammers notify from many goroutines against
// a single registered channel, to surface data races under -race.
func TestWakerConcurrentNotify(t *testing.T) {
	w := newWaker()
	ch := make(chan struct{}, 1)
	w.register(ch)

	var wg sync.WaitGroup
	for range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.notify()
		}()
	}
	wg.Wait()

	select {
	case <-ch:
	default:
		t.Fatal("expected at least one delivered wake")
	}
}
