// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package achan

import (
	"sync"

	"code.hybscloud.com/atomix"
)

// waker is a single-slot notification primitive for the lone
// consumer, diatomic ("fast read, slow write") style: Notify's common
// case — no one currently parked — is a single acquire atomic load
// and nothing else.
//
// Only the Receiver may call register/unregister; Notify is safe to
// call concurrently from any producer goroutine.
//
// No package in the retrieved corpus implements a Go analogue of
// diatomic-waker (the Rust crate this is modeled on), so the
// implementation is original: an atomix.Bool fast-path flag gates a
// mutex-protected channel field used only on the genuinely rare
// register/unregister/deliver path.
type waker struct {
	registered atomix.Bool
	mu         sync.Mutex
	ch         chan struct{}
}

func newWaker() *waker {
	return &waker{}
}

// register installs ch as the channel to notify. Consumer-only.
func (w *waker) register(ch chan struct{}) {
	w.mu.Lock()
	w.ch = ch
	w.mu.Unlock()
	w.registered.StoreRelease(true)
}

// unregister clears the installed channel. Consumer-only.
func (w *waker) unregister() {
	w.registered.StoreRelease(false)
	w.mu.Lock()
	w.ch = nil
	w.mu.Unlock()
}

// notify schedules the registered waiter, if any. Safe to call
// concurrently from any producer.
func (w *waker) notify() {
	if !w.registered.LoadAcquire() {
		return
	}

	w.mu.Lock()
	ch := w.ch
	w.mu.Unlock()

	if ch == nil {
		return
	}
	select {
	case ch <- struct{}{}:
	default:
	}
}
