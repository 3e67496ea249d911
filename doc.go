// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package achan provides a bounded, asynchronous, multi-producer
// single-consumer (MPSC) channel.
//
// The channel transports values of an arbitrary element type from any
// number of Sender handles to exactly one Receiver handle, applying
// backpressure once the bounded buffer fills and parking both sides
// cooperatively via context.Context rather than busy-waiting.
//
// # Quick Start
//
//	s, r := achan.New[int](1024)
//
//	go func() {
//	    defer s.Release()
//	    for i := range 10 {
//	        if err := s.Send(context.Background(), i); err != nil {
//	            return
//	        }
//	    }
//	}()
//
//	for {
//	    v, err := r.Recv(context.Background())
//	    if err != nil {
//	        break // channel closed and drained
//	    }
//	    process(v)
//	}
//
// # Non-blocking Operations
//
// TrySend and TryRecv never park. They return immediately with
// [ErrFull]/[ErrEmpty] when the operation cannot proceed:
//
//	if err := s.TrySend(v); err != nil {
//	    if achan.IsWouldBlock(err) {
//	        // buffer full, retry later
//	    }
//	}
//
// # Closure
//
// The channel closes when the Receiver is released or closed, when the
// last Sender is released, or when Sender.Close or Receiver.Close is
// called explicitly. Closure never discards messages already in the
// buffer: Recv keeps draining until the buffer is empty, only then
// does it return [ErrReceiverClosed]. Send and TrySend, on the other
// hand, fail immediately once closed — no new message is ever accepted
// after that point.
//
// # Handle Lifetime
//
// Senders are cloneable (Clone); each clone must eventually be released
// with Release, mirroring the reference-counted ownership model of the
// shared channel state. A Release call that drops the channel's last
// Sender reference closes the channel automatically, same as Receiver
// being released. Forgetting to call Release leaks nothing unsafe — a
// runtime finalizer is a backstop that performs the same release when
// the handle is garbage collected — but Release should still be called
// explicitly wherever possible since finalization timing is not
// guaranteed.
//
// # Streaming
//
// Receiver.Stream returns an iter.Seq[T] suitable for range-over-func,
// terminating when the channel closes and drains:
//
//	for v := range r.Stream(ctx) {
//	    process(v)
//	}
//
// # Dependencies
//
// This package uses [code.hybscloud.com/iox] for semantic errors,
// [code.hybscloud.com/atomix] for atomic primitives with explicit
// memory ordering, and [code.hybscloud.com/spin] for CPU pause
// instructions during the queue's CAS retry loop.
package achan
