// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package achan

import (
	"errors"
	"fmt"

	"code.hybscloud.com/iox"
)

// ErrFull indicates that TrySend could not proceed because the buffer
// currently holds capacity unpopped messages.
//
// This is an alias for [iox.ErrWouldBlock] for ecosystem consistency:
// errors.Is(err, iox.ErrWouldBlock) holds for ErrFull.
var ErrFull = iox.ErrWouldBlock

// ErrEmpty indicates that TryRecv could not proceed because the buffer
// is currently empty (and the channel is not yet closed).
//
// This is an alias for [iox.ErrWouldBlock] for ecosystem consistency.
var ErrEmpty = iox.ErrWouldBlock

// ErrSenderClosed indicates that the channel is closed: no further
// messages will be accepted by TrySend or Send.
var ErrSenderClosed = errors.New("achan: send on closed channel")

// ErrReceiverClosed indicates that the channel is closed and every
// message already buffered has been received.
var ErrReceiverClosed = errors.New("achan: receive on closed and drained channel")

// TrySendError is returned by TrySend when a message could not be
// queued. The rejected value is preserved so the caller never silently
// loses it.
type TrySendError[T any] struct {
	Value T
	Err   error // ErrFull or ErrSenderClosed
}

func (e *TrySendError[T]) Error() string {
	return fmt.Sprintf("achan: try-send failed: %v", e.Err)
}

func (e *TrySendError[T]) Unwrap() error { return e.Err }

// SendError is returned by Send when the message was not delivered —
// either the channel closed while (or before) the call parked, or the
// caller's context was cancelled first. The rejected value is
// preserved so the caller never silently loses it.
type SendError[T any] struct {
	Value T
	Err   error // ErrSenderClosed, or the ctx.Err() that cancelled Send
}

func (e *SendError[T]) Error() string {
	return fmt.Sprintf("achan: send failed: %v", e.Err)
}

func (e *SendError[T]) Unwrap() error { return e.Err }

// IsWouldBlock reports whether err indicates that the operation would
// block (buffer full or empty). Delegates to [iox.IsWouldBlock] for
// wrapped error support.
func IsWouldBlock(err error) bool {
	return iox.IsWouldBlock(err)
}

// IsSemantic reports whether err is a control flow signal rather than a
// failure. Delegates to [iox.IsSemantic].
func IsSemantic(err error) bool {
	return iox.IsSemantic(err)
}

// IsNonFailure reports whether err represents a non-failure condition.
// Delegates to [iox.IsNonFailure].
func IsNonFailure(err error) bool {
	return iox.IsNonFailure(err)
}

// IsClosed reports whether err indicates that the channel is closed,
// whether surfaced as a plain sentinel or wrapped in a payload-carrying
// error type.
func IsClosed(err error) bool {
	return errors.Is(err, ErrSenderClosed) || errors.Is(err, ErrReceiverClosed)
}
