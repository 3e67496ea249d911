// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package achan

// defaultSpinLimit bounds how many non-blocking push/pop attempts Send
// and Recv make before registering with the sender-wait event or the
// receiver-wait waker and parking. Keeping this small avoids burning CPU
// under heavy contention while still absorbing brief races with the
// consumer freeing a slot.
const defaultSpinLimit = 32

// options configures channel construction.
type options struct {
	spinLimit int
}

// Option configures a channel created by New.
type Option func(*options)

// WithSpinLimit sets how many non-blocking push/pop attempts Send and
// Recv make before registering with the sender-wait event or the
// receiver-wait waker and parking. A value <= 0 disables spinning
// entirely, parking on the first failed attempt.
func WithSpinLimit(n int) Option {
	return func(o *options) { o.spinLimit = n }
}

func resolveOptions(opts []Option) options {
	o := options{spinLimit: defaultSpinLimit}
	for _, apply := range opts {
		apply(&o)
	}
	return o
}

// roundToPow2 rounds n up to the next power of 2.
func roundToPow2(n int) int {
	if n < 1 {
		return 1
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return n + 1
}
