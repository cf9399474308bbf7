// SPDX-License-Identifier: MPL-2.0

package run

import (
	"sync/atomic"

	"github.com/graftlabs/graft/pkg/transform"
)

// Stream is the caller's view of one invocation: the item, progress, and
// notice channels plus the terminal result. It is built for a single
// consumer; all channels close together when the invocation ends.
type Stream struct {
	state atomic.Int32
	count atomic.Int64

	items    chan transform.Item
	progress chan transform.ProgressEvent
	notices  chan transform.Notice

	// err is written exactly once, before done closes.
	err  error
	done chan struct{}
}

func newStream(buffer int) *Stream {
	return &Stream{
		items:    make(chan transform.Item, buffer),
		progress: make(chan transform.ProgressEvent, buffer),
		notices:  make(chan transform.Notice, buffer),
		done:     make(chan struct{}),
	}
}

// Items returns the output item channel. Delivered items stand even when
// the invocation later fails; the channel closes at the terminal state.
func (s *Stream) Items() <-chan transform.Item { return s.items }

// Progress returns the progress side channel. Consume it concurrently with
// Items; stale events are replaced when the consumer falls behind.
func (s *Stream) Progress() <-chan transform.ProgressEvent { return s.progress }

// Notices returns the user-facing notice channel.
func (s *Stream) Notices() <-chan transform.Notice { return s.notices }

// Done returns a channel closed when the invocation reaches a terminal
// state.
func (s *Stream) Done() <-chan struct{} { return s.done }

// Wait blocks until the invocation ends and returns its error, nil on
// completion. Undrained items remain readable afterwards.
func (s *Stream) Wait() error {
	<-s.done
	return s.err
}

// State returns the current lifecycle state.
func (s *Stream) State() State { return State(s.state.Load()) }

// Count returns the number of data items delivered so far. No-data
// emissions are not counted.
func (s *Stream) Count() int { return int(s.count.Load()) }

// transition flips the state from one specific phase to the next and
// reports whether it won. Used for the Pending->Running and
// Running->Streaming edges.
func (s *Stream) transition(from, to State) bool {
	return s.state.CompareAndSwap(int32(from), int32(to))
}

// finish moves the stream into a terminal state, records the result, and
// closes every channel. The first terminal transition wins; later calls
// are no-ops. The caller must guarantee no emitter is live by now.
func (s *Stream) finish(to State, err error) bool {
	for {
		cur := State(s.state.Load())
		if cur.Terminal() {
			return false
		}
		if !s.state.CompareAndSwap(int32(cur), int32(to)) {
			continue
		}
		s.err = err
		close(s.items)
		close(s.progress)
		close(s.notices)
		close(s.done)
		return true
	}
}
