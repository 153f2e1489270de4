// Package transport implements the generic, payload-agnostic distributed
// primitives DCRE runs on: point-to-point send/recv, gather-to-root,
// broadcast-from-root, barrier, and the 3-axis halo exchange built on top
// of them (C3). No MPI binding exists anywhere in the example corpus this
// module was grounded on, so Comm is realized in-process with goroutines
// and channels (LocalComm) rather than a real network transport; every
// other package in this module depends only on the Comm interface and is
// agnostic to that choice.
package transport

import "fmt"

// RankID identifies one participant in the process grid.
type RankID int

// Comm is the collective communication contract every rank uses. A
// transport error is fatal to the enclosing step (spec.md §4.3): callers
// are expected to treat any returned error as unrecoverable.
type Comm interface {
	Rank() RankID
	Size() int

	// Send delivers payload to rank to under tag, for to's matching Recv.
	// An implementation may block until that Recv is posted; LocalComm
	// buffers the payload and returns without waiting for it.
	Send(to RankID, tag int, payload []byte) error

	// Recv blocks until a payload sent by from with the same tag is
	// available.
	Recv(from RankID, tag int) ([]byte, error)

	// Gather collects payload from every rank at root, in rank order.
	// Only the caller with Rank() == root receives a non-nil result;
	// every other rank's result is nil.
	Gather(payload []byte, root RankID) ([][]byte, error)

	// Broadcast distributes root's payload to every rank, including
	// root itself. Every rank's return value is identical.
	Broadcast(payload []byte, root RankID) ([]byte, error)

	// Barrier blocks until every rank has called Barrier.
	Barrier()
}

// TransportError wraps a failure inside a Comm operation. Per spec.md §7
// any transport error aborts the enclosing step; there is no partial
// retry.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
