// Package comm provides nonblocking point-to-point messaging between ranks
// of a partitioned computation. The in-process implementation runs every
// rank as a goroutine and routes messages through per-edge mailboxes, which
// is enough to run and test multi-rank solvers on one machine.
package comm

import (
	"sync"

	"github.com/pkg/errors"
)

// Request is an in-flight nonblocking send or receive.
type Request interface {
	// Wait blocks until the operation completes. For receives, the buffer
	// passed to Irecv is filled when Wait returns.
	Wait()
}

// Communicator is one rank's endpoint.
type Communicator interface {
	Rank() int
	Size() int
	// Isend starts a nonblocking send of data to dest. The slice must not
	// be modified until the returned request completes.
	Isend(dest, tag int, data []float64) Request
	// Irecv starts a nonblocking receive from source into buf. The message
	// length must match len(buf).
	Irecv(source, tag int, buf []float64) Request
}

// mailKey identifies one directed message stream.
type mailKey struct {
	source, dest, tag int
}

// Group is an in-process communication fabric. All ranks share one Group;
// each obtains its endpoint via Comm.
type Group struct {
	size  int
	mu    sync.Mutex
	boxes map[mailKey]chan []float64
}

func NewGroup(size int) *Group {
	if size <= 0 {
		panic(errors.Errorf("group size must be positive, got %d", size))
	}
	return &Group{
		size:  size,
		boxes: make(map[mailKey]chan []float64),
	}
}

// box returns the mailbox for a directed stream, creating it on first use
// from either end. Buffering lets a small number of sends complete without
// a matching receive posted.
func (g *Group) box(key mailKey) chan []float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	ch, ok := g.boxes[key]
	if !ok {
		ch = make(chan []float64, 16)
		g.boxes[key] = ch
	}
	return ch
}

// Comm returns the endpoint for the given rank.
func (g *Group) Comm(rank int) Communicator {
	if rank < 0 || rank >= g.size {
		panic(errors.Errorf("rank %d out of range [0,%d)", rank, g.size))
	}
	return &groupComm{group: g, rank: rank}
}

type groupComm struct {
	group *Group
	rank  int
}

func (c *groupComm) Rank() int { return c.rank }
func (c *groupComm) Size() int { return c.group.size }

type chanRequest struct {
	done chan struct{}
}

func (r *chanRequest) Wait() { <-r.done }

func (c *groupComm) Isend(dest, tag int, data []float64) Request {
	if dest < 0 || dest >= c.group.size {
		panic(errors.Errorf("send to rank %d out of range [0,%d)", dest, c.group.size))
	}
	var (
		box = c.group.box(mailKey{source: c.rank, dest: dest, tag: tag})
		req = &chanRequest{done: make(chan struct{})}
	)
	// snapshot so the caller's buffer is free once Wait returns
	msg := make([]float64, len(data))
	copy(msg, data)
	go func() {
		box <- msg
		close(req.done)
	}()
	return req
}

func (c *groupComm) Irecv(source, tag int, buf []float64) Request {
	if source < 0 || source >= c.group.size {
		panic(errors.Errorf("receive from rank %d out of range [0,%d)", source, c.group.size))
	}
	var (
		box = c.group.box(mailKey{source: source, dest: c.rank, tag: tag})
		req = &chanRequest{done: make(chan struct{})}
	)
	go func() {
		msg := <-box
		if len(msg) != len(buf) {
			panic(errors.Errorf(
				"message length mismatch on tag %d: got %d, want %d",
				tag, len(msg), len(buf)))
		}
		copy(buf, msg)
		close(req.done)
	}()
	return req
}

// SingleRank is the trivial communicator for unpartitioned runs.
func SingleRank() Communicator { return NewGroup(1).Comm(0) }
