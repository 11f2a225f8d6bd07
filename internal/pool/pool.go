// Package pool implements a bounded, recyclable byte-buffer allocator.
//
// It is deliberately not a sync.Pool: a sync.Pool never blocks and never
// enforces an upper bound on live allocations, but the accept-demux task
// needs Take to block once the pool has reached its ceiling — that block
// is the single-buffer-in-flight backpressure policy described in
// spec.md section 4.4. A buffered channel gives both the free list and
// the "wake a blocked Take" notification for free.
package pool

import "context"

// Buffer is a pooled, fixed-size byte buffer. Len records how many bytes
// of Data hold a valid datagram; callers must not read past Len.
type Buffer struct {
	Data []byte
	Len  int

	pool *Pool
}

// Recycle returns the buffer to its pool. It is a no-op when called on a
// buffer that already belongs to a full pool's free list — callers may
// safely call Recycle exactly once per Take.
func (b *Buffer) Recycle() {
	if b == nil || b.pool == nil {
		return
	}
	b.pool.recycle(b)
}

// Pool is a bounded pool of fixed-size buffers. At most `ceiling` buffers
// are ever live at once; Take blocks past that point until Recycle frees
// one up.
type Pool struct {
	size    int
	ceiling int

	free      chan *Buffer
	allocSlot chan struct{} // one slot per buffer not yet allocated
}

// New creates a pool of buffers of the given size, allowing at most
// ceiling buffers to be allocated at any time.
func New(size, ceiling int) *Pool {
	if ceiling < 1 {
		ceiling = 1
	}
	p := &Pool{
		size:      size,
		ceiling:   ceiling,
		free:      make(chan *Buffer, ceiling),
		allocSlot: make(chan struct{}, ceiling),
	}
	for i := 0; i < ceiling; i++ {
		p.allocSlot <- struct{}{}
	}
	return p
}

// Take returns a buffer, allocating a fresh one if the pool has not yet
// reached its ceiling, or blocking until a live buffer is recycled once
// it has. Returns ctx.Err() if ctx is cancelled first.
func (p *Pool) Take(ctx context.Context) (*Buffer, error) {
	select {
	case b := <-p.free:
		b.Len = 0
		return b, nil
	default:
	}

	select {
	case <-p.allocSlot:
		return &Buffer{Data: make([]byte, p.size), pool: p}, nil
	default:
	}

	select {
	case b := <-p.free:
		b.Len = 0
		return b, nil
	case <-p.allocSlot:
		return &Buffer{Data: make([]byte, p.size), pool: p}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *Pool) recycle(b *Buffer) {
	select {
	case p.free <- b:
	default:
		// Pool already holds ceiling buffers worth of free-list capacity;
		// this one is simply dropped per spec.md 4.1.
	}
}

// Size returns the fixed buffer size this pool allocates.
func (p *Pool) Size() int { return p.size }
