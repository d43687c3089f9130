package fwdtable

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	pool "github.com/libp2p/go-buffer-pool"
)

// Allocator hands out table buffers and takes them back.
type Allocator interface {
	Alloc(size int) []byte
	Free(b []byte)
}

type poolAllocator struct{}

func (poolAllocator) Alloc(size int) []byte { return pool.Get(size) }
func (poolAllocator) Free(b []byte)         { pool.Put(b) }

// DefaultAllocator recycles table buffers through a shared byte pool.
var DefaultAllocator Allocator = poolAllocator{}

// Buffer is a raw table snapshot owned by a single caller. It must be
// released exactly once; Release is safe to call again and does nothing.
type Buffer struct {
	alloc    Allocator
	data     []byte
	n        int
	released atomic.Bool
}

func newBuffer(alloc Allocator, size int) *Buffer {
	return &Buffer{alloc: alloc, data: alloc.Alloc(size)}
}

// Bytes returns the part of the buffer the OS reported as filled.
func (b *Buffer) Bytes() []byte {
	return b.data[:b.n]
}

// Release gives the memory back to its allocator.
func (b *Buffer) Release() {
	if !b.released.CompareAndSwap(false, true) {
		return
	}
	b.alloc.Free(b.data)
	b.data = nil
	b.n = 0
}

// Acquire sizes, allocates and fills a buffer with the table from src.
//
// The table may grow between the size probe and the fetch; that case is
// retried once with the newly reported size before giving up. If ctx ends
// while the OS call is still blocked, Acquire returns ctx.Err() and the
// buffer is released as soon as the call returns.
func Acquire(ctx context.Context, src Source, alloc Allocator) (*Buffer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if alloc == nil {
		alloc = DefaultAllocator
	}

	type result struct {
		buf *Buffer
		err error
	}
	done := make(chan result, 1)
	go func() {
		buf, err := acquire(src, alloc)
		done <- result{buf, err}
	}()

	select {
	case r := <-done:
		return r.buf, r.err
	case <-ctx.Done():
		go func() {
			if r := <-done; r.buf != nil {
				r.buf.Release()
			}
		}()
		return nil, ctx.Err()
	}
}

func acquire(src Source, alloc Allocator) (*Buffer, error) {
	var size uint32
	if st := src.ReadTable(nil, &size); st != StatusInsufficientBuffer {
		return nil, &UnavailableError{Op: "probe", Code: st}
	}

	for attempt := 0; ; attempt++ {
		buf := newBuffer(alloc, int(size))
		st := src.ReadTable(buf.data, &size)
		switch {
		case st == StatusOK:
			if int(size) > len(buf.data) {
				buf.Release()
				return nil, fmt.Errorf("%w: reported size %d exceeds the %d byte buffer", ErrMalformedTable, size, len(buf.data))
			}
			buf.n = int(size)
			return buf, nil
		case st == StatusInsufficientBuffer && attempt == 0:
			buf.Release()
			slog.Debug("Forwarding table grew between probe and fetch, retrying", "size", size)
		default:
			buf.Release()
			return nil, &UnavailableError{Op: "fetch", Code: st}
		}
	}
}

type options struct {
	alloc  Allocator
	layout Layout
}

// Option configures Load.
type Option func(*options)

// WithAllocator sets the allocator table buffers come from.
func WithAllocator(a Allocator) Option {
	return func(o *options) { o.alloc = a }
}

// WithLayout overrides the record layout used to decode the table.
func WithLayout(l Layout) Option {
	return func(o *options) { o.layout = l }
}

// Load acquires the table from src, decodes it and releases the buffer before
// returning, whichever way decoding ends.
func Load(ctx context.Context, src Source, opts ...Option) (Snapshot, error) {
	o := options{alloc: DefaultAllocator, layout: IPv4ForwardLayout}
	for _, opt := range opts {
		opt(&o)
	}

	buf, err := Acquire(ctx, src, o.alloc)
	if err != nil {
		return Snapshot{}, err
	}
	defer buf.Release()

	entries, err := Decode(buf.Bytes(), o.layout)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{Entries: entries, TakenAt: time.Now()}, nil
}
