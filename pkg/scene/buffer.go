package scene

import (
	"errors"
	"sync"
)

// Kind names the primitive a buffer backs.
type Kind string

const (
	KindRibbon   Kind = "ribbon"
	KindPolyline Kind = "polyline"
	KindParticle Kind = "particle"
)

// Buffer is a retained render resource owned by one primitive.
type Buffer interface {
	Release() error
}

// Allocator hands out buffers.
type Allocator interface {
	Allocate(kind Kind) (Buffer, error)
}

// ErrReleased is returned when a buffer is released twice.
var ErrReleased = errors.New("buffer already released")

// Pool is the default allocator. It tracks how many buffers are live so
// leaks show up in Stats.
type Pool struct {
	mu   sync.Mutex
	live map[Kind]int
}

// NewPool returns an empty pool.
func NewPool() *Pool { return &Pool{live: make(map[Kind]int)} }

// Allocate implements Allocator.
func (p *Pool) Allocate(kind Kind) (Buffer, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.live[kind]++
	return &pooled{pool: p, kind: kind}, nil
}

// Live returns the number of unreleased buffers.
func (p *Pool) Live() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, v := range p.live {
		n += v
	}
	return n
}

type pooled struct {
	pool     *Pool
	kind     Kind
	released bool
}

func (b *pooled) Release() error {
	b.pool.mu.Lock()
	defer b.pool.mu.Unlock()
	if b.released {
		return ErrReleased
	}
	b.released = true
	b.pool.live[b.kind]--
	return nil
}
