// pool/itempool.go
// Author: momentics <momentics@gmail.com>
// SPDX-License-Identifier: MIT
//
// Recycles *item.Item[T] allocations across a Ring's insert/destroy churn,
// built, like SyncPool, directly on sync.Pool.

package pool

import "sync"

// Resettable is implemented by objects an ItemPool can recycle: Reset must
// return the object to a state indistinguishable from a fresh allocation.
type Resettable interface {
	Reset()
}

// ItemPool recycles values of type T that implement Resettable, using a
// sync.Pool under the hood (same mechanism as SyncPool, specialized so
// callers don't have to supply their own New closure per call site).
type ItemPool[T Resettable] struct {
	pool *sync.Pool
}

// NewItemPool builds an ItemPool whose New closure is alloc.
func NewItemPool[T Resettable](alloc func() T) *ItemPool[T] {
	return &ItemPool[T]{
		pool: &sync.Pool{New: func() any { return alloc() }},
	}
}

// Get returns a recycled or freshly allocated T.
func (p *ItemPool[T]) Get() T {
	return p.pool.Get().(T)
}

// Put resets v and returns it to the pool.
func (p *ItemPool[T]) Put(v T) {
	v.Reset()
	p.pool.Put(v)
}
