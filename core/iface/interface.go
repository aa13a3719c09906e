// Package iface implements the per-thread cursor view over a Ring: a
// generational handle that re-syncs against the Ring's current (root, size)
// before every access, falling back to the Ring's root on any mismatch. It deliberately excludes the bulk/destructive Ring
// operations (Clear, Save/Load, MergeWith, the erase family, and the map
// toggles), which remain Ring-only.
package iface

import (
	"sync/atomic"

	"github.com/momentics/memring/api"
	"github.com/momentics/memring/core/item"
	"github.com/momentics/memring/core/ring"
)

// Interface is a thread-local cursor over a Ring[T]. The zero value is not
// usable; construct with New.
type Interface[T any] struct {
	r *ring.Ring[T]

	cachedRoot *item.Item[T]
	cachedSize int32
	cur        *item.Item[T]

	interrupted atomic.Bool
}

// New returns a cursor positioned at the Ring's current root.
func New[T any](r *ring.Ring[T]) *Interface[T] {
	iv := &Interface[T]{r: r}
	iv.resync()
	return iv
}

// resync compares the cached (root, size) against the Ring's current values
// and, on any mismatch, falls back to the Ring's root. Root and Size each
// take the Ring lock briefly; nothing else is locked.
func (iv *Interface[T]) resync() {
	root := iv.r.Root()
	size := iv.r.Size()
	if root == iv.cachedRoot && size == iv.cachedSize && (iv.cur != nil || size == 0) {
		return
	}
	iv.cachedRoot = iv.r.Root()
	iv.cachedSize = iv.r.Size()
	iv.cur = iv.cachedRoot
}

// InterruptSorting signals a Sort running (possibly on another goroutine
// sharing the same Ring) via this Interface's cursor to stop at its next
// safe checkpoint. The signal stays set, stopping every later Sort or
// SortOnce through this Interface, until ResetInterrupt clears it.
func (iv *Interface[T]) InterruptSorting() { iv.interrupted.Store(true) }

// ResetInterrupt clears a prior InterruptSorting signal.
func (iv *Interface[T]) ResetInterrupt() { iv.interrupted.Store(false) }

// interruptFunc adapts this Interface's flag to the func() bool signature
// Ring.Sort / Ring.SortOnce expect.
func (iv *Interface[T]) interruptFunc() func() bool {
	return func() bool { return iv.interrupted.Load() }
}

// Sort runs a full sort on the underlying ring, stoppable via
// InterruptSorting.
func (iv *Interface[T]) Sort(ascending bool, cmp api.Comparator[T]) (int32, error) {
	return iv.r.Sort(ascending, cmp, iv.interruptFunc())
}

// SortOnce runs a single bubble pass on the underlying ring.
func (iv *Interface[T]) SortOnce(ascending bool, cmp api.Comparator[T]) (int32, error) {
	return iv.r.SortOnce(ascending, cmp, iv.interruptFunc())
}

// Current returns the payload the cursor currently points at, re-syncing
// first. Returns nil on an empty ring.
func (iv *Interface[T]) Current() *T {
	iv.resync()
	if iv.cur == nil {
		return nil
	}
	return iv.cur.GetPayload()
}

// Next advances the cursor by one position (wrapping) and returns the new
// current payload.
func (iv *Interface[T]) Next() *T {
	iv.resync()
	if iv.cur == nil {
		return nil
	}
	iv.cur = iv.cur.Next()
	return iv.cur.GetPayload()
}

// Prev moves the cursor back by one position (wrapping) and returns the new
// current payload.
func (iv *Interface[T]) Prev() *T {
	iv.resync()
	if iv.cur == nil {
		return nil
	}
	iv.cur = iv.cur.Prev()
	return iv.cur.GetPayload()
}

// GoTo moves the cursor directly to position nr (normalized as the Ring
// normalizes positions) and returns the payload there.
func (iv *Interface[T]) GoTo(nr int32) (*T, error) {
	iv.resync()
	if iv.cur == nil || iv.cachedSize <= 0 {
		return nil, api.ErrNrOutOfRange
	}
	pos := nr % iv.cachedSize
	if pos < 0 {
		pos += iv.cachedSize
	}
	cur := iv.cachedRoot
	for i := int32(0); i < pos; i++ {
		cur = cur.Next()
	}
	iv.cur = cur
	return cur.GetPayload(), nil
}

// Insert inserts payload at pos through the underlying Ring and re-syncs
// the cursor to the Ring's new state.
func (iv *Interface[T]) Insert(payload *T, pos int32, id uint32, name string) (int32, error) {
	nr, err := iv.r.Insert(payload, pos, id, name)
	iv.forceResync()
	return nr, err
}

// Remove removes the item at nr through the underlying Ring and re-syncs.
func (iv *Interface[T]) Remove(nr int32) (*T, error) {
	payload, err := iv.r.Remove(nr)
	iv.forceResync()
	return payload, err
}

// Move relocates an item through the underlying Ring and re-syncs.
func (iv *Interface[T]) Move(oldNr, newNr int32) (int32, error) {
	nr, err := iv.r.Move(oldNr, newNr)
	iv.forceResync()
	return nr, err
}

// forceResync unconditionally refreshes the cached (root, size) pair,
// bypassing the cheap comparison in resync. Used right after a mutation
// this same Interface issued, where the cache is known stale.
func (iv *Interface[T]) forceResync() {
	iv.cachedRoot = nil
	iv.cachedSize = -1
	iv.resync()
}

// Ring returns the underlying Ring, for operations iface intentionally does
// not promote (Clear, Save, Load, MergeWith, DelItem*, EraseByData,
// UseIDMap, UseNameMap, DisableTracking).
func (iv *Interface[T]) Ring() *ring.Ring[T] { return iv.r }
