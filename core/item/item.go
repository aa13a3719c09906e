// Package item implements the ring node: a payload carrier with a position,
// an id, a name, neighbor links, and a weak set of copies held by sibling
// rings over the same payload address.
//
// Every exported method that touches prev/next/nr/id/name/copies/payload
// is unsynchronized. Neither Ring nor iface takes the per-item lock: every
// call that reaches an Item comes from a Ring method holding the Ring's own
// mutex, which serializes all access. Lock/Unlock are exposed, but nothing
// in this module acquires two Item locks or imposes an order between them.
package item

import (
	"fmt"
	"sync"

	"github.com/momentics/memring/api"
)

// Item is one node in a Ring[T]. The zero value is not usable; construct
// with New.
type Item[T any] struct {
	mu sync.Mutex

	payload *T
	nr      int32
	id      uint32
	name    string

	prev *Item[T]
	next *Item[T]

	copies map[*Item[T]]struct{}

	destroyed bool
}

// New allocates an Item holding payload, not yet linked into any ring.
func New[T any](payload *T, id uint32, name string) *Item[T] {
	it := &Item[T]{
		payload: payload,
		id:      id,
		name:    name,
	}
	it.prev, it.next = it, it // self-loop until linked
	return it
}

// Lock / Unlock expose the per-item mutex to a caller that wants to hold it
// across a multi-field read or a splice. Ring and Interface do not call them.
func (it *Item[T]) Lock()   { it.mu.Lock() }
func (it *Item[T]) Unlock() { it.mu.Unlock() }

// Reset clears an Item back to its pre-New zero state so it can be recycled
// by pool.ItemPool. Must only be called on an Item that is fully detached
// (self-looped) and has already had RemoveFromCopies called on it.
func (it *Item[T]) Reset() {
	it.payload = nil
	it.nr = 0
	it.id = 0
	it.name = ""
	it.prev, it.next = it, it
	it.copies = nil
	it.destroyed = false
}

// Init (re)initializes a zero or Reset Item to carry payload, id, and name,
// self-looped and ready to be linked. Lets a recycled Item stand in for a
// fresh New() allocation.
func (it *Item[T]) Init(payload *T, id uint32, name string) *Item[T] {
	it.payload = payload
	it.id = id
	it.name = name
	it.prev, it.next = it, it
	return it
}

// GetPayload returns the payload handle. Never nil for a live Item.
func (it *Item[T]) GetPayload() *T { return it.payload }

func (it *Item[T]) GetNr() int32     { return it.nr }
func (it *Item[T]) SetNr(nr int32)   { it.nr = nr }
func (it *Item[T]) GetID() uint32    { return it.id }
func (it *Item[T]) SetID(id uint32)  { it.id = id }
func (it *Item[T]) GetName() string  { return it.name }
func (it *Item[T]) SetName(n string) { it.name = n }

func (it *Item[T]) Prev() *Item[T] { return it.prev }
func (it *Item[T]) Next() *Item[T] { return it.next }

// RefCount returns the number of sibling items across other rings that
// currently reference the same payload.
func (it *Item[T]) RefCount() int { return len(it.copies) }

// linkAlone splices this (currently detached, self-looped) item between
// newPrev and newNext. At most one of newPrev/newNext may be nil; a
// missing side is derived from the other. Returns api.ErrStrayItem if the
// declared neighbors are not actually adjacent — the caller failed to hold
// the destination locks.
//
// Callers must hold locks on newPrev and newNext (or the owning Ring's
// lock) before calling.
func (it *Item[T]) linkAlone(newPrev, newNext *Item[T]) error {
	if newPrev == nil && newNext == nil {
		return fmt.Errorf("%w: move requires at least one neighbor hint", api.ErrStrayItem)
	}
	if newPrev == nil {
		newPrev = newNext.prev
	}
	if newNext == nil {
		newNext = newPrev.next
	}
	if newPrev.next != newNext || newNext.prev != newPrev {
		return fmt.Errorf("%w: declared neighbors are no longer adjacent", api.ErrStrayItem)
	}
	it.prev = newPrev
	it.next = newNext
	newPrev.next = it
	newNext.prev = it
	return nil
}

// Move relinks this item so that newPrev.next == it and it.next == newNext.
// At least one of newPrev or newNext must be non-nil; when both are given
// they must be adjacent, else api.ErrStrayItem is returned. If this item is
// currently linked elsewhere it is unlinked first. Callers must hold locks
// on the item itself, its old neighbors (if linked), and the destination
// neighbors.
func (it *Item[T]) Move(newPrev, newNext *Item[T]) error {
	it.unlink()
	return it.linkAlone(newPrev, newNext)
}

// unlink removes this item from its current neighbor chain, leaving it
// self-looped. A no-op if the item is already detached (self-looped).
func (it *Item[T]) unlink() {
	if it.prev == it && it.next == it {
		return
	}
	it.prev.next = it.next
	it.next.prev = it.prev
	it.prev, it.next = it, it
}

// RemoveSelf detaches this item from its ring. Returns true if the ring is
// now empty (this was the only item). Callers must hold locks on this item
// and its neighbors (or the owning Ring's lock).
func (it *Item[T]) RemoveSelf() (empty bool) {
	empty = it.next == it
	it.unlink()
	return empty
}

// Swap exchanges the positions of two currently-linked items in the same
// ring. Used by Ring's sort passes to exchange adjacent out-of-order items.
// Callers must hold locks
// on both items (address order) and the owning Ring.
func (it *Item[T]) Swap(other *Item[T]) error {
	if it == other {
		return nil
	}
	itPrev, itNext := it.prev, it.next
	otPrev, otNext := other.prev, other.next

	if itNext == other {
		// adjacent: it -> other
		itPrev.next = other
		other.prev = itPrev
		other.next = it
		it.prev = other
		it.next = otNext
		otNext.prev = it
		return nil
	}
	if otNext == it {
		// adjacent: other -> it
		otPrev.next = it
		it.prev = otPrev
		it.next = other
		other.prev = it
		other.next = itNext
		itNext.prev = other
		return nil
	}
	// non-adjacent: splice each into the other's old slot
	itPrev.next, itNext.prev = other, other
	otPrev.next, otNext.prev = it, it
	it.prev, it.next = otPrev, otNext
	other.prev, other.next = itPrev, itNext
	return nil
}

// Destroy unlinks the item (if still linked) and releases its payload
// according to the cross-ring copy rule: if withPayload is true and the
// copies set is empty, the payload is released (via api.Releasable if
// implemented); otherwise the payload is not released and stays referenced
// by the remaining copies. Returns whether the ring became empty as a result.
func (it *Item[T]) Destroy(withPayload bool) (empty bool) {
	empty = it.RemoveSelf()
	hadCopies := len(it.copies) > 0
	it.RemoveFromCopies()
	it.destroyed = true
	if withPayload && !hadCopies {
		if r, ok := any(it.payload).(api.Releasable); ok {
			r.Release()
		}
	}
	it.payload = nil
	return empty
}

// AddToCopies registers other as a sibling referencing the same payload.
// When cascade is true, other is also linked, symmetrically, to every item
// already in this item's set; members of other's own set are not visited
// (see internal/cascade
// for the queue-based variant used by multi-ring registration).
func (it *Item[T]) AddToCopies(other *Item[T], cascade bool) {
	if it == other || other == nil {
		return
	}
	if it.copies == nil {
		it.copies = make(map[*Item[T]]struct{})
	}
	if _, already := it.copies[other]; already {
		return
	}
	it.copies[other] = struct{}{}
	if other.copies == nil {
		other.copies = make(map[*Item[T]]struct{})
	}
	other.copies[it] = struct{}{}

	if cascade {
		for m := range it.copies {
			if m == other {
				continue
			}
			m.AddToCopies(other, false)
			other.AddToCopies(m, false)
		}
	}
}

// CopiesSnapshot returns the current copy set as a fresh map, safe for a
// caller to range over while this item's own set may later change
// underneath it (used by internal/cascade's worklist walk).
func (it *Item[T]) CopiesSnapshot() map[*Item[T]]struct{} {
	out := make(map[*Item[T]]struct{}, len(it.copies))
	for m := range it.copies {
		out[m] = struct{}{}
	}
	return out
}

// RemoveFromCopies detaches this item from every sibling's copy set.
func (it *Item[T]) RemoveFromCopies() {
	for m := range it.copies {
		delete(m.copies, it)
	}
	it.copies = nil
}

// CompareByData orders two items by their payload, using cmp. Returns
// negative/zero/positive like a three-way comparator.
func CompareByData[T any](a, b *Item[T], cmp api.Comparator[T]) int {
	return cmp(a.payload, b.payload)
}

// CompareByID orders two items by id.
func CompareByID[T any](a, b *Item[T]) int {
	switch {
	case a.id < b.id:
		return -1
	case a.id > b.id:
		return 1
	default:
		return 0
	}
}

// CompareByName orders two items by name, case-insensitively, matching the
// original's documented sortByName behavior.
func CompareByName[T any](a, b *Item[T]) int {
	return compareFold(a.name, b.name)
}

func compareFold(a, b string) int {
	al, bl := foldLower(a), foldLower(b)
	switch {
	case al < bl:
		return -1
	case al > bl:
		return 1
	default:
		return 0
	}
}

func foldLower(s string) string {
	bs := []byte(s)
	out := make([]byte, len(bs))
	for i, c := range bs {
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		out[i] = c
	}
	return string(out)
}
