// Package ring implements the circular, typed container over item.Item: the
// sole authoritative state of a memory ring. It maintains the root, the
// element count, optional id/name maps, lazy renumbering, sorted and
// positional insertion, merge, and the bit-exact serialization format
// implemented by internal/wire.
//
// A Ring is safe for direct concurrent use through its own mutex, which
// every method holds for its whole duration; no per-item locks are taken.
// The re-syncing per-thread cursor lives one layer up, in core/iface.
package ring

import (
	"fmt"
	"io"
	"sync"

	"github.com/momentics/memring/api"
	"github.com/momentics/memring/core/item"
	"github.com/momentics/memring/pool"
)

// RegisterFunc is called by a Ring whose TrackRefs is on and which has been
// adopted by a Factory, once per newly linked item and before any other
// thread can observe it. Sets up cross-ring copy-set bookkeeping.
type RegisterFunc[T any] func(*item.Item[T]) error

// Ring is a typed circular container of item.Item[T].
type Ring[T any] struct {
	mu sync.Mutex

	root *item.Item[T]
	size int32

	maxID uint32

	useIDMapFlag   bool
	useNameMapFlag bool
	idMap          map[uint32]*item.Item[T]
	nameMap        map[string]*item.Item[T]

	trackRefs bool
	name      string

	needsRenumber bool

	registerFn RegisterFunc[T]

	itemPool *pool.ItemPool[*item.Item[T]]
}

// SetItemPool installs a recycler for this Ring's Item nodes: subsequent
// inserts draw from it instead of allocating, and destroys return their
// Item to it instead of discarding it for GC. Passing nil (the default)
// disables pooling.
func (r *Ring[T]) SetItemPool(p *pool.ItemPool[*item.Item[T]]) {
	r.mu.Lock()
	r.itemPool = p
	r.mu.Unlock()
}

func (r *Ring[T]) allocItem(payload *T, id uint32, name string) *item.Item[T] {
	if r.itemPool != nil {
		return r.itemPool.Get().Init(payload, id, name)
	}
	return item.New(payload, id, name)
}

func (r *Ring[T]) releaseItem(it *item.Item[T]) {
	if r.itemPool != nil {
		r.itemPool.Put(it)
	}
}

// New constructs an empty Ring. useIDMap / useNameMap enable the respective
// secondary indices from the start; trackRefs enables cross-ring payload
// reference tracking (on by default, see DisableTracking).
func New[T any](name string, useIDMap, useNameMap bool) *Ring[T] {
	r := &Ring[T]{
		name:      name,
		trackRefs: true,
	}
	if useIDMap {
		r.idMap = make(map[uint32]*item.Item[T])
		r.useIDMapFlag = true
	}
	if useNameMap {
		r.nameMap = make(map[string]*item.Item[T])
		r.useNameMapFlag = true
	}
	return r
}

// Name returns the ring's own display name.
func (r *Ring[T]) Name() string { return r.name }

// SetRingName sets the ring's own display name (not an item name).
func (r *Ring[T]) SetRingName(n string) { r.mu.Lock(); r.name = n; r.mu.Unlock() }

// Size returns the element count. Read-only; never blocks on anything but
// the ring mutex.
func (r *Ring[T]) Size() int32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.size
}

// Root returns the item currently at position 0, or nil if empty. Exposed
// for core/iface's re-sync comparisons.
func (r *Ring[T]) Root() *item.Item[T] {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.root
}

// TrackRefs reports whether cross-ring reference tracking is active.
func (r *Ring[T]) TrackRefs() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.trackRefs
}

// DisableTracking irreversibly turns off cross-ring reference tracking:
// subsequent deletions release payloads unconditionally, without
// consulting the copy set.
func (r *Ring[T]) DisableTracking() {
	r.mu.Lock()
	r.trackRefs = false
	r.mu.Unlock()
}

// SetRegisterFunc installs the Factory callback invoked on every newly
// linked item while TrackRefs is on. Passing nil detaches the Ring from any
// Factory (used by standalone Rings).
func (r *Ring[T]) SetRegisterFunc(fn RegisterFunc[T]) {
	r.mu.Lock()
	r.registerFn = fn
	r.mu.Unlock()
}

// Lock / Unlock expose the ring-level mutex. Every Ring method takes it
// itself, so a caller holding it must not call Ring methods before Unlock.
func (r *Ring[T]) Lock()   { r.mu.Lock() }
func (r *Ring[T]) Unlock() { r.mu.Unlock() }

// normalizeNumber folds a signed position into [0, size): values at or past
// size wrap modulo size, negative values count back from the end. Requires
// size > 0.
func normalizeNumber(nr, size int32) int32 {
	if nr >= size {
		nr %= size
	}
	if nr < 0 {
		nr = size - ((-nr) % size)
		if nr == size {
			nr = 0
		}
	}
	return nr
}

// renumber recomputes every item's nr from root forward under the ring
// lock, then clears the needs-renumber flag. Caller must hold r.mu.
func (r *Ring[T]) renumber() {
	if !r.needsRenumber || r.root == nil {
		return
	}
	cur := r.root
	var i int32
	for {
		cur.SetNr(i)
		i++
		cur = cur.Next()
		if cur == r.root {
			break
		}
	}
	r.needsRenumber = false
}

// locate returns the item at the given (already normalized) position,
// walking from whichever end is closer. Caller must hold r.mu and must have
// called r.renumber() since the last structural change, or pass a position
// derived from a pre-renumber walk directly (this function does not read
// cached nr, it only counts hops).
func (r *Ring[T]) locate(nr int32) *item.Item[T] {
	return locateFrom(r.root, nr, r.size)
}

// locateFrom is locate's size-parameterized core, usable against a ring size
// other than r.size (Move needs to address the ring with the item being
// relocated already detached, one smaller than r.size).
func locateFrom[T any](root *item.Item[T], nr, size int32) *item.Item[T] {
	if root == nil {
		return nil
	}
	if nr <= size/2 {
		cur := root
		for i := int32(0); i < nr; i++ {
			cur = cur.Next()
		}
		return cur
	}
	cur := root
	for i := int32(0); i < size-nr; i++ {
		cur = cur.Prev()
	}
	return cur
}

// genID mints a unique id, advancing maxID every call. A requested id of
// zero becomes 1; a requested id already present in the id map (when on)
// is replaced by the new maxID watermark. Caller must hold r.mu.
func (r *Ring[T]) genID(requested uint32) uint32 {
	r.maxID++
	if requested == 0 {
		requested = 1
	}
	if r.useIDMapFlag {
		if _, taken := r.idMap[requested]; taken {
			requested = r.maxID
		}
	}
	if requested > r.maxID {
		r.maxID = requested
	}
	return requested
}

// genName mints a unique name: an empty request is synthesized from maxID,
// and a collision against the name map (when on) gets a numeric suffix
// appended until it's unique. Caller must hold r.mu.
func (r *Ring[T]) genName(requested string) string {
	if requested == "" {
		requested = fmt.Sprintf("data_%010d", r.maxID)
	}
	if r.useNameMapFlag {
		base := requested
		for counter := 0; ; counter++ {
			if _, taken := r.nameMap[requested]; !taken {
				break
			}
			requested = fmt.Sprintf("%s_%010d", base, counter)
		}
	}
	return requested
}

// Insert places a new item holding payload. If pos >= 0 it pushes the
// current occupant of that (normalized) position forward; if pos < 0 it
// inserts after the item at that (normalized) position. Returns the item's
// final nr.
func (r *Ring[T]) Insert(payload *T, pos int32, id uint32, name string) (int32, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.insertLocked(payload, pos, id, name)
}

func (r *Ring[T]) insertLocked(payload *T, pos int32, id uint32, name string) (int32, error) {
	newID := r.genID(id)
	newName := r.genName(name)
	newItem := r.allocItem(payload, newID, newName)

	if r.size == 0 {
		r.root = newItem
		r.size = 1
		newItem.SetNr(0)
		r.needsRenumber = false
		if err := r.linkMaps(newItem); err != nil {
			r.root = nil
			r.size = 0
			return 0, err
		}
		r.registerIfTracked(newItem)
		return 0, nil
	}

	r.renumber()
	target := normalizeNumber(pos, r.size)
	occupant := r.locate(target)

	var finalNr int32
	if pos >= 0 {
		if err := newItem.Move(occupant.Prev(), occupant); err != nil {
			return 0, err
		}
		finalNr = target
		if target == 0 {
			r.root = newItem
		}
	} else {
		if err := newItem.Move(occupant, occupant.Next()); err != nil {
			return 0, err
		}
		finalNr = target + 1
	}

	r.size++
	newItem.SetNr(finalNr)
	r.needsRenumber = true

	if err := r.linkMaps(newItem); err != nil {
		newItem.RemoveSelf()
		r.size--
		if target == 0 && pos >= 0 {
			r.root = occupant
		}
		return 0, err
	}
	r.registerIfTracked(newItem)

	return finalNr, nil
}

func (r *Ring[T]) linkMaps(it *item.Item[T]) error {
	if r.useIDMapFlag {
		if _, exists := r.idMap[it.GetID()]; exists {
			return fmt.Errorf("%w: id %d already present", api.ErrNoIDMapAvailable, it.GetID())
		}
		r.idMap[it.GetID()] = it
	}
	if r.useNameMapFlag {
		if _, exists := r.nameMap[it.GetName()]; exists {
			return fmt.Errorf("%w: name %q already present", api.ErrNoNameMapAvailable, it.GetName())
		}
		r.nameMap[it.GetName()] = it
	}
	return nil
}

func (r *Ring[T]) unlinkMaps(it *item.Item[T]) {
	if r.useIDMapFlag {
		delete(r.idMap, it.GetID())
	}
	if r.useNameMapFlag {
		delete(r.nameMap, it.GetName())
	}
}

func (r *Ring[T]) registerIfTracked(it *item.Item[T]) {
	if r.trackRefs && r.registerFn != nil {
		_ = r.registerFn(it) // best-effort: cascade failures are discarded
	}
}

// InsertSorted inserts payload before the first item that compares greater
// than it (ascending) or lesser (descending), per cmp.
func (r *Ring[T]) InsertSorted(payload *T, id uint32, name string, ascending bool, cmp api.Comparator[T]) (int32, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.size == 0 {
		return r.insertLocked(payload, 0, id, name)
	}
	r.renumber()

	cur := r.root
	pos := int32(-1) // not found -> push
	for i := int32(0); i < r.size; i++ {
		c := cmp(cur.GetPayload(), payload)
		greater := (ascending && c > 0) || (!ascending && c < 0)
		if greater {
			pos = i
			break
		}
		cur = cur.Next()
	}
	return r.insertLocked(payload, pos, id, name)
}

// Push appends payload as the new tail (alias for Insert(payload, -1, ...)).
func (r *Ring[T]) Push(payload *T, id uint32, name string) (int32, error) {
	return r.Insert(payload, -1, id, name)
}

// Unshift prepends payload as the new root (alias for Insert(payload, 0, ...)).
func (r *Ring[T]) Unshift(payload *T, id uint32, name string) (int32, error) {
	return r.Insert(payload, 0, id, name)
}

// Pop removes and returns the tail payload, or nil if empty.
func (r *Ring[T]) Pop() (*T, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.size == 0 {
		return nil, nil
	}
	return r.removeLocked(-1)
}

// Shift removes and returns the root payload, or nil if empty.
func (r *Ring[T]) Shift() (*T, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.size == 0 {
		return nil, nil
	}
	return r.removeLocked(0)
}

// Move relocates the item at oldNr among the OTHER items of the ring: if
// newNr >= 0 it ends up occupying that position, pushing the item that
// previously sat there (and everything after) forward; if newNr < 0 it is
// placed right after the item at that negative position. oldNr normalizes
// against the ring's current size; newNr is normalized and located against the
// ring with the moved item already detached: move(1,3) on [A,B,C,D,E]
// yields [A,C,D,B,E], not [A,C,B,D,E] — newNr=3 targets E, the occupant of
// position 3 among the remaining four items, not D's original slot in the
// full five-item ring.
func (r *Ring[T]) Move(oldNr, newNr int32) (int32, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.size == 0 {
		return 0, api.ErrNrOutOfRange
	}
	r.renumber()
	if r.size == 1 {
		return 0, nil
	}

	xOld := normalizeNumber(oldNr, r.size)
	moved := r.locate(xOld)

	wasRoot := moved == r.root
	oldNext := moved.Next()
	moved.RemoveSelf()
	if wasRoot {
		r.root = oldNext
	}

	reducedSize := r.size - 1
	xNew := normalizeNumber(newNr, reducedSize)
	newNeighbor := locateFrom(r.root, xNew, reducedSize)

	var err error
	if newNr < 0 {
		err = moved.Move(newNeighbor, nil)
	} else {
		err = moved.Move(nil, newNeighbor)
	}
	if err != nil {
		// the ring must never observably lose an item: reattach moved
		// exactly where it was removed from.
		if relinkErr := moved.Move(nil, oldNext); relinkErr == nil && wasRoot {
			r.root = moved
		}
		return 0, err
	}
	if newNr >= 0 && xNew == 0 {
		r.root = moved
	}

	r.needsRenumber = true
	r.renumber()
	return moved.GetNr(), nil
}

// Remove detaches and returns the payload at nr, without consulting the
// cross-ring copy rule (the caller takes ownership back, mirroring the
// original's pop/shift/remove family).
func (r *Ring[T]) Remove(nr int32) (*T, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.size == 0 {
		return nil, nil
	}
	return r.removeLocked(nr)
}

func (r *Ring[T]) removeLocked(nr int32) (*T, error) {
	r.renumber()
	target := normalizeNumber(nr, r.size)
	it := r.locate(target)
	payload := it.GetPayload()
	r.detachAndDestroy(it, false)
	return payload, nil
}

// detachAndDestroy unlinks it from the ring and, if withPayload is true,
// releases its payload per the cross-ring copy rule. Caller must hold r.mu.
func (r *Ring[T]) detachAndDestroy(it *item.Item[T], withPayload bool) {
	becameEmpty := it == r.root && r.size == 1
	if it == r.root {
		if r.size > 1 {
			r.root = it.Next()
		} else {
			r.root = nil
		}
	}
	r.unlinkMaps(it)
	it.Destroy(withPayload)
	r.releaseItem(it)
	r.size--
	if !becameEmpty {
		r.needsRenumber = true
	}
}

// DelItemByID destroys every item with the given id (more than one only if
// the id map is off and ids collide). A no-op if none match.
func (r *Ring[T]) DelItemByID(id uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for {
		it := r.findByIDLocked(id)
		if it == nil {
			return
		}
		r.detachAndDestroy(it, true)
	}
}

// DelItemByName destroys every item with the given name.
func (r *Ring[T]) DelItemByName(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for {
		it := r.findByNameLocked(name)
		if it == nil {
			return
		}
		r.detachAndDestroy(it, true)
	}
}

// DelItemByNr destroys the item at nr, if any.
func (r *Ring[T]) DelItemByNr(nr int32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.size == 0 {
		return
	}
	r.renumber()
	it := r.locate(normalizeNumber(nr, r.size))
	r.detachAndDestroy(it, true)
}

// EraseByData destroys every item holding payload (by address), returning
// the count deleted.
func (r *Ring[T]) EraseByData(payload *T) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for {
		it := r.findByDataLocked(payload)
		if it == nil {
			return n
		}
		r.detachAndDestroy(it, true)
		n++
	}
}

func (r *Ring[T]) findByIDLocked(id uint32) *item.Item[T] {
	if r.useIDMapFlag {
		return r.idMap[id]
	}
	return r.walkFind(func(it *item.Item[T]) bool { return it.GetID() == id })
}

func (r *Ring[T]) findByNameLocked(name string) *item.Item[T] {
	if r.useNameMapFlag {
		return r.nameMap[name]
	}
	return r.walkFind(func(it *item.Item[T]) bool { return it.GetName() == name })
}

func (r *Ring[T]) findByDataLocked(payload *T) *item.Item[T] {
	return r.walkFind(func(it *item.Item[T]) bool { return it.GetPayload() == payload })
}

func (r *Ring[T]) walkFind(pred func(*item.Item[T]) bool) *item.Item[T] {
	if r.root == nil {
		return nil
	}
	cur := r.root
	for {
		if pred(cur) {
			return cur
		}
		cur = cur.Next()
		if cur == r.root {
			return nil
		}
	}
}

// SetID changes the id of the item at nr, uniquified if the id map is on.
// Returns the finally chosen id.
func (r *Ring[T]) SetID(nr int32, id uint32) (uint32, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.size == 0 {
		return 0, api.ErrNrOutOfRange
	}
	r.renumber()
	it := r.locate(normalizeNumber(nr, r.size))
	old := it.GetID()
	if id == old {
		return old, nil
	}
	if r.useIDMapFlag {
		xID := r.genID(id)
		delete(r.idMap, old)
		it.SetID(xID)
		r.idMap[xID] = it
	} else {
		it.SetID(id)
	}
	return it.GetID(), nil
}

// SetName changes the name of the item at nr, uniquified if the name map is
// on. Returns the finally chosen name.
func (r *Ring[T]) SetName(nr int32, name string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.size == 0 {
		return "", api.ErrNrOutOfRange
	}
	r.renumber()
	it := r.locate(normalizeNumber(nr, r.size))
	old := it.GetName()
	if name == old {
		return old, nil
	}
	if r.useNameMapFlag {
		xName := r.genName(name)
		delete(r.nameMap, old)
		it.SetName(xName)
		r.nameMap[xName] = it
	} else {
		it.SetName(name)
	}
	return it.GetName(), nil
}

// Find returns the item holding payload, or nil.
func (r *Ring[T]) Find(payload *T) *item.Item[T] {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.findByDataLocked(payload)
}

// IsIn reports whether payload is stored by some item in this ring.
func (r *Ring[T]) IsIn(payload *T) bool {
	return r.Find(payload) != nil
}

// IsValueIn reports whether some item's payload equals value under eq.
func (r *Ring[T]) IsValueIn(value *T, eq func(a, b *T) bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	it := r.walkFind(func(it *item.Item[T]) bool { return eq(it.GetPayload(), value) })
	return it != nil
}

// Get returns the payload at nr.
func (r *Ring[T]) Get(nr int32) (*T, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.size == 0 {
		return nil, api.ErrNrOutOfRange
	}
	r.renumber()
	return r.locate(normalizeNumber(nr, r.size)).GetPayload(), nil
}

// GetID returns the id of the item at nr.
func (r *Ring[T]) GetID(nr int32) (uint32, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.size == 0 {
		return 0, api.ErrNrOutOfRange
	}
	r.renumber()
	return r.locate(normalizeNumber(nr, r.size)).GetID(), nil
}

// GetName returns the name of the item at nr.
func (r *Ring[T]) GetName(nr int32) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.size == 0 {
		return "", api.ErrNrOutOfRange
	}
	r.renumber()
	return r.locate(normalizeNumber(nr, r.size)).GetName(), nil
}

// GetNrByID returns the nr of the item with the given id.
func (r *Ring[T]) GetNrByID(id uint32) (int32, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	it := r.findByIDLocked(id)
	if it == nil {
		return 0, fmt.Errorf("%w: id %d", api.ErrIDNotFound, id)
	}
	r.renumber()
	return it.GetNr(), nil
}

// GetNrByName returns the nr of the item with the given name.
func (r *Ring[T]) GetNrByName(name string) (int32, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	it := r.findByNameLocked(name)
	if it == nil {
		return 0, fmt.Errorf("%w: name %q", api.ErrNameNotFound, name)
	}
	r.renumber()
	return it.GetNr(), nil
}

// GetRefCount returns the number of sibling items (across other rings)
// referencing the payload at nr.
func (r *Ring[T]) GetRefCount(nr int32) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.size == 0 {
		return 0, api.ErrNrOutOfRange
	}
	r.renumber()
	return r.locate(normalizeNumber(nr, r.size)).RefCount(), nil
}

// UseIDMap turns the id map on or off. Turning it on inserts every existing
// item, uniquifying ids as needed (silently renumbering collisions — see
// DESIGN.md). Turning it off clears the map.
func (r *Ring[T]) UseIDMap(on bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if on == r.useIDMapFlag {
		return nil
	}
	if !on {
		r.idMap = nil
		r.useIDMapFlag = false
		return nil
	}
	r.idMap = make(map[uint32]*item.Item[T])
	r.useIDMapFlag = true
	if r.root == nil {
		return nil
	}
	cur := r.root
	for {
		if _, taken := r.idMap[cur.GetID()]; taken {
			cur.SetID(r.genID(0))
		} else if cur.GetID() > r.maxID {
			r.maxID = cur.GetID()
		}
		r.idMap[cur.GetID()] = cur
		cur = cur.Next()
		if cur == r.root {
			break
		}
	}
	return nil
}

// UseNameMap turns the name map on or off, mirroring UseIDMap.
func (r *Ring[T]) UseNameMap(on bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if on == r.useNameMapFlag {
		return nil
	}
	if !on {
		r.nameMap = nil
		r.useNameMapFlag = false
		return nil
	}
	r.nameMap = make(map[string]*item.Item[T])
	r.useNameMapFlag = true
	if r.root == nil {
		return nil
	}
	cur := r.root
	for {
		if _, taken := r.nameMap[cur.GetName()]; taken {
			cur.SetName(r.genName(""))
		}
		r.nameMap[cur.GetName()] = cur
		cur = cur.Next()
		if cur == r.root {
			break
		}
	}
	return nil
}

// MergeWith moves every item of src to the tail of r, re-uniquifying ids and
// names as needed. src is left empty and destroyed iff autodestruct.
func (r *Ring[T]) MergeWith(src *Ring[T], autodestruct bool) (int32, error) {
	if src == r {
		return 0, fmt.Errorf("%w: cannot merge a ring with itself", api.ErrCantCreateContainer)
	}
	for {
		payload, err := src.popFront()
		if err != nil {
			return 0, err
		}
		if payload == nil {
			break
		}
		if _, err := r.Insert(payload.data, -1, payload.id, payload.name); err != nil {
			return 0, err
		}
	}
	if autodestruct {
		src.Clear()
	}
	return r.Size(), nil
}

type poppedItem[T any] struct {
	data *T
	id   uint32
	name string
}

// popFront removes and returns the root item's full identity (payload, id,
// name) so MergeWith can re-insert it with its original id/name as a hint
// (subject to re-uniquification in the destination ring).
func (r *Ring[T]) popFront() (*poppedItem[T], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.size == 0 {
		return nil, nil
	}
	r.renumber()
	it := r.root
	p := &poppedItem[T]{data: it.GetPayload(), id: it.GetID(), name: it.GetName()}
	r.detachAndDestroy(it, false)
	return p, nil
}

// Clear destroys every item, tail-to-head, with both maps disabled during
// the bulk clear to avoid per-item map mutation.
func (r *Ring[T]) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.root == nil {
		r.maxID = 0
		return
	}
	oldIDMap, oldNameMap := r.useIDMapFlag, r.useNameMapFlag
	r.useIDMapFlag, r.useNameMapFlag = false, false
	r.idMap, r.nameMap = nil, nil

	cur := r.root.Prev()
	for r.root != nil {
		next := cur.Prev()
		r.detachAndDestroy(cur, true)
		cur = next
	}
	r.maxID = 0

	if oldIDMap {
		r.idMap = make(map[uint32]*item.Item[T])
		r.useIDMapFlag = true
	}
	if oldNameMap {
		r.nameMap = make(map[string]*item.Item[T])
		r.useNameMapFlag = true
	}
}

// SortOnce performs a single bubble pass over the ring using cmp (ascending
// if ascending is true), swapping adjacent out-of-order items. It returns
// the number of items moved and can be interrupted by interrupt returning
// true between item comparisons, in which case it returns immediately with
// the moves made so far.
func (r *Ring[T]) SortOnce(ascending bool, cmp api.Comparator[T], interrupt func() bool) (int32, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.size < 2 {
		return 0, nil
	}

	var moved int32
	cur := r.root
	for i := int32(0); i < r.size-1; i++ {
		if interrupt != nil && interrupt() {
			return moved, nil
		}
		nxt := cur.Next()
		c := cmp(cur.GetPayload(), nxt.GetPayload())
		outOfOrder := (ascending && c > 0) || (!ascending && c < 0)
		if outOfOrder {
			wasRoot := cur == r.root
			if err := cur.Swap(nxt); err != nil {
				return moved, err
			}
			if wasRoot {
				r.root = nxt
			}
			moved++
			// cur now sits where nxt was; continue from there
		} else {
			cur = nxt
		}
	}
	r.needsRenumber = true
	return moved, nil
}

// Sort repeatedly runs SortOnce until a pass makes no moves or interrupt
// fires, returning the total number of items moved across all passes.
func (r *Ring[T]) Sort(ascending bool, cmp api.Comparator[T], interrupt func() bool) (int32, error) {
	var total int32
	for {
		moved, err := r.SortOnce(ascending, cmp, interrupt)
		if err != nil {
			return total, err
		}
		total += moved
		if moved == 0 {
			return total, nil
		}
		if interrupt != nil && interrupt() {
			return total, nil
		}
	}
}

// SortByID sorts ascending/descending by item id, bypassing the payload
// comparator entirely.
func (r *Ring[T]) SortByID(ascending bool, interrupt func() bool) (int32, error) {
	return r.sortByKey(ascending, interrupt, func(a, b *item.Item[T]) int {
		return item.CompareByID(a, b)
	})
}

// SortByName sorts ascending/descending by item name, case-insensitively.
func (r *Ring[T]) SortByName(ascending bool, interrupt func() bool) (int32, error) {
	return r.sortByKey(ascending, interrupt, func(a, b *item.Item[T]) int {
		return item.CompareByName(a, b)
	})
}

func (r *Ring[T]) sortOnceByKey(ascending bool, interrupt func() bool, keyCmp func(a, b *item.Item[T]) int) (int32, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.size < 2 {
		return 0, nil
	}
	var moved int32
	cur := r.root
	for i := int32(0); i < r.size-1; i++ {
		if interrupt != nil && interrupt() {
			return moved, nil
		}
		nxt := cur.Next()
		c := keyCmp(cur, nxt)
		outOfOrder := (ascending && c > 0) || (!ascending && c < 0)
		if outOfOrder {
			wasRoot := cur == r.root
			if err := cur.Swap(nxt); err != nil {
				return moved, err
			}
			if wasRoot {
				r.root = nxt
			}
			moved++
			cur = nxt
		} else {
			cur = nxt
		}
	}
	r.needsRenumber = true
	return moved, nil
}

func (r *Ring[T]) sortByKey(ascending bool, interrupt func() bool, keyCmp func(a, b *item.Item[T]) int) (int32, error) {
	var total int32
	for {
		moved, err := r.sortOnceByKey(ascending, interrupt, keyCmp)
		if err != nil {
			return total, err
		}
		total += moved
		if moved == 0 {
			return total, nil
		}
		if interrupt != nil && interrupt() {
			return total, nil
		}
	}
}

// Save writes the ring, header and items, using codec for each payload. See
// internal/wire for the exact framing.
func (r *Ring[T]) Save(w io.Writer, codec api.Codec[T]) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return saveRing(w, r, codec)
}

// Load replaces the ring's contents by reading a previously Save'd stream.
// If search is true, leading bytes up to the next record marker are
// skipped, matching the original's resynchronizing load mode.
func (r *Ring[T]) Load(rd io.Reader, codec api.Codec[T], search bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return loadRing(rd, r, codec, search)
}

// items walks the ring from root and calls fn for each item in order.
// Caller must hold r.mu. Used by internal/wire's save path via the
// unexported accessor below.
func (r *Ring[T]) forEach(fn func(*item.Item[T])) {
	if r.root == nil {
		return
	}
	cur := r.root
	for {
		fn(cur)
		cur = cur.Next()
		if cur == r.root {
			break
		}
	}
}
