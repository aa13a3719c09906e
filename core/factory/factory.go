// Package factory implements the type-keyed registry of Rings: the
// registration contract that wires a Ring's inserts into cross-ring
// reference tracking, and the create/add/get/find/erase/merge surface
// described for the Factory.
//
// Go has no generic methods on a non-generic receiver, so the dynamic
// downcast the original performs at the Factory boundary is replaced here
// by a reflect.Type key: each payload type T gets its own bucket of
// *ring.Ring[T], type-asserted back out of an any on every access. A
// mismatch (wrong T requested for an existing bucket) is a programmer
// error caught by the type assertion, not a runtime "skip this Ring" path,
// since Go's static typing already prevents calling factory.Get[T] against
// the wrong bucket from compiling at any single call site — the dynamic
// check only matters at the bucket lookup itself.
package factory

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/momentics/memring/api"
	"github.com/momentics/memring/control"
	"github.com/momentics/memring/core/item"
	"github.com/momentics/memring/core/ring"
	"github.com/momentics/memring/internal/cascade"
)

// Factory is a process- or scope-wide registry of Rings, indexed by the
// reflect.Type of their payload. Safe for concurrent use.
type Factory struct {
	mu sync.Mutex

	buckets map[reflect.Type]any // reflect.Type -> *bucket[T]

	defaultUseIDMap   bool
	defaultUseNameMap bool

	ringDefaults *control.RingDefaults
}

// bucket holds every live Ring[T] registered for one payload type. There is
// no payload-to-item index: RegisterItem and GetRefCount search the rings.
type bucket[T any] struct {
	rings []*ring.Ring[T]
}

// New constructs an empty Factory. defaultUseIDMap / defaultUseNameMap are
// applied to every Ring this Factory creates via Create / Add.
func New(defaultUseIDMap, defaultUseNameMap bool) *Factory {
	return &Factory{
		buckets:           make(map[reflect.Type]any),
		defaultUseIDMap:   defaultUseIDMap,
		defaultUseNameMap: defaultUseNameMap,
	}
}

// NewWithRingDefaults constructs a Factory whose default id-map/name-map
// policy is read fresh from d on every Ring creation, instead of being fixed
// at construction time. A host that hot-reloads d's backing ConfigStore (see
// control.RingDefaults) changes what every subsequently created Ring starts
// with, without reconstructing the Factory.
func NewWithRingDefaults(d *control.RingDefaults) *Factory {
	return &Factory{
		buckets:      make(map[reflect.Type]any),
		ringDefaults: d,
	}
}

// currentDefaults reports the id-map/name-map policy to apply to the next
// Ring this Factory creates: d's live values if NewWithRingDefaults was
// used, otherwise the fixed booleans passed to New.
func (f *Factory) currentDefaults() (useIDMap, useNameMap bool) {
	if f.ringDefaults != nil {
		return f.ringDefaults.UseIDMap(), f.ringDefaults.UseNameMap()
	}
	return f.defaultUseIDMap, f.defaultUseNameMap
}

func typeKey[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

func bucketFor[T any](f *Factory) *bucket[T] {
	key := typeKey[T]()
	if b, ok := f.buckets[key]; ok {
		return b.(*bucket[T])
	}
	b := &bucket[T]{}
	f.buckets[key] = b
	return b
}

// Create builds a new, empty Ring of T, registers it with the Factory, and
// inserts payload as its first item. The Factory lock is released before
// inserting: Insert may call back into the Factory (registerIfTracked ->
// the register callback) on this same goroutine, and that callback takes
// f.mu itself, so f.mu must not still be held here.
func Create[T any](f *Factory, payload *T, id uint32, name string) (*ring.Ring[T], error) {
	f.mu.Lock()
	useIDMap, useNameMap := f.currentDefaults()
	r := ring.New[T]("", useIDMap, useNameMap)
	b := bucketFor[T](f)
	b.rings = append(b.rings, r)
	wireRegistration(f, r)
	f.mu.Unlock()

	if payload != nil {
		if _, err := r.Insert(payload, -1, id, name); err != nil {
			return nil, fmt.Errorf("%w: %v", api.ErrCantCreateContainer, err)
		}
	}
	return r, nil
}

// Add inserts payload into the first existing Ring of T; if none exists,
// behaves like Create.
func Add[T any](f *Factory, payload *T, id uint32, name string) (*ring.Ring[T], error) {
	f.mu.Lock()
	b := bucketFor[T](f)
	if len(b.rings) == 0 {
		f.mu.Unlock()
		return Create(f, payload, id, name)
	}
	r := b.rings[0]
	f.mu.Unlock()

	if _, err := r.Insert(payload, -1, id, name); err != nil {
		return nil, err
	}
	return r, nil
}

// Get returns the first Ring of T containing payload, creating one (with
// payload already inserted) if none does.
func Get[T any](f *Factory, payload *T, id uint32, name string) (*ring.Ring[T], error) {
	if r := Find[T](f, payload); r != nil {
		return r, nil
	}
	return Create(f, payload, id, name)
}

// Find returns the first Ring of T containing payload, or nil.
func Find[T any](f *Factory, payload *T) *ring.Ring[T] {
	f.mu.Lock()
	b := bucketFor[T](f)
	rings := append([]*ring.Ring[T](nil), b.rings...)
	f.mu.Unlock()

	for _, r := range rings {
		if r.IsIn(payload) {
			return r
		}
	}
	return nil
}

// FindEmpty returns the first empty Ring of T, or nil.
func FindEmpty[T any](f *Factory) *ring.Ring[T] {
	f.mu.Lock()
	b := bucketFor[T](f)
	rings := append([]*ring.Ring[T](nil), b.rings...)
	f.mu.Unlock()

	for _, r := range rings {
		if r.Size() == 0 {
			return r
		}
	}
	return nil
}

// Erase removes and clears r, dropping it from the Factory's registry.
func Erase[T any](f *Factory, r *ring.Ring[T]) {
	f.mu.Lock()
	b := bucketFor[T](f)
	for i, cand := range b.rings {
		if cand == r {
			b.rings = append(b.rings[:i], b.rings[i+1:]...)
			break
		}
	}
	f.mu.Unlock()
	r.SetRegisterFunc(nil)
	r.Clear()
}

// EraseByData removes payload from whichever Ring of T holds it (and
// destroys that Ring if it becomes empty and autodestruct is set), per the
// cross-ring copy rule.
func EraseByData[T any](f *Factory, payload *T, autodestructEmptyRing bool) {
	r := Find[T](f, payload)
	if r == nil {
		return
	}
	r.EraseByData(payload)
	if autodestructEmptyRing && r.Size() == 0 {
		Erase(f, r)
	}
}

// Merge delegates to dest.MergeWith(src, autodestruct) and, if autodestruct
// left src empty, drops it from the registry too.
func Merge[T any](f *Factory, dest, src *ring.Ring[T], autodestruct bool) (int32, error) {
	n, err := dest.MergeWith(src, autodestruct)
	if err != nil {
		return 0, err
	}
	if autodestruct {
		f.mu.Lock()
		b := bucketFor[T](f)
		for i, cand := range b.rings {
			if cand == src {
				b.rings = append(b.rings[:i], b.rings[i+1:]...)
				break
			}
		}
		f.mu.Unlock()
	}
	return n, nil
}

// RegisterContainer adopts r into the Factory's registry for T. If
// itemsOnly is true the Factory does not take ownership (r is not added to
// the bucket for later Find/Get/Erase traversal) but future inserts into r
// still call back into the Factory for cross-ring registration.
func RegisterContainer[T any](f *Factory, r *ring.Ring[T], itemsOnly bool) error {
	f.mu.Lock()
	b := bucketFor[T](f)
	if !itemsOnly {
		b.rings = append(b.rings, r)
	}
	f.mu.Unlock()

	wireRegistration(f, r)
	return nil
}

// wireRegistration installs r's register callback so every future insert
// (while r.TrackRefs() is on) cross-links the newly inserted item against
// matching payloads in other rings. The callback fires from inside
// Ring.Insert while r's own mutex is already held by the calling goroutine,
// so it must never call back into r itself (registerItemExcluding skips r
// for exactly that reason) nor hold f.mu across anything that might touch
// r again.
func wireRegistration[T any](f *Factory, r *ring.Ring[T]) {
	r.SetRegisterFunc(func(it *item.Item[T]) error {
		return registerItemExcluding(f, r, it)
	})
}

// RegisterItem locates every Ring of T holding it.GetPayload() and
// cross-links it into their copy sets via the cascade worklist. Safe to call
// from outside any Ring's own insert path (e.g. after manually linking an
// item into a caller-constructed Ring); it does not assume any lock is
// already held.
func RegisterItem[T any](f *Factory, it *item.Item[T]) error {
	return registerItemExcluding[T](f, nil, it)
}

// registerItemExcluding is RegisterItem's implementation, parameterized by a
// Ring to skip during the cross-ring search. The Factory's register
// callback (wireRegistration) always calls this with owner set to the Ring
// that just linked it: that Ring's mutex is already held by the in-flight
// Insert on this goroutine, so calling owner.Find would self-deadlock, and
// it is pointless besides, since it is already known to be owner's item.
// RegisterItem itself passes a nil owner, searching every Ring of T.
func registerItemExcluding[T any](f *Factory, owner *ring.Ring[T], it *item.Item[T]) error {
	f.mu.Lock()
	b := bucketFor[T](f)
	rings := make([]*ring.Ring[T], 0, len(b.rings))
	for _, r := range b.rings {
		if r != owner {
			rings = append(rings, r)
		}
	}
	f.mu.Unlock()

	var matches []*item.Item[T]
	payload := it.GetPayload()
	for _, r := range rings {
		if m := r.Find(payload); m != nil && m != it {
			matches = append(matches, m)
		}
	}
	if len(matches) == 0 {
		return nil
	}
	cascade.Propagate(it, matches)
	return nil
}

// GetRefCount returns the total number of Items across every Ring of T that
// currently hold payload: the Item's own copy-set size plus one for itself.
// Zero if no Ring holds payload at all.
func GetRefCount[T any](f *Factory, payload *T) int {
	r := Find[T](f, payload)
	if r == nil {
		return 0
	}
	it := r.Find(payload)
	if it == nil {
		return 0
	}
	return it.RefCount() + 1
}
