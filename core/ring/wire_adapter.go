package ring

import (
	"io"

	"github.com/momentics/memring/api"
	"github.com/momentics/memring/core/item"
	"github.com/momentics/memring/internal/wire"
)

// MaxID, UseIDMapOn, UseNameMapOn, RingName, and ForEachItem back
// wireView's implementation of wire.Writer[T]. Callers must hold r.mu
// (satisfied by Save, which calls these through saveRing while already locked).
func (r *Ring[T]) MaxID() uint32      { return r.maxID }
func (r *Ring[T]) UseIDMapOn() bool   { return r.useIDMapFlag }
func (r *Ring[T]) UseNameMapOn() bool { return r.useNameMapFlag }
func (r *Ring[T]) RingName() string   { return r.name }

func (r *Ring[T]) ForEachItem(fn func(id uint32, name string, payload *T)) {
	r.forEach(func(it *item.Item[T]) {
		fn(it.GetID(), it.GetName(), it.GetPayload())
	})
}

// ClearForLoad, SetMapsForLoad, SetRingNameForLoad, and AppendForLoad
// implement wire.Loader[T]. Called only from loadRing while r.mu is held.
func (r *Ring[T]) ClearForLoad() {
	r.root = nil
	r.size = 0
	r.maxID = 0
	r.idMap = nil
	r.nameMap = nil
	r.useIDMapFlag = false
	r.useNameMapFlag = false
	r.needsRenumber = false
}

func (r *Ring[T]) SetMapsForLoad(useID, useName bool) {
	if useID {
		r.idMap = make(map[uint32]*item.Item[T])
		r.useIDMapFlag = true
	}
	if useName {
		r.nameMap = make(map[string]*item.Item[T])
		r.useNameMapFlag = true
	}
}

func (r *Ring[T]) SetRingNameForLoad(name string) { r.name = name }

func (r *Ring[T]) AppendForLoad(payload *T, id uint32, name string) error {
	_, err := r.insertLocked(payload, -1, id, name)
	return err
}

// wireView satisfies wire.Writer/wire.Loader over *Ring[T]; Ring can't
// implement them directly since UseIDMap is already its public map-toggle
// method.
var (
	_ wire.Writer[struct{}] = wireView[struct{}]{}
	_ wire.Loader[struct{}] = wireView[struct{}]{}
)

func saveRing[T any](w io.Writer, r *Ring[T], codec api.Codec[T]) error {
	return wire.Save[T](w, wireView[T]{r}, codec)
}

func loadRing[T any](rd io.Reader, r *Ring[T], codec api.Codec[T], search bool) error {
	return wire.Load[T](rd, wireView[T]{r}, codec, search)
}

// wireView adapts Ring's UseIDMapOn/UseNameMapOn naming to the
// UseIDMap/UseNameMap names wire.Writer expects, avoiding a clash with
// Ring's own public UseIDMap(bool) toggle method.
type wireView[T any] struct{ r *Ring[T] }

func (v wireView[T]) MaxID() uint32    { return v.r.MaxID() }
func (v wireView[T]) UseIDMap() bool   { return v.r.UseIDMapOn() }
func (v wireView[T]) UseNameMap() bool { return v.r.UseNameMapOn() }
func (v wireView[T]) RingName() string { return v.r.RingName() }
func (v wireView[T]) ForEachItem(fn func(id uint32, name string, payload *T)) {
	v.r.ForEachItem(fn)
}
func (v wireView[T]) ClearForLoad()                      { v.r.ClearForLoad() }
func (v wireView[T]) SetMapsForLoad(useID, useName bool) { v.r.SetMapsForLoad(useID, useName) }
func (v wireView[T]) SetRingNameForLoad(name string)     { v.r.SetRingNameForLoad(name) }
func (v wireView[T]) AppendForLoad(payload *T, id uint32, name string) error {
	return v.r.AppendForLoad(payload, id, name)
}
