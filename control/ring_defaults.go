// control/ring_defaults.go
// Author: momentics <momentics@gmail.com>
//
// Typed convenience view over ConfigStore for the two knobs a
// factory.Factory built with factory.NewWithRingDefaults reads fresh on
// every Ring it creates: whether new Rings default to using the id map and
// the name map.

package control

// RingDefaults exposes the "use_id_map" / "use_name_map" defaults a caller
// wants every Factory-created Ring to start with, backed by a ConfigStore
// so they can be hot-reloaded like any other runtime setting (see
// factory.NewWithRingDefaults).
type RingDefaults struct {
	store *ConfigStore
}

// NewRingDefaults wraps store, seeding it with the given initial values if
// they are not already present.
func NewRingDefaults(store *ConfigStore, useIDMap, useNameMap bool) *RingDefaults {
	snap := store.GetSnapshot()
	seed := make(map[string]any, 2)
	if _, ok := snap["ring.use_id_map"]; !ok {
		seed["ring.use_id_map"] = useIDMap
	}
	if _, ok := snap["ring.use_name_map"]; !ok {
		seed["ring.use_name_map"] = useNameMap
	}
	if len(seed) > 0 {
		store.SetConfig(seed)
	}
	return &RingDefaults{store: store}
}

// UseIDMap reports the current id-map default.
func (d *RingDefaults) UseIDMap() bool {
	v, _ := d.store.GetSnapshot()["ring.use_id_map"].(bool)
	return v
}

// UseNameMap reports the current name-map default.
func (d *RingDefaults) UseNameMap() bool {
	v, _ := d.store.GetSnapshot()["ring.use_name_map"].(bool)
	return v
}
