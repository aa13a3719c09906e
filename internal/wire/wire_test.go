package wire

import (
	"bytes"
	"fmt"
	"io"
	"testing"
)

// intCodec implements api.Codec[int] as a plain decimal line, standing in
// for "T's stream operators" the original leaves to the payload type.
type intCodec struct{}

func (intCodec) Encode(w io.Writer, v *int) error {
	_, err := fmt.Fprintf(w, "%d", *v)
	return err
}

func (intCodec) Decode(r io.Reader) (*int, error) {
	var v int
	if _, err := fmt.Fscanf(r, "%d", &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// fakeRing is a minimal in-memory stand-in for *ring.Ring[int] implementing
// both Writer and Loader, so this package can test its own framing without
// importing core/ring (which would cycle back into internal/wire).
type fakeRing struct {
	maxID   uint32
	useID   bool
	useName bool
	name    string
	items   []fakeItem
}

type fakeItem struct {
	id      uint32
	name    string
	payload int
}

func (r *fakeRing) MaxID() uint32      { return r.maxID }
func (r *fakeRing) UseIDMap() bool     { return r.useID }
func (r *fakeRing) UseNameMap() bool   { return r.useName }
func (r *fakeRing) RingName() string   { return r.name }
func (r *fakeRing) ForEachItem(fn func(id uint32, name string, payload *int)) {
	for i := range r.items {
		p := r.items[i].payload
		fn(r.items[i].id, r.items[i].name, &p)
	}
}

func (r *fakeRing) ClearForLoad()                      { r.items = nil }
func (r *fakeRing) SetMapsForLoad(useID, useName bool) { r.useID, r.useName = useID, useName }
func (r *fakeRing) SetRingNameForLoad(name string)     { r.name = name }
func (r *fakeRing) AppendForLoad(payload *int, id uint32, name string) error {
	r.items = append(r.items, fakeItem{id: id, name: name, payload: *payload})
	return nil
}

// TestSaveLoadRoundTrip checks that item sequence, ids, names, and the
// active map flags survive a Save followed by a Load.
func TestSaveLoadRoundTrip(t *testing.T) {
	src := &fakeRing{
		maxID:   3,
		useID:   true,
		useName: true,
		name:    "r1",
		items: []fakeItem{
			{id: 1, name: "n1", payload: 100},
			{id: 2, name: "n2", payload: 200},
			{id: 3, name: "n3", payload: 300},
		},
	}

	var buf bytes.Buffer
	if err := Save[int](&buf, src, intCodec{}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	dst := &fakeRing{}
	if err := Load[int](&buf, dst, intCodec{}, false); err != nil {
		t.Fatalf("Load: %v", err)
	}

	if dst.useID != true || dst.useName != true {
		t.Fatalf("maps not restored: useID=%v useName=%v", dst.useID, dst.useName)
	}
	if len(dst.items) != 3 {
		t.Fatalf("item count = %d, want 3", len(dst.items))
	}
	wantIDs := []uint32{1, 2, 3}
	wantNames := []string{"n1", "n2", "n3"}
	wantPayloads := []int{100, 200, 300}
	for i, it := range dst.items {
		if it.id != wantIDs[i] || it.name != wantNames[i] || it.payload != wantPayloads[i] {
			t.Fatalf("item %d = %+v, want id=%d name=%q payload=%d", i, it, wantIDs[i], wantNames[i], wantPayloads[i])
		}
	}
}

// TestSaveEmptyRingHasNoDataBlock checks that an empty ring's header
// line ends directly, with no D; marker or item lines.
func TestSaveEmptyRingHasNoDataBlock(t *testing.T) {
	src := &fakeRing{maxID: 0, name: "empty"}
	var buf bytes.Buffer
	if err := Save[int](&buf, src, intCodec{}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if bytes.Contains(buf.Bytes(), []byte("D;")) {
		t.Fatalf("empty ring save should not contain a data marker: %q", buf.String())
	}

	dst := &fakeRing{}
	if err := Load[int](bytes.NewReader(buf.Bytes()), dst, intCodec{}, false); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(dst.items) != 0 {
		t.Fatalf("expected no items loaded, got %d", len(dst.items))
	}
}

// TestLoadSearchSkipsLeadingGarbage checks that with search=true, load
// skips bytes until the next 'R' record marker instead of failing.
func TestLoadSearchSkipsLeadingGarbage(t *testing.T) {
	src := &fakeRing{maxID: 1, name: "x", items: []fakeItem{{id: 1, name: "a", payload: 7}}}
	var buf bytes.Buffer
	buf.WriteString("garbage-before-record;;;")
	if err := Save[int](&buf, src, intCodec{}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	dst := &fakeRing{}
	if err := Load[int](&buf, dst, intCodec{}, true); err != nil {
		t.Fatalf("Load with search=true: %v", err)
	}
	if len(dst.items) != 1 || dst.items[0].payload != 7 {
		t.Fatalf("unexpected load result: %+v", dst.items)
	}
}

// TestLoadWithoutSearchFailsOnGarbage checks that with search=false
// the next byte must already be the 'R' marker.
func TestLoadWithoutSearchFailsOnGarbage(t *testing.T) {
	dst := &fakeRing{}
	err := Load[int](bytes.NewReader([]byte("not-a-record")), dst, intCodec{}, false)
	if err == nil {
		t.Fatalf("expected load_failed for non-R leading byte")
	}
}
