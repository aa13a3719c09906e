package item

import (
	"testing"
)

func TestNewIsSelfLooped(t *testing.T) {
	v := 42
	it := New(&v, 1, "a")
	if it.Next() != it || it.Prev() != it {
		t.Fatalf("fresh item must be self-looped, got next=%p prev=%p self=%p", it.Next(), it.Prev(), it)
	}
	if it.GetPayload() != &v {
		t.Fatalf("GetPayload mismatch")
	}
}

func TestMoveLinksBetweenNeighbors(t *testing.T) {
	v1, v2, v3 := 1, 2, 3
	a := New(&v1, 1, "a")
	b := New(&v2, 2, "b")
	c := New(&v3, 3, "c")

	// link a -> b -> a (2-ring)
	if err := b.Move(a, a); err != nil {
		t.Fatalf("b.Move: %v", err)
	}
	if a.Next() != b || a.Prev() != b || b.Next() != a || b.Prev() != a {
		t.Fatalf("expected 2-cycle a<->b")
	}

	// insert c between a and b
	if err := c.Move(a, b); err != nil {
		t.Fatalf("c.Move: %v", err)
	}
	if a.Next() != c || c.Next() != b || b.Next() != a {
		t.Fatalf("expected a -> c -> b -> a, got a.next=%p c.next=%p b.next=%p", a.Next(), c.Next(), b.Next())
	}
}

func TestMoveRejectsNonAdjacentNeighbors(t *testing.T) {
	v1, v2, v3 := 1, 2, 3
	a := New(&v1, 1, "a")
	b := New(&v2, 2, "b")
	c := New(&v3, 3, "c")
	// a and c are not linked to each other at all.
	if err := b.Move(a, c); err == nil {
		t.Fatalf("expected stray item error")
	}
}

func TestSwapAdjacent(t *testing.T) {
	v1, v2, v3 := 1, 2, 3
	a := New(&v1, 1, "a")
	b := New(&v2, 2, "b")
	c := New(&v3, 3, "c")
	_ = b.Move(a, a) // a<->b
	_ = c.Move(b, a) // a -> b -> c -> a

	if err := a.Swap(b); err != nil {
		t.Fatalf("swap: %v", err)
	}
	// expect b -> a -> c -> b
	if b.Next() != a || a.Next() != c || c.Next() != b {
		t.Fatalf("unexpected order after swap: b.next=%p a.next=%p c.next=%p", b.Next(), a.Next(), c.Next())
	}
}

func TestSwapNonAdjacent(t *testing.T) {
	v1, v2, v3, v4 := 1, 2, 3, 4
	a := New(&v1, 1, "a")
	b := New(&v2, 2, "b")
	c := New(&v3, 3, "c")
	d := New(&v4, 4, "d")
	_ = b.Move(a, a) // a<->b
	_ = c.Move(b, a) // a,b,c
	_ = d.Move(c, a) // a,b,c,d

	if err := a.Swap(c); err != nil {
		t.Fatalf("swap: %v", err)
	}
	// expect c -> b -> a -> d -> c
	if c.Next() != b || b.Next() != a || a.Next() != d || d.Next() != c {
		t.Fatalf("unexpected order after non-adjacent swap")
	}
}

func TestDestroyReleasesPayloadOnlyWhenCopiesEmpty(t *testing.T) {
	rel := &releasable{}
	it1 := New(rel, 1, "a")
	it2 := New(rel, 2, "b")
	it1.AddToCopies(it2, false)

	it1.Destroy(true)
	if rel.released {
		t.Fatalf("payload released while a copy still references it")
	}
	it2.Destroy(true)
	if !rel.released {
		t.Fatalf("payload should release once the last copy is destroyed")
	}
}

type releasable struct{ released bool }

func (r *releasable) Release() { r.released = true }

func TestAddToCopiesCascadeIsSymmetricAndTransitive(t *testing.T) {
	v := 1
	a := New(&v, 1, "a")
	b := New(&v, 2, "b")
	c := New(&v, 3, "c")

	a.AddToCopies(b, true)
	a.AddToCopies(c, true) // cascade should link b<->c too

	if _, ok := b.copies[c]; !ok {
		t.Fatalf("expected cascade to link b and c transitively")
	}
	if _, ok := c.copies[b]; !ok {
		t.Fatalf("expected symmetric link c -> b")
	}
}

func TestCompareByIDAndName(t *testing.T) {
	v := 1
	a := New(&v, 5, "Zebra")
	b := New(&v, 9, "apple")
	if CompareByID(a, b) >= 0 {
		t.Fatalf("expected a < b by id")
	}
	if CompareByName(a, b) <= 0 {
		t.Fatalf("expected 'Zebra' > 'apple' case-insensitively")
	}
}
