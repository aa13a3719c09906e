package factory

import "testing"

// TestRingCreationAndSimplePush checks that a duplicate id/name on a
// second Add into the same Ring is silently rewritten to stay unique.
func TestRingCreationAndSimplePush(t *testing.T) {
	f := New(true, true)

	p1, p2 := 1001, 1002
	r1, err := Create[int](f, &p1, 10, "a")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := Add[int](f, &p2, 10, "a"); err != nil {
		t.Fatalf("Add: %v", err)
	}

	r := Find[int](f, &p1)
	if r == nil || r != r1 {
		t.Fatalf("Find(p1) did not return the ring p1 was created in")
	}
	if r.Size() != 2 {
		t.Fatalf("Size = %d, want 2", r.Size())
	}

	id1, _ := r.GetID(1)
	name1, _ := r.GetName(1)
	if id1 == 10 {
		t.Fatalf("second item's id should have been rewritten off the duplicate 10, got %d", id1)
	}
	if name1 == "a" {
		t.Fatalf("second item's name should have been rewritten off the duplicate %q, got %q", "a", name1)
	}
}

// TestCrossRingReferenceCounting checks that two rings sharing one
// payload address report a ref count of 2, dropping to 1 and then to 0 (ring
// gone) as each side removes its reference.
func TestCrossRingReferenceCounting(t *testing.T) {
	f := New(false, false)
	p := 42

	r1, err := Create[int](f, &p, 1, "x")
	if err != nil {
		t.Fatalf("create r1: %v", err)
	}
	r2, err := Create[int](f, &p, 2, "y")
	if err != nil {
		t.Fatalf("create r2: %v", err)
	}

	if got := GetRefCount[int](f, &p); got != 2 {
		t.Fatalf("GetRefCount = %d, want 2", got)
	}

	r1.EraseByData(&p)
	if got := GetRefCount[int](f, &p); got != 1 {
		t.Fatalf("GetRefCount after r1 erase = %d, want 1", got)
	}

	r2.EraseByData(&p)
	if got := Find[int](f, &p); got != nil {
		t.Fatalf("Find(p) after both erased should be nil, got a ring of size %d", got.Size())
	}
	if got := GetRefCount[int](f, &p); got != 0 {
		t.Fatalf("GetRefCount after both erased = %d, want 0", got)
	}
}

func TestGetCreatesWhenAbsent(t *testing.T) {
	f := New(false, false)
	p := 7
	r, err := Get[int](f, &p, 0, "")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !r.IsIn(&p) {
		t.Fatalf("Get should have created a ring containing p")
	}
}

func TestFindEmptyReturnsUnpopulatedRing(t *testing.T) {
	f := New(false, false)
	p := 1
	if _, err := Create[int](f, &p, 0, ""); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if FindEmpty[int](f) != nil {
		t.Fatalf("FindEmpty should be nil: every ring of int is non-empty")
	}
	empty, err := Create[int](f, nil, 0, "")
	if err != nil {
		t.Fatalf("Create(nil): %v", err)
	}
	if FindEmpty[int](f) != empty {
		t.Fatalf("FindEmpty should return the ring created with a nil payload")
	}
}

func TestEraseRemovesRingFromRegistry(t *testing.T) {
	f := New(false, false)
	p := 1
	r, err := Create[int](f, &p, 0, "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	Erase[int](f, r)
	if Find[int](f, &p) != nil {
		t.Fatalf("Find should be nil after Erase")
	}
	if r.Size() != 0 {
		t.Fatalf("erased ring should have been cleared, size = %d", r.Size())
	}
}

func TestMergeDropsAutodestructedSourceFromRegistry(t *testing.T) {
	f := New(false, false)
	a, b := 1, 2
	dest, err := Create[int](f, &a, 0, "")
	if err != nil {
		t.Fatalf("create dest: %v", err)
	}
	src, err := Create[int](f, &b, 0, "")
	if err != nil {
		t.Fatalf("create src: %v", err)
	}

	if _, err := Merge[int](f, dest, src, true); err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if !dest.IsIn(&b) {
		t.Fatalf("dest should contain b after merge")
	}
	if Find[int](f, &b) != dest {
		t.Fatalf("Find(b) should resolve to dest post-merge, not the now-gone src")
	}
}
