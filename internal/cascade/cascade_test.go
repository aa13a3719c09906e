package cascade

import (
	"testing"

	"github.com/momentics/memring/core/item"
)

// TestPropagateLinksDirectlyToEveryMatch covers the common case: a new item
// sharing a payload with several already-registered siblings gets linked to
// each of them.
func TestPropagateLinksDirectlyToEveryMatch(t *testing.T) {
	v := 1
	a := item.New(&v, 1, "a")
	b := item.New(&v, 2, "b")
	c := item.New(&v, 3, "c")

	Propagate(a, []*item.Item[int]{b, c})

	if a.RefCount() != 2 {
		t.Fatalf("a.RefCount() = %d, want 2", a.RefCount())
	}
	if b.RefCount() != 1 || c.RefCount() != 1 {
		t.Fatalf("b/c RefCount() = %d/%d, want 1/1", b.RefCount(), c.RefCount())
	}
}

// TestPropagateClosesTransitiveUnion covers the multi-ring fan-out case: b
// and c already share a copy relationship from an earlier registration, so
// linking a new item to b must also reach c through the BFS closure without
// a direct a-c match ever being reported.
func TestPropagateClosesTransitiveUnion(t *testing.T) {
	v := 1
	a := item.New(&v, 1, "a")
	b := item.New(&v, 2, "b")
	c := item.New(&v, 3, "c")
	d := item.New(&v, 4, "d")

	b.AddToCopies(c, false)
	c.AddToCopies(d, false)

	Propagate(a, []*item.Item[int]{b})

	for name, it := range map[string]*item.Item[int]{"b": b, "c": c, "d": d} {
		if !hasCopy(a, it) {
			t.Fatalf("a should be linked to %s after propagation", name)
		}
	}
	if a.RefCount() != 3 {
		t.Fatalf("a.RefCount() = %d, want 3 (b, c, d)", a.RefCount())
	}
}

// TestPropagateWithNoMatchesIsANoop covers the case RegisterItem short-
// circuits before ever calling Propagate, exercised here directly for
// completeness: an empty match list links nothing.
func TestPropagateWithNoMatchesIsANoop(t *testing.T) {
	v := 1
	a := item.New(&v, 1, "a")
	Propagate(a, nil)
	if a.RefCount() != 0 {
		t.Fatalf("a.RefCount() = %d, want 0", a.RefCount())
	}
}

func hasCopy(it, other *item.Item[int]) bool {
	_, ok := it.CopiesSnapshot()[other]
	return ok
}
