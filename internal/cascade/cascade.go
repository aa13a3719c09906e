// Package cascade propagates cross-ring "copies" relationships using a
// breadth-first worklist instead of the recursive closure item.AddToCopies
// uses for the common single-pair case. The Factory's RegisterItem path can
// discover many existing items sharing a payload address across several
// rings at once; fanning that out recursively risks deep call chains when a
// popular payload accumulates many siblings, so the multi-match path is
// queue-driven instead.
package cascade

import (
	"github.com/eapache/queue"

	"github.com/momentics/memring/core/item"
)

// Linker is the minimal bidirectional-link operation cascade needs from an
// Item, exposed to avoid cascade depending on item's internals beyond its
// already-exported AddToCopies.
type Linker[T any] interface {
	AddToCopies(other *item.Item[T], transitive bool)
}

// Propagate links newItem symmetrically to every item in matches, then to
// every item reachable from them through existing copy sets (the existing
// items are not linked to one another here), walking them with a FIFO
// worklist (queue.Queue from the original ring's eapache/queue dependency,
// repurposed here for this BFS rather than as a producer/consumer channel).
func Propagate[T any](newItem *item.Item[T], matches []*item.Item[T]) {
	seen := make(map[*item.Item[T]]struct{}, len(matches)+1)
	seen[newItem] = struct{}{}

	q := queue.New()
	for _, m := range matches {
		if _, dup := seen[m]; dup {
			continue
		}
		seen[m] = struct{}{}
		newItem.AddToCopies(m, false)
		q.Add(m)
	}

	for q.Length() > 0 {
		cur := q.Remove().(*item.Item[T])
		for neighbor := range cur.CopiesSnapshot() {
			if _, dup := seen[neighbor]; dup {
				continue
			}
			seen[neighbor] = struct{}{}
			newItem.AddToCopies(neighbor, false)
			q.Add(neighbor)
		}
	}
}
