// File: api/types.go
//
// Shared contracts used across the memring packages: the comparator
// contract for sorted operations, the payload codec contract for wire
// serialization, and the optional release hook a payload may implement.

package api

import "io"

// Comparator reports the relative order of a and b: negative if a < b,
// zero if equal, positive if a > b. Required to be a strict weak ordering;
// memring does not verify this and a non-total order may cause Sort /
// SortOnce to spin (see DESIGN.md).
type Comparator[T any] func(a, b *T) int

// Releasable is implemented by payloads that need explicit teardown once
// the last Item referencing them is destroyed. Items that don't implement
// it are simply dropped for the garbage collector to reclaim.
type Releasable interface {
	Release()
}

// Codec encodes and decodes a single payload value for Ring.Save / Ring.Load.
// The core never interprets the bytes it produces; they are whatever the
// payload type's own stream representation is, exactly as in the original
// where T's stream operators did the work.
type Codec[T any] interface {
	Encode(w io.Writer, v *T) error
	Decode(r io.Reader) (*T, error)
}
