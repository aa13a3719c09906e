// File: pool/doc.go
// Package pool
// Author: momentics <momentics@gmail.com>
//
// Generic object recycling for the memring container core: a thin
// sync.Pool wrapper (SyncPool/ObjectPool) and a Resettable-based ItemPool
// specialization Rings use to recycle their Item[T] nodes across
// insert/destroy churn.
// All methods are safe for concurrent use.
package pool
