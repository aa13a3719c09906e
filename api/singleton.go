// api/singleton.go
//
// Process-wide Factory lifecycle: explicit init and teardown (construction
// is lazy-with-explicit-init; nothing relies on unordered package-level
// teardown).

package api

import "sync"

// defaultFactory is any rather than *factory.Factory to avoid api importing
// core/factory, which already imports api; singleton.go only hands the
// value back out through InitDefault/DefaultFactory, both typed by the
// caller via a type assertion against the concrete *factory.Factory.
var (
	singletonMu sync.Mutex
	singleton   any
)

// InitDefault installs factoryInstance as the process-wide default Factory.
// Calling it again before ShutdownDefault replaces the previous instance
// without tearing it down — callers that need ordered teardown should do
// so themselves before re-initializing.
func InitDefault(factoryInstance any) {
	singletonMu.Lock()
	singleton = factoryInstance
	singletonMu.Unlock()
}

// DefaultFactory returns the process-wide Factory installed by InitDefault,
// or nil if none has been installed yet.
func DefaultFactory() any {
	singletonMu.Lock()
	defer singletonMu.Unlock()
	return singleton
}

// ShutdownDefault clears the process-wide Factory reference. It does not
// itself destroy the Factory's Rings; callers should do that (e.g. via
// factory.Erase for each bucket) before calling ShutdownDefault if eager
// cleanup matters, since Go's garbage collector will otherwise reclaim the
// Factory and its Rings once nothing references them.
func ShutdownDefault() {
	singletonMu.Lock()
	singleton = nil
	singletonMu.Unlock()
}
