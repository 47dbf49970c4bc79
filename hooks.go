package retake

import "sync"

// FileHook is called after a file's outcome is known. Hooks run on
// worker goroutines, in traversal completion order.
type FileHook func(outcome FileOutcome)

// hooks manages event callbacks for run progress.
type hooks struct {
	mu              sync.RWMutex
	onFileProcessed []FileHook
}

// newHooks creates a new hooks instance.
func newHooks() *hooks {
	return &hooks{}
}

// OnFileProcessed registers a callback for processed files.
func (h *hooks) OnFileProcessed(fn FileHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onFileProcessed = append(h.onFileProcessed, fn)
}

// fireFileProcessed invokes the registered callbacks for one outcome.
func (h *hooks) fireFileProcessed(outcome FileOutcome) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, fn := range h.onFileProcessed {
		fn(outcome)
	}
}
