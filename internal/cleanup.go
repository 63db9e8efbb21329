package internal

import (
	"log"
	"sync"
)

// CleanupManager tracks resources and ensures ordered cleanup in LIFO order.
type CleanupManager struct {
	mu    sync.Mutex
	funcs []cleanupFunc
}

type cleanupFunc struct {
	name string
	fn   func() error
}

// NewCleanupManager creates a new cleanup manager.
func NewCleanupManager() *CleanupManager {
	return &CleanupManager{}
}

// Add registers a cleanup function under a name used in failure diagnostics.
// Functions run in LIFO order (last added, first executed) so that dependent
// resources are released before the resources they depend on.
func (m *CleanupManager) Add(name string, fn func() error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.funcs = append(m.funcs, cleanupFunc{name: name, fn: fn})
}

// Execute runs all registered cleanup functions in LIFO order, logging any
// errors. Every cleanup function runs even if earlier ones fail.
func (m *CleanupManager) Execute() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := len(m.funcs) - 1; i >= 0; i-- {
		cleanup := m.funcs[i]
		if err := cleanup.fn(); err != nil {
			log.Printf("cleanup failed for %s: %v", cleanup.name, err)
		}
	}
	m.funcs = nil
}
