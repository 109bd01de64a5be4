package config

import "sync"

type BaseConfigManager[T any] struct {
	mu   sync.RWMutex
	conf *T

	mgr *Manager
}

// C returns the read-only configuration by value. The station configuration is
// loaded once at startup and never mutated afterwards.
func (a *BaseConfigManager[T]) C() T {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return *a.conf
}

func (a *BaseConfigManager[T]) lock() {
	a.mu.Lock()
}

func (a *BaseConfigManager[T]) unlock() {
	a.mu.Unlock()
}
