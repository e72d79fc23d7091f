package dashboard

import (
	"sync"
	"time"
)

type registryKey struct {
	session   string
	dashboard string
}

type registryItem struct {
	value any
	used  time.Time
}

// Registry keeps one dashboard per session and dashboard name.
type Registry struct {
	mu    sync.Mutex
	items map[registryKey]*registryItem
	now   func() time.Time
}

func NewRegistry() *Registry {
	return &Registry{items: make(map[registryKey]*registryItem), now: time.Now}
}

// Lookup returns the dashboard stored for session, creating it on first use.
func Lookup[T any](r *Registry, session, dashboard string, create func() T) T {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := registryKey{session, dashboard}
	if it, ok := r.items[k]; ok {
		if v, ok := it.value.(T); ok {
			it.used = r.now()
			return v
		}
	}
	v := create()
	r.items[k] = &registryItem{value: v, used: r.now()}
	return v
}

// Drop forgets every dashboard of a session.
func (r *Registry) Drop(session string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for k := range r.items {
		if k.session == session {
			delete(r.items, k)
			n++
		}
	}
	return n
}

// Sweep forgets dashboards not looked up for longer than idle.
func (r *Registry) Sweep(idle time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	cutoff := r.now().Add(-idle)
	n := 0
	for k, it := range r.items {
		if it.used.Before(cutoff) {
			delete(r.items, k)
			n++
		}
	}
	return n
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}
