package adapter

import (
	"sort"
	"sync"

	"shelfwatch/app/source"
)

// Registry maps stable adapter ids to concrete adapters. Resolution
// happens per item at run time; an unresolvable id fails that item
// with a ConfigError, never the whole run.
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]Adapter
}

func NewRegistry() *Registry {
	return &Registry{adapters: make(map[string]Adapter)}
}

func (r *Registry) Register(a Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[a.ID()] = a
}

func (r *Registry) Resolve(src source.Config) (Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.adapters[src.AdapterID]
	if !ok {
		return nil, &source.ConfigError{ItemID: src.ItemID, Msg: "unknown adapter id '" + src.AdapterID + "'"}
	}
	return a, nil
}

func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.adapters))
	for id := range r.adapters {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.adapters)
}
