package discord

import (
	"sort"
	"sync"
)

// Owners is the set of users treated as bot owners.
type Owners struct {
	mu  sync.RWMutex
	ids map[string]bool
}

func NewOwners(ids ...string) *Owners {
	o := &Owners{ids: make(map[string]bool)}
	o.Add(ids...)
	return o
}

func (o *Owners) Add(ids ...string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, id := range ids {
		if id != "" {
			o.ids[id] = true
		}
	}
}

// Contains reports whether id is an owner.
func (o *Owners) Contains(id string) bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.ids[id]
}

// List returns the owner ids, sorted.
func (o *Owners) List() []string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make([]string, 0, len(o.ids))
	for id := range o.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
