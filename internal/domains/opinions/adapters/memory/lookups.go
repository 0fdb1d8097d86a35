package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/Apurer/opinions-api/internal/domains/opinions/domain"
	"github.com/Apurer/opinions-api/internal/domains/opinions/ports"
)

var _ ports.LookupResolver = (*LookupCatalog)(nil)

// LookupCatalog holds the element and document type catalogues. Name matching ignores case.
type LookupCatalog struct {
	mu      sync.RWMutex
	entries map[domain.LookupKind][]domain.LookupEntry
}

// NewLookupCatalog seeds a catalogue with the given entries.
func NewLookupCatalog(seed map[domain.LookupKind][]domain.LookupEntry) *LookupCatalog {
	c := &LookupCatalog{entries: map[domain.LookupKind][]domain.LookupEntry{}}
	for kind, list := range seed {
		c.entries[kind] = append([]domain.LookupEntry(nil), list...)
	}
	return c
}

// Add registers an entry; an id already present is replaced.
func (c *LookupCatalog) Add(kind domain.LookupKind, entry domain.LookupEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	list := c.entries[kind]
	for i := range list {
		if list[i].ID == entry.ID {
			list[i] = entry
			return
		}
	}
	c.entries[kind] = append(list, entry)
}

func (c *LookupCatalog) ResolveID(_ context.Context, kind domain.LookupKind, name string) (int64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	name = strings.TrimSpace(name)
	for _, e := range c.entries[kind] {
		if strings.EqualFold(e.Name, name) {
			return e.ID, nil
		}
	}
	return 0, ports.ErrNotFound
}

func (c *LookupCatalog) ResolveName(_ context.Context, kind domain.LookupKind, id int64) (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, e := range c.entries[kind] {
		if e.ID == id {
			return e.Name, nil
		}
	}
	return "", ports.ErrNotFound
}
