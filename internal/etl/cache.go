package etl

import (
	"context"
	"sync"
)

// SchemaCache holds the descriptor of each table for one run. The first
// caller for a table builds it; concurrent callers wait for that result.
// Schema errors are cached too, any other failure is retried by the next caller.
type SchemaCache struct {
	mu      sync.Mutex
	entries map[string]*schemaEntry
}

type schemaEntry struct {
	ready chan struct{}
	desc  *Descriptor
	err   error
}

func NewSchemaCache() *SchemaCache {
	return &SchemaCache{entries: make(map[string]*schemaEntry)}
}

// Reset drops every entry. Called at run start.
func (c *SchemaCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*schemaEntry)
}

func (c *SchemaCache) Get(ctx context.Context, table string, build func(context.Context) (*Descriptor, error)) (*Descriptor, error) {
	c.mu.Lock()
	e, ok := c.entries[table]
	if ok {
		c.mu.Unlock()
		select {
		case <-e.ready:
			return e.desc, e.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	e = &schemaEntry{ready: make(chan struct{})}
	c.entries[table] = e
	c.mu.Unlock()

	e.desc, e.err = build(ctx)
	if e.err != nil && KindOf(e.err) != KindSchema {
		c.mu.Lock()
		if c.entries[table] == e {
			delete(c.entries, table)
		}
		c.mu.Unlock()
	}
	close(e.ready)
	return e.desc, e.err
}

// Len is the number of cached tables.
func (c *SchemaCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
