// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package engine

import (
	"log/slog"
	"sync"
)

// cachedTree is the parsed form of one template version.
type cachedTree struct {
	version int
	tree    *Tree
}

// treeCache is the L1 cache of parsed templates. It holds one tree per
// template ID: the newest version seen. Lookups for any other version
// miss, so a template update never serves a stale tree.
type treeCache struct {
	mu      sync.RWMutex
	entries map[string]cachedTree
}

func newTreeCache() *treeCache {
	return &treeCache{entries: make(map[string]cachedTree)}
}

// get returns the tree for id at exactly version, or nil.
func (c *treeCache) get(id string, version int) *Tree {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[id]
	if !ok || e.version != version {
		return nil
	}
	return e.tree
}

// put stores tree unless a newer version of id is already cached. A
// render that loaded the template just before an update must not push
// the old tree back in.
func (c *treeCache) put(id string, version int, tree *Tree) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[id]; ok && e.version > version {
		return
	}
	c.entries[id] = cachedTree{version: version, tree: tree}
	slog.Debug("template tree cached", "id", id, "version", version, "size", len(c.entries))
}

// invalidate drops the cached tree for id.
func (c *treeCache) invalidate(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, id)
	slog.Debug("template cache invalidated", "id", id)
}

func (c *treeCache) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
