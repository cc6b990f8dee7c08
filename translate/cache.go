package translate

import (
	"sync"

	"github.com/ponyql/queryc/ast"
)

// Cache is the caller-owned, AST-keyed translator cache described in
// spec.md §5: a translator is expensive to rebuild for the same
// comprehension shape, but the Translator type itself holds no global
// state, so callers who want memoisation own a Cache instance and guard it
// with their own mutex discipline — this just centralises that mutex.
type Cache struct {
	mu    sync.Mutex
	byKey map[*ast.Comprehension]*Translator
}

func NewCache() *Cache { return &Cache{byKey: map[*ast.Comprehension]*Translator{}} }

func (c *Cache) Get(key *ast.Comprehension) (*Translator, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	tr, ok := c.byKey[key]
	return tr, ok
}

func (c *Cache) Put(key *ast.Comprehension, tr *Translator) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byKey[key] = tr
}

// SQLCache memoises a dialect pretty printer's eventual string output,
// keyed by a string the caller derives from the SQL AST. This package
// produces no such key and never prints or caches the SQL string itself,
// since the pretty printer is an external collaborator (spec.md §1
// Non-goals).
type SQLCache struct {
	mu    sync.Mutex
	byKey map[string]string
}

func NewSQLCache() *SQLCache { return &SQLCache{byKey: map[string]string{}} }

func (c *SQLCache) Get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.byKey[key]
	return s, ok
}

func (c *SQLCache) Put(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byKey[key] = value
}
