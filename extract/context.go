package extract

import (
	"encoding/json"
	"sync"
)

// Context is the mutable key/value bag shared across one top-level
// evaluation. It is passed by reference deliberately: a mutation performed by
// one step is visible to later steps and to sibling and descendant rules
// evaluated afterwards within the same call. The recursive fan-out of a
// single crawl may read and write it concurrently, so access is guarded;
// unrelated crawls must be given independent Context instances by the caller.
type Context struct {
	mu   sync.RWMutex
	data map[string]any
}

func NewContext(seed map[string]any) *Context {
	c := &Context{data: make(map[string]any, len(seed))}
	for k, v := range seed {
		c.data[k] = v
	}
	return c
}

func (c *Context) Get(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.data[key]
	return v, ok
}

func (c *Context) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
}

// SetDefault stores value only when key is absent, so fetch metadata never
// overwrites caller-supplied keys.
func (c *Context) SetDefault(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.data[key]; !ok {
		c.data[key] = value
	}
}

func (c *Context) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
}

func (c *Context) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}

// Snapshot returns a shallow copy of the current contents.
func (c *Context) Snapshot() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]any, len(c.data))
	for k, v := range c.data {
		out[k] = v
	}
	return out
}

func (c *Context) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Snapshot())
}
