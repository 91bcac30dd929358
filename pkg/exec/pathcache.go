package exec

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// PathCache implements the `hash`/command-hashing supplement of
// SPEC_FULL.md §4.12: once a command name has been resolved against
// $PATH, the resolution is remembered so repeated invocations skip
// the directory walk, same as a real shell's hash table. A change to
// $PATH invalidates the whole cache rather than trying to reconcile
// individual entries.
type PathCache struct {
	mu      sync.Mutex
	path    string
	entries map[string]string
}

func NewPathCache() *PathCache {
	return &PathCache{entries: map[string]string{}}
}

// Lookup resolves name to an executable's full path by searching
// path's colon-separated directories in order, consulting (and
// populating) the cache. A name containing a `/` is returned as-is,
// per POSIX: it is never looked up in $PATH.
func (c *PathCache) Lookup(name, path string) (string, bool) {
	if strings.Contains(name, "/") {
		return name, isExecutable(name)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.path != path {
		c.entries = map[string]string{}
		c.path = path
	}
	if full, ok := c.entries[name]; ok {
		if isExecutable(full) {
			return full, true
		}
		delete(c.entries, name)
	}

	for _, dir := range strings.Split(path, ":") {
		if dir == "" {
			dir = "."
		}
		full := filepath.Join(dir, name)
		if isExecutable(full) {
			c.entries[name] = full
			return full, true
		}
	}
	return "", false
}

// Forget drops name from the cache, per the `hash -d name` built-in.
func (c *PathCache) Forget(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, name)
}

// Clear empties the whole cache, per `hash -r`.
func (c *PathCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = map[string]string{}
}

// Hashed returns a snapshot of the cache's current entries, for the
// `hash` built-in's no-argument listing form.
func (c *PathCache) Hashed() map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]string, len(c.entries))
	for k, v := range c.entries {
		out[k] = v
	}
	return out
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	return info.Mode()&0o111 != 0
}
