package fonts

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Source loads the raw bytes of a font program by family name.
type Source interface {
	Load(family string) ([]byte, error)
}

// DirSource resolves families against .ttf/.otf files in a directory, with
// optional explicit family-to-path mappings taking precedence.
type DirSource struct {
	Dir     string
	Mapping map[string]string // family -> file path
}

func (s DirSource) Load(family string) ([]byte, error) {
	if path, ok := s.Mapping[family]; ok {
		return os.ReadFile(path)
	}
	if s.Dir == "" {
		return nil, fmt.Errorf("no font source for family %q", family)
	}
	for _, ext := range []string{".ttf", ".otf", ".TTF", ".OTF"} {
		path := filepath.Join(s.Dir, family+ext)
		if data, err := os.ReadFile(path); err == nil {
			return data, nil
		}
	}
	return nil, fmt.Errorf("no font file for family %q in %s", family, s.Dir)
}

// Cache memoizes font bytes by family name for the lifetime of the process.
// Font programs are immutable, so a family is loaded at most once; the lock
// keeps the populate-on-miss step safe even if row processing is ever made
// concurrent.
type Cache struct {
	source Source

	mu       sync.Mutex
	byFamily map[string]*Font
}

func NewCache(source Source) *Cache {
	return &Cache{source: source, byFamily: make(map[string]*Font)}
}

// Resolve returns the cached font for a family, loading and parsing it on
// first use. Families without a configured file fall back to the builtin
// base-font metrics; unknown families fall back to Helvetica with a
// non-nil error left to the caller's discretion.
func (c *Cache) Resolve(family string) (*Font, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if f, ok := c.byFamily[family]; ok {
		return f, nil
	}
	f, err := c.load(family)
	if err != nil {
		return nil, err
	}
	c.byFamily[family] = f
	return f, nil
}

func (c *Cache) load(family string) (*Font, error) {
	if c.source != nil {
		if data, err := c.source.Load(family); err == nil {
			return Parse(family, data)
		}
	}
	if f := Builtin(family); f != nil {
		return f, nil
	}
	return nil, fmt.Errorf("font family %q not available", family)
}
