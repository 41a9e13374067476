// Package catalog loads and exposes the category taxonomy used to
// validate sales. The catalog is built once at startup and never mutated,
// so it is safe to share across goroutines without locking.
package catalog

import (
	"encoding/json"
	"log/slog"
	"os"
	"sort"

	"vendite/internal/core"
)

const (
	DefaultCategory    = "misc"
	DefaultSubCategory = "other"
)

// Catalog maps each category name to its set of allowed sub-categories.
type Catalog struct {
	entries map[string]map[string]struct{}
}

// Default returns the single-entry fallback catalog.
func Default() *Catalog {
	return New(map[string][]string{DefaultCategory: {DefaultSubCategory}})
}

// New builds a catalog from a category -> sub-categories mapping.
func New(entries map[string][]string) *Catalog {
	c := &Catalog{entries: make(map[string]map[string]struct{}, len(entries))}
	for cat, subs := range entries {
		set := make(map[string]struct{}, len(subs))
		for _, sub := range subs {
			set[sub] = struct{}{}
		}
		c.entries[cat] = set
	}
	return c
}

// Load reads the catalog from a JSON file mapping category names to arrays
// of sub-category names. Loading is total: a missing or unreadable file
// falls back to the default catalog rather than failing startup.
func Load(path string) *Catalog {
	data, err := os.ReadFile(path)
	if err != nil {
		slog.Warn("Categories file not readable, using default catalog", "path", path, "error", err)
		return Default()
	}
	var entries map[string][]string
	if err := json.Unmarshal(data, &entries); err != nil {
		slog.Warn("Categories file not valid JSON, using default catalog", "path", path, "error", err)
		return Default()
	}
	if len(entries) == 0 {
		slog.Warn("Categories file empty, using default catalog", "path", path)
		return Default()
	}
	slog.Info("Loaded category catalog", "path", path, "categories", len(entries))
	return New(entries)
}

// Validate checks that the category exists and the sub-category belongs
// to it, returning a core.CategoryError otherwise.
func (c *Catalog) Validate(category, subCategory string) error {
	subs, ok := c.entries[category]
	if !ok {
		return &core.CategoryError{
			Kind:     core.UnknownCategory,
			Category: category,
			Allowed:  c.Categories(),
		}
	}
	if _, ok := subs[subCategory]; !ok {
		return &core.CategoryError{
			Kind:        core.UnknownSubCategory,
			Category:    category,
			SubCategory: subCategory,
			Allowed:     c.SubCategories(category),
		}
	}
	return nil
}

// Categories returns the category names, sorted for stable output.
func (c *Catalog) Categories() []string {
	names := make([]string, 0, len(c.entries))
	for name := range c.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SubCategories returns the sorted sub-category names for a category,
// or nil if the category is unknown.
func (c *Catalog) SubCategories(category string) []string {
	subs, ok := c.entries[category]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(subs))
	for name := range subs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns the full mapping as plain sorted slices, for API responses.
func (c *Catalog) All() map[string][]string {
	out := make(map[string][]string, len(c.entries))
	for cat := range c.entries {
		out[cat] = c.SubCategories(cat)
	}
	return out
}
