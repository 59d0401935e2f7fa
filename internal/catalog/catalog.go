// Package catalog holds the read-only tool and strategy registries.
// Catalogs are frozen after construction; the engine only reads them.
package catalog

import (
	"github.com/mkale-dev/swarmd/internal/domain"
)

// ToolEntry is the catalog metadata for one tool.
type ToolEntry struct {
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Input       domain.Schema `json:"input_schema,omitempty"`
	Output      domain.Schema `json:"output_schema,omitempty"`
	Impl        domain.Tool   `json:"-"`
}

// StrategyEntry is the catalog metadata for one strategy.
type StrategyEntry struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Input       domain.Schema   `json:"input_schema,omitempty"`
	Output      domain.Schema   `json:"output_schema,omitempty"`
	Impl        domain.Strategy `json:"-"`
}

// ToolCatalog maps tool names to their entries, preserving
// registration order for listing.
type ToolCatalog struct {
	entries map[string]ToolEntry
	order   []string
}

func NewToolCatalog(entries ...ToolEntry) *ToolCatalog {
	c := &ToolCatalog{entries: make(map[string]ToolEntry, len(entries))}
	for _, e := range entries {
		if _, dup := c.entries[e.Name]; dup {
			continue
		}
		c.entries[e.Name] = e
		c.order = append(c.order, e.Name)
	}
	return c
}

// Lookup returns the entry for name, and whether it exists.
func (c *ToolCatalog) Lookup(name string) (ToolEntry, bool) {
	e, ok := c.entries[name]
	return e, ok
}

// List returns all entries in registration order.
func (c *ToolCatalog) List() []ToolEntry {
	out := make([]ToolEntry, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.entries[name])
	}
	return out
}

// StrategyCatalog maps strategy names to their entries.
type StrategyCatalog struct {
	entries map[string]StrategyEntry
	order   []string
}

func NewStrategyCatalog(entries ...StrategyEntry) *StrategyCatalog {
	c := &StrategyCatalog{entries: make(map[string]StrategyEntry, len(entries))}
	for _, e := range entries {
		if _, dup := c.entries[e.Name]; dup {
			continue
		}
		c.entries[e.Name] = e
		c.order = append(c.order, e.Name)
	}
	return c
}

func (c *StrategyCatalog) Lookup(name string) (StrategyEntry, bool) {
	e, ok := c.entries[name]
	return e, ok
}

func (c *StrategyCatalog) List() []StrategyEntry {
	out := make([]StrategyEntry, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.entries[name])
	}
	return out
}
