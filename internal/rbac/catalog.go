package rbac

import (
	"fmt"
	"sort"
	"strings"
)

// Catalog is the closed, immutable set of permission definitions.
type Catalog struct {
	defs  map[Permission]PermissionDefinition
	order []Permission
}

// NewCatalog validates definitions and builds a Catalog. Identifiers must be
// unique and every definition must belong to a known module.
func NewCatalog(defs ...PermissionDefinition) (*Catalog, error) {
	c := &Catalog{
		defs:  make(map[Permission]PermissionDefinition, len(defs)),
		order: make([]Permission, 0, len(defs)),
	}
	for _, def := range defs {
		id := Permission(strings.TrimSpace(string(def.ID)))
		if id == "" {
			return nil, fmt.Errorf("%w: permission identifier required", ErrInvalidDefinition)
		}
		if !def.Module.Valid() {
			return nil, fmt.Errorf("%w: permission %s has unknown module %q", ErrInvalidDefinition, id, def.Module)
		}
		if _, exists := c.defs[id]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicatePermission, id)
		}
		def.ID = id
		def.Requires = append([]Permission(nil), def.Requires...)
		c.defs[id] = def
		c.order = append(c.order, id)
	}
	sort.Slice(c.order, func(i, j int) bool { return c.order[i] < c.order[j] })
	return c, nil
}

// ListPermissions returns every definition sorted by identifier.
func (c *Catalog) ListPermissions() []PermissionDefinition {
	out := make([]PermissionDefinition, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.copyOf(id))
	}
	return out
}

// Lookup returns the definition for id.
func (c *Catalog) Lookup(id Permission) (PermissionDefinition, error) {
	if !c.Contains(id) {
		return PermissionDefinition{}, &UnknownPermissionError{Permission: id}
	}
	return c.copyOf(id), nil
}

// Contains reports whether id is part of the catalog.
func (c *Catalog) Contains(id Permission) bool {
	if c == nil {
		return false
	}
	_, ok := c.defs[id]
	return ok
}

// Len returns the number of definitions.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.order)
}

// ByModule returns the definitions tagged with module m, sorted by identifier.
func (c *Catalog) ByModule(m Module) []PermissionDefinition {
	var out []PermissionDefinition
	for _, id := range c.order {
		if c.defs[id].Module == m {
			out = append(out, c.copyOf(id))
		}
	}
	return out
}

// Modules returns the modules that own at least one permission, in platform order.
func (c *Catalog) Modules() []Module {
	used := make(map[Module]struct{})
	for _, def := range c.defs {
		used[def.Module] = struct{}{}
	}
	var out []Module
	for _, m := range Modules() {
		if _, ok := used[m]; ok {
			out = append(out, m)
		}
	}
	return out
}

func (c *Catalog) copyOf(id Permission) PermissionDefinition {
	def := c.defs[id]
	def.Requires = append([]Permission(nil), def.Requires...)
	return def
}
