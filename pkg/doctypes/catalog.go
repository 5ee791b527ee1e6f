// Package doctypes defines the requirements document types and their dependency chain.
package doctypes

import (
	"fmt"
	"strings"
)

// Document type codes in dependency order
const (
	BRD = "BRD"
	PRD = "PRD"
	FRD = "FRD"
	TRD = "TRD"
)

// Definition describes a document type and the types it is generated from
type Definition struct {
	Type         string   `json:"type"`
	DisplayName  string   `json:"display_name"`
	Dependencies []string `json:"dependencies"`
}

// DependsOn reports whether docType is a direct dependency of d.
func (d Definition) DependsOn(docType string) bool {
	for _, dep := range d.Dependencies {
		if dep == docType {
			return true
		}
	}
	return false
}

// Catalog is an immutable, ordered list of document type definitions. Declared order
// is a valid generation order: every dependency is declared before its dependents.
type Catalog struct {
	defs  []Definition
	index map[string]int
}

// NewCatalog validates defs and builds a catalog. Dependencies must refer to types
// declared earlier in the list, which also rules out cycles.
func NewCatalog(defs ...Definition) (*Catalog, error) {
	c := &Catalog{
		defs:  make([]Definition, 0, len(defs)),
		index: make(map[string]int, len(defs)),
	}
	for _, def := range defs {
		if def.Type == "" {
			return nil, fmt.Errorf("document type must have a non-empty code")
		}
		if _, exists := c.index[def.Type]; exists {
			return nil, fmt.Errorf("document type %s is declared twice", def.Type)
		}
		for _, dep := range def.Dependencies {
			if _, declared := c.index[dep]; !declared {
				return nil, fmt.Errorf("document type %s depends on %s which is not declared before it", def.Type, dep)
			}
		}

		copied := def
		copied.Dependencies = append([]string(nil), def.Dependencies...)
		c.index[def.Type] = len(c.defs)
		c.defs = append(c.defs, copied)
	}
	return c, nil
}

var defaultDefinitions = []Definition{
	{Type: BRD, DisplayName: "Business Requirements Document"},
	{Type: PRD, DisplayName: "Product Requirements Document", Dependencies: []string{BRD}},
	{Type: FRD, DisplayName: "Functional Requirements Document", Dependencies: []string{BRD, PRD}},
	{Type: TRD, DisplayName: "Technical Requirements Document", Dependencies: []string{BRD, PRD, FRD}},
}

// Default returns the fixed BRD → PRD → FRD → TRD chain.
func Default() *Catalog {
	c, err := NewCatalog(defaultDefinitions...)
	if err != nil {
		panic("invalid default document catalog: " + err.Error())
	}
	return c
}

// Definitions returns a copy of all definitions in generation order.
func (c *Catalog) Definitions() []Definition {
	out := make([]Definition, len(c.defs))
	for i, def := range c.defs {
		out[i] = def
		out[i].Dependencies = append([]string(nil), def.Dependencies...)
	}
	return out
}

// Types returns the document type codes in generation order.
func (c *Catalog) Types() []string {
	out := make([]string, len(c.defs))
	for i, def := range c.defs {
		out[i] = def.Type
	}
	return out
}

// Get looks up a definition by type code (case-insensitive).
func (c *Catalog) Get(docType string) (Definition, bool) {
	i, ok := c.index[strings.ToUpper(strings.TrimSpace(docType))]
	if !ok {
		return Definition{}, false
	}
	def := c.defs[i]
	def.Dependencies = append([]string(nil), def.Dependencies...)
	return def, true
}

// IsKnown reports whether docType is part of the catalog.
func (c *Catalog) IsKnown(docType string) bool {
	_, ok := c.Get(docType)
	return ok
}

// Len returns the number of document types.
func (c *Catalog) Len() int {
	return len(c.defs)
}

// DisplayName returns the display name of docType, or docType itself when unknown.
func (c *Catalog) DisplayName(docType string) string {
	if def, ok := c.Get(docType); ok {
		return def.DisplayName
	}
	return docType
}
