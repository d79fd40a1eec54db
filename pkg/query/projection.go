// Package query builds parameterized SELECT statements over a projected table.
package query

import (
	"fmt"
	"strings"
)

// ProjectionMap maps view property names to qualified column references
// (alias.column). Only projected names may be filtered or sorted on.
type ProjectionMap struct {
	schema  string
	table   string
	alias   string
	columns map[string]string
	list    []string
}

// NewProjectionMap creates a ProjectionMap for the given schema, table, and alias.
func NewProjectionMap(schema, table, alias string) *ProjectionMap {
	return &ProjectionMap{
		schema:  schema,
		table:   table,
		alias:   alias,
		columns: make(map[string]string),
	}
}

// Project maps a database column to a view property name.
func (p *ProjectionMap) Project(column, viewName string) *ProjectionMap {
	qualified := p.alias + "." + column
	p.columns[viewName] = qualified
	p.list = append(p.list, qualified)
	return p
}

// Table returns the table reference with alias (schema.table alias).
func (p *ProjectionMap) Table() string {
	return fmt.Sprintf("%s.%s %s", p.schema, p.table, p.alias)
}

// Column returns the qualified column for a view property name.
func (p *ProjectionMap) Column(viewName string) (string, bool) {
	col, ok := p.columns[viewName]
	return col, ok
}

// Columns returns all projected columns as a comma-separated list.
func (p *ProjectionMap) Columns() string {
	return strings.Join(p.list, ", ")
}

func (p *ProjectionMap) mustColumn(viewName string) string {
	col, ok := p.columns[viewName]
	if !ok {
		panic(fmt.Sprintf("query: %s is not projected on %s", viewName, p.table))
	}
	return col
}
