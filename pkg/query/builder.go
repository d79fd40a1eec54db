package query

import (
	"fmt"
	"strings"
	"time"
)

// SortField is one ORDER BY term. Field is a projected view name.
type SortField struct {
	Field      string `json:"field"`
	Descending bool   `json:"descending"`
}

// ParseSortFields parses "name,-created_at" into sort fields; a leading "-"
// sorts descending. Returns nil for empty input.
func ParseSortFields(s string) []SortField {
	if strings.TrimSpace(s) == "" {
		return nil
	}

	var fields []SortField
	for part := range strings.SplitSeq(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, desc := strings.CutPrefix(part, "-")
		fields = append(fields, SortField{Field: name, Descending: desc})
	}
	return fields
}

// condition is a clause whose placeholders are written as "?" and numbered
// when the statement is rendered.
type condition struct {
	clause string
	args   []any
}

// Builder accumulates filters and ordering over a ProjectionMap. Filter
// methods panic on view names that are not projected; sort fields that are
// not projected are ignored.
type Builder struct {
	projection  *ProjectionMap
	conditions  []condition
	sort        []SortField
	defaultSort []SortField
}

// NewBuilder creates a Builder with optional default ordering.
func NewBuilder(projection *ProjectionMap, defaultSort ...SortField) *Builder {
	return &Builder{
		projection:  projection,
		defaultSort: defaultSort,
	}
}

// OrderBy sets the ordering, overriding the default.
func (b *Builder) OrderBy(fields []SortField) *Builder {
	b.sort = fields
	return b
}

// WhereEquals adds field = value. No-op for a nil or empty value.
func (b *Builder) WhereEquals(field string, value *string) *Builder {
	if value == nil || *value == "" {
		return b
	}
	b.add(b.projection.mustColumn(field)+" = ?", *value)
	return b
}

// WhereBefore adds field < t. No-op for a nil time.
func (b *Builder) WhereBefore(field string, t *time.Time) *Builder {
	if t == nil {
		return b
	}
	b.add(b.projection.mustColumn(field)+" < ?", *t)
	return b
}

// WhereAfter adds field >= t. No-op for a nil time.
func (b *Builder) WhereAfter(field string, t *time.Time) *Builder {
	if t == nil {
		return b
	}
	b.add(b.projection.mustColumn(field)+" >= ?", *t)
	return b
}

// WhereSearch adds a case-insensitive match across fields joined with OR.
// No-op for a nil or empty search.
func (b *Builder) WhereSearch(search *string, fields ...string) *Builder {
	if search == nil || *search == "" || len(fields) == 0 {
		return b
	}

	pattern := "%" + escapeLike(*search) + "%"
	clauses := make([]string, len(fields))
	args := make([]any, len(fields))
	for i, f := range fields {
		clauses[i] = b.projection.mustColumn(f) + " ILIKE ?"
		args[i] = pattern
	}
	b.add("("+strings.Join(clauses, " OR ")+")", args...)
	return b
}

// Build returns the SELECT statement with filters and ordering.
func (b *Builder) Build() (string, []any) {
	where, args := b.where()
	return fmt.Sprintf("SELECT %s FROM %s%s%s",
		b.projection.Columns(), b.projection.Table(), where, b.orderBy()), args
}

// BuildCount returns a COUNT(*) statement with the current filters.
func (b *Builder) BuildCount() (string, []any) {
	where, args := b.where()
	return fmt.Sprintf("SELECT COUNT(*) FROM %s%s", b.projection.Table(), where), args
}

// BuildPage returns the SELECT statement limited to one page. Page is 1-based.
func (b *Builder) BuildPage(page, pageSize int) (string, []any) {
	query, args := b.Build()
	return fmt.Sprintf("%s LIMIT %d OFFSET %d", query, pageSize, (page-1)*pageSize), args
}

// BuildSingle returns a SELECT statement for the row whose idField equals id.
func (b *Builder) BuildSingle(idField string, id any) (string, []any) {
	return fmt.Sprintf("SELECT %s FROM %s WHERE %s = $1",
		b.projection.Columns(), b.projection.Table(), b.projection.mustColumn(idField)), []any{id}
}

func (b *Builder) add(clause string, args ...any) {
	b.conditions = append(b.conditions, condition{clause: clause, args: args})
}

func (b *Builder) where() (string, []any) {
	if len(b.conditions) == 0 {
		return "", nil
	}

	var (
		sb   strings.Builder
		args []any
	)
	sb.WriteString(" WHERE ")
	for i, c := range b.conditions {
		if i > 0 {
			sb.WriteString(" AND ")
		}
		next := 0
		for _, r := range c.clause {
			if r != '?' {
				sb.WriteRune(r)
				continue
			}
			args = append(args, c.args[next])
			next++
			fmt.Fprintf(&sb, "$%d", len(args))
		}
	}
	return sb.String(), args
}

func (b *Builder) orderBy() string {
	fields := b.sort
	if len(fields) == 0 {
		fields = b.defaultSort
	}

	var parts []string
	for _, f := range fields {
		col, ok := b.projection.Column(f.Field)
		if !ok {
			continue
		}
		dir := "ASC"
		if f.Descending {
			dir = "DESC"
		}
		parts = append(parts, col+" "+dir)
	}
	if len(parts) == 0 {
		return ""
	}
	return " ORDER BY " + strings.Join(parts, ", ")
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
