package validator

import (
	"fmt"
	"slices"
	"strings"

	"github.com/ridoystarlord/pgguard/schema"
)

const (
	SeverityError   = "error"
	SeverityWarning = "warning"
	SeverityInfo    = "info"
)

// ValidationError represents a validation error with details
type ValidationError struct {
	Type     string `json:"type"`
	Table    string `json:"table,omitempty"`
	Column   string `json:"column,omitempty"`
	Location string `json:"location,omitempty"`
	Message  string `json:"message"`
	Severity string `json:"severity"` // "error", "warning", "info"
}

// ValidationResult contains all validation results
type ValidationResult struct {
	Valid    bool              `json:"valid"`
	Errors   []ValidationError `json:"errors"`
	Warnings []ValidationError `json:"warnings"`
	Info     []ValidationError `json:"info"`
}

func newResult() *ValidationResult {
	return &ValidationResult{
		Valid:    true,
		Errors:   []ValidationError{},
		Warnings: []ValidationError{},
		Info:     []ValidationError{},
	}
}

func (r *ValidationResult) add(e ValidationError) {
	switch e.Severity {
	case SeverityError:
		r.Errors = append(r.Errors, e)
	case SeverityWarning:
		r.Warnings = append(r.Warnings, e)
	default:
		r.Info = append(r.Info, e)
	}
}

// QueryValidator checks queries against a set of table schemas
type QueryValidator struct {
	schemas []schema.TableSchema
	tables  map[string]schema.TableSchema
}

// NewQueryValidator indexes the schemas by table name. When a table is
// declared more than once the last declaration wins.
func NewQueryValidator(schemas []schema.TableSchema) *QueryValidator {
	tables := make(map[string]schema.TableSchema, len(schemas))
	for _, t := range schemas {
		tables[t.TableName] = t
	}
	return &QueryValidator{schemas: schemas, tables: tables}
}

// Validate checks the schemas themselves and every query
func (v *QueryValidator) Validate(queries []schema.Query) *ValidationResult {
	result := newResult()

	v.validateSchemas(result)
	for _, q := range queries {
		v.validateQuery(q, nil, result)
	}

	result.Valid = len(result.Errors) == 0
	return result
}

func (v *QueryValidator) validateSchemas(result *ValidationResult) {
	declared := make(map[string]schema.Location)

	for _, t := range v.schemas {
		if err := t.Validate(); err != nil {
			result.add(ValidationError{
				Type:     "invalid_schema",
				Table:    t.TableName,
				Location: t.Location.String(),
				Message:  err.Error(),
				Severity: SeverityError,
			})
		}

		if prev, ok := declared[t.TableName]; ok {
			result.add(ValidationError{
				Type:     "duplicate_table",
				Table:    t.TableName,
				Location: t.Location.String(),
				Message:  fmt.Sprintf("Table '%s' is also declared at %s", t.TableName, prev),
				Severity: SeverityInfo,
			})
		}
		declared[t.TableName] = t.Location
	}
}

// queryScope lists the tables visible to a query, innermost first
type queryScope struct {
	tables []schema.TableReference
	parent *queryScope
}

func (v *QueryValidator) validateQuery(q schema.Query, parent *queryScope, result *ValidationResult) {
	scope := &queryScope{tables: q.Tables, parent: parent}
	loc := q.Location.String()

	if q.ParseError != "" {
		result.add(ValidationError{
			Type:     "invalid_sql",
			Location: loc,
			Message:  q.ParseError,
			Severity: SeverityError,
		})
		return
	}

	allKnown := true
	for _, ref := range q.Tables {
		if _, ok := v.tables[ref.TableName]; !ok {
			allKnown = false
			result.add(ValidationError{
				Type:     "unknown_table",
				Table:    ref.TableName,
				Location: loc,
				Message:  fmt.Sprintf("Query references unknown table '%s'", ref.TableName),
				Severity: SeverityError,
			})
		}
	}

	if parent == nil && len(q.Tables) == 0 && len(q.Subqueries) == 0 && q.Kind != schema.StatementOther {
		result.add(ValidationError{
			Type:     "no_tables",
			Location: loc,
			Message:  "Query does not reference any table",
			Severity: SeverityInfo,
		})
	}

	for _, col := range q.Columns {
		if col.Qualified() {
			v.validateQualified(col, q.Tables, loc, result)
		} else {
			v.validateUnqualified(col, scope, allKnown, loc, result)
		}
	}

	if q.Kind == schema.StatementInsert && len(q.Tables) > 0 {
		v.validateInsert(q, loc, result)
	}

	for _, sub := range q.Subqueries {
		v.validateQuery(sub, scope, result)
	}
}

func (v *QueryValidator) validateQualified(col schema.ColumnReference, refs []schema.TableReference, loc string, result *ValidationResult) {
	table, ok := v.tables[col.TableName]
	if !ok {
		// Unknown tables in FROM are already reported
		for _, ref := range refs {
			if ref.TableName == col.TableName {
				return
			}
		}
		result.add(ValidationError{
			Type:     "unresolved_qualifier",
			Table:    col.TableName,
			Column:   col.ColumnName,
			Location: loc,
			Message:  fmt.Sprintf("Cannot resolve '%s' in column reference '%s.%s'", col.TableName, col.TableName, col.ColumnName),
			Severity: SeverityWarning,
		})
		return
	}

	if _, ok := table.Column(col.ColumnName); !ok {
		result.add(ValidationError{
			Type:     "unknown_column",
			Table:    col.TableName,
			Column:   col.ColumnName,
			Location: loc,
			Message:  fmt.Sprintf("Column '%s' does not exist in table '%s'", col.ColumnName, col.TableName),
			Severity: SeverityError,
		})
	}
}

func (v *QueryValidator) validateUnqualified(col schema.ColumnReference, scope *queryScope, allKnown bool, loc string, result *ValidationResult) {
	for sc := scope; sc != nil; sc = sc.parent {
		var matches []string
		for _, ref := range sc.tables {
			if table, ok := v.tables[ref.TableName]; ok {
				if _, ok := table.Column(col.ColumnName); ok && !slices.Contains(matches, ref.TableName) {
					matches = append(matches, ref.TableName)
				}
			}
		}

		switch {
		case len(matches) == 1:
			return
		case len(matches) > 1:
			result.add(ValidationError{
				Type:     "ambiguous_column",
				Column:   col.ColumnName,
				Location: loc,
				Message:  fmt.Sprintf("Column '%s' is ambiguous, it exists in tables %s", col.ColumnName, strings.Join(matches, ", ")),
				Severity: SeverityWarning,
			})
			return
		}
	}

	if !allKnown || len(scope.tables) == 0 {
		return
	}

	tableNames := make([]string, 0, len(scope.tables))
	for _, ref := range scope.tables {
		tableNames = append(tableNames, ref.TableName)
	}
	result.add(ValidationError{
		Type:     "unknown_column",
		Column:   col.ColumnName,
		Location: loc,
		Message:  fmt.Sprintf("Column '%s' does not exist in %s", col.ColumnName, strings.Join(tableNames, ", ")),
		Severity: SeverityError,
	})
}

// validateInsert reports required columns an INSERT leaves out
func (v *QueryValidator) validateInsert(q schema.Query, loc string, result *ValidationResult) {
	target := q.Tables[0].TableName
	table, ok := v.tables[target]
	if !ok {
		return
	}

	if len(q.Inserted) == 0 {
		result.add(ValidationError{
			Type:     "insert_without_columns",
			Table:    target,
			Location: loc,
			Message:  fmt.Sprintf("INSERT into '%s' does not list its columns", target),
			Severity: SeverityWarning,
		})
		return
	}

	for _, name := range table.ColumnNames {
		d := table.ColumnDescriptors[name]
		if d.Nullable || d.HasDefault || slices.Contains(q.Inserted, name) {
			continue
		}
		result.add(ValidationError{
			Type:     "missing_column",
			Table:    target,
			Column:   name,
			Location: loc,
			Message:  fmt.Sprintf("INSERT into '%s' is missing required column '%s'", target, name),
			Severity: SeverityError,
		})
	}
}
