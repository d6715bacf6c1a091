package diff

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/ridoystarlord/pgguard/parser"
	"github.com/ridoystarlord/pgguard/schema"
)

type DriftKind string

const (
	MissingTable        DriftKind = "MISSING_TABLE"
	MissingColumn       DriftKind = "MISSING_COLUMN"
	ExtraColumn         DriftKind = "EXTRA_COLUMN"
	TypeMismatch        DriftKind = "TYPE_MISMATCH"
	NullabilityMismatch DriftKind = "NULLABILITY_MISMATCH"
)

// Drift is one difference between the declared and the live schema
type Drift struct {
	Kind       DriftKind
	TableName  string
	ColumnName string
	Declared   string // declared side, for mismatches
	Live       string // live side, for mismatches
	Location   schema.Location
}

func (d Drift) String() string {
	switch d.Kind {
	case MissingTable:
		return fmt.Sprintf("table %s is declared at %s but does not exist", d.TableName, d.Location)
	case MissingColumn:
		return fmt.Sprintf("column %s.%s is declared but does not exist", d.TableName, d.ColumnName)
	case ExtraColumn:
		return fmt.Sprintf("column %s.%s exists but is not declared", d.TableName, d.ColumnName)
	case TypeMismatch:
		return fmt.Sprintf("column %s.%s is declared as %s but is %s", d.TableName, d.ColumnName, d.Declared, d.Live)
	case NullabilityMismatch:
		return fmt.Sprintf("column %s.%s is declared %s but is %s", d.TableName, d.ColumnName, d.Declared, d.Live)
	}
	return string(d.Kind)
}

// Compare reports how the live tables differ from the declared ones. Tables
// that only exist in the database are ignored, the application may simply
// not use them. When a table is declared twice the last declaration wins.
func Compare(declared, live []schema.TableSchema) []Drift {
	var drifts []Drift

	liveTables := map[string]schema.TableSchema{}
	for _, t := range live {
		liveTables[t.TableName] = t
	}

	var order []string
	declaredTables := map[string]schema.TableSchema{}
	for _, t := range declared {
		if _, ok := declaredTables[t.TableName]; !ok {
			order = append(order, t.TableName)
		}
		declaredTables[t.TableName] = t
	}

	for _, name := range order {
		model := declaredTables[name]
		table, exists := liveTables[name]
		if !exists {
			drifts = append(drifts, Drift{
				Kind:      MissingTable,
				TableName: name,
				Location:  model.Location,
			})
			continue
		}

		// Check for columns that are declared but missing or different
		compared := make(map[string]bool, len(model.ColumnNames))
		for _, colName := range model.ColumnNames {
			if compared[colName] {
				continue
			}
			compared[colName] = true
			want := model.ColumnDescriptors[colName]
			got, ok := table.Column(colName)
			if !ok {
				drifts = append(drifts, Drift{
					Kind:       MissingColumn,
					TableName:  name,
					ColumnName: colName,
					Location:   model.Location,
				})
				continue
			}
			drifts = append(drifts, compareColumn(name, colName, want, got, model.Location)...)
		}

		// Check for columns that exist but are not declared
		for _, colName := range table.ColumnNames {
			if !slices.Contains(model.ColumnNames, colName) {
				drifts = append(drifts, Drift{
					Kind:       ExtraColumn,
					TableName:  name,
					ColumnName: colName,
					Location:   model.Location,
				})
			}
		}
	}

	return drifts
}

func compareColumn(table, column string, want, got schema.ColumnDescriptor, loc schema.Location) []Drift {
	var drifts []Drift

	if !sameType(want, got) {
		drifts = append(drifts, Drift{
			Kind:       TypeMismatch,
			TableName:  table,
			ColumnName: column,
			Declared:   parser.FormatColumnType(schema.ColumnDescriptor{Type: want.Type, Subtype: want.Subtype, Enum: want.Enum}),
			Live:       parser.FormatColumnType(schema.ColumnDescriptor{Type: got.Type, Subtype: got.Subtype, Enum: got.Enum}),
			Location:   loc,
		})
	}

	if want.Nullable != got.Nullable {
		drifts = append(drifts, Drift{
			Kind:       NullabilityMismatch,
			TableName:  table,
			ColumnName: column,
			Declared:   nullability(want.Nullable),
			Live:       nullability(got.Nullable),
			Location:   loc,
		})
	}

	return drifts
}

func nullability(nullable bool) string {
	if nullable {
		return "nullable"
	}
	return "not null"
}

func sameType(a, b schema.ColumnDescriptor) bool {
	if NormalizeType(a.Type) != NormalizeType(b.Type) {
		return false
	}
	if a.Type == schema.TypeEnum && len(a.Enum) > 0 && len(b.Enum) > 0 && !slices.Equal(a.Enum, b.Enum) {
		return false
	}
	if a.Subtype != nil && b.Subtype != nil {
		return sameType(*a.Subtype, *b.Subtype)
	}
	return true
}

var typeModifier = regexp.MustCompile(`\s*\([^)]*\)`)

var typeAliases = map[string]string{
	"int":         "integer",
	"int4":        "integer",
	"serial":      "integer",
	"serial4":     "integer",
	"int2":        "smallint",
	"smallserial": "smallint",
	"int8":        "bigint",
	"bigserial":   "bigint",
	"serial8":     "bigint",
	"decimal":     "numeric",
	"float4":      "real",
	"float8":      "double precision",
	"float":       "double precision",
	"bool":        "boolean",
	"varchar":     "character varying",
	"char":        "character",
	"bpchar":      "character",
	"timestamp":   "timestamp without time zone",
	"timestamptz": "timestamp with time zone",
	"time":        "time without time zone",
	"timetz":      "time with time zone",
}

// NormalizeType maps PostgreSQL type spellings to the names
// information_schema reports, e.g. "VARCHAR(255)" to "character varying".
func NormalizeType(t string) string {
	t = strings.ToLower(strings.TrimSpace(typeModifier.ReplaceAllString(t, "")))
	if t == "" {
		return "text"
	}
	if strings.HasSuffix(t, "[]") {
		return "array"
	}
	if full, ok := typeAliases[t]; ok {
		return full
	}
	return t
}
