package diff

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridoystarlord/pgguard/schema"
)

func table(name string, cols ...any) schema.TableSchema {
	t := schema.NewTableSchema(name)
	for i := 0; i+1 < len(cols); i += 2 {
		t.AddColumn(cols[i].(string), cols[i+1].(schema.ColumnDescriptor))
	}
	t.Location = schema.Location{FilePath: "models.go", Line: 7}
	return *t
}

func TestCompare_NoDrift(t *testing.T) {
	declared := []schema.TableSchema{
		table("users",
			"id", schema.ColumnDescriptor{Type: "serial", HasDefault: true},
			"email", schema.ColumnDescriptor{Type: "VARCHAR(255)"},
			"created_at", schema.ColumnDescriptor{Type: "timestamptz", Nullable: true},
			"tags", schema.ColumnDescriptor{Type: "array", Subtype: &schema.ColumnDescriptor{Type: "text"}},
		),
	}
	live := []schema.TableSchema{
		table("users",
			"id", schema.ColumnDescriptor{Type: "integer", HasDefault: true},
			"email", schema.ColumnDescriptor{Type: "character varying"},
			"created_at", schema.ColumnDescriptor{Type: "timestamp with time zone", Nullable: true},
			"tags", schema.ColumnDescriptor{Type: "array", Subtype: &schema.ColumnDescriptor{Type: "text"}},
		),
		table("schema_migrations", "version", schema.ColumnDescriptor{Type: "text"}),
	}

	assert.Empty(t, Compare(declared, live))
}

func TestCompare_Drift(t *testing.T) {
	declared := []schema.TableSchema{
		table("users",
			"id", schema.ColumnDescriptor{Type: "integer"},
			"email", schema.ColumnDescriptor{Type: "text"},
			"phone", schema.ColumnDescriptor{Type: "text", Nullable: true},
			"status", schema.ColumnDescriptor{Type: "enum", Enum: []string{"active", "banned"}},
		),
		table("invoices", "id", schema.ColumnDescriptor{Type: "integer"}),
	}
	live := []schema.TableSchema{
		table("users",
			"id", schema.ColumnDescriptor{Type: "bigint"},
			"email", schema.ColumnDescriptor{Type: "text", Nullable: true},
			"status", schema.ColumnDescriptor{Type: "enum", Enum: []string{"active", "suspended"}},
			"legacy", schema.ColumnDescriptor{Type: "text"},
		),
	}

	drifts := Compare(declared, live)
	require.Len(t, drifts, 6)

	assert.Equal(t, Drift{Kind: TypeMismatch, TableName: "users", ColumnName: "id", Declared: "integer", Live: "bigint", Location: declared[0].Location}, drifts[0])
	assert.Equal(t, NullabilityMismatch, drifts[1].Kind)
	assert.Equal(t, "column users.email is declared not null but is nullable", drifts[1].String())
	assert.Equal(t, MissingColumn, drifts[2].Kind)
	assert.Equal(t, "phone", drifts[2].ColumnName)
	assert.Equal(t, TypeMismatch, drifts[3].Kind)
	assert.Equal(t, "enum ['active', 'banned']", drifts[3].Declared)
	assert.Equal(t, ExtraColumn, drifts[4].Kind)
	assert.Equal(t, "legacy", drifts[4].ColumnName)
	assert.Equal(t, MissingTable, drifts[5].Kind)
	assert.Equal(t, "table invoices is declared at models.go:7 but does not exist", drifts[5].String())
}

func TestCompare_LastDeclarationWins(t *testing.T) {
	declared := []schema.TableSchema{
		table("users", "id", schema.ColumnDescriptor{Type: "text"}),
		table("users", "id", schema.ColumnDescriptor{Type: "integer"}),
	}
	live := []schema.TableSchema{table("users", "id", schema.ColumnDescriptor{Type: "int4"})}

	assert.Empty(t, Compare(declared, live))
}

func TestNormalizeType(t *testing.T) {
	tests := map[string]string{
		"int4":                        "integer",
		"VARCHAR(64)":                 "character varying",
		"numeric(10, 2)":              "numeric",
		"timestamp(3) with time zone": "timestamp with time zone",
		"text[]":                      "array",
		"":                            "text",
		"jsonb":                       "jsonb",
	}
	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			assert.Equal(t, want, NormalizeType(in))
		})
	}
}

func TestCompare_DuplicateDeclaredColumnReportedOnce(t *testing.T) {
	declared := []schema.TableSchema{
		table("users",
			"id", schema.ColumnDescriptor{Type: "integer"},
			"email", schema.ColumnDescriptor{Type: "text"},
			"email", schema.ColumnDescriptor{Type: "text"},
		),
	}
	live := []schema.TableSchema{table("users", "id", schema.ColumnDescriptor{Type: "integer"})}

	drifts := Compare(declared, live)
	require.Len(t, drifts, 1)
	assert.Equal(t, MissingColumn, drifts[0].Kind)
	assert.Equal(t, "email", drifts[0].ColumnName)
}
