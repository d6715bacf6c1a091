package introspect

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/ridoystarlord/pgguard/schema"
)

// Querier is the part of a pgx pool or connection the introspection needs
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// ExistingColumn is one row of information_schema.columns
type ExistingColumn struct {
	TableName     string
	ColumnName    string
	DataType      string
	UDTName       string
	IsNullable    bool
	ColumnDefault *string
}

const columnsQuery = `
	SELECT
		c.table_name,
		c.column_name,
		c.data_type,
		c.udt_name,
		(c.is_nullable = 'YES') AS is_nullable,
		c.column_default
	FROM information_schema.columns c
	JOIN information_schema.tables t
		ON t.table_name = c.table_name AND t.table_schema = c.table_schema
	WHERE c.table_schema = $1 AND t.table_type = 'BASE TABLE'
	ORDER BY c.table_name, c.ordinal_position;
	`

const enumsQuery = `
	SELECT t.typname, e.enumlabel
	FROM pg_type t
	JOIN pg_enum e ON e.enumtypid = t.oid
	JOIN pg_namespace n ON n.oid = t.typnamespace
	WHERE n.nspname = $1
	ORDER BY t.typname, e.enumsortorder;
	`

// Tables reads every base table of the public schema
func Tables(ctx context.Context, db Querier) ([]schema.TableSchema, error) {
	return TablesIn(ctx, db, "public")
}

// TablesIn reads every base table of the given schema
func TablesIn(ctx context.Context, db Querier, schemaName string) ([]schema.TableSchema, error) {
	columns, err := getColumns(ctx, db, schemaName)
	if err != nil {
		return nil, err
	}

	enums, err := getEnums(ctx, db, schemaName)
	if err != nil {
		return nil, err
	}

	return BuildTables(columns, enums), nil
}

func getColumns(ctx context.Context, db Querier, schemaName string) ([]ExistingColumn, error) {
	rows, err := db.Query(ctx, columnsQuery, schemaName)
	if err != nil {
		return nil, fmt.Errorf("querying columns: %w", err)
	}
	defer rows.Close()

	var columns []ExistingColumn
	for rows.Next() {
		var col ExistingColumn
		if err := rows.Scan(
			&col.TableName,
			&col.ColumnName,
			&col.DataType,
			&col.UDTName,
			&col.IsNullable,
			&col.ColumnDefault,
		); err != nil {
			return nil, fmt.Errorf("scanning column: %w", err)
		}
		columns = append(columns, col)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating column rows: %w", err)
	}

	return columns, nil
}

func getEnums(ctx context.Context, db Querier, schemaName string) (map[string][]string, error) {
	rows, err := db.Query(ctx, enumsQuery, schemaName)
	if err != nil {
		return nil, fmt.Errorf("querying enums: %w", err)
	}
	defer rows.Close()

	enums := map[string][]string{}
	for rows.Next() {
		var typeName, label string
		if err := rows.Scan(&typeName, &label); err != nil {
			return nil, fmt.Errorf("scanning enum label: %w", err)
		}
		enums[typeName] = append(enums[typeName], label)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating enum rows: %w", err)
	}

	return enums, nil
}

// BuildTables groups column rows by table, keeping the order of the rows.
// enums maps a type name to its labels in sort order.
func BuildTables(columns []ExistingColumn, enums map[string][]string) []schema.TableSchema {
	var tables []schema.TableSchema
	index := map[string]int{}

	for _, col := range columns {
		i, ok := index[col.TableName]
		if !ok {
			i = len(tables)
			index[col.TableName] = i
			tables = append(tables, *schema.NewTableSchema(col.TableName))
		}
		tables[i].AddColumn(col.ColumnName, describe(col, enums))
	}

	return tables
}

func describe(col ExistingColumn, enums map[string][]string) schema.ColumnDescriptor {
	d := schema.ColumnDescriptor{
		Type:       col.DataType,
		Nullable:   col.IsNullable,
		HasDefault: col.ColumnDefault != nil,
	}

	switch col.DataType {
	case "ARRAY":
		// udt_name of an array type is the element type prefixed with "_"
		elem := udtType(strings.TrimPrefix(col.UDTName, "_"), enums)
		d.Type = "array"
		d.Subtype = &elem
	case "USER-DEFINED":
		if labels, ok := enums[col.UDTName]; ok {
			d.Type = schema.TypeEnum
			d.Enum = labels
		} else {
			d.Type = col.UDTName
		}
	}

	return d
}

var udtNames = map[string]string{
	"int2":        "smallint",
	"int4":        "integer",
	"int8":        "bigint",
	"float4":      "real",
	"float8":      "double precision",
	"bool":        "boolean",
	"varchar":     "character varying",
	"bpchar":      "character",
	"timestamp":   "timestamp without time zone",
	"timestamptz": "timestamp with time zone",
	"time":        "time without time zone",
	"timetz":      "time with time zone",
}

func udtType(name string, enums map[string][]string) schema.ColumnDescriptor {
	if labels, ok := enums[name]; ok {
		return schema.ColumnDescriptor{Type: schema.TypeEnum, Enum: labels}
	}
	if full, ok := udtNames[name]; ok {
		return schema.ColumnDescriptor{Type: full}
	}
	return schema.ColumnDescriptor{Type: name}
}
