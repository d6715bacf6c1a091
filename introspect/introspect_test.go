package introspect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridoystarlord/pgguard/schema"
)

func ptr(s string) *string { return &s }

func TestBuildTables(t *testing.T) {
	columns := []ExistingColumn{
		{TableName: "orders", ColumnName: "id", DataType: "integer", UDTName: "int4", ColumnDefault: ptr("nextval('orders_id_seq'::regclass)")},
		{TableName: "orders", ColumnName: "status", DataType: "USER-DEFINED", UDTName: "order_status"},
		{TableName: "orders", ColumnName: "tags", DataType: "ARRAY", UDTName: "_varchar", IsNullable: true},
		{TableName: "orders", ColumnName: "location", DataType: "USER-DEFINED", UDTName: "geometry", IsNullable: true},
		{TableName: "users", ColumnName: "id", DataType: "uuid", UDTName: "uuid"},
		{TableName: "users", ColumnName: "roles", DataType: "ARRAY", UDTName: "_role"},
	}
	enums := map[string][]string{
		"order_status": {"pending", "shipped"},
		"role":         {"admin", "member"},
	}

	tables := BuildTables(columns, enums)
	require.Len(t, tables, 2)

	orders := tables[0]
	assert.Equal(t, "orders", orders.TableName)
	assert.Equal(t, []string{"id", "status", "tags", "location"}, orders.ColumnNames)
	assert.Equal(t, schema.ColumnDescriptor{Type: "integer", HasDefault: true}, orders.ColumnDescriptors["id"])
	assert.Equal(t, schema.ColumnDescriptor{Type: "enum", Enum: []string{"pending", "shipped"}}, orders.ColumnDescriptors["status"])
	assert.Equal(t, schema.ColumnDescriptor{
		Type:     "array",
		Subtype:  &schema.ColumnDescriptor{Type: "character varying"},
		Nullable: true,
	}, orders.ColumnDescriptors["tags"])
	assert.Equal(t, schema.ColumnDescriptor{Type: "geometry", Nullable: true}, orders.ColumnDescriptors["location"])

	users := tables[1]
	assert.Equal(t, "users", users.TableName)
	assert.Equal(t, schema.ColumnDescriptor{
		Type:    "array",
		Subtype: &schema.ColumnDescriptor{Type: "enum", Enum: []string{"admin", "member"}},
	}, users.ColumnDescriptors["roles"])
	assert.NoError(t, users.Validate())
}

func TestBuildTables_Empty(t *testing.T) {
	assert.Empty(t, BuildTables(nil, nil))
}
