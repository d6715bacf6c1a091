package schema

import "fmt"

// NewTableSchema creates an empty table schema
func NewTableSchema(tableName string) *TableSchema {
	return &TableSchema{
		TableName:         tableName,
		ColumnNames:       []string{},
		ColumnDescriptors: map[string]ColumnDescriptor{},
	}
}

// AddColumn appends a column in declaration order. A repeated name is
// appended again so Validate reports it; its descriptor replaces the
// earlier one.
func (t *TableSchema) AddColumn(name string, descriptor ColumnDescriptor) {
	t.ColumnNames = append(t.ColumnNames, name)
	t.ColumnDescriptors[name] = descriptor
}

// Column returns the descriptor of a column
func (t TableSchema) Column(name string) (ColumnDescriptor, bool) {
	d, ok := t.ColumnDescriptors[name]
	return d, ok
}

// Validate checks that every listed column has exactly one descriptor
func (t TableSchema) Validate() error {
	if t.TableName == "" {
		return fmt.Errorf("table name cannot be empty")
	}

	seen := make(map[string]bool, len(t.ColumnNames))
	for _, name := range t.ColumnNames {
		if seen[name] {
			return fmt.Errorf("duplicate column name '%s' in table '%s'", name, t.TableName)
		}
		seen[name] = true

		if _, ok := t.ColumnDescriptors[name]; !ok {
			return fmt.Errorf("column '%s' in table '%s' has no type descriptor", name, t.TableName)
		}
	}

	for name := range t.ColumnDescriptors {
		if !seen[name] {
			return fmt.Errorf("descriptor for '%s' in table '%s' has no matching column", name, t.TableName)
		}
	}

	return nil
}
