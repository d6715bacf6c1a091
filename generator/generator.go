package generator

import (
	"fmt"
	"strings"

	"github.com/ridoystarlord/pgguard/diff"
	"github.com/ridoystarlord/pgguard/schema"
)

// GenerateSQL suggests statements that bring the database in line with the
// declared tables. Undeclared columns are left alone; dropping data is never
// suggested.
func GenerateSQL(drifts []diff.Drift, declared []schema.TableSchema) ([]string, error) {
	tables := map[string]schema.TableSchema{}
	for _, t := range declared {
		tables[t.TableName] = t
	}

	var sqlStatements []string
	for _, d := range drifts {
		table, ok := tables[d.TableName]
		if !ok {
			return nil, fmt.Errorf("table %s is not declared", d.TableName)
		}

		switch d.Kind {
		case diff.MissingTable:
			sqlStatements = append(sqlStatements, generateCreateTable(table))

		case diff.MissingColumn:
			col, err := column(table, d.ColumnName)
			if err != nil {
				return nil, err
			}
			sqlStatements = append(sqlStatements, fmt.Sprintf(`ALTER TABLE "%s" ADD COLUMN %s;`,
				d.TableName,
				columnDefinition(d.ColumnName, col),
			))

		case diff.TypeMismatch:
			col, err := column(table, d.ColumnName)
			if err != nil {
				return nil, err
			}
			sqlStatements = append(sqlStatements, fmt.Sprintf(`ALTER TABLE "%s" ALTER COLUMN "%s" TYPE %s;`,
				d.TableName,
				d.ColumnName,
				sqlType(col),
			))

		case diff.NullabilityMismatch:
			col, err := column(table, d.ColumnName)
			if err != nil {
				return nil, err
			}
			action := "SET NOT NULL"
			if col.Nullable {
				action = "DROP NOT NULL"
			}
			sqlStatements = append(sqlStatements, fmt.Sprintf(`ALTER TABLE "%s" ALTER COLUMN "%s" %s;`,
				d.TableName,
				d.ColumnName,
				action,
			))
		}
	}

	return sqlStatements, nil
}

func column(table schema.TableSchema, name string) (schema.ColumnDescriptor, error) {
	col, ok := table.Column(name)
	if !ok {
		return schema.ColumnDescriptor{}, fmt.Errorf("column %s.%s is not declared", table.TableName, name)
	}
	return col, nil
}

func generateCreateTable(table schema.TableSchema) string {
	defs := make([]string, 0, len(table.ColumnNames))
	seen := make(map[string]bool, len(table.ColumnNames))
	for _, name := range table.ColumnNames {
		if seen[name] {
			continue
		}
		seen[name] = true
		defs = append(defs, columnDefinition(name, table.ColumnDescriptors[name]))
	}
	return fmt.Sprintf(`CREATE TABLE "%s" (%s);`, table.TableName, strings.Join(defs, ", "))
}

func columnDefinition(name string, col schema.ColumnDescriptor) string {
	def := fmt.Sprintf(`"%s" %s`, name, sqlType(col))
	if !col.Nullable {
		def += " NOT NULL"
	}
	// enum types are not declared by name, so constrain the values instead
	if col.Type == schema.TypeEnum && len(col.Enum) > 0 {
		def += fmt.Sprintf(` CHECK ("%s" IN (%s))`, name, quoteValues(col.Enum))
	}
	return def
}

// sqlType renders the type of a column declaration
func sqlType(col schema.ColumnDescriptor) string {
	switch col.Type {
	case "", schema.TypeEnum:
		return "text"
	case "array":
		if col.Subtype == nil {
			return "text[]"
		}
		return sqlType(*col.Subtype) + "[]"
	}
	return col.Type
}

func quoteValues(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = "'" + strings.ReplaceAll(v, "'", "''") + "'"
	}
	return strings.Join(quoted, ", ")
}
