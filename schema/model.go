package schema

import "fmt"

// TypeEnum is the column type used for enumerations.
const TypeEnum = "enum"

// SourceFile is a loaded unit of source code
type SourceFile struct {
	FilePath string
	Content  []byte
}

// Location points at a position inside a source file
type Location struct {
	FilePath string
	Line     int
	Column   int
}

func (l Location) String() string {
	if l.Line == 0 {
		return l.FilePath
	}
	return fmt.Sprintf("%s:%d", l.FilePath, l.Line)
}

// StatementKind classifies a query by its top-level statement
type StatementKind string

const (
	StatementSelect StatementKind = "select"
	StatementInsert StatementKind = "insert"
	StatementUpdate StatementKind = "update"
	StatementDelete StatementKind = "delete"
	StatementOther  StatementKind = "other"
)

// Query is one embedded SQL statement found in a source file
type Query struct {
	Text       string
	Kind       StatementKind
	Location   Location
	Tables     []TableReference
	Columns    []ColumnReference
	Inserted   []string // column list of INSERT INTO t (...)
	Subqueries []Query
	// ParseError is set when the statement could not be parsed
	ParseError string
}

// TableReference is a table named in FROM, JOIN, INSERT INTO, UPDATE or
// DELETE FROM, with the alias it was given
type TableReference struct {
	TableName string
	Alias     string
}

// ColumnReference names a column, optionally qualified by its table.
// An empty TableName means the reference is unqualified.
type ColumnReference struct {
	TableName  string
	ColumnName string
}

// Qualified reports whether the reference carries a table name
func (c ColumnReference) Qualified() bool {
	return c.TableName != ""
}

// ColumnDescriptor describes the declared type of a column. Arrays carry
// their element type in Subtype and enums their labels in Enum.
type ColumnDescriptor struct {
	Type       string
	Subtype    *ColumnDescriptor
	Enum       []string
	Nullable   bool
	HasDefault bool
}

// TableSchema is a table declaration with its columns in declaration order
type TableSchema struct {
	TableName         string
	ColumnNames       []string
	ColumnDescriptors map[string]ColumnDescriptor
	Location          Location
}

// ExtractionResult is everything discovered in one source file
type ExtractionResult struct {
	Queries      []Query
	TableSchemas []TableSchema
}
