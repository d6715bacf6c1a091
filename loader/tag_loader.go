package loader

import (
	"go/ast"
	"go/parser"
	"go/token"
	"reflect"
	"strconv"
	"strings"

	"github.com/ridoystarlord/pgguard/schema"
)

// tableDirective names the table of the struct it documents, e.g.
//
//	//pgguard:table user_accounts
const tableDirective = "//pgguard:table"

// extractGo parses a Go file and collects tagged structs and SQL queries
func (e *Extractor) extractGo(file *schema.SourceFile) (*schema.ExtractionResult, error) {
	fset := token.NewFileSet()
	node, err := parser.ParseFile(fset, file.FilePath, file.Content, parser.ParseComments)
	if err != nil {
		return nil, err
	}

	result := &schema.ExtractionResult{
		Queries:      []schema.Query{},
		TableSchemas: []schema.TableSchema{},
	}
	consts := collectStringConsts(node)

	// Walk through the AST in source order
	var doc *ast.CommentGroup
	ast.Inspect(node, func(n ast.Node) bool {
		switch x := n.(type) {
		case *ast.GenDecl:
			// a parenthesized group documents the group, not each spec
			doc = nil
			if !x.Lparen.IsValid() {
				doc = x.Doc
			}
		case *ast.TypeSpec:
			structType, ok := x.Type.(*ast.StructType)
			if !ok {
				return true
			}
			specDoc := x.Doc
			if specDoc == nil {
				specDoc = doc
			}
			if table := e.parseStruct(x.Name.Name, specDoc, structType); table != nil {
				table.Location = location(fset, x.Pos())
				result.TableSchemas = append(result.TableSchemas, *table)
			}
		case *ast.CallExpr:
			if query, ok := e.parseCall(fset, x, consts); ok {
				result.Queries = append(result.Queries, query)
			}
		}
		return true
	})

	return result, nil
}

func location(fset *token.FileSet, pos token.Pos) schema.Location {
	p := fset.Position(pos)
	return schema.Location{FilePath: p.Filename, Line: p.Line, Column: p.Column}
}

// parseStruct converts a struct with tagged fields to a table schema.
// Structs without any tagged field are not tables.
func (e *Extractor) parseStruct(structName string, doc *ast.CommentGroup, structType *ast.StructType) *schema.TableSchema {
	tableName := tableNameFromDoc(doc)
	table := schema.NewTableSchema("")

	for _, field := range structType.Fields.List {
		if len(field.Names) == 0 {
			continue // embedded fields are not columns
		}

		tag, ok := e.lookupTag(field.Tag)
		if !ok {
			continue
		}

		for _, name := range field.Names {
			if name.Name == "_" {
				if v := tagValue(tag, "table"); v != "" {
					tableName = v
				}
				continue
			}
			if !ast.IsExported(name.Name) {
				continue
			}

			columnName, descriptor, ok := parseField(name.Name, field.Type, tag)
			if ok {
				table.AddColumn(columnName, descriptor)
			}
		}
	}

	if len(table.ColumnNames) == 0 {
		return nil
	}

	if tableName == "" {
		tableName = getTableName(structName)
	}
	table.TableName = tableName
	return table
}

func tableNameFromDoc(doc *ast.CommentGroup) string {
	if doc == nil {
		return ""
	}
	// CommentGroup.Text drops directives, so read the raw comments
	for _, c := range doc.List {
		if rest, ok := strings.CutPrefix(c.Text, tableDirective); ok {
			return strings.TrimSpace(rest)
		}
	}
	return ""
}

// lookupTag returns the pgguard part of a struct tag
func (e *Extractor) lookupTag(lit *ast.BasicLit) (string, bool) {
	if lit == nil {
		return "", false
	}
	raw, err := strconv.Unquote(lit.Value)
	if err != nil {
		return "", false
	}
	return reflect.StructTag(raw).Lookup(e.tagName)
}

// parseField converts a struct field to a column. The tag format is
// "column:name;type:text;subtype:text;enum:a|b;default:now();nullable;not_null".
func parseField(fieldName string, fieldType ast.Expr, tag string) (string, schema.ColumnDescriptor, bool) {
	tag = strings.TrimSpace(tag)
	if tag == "-" {
		return "", schema.ColumnDescriptor{}, false
	}

	columnName := toSnakeCase(fieldName)
	descriptor := inferDescriptor(fieldType)

	for _, part := range strings.Split(tag, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		key, value, hasValue := strings.Cut(part, ":")
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		if hasValue {
			switch key {
			case "column":
				columnName = value
			case "type":
				descriptor.Type = value
				descriptor.Subtype = nil
			case "subtype":
				descriptor.Subtype = &schema.ColumnDescriptor{Type: value}
			case "enum":
				descriptor.Type = schema.TypeEnum
				descriptor.Subtype = nil
				descriptor.Enum = splitEnum(value)
			case "default":
				descriptor.HasDefault = true
			}
			continue
		}

		switch key {
		case "nullable":
			descriptor.Nullable = true
		case "not_null", "primary":
			descriptor.Nullable = false
		case "default", "serial":
			descriptor.HasDefault = true
		}
	}

	return columnName, descriptor, true
}

func splitEnum(value string) []string {
	values := []string{}
	for _, v := range strings.Split(value, "|") {
		if v = strings.TrimSpace(v); v != "" {
			values = append(values, v)
		}
	}
	return values
}

func tagValue(tag, key string) string {
	for _, part := range strings.Split(tag, ";") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), ":")
		if ok && strings.TrimSpace(k) == key {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

var nullTypes = map[string]string{
	"sql.NullString":  "text",
	"sql.NullInt16":   "smallint",
	"sql.NullInt32":   "integer",
	"sql.NullInt64":   "bigint",
	"sql.NullFloat64": "numeric",
	"sql.NullBool":    "boolean",
	"sql.NullTime":    "timestamp",
	"sql.NullByte":    "smallint",
}

// inferDescriptor maps a Go field type to a PostgreSQL column type
func inferDescriptor(expr ast.Expr) schema.ColumnDescriptor {
	switch t := expr.(type) {
	case *ast.StarExpr:
		d := inferDescriptor(t.X)
		d.Nullable = true
		return d
	case *ast.ArrayType:
		if ident, ok := t.Elt.(*ast.Ident); ok && ident.Name == "byte" {
			return schema.ColumnDescriptor{Type: "bytea"}
		}
		elem := inferDescriptor(t.Elt)
		return schema.ColumnDescriptor{Type: "array", Subtype: &elem}
	case *ast.MapType:
		return schema.ColumnDescriptor{Type: "jsonb"}
	case *ast.SelectorExpr:
		name := selectorName(t)
		if base, ok := nullTypes[name]; ok {
			return schema.ColumnDescriptor{Type: base, Nullable: true}
		}
		return schema.ColumnDescriptor{Type: inferDataType(name)}
	case *ast.Ident:
		return schema.ColumnDescriptor{Type: inferDataType(t.Name)}
	}
	return schema.ColumnDescriptor{Type: "text"}
}

func selectorName(sel *ast.SelectorExpr) string {
	if x, ok := sel.X.(*ast.Ident); ok {
		return x.Name + "." + sel.Sel.Name
	}
	return sel.Sel.Name
}

// inferDataType infers PostgreSQL data type from Go type
func inferDataType(goType string) string {
	switch goType {
	case "int", "int32", "uint32", "uint16", "int16", "int8", "uint8":
		return "integer"
	case "int64", "uint64", "uint":
		return "bigint"
	case "string":
		return "text"
	case "bool":
		return "boolean"
	case "float32", "float64":
		return "numeric"
	case "time.Time":
		return "timestamp"
	case "time.Duration":
		return "interval"
	case "uuid.UUID":
		return "uuid"
	case "json.RawMessage":
		return "jsonb"
	default:
		return "text"
	}
}

// getTableName converts struct name to table name
func getTableName(structName string) string {
	tableName := toSnakeCase(structName)

	switch {
	case strings.HasSuffix(tableName, "y") && !strings.HasSuffix(tableName, "ey"):
		tableName = strings.TrimSuffix(tableName, "y") + "ies"
	case strings.HasSuffix(tableName, "s"), strings.HasSuffix(tableName, "x"), strings.HasSuffix(tableName, "ch"):
		tableName += "es"
	default:
		tableName += "s"
	}

	return tableName
}

// toSnakeCase converts PascalCase to snake_case. Runs of capitals are kept
// together, so "UserID" becomes "user_id" and "HTTPStatus" "http_status".
func toSnakeCase(s string) string {
	runes := []rune(s)
	var b strings.Builder

	for i, r := range runes {
		upper := r >= 'A' && r <= 'Z'
		if upper && i > 0 {
			prev := runes[i-1]
			prevLower := (prev >= 'a' && prev <= 'z') || (prev >= '0' && prev <= '9')
			nextLower := i+1 < len(runes) && runes[i+1] >= 'a' && runes[i+1] <= 'z'
			prevUpper := prev >= 'A' && prev <= 'Z'
			if prevLower || (prevUpper && nextLower) {
				b.WriteByte('_')
			}
		}
		b.WriteRune(r)
	}
	return strings.ToLower(b.String())
}
