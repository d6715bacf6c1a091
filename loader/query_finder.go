package loader

import (
	"go/ast"
	"go/token"
	"strconv"
	"strings"

	"github.com/ridoystarlord/pgguard/schema"
	"github.com/ridoystarlord/pgguard/sqlscan"
)

var sqlPrefixes = []string{"select", "insert", "update", "delete", "with"}

// collectStringConsts records string constants so queries declared as
// constants can be followed from the call site
func collectStringConsts(file *ast.File) map[string]string {
	consts := map[string]string{}

	ast.Inspect(file, func(n ast.Node) bool {
		decl, ok := n.(*ast.GenDecl)
		if !ok || decl.Tok != token.CONST {
			return true
		}
		for _, spec := range decl.Specs {
			vs, ok := spec.(*ast.ValueSpec)
			if !ok {
				continue
			}
			for i, name := range vs.Names {
				if i >= len(vs.Values) {
					break
				}
				if value, ok := stringValue(vs.Values[i], consts); ok {
					consts[name.Name] = value
				}
			}
		}
		return true
	})

	return consts
}

// stringValue evaluates string literals, constants and their concatenation
func stringValue(expr ast.Expr, consts map[string]string) (string, bool) {
	switch x := expr.(type) {
	case *ast.BasicLit:
		if x.Kind != token.STRING {
			return "", false
		}
		s, err := strconv.Unquote(x.Value)
		return s, err == nil
	case *ast.Ident:
		s, ok := consts[x.Name]
		return s, ok
	case *ast.ParenExpr:
		return stringValue(x.X, consts)
	case *ast.BinaryExpr:
		if x.Op != token.ADD {
			return "", false
		}
		left, ok := stringValue(x.X, consts)
		if !ok {
			return "", false
		}
		right, ok := stringValue(x.Y, consts)
		if !ok {
			return "", false
		}
		return left + right, true
	}
	return "", false
}

func looksLikeSQL(s string) bool {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return false
	}
	first := strings.ToLower(strings.TrimLeft(fields[0], "("))
	for _, prefix := range sqlPrefixes {
		if first == prefix {
			return true
		}
	}
	return false
}

// parseCall turns db.Query("SELECT ...")-style calls into queries
func (e *Extractor) parseCall(fset *token.FileSet, call *ast.CallExpr, consts map[string]string) (schema.Query, bool) {
	sel, ok := call.Fun.(*ast.SelectorExpr)
	if !ok || !e.queryMethods[sel.Sel.Name] {
		return schema.Query{}, false
	}

	for _, arg := range call.Args {
		sql, ok := stringValue(arg, consts)
		if !ok {
			continue
		}
		if !looksLikeSQL(sql) {
			e.logger.Debug("skipping non-SQL string argument",
				"method", sel.Sel.Name,
				"location", location(fset, arg.Pos()).String())
			return schema.Query{}, false
		}

		loc := location(fset, arg.Pos())
		query, err := sqlscan.Analyze(sql)
		if err != nil {
			e.logger.Warn("failed to parse query",
				"location", loc.String(),
				"error", err)
			query.ParseError = err.Error()
		}
		setLocation(&query, loc)
		return query, true
	}

	return schema.Query{}, false
}

func setLocation(query *schema.Query, loc schema.Location) {
	query.Location = loc
	for i := range query.Subqueries {
		setLocation(&query.Subqueries[i], loc)
	}
}
