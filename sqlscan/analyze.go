// Package sqlscan finds the tables and columns a SQL statement refers to.
//
// Statements are parsed with the PostgreSQL parser (pg_query) and the parse
// tree is walked to resolve table aliases, INSERT column lists and nested
// SELECT subqueries.
package sqlscan

import (
	"fmt"
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v6"

	"github.com/ridoystarlord/pgguard/schema"
)

type scope struct {
	// alias or table name -> table name; "" marks a CTE or derived table
	names  map[string]string
	parent *scope
}

func (s *scope) resolve(name string) (string, bool) {
	for sc := s; sc != nil; sc = sc.parent {
		if table, ok := sc.names[name]; ok {
			return table, true
		}
	}
	return "", false
}

type rawRef struct {
	qualifier string
	column    string
}

type analyzer struct {
	scope       *scope
	query       schema.Query
	insertInto  string
	refs        []rawRef
	outputNames map[string]bool
	subs        []*pg_query.Node
}

// Analyze parses a SQL statement and collects its tables, columns and
// subqueries. Only the first statement of a multi-statement string is
// analyzed. Statements that fail to parse are returned as StatementOther
// together with the parser error.
func Analyze(sql string) (schema.Query, error) {
	query := schema.Query{
		Text: strings.TrimSpace(sql),
		Kind: schema.StatementOther,
	}

	tree, err := pg_query.Parse(sql)
	if err != nil {
		// retry with sqlx style placeholders rewritten
		bound := bindParams(sql)
		if bound == sql {
			return query, fmt.Errorf("failed to parse SQL: %w", err)
		}
		if tree, err = pg_query.Parse(bound); err != nil {
			return query, fmt.Errorf("failed to parse SQL: %w", err)
		}
	}

	stmts := tree.GetStmts()
	if len(stmts) == 0 {
		return query, nil
	}

	analyzed := analyze(stmts[0].GetStmt(), nil)
	analyzed.Text = query.Text
	return analyzed, nil
}

func analyze(stmt *pg_query.Node, parent *scope) schema.Query {
	a := &analyzer{
		scope:       &scope{names: map[string]string{}, parent: parent},
		outputNames: map[string]bool{},
	}

	switch n := stmt.GetNode().(type) {
	case *pg_query.Node_SelectStmt:
		a.query.Kind = schema.StatementSelect
		a.selectStmt(n.SelectStmt)
	case *pg_query.Node_InsertStmt:
		a.query.Kind = schema.StatementInsert
		a.insertStmt(n.InsertStmt)
	case *pg_query.Node_UpdateStmt:
		a.query.Kind = schema.StatementUpdate
		a.updateStmt(n.UpdateStmt)
	case *pg_query.Node_DeleteStmt:
		a.query.Kind = schema.StatementDelete
		a.deleteStmt(n.DeleteStmt)
	default:
		a.query.Kind = schema.StatementOther
	}

	a.query.Columns = a.resolveRefs()
	for _, node := range a.subs {
		sub := analyze(node, a.scope)
		sub.Text = deparse(node)
		a.query.Subqueries = append(a.query.Subqueries, sub)
	}
	return a.query
}

// deparse turns a statement node back into SQL text
func deparse(stmt *pg_query.Node) string {
	text, err := pg_query.Deparse(&pg_query.ParseResult{
		Stmts: []*pg_query.RawStmt{{Stmt: stmt}},
	})
	if err != nil {
		return ""
	}
	return text
}

func selectNode(stmt *pg_query.SelectStmt) *pg_query.Node {
	return &pg_query.Node{Node: &pg_query.Node_SelectStmt{SelectStmt: stmt}}
}

func (a *analyzer) withClause(with *pg_query.WithClause) {
	for _, node := range with.GetCtes() {
		cte := node.GetCommonTableExpr()
		if cte == nil {
			continue
		}
		a.scope.names[cte.GetCtename()] = ""
		a.subs = append(a.subs, cte.GetCtequery())
	}
}

func (a *analyzer) selectStmt(stmt *pg_query.SelectStmt) {
	a.withClause(stmt.GetWithClause())

	if stmt.GetOp() != pg_query.SetOperation_SETOP_NONE {
		// each arm of a UNION, INTERSECT or EXCEPT has its own FROM
		a.subs = append(a.subs, selectNode(stmt.GetLarg()), selectNode(stmt.GetRarg()))
		return
	}

	var deferred []*pg_query.Node
	for _, item := range stmt.GetFromClause() {
		deferred = a.fromItem(item, deferred)
	}

	for _, node := range stmt.GetTargetList() {
		target := node.GetResTarget()
		if name := target.GetName(); name != "" {
			a.outputNames[name] = true
		}
		a.expr(target.GetVal())
	}

	a.exprs(deferred)
	a.expr(stmt.GetWhereClause())
	a.exprs(stmt.GetGroupClause())
	a.expr(stmt.GetHavingClause())
	for _, node := range stmt.GetWindowClause() {
		a.windowDef(node.GetWindowDef())
	}
	a.exprs(stmt.GetValuesLists())
	a.exprs(stmt.GetSortClause())
	a.exprs(stmt.GetDistinctClause())
	a.expr(stmt.GetLimitCount())
	a.expr(stmt.GetLimitOffset())
}

func (a *analyzer) insertStmt(stmt *pg_query.InsertStmt) {
	a.withClause(stmt.GetWithClause())

	target := a.table(stmt.GetRelation())
	a.insertInto = target

	for _, node := range stmt.GetCols() {
		name := node.GetResTarget().GetName()
		a.query.Inserted = append(a.query.Inserted, name)
		a.targetColumn(target, name)
	}

	if source := stmt.GetSelectStmt(); source != nil {
		if rows := source.GetSelectStmt().GetValuesLists(); len(rows) > 0 {
			a.exprs(rows)
		} else {
			a.subs = append(a.subs, source)
		}
	}

	if conflict := stmt.GetOnConflictClause(); conflict != nil {
		infer := conflict.GetInfer()
		for _, node := range infer.GetIndexElems() {
			elem := node.GetIndexElem()
			if name := elem.GetName(); name != "" {
				a.targetColumn(target, name)
			} else {
				a.expr(elem.GetExpr())
			}
		}
		a.expr(infer.GetWhereClause())
		a.setList(target, conflict.GetTargetList())
		a.expr(conflict.GetWhereClause())
	}

	a.exprs(stmt.GetReturningList())
}

func (a *analyzer) updateStmt(stmt *pg_query.UpdateStmt) {
	a.withClause(stmt.GetWithClause())

	target := a.table(stmt.GetRelation())
	var deferred []*pg_query.Node
	for _, item := range stmt.GetFromClause() {
		deferred = a.fromItem(item, deferred)
	}

	a.setList(target, stmt.GetTargetList())
	a.exprs(deferred)
	a.expr(stmt.GetWhereClause())
	a.exprs(stmt.GetReturningList())
}

func (a *analyzer) deleteStmt(stmt *pg_query.DeleteStmt) {
	a.withClause(stmt.GetWithClause())

	a.table(stmt.GetRelation())
	var deferred []*pg_query.Node
	for _, item := range stmt.GetUsingClause() {
		deferred = a.fromItem(item, deferred)
	}

	a.exprs(deferred)
	a.expr(stmt.GetWhereClause())
	a.exprs(stmt.GetReturningList())
}

// setList records the SET targets of UPDATE and ON CONFLICT DO UPDATE
func (a *analyzer) setList(target string, list []*pg_query.Node) {
	for _, node := range list {
		res := node.GetResTarget()
		a.targetColumn(target, res.GetName())
		a.expr(res.GetVal())
	}
}

func (a *analyzer) targetColumn(table, name string) {
	if name == "" {
		return
	}
	a.refs = append(a.refs, rawRef{qualifier: table, column: name})
}

// fromItem registers the tables of a FROM or USING entry. Join conditions
// and function arguments are returned in deferred so they are read after
// the select list.
func (a *analyzer) fromItem(item *pg_query.Node, deferred []*pg_query.Node) []*pg_query.Node {
	switch n := item.GetNode().(type) {
	case *pg_query.Node_RangeVar:
		a.table(n.RangeVar)
	case *pg_query.Node_JoinExpr:
		join := n.JoinExpr
		deferred = a.fromItem(join.GetLarg(), deferred)
		deferred = a.fromItem(join.GetRarg(), deferred)
		if quals := join.GetQuals(); quals != nil {
			deferred = append(deferred, quals)
		}
		a.derived(join.GetAlias())
	case *pg_query.Node_RangeSubselect:
		a.subs = append(a.subs, n.RangeSubselect.GetSubquery())
		a.derived(n.RangeSubselect.GetAlias())
	case *pg_query.Node_RangeFunction:
		// set returning function such as generate_series(1, 10)
		deferred = append(deferred, n.RangeFunction.GetFunctions()...)
		a.derived(n.RangeFunction.GetAlias())
	}
	return deferred
}

func (a *analyzer) derived(alias *pg_query.Alias) {
	if name := alias.GetAliasname(); name != "" {
		a.scope.names[name] = ""
	}
}

// table registers a table reference and returns its name, or "" when the
// reference is to a CTE
func (a *analyzer) table(rv *pg_query.RangeVar) string {
	if rv == nil {
		return ""
	}
	name := rv.GetRelname()
	alias := rv.GetAlias().GetAliasname()

	if resolved, ok := a.scope.resolve(name); ok && resolved == "" && rv.GetSchemaname() == "" {
		if alias != "" {
			a.scope.names[alias] = ""
		}
		return ""
	}

	a.scope.names[name] = name
	if alias != "" {
		a.scope.names[alias] = name
	}
	a.query.Tables = append(a.query.Tables, schema.TableReference{TableName: name, Alias: alias})
	return name
}

func (a *analyzer) exprs(nodes []*pg_query.Node) {
	for _, node := range nodes {
		a.expr(node)
	}
}

func (a *analyzer) expr(node *pg_query.Node) {
	switch n := node.GetNode().(type) {
	case *pg_query.Node_ColumnRef:
		a.columnRef(n.ColumnRef)
	case *pg_query.Node_SubLink:
		a.expr(n.SubLink.GetTestexpr())
		a.subs = append(a.subs, n.SubLink.GetSubselect())
	case *pg_query.Node_AExpr:
		a.expr(n.AExpr.GetLexpr())
		a.expr(n.AExpr.GetRexpr())
	case *pg_query.Node_BoolExpr:
		a.exprs(n.BoolExpr.GetArgs())
	case *pg_query.Node_FuncCall:
		a.exprs(n.FuncCall.GetArgs())
		a.exprs(n.FuncCall.GetAggOrder())
		a.expr(n.FuncCall.GetAggFilter())
		a.windowDef(n.FuncCall.GetOver())
	case *pg_query.Node_TypeCast:
		a.expr(n.TypeCast.GetArg())
	case *pg_query.Node_CaseExpr:
		a.expr(n.CaseExpr.GetArg())
		a.exprs(n.CaseExpr.GetArgs())
		a.expr(n.CaseExpr.GetDefresult())
	case *pg_query.Node_CaseWhen:
		a.expr(n.CaseWhen.GetExpr())
		a.expr(n.CaseWhen.GetResult())
	case *pg_query.Node_CoalesceExpr:
		a.exprs(n.CoalesceExpr.GetArgs())
	case *pg_query.Node_MinMaxExpr:
		a.exprs(n.MinMaxExpr.GetArgs())
	case *pg_query.Node_NullTest:
		a.expr(n.NullTest.GetArg())
	case *pg_query.Node_BooleanTest:
		a.expr(n.BooleanTest.GetArg())
	case *pg_query.Node_RowExpr:
		a.exprs(n.RowExpr.GetArgs())
	case *pg_query.Node_AArrayExpr:
		a.exprs(n.AArrayExpr.GetElements())
	case *pg_query.Node_AIndirection:
		a.expr(n.AIndirection.GetArg())
	case *pg_query.Node_CollateClause:
		a.expr(n.CollateClause.GetArg())
	case *pg_query.Node_NamedArgExpr:
		a.expr(n.NamedArgExpr.GetArg())
	case *pg_query.Node_SortBy:
		a.expr(n.SortBy.GetNode())
	case *pg_query.Node_MultiAssignRef:
		a.expr(n.MultiAssignRef.GetSource())
	case *pg_query.Node_GroupingSet:
		a.exprs(n.GroupingSet.GetContent())
	case *pg_query.Node_ResTarget:
		a.expr(n.ResTarget.GetVal())
	case *pg_query.Node_List:
		a.exprs(n.List.GetItems())
	}
}

func (a *analyzer) windowDef(def *pg_query.WindowDef) {
	a.exprs(def.GetPartitionClause())
	a.exprs(def.GetOrderClause())
}

// columnRef records "col" and "t.col"; "*" and "t.*" are skipped
func (a *analyzer) columnRef(ref *pg_query.ColumnRef) {
	var parts []string
	for _, field := range ref.GetFields() {
		if field.GetAStar() != nil {
			return
		}
		parts = append(parts, field.GetString_().GetSval())
	}

	switch len(parts) {
	case 0:
		return
	case 1:
		a.refs = append(a.refs, rawRef{column: parts[0]})
	default:
		a.refs = append(a.refs, rawRef{
			qualifier: parts[len(parts)-2],
			column:    parts[len(parts)-1],
		})
	}
}

func (a *analyzer) resolveRefs() []schema.ColumnReference {
	var out []schema.ColumnReference
	seen := map[schema.ColumnReference]bool{}

	for _, ref := range a.refs {
		col := schema.ColumnReference{ColumnName: ref.column}

		switch {
		case ref.qualifier == "":
			if a.outputNames[ref.column] {
				continue
			}
		case ref.qualifier == "excluded" && a.insertInto != "":
			col.TableName = a.insertInto
		default:
			table, ok := a.scope.resolve(ref.qualifier)
			if ok && table == "" {
				continue
			}
			if ok {
				col.TableName = table
			} else {
				col.TableName = ref.qualifier
			}
		}

		if !seen[col] {
			seen[col] = true
			out = append(out, col)
		}
	}
	return out
}
