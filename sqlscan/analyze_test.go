package sqlscan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridoystarlord/pgguard/schema"
)

func col(table, column string) schema.ColumnReference {
	return schema.ColumnReference{TableName: table, ColumnName: column}
}

func TestAnalyze(t *testing.T) {
	tests := []struct {
		name     string
		sql      string
		kind     schema.StatementKind
		tables   []schema.TableReference
		columns  []schema.ColumnReference
		inserted []string
	}{
		{
			name:    "simple select",
			sql:     "SELECT id, email FROM users WHERE active = $1",
			kind:    schema.StatementSelect,
			tables:  []schema.TableReference{{TableName: "users"}},
			columns: []schema.ColumnReference{col("", "id"), col("", "email"), col("", "active")},
		},
		{
			name: "join with aliases",
			sql:  "SELECT u.id, o.total FROM users u JOIN orders o ON o.user_id = u.id",
			kind: schema.StatementSelect,
			tables: []schema.TableReference{
				{TableName: "users", Alias: "u"},
				{TableName: "orders", Alias: "o"},
			},
			columns: []schema.ColumnReference{col("users", "id"), col("orders", "total"), col("orders", "user_id")},
		},
		{
			name:     "insert with column list",
			sql:      "INSERT INTO users (email, name) VALUES ($1, $2) RETURNING id",
			kind:     schema.StatementInsert,
			tables:   []schema.TableReference{{TableName: "users"}},
			columns:  []schema.ColumnReference{col("users", "email"), col("users", "name"), col("", "id")},
			inserted: []string{"email", "name"},
		},
		{
			name:     "upsert resolves excluded",
			sql:      "INSERT INTO users (email) VALUES ($1) ON CONFLICT (email) DO UPDATE SET email = EXCLUDED.email",
			kind:     schema.StatementInsert,
			tables:   []schema.TableReference{{TableName: "users"}},
			columns:  []schema.ColumnReference{col("users", "email")},
			inserted: []string{"email"},
		},
		{
			name:    "update",
			sql:     "UPDATE users SET name = $1, updated_at = now() WHERE id = $2",
			kind:    schema.StatementUpdate,
			tables:  []schema.TableReference{{TableName: "users"}},
			columns: []schema.ColumnReference{col("users", "name"), col("users", "updated_at"), col("", "id")},
		},
		{
			name:    "delete",
			sql:     "DELETE FROM sessions WHERE expires_at < now()",
			kind:    schema.StatementDelete,
			tables:  []schema.TableReference{{TableName: "sessions"}},
			columns: []schema.ColumnReference{col("", "expires_at")},
		},
		{
			name:    "output aliases and functions are not columns",
			sql:     "SELECT count(*) AS total, status FROM orders GROUP BY status ORDER BY total DESC",
			kind:    schema.StatementSelect,
			tables:  []schema.TableReference{{TableName: "orders"}},
			columns: []schema.ColumnReference{col("", "status")},
		},
		{
			name:    "casts, quoted names and extract",
			sql:     `SELECT "userId", created_at::date FROM "Users" WHERE EXTRACT(year FROM created_at) = 2024`,
			kind:    schema.StatementSelect,
			tables:  []schema.TableReference{{TableName: "Users"}},
			columns: []schema.ColumnReference{col("", "userId"), col("", "created_at")},
		},
		{
			name:    "schema qualified table",
			sql:     "SELECT p.title FROM public.posts p FOR UPDATE",
			kind:    schema.StatementSelect,
			tables:  []schema.TableReference{{TableName: "posts", Alias: "p"}},
			columns: []schema.ColumnReference{col("posts", "title")},
		},
		{
			name:    "implicit output alias",
			sql:     "SELECT name n FROM users ORDER BY n",
			kind:    schema.StatementSelect,
			tables:  []schema.TableReference{{TableName: "users"}},
			columns: []schema.ColumnReference{col("", "name")},
		},
		{
			name:    "case expression with alias",
			sql:     "SELECT CASE WHEN active THEN 'y' ELSE 'n' END flag FROM users",
			kind:    schema.StatementSelect,
			tables:  []schema.TableReference{{TableName: "users"}},
			columns: []schema.ColumnReference{col("", "active")},
		},
		{
			name:    "window and aggregate filter",
			sql:     "SELECT count(*) FILTER (WHERE paid) OVER (PARTITION BY user_id ORDER BY created_at) FROM orders",
			kind:    schema.StatementSelect,
			tables:  []schema.TableReference{{TableName: "orders"}},
			columns: []schema.ColumnReference{col("", "paid"), col("", "user_id"), col("", "created_at")},
		},
		{
			name:    "named parameters",
			sql:     "SELECT id FROM users WHERE email = :email AND name = :name",
			kind:    schema.StatementSelect,
			tables:  []schema.TableReference{{TableName: "users"}},
			columns: []schema.ColumnReference{col("", "id"), col("", "email"), col("", "name")},
		},
		{
			name:    "question mark parameters",
			sql:     "UPDATE users SET name = ? WHERE id = ?",
			kind:    schema.StatementUpdate,
			tables:  []schema.TableReference{{TableName: "users"}},
			columns: []schema.ColumnReference{col("users", "name"), col("", "id")},
		},
		{
			name:    "jsonb key operator is not a parameter",
			sql:     "SELECT id FROM docs WHERE data ? 'key'",
			kind:    schema.StatementSelect,
			tables:  []schema.TableReference{{TableName: "docs"}},
			columns: []schema.ColumnReference{col("", "id"), col("", "data")},
		},
		{
			name:    "delete using",
			sql:     "DELETE FROM sessions s USING users u WHERE s.user_id = u.id RETURNING s.id",
			kind:    schema.StatementDelete,
			tables:  []schema.TableReference{{TableName: "sessions", Alias: "s"}, {TableName: "users", Alias: "u"}},
			columns: []schema.ColumnReference{col("sessions", "user_id"), col("users", "id"), col("sessions", "id")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := Analyze(tt.sql)
			require.NoError(t, err)
			assert.Equal(t, tt.kind, q.Kind)
			assert.Equal(t, tt.tables, q.Tables)
			assert.Equal(t, tt.columns, q.Columns)
			assert.Equal(t, tt.inserted, q.Inserted)
			assert.Equal(t, tt.sql, q.Text)
		})
	}
}

func TestAnalyze_Subquery(t *testing.T) {
	q, err := Analyze("SELECT name FROM users WHERE id IN (SELECT user_id FROM orders WHERE total > 100)")
	require.NoError(t, err)

	assert.Equal(t, []schema.ColumnReference{col("", "name"), col("", "id")}, q.Columns)
	require.Len(t, q.Subqueries, 1)

	sub := q.Subqueries[0]
	assert.Equal(t, "SELECT user_id FROM orders WHERE total > 100", sub.Text)
	assert.Equal(t, schema.StatementSelect, sub.Kind)
	assert.Equal(t, []schema.TableReference{{TableName: "orders"}}, sub.Tables)
	assert.Equal(t, []schema.ColumnReference{col("", "user_id"), col("", "total")}, sub.Columns)
}

func TestAnalyze_CorrelatedSubqueryUsesOuterAliases(t *testing.T) {
	q, err := Analyze("SELECT u.name FROM users u WHERE EXISTS (SELECT 1 FROM orders o WHERE o.user_id = u.id)")
	require.NoError(t, err)

	assert.Equal(t, []schema.ColumnReference{col("users", "name")}, q.Columns)
	require.Len(t, q.Subqueries, 1)
	assert.Equal(t, []schema.ColumnReference{col("orders", "user_id"), col("users", "id")}, q.Subqueries[0].Columns)
}

func TestAnalyze_CommonTableExpression(t *testing.T) {
	q, err := Analyze("WITH recent AS (SELECT id FROM orders WHERE created_at > now()) SELECT r.id FROM recent r")
	require.NoError(t, err)

	assert.Equal(t, schema.StatementSelect, q.Kind)
	assert.Empty(t, q.Tables)
	assert.Empty(t, q.Columns)
	require.Len(t, q.Subqueries, 1)
	assert.Equal(t, []schema.TableReference{{TableName: "orders"}}, q.Subqueries[0].Tables)
	assert.Equal(t, []schema.ColumnReference{col("", "id"), col("", "created_at")}, q.Subqueries[0].Columns)
}

func TestAnalyze_DerivedTable(t *testing.T) {
	q, err := Analyze("SELECT t.n FROM (SELECT count(*) AS n FROM users) t")
	require.NoError(t, err)

	assert.Empty(t, q.Tables)
	assert.Empty(t, q.Columns)
	require.Len(t, q.Subqueries, 1)
	assert.Equal(t, []schema.TableReference{{TableName: "users"}}, q.Subqueries[0].Tables)
	assert.Empty(t, q.Subqueries[0].Columns)
}

func TestAnalyze_OtherStatement(t *testing.T) {
	for _, sql := range []string{"VACUUM", ""} {
		q, err := Analyze(sql)
		require.NoError(t, err)
		assert.Equal(t, schema.StatementOther, q.Kind)
	}
}

func TestAnalyze_SyntaxError(t *testing.T) {
	q, err := Analyze("SELEC id FROM users")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse SQL")
	assert.Equal(t, schema.StatementOther, q.Kind)
	assert.Equal(t, "SELEC id FROM users", q.Text)
	assert.Empty(t, q.Tables)
}

func TestAnalyze_RowValueInSubquery(t *testing.T) {
	q, err := Analyze("SELECT email FROM users WHERE (id, name) IN (SELECT user_id, note FROM orders)")
	require.NoError(t, err)

	assert.Equal(t, []schema.ColumnReference{col("", "email"), col("", "id"), col("", "name")}, q.Columns)
	require.Len(t, q.Subqueries, 1)
	assert.Equal(t, []schema.TableReference{{TableName: "orders"}}, q.Subqueries[0].Tables)
	assert.Equal(t, []schema.ColumnReference{col("", "user_id"), col("", "note")}, q.Subqueries[0].Columns)
}

func TestAnalyze_SetOperation(t *testing.T) {
	q, err := Analyze("SELECT email FROM users UNION ALL SELECT note FROM orders ORDER BY 1")
	require.NoError(t, err)

	assert.Equal(t, schema.StatementSelect, q.Kind)
	assert.Empty(t, q.Tables)
	require.Len(t, q.Subqueries, 2)
	assert.Equal(t, []schema.TableReference{{TableName: "users"}}, q.Subqueries[0].Tables)
	assert.Equal(t, []schema.ColumnReference{col("", "email")}, q.Subqueries[0].Columns)
	assert.Equal(t, []schema.TableReference{{TableName: "orders"}}, q.Subqueries[1].Tables)
}

func TestAnalyze_InsertSelect(t *testing.T) {
	q, err := Analyze("INSERT INTO archive (id, email) SELECT id, email FROM users WHERE name IS NULL")
	require.NoError(t, err)

	assert.Equal(t, []string{"id", "email"}, q.Inserted)
	assert.Equal(t, []schema.ColumnReference{col("archive", "id"), col("archive", "email")}, q.Columns)
	require.Len(t, q.Subqueries, 1)
	assert.Equal(t, []schema.TableReference{{TableName: "users"}}, q.Subqueries[0].Tables)
	assert.Equal(t, []schema.ColumnReference{col("", "id"), col("", "email"), col("", "name")}, q.Subqueries[0].Columns)
}

func TestBindParams(t *testing.T) {
	assert.Equal(t, "SELECT id FROM users WHERE email = $1 AND id = $2",
		bindParams("SELECT id FROM users WHERE email = :email AND id = :id"))
	assert.Equal(t, "SELECT id FROM users WHERE id = $1", bindParams("SELECT id FROM users WHERE id = ?"))
	assert.Equal(t, "SELECT created_at::date FROM users", bindParams("SELECT created_at::date FROM users"))
	assert.Equal(t, "SELECT ':name' FROM users", bindParams("SELECT ':name' FROM users"))
}
