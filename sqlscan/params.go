package sqlscan

import (
	"strconv"
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v6"
)

// bindParams rewrites sqlx style ":name" and "?" placeholders to "$n" so
// the statement can be parsed as PostgreSQL. It returns sql unchanged when
// there is nothing to rewrite.
func bindParams(sql string) string {
	scan, err := pg_query.Scan(sql)
	if err != nil {
		return sql
	}

	var b strings.Builder
	tokens := scan.GetTokens()
	last, n := 0, 0
	for i, tok := range tokens {
		start, end := int(tok.GetStart()), int(tok.GetEnd())
		switch text := sql[start:end]; {
		case text == "?":
		case text == ":" && i+1 < len(tokens) && int(tokens[i+1].GetStart()) == end && isNameStart(sql[end]):
			end = int(tokens[i+1].GetEnd())
		default:
			continue
		}

		n++
		b.WriteString(sql[last:start])
		b.WriteString("$" + strconv.Itoa(n))
		last = end
	}

	if n == 0 {
		return sql
	}
	b.WriteString(sql[last:])
	return b.String()
}

func isNameStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
