package querysql

import (
	"fmt"
	"strings"

	"github.com/roach88/req1/internal/ir"
	"github.com/roach88/req1/internal/queryir"
)

// SQLCompiler compiles QueryIR to parameterized SQL for SQLite.
//
// CRITICAL: every query ends its ORDER BY with "id COLLATE BINARY ASC" so
// results are deterministic and pages are stable.
// CRITICAL: values are always parameters, never interpolated.
type SQLCompiler struct{}

// NewSQLCompiler creates a new SQLCompiler.
func NewSQLCompiler() *SQLCompiler {
	return &SQLCompiler{}
}

// Compile converts a query to SQL plus its parameters.
func (c *SQLCompiler) Compile(q queryir.Query) (string, []any, error) {
	sel, err := selectOf(q)
	if err != nil {
		return "", nil, err
	}

	where, params, err := c.compileWhere(sel.Filter)
	if err != nil {
		return "", nil, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %s%s ORDER BY %s",
		strings.Join(sel.Columns, ", "), sel.From, where, c.orderBy(sel.Order))

	if sel.Limit > 0 {
		b.WriteString(" LIMIT ?")
		params = append(params, sel.Limit)
	} else if sel.Offset > 0 {
		b.WriteString(" LIMIT -1")
	}
	if sel.Offset > 0 {
		b.WriteString(" OFFSET ?")
		params = append(params, sel.Offset)
	}
	return b.String(), params, nil
}

// CompileCount converts a query to a COUNT(*) over the same filter,
// ignoring order and paging.
func (c *SQLCompiler) CompileCount(q queryir.Query) (string, []any, error) {
	sel, err := selectOf(q)
	if err != nil {
		return "", nil, err
	}
	where, params, err := c.compileWhere(sel.Filter)
	if err != nil {
		return "", nil, err
	}
	return fmt.Sprintf("SELECT COUNT(*) FROM %s%s", sel.From, where), params, nil
}

func selectOf(q queryir.Query) (queryir.Select, error) {
	switch query := q.(type) {
	case queryir.Select:
		return query, nil
	case *queryir.Select:
		if query == nil {
			return queryir.Select{}, fmt.Errorf("cannot compile nil query")
		}
		return *query, nil
	case nil:
		return queryir.Select{}, fmt.Errorf("cannot compile nil query")
	default:
		return queryir.Select{}, fmt.Errorf("unsupported query type: %T", q)
	}
}

func (c *SQLCompiler) compileWhere(p queryir.Predicate) (string, []any, error) {
	if p == nil {
		return "", nil, nil
	}
	sql, params, err := c.compilePredicate(p)
	if err != nil {
		return "", nil, fmt.Errorf("compile filter: %w", err)
	}
	return " WHERE " + sql, params, nil
}

// orderBy renders the requested keys followed by the id tiebreaker.
func (c *SQLCompiler) orderBy(keys []queryir.OrderKey) string {
	parts := make([]string, 0, len(keys)+1)
	for _, k := range keys {
		if k.Field == "id" {
			continue
		}
		dir := "ASC"
		if k.Desc {
			dir = "DESC"
		}
		parts = append(parts, k.Field+" "+dir)
	}
	parts = append(parts, "id COLLATE BINARY ASC")
	return strings.Join(parts, ", ")
}

func (c *SQLCompiler) compilePredicate(p queryir.Predicate) (string, []any, error) {
	switch pred := p.(type) {
	case queryir.Equals:
		param, err := irValueToParam(pred.Value)
		if err != nil {
			return "", nil, fmt.Errorf("field %s: %w", pred.Field, err)
		}
		return pred.Field + " = ?", []any{param}, nil

	case queryir.AttributeEquals:
		param, err := irValueToParam(pred.Value)
		if err != nil {
			return "", nil, fmt.Errorf("attribute %s: %w", pred.Key, err)
		}
		return "json_extract(attributes, ?) = ?", []any{attributePath(pred.Key), param}, nil

	case queryir.Contains:
		pattern := "%" + escapeLike(strings.ToLower(pred.Text)) + "%"
		parts := make([]string, len(pred.Fields))
		params := make([]any, len(pred.Fields))
		for i, f := range pred.Fields {
			parts[i] = fmt.Sprintf(`lower(coalesce(%s, '')) LIKE ? ESCAPE '\'`, f)
			params[i] = pattern
		}
		return "(" + strings.Join(parts, " OR ") + ")", params, nil

	case queryir.FieldsDiffer:
		return pred.Left + " IS NOT " + pred.Right, nil, nil

	case queryir.FieldsEqual:
		return pred.Left + " = " + pred.Right, nil, nil

	case queryir.And:
		if len(pred.Predicates) == 0 {
			return "1 = 1", nil, nil
		}
		var parts []string
		var params []any
		for _, sub := range pred.Predicates {
			sql, subParams, err := c.compilePredicate(sub)
			if err != nil {
				return "", nil, err
			}
			parts = append(parts, sql)
			params = append(params, subParams...)
		}
		return strings.Join(parts, " AND "), params, nil

	case nil:
		return "1 = 1", nil, nil
	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

// attributePath builds the JSON path of a top-level attribute key.
// Keys are quoted so dots and brackets in names are literal.
func attributePath(key string) string {
	return `$."` + key + `"`
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// irValueToParam converts a scalar IRValue to a SQL parameter.
// Booleans become 0/1 to match json_extract results.
func irValueToParam(v ir.IRValue) (any, error) {
	switch val := v.(type) {
	case ir.IRString:
		return string(val), nil
	case ir.IRInt:
		return int64(val), nil
	case ir.IRFloat:
		return float64(val), nil
	case ir.IRBool:
		if val {
			return int64(1), nil
		}
		return int64(0), nil
	case ir.IRArray, ir.IRObject:
		return nil, fmt.Errorf("%T cannot be used as SQL parameter directly", v)
	default:
		return nil, fmt.Errorf("unsupported IRValue type for SQL parameter: %T", v)
	}
}
