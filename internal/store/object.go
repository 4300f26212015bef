package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"

	"github.com/roach88/req1/internal/integrity"
	"github.com/roach88/req1/internal/ir"
	"github.com/roach88/req1/internal/queryir"
	"github.com/roach88/req1/internal/querysql"
)

const objectColumns = `id, module_id, parent_id, position, level, heading, body,
	attributes, classification, version, content_fingerprint, reviewed_fingerprint`

// InsertObject inserts a new object row.
func (c conn) InsertObject(ctx context.Context, o ir.Object) error {
	attrs, err := marshalAttributes(o.Attributes)
	if err != nil {
		return fmt.Errorf("insert object: %w", err)
	}
	_, err = c.q.ExecContext(ctx, `
		INSERT INTO objects (`+objectColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		o.ID,
		o.ModuleID,
		nullString(o.ParentID),
		o.Position,
		o.Level,
		nullString(o.Heading),
		nullString(o.Body),
		attrs,
		string(o.Classification),
		o.Version,
		o.ContentFingerprint,
		nullString(o.ReviewedFingerprint),
	)
	if err != nil {
		return mapWriteError("insert object", err)
	}
	return nil
}

// UpdateObject overwrites every mutable column of an existing object.
// The module of an object never changes.
func (c conn) UpdateObject(ctx context.Context, o ir.Object) error {
	attrs, err := marshalAttributes(o.Attributes)
	if err != nil {
		return fmt.Errorf("update object: %w", err)
	}
	res, err := c.q.ExecContext(ctx, `
		UPDATE objects
		SET parent_id = ?, position = ?, level = ?, heading = ?, body = ?,
		    attributes = ?, classification = ?, version = ?,
		    content_fingerprint = ?, reviewed_fingerprint = ?
		WHERE id = ?
	`,
		nullString(o.ParentID),
		o.Position,
		o.Level,
		nullString(o.Heading),
		nullString(o.Body),
		attrs,
		string(o.Classification),
		o.Version,
		o.ContentFingerprint,
		nullString(o.ReviewedFingerprint),
		o.ID,
	)
	if err != nil {
		return mapWriteError("update object", err)
	}
	return requireAffected(res, "object", o.ID)
}

// DeleteObject removes an object. Links touching it cascade.
func (c conn) DeleteObject(ctx context.Context, id string) error {
	res, err := c.q.ExecContext(ctx, `DELETE FROM objects WHERE id = ?`, id)
	if err != nil {
		return mapWriteError("delete object", err)
	}
	return requireAffected(res, "object", id)
}

// GetObject retrieves an object by id.
func (c conn) GetObject(ctx context.Context, id string) (ir.Object, error) {
	row := c.q.QueryRowContext(ctx, `SELECT `+objectColumns+` FROM objects WHERE id = ?`, id)
	o, err := scanObject(row)
	if err != nil {
		return ir.Object{}, mapReadError("object", id, err)
	}
	return o, nil
}

// Attributes returns the attribute map of an object and whether it exists.
func (c conn) Attributes(ctx context.Context, id string) (ir.IRObject, bool, error) {
	var data sql.NullString
	err := c.q.QueryRowContext(ctx, `SELECT attributes FROM objects WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read attributes: %w", err)
	}
	attrs, err := unmarshalAttributes(data)
	if err != nil {
		return nil, false, err
	}
	return attrs, true, nil
}

// ModuleObjects returns every object of a module ordered by (position, id).
// Returns an empty slice (not nil) when there are none.
func (c conn) ModuleObjects(ctx context.Context, moduleID string) ([]ir.Object, error) {
	rows, err := c.q.QueryContext(ctx, `
		SELECT `+objectColumns+`
		FROM objects
		WHERE module_id = ?
		ORDER BY position ASC, id COLLATE BINARY ASC
	`, moduleID)
	if err != nil {
		return nil, fmt.Errorf("query objects: %w", err)
	}
	return collectObjects(rows)
}

// ListObjects returns one page of a module's objects matching filter plus
// the total number of matches.
func (c conn) ListObjects(ctx context.Context, moduleID string, filter queryir.ObjectFilter) ([]ir.Object, int, error) {
	sel, err := filter.Query(moduleID)
	if err != nil {
		return nil, 0, ir.BadRequest("%v", err)
	}
	if err := queryir.Validate(sel, queryir.ObjectColumns).Err(); err != nil {
		return nil, 0, ir.BadRequest("%v", err)
	}

	compiler := querysql.NewSQLCompiler()
	countSQL, countParams, err := compiler.CompileCount(sel)
	if err != nil {
		return nil, 0, fmt.Errorf("compile count: %w", err)
	}
	var total int
	if err := c.q.QueryRowContext(ctx, countSQL, countParams...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count objects: %w", err)
	}

	query, params, err := compiler.Compile(sel)
	if err != nil {
		return nil, 0, fmt.Errorf("compile query: %w", err)
	}
	rows, err := c.q.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, 0, fmt.Errorf("query objects: %w", err)
	}
	objects, err := collectObjects(rows)
	if err != nil {
		return nil, 0, err
	}
	return objects, total, nil
}

// ChildCount returns the number of direct children of an object.
func (c conn) ChildCount(ctx context.Context, id string) (int, error) {
	var n int
	if err := c.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM objects WHERE parent_id = ?`, id).Scan(&n); err != nil {
		return 0, fmt.Errorf("count children: %w", err)
	}
	return n, nil
}

// Hierarchy returns the parent/position nodes of a module's objects.
func (c conn) Hierarchy(ctx context.Context, moduleID string) ([]integrity.Node, error) {
	rows, err := c.q.QueryContext(ctx, `
		SELECT id, parent_id, position
		FROM objects
		WHERE module_id = ?
		ORDER BY position ASC, id COLLATE BINARY ASC
	`, moduleID)
	if err != nil {
		return nil, fmt.Errorf("query hierarchy: %w", err)
	}
	defer rows.Close()

	nodes := []integrity.Node{}
	for rows.Next() {
		var n integrity.Node
		var parent sql.NullString
		if err := rows.Scan(&n.ID, &parent, &n.Position); err != nil {
			return nil, fmt.Errorf("scan node: %w", err)
		}
		n.ParentID = stringPtr(parent)
		nodes = append(nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate hierarchy: %w", err)
	}
	return nodes, nil
}

// SetLevels stores derived levels, touching only rows whose level changed.
// Returns the number of rows updated.
func (c conn) SetLevels(ctx context.Context, levels map[string]string) (int, error) {
	ids := make([]string, 0, len(levels))
	for id := range levels {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	updated := 0
	for _, id := range ids {
		res, err := c.q.ExecContext(ctx,
			`UPDATE objects SET level = ? WHERE id = ? AND level <> ?`,
			levels[id], id, levels[id])
		if err != nil {
			return updated, fmt.Errorf("set level: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return updated, fmt.Errorf("set level: %w", err)
		}
		updated += int(n)
	}
	return updated, nil
}

func collectObjects(rows *sql.Rows) ([]ir.Object, error) {
	defer rows.Close()
	objects := []ir.Object{}
	for rows.Next() {
		o, err := scanObject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan object: %w", err)
		}
		objects = append(objects, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate objects: %w", err)
	}
	return objects, nil
}

func scanObject(row rowScanner) (ir.Object, error) {
	var o ir.Object
	var parent, heading, body, attrs, reviewed sql.NullString
	var class string
	if err := row.Scan(
		&o.ID, &o.ModuleID, &parent, &o.Position, &o.Level, &heading, &body,
		&attrs, &class, &o.Version, &o.ContentFingerprint, &reviewed,
	); err != nil {
		return ir.Object{}, err
	}
	o.ParentID = stringPtr(parent)
	o.Heading = stringPtr(heading)
	o.Body = stringPtr(body)
	o.Classification = ir.Classification(class)
	o.ReviewedFingerprint = stringPtr(reviewed)

	a, err := unmarshalAttributes(attrs)
	if err != nil {
		return ir.Object{}, err
	}
	o.Attributes = a
	return o, nil
}

func requireAffected(res sql.Result, what, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ir.NotFound("%s %s not found", what, id)
	}
	return nil
}
