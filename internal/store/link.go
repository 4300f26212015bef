package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/roach88/req1/internal/ir"
)

const linkColumns = `l.id, l.source_id, l.target_id, l.link_type_id, l.attributes,
	l.suspect, l.source_fingerprint, l.target_fingerprint`

// InsertLinkType inserts a link type. A duplicate name is a CONFLICT.
func (c conn) InsertLinkType(ctx context.Context, lt ir.LinkType) error {
	_, err := c.q.ExecContext(ctx,
		`INSERT INTO link_types (id, name, description) VALUES (?, ?, ?)`,
		lt.ID, lt.Name, lt.Description)
	if err != nil {
		return mapWriteError("insert link type", err)
	}
	return nil
}

// GetLinkType retrieves a link type by id.
func (c conn) GetLinkType(ctx context.Context, id string) (ir.LinkType, error) {
	var lt ir.LinkType
	err := c.q.QueryRowContext(ctx,
		`SELECT id, name, description FROM link_types WHERE id = ?`, id,
	).Scan(&lt.ID, &lt.Name, &lt.Description)
	if err != nil {
		return ir.LinkType{}, mapReadError("link type", id, err)
	}
	return lt, nil
}

// LinkTypeByName retrieves a link type by its unique name.
func (c conn) LinkTypeByName(ctx context.Context, name string) (ir.LinkType, error) {
	var lt ir.LinkType
	err := c.q.QueryRowContext(ctx,
		`SELECT id, name, description FROM link_types WHERE name = ?`, name,
	).Scan(&lt.ID, &lt.Name, &lt.Description)
	if err != nil {
		return ir.LinkType{}, mapReadError("link type", name, err)
	}
	return lt, nil
}

// ListLinkTypes returns every link type ordered by name.
func (c conn) ListLinkTypes(ctx context.Context) ([]ir.LinkType, error) {
	rows, err := c.q.QueryContext(ctx, `
		SELECT id, name, description
		FROM link_types
		ORDER BY name ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query link types: %w", err)
	}
	defer rows.Close()

	types := []ir.LinkType{}
	for rows.Next() {
		var lt ir.LinkType
		if err := rows.Scan(&lt.ID, &lt.Name, &lt.Description); err != nil {
			return nil, fmt.Errorf("scan link type: %w", err)
		}
		types = append(types, lt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate link types: %w", err)
	}
	return types, nil
}

// InsertLink inserts a link. A second link with the same source, target
// and type is a CONFLICT.
func (c conn) InsertLink(ctx context.Context, l ir.Link) error {
	attrs, err := marshalAttributes(l.Attributes)
	if err != nil {
		return fmt.Errorf("insert link: %w", err)
	}
	_, err = c.q.ExecContext(ctx, `
		INSERT INTO links
		(id, source_id, target_id, link_type_id, attributes, suspect, source_fingerprint, target_fingerprint)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		l.ID, l.SourceID, l.TargetID, l.LinkTypeID, attrs,
		boolToInt(l.Suspect), l.SourceFingerprint, l.TargetFingerprint,
	)
	if err != nil {
		return mapWriteError("insert link", err)
	}
	return nil
}

// UpdateLink stores the suspect flag, fingerprints and attributes of a link.
func (c conn) UpdateLink(ctx context.Context, l ir.Link) error {
	attrs, err := marshalAttributes(l.Attributes)
	if err != nil {
		return fmt.Errorf("update link: %w", err)
	}
	res, err := c.q.ExecContext(ctx, `
		UPDATE links
		SET attributes = ?, suspect = ?, source_fingerprint = ?, target_fingerprint = ?
		WHERE id = ?
	`, attrs, boolToInt(l.Suspect), l.SourceFingerprint, l.TargetFingerprint, l.ID)
	if err != nil {
		return mapWriteError("update link", err)
	}
	return requireAffected(res, "link", l.ID)
}

// DeleteLink removes a link.
func (c conn) DeleteLink(ctx context.Context, id string) error {
	res, err := c.q.ExecContext(ctx, `DELETE FROM links WHERE id = ?`, id)
	if err != nil {
		return mapWriteError("delete link", err)
	}
	return requireAffected(res, "link", id)
}

// GetLink retrieves a link by id.
func (c conn) GetLink(ctx context.Context, id string) (ir.Link, error) {
	row := c.q.QueryRowContext(ctx, `SELECT `+linkColumns+` FROM links l WHERE l.id = ?`, id)
	l, err := scanLink(row)
	if err != nil {
		return ir.Link{}, mapReadError("link", id, err)
	}
	return l, nil
}

// LinksOfObject returns links where the object is source or target,
// ordered by id.
func (c conn) LinksOfObject(ctx context.Context, objectID string) ([]ir.Link, error) {
	rows, err := c.q.QueryContext(ctx, `
		SELECT `+linkColumns+`
		FROM links l
		WHERE l.source_id = ? OR l.target_id = ?
		ORDER BY l.id COLLATE BINARY ASC
	`, objectID, objectID)
	if err != nil {
		return nil, fmt.Errorf("query links: %w", err)
	}
	return collectLinks(rows)
}

// ModuleLinks returns links with at least one endpoint in the module,
// ordered by id.
func (c conn) ModuleLinks(ctx context.Context, moduleID string) ([]ir.Link, error) {
	rows, err := c.q.QueryContext(ctx, `
		SELECT `+linkColumns+`
		FROM links l
		JOIN objects s ON s.id = l.source_id
		JOIN objects t ON t.id = l.target_id
		WHERE s.module_id = ? OR t.module_id = ?
		ORDER BY l.id COLLATE BINARY ASC
	`, moduleID, moduleID)
	if err != nil {
		return nil, fmt.Errorf("query module links: %w", err)
	}
	return collectLinks(rows)
}

// MarkSuspect flags the given links as suspect. Returns the number of
// links that changed.
func (c conn) MarkSuspect(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	res, err := c.q.ExecContext(ctx,
		`UPDATE links SET suspect = 1 WHERE suspect = 0 AND id IN (`+placeholders+`)`, args...)
	if err != nil {
		return 0, fmt.Errorf("mark suspect: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("mark suspect: %w", err)
	}
	return int(n), nil
}

func collectLinks(rows *sql.Rows) ([]ir.Link, error) {
	defer rows.Close()
	links := []ir.Link{}
	for rows.Next() {
		l, err := scanLink(rows)
		if err != nil {
			return nil, fmt.Errorf("scan link: %w", err)
		}
		links = append(links, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate links: %w", err)
	}
	return links, nil
}

func scanLink(row rowScanner) (ir.Link, error) {
	var l ir.Link
	var attrs sql.NullString
	var suspect int
	if err := row.Scan(
		&l.ID, &l.SourceID, &l.TargetID, &l.LinkTypeID, &attrs,
		&suspect, &l.SourceFingerprint, &l.TargetFingerprint,
	); err != nil {
		return ir.Link{}, err
	}
	l.Suspect = suspect != 0
	a, err := unmarshalAttributes(attrs)
	if err != nil {
		return ir.Link{}, err
	}
	l.Attributes = a
	return l, nil
}
