package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/req1/internal/ir"
)

// AppendHistory appends one audit row and returns its id.
// History is append-only: there is no update or delete.
func (c conn) AppendHistory(ctx context.Context, h ir.HistoryEntry) (int64, error) {
	attrs, err := marshalAttributes(h.Attributes)
	if err != nil {
		return 0, fmt.Errorf("append history: %w", err)
	}
	res, err := c.q.ExecContext(ctx, `
		INSERT INTO object_history
		(object_id, module_id, version, change_type, heading, body, attributes, fingerprint)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		h.ObjectID, h.ModuleID, h.Version, string(h.ChangeType),
		nullString(h.Heading), nullString(h.Body), attrs, h.Fingerprint,
	)
	if err != nil {
		return 0, mapWriteError("append history", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("append history: %w", err)
	}
	return id, nil
}

// History returns every row recorded for an object, oldest first.
// Rows survive deletion of the object.
func (c conn) History(ctx context.Context, objectID string) ([]ir.HistoryEntry, error) {
	rows, err := c.q.QueryContext(ctx, `
		SELECT id, object_id, module_id, version, change_type, heading, body, attributes, fingerprint
		FROM object_history
		WHERE object_id = ?
		ORDER BY id ASC
	`, objectID)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	entries := []ir.HistoryEntry{}
	for rows.Next() {
		var h ir.HistoryEntry
		var change string
		var heading, body, attrs sql.NullString
		if err := rows.Scan(
			&h.ID, &h.ObjectID, &h.ModuleID, &h.Version, &change,
			&heading, &body, &attrs, &h.Fingerprint,
		); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		h.ChangeType = ir.ChangeType(change)
		h.Heading = stringPtr(heading)
		h.Body = stringPtr(body)
		a, err := unmarshalAttributes(attrs)
		if err != nil {
			return nil, err
		}
		h.Attributes = a
		entries = append(entries, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}
	return entries, nil
}
