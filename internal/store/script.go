package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/req1/internal/ir"
)

const scriptColumns = `id, module_id, name, type, hook_point, source, enabled, seq`

// InsertScript inserts a script. A Seq of 0 appends it after the module's
// existing scripts. Returns the stored seq.
func (c conn) InsertScript(ctx context.Context, s ir.Script) (int64, error) {
	seq := s.Seq
	if seq == 0 {
		if err := c.q.QueryRowContext(ctx,
			`SELECT COALESCE(MAX(seq), 0) + 1 FROM scripts WHERE module_id = ?`, s.ModuleID,
		).Scan(&seq); err != nil {
			return 0, fmt.Errorf("next script seq: %w", err)
		}
	}
	_, err := c.q.ExecContext(ctx, `
		INSERT INTO scripts (`+scriptColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, s.ID, s.ModuleID, s.Name, string(s.Type), hookValue(s.Hook), s.Source, boolToInt(s.Enabled), seq)
	if err != nil {
		return 0, mapWriteError("insert script", err)
	}
	return seq, nil
}

// UpdateScript overwrites name, type, hook, source and enabled.
// Declaration order (seq) is kept.
func (c conn) UpdateScript(ctx context.Context, s ir.Script) error {
	res, err := c.q.ExecContext(ctx, `
		UPDATE scripts
		SET name = ?, type = ?, hook_point = ?, source = ?, enabled = ?
		WHERE id = ?
	`, s.Name, string(s.Type), hookValue(s.Hook), s.Source, boolToInt(s.Enabled), s.ID)
	if err != nil {
		return mapWriteError("update script", err)
	}
	return requireAffected(res, "script", s.ID)
}

// DeleteScript removes a script.
func (c conn) DeleteScript(ctx context.Context, id string) error {
	res, err := c.q.ExecContext(ctx, `DELETE FROM scripts WHERE id = ?`, id)
	if err != nil {
		return mapWriteError("delete script", err)
	}
	return requireAffected(res, "script", id)
}

// GetScript retrieves a script by id.
func (c conn) GetScript(ctx context.Context, id string) (ir.Script, error) {
	row := c.q.QueryRowContext(ctx, `SELECT `+scriptColumns+` FROM scripts WHERE id = ?`, id)
	s, err := scanScript(row)
	if err != nil {
		return ir.Script{}, mapReadError("script", id, err)
	}
	return s, nil
}

// ScriptByName retrieves a script by its name within a module.
func (c conn) ScriptByName(ctx context.Context, moduleID, name string) (ir.Script, error) {
	row := c.q.QueryRowContext(ctx,
		`SELECT `+scriptColumns+` FROM scripts WHERE module_id = ? AND name = ?`, moduleID, name)
	s, err := scanScript(row)
	if err != nil {
		return ir.Script{}, mapReadError("script", name, err)
	}
	return s, nil
}

// ListScripts returns every script of a module in declaration order.
func (c conn) ListScripts(ctx context.Context, moduleID string) ([]ir.Script, error) {
	rows, err := c.q.QueryContext(ctx, `
		SELECT `+scriptColumns+`
		FROM scripts
		WHERE module_id = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, moduleID)
	if err != nil {
		return nil, fmt.Errorf("query scripts: %w", err)
	}
	return collectScripts(rows)
}

// EnabledScripts returns the enabled scripts of one type in declaration
// order. For triggers only scripts declared for hook are returned; hook is
// ignored for other types.
func (c conn) EnabledScripts(ctx context.Context, moduleID string, typ ir.ScriptType, hook ir.HookPoint) ([]ir.Script, error) {
	query := `
		SELECT ` + scriptColumns + `
		FROM scripts
		WHERE module_id = ? AND type = ? AND enabled = 1`
	args := []any{moduleID, string(typ)}
	if typ == ir.ScriptTrigger {
		query += ` AND hook_point = ?`
		args = append(args, string(hook))
	}
	query += ` ORDER BY seq ASC, id COLLATE BINARY ASC`

	rows, err := c.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query enabled scripts: %w", err)
	}
	return collectScripts(rows)
}

func collectScripts(rows *sql.Rows) ([]ir.Script, error) {
	defer rows.Close()
	scripts := []ir.Script{}
	for rows.Next() {
		s, err := scanScript(rows)
		if err != nil {
			return nil, fmt.Errorf("scan script: %w", err)
		}
		scripts = append(scripts, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate scripts: %w", err)
	}
	return scripts, nil
}

func scanScript(row rowScanner) (ir.Script, error) {
	var s ir.Script
	var typ string
	var hook sql.NullString
	var enabled int
	if err := row.Scan(&s.ID, &s.ModuleID, &s.Name, &typ, &hook, &s.Source, &enabled, &s.Seq); err != nil {
		return ir.Script{}, err
	}
	s.Type = ir.ScriptType(typ)
	s.Hook = ir.HookPoint(hook.String)
	s.Enabled = enabled != 0
	return s, nil
}

func hookValue(h ir.HookPoint) sql.NullString {
	if h == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: string(h), Valid: true}
}
