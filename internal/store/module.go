package store

import (
	"context"
	"fmt"

	"github.com/roach88/req1/internal/ir"
)

const moduleColumns = `id, name, prefix, default_classification, required_attributes`

// InsertModule inserts a module. A duplicate name is a CONFLICT.
func (c conn) InsertModule(ctx context.Context, m ir.Module) error {
	required, err := marshalStringList(m.RequiredAttributes)
	if err != nil {
		return fmt.Errorf("insert module: %w", err)
	}
	_, err = c.q.ExecContext(ctx, `
		INSERT INTO modules (`+moduleColumns+`)
		VALUES (?, ?, ?, ?, ?)
	`, m.ID, m.Name, m.Prefix, string(m.DefaultClassification), required)
	if err != nil {
		return mapWriteError("insert module", err)
	}
	return nil
}

// GetModule retrieves a module by id.
func (c conn) GetModule(ctx context.Context, id string) (ir.Module, error) {
	row := c.q.QueryRowContext(ctx, `SELECT `+moduleColumns+` FROM modules WHERE id = ?`, id)
	m, err := scanModule(row)
	if err != nil {
		return ir.Module{}, mapReadError("module", id, err)
	}
	return m, nil
}

// ModuleByName retrieves a module by its unique name.
func (c conn) ModuleByName(ctx context.Context, name string) (ir.Module, error) {
	row := c.q.QueryRowContext(ctx, `SELECT `+moduleColumns+` FROM modules WHERE name = ?`, name)
	m, err := scanModule(row)
	if err != nil {
		return ir.Module{}, mapReadError("module", name, err)
	}
	return m, nil
}

// ListModules returns every module ordered by name.
// Returns an empty slice (not nil) when there are none.
func (c conn) ListModules(ctx context.Context) ([]ir.Module, error) {
	rows, err := c.q.QueryContext(ctx, `
		SELECT `+moduleColumns+`
		FROM modules
		ORDER BY name ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query modules: %w", err)
	}
	defer rows.Close()

	modules := []ir.Module{}
	for rows.Next() {
		m, err := scanModule(rows)
		if err != nil {
			return nil, fmt.Errorf("scan module: %w", err)
		}
		modules = append(modules, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate modules: %w", err)
	}
	return modules, nil
}

func scanModule(row rowScanner) (ir.Module, error) {
	var m ir.Module
	var class, required string
	if err := row.Scan(&m.ID, &m.Name, &m.Prefix, &class, &required); err != nil {
		return ir.Module{}, err
	}
	m.DefaultClassification = ir.Classification(class)
	list, err := unmarshalStringList(required)
	if err != nil {
		return ir.Module{}, err
	}
	m.RequiredAttributes = list
	return m, nil
}
