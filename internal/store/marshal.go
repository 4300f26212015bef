package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/roach88/req1/internal/ir"
)

// marshalAttributes converts an attribute map to canonical JSON TEXT.
// A nil map is stored as NULL.
func marshalAttributes(attrs ir.IRObject) (sql.NullString, error) {
	if attrs == nil {
		return sql.NullString{}, nil
	}
	text, err := ir.CanonicalString(attrs)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("marshal attributes: %w", err)
	}
	return sql.NullString{String: text, Valid: true}, nil
}

// unmarshalAttributes parses stored attribute TEXT. Uses ir.ParseJSON so
// integers above 2^53 keep full precision.
func unmarshalAttributes(data sql.NullString) (ir.IRObject, error) {
	if !data.Valid {
		return nil, nil
	}
	v, err := ir.ParseJSON([]byte(data.String))
	if err != nil {
		return nil, fmt.Errorf("unmarshal attributes: %w", err)
	}
	obj, ok := v.(ir.IRObject)
	if !ok {
		return nil, fmt.Errorf("unmarshal attributes: expected object, got %T", v)
	}
	return obj, nil
}

func marshalStringList(list []string) (string, error) {
	if list == nil {
		list = []string{}
	}
	data, err := json.Marshal(list)
	if err != nil {
		return "", fmt.Errorf("marshal list: %w", err)
	}
	return string(data), nil
}

func unmarshalStringList(data string) ([]string, error) {
	list := []string{}
	if data == "" {
		return list, nil
	}
	if err := json.Unmarshal([]byte(data), &list); err != nil {
		return nil, fmt.Errorf("unmarshal list: %w", err)
	}
	return list, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
