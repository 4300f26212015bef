package service

import (
	"context"
	"strings"

	"github.com/roach88/req1/internal/ir"
)

// ModuleInput describes a new module.
type ModuleInput struct {
	Name                  string   `json:"name" yaml:"name"`
	Prefix                string   `json:"prefix,omitempty" yaml:"prefix"`
	DefaultClassification string   `json:"default_classification,omitempty" yaml:"default_classification"`
	RequiredAttributes    []string `json:"required_attributes,omitempty" yaml:"required_attributes"`
}

// CreateModule creates a module. The default classification falls back
// to normative.
func (s *Service) CreateModule(ctx context.Context, in ModuleInput) (ir.Module, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return ir.Module{}, ir.BadRequest("module name is required")
	}
	class := ir.ClassNormative
	if in.DefaultClassification != "" {
		c, err := ir.ParseClassification(in.DefaultClassification)
		if err != nil {
			return ir.Module{}, ir.BadRequest("%v", err)
		}
		class = c
	}

	required := []string{}
	seen := make(map[string]bool)
	for _, k := range in.RequiredAttributes {
		if k == "" {
			return ir.Module{}, ir.BadRequest("required attribute names must not be empty")
		}
		if !seen[k] {
			seen[k] = true
			required = append(required, k)
		}
	}

	m := ir.Module{
		ID:                    s.ids.Generate(),
		Name:                  name,
		Prefix:                in.Prefix,
		DefaultClassification: class,
		RequiredAttributes:    required,
	}
	if err := s.store.InsertModule(ctx, m); err != nil {
		return ir.Module{}, err
	}
	s.logger.Info("module created", "module", m.ID, "name", m.Name)
	return m, nil
}

// GetModule returns a module by id.
func (s *Service) GetModule(ctx context.Context, id string) (ir.Module, error) {
	return s.store.GetModule(ctx, id)
}

// ModuleByName returns a module by name.
func (s *Service) ModuleByName(ctx context.Context, name string) (ir.Module, error) {
	return s.store.ModuleByName(ctx, name)
}

// ListModules returns every module ordered by name.
func (s *Service) ListModules(ctx context.Context) ([]ir.Module, error) {
	return s.store.ListModules(ctx)
}

// missingRequired returns the first required attribute that is absent or
// null in attrs.
func missingRequired(m ir.Module, attrs ir.IRObject) (string, bool) {
	for _, k := range m.RequiredAttributes {
		if !hasValue(attrs, k) {
			return k, true
		}
	}
	return "", false
}

func hasValue(attrs ir.IRObject, key string) bool {
	v, ok := attrs[key]
	if !ok || v == nil {
		return false
	}
	_, isNull := v.(ir.IRNull)
	return !isNull
}
