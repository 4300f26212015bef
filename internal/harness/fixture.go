package harness

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/req1/internal/ir"
	"github.com/roach88/req1/internal/service"
)

// Fixture describes a module and its content.
type Fixture struct {
	Module    FixtureModule     `yaml:"module"`
	LinkTypes []FixtureLinkType `yaml:"link_types,omitempty"`
	Objects   []FixtureObject   `yaml:"objects,omitempty"`
	Links     []FixtureLink     `yaml:"links,omitempty"`
	Scripts   []FixtureScript   `yaml:"scripts,omitempty"`
}

// FixtureModule describes the module to create.
type FixtureModule struct {
	Name                  string   `yaml:"name"`
	Prefix                string   `yaml:"prefix,omitempty"`
	DefaultClassification string   `yaml:"default_classification,omitempty"`
	RequiredAttributes    []string `yaml:"required_attributes,omitempty"`
}

// FixtureLinkType describes a link type. Existing types are reused.
type FixtureLinkType struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
}

// FixtureObject describes one object and its subtree. Siblings are stored
// in listing order.
type FixtureObject struct {
	Key            string          `yaml:"key,omitempty"`
	Heading        *string         `yaml:"heading,omitempty"`
	Body           *string         `yaml:"body,omitempty"`
	Classification string          `yaml:"classification,omitempty"`
	Attributes     map[string]any  `yaml:"attributes,omitempty"`
	Reviewed       bool            `yaml:"reviewed,omitempty"`
	Children       []FixtureObject `yaml:"children,omitempty"`
}

// FixtureLink describes a link between two keyed objects.
type FixtureLink struct {
	Key        string         `yaml:"key,omitempty"`
	Source     string         `yaml:"source"`
	Target     string         `yaml:"target"`
	Type       string         `yaml:"type"`
	Attributes map[string]any `yaml:"attributes,omitempty"`
}

// FixtureScript describes a script. SourceFile is resolved relative to the
// fixture file and replaces Source.
type FixtureScript struct {
	Name       string `yaml:"name"`
	Type       string `yaml:"type"`
	HookPoint  string `yaml:"hook_point,omitempty"`
	Source     string `yaml:"source,omitempty"`
	SourceFile string `yaml:"source_file,omitempty"`
	Enabled    *bool  `yaml:"enabled,omitempty"`
}

// Imported maps fixture names onto the ids the import produced.
type Imported struct {
	Module  ir.Module
	Objects map[string]string
	Links   map[string]string
	Scripts map[string]string
}

func newImported() *Imported {
	return &Imported{
		Objects: make(map[string]string),
		Links:   make(map[string]string),
		Scripts: make(map[string]string),
	}
}

// LoadFixture reads a fixture YAML file. Unknown fields are rejected and
// script source files are read relative to the fixture.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture file: %w", err)
	}

	var f Fixture
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := f.resolveSources(filepath.Dir(path)); err != nil {
		return nil, err
	}
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("invalid fixture: %w", err)
	}
	return &f, nil
}

func (f *Fixture) resolveSources(dir string) error {
	for i, s := range f.Scripts {
		if s.SourceFile == "" {
			continue
		}
		path := s.SourceFile
		if !filepath.IsAbs(path) {
			path = filepath.Join(dir, path)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("scripts[%d]: read source: %w", i, err)
		}
		f.Scripts[i].Source = string(data)
		f.Scripts[i].SourceFile = ""
	}
	return nil
}

// Validate checks names and key references.
func (f *Fixture) Validate() error {
	if f.Module.Name == "" {
		return fmt.Errorf("module.name is required")
	}

	keys := make(map[string]bool)
	var walk func(path string, objs []FixtureObject) error
	walk = func(path string, objs []FixtureObject) error {
		for i, o := range objs {
			at := fmt.Sprintf("%s[%d]", path, i)
			if o.Key != "" {
				if keys[o.Key] {
					return fmt.Errorf("%s: duplicate key %q", at, o.Key)
				}
				keys[o.Key] = true
			}
			if err := walk(at+".children", o.Children); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk("objects", f.Objects); err != nil {
		return err
	}

	linkKeys := make(map[string]bool)
	for i, l := range f.Links {
		if !keys[l.Source] {
			return fmt.Errorf("links[%d]: unknown source %q", i, l.Source)
		}
		if !keys[l.Target] {
			return fmt.Errorf("links[%d]: unknown target %q", i, l.Target)
		}
		if l.Type == "" {
			return fmt.Errorf("links[%d]: type is required", i)
		}
		if l.Key != "" {
			if linkKeys[l.Key] {
				return fmt.Errorf("links[%d]: duplicate key %q", i, l.Key)
			}
			linkKeys[l.Key] = true
		}
	}

	for i, s := range f.Scripts {
		if s.Name == "" {
			return fmt.Errorf("scripts[%d]: name is required", i)
		}
		if s.Source == "" && s.SourceFile == "" {
			return fmt.Errorf("scripts[%d]: source or source_file is required", i)
		}
	}
	return nil
}

// Import creates the fixture's module, link types, objects, links and
// scripts through the service, in that order.
func (f *Fixture) Import(ctx context.Context, svc *service.Service) (*Imported, error) {
	out := newImported()

	mod, err := svc.CreateModule(ctx, service.ModuleInput{
		Name:                  f.Module.Name,
		Prefix:                f.Module.Prefix,
		DefaultClassification: f.Module.DefaultClassification,
		RequiredAttributes:    f.Module.RequiredAttributes,
	})
	if err != nil {
		return nil, fmt.Errorf("create module: %w", err)
	}
	out.Module = mod

	types := make(map[string]string)
	for _, lt := range f.LinkTypes {
		id, err := ensureLinkType(ctx, svc, lt.Name, lt.Description)
		if err != nil {
			return nil, err
		}
		types[lt.Name] = id
	}

	if err := f.importObjects(ctx, svc, out, nil, f.Objects); err != nil {
		return nil, err
	}

	for i, l := range f.Links {
		typeID, ok := types[l.Type]
		if !ok {
			if typeID, err = ensureLinkType(ctx, svc, l.Type, ""); err != nil {
				return nil, err
			}
			types[l.Type] = typeID
		}
		attrs, err := toAttributes(l.Attributes)
		if err != nil {
			return nil, fmt.Errorf("links[%d]: %w", i, err)
		}
		link, err := svc.CreateLink(ctx, service.LinkInput{
			SourceID:   out.Objects[l.Source],
			TargetID:   out.Objects[l.Target],
			LinkTypeID: typeID,
			Attributes: attrs,
		})
		if err != nil {
			return nil, fmt.Errorf("links[%d]: %w", i, err)
		}
		if l.Key != "" {
			out.Links[l.Key] = link.ID
		}
	}

	for i, s := range f.Scripts {
		sc, err := svc.CreateScript(ctx, service.ScriptInput{
			ModuleID: mod.ID,
			Name:     s.Name,
			Type:     ir.ScriptType(s.Type),
			Hook:     ir.HookPoint(s.HookPoint),
			Source:   s.Source,
			Enabled:  s.Enabled,
		})
		if err != nil {
			return nil, fmt.Errorf("scripts[%d]: %w", i, err)
		}
		out.Scripts[sc.Name] = sc.ID
	}
	return out, nil
}

func (f *Fixture) importObjects(ctx context.Context, svc *service.Service, out *Imported, parent *string, objs []FixtureObject) error {
	for _, o := range objs {
		attrs, err := toAttributes(o.Attributes)
		if err != nil {
			return fmt.Errorf("object %q: %w", o.Key, err)
		}
		res, err := svc.CreateObject(ctx, service.CreateObjectInput{
			ModuleID:       out.Module.ID,
			ParentID:       parent,
			Heading:        o.Heading,
			Body:           o.Body,
			Attributes:     attrs,
			Classification: o.Classification,
		})
		if err != nil {
			return fmt.Errorf("object %q: %w", o.Key, err)
		}
		id := res.Object.ID
		if o.Key != "" {
			out.Objects[o.Key] = id
		}
		if o.Reviewed {
			if _, err := svc.UpdateObject(ctx, id, service.UpdateObjectInput{Reviewed: boolPtr(true)}); err != nil {
				return fmt.Errorf("object %q: review: %w", o.Key, err)
			}
		}
		if err := f.importObjects(ctx, svc, out, &id, o.Children); err != nil {
			return err
		}
	}
	return nil
}

func ensureLinkType(ctx context.Context, svc *service.Service, name, description string) (string, error) {
	lt, err := svc.LinkTypeByName(ctx, name)
	if err == nil {
		return lt.ID, nil
	}
	if !ir.IsNotFound(err) {
		return "", err
	}
	lt, err = svc.CreateLinkType(ctx, name, description)
	if err != nil {
		return "", fmt.Errorf("create link type %q: %w", name, err)
	}
	return lt.ID, nil
}

// toAttributes converts YAML attribute maps. nil stays nil (no attributes).
func toAttributes(m map[string]any) (ir.IRObject, error) {
	if m == nil {
		return nil, nil
	}
	v, err := ir.FromAny(m)
	if err != nil {
		return nil, fmt.Errorf("attributes: %w", err)
	}
	return v.(ir.IRObject), nil
}

func boolPtr(b bool) *bool { return &b }
