package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario is a fixture, a sequence of content operations and the
// assertions that must hold afterwards.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Backend selects the script language: "javascript" (default) or "go".
	Backend string `yaml:"backend,omitempty"`

	Fixture Fixture `yaml:"fixture"`

	Steps []Step `yaml:"steps"`

	Assertions []Assertion `yaml:"assertions"`
}

// Step is one content operation. Which fields apply depends on Op.
type Step struct {
	Op string `yaml:"op"`

	// Key binds the object or link a create or link step produces.
	Key string `yaml:"key,omitempty"`

	Object string `yaml:"object,omitempty"`
	Link   string `yaml:"link,omitempty"`
	Script string `yaml:"script,omitempty"`

	Parent     string `yaml:"parent,omitempty"`
	MoveToRoot bool   `yaml:"move_to_root,omitempty"`
	Position   *int64 `yaml:"position,omitempty"`

	Heading        *string        `yaml:"heading,omitempty"`
	Body           *string        `yaml:"body,omitempty"`
	Classification string         `yaml:"classification,omitempty"`
	Attributes     map[string]any `yaml:"attributes,omitempty"`
	Reviewed       *bool          `yaml:"reviewed,omitempty"`

	Source string `yaml:"source,omitempty"`
	Target string `yaml:"target,omitempty"`
	Type   string `yaml:"type,omitempty"`

	Apply bool `yaml:"apply,omitempty"`

	// ExpectError is the error code the step must fail with.
	ExpectError string `yaml:"expect_error,omitempty"`
}

// Assertion checks the state after all steps ran.
type Assertion struct {
	Type string `yaml:"type"`

	Object string `yaml:"object,omitempty"`
	Link   string `yaml:"link,omitempty"`
	Key    string `yaml:"key,omitempty"`
	Rule   string `yaml:"rule,omitempty"`

	// Expect is the expected value; its type depends on Type.
	Expect any `yaml:"expect,omitempty"`

	// Count is the expected number of issues (issue).
	Count *int `yaml:"count,omitempty"`
}

// Step operations.
const (
	OpCreate   = "create"
	OpUpdate   = "update"
	OpReview   = "review"
	OpDelete   = "delete"
	OpLink     = "link"
	OpResolve  = "resolve"
	OpAction   = "action"
	OpValidate = "validate"
)

// Assertion types.
const (
	AssertLevel       = "level"
	AssertVersion     = "version"
	AssertNeedsReview = "needs_review"
	AssertAttribute   = "attribute"
	AssertSuspect     = "suspect"
	AssertHistory     = "history"
	AssertIssue       = "issue"
	AssertDeleted     = "deleted"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data, filepath.Dir(path))
}

// ParseScenario parses scenario YAML. Script source files resolve against
// baseDir.
func ParseScenario(data []byte, baseDir string) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := scenario.Fixture.resolveSources(baseDir); err != nil {
		return nil, err
	}
	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	switch s.Backend {
	case "", "javascript", "go":
	default:
		return fmt.Errorf("unknown backend %q", s.Backend)
	}
	if err := s.Fixture.Validate(); err != nil {
		return fmt.Errorf("fixture: %w", err)
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}
	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(index int, st *Step) error {
	need := func(field, value string) error {
		if value == "" {
			return fmt.Errorf("steps[%d]: %s is required for %s", index, field, st.Op)
		}
		return nil
	}

	switch st.Op {
	case OpCreate:
		return need("key", st.Key)
	case OpUpdate, OpReview, OpDelete:
		return need("object", st.Object)
	case OpLink:
		for _, f := range [][2]string{{"key", st.Key}, {"source", st.Source}, {"target", st.Target}, {"type", st.Type}} {
			if err := need(f[0], f[1]); err != nil {
				return err
			}
		}
	case OpResolve:
		return need("link", st.Link)
	case OpAction:
		return need("script", st.Script)
	case OpValidate:
	case "":
		return fmt.Errorf("steps[%d]: op is required", index)
	default:
		return fmt.Errorf("steps[%d]: unknown op %q", index, st.Op)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	need := func(field, value string) error {
		if value == "" {
			return fmt.Errorf("assertions[%d]: %s is required for %s", index, field, a.Type)
		}
		return nil
	}

	switch a.Type {
	case AssertLevel, AssertVersion, AssertNeedsReview, AssertHistory:
		if err := need("object", a.Object); err != nil {
			return err
		}
		if a.Expect == nil {
			return fmt.Errorf("assertions[%d]: expect is required for %s", index, a.Type)
		}
	case AssertAttribute:
		if err := need("object", a.Object); err != nil {
			return err
		}
		return need("key", a.Key)
	case AssertSuspect:
		if err := need("link", a.Link); err != nil {
			return err
		}
		if a.Expect == nil {
			return fmt.Errorf("assertions[%d]: expect is required for %s", index, a.Type)
		}
	case AssertIssue:
		if err := need("rule", a.Rule); err != nil {
			return err
		}
		if a.Count == nil {
			return fmt.Errorf("assertions[%d]: count is required for issue", index)
		}
	case AssertDeleted:
		return need("object", a.Object)
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
