package harness

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/req1/internal/ir"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Target   string // Object, link or rule the assertion names
	Expected string
	Actual   string
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s", e.Type)
	if e.Target != "" {
		fmt.Fprintf(&buf, " (%s)", e.Target)
	}
	fmt.Fprintf(&buf, "\n  Expected: %s\n  Actual: %s", e.Expected, e.Actual)
	return buf.String()
}

// EvaluateAssertions checks every assertion against the harness state and
// returns one message per failure.
func EvaluateAssertions(ctx context.Context, h *Harness, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		if err := h.assert(ctx, a); err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}

func (h *Harness) assert(ctx context.Context, a Assertion) error {
	switch a.Type {
	case AssertIssue:
		return h.assertIssue(ctx, a)
	case AssertSuspect:
		id, ok := h.names.Links[a.Link]
		if !ok {
			return fmt.Errorf("unknown link key %q", a.Link)
		}
		link, err := h.svc.GetLink(ctx, id)
		if err != nil {
			return err
		}
		return compare(a, a.Link, a.Expect, link.Suspect)
	}

	id, err := h.object(a.Object)
	if err != nil {
		return err
	}
	if a.Type == AssertHistory {
		entries, err := h.svc.History(ctx, id)
		if err != nil {
			return err
		}
		changes := make([]any, len(entries))
		for i, e := range entries {
			changes[i] = string(e.ChangeType)
		}
		return compare(a, a.Object, a.Expect, changes)
	}

	obj, err := h.svc.GetObject(ctx, id)
	if a.Type == AssertDeleted {
		if ir.IsNotFound(err) {
			return nil
		}
		if err != nil {
			return err
		}
		return &AssertionError{Type: a.Type, Target: a.Object, Expected: "object deleted", Actual: "object exists"}
	}
	if err != nil {
		return err
	}

	switch a.Type {
	case AssertLevel:
		return compare(a, a.Object, a.Expect, obj.Level)
	case AssertVersion:
		return compare(a, a.Object, a.Expect, obj.Version)
	case AssertNeedsReview:
		return compare(a, a.Object, a.Expect, obj.NeedsReview())
	case AssertAttribute:
		// A nil expectation requires the attribute to be absent.
		v, ok := obj.Attributes[a.Key]
		if !ok {
			if a.Expect == nil {
				return nil
			}
			return &AssertionError{Type: a.Type, Target: a.Object + "." + a.Key, Expected: render(a.Expect), Actual: "absent"}
		}
		return compare(a, a.Object+"."+a.Key, a.Expect, v)
	}
	return fmt.Errorf("unknown assertion type %q", a.Type)
}

// assertIssue counts validation issues with the given rule, optionally
// restricted to one object.
func (h *Harness) assertIssue(ctx context.Context, a Assertion) error {
	report, err := h.svc.ValidateModule(ctx, h.names.Module.ID)
	if err != nil {
		return err
	}
	var objectID string
	if a.Object != "" {
		if objectID, err = h.object(a.Object); err != nil {
			return err
		}
	}
	n := 0
	for _, is := range report.Issues {
		if is.Rule == a.Rule && (objectID == "" || is.ObjectID == objectID) {
			n++
		}
	}
	if n != *a.Count {
		return &AssertionError{
			Type:     a.Type,
			Target:   a.Rule,
			Expected: fmt.Sprintf("%d issue(s)", *a.Count),
			Actual:   fmt.Sprintf("%d issue(s)", n),
		}
	}
	return nil
}

// compare matches values by canonical encoding so that YAML ints equal
// stored IRInt values.
func compare(a Assertion, target string, expected, actual any) error {
	if render(expected) == render(actual) {
		return nil
	}
	return &AssertionError{Type: a.Type, Target: target, Expected: render(expected), Actual: render(actual)}
}

func render(v any) string {
	b, err := ir.MarshalCanonical(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}
