package harness

import (
	"context"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/req1/internal/ir"
)

// Snapshot is the golden representation of one scenario execution.
// Fingerprints and timestamps are left out; ids are replaced by keys
// wherever a key is known.
type Snapshot struct {
	ScenarioName string
	Result       *Result
}

// toCanonicalMap converts a snapshot to plain values for canonical JSON.
// ir.MarshalCanonical only handles IR types, maps, slices and primitives.
func (s *Snapshot) toCanonicalMap() map[string]any {
	trace := make([]any, len(s.Result.Trace))
	for i, ev := range s.Result.Trace {
		m := map[string]any{
			"seq":     ev.Seq,
			"op":      ev.Op,
			"outcome": ev.Outcome,
		}
		if ev.Target != "" {
			m["target"] = ev.Target
		}
		if ev.Detail != nil {
			m["detail"] = ev.Detail
		}
		trace[i] = m
	}

	objects := make([]any, len(s.Result.State.Objects))
	for i, o := range s.Result.State.Objects {
		m := map[string]any{
			"key":          o.Key,
			"level":        o.Level,
			"version":      o.Version,
			"needs_review": o.NeedsReview,
		}
		if o.Attributes != nil {
			m["attributes"] = o.Attributes
		}
		objects[i] = m
	}

	links := make([]any, len(s.Result.State.Links))
	for i, l := range s.Result.State.Links {
		links[i] = map[string]any{
			"key":     l.Key,
			"source":  l.Source,
			"target":  l.Target,
			"suspect": l.Suspect,
		}
	}

	return map[string]any{
		"scenario_name": s.ScenarioName,
		"trace":         trace,
		"state": map[string]any{
			"objects": objects,
			"links":   links,
		},
	}
}

// Marshal returns the snapshot as canonical JSON.
func (s *Snapshot) Marshal() ([]byte, error) {
	return ir.MarshalCanonical(s.toCanonicalMap())
}

// RunWithGolden executes a scenario and compares its trace and final state
// against testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(context.Background(), scenario)
	if err != nil {
		return nil, err
	}
	return result, AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares an existing result against its golden file.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	snap := Snapshot{ScenarioName: scenarioName, Result: result}
	data, err := snap.Marshal()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}
