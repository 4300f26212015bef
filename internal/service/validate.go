package service

import (
	"context"
	"fmt"

	"github.com/roach88/req1/internal/engine"
	"github.com/roach88/req1/internal/integrity"
	"github.com/roach88/req1/internal/ir"
)

// Report is the outcome of a module validation.
type Report struct {
	ModuleID    string     `json:"module_id"`
	Issues      []ir.Issue `json:"issues"`
	ObjectCount int        `json:"object_count"`
	LinkCount   int        `json:"link_count"`
}

// Errors counts the issues of error severity.
func (r Report) Errors() int {
	n := 0
	for _, is := range r.Issues {
		if is.Severity == ir.SeverityError {
			n++
		}
	}
	return n
}

// ValidateModule checks a module against the built-in rules and then
// runs its validate triggers over every object.
func (s *Service) ValidateModule(ctx context.Context, moduleID string) (Report, error) {
	mod, err := s.store.GetModule(ctx, moduleID)
	if err != nil {
		return Report{}, err
	}
	objects, err := s.store.ModuleObjects(ctx, moduleID)
	if err != nil {
		return Report{}, err
	}
	links, err := s.store.ModuleLinks(ctx, moduleID)
	if err != nil {
		return Report{}, err
	}

	ids := make(map[string]bool, len(objects))
	fps := make(map[string]string, len(objects))
	for _, o := range objects {
		ids[o.ID] = true
		fps[o.ID] = o.ContentFingerprint
	}

	issues := checkObjects(objects, ids)
	issues = append(issues, checkLinks(links, fps)...)
	issues = append(issues, checkRequired(mod, objects)...)

	swept, err := s.engine.Sweep(ctx, s.store, moduleID)
	if err != nil {
		return Report{}, err
	}
	issues = append(issues, swept...)

	s.logger.Debug("module validated", "module", moduleID, "issues", len(issues))
	return Report{
		ModuleID:    moduleID,
		Issues:      issues,
		ObjectCount: len(objects),
		LinkCount:   len(links),
	}, nil
}

func checkObjects(objects []ir.Object, ids map[string]bool) []ir.Issue {
	issues := []ir.Issue{}
	for _, o := range objects {
		heading := engine.HeadingOf(o.Heading)
		if o.Classification != ir.ClassHeading && o.Heading == nil {
			issues = append(issues, ir.Issue{
				Rule:     "missing_heading",
				Severity: ir.SeverityWarning,
				ObjectID: o.ID,
				Message:  fmt.Sprintf("[%s] object has no heading", o.Level),
			})
		}
		if o.Classification == ir.ClassNormative && o.Body == nil {
			issues = append(issues, ir.Issue{
				Rule:     "missing_body",
				Severity: ir.SeverityWarning,
				ObjectID: o.ID,
				Message:  fmt.Sprintf("[%s] %s: normative object has no body", o.Level, heading),
			})
		}
		if o.NeedsReview() {
			issues = append(issues, ir.Issue{
				Rule:     "unreviewed",
				Severity: ir.SeverityInfo,
				ObjectID: o.ID,
				Message:  fmt.Sprintf("[%s] %s: needs review", o.Level, heading),
			})
		}
		if o.ParentID != nil && !ids[*o.ParentID] {
			issues = append(issues, ir.Issue{
				Rule:     "orphan_object",
				Severity: ir.SeverityError,
				ObjectID: o.ID,
				Message:  fmt.Sprintf("[%s] %s: parent %s not found", o.Level, heading, *o.ParentID),
			})
		}
	}
	return issues
}

// checkLinks reports suspect links, links whose endpoint lies outside
// the module and clean links whose stored fingerprints are stale.
func checkLinks(links []ir.Link, fps map[string]string) []ir.Issue {
	issues := []ir.Issue{}
	for _, l := range links {
		srcFP, srcOK := fps[l.SourceID]
		tgtFP, tgtOK := fps[l.TargetID]
		if l.Suspect {
			issues = append(issues, ir.Issue{
				Rule:     "suspect_link",
				Severity: ir.SeverityWarning,
				LinkID:   l.ID,
				Message:  fmt.Sprintf("link %s -> %s is suspect", l.SourceID, l.TargetID),
			})
		}
		if srcOK && tgtOK && !integrity.Consistent(l, srcFP, tgtFP) {
			issues = append(issues, ir.Issue{
				Rule:     "stale_link",
				Severity: ir.SeverityError,
				LinkID:   l.ID,
				Message:  fmt.Sprintf("link %s -> %s is not suspect but an endpoint changed", l.SourceID, l.TargetID),
			})
		}
		if !srcOK {
			issues = append(issues, ir.Issue{
				Rule:     "dangling_link",
				Severity: ir.SeverityError,
				LinkID:   l.ID,
				Message:  fmt.Sprintf("link source %s not found in module", l.SourceID),
			})
		}
		if !tgtOK {
			issues = append(issues, ir.Issue{
				Rule:     "dangling_link",
				Severity: ir.SeverityError,
				LinkID:   l.ID,
				Message:  fmt.Sprintf("link target %s not found in module", l.TargetID),
			})
		}
	}
	return issues
}

func checkRequired(mod ir.Module, objects []ir.Object) []ir.Issue {
	issues := []ir.Issue{}
	for _, o := range objects {
		for _, k := range mod.RequiredAttributes {
			if hasValue(o.Attributes, k) {
				continue
			}
			issues = append(issues, ir.Issue{
				Rule:     "missing_required_attribute",
				Severity: ir.SeverityError,
				ObjectID: o.ID,
				Message:  fmt.Sprintf("[%s] %s: missing required attribute '%s'", o.Level, engine.HeadingOf(o.Heading), k),
			})
		}
	}
	return issues
}
