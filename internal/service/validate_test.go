package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/req1/internal/ir"
)

func issuesByRule(issues []ir.Issue) map[string][]ir.Issue {
	out := make(map[string][]ir.Issue)
	for _, is := range issues {
		out[is.Rule] = append(out[is.Rule], is)
	}
	return out
}

func TestValidateModule(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	m := createModule(t, svc, ModuleInput{})
	other := createModule(t, svc, ModuleInput{Name: "Other"})

	a := createObject(t, svc, m.ID, nil, "Complete")
	_, err := svc.UpdateObject(ctx, a.ID, UpdateObjectInput{Reviewed: boolPtr(true)})
	require.NoError(t, err)

	bare, err := svc.CreateObject(ctx, CreateObjectInput{ModuleID: m.ID})
	require.NoError(t, err)
	section, err := svc.CreateObject(ctx, CreateObjectInput{ModuleID: m.ID, Classification: "heading"})
	require.NoError(t, err)

	ext := createObject(t, svc, other.ID, nil, "External")
	l := createLink(t, svc, a.ID, ext.ID)
	_, err = svc.UpdateObject(ctx, ext.ID, UpdateObjectInput{Body: strPtr("moved on")})
	require.NoError(t, err)

	createScript(t, svc, m.ID, "needs-owner", ir.ScriptTrigger, ir.HookValidate, `
var a = context.object.attributes;
if (context.object.classification === "normative" && (a === null || !a.owner)) {
  req1.reject("owner missing");
}`)
	createScript(t, svc, m.ID, "crash", ir.ScriptTrigger, ir.HookValidate,
		`if (context.object.id === "`+bare.Object.ID+`") { null.boom; }`)

	report, err := svc.ValidateModule(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, m.ID, report.ModuleID)
	assert.Equal(t, 3, report.ObjectCount)
	assert.Equal(t, 1, report.LinkCount)

	rules := issuesByRule(report.Issues)

	require.Len(t, rules["missing_heading"], 1, "heading objects need no heading")
	assert.Equal(t, bare.Object.ID, rules["missing_heading"][0].ObjectID)
	assert.Equal(t, "[2] object has no heading", rules["missing_heading"][0].Message)

	require.Len(t, rules["missing_body"], 1)
	assert.Equal(t, "[2] (no heading): normative object has no body", rules["missing_body"][0].Message)

	require.Len(t, rules["unreviewed"], 2)
	for _, is := range rules["unreviewed"] {
		assert.NotEqual(t, a.ID, is.ObjectID)
		assert.Equal(t, ir.SeverityInfo, is.Severity)
	}

	require.Len(t, rules["suspect_link"], 1)
	assert.Equal(t, l.ID, rules["suspect_link"][0].LinkID)
	require.Len(t, rules["dangling_link"], 1, "the external endpoint is outside the module")
	assert.Equal(t, "link target "+ext.ID+" not found in module", rules["dangling_link"][0].Message)

	owner := rules["script:needs-owner"]
	require.Len(t, owner, 2)
	assert.Equal(t, "[1] Complete: owner missing", owner[0].Message)
	assert.Equal(t, "[2] (no heading): owner missing", owner[1].Message)

	crash := rules["script:crash"]
	require.Len(t, crash, 1)
	assert.Equal(t, ir.SeverityError, crash[0].Severity)
	assert.Contains(t, crash[0].Message, "[2] script 'crash' error: ")

	assert.Empty(t, rules["orphan_object"])
	assert.Equal(t, "3", section.Object.Level)
	assert.Equal(t, 4, report.Errors())
}

func TestValidateModule_RequiredAttributes(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	m := createModule(t, svc, ModuleInput{})
	a := createObject(t, svc, m.ID, nil, "Legacy")

	// Requirements added after the fact show up in the report.
	_, err := svc.Store().DB().ExecContext(ctx,
		`UPDATE modules SET required_attributes = '["owner"]' WHERE id = ?`, m.ID)
	require.NoError(t, err)

	report, err := svc.ValidateModule(ctx, m.ID)
	require.NoError(t, err)
	rules := issuesByRule(report.Issues)
	require.Len(t, rules["missing_required_attribute"], 1)
	assert.Equal(t, a.ID, rules["missing_required_attribute"][0].ObjectID)
	assert.Equal(t, "[1] Legacy: missing required attribute 'owner'", rules["missing_required_attribute"][0].Message)

	_, err = svc.ValidateModule(ctx, "missing")
	assert.True(t, ir.IsNotFound(err))
}

func TestValidateModule_StaleLink(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	m := createModule(t, svc, ModuleInput{})
	a := createObject(t, svc, m.ID, nil, "A")
	b := createObject(t, svc, m.ID, nil, "B")
	l := createLink(t, svc, a.ID, b.ID)

	report, err := svc.ValidateModule(ctx, m.ID)
	require.NoError(t, err)
	assert.Empty(t, issuesByRule(report.Issues)["stale_link"])

	// A clean link whose baseline no longer matches its source.
	_, err = svc.Store().DB().ExecContext(ctx,
		`UPDATE links SET source_fingerprint = 'outdated' WHERE id = ?`, l.ID)
	require.NoError(t, err)

	report, err = svc.ValidateModule(ctx, m.ID)
	require.NoError(t, err)
	stale := issuesByRule(report.Issues)["stale_link"]
	require.Len(t, stale, 1)
	assert.Equal(t, l.ID, stale[0].LinkID)
	assert.Equal(t, ir.SeverityError, stale[0].Severity)
}
