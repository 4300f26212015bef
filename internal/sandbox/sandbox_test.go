package sandbox

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/req1/internal/ir"
)

const (
	moduleID = "0190f5a4-0000-7000-8000-000000000001"
	objA     = "0190f5a4-0000-7000-8000-00000000000a"
	objB     = "0190f5a4-0000-7000-8000-00000000000b"
	newObj   = "0190f5a4-0000-7000-8000-0000000000ff"
	linkAB   = "0190f5a4-0000-7000-8000-0000000000ab"
)

func strPtr(s string) *string { return &s }

func testWorld() *ir.ScriptWorld {
	return &ir.ScriptWorld{
		ModuleID:   moduleID,
		ModuleName: "System Requirements",
		Objects: []ir.ObjectProjection{
			{ID: objA, Heading: strPtr("Braking"), Level: strPtr("1"), Attributes: ir.IRObject{"asil": ir.IRString("D")}, Version: 2},
			{ID: objB, Heading: strPtr("Steering"), Level: strPtr("2"), Version: 1},
		},
		Links: []ir.LinkProjection{
			{ID: linkAB, SourceID: objA, TargetID: objB, LinkTypeID: "satisfies"},
		},
	}
}

func newSandbox(t *testing.T, backend Backend, opts ...func(*Options)) *Sandbox {
	t.Helper()
	o := Options{
		Backend: backend,
		Timeout: time.Second,
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, fn := range opts {
		fn(&o)
	}
	s, err := New(o)
	require.NoError(t, err)
	return s
}

func script(name, src string) ir.Script {
	return ir.Script{Name: name, Source: src, Enabled: true}
}

func preSave(id string) ir.TriggerContext {
	return ir.TriggerContext{
		HookPoint: ir.HookPreSave,
		Object:    ir.ObjectProjection{ID: id, Heading: strPtr("New"), Version: 1},
	}
}

// sources maps a case name to its JavaScript and Go renditions.
type sources struct {
	js, golang string
}

func (s sources) get(b Backend) string {
	if b == BackendGo {
		return s.golang
	}
	return s.js
}

var backends = []Backend{BackendJavaScript, BackendGo}

func TestTriggerMutationsAndRejection(t *testing.T) {
	cases := map[string]sources{
		"set on context object": {
			js:     `req1.set(context.object.id, "checked", true);`,
			golang: `req1.Set(req1.Context()["object"].(map[string]any)["id"].(string), "checked", true)`,
		},
	}

	for _, b := range backends {
		t.Run(string(b), func(t *testing.T) {
			s := newSandbox(t, b)
			res, err := s.RunTrigger(context.Background(), script("mark", cases["set on context object"].get(b)), testWorld(), preSave(newObj))
			require.NoError(t, err)
			assert.False(t, res.Rejected)
			require.Len(t, res.Mutations, 1)
			assert.Equal(t, ir.Mutation{ObjectID: newObj, Key: "checked", Value: ir.IRBool(true)}, res.Mutations[0])
		})
	}
}

func TestTriggerRejectReasons(t *testing.T) {
	tests := []struct {
		name string
		src  sources
		want string
	}{
		{"explicit", sources{`req1.reject("needs owner");`, `req1.Reject("needs owner")`}, "needs owner"},
		{"default", sources{`req1.reject();`, `req1.Reject()`}, ir.DefaultRejectReason},
		{"last call wins", sources{`req1.reject("a"); req1.reject("b");`, `req1.Reject("a"); req1.Reject("b")`}, "b"},
	}

	for _, b := range backends {
		for _, tt := range tests {
			t.Run(string(b)+"/"+tt.name, func(t *testing.T) {
				s := newSandbox(t, b)
				res, err := s.RunTrigger(context.Background(), script("guard", tt.src.get(b)), testWorld(), preSave(newObj))
				require.NoError(t, err)
				assert.True(t, res.Rejected)
				require.NotNil(t, res.Reason)
				assert.Equal(t, tt.want, *res.Reason)
			})
		}
	}
}

func TestTriggerSeesHookAndModule(t *testing.T) {
	src := sources{
		js:     `if (context.hook_point !== "pre_save" || module.name !== "System Requirements") { req1.reject("wrong context"); }`,
		golang: `if req1.Context()["hook_point"] != "pre_save" || req1.Module()["name"] != "System Requirements" { req1.Reject("wrong context") }`,
	}
	for _, b := range backends {
		t.Run(string(b), func(t *testing.T) {
			res, err := newSandbox(t, b).RunTrigger(context.Background(), script("ctx", src.get(b)), testWorld(), preSave(newObj))
			require.NoError(t, err)
			assert.False(t, res.Rejected)
		})
	}
}

func TestLayoutCoercion(t *testing.T) {
	tests := []struct {
		name string
		src  sources
		want string
	}{
		{"string", sources{`return obj.heading + "!";`, `req1.Obj()["heading"].(string) + "!"`}, "Braking!"},
		{"integer", sources{`return obj.version * 10;`, `req1.Obj()["version"].(int64) * 10`}, "20"},
		{"float", sources{`return 2.5;`, `2.5`}, "2.5"},
		{"bool", sources{`return obj.version > 1;`, `req1.Obj()["version"].(int64) > 1`}, "true"},
		{"null", sources{`return null;`, `req1.Obj()["body"]`}, ""},
		{"no return", sources{`var x = 1;`, ""}, ""},
		{"object", sources{`return {a: 1};`, `map[string]any{"a": 1}`}, ""},
		{"array", sources{`return [1, 2];`, `[]int{1, 2}`}, ""},
	}

	world := testWorld()
	for _, b := range backends {
		for _, tt := range tests {
			t.Run(string(b)+"/"+tt.name, func(t *testing.T) {
				if tt.src.get(b) == "" {
					t.Skip("no rendition for this backend")
				}
				res, err := newSandbox(t, b).RunLayout(context.Background(), script("col", tt.src.get(b)), world, world.Objects[0])
				require.NoError(t, err)
				assert.Equal(t, tt.want, res.Value)
			})
		}
	}
}

func TestLayoutCannotMutate(t *testing.T) {
	src := sources{
		js:     `req1.set(obj.id, "touched", 1); return "x";`,
		golang: "req1.Set(req1.Obj()[\"id\"].(string), \"touched\", 1)\n\"x\"",
	}
	world := testWorld()
	for _, b := range backends {
		t.Run(string(b), func(t *testing.T) {
			res, err := newSandbox(t, b).RunLayout(context.Background(), script("col", src.get(b)), world, world.Objects[0])
			require.NoError(t, err)
			// LayoutResult carries only the value.
			assert.Equal(t, ir.LayoutResult{Value: "x"}, res)
		})
	}
}

func TestActionOutputAndMutations(t *testing.T) {
	src := sources{
		js: `
var objs = req1.objects();
for (var i = 0; i < objs.length; i++) {
  req1.print(objs[i].heading);
  req1.set(objs[i].id, "reviewed_by", "bot");
}
req1.log("done");
req1.print(req1.links(objs[0].id).length);`,
		golang: `
objs := req1.Objects()
for _, o := range objs {
	req1.Print(o["heading"])
	req1.Set(o["id"].(string), "reviewed_by", "bot")
}
req1.Log("done")
req1.Print(len(req1.Links(objs[0]["id"].(string))))`,
	}

	for _, b := range backends {
		t.Run(string(b), func(t *testing.T) {
			res, err := newSandbox(t, b).RunAction(context.Background(), script("tag", src.get(b)), testWorld())
			require.NoError(t, err)
			assert.Equal(t, []string{"Braking", "Steering", "1"}, res.Output)
			require.Len(t, res.Mutations, 2)
			assert.Equal(t, objA, res.Mutations[0].ObjectID)
			assert.Equal(t, objB, res.Mutations[1].ObjectID)
		})
	}
}

func TestGetObject(t *testing.T) {
	src := sources{
		js:     `var a = req1.get_object("` + objA + `"); req1.print(a.attributes.asil); req1.print(req1.get_object("missing") === null);`,
		golang: `a := req1.GetObject("` + objA + `"); req1.Print(a["attributes"].(map[string]any)["asil"]); req1.Print(req1.GetObject("missing") == nil)`,
	}
	for _, b := range backends {
		t.Run(string(b), func(t *testing.T) {
			res, err := newSandbox(t, b).RunAction(context.Background(), script("lookup", src.get(b)), testWorld())
			require.NoError(t, err)
			assert.Equal(t, []string{"D", "true"}, res.Output)
		})
	}
}

func TestReferenceFaults(t *testing.T) {
	tests := []struct {
		name string
		src  sources
	}{
		{"unparsable id", sources{`req1.set("not-a-uuid", "k", 1);`, `req1.Set("not-a-uuid", "k", 1)`}},
		{"unknown id", sources{`req1.set("0190f5a4-0000-7000-8000-000000000999", "k", 1);`, `req1.Set("0190f5a4-0000-7000-8000-000000000999", "k", 1)`}},
		{"caught by script", sources{`try { req1.set("bad", "k", 1); } catch (e) {}`, `func() { defer func() { recover() }(); req1.Set("bad", "k", 1) }()`}},
	}

	for _, b := range backends {
		for _, tt := range tests {
			t.Run(string(b)+"/"+tt.name, func(t *testing.T) {
				_, err := newSandbox(t, b).RunTrigger(context.Background(), script("writer", tt.src.get(b)), testWorld(), preSave(newObj))
				require.Error(t, err)
				assert.True(t, ir.IsReferenceFault(err), "got %v", err)
				e, _ := ir.AsError(err)
				assert.Equal(t, "writer", e.Script)
			})
		}
	}
}

func TestScriptFaults(t *testing.T) {
	tests := []struct {
		name string
		src  sources
	}{
		{"syntax", sources{`this is not javascript`, `this is not go`}},
		{"runtime", sources{`throw new Error("boom");`, `panic("boom")`}},
		{"undefined capability", sources{`require("fs");`, `import "os"`}},
	}

	for _, b := range backends {
		for _, tt := range tests {
			t.Run(string(b)+"/"+tt.name, func(t *testing.T) {
				_, err := newSandbox(t, b).RunAction(context.Background(), script("broken", tt.src.get(b)), testWorld())
				require.Error(t, err)
				assert.True(t, ir.IsScriptFault(err), "got %v", err)
				assert.Contains(t, err.Error(), "script 'broken' error:")
			})
		}
	}
}

func TestJavaScriptGlobalsAreFrozenAndBare(t *testing.T) {
	s := newSandbox(t, BackendJavaScript)

	_, err := s.RunTrigger(context.Background(), script("mutate", `"use strict"; module.name = "x";`), testWorld(), preSave(newObj))
	assert.True(t, ir.IsScriptFault(err))

	_, err = s.RunTrigger(context.Background(), script("mutate", `"use strict"; req1.set = function() {};`), testWorld(), preSave(newObj))
	assert.True(t, ir.IsScriptFault(err))

	res, err := s.RunAction(context.Background(), script("probe", `req1.print(typeof require); req1.print(typeof console); req1.print(typeof context);`), testWorld())
	require.NoError(t, err)
	assert.Equal(t, []string{"undefined", "undefined", "undefined"}, res.Output)
}

func TestExecutionBudget(t *testing.T) {
	src := sources{js: `while (true) {}`, golang: `for {}`}
	for _, b := range backends {
		t.Run(string(b), func(t *testing.T) {
			s := newSandbox(t, b, func(o *Options) { o.Timeout = 50 * time.Millisecond })
			start := time.Now()
			_, err := s.RunAction(context.Background(), script("spin", src.get(b)), testWorld())
			require.Error(t, err)
			assert.True(t, ir.IsScriptFault(err))
			assert.True(t, errors.Is(err, context.DeadlineExceeded))
			assert.Less(t, time.Since(start), 5*time.Second)
		})
	}
}

func TestOutputCap(t *testing.T) {
	src := sources{
		js:     `for (var i = 0; i < 10; i++) { req1.print("line"); }`,
		golang: `for i := 0; i < 10; i++ { req1.Print("line") }`,
	}
	for _, b := range backends {
		t.Run(string(b), func(t *testing.T) {
			s := newSandbox(t, b, func(o *Options) { o.MaxOutputLines = 3 })
			_, err := s.RunAction(context.Background(), script("chatty", src.get(b)), testWorld())
			require.Error(t, err)
			assert.True(t, ir.IsScriptFault(err))
			assert.Contains(t, err.Error(), "output limit of 3 lines exceeded")
		})
	}
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newSandbox(t, BackendJavaScript).RunAction(ctx, script("never", `req1.print("x");`), testWorld())
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestPrintOutsideActionIsLogged(t *testing.T) {
	var buf strings.Builder
	s := newSandbox(t, BackendJavaScript, func(o *Options) {
		o.Logger = slog.New(slog.NewTextHandler(&buf, nil))
	})

	res, err := s.RunTrigger(context.Background(), script("noisy", `req1.print("hello");`), testWorld(), preSave(newObj))
	require.NoError(t, err)
	assert.Empty(t, res.Mutations)
	assert.Contains(t, buf.String(), "script log")
	assert.Contains(t, buf.String(), "hello")
}

func TestUnknownBackend(t *testing.T) {
	_, err := New(Options{Backend: "lua"})
	assert.Error(t, err)
}

func TestFreshInterpreterPerInvocation(t *testing.T) {
	s := newSandbox(t, BackendJavaScript)
	_, err := s.RunAction(context.Background(), script("first", `var leaked = 42;`), testWorld())
	require.NoError(t, err)

	res, err := s.RunAction(context.Background(), script("second", `req1.print(typeof leaked);`), testWorld())
	require.NoError(t, err)
	assert.Equal(t, []string{"undefined"}, res.Output)
}
