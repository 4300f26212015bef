package sandbox

import (
	"context"
	"fmt"
	"io"
	"reflect"
	"strings"
	"testing/fstest"

	"github.com/traefik/yaegi/interp"

	"github.com/roach88/req1/internal/ir"
)

// goExecutor interprets Go sources with yaegi.
//
// The interpreter gets no stdlib symbols and an empty source filesystem, so
// the only importable package is the pre-imported "req1". Values cross the
// boundary as plain Go types: map[string]any, []any, int64, float64,
// string, bool and nil.
//
// Scripts are statement lists evaluated in REPL mode. For layout scripts
// the value of the final expression is the result.
type goExecutor struct{}

const goImportPath = "req1"

func (goExecutor) exec(ctx context.Context, src string, st *hostState) (ir.IRValue, error) {
	i := interp.New(interp.Options{
		Stdout:               io.Discard,
		Stderr:               io.Discard,
		SourcecodeFilesystem: fstest.MapFS{},
	})
	if err := i.Use(interp.Exports{goImportPath + "/" + goImportPath: goSymbols(st)}); err != nil {
		return nil, ir.HostStateFault("register req1 symbols", err)
	}
	if _, err := i.Eval(`import "` + goImportPath + `"`); err != nil {
		return nil, ir.HostStateFault("import req1", err)
	}

	if strings.TrimSpace(src) == "" {
		return nil, nil
	}
	res, err := i.EvalWithContext(ctx, src)
	if err != nil {
		return nil, err
	}
	if st.kind != ir.ScriptLayout || !res.IsValid() || !res.CanInterface() {
		return nil, nil
	}
	v, err := ir.FromAny(res.Interface())
	if err != nil {
		return nil, nil
	}
	return v, nil
}

// goSymbols exposes the host capabilities bound to one arena.
// Host faults abort the script by panicking; the sandbox reports the
// recorded fault rather than the interpreter's panic text.
func goSymbols(st *hostState) map[string]reflect.Value {
	asMap := func(v ir.IRValue) map[string]any {
		m, _ := ir.ToAny(v).(map[string]any)
		return m
	}
	asMaps := func(arr ir.IRArray) []map[string]any {
		out := make([]map[string]any, len(arr))
		for i, v := range arr {
			out[i] = asMap(v)
		}
		return out
	}
	first := func(args []string) string {
		if len(args) == 0 {
			return ""
		}
		return args[0]
	}

	return map[string]reflect.Value{
		"Module":  reflect.ValueOf(func() map[string]any { return asMap(st.module()) }),
		"Context": reflect.ValueOf(func() map[string]any { return asMap(st.context()) }),
		"Obj":     reflect.ValueOf(func() map[string]any { return asMap(st.current()) }),
		"Objects": reflect.ValueOf(func() []map[string]any { return asMaps(st.objects()) }),
		"GetObject": reflect.ValueOf(func(id string) map[string]any {
			return asMap(st.getObject(id))
		}),
		"Links": reflect.ValueOf(func(id ...string) []map[string]any {
			return asMaps(st.links(first(id)))
		}),
		"Set": reflect.ValueOf(func(id, key string, value any) {
			v, err := ir.FromAny(value)
			if err != nil {
				panic(fmt.Errorf("req1.Set: unsupported value for %q: %w", key, err))
			}
			if err := st.set(id, key, v); err != nil {
				panic(err)
			}
		}),
		"Reject": reflect.ValueOf(func(reason ...string) {
			if len(reason) == 0 {
				st.reject(nil)
				return
			}
			st.reject(&reason[0])
		}),
		"Log": reflect.ValueOf(func(args ...any) {
			if err := st.log(fmt.Sprint(args...)); err != nil {
				panic(err)
			}
		}),
		"Print": reflect.ValueOf(func(args ...any) {
			if err := st.print(fmt.Sprint(args...)); err != nil {
				panic(err)
			}
		}),
	}
}
