package sandbox

import (
	"context"
	"fmt"

	"github.com/dop251/goja"

	"github.com/roach88/req1/internal/ir"
)

// jsExecutor runs ECMAScript 5.1+ sources with goja.
//
// Globals: module, context (trigger), obj (layout), all frozen, plus the
// frozen req1 namespace. goja ships no require, console or I/O, so the
// global object holds nothing else of interest.
type jsExecutor struct{}

func (jsExecutor) exec(ctx context.Context, src string, st *hostState) (ir.IRValue, error) {
	vm := goja.New()

	stop := context.AfterFunc(ctx, func() {
		vm.Interrupt(ctx.Err())
	})
	defer stop()

	b := &jsBridge{vm: vm, st: st}
	if err := b.install(); err != nil {
		return nil, ir.HostStateFault("install javascript globals", err)
	}

	if st.kind == ir.ScriptLayout {
		// Layout bodies may use a top-level return.
		src = "(function() {\n" + src + "\n})()"
	}

	res, err := vm.RunString(src)
	if err != nil {
		return nil, err
	}
	if st.kind != ir.ScriptLayout || res == nil || goja.IsUndefined(res) || goja.IsNull(res) {
		return nil, nil
	}
	v, err := ir.FromAny(res.Export())
	if err != nil {
		// Functions, dates and other host objects coerce to "".
		return nil, nil
	}
	return v, nil
}

type jsBridge struct {
	vm     *goja.Runtime
	st     *hostState
	freeze goja.Callable
}

func (b *jsBridge) install() error {
	objectCtor := b.vm.Get("Object").ToObject(b.vm)
	freeze, ok := goja.AssertFunction(objectCtor.Get("freeze"))
	if !ok {
		return fmt.Errorf("Object.freeze is not callable")
	}
	b.freeze = freeze

	if err := b.setFrozen("module", b.st.module()); err != nil {
		return err
	}
	if c := b.st.context(); c != nil {
		if err := b.setFrozen("context", c); err != nil {
			return err
		}
	}
	if o := b.st.current(); o != nil {
		if err := b.setFrozen("obj", o); err != nil {
			return err
		}
	}

	ns := b.vm.NewObject()
	fns := map[string]func(goja.FunctionCall) goja.Value{
		"objects":    b.objects,
		"get_object": b.getObject,
		"links":      b.links,
		"set":        b.set,
		"reject":     b.reject,
		"log":        b.log,
		"print":      b.print,
	}
	for name, fn := range fns {
		if err := ns.Set(name, fn); err != nil {
			return fmt.Errorf("req1.%s: %w", name, err)
		}
	}
	if _, err := b.freeze(goja.Undefined(), ns); err != nil {
		return err
	}
	return b.vm.Set("req1", ns)
}

func (b *jsBridge) setFrozen(name string, v ir.IRValue) error {
	jv := b.toJS(v)
	if _, err := b.freeze(goja.Undefined(), jv); err != nil {
		return fmt.Errorf("freeze %s: %w", name, err)
	}
	return b.vm.Set(name, jv)
}

// toJS builds native JS values so scripts get ordinary objects and arrays
// rather than wrapped Go maps.
func (b *jsBridge) toJS(v ir.IRValue) goja.Value {
	switch val := v.(type) {
	case nil, ir.IRNull:
		return goja.Null()
	case ir.IRBool:
		return b.vm.ToValue(bool(val))
	case ir.IRInt:
		return b.vm.ToValue(int64(val))
	case ir.IRFloat:
		return b.vm.ToValue(float64(val))
	case ir.IRString:
		return b.vm.ToValue(string(val))
	case ir.IRArray:
		items := make([]any, len(val))
		for i, elem := range val {
			items[i] = b.toJS(elem)
		}
		return b.vm.NewArray(items...)
	case ir.IRObject:
		o := b.vm.NewObject()
		for _, k := range val.SortedKeys() {
			_ = o.Set(k, b.toJS(val[k]))
		}
		return o
	default:
		return goja.Undefined()
	}
}

// throw aborts the script with err as a JS exception.
func (b *jsBridge) throw(err error) {
	panic(b.vm.NewGoError(err))
}

func optionalString(v goja.Value) *string {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil
	}
	s := v.String()
	return &s
}

func (b *jsBridge) objects(goja.FunctionCall) goja.Value {
	return b.toJS(b.st.objects())
}

func (b *jsBridge) getObject(call goja.FunctionCall) goja.Value {
	id := optionalString(call.Argument(0))
	if id == nil {
		return goja.Null()
	}
	return b.toJS(b.st.getObject(*id))
}

func (b *jsBridge) links(call goja.FunctionCall) goja.Value {
	id := ""
	if s := optionalString(call.Argument(0)); s != nil {
		id = *s
	}
	return b.toJS(b.st.links(id))
}

func (b *jsBridge) set(call goja.FunctionCall) goja.Value {
	id := call.Argument(0).String()
	key := call.Argument(1).String()

	var raw any
	if arg := call.Argument(2); !goja.IsUndefined(arg) {
		raw = arg.Export()
	}
	value, err := ir.FromAny(raw)
	if err != nil {
		panic(b.vm.NewTypeError("req1.set: unsupported value for %q: %v", key, err))
	}
	if err := b.st.set(id, key, value); err != nil {
		b.throw(err)
	}
	return goja.Undefined()
}

func (b *jsBridge) reject(call goja.FunctionCall) goja.Value {
	b.st.reject(optionalString(call.Argument(0)))
	return goja.Undefined()
}

func (b *jsBridge) log(call goja.FunctionCall) goja.Value {
	if err := b.st.log(call.Argument(0).String()); err != nil {
		b.throw(err)
	}
	return goja.Undefined()
}

func (b *jsBridge) print(call goja.FunctionCall) goja.Value {
	if err := b.st.print(call.Argument(0).String()); err != nil {
		b.throw(err)
	}
	return goja.Undefined()
}
