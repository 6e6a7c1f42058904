package loader

import (
	"context"
	"fmt"
	"sort"

	lua "github.com/yuin/gopher-lua"
)

// Importer resolves imports made from inside a module body.
type Importer interface {
	Import(ctx context.Context, name string) (Module, error)
}

// LuaModule is a package whose entry file is a Lua chunk.
// Its exports table exists before the chunk runs.
type LuaModule struct {
	name    string
	path    string
	chunk   *lua.LFunction
	exports *lua.LTable
}

func (m *LuaModule) Name() string { return m.name }
func (m *LuaModule) Path() string { return m.path }

// Exports returns the module's table.
func (m *LuaModule) Exports() *lua.LTable {
	return m.exports
}

// Get returns an exported value, or lua.LNil.
func (m *LuaModule) Get(key string) lua.LValue {
	return m.exports.RawGetString(key)
}

// Keys returns the exported string keys, sorted.
func (m *LuaModule) Keys() []string {
	var keys []string
	m.exports.ForEach(func(k, _ lua.LValue) {
		if s, ok := k.(lua.LString); ok {
			keys = append(keys, string(s))
		}
	})
	sort.Strings(keys)
	return keys
}

// LuaLoader runs entry files in a single embedded Lua VM shared by every
// module it loads. The global require is routed to the bound Importer.
// A LuaLoader is not safe for concurrent use.
type LuaLoader struct {
	L        *lua.LState
	importer Importer
}

// NewLuaLoader creates a loader with a fresh Lua state.
func NewLuaLoader() *LuaLoader {
	l := &LuaLoader{L: lua.NewState()}
	l.L.SetGlobal("require", l.L.NewFunction(l.require))
	return l
}

// Bind sets the Importer used by require. NewRegistry binds itself.
func (l *LuaLoader) Bind(imp Importer) {
	l.importer = imp
}

// NewModule compiles the entry file without running it.
func (l *LuaLoader) NewModule(spec Spec) (Module, error) {
	chunk, err := l.L.LoadFile(spec.Path)
	if err != nil {
		return nil, fmt.Errorf("compiling %s: %w", spec.Path, err)
	}

	exports := l.L.NewTable()
	exports.RawSetString("__name__", lua.LString(spec.Name))
	exports.RawSetString("__file__", lua.LString(spec.Path))

	return &LuaModule{
		name:    spec.Name,
		path:    spec.Path,
		chunk:   chunk,
		exports: exports,
	}, nil
}

// Exec calls the chunk with (name, exports). Fields of a returned table
// are copied into exports so the module handle never changes.
func (l *LuaLoader) Exec(ctx context.Context, m Module) error {
	lm, ok := m.(*LuaModule)
	if !ok {
		return fmt.Errorf("lua loader cannot execute %T", m)
	}

	prev := l.L.Context()
	l.L.SetContext(ctx)
	defer func() {
		if prev != nil {
			l.L.SetContext(prev)
		} else {
			l.L.RemoveContext()
		}
	}()

	l.L.Push(lm.chunk)
	l.L.Push(lua.LString(lm.name))
	l.L.Push(lm.exports)
	if err := l.L.PCall(2, 1, nil); err != nil {
		return fmt.Errorf("executing %s: %w", lm.path, err)
	}

	ret := l.L.Get(-1)
	l.L.Pop(1)
	if tbl, ok := ret.(*lua.LTable); ok && tbl != lm.exports {
		tbl.ForEach(func(k, v lua.LValue) {
			lm.exports.RawSet(k, v)
		})
	}
	return nil
}

func (l *LuaLoader) require(L *lua.LState) int {
	name := L.CheckString(1)
	if l.importer == nil {
		L.RaiseError("require %q: no importer bound", name)
		return 0
	}

	ctx := L.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	m, err := l.importer.Import(ctx, name)
	if err != nil {
		L.RaiseError("require %q: %v", name, err)
		return 0
	}

	lm, ok := m.(*LuaModule)
	if !ok {
		L.RaiseError("require %q: not a lua module", name)
		return 0
	}
	L.Push(lm.exports)
	return 1
}

// Global returns a global variable of the shared VM.
func (l *LuaLoader) Global(name string) lua.LValue {
	return l.L.GetGlobal(name)
}

// Close releases the Lua state.
func (l *LuaLoader) Close() error {
	l.L.Close()
	return nil
}
