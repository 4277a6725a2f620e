package script

import (
	"fmt"
	"sort"

	lua "github.com/yuin/gopher-lua"
)

// toLua converts a Go value into a Lua value. Maps become tables keyed by
// string, slices become arrays.
func toLua(L *lua.LState, v any) lua.LValue {
	switch val := v.(type) {
	case nil:
		return lua.LNil
	case bool:
		return lua.LBool(val)
	case string:
		return lua.LString(val)
	case int:
		return lua.LNumber(val)
	case int64:
		return lua.LNumber(val)
	case uint64:
		return lua.LNumber(val)
	case float64:
		return lua.LNumber(val)
	case map[string]any:
		tbl := L.NewTable()
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			tbl.RawSetString(k, toLua(L, val[k]))
		}
		return tbl
	case []any:
		tbl := L.NewTable()
		for _, item := range val {
			tbl.Append(toLua(L, item))
		}
		return tbl
	case []string:
		tbl := L.NewTable()
		for _, item := range val {
			tbl.Append(lua.LString(item))
		}
		return tbl
	default:
		return lua.LString(fmt.Sprint(val))
	}
}

// fromLua converts a scalar Lua value to Go. Tables and functions are not
// storable and report ok=false.
func fromLua(v lua.LValue) (any, bool) {
	switch val := v.(type) {
	case *lua.LNilType:
		return nil, true
	case lua.LBool:
		return bool(val), true
	case lua.LString:
		return string(val), true
	case lua.LNumber:
		return float64(val), true
	default:
		return nil, false
	}
}
