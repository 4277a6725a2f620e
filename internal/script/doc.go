// Package script lets actions be written in Lua.
//
// A Runtime owns one sandboxed gopher-lua state. Only the base, table,
// string and math libraries are available, plus two modules:
//
//	store    get(key), set(key, value), delete(key), keys()
//	actions  define(name, {description=..., execute=fn, undo=fn})
//
// A script defines named actions:
//
//	actions.define("increment", {
//	    description = "Increment counter",
//	    execute = function(args) store.set("count", (store.get("count") or 0) + (args.by or 1)) end,
//	    undo    = function(args) store.set("count", store.get("count") - (args.by or 1)) end,
//	})
//
// Runtime.NewAction turns a definition plus arguments into a history.Action.
//
// gopher-lua's LState is not goroutine-safe, so every Lua call is funnelled
// through an Executor running on a single goroutine.
package script
