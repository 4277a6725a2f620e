// Package inspect renders a history snapshot as JSON and answers path
// queries against it.
//
// Documents are built incrementally with sjson and queried with gjson
// path syntax, for example:
//
//	doc, _ := inspect.Snapshot(m.Snapshot(), store.Snapshot())
//	inspect.Query(doc, "entries.#(state==\"redoable\")#.description")
package inspect
