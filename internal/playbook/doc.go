// Package playbook runs scripted sequences of history operations.
//
// A playbook is a YAML document naming a Lua script that defines actions and
// a list of steps to drive against a history manager:
//
//	name: counter
//	script_file: counter.lua
//	steps:
//	  - op: execute
//	    action: increment
//	    args: {by: 2}
//	  - op: undo
//	  - op: expect
//	    size: 1
//	    position: 0
//	    can_redo: true
//	    store: {count: 0}
//
// Steps run in order. The first step that fails, or whose expectation does
// not hold, stops the run with a *StepError.
package playbook
