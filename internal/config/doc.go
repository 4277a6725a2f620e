// Package config loads actionhistory settings from a TOML file and the
// environment, and watches the file for live reload.
//
// A configuration file looks like:
//
//	[history]
//	max_size = 100
//	strict = false
//
//	[log]
//	level = "debug"
//
//	[script]
//	call_stack_size = 512
//	timeout = "2s"
//
// Environment variables override file values. ACTIONHISTORY_HISTORY_MAX_SIZE,
// ACTIONHISTORY_HISTORY_STRICT, ACTIONHISTORY_LOG_LEVEL,
// ACTIONHISTORY_SCRIPT_CALL_STACK_SIZE and ACTIONHISTORY_SCRIPT_TIMEOUT are
// recognized.
package config
