// Package errors provides the structured error type shared by livehooks.
//
// Every error carries a registered code (e.g. "H001") that maps to a
// category, a short message and a longer explanation. Hook code logs these
// errors instead of returning them: nothing a hook does is fatal to the page.
//
// # Error Categories
//
//   - hook: DOM contract violations (missing identifiers, missing targets)
//   - protocol: wire format errors (short frames, bad values, depth limits)
//   - transport: channel failures (dial, write, closed connection)
//   - config: invalid configuration files or environment overrides
//   - upload: dropped file storage errors
//
// # Usage
//
//	err := errors.New(errors.CodeMissingIdentifier).
//	    WithDetail(`item <li class="row"> has neither data-id nor id`)
//	logger.Warn(err.Error(), "code", err.Code)
package errors
