// Package drawerr names the three failure classes spec.md §7 describes
// so a diagnostic readback (engine.Engine.LastError) can distinguish
// them without string matching. None of these ever propagate to a
// per-primitive call site — every draw op keeps returning its bounding
// rect regardless of what, if anything, got recorded here.
package drawerr

import "errors"

// ResourceUnavailable: a font face or bitmap has no backing data. The
// call is a no-op; only the error is recorded.
var ResourceUnavailable = errors.New("drawerr: resource unavailable")

// BufferGone: the frame buffer was detached between lock and write.
// The draw aborts silently; the engine re-checks attachment on the
// next call.
var BufferGone = errors.New("drawerr: frame buffer gone")

// Fatal: a scratch allocation failed while rasterizing one primitive.
// That primitive is skipped; the engine keeps serving later calls.
var Fatal = errors.New("drawerr: fatal")

// Is reports whether err wraps one of this package's sentinels.
func Is(err, sentinel error) bool { return errors.Is(err, sentinel) }
