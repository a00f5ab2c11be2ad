// Package desktop implements the client-side window manager.
//
// A Manager owns the set of terminal windows and keeps it in lockstep with
// the server's sessions: creating a window requests a session, closing one
// destroys it, and a session exit closes its window. Window state is plain
// data guarded by one mutex; renderers, the session transport and the
// taskbar are reached only through interfaces and never while the lock is
// held, so none of them can re-enter the manager mid-update.
//
// Snapshot returns the display model (effective geometry, stacking order,
// visibility) as a pure function of the current state.
package desktop
