// Package session maps terminal sessions onto websocket connections.
//
// The Registry owns every live PTY process, keyed by the session id the
// client chose for its window. Each session belongs to the connection that
// created it; requests from any other connection are rejected. PTY output
// and exit events are pushed to the owning connection's Sink.
//
// Lifecycle:
//   - CreateSession reserves the id, spawns outside the lock, then commits
//   - An entry is removed exactly once: by Destroy, by process exit, or by
//     Detach when the connection goes away
//   - Events from a removed entry are dropped
//
// Example Usage:
//
//	reg := session.NewRegistry(terminal.NewSpawner(), session.Config{Shell: "/bin/bash"})
//	reg.Attach(connID, sink)
//	defer reg.Detach(connID)
//	err := reg.CreateSession(connID, "window_1", 80, 24)
package session
