// Package ws serves the terminal protocol over gorilla/websocket.
//
// Each connection gets a ConnID, a reader loop that decodes and dispatches
// client frames in arrival order, and a writer goroutine that drains a
// bounded outbound queue. PTY goroutines enqueue output through the
// connection's Sink; a full queue blocks them until the writer catches up.
//
// When the reader stops (client close, read error, missed pong) the
// connection is marked done and every session it owns is torn down.
package ws
