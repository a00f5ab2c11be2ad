// Package transport is the client side of the session protocol.
//
// A Client owns one websocket connection. Session requests made through
// it are encoded and queued for a single writer goroutine; frames read
// from the server are decoded and handed to a Handler on the reader
// goroutine, in arrival order.
package transport
