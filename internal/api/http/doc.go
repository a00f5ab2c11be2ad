// Package http provides the JSON endpoints of the terminal server:
// a liveness/health report and a read-only listing of live sessions.
package http
