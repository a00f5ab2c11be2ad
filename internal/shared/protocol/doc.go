// Package protocol defines the frames exchanged between the terminal client
// and server over one websocket connection.
//
// Each direction has a closed set of frame types. Client frames implement
// ClientFrame and server frames implement ServerFrame; both interfaces carry
// an unexported marker method so no other package can add variants, and
// consumers switch over them exhaustively.
//
// On the wire every frame is one JSON text message with a "type" field:
//
//	{"type":"createSession","sessionId":"window_1","cols":80,"rows":24}
//	{"type":"terminalData","sessionId":"window_1","data":"$ "}
//
// Encoding and decoding use bytedance/sonic.
package protocol
