package protocol

import (
	"errors"
	"fmt"

	"github.com/bytedance/sonic"
)

var (
	ErrInvalidFrame = errors.New("invalid frame")
	ErrUnknownFrame = errors.New("unknown frame type")
)

// DecodeError describes a frame that could not be decoded. SessionID is set
// when the frame was well-formed enough to name one.
type DecodeError struct {
	Type      string
	SessionID string
	Err       error
}

func (e *DecodeError) Error() string {
	if e.Type == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Type, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

type header struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId"`
}

// DecodeClient parses a client frame and validates its session id and size.
func DecodeClient(data []byte) (ClientFrame, error) {
	var h header
	if err := sonic.Unmarshal(data, &h); err != nil {
		return nil, &DecodeError{Err: fmt.Errorf("%w: %v", ErrInvalidFrame, err)}
	}

	fail := func(err error) (ClientFrame, error) {
		return nil, &DecodeError{Type: h.Type, SessionID: h.SessionID, Err: err}
	}

	var frame ClientFrame
	var err error
	switch h.Type {
	case TypeCreateSession:
		var f CreateSession
		err = sonic.Unmarshal(data, &f)
		f.Cols, f.Rows = NormalizeSize(f.Cols, f.Rows)
		frame = f
	case TypeTerminalInput:
		var f TerminalInput
		err = sonic.Unmarshal(data, &f)
		frame = f
	case TypeTerminalResize:
		var f TerminalResize
		err = sonic.Unmarshal(data, &f)
		f.Cols, f.Rows = NormalizeSize(f.Cols, f.Rows)
		frame = f
	case TypeCloseSession:
		var f CloseSession
		err = sonic.Unmarshal(data, &f)
		frame = f
	case "":
		return fail(fmt.Errorf("%w: missing type", ErrInvalidFrame))
	default:
		return fail(fmt.Errorf("%w: %q", ErrUnknownFrame, h.Type))
	}
	if err != nil {
		return fail(fmt.Errorf("%w: %v", ErrInvalidFrame, err))
	}

	if err := ValidateSessionID(frame.Session()); err != nil {
		return fail(err)
	}
	return frame, nil
}

// DecodeServer parses a server frame.
func DecodeServer(data []byte) (ServerFrame, error) {
	var h header
	if err := sonic.Unmarshal(data, &h); err != nil {
		return nil, &DecodeError{Err: fmt.Errorf("%w: %v", ErrInvalidFrame, err)}
	}

	var frame ServerFrame
	var err error
	switch h.Type {
	case TypeTerminalData:
		var f TerminalData
		err = sonic.Unmarshal(data, &f)
		frame = f
	case TypeTerminalExit:
		var f TerminalExit
		err = sonic.Unmarshal(data, &f)
		frame = f
	case TypeSessionError:
		var f SessionError
		err = sonic.Unmarshal(data, &f)
		frame = f
	default:
		return nil, &DecodeError{Type: h.Type, SessionID: h.SessionID, Err: fmt.Errorf("%w: %q", ErrUnknownFrame, h.Type)}
	}
	if err != nil {
		return nil, &DecodeError{Type: h.Type, SessionID: h.SessionID, Err: fmt.Errorf("%w: %v", ErrInvalidFrame, err)}
	}
	return frame, nil
}

// EncodeServer serializes a server frame with its type discriminator.
func EncodeServer(f ServerFrame) ([]byte, error) {
	switch v := f.(type) {
	case TerminalData:
		return marshal(v.FrameType(), v)
	case TerminalExit:
		return marshal(v.FrameType(), v)
	case SessionError:
		return marshal(v.FrameType(), v)
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownFrame, f)
	}
}

// EncodeClient serializes a client frame with its type discriminator.
func EncodeClient(f ClientFrame) ([]byte, error) {
	switch v := f.(type) {
	case CreateSession:
		return marshal(v.FrameType(), v)
	case TerminalInput:
		return marshal(v.FrameType(), v)
	case TerminalResize:
		return marshal(v.FrameType(), v)
	case CloseSession:
		return marshal(v.FrameType(), v)
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownFrame, f)
	}
}

// marshal prepends the type field to the body's JSON object. Every frame
// body has at least a sessionId field, so the object is never empty.
func marshal(typ string, body any) ([]byte, error) {
	raw, err := sonic.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", typ, err)
	}

	out := make([]byte, 0, len(raw)+len(typ)+10)
	out = append(out, `{"type":"`...)
	out = append(out, typ...)
	out = append(out, `",`...)
	out = append(out, raw[1:]...)
	return out, nil
}
