package protocol

import (
	"github.com/vango-dev/livehooks/internal/errors"
)

// Message is a named hook event carried by Event and Push frames.
type Message struct {
	// Seq is a per-direction sequence number assigned by the sender.
	Seq uint64

	// Name is the event name (e.g. "update_structure_order").
	Name string

	// Data is the event payload. Nil encodes as an empty object.
	Data map[string]any
}

// EncodeMessage encodes m into a frame of type ft (FrameEvent or FramePush).
func EncodeMessage(ft FrameType, m *Message) (*Frame, error) {
	if ft != FrameEvent && ft != FramePush {
		return nil, errors.New(errors.CodeUnexpectedFrame).WithDetailf("cannot carry a message in %s frame", ft)
	}
	enc := NewEncoder()
	enc.WriteUvarint(m.Seq)
	enc.WriteString(m.Name)
	EncodeObject(enc, m.Data)
	if len(enc.Bytes()) > MaxPayloadSize {
		return nil, errors.New(errors.CodeFrameTooLarge).WithDetailf("event %q: %d bytes", m.Name, len(enc.Bytes()))
	}
	return NewFrame(ft, enc.Bytes()), nil
}

// DecodeMessage decodes the payload of an Event or Push frame.
func DecodeMessage(f *Frame) (*Message, error) {
	if f.Type != FrameEvent && f.Type != FramePush {
		return nil, errors.New(errors.CodeUnexpectedFrame).WithDetailf("%s frame", f.Type)
	}
	d := NewDecoder(f.Payload)
	seq, err := d.ReadUvarint()
	if err != nil {
		return nil, err
	}
	name, err := d.ReadString()
	if err != nil {
		return nil, err
	}
	data, err := DecodeObject(d)
	if err != nil {
		return nil, err
	}
	return &Message{Seq: seq, Name: name, Data: data}, nil
}

// ControlType identifies a control frame.
type ControlType uint8

const (
	ControlPing ControlType = 0x01
	ControlPong ControlType = 0x02
)

// Control is a ping or pong carrying the sender's timestamp (unix millis).
type Control struct {
	Type      ControlType
	Timestamp uint64
}

// EncodeControl encodes a control frame. Control frames skip the send queue.
func EncodeControl(c Control) *Frame {
	enc := NewEncoder()
	enc.WriteByte(byte(c.Type))
	enc.WriteUvarint(c.Timestamp)
	f := NewFrame(FrameControl, enc.Bytes())
	f.Flags = FlagPriority
	return f
}

// DecodeControl decodes a control frame.
func DecodeControl(f *Frame) (Control, error) {
	if f.Type != FrameControl {
		return Control{}, errors.New(errors.CodeUnexpectedFrame).WithDetailf("%s frame", f.Type)
	}
	d := NewDecoder(f.Payload)
	b, err := d.ReadByte()
	if err != nil {
		return Control{}, err
	}
	ts, err := d.ReadUvarint()
	if err != nil {
		return Control{}, err
	}
	ct := ControlType(b)
	if ct != ControlPing && ct != ControlPong {
		return Control{}, errors.New(errors.CodeInvalidValue).WithDetailf("control type 0x%02x", b)
	}
	return Control{Type: ct, Timestamp: ts}, nil
}

// ErrorMessage is the payload of an Error frame.
type ErrorMessage struct {
	Code    string
	Message string
}

// EncodeError encodes an Error frame.
func EncodeError(code, message string) *Frame {
	enc := NewEncoder()
	enc.WriteString(code)
	enc.WriteString(message)
	return NewFrame(FrameError, enc.Bytes())
}

// DecodeError decodes an Error frame.
func DecodeError(f *Frame) (ErrorMessage, error) {
	if f.Type != FrameError {
		return ErrorMessage{}, errors.New(errors.CodeUnexpectedFrame).WithDetailf("%s frame", f.Type)
	}
	d := NewDecoder(f.Payload)
	code, err := d.ReadString()
	if err != nil {
		return ErrorMessage{}, err
	}
	msg, err := d.ReadString()
	if err != nil {
		return ErrorMessage{}, err
	}
	return ErrorMessage{Code: code, Message: msg}, nil
}

// AsError converts an ErrorMessage into an *errors.Error.
func (m ErrorMessage) AsError() *errors.Error {
	tmpl, ok := errors.Lookup(m.Code)
	if !ok {
		return &errors.Error{Code: m.Code, Category: errors.CategoryProtocol, Message: m.Message}
	}
	return &errors.Error{Code: m.Code, Category: tmpl.Category, Message: tmpl.Message, Detail: m.Message}
}
