package protocol

import (
	"bytes"
	stderrors "errors"
	"io"
	"testing"

	"github.com/vango-dev/livehooks/internal/errors"
)

func TestFrameEncodeDecode(t *testing.T) {
	tests := []struct {
		name    string
		frame   Frame
		wantLen int
	}{
		{
			name:    "empty_payload",
			frame:   Frame{Type: FrameEvent, Payload: []byte{}},
			wantLen: FrameHeaderSize,
		},
		{
			name:    "push",
			frame:   Frame{Type: FramePush, Payload: []byte{0x01, 0x02, 0x03}},
			wantLen: FrameHeaderSize + 3,
		},
		{
			name:    "priority_control",
			frame:   Frame{Type: FrameControl, Flags: FlagPriority, Payload: []byte("ping")},
			wantLen: FrameHeaderSize + 4,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			encoded, err := tc.frame.Encode()
			if err != nil {
				t.Fatalf("Encode() error = %v", err)
			}
			if len(encoded) != tc.wantLen {
				t.Errorf("Encode() length = %d, want %d", len(encoded), tc.wantLen)
			}

			decoded, err := DecodeFrame(encoded)
			if err != nil {
				t.Fatalf("DecodeFrame() error = %v", err)
			}
			if decoded.Type != tc.frame.Type {
				t.Errorf("Decoded type = %v, want %v", decoded.Type, tc.frame.Type)
			}
			if decoded.Flags != tc.frame.Flags {
				t.Errorf("Decoded flags = %v, want %v", decoded.Flags, tc.frame.Flags)
			}
			if !bytes.Equal(decoded.Payload, tc.frame.Payload) {
				t.Errorf("Decoded payload = %v, want %v", decoded.Payload, tc.frame.Payload)
			}
		})
	}
}

func TestFrameHeaderLayout(t *testing.T) {
	f := NewFrame(FramePush, make([]byte, 0x0102))
	encoded, err := f.Encode()
	if err != nil {
		t.Fatal(err)
	}
	if encoded[0] != 0x02 || encoded[2] != 0x01 || encoded[3] != 0x02 {
		t.Errorf("header = % x, want 02 00 01 02", encoded[:4])
	}
}

func TestFrameTooLarge(t *testing.T) {
	f := NewFrame(FrameEvent, make([]byte, MaxPayloadSize+1))
	_, err := f.Encode()
	if errors.CodeOf(err) != errors.CodeFrameTooLarge {
		t.Errorf("Encode() error = %v, want %s", err, errors.CodeFrameTooLarge)
	}
}

func TestDecodeFrameTruncated(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"short_header", []byte{0x01, 0x00}},
		{"short_payload", []byte{0x01, 0x00, 0x00, 0x05, 0xAA}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeFrame(tc.data)
			if errors.CodeOf(err) != errors.CodeFrameTruncated {
				t.Errorf("DecodeFrame() error = %v, want %s", err, errors.CodeFrameTruncated)
			}
			if !stderrors.Is(err, io.ErrUnexpectedEOF) {
				t.Error("Expected error to wrap io.ErrUnexpectedEOF")
			}
		})
	}
}

func TestFrameTypeString(t *testing.T) {
	tests := []struct {
		ft   FrameType
		want string
	}{
		{FrameEvent, "Event"},
		{FramePush, "Push"},
		{FrameControl, "Control"},
		{FrameError, "Error"},
		{FrameType(0x7F), "Unknown"},
	}
	for _, tc := range tests {
		if got := tc.ft.String(); got != tc.want {
			t.Errorf("FrameType(%d).String() = %q, want %q", tc.ft, got, tc.want)
		}
	}
}
