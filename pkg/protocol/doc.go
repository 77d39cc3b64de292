// Package protocol implements the binary wire format between hooks and
// the sync server.
//
// # Frames
//
// Every WebSocket message is one frame:
//
//	┌─────────────┬──────────────┬───────────────────────────────┐
//	│ Frame Type  │ Flags        │ Payload Length                │
//	│ (1 byte)    │ (1 byte)     │ (2 bytes, big-endian)         │
//	└─────────────┴──────────────┴───────────────────────────────┘
//	│  Payload (variable length, at most 65535 bytes)             │
//	└─────────────────────────────────────────────────────────────┘
//
// Frame types:
//   - Event (0x01): client → server, a named hook event
//   - Push (0x02): server → client, a named push event
//   - Control (0x03): ping / pong
//   - Error (0x05): server-reported error
//
// # Messages
//
// Event and Push payloads share one layout:
//
//	uvarint  seq
//	string   name      (uvarint length + UTF-8 bytes)
//	object   data      (hook value object, see below)
//
// # Hook values
//
// Payload data is a tree of tagged values:
//
//	0x00 null
//	0x01 bool     (1 byte)
//	0x02 int      (ZigZag svarint)
//	0x03 float    (IEEE 754 float64, big-endian)
//	0x04 string
//	0x05 array    (uvarint count + values)
//	0x06 object   (uvarint count + (string key, value) pairs)
//
// Nesting is limited to MaxValueDepth levels and collections to
// MaxCollectionCount entries, so a hostile peer cannot exhaust the stack or
// memory with a small frame.
package protocol
