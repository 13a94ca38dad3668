// Package protocol defines the client/daemon wire format: length-prefixed
// JSON frames (spec §4.6) and the two closed message taxonomies exchanged
// over them.
//
// Ported from the original Rust daemon's src/server/framing.rs.
package protocol

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"

	"github.com/lucasilverentand/pane/internal/perrors"
)

// MaxFrameSize is the largest payload (in bytes) accepted on the wire: 16
// MiB. A declared length larger than this closes the connection with a
// ProtocolError without reading the body.
const MaxFrameSize = 16 * 1024 * 1024

// WriteFrame writes a u32 big-endian length prefix followed by data.
func WriteFrame(w io.Writer, data []byte) error {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(data)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return &perrors.IoError{Op: "write frame length", Err: err}
	}
	if _, err := w.Write(data); err != nil {
		return &perrors.IoError{Op: "write frame body", Err: err}
	}
	return nil
}

// ReadFrame reads one length-prefixed frame. It returns (nil, nil) on a
// clean EOF before any bytes of the length prefix are read — "no more
// frames", not an error. A length exceeding MaxFrameSize returns a
// ProtocolError without attempting to read the body.
func ReadFrame(r io.Reader) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, &perrors.IoError{Op: "read frame length", Err: err}
	}
	length := binary.BigEndian.Uint32(lenBuf[:])
	if length > MaxFrameSize {
		return nil, perrors.NewProtocolError("frame too large: %d bytes", length)
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, &perrors.IoError{Op: "read frame body", Err: err}
	}
	return buf, nil
}

// Send JSON-encodes msg and writes it as a length-prefixed frame.
func Send(w io.Writer, msg any) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal frame payload: %w", err)
	}
	return WriteFrame(w, data)
}

// Recv reads one frame and JSON-decodes it into dst. It returns
// (false, nil) on clean EOF.
func Recv(r io.Reader, dst any) (bool, error) {
	data, err := ReadFrame(r)
	if err != nil {
		return false, err
	}
	if data == nil {
		return false, nil
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, perrors.NewProtocolError("invalid JSON frame: %v", err)
	}
	return true, nil
}
