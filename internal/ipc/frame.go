// SPDX-License-Identifier: MPL-2.0

// Package ipc implements the worker channel graft speaks with a host
// process: length-prefixed JSON frames over a byte stream, carrying
// request, response and stream-event messages. Stdout and stderr stay free
// for the streaming output protocol and logs.
package ipc

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// MaxFrame caps the body size of a single frame.
const MaxFrame = 16 << 20

// ErrFrameTooLarge is returned for frames above MaxFrame in either direction.
var ErrFrameTooLarge = errors.New("ipc frame exceeds size limit")

// WriteFrame writes one frame: a 4-byte big-endian length followed by the
// body.
func WriteFrame(w io.Writer, body []byte) error {
	if len(body) > MaxFrame {
		return fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, len(body))
	}
	var header [4]byte
	binary.BigEndian.PutUint32(header[:], uint32(len(body)))
	if _, err := w.Write(header[:]); err != nil {
		return err
	}
	_, err := w.Write(body)
	return err
}

// ReadFrame reads one frame body. io.EOF before any header byte is the clean
// end of the channel; a stream cut inside a frame surfaces as
// io.ErrUnexpectedEOF.
func ReadFrame(r io.Reader) ([]byte, error) {
	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("ipc frame header: %w", io.ErrUnexpectedEOF)
		}
		return nil, err
	}

	size := binary.BigEndian.Uint32(header[:])
	if size == 0 {
		return nil, io.EOF
	}
	if size > MaxFrame {
		return nil, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, size)
	}

	body := make([]byte, size)
	if _, err := io.ReadFull(r, body); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("ipc frame body: %w", io.ErrUnexpectedEOF)
		}
		return nil, err
	}
	return body, nil
}

// WriteMessage marshals a message and writes it as one frame.
func WriteMessage(w io.Writer, msg *Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return WriteFrame(w, body)
}

// ReadMessage reads one frame and unmarshals it as a message.
func ReadMessage(r io.Reader) (*Message, error) {
	body, err := ReadFrame(r)
	if err != nil {
		return nil, err
	}
	var msg Message
	if err := json.Unmarshal(body, &msg); err != nil {
		return nil, fmt.Errorf("ipc frame is not a valid message: %w", err)
	}
	return &msg, nil
}
