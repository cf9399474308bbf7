// SPDX-License-Identifier: MPL-2.0

package wire

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/graftlabs/graft/pkg/fault"
	"github.com/graftlabs/graft/pkg/transform"
)

// ErrMultipleTerminals is returned when a stream carries more than one
// terminal block.
var ErrMultipleTerminals = errors.New("multiple terminal blocks on one stream")

// Reader incrementally parses a wire stream back into events. Lines
// outside the protocol (stray prints from a subprocess) are skipped.
type Reader struct {
	sc       *bufio.Scanner
	terminal bool
}

// NewReader returns a reader over r.
func NewReader(r io.Reader) *Reader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), MaxLine)
	return &Reader{sc: sc}
}

// Next returns the next protocol event. It returns io.EOF once the stream
// ends.
func (r *Reader) Next() (*Event, error) {
	for r.sc.Scan() {
		line := strings.TrimRight(r.sc.Text(), "\r")
		switch {
		case strings.HasPrefix(line, ProgressPrefix):
			var ev transform.ProgressEvent
			if err := json.Unmarshal([]byte(line[len(ProgressPrefix):]), &ev); err != nil {
				return nil, fmt.Errorf("malformed progress line: %w", err)
			}
			return &Event{Kind: EventProgress, Progress: &ev}, nil

		case line == JSONStart:
			body, err := r.collect(JSONEnd)
			if err != nil {
				return nil, err
			}
			var res Result
			if err := json.Unmarshal(body, &res); err != nil {
				return nil, fmt.Errorf("malformed result block: %w", err)
			}
			if err := r.markTerminal(); err != nil {
				return nil, err
			}
			return &Event{Kind: EventResult, Result: &res}, nil

		case line == ErrorStart:
			body, err := r.collect(ErrorEnd)
			if err != nil {
				return nil, err
			}
			var w fault.Wire
			if err := json.Unmarshal(body, &w); err != nil {
				return nil, fmt.Errorf("malformed error block: %w", err)
			}
			if err := r.markTerminal(); err != nil {
				return nil, err
			}
			return &Event{Kind: EventError, Err: &w}, nil
		}
	}
	if err := r.sc.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}

// collect gathers block body lines until the end delimiter.
func (r *Reader) collect(end string) ([]byte, error) {
	var b strings.Builder
	for r.sc.Scan() {
		line := strings.TrimRight(r.sc.Text(), "\r")
		if line == end {
			return []byte(b.String()), nil
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	if err := r.sc.Err(); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("stream ended before %s: %w", end, io.ErrUnexpectedEOF)
}

func (r *Reader) markTerminal() error {
	if r.terminal {
		return ErrMultipleTerminals
	}
	r.terminal = true
	return nil
}
