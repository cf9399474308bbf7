// SPDX-License-Identifier: MPL-2.0

package wire

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/graftlabs/graft/pkg/fault"
	"github.com/graftlabs/graft/pkg/transform"
)

// ErrTerminalWritten is returned for any write attempted after the
// stream's single terminal block went out.
var ErrTerminalWritten = errors.New("terminal block already written")

// Writer emits the delimiter-framed protocol. A stream carries any number
// of progress lines followed by exactly one result or error block; the
// writer enforces that ordering. Safe for concurrent use.
type Writer struct {
	mu       sync.Mutex
	out      io.Writer
	progress io.Writer
	terminal bool
}

// NewWriter returns a writer emitting everything to out.
func NewWriter(out io.Writer) *Writer {
	return &Writer{out: out, progress: out}
}

// WithProgressWriter redirects progress lines, stderr under the subprocess
// contract, keeping result and error blocks on the main writer.
func (w *Writer) WithProgressWriter(pw io.Writer) *Writer {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.progress = pw
	return w
}

// WriteResult emits the terminal result block.
func (w *Writer) WriteResult(items []transform.Item, notices []transform.Notice) error {
	if items == nil {
		items = []transform.Item{}
	}
	if notices == nil {
		notices = []transform.Notice{}
	}
	body, err := json.Marshal(Result{Data: items, Notices: notices})
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	return w.writeTerminal(JSONStart, JSONEnd, body)
}

// WriteError emits the terminal error block for a classified failure.
func (w *Writer) WriteError(failure error) error {
	body, err := json.Marshal(fault.ToWire(failure))
	if err != nil {
		return fmt.Errorf("failed to encode error: %w", err)
	}
	return w.writeTerminal(ErrorStart, ErrorEnd, body)
}

// WriteProgress emits one progress line. Progress after the terminal block
// is rejected.
func (w *Writer) WriteProgress(ev transform.ProgressEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to encode progress: %w", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.terminal {
		return ErrTerminalWritten
	}
	_, err = fmt.Fprintf(w.progress, "%s%s\n", ProgressPrefix, body)
	return err
}

func (w *Writer) writeTerminal(start, end string, body []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.terminal {
		return ErrTerminalWritten
	}
	if _, err := fmt.Fprintf(w.out, "%s\n%s\n%s\n", start, body, end); err != nil {
		return err
	}
	w.terminal = true
	return nil
}
