// SPDX-License-Identifier: MPL-2.0

package ipc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/graftlabs/graft/pkg/entity"
	"github.com/graftlabs/graft/pkg/transform"
)

// RunHandler receives the stream of a run command. Nil fields drop their
// events.
type RunHandler struct {
	OnItem     func(transform.Item)
	OnProgress func(transform.ProgressEvent)
	OnNotice   func(transform.Notice)
}

// Client drives a worker over a frame stream pair. Commands are issued one
// at a time; concurrent callers queue on an internal mutex. Cancelling the
// context of a Run call forwards a cancel command to the worker, which
// terminates the run and unblocks the call.
type Client struct {
	mu   sync.Mutex
	wmu  sync.Mutex
	r    io.Reader
	w    io.Writer
	next atomic.Uint64
}

// NewClient wraps the read and write halves of a worker channel.
func NewClient(r io.Reader, w io.Writer) *Client {
	return &Client{r: r, w: w}
}

// Entities lists every registered entity type descriptor.
func (c *Client) Entities(ctx context.Context) ([]*entity.Type, error) {
	raw, err := c.call(ctx, CmdEntities, nil, nil)
	if err != nil {
		return nil, err
	}
	var types []*entity.Type
	if err := json.Unmarshal(raw, &types); err != nil {
		return nil, fmt.Errorf("decoding entities response: %w", err)
	}
	return types, nil
}

// Transforms lists the transforms applicable to one entity reference.
func (c *Client) Transforms(ctx context.Context, ref string) ([]TransformInfo, error) {
	raw, err := c.call(ctx, CmdTransforms, ListRequest{Ref: ref}, nil)
	if err != nil {
		return nil, err
	}
	var rows []TransformInfo
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("decoding transforms response: %w", err)
	}
	return rows, nil
}

// Blueprint returns the creation skeleton for one entity reference.
func (c *Client) Blueprint(ctx context.Context, ref string) (map[string]any, error) {
	raw, err := c.call(ctx, CmdBlueprints, ListRequest{Ref: ref}, nil)
	if err != nil {
		return nil, err
	}
	var blueprint map[string]any
	if err := json.Unmarshal(raw, &blueprint); err != nil {
		return nil, fmt.Errorf("decoding blueprint response: %w", err)
	}
	return blueprint, nil
}

// Blueprints returns creation skeletons for every registered type, keyed by
// the "id@version" descriptor key.
func (c *Client) Blueprints(ctx context.Context) (map[string]map[string]any, error) {
	raw, err := c.call(ctx, CmdBlueprints, ListRequest{}, nil)
	if err != nil {
		return nil, err
	}
	var blueprints map[string]map[string]any
	if err := json.Unmarshal(raw, &blueprints); err != nil {
		return nil, fmt.Errorf("decoding blueprints response: %w", err)
	}
	return blueprints, nil
}

// Settings reports the declared settings and stored values of one binding.
func (c *Client) Settings(ctx context.Context, ref, label string) (*SettingsInfo, error) {
	raw, err := c.call(ctx, CmdSettings, SettingsRequest{Ref: ref, Label: label}, nil)
	if err != nil {
		return nil, err
	}
	var info SettingsInfo
	if err := json.Unmarshal(raw, &info); err != nil {
		return nil, fmt.Errorf("decoding settings response: %w", err)
	}
	return &info, nil
}

// Run executes one transform on the worker and streams its output through
// the handler. It returns the emitted item count once the run completes.
func (c *Client) Run(ctx context.Context, req RunRequest, h RunHandler) (int, error) {
	raw, err := c.call(ctx, CmdRun, req, func(msg *Message) error {
		switch msg.Event {
		case EventItem:
			if h.OnItem == nil {
				return nil
			}
			var item transform.Item
			if err := json.Unmarshal(msg.Payload, &item); err != nil {
				return fmt.Errorf("decoding item event: %w", err)
			}
			h.OnItem(item)
		case EventProgress:
			if h.OnProgress == nil {
				return nil
			}
			var ev transform.ProgressEvent
			if err := json.Unmarshal(msg.Payload, &ev); err != nil {
				return fmt.Errorf("decoding progress event: %w", err)
			}
			h.OnProgress(ev)
		case EventNotice:
			if h.OnNotice == nil {
				return nil
			}
			var n transform.Notice
			if err := json.Unmarshal(msg.Payload, &n); err != nil {
				return fmt.Errorf("decoding notice event: %w", err)
			}
			h.OnNotice(n)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	var done Done
	if err := json.Unmarshal(raw, &done); err != nil {
		return 0, fmt.Errorf("decoding run response: %w", err)
	}
	return done.Count, nil
}

// call issues one request and reads frames until its response arrives.
// Events for the request go through onEvent; frames for other ids, such as
// responses to interleaved cancel commands, are skipped.
func (c *Client) call(ctx context.Context, cmd Command, args any, onEvent func(*Message) error) (json.RawMessage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var raw json.RawMessage
	if args != nil {
		var err error
		raw, err = json.Marshal(args)
		if err != nil {
			return nil, err
		}
	}

	id := c.next.Add(1)
	if err := c.write(&Message{ID: id, Type: TypeRequest, Cmd: cmd, Payload: raw}); err != nil {
		return nil, err
	}

	if cmd == CmdRun {
		stop := make(chan struct{})
		defer close(stop)
		go c.cancelOnDone(ctx, id, stop)
	}

	for {
		msg, err := ReadMessage(c.r)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("worker channel closed before the %s response: %w", cmd, io.ErrUnexpectedEOF)
			}
			return nil, err
		}
		if msg.ID != id {
			continue
		}
		switch msg.Type {
		case TypeEvent:
			if onEvent != nil {
				if err := onEvent(msg); err != nil {
					return nil, err
				}
			}
		case TypeResponse:
			if msg.Err != nil {
				return nil, msg.Err.Err()
			}
			if !msg.OK {
				return nil, errors.New("worker reported failure without detail")
			}
			return msg.Payload, nil
		}
	}
}

// cancelOnDone forwards a context cancellation to the worker as a cancel
// command for the given run id.
func (c *Client) cancelOnDone(ctx context.Context, id uint64, stop <-chan struct{}) {
	select {
	case <-ctx.Done():
		raw, err := json.Marshal(CancelRequest{ID: id})
		if err != nil {
			return
		}
		_ = c.write(&Message{ID: c.next.Add(1), Type: TypeRequest, Cmd: CmdCancel, Payload: raw})
	case <-stop:
	}
}

func (c *Client) write(msg *Message) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	return WriteMessage(c.w, msg)
}
