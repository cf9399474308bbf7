// SPDX-License-Identifier: MPL-2.0

package ipc

import (
	"encoding/json"

	"github.com/graftlabs/graft/internal/registry"
	"github.com/graftlabs/graft/pkg/entity"
	"github.com/graftlabs/graft/pkg/fault"
)

const (
	// TypeRequest marks a host-to-worker command frame.
	TypeRequest MessageType = "req"
	// TypeResponse marks the single terminal frame of a command.
	TypeResponse MessageType = "res"
	// TypeEvent marks an intermediate stream frame of a run command.
	TypeEvent MessageType = "event"

	// Commands understood by the worker.
	CmdEntities   Command = "entities"
	CmdTransforms Command = "transforms"
	CmdBlueprints Command = "blueprints"
	CmdSettings   Command = "settings"
	CmdRun        Command = "run"
	CmdCancel     Command = "cancel"

	// Stream events emitted while a run command executes.
	EventProgress EventName = "progress"
	EventItem     EventName = "item"
	EventNotice   EventName = "notice"
)

// Redacted replaces secret setting values in listing payloads.
const Redacted = "[redacted]"

type (
	// MessageType discriminates the three frame kinds.
	MessageType string

	// Command names a worker operation.
	Command string

	// EventName names a run stream event.
	EventName string

	// Message is the envelope of every frame in both directions. Every
	// request is answered by exactly one response carrying the same id; run
	// requests additionally emit event frames before their response.
	Message struct {
		// ID correlates responses and events with their request.
		ID uint64 `json:"id"`
		// Type discriminates requests, responses and stream events.
		Type MessageType `json:"type"`
		// Cmd names the operation on request frames.
		Cmd Command `json:"cmd,omitempty"`
		// Event names the stream event on event frames.
		Event EventName `json:"event,omitempty"`
		// OK is false on failure responses.
		OK bool `json:"ok"`
		// Payload carries command arguments, results or event bodies.
		Payload json.RawMessage `json:"payload,omitempty"`
		// Err carries the failure on responses with OK false.
		Err *fault.Wire `json:"error,omitempty"`
	}

	// ListRequest narrows a transforms or blueprints command to one entity
	// reference. Blueprints treat an empty reference as "all types".
	ListRequest struct {
		Ref string `json:"ref,omitempty"`
	}

	// TransformInfo is one row of a transforms listing.
	TransformInfo struct {
		Label       string               `json:"label"`
		Target      string               `json:"target"`
		Requires    string               `json:"requires,omitempty"`
		Title       string               `json:"title,omitempty"`
		Description string               `json:"description,omitempty"`
		Icon        string               `json:"icon,omitempty"`
		Accepts     []entity.ID          `json:"accepts,omitempty"`
		Produces    []entity.ID          `json:"produces,omitempty"`
		Settings    []entity.SettingSpec `json:"settings,omitempty"`
		Deps        []string             `json:"deps,omitempty"`
		Wildcard    bool                 `json:"wildcard,omitempty"`
	}

	// SettingsRequest identifies one transform binding.
	SettingsRequest struct {
		Ref   string `json:"ref"`
		Label string `json:"label"`
	}

	// SettingsInfo reports the declared settings of a transform binding and
	// the values currently stored for it. Secret values are redacted.
	SettingsInfo struct {
		// Transform is the "target/label" name of the binding.
		Transform string `json:"transform"`
		// Specs is the effective declaration list.
		Specs []entity.SettingSpec `json:"specs"`
		// Global holds stored global-layer values of declared global
		// settings.
		Global map[string]any `json:"global,omitempty"`
		// Layer holds stored transform-layer values of declared settings.
		Layer map[string]any `json:"layer,omitempty"`
		// Path is the transform layer file on disk.
		Path string `json:"path,omitempty"`
	}

	// RunRequest carries the arguments of a run command.
	RunRequest struct {
		// Entity is the target entity reference, bare or pinned.
		Entity string `json:"entity"`
		// Label is the transform label to invoke.
		Label string `json:"label"`
		// Input is the source entity payload.
		Input entity.Payload `json:"input"`
		// Overrides are runtime setting overrides.
		Overrides map[string]any `json:"overrides,omitempty"`
		// TimeoutMS bounds the invocation in milliseconds. Zero applies the
		// worker default, negative disables the deadline.
		TimeoutMS int64 `json:"timeout_ms,omitempty"`
	}

	// Done is the payload of a successful run response.
	Done struct {
		// Count is the number of data items the transform emitted.
		Count int `json:"count"`
	}

	// CancelRequest names the in-flight run to cancel by its request id.
	CancelRequest struct {
		ID uint64 `json:"id"`
	}

	// CancelResult reports whether the id named a run still in flight.
	CancelResult struct {
		Cancelled bool `json:"cancelled"`
	}
)

// NewTransformInfo flattens a registry binding into its listing row. The
// requirement string is the normalized form, not the author's spelling.
func NewTransformInfo(b *registry.Binding) TransformInfo {
	return TransformInfo{
		Label:       b.Spec.Label.String(),
		Target:      b.Spec.Target.String(),
		Requires:    b.Requires.String(),
		Title:       b.Spec.Title,
		Description: b.Spec.Description,
		Icon:        b.Spec.Icon,
		Accepts:     b.Spec.Accepts,
		Produces:    b.Spec.Produces,
		Settings:    b.Spec.Settings,
		Deps:        b.Spec.Deps,
		Wildcard:    b.Wildcard(),
	}
}
