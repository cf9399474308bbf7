// SPDX-License-Identifier: MPL-2.0

package fault

import "errors"

// Wire is the JSON shape an error takes in the streaming output protocol
// and the worker channel.
type Wire struct {
	// Code is the taxonomy classification.
	Code Code `json:"code"`
	// Message is the human-readable description.
	Message string `json:"message"`
	// Details carries optional structured context.
	Details map[string]any `json:"details,omitempty"`
}

// ToWire converts any error into its wire shape, classifying it through
// CodeOf and collecting structured details when the chain carries them.
func ToWire(err error) Wire {
	if err == nil {
		return Wire{}
	}

	w := Wire{Code: CodeOf(err), Message: err.Error()}

	var detailed interface{ WireDetails() map[string]any }
	if errors.As(err, &detailed) {
		w.Details = detailed.WireDetails()
	}

	return w
}

// Err converts a received wire error back into a taxonomy error.
func (w Wire) Err() error {
	if w.Code == "" {
		return nil
	}
	code := w.Code
	if !code.IsValid() {
		code = CodeUnknown
	}
	return &Error{Code: code, Message: w.Message, Details: w.Details}
}
