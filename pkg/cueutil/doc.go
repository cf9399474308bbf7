// SPDX-License-Identifier: MPL-2.0

// Package cueutil provides shared CUE parsing utilities.
//
// The package consolidates the 3-step CUE parsing pattern used by the plugin
// descriptor loader and the runtime config:
//
//  1. Compile the embedded schema
//  2. Compile user data and unify with schema
//  3. Validate and decode to Go struct
//
// CUE is a superset of JSON, so the same flow validates .cue and .json
// descriptor files alike.
//
// # Usage
//
//	//go:embed schema.cue
//	var schemaBytes []byte
//
//	result, err := cueutil.ParseAndDecode[Descriptor](
//	    schemaBytes,
//	    userFileBytes,
//	    "#Plugin",
//	    cueutil.WithFilename("dns.cue"),
//	)
//	if err != nil {
//	    return nil, err  // Error includes the CUE path of the bad value
//	}
//	return result.Value, nil
package cueutil
