// SPDX-License-Identifier: MPL-2.0

// Package config handles runtime configuration using Viper with CUE as the
// file format.
//
// Configuration is loaded from ~/.config/graft/config.cue (or the XDG
// equivalent on Linux, ~/Library/Application Support/graft/config.cue on
// macOS, %APPDATA%\graft\config.cue on Windows). GRAFT_* environment
// variables override file values. The file is validated against a CUE schema
// (config_schema.cue) before it is merged, so typos and wrong value kinds
// fail with a pointed error instead of silently using defaults.
package config
