// SPDX-License-Identifier: MPL-2.0

// Package issue provides actionable error handling with user-friendly messages.
//
// ActionableError records the operation, resource, and suggestions the CLI
// prints next to a failure. The issue catalog maps stable fault codes to
// Markdown remediation pages rendered by 'graft explain'.
package issue
