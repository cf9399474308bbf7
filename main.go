// SPDX-License-Identifier: MPL-2.0

package main

import cmd "github.com/graftlabs/graft/cmd/graft"

func main() {
	cmd.Execute()
}
