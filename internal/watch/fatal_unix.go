// SPDX-License-Identifier: MPL-2.0

//go:build !windows

package watch

import (
	"errors"
	"syscall"
)

// isFatalFsnotifyError reports whether err means the watcher cannot recover.
// On Unix these are the inotify resource exhaustion errors: ENOSPC when the
// watch limit is exceeded, EMFILE and ENFILE when the process or system runs
// out of file descriptors.
func isFatalFsnotifyError(err error) bool {
	return errors.Is(err, syscall.ENOSPC) ||
		errors.Is(err, syscall.EMFILE) ||
		errors.Is(err, syscall.ENFILE)
}
