// SPDX-License-Identifier: MPL-2.0

package config

import "sync"

var (
	globalMu          sync.RWMutex
	configDirOverride string
)

// SetConfigDirOverride redirects ConfigDir to dir until Reset is called.
// Tests use this to point the package at a temporary directory.
func SetConfigDirOverride(dir string) {
	globalMu.Lock()
	defer globalMu.Unlock()
	configDirOverride = dir
}

// Reset clears the config dir override.
func Reset() {
	globalMu.Lock()
	defer globalMu.Unlock()
	configDirOverride = ""
}

func configDirOverridden() (string, bool) {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return configDirOverride, configDirOverride != ""
}
