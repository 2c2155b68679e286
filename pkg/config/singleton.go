package config

import "sync"

var (
	// processConfig is the configuration loaded by the CLI.
	processConfig *Config
	processMu     sync.RWMutex
	loadOnce      sync.Once
)

// Initialize loads configuration from path (empty for defaults only) with
// environment overrides and stores it as the process configuration. Only
// the first call loads; later calls return nil without reading path.
//
// Packages below cmd/ never read the process configuration. They receive
// the sub-config they need from their constructor.
func Initialize(path string) error {
	var loadErr error
	loadOnce.Do(func() {
		cfg, err := LoadConfigWithEnvOverrides(path)
		if err != nil {
			loadErr = err
			return
		}
		SetConfig(cfg)
	})
	return loadErr
}

// GetConfig returns the process configuration, or nil before Initialize.
func GetConfig() *Config {
	processMu.RLock()
	defer processMu.RUnlock()
	return processConfig
}

// SetConfig replaces the process configuration. Commands under test use it
// to inject a configuration without a file.
func SetConfig(cfg *Config) {
	processMu.Lock()
	defer processMu.Unlock()
	processConfig = cfg
}
