package logging

import (
	"context"
	"os"
	"strings"
	"sync"

	"github.com/JailtonJunior94/logkit/pkg/observability"
	"github.com/JailtonJunior94/logkit/pkg/observability/slogger"
)

// ConfigFileEnv names the configuration file read by Default.
const ConfigFileEnv = "LOGKIT_CONFIG_FILE"

// DefaultConfiguration is applied by Default when ConfigFileEnv is unset.
const DefaultConfiguration = `handlers=ConsoleHandler
.level=INFO
ConsoleHandler.level=INFO
ConsoleHandler.formatter=SimpleFormatter
`

var (
	defaultOnce    sync.Once
	defaultManager *Manager
)

// Default returns the process-wide manager, configured on first use from
// the file named by LOGKIT_CONFIG_FILE or from DefaultConfiguration.
// Diagnostics go to stderr as text at warn level.
func Default() *Manager {
	defaultOnce.Do(func() {
		provider := slogger.NewProvider(slogger.DefaultConfig())
		m := NewManager(WithObservability(provider))

		if path := os.Getenv(ConfigFileEnv); path != "" {
			err := m.ReadConfigurationFile(path)
			if err == nil {
				defaultManager = m
				return
			}
			provider.Logger().Warn(context.Background(), "falling back to the default logging configuration",
				observability.String("path", path),
				observability.Error(err),
			)
		}
		_ = m.ReadConfiguration(strings.NewReader(DefaultConfiguration))
		defaultManager = m
	})
	return defaultManager
}

// GetLogger returns the named logger of the default manager.
func GetLogger(name string) *Logger {
	return Default().Logger(name)
}

// GlobalLogger returns the "global" logger of the default manager.
func GlobalLogger() *Logger {
	return Default().Global()
}
